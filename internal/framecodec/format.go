// Package framecodec implements the incremental, multi-format frame
// codec described in the transport's design: it accepts arbitrary byte
// fragments, detects one of four wire encodings from the first bytes of
// the stream, and extracts exactly one complete JSON object per frame,
// preserving unconsumed bytes across appends.
//
// The shape (a Decoder struct holding all parser state, functional
// DecoderOption configuration) follows github.com/damianoneill/net/v2's
// netconf/rfc6242 decoder, adapted from RFC6242 chunk framing to this
// format's brace-depth/length-prefix detection.
package framecodec

// Format identifies the wire encoding of one direction of a stream.
type Format int

const (
	// Undefined means no bytes have been seen yet, or too few to detect.
	Undefined Format = iota
	// Utf8 is brace-depth-scanned UTF-8 JSON text.
	Utf8
	// Utf16BE is brace-depth-scanned big-endian UTF-16 JSON text.
	Utf16BE
	// Utf16LE is brace-depth-scanned little-endian UTF-16 JSON text.
	Utf16LE
	// CompactBinary is the self-describing, length-prefixed binary form.
	CompactBinary
	// Bson is the "bson"-literal-prefixed, length-prefixed BSON document form.
	Bson
)

func (f Format) String() string {
	switch f {
	case Undefined:
		return "Undefined"
	case Utf8:
		return "Utf8"
	case Utf16BE:
		return "Utf16BE"
	case Utf16LE:
		return "Utf16LE"
	case CompactBinary:
		return "CompactBinary"
	case Bson:
		return "Bson"
	default:
		return "Format(?)"
	}
}
