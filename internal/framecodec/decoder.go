package framecodec

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/seanpm2001/jsonstream/jsonvalue"
)

type parseState int

const (
	parseNormal parseState = iota
	parseInString
	parseInEscape
)

// Decoder is an incremental, single-direction frame parser. It is not
// safe for concurrent use; each stream direction owns exactly one
// Decoder, matching the FrameBuffer ownership invariant.
type Decoder struct {
	codec jsonvalue.Codec

	buf    []byte
	format Format

	// Text-framing scanner state (spec §4.1.2).
	state      parseState
	depth      int
	cursor     int // code-unit offset, scaled by the format's code-unit size
	frameStart int // code-unit offset of the frame's opening '{'; -1 if none

	// Length-prefixed framing state (spec §4.1.3).
	messageSize int // total frame size in bytes, including header

	messageAvailable bool
	fatal            error // sticky once a MalformedFrame has been detected
}

// DecoderOption configures a Decoder at construction time.
type DecoderOption func(*Decoder)

// WithCodec overrides the jsonvalue.Codec used to decode extracted frames.
func WithCodec(codec jsonvalue.Codec) DecoderOption {
	return func(d *Decoder) { d.codec = codec }
}

// NewDecoder creates a Decoder with format Undefined.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{codec: jsonvalue.DefaultCodec, frameStart: -1}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Format returns the format detected for this direction, or Undefined if
// fewer than 4 bytes have been seen.
func (d *Decoder) Format() Format { return d.format }

// Len reports the number of unconsumed bytes currently buffered.
func (d *Decoder) Len() int { return len(d.buf) }

// Append adds data to the inbound buffer. It does not itself scan for
// frames; callers query MessageAvailable/ReadMessage after appending.
func (d *Decoder) Append(data []byte) {
	d.buf = append(d.buf, data...)
}

// Clear discards all buffered bytes and resets parser state, but leaves
// the detected format untouched (per the "format is sticky" invariant).
func (d *Decoder) Clear() {
	d.buf = d.buf[:0]
	d.Reset()
}

// Reset clears parser state and the MessageAvailable cache, preparing the
// decoder for the next frame. It does not clear the buffer or the
// detected format (spec §4.1.6).
func (d *Decoder) Reset() {
	d.state = parseNormal
	d.depth = 0
	d.cursor = 0
	d.frameStart = -1
	d.messageAvailable = false
	d.messageSize = 0
}

// detectFormat performs the one-time format detection of spec §4.1.1. It
// is a no-op once format is no longer Undefined, and requires at least 4
// buffered bytes.
func (d *Decoder) detectFormat() {
	if d.format != Undefined || len(d.buf) < 4 {
		return
	}
	b := d.buf
	switch {
	case string(b[0:4]) == "bson":
		d.format = Bson
	case binary.LittleEndian.Uint32(b[0:4]) == d.codec.CompactBinaryTag():
		d.format = CompactBinary
	case b[0] == 0 && b[1] != 0 && b[2] == 0 && b[3] != 0:
		d.format = Utf16BE
	case b[0] != 0 && b[1] == 0 && b[2] != 0 && b[3] == 0:
		d.format = Utf16LE
	default:
		d.format = Utf8
	}
}

// MessageAvailable reports whether a complete frame is ready to be read.
// A positive answer is cached so repeated queries are O(1). If the
// decoder has hit an unrecoverable framing error it is returned here and
// will continue to be returned on every subsequent call.
func (d *Decoder) MessageAvailable() (bool, error) {
	if d.fatal != nil {
		return false, d.fatal
	}
	if d.messageAvailable {
		return true, nil
	}

	d.detectFormat()

	switch d.format {
	case Undefined:
		return false, nil
	case Utf8, Utf16BE, Utf16LE:
		return d.scanText()
	case Bson:
		return d.scanLengthPrefixed(8, 4)
	case CompactBinary:
		return d.scanLengthPrefixed(12, 8)
	default:
		return false, nil
	}
}

// ReadMessage extracts and decodes the single frame that MessageAvailable
// most recently reported ready, advancing the buffer past it. It returns
// (nil, nil) if no frame is currently available.
func (d *Decoder) ReadMessage() (jsonvalue.Object, error) {
	avail, err := d.MessageAvailable()
	if err != nil {
		return nil, err
	}
	if !avail {
		return nil, nil
	}

	switch d.format {
	case Utf8:
		raw := cloneBytes(d.buf[d.frameStart:d.cursor])
		d.consume(d.cursor)
		return d.decodeText(raw)
	case Utf16BE:
		raw := utf16ToUtf8(d.buf[d.frameStart*2:d.cursor*2], binary.BigEndian)
		d.consume(d.cursor * 2)
		return d.decodeText(raw)
	case Utf16LE:
		raw := utf16ToUtf8(d.buf[d.frameStart*2:d.cursor*2], binary.LittleEndian)
		d.consume(d.cursor * 2)
		return d.decodeText(raw)
	case Bson:
		payload := cloneBytes(d.buf[4:d.messageSize])
		total := d.messageSize
		d.consume(total)
		obj, decErr := d.codec.DecodeBSON(payload)
		return d.finish(obj, decErr)
	case CompactBinary:
		payload := cloneBytes(d.buf[0:d.messageSize])
		total := d.messageSize
		d.consume(total)
		obj, decErr := d.codec.DecodeCompactBinary(payload)
		return d.finish(obj, decErr)
	default:
		return nil, nil
	}
}

func (d *Decoder) decodeText(raw []byte) (jsonvalue.Object, error) {
	obj, decErr := d.codec.DecodeText(raw)
	return d.finish(obj, decErr)
}

// finish maps a codec-level decode error onto ErrDecodeFailure. Per spec
// §4.1.5 this does not close the endpoint: the frame has already been
// consumed from the buffer and the parser already reset by consume, so
// the caller simply continues with the next frame.
func (d *Decoder) finish(obj jsonvalue.Object, decErr error) (jsonvalue.Object, error) {
	if decErr != nil {
		return nil, errors.Wrapf(ErrDecodeFailure, "%v", decErr)
	}
	return obj, nil
}

// consume drops the first n bytes (the just-extracted frame) from the
// buffer, preserving any trailing bytes already received for the next
// frame, and resets parser state for that next frame.
func (d *Decoder) consume(n int) {
	rest := len(d.buf) - n
	copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
	d.Reset()
}

// AtEnd reports the error, if any, that should be surfaced when the
// underlying stream has ended (read returned EOF) while this decoder
// still holds buffered bytes. It distinguishes an in-progress text frame
// (ErrMalformedFrame, unbalanced braces) from an in-progress
// length-prefixed frame (ErrTruncatedFrame).
func (d *Decoder) AtEnd() error {
	if d.fatal != nil {
		return d.fatal
	}
	switch d.format {
	case Utf8, Utf16BE, Utf16LE:
		if d.depth > 0 || d.state != parseNormal {
			return ErrMalformedFrame
		}
	case Bson, CompactBinary:
		if len(d.buf) > 0 && !d.messageAvailable {
			return ErrTruncatedFrame
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
