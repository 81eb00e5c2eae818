package framecodec

import "github.com/pkg/errors"

// Sentinel errors surfaced by the decoder, compared with errors.Is or
// errors.Cause by callers (endpoint.Endpoint uses errors.Cause). All three
// map directly onto spec
// error kinds: MalformedFrame, TruncatedFrame and DecodeFailure.
var (
	// ErrMalformedFrame is returned for a '}' seen at brace-depth zero
	// outside a string in a text framing.
	ErrMalformedFrame = errors.New("framecodec: malformed frame")

	// ErrTruncatedFrame is returned by AtEnd when the stream ends with an
	// incomplete length-prefixed (Bson/CompactBinary) frame in progress; an
	// incomplete text frame yields ErrMalformedFrame instead.
	ErrTruncatedFrame = errors.New("framecodec: truncated frame")

	// ErrDecodeFailure is returned when the extracted frame bytes were
	// well-framed but the JSON-value codec rejected them.
	ErrDecodeFailure = errors.New("framecodec: decode failure")
)
