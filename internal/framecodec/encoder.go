package framecodec

import (
	"github.com/pkg/errors"

	"github.com/seanpm2001/jsonstream/jsonvalue"
)

// Encoder produces the on-wire bytes for one object in a chosen format
// (spec §4.1.4). Encoder holds no buffering of its own; the outbound
// byte queue lives in endpoint.Endpoint.
type Encoder struct {
	codec  jsonvalue.Codec
	format Format
}

// EncoderOption configures an Encoder at construction time.
type EncoderOption func(*Encoder)

// WithEncoderCodec overrides the jsonvalue.Codec used to serialize objects.
func WithEncoderCodec(codec jsonvalue.Codec) EncoderOption {
	return func(e *Encoder) { e.codec = codec }
}

// NewEncoder creates an Encoder for the given format. Pass Undefined to
// let the first Encode call pick the default (CompactBinary).
func NewEncoder(format Format, opts ...EncoderOption) *Encoder {
	e := &Encoder{codec: jsonvalue.DefaultCodec, format: format}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Format returns the encoder's current output format.
func (e *Encoder) Format() Format { return e.format }

// SetFormat fixes the encoder's output format.
func (e *Encoder) SetFormat(f Format) { e.format = f }

// Encode renders obj as the complete on-wire bytes for one frame. If no
// format has been chosen yet, it defaults to CompactBinary and keeps that
// choice for subsequent calls (spec §4.1.4).
func (e *Encoder) Encode(obj jsonvalue.Object) ([]byte, error) {
	if e.format == Undefined {
		e.format = CompactBinary
	}

	switch e.format {
	case Utf8:
		return e.codec.EncodeText(obj)
	case CompactBinary:
		return e.codec.EncodeCompactBinary(obj)
	case Bson:
		body, err := e.codec.EncodeBSON(obj)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(body)+4)
		out = append(out, "bson"...)
		return append(out, body...), nil
	default:
		return nil, errors.Errorf("framecodec: format %v is receive-only and cannot be encoded", e.format)
	}
}
