// Package jsonvalue stands in for the JSON-value codec that the transport
// treats as an external collaborator: parsing and serializing JSON objects
// to and from the three wire representations the stream codec frames
// (text JSON, a compact self-describing binary form, and BSON). Nothing in
// internal/framecodec, endpoint, connection or server depends on the
// concrete types here beyond the Codec interface.
package jsonvalue

// Object is the decoded form of one top-level JSON object: a set of
// name/value pairs where a value is nil, bool, float64, string,
// []interface{} or Object. Go maps do not preserve insertion order; callers
// that need wire-order preservation should not rely on range order here,
// matching the behaviour of encoding/json's map-based decoding.
type Object = map[string]interface{}

// Codec converts between Object and the wire bytes for one frame in a
// given encoding. Implementations must be safe to share across goroutines
// provided they hold no mutable state, which the DefaultCodec does.
type Codec interface {
	DecodeText(data []byte) (Object, error)
	EncodeText(obj Object) ([]byte, error)

	DecodeCompactBinary(data []byte) (Object, error)
	EncodeCompactBinary(obj Object) ([]byte, error)

	DecodeBSON(data []byte) (Object, error)
	EncodeBSON(obj Object) ([]byte, error)

	// CompactBinaryTag returns the little-endian 32-bit value that marks
	// the start of a CompactBinary frame, used by the frame codec's format
	// detector (see internal/framecodec).
	CompactBinaryTag() uint32
}

// DefaultCodec is the Codec used by the transport unless the caller
// supplies a different one.
var DefaultCodec Codec = defaultCodec{}

type defaultCodec struct{}

func (defaultCodec) DecodeText(data []byte) (Object, error) { return decodeText(data) }
func (defaultCodec) EncodeText(obj Object) ([]byte, error)  { return encodeText(obj) }

func (defaultCodec) DecodeCompactBinary(data []byte) (Object, error) { return decodeCompactBinary(data) }
func (defaultCodec) EncodeCompactBinary(obj Object) ([]byte, error)  { return encodeCompactBinary(obj) }

func (defaultCodec) DecodeBSON(data []byte) (Object, error) { return decodeBSON(data) }
func (defaultCodec) EncodeBSON(obj Object) ([]byte, error)  { return encodeBSON(obj) }

func (defaultCodec) CompactBinaryTag() uint32 { return compactBinaryTag }
