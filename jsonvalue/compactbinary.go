package jsonvalue

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// compactBinaryTag is the little-endian 32-bit value the frame codec looks
// for at the start of a stream to recognise the CompactBinary encoding
// (see internal/framecodec's format detector). No off-the-shelf Go
// serialization library produces this exact self-describing, tag-plus-
// length-prefixed wire shape (it mirrors Qt's QJsonDocument binary format,
// which this module is not trying to byte-for-byte reproduce, only to
// frame the same way); it is implemented here directly rather than pulled
// in from the ecosystem. See DESIGN.md.
const compactBinaryTag uint32 = 0x51424a53 // ASCII "SJBQ" read little-endian

// compactBinaryHeaderLen is the number of header bytes (tag + reserved +
// length field) that precede a CompactBinary document body.
const compactBinaryHeaderLen = 12

// value type tags for the recursive TLV document body.
const (
	tlvNull = iota
	tlvFalse
	tlvTrue
	tlvFloat64
	tlvString
	tlvArray
	tlvObject
)

// encodeCompactBinary renders obj as the complete on-wire CompactBinary
// frame: a 12-byte header (tag, reserved, length) followed by a recursive
// TLV document body. The returned bytes are exactly what internal/
// framecodec writes to the wire with no further framing (see spec §4.1.4).
func encodeCompactBinary(obj Object) ([]byte, error) {
	body := encodeTLVObject(obj)

	header := make([]byte, compactBinaryHeaderLen)
	binary.LittleEndian.PutUint32(header[0:4], compactBinaryTag)
	binary.LittleEndian.PutUint32(header[4:8], 0) // reserved
	// length excludes the first 8 header bytes; it covers itself and the body.
	length := uint32(4 + len(body))
	binary.LittleEndian.PutUint32(header[8:12], length)

	return append(header, body...), nil
}

// decodeCompactBinary parses a complete CompactBinary frame (header
// included, exactly as extracted by internal/framecodec) back into an
// Object.
func decodeCompactBinary(data []byte) (Object, error) {
	if len(data) < compactBinaryHeaderLen {
		return nil, errors.New("jsonvalue: compact binary frame shorter than header")
	}
	if tag := binary.LittleEndian.Uint32(data[0:4]); tag != compactBinaryTag {
		return nil, errors.Errorf("jsonvalue: compact binary tag mismatch: %#x", tag)
	}
	length := binary.LittleEndian.Uint32(data[8:12])
	total := int(length) + 8
	if total != len(data) {
		return nil, errors.Errorf("jsonvalue: compact binary length mismatch: header says %d, got %d bytes", total, len(data))
	}

	obj, rest, err := decodeTLVObjectBody(data[compactBinaryHeaderLen:])
	if err != nil {
		return nil, errors.Wrap(err, "jsonvalue: decode compact binary body")
	}
	if len(rest) != 0 {
		return nil, errors.New("jsonvalue: trailing bytes after compact binary document")
	}
	return obj, nil
}

func encodeTLVValue(v interface{}) []byte {
	switch val := v.(type) {
	case nil:
		return []byte{tlvNull}
	case bool:
		if val {
			return []byte{tlvTrue}
		}
		return []byte{tlvFalse}
	case float64:
		return encodeTLVFloat64(val)
	case int:
		return encodeTLVFloat64(float64(val))
	case int64:
		return encodeTLVFloat64(float64(val))
	case float32:
		return encodeTLVFloat64(float64(val))
	case string:
		return encodeTLVString(val)
	case []interface{}:
		out := []byte{tlvArray}
		out = appendUint32(out, uint32(len(val)))
		for _, elem := range val {
			out = append(out, encodeTLVValue(elem)...)
		}
		return out
	case Object:
		out := []byte{tlvObject}
		out = appendUint32(out, uint32(len(val)))
		for key, elem := range val {
			out = append(out, encodeTLVString(key)...)
			out = append(out, encodeTLVValue(elem)...)
		}
		return out
	default:
		// Unsupported native type: encoded as null rather than rejected,
		// so the value is lost on the wire.
		return encodeTLVValue(nil)
	}
}

func encodeTLVFloat64(val float64) []byte {
	b := make([]byte, 9)
	b[0] = tlvFloat64
	binary.LittleEndian.PutUint64(b[1:], math.Float64bits(val))
	return b
}

func encodeTLVObject(obj Object) []byte {
	v := encodeTLVValue(Object(obj))
	return v[1:] // strip the redundant leading tlvObject tag; the header already says "document".
}

func encodeTLVString(s string) []byte {
	out := []byte{tlvString}
	out = appendUint32(out, uint32(len(s)))
	return append(out, s...)
}

func appendUint32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func decodeTLVValue(b []byte) (interface{}, []byte, error) {
	if len(b) < 1 {
		return nil, nil, errors.New("jsonvalue: truncated TLV value")
	}
	tag, rest := b[0], b[1:]
	switch tag {
	case tlvNull:
		return nil, rest, nil
	case tlvFalse:
		return false, rest, nil
	case tlvTrue:
		return true, rest, nil
	case tlvFloat64:
		if len(rest) < 8 {
			return nil, nil, errors.New("jsonvalue: truncated TLV float64")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(rest[:8])), rest[8:], nil
	case tlvString:
		return decodeTLVString(rest)
	case tlvArray:
		n, rest, err := readUint32(rest)
		if err != nil {
			return nil, nil, err
		}
		arr := make([]interface{}, 0, n)
		for i := uint32(0); i < n; i++ {
			var v interface{}
			v, rest, err = decodeTLVValue(rest)
			if err != nil {
				return nil, nil, err
			}
			arr = append(arr, v)
		}
		return arr, rest, nil
	case tlvObject:
		obj, rest, err := decodeTLVObjectBody(rest)
		return obj, rest, err
	default:
		return nil, nil, errors.Errorf("jsonvalue: unknown TLV tag %d", tag)
	}
}

// decodeTLVObjectBody reads the count-prefixed key/value sequence that
// makes up a document body, the mirror image of encodeTLVObject (which
// strips the redundant top-level tlvObject tag before returning).
func decodeTLVObjectBody(b []byte) (Object, []byte, error) {
	n, rest, err := readUint32(b)
	if err != nil {
		return nil, nil, err
	}
	obj := make(Object, n)
	for i := uint32(0); i < n; i++ {
		var key string
		key, rest, err = decodeTLVString(rest)
		if err != nil {
			return nil, nil, err
		}
		var v interface{}
		v, rest, err = decodeTLVValue(rest)
		if err != nil {
			return nil, nil, err
		}
		obj[key] = v
	}
	return obj, rest, nil
}

func decodeTLVString(b []byte) (string, []byte, error) {
	n, rest, err := readUint32(b)
	if err != nil {
		return "", nil, err
	}
	if uint32(len(rest)) < n {
		return "", nil, errors.New("jsonvalue: truncated TLV string")
	}
	return string(rest[:n]), rest[n:], nil
}

func readUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errors.New("jsonvalue: truncated TLV length")
	}
	return binary.LittleEndian.Uint32(b[:4]), b[4:], nil
}
