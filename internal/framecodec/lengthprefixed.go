package framecodec

import "encoding/binary"

// scanLengthPrefixed implements the Bson/CompactBinary framing of spec
// §4.1.3: a frame is available once the buffer holds at least
// headerLen bytes (enough to read the length field) and its full
// declared size. lengthOffset is the byte offset of the 4-byte
// little-endian length field; sizeBase is added to the declared length
// to get the total frame size (4 for Bson, 8 for CompactBinary).
func (d *Decoder) scanLengthPrefixed(headerLen, sizeBase int) (bool, error) {
	if len(d.buf) < headerLen {
		return false, nil
	}

	lengthOffset := headerLen - 4
	length := int32(binary.LittleEndian.Uint32(d.buf[lengthOffset : lengthOffset+4]))
	if length < 0 {
		d.fatal = ErrMalformedFrame
		return false, d.fatal
	}

	total := int(length) + sizeBase
	if len(d.buf) < total {
		return false, nil
	}

	d.messageSize = total
	d.messageAvailable = true
	return true, nil
}
