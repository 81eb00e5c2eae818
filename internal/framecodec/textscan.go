package framecodec

import "encoding/binary"

// scanText implements the brace-depth, string-aware scanner of spec
// §4.1.2, a direct translation of the original JsonBuffer::scanUtf loop
// (original_source/src/jsonbuffer.cpp) to Go, generalised over the three
// text code-unit widths (1 byte for Utf8, 2 bytes big/little endian for
// Utf16BE/Utf16LE). The cursor is persistent across calls so scanning
// resumes exactly where the previous call left off.
func (d *Decoder) scanText() (bool, error) {
	switch d.format {
	case Utf8:
		for d.cursor < len(d.buf) {
			idx := d.cursor
			c := d.buf[idx]
			d.cursor++
			if done, err := d.stepText(c, idx); err != nil {
				return false, err
			} else if done {
				d.messageAvailable = true
				return true, nil
			}
		}
	case Utf16BE:
		for d.cursor*2+2 <= len(d.buf) {
			idx := d.cursor
			word := binary.BigEndian.Uint16(d.buf[idx*2 : idx*2+2])
			d.cursor++
			c := byte(word)
			if word > 0x7f {
				c = 0 // non-ASCII code units are never structural
			}
			if done, err := d.stepText(c, idx); err != nil {
				return false, err
			} else if done {
				d.messageAvailable = true
				return true, nil
			}
		}
	case Utf16LE:
		for d.cursor*2+2 <= len(d.buf) {
			idx := d.cursor
			word := binary.LittleEndian.Uint16(d.buf[idx*2 : idx*2+2])
			d.cursor++
			c := byte(word)
			if word > 0x7f {
				c = 0 // non-ASCII code units are never structural
			}
			if done, err := d.stepText(c, idx); err != nil {
				return false, err
			} else if done {
				d.messageAvailable = true
				return true, nil
			}
		}
	}
	return false, nil
}

// stepText advances the scanner by one code unit c, found at code-unit
// offset idx. It returns done=true once a complete top-level object has
// just been closed (d.cursor, set by the caller, already points one past
// it). The three text framings are ASCII-safe outside of strings, so
// only ASCII code units need to be recognised: scanText passes a UTF-16
// unit above 0x7F as 0, which no state treats as structural — see spec
// §4.1.2's rationale.
func (d *Decoder) stepText(c byte, idx int) (done bool, err error) {
	switch d.state {
	case parseNormal:
		switch c {
		case '{':
			if d.depth == 0 {
				d.frameStart = idx
			}
			d.depth++
		case '}':
			if d.depth == 0 {
				d.fatal = ErrMalformedFrame
				return false, d.fatal
			}
			d.depth--
			if d.depth == 0 {
				return true, nil
			}
		case '"':
			d.state = parseInString
		}
	case parseInString:
		switch c {
		case '"':
			d.state = parseNormal
		case '\\':
			d.state = parseInEscape
		}
	case parseInEscape:
		d.state = parseInString
	}
	return false, nil
}

// utf16ToUtf8 transcodes a big- or little-endian UTF-16 byte range to
// UTF-8, for handing off to the JSON-value codec's text decoder (spec
// §4.1.2: "extracted bytes are transcoded to UTF-8").
func utf16ToUtf8(b []byte, order binary.ByteOrder) []byte {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = order.Uint16(b[i*2 : i*2+2])
	}
	runes := decodeUTF16(units)
	return []byte(string(runes))
}

// decodeUTF16 decodes a sequence of UTF-16 code units into runes,
// handling surrogate pairs.
func decodeUTF16(units []uint16) []rune {
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			r := (rune(u-0xD800) << 10) | rune(units[i+1]-0xDC00)
			out = append(out, r+0x10000)
			i++
		default:
			out = append(out, rune(u))
		}
	}
	return out
}
