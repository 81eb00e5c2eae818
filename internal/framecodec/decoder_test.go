package framecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanpm2001/jsonstream/jsonvalue"
)

func echoObject() jsonvalue.Object {
	return jsonvalue.Object{
		"text":   "Standard text",
		"number": float64(0),
		"int":    float64(100),
		"float":  100.0,
		"true":   true,
		"false":  false,
		"array":  []interface{}{"one", "two", "three"},
		"object": jsonvalue.Object{
			"item1": "This is item 1",
			"item2": "This is item 2",
		},
	}
}

func TestUTF8EchoScenario(t *testing.T) {
	raw := []byte(`{"text":"Standard text","number":0,"int":100,"float":100.0,"true":true,"false":false,"array":["one","two","three"],"object":{"item1":"This is item 1","item2":"This is item 2"}}`)

	d := NewDecoder()
	d.Append(raw)

	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	require.True(t, avail)
	assert.Equal(t, Utf8, d.Format())

	obj, err := d.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, echoObject(), obj)
	assert.Equal(t, 0, d.Len())
}

func TestFormatDetectionBsonPrefix(t *testing.T) {
	enc, err := jsonvalue.DefaultCodec.EncodeBSON(jsonvalue.Object{"k": 1.0})
	require.NoError(t, err)

	stream := append([]byte("bson"), enc...)

	d := NewDecoder()
	d.Append(stream)

	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	require.True(t, avail)
	assert.Equal(t, Bson, d.Format())

	obj, err := d.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Object{"k": 1.0}, obj)
	assert.Equal(t, 0, d.Len())
}

func TestSplitAcrossReadsCompactBinary(t *testing.T) {
	// Build a compact-binary frame whose exact byte size we control by
	// padding the string payload so the total frame is exactly 200 bytes.
	pad := ""
	for len(pad) < 171 {
		pad += "x"
	}
	obj := jsonvalue.Object{"pad": pad}

	enc, err := jsonvalue.DefaultCodec.EncodeCompactBinary(obj)
	require.NoError(t, err)
	require.Len(t, enc, 200)

	d := NewDecoder()

	chunks := [][]byte{enc[0:4], enc[4:104], enc[104:200]}

	d.Append(chunks[0])
	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	assert.False(t, avail)

	d.Append(chunks[1])
	avail, err = d.MessageAvailable()
	require.NoError(t, err)
	assert.False(t, avail)

	d.Append(chunks[2])
	avail, err = d.MessageAvailable()
	require.NoError(t, err)
	assert.True(t, avail)

	got, err := d.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, obj, got)
}

func TestIncrementalEquivalence(t *testing.T) {
	raw := []byte(`{"a":1}{"b":[1,2,3]}{"c":{"d":"e}f{g"}}`)

	whole := NewDecoder()
	whole.Append(raw)
	var wholeObjs []jsonvalue.Object
	for {
		avail, err := whole.MessageAvailable()
		require.NoError(t, err)
		if !avail {
			break
		}
		obj, err := whole.ReadMessage()
		require.NoError(t, err)
		wholeObjs = append(wholeObjs, obj)
	}

	chunked := NewDecoder()
	var chunkedObjs []jsonvalue.Object
	for i := 0; i < len(raw); i++ {
		chunked.Append(raw[i : i+1])
		for {
			avail, err := chunked.MessageAvailable()
			require.NoError(t, err)
			if !avail {
				break
			}
			obj, err := chunked.ReadMessage()
			require.NoError(t, err)
			chunkedObjs = append(chunkedObjs, obj)
		}
	}

	assert.Equal(t, wholeObjs, chunkedObjs)
	assert.Len(t, wholeObjs, 3)
}

func TestFormatStabilityIsNoOp(t *testing.T) {
	d := NewDecoder()
	d.Append([]byte(`{"a"`))
	_, err := d.MessageAvailable()
	require.NoError(t, err)
	require.Equal(t, Utf8, d.Format())

	// A further MessageAvailable call after more bytes arrive must not
	// re-run detection or change the format.
	d.Append([]byte(`:1}`))
	_, err = d.MessageAvailable()
	require.NoError(t, err)
	assert.Equal(t, Utf8, d.Format())
}

func TestBraceInString(t *testing.T) {
	d := NewDecoder()
	d.Append([]byte(`{"k":"a}b{c"}`))

	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	require.True(t, avail)

	obj, err := d.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Object{"k": "a}b{c"}, obj)
}

func TestMalformedFrameClosingBraceAtDepthZero(t *testing.T) {
	d := NewDecoder()
	// Four bytes, so format detection (Utf8) runs and the '}' is scanned.
	d.Append([]byte(`}   `))

	_, err := d.MessageAvailable()
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// Sticky: subsequent calls keep surfacing the same fatal error.
	_, err = d.MessageAvailable()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestAtEndDetectsUnbalancedBraces(t *testing.T) {
	d := NewDecoder()
	d.Append([]byte(`{"a":1`))

	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	require.False(t, avail)

	assert.ErrorIs(t, d.AtEnd(), ErrMalformedFrame)
}

func TestAtEndDetectsTruncatedLengthPrefixedFrame(t *testing.T) {
	enc, err := jsonvalue.DefaultCodec.EncodeCompactBinary(jsonvalue.Object{"k": 1.0})
	require.NoError(t, err)

	d := NewDecoder()
	d.Append(enc[:len(enc)-1])

	avail, merr := d.MessageAvailable()
	require.NoError(t, merr)
	require.False(t, avail)

	assert.ErrorIs(t, d.AtEnd(), ErrTruncatedFrame)
}

func TestAtEndCleanWhenIdle(t *testing.T) {
	d := NewDecoder()
	assert.NoError(t, d.AtEnd())
}

func TestDecodeFailureDropsFrameAndContinues(t *testing.T) {
	d := NewDecoder()
	// Well-framed (balanced braces) but not valid JSON inside.
	d.Append([]byte(`{not json}` + `{"ok":true}`))

	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	require.True(t, avail)

	_, err = d.ReadMessage()
	assert.ErrorIs(t, err, ErrDecodeFailure)

	avail, err = d.MessageAvailable()
	require.NoError(t, err)
	require.True(t, avail)

	obj, err := d.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Object{"ok": true}, obj)
}

func TestUTF16BEFraming(t *testing.T) {
	text := `{"k":"v"}`
	buf := make([]byte, 0, len(text)*2)
	for _, r := range text {
		buf = append(buf, 0, byte(r))
	}

	d := NewDecoder()
	d.Append(buf)

	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	require.True(t, avail)
	assert.Equal(t, Utf16BE, d.Format())

	obj, err := d.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Object{"k": "v"}, obj)
}

func TestUTF16LEFraming(t *testing.T) {
	text := `{"k":"v"}`
	buf := make([]byte, 0, len(text)*2)
	for _, r := range text {
		buf = append(buf, byte(r), 0)
	}

	d := NewDecoder()
	d.Append(buf)

	avail, err := d.MessageAvailable()
	require.NoError(t, err)
	require.True(t, avail)
	assert.Equal(t, Utf16LE, d.Format())

	obj, err := d.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Object{"k": "v"}, obj)
}

func TestEncoderRoundTripAllEncodableFormats(t *testing.T) {
	obj := echoObject()
	for _, format := range []Format{Utf8, CompactBinary, Bson} {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			enc := NewEncoder(format)
			wire, err := enc.Encode(obj)
			require.NoError(t, err)

			d := NewDecoder()
			d.Append(wire)
			avail, err := d.MessageAvailable()
			require.NoError(t, err)
			require.True(t, avail)
			assert.Equal(t, format, d.Format())

			got, err := d.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, obj, got)
		})
	}
}

func TestEncoderDefaultsToCompactBinary(t *testing.T) {
	enc := NewEncoder(Undefined)
	_, err := enc.Encode(jsonvalue.Object{"a": 1.0})
	require.NoError(t, err)
	assert.Equal(t, CompactBinary, enc.Format())
}

func TestEncoderRejectsReceiveOnlyFormats(t *testing.T) {
	for _, format := range []Format{Utf16BE, Utf16LE} {
		enc := NewEncoder(format)
		_, err := enc.Encode(jsonvalue.Object{"a": 1.0})
		assert.Error(t, err)
	}
}
