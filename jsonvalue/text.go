package jsonvalue

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// decodeText parses canonical UTF-8 JSON text into an Object. The caller
// (internal/framecodec) has already transcoded UTF-16 input to UTF-8
// before calling this.
func decodeText(data []byte) (Object, error) {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrap(err, "jsonvalue: decode text")
	}
	return obj, nil
}

// encodeText renders obj as canonical UTF-8 JSON text.
func encodeText(obj Object) ([]byte, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.Wrap(err, "jsonvalue: encode text")
	}
	return b, nil
}
