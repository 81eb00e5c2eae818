package jsonvalue

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// decodeBSON unmarshals a BSON document (the payload following the "bson"
// literal, starting with the document's own length field, see
// internal/framecodec) into an Object.
func decodeBSON(data []byte) (Object, error) {
	var obj Object
	if err := bson.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrap(err, "jsonvalue: decode bson")
	}
	return obj, nil
}

// encodeBSON renders obj as a BSON document (its own leading length field
// included), excluding the "bson" literal that internal/framecodec's
// encoder adds.
func encodeBSON(obj Object) ([]byte, error) {
	b, err := bson.Marshal(bson.M(obj))
	if err != nil {
		return nil, errors.Wrap(err, "jsonvalue: encode bson")
	}
	return b, nil
}
