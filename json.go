package messagestore

import (
	"bytes"
	stdjson "encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// json is the jsoniter instance configured to be compatible with standard library
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage is a raw encoded JSON document, interchangeable with encoding/json.RawMessage.
type RawMessage = stdjson.RawMessage

var jsonNull = []byte("null")

// encodeJSON serializes v for a jsonb parameter. RawMessage and []byte values
// are sent as given after a validity check. A nil result means SQL NULL.
func encodeJSON(v interface{}) ([]byte, error) {
	var encoded []byte

	switch d := v.(type) {
	case nil:
		return nil, nil
	case RawMessage:
		encoded = d
	case []byte:
		encoded = d
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		encoded = b
	}

	if len(encoded) == 0 {
		return nil, nil
	}
	if !json.Valid(encoded) {
		return nil, errInvalidJSON
	}
	if isJSONNull(encoded) {
		return nil, nil
	}
	return encoded, nil
}

func isJSONNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), jsonNull)
}
