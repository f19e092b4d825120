package record

import (
	"errors"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned when the input is not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNotObject is returned when a record is decoded from a non-object.
	ErrNotObject = errors.New("JSON value is not an object")
)

// Parse decodes a JSON object into a Record, keeping the document's field
// order.
func Parse(data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, ErrNotObject
	}
	return decodeObject(res), nil
}

// ParseString is Parse for strings.
func ParseString(s string) (*Record, error) {
	return Parse([]byte(s))
}

// ParseValue decodes any JSON value.
func ParseValue(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, ErrInvalidJSON
	}
	return decode(gjson.ParseBytes(data)), nil
}

func decode(res gjson.Result) Value {
	switch res.Type {
	case gjson.Null:
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(res.Raw)
	case gjson.String:
		return String(res.Str)
	case gjson.JSON:
		if res.IsArray() {
			items := []Value{}
			res.ForEach(func(_, item gjson.Result) bool {
				items = append(items, decode(item))
				return true
			})
			return List(items...)
		}
		return Object(decodeObject(res))
	default:
		return Null()
	}
}

func decodeObject(res gjson.Result) *Record {
	out := New()
	res.ForEach(func(key, item gjson.Result) bool {
		out.Set(key.Str, decode(item))
		return true
	})
	return out
}
