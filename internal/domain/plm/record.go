package plm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is a PLM object (part, BOM, catalog entry...) whose keys keep the
// order the backend sent them in.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

func NewRecord(fields ...Field) *Record {
	r := &Record{fields: orderedmap.New[string, any]()}
	for _, f := range fields {
		r.fields.Set(f.Key, f.Value)
	}
	return r
}

// Set adds or replaces a key. Replacing keeps the original position.
func (r *Record) Set(key string, value any) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
	r.fields.Set(key, value)
}

func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// GetString returns the value of key when it is a non-empty string or number.
func (r *Record) GetString(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, val != ""
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}

func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Fields returns the pairs in order.
func (r *Record) Fields() []Field {
	if r.Len() == 0 {
		return nil
	}
	out := make([]Field, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Field{Key: pair.Key, Value: pair.Value})
	}
	return out
}

func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

func (r *Record) UnmarshalJSON(data []byte) error {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if dataType != jsonparser.Object {
		return fmt.Errorf("decode record: expected object, got %s", dataType)
	}
	decoded, err := decodeValue(value, dataType)
	if err != nil {
		return err
	}
	*r = *decoded.(*Record)
	return nil
}

// Decode parses a JSON document. Objects become *Record, arrays []any,
// numbers json.Number, and null nil.
func Decode(data []byte) (any, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return decodeValue(value, dataType)
}

// DecodeRecords parses a JSON array of objects.
func DecodeRecords(data []byte) ([]*Record, error) {
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	items, ok := decoded.([]any)
	if !ok {
		return nil, errors.New("decode records: expected array")
	}
	return RecordsOf(items)
}

// RecordsOf converts decoded array elements that must all be objects.
func RecordsOf(items []any) ([]*Record, error) {
	records := make([]*Record, 0, len(items))
	for i, item := range items {
		rec, ok := item.(*Record)
		if !ok {
			return nil, fmt.Errorf("decode records: element %d is not an object", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Object:
		rec := NewRecord()
		err := jsonparser.ObjectEach(value, func(key []byte, raw []byte, vt jsonparser.ValueType, _ int) error {
			v, err := decodeValue(raw, vt)
			if err != nil {
				return err
			}
			rec.Set(string(key), v)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("decode object: %w", err)
		}
		return rec, nil
	case jsonparser.Array:
		items := []any{}
		var firstErr error
		_, err := jsonparser.ArrayEach(value, func(raw []byte, vt jsonparser.ValueType, _ int, err error) {
			if firstErr != nil {
				return
			}
			if err != nil {
				firstErr = err
				return
			}
			v, err := decodeValue(raw, vt)
			if err != nil {
				firstErr = err
				return
			}
			items = append(items, v)
		})
		if err == nil {
			err = firstErr
		}
		if err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return items, nil
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return json.Number(string(value)), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("decode: unsupported value %q", value)
	}
}
