package tabular

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ritzau/link-analyzer/pkg/model"
)

// object is a decoded JSON object that remembers its key order.
type object struct {
	keys   []string
	values map[string]any
}

var errNotObjects = errors.New("not an array of objects")

// parseJSON accepts a top-level array of objects, or an object whose first
// array-of-objects property (in document order) holds the table. Columns
// are the keys of the first element.
func parseJSON(ctx context.Context, data []byte, o *options) ([]string, []model.Row, error) {
	items, err := findObjects(data)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, ErrTooFewRows
	}

	columns := items[0].keys
	b := newRowBuilder(ctx, o, len(items))
	for _, item := range items {
		row := make(model.Row, len(columns))
		for _, col := range columns {
			row[col] = model.FromAny(item.values[col])
		}
		if err := b.add(row); err != nil {
			return nil, nil, err
		}
	}
	rows, err := b.finish()
	if err != nil {
		return nil, nil, err
	}
	return columns, rows, nil
}

func findObjects(data []byte) ([]object, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidJSONShape)
	}

	switch data[0] {
	case '[':
		items, err := decodeObjects(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSONShape, err)
		}
		return items, nil
	case '{':
		root, err := decodeObject(newDecoder(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSONShape, err)
		}
		for _, key := range root.keys {
			raw, ok := root.values[key].(json.RawMessage)
			if !ok || len(raw) == 0 || raw[0] != '[' {
				continue
			}
			items, err := decodeObjects(raw)
			if err == nil && len(items) > 0 {
				return items, nil
			}
		}
	}
	return nil, ErrInvalidJSONShape
}

func newDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec
}

// decodeObjects decodes an array whose every element is an object.
func decodeObjects(data []byte) ([]object, error) {
	dec := newDecoder(data)
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var items []object
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, errNotObjects
		}
		obj, err := decodeObject(newDecoder(raw))
		if err != nil {
			return nil, err
		}
		obj.scalarize()
		items = append(items, obj)
	}
	return items, expectDelim(dec, ']')
}

// decodeObject reads one object, keeping values as json.RawMessage.
func decodeObject(dec *json.Decoder) (object, error) {
	obj := object{values: make(map[string]any)}
	if err := expectDelim(dec, '{'); err != nil {
		return obj, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return obj, err
		}
		key, ok := tok.(string)
		if !ok {
			return obj, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return obj, err
		}
		if _, dup := obj.values[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = raw
	}
	return obj, expectDelim(dec, '}')
}

// scalarize decodes the raw values of a row object.
func (o *object) scalarize() {
	for k, v := range o.values {
		raw, ok := v.(json.RawMessage)
		if !ok {
			continue
		}
		var decoded any
		if err := newDecoder(raw).Decode(&decoded); err != nil && err != io.EOF {
			decoded = string(raw)
		}
		o.values[k] = decoded
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
