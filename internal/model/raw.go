package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned when a payload is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// DecodeRaw decodes one JSON object. Numbers stay json.Number so amounts and
// ids keep their exact text.
func DecodeRaw(data []byte) (Raw, error) {
	var v any
	if err := decode(data, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// DecodeRawBatch accepts a single object or an array of objects.
func DecodeRawBatch(data []byte) ([]Raw, error) {
	var v any
	if err := decode(data, &v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case map[string]any:
		return []Raw{x}, nil
	case []any:
		out := make([]Raw, 0, len(x))
		for i, el := range x {
			obj, ok := el.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("element %d: %w", i, ErrNotObject)
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, ErrNotObject
	}
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("decode json: trailing data after value")
	}
	return nil
}
