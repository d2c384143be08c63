package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StripNulls drops null-valued object keys at every depth, the server-side
// counterpart of a client dropping undefined fields. Array elements are kept
// so positions do not shift. The input must be a JSON object.
func StripNulls(raw []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return json.Marshal(stripValue(obj))
}

func stripValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if inner == nil {
				delete(t, k)
				continue
			}
			t[k] = stripValue(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = stripValue(inner)
		}
		return t
	default:
		return v
	}
}
