package scanning

import (
	"encoding/json"
	"strconv"
)

// Record is the nested extraction result returned by a model.
// Lookups never fail: absent or mistyped fields read as empty values.
type Record map[string]any

// String returns the value at path rendered as text, or "" when any
// segment is missing or is not an object.
func (r Record) String(path ...string) string {
	if len(path) == 0 {
		return ""
	}
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := asObject(cur)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	return scalarString(cur)
}

// List returns the object elements of the array at key. Non-object
// elements are dropped.
func (r Record) List(key string) []Record {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := asObject(item); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	}
	return nil, false
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}
