// Package record defines the open, schema-agnostic record shape shared by
// the store, source, query and masterdata packages.
//
// A Record is a plain map of field names to values, typically produced by
// decoding a JSON object (numbers arrive as float64). Field access supports
// dot-path traversal into nested objects, so callers and the query engine
// can address "address.city" without knowing the concrete schema.
package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is a single data item within a table. It must contain the field
// named by the table's key path, whose value identifies the record within
// that table. Records have no identity outside their table.
type Record map[string]any

// Value resolves a dot-path against the record and reports whether every
// segment of the path existed. Intermediate segments must be objects
// (map[string]any or Record); anything else terminates the walk.
func (r Record) Value(path string) (any, bool) {
	if r == nil || path == "" {
		return nil, false
	}
	var current any = map[string]any(r)
	for _, segment := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[segment]
			if !ok {
				return nil, false
			}
			current = v
		case Record:
			v, ok := m[segment]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// Key returns the canonical string form of the field named by keyPath.
// The second return is false when the field is missing or nil; a record
// without its key cannot be stored or looked up.
func (r Record) Key(keyPath string) (string, bool) {
	v, ok := r.Value(keyPath)
	if !ok || v == nil {
		return "", false
	}
	return String(v), true
}

// Clone returns a shallow copy of the record. Nested objects are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String renders a field value in its canonical string form. Floats print
// without a trailing ".0" so a JSON-decoded 1 and a literal "1" produce the
// same key and the same index bucket.
func String(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
