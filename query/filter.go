package query

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/helixdata/mdkit/record"
)

// compiledFilter carries a filter with its regex compiled once per
// execution. A malformed pattern fails the condition for every record
// instead of erroring the engine.
type compiledFilter struct {
	Filter
	re    *regexp.Regexp
	reBad bool
}

func compileFilters(filters []Filter) []compiledFilter {
	out := make([]compiledFilter, len(filters))
	for i, f := range filters {
		cf := compiledFilter{Filter: f}
		if f.Operator == OpRegex {
			pattern := record.String(f.Value)
			if !f.CaseSensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				cf.reBad = true
			} else {
				cf.re = re
			}
		}
		out[i] = cf
	}
	return out
}

func applyFilters(records []record.Record, filters []Filter) []record.Record {
	compiled := compileFilters(filters)
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		matched := true
		for i := range compiled {
			if !matches(r, &compiled[i]) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, r)
		}
	}
	return out
}

func matches(r record.Record, cf *compiledFilter) bool {
	fieldVal, present := r.Value(cf.Field)
	if !present {
		// A missing field is "not equal" and "not in"; every other
		// operator has nothing to compare against.
		return cf.Operator == OpNe || cf.Operator == OpNin
	}

	switch cf.Operator {
	case OpEq:
		return equalValues(fieldVal, cf.Value)
	case OpNe:
		return !equalValues(fieldVal, cf.Value)
	case OpGt:
		c, ok := compareOrdered(fieldVal, cf.Value)
		return ok && c > 0
	case OpGte:
		c, ok := compareOrdered(fieldVal, cf.Value)
		return ok && c >= 0
	case OpLt:
		c, ok := compareOrdered(fieldVal, cf.Value)
		return ok && c < 0
	case OpLte:
		c, ok := compareOrdered(fieldVal, cf.Value)
		return ok && c <= 0
	case OpIn:
		items, ok := asSlice(cf.Value)
		if !ok {
			return false
		}
		return containsValue(items, fieldVal)
	case OpNin:
		items, ok := asSlice(cf.Value)
		if !ok {
			return false
		}
		return !containsValue(items, fieldVal)
	case OpContains:
		return stringOp(fieldVal, cf.Value, cf.CaseSensitive, strings.Contains)
	case OpStartsWith:
		return stringOp(fieldVal, cf.Value, cf.CaseSensitive, strings.HasPrefix)
	case OpEndsWith:
		return stringOp(fieldVal, cf.Value, cf.CaseSensitive, strings.HasSuffix)
	case OpRegex:
		if cf.reBad {
			return false
		}
		return cf.re.MatchString(record.String(fieldVal))
	case OpBetween:
		bounds, ok := asSlice(cf.Value)
		if !ok || len(bounds) != 2 {
			return false
		}
		lo, okLo := compareOrdered(fieldVal, bounds[0])
		hi, okHi := compareOrdered(fieldVal, bounds[1])
		// inclusive on both ends
		return okLo && okHi && lo >= 0 && hi <= 0
	default:
		return false
	}
}

func stringOp(fieldVal, condVal any, caseSensitive bool, op func(s, sub string) bool) bool {
	s := record.String(fieldVal)
	sub := record.String(condVal)
	if !caseSensitive {
		s = strings.ToLower(s)
		sub = strings.ToLower(sub)
	}
	return op(s, sub)
}

func containsValue(items []any, v any) bool {
	for _, item := range items {
		if equalValues(v, item) {
			return true
		}
	}
	return false
}

// equalValues is numeric-aware across Go numeric types (a JSON-decoded 1
// equals a literal int 1) and falls back to deep equality elsewhere.
// Numeric strings do not equal numbers.
func equalValues(a, b any) bool {
	if an, ok := numeric(a); ok {
		if bn, ok := numeric(b); ok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareOrdered compares for the ordering operators: numerically when both
// sides coerce to numbers (numeric strings included), lexically when both
// are strings, otherwise not comparable.
func compareOrdered(fieldVal, condVal any) (int, bool) {
	fn, fok := toFloat(fieldVal)
	cn, cok := toFloat(condVal)
	if fok && cok {
		switch {
		case fn < cn:
			return -1, true
		case fn > cn:
			return 1, true
		}
		return 0, true
	}
	fs, fStr := fieldVal.(string)
	cs, cStr := condVal.(string)
	if fStr && cStr {
		return strings.Compare(fs, cs), true
	}
	return 0, false
}

// numeric reports the float64 form of a Go numeric value; strings and
// booleans are not numeric here.
func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case uint32:
		return float64(t), true
	default:
		return 0, false
	}
}

// toFloat extends numeric with parseable numeric strings
func toFloat(v any) (float64, bool) {
	if f, ok := numeric(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// asSlice normalizes any slice or array value to []any
func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
