package query

import "fmt"

var knownOperators = map[Operator]struct{}{
	OpEq: {}, OpNe: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
	OpIn: {}, OpNin: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {},
	OpRegex: {}, OpBetween: {},
}

var knownAggregations = map[AggregationType]struct{}{
	AggCount: {}, AggSum: {}, AggAvg: {}, AggMin: {}, AggMax: {},
	AggDistinct: {}, AggGroup: {},
}

// Validate checks Options for structural problems before execution. It
// reports problems as messages rather than failing, so callers can collect
// everything wrong with a request in one pass.
func Validate(opts Options) Validation {
	v := Validation{Valid: true}

	for i, f := range opts.Filters {
		if f.Field == "" {
			v.add("filter %d: field is required", i)
		}
		if f.Operator == "" {
			v.add("filter %d: operator is required", i)
		} else if _, ok := knownOperators[f.Operator]; !ok {
			v.add("filter %d: unknown operator %q", i, f.Operator)
		}
	}

	if p := opts.Pagination; p != nil {
		if p.Page < 1 {
			v.add("pagination: page must be >= 1, got %d", p.Page)
		}
		if p.PageSize < 1 {
			v.add("pagination: pageSize must be >= 1, got %d", p.PageSize)
		}
	}

	if a := opts.Aggregation; a != nil {
		if _, ok := knownAggregations[a.Type]; !ok {
			v.add("aggregation: unknown type %q", a.Type)
		}
		if a.Field == "" {
			v.add("aggregation: field is required")
		}
		if a.Type == AggGroup && a.GroupBy == "" {
			v.add("aggregation: group requires groupBy")
		}
	}

	return v
}

func (v *Validation) add(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
