package query

import (
	"sort"
	"strings"
	"time"

	"github.com/helixdata/mdkit/record"
)

// Execute runs the query pipeline over records. Stage order is fixed:
// filter, search, filtered-count capture, aggregation, sort, pagination.
// The input slice is never mutated; repeated calls with the same input
// return identical data and counts (execution time aside).
func Execute(records []record.Record, opts Options) Result {
	start := time.Now()
	res := Result{TotalCount: len(records)}

	working := records
	if len(opts.Filters) > 0 {
		working = applyFilters(working, opts.Filters)
	}
	if opts.Search != nil && opts.Search.Query != "" {
		working = applySearch(working, *opts.Search)
	}

	// Filtered count is fixed before aggregation and pagination
	res.FilteredCount = len(working)

	if opts.Aggregation != nil {
		agg := aggregate(working, *opts.Aggregation)
		res.Aggregation = &agg
	}

	if len(opts.Sort) > 0 {
		working = sortRecords(working, opts.Sort)
	}

	if opts.Pagination != nil {
		var page, size int
		var hasNext bool
		working, page, size, hasNext = paginate(working, *opts.Pagination, res.FilteredCount)
		res.Page = &page
		res.PageSize = &size
		res.HasNextPage = &hasNext
	}

	res.Data = working
	if opts.IncludeStats {
		res.Stats = &Stats{
			TotalRecords:    res.TotalCount,
			FilteredRecords: res.FilteredCount,
			FiltersApplied:  len(opts.Filters),
			SearchApplied:   opts.Search != nil && opts.Search.Query != "",
			SortApplied:     len(opts.Sort) > 0,
			Aggregated:      opts.Aggregation != nil,
		}
	}
	res.ExecutionTime = time.Since(start)
	return res
}

func applySearch(records []record.Record, s Search) []record.Record {
	needle := s.Query
	if !s.CaseSensitive {
		needle = strings.ToLower(needle)
	}
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if searchMatch(r, s, needle) {
			out = append(out, r)
		}
	}
	return out
}

// searchMatch tests one record against a pre-lowered needle
func searchMatch(r record.Record, s Search, needle string) bool {
	if len(s.Fields) > 0 {
		for _, field := range s.Fields {
			v, ok := r.Value(field)
			if !ok {
				continue
			}
			if valueContains(v, needle, s.CaseSensitive) {
				return true
			}
		}
		return false
	}
	for _, v := range r {
		if valueContains(v, needle, s.CaseSensitive) {
			return true
		}
	}
	return false
}

func valueContains(v any, needle string, caseSensitive bool) bool {
	haystack := record.String(v)
	if !caseSensitive {
		haystack = strings.ToLower(haystack)
	}
	return strings.Contains(haystack, needle)
}

// sortRecords returns a stably sorted copy; ties on one key fall through to
// the next, and full ties preserve the input order.
func sortRecords(in []record.Record, keys []SortKey) []record.Record {
	out := make([]record.Record, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			av, _ := out[i].Value(k.Field)
			bv, _ := out[j].Value(k.Field)
			c := compareForSort(av, bv)
			if c == 0 {
				continue
			}
			if k.Direction == Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

// compareForSort imposes a total order: numbers (and numeric strings)
// numerically, then strings lexically, missing values last, anything else
// by canonical string form.
func compareForSort(a, b any) int {
	an, aok := toFloat(a)
	bn, bok := toFloat(b)
	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs)
	}
	return strings.Compare(record.String(a), record.String(b))
}

// paginate slices one 1-based page out of the filtered set. Page is clamped
// to >= 1; a non-positive size means the whole filtered set. HasNextPage is
// derived from filteredCount, not the unfiltered total.
func paginate(in []record.Record, p Pagination, filteredCount int) ([]record.Record, int, int, bool) {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PageSize
	if size <= 0 {
		size = filteredCount
	}

	start := (page - 1) * size
	if start > len(in) {
		start = len(in)
	}
	end := start + size
	if end > len(in) {
		end = len(in)
	}

	hasNext := page*size < filteredCount
	return in[start:end], page, size, hasNext
}
