package query

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/helixdata/mdkit/record"
)

func aggregate(records []record.Record, agg Aggregation) AggregationResult {
	res := AggregationResult{Type: agg.Type, Field: agg.Field}
	switch agg.Type {
	case AggCount:
		res.Value = float64(len(records))
	case AggSum:
		res.Value = sumField(records, agg.Field).InexactFloat64()
	case AggAvg:
		if len(records) == 0 {
			res.Value = 0
			break
		}
		sum := sumField(records, agg.Field)
		res.Value = sum.Div(decimal.NewFromInt(int64(len(records)))).InexactFloat64()
	case AggMin:
		res.Value = extremum(records, agg.Field, false)
	case AggMax:
		res.Value = extremum(records, agg.Field, true)
	case AggDistinct:
		res.Values = distinctValues(records, agg.Field)
	case AggGroup:
		res.Groups = groupBy(records, agg.GroupBy)
	}
	return res
}

// sumField accumulates in decimal so float artifacts such as
// 0.1+0.2 != 0.3 do not leak into totals.
func sumField(records []record.Record, field string) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		v, ok := r.Value(field)
		if !ok {
			continue
		}
		d, ok := toDecimal(v)
		if !ok {
			continue
		}
		sum = sum.Add(d)
	}
	return sum
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case int32:
		return decimal.NewFromInt32(t), true
	case uint64:
		return decimal.NewFromUint64(t), true
	case uint32:
		return decimal.NewFromInt(int64(t)), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func extremum(records []record.Record, field string, max bool) float64 {
	best := math.Inf(1)
	if max {
		best = math.Inf(-1)
	}
	for _, r := range records {
		v, ok := r.Value(field)
		if !ok {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		if max && f > best || !max && f < best {
			best = f
		}
	}
	return best
}

// distinctValues keeps first-seen order; records missing the field are
// skipped rather than contributing a nil entry.
func distinctValues(records []record.Record, field string) []any {
	seen := make(map[string]struct{})
	out := make([]any, 0)
	for _, r := range records {
		v, ok := r.Value(field)
		if !ok {
			continue
		}
		k := distinctKey(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// distinctKey folds numerically equal values (int 1, float64 1.0) into one
// bucket while keeping them apart from the string "1".
func distinctKey(v any) string {
	if f, ok := numeric(v); ok {
		return "n:" + record.String(f)
	}
	if s, ok := v.(string); ok {
		return "s:" + s
	}
	return "~" + record.String(v)
}

func groupBy(records []record.Record, field string) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, r := range records {
		v, _ := r.Value(field)
		k := distinctKey(v)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: v})
		}
		groups[i].Count++
		groups[i].Items = append(groups[i].Items, r)
	}
	return groups
}
