package query

import (
	"github.com/shopspring/decimal"

	"github.com/faktum-db/faktum/fact"
)

// AggFn is one of the aggregate functions Aggregate can compute.
type AggFn uint8

const (
	AggCount AggFn = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// AggregateSpec names one aggregate to compute: Var is the source
// variable (ignored for AggCount) and As is the name the result is
// bound to in the output relation.
type AggregateSpec struct {
	Fn  AggFn
	Var string
	As  string
}

// Aggregate groups rel's tuples by groupBy (pass nil for a single,
// ungrouped result row) and computes every spec over each group. Sum
// and Avg accumulate through shopspring/decimal rather than plain
// float64 so that summing many values doesn't drift from repeated
// binary rounding; the result is still handed back as an int or float
// Value depending on whether any float operand was seen.
func Aggregate(rel Relation, groupBy []string, specs []AggregateSpec) Relation {
	type group struct {
		key    string
		keyRow Binding
		rows   []Binding
	}
	groups := make(map[string]*group)
	var order []string

	for _, t := range rel.Tuples {
		key := groupKey(t, groupBy)
		g, ok := groups[key]
		if !ok {
			keyRow := make(Binding, len(groupBy))
			for _, gv := range groupBy {
				keyRow[gv] = t[gv]
			}
			g = &group{key: key, keyRow: keyRow}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, t)
	}
	if len(order) == 0 {
		groups[""] = &group{keyRow: Binding{}}
		order = append(order, "")
	}

	outVars := append([]string{}, groupBy...)
	for _, s := range specs {
		outVars = append(outVars, s.As)
	}

	out := Relation{Vars: outVars}
	for _, k := range order {
		g := groups[k]
		row := g.keyRow.Clone()
		for _, s := range specs {
			row[s.As] = computeAgg(s, g.rows)
		}
		out.Tuples = append(out.Tuples, row)
	}
	return out
}

func groupKey(t Binding, groupBy []string) string {
	key := ""
	for _, g := range groupBy {
		key += g + "\x00" + t[g].String() + "\x01"
	}
	return key
}

func computeAgg(s AggregateSpec, rows []Binding) fact.Value {
	switch s.Fn {
	case AggCount:
		return fact.IntValue(int64(len(rows)))
	case AggSum:
		sum, isFloat, _ := decimalSum(rows, s.Var)
		if isFloat {
			f, _ := sum.Float64()
			return fact.FloatValue(f)
		}
		return fact.IntValue(sum.IntPart())
	case AggAvg:
		sum, _, count := decimalSum(rows, s.Var)
		if count == 0 {
			return fact.FloatValue(0)
		}
		avg := sum.Div(decimal.NewFromInt(int64(count)))
		f, _ := avg.Float64()
		return fact.FloatValue(f)
	case AggMin:
		return extreme(rows, s.Var, -1)
	case AggMax:
		return extreme(rows, s.Var, 1)
	default:
		return fact.Value{}
	}
}

// decimalSum sums varName across rows, skipping any row where the
// variable was never bound or holds a non-numeric value -- otherwise
// an unbound binding's zero fact.Value would read back as int 0 and
// silently join the total. count is how many rows actually
// contributed, which AggAvg divides by instead of len(rows).
func decimalSum(rows []Binding, varName string) (sum decimal.Decimal, isFloat bool, count int) {
	sum = decimal.Zero
	for _, r := range rows {
		v, ok := r[varName]
		if !ok {
			continue
		}
		if f, ok := v.AsFloat(); ok {
			sum = sum.Add(decimal.NewFromFloat(f))
			isFloat = true
			count++
			continue
		}
		if n, ok := v.AsInt(); ok {
			sum = sum.Add(decimal.NewFromInt(n))
			count++
		}
	}
	return sum, isFloat, count
}

// extreme returns the minimum (wantSign<0) or maximum (wantSign>0)
// value of varName across rows, using the universal value order.
// Rows where varName is unbound or non-numeric are skipped, the same
// as decimalSum.
func extreme(rows []Binding, varName string, wantSign int) fact.Value {
	var best fact.Value
	first := true
	for _, r := range rows {
		v, ok := r[varName]
		if !ok {
			continue
		}
		if _, isFloat := v.AsFloat(); !isFloat {
			if _, isInt := v.AsInt(); !isInt {
				continue
			}
		}
		if first {
			best = v
			first = false
			continue
		}
		c := v.Compare(best)
		if (wantSign < 0 && c < 0) || (wantSign > 0 && c > 0) {
			best = v
		}
	}
	return best
}
