package query

import "github.com/faktum-db/faktum/fact"

// Binding maps variable names to the value they are currently bound
// to within one candidate solution.
type Binding map[string]fact.Value

// Clone returns an independent copy of b.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Equal reports whether two bindings agree on every variable either
// carries (used for relation deduplication, which is set-based and
// order-insensitive).
func (b Binding) Equal(other Binding) bool {
	if len(b) != len(other) {
		return false
	}
	for k, v := range b {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Relation is an unordered collection of bindings sharing the same
// variable names (its "shape"). Tuples is appended to directly and may
// hold duplicates; project, Or and unionRelations deduplicate their
// results.
type Relation struct {
	Vars   []string
	Tuples []Binding
}

// unit returns the one-tuple, zero-variable relation that And starts
// folding from: conjoining it with anything yields that thing back.
func unit() Relation {
	return Relation{Vars: nil, Tuples: []Binding{{}}}
}

// empty returns the relation with no solutions at all, the result of
// a pattern or rule call that matches nothing.
func empty(vars []string) Relation {
	return Relation{Vars: vars, Tuples: nil}
}

func containsVar(vars []string, name string) bool {
	for _, v := range vars {
		if v == name {
			return true
		}
	}
	return false
}

func unionVars(a, b []string) []string {
	out := append([]string{}, a...)
	for _, v := range b {
		if !containsVar(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// join combines r and s by natural join on the variables they share:
// every pair of tuples whose shared variables agree is merged into
// one tuple over the union of both relations' variables.
func join(r, s Relation) Relation {
	shared := make([]string, 0)
	for _, v := range r.Vars {
		if containsVar(s.Vars, v) {
			shared = append(shared, v)
		}
	}
	out := Relation{Vars: unionVars(r.Vars, s.Vars)}
	for _, rt := range r.Tuples {
		for _, st := range s.Tuples {
			agree := true
			for _, v := range shared {
				if !rt[v].Equal(st[v]) {
					agree = false
					break
				}
			}
			if !agree {
				continue
			}
			merged := rt.Clone()
			for k, v := range st {
				merged[k] = v
			}
			out.Tuples = append(out.Tuples, merged)
		}
	}
	return out
}

// project restricts every tuple in r to vars, then deduplicates.
func project(r Relation, vars []string) Relation {
	out := Relation{Vars: vars}
	seen := make([]Binding, 0, len(r.Tuples))
	for _, t := range r.Tuples {
		nt := make(Binding, len(vars))
		for _, v := range vars {
			if val, ok := t[v]; ok {
				nt[v] = val
			}
		}
		dup := false
		for _, s := range seen {
			if nt.Equal(s) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, nt)
		out.Tuples = append(out.Tuples, nt)
	}
	return out
}

// boundPositions counts how many of a pattern's E/A/V terms are
// already bound (either a Const, or a Var present in vars) -- used
// both for index selection and for join ordering by descending bound
// count.
func boundPositions(terms []Term, vars []string) int {
	n := 0
	for _, t := range terms {
		switch {
		case t.IsConst():
			n++
		case t.IsVar() && containsVar(vars, t.Name()):
			n++
		}
	}
	return n
}
