package query

import (
	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/index"
)

type indexChoice uint8

const (
	idxEAVT indexChoice = iota
	idxAEVT
	idxAVET
	idxVAET
	idxScan
)

func valueAsEntity(v fact.Value) (fact.EntityID, bool) {
	if ref, ok := v.AsRef(); ok {
		return ref, true
	}
	if n, ok := v.AsInt(); ok {
		return fact.EntityID(n), true
	}
	return 0, false
}

func valueAsAttr(v fact.Value) (fact.Attribute, bool) {
	if kw, ok := v.AsKeyword(); ok {
		return fact.Attribute(kw), true
	}
	if s, ok := v.AsString(); ok {
		return fact.Attribute(s), true
	}
	return "", false
}

func resolveEntityTerm(t Term, binding Binding) (fact.EntityID, bool) {
	switch {
	case t.IsConst():
		return valueAsEntity(t.value)
	case t.IsVar():
		if v, ok := binding[t.name]; ok {
			return valueAsEntity(v)
		}
	}
	return 0, false
}

func resolveAttrTerm(t Term, binding Binding) (fact.Attribute, bool) {
	switch {
	case t.IsConst():
		return valueAsAttr(t.value)
	case t.IsVar():
		if v, ok := binding[t.name]; ok {
			return valueAsAttr(v)
		}
	}
	return "", false
}

func resolveValueTerm(t Term, binding Binding) (fact.Value, bool) {
	switch {
	case t.IsConst():
		return t.value, true
	case t.IsVar():
		if v, ok := binding[t.name]; ok {
			return v, true
		}
	}
	return fact.Value{}, false
}

// selectIndex picks which of the four orderings best answers pat
// given what binding already fixes, mirroring the priority a
// reference Datalog storage layer uses: a bound entity is the most
// selective (EAVT); failing that, a bound attribute plus value
// narrows to a single AVET range; a bound attribute alone still
// narrows AEVT to one attribute's slice; a bound ref value with no
// attribute falls back to VAET; otherwise there is nothing to seek on
// and EAVT is scanned in full.
func selectIndex(pat Pattern, binding Binding) indexChoice {
	_, eBound := resolveEntityTerm(pat.E, binding)
	_, aBound := resolveAttrTerm(pat.A, binding)
	vVal, vBound := resolveValueTerm(pat.V, binding)

	switch {
	case eBound:
		return idxEAVT
	case aBound && vBound:
		return idxAVET
	case aBound:
		return idxAEVT
	case vBound && vVal.IsRef():
		return idxVAET
	default:
		return idxScan
	}
}

// scanCandidates returns every datom that could possibly satisfy pat
// given binding, using the chosen index's lower-bound seek and early
// termination. It may return datoms that fail a constraint the index
// wasn't seeked on (e.g. EAVT doesn't filter on V); matchDatom applies
// the remaining checks.
func scanCandidates(ix *index.Indexes, pat Pattern, binding Binding) []fact.Datom {
	var out []fact.Datom
	switch selectIndex(pat, binding) {
	case idxEAVT:
		e, _ := resolveEntityTerm(pat.E, binding)
		ix.ScanEAVT(fact.Datom{E: e}, func(d fact.Datom) bool {
			if d.E != e {
				return false
			}
			out = append(out, d)
			return true
		})
	case idxAVET:
		a, _ := resolveAttrTerm(pat.A, binding)
		v, _ := resolveValueTerm(pat.V, binding)
		ix.ScanAVET(fact.Datom{A: a, V: v}, func(d fact.Datom) bool {
			if d.A != a || !d.V.Equal(v) {
				return false
			}
			out = append(out, d)
			return true
		})
	case idxAEVT:
		a, _ := resolveAttrTerm(pat.A, binding)
		ix.ScanAEVT(fact.Datom{A: a}, func(d fact.Datom) bool {
			if d.A != a {
				return false
			}
			out = append(out, d)
			return true
		})
	case idxVAET:
		v, _ := resolveValueTerm(pat.V, binding)
		ref, _ := v.AsRef()
		ix.ScanVAET(fact.Datom{V: v}, func(d fact.Datom) bool {
			dref, ok := d.V.AsRef()
			if !ok || dref != ref {
				return false
			}
			out = append(out, d)
			return true
		})
	default:
		ix.ScanEAVT(fact.Datom{}, func(d fact.Datom) bool {
			out = append(out, d)
			return true
		})
	}
	return out
}

func unifyEntityTerm(t Term, e fact.EntityID, binding Binding) bool {
	switch {
	case t.IsBlank():
		return true
	case t.IsConst():
		id, ok := valueAsEntity(t.value)
		return ok && id == e
	case t.IsVar():
		if bound, ok := binding[t.name]; ok {
			id, ok2 := valueAsEntity(bound)
			return ok2 && id == e
		}
		binding[t.name] = fact.RefValue(e)
		return true
	}
	return false
}

func unifyAttrTerm(t Term, a fact.Attribute, binding Binding) bool {
	switch {
	case t.IsBlank():
		return true
	case t.IsConst():
		name, ok := valueAsAttr(t.value)
		return ok && name == a
	case t.IsVar():
		if bound, ok := binding[t.name]; ok {
			name, ok2 := valueAsAttr(bound)
			return ok2 && name == a
		}
		binding[t.name] = fact.KeywordValue(string(a))
		return true
	}
	return false
}

func unifyValueTerm(t Term, v fact.Value, binding Binding) bool {
	switch {
	case t.IsBlank():
		return true
	case t.IsConst():
		return t.value.Equal(v)
	case t.IsVar():
		if bound, ok := binding[t.name]; ok {
			return bound.Equal(v)
		}
		binding[t.name] = v
		return true
	}
	return false
}

func unifyTxTerm(t Term, tx fact.TxID, binding Binding) bool {
	switch {
	case t.IsBlank():
		return true
	case t.IsConst():
		n, ok := t.value.AsInt()
		return ok && fact.TxID(n) == tx
	case t.IsVar():
		if bound, ok := binding[t.name]; ok {
			n, ok2 := bound.AsInt()
			return ok2 && fact.TxID(n) == tx
		}
		binding[t.name] = fact.IntValue(int64(tx))
		return true
	}
	return false
}

// matchDatom attempts to unify d against pat starting from parent,
// returning an extended copy on success.
func matchDatom(d fact.Datom, pat Pattern, parent Binding) (Binding, bool) {
	b := parent.Clone()
	if !unifyEntityTerm(pat.E, d.E, b) {
		return nil, false
	}
	if !unifyAttrTerm(pat.A, d.A, b) {
		return nil, false
	}
	if !unifyValueTerm(pat.V, d.V, b) {
		return nil, false
	}
	if !pat.Tx.IsBlank() && !unifyTxTerm(pat.Tx, d.Tx, b) {
		return nil, false
	}
	return b, true
}

func patternVars(pat Pattern) []string {
	var out []string
	for _, t := range []Term{pat.E, pat.A, pat.V, pat.Tx} {
		if t.IsVar() && !containsVar(out, t.Name()) {
			out = append(out, t.Name())
		}
	}
	return out
}

// executePattern joins rel against every datom matching pat for each
// of rel's existing tuples (a nested-loop join: correct, if not the
// fastest possible plan, and simple enough to reason about alongside
// selectIndex's per-tuple index choice).
func executePattern(ix *index.Indexes, pat Pattern, rel Relation) Relation {
	out := Relation{Vars: unionVars(rel.Vars, patternVars(pat))}
	if len(rel.Tuples) == 0 && len(rel.Vars) == 0 {
		rel = unit()
	}
	for _, t := range rel.Tuples {
		for _, d := range scanCandidates(ix, pat, t) {
			if nb, ok := matchDatom(d, pat, t); ok {
				out.Tuples = append(out.Tuples, nb)
			}
		}
	}
	return out
}
