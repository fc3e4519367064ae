/*
Package index maintains the four sorted datom orderings a database
needs to answer pattern queries without scanning: EAVT, AEVT, AVET,
and VAET. Each is a github.com/google/btree generic BTreeG ordered by
a different field permutation, giving lower-bound seek plus early
termination on every range query. A current-facts hash map keyed by
(entity, attribute, value) gives O(1) point lookups, including the
live datom a retraction removes.

Indexes is copy-on-write: Clone shares btree nodes (O(1) for the four
orderings) and copies only the current-facts map, so a Db can hand
out an immutable snapshot on every successful transaction without
copying the trees.

SEE ALSO:
  - fact: the Datom/Value types being ordered.
  - db: calls Insert/Remove while building the next generation.
  - query: calls the Scan* family chosen by index selection.
*/
package index

import (
	"github.com/google/btree"

	"github.com/faktum-db/faktum/fact"
)

const btreeDegree = 32

// eavtLess, aevtLess, avetLess, vaetLess order datoms by the field
// permutation each index is named for, breaking ties by the remaining
// fields in the same order so that every index yields a stable total
// order over all datoms (history indexes additionally compare Tx and
// Added so that multiple states of the same fact all have distinct
// keys).
func eavtLess(a, b fact.Datom) bool {
	if a.E != b.E {
		return a.E < b.E
	}
	if a.A != b.A {
		return a.A < b.A
	}
	if c := a.V.Compare(b.V); c != 0 {
		return c < 0
	}
	if a.Tx != b.Tx {
		return a.Tx < b.Tx
	}
	return !a.Added && b.Added
}

func aevtLess(a, b fact.Datom) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	if a.E != b.E {
		return a.E < b.E
	}
	if c := a.V.Compare(b.V); c != 0 {
		return c < 0
	}
	if a.Tx != b.Tx {
		return a.Tx < b.Tx
	}
	return !a.Added && b.Added
}

func avetLess(a, b fact.Datom) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	if c := a.V.Compare(b.V); c != 0 {
		return c < 0
	}
	if a.E != b.E {
		return a.E < b.E
	}
	if a.Tx != b.Tx {
		return a.Tx < b.Tx
	}
	return !a.Added && b.Added
}

func vaetLess(a, b fact.Datom) bool {
	av, _ := a.V.AsRef()
	bv, _ := b.V.AsRef()
	if av != bv {
		return av < bv
	}
	if a.A != b.A {
		return a.A < b.A
	}
	if a.E != b.E {
		return a.E < b.E
	}
	if a.Tx != b.Tx {
		return a.Tx < b.Tx
	}
	return !a.Added && b.Added
}

// Indexes is the four ordered containers plus the current-facts map,
// all sharing one generation. Zero value is not usable; call Empty.
type Indexes struct {
	eavt *btree.BTreeG[fact.Datom]
	aevt *btree.BTreeG[fact.Datom]
	avet *btree.BTreeG[fact.Datom]
	vaet *btree.BTreeG[fact.Datom]

	// current maps a fact's identity to its live (added=true) datom.
	// Entries are removed on retraction. Only installed for the
	// "current" generation; history generations pass nil.
	current map[fact.Key]fact.Datom
}

// Empty builds an empty set of indexes. trackCurrent controls whether
// the current-facts map is maintained; the history generation in
// db.Db does not need it and passes false to save the memory.
func Empty(trackCurrent bool) *Indexes {
	ix := &Indexes{
		eavt: btree.NewG(btreeDegree, eavtLess),
		aevt: btree.NewG(btreeDegree, aevtLess),
		avet: btree.NewG(btreeDegree, avetLess),
		vaet: btree.NewG(btreeDegree, vaetLess),
	}
	if trackCurrent {
		ix.current = make(map[fact.Key]fact.Datom)
	}
	return ix
}

// Clone returns a new generation sharing unmodified btree nodes with
// the receiver (O(1), copy-on-write) and a shallow copy of the
// current-facts map (O(current facts), unavoidable since maps are not
// copy-on-write in Go).
func (ix *Indexes) Clone() *Indexes {
	next := &Indexes{
		eavt: ix.eavt.Clone(),
		aevt: ix.aevt.Clone(),
		avet: ix.avet.Clone(),
		vaet: ix.vaet.Clone(),
	}
	if ix.current != nil {
		next.current = make(map[fact.Key]fact.Datom, len(ix.current))
		for k, v := range ix.current {
			next.current[k] = v
		}
	}
	return next
}

// Insert adds d to EAVT and AEVT, to AVET only when maintainAVET is
// true, and to VAET only when the value is a ref (callers pass true
// unconditionally for the history generation and consult schema for
// the current generation).
func (ix *Indexes) Insert(d fact.Datom, maintainAVET bool) {
	ix.eavt.ReplaceOrInsert(d)
	ix.aevt.ReplaceOrInsert(d)
	if maintainAVET {
		ix.avet.ReplaceOrInsert(d)
	}
	if d.V.IsRef() {
		ix.vaet.ReplaceOrInsert(d)
	}
	if ix.current != nil && d.Added {
		ix.current[d.Key()] = d
	}
}

// Remove deletes d from all four orderings it would have been filed
// under, and drops its current-facts entry if present.
func (ix *Indexes) Remove(d fact.Datom, maintainAVET bool) {
	ix.eavt.Delete(d)
	ix.aevt.Delete(d)
	if maintainAVET {
		ix.avet.Delete(d)
	}
	if d.V.IsRef() {
		ix.vaet.Delete(d)
	}
	if ix.current != nil {
		delete(ix.current, d.Key())
	}
}

// Current looks up the live datom for (e, a, v), if it currently holds.
func (ix *Indexes) Current(k fact.Key) (fact.Datom, bool) {
	if ix.current == nil {
		return fact.Datom{}, false
	}
	d, ok := ix.current[k]
	return d, ok
}

// Len reports how many datoms are filed in EAVT (the canonical count:
// every datom is always filed there).
func (ix *Indexes) Len() int { return ix.eavt.Len() }

// ScanEAVT iterates datoms in EAVT order starting from pivot
// (zero-value fields act as a wildcard lower bound), calling fn for
// each until it returns false or the index is exhausted.
func (ix *Indexes) ScanEAVT(pivot fact.Datom, fn func(fact.Datom) bool) {
	ix.eavt.AscendGreaterOrEqual(pivot, fn)
}

// ScanAEVT iterates datoms in AEVT order.
func (ix *Indexes) ScanAEVT(pivot fact.Datom, fn func(fact.Datom) bool) {
	ix.aevt.AscendGreaterOrEqual(pivot, fn)
}

// ScanAVET iterates datoms in AVET order.
func (ix *Indexes) ScanAVET(pivot fact.Datom, fn func(fact.Datom) bool) {
	ix.avet.AscendGreaterOrEqual(pivot, fn)
}

// ScanVAET iterates datoms in VAET order (value must be a ref).
func (ix *Indexes) ScanVAET(pivot fact.Datom, fn func(fact.Datom) bool) {
	ix.vaet.AscendGreaterOrEqual(pivot, fn)
}

// DatomsForEntity returns every current datom for entity e, in EAVT
// (attribute, then value) order.
func (ix *Indexes) DatomsForEntity(e fact.EntityID) []fact.Datom {
	var out []fact.Datom
	ix.eavt.AscendGreaterOrEqual(fact.Datom{E: e}, func(d fact.Datom) bool {
		if d.E != e {
			return false
		}
		out = append(out, d)
		return true
	})
	return out
}

// DatomsForEntityAttr returns every current datom for (e, a).
func (ix *Indexes) DatomsForEntityAttr(e fact.EntityID, a fact.Attribute) []fact.Datom {
	var out []fact.Datom
	ix.eavt.AscendGreaterOrEqual(fact.Datom{E: e, A: a}, func(d fact.Datom) bool {
		if d.E != e || d.A != a {
			return false
		}
		out = append(out, d)
		return true
	})
	return out
}

// DatomsForAttr returns every current datom carrying attribute a, in
// AEVT (entity) order.
func (ix *Indexes) DatomsForAttr(a fact.Attribute) []fact.Datom {
	var out []fact.Datom
	ix.aevt.AscendGreaterOrEqual(fact.Datom{A: a}, func(d fact.Datom) bool {
		if d.A != a {
			return false
		}
		out = append(out, d)
		return true
	})
	return out
}

// DatomsForAttrValue returns every current datom matching (a, v), via
// AVET.
func (ix *Indexes) DatomsForAttrValue(a fact.Attribute, v fact.Value) []fact.Datom {
	var out []fact.Datom
	ix.avet.AscendGreaterOrEqual(fact.Datom{A: a, V: v}, func(d fact.Datom) bool {
		if d.A != a || !d.V.Equal(v) {
			return false
		}
		out = append(out, d)
		return true
	})
	return out
}

// DatomsReferencingEntity returns every current datom whose ref value
// points at e, via VAET.
func (ix *Indexes) DatomsReferencingEntity(e fact.EntityID) []fact.Datom {
	var out []fact.Datom
	ix.vaet.AscendGreaterOrEqual(fact.Datom{V: fact.RefValue(e)}, func(d fact.Datom) bool {
		ref, ok := d.V.AsRef()
		if !ok || ref != e {
			return false
		}
		out = append(out, d)
		return true
	})
	return out
}

// DatomsReferencingViaAttr returns every current datom (_, a, e) where
// a is a ref attribute whose value points at e.
func (ix *Indexes) DatomsReferencingViaAttr(e fact.EntityID, a fact.Attribute) []fact.Datom {
	var out []fact.Datom
	ix.vaet.AscendGreaterOrEqual(fact.Datom{V: fact.RefValue(e), A: a}, func(d fact.Datom) bool {
		ref, ok := d.V.AsRef()
		if !ok || ref != e || d.A != a {
			return false
		}
		out = append(out, d)
		return true
	})
	return out
}
