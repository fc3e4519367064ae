package txn

import "github.com/faktum-db/faktum/fact"

// liveTracker layers this transaction's in-flight edits over a
// read-only Snapshot, so later ops in the same request see the
// effect of earlier ones (an Add followed by a Retract of the value
// it just asserted, a RetractEntity cascade that must not re-retract
// something already retracted, and so on) without ever mutating the
// snapshot itself.
type liveTracker struct {
	snap      Snapshot
	overrides map[fact.Key]bool
}

func newLiveTracker(snap Snapshot) *liveTracker {
	return &liveTracker{snap: snap, overrides: make(map[fact.Key]bool)}
}

// isAsserted reports whether k currently holds, honoring any
// overrides staged earlier in this transaction.
func (lt *liveTracker) isAsserted(k fact.Key) bool {
	if live, ok := lt.overrides[k]; ok {
		return live
	}
	for _, d := range lt.snap.DatomsForEntityAttr(k.E, k.A) {
		if d.V.Equal(k.V) {
			return true
		}
	}
	return false
}

// mark records that k is now asserted (live=true) or retracted
// (live=false) as of this point in the transaction.
func (lt *liveTracker) mark(k fact.Key, live bool) { lt.overrides[k] = live }

// effective returns every value currently held for (e, a), after
// applying this transaction's overrides on top of the snapshot.
func (lt *liveTracker) effective(e fact.EntityID, a fact.Attribute) []fact.Value {
	seen := make(map[fact.Key]bool)
	var out []fact.Value
	for _, d := range lt.snap.DatomsForEntityAttr(e, a) {
		k := d.Key()
		seen[k] = true
		if live, ok := lt.overrides[k]; ok {
			if live {
				out = append(out, d.V)
			}
			continue
		}
		out = append(out, d.V)
	}
	for k, live := range lt.overrides {
		if !live || k.E != e || k.A != a || seen[k] {
			continue
		}
		out = append(out, k.V)
	}
	return out
}

// effectiveEntity returns every (attribute, value) pair currently
// held by e, grouped by attribute, used by RetractEntity to discover
// everything it must retract. It starts from the snapshot's datoms
// for e (covering attributes touched before this transaction) and
// folds in any attribute this transaction newly introduced on e.
func (lt *liveTracker) effectiveEntity(e fact.EntityID) map[fact.Attribute][]fact.Value {
	attrs := make(map[fact.Attribute]bool)
	for _, d := range lt.snap.DatomsForEntity(e) {
		attrs[d.A] = true
	}
	for k := range lt.overrides {
		if k.E == e {
			attrs[k.A] = true
		}
	}
	out := make(map[fact.Attribute][]fact.Value, len(attrs))
	for a := range attrs {
		if vs := lt.effective(e, a); len(vs) > 0 {
			out[a] = vs
		}
	}
	return out
}

// effectiveReferencesTo returns every (entity, attribute, value) key
// currently holding a ref value that points at ent, after applying
// this transaction's overrides on top of the snapshot. RetractEntity
// uses this to find the inbound-reference datoms VAET would have
// indexed, so deleting ent also clears whatever else still points at
// it.
func (lt *liveTracker) effectiveReferencesTo(ent fact.EntityID) []fact.Key {
	seen := make(map[fact.Key]bool)
	var out []fact.Key
	for _, d := range lt.snap.DatomsReferencingEntity(ent) {
		k := d.Key()
		seen[k] = true
		if live, ok := lt.overrides[k]; ok {
			if !live {
				continue
			}
		}
		out = append(out, k)
	}
	for k, live := range lt.overrides {
		if !live || seen[k] {
			continue
		}
		if ref, ok := k.V.AsRef(); !ok || ref != ent {
			continue
		}
		out = append(out, k)
	}
	return out
}
