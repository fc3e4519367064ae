package db

import "github.com/faktum-db/faktum/fact"

// EntityView is a lazy, map-like read over one entity's current
// datoms, grouped by attribute. It is a convenience wrapper, not a
// separate read path: every value it returns comes straight from the
// Db it was built from.
type EntityView struct {
	id     fact.EntityID
	byAttr map[fact.Attribute][]fact.Value
}

// View builds an EntityView for e from d's current state. It is a
// snapshot at call time; it does not track subsequent transactions.
func (d *Db) View(e fact.EntityID) EntityView {
	datoms := d.current.DatomsForEntity(e)
	byAttr := make(map[fact.Attribute][]fact.Value, len(datoms))
	for _, dm := range datoms {
		byAttr[dm.A] = append(byAttr[dm.A], dm.V)
	}
	return EntityView{id: e, byAttr: byAttr}
}

// ID returns the entity this view was built for.
func (v EntityView) ID() fact.EntityID { return v.id }

// Exists reports whether the entity carries any current datom.
func (v EntityView) Exists() bool { return len(v.byAttr) > 0 }

// Get returns the single value for a cardinality-one attribute.
func (v EntityView) Get(a fact.Attribute) (fact.Value, bool) {
	vs, ok := v.byAttr[a]
	if !ok || len(vs) == 0 {
		return fact.Value{}, false
	}
	return vs[0], true
}

// GetAll returns every current value for a cardinality-many attribute.
func (v EntityView) GetAll(a fact.Attribute) []fact.Value {
	return v.byAttr[a]
}

// Attrs returns every attribute currently present on the entity.
func (v EntityView) Attrs() []fact.Attribute {
	out := make([]fact.Attribute, 0, len(v.byAttr))
	for a := range v.byAttr {
		out = append(out, a)
	}
	return out
}
