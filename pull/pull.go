package pull

import (
	"sort"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/schema"
)

// Source is the read surface pull needs. db.Db satisfies this.
type Source interface {
	Schema() schema.Schema
	DatomsForEntity(e fact.EntityID) []fact.Datom
	DatomsForEntityAttr(e fact.EntityID, a fact.Attribute) []fact.Datom
	ReferencingViaAttr(e fact.EntityID, a fact.Attribute) []fact.Datom
}

// idAttr names the entry a cycle revisit, or a bottomed-out recursion
// depth, contributes instead of expanding the referenced entity further.
const idAttr fact.Attribute = ":db/id"

// DefaultMaxDepth bounds recursion when no explicit depth is given, a
// second defense behind the visited-entity set.
const DefaultMaxDepth = 100

// One pulls specs against entity e and returns its ordered attribute
// list. A nonexistent entity yields an empty (nil) list, except that
// each WithDefaultSpec still contributes its default.
func One(src Source, e fact.EntityID, specs []Spec) []Entry {
	return WithDepth(src, e, specs, DefaultMaxDepth)
}

// WithDepth behaves like One but with an explicit recursion cap.
func WithDepth(src Source, e fact.EntityID, specs []Spec, maxDepth int) []Entry {
	return pullEntity(src, e, specs, map[fact.EntityID]bool{e: true}, 0, maxDepth)
}

// Many pulls the same specs against every entity in es, in order.
func Many(src Source, es []fact.EntityID, specs []Spec) [][]Entry {
	out := make([][]Entry, len(es))
	for i, e := range es {
		out[i] = One(src, e, specs)
	}
	return out
}

// Attr pulls a single attribute's current value(s) for e. The zero
// Value (ok=false) means the attribute is absent.
func Attr(src Source, e fact.EntityID, a fact.Attribute) (Value, bool) {
	return pullAttrValue(src, e, a, 0)
}

func pullEntity(src Source, e fact.EntityID, specs []Spec, visited map[fact.EntityID]bool, depth, maxDepth int) []Entry {
	var out []Entry
	for _, s := range specs {
		out = append(out, pullSpec(src, e, s, visited, depth, maxDepth)...)
	}
	return out
}

func pullSpec(src Source, e fact.EntityID, s Spec, visited map[fact.EntityID]bool, depth, maxDepth int) []Entry {
	switch sp := s.(type) {
	case AttrSpec:
		if v, ok := pullAttrValue(src, e, sp.Attr, 0); ok {
			return []Entry{{Attr: sp.Attr, Value: v}}
		}
		return nil
	case WildcardSpec:
		return pullWildcard(src, e)
	case LimitedSpec:
		if v, ok := pullAttrValue(src, e, sp.Attr, sp.N); ok {
			return []Entry{{Attr: sp.Attr, Value: v}}
		}
		return nil
	case WithDefaultSpec:
		v, ok := pullAttrValue(src, e, sp.Attr, 0)
		if !ok {
			v = Scalar(sp.Default)
		}
		return []Entry{{Attr: sp.Attr, Value: v}}
	case NestedSpec:
		if v, ok := pullRefs(src, e, sp.Attr, sp.Sub, visited, depth, maxDepth); ok {
			return []Entry{{Attr: sp.Attr, Value: v}}
		}
		return nil
	case ReverseSpec:
		if v, ok := pullReverse(src, e, sp, visited, depth, maxDepth); ok {
			return []Entry{{Attr: sp.Attr, Value: v}}
		}
		return nil
	default:
		return nil
	}
}

// pullAttrValue reads attribute a's current value(s) for e. limit<=0
// means unbounded; otherwise at most limit values are included,
// implementing LimitedSpec on top of the same codepath AttrSpec uses.
func pullAttrValue(src Source, e fact.EntityID, a fact.Attribute, limit int) (Value, bool) {
	datoms := src.DatomsForEntityAttr(e, a)
	if len(datoms) == 0 {
		return Value{}, false
	}
	if limit > 0 && limit < len(datoms) {
		datoms = datoms[:limit]
	}
	if !isManyValued(src, a, len(datoms)) {
		return Scalar(datoms[0].V), true
	}
	vals := make([]Value, len(datoms))
	for i, d := range datoms {
		vals[i] = Scalar(d.V)
	}
	return Many(vals), true
}

func isManyValued(src Source, a fact.Attribute, count int) bool {
	if as, ok := src.Schema().Lookup(a); ok {
		return as.Cardinality == schema.CardinalityMany
	}
	return count > 1
}

// pullWildcard includes every attribute e currently carries, sorted
// by name for a stable result order.
func pullWildcard(src Source, e fact.EntityID) []Entry {
	datoms := src.DatomsForEntity(e)
	if len(datoms) == 0 {
		return nil
	}
	byAttr := make(map[fact.Attribute][]fact.Datom)
	var attrs []fact.Attribute
	for _, d := range datoms {
		if _, ok := byAttr[d.A]; !ok {
			attrs = append(attrs, d.A)
		}
		byAttr[d.A] = append(byAttr[d.A], d)
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })

	out := make([]Entry, 0, len(attrs))
	for _, a := range attrs {
		group := byAttr[a]
		var v Value
		if isManyValued(src, a, len(group)) {
			vals := make([]Value, len(group))
			for i, d := range group {
				vals[i] = Scalar(d.V)
			}
			v = Many(vals)
		} else {
			v = Scalar(group[0].V)
		}
		out = append(out, Entry{Attr: a, Value: v})
	}
	return out
}

// pullRefs recurses Sub on every ref value under attribute a,
// wrapping the results exactly like pullAttrValue does for scalars.
func pullRefs(src Source, e fact.EntityID, a fact.Attribute, sub []Spec, visited map[fact.EntityID]bool, depth, maxDepth int) (Value, bool) {
	datoms := src.DatomsForEntityAttr(e, a)
	if len(datoms) == 0 {
		return Value{}, false
	}
	var vals []Value
	for _, d := range datoms {
		ref, ok := d.V.AsRef()
		if !ok {
			continue
		}
		vals = append(vals, pullReferencedEntity(src, ref, sub, visited, depth, maxDepth))
	}
	if len(vals) == 0 {
		return Value{}, false
	}
	if !isManyValued(src, a, len(vals)) {
		return vals[0], true
	}
	return Many(vals), true
}

func pullReverse(src Source, e fact.EntityID, sp ReverseSpec, visited map[fact.EntityID]bool, depth, maxDepth int) (Value, bool) {
	datoms := src.ReferencingViaAttr(e, sp.Attr)
	if len(datoms) == 0 {
		return Value{}, false
	}
	vals := make([]Value, len(datoms))
	for i, d := range datoms {
		vals[i] = pullReferencedEntity(src, d.E, sp.Sub, visited, depth, maxDepth)
	}
	if len(vals) == 1 {
		return vals[0], true
	}
	return Many(vals), true
}

// pullReferencedEntity expands ref into a record, unless it has
// already been visited along this path or the depth cap is hit, in
// which case only its id is reported: the two defenses against
// cyclic reference data.
func pullReferencedEntity(src Source, ref fact.EntityID, sub []Spec, visited map[fact.EntityID]bool, depth, maxDepth int) Value {
	if visited[ref] || depth+1 > maxDepth {
		return Record([]Entry{{Attr: idAttr, Value: Scalar(fact.RefValue(ref))}})
	}
	nextVisited := make(map[fact.EntityID]bool, len(visited)+1)
	for k := range visited {
		nextVisited[k] = true
	}
	nextVisited[ref] = true
	return Record(pullEntity(src, ref, sub, nextVisited, depth+1, maxDepth))
}
