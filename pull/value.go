package pull

import "github.com/faktum-db/faktum/fact"

// Kind discriminates the shape a pulled value takes.
type Kind uint8

const (
	KindScalar Kind = iota
	KindRecord
	KindMany
)

// Value is one pulled result: a bare scalar, a nested entity record,
// or a sequence of values (from a cardinality-many attribute, a
// Nested reference set, or a Reverse lookup).
type Value struct {
	kind   Kind
	scalar fact.Value
	record []Entry
	many   []Value
}

// Scalar wraps a single leaf value.
func Scalar(v fact.Value) Value { return Value{kind: KindScalar, scalar: v} }

// Record wraps a nested entity's pulled attribute list.
func Record(entries []Entry) Value { return Value{kind: KindRecord, record: entries} }

// Many wraps a sequence of pulled values.
func Many(vs []Value) Value { return Value{kind: KindMany, many: vs} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsScalar() (fact.Value, bool) { return v.scalar, v.kind == KindScalar }
func (v Value) AsRecord() ([]Entry, bool)    { return v.record, v.kind == KindRecord }
func (v Value) AsMany() ([]Value, bool)      { return v.many, v.kind == KindMany }

// Entry is one (attribute, pulled value) pair in a result's ordered
// attribute list.
type Entry struct {
	Attr  fact.Attribute
	Value Value
}
