/*
Package fact defines the core data model: entity and transaction
identifiers, attributes, the eight-variant value union, and the datom
itself.

DESIGN PRINCIPLES:
  1. Closed tagged union: Value has exactly eight variants, dispatched by
     an explicit tag rather than an open interface, so ordering,
     serialization, and pattern matching stay exhaustive and safe.
  2. Immutability: a Datom is never mutated after construction. A
     "change" is a retraction datom plus a later assertion datom.
  3. Total order: every Value and Datom has a well-defined comparison,
     needed to keep the four indexes sorted.

SEE ALSO:
  - schema: attribute metadata that constrains which values an
    attribute may carry.
  - index: the ordered containers keyed by datom field permutations.
*/
package fact

import (
	"fmt"
	"math"
)

// EntityID identifies an entity. Positive ids are permanent and assigned
// monotonically by the database. Negative ids are temporary placeholders
// scoped to a single transaction. Zero is the null sentinel.
type EntityID int64

// NullEntity is the reserved zero sentinel; no real entity carries this id.
const NullEntity EntityID = 0

// IsTemp reports whether the id is a temporary, in-transaction placeholder.
func (e EntityID) IsTemp() bool { return e < 0 }

// TxID identifies a committed transaction. Monotonically increasing from
// a genesis value of 0.
type TxID uint64

// GenesisTx is the basis of an empty database, before any transaction has
// been committed.
const GenesisTx TxID = 0

// Attribute is an identifier string, by convention ":namespace/name".
// Equality and ordering are plain string-lexicographic.
type Attribute string

// Reserved attributes. Strict-mode schemas must not declare these
// themselves; the transaction processor and journal own their meaning.
const (
	AttrIdent     Attribute = ":db/ident"
	AttrDoc       Attribute = ":db/doc"
	AttrTxInstant Attribute = ":db/txInstant"
)

// ValueTag discriminates the eight Value variants. Ordering here is the
// variant ordering used by the total order over values: any value of an
// earlier tag sorts before any value of a later tag.
type ValueTag uint8

const (
	TagInt ValueTag = iota
	TagFloat
	TagString
	TagBool
	TagInstant
	TagRef
	TagKeyword
	TagBytes
)

func (t ValueTag) String() string {
	switch t {
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagBool:
		return "bool"
	case TagInstant:
		return "instant"
	case TagRef:
		return "ref"
	case TagKeyword:
		return "keyword"
	case TagBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Value is the closed tagged union of the eight primitive variants a
// datom's value may carry. Use the constructors below to build one and
// the As* accessors to read it back; reading with the wrong accessor
// returns ok=false rather than panicking, and the first result is then
// not meaningful (it need not be the zero value).
//
// Every field is a comparable type, including bytes (held as a string
// rather than a []byte), so Value is itself comparable: it can be used
// as a map key, directly or nested in Key, without a custom hash.
type Value struct {
	tag ValueTag
	i   int64  // TagInt, TagRef (entity id)
	u   uint64 // TagInstant (epoch milliseconds)
	f   float64
	s   string // TagString, TagKeyword
	b   string // TagBytes, raw bytes held as an immutable string
	bl  bool
}

func IntValue(v int64) Value                { return Value{tag: TagInt, i: v} }
func FloatValue(v float64) Value            { return Value{tag: TagFloat, f: v} }
func StringValue(v string) Value            { return Value{tag: TagString, s: v} }
func BoolValue(v bool) Value                { return Value{tag: TagBool, bl: v} }
func InstantValue(msSinceEpoch uint64) Value { return Value{tag: TagInstant, u: msSinceEpoch} }
func RefValue(e EntityID) Value             { return Value{tag: TagRef, i: int64(e)} }
func KeywordValue(v string) Value           { return Value{tag: TagKeyword, s: v} }
func BytesValue(v []byte) Value {
	return Value{tag: TagBytes, b: string(v)}
}

// Tag reports which of the eight variants this value holds.
func (v Value) Tag() ValueTag { return v.tag }

func (v Value) AsInt() (int64, bool)      { return v.i, v.tag == TagInt }
func (v Value) AsFloat() (float64, bool)  { return v.f, v.tag == TagFloat }
func (v Value) AsString() (string, bool)  { return v.s, v.tag == TagString }
func (v Value) AsBool() (bool, bool)      { return v.bl, v.tag == TagBool }
func (v Value) AsInstant() (uint64, bool) { return v.u, v.tag == TagInstant }
func (v Value) AsRef() (EntityID, bool)   { return EntityID(v.i), v.tag == TagRef }
func (v Value) AsKeyword() (string, bool) { return v.s, v.tag == TagKeyword }
func (v Value) AsBytes() ([]byte, bool)   { return []byte(v.b), v.tag == TagBytes }

// IsRef reports whether this value is an entity reference; only ref
// values populate the VAET index.
func (v Value) IsRef() bool { return v.tag == TagRef }

// Raw returns the value unwrapped to its native Go type, for callers
// (predicates, pull, JSON) that want to dispatch on the tag themselves.
func (v Value) Raw() interface{} {
	switch v.tag {
	case TagInt:
		return v.i
	case TagFloat:
		return v.f
	case TagString:
		return v.s
	case TagBool:
		return v.bl
	case TagInstant:
		return v.u
	case TagRef:
		return EntityID(v.i)
	case TagKeyword:
		return v.s
	case TagBytes:
		return []byte(v.b)
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.tag {
	case TagInt:
		return fmt.Sprintf("%d", v.i)
	case TagFloat:
		return fmt.Sprintf("%g", v.f)
	case TagString:
		return fmt.Sprintf("%q", v.s)
	case TagBool:
		return fmt.Sprintf("%t", v.bl)
	case TagInstant:
		return fmt.Sprintf("#inst %d", v.u)
	case TagRef:
		return fmt.Sprintf("#ref %d", v.i)
	case TagKeyword:
		return v.s
	case TagBytes:
		return fmt.Sprintf("#bytes[%d]", len(v.b))
	default:
		return "#unknown"
	}
}

// floatOrderKey maps IEEE-754 bits to a uint64 whose natural ordering
// matches the numeric ordering of the float, including across the sign
// bit, so that float comparison stays total even over -0/+0 and NaN.
func floatOrderKey(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// Compare returns -1, 0, or 1 comparing a to b under the universal value
// order: first by variant tag in declaration order, then by the natural
// order of the payload within a variant.
func (v Value) Compare(other Value) int {
	if v.tag != other.tag {
		if v.tag < other.tag {
			return -1
		}
		return 1
	}
	switch v.tag {
	case TagInt, TagRef:
		return compareInt64(v.i, other.i)
	case TagFloat:
		return compareUint64(floatOrderKey(v.f), floatOrderKey(other.f))
	case TagString, TagKeyword:
		return compareString(v.s, other.s)
	case TagBool:
		return compareBool(v.bl, other.bl)
	case TagInstant:
		return compareUint64(v.u, other.u)
	case TagBytes:
		return compareString(v.b, other.b)
	default:
		return 0
	}
}

// Equal reports whether two values are identical under the universal
// value order (Compare == 0).
func (v Value) Equal(other Value) bool { return v.Compare(other) == 0 }

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// Datom is the immutable five-field fact: entity, attribute, value,
// transaction, and whether it asserts (true) or retracts (false).
type Datom struct {
	E     EntityID
	A     Attribute
	V     Value
	Tx    TxID
	Added bool
}

// Key identifies the fact this datom speaks to, independent of tx/added.
// Two datoms agreeing on Key describe the same (entity, attribute, value)
// triple at different points in the transaction log.
type Key struct {
	E EntityID
	A Attribute
	V Value
}

func (d Datom) Key() Key { return Key{E: d.E, A: d.A, V: d.V} }

func (d Datom) String() string {
	sign := "+"
	if !d.Added {
		sign = "-"
	}
	return fmt.Sprintf("%s(%d %s %s #%d)", sign, d.E, d.A, d.V, d.Tx)
}
