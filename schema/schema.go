/*
Package schema defines attribute metadata: value type, cardinality,
uniqueness, and the indexed/component flags that the transaction
processor and query engine consult when validating or planning against
a database.

SEE ALSO:
  - txn: enforces cardinality, uniqueness, and component cascading
    during Transact using the Schema attached to a Db.
  - fact: the Value tag that ValueType constrains.
*/
package schema

import (
	"fmt"

	"github.com/faktum-db/faktum/fact"
)

// Cardinality controls whether an attribute holds one or many values
// per entity.
type Cardinality uint8

const (
	// CardinalityOne means a new assertion of this attribute on an
	// entity retracts the entity's previous value for it.
	CardinalityOne Cardinality = iota
	// CardinalityMany means an entity may hold any number of values
	// for this attribute simultaneously.
	CardinalityMany
)

func (c Cardinality) String() string {
	if c == CardinalityMany {
		return "many"
	}
	return "one"
}

// Uniqueness controls whether an attribute's values are constrained to
// be unique across all entities, and whether that uniqueness doubles
// as an upsert key for temp-id resolution.
type Uniqueness uint8

const (
	// UniqueNone imposes no uniqueness constraint.
	UniqueNone Uniqueness = iota
	// UniqueValue enforces that no two entities share a value for this
	// attribute, without participating in upsert.
	UniqueValue
	// UniqueIdentity enforces UniqueValue and additionally makes this
	// attribute an upsert key: asserting it for a temp id resolves to
	// the existing entity carrying that value, if any.
	UniqueIdentity
)

func (u Uniqueness) String() string {
	switch u {
	case UniqueValue:
		return "value"
	case UniqueIdentity:
		return "identity"
	default:
		return "none"
	}
}

// AttributeSchema is the per-attribute metadata a Schema carries.
type AttributeSchema struct {
	Attribute   fact.Attribute
	ValueType   fact.ValueTag
	Cardinality Cardinality
	Unique      Uniqueness
	Indexed     bool // whether AVET is maintained for this attribute
	Component   bool // whether referenced entities cascade-retract
	Doc         string
}

// IsRef reports whether this attribute's values must be entity
// references, which is required for Component and for participation
// in the VAET reverse index.
func (a AttributeSchema) IsRef() bool { return a.ValueType == fact.TagRef }

// Schema is an immutable collection of attribute definitions plus a
// strictness flag. Strict schemas reject any datom whose attribute is
// undeclared; non-strict schemas allow them with no constraints;
// permissive is an alias kept for readability at call sites that want
// to foreground "anything goes" rather than "not strict".
type Strictness uint8

const (
	// Strict rejects writes to attributes absent from the schema.
	Strict Strictness = iota
	// NonStrict allows undeclared attributes with no validation.
	NonStrict
	// Permissive is NonStrict under another name, for call sites that
	// want to read as "anything goes" rather than "not strict".
	Permissive = NonStrict
)

// Schema associates attributes with their AttributeSchema. It is
// treated as immutable: WithAttr returns a new Schema sharing the
// receiver's unmodified entries rather than mutating in place.
type Schema struct {
	attrs      map[fact.Attribute]AttributeSchema
	strictness Strictness
}

// New builds an empty schema with the given strictness.
func New(strictness Strictness) Schema {
	return Schema{attrs: make(map[fact.Attribute]AttributeSchema), strictness: strictness}
}

// Strictness reports the schema's strictness mode.
func (s Schema) Strictness() Strictness { return s.strictness }

// WithAttr returns a copy of s with attr's definition added or
// replaced. attr.Attribute is used as the key regardless of any zero
// value passed by the caller.
func (s Schema) WithAttr(attr AttributeSchema) (Schema, error) {
	if attr.Attribute == "" {
		return Schema{}, fmt.Errorf("schema: attribute name must not be empty")
	}
	if attr.Attribute == fact.AttrIdent || attr.Attribute == fact.AttrDoc || attr.Attribute == fact.AttrTxInstant {
		return Schema{}, fmt.Errorf("schema: %q is reserved and may not be redeclared", attr.Attribute)
	}
	if attr.Component && attr.ValueType != fact.TagRef {
		return Schema{}, fmt.Errorf("schema: %q is marked component but its value type is not ref", attr.Attribute)
	}
	next := make(map[fact.Attribute]AttributeSchema, len(s.attrs)+1)
	for k, v := range s.attrs {
		next[k] = v
	}
	next[attr.Attribute] = attr
	return Schema{attrs: next, strictness: s.strictness}, nil
}

// Lookup returns the definition for attr, if any.
func (s Schema) Lookup(attr fact.Attribute) (AttributeSchema, bool) {
	a, ok := s.attrs[attr]
	return a, ok
}

// Len reports how many attributes are declared.
func (s Schema) Len() int { return len(s.attrs) }

// Each calls fn for every declared attribute, in no particular order.
func (s Schema) Each(fn func(AttributeSchema)) {
	for _, a := range s.attrs {
		fn(a)
	}
}

// IndexedAttrs returns every attribute declared with Indexed=true,
// i.e. the ones the AVET index must track.
func (s Schema) IndexedAttrs() []fact.Attribute {
	out := make([]fact.Attribute, 0, len(s.attrs))
	for name, a := range s.attrs {
		if a.Indexed {
			out = append(out, name)
		}
	}
	return out
}

// ComponentAttrs returns every attribute declared with Component=true,
// i.e. the ones RetractEntity must cascade through.
func (s Schema) ComponentAttrs() []fact.Attribute {
	out := make([]fact.Attribute, 0)
	for name, a := range s.attrs {
		if a.Component {
			out = append(out, name)
		}
	}
	return out
}
