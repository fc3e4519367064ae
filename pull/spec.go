/*
Package pull implements declarative hierarchical entity retrieval:
given an entity and an ordered list of pull patterns, it walks
attributes, nested references, and reverse references into an ordered
result tree, without ever going through the query engine's relational
machinery.

SEE ALSO:
  - db: supplies the Source this package reads from.
  - query: the sibling read path, for relational rather than
    tree-shaped results.
*/
package pull

import "github.com/faktum-db/faktum/fact"

// Spec is one pattern in a pull request. The concrete types below are
// the only implementations.
type Spec interface{ isSpec() }

// AttrSpec includes the attribute's current value(s): a scalar for a
// cardinality-one attribute and a sequence for a cardinality-many one;
// an attribute the schema does not declare is a scalar when it holds
// exactly one value and a sequence otherwise.
type AttrSpec struct{ Attr fact.Attribute }

func (AttrSpec) isSpec() {}

// WildcardSpec includes every attribute the entity currently carries.
type WildcardSpec struct{}

func (WildcardSpec) isSpec() {}

// NestedSpec recursively pulls Sub on every entity Attr references.
type NestedSpec struct {
	Attr fact.Attribute
	Sub  []Spec
}

func (NestedSpec) isSpec() {}

// ReverseSpec finds every entity that references the pulled entity
// via Attr (through VAET) and recursively pulls Sub on each.
type ReverseSpec struct {
	Attr fact.Attribute
	Sub  []Spec
}

func (ReverseSpec) isSpec() {}

// LimitedSpec behaves like AttrSpec but caps the result at N values.
type LimitedSpec struct {
	Attr fact.Attribute
	N    int
}

func (LimitedSpec) isSpec() {}

// WithDefaultSpec includes Attr's value if present, else the literal
// Default.
type WithDefaultSpec struct {
	Attr    fact.Attribute
	Default fact.Value
}

func (WithDefaultSpec) isSpec() {}
