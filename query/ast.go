/*
Package query implements the Datalog-style query engine: pattern
unification against the four indexes, and/or/not/predicate/rule-call
composition, index selection, join ordering, aggregates, and a
naive fixpoint evaluator (full re-evaluation each round) for
recursive rules.

SEE ALSO:
  - index: the ordered containers Scan consults.
  - db: supplies the Indexes a query runs against.
*/
package query

import "github.com/faktum-db/faktum/fact"

// TermKind discriminates a pattern slot: bound to a variable, pinned
// to a literal value, or an anonymous blank that matches anything and
// binds nothing.
type TermKind uint8

const (
	TermBlank TermKind = iota
	TermVar
	TermConst
)

// Term is one slot of a Pattern (or RuleCall argument).
type Term struct {
	kind  TermKind
	name  string
	value fact.Value
}

// Var returns a term that binds to whatever it matches, joined across
// clauses by name.
func Var(name string) Term { return Term{kind: TermVar, name: name} }

// Const returns a term pinned to a specific value.
func Const(v fact.Value) Term { return Term{kind: TermConst, value: v} }

// Blank returns a term that matches anything and binds nothing.
func Blank() Term { return Term{kind: TermBlank} }

func (t Term) IsVar() bool   { return t.kind == TermVar }
func (t Term) IsConst() bool { return t.kind == TermConst }
func (t Term) IsBlank() bool { return t.kind == TermBlank }
func (t Term) Name() string  { return t.name }
func (t Term) Value() fact.Value { return t.value }

// Clause is one unit of a query's Where list. The concrete types
// below are the only implementations.
type Clause interface{ isClause() }

// Pattern constrains entity/attribute/value (a triple), optionally
// including a transaction term.
type Pattern struct {
	E  Term
	A  Term
	V  Term
	Tx Term // zero-value Term (kind TermBlank) unless explicitly bound
}

func (Pattern) isClause() {}

// And requires every sub-clause to hold; it is also the implicit
// combinator for a flat Where list.
type And struct{ Clauses []Clause }

func (And) isClause() {}

// Or requires at least one branch to hold; the result is the union of
// each branch's bindings, projected to the variables the branches
// share plus whatever was already bound coming in.
type Or struct{ Clauses []Clause }

func (Or) isClause() {}

// Not succeeds for a binding iff Clause has no solutions extending it
// (negation as failure); it introduces no new variables.
type Not struct{ Clause Clause }

func (Not) isClause() {}

// Predicate filters existing bindings by evaluating Expr; it
// introduces no new variables and never visits an index.
type Predicate struct{ Expr Expr }

func (Predicate) isClause() {}

// RuleCall invokes a named rule with positional arguments, each
// either a bound variable or a literal.
type RuleCall struct {
	Name string
	Args []Term
}

func (RuleCall) isClause() {}

// RuleDef defines one named, possibly-recursive rule: a relation
// named Name with the given parameter variables, computed by Body.
// Recursive rule sets (rules whose bodies call each other, including
// calling themselves) are evaluated by naive fixpoint iteration.
type RuleDef struct {
	Name   string
	Params []string
	Body   Clause
}

// Query is a complete request: which variables to project (Find),
// the Where clauses to satisfy, and any rules available to RuleCall
// clauses within Where.
type Query struct {
	Find  []string
	Where []Clause
	Rules []RuleDef
}
