/*
Package txn implements the transaction processor: it takes a batch of
operations against a database snapshot and produces the ordered list
of datoms a commit must apply, resolving temporary ids, expanding
transaction functions, cascading component retractions, and enforcing
schema constraints along the way. It never mutates a database itself;
db.Connection applies the Result this package returns.

SEE ALSO:
  - schema: the constraints Process enforces.
  - index: queried read-only through the Snapshot interface.
  - db: the package that calls Process and commits its Result.
*/
package txn

import (
	"fmt"

	"github.com/faktum-db/faktum/fact"
)

type entityKind uint8

const (
	entityKindID entityKind = iota
	entityKindTemp
	entityKindLookup
)

// EntitySpec addresses an entity within a transaction: by its
// permanent id, by a string temp-id scoped to this transaction, or by
// a (unique attribute, value) lookup that resolves to whichever
// entity currently holds that value.
type EntitySpec struct {
	kind    entityKind
	id      fact.EntityID
	temp    string
	lookupA fact.Attribute
	lookupV fact.Value
}

// ID addresses an already-existing permanent entity.
func ID(id fact.EntityID) EntitySpec { return EntitySpec{kind: entityKindID, id: id} }

// Temp addresses an entity by a name scoped to one transaction. Every
// Temp with the same name within a transaction resolves to the same
// permanent id once the transaction commits.
func Temp(name string) EntitySpec { return EntitySpec{kind: entityKindTemp, temp: name} }

// Lookup addresses whichever entity currently carries value v for the
// unique attribute a, failing the operation with ErrUnknownEntity if
// none does, whatever the op kind (upsert-by-identity is expressed
// with a Temp entity instead).
func Lookup(a fact.Attribute, v fact.Value) EntitySpec {
	return EntitySpec{kind: entityKindLookup, lookupA: a, lookupV: v}
}

func (e EntitySpec) String() string {
	switch e.kind {
	case entityKindTemp:
		return "#temp(" + e.temp + ")"
	case entityKindLookup:
		return "#lookup(" + string(e.lookupA) + "=" + e.lookupV.String() + ")"
	default:
		return fmt.Sprintf("%d", e.id)
	}
}

// ValueSpec is either a literal fact.Value or a reference to another
// entity addressed by EntitySpec (needed so that a ref attribute can
// point at a temp id that has not yet been resolved to a permanent
// one).
type ValueSpec struct {
	isRef   bool
	literal fact.Value
	ref     EntitySpec
}

// Lit wraps a concrete value.
func Lit(v fact.Value) ValueSpec { return ValueSpec{literal: v} }

// Ref wraps a reference to another entity in this transaction.
func Ref(e EntitySpec) ValueSpec { return ValueSpec{isRef: true, ref: e} }

// Op is a single operation in a transaction request. The concrete
// types below are the only implementations.
type Op interface{ isOp() }

// Add asserts that entity E carries value V for attribute A.
type Add struct {
	E EntitySpec
	A fact.Attribute
	V ValueSpec
}

func (Add) isOp() {}

// Retract removes the (E, A, V) fact, failing if it is not currently
// asserted.
type Retract struct {
	E EntitySpec
	A fact.Attribute
	V ValueSpec
}

func (Retract) isOp() {}

// RetractEntity removes every datom with E as its subject, cascading
// through component attributes to retract the referenced entities as
// well.
type RetractEntity struct {
	E EntitySpec
}

func (RetractEntity) isOp() {}

// Call invokes a registered transaction function by name, which
// expands to zero or more further Ops before the transaction is
// otherwise processed.
type Call struct {
	Fn   string
	Args []CallArg
}

func (Call) isOp() {}

// CallArg is an argument to a transaction function: either a literal
// value or an entity reference, mirroring ValueSpec.
type CallArg = ValueSpec
