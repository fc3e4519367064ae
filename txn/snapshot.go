package txn

import (
	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/schema"
)

// Snapshot is the read-only view of a database the processor consults
// while planning a transaction. db.Db implements it; the processor
// never mutates it, preserving the "old Db is unchanged on failure"
// guarantee.
type Snapshot interface {
	// Schema returns the attribute declarations in force.
	Schema() schema.Schema

	// EntityExists reports whether e has any current datom filed
	// under it.
	EntityExists(e fact.EntityID) bool

	// DatomsForEntityAttr returns the currently asserted datoms for
	// (e, a); zero or one for cardinality-one, zero or more for
	// cardinality-many.
	DatomsForEntityAttr(e fact.EntityID, a fact.Attribute) []fact.Datom

	// DatomsForEntity returns every currently asserted datom with e as
	// its subject, used by RetractEntity.
	DatomsForEntity(e fact.EntityID) []fact.Datom

	// DatomsReferencingEntity returns every currently asserted datom
	// whose value is a ref pointing at e, found via VAET. RetractEntity
	// retracts these alongside e's own datoms so deleting e never
	// leaves a dangling reference.
	DatomsReferencingEntity(e fact.EntityID) []fact.Datom

	// DatomForAttrValue looks up the single entity currently holding
	// value v for unique attribute a, used both for upsert-by-identity
	// and for uniqueness-conflict checks.
	DatomForAttrValue(a fact.Attribute, v fact.Value) (fact.Datom, bool)
}
