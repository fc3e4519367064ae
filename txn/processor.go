package txn

import (
	"fmt"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/schema"
)

// DefaultMaxDepth bounds transaction function expansion: a Call whose
// expansion produces further Calls may recurse at most this many
// times before Process fails with ErrRecursionLimit.
const DefaultMaxDepth = 8

// Result is everything a successful Process call produces: the
// ordered datoms a commit must file, the temp-id bindings resolved
// along the way, and the entity-id counter's new high-water mark.
type Result struct {
	Datoms       []fact.Datom
	TempIDs      map[string]fact.EntityID
	NextEntityID fact.EntityID
}

// Processor plans a transaction against a Snapshot. It holds no
// per-call state itself, so one Processor is safe to reuse (and
// share across goroutines) for any number of calls to Process.
type Processor struct {
	registry *Registry
	maxDepth int
}

// NewProcessor builds a Processor with the given function registry
// and the default recursion depth.
func NewProcessor(registry *Registry) *Processor {
	return &Processor{registry: registry, maxDepth: DefaultMaxDepth}
}

// WithMaxDepth returns a copy of p with its recursion bound replaced,
// for tests that want to exercise the boundary.
func (p *Processor) WithMaxDepth(n int) *Processor {
	return &Processor{registry: p.registry, maxDepth: n}
}

// planState carries the mutable bookkeeping for one Process call:
// temp-id bindings, the entity-id allocator, and the attribute-value
// index used to detect uniqueness conflicts staged within the same
// transaction.
type planState struct {
	snap         Snapshot
	tempIDs      map[string]fact.EntityID
	liveEntities map[fact.EntityID]bool
	stagedUnique map[uniqueKey]fact.EntityID
	nextID       fact.EntityID
}

type uniqueKey struct {
	a fact.Attribute
	v fact.Value
}

func newPlanState(snap Snapshot, nextID fact.EntityID) *planState {
	return &planState{
		snap:         snap,
		tempIDs:      make(map[string]fact.EntityID),
		liveEntities: make(map[fact.EntityID]bool),
		stagedUnique: make(map[uniqueKey]fact.EntityID),
		nextID:       nextID,
	}
}

func (s *planState) allocID() fact.EntityID {
	id := s.nextID
	s.nextID++
	return id
}

func (s *planState) exists(e fact.EntityID) bool {
	return s.liveEntities[e] || s.snap.EntityExists(e)
}

// resolve turns an EntitySpec into a concrete permanent id, allocating
// one for a first-seen Temp name.
func (s *planState) resolve(e EntitySpec) (fact.EntityID, error) {
	switch e.kind {
	case entityKindID:
		return e.id, nil
	case entityKindTemp:
		if id, ok := s.tempIDs[e.temp]; ok {
			return id, nil
		}
		id := s.allocID()
		s.tempIDs[e.temp] = id
		s.liveEntities[id] = true
		return id, nil
	case entityKindLookup:
		if d, ok := s.snap.DatomForAttrValue(e.lookupA, e.lookupV); ok {
			return d.E, nil
		}
		if id, ok := s.stagedUnique[uniqueKey{e.lookupA, e.lookupV}]; ok {
			return id, nil
		}
		return 0, fmt.Errorf("txn: lookup ref (%s %s): %w", e.lookupA, e.lookupV, ErrUnknownEntity)
	default:
		return 0, fmt.Errorf("txn: malformed entity spec")
	}
}

func (s *planState) resolveValue(v ValueSpec) (fact.Value, error) {
	if !v.isRef {
		return v.literal, nil
	}
	e, err := s.resolve(v.ref)
	if err != nil {
		return fact.Value{}, err
	}
	return fact.RefValue(e), nil
}

// Process plans ops against snap and returns the datoms a commit at
// txID must file. snap and the database it reflects are never
// mutated; on error the caller's database is guaranteed unchanged
// because nothing has been applied yet.
func (p *Processor) Process(snap Snapshot, txID fact.TxID, nextEntityID fact.EntityID, ops []Op) (Result, error) {
	state := newPlanState(snap, nextEntityID)

	expanded, err := p.expand(state, ops, 0)
	if err != nil {
		return Result{}, err
	}

	if err := preResolveUpserts(state, snap, expanded); err != nil {
		return Result{}, err
	}

	lt := newLiveTracker(snap)
	var datoms []fact.Datom

	for _, op := range expanded {
		switch o := op.(type) {
		case Add:
			produced, err := applyAdd(state, lt, snap.Schema(), txID, o)
			if err != nil {
				return Result{}, err
			}
			datoms = append(datoms, produced...)
		case Retract:
			d, err := applyRetract(state, lt, txID, o)
			if err != nil {
				return Result{}, err
			}
			datoms = append(datoms, d)
		case RetractEntity:
			produced, err := applyRetractEntity(state, lt, snap.Schema(), txID, o)
			if err != nil {
				return Result{}, err
			}
			datoms = append(datoms, produced...)
		default:
			return Result{}, fmt.Errorf("txn: unsupported op type %T", op)
		}
	}

	return Result{Datoms: datoms, TempIDs: state.tempIDs, NextEntityID: state.nextID}, nil
}

// expand recursively replaces every Call with the ops its registered
// function produces, up to the processor's recursion bound.
func (p *Processor) expand(state *planState, ops []Op, depth int) ([]Op, error) {
	if depth > p.maxDepth {
		return nil, ErrRecursionLimit
	}
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		call, ok := op.(Call)
		if !ok {
			out = append(out, op)
			continue
		}
		fn, ok := p.registry.lookup(call.Fn)
		if !ok {
			return nil, fmt.Errorf("txn: %q: %w", call.Fn, ErrUnknownFunction)
		}
		produced, err := fn(state.snap, call.Args, state.resolve)
		if err != nil {
			return nil, err
		}
		sub, err := p.expand(state, produced, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// preResolveUpserts binds every Temp name used as an Add's entity
// with a unique=identity attribute to the entity already carrying
// that value, if any, before the main pass runs. This must happen as
// a dedicated first pass because an upsert match can be discovered by
// any one of several Add ops naming the same temp id, in any order.
func preResolveUpserts(state *planState, snap Snapshot, ops []Op) error {
	sc := snap.Schema()
	for _, op := range ops {
		add, ok := op.(Add)
		if !ok || add.E.kind != entityKindTemp || add.V.isRef {
			continue
		}
		def, ok := sc.Lookup(add.A)
		if !ok || def.Unique != schema.UniqueIdentity {
			continue
		}
		existing, found := snap.DatomForAttrValue(add.A, add.V.literal)
		if !found {
			continue
		}
		if bound, already := state.tempIDs[add.E.temp]; already && bound != existing.E {
			return schemaViolation(add.A, ErrUniqueConflict,
				fmt.Sprintf("temp id %q resolves to conflicting entities via upsert", add.E.temp))
		}
		state.tempIDs[add.E.temp] = existing.E
		state.liveEntities[existing.E] = true
	}
	return nil
}

func applyAdd(state *planState, lt *liveTracker, sc schema.Schema, txID fact.TxID, op Add) ([]fact.Datom, error) {
	e, err := state.resolve(op.E)
	if err != nil {
		return nil, err
	}
	if op.E.kind == entityKindID && !state.exists(e) {
		return nil, fmt.Errorf("txn: entity %d: %w", e, ErrUnknownEntity)
	}
	state.liveEntities[e] = true

	v, err := state.resolveValue(op.V)
	if err != nil {
		return nil, err
	}

	def, hasSchema := sc.Lookup(op.A)
	if hasSchema {
		if v.Tag() != def.ValueType {
			return nil, schemaViolation(op.A, ErrValueTypeMismatch,
				fmt.Sprintf("expected %s, got %s", def.ValueType, v.Tag()))
		}
	} else if sc.Strictness() == schema.Strict {
		return nil, schemaViolation(op.A, ErrUnknownAttribute, "attribute not declared in strict schema")
	}

	if hasSchema && def.Unique != schema.UniqueNone {
		key := uniqueKey{op.A, v}
		if existing, found := snapshotOwner(state, def, op.A, v); found && existing != e {
			return nil, schemaViolation(op.A, ErrUniqueConflict,
				fmt.Sprintf("value %s already held by entity %d", v, existing))
		}
		if owner, staged := state.stagedUnique[key]; staged && owner != e {
			return nil, schemaViolation(op.A, ErrUniqueConflict,
				fmt.Sprintf("value %s staged for entity %d earlier in this transaction", v, owner))
		}
		state.stagedUnique[key] = e
	}

	cardinalityOne := !hasSchema || def.Cardinality == schema.CardinalityOne

	var out []fact.Datom
	if cardinalityOne {
		for _, old := range lt.effective(e, op.A) {
			if old.Equal(v) {
				continue
			}
			k := fact.Key{E: e, A: op.A, V: old}
			out = append(out, fact.Datom{E: e, A: op.A, V: old, Tx: txID, Added: false})
			lt.mark(k, false)
		}
	}

	k := fact.Key{E: e, A: op.A, V: v}
	if !lt.isAsserted(k) {
		out = append(out, fact.Datom{E: e, A: op.A, V: v, Tx: txID, Added: true})
		lt.mark(k, true)
	}
	return out, nil
}

// snapshotOwner returns the entity the pre-transaction snapshot
// records as currently holding (a, v), if any; factored out only to
// keep applyAdd's uniqueness branch readable.
func snapshotOwner(state *planState, _ schema.AttributeSchema, a fact.Attribute, v fact.Value) (fact.EntityID, bool) {
	d, ok := state.snap.DatomForAttrValue(a, v)
	if !ok {
		return 0, false
	}
	return d.E, true
}

func applyRetract(state *planState, lt *liveTracker, txID fact.TxID, op Retract) (fact.Datom, error) {
	e, err := state.resolve(op.E)
	if err != nil {
		return fact.Datom{}, err
	}
	v, err := state.resolveValue(op.V)
	if err != nil {
		return fact.Datom{}, err
	}
	k := fact.Key{E: e, A: op.A, V: v}
	if !lt.isAsserted(k) {
		return fact.Datom{}, &FactNotFoundError{E: e, A: op.A, V: v}
	}
	lt.mark(k, false)
	return fact.Datom{E: e, A: op.A, V: v, Tx: txID, Added: false}, nil
}

func applyRetractEntity(state *planState, lt *liveTracker, sc schema.Schema, txID fact.TxID, op RetractEntity) ([]fact.Datom, error) {
	e, err := state.resolve(op.E)
	if err != nil {
		return nil, err
	}
	if !state.exists(e) {
		return nil, fmt.Errorf("txn: entity %d: %w", e, ErrUnknownEntity)
	}

	var out []fact.Datom
	visited := make(map[fact.EntityID]bool)

	var cascade func(ent fact.EntityID)
	cascade = func(ent fact.EntityID) {
		if visited[ent] {
			return
		}
		visited[ent] = true

		for attr, values := range lt.effectiveEntity(ent) {
			def, hasSchema := sc.Lookup(attr)
			for _, v := range values {
				k := fact.Key{E: ent, A: attr, V: v}
				out = append(out, fact.Datom{E: ent, A: attr, V: v, Tx: txID, Added: false})
				lt.mark(k, false)
				if hasSchema && def.Component && v.IsRef() {
					if ref, ok := v.AsRef(); ok {
						cascade(ref)
					}
				}
			}
		}

		// Entities elsewhere that hold a reference to ent now point at
		// nothing; retract those datoms too, without cascading into the
		// referencing entity itself (only component outbound refs cascade).
		for _, k := range lt.effectiveReferencesTo(ent) {
			out = append(out, fact.Datom{E: k.E, A: k.A, V: k.V, Tx: txID, Added: false})
			lt.mark(k, false)
		}
	}
	cascade(e)
	return out, nil
}
