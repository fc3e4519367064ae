package txn

import "github.com/faktum-db/faktum/fact"

// Fn expands one Call into the concrete ops it stands for. It may
// consult snap (e.g. to read the current value before computing an
// increment) but must not mutate anything; any side effect must be
// expressed as a returned Op.
type Fn func(snap Snapshot, args []CallArg, resolve func(EntitySpec) (fact.EntityID, error)) ([]Op, error)

// Registry holds the transaction functions available to Call ops.
// DefaultRegistry builds one with the built-ins registered and
// NewRegistry an empty one; the zero value has no function map, and
// Register on it panics.
type Registry struct {
	fns map[string]Fn
}

// DefaultRegistry returns a registry carrying the built-in functions
// "cas" and "inc".
func DefaultRegistry() *Registry {
	r := &Registry{fns: make(map[string]Fn)}
	r.Register("cas", casFn)
	r.Register("inc", incFn)
	return r
}

// NewRegistry returns an empty registry with no functions registered.
func NewRegistry() *Registry { return &Registry{fns: make(map[string]Fn)} }

// Register adds or replaces the function named name.
func (r *Registry) Register(name string, fn Fn) { r.fns[name] = fn }

func (r *Registry) lookup(name string) (Fn, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// casFn implements compare-and-swap: args are (entity, attribute,
// old, new). It asserts new only if the entity's current value for
// attribute equals old; otherwise it fails the whole transaction,
// which is the point of using cas instead of a plain Add under
// concurrent writers.
func casFn(snap Snapshot, args []CallArg, resolve func(EntitySpec) (fact.EntityID, error)) ([]Op, error) {
	if len(args) != 4 {
		return nil, &CustomError{Fn: "cas", Message: "expected 4 arguments: entity, attribute, old, new"}
	}
	if args[0].isRef == false {
		return nil, &CustomError{Fn: "cas", Message: "first argument must be an entity reference"}
	}
	e, err := resolve(args[0].ref)
	if err != nil {
		return nil, err
	}
	attrVal, ok := args[1].literal.AsKeyword()
	if !ok {
		attrVal, ok = args[1].literal.AsString()
	}
	if !ok {
		return nil, &CustomError{Fn: "cas", Message: "second argument must be an attribute name"}
	}
	attr := fact.Attribute(attrVal)

	current := snap.DatomsForEntityAttr(e, attr)
	old := args[2].literal
	switch len(current) {
	case 0:
		return nil, &CustomError{Fn: "cas", Message: "entity has no current value to compare"}
	case 1:
		if !current[0].V.Equal(old) {
			return nil, &CustomError{Fn: "cas", Message: "current value does not match expected old value"}
		}
	default:
		return nil, &CustomError{Fn: "cas", Message: "cas requires a cardinality-one attribute"}
	}

	return []Op{Add{E: ID(e), A: attr, V: Lit(args[3].literal)}}, nil
}

// incFn implements an atomic increment: args are (entity, attribute,
// delta). It reads the current integer value and emits an Add for
// value+delta; the surrounding cardinality-one handling in the
// processor takes care of retracting the old value.
func incFn(snap Snapshot, args []CallArg, resolve func(EntitySpec) (fact.EntityID, error)) ([]Op, error) {
	if len(args) != 3 {
		return nil, &CustomError{Fn: "inc", Message: "expected 3 arguments: entity, attribute, delta"}
	}
	if !args[0].isRef {
		return nil, &CustomError{Fn: "inc", Message: "first argument must be an entity reference"}
	}
	e, err := resolve(args[0].ref)
	if err != nil {
		return nil, err
	}
	attrVal, ok := args[1].literal.AsKeyword()
	if !ok {
		attrVal, ok = args[1].literal.AsString()
	}
	if !ok {
		return nil, &CustomError{Fn: "inc", Message: "second argument must be an attribute name"}
	}
	attr := fact.Attribute(attrVal)

	delta, ok := args[2].literal.AsInt()
	if !ok {
		return nil, &CustomError{Fn: "inc", Message: "delta must be an int value"}
	}

	current := snap.DatomsForEntityAttr(e, attr)
	var base int64
	switch len(current) {
	case 0:
		base = 0
	case 1:
		n, ok := current[0].V.AsInt()
		if !ok {
			return nil, &CustomError{Fn: "inc", Message: "current value is not an int"}
		}
		base = n
	default:
		return nil, &CustomError{Fn: "inc", Message: "inc requires a cardinality-one attribute"}
	}

	return []Op{Add{E: ID(e), A: attr, V: Lit(fact.IntValue(base + delta))}}, nil
}
