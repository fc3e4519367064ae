package httpapi

import (
	"fmt"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/pull"
	"github.com/faktum-db/faktum/query"
	"github.com/faktum-db/faktum/txn"
)

// ErrorResponse is the standard error body for any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string    `json:"status"`
	BasisT fact.TxID `json:"basis_t"`
}

// StatsResponse mirrors db.Stats for the wire.
type StatsResponse struct {
	BasisT      fact.TxID `json:"basis_t"`
	DatomCount  int       `json:"datom_count"`
	EntityCount int       `json:"entity_count"`
	HistorySize int       `json:"history_size"`
}

// --- transact ---

// TransactRequest is the body of POST /api/db/transact.
type TransactRequest struct {
	Ops []OpDTO `json:"ops"`
}

// EntityRefDTO addresses an entity by permanent id, temp-id, or
// unique-attribute lookup -- the wire spelling of txn.EntitySpec.
type EntityRefDTO struct {
	ID      *fact.EntityID `json:"id,omitempty"`
	Temp    string         `json:"temp,omitempty"`
	LookupA fact.Attribute `json:"lookup_a,omitempty"`
	LookupV *fact.Value    `json:"lookup_v,omitempty"`
}

func (e EntityRefDTO) toEntitySpec() txn.EntitySpec {
	switch {
	case e.ID != nil:
		return txn.ID(*e.ID)
	case e.Temp != "":
		return txn.Temp(e.Temp)
	default:
		v := fact.Value{}
		if e.LookupV != nil {
			v = *e.LookupV
		}
		return txn.Lookup(e.LookupA, v)
	}
}

// ValueRefDTO is the wire spelling of txn.ValueSpec: either a literal
// value or a reference to another entity in the same transaction.
type ValueRefDTO struct {
	Ref     *EntityRefDTO `json:"ref,omitempty"`
	Literal *fact.Value   `json:"literal,omitempty"`
}

func (v ValueRefDTO) toValueSpec() txn.ValueSpec {
	if v.Ref != nil {
		return txn.Ref(v.Ref.toEntitySpec())
	}
	lit := fact.Value{}
	if v.Literal != nil {
		lit = *v.Literal
	}
	return txn.Lit(lit)
}

// OpDTO is one transaction operation, discriminated by Kind: "add",
// "retract", or "retract-entity".
type OpDTO struct {
	Kind string       `json:"kind"`
	E    EntityRefDTO `json:"e"`
	A    fact.Attribute `json:"a,omitempty"`
	V    *ValueRefDTO `json:"v,omitempty"`
}

func (op OpDTO) toOp() (txn.Op, error) {
	switch op.Kind {
	case "add":
		if op.V == nil {
			return nil, fmt.Errorf("add op missing v")
		}
		return txn.Add{E: op.E.toEntitySpec(), A: op.A, V: op.V.toValueSpec()}, nil
	case "retract":
		if op.V == nil {
			return nil, fmt.Errorf("retract op missing v")
		}
		return txn.Retract{E: op.E.toEntitySpec(), A: op.A, V: op.V.toValueSpec()}, nil
	case "retract-entity":
		return txn.RetractEntity{E: op.E.toEntitySpec()}, nil
	default:
		return nil, fmt.Errorf("unknown op kind %q", op.Kind)
	}
}

func toOps(dtos []OpDTO) ([]txn.Op, error) {
	out := make([]txn.Op, len(dtos))
	for i, d := range dtos {
		op, err := d.toOp()
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

// TransactResponse is the body returned after a successful transact.
type TransactResponse struct {
	BasisT  fact.TxID                `json:"basis_t"`
	TempIDs map[string]fact.EntityID `json:"temp_ids"`
}

// --- query ---

// TermDTO is the wire spelling of query.Term: exactly one of Var,
// Const, or Blank applies.
type TermDTO struct {
	Var   string      `json:"var,omitempty"`
	Const *fact.Value `json:"const,omitempty"`
	Blank bool        `json:"blank,omitempty"`
}

func (t TermDTO) toTerm() query.Term {
	switch {
	case t.Blank:
		return query.Blank()
	case t.Const != nil:
		return query.Const(*t.Const)
	default:
		return query.Var(t.Var)
	}
}

// PatternDTO is the wire spelling of query.Pattern. This HTTP surface
// only accepts a flat conjunction of patterns (the common
// introspection case); Or/Not/Predicate/RuleCall composition remains
// available to in-process callers via query.Execute directly.
type PatternDTO struct {
	E  TermDTO  `json:"e"`
	A  TermDTO  `json:"a"`
	V  TermDTO  `json:"v"`
	Tx *TermDTO `json:"tx,omitempty"`
}

func (p PatternDTO) toPattern() query.Pattern {
	pat := query.Pattern{E: p.E.toTerm(), A: p.A.toTerm(), V: p.V.toTerm()}
	if p.Tx != nil {
		pat.Tx = p.Tx.toTerm()
	}
	return pat
}

// QueryRequest is the body of POST /api/db/query.
type QueryRequest struct {
	Find  []string     `json:"find"`
	Where []PatternDTO `json:"where"`
}

func (q QueryRequest) toQuery() query.Query {
	where := make([]query.Clause, len(q.Where))
	for i, p := range q.Where {
		where[i] = p.toPattern()
	}
	return query.Query{Find: q.Find, Where: where}
}

// QueryResponse is the relation a query produced, row-major and
// positional against Vars.
type QueryResponse struct {
	Vars []string        `json:"vars"`
	Rows [][]fact.Value `json:"rows"`
}

// --- pull ---

// SpecDTO is the wire spelling of pull.Spec, discriminated by Kind:
// "attr", "wildcard", "nested", "reverse", "limit", or "default".
type SpecDTO struct {
	Kind    string         `json:"kind"`
	Attr    fact.Attribute `json:"attr,omitempty"`
	Sub     []SpecDTO      `json:"sub,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Default *fact.Value    `json:"default,omitempty"`
}

func (s SpecDTO) toSpec() (pull.Spec, error) {
	switch s.Kind {
	case "attr":
		return pull.AttrSpec{Attr: s.Attr}, nil
	case "wildcard":
		return pull.WildcardSpec{}, nil
	case "nested":
		sub, err := toSpecs(s.Sub)
		if err != nil {
			return nil, err
		}
		return pull.NestedSpec{Attr: s.Attr, Sub: sub}, nil
	case "reverse":
		sub, err := toSpecs(s.Sub)
		if err != nil {
			return nil, err
		}
		return pull.ReverseSpec{Attr: s.Attr, Sub: sub}, nil
	case "limit":
		return pull.LimitedSpec{Attr: s.Attr, N: s.Limit}, nil
	case "default":
		d := fact.Value{}
		if s.Default != nil {
			d = *s.Default
		}
		return pull.WithDefaultSpec{Attr: s.Attr, Default: d}, nil
	default:
		return nil, fmt.Errorf("unknown pull spec kind %q", s.Kind)
	}
}

func toSpecs(dtos []SpecDTO) ([]pull.Spec, error) {
	out := make([]pull.Spec, len(dtos))
	for i, d := range dtos {
		sp, err := d.toSpec()
		if err != nil {
			return nil, err
		}
		out[i] = sp
	}
	return out, nil
}

// PullRequest is the body of POST /api/db/pull.
type PullRequest struct {
	Entity fact.EntityID `json:"entity"`
	Specs  []SpecDTO     `json:"specs"`
}

// PullEntryDTO is the wire spelling of pull.Entry.
type PullEntryDTO struct {
	Attr  fact.Attribute `json:"attr"`
	Value PullValueDTO   `json:"value"`
}

// PullValueDTO is the wire spelling of pull.Value, discriminated by
// Kind: "scalar", "record", or "many".
type PullValueDTO struct {
	Kind   string         `json:"kind"`
	Scalar *fact.Value    `json:"scalar,omitempty"`
	Record []PullEntryDTO `json:"record,omitempty"`
	Many   []PullValueDTO `json:"many,omitempty"`
}

func toPullValueDTO(v pull.Value) PullValueDTO {
	switch v.Kind() {
	case pull.KindScalar:
		sv, _ := v.AsScalar()
		return PullValueDTO{Kind: "scalar", Scalar: &sv}
	case pull.KindRecord:
		rec, _ := v.AsRecord()
		out := make([]PullEntryDTO, len(rec))
		for i, e := range rec {
			out[i] = PullEntryDTO{Attr: e.Attr, Value: toPullValueDTO(e.Value)}
		}
		return PullValueDTO{Kind: "record", Record: out}
	case pull.KindMany:
		many, _ := v.AsMany()
		out := make([]PullValueDTO, len(many))
		for i, mv := range many {
			out[i] = toPullValueDTO(mv)
		}
		return PullValueDTO{Kind: "many", Many: out}
	default:
		return PullValueDTO{}
	}
}

func toPullEntryDTOs(entries []pull.Entry) []PullEntryDTO {
	out := make([]PullEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = PullEntryDTO{Attr: e.Attr, Value: toPullValueDTO(e.Value)}
	}
	return out
}
