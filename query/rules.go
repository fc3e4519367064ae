package query

import (
	"fmt"

	"github.com/faktum-db/faktum/index"
)

// ruleGroup collects every RuleDef sharing one (name, arity): the
// disjunctive-rule shape, where a rule is defined by two or more
// independent clauses (e.g. a base case and a recursive case, each
// its own RuleDef named "ancestor"). params is the canonical
// parameter-name list callers and the solved relation are keyed by;
// each def may use its own internal variable names; they are renamed
// onto params positionally after evaluation.
type ruleGroup struct {
	name   string
	params []string
	defs   []RuleDef
}

func ruleKey(name string, arity int) string {
	return fmt.Sprintf("%s/%d", name, arity)
}

// groupRuleDefs partitions rules by (name, arity). All later lookups
// -- ctx.groups, ctx.solved, RuleCall resolution -- key off the same
// ruleKey, so every definition sharing a name and arity is evaluated
// and unioned together rather than only the last one seen.
func groupRuleDefs(rules []RuleDef) map[string]ruleGroup {
	groups := make(map[string]ruleGroup, len(rules))
	for _, r := range rules {
		key := ruleKey(r.Name, len(r.Params))
		g, ok := groups[key]
		if !ok {
			g = ruleGroup{name: r.Name, params: append([]string{}, r.Params...)}
		}
		g.defs = append(g.defs, r)
		groups[key] = g
	}
	return groups
}

// renameRelationVars maps rel's tuples onto newVars positionally
// (rel.Vars[i] -> newVars[i]), used to align a def's own internal
// variable names onto its rule group's canonical params.
func renameRelationVars(rel Relation, newVars []string) Relation {
	out := Relation{Vars: append([]string{}, newVars...)}
	for _, t := range rel.Tuples {
		nb := make(Binding, len(newVars))
		for i, from := range rel.Vars {
			if i >= len(newVars) {
				break
			}
			nb[newVars[i]] = t[from]
		}
		out.Tuples = append(out.Tuples, nb)
	}
	return out
}

// solveRules computes the least fixpoint of every rule group
// simultaneously, so mutually recursive rules (including a rule
// calling itself, and a rule defined disjunctively across several
// RuleDefs) resolve correctly: each round re-evaluates every
// definition's body against the previous round's approximation for
// any nested RuleCall, unions every definition in a group into that
// group's running relation, and the whole pass repeats until no
// group's relation grows -- the standard bottom-up construction of
// the least fixpoint for a stratified (non-negated-recursive) rule
// set. It trades the incremental delta-propagation a production
// evaluator would do for a full re-evaluation each round, simpler to
// reason about and still correct, just not the fastest possible plan
// for deep recursion.
func solveRules(ix *index.Indexes, groups map[string]ruleGroup) (map[string]Relation, error) {
	current := make(map[string]Relation, len(groups))
	for key, g := range groups {
		current[key] = Relation{Vars: append([]string{}, g.params...)}
	}

	for {
		grew := false
		next := make(map[string]Relation, len(current))
		for key, rel := range current {
			next[key] = rel
		}
		for key, g := range groups {
			union := Relation{Vars: g.params}
			for _, def := range g.defs {
				ctx := &execContext{ix: ix, groups: groups, solved: current}
				result, err := executeClause(ctx, def.Body, unit())
				if err != nil {
					return nil, err
				}
				projected := project(result, def.Params)
				union = unionRelations(union, renameRelationVars(projected, g.params))
			}
			merged := unionRelations(current[key], union)
			if len(merged.Tuples) != len(current[key].Tuples) {
				grew = true
			}
			next[key] = merged
		}
		current = next
		if !grew {
			break
		}
	}
	return current, nil
}

func unionRelations(a, b Relation) Relation {
	out := Relation{Vars: a.Vars, Tuples: append([]Binding{}, a.Tuples...)}
	for _, t := range b.Tuples {
		dup := false
		for _, s := range out.Tuples {
			if t.Equal(s) {
				dup = true
				break
			}
		}
		if !dup {
			out.Tuples = append(out.Tuples, t)
		}
	}
	return out
}
