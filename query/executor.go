package query

import (
	"fmt"

	"github.com/faktum-db/faktum/index"
)

// execContext carries the read-only state a clause evaluation needs:
// the index set to scan, and every rule group available to a
// RuleCall, already solved to its full extension for this query.
type execContext struct {
	ix     *index.Indexes
	groups map[string]ruleGroup
	solved map[string]Relation
}

func executeClause(ctx *execContext, clause Clause, rel Relation) (Relation, error) {
	switch c := clause.(type) {
	case Pattern:
		return executePattern(ctx.ix, c, rel), nil
	case And:
		return executeAnd(ctx, c.Clauses, rel)
	case Or:
		return executeOr(ctx, c.Clauses, rel)
	case Not:
		return executeNot(ctx, c.Clause, rel)
	case Predicate:
		return executePredicate(c.Expr, rel)
	case RuleCall:
		return executeRuleCall(ctx, c, rel)
	default:
		return Relation{}, fmt.Errorf("query: unsupported clause type %T", clause)
	}
}

// clauseBoundScore estimates how selective evaluating c would be given
// the variables already bound in vars: patterns and rule calls score
// by how many of their terms are already pinned, so the most
// constrained one runs first and narrows the join as early as
// possible. Not/Predicate clauses have nothing to seek on and are
// always deferred until their dependencies are bound by something
// else in the same And.
func clauseBoundScore(c Clause, vars []string) int {
	switch cc := c.(type) {
	case Pattern:
		return boundPositions([]Term{cc.E, cc.A, cc.V}, vars)
	case RuleCall:
		return boundPositions(cc.Args, vars)
	default:
		return -1
	}
}

// executeAnd greedily reorders clauses by descending bound-position
// count at each step (the variables bound grow after every clause, so
// the best next clause can change), then folds them via join.
func executeAnd(ctx *execContext, clauses []Clause, rel Relation) (Relation, error) {
	remaining := append([]Clause{}, clauses...)
	cur := rel
	for len(remaining) > 0 {
		bestIdx, bestScore := 0, clauseBoundScore(remaining[0], cur.Vars)
		for i := 1; i < len(remaining); i++ {
			if score := clauseBoundScore(remaining[i], cur.Vars); score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		chosen := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)

		next, err := executeClause(ctx, chosen, cur)
		if err != nil {
			return Relation{}, err
		}
		cur = next
	}
	return cur, nil
}

// executeOr evaluates every branch independently from rel, then
// unions their results projected down to the variables every branch
// has in common (which always includes whatever rel already bound,
// since every branch starts from rel and clauses only ever add
// variables).
func executeOr(ctx *execContext, clauses []Clause, rel Relation) (Relation, error) {
	if len(clauses) == 0 {
		return rel, nil
	}
	branches := make([]Relation, len(clauses))
	for i, c := range clauses {
		br, err := executeClause(ctx, c, rel)
		if err != nil {
			return Relation{}, err
		}
		branches[i] = br
	}

	common := branches[0].Vars
	for _, br := range branches[1:] {
		var kept []string
		for _, v := range common {
			if containsVar(br.Vars, v) {
				kept = append(kept, v)
			}
		}
		common = kept
	}

	out := Relation{Vars: common}
	for _, br := range branches {
		projected := project(br, common)
		for _, t := range projected.Tuples {
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
	}
	return out, nil
}

// executeNot keeps exactly the tuples of rel for which inner has no
// solution (negation as failure); it never introduces new variables.
func executeNot(ctx *execContext, inner Clause, rel Relation) (Relation, error) {
	out := Relation{Vars: rel.Vars}
	for _, t := range rel.Tuples {
		probe := Relation{Vars: rel.Vars, Tuples: []Binding{t}}
		sub, err := executeClause(ctx, inner, probe)
		if err != nil {
			return Relation{}, err
		}
		if len(sub.Tuples) == 0 {
			out.Tuples = append(out.Tuples, t)
		}
	}
	return out, nil
}

func executePredicate(expr Expr, rel Relation) (Relation, error) {
	out := Relation{Vars: rel.Vars}
	for _, t := range rel.Tuples {
		ok, err := EvalBool(expr, t)
		if err != nil {
			return Relation{}, err
		}
		if ok {
			out.Tuples = append(out.Tuples, t)
		}
	}
	return out, nil
}

// executeRuleCall renames the rule group's already-solved relation
// (keyed by its canonical params) onto the call's argument terms -- a
// Const argument filters to matching rows, a Var argument renames
// that column, a Blank drops it -- then joins the result with rel so
// that any argument variable already bound coming in is enforced by
// the generic join, exactly like a Pattern would be. A rule name with
// more than one RuleDef (the disjunctive-rule shape, e.g. two
// separate ancestor/2 definitions) was already unioned into one
// relation by solveRules, so the call site never needs to know how
// many definitions contributed to it.
func executeRuleCall(ctx *execContext, call RuleCall, rel Relation) (Relation, error) {
	key := ruleKey(call.Name, len(call.Args))
	g, ok := ctx.groups[key]
	if !ok {
		return Relation{}, fmt.Errorf("query: unknown rule %q with %d argument(s)", call.Name, len(call.Args))
	}
	solved, ok := ctx.solved[key]
	if !ok {
		return Relation{}, fmt.Errorf("query: rule %q has no computed relation", call.Name)
	}

	var outVars []string
	for _, arg := range call.Args {
		if arg.IsVar() && !containsVar(outVars, arg.Name()) {
			outVars = append(outVars, arg.Name())
		}
	}

	renamed := Relation{Vars: outVars}
tuples:
	for _, t := range solved.Tuples {
		nb := make(Binding, len(outVars))
		for i, p := range g.params {
			arg := call.Args[i]
			val := t[p]
			switch {
			case arg.IsConst():
				if !arg.Value().Equal(val) {
					continue tuples
				}
			case arg.IsVar():
				if existing, ok := nb[arg.Name()]; ok && !existing.Equal(val) {
					continue tuples
				}
				nb[arg.Name()] = val
			}
		}
		renamed.Tuples = append(renamed.Tuples, nb)
	}
	return join(rel, renamed), nil
}

// Execute runs q against ix, first solving every rule q.Rules defines
// to its full fixpoint extension, then folding q.Where as an implicit
// And starting from the unit relation, and finally projecting down to
// q.Find.
func Execute(ix *index.Indexes, q Query) (Relation, error) {
	groups := groupRuleDefs(q.Rules)
	solved, err := solveRules(ix, groups)
	if err != nil {
		return Relation{}, err
	}
	ctx := &execContext{ix: ix, groups: groups, solved: solved}

	rel, err := executeAnd(ctx, q.Where, unit())
	if err != nil {
		return Relation{}, err
	}
	return project(rel, q.Find), nil
}
