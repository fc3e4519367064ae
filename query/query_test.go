package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/index"
	"github.com/faktum-db/faktum/query"
)

const (
	attrName   fact.Attribute = ":person/name"
	attrAge    fact.Attribute = ":person/age"
	attrParent fact.Attribute = ":person/parent"
)

func addDatom(t *testing.T, ix *index.Indexes, e fact.EntityID, a fact.Attribute, v fact.Value, tx fact.TxID) {
	t.Helper()
	ix.Insert(fact.Datom{E: e, A: a, V: v, Tx: tx, Added: true}, true)
}

func familyIndexes(t *testing.T) *index.Indexes {
	t.Helper()
	ix := index.Empty(true)
	addDatom(t, ix, 1, attrName, fact.StringValue("Alice"), 1)
	addDatom(t, ix, 1, attrAge, fact.IntValue(61), 1)
	addDatom(t, ix, 2, attrName, fact.StringValue("Bob"), 1)
	addDatom(t, ix, 2, attrAge, fact.IntValue(40), 1)
	addDatom(t, ix, 2, attrParent, fact.RefValue(1), 1)
	addDatom(t, ix, 3, attrName, fact.StringValue("Carol"), 1)
	addDatom(t, ix, 3, attrAge, fact.IntValue(12), 1)
	addDatom(t, ix, 3, attrParent, fact.RefValue(2), 1)
	return ix
}

func TestExecute_SimplePatternJoin(t *testing.T) {
	ix := familyIndexes(t)
	q := query.Query{
		Find: []string{"?name"},
		Where: []query.Clause{
			query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrParent))), V: query.Const(fact.RefValue(1))},
			query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrName))), V: query.Var("?name")},
		},
	}
	rel, err := query.Execute(ix, q)
	require.NoError(t, err)
	require.Len(t, rel.Tuples, 1)
	require.Equal(t, fact.StringValue("Bob"), rel.Tuples[0]["?name"])
}

func TestExecute_OrUnion(t *testing.T) {
	ix := familyIndexes(t)
	q := query.Query{
		Find: []string{"?name"},
		Where: []query.Clause{
			query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrName))), V: query.Var("?name")},
			query.Or{Clauses: []query.Clause{
				query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrAge))), V: query.Const(fact.IntValue(61))},
				query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrAge))), V: query.Const(fact.IntValue(12))},
			}},
		},
	}
	rel, err := query.Execute(ix, q)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, t := range rel.Tuples {
		s, _ := t["?name"].AsString()
		names[s] = true
	}
	require.Equal(t, map[string]bool{"Alice": true, "Carol": true}, names)
}

func TestExecute_NotExcludesMatching(t *testing.T) {
	ix := familyIndexes(t)
	q := query.Query{
		Find: []string{"?name"},
		Where: []query.Clause{
			query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrName))), V: query.Var("?name")},
			query.Not{Clause: query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrParent))), V: query.Blank()}},
		},
	}
	rel, err := query.Execute(ix, q)
	require.NoError(t, err)
	require.Len(t, rel.Tuples, 1)
	require.Equal(t, fact.StringValue("Alice"), rel.Tuples[0]["?name"])
}

func TestExecute_PredicateFiltersByAge(t *testing.T) {
	ix := familyIndexes(t)
	q := query.Query{
		Find: []string{"?name"},
		Where: []query.Clause{
			query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrAge))), V: query.Var("?age")},
			query.Pattern{E: query.Var("?e"), A: query.Const(fact.KeywordValue(string(attrName))), V: query.Var("?name")},
			query.Predicate{Expr: query.ExprCall{Op: ">", Args: []query.Expr{query.ExprVar{Name: "?age"}, query.ExprConst{Value: fact.IntValue(18)}}}},
		},
	}
	rel, err := query.Execute(ix, q)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, t := range rel.Tuples {
		s, _ := t["?name"].AsString()
		names[s] = true
	}
	require.Equal(t, map[string]bool{"Alice": true, "Bob": true}, names)
}

func TestExecute_RecursiveAncestorRule(t *testing.T) {
	ix := familyIndexes(t)
	ancestor := query.RuleDef{
		Name:   "ancestor",
		Params: []string{"?a", "?d"},
		Body: query.Or{Clauses: []query.Clause{
			query.Pattern{E: query.Var("?d"), A: query.Const(fact.KeywordValue(string(attrParent))), V: query.Var("?a")},
			query.And{Clauses: []query.Clause{
				query.Pattern{E: query.Var("?d"), A: query.Const(fact.KeywordValue(string(attrParent))), V: query.Var("?mid")},
				query.RuleCall{Name: "ancestor", Args: []query.Term{query.Var("?a"), query.Var("?mid")}},
			}},
		}},
	}
	q := query.Query{
		Find:  []string{"?name"},
		Rules: []query.RuleDef{ancestor},
		Where: []query.Clause{
			query.RuleCall{Name: "ancestor", Args: []query.Term{query.Var("?a"), query.Const(fact.RefValue(3))}},
			query.Pattern{E: query.Var("?a"), A: query.Const(fact.KeywordValue(string(attrName))), V: query.Var("?name")},
		},
	}
	rel, err := query.Execute(ix, q)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, t := range rel.Tuples {
		s, _ := t["?name"].AsString()
		names[s] = true
	}
	require.Equal(t, map[string]bool{"Alice": true, "Bob": true}, names)
}

// TestExecute_DisjunctiveRuleDefs mirrors a rule written as two
// separate RuleDef entries sharing one name and arity -- a base case
// and a recursive case -- rather than folded into one Or, since both
// shapes must be equivalent.
func TestExecute_DisjunctiveRuleDefs(t *testing.T) {
	ix := familyIndexes(t)
	base := query.RuleDef{
		Name:   "ancestor",
		Params: []string{"?x", "?y"},
		Body:   query.Pattern{E: query.Var("?y"), A: query.Const(fact.KeywordValue(string(attrParent))), V: query.Var("?x")},
	}
	recursive := query.RuleDef{
		Name:   "ancestor",
		Params: []string{"?x", "?y"},
		Body: query.And{Clauses: []query.Clause{
			query.Pattern{E: query.Var("?y"), A: query.Const(fact.KeywordValue(string(attrParent))), V: query.Var("?z")},
			query.RuleCall{Name: "ancestor", Args: []query.Term{query.Var("?x"), query.Var("?z")}},
		}},
	}
	q := query.Query{
		Find:  []string{"?x", "?y"},
		Rules: []query.RuleDef{base, recursive},
		Where: []query.Clause{
			query.RuleCall{Name: "ancestor", Args: []query.Term{query.Var("?x"), query.Var("?y")}},
		},
	}
	rel, err := query.Execute(ix, q)
	require.NoError(t, err)
	require.Len(t, rel.Tuples, 3) // (A,B), (B,C), (A,C)
}

func TestAggregate_CountAndSumByGroup(t *testing.T) {
	rel := query.Relation{
		Vars: []string{"?team", "?score"},
		Tuples: []query.Binding{
			{"?team": fact.StringValue("red"), "?score": fact.IntValue(3)},
			{"?team": fact.StringValue("red"), "?score": fact.IntValue(5)},
			{"?team": fact.StringValue("blue"), "?score": fact.IntValue(10)},
		},
	}
	out := query.Aggregate(rel, []string{"?team"}, []query.AggregateSpec{
		{Fn: query.AggCount, As: "?n"},
		{Fn: query.AggSum, Var: "?score", As: "?total"},
	})
	byTeam := map[string]query.Binding{}
	for _, tup := range out.Tuples {
		team, _ := tup["?team"].AsString()
		byTeam[team] = tup
	}
	red := byTeam["red"]
	n, _ := red["?n"].AsInt()
	total, _ := red["?total"].AsInt()
	require.Equal(t, int64(2), n)
	require.Equal(t, int64(8), total)

	blue := byTeam["blue"]
	btotal, _ := blue["?total"].AsInt()
	require.Equal(t, int64(10), btotal)
}

// TestAggregate_SkipsUnboundValues covers a group where one tuple has
// no binding at all for the aggregated var (as an Or branch that never
// touches it would produce) -- sum, avg, min and max must all behave
// as if that tuple were absent rather than contributing a zero.
func TestAggregate_SkipsUnboundValues(t *testing.T) {
	rel := query.Relation{
		Vars: []string{"?team", "?score"},
		Tuples: []query.Binding{
			{"?team": fact.StringValue("red"), "?score": fact.IntValue(10)},
			{"?team": fact.StringValue("red")},
			{"?team": fact.StringValue("red"), "?score": fact.IntValue(20)},
		},
	}
	out := query.Aggregate(rel, []string{"?team"}, []query.AggregateSpec{
		{Fn: query.AggSum, Var: "?score", As: "?total"},
		{Fn: query.AggAvg, Var: "?score", As: "?avg"},
		{Fn: query.AggMin, Var: "?score", As: "?min"},
		{Fn: query.AggMax, Var: "?score", As: "?max"},
	})
	require.Len(t, out.Tuples, 1)
	row := out.Tuples[0]

	total, _ := row["?total"].AsInt()
	require.Equal(t, int64(30), total)

	avg, _ := row["?avg"].AsFloat()
	require.Equal(t, 15.0, avg)

	min, _ := row["?min"].AsInt()
	require.Equal(t, int64(10), min)

	max, _ := row["?max"].AsInt()
	require.Equal(t, int64(20), max)
}

func TestPredicate_DivisionByZeroFailsRatherThanErrors(t *testing.T) {
	b := query.Binding{"?x": fact.IntValue(5), "?zero": fact.IntValue(0)}
	expr := query.ExprCall{Op: "=", Args: []query.Expr{
		query.ExprCall{Op: "/", Args: []query.Expr{query.ExprVar{Name: "?x"}, query.ExprVar{Name: "?zero"}}},
		query.ExprConst{Value: fact.IntValue(1)},
	}}
	ok, err := query.EvalBool(expr, b)
	require.NoError(t, err)
	require.False(t, ok)
}
