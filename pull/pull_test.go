package pull_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faktum-db/faktum/db"
	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/pull"
	"github.com/faktum-db/faktum/schema"
	"github.com/faktum-db/faktum/txn"
)

const (
	attrName   fact.Attribute = ":person/name"
	attrFriend fact.Attribute = ":person/friend"
	attrTag    fact.Attribute = ":person/tag"
)

func openConn(t *testing.T) *db.Connection {
	t.Helper()
	sc := schema.New(schema.NonStrict)
	sc, err := sc.WithAttr(schema.AttributeSchema{Attribute: attrName, ValueType: fact.TagString, Cardinality: schema.CardinalityOne})
	require.NoError(t, err)
	sc, err = sc.WithAttr(schema.AttributeSchema{Attribute: attrFriend, ValueType: fact.TagRef, Cardinality: schema.CardinalityMany})
	require.NoError(t, err)
	sc, err = sc.WithAttr(schema.AttributeSchema{Attribute: attrTag, ValueType: fact.TagString, Cardinality: schema.CardinalityMany})
	require.NoError(t, err)
	return db.Create(sc)
}

func TestOne_AttrAndWildcard(t *testing.T) {
	conn := openConn(t)
	_, ids, err := conn.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
		txn.Add{E: txn.Temp("alice"), A: attrTag, V: txn.Lit(fact.StringValue("admin"))},
		txn.Add{E: txn.Temp("alice"), A: attrTag, V: txn.Lit(fact.StringValue("staff"))},
	})
	require.NoError(t, err)
	alice := ids["alice"]

	entries := pull.One(conn.Current(), alice, []pull.Spec{pull.WildcardSpec{}})
	require.Len(t, entries, 2)
	for _, e := range entries {
		switch e.Attr {
		case attrName:
			v, ok := e.Value.AsScalar()
			require.True(t, ok)
			s, _ := v.AsString()
			require.Equal(t, "Alice", s)
		case attrTag:
			vs, ok := e.Value.AsMany()
			require.True(t, ok)
			require.Len(t, vs, 2)
		default:
			t.Fatalf("unexpected attribute %s", e.Attr)
		}
	}
}

func TestOne_NestedReference(t *testing.T) {
	conn := openConn(t)
	_, ids, err := conn.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
		txn.Add{E: txn.Temp("bob"), A: attrName, V: txn.Lit(fact.StringValue("Bob"))},
		txn.Add{E: txn.Temp("alice"), A: attrFriend, V: txn.Ref(txn.Temp("bob"))},
	})
	require.NoError(t, err)
	alice := ids["alice"]

	entries := pull.One(conn.Current(), alice, []pull.Spec{
		pull.AttrSpec{Attr: attrName},
		pull.NestedSpec{Attr: attrFriend, Sub: []pull.Spec{pull.AttrSpec{Attr: attrName}}},
	})
	require.Len(t, entries, 2)
	require.Equal(t, attrFriend, entries[1].Attr)
	many, ok := entries[1].Value.AsMany()
	require.True(t, ok)
	require.Len(t, many, 1)
	rec, ok := many[0].AsRecord()
	require.True(t, ok)
	s, _ := rec[0].Value.AsScalar()
	name, _ := s.AsString()
	require.Equal(t, "Bob", name)
}

func TestOne_ReverseReference(t *testing.T) {
	conn := openConn(t)
	_, ids, err := conn.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
		txn.Add{E: txn.Temp("bob"), A: attrName, V: txn.Lit(fact.StringValue("Bob"))},
		txn.Add{E: txn.Temp("alice"), A: attrFriend, V: txn.Ref(txn.Temp("bob"))},
	})
	require.NoError(t, err)
	bob := ids["bob"]

	entries := pull.One(conn.Current(), bob, []pull.Spec{
		pull.ReverseSpec{Attr: attrFriend, Sub: []pull.Spec{pull.AttrSpec{Attr: attrName}}},
	})
	require.Len(t, entries, 1)
	rec, ok := entries[0].Value.AsRecord()
	require.True(t, ok)
	s, _ := rec[0].Value.AsScalar()
	name, _ := s.AsString()
	require.Equal(t, "Alice", name)
}

func TestOne_CycleReturnsIDOnly(t *testing.T) {
	conn := openConn(t)
	_, ids, err := conn.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
		txn.Add{E: txn.Temp("bob"), A: attrName, V: txn.Lit(fact.StringValue("Bob"))},
		txn.Add{E: txn.Temp("alice"), A: attrFriend, V: txn.Ref(txn.Temp("bob"))},
		txn.Add{E: txn.Temp("bob"), A: attrFriend, V: txn.Ref(txn.Temp("alice"))},
	})
	require.NoError(t, err)
	alice := ids["alice"]

	spec := []pull.Spec{pull.AttrSpec{Attr: attrName}}
	var nested pull.Spec
	nested = pull.NestedSpec{Attr: attrFriend, Sub: append(spec, pull.NestedSpec{Attr: attrFriend, Sub: spec})}
	entries := pull.One(conn.Current(), alice, []pull.Spec{nested})
	require.Len(t, entries, 1)

	friendMany, ok := entries[0].Value.AsMany()
	require.True(t, ok)
	require.Len(t, friendMany, 1)
	friendRec, ok := friendMany[0].AsRecord()
	require.True(t, ok)
	var innerFriendEntry *pull.Entry
	for i := range friendRec {
		if friendRec[i].Attr == attrFriend {
			innerFriendEntry = &friendRec[i]
		}
	}
	require.NotNil(t, innerFriendEntry)
	innerMany, ok := innerFriendEntry.Value.AsMany()
	require.True(t, ok)
	require.Len(t, innerMany, 1)
	innerRec, ok := innerMany[0].AsRecord()
	require.True(t, ok)
	require.Len(t, innerRec, 1)
	require.Equal(t, fact.Attribute(":db/id"), innerRec[0].Attr)
}

func TestOne_WithDefault(t *testing.T) {
	conn := openConn(t)
	_, ids, err := conn.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
	})
	require.NoError(t, err)
	alice := ids["alice"]

	entries := pull.One(conn.Current(), alice, []pull.Spec{
		pull.WithDefaultSpec{Attr: ":person/nickname", Default: fact.StringValue("none")},
	})
	require.Len(t, entries, 1)
	v, ok := entries[0].Value.AsScalar()
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "none", s)
}
