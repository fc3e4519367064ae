package index_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/index"
)

func datom(e fact.EntityID, a fact.Attribute, v fact.Value, tx fact.TxID) fact.Datom {
	return fact.Datom{E: e, A: a, V: v, Tx: tx, Added: true}
}

func TestInsertAndScanEAVT(t *testing.T) {
	ix := index.Empty(true)
	ix.Insert(datom(1, ":person/name", fact.StringValue("Alice"), 1), true)
	ix.Insert(datom(2, ":person/name", fact.StringValue("Bob"), 1), true)
	ix.Insert(datom(1, ":person/age", fact.IntValue(30), 1), true)

	got := ix.DatomsForEntity(1)
	require.Len(t, got, 2)
	require.Equal(t, fact.Attribute(":person/age"), got[0].A)
	require.Equal(t, fact.Attribute(":person/name"), got[1].A)
}

func TestCloneIsIndependent(t *testing.T) {
	ix := index.Empty(true)
	ix.Insert(datom(1, ":person/name", fact.StringValue("Alice"), 1), true)

	clone := ix.Clone()
	clone.Insert(datom(2, ":person/name", fact.StringValue("Bob"), 2), true)

	require.Equal(t, 1, ix.Len())
	require.Equal(t, 2, clone.Len())
}

func TestRemoveDropsCurrentAndScans(t *testing.T) {
	ix := index.Empty(true)
	d := datom(1, ":person/name", fact.StringValue("Alice"), 1)
	ix.Insert(d, true)

	_, ok := ix.Current(d.Key())
	require.True(t, ok)

	ix.Remove(d, true)
	_, ok = ix.Current(d.Key())
	require.False(t, ok)
	require.Empty(t, ix.DatomsForEntity(1))
}

func TestDatomsForAttrValue(t *testing.T) {
	ix := index.Empty(true)
	ix.Insert(datom(1, ":person/email", fact.StringValue("a@x.com"), 1), true)
	ix.Insert(datom(2, ":person/email", fact.StringValue("b@x.com"), 1), true)

	got := ix.DatomsForAttrValue(":person/email", fact.StringValue("b@x.com"))
	require.Len(t, got, 1)
	require.Equal(t, fact.EntityID(2), got[0].E)
}

func TestDatomsReferencingEntity(t *testing.T) {
	ix := index.Empty(true)
	ix.Insert(datom(10, ":order/customer", fact.RefValue(1), 1), true)
	ix.Insert(datom(11, ":order/customer", fact.RefValue(2), 1), true)

	got := ix.DatomsReferencingEntity(1)
	require.Len(t, got, 1)
	require.Equal(t, fact.EntityID(10), got[0].E)
}
