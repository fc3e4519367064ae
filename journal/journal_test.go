package journal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/journal"
	"github.com/faktum-db/faktum/schema"
	"github.com/faktum-db/faktum/txn"
)

const attrName fact.Attribute = ":person/name"

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	sc := schema.New(schema.NonStrict)
	sc, err := sc.WithAttr(schema.AttributeSchema{Attribute: attrName, ValueType: fact.TagString, Cardinality: schema.CardinalityOne})
	require.NoError(t, err)
	return sc
}

func TestOpen_FreshPathsStartEmpty(t *testing.T) {
	dir := t.TempDir()
	pc, err := journal.Open(filepath.Join(dir, "snap.json"), filepath.Join(dir, "journal.log"), testSchema(t))
	require.NoError(t, err)
	defer pc.Close()

	require.Equal(t, fact.GenesisTx, pc.Current().BasisT())
	require.Equal(t, 0, pc.Current().Size())
}

func TestTransactThenReopen_RecoversState(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snap.json")
	journalPath := filepath.Join(dir, "journal.log")
	sc := testSchema(t)

	pc, err := journal.Open(snapPath, journalPath, sc)
	require.NoError(t, err)

	_, ids, err := pc.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
	})
	require.NoError(t, err)
	alice := ids["alice"]

	_, _, err = pc.Transact([]txn.Op{
		txn.Add{E: txn.ID(alice), A: attrName, V: txn.Lit(fact.StringValue("Alicia"))},
	})
	require.NoError(t, err)
	require.NoError(t, pc.Close())

	reopened, err := journal.Open(snapPath, journalPath, sc)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok := reopened.Current().GetOne(alice, attrName)
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "Alicia", s)
	require.Equal(t, fact.TxID(fact.GenesisTx+2), reopened.Current().BasisT())
}

// TestTransact_JournalLineCarriesTxInstant asserts the durable
// journal line actually records :db/txInstant under its documented
// wire key, not just the in-memory Connection.
func TestTransact_JournalLineCarriesTxInstant(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snap.json")
	journalPath := filepath.Join(dir, "journal.log")
	sc := testSchema(t)

	pc, err := journal.Open(snapPath, journalPath, sc)
	require.NoError(t, err)

	_, _, err = pc.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
	})
	require.NoError(t, err)
	require.NoError(t, pc.Close())

	raw, err := os.ReadFile(journalPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"txId"`)
	require.Contains(t, string(raw), `"instant"`)
	require.Contains(t, string(raw), `"datoms"`)
	require.NotContains(t, string(raw), `"Instant"`)

	entry, ok := pc.Connection().TxEntry(fact.GenesisTx + 1)
	require.True(t, ok)
	require.False(t, entry.Instant.IsZero())
}

func TestCompact_PreservesStateAndTruncatesJournal(t *testing.T) {
	dir := t.TempDir()
	snapPath := filepath.Join(dir, "snap.json")
	journalPath := filepath.Join(dir, "journal.log")
	sc := testSchema(t)

	pc, err := journal.Open(snapPath, journalPath, sc)
	require.NoError(t, err)

	_, ids, err := pc.Transact([]txn.Op{
		txn.Add{E: txn.Temp("alice"), A: attrName, V: txn.Lit(fact.StringValue("Alice"))},
	})
	require.NoError(t, err)
	alice := ids["alice"]

	compactor := journal.NewCompactor(snapPath, journalPath, 0)
	require.NoError(t, compactor.Compact(pc.Connection()))

	_, _, err = pc.Transact([]txn.Op{
		txn.Add{E: txn.ID(alice), A: attrName, V: txn.Lit(fact.StringValue("Alicia"))},
	})
	require.NoError(t, err)
	require.NoError(t, pc.Close())

	reopened, err := journal.Open(snapPath, journalPath, sc)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok := reopened.Current().GetOne(alice, attrName)
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "Alicia", s)
}
