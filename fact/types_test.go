package fact_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faktum-db/faktum/fact"
)

func TestValueCompare_TagOrdering(t *testing.T) {
	// GIVEN one value per variant, in tag order
	// WHEN compared pairwise
	// THEN each sorts strictly before the next
	values := []fact.Value{
		fact.IntValue(100),
		fact.FloatValue(-9999.9),
		fact.StringValue("zzz"),
		fact.BoolValue(true),
		fact.InstantValue(0),
		fact.RefValue(1),
		fact.KeywordValue(":a"),
		fact.BytesValue([]byte{0xff}),
	}
	for i := 0; i < len(values)-1; i++ {
		require.Equal(t, -1, values[i].Compare(values[i+1]), "variant %d should sort before %d", i, i+1)
	}
}

func TestValueCompare_FloatTotalOrder(t *testing.T) {
	neg := fact.FloatValue(-5.5)
	zero := fact.FloatValue(0)
	pos := fact.FloatValue(5.5)

	require.Equal(t, -1, neg.Compare(zero))
	require.Equal(t, -1, zero.Compare(pos))
	require.Equal(t, -1, neg.Compare(pos))
	require.True(t, pos.Compare(neg) > 0)
}

func TestValueCompare_SameVariant(t *testing.T) {
	require.Equal(t, -1, fact.IntValue(1).Compare(fact.IntValue(2)))
	require.Equal(t, 0, fact.IntValue(5).Compare(fact.IntValue(5)))
	require.Equal(t, 1, fact.StringValue("b").Compare(fact.StringValue("a")))
	require.Equal(t, -1, fact.BoolValue(false).Compare(fact.BoolValue(true)))
}

func TestValueAccessors_WrongVariant(t *testing.T) {
	v := fact.IntValue(42)
	_, ok := v.AsString()
	require.False(t, ok)

	n, ok := v.AsInt()
	require.True(t, ok)
	require.Equal(t, int64(42), n)
}

func TestEntityID_TempVsPermanent(t *testing.T) {
	require.True(t, fact.EntityID(-1).IsTemp())
	require.False(t, fact.EntityID(1).IsTemp())
	require.False(t, fact.NullEntity.IsTemp())
}

func TestDatomKey_IgnoresTxAndAdded(t *testing.T) {
	d1 := fact.Datom{E: 1, A: ":person/name", V: fact.StringValue("Alice"), Tx: 1, Added: true}
	d2 := fact.Datom{E: 1, A: ":person/name", V: fact.StringValue("Alice"), Tx: 5, Added: false}
	require.Equal(t, d1.Key(), d2.Key())
}
