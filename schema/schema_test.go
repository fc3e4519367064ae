package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/schema"
)

func TestWithAttr_ImmutableUpdate(t *testing.T) {
	base := schema.New(schema.Strict)
	withName, err := base.WithAttr(schema.AttributeSchema{
		Attribute:   ":person/name",
		ValueType:   fact.TagString,
		Cardinality: schema.CardinalityOne,
	})
	require.NoError(t, err)

	// GIVEN base had no attributes
	// WHEN we derive withName
	// THEN base is unaffected
	require.Equal(t, 0, base.Len())
	require.Equal(t, 1, withName.Len())

	_, ok := base.Lookup(":person/name")
	require.False(t, ok)

	def, ok := withName.Lookup(":person/name")
	require.True(t, ok)
	require.Equal(t, schema.CardinalityOne, def.Cardinality)
}

func TestWithAttr_RejectsReservedNames(t *testing.T) {
	s := schema.New(schema.Strict)
	_, err := s.WithAttr(schema.AttributeSchema{Attribute: fact.AttrTxInstant, ValueType: fact.TagInstant})
	require.Error(t, err)
}

func TestWithAttr_RejectsNonRefComponent(t *testing.T) {
	s := schema.New(schema.Strict)
	_, err := s.WithAttr(schema.AttributeSchema{
		Attribute: ":order/total",
		ValueType: fact.TagInt,
		Component: true,
	})
	require.Error(t, err)
}

func TestIndexedAttrs_AndComponentAttrs(t *testing.T) {
	s := schema.New(schema.NonStrict)
	s, err := s.WithAttr(schema.AttributeSchema{Attribute: ":person/email", ValueType: fact.TagString, Unique: schema.UniqueIdentity, Indexed: true})
	require.NoError(t, err)
	s, err = s.WithAttr(schema.AttributeSchema{Attribute: ":order/line-item", ValueType: fact.TagRef, Cardinality: schema.CardinalityMany, Component: true})
	require.NoError(t, err)

	require.ElementsMatch(t, []fact.Attribute{":person/email"}, s.IndexedAttrs())
	require.ElementsMatch(t, []fact.Attribute{":order/line-item"}, s.ComponentAttrs())
}
