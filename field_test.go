package deltamap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewField(t *testing.T) {
	checkErr := errors.New("too short")
	f := NewField("name", KindString,
		WithCoerce(),
		WithCheck(func(v any) error {
			if len(v.(string)) < 3 {
				return checkErr
			}
			return nil
		}),
		AsHashKey(),
	)

	assert.Equal(t, "name", f.Name)
	assert.Equal(t, KindString, f.Kind)
	assert.True(t, f.Coerce)
	assert.Equal(t, KeyHash, f.Role)
	require.NotNil(t, f.Check)
	assert.ErrorIs(t, f.Check("ab"), checkErr)
	assert.NoError(t, f.Check("abc"))
}

func TestNewSchema(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		s, err := NewSchema("Widget", []Field{
			NewField("id", KindString, AsHashKey()),
			NewField("ts", KindNumber, AsRangeKey()),
			NewField("tags", KindStringSet),
		})
		require.NoError(t, err)
		assert.Equal(t, "Widget", s.Name())
		assert.Equal(t, "id", s.HashKey().Name)

		rangeField, ok := s.RangeKey()
		assert.True(t, ok)
		assert.Equal(t, "ts", rangeField.Name)

		names := []string{}
		for _, f := range s.Fields() {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"id", "ts", "tags"}, names)

		_, ok = s.Field("missing")
		assert.False(t, ok)
	})

	t.Run("no hash key", func(t *testing.T) {
		_, err := NewSchema("Widget", []Field{NewField("id", KindString)})
		assert.ErrorContains(t, err, "no hash key")
	})

	t.Run("duplicate hash key", func(t *testing.T) {
		_, err := NewSchema("Widget", []Field{
			NewField("a", KindString, AsHashKey()),
			NewField("b", KindString, AsHashKey()),
		})
		assert.ErrorContains(t, err, "hash key declared on both")
	})

	t.Run("duplicate field name", func(t *testing.T) {
		_, err := NewSchema("Widget", []Field{
			NewField("id", KindString, AsHashKey()),
			NewField("id", KindNumber),
		})
		assert.ErrorContains(t, err, "duplicate field")
	})

	t.Run("non-scalar key kind", func(t *testing.T) {
		_, err := NewSchema("Widget", []Field{
			NewField("tags", KindStringSet, AsHashKey()),
		})
		assert.ErrorContains(t, err, "cannot be a key")
	})

	t.Run("empty field name", func(t *testing.T) {
		_, err := NewSchema("Widget", []Field{NewField("", KindString, AsHashKey())})
		assert.ErrorContains(t, err, "empty name")
	})
}

func TestSchemaGlobalIndexes(t *testing.T) {
	t.Run("index memberships land on the fields", func(t *testing.T) {
		s, err := NewSchema("Widget", []Field{
			NewField("id", KindString, AsHashKey()),
			NewField("owner", KindString),
			NewField("score", KindNumber),
		}, WithGlobalIndex(GlobalIndex{
			Name:       "owner-score-index",
			HashField:  "owner",
			RangeField: "score",
		}))
		require.NoError(t, err)

		indexes := s.Indexes()
		require.Len(t, indexes, 1)
		assert.Equal(t, "owner-score-index", indexes[0].Name)

		owner, _ := s.Field("owner")
		require.Len(t, owner.Indexes, 1)
		assert.Equal(t, IndexRef{Name: "owner-score-index", Role: KeyHash}, owner.Indexes[0])

		score, _ := s.Field("score")
		require.Len(t, score.Indexes, 1)
		assert.Equal(t, KeyRange, score.Indexes[0].Role)
	})

	t.Run("undeclared index field", func(t *testing.T) {
		_, err := NewSchema("Widget", []Field{
			NewField("id", KindString, AsHashKey()),
		}, WithGlobalIndex(GlobalIndex{Name: "idx", HashField: "missing"}))
		assert.ErrorContains(t, err, "undeclared field")
	})

	t.Run("non-scalar index key", func(t *testing.T) {
		_, err := NewSchema("Widget", []Field{
			NewField("id", KindString, AsHashKey()),
			NewField("tags", KindStringSet),
		}, WithGlobalIndex(GlobalIndex{Name: "idx", HashField: "tags"}))
		assert.ErrorContains(t, err, "non-scalar kind")
	})
}
