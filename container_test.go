package deltamap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTracking(t *testing.T) {
	t.Run("fresh list is clean", func(t *testing.T) {
		l := NewList("a", "b")
		assert.False(t, l.isDirty())
		assert.Equal(t, 2, l.Len())
	})

	t.Run("append marks dirty", func(t *testing.T) {
		l := NewList()
		l.Append("x")
		assert.True(t, l.isDirty())
		assert.Equal(t, "x", l.Get(0))
	})

	t.Run("insert and remove", func(t *testing.T) {
		l := NewList("a", "c")
		require.NoError(t, l.Insert(1, "b"))
		assert.Equal(t, []any{"a", "b", "c"}, l.Values())

		require.NoError(t, l.Remove(0))
		assert.Equal(t, []any{"b", "c"}, l.Values())

		assert.Error(t, l.Insert(5, "x"))
		assert.Error(t, l.Remove(-1))
	})

	t.Run("set replaces an element", func(t *testing.T) {
		l := NewList("a")
		l.resetTracking()
		require.NoError(t, l.Set(0, "z"))
		assert.True(t, l.isDirty())
		assert.Error(t, l.Set(3, "x"))
	})

	t.Run("values is a copy", func(t *testing.T) {
		l := NewList("a")
		values := l.Values()
		values[0] = "mutated"
		assert.Equal(t, "a", l.Get(0))
	})
}

func TestMapTracking(t *testing.T) {
	t.Run("set and delete mark dirty", func(t *testing.T) {
		m := NewMap()
		assert.False(t, m.isDirty())

		m.Set("foo", "bar")
		assert.True(t, m.isDirty())

		m.resetTracking()
		m.Delete("foo")
		assert.True(t, m.isDirty())
		assert.Equal(t, 0, m.Len())
	})

	t.Run("deleting a missing key is a no-op", func(t *testing.T) {
		m := NewMap()
		m.Delete("missing")
		assert.False(t, m.isDirty())
	})

	t.Run("get and keys", func(t *testing.T) {
		m := NewMap()
		m.Set("b", 2)
		m.Set("a", 1)
		v, ok := m.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, []string{"a", "b"}, m.Keys())
	})

	t.Run("clone is clean and independent", func(t *testing.T) {
		m := NewMap()
		m.Set("k", "v")
		c := m.clone()
		assert.False(t, c.isDirty())

		c.Set("k2", "v2")
		_, ok := m.Get("k2")
		assert.False(t, ok)
	})
}
