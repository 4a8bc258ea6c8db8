package deltamap

import (
	"fmt"
	"slices"
)

// List is a change-tracking list of arbitrary values. DynamoDB has no
// element-level delta operation for lists, so the list records only a single
// dirty flag; when dirty, the sync engine replaces the whole attribute.
type List struct {
	elems []any
	dirty bool
}

// NewList returns a list containing elems.
func NewList(elems ...any) *List {
	return &List{elems: slices.Clone(elems)}
}

// Append adds v to the end of the list.
func (l *List) Append(v any) {
	l.elems = append(l.elems, v)
	l.dirty = true
}

// Insert places v at index i, shifting later elements right.
func (l *List) Insert(i int, v any) error {
	if i < 0 || i > len(l.elems) {
		return fmt.Errorf("list index %d out of range [0, %d]", i, len(l.elems))
	}
	l.elems = slices.Insert(l.elems, i, v)
	l.dirty = true
	return nil
}

// Set replaces the element at index i.
func (l *List) Set(i int, v any) error {
	if i < 0 || i >= len(l.elems) {
		return fmt.Errorf("list index %d out of range [0, %d)", i, len(l.elems))
	}
	l.elems[i] = v
	l.dirty = true
	return nil
}

// Remove deletes the element at index i.
func (l *List) Remove(i int) error {
	if i < 0 || i >= len(l.elems) {
		return fmt.Errorf("list index %d out of range [0, %d)", i, len(l.elems))
	}
	l.elems = slices.Delete(l.elems, i, i+1)
	l.dirty = true
	return nil
}

// Get returns the element at index i, or nil if i is out of range.
func (l *List) Get(i int) any {
	if i < 0 || i >= len(l.elems) {
		return nil
	}
	return l.elems[i]
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.elems) }

// Values returns a copy of the elements.
func (l *List) Values() []any { return slices.Clone(l.elems) }

func (l *List) isDirty() bool { return l.dirty }

func (l *List) resetTracking() { l.dirty = false }

func (l *List) clone() *List {
	return &List{elems: slices.Clone(l.elems)}
}

// Map is a change-tracking mapping from string keys to arbitrary values.
// Like List it records only a dirty flag; a dirty map is replaced wholesale
// on sync.
type Map struct {
	entries map[string]any
	dirty   bool
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{entries: make(map[string]any)}
}

func newMapOf(entries map[string]any) *Map {
	m := NewMap()
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

// Set stores v under key k.
func (m *Map) Set(k string, v any) {
	m.entries[k] = v
	m.dirty = true
}

// Delete removes key k if present.
func (m *Map) Delete(k string) {
	if _, ok := m.entries[k]; !ok {
		return
	}
	delete(m.entries, k)
	m.dirty = true
}

// Get returns the value stored under k.
func (m *Map) Get(k string) (any, bool) {
	v, ok := m.entries[k]
	return v, ok
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Values returns a copy of the underlying entries.
func (m *Map) Values() map[string]any {
	out := make(map[string]any, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

func (m *Map) isDirty() bool { return m.dirty }

func (m *Map) resetTracking() { m.dirty = false }

func (m *Map) clone() *Map {
	return newMapOf(m.entries)
}
