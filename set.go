package deltamap

import (
	"slices"
)

// trackedSet records every mutation against the baseline established at
// creation (or at the last sync), so the delta engine can emit element-level
// ADD and DELETE operations without a full comparison of old and new values.
//
// Adding an element that was previously removed cancels the removal instead of
// recording an add, and vice versa, so the tracking always describes the net
// difference from the baseline.
type trackedSet[T comparable] struct {
	elems    map[T]struct{}
	added    map[T]struct{}
	removed  map[T]struct{}
	replaced bool
}

func newTrackedSet[T comparable](elems ...T) trackedSet[T] {
	s := trackedSet[T]{
		elems:   make(map[T]struct{}, len(elems)),
		added:   make(map[T]struct{}),
		removed: make(map[T]struct{}),
	}
	for _, e := range elems {
		s.add(e)
	}
	return s
}

func (s *trackedSet[T]) add(v T) {
	if _, ok := s.elems[v]; ok {
		return
	}
	if _, ok := s.removed[v]; ok {
		delete(s.removed, v)
	} else {
		s.added[v] = struct{}{}
	}
	s.elems[v] = struct{}{}
}

func (s *trackedSet[T]) discard(v T) {
	if _, ok := s.elems[v]; !ok {
		return
	}
	if _, ok := s.added[v]; ok {
		delete(s.added, v)
	} else {
		s.removed[v] = struct{}{}
	}
	delete(s.elems, v)
}

func (s *trackedSet[T]) clear() {
	for v := range s.elems {
		s.discard(v)
	}
}

func (s *trackedSet[T]) contains(v T) bool {
	_, ok := s.elems[v]
	return ok
}

func (s *trackedSet[T]) len() int { return len(s.elems) }

func (s *trackedSet[T]) dirty() bool {
	return s.replaced || len(s.added) > 0 || len(s.removed) > 0
}

// resetTracking establishes the current elements as the new baseline.
func (s *trackedSet[T]) resetTracking() {
	s.added = make(map[T]struct{})
	s.removed = make(map[T]struct{})
	s.replaced = false
}

// clone returns a copy of the set with a clean baseline.
func (s *trackedSet[T]) clone() trackedSet[T] {
	c := trackedSet[T]{
		elems:   make(map[T]struct{}, len(s.elems)),
		added:   make(map[T]struct{}),
		removed: make(map[T]struct{}),
	}
	for v := range s.elems {
		c.elems[v] = struct{}{}
	}
	return c
}

func sortedKeys[T comparable](m map[T]struct{}, cmp func(a, b T) int) []T {
	out := make([]T, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, cmp)
	return out
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// StringSet is a change-tracking set of strings. Mutations through Add,
// Discard and Clear are observed by the sync engine; the raw element storage
// is never exposed by mutable reference.
type StringSet struct {
	set trackedSet[string]
}

// NewStringSet returns a set containing elems. A set built this way carries
// an empty baseline: relative to the store, every element counts as added.
func NewStringSet(elems ...string) *StringSet {
	return &StringSet{set: newTrackedSet(elems...)}
}

// Add inserts v into the set.
func (s *StringSet) Add(v string) { s.set.add(v) }

// Discard removes v from the set if present.
func (s *StringSet) Discard(v string) { s.set.discard(v) }

// Clear removes every element.
func (s *StringSet) Clear() { s.set.clear() }

// Contains reports whether v is in the set.
func (s *StringSet) Contains(v string) bool { return s.set.contains(v) }

// Len returns the number of elements.
func (s *StringSet) Len() int { return s.set.len() }

// Values returns the elements in sorted order.
func (s *StringSet) Values() []string {
	return sortedKeys(s.set.elems, compareString)
}

func (s *StringSet) addedValues() []string {
	return sortedKeys(s.set.added, compareString)
}

func (s *StringSet) removedValues() []string {
	return sortedKeys(s.set.removed, compareString)
}

// NumberSet is a change-tracking set of integers.
type NumberSet struct {
	set trackedSet[int64]
}

// NewNumberSet returns a set containing elems with an empty baseline.
func NewNumberSet(elems ...int64) *NumberSet {
	return &NumberSet{set: newTrackedSet(elems...)}
}

// Add inserts v into the set.
func (s *NumberSet) Add(v int64) { s.set.add(v) }

// Discard removes v from the set if present.
func (s *NumberSet) Discard(v int64) { s.set.discard(v) }

// Clear removes every element.
func (s *NumberSet) Clear() { s.set.clear() }

// Contains reports whether v is in the set.
func (s *NumberSet) Contains(v int64) bool { return s.set.contains(v) }

// Len returns the number of elements.
func (s *NumberSet) Len() int { return s.set.len() }

// Values returns the elements in ascending order.
func (s *NumberSet) Values() []int64 {
	return sortedKeys(s.set.elems, compareInt64)
}

func (s *NumberSet) addedValues() []int64 {
	return sortedKeys(s.set.added, compareInt64)
}

func (s *NumberSet) removedValues() []int64 {
	return sortedKeys(s.set.removed, compareInt64)
}

// BinarySet is a change-tracking set of byte strings. Elements are compared
// by content.
type BinarySet struct {
	// elements are stored as strings so they can key the tracking maps
	set trackedSet[string]
}

// NewBinarySet returns a set containing elems with an empty baseline.
func NewBinarySet(elems ...[]byte) *BinarySet {
	s := &BinarySet{set: newTrackedSet[string]()}
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Add inserts v into the set.
func (s *BinarySet) Add(v []byte) { s.set.add(string(v)) }

// Discard removes v from the set if present.
func (s *BinarySet) Discard(v []byte) { s.set.discard(string(v)) }

// Clear removes every element.
func (s *BinarySet) Clear() { s.set.clear() }

// Contains reports whether v is in the set.
func (s *BinarySet) Contains(v []byte) bool { return s.set.contains(string(v)) }

// Len returns the number of elements.
func (s *BinarySet) Len() int { return s.set.len() }

// Values returns copies of the elements in lexicographic order.
func (s *BinarySet) Values() [][]byte {
	return binaryValues(sortedKeys(s.set.elems, compareString))
}

func (s *BinarySet) addedValues() [][]byte {
	return binaryValues(sortedKeys(s.set.added, compareString))
}

func (s *BinarySet) removedValues() [][]byte {
	return binaryValues(sortedKeys(s.set.removed, compareString))
}

func binaryValues(keys []string) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out
}
