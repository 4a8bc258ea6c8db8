package deltamap

import (
	"bytes"
	"time"

	"github.com/shopspring/decimal"
)

// State describes a record's position in the sync lifecycle.
type State int

const (
	// StateNew marks a record that has never been written to the store.
	StateNew State = iota
	// StateClean marks a record whose attributes match the last-persisted
	// snapshot.
	StateClean
	// StateDirty marks a record with at least one attribute changed since the
	// last successful write.
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateClean:
		return "clean"
	default:
		return "dirty"
	}
}

// Record is a single entity instance: a mapping from attribute name to
// current canonical value, a hidden snapshot of last-persisted values used as
// the diff baseline, and the set of attribute names known to have changed.
//
// Records are not safe for concurrent mutation; callers needing concurrent
// access must serialize externally.
type Record struct {
	schema   *Schema
	attrs    map[string]any
	snapshot map[string]any
	dirty    map[string]struct{}
	synced   bool
}

// NewRecord creates an in-memory instance of the entity type with every
// declared attribute set to its default value.
func (s *Schema) NewRecord() *Record {
	r := &Record{
		schema:   s,
		attrs:    make(map[string]any, len(s.order)),
		snapshot: make(map[string]any),
		dirty:    make(map[string]struct{}),
	}
	for _, name := range s.order {
		r.attrs[name] = s.fields[name].Kind.zeroValue()
	}
	return r
}

// Schema returns the record's descriptor table.
func (r *Record) Schema() *Schema { return r.schema }

// Set assigns value to the named attribute. For declared attributes the
// value is normalized, coerced per the field's policy and validated before it
// is stored; a rejected value returns a ValidationError and leaves the record
// untouched. Assigning nil resets the attribute to its default. Undeclared
// names are stored as extra attributes with inferred wire kind.
func (r *Record) Set(name string, value any) error {
	field, declared := r.schema.Field(name)
	if !declared {
		v := inferExtra(value)
		// reassignment replaces the attribute wholesale, same as for
		// declared set fields
		switch c := v.(type) {
		case *StringSet:
			c.set.replaced = true
		case *NumberSet:
			c.set.replaced = true
		case *BinarySet:
			c.set.replaced = true
		}
		r.attrs[name] = v
		r.dirty[name] = struct{}{}
		return nil
	}

	v, verr := normalize(field.Kind, field.Coerce, value)
	if verr != nil {
		return verr.at(name)
	}
	if field.Check != nil && v != nil {
		if err := field.Check(v); err != nil {
			return &ValidationError{Attribute: name, Reason: err.Error()}
		}
	}

	// Assignment of a container is replacement, not incremental mutation:
	// the new container's baseline is empty.
	switch c := v.(type) {
	case *StringSet:
		c.set.replaced = true
	case *NumberSet:
		c.set.replaced = true
	case *BinarySet:
		c.set.replaced = true
	case *List:
		c.dirty = true
	case *Map:
		c.dirty = true
	}

	r.attrs[name] = v
	r.dirty[name] = struct{}{}
	return nil
}

// Get returns the current value of the named attribute.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.attrs[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// GetString returns the named STRING attribute, or "" if absent.
func (r *Record) GetString(name string) string {
	v, _ := r.attrs[name].(string)
	return v
}

// GetNumber returns the named NUMBER attribute, or 0 if absent.
func (r *Record) GetNumber(name string) int64 {
	v, _ := r.attrs[name].(int64)
	return v
}

// GetBinary returns the named BINARY attribute, or nil if absent.
func (r *Record) GetBinary(name string) []byte {
	v, _ := r.attrs[name].([]byte)
	return bytes.Clone(v)
}

// GetBool returns the named BOOLEAN attribute, or false if absent.
func (r *Record) GetBool(name string) bool {
	v, _ := r.attrs[name].(bool)
	return v
}

// GetTime returns the named DATETIME attribute, or the zero time if absent.
func (r *Record) GetTime(name string) time.Time {
	v, _ := r.attrs[name].(time.Time)
	return v
}

// GetDate returns the named DATE attribute, or the zero date if absent.
func (r *Record) GetDate(name string) Date {
	v, _ := r.attrs[name].(Date)
	return v
}

// GetDecimal returns the named DECIMAL attribute, or the zero decimal if absent.
func (r *Record) GetDecimal(name string) decimal.Decimal {
	v, _ := r.attrs[name].(decimal.Decimal)
	return v
}

// GetStringSet returns the named STRING_SET attribute for in-place mutation, or
// nil if the attribute does not hold a string set.
func (r *Record) GetStringSet(name string) *StringSet {
	v, _ := r.attrs[name].(*StringSet)
	return v
}

// GetNumberSet returns the named NUMBER_SET attribute for in-place mutation, or
// nil if the attribute does not hold a number set.
func (r *Record) GetNumberSet(name string) *NumberSet {
	v, _ := r.attrs[name].(*NumberSet)
	return v
}

// GetBinarySet returns the named BINARY_SET attribute for in-place mutation, or
// nil if the attribute does not hold a binary set.
func (r *Record) GetBinarySet(name string) *BinarySet {
	v, _ := r.attrs[name].(*BinarySet)
	return v
}

// GetList returns the named LIST attribute for in-place mutation, or nil if the
// attribute does not hold a list.
func (r *Record) GetList(name string) *List {
	v, _ := r.attrs[name].(*List)
	return v
}

// GetMap returns the named MAP attribute for in-place mutation, or nil if the
// attribute does not hold a map.
func (r *Record) GetMap(name string) *Map {
	v, _ := r.attrs[name].(*Map)
	return v
}

// Extra returns the current extra (undeclared) attributes.
func (r *Record) Extra() map[string]any {
	out := make(map[string]any)
	for name, v := range r.attrs {
		if _, declared := r.schema.Field(name); !declared && v != nil {
			out[name] = v
		}
	}
	return out
}

// IsDirty reports whether the named attribute has changed since the last
// successful write, either by assignment or by in-place container mutation.
func (r *Record) IsDirty(name string) bool {
	if _, ok := r.dirty[name]; ok {
		return true
	}
	return containerDirty(r.attrs[name])
}

// State returns the record's lifecycle state.
func (r *Record) State() State {
	if !r.synced {
		return StateNew
	}
	if len(r.dirtyNames()) > 0 {
		return StateDirty
	}
	return StateClean
}

// dirtyNames returns the sorted set of attributes changed since the last
// snapshot: explicitly assigned names plus containers mutated in place.
func (r *Record) dirtyNames() []string {
	names := make(map[string]struct{}, len(r.dirty))
	for name := range r.dirty {
		names[name] = struct{}{}
	}
	for name, v := range r.attrs {
		if containerDirty(v) {
			names[name] = struct{}{}
		}
	}
	return sortedKeys(names, compareString)
}

func containerDirty(v any) bool {
	switch c := v.(type) {
	case *StringSet:
		return c.set.dirty()
	case *NumberSet:
		return c.set.dirty()
	case *BinarySet:
		return c.set.dirty()
	case *List:
		return c.isDirty()
	case *Map:
		return c.isDirty()
	default:
		return false
	}
}

func resetContainerTracking(v any) {
	switch c := v.(type) {
	case *StringSet:
		c.set.resetTracking()
	case *NumberSet:
		c.set.resetTracking()
	case *BinarySet:
		c.set.resetTracking()
	case *List:
		c.resetTracking()
	case *Map:
		c.resetTracking()
	}
}

// commit overwrites the snapshot for the named attributes with structural
// copies of the current values, resets container baselines and clears the
// dirty markers. Called only after the store reports a successful write.
func (r *Record) commit(names []string) {
	for _, name := range names {
		v := r.attrs[name]
		if r.valueIsDefault(name, v) {
			delete(r.snapshot, name)
		} else if field, declared := r.schema.Field(name); declared {
			r.snapshot[name] = copyValue(field.Kind, v)
		} else {
			r.snapshot[name] = copyExtra(v)
		}
		resetContainerTracking(v)
		delete(r.dirty, name)
	}
	r.synced = true
}

// commitAll commits every attribute the record has ever seen, including ones
// present only in the snapshot (cleared since the last write).
func (r *Record) commitAll() {
	names := make(map[string]struct{}, len(r.attrs))
	for name := range r.attrs {
		names[name] = struct{}{}
	}
	for name := range r.snapshot {
		names[name] = struct{}{}
	}
	r.commit(sortedKeys(names, compareString))
}

// forget drops the snapshot baseline, returning the record to the
// never-written state. Used after a successful delete.
func (r *Record) forget() {
	r.snapshot = make(map[string]any)
	r.synced = false
	for name := range r.attrs {
		r.dirty[name] = struct{}{}
	}
}

func (r *Record) valueIsDefault(name string, v any) bool {
	if field, declared := r.schema.Field(name); declared {
		return field.Kind.isDefault(v)
	}
	return extraIsDefault(v)
}

// extraIsDefault reports whether an extra attribute value is sparse: nil or
// an empty tracked container. Scalar zero values on extras are stored as-is,
// since undeclared attributes carry no default policy.
func extraIsDefault(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case *StringSet:
		return c.Len() == 0
	case *NumberSet:
		return c.Len() == 0
	case *BinarySet:
		return c.Len() == 0
	case *List:
		return c.Len() == 0
	case *Map:
		return c.Len() == 0
	default:
		return false
	}
}

// inferExtra canonicalizes an extra attribute value at assignment time so
// diffing and wire-kind inference see a stable representation. Slices and
// mappings take the shape a JSON round trip would give them, since the JSON
// fallback is their wire form; tracked sets are copied so the record never
// aliases caller-held storage.
func inferExtra(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case *StringSet:
		return NewStringSet(x.Values()...)
	case *NumberSet:
		return NewNumberSet(x.Values()...)
	case *BinarySet:
		return NewBinarySet(x.Values()...)
	case map[string]struct{}:
		set := NewStringSet()
		for e := range x {
			set.Add(e)
		}
		return set
	case map[int64]struct{}:
		set := NewNumberSet()
		for e := range x {
			set.Add(e)
		}
		return set
	case []any:
		return jsonShape(x)
	case map[string]any:
		return jsonShape(x)
	default:
		return v
	}
}

// jsonShape converts a value to the form json.Unmarshal would produce for it:
// all numbers become float64 and nested slices and mappings are converted
// recursively. Values stored this way compare equal to their decoded
// counterparts after a save and fetch.
func jsonShape(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonShape(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonShape(e)
		}
		return out
	default:
		return v
	}
}

// copyExtra makes a structural copy of an extra attribute value for the
// snapshot store. Values of types the copy cannot reach are stored as-is;
// such values are only observed through reassignment.
func copyExtra(v any) any {
	switch x := v.(type) {
	case []byte:
		return bytes.Clone(x)
	case *StringSet:
		return &StringSet{set: x.set.clone()}
	case *NumberSet:
		return &NumberSet{set: x.set.clone()}
	case *BinarySet:
		return &BinarySet{set: x.set.clone()}
	case *List:
		return x.clone()
	case *Map:
		return x.clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyExtra(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = copyExtra(e)
		}
		return out
	default:
		return v
	}
}
