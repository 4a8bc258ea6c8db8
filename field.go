package deltamap

import (
	"fmt"
)

// KeyRole marks a field's position in the table key schema.
type KeyRole int

const (
	KeyNone KeyRole = iota
	KeyHash
	KeyRange
)

func (r KeyRole) String() string {
	switch r {
	case KeyHash:
		return "hash"
	case KeyRange:
		return "range"
	default:
		return "none"
	}
}

// IndexRef records a field's membership in a global secondary index.
type IndexRef struct {
	Name string  // index name
	Role KeyRole // the field's role within the index
}

// Field declares one logical attribute on an entity type: its name, wire
// kind, coercion policy, optional validation check and key role. Index
// memberships are derived from the schema's index declarations.
type Field struct {
	Name    string
	Kind    Kind
	Coerce  bool            // permit lossy / cross-type conversion on assignment
	Check   func(any) error // runs against the normalized value on assignment
	Role    KeyRole
	Indexes []IndexRef
}

// NewField declares an attribute with the given name and kind.
func NewField(name string, kind Kind, opts ...func(*Field)) Field {
	f := Field{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// WithCoerce permits lossy and cross-type conversions when the field is
// assigned.
func WithCoerce() func(*Field) {
	return func(f *Field) { f.Coerce = true }
}

// WithCheck attaches a validation check that runs against the normalized
// value on every assignment.
func WithCheck(check func(any) error) func(*Field) {
	return func(f *Field) { f.Check = check }
}

// AsHashKey marks the field as the table hash key.
func AsHashKey() func(*Field) {
	return func(f *Field) { f.Role = KeyHash }
}

// AsRangeKey marks the field as the table range key.
func AsRangeKey() func(*Field) {
	return func(f *Field) { f.Role = KeyRange }
}

// GlobalIndex declares a global secondary index over declared fields.
// RangeField may be empty for a hash-only index.
type GlobalIndex struct {
	Name       string
	HashField  string
	RangeField string
}

// Schema is an immutable descriptor table for one entity type. Schemas are
// built explicitly at startup and passed to the engine; there is no implicit
// process-wide registry.
type Schema struct {
	name     string
	fields   map[string]Field
	order    []string
	hashKey  string
	rangeKey string
	indexes  []GlobalIndex
}

// WithGlobalIndex adds a global secondary index declaration to the schema.
func WithGlobalIndex(index GlobalIndex) func(*Schema) {
	return func(s *Schema) { s.indexes = append(s.indexes, index) }
}

// NewSchema builds the descriptor table for the named entity type. It
// enforces exactly one hash key, at most one range key, scalar-encodable key
// kinds, and index declarations that reference declared fields.
func NewSchema(name string, fields []Field, opts ...func(*Schema)) (*Schema, error) {
	s := &Schema{
		name:   name,
		fields: make(map[string]Field, len(fields)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %q: field with empty name", name)
		}
		if _, ok := s.fields[f.Name]; ok {
			return nil, fmt.Errorf("schema %q: duplicate field %q", name, f.Name)
		}
		switch f.Role {
		case KeyHash:
			if s.hashKey != "" {
				return nil, fmt.Errorf("schema %q: hash key declared on both %q and %q", name, s.hashKey, f.Name)
			}
			s.hashKey = f.Name
		case KeyRange:
			if s.rangeKey != "" {
				return nil, fmt.Errorf("schema %q: range key declared on both %q and %q", name, s.rangeKey, f.Name)
			}
			s.rangeKey = f.Name
		}
		if f.Role != KeyNone {
			if _, ok := f.Kind.ScalarAttributeType(); !ok {
				return nil, fmt.Errorf("schema %q: field %q of kind %s cannot be a key", name, f.Name, f.Kind)
			}
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}

	if s.hashKey == "" {
		return nil, fmt.Errorf("schema %q: no hash key declared", name)
	}

	for _, idx := range s.indexes {
		if err := s.resolveIndex(idx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// resolveIndex validates an index declaration and records the membership on
// the participating fields.
func (s *Schema) resolveIndex(idx GlobalIndex) error {
	if idx.Name == "" {
		return fmt.Errorf("schema %q: index with empty name", s.name)
	}
	members := []struct {
		fieldName string
		role      KeyRole
	}{
		{idx.HashField, KeyHash},
	}
	if idx.RangeField != "" {
		members = append(members, struct {
			fieldName string
			role      KeyRole
		}{idx.RangeField, KeyRange})
	}
	for _, m := range members {
		f, ok := s.fields[m.fieldName]
		if !ok {
			return fmt.Errorf("schema %q: index %q references undeclared field %q", s.name, idx.Name, m.fieldName)
		}
		if _, ok := f.Kind.ScalarAttributeType(); !ok {
			return fmt.Errorf("schema %q: index %q key %q has non-scalar kind %s", s.name, idx.Name, m.fieldName, f.Kind)
		}
		f.Indexes = append(f.Indexes, IndexRef{Name: idx.Name, Role: m.role})
		s.fields[m.fieldName] = f
	}
	return nil
}

// Name returns the entity type name.
func (s *Schema) Name() string { return s.name }

// Field returns the descriptor for name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns the descriptors in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// HashKey returns the hash key descriptor.
func (s *Schema) HashKey() Field {
	return s.fields[s.hashKey]
}

// RangeKey returns the range key descriptor, if one is declared.
func (s *Schema) RangeKey() (Field, bool) {
	if s.rangeKey == "" {
		return Field{}, false
	}
	return s.fields[s.rangeKey], true
}

// Indexes returns the global secondary index declarations.
func (s *Schema) Indexes() []GlobalIndex {
	out := make([]GlobalIndex, len(s.indexes))
	copy(out, s.indexes)
	return out
}
