package deltamap

import (
	"fmt"
)

// KeyDef names one key attribute of a table and its kind.
type KeyDef struct {
	Name string
	Kind Kind
}

// KeySchemaError is returned when an entity schema's key descriptors do not
// match the key schema of the table it is bound to.
type KeySchemaError struct {
	Schema string
	Table  string
	Reason string
}

func (e *KeySchemaError) Error() string {
	return fmt.Sprintf("schema %q does not match key schema of table %q: %s", e.Schema, e.Table, e.Reason)
}

// Table is a handle to a backend table: its name plus the declared key
// schema. The engine validates entity schemas against the handle before
// issuing requests.
type Table struct {
	Name     string
	HashKey  KeyDef
	RangeKey *KeyDef
}

// NewTable creates a table handle with the given name and hash key.
func NewTable(name string, hashKey KeyDef, opts ...func(*Table)) *Table {
	t := &Table{Name: name, HashKey: hashKey}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithRangeKey adds a range key to the table handle.
func WithRangeKey(rangeKey KeyDef) func(*Table) {
	return func(t *Table) { t.RangeKey = &rangeKey }
}

// Bind validates that the entity schema's key descriptors match the table's
// key schema. It returns a KeySchemaError describing the first mismatch.
func (t *Table) Bind(s *Schema) error {
	if err := t.matchKey(s, s.HashKey(), t.HashKey, "hash"); err != nil {
		return err
	}

	rangeField, hasRange := s.RangeKey()
	switch {
	case hasRange && t.RangeKey == nil:
		return &KeySchemaError{
			Schema: s.Name(), Table: t.Name,
			Reason: fmt.Sprintf("schema declares range key %q but table has none", rangeField.Name),
		}
	case !hasRange && t.RangeKey != nil:
		return &KeySchemaError{
			Schema: s.Name(), Table: t.Name,
			Reason: fmt.Sprintf("table requires range key %q but schema declares none", t.RangeKey.Name),
		}
	case hasRange:
		return t.matchKey(s, rangeField, *t.RangeKey, "range")
	}
	return nil
}

func (t *Table) matchKey(s *Schema, field Field, def KeyDef, role string) error {
	if field.Name != def.Name {
		return &KeySchemaError{
			Schema: s.Name(), Table: t.Name,
			Reason: fmt.Sprintf("%s key is %q, table expects %q", role, field.Name, def.Name),
		}
	}
	fieldType, _ := field.Kind.ScalarAttributeType()
	defType, ok := def.Kind.ScalarAttributeType()
	if !ok {
		return &KeySchemaError{
			Schema: s.Name(), Table: t.Name,
			Reason: fmt.Sprintf("table %s key %q has non-scalar kind %s", role, def.Name, def.Kind),
		}
	}
	if fieldType != defType {
		return &KeySchemaError{
			Schema: s.Name(), Table: t.Name,
			Reason: fmt.Sprintf("%s key %q encodes as %s, table expects %s", role, def.Name, fieldType, defType),
		}
	}
	return nil
}
