package deltamap

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Action is the wire-level change applied to one attribute.
type Action int

const (
	// ActionSet replaces the whole attribute value.
	ActionSet Action = iota
	// ActionAdd atomically increments a numeric attribute or inserts elements
	// into a set attribute.
	ActionAdd
	// ActionDelete removes elements from a set attribute.
	ActionDelete
	// ActionRemove deletes the attribute from the item.
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionSet:
		return "SET"
	case ActionAdd:
		return "ADD"
	case ActionDelete:
		return "DELETE"
	default:
		return "REMOVE"
	}
}

// Op is a single wire-level delta operation against one attribute. Value is
// nil for ActionRemove.
type Op struct {
	Name   string
	Action Action
	Value  types.AttributeValue
}

func (o Op) String() string {
	if o.Value == nil {
		return fmt.Sprintf("%s %s", o.Action, o.Name)
	}
	return fmt.Sprintf("%s %s %v", o.Action, o.Name, o.Value)
}

// PendingOps computes the minimal ordered list of wire operations that would
// bring the persisted item in line with the record's current state. Key
// attributes never appear in the list; they identify the item instead.
// An empty list means a sync would be a no-op.
func (r *Record) PendingOps() ([]Op, error) {
	var ops []Op
	for _, name := range r.dirtyNames() {
		if r.isKeyAttribute(name) {
			continue
		}
		attrOps, err := r.attributeOps(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, attrOps...)
	}
	return ops, nil
}

func (r *Record) isKeyAttribute(name string) bool {
	field, ok := r.schema.Field(name)
	return ok && field.Role != KeyNone
}

func (r *Record) attributeOps(name string) ([]Op, error) {
	cur := r.attrs[name]
	old, hadOld := r.snapshot[name]

	if field, declared := r.schema.Field(name); declared {
		return fieldOps(field, cur, old, hadOld)
	}
	return extraOps(name, cur, old, hadOld)
}

func fieldOps(field Field, cur, old any, hadOld bool) ([]Op, error) {
	kind := field.Kind

	if kind.isDefault(cur) {
		// transition back to default: the stored attribute must disappear
		if hadOld {
			return []Op{{Name: field.Name, Action: ActionRemove}}, nil
		}
		return nil, nil
	}

	if !hadOld {
		return setOp(field.Name, kind, cur)
	}

	switch {
	case kind == KindNumber:
		delta := cur.(int64) - old.(int64)
		if delta == 0 {
			return nil, nil
		}
		value := &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)}
		return []Op{{Name: field.Name, Action: ActionAdd, Value: value}}, nil
	case kind.IsSet():
		return setKindOps(field.Name, kind, cur, old)
	default:
		if equalValue(kind, cur, old) {
			return nil, nil
		}
		return setOp(field.Name, kind, cur)
	}
}

// setKindOps emits element-level ADD/DELETE when the container was mutated in
// place against a known baseline. A wholesale-reassigned container replaces
// the attribute instead: the assignment expressed "the value is now X", and
// replaying a computed diff could yield a set that is neither the old nor the
// intended value.
func setKindOps(name string, kind Kind, cur, old any) ([]Op, error) {
	if setReplaced(cur) {
		if equalValue(kind, cur, old) {
			return nil, nil
		}
		return setOp(name, kind, cur)
	}

	added, removed, err := setChanges(kind, cur)
	if err != nil {
		return nil, err
	}
	var ops []Op
	if added != nil {
		ops = append(ops, Op{Name: name, Action: ActionAdd, Value: added})
	}
	if removed != nil {
		ops = append(ops, Op{Name: name, Action: ActionDelete, Value: removed})
	}
	return ops, nil
}

func setReplaced(v any) bool {
	switch s := v.(type) {
	case *StringSet:
		return s.set.replaced
	case *NumberSet:
		return s.set.replaced
	case *BinarySet:
		return s.set.replaced
	default:
		return false
	}
}

// setChanges encodes the tracked element additions and removals as partial
// set values, or nil when a side is empty.
func setChanges(kind Kind, v any) (added, removed types.AttributeValue, err error) {
	switch s := v.(type) {
	case *StringSet:
		if elems := s.addedValues(); len(elems) > 0 {
			added = &types.AttributeValueMemberSS{Value: elems}
		}
		if elems := s.removedValues(); len(elems) > 0 {
			removed = &types.AttributeValueMemberSS{Value: elems}
		}
	case *NumberSet:
		if elems := s.addedValues(); len(elems) > 0 {
			added = &types.AttributeValueMemberNS{Value: formatNumbers(elems)}
		}
		if elems := s.removedValues(); len(elems) > 0 {
			removed = &types.AttributeValueMemberNS{Value: formatNumbers(elems)}
		}
	case *BinarySet:
		if elems := s.addedValues(); len(elems) > 0 {
			added = &types.AttributeValueMemberBS{Value: elems}
		}
		if elems := s.removedValues(); len(elems) > 0 {
			removed = &types.AttributeValueMemberBS{Value: elems}
		}
	default:
		err = fmt.Errorf("attribute of kind %s holds %T", kind, v)
	}
	return added, removed, err
}

func setOp(name string, kind Kind, v any) ([]Op, error) {
	av, err := encodeValue(kind, v)
	if err != nil {
		return nil, fmt.Errorf("encode attribute %q: %w", name, err)
	}
	return []Op{{Name: name, Action: ActionSet, Value: av}}, nil
}

// extraOps diffs an undeclared attribute. The wire kind is inferred from the
// dynamic type; numeric deltas and in-place set mutations collapse to the
// same minimal operations as declared attributes.
func extraOps(name string, cur, old any, hadOld bool) ([]Op, error) {
	if extraIsDefault(cur) {
		if hadOld {
			return []Op{{Name: name, Action: ActionRemove}}, nil
		}
		return nil, nil
	}

	if !hadOld {
		return extraSetOp(name, cur)
	}

	switch c := cur.(type) {
	case int64:
		if o, ok := old.(int64); ok {
			delta := c - o
			if delta == 0 {
				return nil, nil
			}
			value := &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)}
			return []Op{{Name: name, Action: ActionAdd, Value: value}}, nil
		}
	case *StringSet:
		if _, ok := old.(*StringSet); ok {
			return setKindOps(name, KindStringSet, cur, old)
		}
	case *NumberSet:
		if _, ok := old.(*NumberSet); ok {
			return setKindOps(name, KindNumberSet, cur, old)
		}
	case *BinarySet:
		if _, ok := old.(*BinarySet); ok {
			return setKindOps(name, KindBinarySet, cur, old)
		}
	}

	if extraEqual(cur, old) {
		return nil, nil
	}
	return extraSetOp(name, cur)
}

func extraSetOp(name string, v any) ([]Op, error) {
	av, err := encodeExtra(v)
	if err != nil {
		return nil, fmt.Errorf("encode attribute %q: %w", name, err)
	}
	return []Op{{Name: name, Action: ActionSet, Value: av}}, nil
}

func extraEqual(a, b any) bool {
	switch x := a.(type) {
	case *List:
		y, ok := b.(*List)
		return ok && reflect.DeepEqual(x.elems, y.elems)
	case *Map:
		y, ok := b.(*Map)
		return ok && reflect.DeepEqual(x.entries, y.entries)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// updateExpression assembles the ops into a single DynamoDB update
// expression with attribute name and value placeholders. All operations for
// one sync travel in one request; the backend applies them together.
func updateExpression(ops []Op) (expr string, names map[string]string, values Item) {
	names = make(map[string]string, len(ops))
	values = make(Item)

	clauses := map[Action][]string{}
	for i, op := range ops {
		namePlaceholder := fmt.Sprintf("#a%d", i)
		names[namePlaceholder] = op.Name

		switch op.Action {
		case ActionSet:
			valuePlaceholder := fmt.Sprintf(":v%d", i)
			values[valuePlaceholder] = op.Value
			clauses[ActionSet] = append(clauses[ActionSet], namePlaceholder+" = "+valuePlaceholder)
		case ActionAdd, ActionDelete:
			valuePlaceholder := fmt.Sprintf(":v%d", i)
			values[valuePlaceholder] = op.Value
			clauses[op.Action] = append(clauses[op.Action], namePlaceholder+" "+valuePlaceholder)
		case ActionRemove:
			clauses[ActionRemove] = append(clauses[ActionRemove], namePlaceholder)
		}
	}

	var parts []string
	for _, action := range []Action{ActionSet, ActionAdd, ActionDelete, ActionRemove} {
		if len(clauses[action]) > 0 {
			parts = append(parts, action.String()+" "+strings.Join(clauses[action], ", "))
		}
	}
	if len(values) == 0 {
		values = nil
	}
	return strings.Join(parts, " "), names, values
}
