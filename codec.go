package deltamap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// EncodeItem encodes the record's current attribute values into a raw
// attribute map. Attributes holding their kind's default value are omitted:
// the backend stores sparse items and defaults must never be materialized.
// This function is also usable by query/scan layers that build their own
// requests.
func EncodeItem(r *Record) (Item, error) {
	item := make(Item)
	for _, field := range r.schema.Fields() {
		v := r.attrs[field.Name]
		if field.Kind.isDefault(v) {
			continue
		}
		av, err := encodeValue(field.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("encode attribute %q: %w", field.Name, err)
		}
		item[field.Name] = av
	}
	for name, v := range r.attrs {
		if _, declared := r.schema.Field(name); declared {
			continue
		}
		if extraIsDefault(v) {
			continue
		}
		av, err := encodeExtra(v)
		if err != nil {
			return nil, fmt.Errorf("encode attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

// DecodeItem rehydrates an entity instance from a raw attribute map. The
// returned record is clean: its snapshot matches the decoded values and all
// container baselines are empty.
func DecodeItem(s *Schema, item Item) (*Record, error) {
	r := s.NewRecord()
	for name, av := range item {
		if field, declared := s.Field(name); declared {
			v, err := decodeValue(field.Kind, av)
			if err != nil {
				return nil, fmt.Errorf("decode attribute %q: %w", name, err)
			}
			r.attrs[name] = v
		} else {
			r.attrs[name] = decodeExtra(av)
		}
	}
	r.commitAll()
	return r, nil
}

// keyItem extracts the record's key attributes as a raw attribute map.
func (r *Record) keyItem() (Item, error) {
	key := make(Item)
	hash := r.schema.HashKey()
	if err := putKeyAttribute(key, hash, r.attrs[hash.Name]); err != nil {
		return nil, err
	}
	if rangeField, ok := r.schema.RangeKey(); ok {
		if err := putKeyAttribute(key, rangeField, r.attrs[rangeField.Name]); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func putKeyAttribute(key Item, field Field, v any) error {
	if field.Kind.isDefault(v) {
		return &ValidationError{Attribute: field.Name, Reason: "missing key value"}
	}
	av, err := encodeValue(field.Kind, v)
	if err != nil {
		return fmt.Errorf("encode key %q: %w", field.Name, err)
	}
	key[field.Name] = av
	return nil
}

// encodeValue maps a canonical in-memory value onto its wire representation.
func encodeValue(kind Kind, v any) (types.AttributeValue, error) {
	switch kind {
	case KindString:
		return &types.AttributeValueMemberS{Value: v.(string)}, nil
	case KindNumber:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v.(int64), 10)}, nil
	case KindBinary:
		return &types.AttributeValueMemberB{Value: bytes.Clone(v.([]byte))}, nil
	case KindStringSet:
		return &types.AttributeValueMemberSS{Value: v.(*StringSet).Values()}, nil
	case KindNumberSet:
		return &types.AttributeValueMemberNS{Value: formatNumbers(v.(*NumberSet).Values())}, nil
	case KindBinarySet:
		return &types.AttributeValueMemberBS{Value: v.(*BinarySet).Values()}, nil
	case KindBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.(bool)}, nil
	case KindDateTime:
		return &types.AttributeValueMemberS{Value: v.(time.Time).UTC().Format(time.RFC3339Nano)}, nil
	case KindDate:
		return &types.AttributeValueMemberS{Value: v.(Date).String()}, nil
	case KindDecimal:
		return &types.AttributeValueMemberN{Value: v.(decimal.Decimal).String()}, nil
	case KindList:
		avs, err := attributevalue.MarshalList(v.(*List).Values())
		if err != nil {
			return nil, fmt.Errorf("marshal list: %w", err)
		}
		return &types.AttributeValueMemberL{Value: avs}, nil
	case KindMap:
		avs, err := attributevalue.MarshalMap(v.(*Map).Values())
		if err != nil {
			return nil, fmt.Errorf("marshal map: %w", err)
		}
		return &types.AttributeValueMemberM{Value: avs}, nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}

// decodeValue maps a wire value back onto the canonical representation for
// kind. Containers come back with a clean baseline once the caller commits.
func decodeValue(kind Kind, av types.AttributeValue) (any, error) {
	switch kind {
	case KindString:
		s, err := stringMember(av)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindNumber:
		n, err := numberMember(av)
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(n, 10, 64)
	case KindBinary:
		b, ok := av.(*types.AttributeValueMemberB)
		if !ok {
			return nil, fmt.Errorf("expected B attribute, got %T", av)
		}
		return bytes.Clone(b.Value), nil
	case KindStringSet:
		ss, ok := av.(*types.AttributeValueMemberSS)
		if !ok {
			return nil, fmt.Errorf("expected SS attribute, got %T", av)
		}
		return NewStringSet(ss.Value...), nil
	case KindNumberSet:
		ns, ok := av.(*types.AttributeValueMemberNS)
		if !ok {
			return nil, fmt.Errorf("expected NS attribute, got %T", av)
		}
		values, err := parseNumbers(ns.Value)
		if err != nil {
			return nil, err
		}
		return NewNumberSet(values...), nil
	case KindBinarySet:
		bs, ok := av.(*types.AttributeValueMemberBS)
		if !ok {
			return nil, fmt.Errorf("expected BS attribute, got %T", av)
		}
		return NewBinarySet(bs.Value...), nil
	case KindBoolean:
		b, ok := av.(*types.AttributeValueMemberBOOL)
		if !ok {
			return nil, fmt.Errorf("expected BOOL attribute, got %T", av)
		}
		return b.Value, nil
	case KindDateTime:
		s, err := stringMember(av)
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime %q: %w", s, err)
		}
		return t.UTC(), nil
	case KindDate:
		s, err := stringMember(av)
		if err != nil {
			return nil, err
		}
		return ParseDate(s)
	case KindDecimal:
		n, err := numberMember(av)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(n)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", n, err)
		}
		return d, nil
	case KindList:
		l, ok := av.(*types.AttributeValueMemberL)
		if !ok {
			return nil, fmt.Errorf("expected L attribute, got %T", av)
		}
		var elems []any
		if err := attributevalue.Unmarshal(l, &elems); err != nil {
			return nil, fmt.Errorf("unmarshal list: %w", err)
		}
		return NewList(elems...), nil
	case KindMap:
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("expected M attribute, got %T", av)
		}
		var entries map[string]any
		if err := attributevalue.Unmarshal(m, &entries); err != nil {
			return nil, fmt.Errorf("unmarshal map: %w", err)
		}
		return newMapOf(entries), nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}

func stringMember(av types.AttributeValue) (string, error) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("expected S attribute, got %T", av)
	}
	return s.Value, nil
}

func numberMember(av types.AttributeValue) (string, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return "", fmt.Errorf("expected N attribute, got %T", av)
	}
	return n.Value, nil
}

func formatNumbers(values []int64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatInt(v, 10)
	}
	return out
}

func parseNumbers(values []string) ([]int64, error) {
	out := make([]int64, len(values))
	for i, s := range values {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

// encodeExtra infers the wire kind of an undeclared attribute: integers and
// floats map to N, tracked sets map to the matching set type, and everything
// else is serialized to JSON and stored as a string.
func encodeExtra(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(x, 10)}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x, 'f', -1, 64)}, nil
	case *StringSet:
		return &types.AttributeValueMemberSS{Value: x.Values()}, nil
	case *NumberSet:
		return &types.AttributeValueMemberNS{Value: formatNumbers(x.Values())}, nil
	case *BinarySet:
		return &types.AttributeValueMemberBS{Value: x.Values()}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: bytes.Clone(x)}, nil
	case *List:
		return encodeExtraJSON(x.Values())
	case *Map:
		return encodeExtraJSON(x.Values())
	default:
		return encodeExtraJSON(v)
	}
}

func encodeExtraJSON(v any) (types.AttributeValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal extra attribute: %w", err)
	}
	return &types.AttributeValueMemberS{Value: string(data)}, nil
}

// decodeExtra reverses encodeExtra. String attributes are tried as JSON
// first and fall back to the raw string when decoding fails.
func decodeExtra(av types.AttributeValue) any {
	switch x := av.(type) {
	case *types.AttributeValueMemberS:
		var out any
		if err := json.Unmarshal([]byte(x.Value), &out); err == nil {
			return out
		}
		return x.Value
	case *types.AttributeValueMemberN:
		if n, err := strconv.ParseInt(x.Value, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(x.Value, 64)
		return f
	case *types.AttributeValueMemberB:
		return bytes.Clone(x.Value)
	case *types.AttributeValueMemberBOOL:
		return x.Value
	case *types.AttributeValueMemberSS:
		return NewStringSet(x.Value...)
	case *types.AttributeValueMemberNS:
		if values, err := parseNumbers(x.Value); err == nil {
			return NewNumberSet(values...)
		}
		out := make([]any, len(x.Value))
		for i, s := range x.Value {
			f, _ := strconv.ParseFloat(s, 64)
			out[i] = f
		}
		return out
	case *types.AttributeValueMemberBS:
		return NewBinarySet(x.Value...)
	case *types.AttributeValueMemberL:
		var elems []any
		if err := attributevalue.Unmarshal(x, &elems); err == nil {
			return NewList(elems...)
		}
		return nil
	case *types.AttributeValueMemberM:
		var entries map[string]any
		if err := attributevalue.Unmarshal(x, &entries); err == nil {
			return newMapOf(entries)
		}
		return nil
	case *types.AttributeValueMemberNULL:
		return nil
	default:
		return nil
	}
}
