package deltamap

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError reports a value rejected during attribute assignment:
// a kind mismatch, a lossy coercion attempted without the coerce flag, or a
// failed custom check. Validation runs eagerly at assignment time so invalid
// data never reaches the dirty set.
type ValidationError struct {
	Attribute string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("invalid value: %s", e.Reason)
	}
	return fmt.Sprintf("invalid value for attribute %q: %s", e.Attribute, e.Reason)
}

func invalidValue(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) at(name string) *ValidationError {
	return &ValidationError{Attribute: name, Reason: e.Reason}
}

// normalize maps raw onto the canonical in-memory representation for kind, or
// rejects it. A nil raw yields the kind's default value. The coerce flag
// permits lossy or cross-type conversions that are otherwise refused.
func normalize(kind Kind, coerce bool, raw any) (any, *ValidationError) {
	if raw == nil {
		return kind.zeroValue(), nil
	}
	switch kind {
	case KindString:
		return normalizeString(coerce, raw)
	case KindNumber:
		return normalizeNumber(coerce, raw)
	case KindBinary:
		return normalizeBinary(coerce, raw)
	case KindStringSet:
		return normalizeStringSet(coerce, raw)
	case KindNumberSet:
		return normalizeNumberSet(coerce, raw)
	case KindBinarySet:
		return normalizeBinarySet(coerce, raw)
	case KindBoolean:
		return normalizeBoolean(coerce, raw)
	case KindDateTime:
		if t, ok := raw.(time.Time); ok {
			return t.UTC(), nil
		}
		return nil, invalidValue("expected time.Time, got %T", raw)
	case KindDate:
		if d, ok := raw.(Date); ok {
			return d, nil
		}
		return nil, invalidValue("expected deltamap.Date, got %T", raw)
	case KindDecimal:
		if d, ok := raw.(decimal.Decimal); ok {
			return d, nil
		}
		return nil, invalidValue("expected decimal.Decimal, got %T", raw)
	case KindList:
		return normalizeList(raw)
	case KindMap:
		return normalizeMap(raw)
	default:
		return nil, invalidValue("unsupported kind %s", kind)
	}
}

func normalizeString(coerce bool, raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		if coerce {
			return string(v), nil
		}
	case fmt.Stringer:
		if coerce {
			return v.String(), nil
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		if coerce {
			return fmt.Sprintf("%v", v), nil
		}
	}
	return nil, invalidValue("expected string, got %T", raw)
}

func normalizeNumber(coerce bool, raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, invalidValue("integer %d overflows NUMBER", v)
		}
		return int64(v), nil
	case float32:
		return normalizeFloat(coerce, float64(v))
	case float64:
		return normalizeFloat(coerce, v)
	case decimal.Decimal:
		if v.IsInteger() {
			return v.IntPart(), nil
		}
		if coerce {
			return v.IntPart(), nil
		}
		return nil, invalidValue("lossy coercion of %s to NUMBER", v)
	}
	return nil, invalidValue("expected integer, got %T", raw)
}

func normalizeFloat(coerce bool, f float64) (any, *ValidationError) {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int64(f), nil
	}
	if coerce {
		return int64(math.Trunc(f)), nil
	}
	return nil, invalidValue("lossy coercion of %v to NUMBER", f)
}

func normalizeBinary(coerce bool, raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case []byte:
		return bytes.Clone(v), nil
	case string:
		if coerce {
			return []byte(v), nil
		}
	}
	return nil, invalidValue("expected []byte, got %T", raw)
}

func normalizeStringSet(coerce bool, raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case *StringSet:
		return NewStringSet(v.Values()...), nil
	case []string:
		return NewStringSet(v...), nil
	case map[string]struct{}:
		set := NewStringSet()
		for e := range v {
			set.Add(e)
		}
		return set, nil
	case []any:
		set := NewStringSet()
		for _, e := range v {
			elem, err := normalizeString(coerce, e)
			if err != nil {
				return nil, err
			}
			set.Add(elem.(string))
		}
		return set, nil
	}
	return nil, invalidValue("expected string set, got %T", raw)
}

func normalizeNumberSet(coerce bool, raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case *NumberSet:
		return NewNumberSet(v.Values()...), nil
	case []int64:
		return NewNumberSet(v...), nil
	case []int:
		set := NewNumberSet()
		for _, e := range v {
			set.Add(int64(e))
		}
		return set, nil
	case []any:
		set := NewNumberSet()
		for _, e := range v {
			elem, err := normalizeNumber(coerce, e)
			if err != nil {
				return nil, err
			}
			set.Add(elem.(int64))
		}
		return set, nil
	}
	return nil, invalidValue("expected number set, got %T", raw)
}

func normalizeBinarySet(coerce bool, raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case *BinarySet:
		return NewBinarySet(v.Values()...), nil
	case [][]byte:
		return NewBinarySet(v...), nil
	case []any:
		set := NewBinarySet()
		for _, e := range v {
			elem, err := normalizeBinary(coerce, e)
			if err != nil {
				return nil, err
			}
			set.Add(elem.([]byte))
		}
		return set, nil
	}
	return nil, invalidValue("expected binary set, got %T", raw)
}

func normalizeBoolean(coerce bool, raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		if coerce {
			b, err := strconv.ParseBool(v)
			if err == nil {
				return b, nil
			}
		}
	case int, int64:
		if coerce {
			return reflect.ValueOf(v).Int() != 0, nil
		}
	}
	return nil, invalidValue("expected bool, got %T", raw)
}

func normalizeList(raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case *List:
		return v.clone(), nil
	case []any:
		return NewList(v...), nil
	}
	// accept any slice type
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice {
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return NewList(elems...), nil
	}
	return nil, invalidValue("expected list, got %T", raw)
}

func normalizeMap(raw any) (any, *ValidationError) {
	switch v := raw.(type) {
	case *Map:
		return v.clone(), nil
	case map[string]any:
		return newMapOf(v), nil
	}
	return nil, invalidValue("expected map, got %T", raw)
}

// copyValue returns a structural copy of a canonical value for the snapshot
// store. Container copies carry a clean baseline.
func copyValue(kind Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case KindBinary:
		return bytes.Clone(v.([]byte))
	case KindStringSet:
		return &StringSet{set: v.(*StringSet).set.clone()}
	case KindNumberSet:
		return &NumberSet{set: v.(*NumberSet).set.clone()}
	case KindBinarySet:
		return &BinarySet{set: v.(*BinarySet).set.clone()}
	case KindList:
		return v.(*List).clone()
	case KindMap:
		return v.(*Map).clone()
	default:
		// scalar kinds are value types
		return v
	}
}

// equalValue compares two canonical values of the same kind.
func equalValue(kind Kind, a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch kind {
	case KindBinary:
		return bytes.Equal(a.([]byte), b.([]byte))
	case KindDateTime:
		return a.(time.Time).Equal(b.(time.Time))
	case KindDecimal:
		return a.(decimal.Decimal).Equal(b.(decimal.Decimal))
	case KindStringSet:
		return reflect.DeepEqual(a.(*StringSet).set.elems, b.(*StringSet).set.elems)
	case KindNumberSet:
		return reflect.DeepEqual(a.(*NumberSet).set.elems, b.(*NumberSet).set.elems)
	case KindBinarySet:
		return reflect.DeepEqual(a.(*BinarySet).set.elems, b.(*BinarySet).set.elems)
	case KindList:
		return reflect.DeepEqual(a.(*List).elems, b.(*List).elems)
	case KindMap:
		return reflect.DeepEqual(a.(*Map).entries, b.(*Map).entries)
	default:
		return a == b
	}
}
