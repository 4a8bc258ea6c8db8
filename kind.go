package deltamap

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Kind identifies the logical data type of an attribute. Each kind has a
// canonical in-memory representation and a canonical wire representation:
//
//	KindString     string                  S
//	KindNumber     int64                   N
//	KindBinary     []byte                  B
//	KindStringSet  *StringSet              SS
//	KindNumberSet  *NumberSet              NS
//	KindBinarySet  *BinarySet              BS
//	KindBoolean    bool                    BOOL
//	KindDateTime   time.Time               S (RFC 3339, nanoseconds, UTC)
//	KindDate       Date                    S (2006-01-02)
//	KindDecimal    decimal.Decimal         N (exact digit string)
//	KindList       *List                   L
//	KindMap        *Map                    M
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBinary
	KindStringSet
	KindNumberSet
	KindBinarySet
	KindBoolean
	KindDateTime
	KindDate
	KindDecimal
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindString:    "STRING",
	KindNumber:    "NUMBER",
	KindBinary:    "BINARY",
	KindStringSet: "STRING_SET",
	KindNumberSet: "NUMBER_SET",
	KindBinarySet: "BINARY_SET",
	KindBoolean:   "BOOLEAN",
	KindDateTime:  "DATETIME",
	KindDate:      "DATE",
	KindDecimal:   "DECIMAL",
	KindList:      "LIST",
	KindMap:       "MAP",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsSet reports whether k is one of the three set kinds.
func (k Kind) IsSet() bool {
	return k == KindStringSet || k == KindNumberSet || k == KindBinarySet
}

// IsContainer reports whether k holds a change-tracking container value.
func (k Kind) IsContainer() bool {
	return k.IsSet() || k == KindList || k == KindMap
}

// ScalarAttributeType maps k to the DynamoDB scalar type used in key schemas.
// Only kinds that encode to the S, N or B wire types are eligible to serve as
// table or index keys.
func (k Kind) ScalarAttributeType() (types.ScalarAttributeType, bool) {
	switch k {
	case KindString, KindDateTime, KindDate:
		return types.ScalarAttributeTypeS, true
	case KindNumber, KindDecimal:
		return types.ScalarAttributeTypeN, true
	case KindBinary:
		return types.ScalarAttributeTypeB, true
	default:
		return "", false
	}
}

// zeroValue returns the default in-memory value for k. Container kinds get a
// fresh tracked container; string-like kinds default to absent (nil).
func (k Kind) zeroValue() any {
	switch k {
	case KindNumber:
		return int64(0)
	case KindBoolean:
		return false
	case KindDecimal:
		return decimal.Decimal{}
	case KindStringSet:
		return NewStringSet()
	case KindNumberSet:
		return NewNumberSet()
	case KindBinarySet:
		return NewBinarySet()
	case KindList:
		return NewList()
	case KindMap:
		return NewMap()
	default:
		return nil
	}
}

// isDefault reports whether v is the sparse default for k. Default values are
// never written to the table and never appear in delta operations.
func (k Kind) isDefault(v any) bool {
	if v == nil {
		return true
	}
	switch k {
	case KindNumber:
		n, ok := v.(int64)
		return ok && n == 0
	case KindBoolean:
		b, ok := v.(bool)
		return ok && !b
	case KindDecimal:
		d, ok := v.(decimal.Decimal)
		return ok && d.IsZero()
	case KindDateTime:
		t, ok := v.(time.Time)
		return ok && t.IsZero()
	case KindDate:
		d, ok := v.(Date)
		return ok && d.IsZero()
	case KindStringSet:
		s, ok := v.(*StringSet)
		return ok && s.Len() == 0
	case KindNumberSet:
		s, ok := v.(*NumberSet)
		return ok && s.Len() == 0
	case KindBinarySet:
		s, ok := v.(*BinarySet)
		return ok && s.Len() == 0
	case KindList:
		l, ok := v.(*List)
		return ok && l.Len() == 0
	case KindMap:
		m, ok := v.(*Map)
		return ok && m.Len() == 0
	default:
		return false
	}
}

// Date is a calendar date with no time-of-day or location component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the calendar date from t in t's location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a date in 2006-01-02 form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
