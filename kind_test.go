package deltamap

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "STRING", KindString.String())
	assert.Equal(t, "NUMBER_SET", KindNumberSet.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindStringSet.IsSet())
	assert.True(t, KindBinarySet.IsSet())
	assert.False(t, KindList.IsSet())

	assert.True(t, KindList.IsContainer())
	assert.True(t, KindMap.IsContainer())
	assert.True(t, KindNumberSet.IsContainer())
	assert.False(t, KindString.IsContainer())
}

func TestKindScalarAttributeType(t *testing.T) {
	cases := []struct {
		kind   Kind
		scalar types.ScalarAttributeType
	}{
		{KindString, types.ScalarAttributeTypeS},
		{KindDateTime, types.ScalarAttributeTypeS},
		{KindDate, types.ScalarAttributeTypeS},
		{KindNumber, types.ScalarAttributeTypeN},
		{KindDecimal, types.ScalarAttributeTypeN},
		{KindBinary, types.ScalarAttributeTypeB},
	}
	for _, tc := range cases {
		scalar, ok := tc.kind.ScalarAttributeType()
		assert.True(t, ok, tc.kind)
		assert.Equal(t, tc.scalar, scalar, tc.kind)
	}

	for _, kind := range []Kind{KindStringSet, KindNumberSet, KindBinarySet, KindBoolean, KindList, KindMap} {
		_, ok := kind.ScalarAttributeType()
		assert.False(t, ok, kind)
	}
}

func TestKindDefaults(t *testing.T) {
	assert.True(t, KindString.isDefault(nil))
	assert.True(t, KindNumber.isDefault(int64(0)))
	assert.False(t, KindNumber.isDefault(int64(1)))
	assert.True(t, KindBoolean.isDefault(false))
	assert.False(t, KindBoolean.isDefault(true))
	assert.True(t, KindDecimal.isDefault(decimal.Decimal{}))
	assert.False(t, KindDecimal.isDefault(decimal.NewFromInt(1)))
	assert.True(t, KindDateTime.isDefault(time.Time{}))
	assert.True(t, KindDate.isDefault(Date{}))
	assert.True(t, KindStringSet.isDefault(NewStringSet()))
	assert.False(t, KindStringSet.isDefault(NewStringSet("x")))
	assert.True(t, KindList.isDefault(NewList()))
	assert.True(t, KindMap.isDefault(NewMap()))
}

func TestDate(t *testing.T) {
	d := NewDate(2024, time.March, 7)
	assert.Equal(t, "2024-03-07", d.String())
	assert.False(t, d.IsZero())
	assert.True(t, Date{}.IsZero())

	parsed, err := ParseDate("2024-03-07")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDate("07/03/2024")
	assert.Error(t, err)

	now := time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, d, DateOf(now))
}
