package field_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset/schema/field"
)

func TestType(t *testing.T) {
	for _, name := range []string{"bool", "uint8", "char", "int16", "int32", "int64", "float32", "float64", "decimal", "string", "bytes", "uuid", "time", "date"} {
		typ, err := field.ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, name, typ.String())
		assert.True(t, typ.Valid())
	}
	_, err := field.ParseType("invalid")
	assert.Error(t, err)
	assert.False(t, field.TypeInvalid.Valid())
	assert.Equal(t, "type(200)", field.Type(200).String())

	assert.True(t, field.TypeUint8.Integer())
	assert.False(t, field.TypeDecimal.Integer())
	assert.True(t, field.TypeDecimal.Numeric())
	assert.True(t, field.TypeChar.Textual())
	assert.True(t, field.TypeDate.Temporal())
	assert.Equal(t, field.CategoryNumeric, field.TypeFloat32.Category())
	assert.Equal(t, field.CategoryText, field.TypeChar.Category())
	assert.Equal(t, field.CategoryNone, field.TypeInvalid.Category())
}

func TestWider(t *testing.T) {
	assert.Equal(t, field.TypeInt32, field.Wider(field.TypeInt16, field.TypeInt32))
	assert.Equal(t, field.TypeDecimal, field.Wider(field.TypeDecimal, field.TypeInt64))
	assert.Equal(t, field.TypeFloat64, field.Wider(field.TypeDecimal, field.TypeFloat64))
	assert.Equal(t, field.TypeInvalid, field.Wider(field.TypeInt32, field.TypeString))
}

func TestTypeInfo(t *testing.T) {
	assert.Equal(t, "string(20)?", field.String(20).Null().String())
	assert.Equal(t, "decimal(10,2)", field.Decimal(10, 2).String())
	assert.Equal(t, "enum:uint8", field.NamedEnum(field.TypeUint8, "a").String())
	assert.True(t, field.String(20).Unicode)
	assert.False(t, field.Int32.Nullable, "Null returns a copy")

	assert.True(t, field.NamedEnum(field.TypeInt16, "a").Valid())
	assert.False(t, field.NamedEnum(field.TypeString, "a").Valid())
	assert.False(t, field.TypeInfo{}.Valid())
}

func TestConvert(t *testing.T) {
	day := time.Date(2024, 3, 9, 17, 30, 0, 0, time.UTC)
	id := uuid.New()
	tests := []struct {
		name string
		info field.TypeInfo
		in   any
		want any
	}{
		{"bool from string", field.Bool, "true", true},
		{"uint8 from int", field.Uint8, 255, uint8(255)},
		{"char from string", field.Char(), "é", 'é'},
		{"int16 from float", field.Int16, 12.0, int16(12)},
		{"int32 from string", field.Int32, "42", int32(42)},
		{"int64 from decimal", field.Int64, decimal.NewFromInt(7), int64(7)},
		{"float32", field.Float32, 1.5, float32(1.5)},
		{"decimal from string", field.Decimal(10, 2), "3.25", decimal.RequireFromString("3.25")},
		{"decimal from int", field.Decimal(10, 2), 3, decimal.NewFromInt(3)},
		{"string", field.String(3), "abc", "abc"},
		{"bytes from string", field.Bytes, "ab", []byte("ab")},
		{"uuid from string", field.UUID, id.String(), id},
		{"uuid from bytes", field.UUID, id[:], id},
		{"time", field.Time, day, day},
		{"date truncates", field.Date, day, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"nullable nil", field.Int32.Null(), nil, nil},
		{"enum keeps value", field.NamedEnum(field.TypeUint8, "draft", "live"), "live", "live"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := field.Convert(tt.info, tt.in)
			require.NoError(t, err)
			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)), "got %v", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		info field.TypeInfo
		in   any
	}{
		{"uint8 overflow", field.Uint8, 256},
		{"uint8 negative", field.Uint8, -1},
		{"int16 overflow", field.Int16, math.MaxInt16 + 1},
		{"int32 overflow", field.Int32, int64(math.MaxInt32) + 1},
		{"int64 overflow", field.Int64, uint64(math.MaxUint64)},
		{"fraction to int", field.Int32, 1.5},
		{"fraction decimal to int", field.Int64, decimal.RequireFromString("1.5")},
		{"not a number", field.Int32, "x"},
		{"string too long", field.String(2), "abc"},
		{"bytes too long", field.TypeInfo{Type: field.TypeBytes, Size: 1}, []byte("ab")},
		{"bytes from int", field.Bytes, 1},
		{"multi rune char", field.Char(), "ab"},
		{"bad uuid", field.UUID, "nope"},
		{"bad decimal", field.Decimal(10, 2), "1,5"},
		{"unknown enum name", field.NamedEnum(field.TypeUint8, "draft"), "live"},
		{"enum ordinal out of range", field.NamedEnum(field.TypeUint8, "draft"), 3},
		{"invalid type", field.TypeInfo{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := field.Convert(tt.info, tt.in)
			assert.Error(t, err)
		})
	}
	_, err := field.Convert(field.Int32, nil)
	assert.True(t, errors.Is(err, field.ErrNull))
}

func TestBacking(t *testing.T) {
	status := field.NamedEnum(field.TypeUint8, "draft", "live")
	v, err := field.Backing(status, "live")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)

	v, err = field.Backing(status, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), v)

	v, err = field.FromBacking(status, int64(1))
	require.NoError(t, err)
	assert.Equal(t, "live", v)

	_, err = field.FromBacking(status, nil)
	assert.ErrorIs(t, err, field.ErrNull)
	v, err = field.FromBacking(status.Null(), nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = field.Backing(field.Int32, "5")
	require.NoError(t, err)
	assert.Equal(t, int32(5), v)
}

func TestWire(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	tests := []struct {
		info field.TypeInfo
		in   any
		want any
	}{
		{field.Decimal(10, 2), "1.50", "1.5"},
		{field.UUID, id, "7d444840-9dc0-11d1-b245-5ffdce74fad2"},
		{field.Char(), "x", "x"},
		{field.NamedEnum(field.TypeInt32, "a", "b"), "b", int32(1)},
		{field.Int64.Null(), nil, nil},
	}
	for _, tt := range tests {
		got, err := field.Wire(tt.info, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

type cents struct{}

func (cents) ToBacking(v any) (any, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return nil, errors.New("not an amount")
	}
	return d.Shift(2).IntPart(), nil
}

func (cents) FromBacking(v any) (any, error) {
	return decimal.New(v.(int64), -2), nil
}

func TestEnumOf(t *testing.T) {
	info := field.EnumOf(field.TypeInt64, cents{})
	require.True(t, info.Valid())
	v, err := field.Backing(info, decimal.RequireFromString("12.34"))
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v)
	back, err := field.FromBacking(info, v)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.34").Equal(back.(decimal.Decimal)))
	_, err = field.Convert(info, "12.34")
	assert.Error(t, err)
}

func TestIntegerRangeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("int16 conversion accepts exactly its range", prop.ForAll(
		func(n int64) bool {
			v, err := field.Convert(field.Int16, n)
			if n < math.MinInt16 || n > math.MaxInt16 {
				return err != nil
			}
			return err == nil && v == int16(n)
		},
		gen.Int64Range(-100000, 100000),
	))
	properties.Property("uint8 conversion accepts exactly its range", prop.ForAll(
		func(n int64) bool {
			v, err := field.Convert(field.Uint8, n)
			if n < 0 || n > math.MaxUint8 {
				return err != nil
			}
			return err == nil && v == uint8(n)
		},
		gen.Int64Range(-1000, 1000),
	))
	properties.Property("named enums round trip through their backing value", prop.ForAll(
		func(i int) bool {
			names := []string{"a", "b", "c", "d"}
			info := field.NamedEnum(field.TypeInt32, names...)
			b, err := field.Backing(info, names[i])
			if err != nil {
				return false
			}
			v, err := field.FromBacking(info, b)
			return err == nil && v == names[i]
		},
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
