package field

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ErrNull is returned when a nil value is assigned to a non-nullable column.
var ErrNull = errors.New("field: null value for non-nullable column")

// Convert converts v into the canonical Go value of the logical type:
//
//	TypeBool     bool
//	TypeUint8    uint8
//	TypeChar     rune
//	TypeInt16    int16
//	TypeInt32    int32
//	TypeInt64    int64
//	TypeFloat32  float32
//	TypeFloat64  float64
//	TypeDecimal  decimal.Decimal
//	TypeString   string
//	TypeBytes    []byte
//	TypeUUID     uuid.UUID
//	TypeTime     time.Time
//	TypeDate     time.Time (midnight UTC)
//
// Values of enumeration columns are validated by the enum converter and kept
// as given.
func Convert(info TypeInfo, v any) (any, error) {
	if vr, ok := v.(driver.Valuer); ok {
		dv, err := vr.Value()
		if err != nil {
			return nil, err
		}
		v = dv
	}
	if v == nil {
		if !info.Nullable {
			return nil, ErrNull
		}
		return nil, nil
	}
	if info.Enum != nil {
		if _, err := info.Enum.Converter.ToBacking(v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return convert(info, v)
}

func convert(info TypeInfo, v any) (any, error) {
	switch info.Type {
	case TypeBool:
		return cast.ToBoolE(v)
	case TypeUint8:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > math.MaxUint8 {
			return nil, fmt.Errorf("field: %d overflows uint8", n)
		}
		return uint8(n), nil
	case TypeChar:
		return toChar(v)
	case TypeInt16:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("field: %d overflows int16", n)
		}
		return int16(n), nil
	case TypeInt32:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("field: %d overflows int32", n)
		}
		return int32(n), nil
	case TypeInt64:
		return toInt64(v)
	case TypeFloat32:
		return cast.ToFloat32E(v)
	case TypeFloat64:
		return cast.ToFloat64E(v)
	case TypeDecimal:
		return toDecimal(v)
	case TypeString:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		if info.Size > 0 && utf8.RuneCountInString(s) > info.Size {
			return nil, fmt.Errorf("field: string of length %d exceeds size %d", utf8.RuneCountInString(s), info.Size)
		}
		return s, nil
	case TypeBytes:
		var b []byte
		switch v := v.(type) {
		case []byte:
			b = v
		case string:
			b = []byte(v)
		default:
			return nil, fmt.Errorf("field: unable to cast %#v of type %T to []byte", v, v)
		}
		if info.Size > 0 && len(b) > info.Size {
			return nil, fmt.Errorf("field: %d bytes exceed size %d", len(b), info.Size)
		}
		return b, nil
	case TypeUUID:
		return toUUID(v)
	case TypeTime:
		return cast.ToTimeE(v)
	case TypeDate:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return nil, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return nil, fmt.Errorf("field: unsupported type %s", info.Type)
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("field: %d overflows int64", v)
		}
		return int64(v), nil
	case decimal.Decimal:
		if !v.IsInteger() {
			return 0, fmt.Errorf("field: %s is not integral", v)
		}
		return v.IntPart(), nil
	case float32, float64:
		f := cast.ToFloat64(v)
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("field: %v is not integral", f)
		}
	}
	return cast.ToInt64E(v)
}

func toChar(v any) (rune, error) {
	switch v := v.(type) {
	case rune:
		return v, nil
	case string:
		if utf8.RuneCountInString(v) != 1 {
			return 0, fmt.Errorf("field: %q is not a single character", v)
		}
		r, _ := utf8.DecodeRuneInString(v)
		return r, nil
	case []byte:
		return toChar(string(v))
	}
	n, err := cast.ToInt32E(v)
	if err != nil {
		return 0, err
	}
	return rune(n), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case []byte:
		return decimal.NewFromString(string(v))
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(n), nil
}

func toUUID(v any) (uuid.UUID, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	}
	return uuid.Nil, fmt.Errorf("field: unable to cast %#v of type %T to uuid", v, v)
}

// Backing returns the canonical value of the backing type. For plain
// columns it is the canonical value itself; for enumerations the enum
// converter is applied first.
func Backing(info TypeInfo, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if info.Enum == nil {
		return Convert(info, v)
	}
	b, err := info.Enum.Converter.ToBacking(v)
	if err != nil {
		return nil, err
	}
	plain := info
	plain.Enum = nil
	return Convert(plain, b)
}

// FromBacking is the inverse of Backing.
func FromBacking(info TypeInfo, v any) (any, error) {
	if info.Enum == nil {
		return Convert(info, v)
	}
	if v == nil {
		return Convert(info, nil)
	}
	plain := info
	plain.Enum = nil
	b, err := Convert(plain, v)
	if err != nil {
		return nil, err
	}
	return info.Enum.Converter.FromBacking(b)
}

// Wire returns a transport-neutral form of a canonical value: decimals,
// UUIDs and characters become strings, dates become time values, and
// enumerations are replaced by their backing value.
func Wire(info TypeInfo, v any) (any, error) {
	v, err := Backing(info, v)
	if err != nil || v == nil {
		return v, err
	}
	switch v := v.(type) {
	case decimal.Decimal:
		return v.String(), nil
	case uuid.UUID:
		return v.String(), nil
	case rune:
		if info.Type == TypeChar {
			return string(v), nil
		}
	}
	return v, nil
}
