package field

import (
	"fmt"
	"slices"

	"github.com/spf13/cast"
)

// TypeInfo holds the logical type of a column together with its database
// binding.
type TypeInfo struct {
	Type      Type
	Nullable  bool
	Size      int   // Characters or bytes; 0 means unbounded.
	Precision uint8 // Decimal precision.
	Scale     uint8 // Decimal scale.
	Unicode   bool  // National character data.
	Charset   string
	Collation string
	Enum      *Enum // Set for enumeration columns; Type is the backing type.
}

// String returns a compact representation of the type info.
func (t TypeInfo) String() string {
	s := t.Type.String()
	switch {
	case t.Type == TypeDecimal && t.Precision > 0:
		s = fmt.Sprintf("%s(%d,%d)", s, t.Precision, t.Scale)
	case t.Size > 0:
		s = fmt.Sprintf("%s(%d)", s, t.Size)
	}
	if t.Enum != nil {
		s = "enum:" + s
	}
	if t.Nullable {
		s += "?"
	}
	return s
}

// Valid reports if the type info describes a mappable column.
func (t TypeInfo) Valid() bool {
	if !t.Type.Valid() {
		return false
	}
	if t.Enum != nil {
		return t.Enum.Backing == t.Type && t.Enum.Backing.validBacking()
	}
	return true
}

// Helpers for the common logical types.
var (
	Bool    = TypeInfo{Type: TypeBool}
	Uint8   = TypeInfo{Type: TypeUint8}
	Int16   = TypeInfo{Type: TypeInt16}
	Int32   = TypeInfo{Type: TypeInt32}
	Int64   = TypeInfo{Type: TypeInt64}
	Float32 = TypeInfo{Type: TypeFloat32}
	Float64 = TypeInfo{Type: TypeFloat64}
	Bytes   = TypeInfo{Type: TypeBytes}
	UUID    = TypeInfo{Type: TypeUUID}
	Time    = TypeInfo{Type: TypeTime}
	Date    = TypeInfo{Type: TypeDate}
)

// String returns a string type info of the given size.
func String(size int) TypeInfo {
	return TypeInfo{Type: TypeString, Size: size, Unicode: true}
}

// Char returns a single character type info.
func Char() TypeInfo {
	return TypeInfo{Type: TypeChar, Size: 1, Unicode: true}
}

// Decimal returns a decimal type info.
func Decimal(precision, scale uint8) TypeInfo {
	return TypeInfo{Type: TypeDecimal, Precision: precision, Scale: scale}
}

// Null returns a copy of the type info that accepts NULL.
func (t TypeInfo) Null() TypeInfo {
	t.Nullable = true
	return t
}

// A ValueConverter converts a value of an enumeration to the primitive value
// of its backing type.
type ValueConverter interface {
	ToBacking(v any) (any, error)
	FromBacking(v any) (any, error)
}

// Enum describes an enumeration column backed by a primitive type.
type Enum struct {
	Backing   Type
	Converter ValueConverter
	Names     []string
}

func (t Type) validBacking() bool {
	switch t {
	case TypeUint8, TypeChar, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// EnumOf returns the type info of an enumeration backed by the given type.
func EnumOf(backing Type, conv ValueConverter) TypeInfo {
	return TypeInfo{Type: backing, Enum: &Enum{Backing: backing, Converter: conv}}
}

// NamedEnum returns the type info of an enumeration whose values are the
// given names, stored as their ordinal position.
func NamedEnum(backing Type, names ...string) TypeInfo {
	e := &Enum{Backing: backing, Names: names}
	e.Converter = namedConverter{enum: e}
	return TypeInfo{Type: backing, Enum: e}
}

type namedConverter struct {
	enum *Enum
}

func (c namedConverter) ToBacking(v any) (any, error) {
	if s, ok := v.(string); ok {
		i := slices.Index(c.enum.Names, s)
		if i < 0 {
			return nil, fmt.Errorf("field: %q is not a value of the enumeration", s)
		}
		return Convert(TypeInfo{Type: c.enum.Backing}, i)
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return nil, err
	}
	if n < 0 || n >= len(c.enum.Names) {
		return nil, fmt.Errorf("field: ordinal %d outside the enumeration", n)
	}
	return Convert(TypeInfo{Type: c.enum.Backing}, n)
}

func (c namedConverter) FromBacking(v any) (any, error) {
	n, err := cast.ToIntE(v)
	if err != nil {
		return nil, err
	}
	if n < 0 || n >= len(c.enum.Names) {
		return nil, fmt.Errorf("field: ordinal %d outside the enumeration", n)
	}
	return c.enum.Names[n], nil
}
