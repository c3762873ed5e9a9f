package field

import "fmt"

// A Type represents a logical column type.
type Type uint8

// List of logical types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeUint8
	TypeChar
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeDecimal
	TypeString
	TypeBytes
	TypeUUID
	TypeTime
	TypeDate
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeUint8:   "uint8",
	TypeChar:    "char",
	TypeInt16:   "int16",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeDecimal: "decimal",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeUUID:    "uuid",
	TypeTime:    "time",
	TypeDate:    "date",
}

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType returns the logical type with the given name.
func ParseType(name string) (Type, error) {
	for t := TypeBool; t < endTypes; t++ {
		if typeNames[t] == name {
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("field: unknown type %q", name)
}

// Valid reports if the given type is a known logical type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Integer reports if the given type is an integral type.
func (t Type) Integer() bool {
	switch t {
	case TypeUint8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// Float reports if the given type is a binary floating point type.
func (t Type) Float() bool {
	return t == TypeFloat32 || t == TypeFloat64
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t.Integer() || t.Float() || t == TypeDecimal
}

// Textual reports if the given type holds character data.
func (t Type) Textual() bool {
	return t == TypeString || t == TypeChar
}

// Temporal reports if the given type holds a point in time.
func (t Type) Temporal() bool {
	return t == TypeTime || t == TypeDate
}

// Category groups types that compare with each other.
type Category uint8

// Type categories.
const (
	CategoryNone Category = iota
	CategoryBool
	CategoryNumeric
	CategoryText
	CategoryBinary
	CategoryUUID
	CategoryTemporal
)

// Category returns the comparison category of the type.
func (t Type) Category() Category {
	switch {
	case t == TypeBool:
		return CategoryBool
	case t.Numeric():
		return CategoryNumeric
	case t.Textual():
		return CategoryText
	case t == TypeBytes:
		return CategoryBinary
	case t == TypeUUID:
		return CategoryUUID
	case t.Temporal():
		return CategoryTemporal
	}
	return CategoryNone
}

// numericRank orders numeric types by the width of values they can hold.
var numericRank = map[Type]int{
	TypeUint8:   1,
	TypeInt16:   2,
	TypeInt32:   3,
	TypeInt64:   4,
	TypeDecimal: 5,
	TypeFloat32: 6,
	TypeFloat64: 7,
}

// Wider returns the wider of two numeric types. It returns TypeInvalid if
// either type is not numeric.
func Wider(a, b Type) Type {
	ra, ok1 := numericRank[a]
	rb, ok2 := numericRank[b]
	if !ok1 || !ok2 {
		return TypeInvalid
	}
	if rb > ra {
		return b
	}
	return a
}
