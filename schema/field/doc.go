// Package field provides the logical column types of rowset models and the
// conversion of Go values into their canonical representation.
//
// # Types
//
// A Type names a logical type; a TypeInfo adds the database binding:
//
//	field.Int64               // BIGINT
//	field.String(100)         // NVARCHAR(100) / VARCHAR(100)
//	field.Decimal(18, 4)      // DECIMAL(18,4)
//	field.Date.Null()         // nullable DATE
//
// Types are grouped in categories. Values of the same category compare
// with each other; numeric types additionally widen with Wider.
//
// # Enumerations
//
// Enumeration columns are stored as their backing integer and keep the Go
// value the caller provided:
//
//	status := field.NamedEnum(field.TypeUint8, "draft", "live")
//	field.Backing(status, "live") // uint8(1)
//
// Custom mappings implement ValueConverter and are declared with EnumOf.
//
// # Conversion
//
// Convert accepts any value castable to the logical type and returns its
// canonical form. Wire returns a transport-neutral form used by payload
// encoders.
package field
