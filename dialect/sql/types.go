package sql

import (
	"fmt"
	"strconv"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/schema/field"
)

// MaxSize marks a variable length type without a declared bound.
const MaxSize = -1

// PhysicalType describes the database type a logical type is stored as.
type PhysicalType struct {
	Tag       string // Database type name, e.g. NVARCHAR.
	Size      int    // Length argument; MaxSize renders MAX, 0 renders none.
	Precision uint8
	Scale     uint8
	Nullable  bool
	Unicode   bool
	Charset   string
	Collation string
	Logical   field.TypeInfo
}

// String returns the type as written in DDL and CAST expressions.
func (t PhysicalType) String() string {
	switch {
	case t.Precision > 0:
		return fmt.Sprintf("%s(%d,%d)", t.Tag, t.Precision, t.Scale)
	case t.Size == MaxSize:
		return t.Tag + "(MAX)"
	case t.Size > 0:
		return t.Tag + "(" + strconv.Itoa(t.Size) + ")"
	}
	return t.Tag
}

// SameParameterType reports if values of both types bind to the same
// database parameter type, which makes a CAST between them redundant.
func (t PhysicalType) SameParameterType(u PhysicalType) bool {
	return t.Tag == u.Tag
}

type typeRule func(field.TypeInfo) PhysicalType

// Type maps a logical type to the physical type of the dialect.
func (d *Dialect) Type(info field.TypeInfo) (PhysicalType, error) {
	rule, ok := d.types[info.Type]
	if !ok || !info.Valid() {
		return PhysicalType{}, &rowset.TypeMappingError{Dialect: d.name, Type: info.String()}
	}
	t := rule(info)
	t.Nullable = info.Nullable
	t.Charset = info.Charset
	t.Collation = info.Collation
	t.Logical = info
	return t, nil
}

// ColumnType maps the logical type of a named column.
func (d *Dialect) ColumnType(name string, info field.TypeInfo) (PhysicalType, error) {
	t, err := d.Type(info)
	if err != nil {
		if e, ok := err.(*rowset.TypeMappingError); ok {
			e.Column = name
		}
		return PhysicalType{}, err
	}
	return t, nil
}

func tag(name string) typeRule {
	return func(field.TypeInfo) PhysicalType { return PhysicalType{Tag: name} }
}

func decimalOf(name string) typeRule {
	return func(info field.TypeInfo) PhysicalType {
		p, s := info.Precision, info.Scale
		if p == 0 {
			p, s = 18, 4
		}
		return PhysicalType{Tag: name, Precision: p, Scale: s}
	}
}

// sized returns a rule for variable length types; unbounded columns use
// the unbounded tag with MaxSize, or the large tag when given.
func sized(tag string, unbounded int, large string) typeRule {
	return func(info field.TypeInfo) PhysicalType {
		switch {
		case info.Size > 0:
			return PhysicalType{Tag: tag, Size: info.Size}
		case large != "":
			return PhysicalType{Tag: large}
		}
		return PhysicalType{Tag: tag, Size: unbounded}
	}
}

func unicode(national, plain typeRule) typeRule {
	return func(info field.TypeInfo) PhysicalType {
		if info.Unicode {
			t := national(info)
			t.Unicode = true
			return t
		}
		return plain(info)
	}
}

var sqlServerTypes = map[field.Type]typeRule{
	field.TypeBool:    tag("BIT"),
	field.TypeUint8:   tag("TINYINT"),
	field.TypeChar:    unicode(fixed("NCHAR", 1), fixed("CHAR", 1)),
	field.TypeInt16:   tag("SMALLINT"),
	field.TypeInt32:   tag("INT"),
	field.TypeInt64:   tag("BIGINT"),
	field.TypeFloat32: tag("REAL"),
	field.TypeFloat64: tag("FLOAT"),
	field.TypeDecimal: decimalOf("DECIMAL"),
	field.TypeString:  unicode(sized("NVARCHAR", MaxSize, ""), sized("VARCHAR", MaxSize, "")),
	field.TypeBytes:   sized("VARBINARY", MaxSize, ""),
	field.TypeUUID:    tag("UNIQUEIDENTIFIER"),
	field.TypeTime:    tag("DATETIME2"),
	field.TypeDate:    tag("DATE"),
}

var mysqlTypes = map[field.Type]typeRule{
	field.TypeBool:    tag("BOOLEAN"),
	field.TypeUint8:   tag("TINYINT UNSIGNED"),
	field.TypeChar:    fixed("CHAR", 1),
	field.TypeInt16:   tag("SMALLINT"),
	field.TypeInt32:   tag("INT"),
	field.TypeInt64:   tag("BIGINT"),
	field.TypeFloat32: tag("FLOAT"),
	field.TypeFloat64: tag("DOUBLE"),
	field.TypeDecimal: decimalOf("DECIMAL"),
	field.TypeString:  sized("VARCHAR", 0, "LONGTEXT"),
	field.TypeBytes:   sized("VARBINARY", 0, "LONGBLOB"),
	field.TypeUUID:    fixed("CHAR", 36),
	field.TypeTime:    fixed("DATETIME", 6),
	field.TypeDate:    tag("DATE"),
}

var postgresTypes = map[field.Type]typeRule{
	field.TypeBool:    tag("BOOLEAN"),
	field.TypeUint8:   tag("SMALLINT"),
	field.TypeChar:    fixed("CHAR", 1),
	field.TypeInt16:   tag("SMALLINT"),
	field.TypeInt32:   tag("INTEGER"),
	field.TypeInt64:   tag("BIGINT"),
	field.TypeFloat32: tag("REAL"),
	field.TypeFloat64: tag("DOUBLE PRECISION"),
	field.TypeDecimal: decimalOf("NUMERIC"),
	field.TypeString:  sized("VARCHAR", 0, "TEXT"),
	field.TypeBytes:   tag("BYTEA"),
	field.TypeUUID:    tag("UUID"),
	field.TypeTime:    tag("TIMESTAMP"),
	field.TypeDate:    tag("DATE"),
}

var sqliteTypes = map[field.Type]typeRule{
	field.TypeBool:    tag("BOOLEAN"),
	field.TypeUint8:   tag("INTEGER"),
	field.TypeChar:    tag("TEXT"),
	field.TypeInt16:   tag("INTEGER"),
	field.TypeInt32:   tag("INTEGER"),
	field.TypeInt64:   tag("INTEGER"),
	field.TypeFloat32: tag("REAL"),
	field.TypeFloat64: tag("REAL"),
	field.TypeDecimal: tag("NUMERIC"),
	field.TypeString:  tag("TEXT"),
	field.TypeBytes:   tag("BLOB"),
	field.TypeUUID:    tag("TEXT"),
	field.TypeTime:    tag("DATETIME"),
	field.TypeDate:    tag("DATE"),
}

func fixed(name string, size int) typeRule {
	return func(field.TypeInfo) PhysicalType { return PhysicalType{Tag: name, Size: size} }
}
