// Package expr provides the typed expression model: column descriptors and
// the immutable expression trees built on top of them.
//
// Every node declares a logical type. Compound nodes are type-checked when
// they are constructed, so a tree that exists is a tree that compiles.
//
//	price := model.Column("price")
//	qty := model.Column("qty")
//	total := expr.Mul(price, qty)
//	if err := expr.Err(total); err != nil {
//		return err
//	}
package expr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/schema/field"
)

// Expr is a node of an expression tree. The set of node kinds is closed:
// *Column, *Constant, *Param, *Binary, *Unary, *Case, *Cast, *Func and
// *Invalid.
type Expr interface {
	// Type returns the logical type of the values the node evaluates to.
	Type() field.Type
	expr()
}

// Table is implemented by the owner of a set of columns.
type Table interface {
	TableName() string
	Columns() []*Column
}

// SystemKind marks columns that are managed by the engine.
type SystemKind uint8

// System column kinds.
const (
	SystemNone SystemKind = iota
	SystemRowID
	SystemParentRowID
)

// Column is a leaf node describing one field of a table. Columns are
// stateless descriptors; they do not hold data.
type Column struct {
	Name       string
	Info       field.TypeInfo
	Table      Table
	Ordinal    int // Position within the owning table.
	Identity   bool
	System     SystemKind
	Default    any    // Literal default value.
	DefaultSQL string // Raw default expression, e.g. CURRENT_TIMESTAMP.
	Comment    string
}

// Type implements the Expr interface.
func (c *Column) Type() field.Type { return c.Info.Type }

// String returns the qualified name of the column.
func (c *Column) String() string {
	if c.Table == nil {
		return c.Name
	}
	return c.Table.TableName() + "." + c.Name
}

// Constant is an inline literal value.
type Constant struct {
	Value any
	Info  field.TypeInfo
}

// Type implements the Expr interface.
func (c *Constant) Type() field.Type { return c.Info.Type }

// IsNull reports if the constant is a null literal.
func (c *Constant) IsNull() bool { return c.Value == nil }

// Param is a bound parameter placeholder. Parameters are identified by
// pointer: using the same *Param twice in a statement binds one value.
type Param struct {
	Name  string
	Info  field.TypeInfo
	Value any
}

// Type implements the Expr interface.
func (p *Param) Type() field.Type { return p.Info.Type }

// Invalid holds an error encountered while building a tree with the
// fluent helpers. Compilation of a tree containing an Invalid node fails
// with that error.
type Invalid struct {
	Err error
}

// Type implements the Expr interface.
func (*Invalid) Type() field.Type { return field.TypeInvalid }

func (*Column) expr()   {}
func (*Constant) expr() {}
func (*Param) expr()    {}
func (*Binary) expr()   {}
func (*Unary) expr()    {}
func (*Case) expr()     {}
func (*Cast) expr()     {}
func (*Func) expr()     {}
func (*Invalid) expr()  {}

// Value returns a constant of the logical type inferred from the Go type
// of v. Unknown Go types produce an *Invalid node.
func Value(v any) Expr {
	t, err := typeOf(v)
	if err != nil {
		return &Invalid{Err: err}
	}
	if v == nil {
		return Null(field.TypeInvalid)
	}
	return Typed(field.TypeInfo{Type: t}, v)
}

// Typed returns a constant of the given type info. The value is converted
// to the canonical representation of the type.
func Typed(info field.TypeInfo, v any) Expr {
	cv, err := field.Convert(info.Null(), v)
	if err != nil {
		return &Invalid{Err: rowset.NewConversionError("", v, err)}
	}
	return &Constant{Value: cv, Info: info}
}

// Null returns a typed null literal. Null(field.TypeInvalid) returns an
// untyped null that is compatible with every operand.
func Null(t field.Type) *Constant {
	return &Constant{Info: field.TypeInfo{Type: t, Nullable: true}}
}

// NewParam returns a new parameter of the given type holding v.
func NewParam(name string, info field.TypeInfo, v any) *Param {
	return &Param{Name: name, Info: info, Value: v}
}

func typeOf(v any) (field.Type, error) {
	switch v.(type) {
	case nil:
		return field.TypeInvalid, nil
	case bool:
		return field.TypeBool, nil
	case uint8:
		return field.TypeUint8, nil
	case int16:
		return field.TypeInt16, nil
	case int32:
		return field.TypeInt32, nil
	case int, int64:
		return field.TypeInt64, nil
	case float32:
		return field.TypeFloat32, nil
	case float64:
		return field.TypeFloat64, nil
	case decimal.Decimal:
		return field.TypeDecimal, nil
	case string:
		return field.TypeString, nil
	case []byte:
		return field.TypeBytes, nil
	case uuid.UUID:
		return field.TypeUUID, nil
	case time.Time:
		return field.TypeTime, nil
	}
	return field.TypeInvalid, fmt.Errorf("expr: unsupported constant type %T", v)
}

// Err returns the first construction error found in the tree, if any.
func Err(e Expr) error {
	if e == nil {
		return fmt.Errorf("expr: nil expression")
	}
	var err error
	Inspect(e, func(n Expr) bool {
		if err != nil {
			return false
		}
		if inv, ok := n.(*Invalid); ok {
			err = inv.Err
			return false
		}
		return true
	})
	return err
}

// IsUntypedNull reports if e is a null literal without a type.
func IsUntypedNull(e Expr) bool {
	c, ok := e.(*Constant)
	return ok && c.Value == nil && c.Info.Type == field.TypeInvalid
}
