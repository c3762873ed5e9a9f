package expr

import (
	"github.com/syssam/rowset"
	"github.com/syssam/rowset/schema/field"
)

// Op is a unary or binary operator.
type Op uint8

// Binary operators.
const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
	OpEQ
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLike
	// Unary operators.
	OpNeg
	OpNot
	OpBitNot
	OpIsNull
	OpIsNotNull
	endOps
)

var opNames = [...]string{
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpMod:       "mod",
	OpConcat:    "concat",
	OpEQ:        "eq",
	OpNEQ:       "neq",
	OpLT:        "lt",
	OpLTE:       "lte",
	OpGT:        "gt",
	OpGTE:       "gte",
	OpAnd:       "and",
	OpOr:        "or",
	OpBitAnd:    "bitand",
	OpBitOr:     "bitor",
	OpBitXor:    "bitxor",
	OpLike:      "like",
	OpNeg:       "neg",
	OpNot:       "not",
	OpBitNot:    "bitnot",
	OpIsNull:    "isnull",
	OpIsNotNull: "isnotnull",
}

// String returns the name of the operator.
func (o Op) String() string {
	if o > 0 && o < endOps {
		return opNames[o]
	}
	return "invalid"
}

// Unary reports if the operator takes a single operand.
func (o Op) Unary() bool { return o >= OpNeg && o < endOps }

// Comparison reports if the operator compares its operands.
func (o Op) Comparison() bool { return o >= OpEQ && o <= OpGTE }

// Binary is an operator applied to two operands.
type Binary struct {
	Op   Op
	L, R Expr
	typ  field.Type
}

// Type implements the Expr interface.
func (b *Binary) Type() field.Type { return b.typ }

// Unary is an operator applied to one operand.
type Unary struct {
	Op  Op
	X   Expr
	typ field.Type
}

// Type implements the Expr interface.
func (u *Unary) Type() field.Type { return u.typ }

// NewBinary returns a binary node after checking the operand types against
// the operator signature.
func NewBinary(op Op, l, r Expr) (*Binary, error) {
	if op.Unary() || op <= 0 || op >= endOps {
		return nil, rowset.NewTypeMismatchError(op.String(), "not a binary operator")
	}
	if err := operandErr(l, r); err != nil {
		return nil, err
	}
	t, err := binaryType(op, l, r)
	if err != nil {
		return nil, err
	}
	return &Binary{Op: op, L: l, R: r, typ: t}, nil
}

// NewUnary returns a unary node after checking the operand type.
func NewUnary(op Op, x Expr) (*Unary, error) {
	if !op.Unary() {
		return nil, rowset.NewTypeMismatchError(op.String(), "not a unary operator")
	}
	if err := operandErr(x); err != nil {
		return nil, err
	}
	xt := x.Type()
	untyped := IsUntypedNull(x)
	mismatch := func() error {
		return rowset.NewTypeMismatchError(op.String(), "", xt.String())
	}
	switch op {
	case OpNeg:
		if !untyped && !xt.Numeric() {
			return nil, mismatch()
		}
		return &Unary{Op: op, X: x, typ: xt}, nil
	case OpNot:
		if !untyped && xt != field.TypeBool {
			return nil, mismatch()
		}
	case OpBitNot:
		if !untyped && !xt.Integer() {
			return nil, mismatch()
		}
		return &Unary{Op: op, X: x, typ: xt}, nil
	}
	return &Unary{Op: op, X: x, typ: field.TypeBool}, nil
}

func operandErr(xs ...Expr) error {
	for _, x := range xs {
		if err := Err(x); err != nil {
			return err
		}
	}
	return nil
}

func binaryType(op Op, l, r Expr) (field.Type, error) {
	lt, rt := l.Type(), r.Type()
	ln, rn := IsUntypedNull(l), IsUntypedNull(r)
	// An untyped null takes the type of the other operand.
	switch {
	case ln && rn:
		if op.Comparison() || op == OpAnd || op == OpOr || op == OpLike {
			return field.TypeBool, nil
		}
		return field.TypeInvalid, nil
	case ln:
		lt = rt
	case rn:
		rt = lt
	}
	mismatch := func() error {
		return rowset.NewTypeMismatchError(op.String(), "", lt.String(), rt.String())
	}
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		if !lt.Numeric() || !rt.Numeric() {
			return field.TypeInvalid, mismatch()
		}
		return field.Wider(lt, rt), nil
	case OpBitAnd, OpBitOr, OpBitXor:
		if !lt.Integer() || !rt.Integer() {
			return field.TypeInvalid, mismatch()
		}
		return field.Wider(lt, rt), nil
	case OpConcat:
		if !lt.Textual() || !rt.Textual() {
			return field.TypeInvalid, mismatch()
		}
		return field.TypeString, nil
	case OpLike:
		if !lt.Textual() || !rt.Textual() {
			return field.TypeInvalid, mismatch()
		}
		return field.TypeBool, nil
	case OpAnd, OpOr:
		if lt != field.TypeBool || rt != field.TypeBool {
			return field.TypeInvalid, mismatch()
		}
		return field.TypeBool, nil
	}
	// Comparisons.
	if lt.Category() == field.CategoryNone || lt.Category() != rt.Category() {
		return field.TypeInvalid, mismatch()
	}
	return field.TypeBool, nil
}

func binary(op Op, l, r Expr) Expr {
	b, err := NewBinary(op, l, r)
	if err != nil {
		return &Invalid{Err: err}
	}
	return b
}

func unary(op Op, x Expr) Expr {
	u, err := NewUnary(op, x)
	if err != nil {
		return &Invalid{Err: err}
	}
	return u
}

// Add returns l + r.
func Add(l, r Expr) Expr { return binary(OpAdd, l, r) }

// Sub returns l - r.
func Sub(l, r Expr) Expr { return binary(OpSub, l, r) }

// Mul returns l * r.
func Mul(l, r Expr) Expr { return binary(OpMul, l, r) }

// Div returns l / r.
func Div(l, r Expr) Expr { return binary(OpDiv, l, r) }

// Mod returns l % r.
func Mod(l, r Expr) Expr { return binary(OpMod, l, r) }

// Concat returns the concatenation of two strings.
func Concat(l, r Expr) Expr { return binary(OpConcat, l, r) }

// EQ returns l = r.
func EQ(l, r Expr) Expr { return binary(OpEQ, l, r) }

// NEQ returns l <> r.
func NEQ(l, r Expr) Expr { return binary(OpNEQ, l, r) }

// LT returns l < r.
func LT(l, r Expr) Expr { return binary(OpLT, l, r) }

// LTE returns l <= r.
func LTE(l, r Expr) Expr { return binary(OpLTE, l, r) }

// GT returns l > r.
func GT(l, r Expr) Expr { return binary(OpGT, l, r) }

// GTE returns l >= r.
func GTE(l, r Expr) Expr { return binary(OpGTE, l, r) }

// Like returns l LIKE r.
func Like(l, r Expr) Expr { return binary(OpLike, l, r) }

// BitAnd returns l & r.
func BitAnd(l, r Expr) Expr { return binary(OpBitAnd, l, r) }

// BitOr returns l | r.
func BitOr(l, r Expr) Expr { return binary(OpBitOr, l, r) }

// BitXor returns l ^ r.
func BitXor(l, r Expr) Expr { return binary(OpBitXor, l, r) }

// And returns the conjunction of the given predicates.
func And(preds ...Expr) Expr { return fold(OpAnd, preds) }

// Or returns the disjunction of the given predicates.
func Or(preds ...Expr) Expr { return fold(OpOr, preds) }

func fold(op Op, preds []Expr) Expr {
	if len(preds) == 0 {
		return &Invalid{Err: rowset.NewTypeMismatchError(op.String(), "no operands")}
	}
	e := Predicate(op.String(), preds[0])
	for _, p := range preds[1:] {
		e = binary(op, e, p)
	}
	return e
}

// Predicate returns e when it is a boolean expression, or an *Invalid
// reporting a type mismatch in clause otherwise. Invalid inputs and untyped
// nulls are returned unchanged.
func Predicate(clause string, e Expr) Expr {
	if e == nil || Err(e) != nil || IsUntypedNull(e) || e.Type() == field.TypeBool {
		return e
	}
	return &Invalid{Err: rowset.NewTypeMismatchError(clause, "predicate is not boolean", e.Type().String())}
}

// Neg returns -x.
func Neg(x Expr) Expr { return unary(OpNeg, x) }

// Not returns NOT x.
func Not(x Expr) Expr { return unary(OpNot, x) }

// BitNot returns ~x.
func BitNot(x Expr) Expr { return unary(OpBitNot, x) }

// IsNull returns x IS NULL.
func IsNull(x Expr) Expr { return unary(OpIsNull, x) }

// IsNotNull returns x IS NOT NULL.
func IsNotNull(x Expr) Expr { return unary(OpIsNotNull, x) }
