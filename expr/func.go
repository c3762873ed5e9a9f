package expr

import (
	"github.com/syssam/rowset"
	"github.com/syssam/rowset/schema/field"
)

// Function is the identity token of a SQL function. Dialects register
// renderers keyed by the token pointer, so two functions with the same
// name are still distinct.
type Function struct {
	Name      string
	Aggregate bool
	// Result checks the argument types and returns the result type.
	Result func(args []field.Type) (field.Type, error)
}

// Func is a function call.
type Func struct {
	Fn   *Function
	Args []Expr
	typ  field.Type
}

// Type implements the Expr interface.
func (f *Func) Type() field.Type { return f.typ }

// NewFunc returns a call of fn after checking the argument types.
func NewFunc(fn *Function, args ...Expr) (*Func, error) {
	if err := operandErr(args...); err != nil {
		return nil, err
	}
	types := make([]field.Type, len(args))
	for i, a := range args {
		types[i] = a.Type()
	}
	t, err := fn.Result(types)
	if err != nil {
		return nil, err
	}
	return &Func{Fn: fn, Args: args, typ: t}, nil
}

// Call is the fluent form of NewFunc.
func Call(fn *Function, args ...Expr) Expr {
	f, err := NewFunc(fn, args...)
	if err != nil {
		return &Invalid{Err: err}
	}
	return f
}

func signatureErr(name string, args []field.Type, msg string) error {
	ops := make([]string, len(args))
	for i, t := range args {
		ops[i] = t.String()
	}
	return rowset.NewTypeMismatchError(name, msg, ops...)
}

func unaryRule(name string, accept func(field.Type) bool, result func(field.Type) field.Type) func([]field.Type) (field.Type, error) {
	return func(args []field.Type) (field.Type, error) {
		if len(args) != 1 {
			return field.TypeInvalid, signatureErr(name, args, "expects 1 argument")
		}
		// Untyped null arguments are accepted and produce an untyped result.
		if args[0] != field.TypeInvalid && !accept(args[0]) {
			return field.TypeInvalid, signatureErr(name, args, "")
		}
		return result(args[0]), nil
	}
}

func same(t field.Type) field.Type { return t }

func ordered(t field.Type) bool { return t.Category() != field.CategoryNone }

// Built-in functions.
var (
	Count = &Function{
		Name:      "count",
		Aggregate: true,
		Result: func(args []field.Type) (field.Type, error) {
			if len(args) > 1 {
				return field.TypeInvalid, signatureErr("count", args, "expects at most 1 argument")
			}
			return field.TypeInt64, nil
		},
	}
	Sum = &Function{
		Name:      "sum",
		Aggregate: true,
		Result: unaryRule("sum", field.Type.Numeric, func(t field.Type) field.Type {
			if t.Integer() {
				return field.TypeInt64
			}
			return t
		}),
	}
	Avg = &Function{
		Name:      "avg",
		Aggregate: true,
		Result: unaryRule("avg", field.Type.Numeric, func(t field.Type) field.Type {
			if t.Integer() {
				return field.TypeFloat64
			}
			return t
		}),
	}
	Min = &Function{
		Name:      "min",
		Aggregate: true,
		Result:    unaryRule("min", ordered, same),
	}
	Max = &Function{
		Name:      "max",
		Aggregate: true,
		Result:    unaryRule("max", ordered, same),
	}
	Upper = &Function{
		Name:   "upper",
		Result: unaryRule("upper", field.Type.Textual, func(field.Type) field.Type { return field.TypeString }),
	}
	Lower = &Function{
		Name:   "lower",
		Result: unaryRule("lower", field.Type.Textual, func(field.Type) field.Type { return field.TypeString }),
	}
	Len = &Function{
		Name:   "len",
		Result: unaryRule("len", field.Type.Textual, func(field.Type) field.Type { return field.TypeInt32 }),
	}
	Abs = &Function{
		Name:   "abs",
		Result: unaryRule("abs", field.Type.Numeric, same),
	}
	Coalesce = &Function{
		Name: "coalesce",
		Result: func(args []field.Type) (field.Type, error) {
			if len(args) == 0 {
				return field.TypeInvalid, signatureErr("coalesce", args, "expects at least 1 argument")
			}
			return commonType("coalesce", args)
		},
	}
	Now = &Function{
		Name: "now",
		Result: func(args []field.Type) (field.Type, error) {
			if len(args) != 0 {
				return field.TypeInvalid, signatureErr("now", args, "expects no arguments")
			}
			return field.TypeTime, nil
		},
	}
)

// commonType returns the type shared by all typed values in ts, widening
// numeric types. Untyped values are skipped.
func commonType(name string, ts []field.Type) (field.Type, error) {
	res := field.TypeInvalid
	for _, t := range ts {
		switch {
		case t == field.TypeInvalid:
		case res == field.TypeInvalid:
			res = t
		case res.Numeric() && t.Numeric():
			res = field.Wider(res, t)
		case res.Category() != t.Category():
			return field.TypeInvalid, signatureErr(name, ts, "incompatible operands")
		case t == field.TypeString:
			res = t
		}
	}
	return res, nil
}

// IsAggregate reports if e is an aggregate function call.
func IsAggregate(e Expr) bool {
	f, ok := e.(*Func)
	return ok && f.Fn.Aggregate
}

// ContainsAggregate reports if the tree rooted at e contains an aggregate
// function call.
func ContainsAggregate(e Expr) bool {
	found := false
	Inspect(e, func(n Expr) bool {
		if found {
			return false
		}
		if IsAggregate(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// When is a branch of a CASE expression.
type When struct {
	Cond Expr
	Then Expr
}

// Case is a searched CASE expression.
type Case struct {
	Whens []When
	Else  Expr // Optional.
	typ   field.Type
}

// Type implements the Expr interface.
func (c *Case) Type() field.Type { return c.typ }

// NewCase returns a CASE node. Conditions must be boolean, and results
// must share a type category.
func NewCase(whens []When, els Expr) (*Case, error) {
	if len(whens) == 0 {
		return nil, rowset.NewTypeMismatchError("case", "no branches")
	}
	var results []field.Type
	for _, w := range whens {
		if err := operandErr(w.Cond, w.Then); err != nil {
			return nil, err
		}
		if ct := w.Cond.Type(); ct != field.TypeBool && !IsUntypedNull(w.Cond) {
			return nil, rowset.NewTypeMismatchError("case", "condition is not boolean", ct.String())
		}
		results = append(results, w.Then.Type())
	}
	if els != nil {
		if err := operandErr(els); err != nil {
			return nil, err
		}
		results = append(results, els.Type())
	}
	t, err := commonType("case", results)
	if err != nil {
		return nil, err
	}
	return &Case{Whens: whens, Else: els, typ: t}, nil
}

// CaseWhen is the fluent form of NewCase.
func CaseWhen(whens []When, els Expr) Expr {
	c, err := NewCase(whens, els)
	if err != nil {
		return &Invalid{Err: err}
	}
	return c
}

// Cast converts an expression to another type.
type Cast struct {
	X  Expr
	To field.TypeInfo
}

// Type implements the Expr interface.
func (c *Cast) Type() field.Type { return c.To.Type }

// NewCast returns a CAST node.
func NewCast(x Expr, to field.TypeInfo) (*Cast, error) {
	if err := operandErr(x); err != nil {
		return nil, err
	}
	if !to.Type.Valid() {
		return nil, rowset.NewTypeMismatchError("cast", "invalid target type", x.Type().String(), to.Type.String())
	}
	from := x.Type()
	switch {
	case IsUntypedNull(x), from == to.Type:
	case from.Category() == field.CategoryBinary && to.Type.Category() != field.CategoryBinary && !to.Type.Textual():
		return nil, rowset.NewTypeMismatchError("cast", "", from.String(), to.Type.String())
	case from == field.TypeBool && to.Type.Temporal(), from.Temporal() && to.Type == field.TypeBool:
		return nil, rowset.NewTypeMismatchError("cast", "", from.String(), to.Type.String())
	}
	return &Cast{X: x, To: to}, nil
}

// To is the fluent form of NewCast.
func To(x Expr, to field.TypeInfo) Expr {
	c, err := NewCast(x, to)
	if err != nil {
		return &Invalid{Err: err}
	}
	return c
}
