package expr

// Field is a column with predicates taking Go values of type T. Values are
// converted to the type info of the column, so enumeration columns accept
// value names and decimal columns accept strings.
//
//	status := expr.FieldOf[string](orders.Column("status"))
//	open := expr.And(status.EQ("open"), expr.FieldOf[int64](orders.Column("total")).GT(100))
type Field[T any] struct {
	*Column
}

// FieldOf returns the typed predicates of c.
func FieldOf[T any](c *Column) Field[T] { return Field[T]{Column: c} }

func (f Field[T]) value(v T) Expr { return Typed(f.Info, v) }

// EQ returns column = v.
func (f Field[T]) EQ(v T) Expr { return EQ(f.Column, f.value(v)) }

// NEQ returns column <> v.
func (f Field[T]) NEQ(v T) Expr { return NEQ(f.Column, f.value(v)) }

// GT returns column > v.
func (f Field[T]) GT(v T) Expr { return GT(f.Column, f.value(v)) }

// GTE returns column >= v.
func (f Field[T]) GTE(v T) Expr { return GTE(f.Column, f.value(v)) }

// LT returns column < v.
func (f Field[T]) LT(v T) Expr { return LT(f.Column, f.value(v)) }

// LTE returns column <= v.
func (f Field[T]) LTE(v T) Expr { return LTE(f.Column, f.value(v)) }

// In returns a disjunction of equalities, one per value. It needs at least
// one value.
func (f Field[T]) In(vs ...T) Expr {
	preds := make([]Expr, len(vs))
	for i, v := range vs {
		preds[i] = f.EQ(v)
	}
	return Or(preds...)
}

// NotIn returns NOT (column IN vs).
func (f Field[T]) NotIn(vs ...T) Expr { return Not(f.In(vs...)) }

// Param returns column = @name, bound to v.
func (f Field[T]) Param(name string, v T) (Expr, *Param) {
	p := NewParam(name, f.Info, v)
	return EQ(f.Column, p), p
}

// IsNull returns column IS NULL.
func (f Field[T]) IsNull() Expr { return IsNull(f.Column) }

// NotNull returns column IS NOT NULL.
func (f Field[T]) NotNull() Expr { return IsNotNull(f.Column) }
