package schema

import (
	"github.com/syssam/rowset/expr"
)

// Pair maps a source column or constant to a target column.
type Pair struct {
	Source expr.Expr // *expr.Column or *expr.Constant
	Target *expr.Column
}

// Map returns a pair copying src into dst.
func Map(src, dst *expr.Column) Pair {
	return Pair{Source: src, Target: dst}
}

// MapConst returns a pair assigning a constant to dst.
func MapConst(v any, dst *expr.Column) Pair {
	return Pair{Source: expr.Typed(dst.Info, v), Target: dst}
}

// ColumnMapping is an ordered list of pairs translating between two models.
type ColumnMapping []Pair

// Sources returns the source columns of the mapping, skipping constants.
func (m ColumnMapping) Sources() []*expr.Column {
	cols := make([]*expr.Column, 0, len(m))
	for _, p := range m {
		if c, ok := p.Source.(*expr.Column); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// Targets returns the target columns of the mapping.
func (m ColumnMapping) Targets() []*expr.Column {
	cols := make([]*expr.Column, len(m))
	for i, p := range m {
		cols[i] = p.Target
	}
	return cols
}

// Resolve returns the target values in mapping order, reading source
// columns through get.
func (m ColumnMapping) Resolve(get func(*expr.Column) any) []any {
	vs := make([]any, len(m))
	for i, p := range m {
		switch src := p.Source.(type) {
		case *expr.Column:
			vs[i] = get(src)
		case *expr.Constant:
			vs[i] = src.Value
		}
	}
	return vs
}

// TargetOf returns the target mapped from the given source column, or nil.
func (m ColumnMapping) TargetOf(src *expr.Column) *expr.Column {
	for _, p := range m {
		if p.Source == expr.Expr(src) {
			return p.Target
		}
	}
	return nil
}

// Relationship links the key columns of a parent model to the foreign key
// columns of a child model.
type Relationship struct {
	Mapping ColumnMapping
}

// Keys returns a relationship mapping parent columns to child columns
// pairwise. Lists of different lengths produce an empty relationship,
// which AddChild rejects.
func Keys(parent, child []*expr.Column) Relationship {
	if len(parent) != len(child) {
		return Relationship{}
	}
	m := make(ColumnMapping, len(parent))
	for i := range parent {
		m[i] = Map(parent[i], child[i])
	}
	return Relationship{Mapping: m}
}
