package dataset

import (
	"fmt"
	"slices"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// Row holds the values of one row of a model. A row is detached until it
// is inserted into a DataSet.
type Row struct {
	model    *schema.Model
	values   []any
	ds       *DataSet
	main     int // Position in the main store of the model.
	child    int // Position among the children of the parent.
	parent   *Row
	children [][]*Row // Indexed like model.Children().
}

// NewRow returns a detached row of m holding the column defaults. Creating
// a row seals the model hierarchy.
func NewRow(m *schema.Model) *Row {
	m.Root().Seal()
	r := &Row{
		model:  m,
		values: make([]any, len(m.Columns())),
		main:   -1,
		child:  -1,
	}
	for i, c := range m.Columns() {
		r.values[i] = c.Default
	}
	return r
}

// Model returns the model of the row.
func (r *Row) Model() *schema.Model { return r.model }

// DataSet returns the data set the row belongs to, or nil if detached.
func (r *Row) DataSet() *DataSet { return r.ds }

// Attached reports if the row belongs to a data set.
func (r *Row) Attached() bool { return r.ds != nil }

// MainOrdinal returns the position of the row in the main store of its
// model, or -1 if the row is detached.
func (r *Row) MainOrdinal() int { return r.main }

// ChildOrdinal returns the position of the row among the children of its
// parent. For root rows it equals the main ordinal.
func (r *Row) ChildOrdinal() int { return r.child }

// Parent returns the parent row, or nil for root and detached rows.
func (r *Row) Parent() *Row { return r.parent }

// Children returns the store of the children bound under the given name.
func (r *Row) Children(name string) (*SubStore, error) {
	for _, c := range r.model.Children() {
		if c.Name == name {
			return r.ChildStore(c), nil
		}
	}
	return nil, rowset.NewSchemaError(r.model.Name(), name, "unknown child")
}

// ChildStore returns the store of the children of the given binding.
func (r *Row) ChildStore(c *schema.Child) *SubStore {
	return &SubStore{parent: r, binding: c, idx: slices.Index(r.model.Children(), c)}
}

// kids returns the children of the k-th binding.
func (r *Row) kids(k int) []*Row {
	if r.children == nil || k < 0 {
		return nil
	}
	return r.children[k]
}

// Value returns the value of a column of the row model.
func (r *Row) Value(c *expr.Column) any {
	if !r.model.Owns(c) {
		return nil
	}
	return r.values[c.Ordinal]
}

// Get returns the value of the named column.
func (r *Row) Get(name string) (any, error) {
	c, err := r.model.Lookup(name)
	if err != nil {
		return nil, err
	}
	return r.values[c.Ordinal], nil
}

// Values returns a copy of the row values in column order.
func (r *Row) Values() []any {
	return slices.Clone(r.values)
}

// Set converts v to the type of the named column and stores it.
func (r *Row) Set(name string, v any) error {
	c, err := r.model.Lookup(name)
	if err != nil {
		return err
	}
	return r.SetValue(c, v)
}

// SetValue converts v to the type of the column and stores it.
func (r *Row) SetValue(c *expr.Column, v any) error {
	if !r.model.Owns(c) {
		return rowset.NewSchemaError(r.model.Name(), fmt.Sprint(c), "column does not belong to the model")
	}
	cv, err := field.Convert(c.Info, v)
	if err != nil {
		return rowset.NewConversionError(c.String(), v, err)
	}
	r.values[c.Ordinal] = cv
	return nil
}

// SetValues stores the given values by column name. A value that cannot be
// converted does not prevent the others from being stored; all failures
// are reported together.
func (r *Row) SetValues(vs map[string]any) error {
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	slices.Sort(names)
	var errs []error
	for _, name := range names {
		errs = append(errs, r.Set(name, vs[name]))
	}
	return rowset.NewAggregateError(errs...)
}

// String implements the fmt.Stringer interface.
func (r *Row) String() string {
	return fmt.Sprintf("%s#%d%v", r.model.Name(), r.main, r.values)
}

// link copies the parent keys into the foreign key columns of the row.
func (r *Row) link(parent *Row, c *schema.Child) {
	vs := c.Relationship.Mapping.Resolve(parent.Value)
	for i, p := range c.Relationship.Mapping {
		r.values[p.Target.Ordinal] = vs[i]
	}
	if id := r.model.ParentRowID(); id != nil {
		r.values[id.Ordinal] = parent.Value(parent.model.RowID())
	}
}
