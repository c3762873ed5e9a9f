package schema

import (
	"strings"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// Builder is the construction context of a model. Registration calls are
// recorded against the builder's model, and child models are defined
// through a nested builder whose parent is explicit. Errors are collected
// and reported by Build.
//
//	m, err := schema.Define("Category").
//		Column("id", field.Int64, schema.Identity()).
//		Column("name", field.String(100)).
//		PrimaryKey("id").
//		Child("Products", "Product", func(b *schema.Builder) {
//			b.Column("id", field.Int64).
//				Column("category_id", field.Int64).
//				PrimaryKey("id")
//		}, schema.On("id", "category_id")).
//		Build()
type Builder struct {
	model  *Model
	parent *Builder
	errs   *[]error
}

// Define starts the definition of a root model.
func Define(name string, opts ...Option) *Builder {
	b := &Builder{errs: new([]error)}
	m, err := New(name, opts...)
	if err != nil {
		b.fail(err)
		m, _ = New(name + "?")
	}
	b.model = m
	return b
}

// Model returns the model under construction.
func (b *Builder) Model() *Model { return b.model }

// Parent returns the builder of the parent model, or nil for a root.
func (b *Builder) Parent() *Builder { return b.parent }

func (b *Builder) fail(err error) {
	*b.errs = append(*b.errs, err)
}

// Options applies model options, e.g. to child models defined with Child.
func (b *Builder) Options(opts ...Option) *Builder {
	if err := b.model.mutable("options"); err != nil {
		b.fail(err)
		return b
	}
	for _, opt := range opts {
		if err := opt(b.model); err != nil {
			b.fail(err)
		}
	}
	return b
}

// Column registers a column.
func (b *Builder) Column(name string, info field.TypeInfo, opts ...ColumnOption) *Builder {
	if _, err := b.model.AddColumn(name, info, opts...); err != nil {
		b.fail(err)
	}
	return b
}

// C returns the column with the given name. Unknown names are recorded as
// errors and produce an *expr.Invalid when used in an expression.
func (b *Builder) C(name string) expr.Expr {
	c, err := b.model.Lookup(name)
	if err != nil {
		b.fail(err)
		return &expr.Invalid{Err: err}
	}
	return c
}

// PrimaryKey sets the primary key. A name prefixed with "-" is sorted in
// descending order.
func (b *Builder) PrimaryKey(names ...string) *Builder {
	parts, ok := b.parts(names)
	if ok {
		if err := b.model.SetPrimaryKey("pk_"+b.model.table, parts...); err != nil {
			b.fail(err)
		}
	}
	return b
}

func (b *Builder) parts(names []string) ([]KeyPart, bool) {
	parts := make([]KeyPart, 0, len(names))
	for _, n := range names {
		desc := strings.HasPrefix(n, "-")
		c, err := b.model.Lookup(strings.TrimPrefix(n, "-"))
		if err != nil {
			b.fail(err)
			return nil, false
		}
		parts = append(parts, KeyPart{Column: c, Desc: desc})
	}
	return parts, true
}

func (b *Builder) columns(names []string) ([]*expr.Column, bool) {
	parts, ok := b.parts(names)
	if !ok {
		return nil, false
	}
	cols := make([]*expr.Column, len(parts))
	for i, p := range parts {
		cols[i] = p.Column
	}
	return cols, true
}

// ConstraintOption configures a constraint registered through a builder.
type ConstraintOption func(*constraintOptions)

type constraintOptions struct {
	comment  string
	onDelete CascadeAction
	onUpdate CascadeAction
}

// Described attaches a comment to the constraint.
func Described(text string) ConstraintOption {
	return func(o *constraintOptions) { o.comment = text }
}

// OnDelete sets the ON DELETE action of a foreign key.
func OnDelete(a CascadeAction) ConstraintOption {
	return func(o *constraintOptions) { o.onDelete = a }
}

// OnUpdate sets the ON UPDATE action of a foreign key.
func OnUpdate(a CascadeAction) ConstraintOption {
	return func(o *constraintOptions) { o.onUpdate = a }
}

func apply(opts []ConstraintOption) constraintOptions {
	var o constraintOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Unique registers a unique constraint over the named columns.
func (b *Builder) Unique(name string, columns []string, opts ...ConstraintOption) *Builder {
	cols, ok := b.columns(columns)
	if ok {
		o := apply(opts)
		if err := b.model.AddUnique(&Unique{Name: name, Columns: cols, Comment: o.comment}); err != nil {
			b.fail(err)
		}
	}
	return b
}

// Check registers a check constraint. The predicate is built from the
// model's columns.
func (b *Builder) Check(name string, pred func(*Builder) expr.Expr, opts ...ConstraintOption) *Builder {
	o := apply(opts)
	if err := b.model.AddCheck(&Check{Name: name, Expr: pred(b), Comment: o.comment}); err != nil {
		b.fail(err)
	}
	return b
}

// ForeignKey registers a foreign key referencing columns of another model.
func (b *Builder) ForeignKey(name string, columns []string, ref *Model, refColumns []string, opts ...ConstraintOption) *Builder {
	cols, ok := b.columns(columns)
	if !ok {
		return b
	}
	if ref == nil {
		b.fail(rowset.NewSchemaError(b.model.name, name, "foreign key has no referenced model"))
		return b
	}
	refs := make([]*expr.Column, 0, len(refColumns))
	for _, n := range refColumns {
		c, err := ref.Lookup(n)
		if err != nil {
			b.fail(err)
			return b
		}
		refs = append(refs, c)
	}
	o := apply(opts)
	fk := &ForeignKey{
		Name:       name,
		Columns:    cols,
		RefModel:   ref,
		RefColumns: refs,
		OnDelete:   o.onDelete,
		OnUpdate:   o.onUpdate,
		Comment:    o.comment,
	}
	if err := b.model.AddForeignKey(fk); err != nil {
		b.fail(err)
	}
	return b
}

// Index registers a secondary index over the named columns.
func (b *Builder) Index(name string, unique bool, columns []string, opts ...ConstraintOption) *Builder {
	parts, ok := b.parts(columns)
	if ok {
		o := apply(opts)
		if err := b.model.AddIndex(&Index{Name: name, Parts: parts, Unique: unique, Comment: o.comment}); err != nil {
			b.fail(err)
		}
	}
	return b
}

// Key names a parent column and the child column it maps to.
type Key struct {
	Parent, Child string
}

// On returns a relationship key.
func On(parent, child string) Key {
	return Key{Parent: parent, Child: child}
}

// Child defines a child model named model, bound to the builder's model
// under the given name. The define callback receives the child's builder.
func (b *Builder) Child(name, model string, define func(*Builder), keys ...Key) *Builder {
	cm, err := New(model)
	if err != nil {
		b.fail(err)
		return b
	}
	cb := &Builder{model: cm, parent: b, errs: b.errs}
	if define != nil {
		define(cb)
	}
	rel := Relationship{Mapping: make(ColumnMapping, 0, len(keys))}
	for _, k := range keys {
		pc, err := b.model.Lookup(k.Parent)
		if err != nil {
			b.fail(err)
			return b
		}
		cc, err := cm.Lookup(k.Child)
		if err != nil {
			b.fail(err)
			return b
		}
		rel.Mapping = append(rel.Mapping, Map(pc, cc))
	}
	if _, err := b.model.AddChild(name, cm, rel); err != nil {
		b.fail(err)
	}
	return b
}

// Mixin is a reusable set of columns and constraints.
type Mixin interface {
	Apply(*Builder)
}

// Mixin applies the given mixins in order.
func (b *Builder) Mixin(mixins ...Mixin) *Builder {
	for _, m := range mixins {
		m.Apply(b)
	}
	return b
}

// Build returns the root model of the construction, or the errors
// collected while registering.
func (b *Builder) Build() (*Model, error) {
	if err := rowset.NewAggregateError(*b.errs...); err != nil {
		return nil, err
	}
	root := b
	for root.parent != nil {
		root = root.parent
	}
	return root.model, nil
}
