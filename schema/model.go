package schema

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// Names of the system columns managed by the engine.
const (
	RowIDColumn       = "sys_row_id"
	ParentRowIDColumn = "sys_parent_row_id"
)

// KeyPart is a column of a key together with its sort direction.
type KeyPart struct {
	Column *expr.Column
	Desc   bool
}

// Asc returns an ascending key part.
func Asc(c *expr.Column) KeyPart { return KeyPart{Column: c} }

// Desc returns a descending key part.
func Desc(c *expr.Column) KeyPart { return KeyPart{Column: c, Desc: true} }

// Child binds a child model to its parent.
type Child struct {
	Name         string
	Parent       *Model
	Model        *Model
	Relationship Relationship
}

// Model describes the shape of a row: its columns, primary key, constraints
// and child models. A model is mutable until it is sealed, which happens at
// the latest when the first row is created.
type Model struct {
	name     string
	table    string
	schema   string
	comment  string
	columns  []*expr.Column
	byName   map[string]*expr.Column
	pk       []KeyPart
	pkName   string
	children []*Child
	parent   *Child
	uniques  []*Unique
	checks   []*Check
	fks      []*ForeignKey
	indexes  []*Index
	names    map[string]struct{} // Constraint names.
	identity *expr.Column
	rowID    *expr.Column
	parentID *expr.Column
	sealed   atomic.Bool
}

// Option configures a model at definition time.
type Option func(*Model) error

// TableName sets the table name of the model. It defaults to the model name.
func TableName(name string) Option {
	return func(m *Model) error {
		if name == "" {
			return rowset.NewSchemaError(m.name, "", "empty table name")
		}
		m.table = name
		return nil
	}
}

// InSchema sets the database schema of the table.
func InSchema(name string) Option {
	return func(m *Model) error {
		m.schema = name
		return nil
	}
}

// ModelComment attaches a comment to the table.
func ModelComment(text string) Option {
	return func(m *Model) error {
		m.comment = text
		return nil
	}
}

// WithRowID adds the sequential row identifier system column. Children
// of the model receive a parent row identifier column.
func WithRowID() Option {
	return func(m *Model) error {
		if m.rowID != nil {
			return nil
		}
		c, err := m.AddColumn(RowIDColumn, field.Int64)
		if err != nil {
			return err
		}
		c.System = expr.SystemRowID
		m.rowID = c
		for _, ch := range m.children {
			if err := ch.Model.addParentRowID(); err != nil {
				return err
			}
		}
		return nil
	}
}

// New returns a new unsealed model.
func New(name string, opts ...Option) (*Model, error) {
	if name == "" {
		return nil, rowset.NewSchemaError("", "", "empty model name")
	}
	m := &Model{
		name:   name,
		table:  name,
		byName: make(map[string]*expr.Column),
		names:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// TableName returns the table the model is stored in.
func (m *Model) TableName() string { return m.table }

// Schema returns the database schema of the table, if any.
func (m *Model) Schema() string { return m.schema }

// Comment returns the table comment.
func (m *Model) Comment() string { return m.comment }

// Columns returns the columns of the model in registration order.
func (m *Model) Columns() []*expr.Column { return m.columns }

// Column returns the column with the given name, or nil.
func (m *Model) Column(name string) *expr.Column { return m.byName[name] }

// Lookup returns the column with the given name or a schema error.
func (m *Model) Lookup(name string) (*expr.Column, error) {
	if c, ok := m.byName[name]; ok {
		return c, nil
	}
	return nil, rowset.NewSchemaError(m.name, name, "unknown column")
}

// Owns reports if c is a column of the model.
func (m *Model) Owns(c *expr.Column) bool {
	return c != nil && c.Table == expr.Table(m) && m.byName[c.Name] == c
}

// PrimaryKey returns the primary key parts.
func (m *Model) PrimaryKey() []KeyPart { return m.pk }

// PrimaryKeyName returns the name of the primary key constraint.
func (m *Model) PrimaryKeyName() string { return m.pkName }

// Identity returns the identity column, or nil.
func (m *Model) Identity() *expr.Column { return m.identity }

// RowID returns the row identifier system column, or nil.
func (m *Model) RowID() *expr.Column { return m.rowID }

// ParentRowID returns the parent row identifier system column, or nil.
func (m *Model) ParentRowID() *expr.Column { return m.parentID }

// Children returns the child bindings of the model.
func (m *Model) Children() []*Child { return m.children }

// Parent returns the binding linking the model to its parent, or nil for
// root models.
func (m *Model) Parent() *Child { return m.parent }

// Root returns the root of the hierarchy the model belongs to.
func (m *Model) Root() *Model {
	for m.parent != nil {
		m = m.parent.Parent
	}
	return m
}

// Depth returns the number of ancestors of the model.
func (m *Model) Depth() int {
	d := 0
	for p := m.parent; p != nil; p = p.Parent.parent {
		d++
	}
	return d
}

// Hierarchy returns the model and all its descendants, parents first.
func (m *Model) Hierarchy() []*Model {
	models := []*Model{m}
	for _, c := range m.children {
		models = append(models, c.Model.Hierarchy()...)
	}
	return models
}

// Uniques returns the unique constraints.
func (m *Model) Uniques() []*Unique { return m.uniques }

// Checks returns the check constraints.
func (m *Model) Checks() []*Check { return m.checks }

// ForeignKeys returns the foreign key constraints.
func (m *Model) ForeignKeys() []*ForeignKey { return m.fks }

// Indexes returns the secondary indexes.
func (m *Model) Indexes() []*Index { return m.indexes }

// Sealed reports if the model no longer accepts registrations.
func (m *Model) Sealed() bool { return m.sealed.Load() }

// Seal seals the model and all its descendants.
func (m *Model) Seal() {
	if m.sealed.Swap(true) {
		return
	}
	for _, c := range m.children {
		c.Model.Seal()
	}
}

// String implements the fmt.Stringer interface.
func (m *Model) String() string {
	return fmt.Sprintf("Model(%s)", m.name)
}

func (m *Model) mutable(member string) error {
	if m.Sealed() {
		return rowset.NewSchemaError(m.name, member, "model is sealed")
	}
	return nil
}

// ColumnOption configures a column at registration time.
type ColumnOption func(*expr.Column)

// Identity marks the column as database generated.
func Identity() ColumnOption {
	return func(c *expr.Column) { c.Identity = true }
}

// Default sets a literal default value for the column.
func Default(v any) ColumnOption {
	return func(c *expr.Column) { c.Default = v }
}

// DefaultSQL sets a raw SQL default expression for the column.
func DefaultSQL(x string) ColumnOption {
	return func(c *expr.Column) { c.DefaultSQL = x }
}

// Comment attaches a comment to the column.
func Comment(text string) ColumnOption {
	return func(c *expr.Column) { c.Comment = text }
}

// AddColumn registers a new column.
func (m *Model) AddColumn(name string, info field.TypeInfo, opts ...ColumnOption) (*expr.Column, error) {
	if err := m.mutable(name); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, rowset.NewSchemaError(m.name, "", "empty column name")
	}
	if _, ok := m.byName[name]; ok {
		return nil, rowset.NewSchemaError(m.name, name, "duplicate column name")
	}
	if !info.Valid() {
		return nil, rowset.NewSchemaError(m.name, name, fmt.Sprintf("invalid column type %s", info))
	}
	c := &expr.Column{Name: name, Info: info, Table: m, Ordinal: len(m.columns)}
	for _, opt := range opts {
		opt(c)
	}
	if c.Identity {
		switch {
		case m.identity != nil:
			return nil, rowset.NewSchemaError(m.name, name, "model already has identity column "+m.identity.Name)
		case !info.Type.Integer() || info.Enum != nil:
			return nil, rowset.NewSchemaError(m.name, name, "identity column must be an integer")
		}
	}
	if c.Default != nil {
		v, err := field.Convert(info, c.Default)
		if err != nil {
			return nil, &rowset.SchemaError{Model: m.name, Member: name, Message: "invalid default value", Cause: err}
		}
		c.Default = v
	}
	m.columns = append(m.columns, c)
	m.byName[name] = c
	if c.Identity {
		m.identity = c
	}
	return c, nil
}

func (m *Model) addParentRowID() error {
	if m.parentID != nil {
		return nil
	}
	c, err := m.AddColumn(ParentRowIDColumn, field.Int64)
	if err != nil {
		return err
	}
	c.System = expr.SystemParentRowID
	m.parentID = c
	return nil
}

// SetPrimaryKey sets the primary key of the model.
func (m *Model) SetPrimaryKey(name string, parts ...KeyPart) error {
	if err := m.mutable("primary key"); err != nil {
		return err
	}
	if len(parts) == 0 {
		return rowset.NewSchemaError(m.name, "primary key", "no columns")
	}
	if err := m.ownsAll(parts...); err != nil {
		return err
	}
	for _, p := range parts {
		if p.Column.Info.Nullable {
			return rowset.NewSchemaError(m.name, p.Column.Name, "primary key column is nullable")
		}
	}
	if name != "" && name != m.pkName {
		if err := m.reserve(name); err != nil {
			return err
		}
	}
	if m.pkName != "" && m.pkName != name {
		delete(m.names, m.pkName)
	}
	m.pk, m.pkName = parts, name
	return nil
}

// AddChild binds a child model through the given relationship. The
// relationship maps columns of m to foreign key columns of child.
func (m *Model) AddChild(name string, child *Model, rel Relationship) (*Child, error) {
	if err := m.mutable(name); err != nil {
		return nil, err
	}
	switch {
	case child == nil:
		return nil, rowset.NewSchemaError(m.name, name, "nil child model")
	case child.Sealed():
		return nil, rowset.NewSchemaError(child.name, name, "child model is sealed")
	case child.parent != nil:
		return nil, rowset.NewSchemaError(child.name, name, "model is already bound to "+child.parent.Parent.name)
	case child == m || slices.Contains(m.ancestors(), child):
		return nil, rowset.NewSchemaError(m.name, name, "relationship forms a cycle")
	case len(rel.Mapping) == 0:
		return nil, rowset.NewSchemaError(m.name, name, "empty relationship")
	}
	for _, c := range m.children {
		if c.Name == name {
			return nil, rowset.NewSchemaError(m.name, name, "duplicate child name")
		}
	}
	for _, p := range rel.Mapping {
		src, ok := p.Source.(*expr.Column)
		if !ok || !m.Owns(src) {
			return nil, rowset.NewSchemaError(m.name, name, "relationship source is not a column of the parent")
		}
		if !child.Owns(p.Target) {
			return nil, rowset.NewSchemaError(child.name, name, "relationship target is not a column of the child")
		}
		if src.Type().Category() != p.Target.Type().Category() {
			return nil, rowset.NewSchemaError(child.name, p.Target.Name,
				fmt.Sprintf("relationship type mismatch: %s and %s", src.Type(), p.Target.Type()))
		}
	}
	if m.rowID != nil {
		if err := child.addParentRowID(); err != nil {
			return nil, err
		}
	}
	c := &Child{Name: name, Parent: m, Model: child, Relationship: rel}
	m.children = append(m.children, c)
	child.parent = c
	return c, nil
}

func (m *Model) ancestors() []*Model {
	var ms []*Model
	for p := m.parent; p != nil; p = p.Parent.parent {
		ms = append(ms, p.Parent)
	}
	return ms
}

func (m *Model) ownsAll(parts ...KeyPart) error {
	for _, p := range parts {
		if !m.Owns(p.Column) {
			name := "<nil>"
			if p.Column != nil {
				name = p.Column.Name
			}
			return rowset.NewSchemaError(m.name, name, "column does not belong to the model")
		}
	}
	return nil
}

func (m *Model) reserve(name string) error {
	if _, ok := m.names[name]; ok {
		return rowset.NewSchemaError(m.name, name, "duplicate constraint name")
	}
	m.names[name] = struct{}{}
	return nil
}
