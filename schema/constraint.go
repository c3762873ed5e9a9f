package schema

import (
	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// CascadeAction defines cascade behavior for foreign key constraints.
type CascadeAction string

// Cascade actions.
const (
	Cascade    CascadeAction = "CASCADE"
	SetNull    CascadeAction = "SET NULL"
	Restrict   CascadeAction = "RESTRICT"
	SetDefault CascadeAction = "SET DEFAULT"
	NoAction   CascadeAction = "NO ACTION"
)

// Unique is a unique constraint.
type Unique struct {
	Name    string
	Columns []*expr.Column
	Comment string
}

// Check is a check constraint. Its predicate may only reference columns
// of the owning model.
type Check struct {
	Name    string
	Expr    expr.Expr
	Comment string
}

// ForeignKey is a foreign key constraint.
type ForeignKey struct {
	Name       string
	Columns    []*expr.Column
	RefModel   *Model
	RefColumns []*expr.Column
	OnDelete   CascadeAction
	OnUpdate   CascadeAction
	Comment    string
}

// Index is a secondary index.
type Index struct {
	Name    string
	Parts   []KeyPart
	Unique  bool
	Comment string
}

// AddUnique registers a unique constraint.
func (m *Model) AddUnique(u *Unique) error {
	if err := m.mutable(u.Name); err != nil {
		return err
	}
	if err := m.named(u.Name, len(u.Columns)); err != nil {
		return err
	}
	for _, c := range u.Columns {
		if err := m.ownsAll(Asc(c)); err != nil {
			return err
		}
	}
	if err := m.reserve(u.Name); err != nil {
		return err
	}
	m.uniques = append(m.uniques, u)
	return nil
}

// AddCheck registers a check constraint.
func (m *Model) AddCheck(c *Check) error {
	if err := m.mutable(c.Name); err != nil {
		return err
	}
	if err := m.named(c.Name, 1); err != nil {
		return err
	}
	if c.Expr == nil {
		return rowset.NewSchemaError(m.name, c.Name, "check has no predicate")
	}
	if err := expr.Err(c.Expr); err != nil {
		return &rowset.SchemaError{Model: m.name, Member: c.Name, Message: "invalid check predicate", Cause: err}
	}
	if c.Expr.Type() != field.TypeBool {
		return rowset.NewSchemaError(m.name, c.Name, "check predicate is not boolean")
	}
	for _, col := range expr.Columns(c.Expr) {
		if !m.Owns(col) {
			return rowset.NewSchemaError(m.name, c.Name, "check references column "+col.String()+" of another model")
		}
	}
	if err := m.reserve(c.Name); err != nil {
		return err
	}
	m.checks = append(m.checks, c)
	return nil
}

// AddForeignKey registers a foreign key constraint.
func (m *Model) AddForeignKey(fk *ForeignKey) error {
	if err := m.mutable(fk.Name); err != nil {
		return err
	}
	if err := m.named(fk.Name, len(fk.Columns)); err != nil {
		return err
	}
	switch {
	case fk.RefModel == nil:
		return rowset.NewSchemaError(m.name, fk.Name, "foreign key has no referenced model")
	case len(fk.Columns) != len(fk.RefColumns):
		return rowset.NewSchemaError(m.name, fk.Name, "foreign key column count mismatch")
	}
	for i, c := range fk.Columns {
		if err := m.ownsAll(Asc(c)); err != nil {
			return err
		}
		ref := fk.RefColumns[i]
		if !fk.RefModel.Owns(ref) {
			return rowset.NewSchemaError(m.name, fk.Name, "referenced column does not belong to "+fk.RefModel.name)
		}
		if c.Type().Category() != ref.Type().Category() {
			return rowset.NewSchemaError(m.name, c.Name, "foreign key type mismatch with "+ref.String())
		}
	}
	if fk.OnDelete == SetNull || fk.OnUpdate == SetNull {
		for _, c := range fk.Columns {
			if !c.Info.Nullable {
				return rowset.NewSchemaError(m.name, c.Name, "SET NULL action on a non-nullable column")
			}
		}
	}
	if err := m.reserve(fk.Name); err != nil {
		return err
	}
	m.fks = append(m.fks, fk)
	return nil
}

// AddIndex registers a secondary index.
func (m *Model) AddIndex(idx *Index) error {
	if err := m.mutable(idx.Name); err != nil {
		return err
	}
	if err := m.named(idx.Name, len(idx.Parts)); err != nil {
		return err
	}
	if err := m.ownsAll(idx.Parts...); err != nil {
		return err
	}
	if err := m.reserve(idx.Name); err != nil {
		return err
	}
	m.indexes = append(m.indexes, idx)
	return nil
}

func (m *Model) named(name string, n int) error {
	switch {
	case name == "":
		return rowset.NewSchemaError(m.name, "", "constraint has no name")
	case n == 0:
		return rowset.NewSchemaError(m.name, name, "constraint has no columns")
	}
	return nil
}
