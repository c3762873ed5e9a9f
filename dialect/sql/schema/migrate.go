package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dialect"
	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/expr"
	model "github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// Migrate plans and applies the creation of the tables of models on a
// database, using the atlas engine of its dialect.
type Migrate struct {
	atlas   migrate.Driver
	dialect *sql.Dialect
	schema  string
	logger  *slog.Logger
	checks  []ValidateOption
}

// MigrateOption configures a Migrate.
type MigrateOption func(*Migrate)

// WithSchemaName sets the database schema to inspect and plan in. The
// default is the connection schema.
func WithSchemaName(name string) MigrateOption {
	return func(m *Migrate) { m.schema = name }
}

// WithMigrateLogger sets the logger of the migration.
func WithMigrateLogger(l *slog.Logger) MigrateOption {
	return func(m *Migrate) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithValidation sets the options changes are validated with before they
// are applied.
func WithValidation(opts ...ValidateOption) MigrateOption {
	return func(m *Migrate) { m.checks = opts }
}

// NewMigrate returns a Migrate over the connection of drv.
func NewMigrate(drv *sql.Driver, opts ...MigrateOption) (*Migrate, error) {
	m := &Migrate{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	d, err := sql.For(drv.Dialect())
	if err != nil {
		return nil, err
	}
	m.dialect = d
	switch drv.Dialect() {
	case dialect.MySQL:
		m.atlas, err = mysql.Open(drv.DB())
	case dialect.Postgres:
		m.atlas, err = postgres.Open(drv.DB())
	case dialect.SQLite:
		m.atlas, err = sqlite.Open(drv.DB())
	default:
		return nil, rowset.NewNotSupportedError(drv.Dialect(), "migration", "atlas driver")
	}
	if err != nil {
		return nil, fmt.Errorf("sql/schema: open atlas driver: %w", err)
	}
	return m, nil
}

// Diff returns the changes turning the current database schema into the
// tables of models and their descendants.
func (m *Migrate) Diff(ctx context.Context, models ...*model.Model) ([]schema.Change, error) {
	current, err := m.atlas.InspectSchema(ctx, m.schema, &schema.InspectOptions{})
	if err != nil {
		return nil, fmt.Errorf("sql/schema: inspect schema: %w", err)
	}
	tables, err := Tables(m.dialect, models...)
	if err != nil {
		return nil, err
	}
	desired := schema.New(current.Name).AddTables(tables...)
	changes, err := m.atlas.SchemaDiff(current, desired)
	if err != nil {
		return nil, fmt.Errorf("sql/schema: diff schema: %w", err)
	}
	return changes, nil
}

// Plan returns the statements creating or altering the tables of models.
func (m *Migrate) Plan(ctx context.Context, models ...*model.Model) (*migrate.Plan, error) {
	changes, err := m.Diff(ctx, models...)
	if err != nil {
		return nil, err
	}
	return m.atlas.PlanChanges(ctx, "rowset", changes)
}

// Create applies the changes of Diff. Changes failing validation are not
// applied.
func (m *Migrate) Create(ctx context.Context, models ...*model.Model) error {
	changes, err := m.Diff(ctx, models...)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		m.logger.DebugContext(ctx, "schema is up to date")
		return nil
	}
	if r := ValidateChanges(changes, m.checks...); r.HasErrors() {
		return fmt.Errorf("sql/schema: refusing to apply changes:\n%s", r)
	} else if r.HasWarnings() {
		m.logger.WarnContext(ctx, "schema changes", "warnings", r.String())
	}
	if err := m.atlas.ApplyChanges(ctx, changes); err != nil {
		return rowset.NewExecutionError("apply changes", err)
	}
	m.logger.InfoContext(ctx, "schema changes applied", "changes", len(changes))
	return nil
}

// Tables converts models, their descendants and the models they reference
// into atlas tables typed for the dialect.
func Tables(d *sql.Dialect, models ...*model.Model) ([]*schema.Table, error) {
	c := &converter{d: d, tables: make(map[*model.Model]*schema.Table)}
	for _, root := range models {
		for _, m := range root.Hierarchy() {
			if err := c.add(m); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range c.order {
		if err := c.constraints(m); err != nil {
			return nil, err
		}
	}
	tables := make([]*schema.Table, len(c.order))
	for i, m := range c.order {
		tables[i] = c.tables[m]
	}
	return tables, nil
}

type converter struct {
	d      *sql.Dialect
	tables map[*model.Model]*schema.Table
	order  []*model.Model
}

func (c *converter) add(m *model.Model) error {
	if _, ok := c.tables[m]; ok {
		return nil
	}
	t := schema.NewTable(m.TableName())
	if m.Comment() != "" {
		t.SetComment(m.Comment())
	}
	for _, col := range m.Columns() {
		ac, err := c.column(col)
		if err != nil {
			return err
		}
		t.AddColumns(ac)
	}
	c.tables[m] = t
	c.order = append(c.order, m)
	for _, fk := range m.ForeignKeys() {
		if err := c.add(fk.RefModel); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) column(col *expr.Column) (*schema.Column, error) {
	pt, err := c.d.ColumnType(col.Name, col.Info)
	if err != nil {
		return nil, err
	}
	ac := schema.NewColumn(col.Name).SetType(atlasType(pt)).SetNull(col.Info.Nullable)
	switch {
	case col.DefaultSQL != "":
		ac.SetDefault(&schema.RawExpr{X: col.DefaultSQL})
	case col.Default != nil:
		lit, err := c.d.Literal(col.Info, col.Default)
		if err != nil {
			return nil, err
		}
		ac.SetDefault(&schema.RawExpr{X: lit})
	}
	if col.Comment != "" {
		ac.SetComment(col.Comment)
	}
	if col.Identity {
		switch c.d.Name() {
		case dialect.MySQL:
			ac.AddAttrs(&mysql.AutoIncrement{})
		case dialect.Postgres:
			ac.AddAttrs(&postgres.Identity{Generation: "BY DEFAULT"})
		case dialect.SQLite:
			ac.AddAttrs(&sqlite.AutoIncrement{})
		}
	}
	return ac, nil
}

// atlasType returns the atlas type of a physical type. Its name is the
// database tag; atlas formats sizes and precisions itself.
func atlasType(pt sql.PhysicalType) schema.Type {
	tag := strings.ToLower(pt.Tag)
	switch pt.Logical.Type {
	case field.TypeBool:
		return &schema.BoolType{T: tag}
	case field.TypeUint8, field.TypeInt16, field.TypeInt32, field.TypeInt64:
		return &schema.IntegerType{T: tag}
	case field.TypeFloat32, field.TypeFloat64:
		return &schema.FloatType{T: tag}
	case field.TypeDecimal:
		return &schema.DecimalType{T: tag, Precision: int(pt.Precision), Scale: int(pt.Scale)}
	case field.TypeChar, field.TypeString:
		return &schema.StringType{T: tag, Size: max(pt.Size, 0)}
	case field.TypeBytes:
		if pt.Size > 0 {
			size := pt.Size
			return &schema.BinaryType{T: tag, Size: &size}
		}
		return &schema.BinaryType{T: tag}
	case field.TypeUUID:
		return &schema.UUIDType{T: tag}
	case field.TypeTime, field.TypeDate:
		return &schema.TimeType{T: tag}
	}
	return &schema.UnsupportedType{T: pt.String()}
}

func (c *converter) constraints(m *model.Model) error {
	t := c.tables[m]
	cols := func(xs []*expr.Column) []*schema.Column {
		acs := make([]*schema.Column, len(xs))
		for i, x := range xs {
			acs[i], _ = c.tables[x.Table.(*model.Model)].Column(x.Name)
		}
		return acs
	}
	if pk := m.PrimaryKey(); len(pk) > 0 {
		idx := schema.NewPrimaryKey()
		if name := m.PrimaryKeyName(); name != "" {
			idx.SetName(name)
		}
		for _, p := range pk {
			ac, _ := t.Column(p.Column.Name)
			idx.AddParts(&schema.IndexPart{C: ac, Desc: p.Desc})
		}
		t.SetPrimaryKey(idx)
	}
	for _, u := range m.Uniques() {
		t.AddIndexes(schema.NewUniqueIndex(u.Name).AddColumns(cols(u.Columns)...))
	}
	for _, idx := range m.Indexes() {
		ai := schema.NewIndex(idx.Name).SetUnique(idx.Unique)
		for _, p := range idx.Parts {
			ac, _ := t.Column(p.Column.Name)
			ai.AddParts(&schema.IndexPart{C: ac, Desc: p.Desc})
		}
		if idx.Comment != "" {
			ai.SetComment(idx.Comment)
		}
		t.AddIndexes(ai)
	}
	for _, ck := range m.Checks() {
		b := sql.NewBuilder(c.d, sql.WithAliasPolicy(sql.NoAlias))
		b.Expr(ck.Expr)
		if err := b.Err(); err != nil {
			return err
		}
		t.AddChecks(schema.NewCheck().SetName(ck.Name).SetExpr(b.String()))
	}
	for _, fk := range m.ForeignKeys() {
		afk := schema.NewForeignKey(fk.Name).
			AddColumns(cols(fk.Columns)...).
			SetRefTable(c.tables[fk.RefModel]).
			AddRefColumns(cols(fk.RefColumns)...)
		if fk.OnDelete != "" {
			afk.SetOnDelete(schema.ReferenceOption(fk.OnDelete))
		}
		if fk.OnUpdate != "" {
			afk.SetOnUpdate(schema.ReferenceOption(fk.OnUpdate))
		}
		t.AddForeignKeys(afk)
	}
	return nil
}
