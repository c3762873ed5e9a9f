package sql

import (
	"strings"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dialect"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// IdentityOutput names the transient table capturing generated identities.
const IdentityOutput = "identity_output"

// CreateTableStmt is a CREATE TABLE statement.
type CreateTableStmt struct {
	Model       *schema.Model
	Temporary   bool
	IfNotExists bool
}

// CreateTable returns a CREATE TABLE statement for m.
func CreateTable(m *schema.Model) *CreateTableStmt {
	return &CreateTableStmt{Model: m}
}

// Temp marks the table as temporary.
func (s *CreateTableStmt) Temp() *CreateTableStmt {
	s.Temporary = true
	return s
}

// IfMissing only creates the table if it does not exist.
func (s *CreateTableStmt) IfMissing() *CreateTableStmt {
	s.IfNotExists = true
	return s
}

// CreateIndexStmt is a CREATE INDEX statement.
type CreateIndexStmt struct {
	Model *schema.Model
	Index *schema.Index
}

// DropTableStmt is a DROP TABLE statement.
type DropTableStmt struct {
	Model    *schema.Model
	IfExists bool
}

// DropTable returns a DROP TABLE statement for m.
func DropTable(m *schema.Model) *DropTableStmt {
	return &DropTableStmt{Model: m}
}

func (*CreateIndexStmt) statement() {}

// DDL returns the statements creating the table of m followed by its
// secondary indexes.
func DDL(m *schema.Model, temporary bool) []Statement {
	stmts := []Statement{&CreateTableStmt{Model: m, Temporary: temporary}}
	for _, idx := range m.Indexes() {
		stmts = append(stmts, &CreateIndexStmt{Model: m, Index: idx})
	}
	return stmts
}

// TempName returns the name a temporary table is referenced by.
func (d *Dialect) TempName(name string) string {
	if d.name == dialect.SQLServer {
		return "#" + name
	}
	return name
}

// IdentityOutputTable returns the model of the table collecting the
// identities generated by an INSERT.
func (d *Dialect) IdentityOutputTable() *schema.Model {
	return d.transient(IdentityOutput,
		transientColumn{"new_value", field.Int64.Null(), false},
		transientColumn{"sequence", field.Int64, true},
	)
}

type transientColumn struct {
	name     string
	info     field.TypeInfo
	identity bool
}

// transient builds the model of a temporary table keyed by its last
// column. Its primary key is unnamed, since constraint names of temporary
// tables are global on some databases.
func (d *Dialect) transient(name string, cols ...transientColumn) *schema.Model {
	m, err := schema.New(name, schema.TableName(d.TempName(name)))
	if err != nil {
		panic(err)
	}
	var last *expr.Column
	for _, c := range cols {
		var opts []schema.ColumnOption
		if c.identity {
			opts = append(opts, schema.Identity())
		}
		if last, err = m.AddColumn(c.name, c.info, opts...); err != nil {
			panic(err)
		}
	}
	if err := m.SetPrimaryKey("", schema.Asc(last)); err != nil {
		panic(err)
	}
	return m
}

func (b *Builder) createTable(s *CreateTableStmt) {
	m := s.Model
	defs := make([]string, 0, len(m.Columns()))
	inlinePK := false
	for _, c := range m.Columns() {
		def, err := b.d.Definition(c)
		if err != nil {
			b.AddError(err)
			continue
		}
		inlinePK = inlinePK || (c.Identity && b.d.name == dialect.SQLite)
		defs = append(defs, def)
	}
	if s.IfNotExists && b.d.name == dialect.SQLServer {
		b.AddError(rowset.NewNotSupportedError(b.d.name, "clause", "IF NOT EXISTS"))
	}
	if len(b.errs) > 0 {
		return
	}
	b.WriteString("CREATE ")
	if s.Temporary && b.d.name != dialect.SQLServer {
		b.WriteString("TEMPORARY ")
	}
	b.WriteString("TABLE ")
	if s.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.table(m).WriteString(" (")
	b.Nested(func(b *Builder) {
		items := 0
		item := func() {
			if items > 0 {
				b.WriteByte(',')
			}
			items++
			b.newlineIndented()
		}
		for _, def := range defs {
			item()
			b.WriteString(def)
		}
		if pk := m.PrimaryKey(); len(pk) > 0 && !inlinePK {
			item()
			b.constraintName(m.PrimaryKeyName()).WriteString("PRIMARY KEY (")
			b.keyParts(pk, b.d.name != dialect.Postgres)
			b.WriteByte(')')
		}
		for _, u := range m.Uniques() {
			item()
			b.constraintName(u.Name).WriteString("UNIQUE (")
			b.Join(len(u.Columns), func(i int) { b.Ident(u.Columns[i].Name) })
			b.WriteByte(')').blockComment(u.Comment)
		}
		for _, c := range m.Checks() {
			item()
			b.constraintName(c.Name).WriteString("CHECK (")
			policy := b.policy
			b.policy = NoAlias
			b.Expr(c.Expr)
			b.policy = policy
			b.WriteByte(')').blockComment(c.Comment)
		}
		for _, fk := range m.ForeignKeys() {
			item()
			b.constraintName(fk.Name).WriteString("FOREIGN KEY (")
			b.Join(len(fk.Columns), func(i int) { b.Ident(fk.Columns[i].Name) })
			b.WriteString(") REFERENCES ").table(fk.RefModel).WriteString(" (")
			b.Join(len(fk.RefColumns), func(i int) { b.Ident(fk.RefColumns[i].Name) })
			b.WriteByte(')')
			if fk.OnDelete != "" {
				b.WriteString(" ON DELETE " + string(fk.OnDelete))
			}
			if fk.OnUpdate != "" {
				b.WriteString(" ON UPDATE " + string(fk.OnUpdate))
			}
			b.blockComment(fk.Comment)
		}
	})
	b.newlineIndented()
	b.WriteByte(')')
	if m.Comment() != "" {
		if b.d.name == dialect.MySQL {
			b.WriteString(" COMMENT " + b.d.quoteString(m.Comment(), false))
		} else {
			b.blockComment(m.Comment())
		}
	}
}

func (b *Builder) constraintName(name string) *Builder {
	if name != "" {
		b.WriteString("CONSTRAINT ").Ident(name).WriteByte(' ')
	}
	return b
}

func (b *Builder) keyParts(parts []schema.KeyPart, directions bool) {
	b.Join(len(parts), func(i int) {
		b.Ident(parts[i].Column.Name)
		if parts[i].Desc && directions {
			b.WriteString(" DESC")
		}
	})
}

func (b *Builder) blockComment(text string) *Builder {
	if text != "" {
		b.WriteString(" /* " + strings.ReplaceAll(text, "*/", "* /") + " */")
	}
	return b
}

func (b *Builder) createIndex(s *CreateIndexStmt) {
	b.WriteString("CREATE ")
	if s.Index.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ").Ident(s.Index.Name).WriteString(" ON ").table(s.Model).WriteString(" (")
	b.keyParts(s.Index.Parts, true)
	b.WriteByte(')').blockComment(s.Index.Comment)
}

func (b *Builder) dropTable(s *DropTableStmt) {
	b.WriteString("DROP TABLE ")
	if s.IfExists {
		b.WriteString("IF EXISTS ")
	}
	b.table(s.Model)
}
