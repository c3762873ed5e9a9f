package sql

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dialect"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
)

// CompileOption configures compilation.
type CompileOption func(*Builder)

// WithAliasPolicy sets the policy qualifying column references.
func WithAliasPolicy(p AliasPolicy) CompileOption {
	return func(b *Builder) {
		if p != nil {
			b.policy = p
		}
	}
}

// WithIndent renders each clause on its own line, nested statements
// indented by s. The default is a single line.
func WithIndent(s string) CompileOption {
	return func(b *Builder) {
		b.indent = s
	}
}

// Compiled is the result of compiling a statement.
type Compiled struct {
	SQL     string
	Params  []*expr.Param
	Dialect *Dialect
	order   []int // parameter index per placeholder, for positional dialects
}

// Args returns the driver arguments of the bound parameters.
func (c *Compiled) Args() ([]any, error) {
	return c.Bind(nil)
}

// Bind returns the driver arguments using the given values in place of the
// values held by the parameters. Conversion failures are reported together.
func (c *Compiled) Bind(values map[*expr.Param]any) ([]any, error) {
	vs := make([]any, len(c.Params))
	var errs []error
	for i, p := range c.Params {
		v, ok := values[p]
		if !ok {
			v = p.Value
		}
		dv, err := c.Dialect.Parameter(p.Info, v)
		if err != nil {
			if ce, ok := err.(*rowset.ConversionError); ok && ce.Column == "" {
				ce.Column = p.Name
			}
			errs = append(errs, err)
			continue
		}
		vs[i] = dv
	}
	if err := rowset.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	if c.order == nil {
		return vs, nil
	}
	args := make([]any, len(c.order))
	for i, n := range c.order {
		args[i] = vs[n]
	}
	return args, nil
}

// DebugString returns the statement preceded by the declaration of its
// parameters and their values.
func (c *Compiled) DebugString() string {
	var b strings.Builder
	for i, p := range c.Params {
		t, err := c.Dialect.Type(p.Info)
		if err != nil {
			continue
		}
		lit, err := c.Dialect.Literal(p.Info, p.Value)
		if err != nil {
			lit = "/* " + err.Error() + " */"
		}
		if c.Dialect.name == dialect.SQLServer {
			fmt.Fprintf(&b, "DECLARE %s %s = %s;\n", c.Dialect.placeholderOf(i+1), t, lit)
			continue
		}
		name := c.Dialect.placeholderOf(i + 1)
		if c.Dialect.placeholder == Question {
			name = "?" + strconv.Itoa(i+1)
		}
		fmt.Fprintf(&b, "-- %s %s = %s\n", name, t, lit)
	}
	b.WriteString(c.SQL)
	return b.String()
}

// Compile compiles a statement for the dialect. Compilation has no side
// effects; the same statement, dialect and options always produce the same
// text and parameter order.
func Compile(stmt Statement, d *Dialect, opts ...CompileOption) (*Compiled, error) {
	b := NewBuilder(d, opts...)
	b.Statement(stmt)
	if err := b.Err(); err != nil {
		return nil, err
	}
	return &Compiled{SQL: b.String(), Params: b.params, Dialect: d, order: b.order}, nil
}

// CompileAll compiles independent statements concurrently. The results are
// in the order of stmts.
func CompileAll(ctx context.Context, d *Dialect, stmts []Statement, opts ...CompileOption) ([]*Compiled, error) {
	out := make([]*Compiled, len(stmts))
	g, ctx := errgroup.WithContext(ctx)
	for i, stmt := range stmts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return rowset.Canceled(err)
			}
			c, err := Compile(stmt, d, opts...)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Statement writes a statement.
func (b *Builder) Statement(stmt Statement) *Builder {
	switch s := stmt.(type) {
	case nil:
		b.AddError(rowset.NewStateError("compile", "nil statement"))
	case *Selector:
		b.selectStmt(s)
	case *InsertStmt:
		b.insertStmt(s)
	case *UpdateStmt:
		b.updateStmt(s)
	case *DeleteStmt:
		b.deleteStmt(s)
	case *CreateTableStmt:
		b.createTable(s)
	case *CreateIndexStmt:
		b.createIndex(s)
	case *DropTableStmt:
		b.dropTable(s)
	case *Batch:
		for i, st := range s.Stmts {
			if i > 0 {
				b.WriteByte(';')
				b.Newline()
			}
			b.Statement(st)
		}
	case *RawStmt:
		b.WriteString(s.SQL)
	default:
		b.AddError(rowset.NewNotSupportedError(b.d.name, "statement", typeName(stmt)))
	}
	return b
}

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// check reports construction errors of an expression.
func (b *Builder) check(e expr.Expr) bool {
	if e == nil {
		return true
	}
	if err := expr.Err(e); err != nil {
		b.AddError(err)
		return false
	}
	return true
}

func (b *Builder) selectStmt(s *Selector) {
	if s.from == nil {
		b.AddError(rowset.NewStateError("select", "missing FROM source"))
		return
	}
	for _, p := range s.projections {
		b.check(p.Expr)
	}
	for _, j := range s.joins {
		b.check(j.on)
	}
	for _, k := range s.groupBy {
		b.check(k)
	}
	for _, o := range s.orderBy {
		b.check(o.Expr)
	}
	if !b.check(s.where) || !b.check(s.having) || len(b.errs) > 0 {
		return
	}
	b.withScope(s.sources(), func() {
		b.WriteString("SELECT ")
		if s.distinct {
			b.WriteString("DISTINCT ")
		}
		if len(s.projections) == 0 {
			cols := s.from.Columns()
			b.Join(len(cols), func(i int) { b.Column(cols[i]) })
		} else {
			b.Join(len(s.projections), func(i int) { b.projection(s.projections[i]) })
		}
		b.Newline().WriteString("FROM ")
		b.source(s.from)
		for _, j := range s.joins {
			b.Newline().WriteString(j.kind.String() + " ")
			b.source(j.src)
			b.WriteString(" ON ").Expr(j.on)
		}
		if s.where != nil {
			b.Newline().WriteString("WHERE ").Expr(s.where)
		}
		if keys := s.GroupKeys(); len(keys) > 0 {
			b.Newline().WriteString("GROUP BY ")
			b.Join(len(keys), func(i int) { b.Expr(keys[i]) })
		}
		if s.having != nil {
			b.Newline().WriteString("HAVING ").Expr(s.having)
		}
		if len(s.orderBy) > 0 {
			b.Newline().WriteString("ORDER BY ")
			b.Join(len(s.orderBy), func(i int) {
				b.Expr(s.orderBy[i].Expr)
				if s.orderBy[i].Desc {
					b.WriteString(" DESC")
				}
			})
		}
		b.paging(s)
	})
}

func (b *Builder) projection(p Projection) {
	b.Expr(p.Expr)
	if p.Target == nil {
		return
	}
	if c, ok := p.Expr.(*expr.Column); ok && c.Name == p.Target.Name {
		return
	}
	b.WriteString(" AS ").Ident(p.Target.Name)
}

func (b *Builder) paging(s *Selector) {
	if s.offset == nil && s.limit == nil {
		return
	}
	if s.offset != nil && *s.offset < 0 || s.limit != nil && *s.limit < 0 {
		b.AddError(rowset.NewStateError("select", "negative offset or limit"))
		return
	}
	switch b.d.paging {
	case OffsetFetch:
		if len(s.orderBy) == 0 {
			b.Newline().WriteString("ORDER BY (SELECT NULL)")
		}
		offset := 0
		if s.offset != nil {
			offset = *s.offset
		}
		b.Newline().WriteString("OFFSET " + strconv.Itoa(offset) + " ROWS")
		if s.limit != nil {
			b.WriteString(" FETCH NEXT " + strconv.Itoa(*s.limit) + " ROWS ONLY")
		}
	case LimitOffset:
		switch {
		case s.limit != nil:
			b.Newline().WriteString("LIMIT " + strconv.Itoa(*s.limit))
		case b.d.name == dialect.MySQL:
			b.Newline().WriteString("LIMIT 18446744073709551615")
		case b.d.name == dialect.SQLite:
			b.Newline().WriteString("LIMIT -1")
		}
		if s.offset != nil {
			b.Newline().WriteString("OFFSET " + strconv.Itoa(*s.offset))
		}
	}
}

// source writes a FROM or JOIN source.
func (b *Builder) source(src Source) {
	switch src := src.(type) {
	case *TableSource:
		b.table(src.Table)
		if src.as != "" && src.as != src.Table.TableName() {
			b.WriteString(" AS ").Ident(src.as)
		}
	case *DerivedSource:
		b.WriteByte('(')
		b.Nested(func(b *Builder) {
			b.newlineIndented()
			b.selectStmt(src.Select)
		})
		b.newlineIndented()
		b.WriteString(") AS ").Ident(src.as)
	case *BulkSource:
		b.bulkSource(src)
	default:
		b.AddError(rowset.NewNotSupportedError(b.d.name, "source", typeName(src)))
	}
}

// newlineIndented breaks the line around nested statements in indented
// mode only.
func (b *Builder) newlineIndented() {
	if b.indent != "" {
		b.Newline()
	}
}

func (b *Builder) table(t expr.Table) *Builder {
	if m, ok := t.(*schema.Model); ok {
		return b.WriteString(b.d.QuoteTable(m.Schema(), m.TableName()))
	}
	return b.Ident(t.TableName())
}

func (b *Builder) insertStmt(s *InsertStmt) {
	for _, row := range s.values {
		if len(row) != len(s.columns) {
			b.AddError(rowset.NewStateError("insert", fmt.Sprintf("%d values for %d columns", len(row), len(s.columns))))
			return
		}
		for _, v := range row {
			b.check(v)
		}
	}
	for _, c := range s.columns {
		if !s.table.Owns(c) {
			b.AddError(rowset.NewSchemaError(s.table.Name(), c.Name, "column is not part of the target table"))
		}
	}
	if len(s.values) > 0 && s.sel != nil {
		b.AddError(rowset.NewStateError("insert", "both values and select are set"))
	}
	if len(b.errs) > 0 {
		return
	}
	b.WriteString("INSERT INTO ").table(s.table)
	if len(s.columns) == 0 && s.sel == nil {
		if b.d.name == dialect.MySQL {
			b.WriteString(" () VALUES ()")
		} else {
			b.output(s)
			b.WriteString(" DEFAULT VALUES")
		}
		b.returning(s)
		return
	}
	if len(s.columns) > 0 {
		b.WriteString(" (")
		b.Join(len(s.columns), func(i int) { b.Ident(s.columns[i].Name) })
		b.WriteByte(')')
	}
	b.output(s)
	switch {
	case s.sel != nil:
		b.Newline()
		b.selectStmt(s.sel)
	default:
		b.Newline().WriteString("VALUES ")
		b.Join(len(s.values), func(i int) {
			b.WriteByte('(')
			b.Join(len(s.values[i]), func(j int) { b.Expr(s.values[i][j]) })
			b.WriteByte(')')
		})
	}
	b.returning(s)
}

// output writes the OUTPUT clause of dialects capturing identities into a
// table.
func (b *Builder) output(s *InsertStmt) {
	if len(s.returning) == 0 || b.d.capture != CaptureOutputInto {
		return
	}
	b.WriteString(" OUTPUT ")
	b.Join(len(s.returning), func(i int) {
		b.WriteString("INSERTED.").Ident(s.returning[i].Name)
	})
	if s.into != "" {
		b.WriteString(" INTO ").Ident(s.into).WriteByte('(').Ident(s.intoCol).WriteByte(')')
	}
}

// returning writes the RETURNING clause of dialects supporting it.
func (b *Builder) returning(s *InsertStmt) {
	if len(s.returning) == 0 {
		return
	}
	switch b.d.capture {
	case CaptureReturning:
		if s.into != "" {
			b.AddError(rowset.NewNotSupportedError(b.d.name, "clause", "OUTPUT INTO"))
			return
		}
		b.Newline().WriteString("RETURNING ")
		b.Join(len(s.returning), func(i int) { b.Ident(s.returning[i].Name) })
	case CaptureLastInsertID:
		b.AddError(rowset.NewNotSupportedError(b.d.name, "clause", "RETURNING"))
	}
}

func (b *Builder) updateStmt(s *UpdateStmt) {
	if len(s.sets) == 0 {
		b.AddError(rowset.NewStateError("update", "no columns to set"))
		return
	}
	for _, set := range s.sets {
		if !s.table.Owns(set.Target) {
			b.AddError(rowset.NewSchemaError(s.table.Name(), set.Target.Name, "column is not part of the target table"))
		}
		b.check(set.Expr)
	}
	if !b.check(s.where) || len(b.errs) > 0 {
		return
	}
	b.withScope([]Source{Table(s.table)}, func() {
		b.WriteString("UPDATE ").table(s.table)
		b.Newline().WriteString("SET ")
		b.Join(len(s.sets), func(i int) {
			b.Ident(s.sets[i].Target.Name).WriteString(" = ").Expr(s.sets[i].Expr)
		})
		if s.where != nil {
			b.Newline().WriteString("WHERE ").Expr(s.where)
		}
	})
}

func (b *Builder) deleteStmt(s *DeleteStmt) {
	if !b.check(s.where) {
		return
	}
	b.withScope([]Source{Table(s.table)}, func() {
		b.WriteString("DELETE FROM ").table(s.table)
		if s.where != nil {
			b.Newline().WriteString("WHERE ").Expr(s.where)
		}
	})
}
