package sql

import (
	"fmt"
	"slices"

	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// Statement is a compilable statement: *Selector, *InsertStmt,
// *UpdateStmt, *DeleteStmt, *CreateTableStmt, *DropTableStmt, *Batch or
// *RawStmt.
type Statement interface {
	statement()
}

// Source is a FROM or JOIN source: *TableSource, *DerivedSource or
// *BulkSource.
type Source interface {
	// Alias returns the name the source is referenced by.
	Alias() string
	// Exposes reports if columns of t are visible through the source.
	Exposes(t expr.Table) bool
	// Columns returns the columns the source produces.
	Columns() []*expr.Column
	source()
}

// TableSource reads a table.
type TableSource struct {
	Table expr.Table
	as    string
}

// Table returns a source reading the table of t. Its alias defaults to the
// table name.
func Table(t expr.Table) *TableSource {
	return &TableSource{Table: t}
}

// As sets the alias of the source.
func (s *TableSource) As(alias string) *TableSource {
	s.as = alias
	return s
}

// Alias implements the Source interface.
func (s *TableSource) Alias() string {
	if s.as != "" {
		return s.as
	}
	return s.Table.TableName()
}

// Exposes implements the Source interface.
func (s *TableSource) Exposes(t expr.Table) bool { return s.Table == t }

// Columns implements the Source interface.
func (s *TableSource) Columns() []*expr.Column { return s.Table.Columns() }

// DerivedSource reads the result of a subquery.
type DerivedSource struct {
	Select *Selector
	as     string
}

// Derived returns a source reading the result of sel.
func Derived(sel *Selector, alias string) *DerivedSource {
	return &DerivedSource{Select: sel, as: alias}
}

// Alias implements the Source interface.
func (s *DerivedSource) Alias() string { return s.as }

// Exposes implements the Source interface.
func (s *DerivedSource) Exposes(t expr.Table) bool {
	return slices.ContainsFunc(s.Columns(), func(c *expr.Column) bool { return c.Table == t })
}

// Columns implements the Source interface.
func (s *DerivedSource) Columns() []*expr.Column { return s.Select.OutputColumns() }

func (*TableSource) source()   {}
func (*DerivedSource) source() {}
func (*BulkSource) source()    {}

// JoinKind is the kind of a join.
type JoinKind uint8

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
)

func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	}
	return "JOIN"
}

type join struct {
	kind JoinKind
	src  Source
	on   expr.Expr
}

// Projection is a selected expression and the column it is projected as.
type Projection struct {
	Expr   expr.Expr
	Target *expr.Column // Optional output column.
}

// Name returns the output name of the projection, if it has one.
func (p Projection) Name() string {
	if p.Target != nil {
		return p.Target.Name
	}
	if c, ok := p.Expr.(*expr.Column); ok {
		return c.Name
	}
	return ""
}

// Order is an ORDER BY item.
type Order struct {
	Expr expr.Expr
	Desc bool
}

// Asc returns an ascending ORDER BY item.
func Asc(e expr.Expr) Order { return Order{Expr: e} }

// Desc returns a descending ORDER BY item.
func Desc(e expr.Expr) Order { return Order{Expr: e, Desc: true} }

// Selector is a SELECT statement under construction.
type Selector struct {
	from        Source
	joins       []join
	where       expr.Expr
	projections []Projection
	groupBy     []expr.Expr
	having      expr.Expr
	orderBy     []Order
	offset      *int
	limit       *int
	distinct    bool
	noAutoGroup bool
}

// Select returns a selector projecting the given expressions. Without
// projections, all columns of the FROM source are selected.
func Select(exprs ...expr.Expr) *Selector {
	s := &Selector{}
	return s.Select(exprs...)
}

// From sets the FROM source.
func (s *Selector) From(src Source) *Selector {
	s.from = src
	return s
}

// Source returns the FROM source.
func (s *Selector) Source() Source { return s.from }

// Select appends projections of the given expressions.
func (s *Selector) Select(exprs ...expr.Expr) *Selector {
	for _, e := range exprs {
		s.projections = append(s.projections, Projection{Expr: e})
	}
	return s
}

// Project appends a projection of src as the target column.
func (s *Selector) Project(src expr.Expr, target *expr.Column) *Selector {
	s.projections = append(s.projections, Projection{Expr: src, Target: target})
	return s
}

// Projections returns the explicit projections.
func (s *Selector) Projections() []Projection { return s.projections }

// Join adds a join with an arbitrary predicate.
func (s *Selector) Join(kind JoinKind, src Source, on expr.Expr) *Selector {
	s.joins = append(s.joins, join{kind: kind, src: src, on: expr.Predicate("join", on)})
	return s
}

// InnerJoin adds an inner join on keyLeft = keyRight.
func (s *Selector) InnerJoin(src Source, keyLeft, keyRight expr.Expr) *Selector {
	return s.Join(InnerJoin, src, expr.EQ(keyLeft, keyRight))
}

// LeftJoin adds a left outer join on keyLeft = keyRight.
func (s *Selector) LeftJoin(src Source, keyLeft, keyRight expr.Expr) *Selector {
	return s.Join(LeftJoin, src, expr.EQ(keyLeft, keyRight))
}

// RightJoin adds a right outer join on keyLeft = keyRight.
func (s *Selector) RightJoin(src Source, keyLeft, keyRight expr.Expr) *Selector {
	return s.Join(RightJoin, src, expr.EQ(keyLeft, keyRight))
}

// Where adds a predicate, combined with existing predicates using AND.
func (s *Selector) Where(pred expr.Expr) *Selector {
	pred = expr.Predicate("where", pred)
	if s.where == nil {
		s.where = pred
	} else {
		s.where = expr.And(s.where, pred)
	}
	return s
}

// GroupBy appends GROUP BY keys.
func (s *Selector) GroupBy(keys ...expr.Expr) *Selector {
	s.groupBy = append(s.groupBy, keys...)
	return s
}

// Having adds a HAVING predicate, combined with existing ones using AND.
func (s *Selector) Having(pred expr.Expr) *Selector {
	pred = expr.Predicate("having", pred)
	if s.having == nil {
		s.having = pred
	} else {
		s.having = expr.And(s.having, pred)
	}
	return s
}

// OrderBy appends ORDER BY items.
func (s *Selector) OrderBy(items ...Order) *Selector {
	s.orderBy = append(s.orderBy, items...)
	return s
}

// Offset sets the number of rows to skip.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Limit sets the maximum number of rows to return.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Distinct removes duplicate rows.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// AutoGroupBy enables or disables the automatic GROUP BY keys of aggregate
// statements. It is enabled by default.
func (s *Selector) AutoGroupBy(enabled bool) *Selector {
	s.noAutoGroup = !enabled
	return s
}

// IsAggregate reports if the statement groups rows.
func (s *Selector) IsAggregate() bool {
	if len(s.groupBy) > 0 || s.having != nil {
		return true
	}
	return slices.ContainsFunc(s.projections, func(p Projection) bool { return expr.ContainsAggregate(p.Expr) })
}

// IsSimple reports if the statement is a projection and filter over a
// single table.
func (s *Selector) IsSimple() bool {
	_, table := s.from.(*TableSource)
	return table && len(s.joins) == 0 && !s.distinct && !s.IsAggregate()
}

// OutputColumns returns the columns produced by the statement: projection
// targets, projected columns, or all columns of the FROM source.
func (s *Selector) OutputColumns() []*expr.Column {
	if len(s.projections) == 0 {
		if s.from == nil {
			return nil
		}
		return s.from.Columns()
	}
	var cols []*expr.Column
	for _, p := range s.projections {
		switch {
		case p.Target != nil:
			cols = append(cols, p.Target)
		default:
			if c, ok := p.Expr.(*expr.Column); ok {
				cols = append(cols, c)
			}
		}
	}
	return cols
}

// GroupKeys returns the effective GROUP BY list: explicit keys, then the
// non-aggregated projections when auto-group-by is enabled, then the
// system row identifier columns of the sources.
func (s *Selector) GroupKeys() []expr.Expr {
	if !s.IsAggregate() {
		return nil
	}
	keys := slices.Clone(s.groupBy)
	add := func(e expr.Expr) {
		if !slices.Contains(keys, e) {
			keys = append(keys, e)
		}
	}
	if !s.noAutoGroup {
		for _, p := range s.projections {
			if expr.ContainsAggregate(p.Expr) || constant(p.Expr) {
				continue
			}
			add(p.Expr)
		}
	}
	for _, src := range s.sources() {
		ts, ok := src.(*TableSource)
		if !ok {
			continue
		}
		for _, c := range ts.Table.Columns() {
			if c.System != expr.SystemNone {
				add(c)
			}
		}
	}
	return keys
}

// constant reports if e references no columns.
func constant(e expr.Expr) bool {
	return len(expr.Columns(e)) == 0
}

func (s *Selector) sources() []Source {
	srcs := make([]Source, 0, len(s.joins)+1)
	if s.from != nil {
		srcs = append(srcs, s.from)
	}
	for _, j := range s.joins {
		srcs = append(srcs, j.src)
	}
	return srcs
}

// Clone returns a shallow copy of the selector that can be modified
// without affecting s.
func (s *Selector) Clone() *Selector {
	c := *s
	c.joins = slices.Clone(s.joins)
	c.projections = slices.Clone(s.projections)
	c.groupBy = slices.Clone(s.groupBy)
	c.orderBy = slices.Clone(s.orderBy)
	return &c
}

// Simplify collapses a selection over a simple derived subquery into a
// single statement. It returns s unchanged when the shapes do not allow it.
func (s *Selector) Simplify() *Selector {
	d, ok := s.from.(*DerivedSource)
	if !ok || len(s.joins) > 0 {
		return s
	}
	inner := d.Select.Simplify()
	if !inner.IsSimple() || inner.offset != nil || inner.limit != nil || len(inner.orderBy) > 0 {
		return s
	}
	subst := make(map[*expr.Column]expr.Expr)
	for _, p := range inner.projections {
		if p.Target != nil {
			subst[p.Target] = p.Expr
		}
	}
	rewrite := func(e expr.Expr) (expr.Expr, error) {
		if e == nil {
			return nil, nil
		}
		return expr.Transform(e, func(n expr.Expr) (expr.Expr, error) {
			if c, ok := n.(*expr.Column); ok {
				if r, ok := subst[c]; ok {
					return r, nil
				}
			}
			return n, nil
		})
	}
	out := s.Clone()
	out.from = inner.from
	var err error
	for i, p := range out.projections {
		if out.projections[i].Expr, err = rewrite(p.Expr); err != nil {
			return s
		}
		if c, ok := p.Expr.(*expr.Column); ok && p.Target == nil && subst[c] != nil {
			out.projections[i].Target = c
		}
	}
	if len(out.projections) == 0 {
		out.projections = slices.Clone(inner.projections)
	}
	if out.where, err = rewrite(out.where); err != nil {
		return s
	}
	if inner.where != nil {
		if out.where == nil {
			out.where = inner.where
		} else {
			out.where = expr.And(inner.where, out.where)
		}
	}
	for i, k := range out.groupBy {
		if out.groupBy[i], err = rewrite(k); err != nil {
			return s
		}
	}
	if out.having, err = rewrite(out.having); err != nil {
		return s
	}
	for i, o := range out.orderBy {
		if out.orderBy[i].Expr, err = rewrite(o.Expr); err != nil {
			return s
		}
	}
	return out
}

// InsertStmt is an INSERT statement.
type InsertStmt struct {
	table     *schema.Model
	columns   []*expr.Column
	values    [][]expr.Expr
	sel       *Selector
	returning []*expr.Column
	into      string // Capture table of OUTPUT ... INTO.
	intoCol   string
}

// Insert returns an INSERT statement into the table of m.
func Insert(m *schema.Model) *InsertStmt {
	return &InsertStmt{table: m}
}

// Columns sets the target columns.
func (i *InsertStmt) Columns(cols ...*expr.Column) *InsertStmt {
	i.columns = append(i.columns, cols...)
	return i
}

// Values appends a row of values.
func (i *InsertStmt) Values(vs ...expr.Expr) *InsertStmt {
	i.values = append(i.values, vs)
	return i
}

// Select sets the query providing the inserted rows.
func (i *InsertStmt) Select(sel *Selector) *InsertStmt {
	i.sel = sel
	return i
}

// Returning requests the values of the given columns for inserted rows.
func (i *InsertStmt) Returning(cols ...*expr.Column) *InsertStmt {
	i.returning = append(i.returning, cols...)
	return i
}

// OutputInto redirects the returned values into a capture table column
// instead of a result set. Only dialects capturing identities through an
// OUTPUT clause support it.
func (i *InsertStmt) OutputInto(table, column string) *InsertStmt {
	i.into, i.intoCol = table, column
	return i
}

// Model returns the target model.
func (i *InsertStmt) Model() *schema.Model { return i.table }

// UpdateStmt is an UPDATE statement.
type UpdateStmt struct {
	table *schema.Model
	sets  []Projection
	where expr.Expr
}

// Update returns an UPDATE statement of the table of m.
func Update(m *schema.Model) *UpdateStmt {
	return &UpdateStmt{table: m}
}

// Set assigns e to the column.
func (u *UpdateStmt) Set(c *expr.Column, e expr.Expr) *UpdateStmt {
	u.sets = append(u.sets, Projection{Expr: e, Target: c})
	return u
}

// Where adds a predicate, combined with existing predicates using AND.
func (u *UpdateStmt) Where(pred expr.Expr) *UpdateStmt {
	pred = expr.Predicate("where", pred)
	if u.where == nil {
		u.where = pred
	} else {
		u.where = expr.And(u.where, pred)
	}
	return u
}

// DeleteStmt is a DELETE statement.
type DeleteStmt struct {
	table *schema.Model
	where expr.Expr
}

// Delete returns a DELETE statement of the table of m.
func Delete(m *schema.Model) *DeleteStmt {
	return &DeleteStmt{table: m}
}

// Where adds a predicate, combined with existing predicates using AND.
func (d *DeleteStmt) Where(pred expr.Expr) *DeleteStmt {
	pred = expr.Predicate("where", pred)
	if d.where == nil {
		d.where = pred
	} else {
		d.where = expr.And(d.where, pred)
	}
	return d
}

// Batch is a sequence of statements sent as one command. Parameters are
// shared across the statements of the batch.
type Batch struct {
	Stmts []Statement
}

// NewBatch returns a batch of the given statements.
func NewBatch(stmts ...Statement) *Batch {
	return &Batch{Stmts: stmts}
}

// RawStmt is a statement given as SQL text. It cannot hold parameters.
type RawStmt struct {
	SQL string
}

// Raw returns a raw statement.
func Raw(format string, args ...any) *RawStmt {
	if len(args) == 0 {
		return &RawStmt{SQL: format}
	}
	return &RawStmt{SQL: fmt.Sprintf(format, args...)}
}

func (*Selector) statement()        {}
func (*InsertStmt) statement()      {}
func (*UpdateStmt) statement()      {}
func (*DeleteStmt) statement()      {}
func (*CreateTableStmt) statement() {}
func (*DropTableStmt) statement()   {}
func (*Batch) statement()           {}
func (*RawStmt) statement()         {}

// column returns a detached column descriptor owned by t.
func column(t expr.Table, name string, info field.TypeInfo, ordinal int) *expr.Column {
	return &expr.Column{Name: name, Info: info, Table: t, Ordinal: ordinal}
}
