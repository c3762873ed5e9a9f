package sql

import (
	"strings"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// Scope is the set of sources visible to the expressions of a statement.
// Nested statements see the sources of their enclosing statements through
// Outer.
type Scope struct {
	Sources []Source
	Outer   *Scope
}

// AliasPolicy resolves the qualifier of a column reference. An empty result
// renders the column unqualified.
type AliasPolicy func(s *Scope, c *expr.Column) string

// SourceAliases qualifies a column with the alias of the innermost source
// exposing its table, falling back to the table name.
func SourceAliases(s *Scope, c *expr.Column) string {
	for sc := s; sc != nil; sc = sc.Outer {
		for _, src := range sc.Sources {
			if src.Exposes(c.Table) {
				return src.Alias()
			}
		}
	}
	if c.Table != nil {
		return c.Table.TableName()
	}
	return ""
}

// NoAlias renders all columns unqualified.
func NoAlias(*Scope, *expr.Column) string { return "" }

// SingleTable omits the qualifier in statements reading a single source and
// behaves like SourceAliases otherwise.
func SingleTable(s *Scope, c *expr.Column) string {
	if s != nil && s.Outer == nil && len(s.Sources) == 1 && s.Sources[0].Exposes(c.Table) {
		return ""
	}
	return SourceAliases(s, c)
}

// Builder is the text buffer statements are compiled into. It tracks the
// indentation level, the visible sources and the bound parameters.
type Builder struct {
	sb     strings.Builder
	d      *Dialect
	policy AliasPolicy
	indent string
	depth  int
	scope  *Scope
	params []*expr.Param
	index  map[*expr.Param]int
	order  []int
	errs   []error
}

// NewBuilder returns a builder for the dialect.
func NewBuilder(d *Dialect, opts ...CompileOption) *Builder {
	b := &Builder{d: d, policy: SourceAliases, index: make(map[*expr.Param]int)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() *Dialect { return b.d }

// WriteString appends s to the buffer.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends c to the buffer.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Ident appends a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	return b.WriteString(b.d.Quote(name))
}

// Newline starts a new line at the current indentation. In compact mode it
// writes a single space.
func (b *Builder) Newline() *Builder {
	if b.indent == "" {
		return b.WriteByte(' ')
	}
	b.WriteByte('\n')
	for range b.depth {
		b.WriteString(b.indent)
	}
	return b
}

// Nested runs f one indentation level deeper.
func (b *Builder) Nested(f func(*Builder)) *Builder {
	b.depth++
	f(b)
	b.depth--
	return b
}

// Join writes the items separated by ", ".
func (b *Builder) Join(n int, f func(i int)) *Builder {
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		f(i)
	}
	return b
}

// AddError records an error. Compilation fails with the recorded errors.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the recorded errors, if any.
func (b *Builder) Err() error {
	return rowset.NewAggregateError(b.errs...)
}

// String returns the text written so far.
func (b *Builder) String() string { return b.sb.String() }

// Scope returns the sources visible at the current position.
func (b *Builder) Scope() *Scope { return b.scope }

// withScope runs f with srcs pushed as the innermost scope.
func (b *Builder) withScope(srcs []Source, f func()) {
	outer := b.scope
	b.scope = &Scope{Sources: srcs, Outer: outer}
	f()
	b.scope = outer
}

// Arg writes the placeholder of a parameter. A parameter used more than
// once keeps the number of its first occurrence.
func (b *Builder) Arg(p *expr.Param) *Builder {
	n, ok := b.index[p]
	if !ok {
		b.params = append(b.params, p)
		n = len(b.params)
		b.index[p] = n
	}
	if b.d.placeholder == Question {
		b.order = append(b.order, n-1)
	}
	return b.WriteString(b.d.placeholderOf(n))
}

// Column writes a column reference qualified by the alias policy.
func (b *Builder) Column(c *expr.Column) *Builder {
	if alias := b.policy(b.scope, c); alias != "" {
		b.Ident(alias).WriteByte('.')
	}
	return b.Ident(c.Name)
}

// Expr writes an expression.
func (b *Builder) Expr(e expr.Expr) *Builder {
	switch e := e.(type) {
	case nil:
		b.AddError(rowset.NewStateError("compile", "nil expression"))
	case *expr.Invalid:
		b.AddError(e.Err)
	case *expr.Column:
		b.Column(e)
	case *expr.Param:
		if _, err := b.d.Type(e.Info); err != nil {
			b.AddError(err)
		}
		b.Arg(e)
	case *expr.Constant:
		if expr.IsUntypedNull(e) {
			return b.WriteString("NULL")
		}
		lit, err := b.d.Literal(e.Info, e.Value)
		if err != nil {
			return b.AddError(err)
		}
		b.WriteString(lit)
	case *expr.Binary:
		op, err := b.d.Operator(e.Op)
		if err != nil {
			return b.AddError(err)
		}
		b.WriteByte('(').Expr(e.L).WriteString(" " + op + " ").Expr(e.R).WriteByte(')')
	case *expr.Unary:
		op, err := b.d.Operator(e.Op)
		if err != nil {
			return b.AddError(err)
		}
		switch e.Op {
		case expr.OpIsNull, expr.OpIsNotNull:
			b.WriteByte('(').Expr(e.X).WriteString(" " + op + ")")
		case expr.OpNot:
			b.WriteString("(" + op + " ").Expr(e.X).WriteByte(')')
		default:
			b.WriteString("(" + op).Expr(e.X).WriteByte(')')
		}
	case *expr.Case:
		b.WriteString("CASE")
		for _, w := range e.Whens {
			b.WriteString(" WHEN ").Expr(w.Cond).WriteString(" THEN ").Expr(w.Then)
		}
		if e.Else != nil {
			b.WriteString(" ELSE ").Expr(e.Else)
		}
		b.WriteString(" END")
	case *expr.Cast:
		to, err := b.d.Type(e.To)
		if err != nil {
			return b.AddError(err)
		}
		if from, ok := b.physical(e.X); ok && from.SameParameterType(to) {
			return b.Expr(e.X)
		}
		b.WriteString("CAST(").Expr(e.X).WriteString(" AS " + to.String() + ")")
	case *expr.Func:
		r, err := b.d.Function(e.Fn)
		if err != nil {
			return b.AddError(err)
		}
		r(b, e.Args)
	default:
		b.AddError(rowset.NewNotSupportedError(b.d.name, "expression", typeName(e)))
	}
	return b
}

// physical returns the physical type an expression evaluates to, when it
// is known from its type info.
func (b *Builder) physical(e expr.Expr) (PhysicalType, bool) {
	var info field.TypeInfo
	switch e := e.(type) {
	case *expr.Column:
		info = e.Info
	case *expr.Param:
		info = e.Info
	case *expr.Constant:
		if expr.IsUntypedNull(e) {
			return PhysicalType{}, false
		}
		info = e.Info
	case *expr.Cast:
		info = e.To
	default:
		if !e.Type().Valid() {
			return PhysicalType{}, false
		}
		info = field.TypeInfo{Type: e.Type()}
	}
	t, err := b.d.Type(info)
	return t, err == nil
}
