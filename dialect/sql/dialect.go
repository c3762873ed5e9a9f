package sql

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dialect"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// PlaceholderStyle is the way a dialect spells bound parameters.
type PlaceholderStyle uint8

// Placeholder styles.
const (
	AtNamed          PlaceholderStyle = iota // @p1
	Dollar                                   // $1
	Question                                 // ? (one argument per occurrence)
	QuestionNumbered                         // ?1
)

// PagingStyle is the way a dialect spells OFFSET and LIMIT.
type PagingStyle uint8

// Paging styles.
const (
	OffsetFetch PagingStyle = iota // OFFSET n ROWS FETCH NEXT m ROWS ONLY
	LimitOffset                    // LIMIT m OFFSET n
)

// IdentityCapture is the way a dialect reports identity values generated
// by an INSERT.
type IdentityCapture uint8

// Identity capture strategies.
const (
	CaptureOutputInto    IdentityCapture = iota // OUTPUT INSERTED.x INTO #table
	CaptureReturning                            // RETURNING x
	CaptureLastInsertID                         // LAST_INSERT_ID() + ROW_COUNT()
)

// FuncRenderer renders a function call into the builder.
type FuncRenderer func(b *Builder, args []expr.Expr)

// Dialect describes how statements are rendered for one database.
// Dialects are shared; RegisterFunction may be called concurrently with
// compilation.
type Dialect struct {
	name        string
	quote       [2]string
	placeholder PlaceholderStyle
	paging      PagingStyle
	capture     IdentityCapture
	ops         map[expr.Op]string
	types       map[field.Type]typeRule
	mu          sync.RWMutex
	funcs       map[*expr.Function]FuncRenderer
}

// Name returns the dialect name.
func (d *Dialect) Name() string { return d.name }

// String implements the fmt.Stringer interface.
func (d *Dialect) String() string { return d.name }

// Placeholder returns the placeholder style of the dialect.
func (d *Dialect) Placeholder() PlaceholderStyle { return d.placeholder }

// Capture returns the identity capture strategy of the dialect.
func (d *Dialect) Capture() IdentityCapture { return d.capture }

// Quote quotes an identifier. Embedded closing quotes are doubled.
func (d *Dialect) Quote(ident string) string {
	return d.quote[0] + strings.ReplaceAll(ident, d.quote[1], d.quote[1]+d.quote[1]) + d.quote[1]
}

// QuoteTable quotes a possibly schema-qualified table name.
func (d *Dialect) QuoteTable(schema, table string) string {
	if schema == "" {
		return d.Quote(table)
	}
	return d.Quote(schema) + "." + d.Quote(table)
}

// Operator returns the SQL symbol of an operator.
func (d *Dialect) Operator(op expr.Op) (string, error) {
	s, ok := d.ops[op]
	if !ok {
		return "", rowset.NewNotSupportedError(d.name, "operator", op.String())
	}
	return s, nil
}

// placeholderOf returns the placeholder of the n-th (1-based) parameter.
func (d *Dialect) placeholderOf(n int) string {
	switch d.placeholder {
	case AtNamed:
		return "@p" + strconv.Itoa(n)
	case Dollar:
		return "$" + strconv.Itoa(n)
	case QuestionNumbered:
		return "?" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// RegisterFunction registers or replaces the renderer of a function.
func (d *Dialect) RegisterFunction(fn *expr.Function, r FuncRenderer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs[fn] = r
}

// Function returns the renderer of a function.
func (d *Dialect) Function(fn *expr.Function) (FuncRenderer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.funcs[fn]
	if !ok {
		return nil, rowset.NewNotSupportedError(d.name, "function", fn.Name)
	}
	return r, nil
}

// Call returns a renderer writing name(arg, ...).
func Call(name string) FuncRenderer {
	return func(b *Builder, args []expr.Expr) {
		b.WriteString(name).WriteByte('(')
		for i, a := range args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Expr(a)
		}
		b.WriteByte(')')
	}
}

// Keyword returns a renderer writing a fixed keyword, e.g. CURRENT_TIMESTAMP.
func Keyword(kw string) FuncRenderer {
	return func(b *Builder, _ []expr.Expr) { b.WriteString(kw) }
}

// FromHex decodes a hexadecimal string into bytes. It is used by bulk
// payload sources, which carry binary values as text.
var FromHex = &expr.Function{
	Name: "from_hex",
	Result: func(args []field.Type) (field.Type, error) {
		if len(args) != 1 || (args[0] != field.TypeInvalid && !args[0].Textual()) {
			return field.TypeInvalid, rowset.NewTypeMismatchError("from_hex", "expects 1 string argument")
		}
		return field.TypeBytes, nil
	},
}

func baseOps() map[expr.Op]string {
	return map[expr.Op]string{
		expr.OpAdd:       "+",
		expr.OpSub:       "-",
		expr.OpMul:       "*",
		expr.OpDiv:       "/",
		expr.OpMod:       "%",
		expr.OpEQ:        "=",
		expr.OpNEQ:       "<>",
		expr.OpLT:        "<",
		expr.OpLTE:       "<=",
		expr.OpGT:        ">",
		expr.OpGTE:       ">=",
		expr.OpAnd:       "AND",
		expr.OpOr:        "OR",
		expr.OpBitAnd:    "&",
		expr.OpBitOr:     "|",
		expr.OpBitXor:    "^",
		expr.OpLike:      "LIKE",
		expr.OpNeg:       "-",
		expr.OpNot:       "NOT",
		expr.OpBitNot:    "~",
		expr.OpIsNull:    "IS NULL",
		expr.OpIsNotNull: "IS NOT NULL",
	}
}

func baseFuncs() map[*expr.Function]FuncRenderer {
	count := func(b *Builder, args []expr.Expr) {
		if len(args) == 0 {
			b.WriteString("COUNT(*)")
			return
		}
		Call("COUNT")(b, args)
	}
	return map[*expr.Function]FuncRenderer{
		expr.Count:    count,
		expr.Sum:      Call("SUM"),
		expr.Avg:      Call("AVG"),
		expr.Min:      Call("MIN"),
		expr.Max:      Call("MAX"),
		expr.Upper:    Call("UPPER"),
		expr.Lower:    Call("LOWER"),
		expr.Abs:      Call("ABS"),
		expr.Coalesce: Call("COALESCE"),
	}
}

var (
	registry   = map[string]*Dialect{}
	registryMu sync.RWMutex
)

// Register adds a dialect to the registry, replacing any dialect with the
// same name.
func Register(d *Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.name] = d
}

// For returns the registered dialect with the given name.
func For(name string) (*Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if d, ok := registry[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("dialect/sql: unknown dialect %q", name)
}

// Built-in dialects.
var (
	SQLServer = newSQLServer()
	MySQL     = newMySQL()
	Postgres  = newPostgres()
	SQLite    = newSQLite()
)

func init() {
	for _, d := range []*Dialect{SQLServer, MySQL, Postgres, SQLite} {
		Register(d)
	}
}

func newSQLServer() *Dialect {
	d := &Dialect{
		name:        dialect.SQLServer,
		quote:       [2]string{"[", "]"},
		placeholder: AtNamed,
		paging:      OffsetFetch,
		capture:     CaptureOutputInto,
		ops:         baseOps(),
		types:       sqlServerTypes,
		funcs:       baseFuncs(),
	}
	d.ops[expr.OpConcat] = "+"
	d.funcs[expr.Len] = Call("LEN")
	d.funcs[expr.Now] = Call("SYSDATETIME")
	d.funcs[FromHex] = func(b *Builder, args []expr.Expr) {
		b.WriteString("CONVERT(VARBINARY(MAX), ")
		b.Expr(args[0])
		b.WriteString(", 2)")
	}
	return d
}

func newMySQL() *Dialect {
	d := &Dialect{
		name:        dialect.MySQL,
		quote:       [2]string{"`", "`"},
		placeholder: Question,
		paging:      LimitOffset,
		capture:     CaptureLastInsertID,
		ops:         baseOps(),
		types:       mysqlTypes,
		funcs:       baseFuncs(),
	}
	// || is a logical operator unless PIPES_AS_CONCAT is set.
	d.funcs[expr.Len] = Call("CHAR_LENGTH")
	d.funcs[expr.Now] = Keyword("NOW(6)")
	d.funcs[FromHex] = Call("UNHEX")
	return d
}

func newPostgres() *Dialect {
	d := &Dialect{
		name:        dialect.Postgres,
		quote:       [2]string{`"`, `"`},
		placeholder: Dollar,
		paging:      LimitOffset,
		capture:     CaptureReturning,
		ops:         baseOps(),
		types:       postgresTypes,
		funcs:       baseFuncs(),
	}
	d.ops[expr.OpConcat] = "||"
	d.ops[expr.OpBitXor] = "#"
	d.funcs[expr.Len] = Call("LENGTH")
	d.funcs[expr.Now] = Keyword("NOW()")
	d.funcs[FromHex] = func(b *Builder, args []expr.Expr) {
		b.WriteString("DECODE(")
		b.Expr(args[0])
		b.WriteString(", 'hex')")
	}
	return d
}

func newSQLite() *Dialect {
	d := &Dialect{
		name:        dialect.SQLite,
		quote:       [2]string{`"`, `"`},
		placeholder: QuestionNumbered,
		paging:      LimitOffset,
		capture:     CaptureReturning,
		ops:         baseOps(),
		types:       sqliteTypes,
		funcs:       baseFuncs(),
	}
	d.ops[expr.OpConcat] = "||"
	delete(d.ops, expr.OpBitXor)
	d.funcs[expr.Len] = Call("LENGTH")
	d.funcs[expr.Now] = Keyword("CURRENT_TIMESTAMP")
	d.funcs[FromHex] = Call("UNHEX")
	return d
}
