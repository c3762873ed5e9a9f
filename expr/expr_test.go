package expr_test

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

func productModel(t testing.TB) *schema.Model {
	t.Helper()
	m, err := schema.Define("Product").
		Column("id", field.Int32).
		Column("name", field.String(50)).
		Column("price", field.Decimal(10, 2)).
		Column("weight", field.Float64.Null()).
		Column("active", field.Bool).
		Column("status", field.NamedEnum(field.TypeUint8, "draft", "live")).
		Column("data", field.Bytes.Null()).
		Column("added", field.Date).
		Build()
	require.NoError(t, err)
	return m
}

func TestBinaryTypes(t *testing.T) {
	m := productModel(t)
	tests := []struct {
		name string
		e    expr.Expr
		want field.Type
	}{
		{"add widens", expr.Add(m.Column("id"), m.Column("price")), field.TypeDecimal},
		{"mul float", expr.Mul(m.Column("price"), m.Column("weight")), field.TypeFloat64},
		{"concat", expr.Concat(m.Column("name"), expr.Value("x")), field.TypeString},
		{"compare", expr.LT(m.Column("added"), expr.Typed(field.Date, "2024-01-01")), field.TypeBool},
		{"untyped null", expr.EQ(m.Column("name"), expr.Null(field.TypeInvalid)), field.TypeBool},
		{"and", expr.And(m.Column("active"), expr.Not(m.Column("active"))), field.TypeBool},
		{"bitand", expr.BitAnd(m.Column("id"), expr.Value(int16(3))), field.TypeInt32},
		{"neg", expr.Neg(m.Column("price")), field.TypeDecimal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, expr.Err(tt.e))
			assert.Equal(t, tt.want, tt.e.Type())
		})
	}
}

func TestTypeMismatch(t *testing.T) {
	m := productModel(t)
	tests := map[string]expr.Expr{
		"add string":     expr.Add(m.Column("id"), m.Column("name")),
		"compare bytes":  expr.EQ(m.Column("data"), m.Column("name")),
		"and int":        expr.And(m.Column("active"), m.Column("id")),
		"bitor decimal":  expr.BitOr(m.Column("price"), m.Column("id")),
		"not string":     expr.Not(m.Column("name")),
		"like int":       expr.Like(m.Column("id"), expr.Value("1%")),
		"upper int":      expr.Call(expr.Upper, m.Column("id")),
		"sum bool":       expr.Call(expr.Sum, m.Column("active")),
		"cast bool time": expr.To(m.Column("active"), field.Time),
		"empty and":      expr.And(),
		"single or int":  expr.Or(m.Column("id")),
		"predicate name": expr.Predicate("where", m.Column("name")),
		"nested":         expr.Or(m.Column("active"), expr.EQ(expr.Add(m.Column("id"), m.Column("name")), expr.Value(1))),
	}
	for name, e := range tests {
		t.Run(name, func(t *testing.T) {
			err := expr.Err(e)
			require.Error(t, err)
			assert.ErrorIs(t, err, rowset.ErrTypeMismatch)
		})
	}

	active := m.Column("active")
	assert.Same(t, active, expr.And(active))
	assert.Same(t, active, expr.Predicate("where", active))
	assert.Nil(t, expr.Predicate("where", nil))

	_, err := expr.NewBinary(expr.OpNot, m.Column("active"), m.Column("active"))
	assert.ErrorIs(t, err, rowset.ErrTypeMismatch)
	_, err = expr.NewUnary(expr.OpAdd, m.Column("id"))
	assert.ErrorIs(t, err, rowset.ErrTypeMismatch)
}

func TestConstants(t *testing.T) {
	c, ok := expr.Value(int32(7)).(*expr.Constant)
	require.True(t, ok)
	assert.Equal(t, field.TypeInt32, c.Type())
	assert.Equal(t, field.TypeInt64, expr.Value(7).Type())

	d, ok := expr.Typed(field.Decimal(10, 2), "1.25").(*expr.Constant)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1.25").Equal(d.Value.(decimal.Decimal)))

	assert.True(t, expr.IsUntypedNull(expr.Value(nil)))
	assert.False(t, expr.IsUntypedNull(expr.Null(field.TypeInt32)))
	assert.Error(t, expr.Err(expr.Value(struct{}{})))
	assert.ErrorIs(t, expr.Err(expr.Typed(field.Int32, "x")), rowset.ErrConversion)
	assert.Error(t, expr.Err(nil))
}

func TestFunctions(t *testing.T) {
	m := productModel(t)
	count := expr.Call(expr.Count)
	require.NoError(t, expr.Err(count))
	assert.Equal(t, field.TypeInt64, count.Type())
	assert.True(t, expr.IsAggregate(count))

	sum := expr.Call(expr.Sum, m.Column("id"))
	assert.Equal(t, field.TypeInt64, sum.Type())
	avg := expr.Call(expr.Avg, m.Column("id"))
	assert.Equal(t, field.TypeFloat64, avg.Type())
	coalesce := expr.Call(expr.Coalesce, m.Column("weight"), expr.Value(int32(0)))
	assert.Equal(t, field.TypeFloat64, coalesce.Type())
	assert.Error(t, expr.Err(expr.Call(expr.Coalesce, m.Column("weight"), m.Column("name"))))

	nested := expr.Add(expr.Call(expr.Max, m.Column("price")), expr.Value(int32(1)))
	assert.True(t, expr.ContainsAggregate(nested))
	assert.False(t, expr.IsAggregate(nested))
	assert.False(t, expr.ContainsAggregate(expr.Call(expr.Len, m.Column("name"))))
}

func TestCaseAndCast(t *testing.T) {
	m := productModel(t)
	c := expr.CaseWhen([]expr.When{
		{Cond: m.Column("active"), Then: m.Column("price")},
		{Cond: expr.IsNull(m.Column("weight")), Then: expr.Value(int32(0))},
	}, expr.Null(field.TypeInvalid))
	require.NoError(t, expr.Err(c))
	assert.Equal(t, field.TypeDecimal, c.Type())

	bad := expr.CaseWhen([]expr.When{{Cond: m.Column("id"), Then: m.Column("price")}}, nil)
	assert.ErrorIs(t, expr.Err(bad), rowset.ErrTypeMismatch)
	mixed := expr.CaseWhen([]expr.When{{Cond: m.Column("active"), Then: m.Column("name")}}, m.Column("id"))
	assert.ErrorIs(t, expr.Err(mixed), rowset.ErrTypeMismatch)

	cast := expr.To(m.Column("id"), field.String(10))
	require.NoError(t, expr.Err(cast))
	assert.Equal(t, field.TypeString, cast.Type())
	assert.Error(t, expr.Err(expr.To(m.Column("data"), field.Int32)))
}

func TestWalk(t *testing.T) {
	m := productModel(t)
	e := expr.And(
		expr.GT(m.Column("price"), expr.Value(int32(10))),
		expr.Or(expr.IsNull(m.Column("weight")), expr.LT(m.Column("price"), m.Column("weight"))),
	)
	cols := expr.Columns(e)
	require.Len(t, cols, 2)
	assert.Same(t, m.Column("price"), cols[0])
	assert.Same(t, m.Column("weight"), cols[1])

	nodes := 0
	expr.Inspect(e, func(expr.Expr) bool { nodes++; return true })
	assert.Equal(t, 10, nodes)

	// Replacing price by id keeps the tree well typed.
	out, err := expr.Transform(e, func(n expr.Expr) (expr.Expr, error) {
		if n == expr.Expr(m.Column("price")) {
			return m.Column("id"), nil
		}
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []*expr.Column{m.Column("id"), m.Column("weight")}, expr.Columns(out))
	assert.Equal(t, []*expr.Column{m.Column("price"), m.Column("weight")}, expr.Columns(e), "source tree is unchanged")

	_, err = expr.Transform(e, func(n expr.Expr) (expr.Expr, error) {
		if n == expr.Expr(m.Column("price")) {
			return m.Column("name"), nil
		}
		return n, nil
	})
	assert.ErrorIs(t, err, rowset.ErrTypeMismatch)

	stop := errors.New("stop")
	_, err = expr.Transform(e, func(expr.Expr) (expr.Expr, error) { return nil, stop })
	assert.ErrorIs(t, err, stop)
}

func TestField(t *testing.T) {
	m := productModel(t)
	status := expr.FieldOf[string](m.Column("status"))
	e := status.In("draft", "live")
	require.NoError(t, expr.Err(e))
	assert.Equal(t, field.TypeBool, e.Type())
	assert.Error(t, expr.Err(status.EQ("archived")))
	assert.Error(t, expr.Err(status.In()))

	price := expr.FieldOf[string](m.Column("price"))
	require.NoError(t, expr.Err(expr.And(price.GTE("1.5"), price.LT("9.99"), price.NotNull())))

	id := expr.FieldOf[int](m.Column("id"))
	pred, p := id.Param("id", 3)
	require.NoError(t, expr.Err(pred))
	assert.Equal(t, field.TypeInt32, p.Type())
	assert.Equal(t, field.TypeBool, id.NotIn(1, 2).Type())
}

func TestBinaryTypeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	types := []field.Type{
		field.TypeBool, field.TypeUint8, field.TypeChar, field.TypeInt16, field.TypeInt32,
		field.TypeInt64, field.TypeFloat32, field.TypeFloat64, field.TypeDecimal,
		field.TypeString, field.TypeBytes, field.TypeUUID, field.TypeTime, field.TypeDate,
	}
	col := func(t field.Type) *expr.Column {
		return &expr.Column{Name: t.String(), Info: field.TypeInfo{Type: t}}
	}
	pick := gen.IntRange(0, len(types)-1)

	properties.Property("arithmetic is defined on numeric operands only", prop.ForAll(
		func(i, j int) bool {
			l, r := types[i], types[j]
			e := expr.Add(col(l), col(r))
			if l.Numeric() && r.Numeric() {
				return expr.Err(e) == nil && e.Type() == field.Wider(l, r)
			}
			return errors.Is(expr.Err(e), rowset.ErrTypeMismatch)
		},
		pick, pick,
	))
	properties.Property("comparison requires a shared category", prop.ForAll(
		func(i, j int) bool {
			l, r := types[i], types[j]
			e := expr.EQ(col(l), col(r))
			if l.Category() == r.Category() {
				return expr.Err(e) == nil && e.Type() == field.TypeBool
			}
			return errors.Is(expr.Err(e), rowset.ErrTypeMismatch)
		},
		pick, pick,
	))
	properties.Property("untyped null is accepted by every comparison", prop.ForAll(
		func(i int) bool {
			return expr.Err(expr.NEQ(expr.Null(field.TypeInvalid), col(types[i]))) == nil
		},
		pick,
	))

	properties.TestingRun(t)
}
