package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset/dialect"
	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

func testModels(t *testing.T) (customer, order *schema.Model) {
	t.Helper()
	customer, err := schema.Define("Customer", schema.TableName("customers")).
		Column("id", field.Int64, schema.Identity()).
		Column("name", field.String(100)).
		PrimaryKey("id").
		Build()
	require.NoError(t, err)
	order, err = schema.Define("Order", schema.TableName("orders"), schema.WithRowID()).
		Column("id", field.Int64, schema.Identity()).
		Column("customer_id", field.Int64).
		Column("placed", field.Date).
		Column("status", field.NamedEnum(field.TypeUint8, "open", "shipped", "closed"), schema.Default("open")).
		PrimaryKey("id").
		ForeignKey("fk_orders_customer", []string{"customer_id"}, customer, []string{"id"}, schema.OnDelete(schema.Cascade)).
		Index("ix_orders_placed", false, []string{"-placed"}).
		Child("lines", "OrderLine", func(b *schema.Builder) {
			b.Options(schema.TableName("order_lines")).
				Column("id", field.Int64, schema.Identity()).
				Column("order_id", field.Int64).
				Column("quantity", field.Int32, schema.Default(1)).
				PrimaryKey("id")
		}, schema.On("id", "order_id")).
		Build()
	require.NoError(t, err)
	return customer, order
}

func TestCreationOrder(t *testing.T) {
	customer, order := testModels(t)
	got := creationOrder([]*schema.Model{order, customer})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Customer", "Order", "OrderLine"}, []string{got[0].Name(), got[1].Name(), got[2].Name()})
}

func TestDDL(t *testing.T) {
	customer, order := testModels(t)
	d, err := sql.For(dialect.SQLite)
	require.NoError(t, err)
	buf, err := DDL(context.Background(), d, DefaultHeader, order, customer)
	require.NoError(t, err)
	out := string(buf)
	assert.True(t, strings.HasPrefix(out, "-- "+DefaultHeader+"\n-- Dialect: Sqlite\n"))
	customers := strings.Index(out, `CREATE TABLE "customers"`)
	orders := strings.Index(out, `CREATE TABLE "orders"`)
	lines := strings.Index(out, `CREATE TABLE "order_lines"`)
	require.True(t, customers >= 0 && orders >= 0 && lines >= 0, out)
	assert.Less(t, customers, orders)
	assert.Less(t, orders, lines)
	assert.Contains(t, out, `CREATE INDEX "ix_orders_placed" ON "orders" ("placed" DESC);`)
	assert.Contains(t, out, `REFERENCES "customers" ("id") ON DELETE CASCADE`)
}

func TestModelFile(t *testing.T) {
	_, order := testModels(t)
	f, err := ModelFile("store", DefaultHeader, order)
	require.NoError(t, err)
	src := fmt.Sprintf("%#v", f)
	for _, want := range []string{
		"// " + DefaultHeader,
		"package store",
		"func NewOrder() (*schema.Model, error)",
		`b := schema.Define("Order", schema.TableName("orders"), schema.WithRowID())`,
		`b.Column("status", field.NamedEnum(field.TypeUint8, "open", "shipped", "closed"), schema.Default("open"))`,
		`b.Index("ix_orders_placed", false, []string{"-placed"})`,
		`b.Child("lines", "OrderLine", func(b *schema.Builder) {`,
		`schema.On("id", "order_id")`,
		`var OrderStatuses = []string{"open", "shipped", "closed"}`,
		"OrderLineOrderID",
		"return b.Build()",
	} {
		assert.Contains(t, src, want)
	}
	assert.NotContains(t, src, schema.RowIDColumn)
	assert.NotContains(t, src, schema.ParentRowIDColumn)
}

func TestModelFileErrors(t *testing.T) {
	_, order := testModels(t)
	_, err := ModelFile("store", "", order.Children()[0].Model)
	assert.ErrorIs(t, err, ErrGenerate)

	checked, err := schema.Define("Item").
		Column("qty", field.Int32).
		Check("ck_qty", func(b *schema.Builder) expr.Expr { return expr.GT(b.C("qty"), expr.Value(0)) }).
		Build()
	require.NoError(t, err)
	_, err = ModelFile("store", "", checked)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerate)
}

func TestModelsFile(t *testing.T) {
	customer, order := testModels(t)
	f, err := ModelsFile("store", "", []*schema.Model{customer, order})
	require.NoError(t, err)
	src := fmt.Sprintf("%#v", f)
	assert.Contains(t, src, "mCustomer, err := NewCustomer()")
	assert.Contains(t, src, "mOrder, err := NewOrder()")
	assert.Contains(t, src, "mOrder.AddForeignKey(&schema.ForeignKey{")
	assert.Regexp(t, `OnDelete:\s+schema\.CascadeAction\("CASCADE"\)`, src)
	assert.Contains(t, src, "return []*schema.Model{mCustomer, mOrder}, nil")

	_, err = ModelsFile("store", "", []*schema.Model{order})
	assert.ErrorIs(t, err, ErrGenerate)
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		info field.TypeInfo
		v    any
		want string
	}{
		{field.Int32, int32(7), "int32(7)"},
		{field.String(10), "x", `"x"`},
		{field.Char(), 'y', `"y"`},
		{field.NamedEnum(field.TypeUint8, "a", "b"), uint8(1), `"b"`},
		{field.Bool, true, "true"},
	}
	for _, tt := range tests {
		code, err := literal(tt.info, tt.v)
		require.NoError(t, err)
		assert.Equal(t, tt.want, fmt.Sprintf("%#v", code))
	}
	_, err := literal(field.Int64, struct{}{})
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	customer, order := testModels(t)
	dir := t.TempDir()
	cfg, err := NewConfig(WithTarget(dir), WithPackage("store"), WithDialects(dialect.SQLite, dialect.Postgres), WithWorkers(2))
	require.NoError(t, err)
	g, err := NewGenerator(cfg, nil)
	require.NoError(t, err)
	m, err := g.Generate(context.Background(), customer, order)
	require.NoError(t, err)
	assert.Equal(t, 5, m.FilesGenerated)
	assert.Positive(t, m.TotalBytes)
	for _, name := range []string{"schema_sqlite.sql", "schema_postgres.sql", "customer.go", "order.go", "models.go"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestGenerateSkipGo(t *testing.T) {
	customer, _ := testModels(t)
	dir := t.TempDir()
	g, err := NewGenerator(&Config{Target: dir, Dialects: []string{dialect.MySQL}, SkipGo: true}, nil)
	require.NoError(t, err)
	files, err := g.Files(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "schema_mysql.sql", files[0].Name)
}
