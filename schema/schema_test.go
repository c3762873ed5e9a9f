package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

func categoryModel(t *testing.T) *schema.Model {
	t.Helper()
	m, err := schema.Define("Category", schema.TableName("categories"), schema.InSchema("shop"), schema.WithRowID()).
		Column("id", field.Int64, schema.Identity()).
		Column("name", field.String(100), schema.Comment("display name")).
		Column("created", field.Time, schema.DefaultSQL("CURRENT_TIMESTAMP")).
		PrimaryKey("id").
		Unique("uq_categories_name", []string{"name"}).
		Index("ix_categories_created", false, []string{"-created"}).
		Child("products", "Product", func(b *schema.Builder) {
			b.Options(schema.TableName("products")).
				Column("id", field.Int64, schema.Identity()).
				Column("category_id", field.Int64).
				Column("price", field.Decimal(10, 2), schema.Default("0")).
				Column("qty", field.Int32).
				PrimaryKey("id").
				Check("ck_products_qty", func(b *schema.Builder) expr.Expr {
					return expr.GTE(b.C("qty"), expr.Value(int32(0)))
				}).
				Child("tags", "Tag", func(b *schema.Builder) {
					b.Column("product_id", field.Int64).
						Column("tag", field.String(20)).
						PrimaryKey("product_id", "tag")
				}, schema.On("id", "product_id"))
		}, schema.On("id", "category_id")).
		Build()
	require.NoError(t, err)
	return m
}

func TestDefine(t *testing.T) {
	m := categoryModel(t)
	assert.Equal(t, "Category", m.Name())
	assert.Equal(t, "categories", m.TableName())
	assert.Equal(t, "shop", m.Schema())
	assert.Equal(t, "pk_categories", m.PrimaryKeyName())
	assert.Same(t, m.Column("id"), m.Identity())
	require.NotNil(t, m.RowID())
	assert.Equal(t, expr.SystemRowID, m.RowID().System)
	assert.Equal(t, "display name", m.Column("name").Comment)

	require.Len(t, m.Children(), 1)
	products := m.Children()[0].Model
	assert.Same(t, m, m.Children()[0].Parent)
	assert.Same(t, m, products.Root())
	require.NotNil(t, products.ParentRowID(), "children of row id models track their parent row")
	assert.Equal(t, 1, products.Depth())
	tags := products.Children()[0].Model
	assert.Equal(t, 2, tags.Depth())
	assert.Same(t, m, tags.Root())
	assert.Nil(t, tags.ParentRowID(), "products has no row id column")

	names := make([]string, 0, 3)
	for _, hm := range m.Hierarchy() {
		names = append(names, hm.Name())
	}
	assert.Equal(t, []string{"Category", "Product", "Tag"}, names)

	assert.Equal(t, "0", products.Column("price").Default.(interface{ String() string }).String())
	require.Len(t, m.Indexes(), 1)
	assert.True(t, m.Indexes()[0].Parts[0].Desc)
	require.Len(t, products.Checks(), 1)

	rel := m.Children()[0].Relationship.Mapping
	assert.Equal(t, []*expr.Column{m.Column("id")}, rel.Sources())
	assert.Equal(t, []*expr.Column{products.Column("category_id")}, rel.Targets())
	assert.Same(t, products.Column("category_id"), rel.TargetOf(m.Column("id")))
	assert.Nil(t, rel.TargetOf(m.Column("name")))
}

func TestDefineErrors(t *testing.T) {
	tests := map[string]func() *schema.Builder{
		"empty model": func() *schema.Builder { return schema.Define("") },
		"duplicate column": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32).Column("x", field.Int64)
		},
		"invalid type": func() *schema.Builder {
			return schema.Define("A").Column("x", field.TypeInfo{})
		},
		"string identity": func() *schema.Builder {
			return schema.Define("A").Column("x", field.String(10), schema.Identity())
		},
		"enum identity": func() *schema.Builder {
			return schema.Define("A").Column("x", field.NamedEnum(field.TypeInt32, "a"), schema.Identity())
		},
		"second identity": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32, schema.Identity()).Column("y", field.Int64, schema.Identity())
		},
		"bad default": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32, schema.Default("many"))
		},
		"nullable key": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32.Null()).PrimaryKey("x")
		},
		"unknown key": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32).PrimaryKey("y")
		},
		"duplicate constraint": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32).
				Unique("k", []string{"x"}).
				Index("k", false, []string{"x"})
		},
		"unnamed constraint": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32).Unique("", []string{"x"})
		},
		"check not boolean": func() *schema.Builder {
			b := schema.Define("A").Column("x", field.Int32)
			return b.Check("ck", func(b *schema.Builder) expr.Expr { return b.C("x") })
		},
		"check unknown column": func() *schema.Builder {
			b := schema.Define("A").Column("x", field.Int32)
			return b.Check("ck", func(b *schema.Builder) expr.Expr { return expr.IsNull(b.C("y")) })
		},
		"relationship type": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32).
				Child("bs", "B", func(b *schema.Builder) { b.Column("a", field.String(5)) }, schema.On("x", "a"))
		},
		"empty relationship": func() *schema.Builder {
			return schema.Define("A").Column("x", field.Int32).
				Child("bs", "B", func(b *schema.Builder) { b.Column("a", field.Int32) })
		},
		"duplicate child": func() *schema.Builder {
			def := func(b *schema.Builder) { b.Column("a", field.Int32) }
			return schema.Define("A").Column("x", field.Int32).
				Child("bs", "B", def, schema.On("x", "a")).
				Child("bs", "C", def, schema.On("x", "a"))
		},
	}
	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := build().Build()
			assert.Nil(t, m)
			assert.ErrorIs(t, err, rowset.ErrSchemaViolation)
		})
	}
}

func TestForeignKey(t *testing.T) {
	users, err := schema.Define("User").Column("id", field.Int64).PrimaryKey("id").Build()
	require.NoError(t, err)

	m, err := schema.Define("Post").
		Column("id", field.Int64).
		Column("author", field.Int64.Null()).
		ForeignKey("fk_posts_author", []string{"author"}, users, []string{"id"}, schema.OnDelete(schema.SetNull), schema.Described("author")).
		Build()
	require.NoError(t, err)
	require.Len(t, m.ForeignKeys(), 1)
	assert.Equal(t, schema.SetNull, m.ForeignKeys()[0].OnDelete)
	assert.Equal(t, "author", m.ForeignKeys()[0].Comment)

	_, err = schema.Define("Post").
		Column("author", field.Int64).
		ForeignKey("fk", []string{"author"}, users, []string{"id"}, schema.OnDelete(schema.SetNull)).
		Build()
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation, "SET NULL on a required column")

	_, err = schema.Define("Post").
		Column("author", field.String(10)).
		ForeignKey("fk", []string{"author"}, users, []string{"id"}).
		Build()
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation)

	_, err = schema.Define("Post").
		Column("author", field.Int64).
		ForeignKey("fk", []string{"author"}, nil, []string{"id"}).
		Build()
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation)
}

func TestSeal(t *testing.T) {
	m := categoryModel(t)
	products := m.Children()[0].Model
	m.Seal()
	assert.True(t, m.Sealed())
	assert.True(t, products.Sealed())
	assert.True(t, products.Children()[0].Model.Sealed())

	_, err := m.AddColumn("extra", field.Int32)
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation)
	err = products.AddIndex(&schema.Index{Name: "ix", Parts: []schema.KeyPart{schema.Asc(products.Column("qty"))}})
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation)

	other, err := schema.New("Other")
	require.NoError(t, err)
	_, err = other.AddChild("products", products, schema.Relationship{})
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation)
}

func TestAddChild(t *testing.T) {
	a, err := schema.New("A")
	require.NoError(t, err)
	ax, err := a.AddColumn("x", field.Int32)
	require.NoError(t, err)
	b, err := schema.New("B")
	require.NoError(t, err)
	bx, err := b.AddColumn("ax", field.Int64)
	require.NoError(t, err)

	_, err = a.AddChild("bs", b, schema.Keys([]*expr.Column{ax}, nil))
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation, "mismatched key lists")

	c, err := a.AddChild("bs", b, schema.Keys([]*expr.Column{ax}, []*expr.Column{bx}))
	require.NoError(t, err)
	assert.Same(t, a, c.Parent)
	assert.Same(t, c, b.Parent())

	_, err = b.AddChild("as", a, schema.Keys([]*expr.Column{bx}, []*expr.Column{ax}))
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation, "cycle")
	_, err = a.AddChild("again", b, schema.Keys([]*expr.Column{ax}, []*expr.Column{bx}))
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation, "already bound")
}

func TestColumnMapping(t *testing.T) {
	m, err := schema.Define("Line").
		Column("order_id", field.Int64).
		Column("kind", field.NamedEnum(field.TypeUint8, "sale", "refund")).
		Build()
	require.NoError(t, err)
	src, err := schema.Define("Order").Column("id", field.Int64).Build()
	require.NoError(t, err)

	mapping := schema.ColumnMapping{
		schema.Map(src.Column("id"), m.Column("order_id")),
		schema.MapConst("refund", m.Column("kind")),
	}
	assert.Equal(t, []*expr.Column{src.Column("id")}, mapping.Sources())
	vs := mapping.Resolve(func(c *expr.Column) any {
		assert.Same(t, src.Column("id"), c)
		return int64(42)
	})
	assert.Equal(t, []any{int64(42), "refund"}, vs)
}

func TestValidate(t *testing.T) {
	m := categoryModel(t)
	res := schema.Validate(m)
	assert.False(t, res.HasErrors(), res.String())
	assert.False(t, res.HasWarnings(), res.String())
	assert.Equal(t, "No issues found", res.String())

	loose, err := schema.Define("Loose").
		Column("id", field.Int64, schema.Identity()).
		Column("code", field.Int32).
		Child("items", "Item", func(b *schema.Builder) {
			b.Column("loose_code", field.Int64)
		}, schema.On("code", "loose_code")).
		Build()
	require.NoError(t, err)
	res = schema.Validate(loose)
	assert.False(t, res.HasErrors())
	require.True(t, res.HasWarnings())
	assert.Contains(t, res.String(), "Loose: model has no primary key")
	assert.Contains(t, res.String(), "identity column is not part of the primary key")
	assert.Contains(t, res.String(), "relationship converts int32 to int64")

	dup, err := schema.Define("Other", schema.TableName("categories"), schema.InSchema("shop")).
		Column("id", field.Int64).PrimaryKey("id").Build()
	require.NoError(t, err)
	res = schema.Validate(m, dup)
	require.True(t, res.HasErrors())
	assert.Contains(t, res.Errors[0].Error(), `table "categories" is also used by model Category`)
}
