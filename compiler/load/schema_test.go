package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

func TestFile(t *testing.T) {
	models, err := File("testdata/orders.yaml")
	require.NoError(t, err)
	require.Len(t, models, 2)

	customer, order := models[0], models[1]
	assert.Equal(t, "customers", customer.TableName())
	assert.Equal(t, "orders", order.TableName())
	assert.Equal(t, "Sales orders.", order.Comment())

	code := customer.Column("code")
	require.NotNil(t, code)
	assert.False(t, code.Info.Unicode)
	assert.Equal(t, 12, code.Info.Size)
	require.Len(t, customer.Uniques(), 1)

	require.NotNil(t, order.Identity())
	assert.Equal(t, "id", order.Identity().Name)
	require.NotNil(t, order.RowID())

	status := order.Column("status")
	require.NotNil(t, status.Info.Enum)
	assert.Equal(t, []string{"open", "shipped", "closed"}, status.Info.Enum.Names)
	assert.Equal(t, "open", status.Default)

	total := order.Column("total")
	assert.Equal(t, field.TypeDecimal, total.Info.Type)
	assert.EqualValues(t, 18, total.Info.Precision)
	assert.EqualValues(t, 2, total.Info.Scale)
	assert.True(t, total.Info.Nullable)

	require.Len(t, order.Indexes(), 1)
	assert.True(t, order.Indexes()[0].Parts[0].Desc)

	require.Len(t, order.ForeignKeys(), 1)
	fk := order.ForeignKeys()[0]
	assert.Same(t, customer, fk.RefModel)
	assert.Equal(t, schema.Cascade, fk.OnDelete)

	require.Len(t, order.Children(), 1)
	lines := order.Children()[0]
	assert.Equal(t, "lines", lines.Name)
	assert.Equal(t, "order_lines", lines.Model.TableName())
	assert.NotNil(t, lines.Model.ParentRowID())
	assert.Same(t, lines.Model.Column("order_id"), lines.Relationship.Mapping.TargetOf(order.Column("id")))
	assert.EqualValues(t, 1, lines.Model.Column("quantity").Default)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown type",
			doc: `
models:
  - name: Item
    columns:
      - name: id
        type: bigint
`,
		},
		{
			name: "unknown referenced model",
			doc: `
models:
  - name: Item
    columns:
      - name: owner_id
        type: int64
    foreign_keys:
      - name: fk_owner
        columns: [owner_id]
        ref: Owner
        ref_columns: [id]
`,
		},
		{
			name: "unknown key column",
			doc: `
models:
  - name: Item
    columns:
      - name: id
        type: int64
    primary_key: [code]
`,
		},
		{
			name: "unknown mixin",
			doc: `
models:
  - name: Item
    mixins: [audit]
    columns:
      - name: id
        type: int64
`,
		},
		{
			name: "duplicate model",
			doc: `
models:
  - name: Item
    columns:
      - name: id
        type: int64
  - name: Item
    table: other_items
    columns:
      - name: id
        type: int64
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, rowset.ErrSchemaViolation)
		})
	}
}

func TestParseMixins(t *testing.T) {
	models, err := Parse([]byte(`
models:
  - name: Ticket
    mixins: [time, soft_delete]
    columns:
      - name: id
        type: int64
    primary_key: [id]
`))
	require.NoError(t, err)
	require.Len(t, models, 1)
	m := models[0]
	require.NotNil(t, m.Column("created_at"))
	assert.Equal(t, "CURRENT_TIMESTAMP", m.Column("updated_at").DefaultSQL)
	assert.True(t, m.Column("deleted_at").Info.Nullable)
	require.Len(t, m.Indexes(), 1)
	assert.Equal(t, "ix_tickets_deleted_at", m.Indexes()[0].Name)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("models: [name"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, rowset.ErrSchemaViolation)
}

func TestActions(t *testing.T) {
	assert.Equal(t, schema.SetNull, action("set_null"))
	assert.Equal(t, schema.NoAction, action("no action"))
	assert.Equal(t, schema.CascadeAction(""), action(""))
}
