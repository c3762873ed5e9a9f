package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
	"github.com/syssam/rowset/schema/mixin"
)

func define(t *testing.T, mixins ...schema.Mixin) *schema.Model {
	t.Helper()
	m, err := schema.Define("Order", schema.TableName("orders")).
		Column("id", field.Int64, schema.Identity()).
		PrimaryKey("id").
		Mixin(mixins...).
		Build()
	require.NoError(t, err)
	return m
}

func TestTime(t *testing.T) {
	m := define(t, mixin.Time{})
	names := make([]string, 0, 3)
	for _, c := range m.Columns() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", mixin.CreatedAt, mixin.UpdatedAt}, names)
	created := m.Column(mixin.CreatedAt)
	assert.Equal(t, field.TypeTime, created.Type())
	assert.False(t, created.Info.Nullable)
	assert.Equal(t, "CURRENT_TIMESTAMP", created.DefaultSQL)
}

func TestSoftDelete(t *testing.T) {
	m := define(t, mixin.SoftDelete{})
	deleted := m.Column(mixin.DeletedAt)
	require.NotNil(t, deleted)
	assert.True(t, deleted.Info.Nullable)
	require.Len(t, m.Indexes(), 1)
	assert.Equal(t, "ix_orders_deleted_at", m.Indexes()[0].Name)

	pred := mixin.NotDeleted(m)
	require.NoError(t, expr.Err(pred))
	assert.Equal(t, []*expr.Column{deleted}, expr.Columns(pred))

	plain := define(t)
	assert.ErrorIs(t, expr.Err(mixin.NotDeleted(plain)), rowset.ErrSchemaViolation)
}

func TestTenantID(t *testing.T) {
	m := define(t, mixin.TenantID{Size: 16})
	assert.Equal(t, 16, m.Column(mixin.TenantCol).Info.Size)
	assert.Equal(t, 64, define(t, mixin.TenantID{}).Column(mixin.TenantCol).Info.Size)
}

func TestConflict(t *testing.T) {
	_, err := schema.Define("Order").
		Column("id", field.Int64).
		Mixin(mixin.Time{}, mixin.CreateTime{}).
		Build()
	assert.ErrorIs(t, err, rowset.ErrSchemaViolation)
}

func TestFunc(t *testing.T) {
	audit := mixin.Func(func(b *schema.Builder) {
		b.Column("created_by", field.String(50).Null())
	})
	m := define(t, audit, mixin.TenantID{})
	assert.NotNil(t, m.Column("created_by"))
	assert.NotNil(t, m.Column(mixin.TenantCol))
}

func TestNamed(t *testing.T) {
	for name, want := range map[string]schema.Mixin{
		"time":        mixin.Time{},
		"Create_Time": mixin.CreateTime{},
		"update_time": mixin.UpdateTime{},
		"soft_delete": mixin.SoftDelete{},
		"tenant":      mixin.TenantID{},
	} {
		got, err := mixin.Named(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := mixin.Named("audit")
	assert.Error(t, err)
}
