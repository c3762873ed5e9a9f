package mixin

import (
	"fmt"
	"strings"

	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// Column names registered by the mixins of this package.
const (
	CreatedAt = "created_at"
	UpdatedAt = "updated_at"
	DeletedAt = "deleted_at"
	TenantCol = "tenant_id"
)

// Func adapts a function to the schema.Mixin interface.
type Func func(*schema.Builder)

// Apply implements the schema.Mixin interface.
func (f Func) Apply(b *schema.Builder) { f(b) }

// CreateTime adds the created_at column, filled by the database.
type CreateTime struct{}

// Apply implements the schema.Mixin interface.
func (CreateTime) Apply(b *schema.Builder) {
	b.Column(CreatedAt, field.Time, schema.DefaultSQL("CURRENT_TIMESTAMP"), schema.Comment("creation time"))
}

// UpdateTime adds the updated_at column, filled by the database on insert.
type UpdateTime struct{}

// Apply implements the schema.Mixin interface.
func (UpdateTime) Apply(b *schema.Builder) {
	b.Column(UpdatedAt, field.Time, schema.DefaultSQL("CURRENT_TIMESTAMP"), schema.Comment("last update time"))
}

// Time composes CreateTime and UpdateTime.
type Time struct{}

// Apply implements the schema.Mixin interface.
func (Time) Apply(b *schema.Builder) {
	b.Mixin(CreateTime{}, UpdateTime{})
}

// SoftDelete adds the nullable deleted_at column and an index on it.
type SoftDelete struct{}

// Apply implements the schema.Mixin interface.
func (SoftDelete) Apply(b *schema.Builder) {
	b.Column(DeletedAt, field.Time.Null(), schema.Comment("deletion time"))
	b.Index(indexName(b, DeletedAt), false, []string{DeletedAt})
}

// NotDeleted returns the predicate selecting rows of m that are not soft
// deleted. It fails when the SoftDelete mixin was not applied to m.
func NotDeleted(m *schema.Model) expr.Expr {
	c, err := m.Lookup(DeletedAt)
	if err != nil {
		return &expr.Invalid{Err: err}
	}
	return expr.IsNull(c)
}

// TenantID adds an indexed tenant_id column of the given size. A zero
// size defaults to 64 characters.
type TenantID struct {
	Size int
}

// Apply implements the schema.Mixin interface.
func (t TenantID) Apply(b *schema.Builder) {
	size := t.Size
	if size == 0 {
		size = 64
	}
	b.Column(TenantCol, field.String(size), schema.Comment("owning tenant"))
	b.Index(indexName(b, TenantCol), false, []string{TenantCol})
}

func indexName(b *schema.Builder, column string) string {
	return "ix_" + b.Model().TableName() + "_" + column
}

// Named returns the mixin registered under name. Names are matched
// case-insensitively.
func Named(name string) (schema.Mixin, error) {
	switch strings.ToLower(name) {
	case "time":
		return Time{}, nil
	case "create_time":
		return CreateTime{}, nil
	case "update_time":
		return UpdateTime{}, nil
	case "soft_delete":
		return SoftDelete{}, nil
	case "tenant":
		return TenantID{}, nil
	}
	return nil, fmt.Errorf("mixin: unknown mixin %q", name)
}
