// Package mixin provides reusable column sets for rowset models.
//
// A mixin is anything implementing schema.Mixin. Mixins are applied in
// order while a model is defined:
//
//	orders, err := schema.Define("Order").
//		Column("id", field.Int64, schema.Identity()).
//		PrimaryKey("id").
//		Mixin(mixin.Time{}, mixin.SoftDelete{}).
//		Build()
//
// Ad hoc mixins are declared with Func:
//
//	audit := mixin.Func(func(b *schema.Builder) {
//		b.Column("created_by", field.String(50).Null())
//	})
//
// The mixins of this package are also available by name to YAML model
// definitions; see Named.
package mixin
