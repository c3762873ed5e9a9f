// Package schema describes the shape of rows: models, their columns,
// keys, constraints and parent/child relationships.
//
// Models are defined through a Builder, which carries the construction
// context explicitly. Child models are defined inside a callback that
// receives their own builder:
//
//	order, err := schema.Define("Order", schema.TableName("orders")).
//		Column("id", field.Int64, schema.Identity()).
//		Column("placed_at", field.Time, schema.DefaultSQL("CURRENT_TIMESTAMP")).
//		PrimaryKey("id").
//		Child("Lines", "OrderLine", func(b *schema.Builder) {
//			b.Column("id", field.Int64, schema.Identity()).
//				Column("order_id", field.Int64).
//				Column("qty", field.Int32).
//				PrimaryKey("id").
//				Check("ck_qty", func(b *schema.Builder) expr.Expr {
//					return expr.GT(b.C("qty"), expr.Value(int32(0)))
//				})
//		}, schema.On("id", "order_id")).
//		Build()
//
// # Sealing
//
// A model accepts registrations until it is sealed. Sealing is recursive
// and happens at the latest when the first row of the model is created.
// Registrations on a sealed model fail with a *rowset.SchemaError and
// leave the model unchanged.
//
// # System columns
//
// WithRowID adds a sequential row identifier column (sys_row_id). Child
// models of such a model receive a parent row identifier column
// (sys_parent_row_id). Both are carried through aggregation.
package schema
