// Package bulk loads data sets into a database in one round trip per
// model.
//
// The rows of a store are encoded as a JSON or XML payload bound as a
// single parameter. The database parses the payload with a table-valued
// construct and inserts the rows in the order of their ordinals:
//
//	sess, _ := sql.NewSession(drv)
//	l := bulk.NewLoader(sess, bulk.WithFormat(sql.PayloadXML))
//	n, err := l.Insert(ctx, ds.Root(), order, bulk.PropagateIdentity())
//
// When identities are propagated, the values generated by the database are
// correlated with the rows by their position in the payload, written into
// the identity column, and copied into the foreign keys of the children
// that still hold the provisional value.
package bulk
