// Package schema plans the creation of model tables on a database with the
// atlas schema engine, and validates planned changes before they are
// applied.
package schema
