// Package sql builds statements over models and compiles them into the SQL
// of a database dialect.
//
// This package is the boundary between the in-memory model and a database.
// Statements are trees referencing expr nodes; they are compiled for one of
// the registered dialects (SQL Server, MySQL, PostgreSQL, SQLite) into SQL
// text and an ordered list of parameters.
//
// # Statements
//
//   - Selector: SELECT with joins, filtering, grouping, ordering and paging
//   - InsertStmt: INSERT from values or a query, with identity capture
//   - UpdateStmt and DeleteStmt
//   - CreateTableStmt, CreateIndexStmt and DropTableStmt
//   - Batch: several statements sharing one parameter list
//
// # Compilation
//
//	cat := schema.Define("Category").
//	    Column("id", field.Int32).
//	    Column("parent_id", field.Int32.Null()).
//	    Column("name", field.String(50))
//	m, _ := cat.Build()
//
//	sel := sql.Select().From(sql.Table(m)).Where(expr.IsNull(m.Column("parent_id")))
//	c, err := sql.Compile(sel, sql.SQLServer)
//	// SELECT [Category].[id], [Category].[parent_id], [Category].[name]
//	// FROM [Category] WHERE ([Category].[parent_id] IS NULL)
//
// Compilation is deterministic. Parameters are numbered in the order they
// first appear and a parameter used twice keeps its number. Column
// references are qualified by an AliasPolicy, SourceAliases by default.
//
// # Extension
//
// Functions are identified by their *expr.Function token. Dialects render
// them through a function table that can be extended with
// Dialect.RegisterFunction without changing the compiler.
//
// # Execution
//
// Driver adapts database/sql. Session compiles through a StatementCache and
// executes on a driver. StatsDriver and TraceDriver wrap any driver to
// collect statistics and log statements with their parameter declarations.
package sql
