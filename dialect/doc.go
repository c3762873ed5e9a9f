// Package dialect defines the dialect names and the driver contracts used
// to execute compiled statements.
//
// # Dialect Constants
//
//	dialect.SQLServer = "sqlserver"
//	dialect.MySQL     = "mysql"
//	dialect.Postgres  = "postgres"
//	dialect.SQLite    = "sqlite"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Statement compilation lives in dialect/sql and does not need a driver.
package dialect
