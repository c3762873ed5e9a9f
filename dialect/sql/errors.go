package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ConstraintKind classifies a constraint violation reported by a database.
type ConstraintKind uint8

// Constraint kinds.
const (
	NoConstraint ConstraintKind = iota
	UniqueConstraint
	ForeignKeyConstraint
	CheckConstraint
	NotNullConstraint
)

func (k ConstraintKind) String() string {
	switch k {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign key"
	case CheckConstraint:
		return "check"
	case NotNullConstraint:
		return "not null"
	}
	return "none"
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return Constraint(err) != NoConstraint
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool { return Constraint(err) == UniqueConstraint }

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool { return Constraint(err) == ForeignKeyConstraint }

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool { return Constraint(err) == CheckConstraint }

// errorNumberer is an interface for database errors that provide numeric error codes.
// Implemented by: mssql.Error.
type errorNumberer interface {
	SQLErrorNumber() int32
}

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by: pgx, and some MySQL drivers.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlNotNull                = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQL Server error numbers for constraint violations.
const (
	mssqlNotNull          = 515
	mssqlConstraint       = 547 // FOREIGN KEY and CHECK
	mssqlUniqueIndex      = 2601
	mssqlUniqueConstraint = 2627
)

// Constraint classifies the constraint violation err reports, if any.
func Constraint(err error) ConstraintKind {
	if err == nil {
		return NoConstraint
	}
	if e, ok := asError[*pq.Error](err); ok {
		return fromSQLState(string(e.Code))
	}
	if e, ok := asError[sqlStateError](err); ok {
		if k := fromSQLState(e.SQLState()); k != NoConstraint {
			return k
		}
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		switch e.Number {
		case mysqlDuplicateEntry:
			return UniqueConstraint
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ForeignKeyConstraint
		case mysqlCheckConstraintViolate:
			return CheckConstraint
		case mysqlNotNull:
			return NotNullConstraint
		}
		return NoConstraint
	}
	if e, ok := asError[errorNumberer](err); ok {
		switch e.SQLErrorNumber() {
		case mssqlUniqueIndex, mssqlUniqueConstraint:
			return UniqueConstraint
		case mssqlNotNull:
			return NotNullConstraint
		case mssqlConstraint:
			if strings.Contains(err.Error(), "CHECK constraint") {
				return CheckConstraint
			}
			return ForeignKeyConstraint
		}
	}
	// Fallback to string matching for drivers that don't implement interfaces
	msg := err.Error()
	switch {
	case containsAny(msg, "Error 1062", "violates unique constraint", "UNIQUE constraint failed"):
		return UniqueConstraint
	case containsAny(msg, "Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"):
		return ForeignKeyConstraint
	case containsAny(msg, "Error 3819", "violates check constraint", "CHECK constraint failed"):
		return CheckConstraint
	case containsAny(msg, "Error 1048", "violates not-null constraint", "NOT NULL constraint failed"):
		return NotNullConstraint
	}
	return NoConstraint
}

func fromSQLState(code string) ConstraintKind {
	switch code {
	case pgUniqueViolation:
		return UniqueConstraint
	case pgForeignKeyViolation:
		return ForeignKeyConstraint
	case pgCheckViolation:
		return CheckConstraint
	case pgNotNullViolation:
		return NotNullConstraint
	}
	return NoConstraint
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
