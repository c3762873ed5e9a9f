package sql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/rowset/dialect"
)

// Session executes statements over a driver, compiling them for the
// driver's dialect. Compilations are cached per session.
type Session struct {
	conn    dialect.ExecQuerier
	drv     dialect.Driver
	dialect *Dialect
	cache   *StatementCache
	logger  *slog.Logger
	opts    []CompileOption
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger of the session.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache sets the statement cache of the session.
func WithCache(c *StatementCache) SessionOption {
	return func(s *Session) {
		s.cache = c
	}
}

// WithDialect overrides the dialect resolved from the driver name.
func WithDialect(d *Dialect) SessionOption {
	return func(s *Session) {
		s.dialect = d
	}
}

// WithCompileOptions sets the options statements are compiled with.
func WithCompileOptions(opts ...CompileOption) SessionOption {
	return func(s *Session) {
		s.opts = opts
	}
}

// NewSession returns a session over drv.
func NewSession(drv dialect.Driver, opts ...SessionOption) (*Session, error) {
	s := &Session{conn: drv, drv: drv, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialect == nil {
		d, err := For(drv.Dialect())
		if err != nil {
			return nil, err
		}
		s.dialect = d
	}
	if s.cache == nil {
		s.cache = NewStatementCache()
	}
	return s, nil
}

// Dialect returns the dialect statements are compiled for.
func (s *Session) Dialect() *Dialect { return s.dialect }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// InTx reports if the session is bound to a transaction.
func (s *Session) InTx() bool { return s.drv == nil }

// Cache returns the statement cache of the session.
func (s *Session) Cache() *StatementCache { return s.cache }

// Compile compiles stmt through the session cache.
func (s *Session) Compile(stmt Statement) (*Compiled, error) {
	return s.cache.Compile(stmt, s.dialect, s.opts...)
}

// Exec compiles and executes a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, stmt Statement) (Result, error) {
	c, err := s.Compile(stmt)
	if err != nil {
		return nil, err
	}
	return s.ExecCompiled(ctx, c)
}

// ExecCompiled executes a compiled statement that returns no rows.
func (s *Session) ExecCompiled(ctx context.Context, c *Compiled) (Result, error) {
	args, err := c.Args()
	if err != nil {
		return nil, err
	}
	var res Result
	if err := s.conn.Exec(WithCompiled(ctx, c), c.SQL, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Query compiles and executes a statement that returns rows. The caller
// closes the rows.
func (s *Session) Query(ctx context.Context, stmt Statement) (*Rows, error) {
	c, err := s.Compile(stmt)
	if err != nil {
		return nil, err
	}
	return s.QueryCompiled(ctx, c)
}

// QueryCompiled executes a compiled statement that returns rows.
func (s *Session) QueryCompiled(ctx context.Context, c *Compiled) (*Rows, error) {
	args, err := c.Args()
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := s.conn.Query(WithCompiled(ctx, c), c.SQL, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Tx runs fn with a session bound to a new transaction. The transaction is
// committed if fn succeeds and rolled back otherwise.
func (s *Session) Tx(ctx context.Context, fn func(*Session) error) (err error) {
	if s.drv == nil {
		return fmt.Errorf("dialect/sql: nested transactions are not supported")
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return err
	}
	ts := *s
	ts.conn, ts.drv = tx, nil
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(&ts); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.WarnContext(ctx, "rollback failed", "error", rerr)
		}
		return err
	}
	return tx.Commit()
}
