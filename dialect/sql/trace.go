package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/rowset/dialect"
)

// QueryStats holds statement execution statistics.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the average statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps a dialect.Driver with statistics collection.
type StatsDriver struct {
	dialect.Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements at warning level.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		logger.WarnContext(ctx, "slow statement", "duration", duration, "query", query, "args", len(args))
	})
}

// NewStatsDriver wraps a driver with statistics collection.
//
//	drv, _ := sql.Open(dialect.Postgres, dsn)
//	stats := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(nil))
//	session := sql.NewSession(stats)
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, start, err, true)
	return err
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, start, err, false)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		d.stats.Errors.Add(1)
	}
	d.mu.RLock()
	threshold, hook := d.slowThreshold, d.slowHook
	d.mu.RUnlock()
	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			argv, _ := args.([]any)
			hook(ctx, query, argv, duration)
		}
	}
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, driver: d}, nil
}

type statsTx struct {
	dialect.Tx
	driver *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, true)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, false)
	return err
}

// TraceDriver wraps a dialect.Driver and logs every statement at debug
// level.
type TraceDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// NewTraceDriver wraps a driver with statement tracing. A nil logger uses
// slog.Default().
func NewTraceDriver(drv dialect.Driver, logger *slog.Logger) *TraceDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TraceDriver{Driver: drv, logger: logger.With("dialect", drv.Dialect())}
}

// Query executes a query and logs it.
func (d *TraceDriver) Query(ctx context.Context, query string, args, v any) error {
	return trace(ctx, d.logger, "query", query, args, func() error { return d.Driver.Query(ctx, query, args, v) })
}

// Exec executes a statement and logs it.
func (d *TraceDriver) Exec(ctx context.Context, query string, args, v any) error {
	return trace(ctx, d.logger, "exec", query, args, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

// Tx starts a traced transaction.
func (d *TraceDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.logger.DebugContext(ctx, "begin transaction", "error", err)
		return nil, err
	}
	d.logger.DebugContext(ctx, "begin transaction")
	return &traceTx{Tx: tx, logger: d.logger.With("tx", true)}, nil
}

type traceTx struct {
	dialect.Tx
	logger *slog.Logger
}

func (tx *traceTx) Query(ctx context.Context, query string, args, v any) error {
	return trace(ctx, tx.logger, "query", query, args, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

func (tx *traceTx) Exec(ctx context.Context, query string, args, v any) error {
	return trace(ctx, tx.logger, "exec", query, args, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

func (tx *traceTx) Commit() error {
	err := tx.Tx.Commit()
	tx.logger.Debug("commit transaction", "error", err)
	return err
}

func (tx *traceTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.logger.Debug("rollback transaction", "error", err)
	return err
}

type compiledKey struct{}

// WithCompiled returns a context carrying the compiled form of the statement
// about to be executed. Tracing uses it to log parameter declarations.
func WithCompiled(ctx context.Context, c *Compiled) context.Context {
	return context.WithValue(ctx, compiledKey{}, c)
}

func compiledFrom(ctx context.Context) (*Compiled, bool) {
	c, ok := ctx.Value(compiledKey{}).(*Compiled)
	return c, ok
}

func trace(ctx context.Context, logger *slog.Logger, op, query string, args any, f func() error) error {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return f()
	}
	start := time.Now()
	err := f()
	attrs := []any{"duration", time.Since(start)}
	if c, ok := compiledFrom(ctx); ok && c.SQL == query {
		attrs = append(attrs, "statement", c.DebugString())
	} else {
		attrs = append(attrs, "statement", query, "args", args)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.DebugContext(ctx, op, attrs...)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*TraceDriver)(nil)
)
