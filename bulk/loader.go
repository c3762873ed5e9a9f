package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dataset"
	"github.com/syssam/rowset/dialect/sql"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// Loader inserts the rows of data sets through a session, sending each
// store as one payload parsed by the database.
type Loader struct {
	sess   *sql.Session
	format sql.PayloadFormat
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFormat sets the payload format. The default is JSON.
func WithFormat(f sql.PayloadFormat) Option {
	return func(l *Loader) { l.format = f }
}

// WithLogger sets the logger of the loader. The default is the session
// logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a loader over sess.
func NewLoader(sess *sql.Session, opts ...Option) *Loader {
	l := &Loader{sess: sess, format: sql.PayloadJSON, logger: sess.Logger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type insertConfig struct {
	propagate bool
	mapping   **IdentityMapping
}

// InsertOption configures one insertion.
type InsertOption func(*insertConfig)

// PropagateIdentity captures the identities generated for the inserted
// rows and writes them back into the rows and the foreign keys of their
// children.
func PropagateIdentity() InsertOption {
	return func(c *insertConfig) { c.propagate = true }
}

// WithMapping stores the identity mapping built by the insertion in dst.
// It implies PropagateIdentity.
func WithMapping(dst **IdentityMapping) InsertOption {
	return func(c *insertConfig) {
		c.propagate = true
		c.mapping = dst
	}
}

// plan is the statement inserting one store and its column bindings.
type plan struct {
	insert   *sql.InsertStmt
	source   *sql.BulkSource
	identity *expr.Column // Target identity column.
	srcID    *expr.Column // Source column holding the provisional identity.
}

// Insert inserts the rows of store into the table of target with a single
// statement and returns the number of inserted rows. Target columns are
// filled from the store columns with the same name; the identity and
// system columns are left to the database. If execution fails, no row of
// the data set is modified.
func (l *Loader) Insert(ctx context.Context, store *dataset.MainStore, target *schema.Model, opts ...InsertOption) (int64, error) {
	var cfg insertConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	n, im, err := l.insert(ctx, store, target, cfg.propagate)
	if err != nil {
		return 0, err
	}
	if im != nil {
		if _, err := im.Propagate(); err != nil {
			return n, err
		}
		if cfg.mapping != nil {
			*cfg.mapping = im
		}
	}
	return n, nil
}

func (l *Loader) insert(ctx context.Context, store *dataset.MainStore, target *schema.Model, propagate bool) (int64, *IdentityMapping, error) {
	if store.Count() == 0 {
		l.logger.DebugContext(ctx, "bulk insert skipped", "model", store.Model().Name(), "reason", "no rows")
		return 0, nil, nil
	}
	p, err := l.plan(store, target, propagate)
	if err != nil {
		return 0, nil, err
	}
	if !propagate {
		res, err := l.exec(ctx, p.insert)
		if err != nil {
			return 0, nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, nil, rowset.NewExecutionError("rows affected", err)
		}
		l.logger.DebugContext(ctx, "bulk insert", "table", target.TableName(), "rows", n, "format", l.format)
		return n, nil, nil
	}
	im, err := NewIdentityMapping(store, p.srcID, l.logger)
	if err != nil {
		return 0, nil, err
	}
	values, err := l.capture(ctx, p, store.Count())
	if err != nil {
		return 0, nil, err
	}
	if len(values) != store.Count() {
		return 0, nil, rowset.NewExecutionError("identity capture",
			fmt.Errorf("%d identities generated for %d rows", len(values), store.Count()))
	}
	outputs := make([]Output, len(values))
	for i, v := range values {
		outputs[i] = Output{Sequence: int64(i + 1), Value: v}
	}
	if err := im.Resolve(outputs); err != nil {
		return 0, nil, err
	}
	l.logger.DebugContext(ctx, "bulk insert", "table", target.TableName(), "rows", len(values), "format", l.format, "identity", p.identity.Name)
	return int64(len(values)), im, nil
}

// plan builds the INSERT ... SELECT statement reading the payload of store
// ordered by the row ordinals.
func (l *Loader) plan(store *dataset.MainStore, target *schema.Model, propagate bool) (*plan, error) {
	src := store.Model()
	var (
		cols    []*expr.Column
		targets []*expr.Column
	)
	for _, c := range target.Columns() {
		if c.Identity || c.System != expr.SystemNone {
			continue
		}
		if sc := src.Column(c.Name); sc != nil && sc.System == expr.SystemNone {
			cols = append(cols, sc)
			targets = append(targets, c)
		}
	}
	if len(cols) == 0 {
		return nil, rowset.NewSchemaError(target.Name(), "", "no columns to insert from "+src.Name())
	}
	p := &plan{}
	if propagate {
		if p.identity = target.Identity(); p.identity == nil {
			return nil, rowset.NewSchemaError(target.Name(), "", "no identity column to propagate")
		}
		if p.srcID = src.Column(p.identity.Name); p.srcID == nil {
			return nil, rowset.NewSchemaError(src.Name(), p.identity.Name, "no column holding the identity")
		}
	}
	payload, err := Encode(l.format, store, cols)
	if err != nil {
		return nil, err
	}
	infos := make([]field.TypeInfo, len(cols))
	for i, c := range cols {
		infos[i] = c.Info
	}
	p.source = sql.Bulk(l.format, payload, infos...)
	values := make([]expr.Expr, len(cols))
	for i := range cols {
		values[i] = p.source.Value(i)
	}
	sel := sql.Select(values...).From(p.source).OrderBy(sql.Asc(p.source.Ordinal()))
	p.insert = sql.Insert(target).Columns(targets...).Select(sel)
	return p, nil
}

// capture executes the insertion and returns the generated identities in
// payload order. Identities are generated in insertion order, so ascending
// identity order is payload order regardless of the order rows are emitted.
func (l *Loader) capture(ctx context.Context, p *plan, n int) ([]int64, error) {
	d := l.sess.Dialect()
	switch d.Capture() {
	case sql.CaptureOutputInto:
		out := d.IdentityOutputTable()
		p.insert.Returning(p.identity).OutputInto(out.TableName(), "new_value")
		batch := sql.NewBatch(
			&sql.DropTableStmt{Model: out, IfExists: true},
			sql.CreateTable(out).Temp(),
			p.insert,
			sql.Select(out.Column("new_value")).From(sql.Table(out)).OrderBy(sql.Asc(out.Column("new_value"))),
			sql.DropTable(out),
		)
		return l.query(ctx, batch)
	case sql.CaptureReturning:
		p.insert.Returning(p.identity)
		vs, err := l.query(ctx, p.insert)
		if err != nil {
			return nil, err
		}
		slices.Sort(vs)
		return vs, nil
	default:
		res, err := l.exec(ctx, p.insert)
		if err != nil {
			return nil, err
		}
		first, err := res.LastInsertId()
		if err != nil {
			return nil, rowset.NewExecutionError("last insert id", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, rowset.NewExecutionError("rows affected", err)
		}
		if affected != int64(n) {
			return nil, rowset.NewExecutionError("identity capture", fmt.Errorf("%d rows affected for %d rows", affected, n))
		}
		vs := make([]int64, n)
		for i := range vs {
			vs[i] = first + int64(i)
		}
		return vs, nil
	}
}

func (l *Loader) exec(ctx context.Context, stmt sql.Statement) (sql.Result, error) {
	defer l.sess.Cache().Evict(stmt)
	return l.sess.Exec(ctx, stmt)
}

func (l *Loader) query(ctx context.Context, stmt sql.Statement) ([]int64, error) {
	defer l.sess.Cache().Evict(stmt)
	rows, err := l.sess.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	vs, err := sql.ScanInt64s(rows)
	if err != nil {
		return nil, rowset.NewExecutionError("scan identities", err)
	}
	return vs, nil
}

// InsertHierarchy inserts every store of ds, parents before children, in
// one transaction. Identities generated for a model are propagated before
// its children are sent. If any insertion fails, the transaction is rolled
// back and the propagated identities are reverted.
func (l *Loader) InsertHierarchy(ctx context.Context, ds *dataset.DataSet) (int64, error) {
	var (
		total    int64
		mappings []*IdentityMapping
	)
	run := func(sess *sql.Session) error {
		tl := *l
		tl.sess = sess
		for _, m := range ds.Models() {
			if err := ctx.Err(); err != nil {
				return rowset.Canceled(err)
			}
			n, im, err := tl.insert(ctx, ds.Store(m), m, m.Identity() != nil)
			if err != nil {
				return fmt.Errorf("bulk: insert %s: %w", m.Name(), err)
			}
			total += n
			if im == nil {
				continue
			}
			mappings = append(mappings, im)
			if _, err := im.Propagate(); err != nil {
				return err
			}
		}
		return nil
	}
	var err error
	if l.sess.InTx() {
		err = run(l.sess)
	} else {
		err = l.sess.Tx(ctx, run)
	}
	if err != nil {
		for _, im := range slices.Backward(mappings) {
			if _, rerr := im.Revert(); rerr != nil {
				l.logger.WarnContext(ctx, "revert identities failed", "column", im.Column().String(), "error", rerr)
			}
		}
		return 0, err
	}
	return total, nil
}
