package bulk

import (
	"fmt"
	"log/slog"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/dataset"
	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema/field"
)

// IdentityEntry correlates the provisional identity of a row with the
// value generated by the database.
type IdentityEntry struct {
	Old any
	New any
	// OriginalSequence is the main ordinal of the row when it was sent.
	OriginalSequence int
	// Sequence is the 1-based position of the row in the payload, matching
	// the sequence of the identity output.
	Sequence int64
	Resolved bool

	row *dataset.Row
}

// Output is an identity generated by the database for the row sent at the
// given payload sequence.
type Output struct {
	Sequence int64
	Value    int64
}

// IdentityMapping holds the identity entries of one bulk insertion.
type IdentityMapping struct {
	store   *dataset.MainStore
	column  *expr.Column
	entries []IdentityEntry
	logger  *slog.Logger
}

// NewIdentityMapping records the current identity values of the rows of
// store, in main ordinal order.
func NewIdentityMapping(store *dataset.MainStore, identity *expr.Column, logger *slog.Logger) (*IdentityMapping, error) {
	m := store.Model()
	if !m.Owns(identity) {
		return nil, rowset.NewSchemaError(m.Name(), fmt.Sprint(identity), "column does not belong to the model")
	}
	if !identity.Info.Type.Integer() {
		return nil, rowset.NewTypeMismatchError("identity", fmt.Sprintf("column %s is not integral", identity))
	}
	if logger == nil {
		logger = slog.Default()
	}
	im := &IdentityMapping{store: store, column: identity, logger: logger}
	for r := range store.Rows() {
		im.entries = append(im.entries, IdentityEntry{
			Old:              r.Value(identity),
			OriginalSequence: r.MainOrdinal(),
			Sequence:         int64(len(im.entries) + 1),
			row:              r,
		})
	}
	return im, nil
}

// Column returns the identity column.
func (im *IdentityMapping) Column() *expr.Column { return im.column }

// Entries returns the entries in sequence order.
func (im *IdentityMapping) Entries() []IdentityEntry { return im.entries }

// Len returns the number of entries.
func (im *IdentityMapping) Len() int { return len(im.entries) }

// Resolve sets the new value of every entry from the output with the same
// sequence. Entries without an output stay unresolved.
func (im *IdentityMapping) Resolve(outputs []Output) error {
	bySeq := make(map[int64]int64, len(outputs))
	for _, o := range outputs {
		bySeq[o.Sequence] = o.Value
	}
	var (
		errs    []error
		missing int
	)
	for i := range im.entries {
		e := &im.entries[i]
		v, ok := bySeq[e.Sequence]
		if !ok {
			missing++
			continue
		}
		nv, err := field.Convert(im.column.Info, v)
		if err != nil {
			errs = append(errs, rowset.NewConversionError(im.column.String(), v, err))
			continue
		}
		e.New, e.Resolved = nv, true
	}
	if missing > 0 {
		im.logger.Warn("identity outputs missing", "column", im.column.String(), "missing", missing, "entries", len(im.entries))
	}
	return rowset.NewAggregateError(errs...)
}

// Propagate writes the new values into the identity column of the mapped
// rows and into the foreign keys of their children that reference it. A
// value is only replaced while it still holds the old identity, and a
// child is only updated through its own parent row, so propagating twice
// changes nothing the second time. It returns the number of values
// written.
func (im *IdentityMapping) Propagate() (int, error) {
	return im.apply(func(e *IdentityEntry) (any, any) { return e.Old, e.New })
}

// Revert restores the old values written by Propagate.
func (im *IdentityMapping) Revert() (int, error) {
	return im.apply(func(e *IdentityEntry) (any, any) { return e.New, e.Old })
}

func (im *IdentityMapping) apply(dir func(*IdentityEntry) (from, to any)) (int, error) {
	var (
		n       int
		errs    []error
		byRow   = make(map[*dataset.Row]*IdentityEntry, len(im.entries))
		skipped int
	)
	for i := range im.entries {
		e := &im.entries[i]
		if !e.Resolved || e.row.DataSet() == nil {
			continue
		}
		byRow[e.row] = e
		from, to := dir(e)
		switch cur := e.row.Value(im.column); {
		case cur == to:
		case cur == from:
			if err := e.row.SetValue(im.column, to); err != nil {
				errs = append(errs, err)
				continue
			}
			n++
		default:
			skipped++
		}
	}
	if skipped > 0 {
		im.logger.Debug("identity values changed since insertion", "column", im.column.String(), "skipped", skipped)
	}
	ds := im.store.DataSet()
	for _, c := range im.store.Model().Children() {
		fk := c.Relationship.Mapping.TargetOf(im.column)
		if fk == nil {
			continue
		}
		for r := range ds.Store(c.Model).Rows() {
			e, ok := byRow[r.Parent()]
			if !ok || r.Value(fk) == nil {
				continue
			}
			cur, err := field.Convert(im.column.Info, r.Value(fk))
			if err != nil {
				continue
			}
			if from, to := dir(e); cur == from && cur != to {
				if err := r.SetValue(fk, to); err != nil {
					errs = append(errs, err)
					continue
				}
				n++
			}
		}
	}
	return n, rowset.NewAggregateError(errs...)
}
