package dataset

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

// Snapshot encodings, stored in the first byte of a snapshot.
const (
	snapshotPlain  byte = 1
	snapshotSnappy byte = 2
)

type snapshot struct {
	Model string    `msgpack:"m"`
	Rows  []snapRow `msgpack:"r"`
}

type snapRow struct {
	Values   []any                `msgpack:"v"`
	Children map[string][]snapRow `msgpack:"c,omitempty"`
}

type snapshotConfig struct {
	compress bool
}

// SnapshotOption configures snapshot encoding.
type SnapshotOption func(*snapshotConfig)

// Compressed compresses the snapshot with snappy.
func Compressed() SnapshotOption {
	return func(c *snapshotConfig) { c.compress = true }
}

// MarshalSnapshot encodes the rows of the data set, preserving their order
// and hierarchy.
func MarshalSnapshot(ds *DataSet, opts ...SnapshotOption) ([]byte, error) {
	var cfg snapshotConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	snap := snapshot{Model: ds.model.Name()}
	for r := range ds.Root().Rows() {
		sr, err := encodeRow(r)
		if err != nil {
			return nil, err
		}
		snap.Rows = append(snap.Rows, sr)
	}
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("dataset: encode snapshot: %w", err)
	}
	if cfg.compress {
		return append([]byte{snapshotSnappy}, snappy.Encode(nil, data)...), nil
	}
	return append([]byte{snapshotPlain}, data...), nil
}

func encodeRow(r *Row) (snapRow, error) {
	sr := snapRow{Values: make([]any, len(r.values))}
	for i, c := range r.model.Columns() {
		v, err := field.Wire(c.Info, r.values[i])
		if err != nil {
			return sr, rowset.NewConversionError(c.String(), r.values[i], err)
		}
		sr.Values[i] = v
	}
	for k, c := range r.model.Children() {
		for _, kid := range r.kids(k) {
			ks, err := encodeRow(kid)
			if err != nil {
				return sr, err
			}
			if sr.Children == nil {
				sr.Children = make(map[string][]snapRow)
			}
			sr.Children[c.Name] = append(sr.Children[c.Name], ks)
		}
	}
	return sr, nil
}

// UnmarshalSnapshot decodes a snapshot into a new data set of m. Values are
// converted back to the column types; the stored row identifiers are kept.
func UnmarshalSnapshot(data []byte, m *schema.Model) (*DataSet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("dataset: empty snapshot")
	}
	body := data[1:]
	switch data[0] {
	case snapshotPlain:
	case snapshotSnappy:
		var err error
		if body, err = snappy.Decode(nil, body); err != nil {
			return nil, fmt.Errorf("dataset: decompress snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("dataset: unknown snapshot encoding %d", data[0])
	}
	var snap snapshot
	if err := msgpack.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("dataset: decode snapshot: %w", err)
	}
	if snap.Model != m.Name() {
		return nil, rowset.NewSchemaError(m.Name(), "", fmt.Sprintf("snapshot holds rows of %q", snap.Model))
	}
	ds := New(m)
	for i, sr := range snap.Rows {
		if err := ds.decodeRow(nil, m, i, sr); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (ds *DataSet) decodeRow(parent *Row, m *schema.Model, index int, sr snapRow) error {
	cols := m.Columns()
	if len(sr.Values) != len(cols) {
		return rowset.NewSchemaError(m.Name(), "", fmt.Sprintf("snapshot row has %d values for %d columns", len(sr.Values), len(cols)))
	}
	row := NewRow(m)
	if err := ds.Insert(parent, index, row); err != nil {
		return err
	}
	var errs []error
	for i, c := range cols {
		v, err := field.FromBacking(c.Info, sr.Values[i])
		if err != nil {
			errs = append(errs, rowset.NewConversionError(c.String(), sr.Values[i], err))
			continue
		}
		row.values[i] = v
	}
	if err := rowset.NewAggregateError(errs...); err != nil {
		return err
	}
	if id := m.RowID(); id != nil {
		if n, ok := row.values[id.Ordinal].(int64); ok && n > ds.nextID {
			ds.nextID = n
		}
	}
	for _, c := range m.Children() {
		for i, ks := range sr.Children[c.Name] {
			if err := ds.decodeRow(row, c.Model, i, ks); err != nil {
				return err
			}
		}
	}
	return nil
}
