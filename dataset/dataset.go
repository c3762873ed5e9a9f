package dataset

import (
	"iter"
	"slices"
	"sort"

	"github.com/syssam/rowset"
	"github.com/syssam/rowset/schema"
)

// DataSet is an ordered hierarchy of rows. It holds one main store per
// model of the hierarchy; every row of a model lives in that store, and
// rows with a parent are also reachable through the sub store of the
// parent. The children of a parent occupy a contiguous range of the main
// store, ordered by child ordinal, and ranges follow the order of their
// parents.
//
// A DataSet is not safe for concurrent mutation.
type DataSet struct {
	model  *schema.Model
	stores map[*schema.Model]*MainStore
	nextID int64
}

// New returns an empty data set of m and its descendants. The model
// hierarchy is sealed.
func New(m *schema.Model) *DataSet {
	m.Root().Seal()
	ds := &DataSet{model: m, stores: make(map[*schema.Model]*MainStore)}
	var add func(*schema.Model)
	add = func(m *schema.Model) {
		ds.stores[m] = &MainStore{ds: ds, model: m}
		for _, c := range m.Children() {
			add(c.Model)
		}
	}
	add(m)
	return ds
}

// Model returns the root model of the data set.
func (ds *DataSet) Model() *schema.Model { return ds.model }

// Root returns the main store of the root model.
func (ds *DataSet) Root() *MainStore { return ds.stores[ds.model] }

// Store returns the main store of a model of the hierarchy, or nil.
func (ds *DataSet) Store(m *schema.Model) *MainStore { return ds.stores[m] }

// Models returns the models of the data set, parents before children.
func (ds *DataSet) Models() []*schema.Model { return ds.model.Hierarchy() }

// Insert inserts row at index among the children of parent, or among the
// root rows if parent is nil.
func (ds *DataSet) Insert(parent *Row, index int, row *Row) error {
	if row == nil {
		return rowset.NewStateError("insert", "nil row")
	}
	if row.ds != nil {
		return rowset.NewStateError("insert", "row is already attached")
	}
	if parent == nil {
		return ds.insertRoot(index, row)
	}
	if parent.ds != ds {
		return rowset.NewStateError("insert", "parent row does not belong to the data set")
	}
	if parent.main < 0 {
		return rowset.NewStateError("insert", "parent row is not placed")
	}
	binding := row.model.Parent()
	if binding == nil || binding.Parent != parent.model {
		return rowset.NewSchemaError(row.model.Name(), "", "model is not a child of "+parent.model.Name())
	}
	return ds.insertChild(parent, parent.ChildStore(binding), index, row)
}

func (ds *DataSet) insertRoot(index int, row *Row) error {
	if row.model != ds.model {
		return rowset.NewSchemaError(row.model.Name(), "", "model is not the root of the data set")
	}
	if ds.model.Parent() != nil {
		return rowset.NewStateError("insert", "root store of a child model is read-only")
	}
	store := ds.Root()
	if index < 0 || index > len(store.rows) {
		return rowset.NewBoundsError("insert", index, len(store.rows))
	}
	store.place(index, row)
	ds.attach(row)
	return nil
}

func (ds *DataSet) insertChild(parent *Row, sub *SubStore, index int, row *Row) error {
	kids := parent.kids(sub.idx)
	if index < 0 || index > len(kids) {
		return rowset.NewBoundsError("insert", index, len(kids))
	}
	store := ds.stores[row.model]
	var pos int
	switch {
	case index > 0:
		pos = kids[index-1].main + 1
	case len(kids) > 0:
		pos = kids[0].main
	default:
		pos = store.search(parent.main)
	}
	row.link(parent, sub.binding)
	row.parent = parent
	store.place(pos, row)
	if parent.children == nil {
		parent.children = make([][]*Row, len(parent.model.Children()))
	}
	parent.children[sub.idx] = slices.Insert(kids, index, row)
	renumberChildren(parent.children[sub.idx], index)
	ds.attach(row)
	return nil
}

// attach binds the row to the data set and assigns its row identifier.
func (ds *DataSet) attach(row *Row) {
	row.ds = ds
	if id := row.model.RowID(); id != nil {
		ds.nextID++
		row.values[id.Ordinal] = ds.nextID
	}
}

// RemoveAt removes the index-th child of the given binding of parent, or
// the index-th root row if parent is nil. Descendants of the removed row
// are removed as well.
func (ds *DataSet) RemoveAt(parent *Row, c *schema.Child, index int) (*Row, error) {
	if parent == nil {
		return ds.Root().RemoveAt(index)
	}
	if parent.ds != ds {
		return nil, rowset.NewStateError("remove", "parent row does not belong to the data set")
	}
	if c == nil || c.Parent != parent.model {
		return nil, rowset.NewSchemaError(parent.model.Name(), "", "invalid child binding")
	}
	return parent.ChildStore(c).RemoveAt(index)
}

// Remove removes an attached row and its descendants.
func (ds *DataSet) Remove(row *Row) error {
	if row == nil || row.ds != ds {
		return rowset.NewStateError("remove", "row does not belong to the data set")
	}
	ds.remove(row)
	return nil
}

func (ds *DataSet) remove(row *Row) {
	if p := row.parent; p != nil {
		k := slices.Index(p.model.Children(), row.model.Parent())
		p.children[k] = slices.Delete(p.children[k], row.child, row.child+1)
		renumberChildren(p.children[k], row.child)
	}
	ds.detachChildren(row)
	store := ds.stores[row.model]
	store.rows = slices.Delete(store.rows, row.main, row.main+1)
	store.renumber(row.main)
	row.detach()
}

// detachChildren removes the descendants of row from their main stores.
// The children of one parent are contiguous, so each binding is removed
// as a single range.
func (ds *DataSet) detachChildren(row *Row) {
	for k, c := range row.model.Children() {
		kids := row.kids(k)
		if len(kids) == 0 {
			continue
		}
		for _, kid := range kids {
			ds.detachChildren(kid)
		}
		store := ds.stores[c.Model]
		first := kids[0].main
		store.rows = slices.Delete(store.rows, first, first+len(kids))
		store.renumber(first)
		for _, kid := range kids {
			kid.detach()
		}
	}
	row.children = nil
}

func (r *Row) detach() {
	r.ds, r.parent, r.children = nil, nil, nil
	r.main, r.child = -1, -1
}

func renumberChildren(kids []*Row, from int) {
	for i := from; i < len(kids); i++ {
		kids[i].child = i
	}
}

// MainStore holds all rows of one model of a data set, in main ordinal
// order.
type MainStore struct {
	ds    *DataSet
	model *schema.Model
	rows  []*Row
}

// Model returns the model of the store.
func (s *MainStore) Model() *schema.Model { return s.model }

// DataSet returns the data set the store belongs to.
func (s *MainStore) DataSet() *DataSet { return s.ds }

// Count returns the number of rows.
func (s *MainStore) Count() int { return len(s.rows) }

// At returns the row at the given main ordinal.
func (s *MainStore) At(i int) (*Row, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, rowset.NewBoundsError("at", i, len(s.rows))
	}
	return s.rows[i], nil
}

// IndexOf returns the main ordinal of row, if the row is in the store.
func (s *MainStore) IndexOf(row *Row) (int, bool) {
	if row == nil || row.ds != s.ds || row.model != s.model {
		return -1, false
	}
	return row.main, true
}

// Rows returns an iterator over the rows in main ordinal order.
func (s *MainStore) Rows() iter.Seq[*Row] {
	return func(yield func(*Row) bool) {
		for _, r := range s.rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Insert inserts a root row at index. Stores of child models are read-only.
func (s *MainStore) Insert(index int, row *Row) error {
	if s.model != s.ds.model {
		return rowset.NewStateError("insert", "store of a child model is read-only; insert through the parent row")
	}
	return s.ds.Insert(nil, index, row)
}

// Add appends a root row.
func (s *MainStore) Add(row *Row) error {
	return s.Insert(len(s.rows), row)
}

// RemoveAt removes the row at the given main ordinal and its descendants.
func (s *MainStore) RemoveAt(index int) (*Row, error) {
	if index < 0 || index >= len(s.rows) {
		return nil, rowset.NewBoundsError("remove", index, len(s.rows))
	}
	row := s.rows[index]
	s.ds.remove(row)
	return row, nil
}

func (s *MainStore) place(pos int, row *Row) {
	s.rows = slices.Insert(s.rows, pos, row)
	row.main = pos
	if row.parent == nil {
		row.child = pos
	}
	s.renumber(pos + 1)
}

// renumber reassigns main ordinals from the given position on. Root rows
// keep their child ordinal equal to their main ordinal.
func (s *MainStore) renumber(from int) {
	for i := from; i < len(s.rows); i++ {
		r := s.rows[i]
		r.main = i
		if r.parent == nil {
			r.child = i
		}
	}
}

// search returns the position of the first child of a parent that has no
// children yet: the first row whose parent comes after it.
func (s *MainStore) search(parentMain int) int {
	return sort.Search(len(s.rows), func(i int) bool {
		return s.rows[i].parent.main > parentMain
	})
}

// SubStore is the view of the children of one parent row through one child
// binding.
type SubStore struct {
	parent  *Row
	binding *schema.Child
	idx     int
}

// Parent returns the parent row.
func (s *SubStore) Parent() *Row { return s.parent }

// Binding returns the child binding of the store.
func (s *SubStore) Binding() *schema.Child { return s.binding }

// Count returns the number of children.
func (s *SubStore) Count() int { return len(s.parent.kids(s.idx)) }

// At returns the child at the given child ordinal.
func (s *SubStore) At(i int) (*Row, error) {
	kids := s.parent.kids(s.idx)
	if i < 0 || i >= len(kids) {
		return nil, rowset.NewBoundsError("at", i, len(kids))
	}
	return kids[i], nil
}

// IndexOf returns the child ordinal of row, if it is a child of the store.
func (s *SubStore) IndexOf(row *Row) (int, bool) {
	if row == nil || row.parent != s.parent || row.model != s.binding.Model {
		return -1, false
	}
	return row.child, true
}

// Rows returns an iterator over the children in child ordinal order.
func (s *SubStore) Rows() iter.Seq[*Row] {
	return func(yield func(*Row) bool) {
		for _, r := range s.parent.kids(s.idx) {
			if !yield(r) {
				return
			}
		}
	}
}

// Insert inserts row at index among the children.
func (s *SubStore) Insert(index int, row *Row) error {
	if s.parent.ds == nil {
		return rowset.NewStateError("insert", "parent row is not placed")
	}
	return s.parent.ds.Insert(s.parent, index, row)
}

// Add appends a child.
func (s *SubStore) Add(row *Row) error {
	return s.Insert(s.Count(), row)
}

// RemoveAt removes the child at index and its descendants.
func (s *SubStore) RemoveAt(index int) (*Row, error) {
	kids := s.parent.kids(s.idx)
	if index < 0 || index >= len(kids) {
		return nil, rowset.NewBoundsError("remove", index, len(kids))
	}
	row := kids[index]
	s.parent.ds.remove(row)
	return row, nil
}
