// Package dataset provides the ordered, hierarchical in-memory row store.
//
// A DataSet holds the rows of a model and its descendants. Every model has
// one MainStore listing all of its rows in main ordinal order. The children
// of a row are also reachable through a SubStore, where they are numbered
// by child ordinal. Both numberings are maintained on every insertion and
// removal:
//
//	ds := dataset.New(order)
//	o := dataset.NewRow(order)
//	_ = ds.Root().Add(o)
//	lines, _ := o.Children("lines")
//	_ = lines.Add(dataset.NewRow(line))
//
// The children of one parent occupy a contiguous range of the main store,
// and the ranges are ordered like their parents. Inserting the first child
// of a parent finds its range by binary search over the parent ordinals.
package dataset
