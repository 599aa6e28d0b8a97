/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"fmt"
	"sort"

	"devt.de/krotik/eliasgraph/graph/data"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

/*
ValueIndex data structure. A value index maps the distinct values of a
property to the set of node ids which carry them. Values are kept in sorted
order so range queries are a binary search followed by a linear walk.
Null values are never indexed.
*/
type ValueIndex struct {
	values []data.Value        // Sorted distinct values
	ids    []*roaring64.Bitmap // Node ids per value (same position as values)
}

/*
NewValueIndex creates a new empty value index.
*/
func NewValueIndex() *ValueIndex {
	return &ValueIndex{}
}

/*
search returns the position of a value or the position where it would be
inserted.
*/
func (vi *ValueIndex) search(v data.Value) (int, bool) {
	i := sort.Search(len(vi.values), func(i int) bool {
		return vi.values[i].Compare(v) >= 0
	})

	return i, i < len(vi.values) && vi.values[i].Compare(v) == 0
}

/*
Add adds a node id for a given value.
*/
func (vi *ValueIndex) Add(v data.Value, id uint64) {
	if v.IsNull() {
		return
	}

	i, found := vi.search(v)

	if !found {
		vi.values = append(vi.values, data.Value{})
		copy(vi.values[i+1:], vi.values[i:])
		vi.values[i] = v

		vi.ids = append(vi.ids, nil)
		copy(vi.ids[i+1:], vi.ids[i:])
		vi.ids[i] = roaring64.New()
	}

	vi.ids[i].Add(id)
}

/*
Remove removes a node id for a given value. Values without any ids are
removed from the index.
*/
func (vi *ValueIndex) Remove(v data.Value, id uint64) {
	if v.IsNull() {
		return
	}

	i, found := vi.search(v)
	if !found {
		return
	}

	vi.ids[i].Remove(id)

	if vi.ids[i].IsEmpty() {
		vi.values = append(vi.values[:i], vi.values[i+1:]...)
		vi.ids = append(vi.ids[:i], vi.ids[i+1:]...)
	}
}

/*
Lookup returns all node ids for a given value in ascending order.
*/
func (vi *ValueIndex) Lookup(v data.Value) ([]uint64, error) {
	if v.IsNull() {
		return nil, &GraphError{ErrTypeMismatch, "Cannot lookup a null value"}
	}

	if i, found := vi.search(v); found {
		return vi.ids[i].ToArray(), nil
	}

	return nil, nil
}

/*
Range returns all node ids with a value in the interval [lo, hi]. Ids are
ordered by value and then by id. Both bounds must be of the same kind and
only values of that kind are returned.
*/
func (vi *ValueIndex) Range(lo, hi data.Value) ([]uint64, error) {
	if !data.Comparable(lo, hi) {
		return nil, &GraphError{ErrTypeMismatch,
			fmt.Sprintf("Range bounds are not comparable: %v (%v) and %v (%v)",
				lo, lo.Kind(), hi, hi.Kind())}
	}

	var ret []uint64

	i, _ := vi.search(lo)

	for ; i < len(vi.values) && vi.values[i].Compare(hi) <= 0; i++ {
		ret = append(ret, vi.ids[i].ToArray()...)
	}

	return ret, nil
}

/*
Len returns the number of distinct indexed values.
*/
func (vi *ValueIndex) Len() int {
	return len(vi.values)
}

/*
Count returns the number of indexed (value, id) pairs.
*/
func (vi *ValueIndex) Count() uint64 {
	var c uint64

	for _, bm := range vi.ids {
		c += bm.GetCardinality()
	}

	return c
}

/*
String returns a string representation of this value index.
*/
func (vi *ValueIndex) String() string {
	ret := "ValueIndex:\n"

	for i, v := range vi.values {
		ret += fmt.Sprintf("    %v : %v\n", v, vi.ids[i].ToArray())
	}

	return ret
}
