/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"devt.de/krotik/eliasgraph/graph/util"
)

/*
NodeIterator can be used to iterate node identifiers. The set of identifiers
is fixed when the iterator is created; nodes which are removed while the
iteration is in progress are skipped.
*/
type NodeIterator struct {
	gm        *Manager // GraphManager which created the iterator
	ids       []uint64 // Identifiers to iterate
	pos       int      // Current position
	next      uint64   // Next identifier (if hasNext is set)
	hasNext   bool     // Flag if next holds a live identifier
	LastError error    // Last encountered error
}

/*
Next returns the next node identifier. Sets the LastError attribute if there
is no next node.
*/
func (it *NodeIterator) Next() uint64 {
	if !it.HasNext() {
		it.LastError = &util.GraphError{Type: util.ErrNotFound, Detail: "No more nodes"}
		return 0
	}

	it.hasNext = false

	return it.next
}

/*
HasNext returns if there is a next node identifier.
*/
func (it *NodeIterator) HasNext() bool {
	if it.hasNext {
		return true
	}

	// Take reader lock

	it.gm.mutex.RLock()
	defer it.gm.mutex.RUnlock()

	for it.pos < len(it.ids) {
		id := it.ids[it.pos]
		it.pos++

		if it.gm.nodes.get(id) != nil {
			it.next = id
			it.hasNext = true
			return true
		}
	}

	return false
}

/*
Error returns the last encountered error.
*/
func (it *NodeIterator) Error() error {
	return it.LastError
}

/*
EdgeIterator can be used to iterate edge identifiers. The set of identifiers
is fixed when the iterator is created; edges which are removed while the
iteration is in progress are skipped.
*/
type EdgeIterator struct {
	gm        *Manager // GraphManager which created the iterator
	ids       []uint64 // Identifiers to iterate
	pos       int      // Current position
	next      uint64   // Next identifier (if hasNext is set)
	hasNext   bool     // Flag if next holds a live identifier
	LastError error    // Last encountered error
}

/*
Next returns the next edge identifier. Sets the LastError attribute if there
is no next edge.
*/
func (it *EdgeIterator) Next() uint64 {
	if !it.HasNext() {
		it.LastError = &util.GraphError{Type: util.ErrNotFound, Detail: "No more edges"}
		return 0
	}

	it.hasNext = false

	return it.next
}

/*
HasNext returns if there is a next edge identifier.
*/
func (it *EdgeIterator) HasNext() bool {
	if it.hasNext {
		return true
	}

	// Take reader lock

	it.gm.mutex.RLock()
	defer it.gm.mutex.RUnlock()

	for it.pos < len(it.ids) {
		id := it.ids[it.pos]
		it.pos++

		if it.gm.edges.get(id) != nil {
			it.next = id
			it.hasNext = true
			return true
		}
	}

	return false
}

/*
Error returns the last encountered error.
*/
func (it *EdgeIterator) Error() error {
	return it.LastError
}
