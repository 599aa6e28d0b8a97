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
	"fmt"

	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

/*
NodeCount returns the number of live nodes with a given label. An empty label
counts all nodes.
*/
func (gm *Manager) NodeCount(label string) uint64 {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	if label == "" {
		return gm.nodeSlots.LiveCount()
	}

	if bm, ok := gm.labels[label]; ok {
		return bm.GetCardinality()
	}

	return 0
}

/*
NodeIterator iterates the identifiers of all nodes with a given label. An
empty label iterates all nodes.
*/
func (gm *Manager) NodeIterator(label string) *NodeIterator {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	var ids []uint64

	if label == "" {
		ids = gm.allNodes.ToArray()
	} else if bm, ok := gm.labels[label]; ok {
		ids = bm.ToArray()
	}

	return &NodeIterator{gm, ids, 0, 0, false, nil}
}

/*
FetchNode fetches a single node. The returned node is a copy.
*/
func (gm *Manager) FetchNode(id uint64) (*data.Node, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	e := gm.nodes.get(id)
	if e == nil {
		return nil, nodeNotFound(id)
	}

	return e.node.Clone(), nil
}

/*
CreateNode creates a new node with a given set of labels and properties.
Returns the identifier of the new node.
*/
func (gm *Manager) CreateNode(labels []string, props map[string]data.Value) (uint64, error) {

	if err := checkNames("Node label", labels...); err != nil {
		return 0, err
	}

	if err := checkProps(props); err != nil {
		return 0, err
	}

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	id := gm.nodeSlots.Allocate()

	node := data.NewNode(id, labels)
	for k, v := range props {
		node.SetAttr(k, v)
	}

	gm.insertNode(node)

	// Execute rules

	if err := gm.gr.graphEvent(EventNodeCreated, node.Clone()); err != nil && err != ErrEventHandled {
		return id, err
	}

	return id, nil
}

/*
insertNode adds a node record to all data structures. It is assumed that the
caller holds the writer lock and that the identifier was allocated.
*/
func (gm *Manager) insertNode(node *data.Node) {
	gm.nodes.put(node.ID, &nodeEntry{node, make(map[string]*roaring64.Bitmap),
		make(map[string]*roaring64.Bitmap)})

	gm.allNodes.Add(node.ID)

	for _, l := range node.Labels {
		addToSet(gm.labels, l, node.ID)
	}

	gm.indexNode(node)
}

/*
SetNodeProperty sets a property of a node. An existing value is overwritten.
Setting the Null value keeps the key present.
*/
func (gm *Manager) SetNodeProperty(id uint64, key string, val data.Value) error {
	if key == "" {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: "Node property key is empty"}
	}

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	e := gm.nodes.get(id)
	if e == nil {
		return nodeNotFound(id)
	}

	old, hasOld := e.node.Attr(key)

	if hasOld {
		gm.deindexNodeProperty(e.node, key, old)
	}

	e.node.SetAttr(key, val)

	gm.indexNodeProperty(e.node, key, val)

	// Execute rules

	var oldVal interface{}
	if hasOld {
		oldVal = old
	}

	if err := gm.gr.graphEvent(EventNodeUpdated, e.node.Clone(), key, oldVal); err != nil && err != ErrEventHandled {
		return err
	}

	return nil
}

/*
RemoveNode removes a single node and all its edges. Returns the removed node
and the identifiers of the removed edges.
*/
func (gm *Manager) RemoveNode(id uint64) (*data.Node, []uint64, error) {

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	e := gm.nodes.get(id)
	if e == nil {
		return nil, nil, nodeNotFound(id)
	}

	// Execute rules which remove the edges of the node

	var removedEdges []uint64

	if err := gm.gr.graphEvent(EventNodeDelete, e.node.Clone(), &removedEdges); err != nil && err != ErrEventHandled {
		return nil, removedEdges, err
	}

	if c := countAdjacency(e.out) + countAdjacency(e.in); c > 0 {
		return nil, removedEdges, &util.GraphError{Type: util.ErrRule,
			Detail: fmt.Sprintf("Node %v still has %v edges", id, c)}
	}

	node := gm.deleteNode(id)

	if err := gm.gr.graphEvent(EventNodeDeleted, node.Clone()); err != nil && err != ErrEventHandled {
		return node, removedEdges, err
	}

	return node, removedEdges, nil
}

/*
deleteNode removes a node from all data structures and tombstones its slot.
It is assumed that the caller holds the writer lock and that the node has no
edges. Returns the deleted node.
*/
func (gm *Manager) deleteNode(id uint64) *data.Node {
	e := gm.nodes.get(id)

	gm.deindexNode(e.node)

	for _, l := range e.node.Labels {
		removeFromSet(gm.labels, l, id)
	}

	gm.allNodes.Remove(id)
	gm.nodes.clear(id)
	gm.nodeSlots.Release(id)

	return e.node
}

/*
nodeNotFound returns the error for a missing node.
*/
func nodeNotFound(id uint64) error {
	return &util.GraphError{Type: util.ErrNotFound, Detail: fmt.Sprintf("Node %v", id)}
}

/*
countAdjacency counts all edges of an adjacency map.
*/
func countAdjacency(m map[string]*roaring64.Bitmap) uint64 {
	var c uint64

	for _, bm := range m {
		c += bm.GetCardinality()
	}

	return c
}
