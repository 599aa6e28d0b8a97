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
Direction of a traversal.
*/
type Direction int

/*
Traversal directions
*/
const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
	DirectionBoth
)

/*
EdgeCount returns the number of live edges of a given kind. An empty kind
counts all edges.
*/
func (gm *Manager) EdgeCount(kind string) uint64 {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	if kind == "" {
		return gm.edgeSlots.LiveCount()
	}

	if bm, ok := gm.kinds[kind]; ok {
		return bm.GetCardinality()
	}

	return 0
}

/*
EdgeIterator iterates the identifiers of all edges of a given kind. An empty
kind iterates all edges.
*/
func (gm *Manager) EdgeIterator(kind string) *EdgeIterator {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	var ids []uint64

	if kind == "" {
		ids = gm.allEdges.ToArray()
	} else if bm, ok := gm.kinds[kind]; ok {
		ids = bm.ToArray()
	}

	return &EdgeIterator{gm, ids, 0, 0, false, nil}
}

/*
Outgoing iterates the outgoing edges of a node. An empty kind iterates edges
of all kinds ordered by kind and then by identifier.
*/
func (gm *Manager) Outgoing(node uint64, kind string) (*EdgeIterator, error) {
	return gm.adjacencyIterator(node, kind, DirectionOutgoing)
}

/*
Incoming iterates the incoming edges of a node. An empty kind iterates edges
of all kinds ordered by kind and then by identifier.
*/
func (gm *Manager) Incoming(node uint64, kind string) (*EdgeIterator, error) {
	return gm.adjacencyIterator(node, kind, DirectionIncoming)
}

/*
adjacencyIterator creates an iterator over the adjacency of a node.
*/
func (gm *Manager) adjacencyIterator(node uint64, kind string, dir Direction) (*EdgeIterator, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	e := gm.nodes.get(node)
	if e == nil {
		return nil, nodeNotFound(node)
	}

	return &EdgeIterator{gm, gm.adjacentEdges(e, kind, dir), 0, 0, false, nil}, nil
}

/*
adjacentEdges collects the edge identifiers of a node. The result is ordered
by kind and then by identifier. Self loops are only listed once for
DirectionBoth.
*/
func (gm *Manager) adjacentEdges(e *nodeEntry, kind string, dir Direction) []uint64 {
	var ret []uint64

	if kind != "" {
		res := roaring64.New()

		if bm, ok := e.out[kind]; ok && dir != DirectionIncoming {
			res.Or(bm)
		}
		if bm, ok := e.in[kind]; ok && dir != DirectionOutgoing {
			res.Or(bm)
		}

		return res.ToArray()
	}

	// Order by kind name then by identifier

	kinds := make(map[string]*roaring64.Bitmap)

	merge := func(m map[string]*roaring64.Bitmap) {
		for k, bm := range m {
			if res, ok := kinds[k]; ok {
				res.Or(bm)
			} else {
				kinds[k] = bm.Clone()
			}
		}
	}

	if dir != DirectionIncoming {
		merge(e.out)
	}
	if dir != DirectionOutgoing {
		merge(e.in)
	}

	for _, k := range sortedKeys(kinds) {
		ret = append(ret, kinds[k].ToArray()...)
	}

	return ret
}

/*
Traverse follows the edges of a node. An empty kind follows edges of all
kinds. Returns the traversed edges and the nodes at the other end (in the
same order).
*/
func (gm *Manager) Traverse(node uint64, kind string, dir Direction) ([]*data.Edge, []*data.Node, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	e := gm.nodes.get(node)
	if e == nil {
		return nil, nil, nodeNotFound(node)
	}

	ids := gm.adjacentEdges(e, kind, dir)

	edges := make([]*data.Edge, 0, len(ids))
	nodes := make([]*data.Node, 0, len(ids))

	for _, id := range ids {
		edge := gm.edges.get(id)

		edges = append(edges, edge.Clone())
		nodes = append(nodes, gm.nodes.get(edge.OtherEnd(node)).node.Clone())
	}

	return edges, nodes, nil
}

/*
FetchEdge fetches a single edge. The returned edge is a copy.
*/
func (gm *Manager) FetchEdge(id uint64) (*data.Edge, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	edge := gm.edges.get(id)
	if edge == nil {
		return nil, edgeNotFound(id)
	}

	return edge.Clone(), nil
}

/*
CreateEdge creates a new edge of a given kind from a source node to a
destination node. Returns the identifier of the new edge.
*/
func (gm *Manager) CreateEdge(kind string, src uint64, dst uint64, props map[string]data.Value) (uint64, error) {

	if err := checkNames("Edge kind", kind); err != nil {
		return 0, err
	}

	if err := checkProps(props); err != nil {
		return 0, err
	}

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if gm.nodes.get(src) == nil {
		return 0, nodeNotFound(src)
	} else if gm.nodes.get(dst) == nil {
		return 0, nodeNotFound(dst)
	}

	id := gm.edgeSlots.Allocate()

	edge := data.NewEdge(id, kind, src, dst)
	for k, v := range props {
		edge.SetAttr(k, v)
	}

	gm.insertEdge(edge)

	// Execute rules

	if err := gm.gr.graphEvent(EventEdgeCreated, edge.Clone()); err != nil && err != ErrEventHandled {
		return id, err
	}

	return id, nil
}

/*
insertEdge adds an edge record to all data structures including the
adjacency of both ends. It is assumed that the caller holds the writer lock,
that the identifier was allocated and that both ends exist.
*/
func (gm *Manager) insertEdge(edge *data.Edge) {
	gm.edges.put(edge.ID, edge)
	gm.allEdges.Add(edge.ID)

	addToSet(gm.kinds, edge.Kind, edge.ID)
	addToSet(gm.nodes.get(edge.Src).out, edge.Kind, edge.ID)
	addToSet(gm.nodes.get(edge.Dst).in, edge.Kind, edge.ID)
}

/*
SetEdgeProperty sets a property of an edge. An existing value is overwritten.
Setting the Null value keeps the key present.
*/
func (gm *Manager) SetEdgeProperty(id uint64, key string, val data.Value) error {
	if key == "" {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: "Edge property key is empty"}
	}

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	edge := gm.edges.get(id)
	if edge == nil {
		return edgeNotFound(id)
	}

	old, hasOld := edge.Attr(key)

	edge.SetAttr(key, val)

	// Execute rules

	var oldVal interface{}
	if hasOld {
		oldVal = old
	}

	if err := gm.gr.graphEvent(EventEdgeUpdated, edge.Clone(), key, oldVal); err != nil && err != ErrEventHandled {
		return err
	}

	return nil
}

/*
RemoveEdge removes a single edge. Returns the removed edge.
*/
func (gm *Manager) RemoveEdge(id uint64) (*data.Edge, error) {

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if gm.edges.get(id) == nil {
		return nil, edgeNotFound(id)
	}

	edge := gm.deleteEdge(id)

	// Execute rules

	if err := gm.gr.graphEvent(EventEdgeDeleted, edge.Clone()); err != nil && err != ErrEventHandled {
		return edge, err
	}

	return edge, nil
}

/*
deleteEdge removes an edge from all data structures and tombstones its slot.
It is assumed that the caller holds the writer lock. Returns the deleted edge.
*/
func (gm *Manager) deleteEdge(id uint64) *data.Edge {
	edge := gm.edges.get(id)

	if e := gm.nodes.get(edge.Src); e != nil {
		removeFromSet(e.out, edge.Kind, id)
	}
	if e := gm.nodes.get(edge.Dst); e != nil {
		removeFromSet(e.in, edge.Kind, id)
	}

	removeFromSet(gm.kinds, edge.Kind, id)

	gm.allEdges.Remove(id)
	gm.edges.clear(id)
	gm.edgeSlots.Release(id)

	return edge
}

/*
edgeNotFound returns the error for a missing edge.
*/
func edgeNotFound(id uint64) error {
	return &util.GraphError{Type: util.ErrNotFound, Detail: fmt.Sprintf("Edge %v", id)}
}
