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
	"runtime"
	"sort"

	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
	"golang.org/x/sync/errgroup"
)

/*
IndexDecl declares a property index on a (label, key) pair.
*/
type IndexDecl struct {
	Label string // Node label
	Key   string // Property key
}

/*
String returns a string representation of this index declaration.
*/
func (d IndexDecl) String() string {
	return fmt.Sprintf(":%v(%v)", d.Label, d.Key)
}

/*
CreateIndex creates a property index for all nodes of a given label. The
index is filled with the current nodes before it becomes visible. Returns
false if the index already exists.
*/
func (gm *Manager) CreateIndex(label string, key string) (bool, error) {

	if err := checkNames("Index label", label); err != nil {
		return false, err
	} else if err := checkNames("Index key", key); err != nil {
		return false, err
	}

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	created, err := gm.createIndices([]IndexDecl{{label, key}})
	if err != nil || len(created) == 0 {
		return false, err
	}

	// Execute rules

	if err := gm.gr.graphEvent(EventIndexCreated, created[0]); err != nil && err != ErrEventHandled {
		return true, err
	}

	return true, nil
}

/*
createIndices creates and fills a list of property indices. Existing indices
are skipped. The indices are filled in parallel. It is assumed that the
caller holds the writer lock. Returns the declarations of the new indices.
*/
func (gm *Manager) createIndices(decls []IndexDecl) ([]IndexDecl, error) {
	var todo []IndexDecl

	seen := make(map[IndexDecl]bool)

	for _, d := range decls {
		if _, ok := gm.indices[d.Label][d.Key]; !ok && !seen[d] {
			seen[d] = true
			todo = append(todo, d)
		}
	}

	built := make([]*util.ValueIndex, len(todo))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, d := range todo {
		i, d := i, d

		g.Go(func() error {
			vi, err := gm.fillIndex(d)
			built[i] = vi
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Make the new indices visible

	for i, d := range todo {
		keys, ok := gm.indices[d.Label]
		if !ok {
			keys = make(map[string]*util.ValueIndex)
			gm.indices[d.Label] = keys
		}
		keys[d.Key] = built[i]
	}

	return todo, nil
}

/*
fillIndex builds a property index from the current nodes of a label. Only
reads the graph data so several indices can be filled concurrently.
*/
func (gm *Manager) fillIndex(d IndexDecl) (*util.ValueIndex, error) {
	vi := util.NewValueIndex()

	bm, ok := gm.labels[d.Label]
	if !ok {
		return vi, nil
	}

	it := bm.Iterator()

	for it.HasNext() {
		id := it.Next()

		e := gm.nodes.get(id)
		if e == nil {
			return nil, &util.GraphError{Type: util.ErrIndexError,
				Detail: fmt.Sprintf("Label %v references missing node %v", d.Label, id)}
		}

		if v, ok := e.node.Attr(d.Key); ok {
			vi.Add(v, id)
		}
	}

	return vi, nil
}

/*
DropIndex removes a property index. Returns false if the index did not exist.
*/
func (gm *Manager) DropIndex(label string, key string) bool {

	// Take writer lock

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	keys, ok := gm.indices[label]
	if !ok {
		return false
	}

	if _, ok := keys[key]; !ok {
		return false
	}

	delete(keys, key)

	if len(keys) == 0 {
		delete(gm.indices, label)
	}

	return true
}

/*
HasIndex returns if a property index exists for a given (label, key) pair.
*/
func (gm *Manager) HasIndex(label string, key string) bool {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	_, ok := gm.indices[label][key]

	return ok
}

/*
Indices returns all index declarations ordered by label and key.
*/
func (gm *Manager) Indices() []IndexDecl {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	return gm.indexDecls()
}

/*
indexDecls returns all index declarations ordered by label and key. It is
assumed that the caller holds a lock.
*/
func (gm *Manager) indexDecls() []IndexDecl {
	var ret []IndexDecl

	for label, keys := range gm.indices {
		for key := range keys {
			ret = append(ret, IndexDecl{label, key})
		}
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Label != ret[j].Label {
			return ret[i].Label < ret[j].Label
		}
		return ret[i].Key < ret[j].Key
	})

	return ret
}

/*
Lookup returns the identifiers of all nodes with a given label which have a
given property value. The (label, key) pair must be indexed.
*/
func (gm *Manager) Lookup(label string, key string, val data.Value) ([]uint64, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	vi, err := gm.index(label, key)
	if err != nil {
		return nil, err
	}

	return vi.Lookup(val)
}

/*
Range returns the identifiers of all nodes with a given label which have a
property value in the interval [lo, hi]. The result is ordered by value and
then by identifier. The (label, key) pair must be indexed.
*/
func (gm *Manager) Range(label string, key string, lo data.Value, hi data.Value) ([]uint64, error) {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	vi, err := gm.index(label, key)
	if err != nil {
		return nil, err
	}

	return vi.Range(lo, hi)
}

/*
index returns the property index of a (label, key) pair.
*/
func (gm *Manager) index(label string, key string) (*util.ValueIndex, error) {
	vi, ok := gm.indices[label][key]
	if !ok {
		return nil, &util.GraphError{Type: util.ErrNotFound,
			Detail: fmt.Sprintf("No index for %v", IndexDecl{label, key})}
	}

	return vi, nil
}

/*
indexNode adds all indexed properties of a node to their indices.
*/
func (gm *Manager) indexNode(node *data.Node) {
	for _, l := range node.Labels {
		for key, vi := range gm.indices[l] {
			if v, ok := node.Attr(key); ok {
				vi.Add(v, node.ID)
			}
		}
	}
}

/*
deindexNode removes all indexed properties of a node from their indices.
*/
func (gm *Manager) deindexNode(node *data.Node) {
	for _, l := range node.Labels {
		for key, vi := range gm.indices[l] {
			if v, ok := node.Attr(key); ok {
				vi.Remove(v, node.ID)
			}
		}
	}
}

/*
indexNodeProperty adds a single property value of a node to all matching indices.
*/
func (gm *Manager) indexNodeProperty(node *data.Node, key string, val data.Value) {
	for _, l := range node.Labels {
		if vi, ok := gm.indices[l][key]; ok {
			vi.Add(val, node.ID)
		}
	}
}

/*
deindexNodeProperty removes a single property value of a node from all
matching indices.
*/
func (gm *Manager) deindexNodeProperty(node *data.Node, key string, val data.Value) {
	for _, l := range node.Labels {
		if vi, ok := gm.indices[l][key]; ok {
			vi.Remove(val, node.ID)
		}
	}
}
