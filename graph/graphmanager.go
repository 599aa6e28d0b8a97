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
	"sort"
	"sync"

	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
	"devt.de/krotik/eliasgraph/storage/slotting"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/uuid"
)

/*
Manager data structure
*/
type Manager struct {
	gr         *graphRulesManager                     // Manager for graph rules
	mutex      *sync.RWMutex                          // Mutex to protect atomic graph operations
	generation uint64                                 // Generation of this manager
	origin     uuid.UUID                              // Snapshot this manager was decoded from
	nodeSlots  *slotting.SlotManager                  // Identifier slots of nodes
	edgeSlots  *slotting.SlotManager                  // Identifier slots of edges
	nodes      *arena[nodeEntry]                      // Node records by identifier
	edges      *arena[data.Edge]                      // Edge records by identifier
	allNodes   *roaring64.Bitmap                      // Identifiers of all live nodes
	allEdges   *roaring64.Bitmap                      // Identifiers of all live edges
	labels     map[string]*roaring64.Bitmap           // Label index
	kinds      map[string]*roaring64.Bitmap           // Edge kind index
	indices    map[string]map[string]*util.ValueIndex // Property indices (label -> key -> index)
}

/*
nodeEntry is the record of a live node together with its adjacency.
*/
type nodeEntry struct {
	node *data.Node                   // Node data
	out  map[string]*roaring64.Bitmap // Outgoing edges by kind
	in   map[string]*roaring64.Bitmap // Incoming edges by kind
}

/*
arena stores records in a dense slice indexed by identifier.
*/
type arena[T any] struct {
	slots []*T
}

/*
get returns the record of an identifier or nil.
*/
func (a *arena[T]) get(id uint64) *T {
	if id >= uint64(len(a.slots)) {
		return nil
	}
	return a.slots[id]
}

/*
put stores a record for an identifier.
*/
func (a *arena[T]) put(id uint64, v *T) {
	for uint64(len(a.slots)) <= id {
		a.slots = append(a.slots, nil)
	}
	a.slots[id] = v
}

/*
clear removes the record of an identifier.
*/
func (a *arena[T]) clear(id uint64) {
	if id < uint64(len(a.slots)) {
		a.slots[id] = nil
	}
}

/*
NewGraphManager returns a new GraphManager instance.
*/
func NewGraphManager() *Manager {
	gm := createGraphManager(slotting.NewSlotManager(), slotting.NewSlotManager())

	gm.SetGraphRule(&SystemRuleDeleteNodeEdges{})

	return gm
}

/*
createGraphManager creates a new GraphManager instance without any rules.
*/
func createGraphManager(nodeSlots *slotting.SlotManager, edgeSlots *slotting.SlotManager) *Manager {
	gm := &Manager{&graphRulesManager{nil, make(map[string]Rule),
		make(map[int]map[string]Rule)}, &sync.RWMutex{}, 1, uuid.Nil,
		nodeSlots, edgeSlots, &arena[nodeEntry]{}, &arena[data.Edge]{},
		roaring64.New(), roaring64.New(), make(map[string]*roaring64.Bitmap),
		make(map[string]*roaring64.Bitmap), make(map[string]map[string]*util.ValueIndex)}

	gm.gr.gm = gm

	return gm
}

/*
Generation returns the generation of this manager. A new manager starts with
generation 1 and every decode increases the generation by one.
*/
func (gm *Manager) Generation() uint64 {
	return gm.generation
}

/*
Origin returns the id of the snapshot which this manager was decoded from.
Returns uuid.Nil for a manager which was not decoded from a snapshot.
*/
func (gm *Manager) Origin() uuid.UUID {
	return gm.origin
}

/*
SetGraphRule sets a GraphRule.
*/
func (gm *Manager) SetGraphRule(rule Rule) {
	gm.gr.SetGraphRule(rule)
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gm *Manager) GraphRules() []string {
	return gm.gr.GraphRules()
}

/*
Labels returns all node labels which are currently in use.
*/
func (gm *Manager) Labels() []string {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	return sortedKeys(gm.labels)
}

/*
EdgeKinds returns all edge kinds which are currently in use.
*/
func (gm *Manager) EdgeKinds() []string {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	return sortedKeys(gm.kinds)
}

/*
String returns a summary of this graph manager.
*/
func (gm *Manager) String() string {
	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	return fmt.Sprintf("GraphManager (generation %v): %v nodes (%v slots), "+
		"%v edges (%v slots), labels: %v, kinds: %v, indices: %v",
		gm.generation, gm.nodeSlots.LiveCount(), gm.nodeSlots.Size(),
		gm.edgeSlots.LiveCount(), gm.edgeSlots.Size(), sortedKeys(gm.labels),
		sortedKeys(gm.kinds), gm.indexDecls())
}

/*
sortedKeys returns the sorted keys of a bitmap map.
*/
func sortedKeys(m map[string]*roaring64.Bitmap) []string {
	ret := make([]string, 0, len(m))

	for k := range m {
		ret = append(ret, k)
	}

	sort.Strings(ret)

	return ret
}

/*
addToSet adds an identifier to a named set. The set is created if needed.
*/
func addToSet(m map[string]*roaring64.Bitmap, name string, id uint64) {
	bm, ok := m[name]
	if !ok {
		bm = roaring64.New()
		m[name] = bm
	}
	bm.Add(id)
}

/*
removeFromSet removes an identifier from a named set. Empty sets are removed.
*/
func removeFromSet(m map[string]*roaring64.Bitmap, name string, id uint64) {
	if bm, ok := m[name]; ok {
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(m, name)
		}
	}
}
