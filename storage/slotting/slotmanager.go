/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package slotting contains the identifier slot management of the graph store.

A SlotManager owns a dense identifier space. Every identifier which was ever
handed out occupies a slot which is either live or a tombstone. Releasing an
identifier only marks its slot as a tombstone; it is never handed out again
by the same slot manager. Tombstones become reusable free slots only when a
new slot manager is restored from a previous generation without compaction.
Free slots are handed out smallest first before any new slot is appended.
*/
package slotting

import (
	"container/heap"
	"fmt"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/sortutil"
	"github.com/bits-and-blooms/bitset"
)

/*
SlotManager data structure
*/
type SlotManager struct {
	size       uint64            // Number of slots (next unused identifier)
	live       uint64            // Number of live slots
	tombstones *bitset.BitSet    // Tombstone marker per slot
	free       *sortutil.IntHeap // Free slots of a previous generation
}

/*
NewSlotManager creates a new empty slot manager.
*/
func NewSlotManager() *SlotManager {
	return &SlotManager{0, 0, bitset.New(1024), &sortutil.IntHeap{}}
}

/*
RestoreSlotManager restores a slot manager with a given number of slots and
a list of tombstoned slots. If reuse is set the tombstones become free slots
which are handed out again by Allocate.
*/
func RestoreSlotManager(size uint64, tombstones []uint64, reuse bool) (*SlotManager, error) {
	sm := &SlotManager{size, size, bitset.New(uint(size)), &sortutil.IntHeap{}}

	for _, id := range tombstones {
		if id >= size {
			return nil, fmt.Errorf("Tombstone %v is outside of slot range %v", id, size)
		} else if sm.tombstones.Test(uint(id)) {
			return nil, fmt.Errorf("Duplicate tombstone %v", id)
		}

		sm.tombstones.Set(uint(id))
		sm.live--

		if reuse {
			*sm.free = append(*sm.free, int(id))
		}
	}

	heap.Init(sm.free)

	return sm, nil
}

/*
Allocate returns a new identifier.
*/
func (sm *SlotManager) Allocate() uint64 {
	var id uint64

	if sm.free.Len() > 0 {
		id = uint64(heap.Pop(sm.free).(int))

		errorutil.AssertTrue(sm.tombstones.Test(uint(id)),
			fmt.Sprint("Free slot is not a tombstone: ", id))

		sm.tombstones.Clear(uint(id))

	} else {
		id = sm.size
		sm.size++
	}

	sm.live++

	return id
}

/*
Release tombstones the slot of a given identifier. Returns false if the
identifier is not live.
*/
func (sm *SlotManager) Release(id uint64) bool {
	if !sm.IsLive(id) {
		return false
	}

	sm.tombstones.Set(uint(id))
	sm.live--

	return true
}

/*
IsLive returns true if a given identifier is currently allocated.
*/
func (sm *SlotManager) IsLive(id uint64) bool {
	return id < sm.size && !sm.tombstones.Test(uint(id))
}

/*
Size returns the number of slots including tombstones.
*/
func (sm *SlotManager) Size() uint64 {
	return sm.size
}

/*
LiveCount returns the number of live identifiers.
*/
func (sm *SlotManager) LiveCount() uint64 {
	return sm.live
}

/*
FreeCount returns the number of free slots which can be reused.
*/
func (sm *SlotManager) FreeCount() int {
	return sm.free.Len()
}

/*
Tombstoned returns all tombstoned identifiers in ascending order.
*/
func (sm *SlotManager) Tombstoned() []uint64 {
	ret := make([]uint64, 0, sm.size-sm.live)

	for i, ok := sm.tombstones.NextSet(0); ok && uint64(i) < sm.size; i, ok = sm.tombstones.NextSet(i + 1) {
		ret = append(ret, uint64(i))
	}

	return ret
}

/*
String returns a string representation of this slot manager.
*/
func (sm *SlotManager) String() string {
	return fmt.Sprintf("SlotManager: size=%v live=%v free=%v tombstones=%v",
		sm.size, sm.live, sm.free.Len(), sm.Tombstoned())
}
