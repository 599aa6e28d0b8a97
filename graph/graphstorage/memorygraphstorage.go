/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphstorage

import (
	"context"
	"sort"
	"sync"

	"devt.de/krotik/eliasgraph/graph/util"
)

/*
MemoryGraphStorage data structure
*/
type MemoryGraphStorage struct {
	name      string            // Name of the graph storage
	snapshots map[string][]byte // Stored snapshots
	lock      *sync.RWMutex     // Lock for snapshot access

	AccessErr error // Error which is returned by all operations (for testing)
}

/*
NewMemoryGraphStorage creates a new MemoryGraphStorage instance.
*/
func NewMemoryGraphStorage(name string) *MemoryGraphStorage {
	return &MemoryGraphStorage{name, make(map[string][]byte), &sync.RWMutex{}, nil}
}

/*
Name returns the name of the MemoryGraphStorage instance.
*/
func (mgs *MemoryGraphStorage) Name() string {
	return mgs.name
}

/*
StoreSnapshot stores a copy of the snapshot of a graph.
*/
func (mgs *MemoryGraphStorage) StoreSnapshot(ctx context.Context, graph string, data []byte) error {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	if mgs.AccessErr != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: mgs.AccessErr.Error()}
	}

	mgs.snapshots[graph] = append([]byte(nil), data...)

	return nil
}

/*
LoadSnapshot returns a copy of the snapshot of a graph.
*/
func (mgs *MemoryGraphStorage) LoadSnapshot(ctx context.Context, graph string) ([]byte, error) {
	mgs.lock.RLock()
	defer mgs.lock.RUnlock()

	if mgs.AccessErr != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: mgs.AccessErr.Error()}
	}

	data, ok := mgs.snapshots[graph]
	if !ok {
		return nil, snapshotNotFound(mgs.name, graph)
	}

	return append([]byte(nil), data...), nil
}

/*
RemoveSnapshot removes the snapshot of a graph.
*/
func (mgs *MemoryGraphStorage) RemoveSnapshot(ctx context.Context, graph string) error {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	if mgs.AccessErr != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: mgs.AccessErr.Error()}
	}

	delete(mgs.snapshots, graph)

	return nil
}

/*
Snapshots returns the names of all graphs which have a snapshot.
*/
func (mgs *MemoryGraphStorage) Snapshots(ctx context.Context) ([]string, error) {
	mgs.lock.RLock()
	defer mgs.lock.RUnlock()

	if mgs.AccessErr != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: mgs.AccessErr.Error()}
	}

	ret := make([]string, 0, len(mgs.snapshots))

	for graph := range mgs.snapshots {
		ret = append(ret, graph)
	}

	sort.Strings(ret)

	return ret, nil
}

/*
Corrupt replaces a stored snapshot with arbitrary data (for testing).
*/
func (mgs *MemoryGraphStorage) Corrupt(graph string, data []byte) {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	mgs.snapshots[graph] = data
}

/*
Close closes the storage.
*/
func (mgs *MemoryGraphStorage) Close() error {
	return nil
}
