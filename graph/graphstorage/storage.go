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
	"fmt"

	"devt.de/krotik/eliasgraph/graph/util"
)

/*
Storage interface models the storage backend for graph snapshots. Every
named graph has at most one stored snapshot.
*/
type Storage interface {

	/*
	   Name returns the name of the GraphStorage instance.
	*/
	Name() string

	/*
		StoreSnapshot stores the snapshot of a graph. An existing snapshot of
		the graph is replaced.
	*/
	StoreSnapshot(ctx context.Context, graph string, data []byte) error

	/*
		LoadSnapshot loads the snapshot of a graph. Returns a NotFound error
		if there is no snapshot for the graph.
	*/
	LoadSnapshot(ctx context.Context, graph string) ([]byte, error)

	/*
		RemoveSnapshot removes the snapshot of a graph. Removing a snapshot
		which does not exist is not an error.
	*/
	RemoveSnapshot(ctx context.Context, graph string) error

	/*
		Snapshots returns the names of all graphs which have a snapshot in
		ascending order.
	*/
	Snapshots(ctx context.Context) ([]string, error)

	/*
		Close closes the storage.
	*/
	Close() error
}

/*
snapshotNotFound returns the error for a missing snapshot.
*/
func snapshotNotFound(storage string, graph string) error {
	return &util.GraphError{Type: util.ErrNotFound,
		Detail: fmt.Sprintf("No snapshot for graph %v in %v", graph, storage)}
}

/*
SnapshotExtension is the file extension of stored snapshots.
*/
const SnapshotExtension = ".egsn"
