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
Package graphstorage contains classes which store graph snapshots.

There are four storage objects: DiskGraphStorage which stores snapshots in a
directory, MemoryGraphStorage which keeps snapshots in memory only,
MinioGraphStorage and S3GraphStorage which store snapshots as objects in a
bucket.
*/
package graphstorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/timeutil"
	"devt.de/krotik/eliasgraph/graph/util"
)

/*
FilenameCatalog is the filename for the snapshot catalog
*/
var FilenameCatalog = "catalog.pm"

/*
DiskGraphStorage data structure
*/
type DiskGraphStorage struct {
	name     string                        // Name of the graph storage (directory)
	readonly bool                          // Flag for readonly mode
	catalog  *datautil.PersistentStringMap // Catalog of stored snapshots
	lock     *sync.Mutex                   // Lock for catalog access
}

/*
NewDiskGraphStorage creates a new DiskGraphStorage instance.
*/
func NewDiskGraphStorage(name string, readonly bool) (*DiskGraphStorage, error) {

	dgs := &DiskGraphStorage{name, readonly, nil, &sync.Mutex{}}

	// Load the graph storage if the storage directory already exists if not try to create it

	if res, _ := fileutil.PathExists(name); !res {
		if readonly {
			return nil, &util.GraphError{Type: util.ErrReadOnly,
				Detail: fmt.Sprintf("Storage directory %v does not exist", name)}
		}

		if err := os.MkdirAll(name, 0770); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}

		catalog, err := datautil.NewPersistentStringMap(filepath.Join(name, FilenameCatalog))
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}

		dgs.catalog = catalog

	} else {

		catalog, err := datautil.LoadPersistentStringMap(filepath.Join(name, FilenameCatalog))
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}

		dgs.catalog = catalog
	}

	return dgs, nil
}

/*
Name returns the name of the DiskGraphStorage instance.
*/
func (dgs *DiskGraphStorage) Name() string {
	return dgs.name
}

/*
snapshotFile returns the file name of the snapshot of a graph.
*/
func (dgs *DiskGraphStorage) snapshotFile(graph string) string {
	return filepath.Join(dgs.name, graph+SnapshotExtension)
}

/*
StoreSnapshot stores the snapshot of a graph. The snapshot is written to a
temporary file first which then replaces the previous snapshot.
*/
func (dgs *DiskGraphStorage) StoreSnapshot(ctx context.Context, graph string, data []byte) error {

	// Fail operation when readonly

	if dgs.readonly {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: "Cannot store snapshot of " + graph}
	}

	if err := ctx.Err(); err != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	dgs.lock.Lock()
	defer dgs.lock.Unlock()

	tmp, err := os.CreateTemp(dgs.name, graph+".*.tmp")
	if err != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dgs.snapshotFile(graph))
	}

	if err != nil {
		os.Remove(tmp.Name())
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	dgs.catalog.Data[graph] = timeutil.MakeTimestamp()

	if err := dgs.catalog.Flush(); err != nil {
		return &util.GraphError{Type: util.ErrFlushing, Detail: err.Error()}
	}

	return nil
}

/*
LoadSnapshot loads the snapshot of a graph.
*/
func (dgs *DiskGraphStorage) LoadSnapshot(ctx context.Context, graph string) ([]byte, error) {
	dgs.lock.Lock()
	_, ok := dgs.catalog.Data[graph]
	dgs.lock.Unlock()

	if !ok {
		return nil, snapshotNotFound(dgs.name, graph)
	}

	if err := ctx.Err(); err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	data, err := os.ReadFile(dgs.snapshotFile(graph))
	if os.IsNotExist(err) {
		return nil, snapshotNotFound(dgs.name, graph)
	} else if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	return data, nil
}

/*
RemoveSnapshot removes the snapshot of a graph.
*/
func (dgs *DiskGraphStorage) RemoveSnapshot(ctx context.Context, graph string) error {

	// Fail operation when readonly

	if dgs.readonly {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: "Cannot remove snapshot of " + graph}
	}

	dgs.lock.Lock()
	defer dgs.lock.Unlock()

	if _, ok := dgs.catalog.Data[graph]; !ok {
		return nil
	}

	if err := os.Remove(dgs.snapshotFile(graph)); err != nil && !os.IsNotExist(err) {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	delete(dgs.catalog.Data, graph)

	if err := dgs.catalog.Flush(); err != nil {
		return &util.GraphError{Type: util.ErrFlushing, Detail: err.Error()}
	}

	return nil
}

/*
Snapshots returns the names of all graphs which have a snapshot.
*/
func (dgs *DiskGraphStorage) Snapshots(ctx context.Context) ([]string, error) {
	dgs.lock.Lock()
	defer dgs.lock.Unlock()

	ret := make([]string, 0, len(dgs.catalog.Data))

	for graph := range dgs.catalog.Data {
		ret = append(ret, graph)
	}

	sort.Strings(ret)

	return ret, nil
}

/*
Saved returns the timestamp of the last stored snapshot of a graph.
*/
func (dgs *DiskGraphStorage) Saved(graph string) (string, bool) {
	dgs.lock.Lock()
	defer dgs.lock.Unlock()

	ts, ok := dgs.catalog.Data[graph]

	return ts, ok
}

/*
Close closes the storage.
*/
func (dgs *DiskGraphStorage) Close() error {

	if dgs.readonly {
		return nil
	}

	dgs.lock.Lock()
	defer dgs.lock.Unlock()

	var errors []string

	if err := dgs.catalog.Flush(); err != nil {
		errors = append(errors, err.Error())
	}

	// Remove temporary files of interrupted writes

	tmpFiles, _ := filepath.Glob(filepath.Join(dgs.name, "*.tmp"))

	for _, f := range tmpFiles {
		if err := os.Remove(f); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		details := fmt.Sprint(dgs.name, " :", strings.Join(errors, "; "))

		return &util.GraphError{Type: util.ErrClosing, Detail: details}
	}

	return nil
}
