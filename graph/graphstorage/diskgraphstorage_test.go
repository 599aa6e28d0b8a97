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
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/eliasgraph/graph/util"
)

const diskGraphStorageTestDBDir = "diskgraphstoragetest1"
const diskGraphStorageTestDBDir2 = "diskgraphstoragetest2"

var dbdirs = []string{diskGraphStorageTestDBDir, diskGraphStorageTestDBDir2}

const invalidFileName = "**" + "\x00"

// Main function for all tests in this package

func TestMain(m *testing.M) {
	flag.Parse()

	for _, dbdir := range dbdirs {
		if res, _ := fileutil.PathExists(dbdir); res {
			if err := os.RemoveAll(dbdir); err != nil {
				fmt.Print("Could not remove test directory:", err.Error())
			}
		}
	}

	// Run the tests

	res := m.Run()

	// Teardown

	for _, dbdir := range dbdirs {
		if res, _ := fileutil.PathExists(dbdir); res {
			if err := os.RemoveAll(dbdir); err != nil {
				fmt.Print("Could not remove test directory:", err.Error())
			}
		}
	}

	os.Exit(res)
}

func TestDiskGraphStorage(t *testing.T) {
	ctx := context.Background()

	dgs, err := NewDiskGraphStorage(diskGraphStorageTestDBDir, false)
	if err != nil {
		t.Error(err)
		return
	}

	if res := dgs.Name(); res != diskGraphStorageTestDBDir {
		t.Error("Unexpected name:", res)
		return
	}

	if _, err := dgs.LoadSnapshot(ctx, "main"); !errors.Is(err, util.ErrNotFound) {
		t.Error("Unexpected error:", err)
		return
	}

	if err := dgs.StoreSnapshot(ctx, "main", []byte("snapshot1")); err != nil {
		t.Error(err)
		return
	}

	if err := dgs.StoreSnapshot(ctx, "main", []byte("snapshot2")); err != nil {
		t.Error(err)
		return
	}

	if err := dgs.StoreSnapshot(ctx, "other", []byte("snapshot3")); err != nil {
		t.Error(err)
		return
	}

	if ts, ok := dgs.Saved("main"); !ok || ts == "" {
		t.Error("Unexpected timestamp:", ts, ok)
		return
	}

	if err := dgs.Close(); err != nil {
		t.Error(err)
		return
	}

	// Reopen the storage

	dgs, err = NewDiskGraphStorage(diskGraphStorageTestDBDir, false)
	if err != nil {
		t.Error(err)
		return
	}

	data, err := dgs.LoadSnapshot(ctx, "main")
	if string(data) != "snapshot2" || err != nil {
		t.Error("Unexpected result:", string(data), err)
		return
	}

	if res, _ := dgs.Snapshots(ctx); fmt.Sprint(res) != "[main other]" {
		t.Error("Unexpected result:", res)
		return
	}

	// No temporary files are left over

	if res, _ := filepath.Glob(filepath.Join(diskGraphStorageTestDBDir, "*.tmp")); len(res) != 0 {
		t.Error("Unexpected files:", res)
		return
	}

	if err := dgs.RemoveSnapshot(ctx, "other"); err != nil {
		t.Error(err)
		return
	}

	if err := dgs.RemoveSnapshot(ctx, "other"); err != nil {
		t.Error(err)
		return
	}

	if res, _ := dgs.Snapshots(ctx); fmt.Sprint(res) != "[main]" {
		t.Error("Unexpected result:", res)
		return
	}

	// A snapshot file which disappeared is not found

	os.Remove(filepath.Join(diskGraphStorageTestDBDir, "main"+SnapshotExtension))

	if _, err := dgs.LoadSnapshot(ctx, "main"); !errors.Is(err, util.ErrNotFound) {
		t.Error("Unexpected error:", err)
		return
	}

	// Cancelled contexts are respected

	cctx, cancel := context.WithCancel(ctx)
	cancel()

	if err := dgs.StoreSnapshot(cctx, "main", nil); !errors.Is(err, util.ErrWriting) {
		t.Error("Unexpected error:", err)
		return
	}

	dgs.Close()
}

func TestDiskGraphStorageReadOnly(t *testing.T) {
	ctx := context.Background()

	if _, err := NewDiskGraphStorage(diskGraphStorageTestDBDir2, true); !errors.Is(err, util.ErrReadOnly) {
		t.Error("Unexpected error:", err)
		return
	}

	dgs, _ := NewDiskGraphStorage(diskGraphStorageTestDBDir2, false)
	dgs.StoreSnapshot(ctx, "main", []byte("data"))
	dgs.Close()

	dgs, err := NewDiskGraphStorage(diskGraphStorageTestDBDir2, true)
	if err != nil {
		t.Error(err)
		return
	}

	if data, err := dgs.LoadSnapshot(ctx, "main"); string(data) != "data" || err != nil {
		t.Error("Unexpected result:", string(data), err)
		return
	}

	if err := dgs.StoreSnapshot(ctx, "main", nil); err == nil ||
		err.Error() != "GraphError: Failed write to readonly storage (Cannot store snapshot of main)" {
		t.Error("Unexpected error:", err)
		return
	}

	if err := dgs.RemoveSnapshot(ctx, "main"); !errors.Is(err, util.ErrReadOnly) {
		t.Error("Unexpected error:", err)
		return
	}

	if err := dgs.Close(); err != nil {
		t.Error(err)
		return
	}

	if _, err := NewDiskGraphStorage(invalidFileName, false); !errors.Is(err, util.ErrOpening) {
		t.Error("Unexpected error:", err)
		return
	}
}

func TestMemoryGraphStorage(t *testing.T) {
	ctx := context.Background()

	var mgs Storage = NewMemoryGraphStorage("mem")

	if mgs.Name() != "mem" {
		t.Error("Unexpected name:", mgs.Name())
		return
	}

	data := []byte("abc")
	mgs.StoreSnapshot(ctx, "g1", data)
	mgs.StoreSnapshot(ctx, "g0", data)

	// Stored data is a copy

	data[0] = 'x'

	if res, err := mgs.LoadSnapshot(ctx, "g1"); string(res) != "abc" || err != nil {
		t.Error("Unexpected result:", string(res), err)
		return
	}

	if res, _ := mgs.Snapshots(ctx); fmt.Sprint(res) != "[g0 g1]" {
		t.Error("Unexpected result:", res)
		return
	}

	mgs.RemoveSnapshot(ctx, "g1")

	if _, err := mgs.LoadSnapshot(ctx, "g1"); err == nil ||
		err.Error() != "GraphError: Entity not found (No snapshot for graph g1 in mem)" {
		t.Error("Unexpected error:", err)
		return
	}

	mgs.(*MemoryGraphStorage).AccessErr = errors.New("Test error")

	if err := mgs.StoreSnapshot(ctx, "g1", data); !errors.Is(err, util.ErrWriting) {
		t.Error("Unexpected error:", err)
		return
	}

	if _, err := mgs.LoadSnapshot(ctx, "g0"); !errors.Is(err, util.ErrReading) {
		t.Error("Unexpected error:", err)
		return
	}

	if _, err := mgs.Snapshots(ctx); !errors.Is(err, util.ErrReading) {
		t.Error("Unexpected error:", err)
		return
	}

	if err := mgs.RemoveSnapshot(ctx, "g0"); !errors.Is(err, util.ErrWriting) {
		t.Error("Unexpected error:", err)
		return
	}

	if err := mgs.Close(); err != nil {
		t.Error(err)
		return
	}
}

func TestGraphNames(t *testing.T) {
	res := graphNames("snap/", []string{"snap/b.egsn", "snap/a.egsn", "snap/x/c.egsn",
		"snap/readme.txt", "snap/.egsn"})

	if fmt.Sprint(res) != "[a b]" {
		t.Error("Unexpected result:", res)
		return
	}
}
