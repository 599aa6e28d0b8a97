/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"devt.de/krotik/common/httputil"
	"devt.de/krotik/common/lockutil"
	"devt.de/krotik/common/logutil"
	"devt.de/krotik/eliasgraph/api"
	"devt.de/krotik/eliasgraph/config"
	"devt.de/krotik/eliasgraph/graph/graphstorage"
	"devt.de/krotik/eliasgraph/graph/util"
	"devt.de/krotik/eliasgraph/server"
)

/*
Using custom consolelogger type so we can test log.Fatal calls with unit tests. Overwrite
these if the server should not call os.Exit on a fatal error.
*/
type consolelogger func(v ...interface{})

var fatal = consolelogger(log.Fatal)
var print = consolelogger(log.Print)

/*
Base path for all file (used by unit tests)
*/
var basepath = ""

/*
Interval in which the lockfile is checked
*/
var lockInterval = 2 * time.Second

/*
Output of log messages
*/
var logOutput io.Writer = os.Stderr

/*
setupLogging installs a log sink on the root scope with the configured level.
*/
func setupLogging() {
	level := logutil.StringToLoglevel(config.Str(config.LogLevel))

	if level == "" {
		print("Unknown log level ", config.Str(config.LogLevel), " - using info")
		level = logutil.Info
	}

	logutil.ClearLogSinks()
	logutil.GetLogger("").AddLogSink(level, logutil.SimpleFormatter(), logOutput)
}

/*
createStorage creates the configured snapshot storage.
*/
func createStorage(ctx context.Context) (graphstorage.Storage, error) {
	switch kind := config.Str(config.SnapshotStorage); kind {

	case config.StorageMemory:
		print("Keeping snapshots in memory")

		return graphstorage.NewMemoryGraphStorage(config.StorageMemory), nil

	case config.StorageDisk:
		loc := filepath.Join(basepath, config.Str(config.LocationSnapshots))
		readonly := config.Bool(config.EnableReadOnly)

		if readonly {
			print("Using snapshot directory (readonly) ", loc)
		} else {
			print("Using snapshot directory ", loc)
		}

		return graphstorage.NewDiskGraphStorage(loc, readonly)

	case config.StorageMinio:
		print("Using MinIO bucket ", config.Str(config.SnapshotBucket), " on ",
			config.Str(config.MinioEndpoint))

		client, err := graphstorage.NewMinioClient(config.Str(config.MinioEndpoint),
			config.Str(config.MinioAccessKey), config.Str(config.MinioSecretKey),
			config.Bool(config.MinioUseSSL))

		if err != nil {
			return nil, err
		}

		return graphstorage.NewMinioGraphStorage(ctx, client, config.Str(config.SnapshotBucket),
			config.Str(config.SnapshotPrefix))

	case config.StorageS3:
		print("Using S3 bucket ", config.Str(config.SnapshotBucket))

		client, err := graphstorage.NewS3Client(ctx, config.Str(config.S3Region))
		if err != nil {
			return nil, err
		}

		return graphstorage.NewS3GraphStorage(client, config.Str(config.SnapshotBucket),
			config.Str(config.SnapshotPrefix)), nil

	default:
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Unknown snapshot storage: %v", kind)}
	}
}

/*
StartServer runs the EliasGraph server. The server uses config.Config for all its configuration
parameters. If the started function is not nil it is called once the server is running.
The server runs until its lockfile is modified.
*/
func StartServer(started func(*server.Server)) {
	ctx := context.Background()

	print(fmt.Sprintf("EliasGraph %v", config.ProductVersion))

	// Ensure we have a configuration - use the default configuration if nothing was set

	if config.Config == nil {
		config.LoadDefaultConfig()
	}

	setupLogging()

	compression, err := util.ParseCompression(config.Str(config.SnapshotCompression))
	if err != nil {
		fatal(err)
		return
	}

	gs, err := createStorage(ctx)
	if err != nil {
		fatal("Failed to create snapshot storage:", err)
		return
	}

	gsrv := server.NewServer(gs, server.Options{
		Compression:     compression,
		CompactOnReload: config.Bool(config.CompactOnReload),
		ReadOnly:        config.Bool(config.EnableReadOnly),
	})

	defer func() {

		print("Closing snapshot storage")

		if err := gsrv.Close(); err != nil {
			fatal(err)
			return
		}

		os.RemoveAll(filepath.Join(basepath, config.Str(config.LockFile)))
	}()

	// Restore all stored graphs - graphs which cannot be restored are reported

	print("Restoring graphs from ", gs.Name())

	if err := gsrv.Restore(ctx); err != nil {
		print("Some graphs could not be restored: ", err)
	}

	print(fmt.Sprintf("Restored %v graph(s)", len(gsrv.Graphs())))

	// Register event feed and metrics

	api.RegisterEndpoints(http.DefaultServeMux, gsrv, api.NewEventFeed(gsrv))

	// Start HTTP server

	hs := &httputil.HTTPServer{}

	var wg sync.WaitGroup
	wg.Add(1)

	addr := config.Str(config.EventFeedAddress)

	print("Starting event feed and metrics on: ", addr)

	go hs.RunHTTPServer(addr, &wg)

	// Wait until the server has started

	wg.Wait()

	if hs.LastError != nil {
		fatal(hs.LastError)
		return
	}

	// Create a lockfile so the server can be shut down

	lf := lockutil.NewLockFile(filepath.Join(basepath, config.Str(config.LockFile)), lockInterval)

	if err := lf.Start(); err != nil {
		hs.Shutdown()
		fatal("Failed to create lockfile:", err)
		return
	}

	go func() {

		// Check if the lockfile watcher is running and
		// call shutdown once it has finished

		for lf.WatcherRunning() {
			time.Sleep(lockInterval / 2)
		}

		print("Lockfile was modified")

		hs.Shutdown()
	}()

	if started != nil {
		started(gsrv)
	}

	// Add to the wait group so we can wait for the shutdown

	wg.Add(1)

	print("Waiting for shutdown")
	wg.Wait()

	print("Shutting down")

	if !config.Bool(config.EnableReadOnly) {
		if err := gsrv.SaveAll(ctx); err != nil {
			print("Could not save all graphs: ", err)
		}
	}
}
