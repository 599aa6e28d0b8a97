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
Package server contains the graph server which keeps a registry of named
graphs.

Every graph is guarded by its own exclusive section. Read-only queries share
the section while modifying queries, reloads and deletes hold it exclusively.
A reload writes the graph into a snapshot, stores it, reads it back and swaps
the graph. A failed reload leaves the graph as it was.
*/
package server

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/logutil"
	"devt.de/krotik/eliasgraph/graph"
	"devt.de/krotik/eliasgraph/graph/graphstorage"
	"devt.de/krotik/eliasgraph/graph/util"
	"devt.de/krotik/eliasgraph/query"
	"golang.org/x/sync/errgroup"
)

/*
Options of a server.
*/
type Options struct {
	Compression     util.Compression // Compression of written snapshots
	CompactOnReload bool             // Compact identifiers when reading snapshots
	ReadOnly        bool             // Reject all modifying queries
}

/*
graphEntry is a named graph with its exclusive section.
*/
type graphEntry struct {
	lock    sync.RWMutex   // Exclusive section of the graph
	gm      *graph.Manager // Current graph
	deleted bool           // Flag if the graph was removed from the registry
}

/*
Server keeps a registry of named graphs.
*/
type Server struct {
	storage      graphstorage.Storage   // Storage for snapshots
	opts         Options                // Server options
	lock         sync.Mutex             // Lock for the registry
	graphs       map[string]*graphEntry // Registry of graphs
	listenerLock sync.RWMutex           // Lock for listeners
	listeners    []Listener             // Event listeners
	Metrics      *Metrics               // Metrics of the server
	logger       logutil.Logger         // Logger of the server
}

/*
NewServer creates a new server which keeps its snapshots in a given storage.
*/
func NewServer(storage graphstorage.Storage, opts Options) *Server {
	return &Server{
		storage: storage,
		opts:    opts,
		graphs:  make(map[string]*graphEntry),
		Metrics: NewMetrics(),
		logger:  logutil.GetLogger("eliasgraph.server"),
	}
}

/*
Storage returns the snapshot storage of this server.
*/
func (s *Server) Storage() graphstorage.Storage {
	return s.storage
}

/*
Graphs returns the names of all graphs in sorted order.
*/
func (s *Server) Graphs() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	ret := make([]string, 0, len(s.graphs))
	for name := range s.graphs {
		ret = append(ret, name)
	}
	sort.Strings(ret)

	return ret
}

/*
acquire enters the exclusive section of a graph. Returns a function which
leaves the section again.
*/
func (s *Server) acquire(name string, create bool, exclusive bool) (*graphEntry, func(), error) {
	for {
		s.lock.Lock()

		e, ok := s.graphs[name]

		if !ok {
			if !create {
				s.lock.Unlock()
				return nil, nil, &util.GraphError{Type: util.ErrNotFound,
					Detail: fmt.Sprintf("Graph %v", name)}
			}

			if err := graph.CheckGraphName(name); err != nil {
				s.lock.Unlock()
				return nil, nil, err
			}

			e = &graphEntry{gm: graph.NewGraphManager()}
			s.graphs[name] = e
		}

		s.lock.Unlock()

		release := e.lock.RUnlock

		if exclusive {
			e.lock.Lock()
			release = e.lock.Unlock
		} else {
			e.lock.RLock()
		}

		if !e.deleted {
			return e, release, nil
		}

		// The graph was deleted while waiting

		release()
	}
}

/*
Query executes a sequence of operations on a graph. The graph is created on
first use.
*/
func (s *Server) Query(name string, ops ...query.Operation) (*query.Result, error) {
	readOnly := query.IsReadOnly(ops...)

	res, err := s.execute(name, readOnly, ops)

	s.Metrics.onQuery(readOnly, err)

	if !readOnly {
		ev := newEvent(EventQuery, name, err)
		if res != nil {
			ev.Stats = res.Stats()
		}
		s.publish(ev)
	}

	return res, err
}

/*
execute executes a sequence of operations inside the exclusive section of a
graph.
*/
func (s *Server) execute(name string, readOnly bool, ops []query.Operation) (*query.Result, error) {
	if !readOnly && s.opts.ReadOnly {
		return nil, &util.GraphError{Type: util.ErrReadOnly,
			Detail: fmt.Sprintf("Cannot modify graph %v", name)}
	}

	e, release, err := s.acquire(name, true, !readOnly)
	if err != nil {
		return nil, err
	}
	defer release()

	return query.Execute(e.gm, ops...)
}

/*
Explain returns the plan of a sequence of operations on an existing graph.
*/
func (s *Server) Explain(name string, ops ...query.Operation) ([]string, error) {
	e, release, err := s.acquire(name, false, false)
	if err != nil {
		return nil, err
	}
	defer release()

	return query.Explain(e.gm, ops...), nil
}

/*
Manager returns the current manager of a graph. The manager is replaced by
a reload.
*/
func (s *Server) Manager(name string) (*graph.Manager, error) {
	e, release, err := s.acquire(name, false, false)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.gm, nil
}

/*
Delete removes a graph and its stored snapshot.
*/
func (s *Server) Delete(ctx context.Context, name string) error {
	e, release, err := s.acquire(name, false, true)
	if err != nil {
		return err
	}

	s.lock.Lock()
	delete(s.graphs, name)
	s.lock.Unlock()

	e.deleted = true

	release()

	err = s.storage.RemoveSnapshot(ctx, name)

	s.Metrics.onDelete(name)

	if err != nil {
		s.logger.Error(fmt.Sprintf("Could not remove snapshot of graph %v: %v", name, err))
	} else {
		s.logger.Info(fmt.Sprintf("Deleted graph %v", name))
	}

	s.publish(newEvent(EventDelete, name, err))

	return err
}

// Snapshots
// =========

/*
encode writes a graph into a snapshot.
*/
func (s *Server) encode(name string, gm *graph.Manager) ([]byte, *graph.SnapshotInfo, error) {
	var buf bytes.Buffer

	info, err := gm.EncodeSnapshot(&buf, graph.EncodeOptions{Compression: s.opts.Compression})
	if err != nil {
		return nil, nil, err
	}

	s.Metrics.onSnapshot(name, info.Size)

	return buf.Bytes(), info, nil
}

/*
Save writes a graph into a snapshot and stores it.
*/
func (s *Server) Save(ctx context.Context, name string) (*graph.SnapshotInfo, error) {
	info, err := s.save(ctx, name)

	ev := newEvent(EventSave, name, err)

	if err != nil {
		s.logger.Error(fmt.Sprintf("Could not save graph %v: %v", name, err))
	} else {
		s.logger.Info(fmt.Sprintf("Saved graph %v: %v", name, info))
		ev.Generation = info.Generation
		ev.Snapshot = info.String()
	}

	s.publish(ev)

	return info, err
}

func (s *Server) save(ctx context.Context, name string) (*graph.SnapshotInfo, error) {
	e, release, err := s.acquire(name, false, false)
	if err != nil {
		return nil, err
	}
	defer release()

	data, info, err := s.encode(name, e.gm)
	if err == nil {
		err = s.storage.StoreSnapshot(ctx, name, data)
	}

	return info, err
}

/*
SaveAll saves all graphs in parallel.
*/
func (s *Server) SaveAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, name := range s.Graphs() {
		name := name
		g.Go(func() error {
			_, err := s.Save(gctx, name)
			return err
		})
	}

	return g.Wait()
}

/*
load reads the stored snapshot of a graph.
*/
func (s *Server) load(ctx context.Context, name string) (*graph.Manager, *graph.SnapshotInfo, error) {
	data, err := s.storage.LoadSnapshot(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	info, err := graph.ReadSnapshotInfo(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}

	gm, err := graph.DecodeSnapshot(bytes.NewReader(data),
		graph.DecodeOptions{CompactIdentifiers: s.opts.CompactOnReload})

	return gm, info, err
}

/*
Restore loads all stored snapshots. Graphs which are already in the registry
are replaced. Snapshots which cannot be loaded are reported and skipped.
*/
func (s *Server) Restore(ctx context.Context) error {
	names, err := s.storage.Snapshots(ctx)
	if err != nil {
		return err
	}

	cerr := errorutil.NewCompositeError()

	for _, name := range names {
		gm, info, err := s.load(ctx, name)

		if err == nil {
			var release func()
			var e *graphEntry

			if e, release, err = s.acquire(name, true, true); err == nil {
				e.gm = gm
				release()
			}
		}

		ev := newEvent(EventRestore, name, err)

		if err != nil {
			s.logger.Error(fmt.Sprintf("Could not restore graph %v: %v", name, err))
			cerr.Add(fmt.Errorf("%v: %w", name, err))
		} else {
			s.logger.Info(fmt.Sprintf("Restored graph %v from %v", name, info))
			ev.Generation = gm.Generation()
			ev.Snapshot = info.String()
		}

		s.publish(ev)
	}

	if cerr.HasErrors() {
		return cerr
	}

	return nil
}

/*
Reload writes a graph into a snapshot, stores it, reads it back and replaces
the graph with the result. The graph is not accessible while it is reloaded.
If any step fails the graph stays as it was.
*/
func (s *Server) Reload(ctx context.Context, name string) (*graph.SnapshotInfo, error) {
	start := time.Now()

	gm, info, err := s.reload(ctx, name)

	s.Metrics.onReload(time.Since(start), err)

	ev := newEvent(EventReload, name, err)

	if err != nil {
		msg := "Reload of graph %v failed: %v"
		if util.IsFatalToReload(err) {
			msg = "Reload of graph %v failed with an invalid snapshot: %v"
		}
		s.logger.Error(fmt.Sprintf(msg, name, err))

	} else {
		s.logger.Info(fmt.Sprintf("Reloaded graph %v in %v: %v", name, time.Since(start), info))
		ev.Generation = gm.Generation()
		ev.Snapshot = info.String()
	}

	s.publish(ev)

	return info, err
}

func (s *Server) reload(ctx context.Context, name string) (*graph.Manager, *graph.SnapshotInfo, error) {
	e, release, err := s.acquire(name, false, true)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	data, _, err := s.encode(name, e.gm)
	if err == nil {
		err = s.storage.StoreSnapshot(ctx, name, data)
	}
	if err != nil {
		return nil, nil, err
	}

	gm, info, err := s.load(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	e.gm = gm

	return gm, info, nil
}

/*
ReloadAll reloads all graphs one after another. A failed reload does not stop
the reload of the remaining graphs.
*/
func (s *Server) ReloadAll(ctx context.Context) error {
	cerr := errorutil.NewCompositeError()

	for _, name := range s.Graphs() {
		if _, err := s.Reload(ctx, name); err != nil {
			cerr.Add(fmt.Errorf("%v: %w", name, err))
		}
	}

	if cerr.HasErrors() {
		return cerr
	}

	return nil
}

/*
Close closes the snapshot storage of this server.
*/
func (s *Server) Close() error {
	return s.storage.Close()
}
