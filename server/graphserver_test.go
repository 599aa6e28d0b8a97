/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/graphstorage"
	"devt.de/krotik/eliasgraph/graph/util"
	"devt.de/krotik/eliasgraph/query"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

/*
corruptingStorage damages every stored snapshot.
*/
type corruptingStorage struct {
	*graphstorage.MemoryGraphStorage
}

func (cs *corruptingStorage) StoreSnapshot(ctx context.Context, graph string, data []byte) error {
	damaged := append([]byte(nil), data...)
	damaged[len(damaged)/2] ^= 0xff
	return cs.MemoryGraphStorage.StoreSnapshot(ctx, graph, damaged)
}

func createPeople(s *Server, name string, count int) error {
	var ops []query.Operation

	for i := 0; i < count; i++ {
		ops = append(ops, query.CreateNode{Alias: fmt.Sprint("n", i), Labels: []string{"Person"},
			Props: map[string]data.Value{"id": data.IntValue(int64(i))}})
		if i > 0 {
			ops = append(ops, query.CreateEdge{From: fmt.Sprint("n", i-1), To: fmt.Sprint("n", i), Kind: "knows"})
		}
	}

	_, err := s.Query(name, ops...)

	return err
}

func countPeople(s *Server, name string) (string, error) {
	res, err := s.Query(name, query.MatchNodes{Alias: "n", Label: "Person"},
		query.Return{Items: []query.ReturnItem{query.Count("n")}})

	if err != nil {
		return "", err
	}

	return res.Rows[0][0], nil
}

func TestServerReload(t *testing.T) {
	ctx := context.Background()
	mgs := graphstorage.NewMemoryGraphStorage("mem")

	s := NewServer(mgs, Options{Compression: util.CompressionZSTD, CompactOnReload: true})

	var events []string
	var lock sync.Mutex

	s.AddListener(func(ev *Event) {
		lock.Lock()
		defer lock.Unlock()
		events = append(events, fmt.Sprintf("%v:%v:%v:%v", ev.Type, ev.Graph, ev.Generation, ev.Error != ""))
	})

	if err := createPeople(s, "main", 10); err != nil {
		t.Error(err)
		return
	}

	if _, err := s.Query("main", query.MatchNodes{Alias: "n", Label: "Person",
		Where: query.IDIn{Alias: "n", IDs: []uint64{2, 5}}}, query.Delete{Aliases: []string{"n"}}); err != nil {
		t.Error(err)
		return
	}

	info, err := s.Reload(ctx, "main")
	if err != nil {
		t.Error(err)
		return
	}

	if info.LiveNodes != 8 || info.NodeSlots != 10 || info.LiveEdges != 5 {
		t.Error("Unexpected snapshot info:", info)
		return
	}

	gm, _ := s.Manager("main")

	if gm.Generation() != 2 || gm.NodeCount("") != 8 || gm.EdgeCount("knows") != 5 {
		t.Error("Unexpected graph:", gm.Generation(), gm)
		return
	}

	// Identifiers were compacted

	if res, err := s.Query("main", query.MatchNodes{Alias: "n", Label: "Person",
		Where: query.IDIn{Alias: "n", IDs: []uint64{7}}},
		query.Return{Items: []query.ReturnItem{query.Prop("n", "id")}}); err != nil ||
		fmt.Sprint(res.Rows) != "[[9.000000]]" {
		t.Error("Unexpected result:", res, err)
		return
	}

	// A failed reload keeps the graph

	mgs.AccessErr = errors.New("Storage offline")

	if _, err := s.Reload(ctx, "main"); !errors.Is(err, util.ErrWriting) {
		t.Error("Unexpected error:", err)
		return
	}

	mgs.AccessErr = nil

	if gm2, _ := s.Manager("main"); gm2 != gm {
		t.Error("Graph should not have been replaced")
		return
	}

	if res, err := countPeople(s, "main"); res != "8.000000" || err != nil {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := s.Reload(ctx, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Error("Unexpected error:", err)
		return
	}

	if res := testutil.ToFloat64(s.Metrics.reloads.WithLabelValues("success")); res != 1 {
		t.Error("Unexpected metric:", res)
		return
	}

	if res := testutil.ToFloat64(s.Metrics.reloads.WithLabelValues("error")); res != 2 {
		t.Error("Unexpected metric:", res)
		return
	}

	if res := testutil.ToFloat64(s.Metrics.queries.WithLabelValues("write", "success")); res != 2 {
		t.Error("Unexpected metric:", res)
		return
	}

	if res := testutil.ToFloat64(s.Metrics.queries.WithLabelValues("read", "success")); res != 2 {
		t.Error("Unexpected metric:", res)
		return
	}

	if res := testutil.ToFloat64(s.Metrics.snapshotBytes.WithLabelValues("main")); res <= 0 {
		t.Error("Unexpected metric:", res)
		return
	}

	lock.Lock()
	defer lock.Unlock()

	if res := fmt.Sprint(events); res !=
		"[query:main:0:false query:main:0:false reload:main:2:false reload:main:0:true reload:missing:0:true]" {
		t.Error("Unexpected events:", res)
		return
	}
}

func TestServerCorruptReload(t *testing.T) {
	ctx := context.Background()

	s := NewServer(&corruptingStorage{graphstorage.NewMemoryGraphStorage("mem")}, Options{})

	if err := createPeople(s, "main", 100); err != nil {
		t.Error(err)
		return
	}

	gm, _ := s.Manager("main")

	if _, err := s.Reload(ctx, "main"); !errors.Is(err, util.ErrCorruptSnapshot) || !util.IsFatalToReload(err) {
		t.Error("Unexpected error:", err)
		return
	}

	if gm2, _ := s.Manager("main"); gm2 != gm || gm2.Generation() != 1 {
		t.Error("Graph should not have been replaced")
		return
	}

	// Restore reports the damaged snapshot

	s2 := NewServer(s.Storage(), Options{})

	if err := s2.Restore(ctx); err == nil || !strings.HasPrefix(err.Error(), "main: GraphError: Corrupt snapshot") {
		t.Error("Unexpected error:", err)
		return
	}

	if res := s2.Graphs(); len(res) != 0 {
		t.Error("Unexpected graphs:", res)
		return
	}
}

func TestServerSaveRestore(t *testing.T) {
	ctx := context.Background()
	mgs := graphstorage.NewMemoryGraphStorage("mem")

	s := NewServer(mgs, Options{Compression: util.CompressionLZ4})

	for i, name := range []string{"a", "b", "c"} {
		if err := createPeople(s, name, i+1); err != nil {
			t.Error(err)
			return
		}
	}

	if _, err := s.Query("bad name", query.CreateNode{}); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected error:", err)
		return
	}

	if err := s.SaveAll(ctx); err != nil {
		t.Error(err)
		return
	}

	if res, _ := mgs.Snapshots(ctx); fmt.Sprint(res) != "[a b c]" {
		t.Error("Unexpected snapshots:", res)
		return
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Error(err)
		return
	}

	if err := s.Delete(ctx, "b"); !errors.Is(err, util.ErrNotFound) {
		t.Error("Unexpected error:", err)
		return
	}

	if _, err := s.Explain("b", query.MatchNodes{Alias: "n"}); !errors.Is(err, util.ErrNotFound) {
		t.Error("Unexpected error:", err)
		return
	}

	// A new server picks up all stored snapshots

	s2 := NewServer(mgs, Options{ReadOnly: true})

	if err := s2.Restore(ctx); err != nil {
		t.Error(err)
		return
	}

	if res := s2.Graphs(); fmt.Sprint(res) != "[a c]" {
		t.Error("Unexpected graphs:", res)
		return
	}

	if res, err := countPeople(s2, "c"); res != "3.000000" || err != nil {
		t.Error("Unexpected result:", res, err)
		return
	}

	if gm, _ := s2.Manager("c"); gm.Generation() != 2 {
		t.Error("Unexpected generation:", gm.Generation())
		return
	}

	if _, err := s2.Query("c", query.CreateNode{}); !errors.Is(err, util.ErrReadOnly) {
		t.Error("Unexpected error:", err)
		return
	}

	if res, err := s2.Explain("c", query.MatchNodes{Alias: "n", Label: "Person"}); err != nil ||
		fmt.Sprint(res) != "[Node By Label Scan | (n:Person)]" {
		t.Error("Unexpected result:", res, err)
		return
	}

	// Failing saves are reported

	mgs.AccessErr = errors.New("Storage offline")

	if err := s2.SaveAll(ctx); !errors.Is(err, util.ErrWriting) {
		t.Error("Unexpected error:", err)
		return
	}

	if err := s2.Restore(ctx); !errors.Is(err, util.ErrReading) {
		t.Error("Unexpected error:", err)
		return
	}

	if err := s2.ReloadAll(ctx); err == nil || err.Error() !=
		"a: GraphError: Could not write graph information (Storage offline); " +
			"c: GraphError: Could not write graph information (Storage offline)" {
		t.Error("Unexpected error:", err)
		return
	}

	mgs.AccessErr = nil

	if err := s2.ReloadAll(ctx); err != nil {
		t.Error(err)
		return
	}

	// Metrics can be scraped

	rec := httptest.NewRecorder()
	s2.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `eliasgraph_reloads_total{result="success"} 2`) {
		t.Error("Unexpected metrics:", rec.Body.String())
		return
	}

	if err := s2.Close(); err != nil {
		t.Error(err)
		return
	}
}

func TestServerConcurrency(t *testing.T) {
	ctx := context.Background()

	s := NewServer(graphstorage.NewMemoryGraphStorage("mem"), Options{CompactOnReload: true})

	var wg sync.WaitGroup

	errs := make(chan error, 100)

	for g := 0; g < 4; g++ {
		name := fmt.Sprint("g", g)

		for w := 0; w < 5; w++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for i := 0; i < 10; i++ {
					if _, err := s.Query(name, query.CreateNode{Labels: []string{"Person"}}); err != nil {
						errs <- err
						return
					}
					if _, err := countPeople(s, name); err != nil {
						errs <- err
						return
					}
				}
			}()
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 5; i++ {

				// The graph might not exist yet

				if _, err := s.Reload(ctx, name); err != nil && !errors.Is(err, util.ErrNotFound) {
					errs <- err
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
		return
	}

	for g := 0; g < 4; g++ {
		if res, err := countPeople(s, fmt.Sprint("g", g)); res != "50.000000" || err != nil {
			t.Error("Unexpected result:", res, err)
			return
		}
	}
}
