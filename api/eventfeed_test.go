/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"devt.de/krotik/eliasgraph/graph/graphstorage"
	"devt.de/krotik/eliasgraph/query"
	"devt.de/krotik/eliasgraph/server"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, params string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + EndpointEvents + params

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if _, msg, err := conn.ReadMessage(); err != nil || string(msg) != `{"type":"init_success","payload":{}}` {
		t.Fatal("Unexpected init message:", string(msg), err)
	}

	return conn
}

func readEvent(conn *websocket.Conn) (*server.Event, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	ev := &server.Event{}

	return ev, json.Unmarshal(msg, ev)
}

func waitForClients(ef *EventFeed, count int) bool {
	for i := 0; i < 100; i++ {
		if ef.Clients() == count {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestEventFeed(t *testing.T) {
	s := server.NewServer(graphstorage.NewMemoryGraphStorage("mem"), server.Options{})
	ef := NewEventFeed(s)

	mux := http.NewServeMux()
	RegisterEndpoints(mux, s, ef)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	all := dial(t, srv, "")
	defer all.Close()

	filtered := dial(t, srv, "?graph=other")
	defer filtered.Close()

	if !waitForClients(ef, 2) {
		t.Error("Unexpected number of clients:", ef.Clients())
		return
	}

	if _, err := s.Query("main", query.CreateNode{Labels: []string{"Person"}}); err != nil {
		t.Error(err)
		return
	}

	if _, err := s.Reload(context.Background(), "main"); err != nil {
		t.Error(err)
		return
	}

	if _, err := s.Query("other", query.CreateNode{Labels: []string{"Person"}}); err != nil {
		t.Error(err)
		return
	}

	ev, err := readEvent(all)
	if err != nil || ev.Type != server.EventQuery || ev.Graph != "main" ||
		strings.Join(ev.Stats, ",") != "Nodes created: 1" {
		t.Error("Unexpected event:", ev, err)
		return
	}

	ev, err = readEvent(all)
	if err != nil || ev.Type != server.EventReload || ev.Graph != "main" ||
		ev.Generation != 2 || ev.Error != "" {
		t.Error("Unexpected event:", ev, err)
		return
	}

	ev, err = readEvent(all)
	if err != nil || ev.Type != server.EventQuery || ev.Graph != "other" {
		t.Error("Unexpected event:", ev, err)
		return
	}

	// The filtered client only sees events of its graph

	ev, err = readEvent(filtered)
	if err != nil || ev.Type != server.EventQuery || ev.Graph != "other" {
		t.Error("Unexpected event:", ev, err)
		return
	}

	// Disconnected clients are removed

	filtered.Close()

	if !waitForClients(ef, 1) {
		t.Error("Unexpected number of clients:", ef.Clients())
		return
	}

	// Metrics are served next to the feed

	resp, err := http.Get(srv.URL + EndpointMetrics)
	if err != nil {
		t.Error(err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `eliasgraph_reloads_total{result="success"} 1`) {
		t.Error("Unexpected metrics:", string(body))
		return
	}

	// About lists all graphs

	resp, err = http.Get(srv.URL + EndpointAbout)
	if err != nil {
		t.Error(err)
		return
	}
	defer resp.Body.Close()

	body, _ = io.ReadAll(resp.Body)

	if res := string(body); res != `{"graphs":["main","other"],"product":"EliasGraph","storage":"mem","version":"1.0.0"}`+"\n" {
		t.Error("Unexpected about:", res)
		return
	}

	resp, err = http.Post(srv.URL+EndpointAbout, "application/json", nil)
	if err != nil || resp.StatusCode != http.StatusMethodNotAllowed {
		t.Error("Unexpected response:", resp, err)
		return
	}
	resp.Body.Close()
}

func TestEventFeedNoUpgrade(t *testing.T) {
	s := server.NewServer(graphstorage.NewMemoryGraphStorage("mem"), server.Options{})
	ef := NewEventFeed(s)

	rec := httptest.NewRecorder()
	ef.ServeHTTP(rec, httptest.NewRequest("GET", EndpointEvents, nil))

	if rec.Code != http.StatusBadRequest || ef.Clients() != 0 {
		t.Error("Unexpected response:", rec.Code, ef.Clients())
		return
	}
}
