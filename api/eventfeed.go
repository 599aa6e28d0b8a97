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
Package api contains the network interface of an EliasGraph server.

/about

Endpoint which returns an object with version information and the names of
all graphs.

/metrics

Prometheus metrics of the server.

/events

WebSocket endpoint which forwards server events to connected clients. A
client can restrict the feed to a single graph with the url parameter
'graph'. After the connection is established the client receives:

	{"type":"init_success","payload":{}}

followed by one JSON object per event:

	type       : Type of the event (query, reload, save, restore, delete)
	graph      : Name of the graph
	timestamp  : Time of the event in milliseconds
	generation : Generation of the graph after a reload
	stats      : Statistics of a modifying query
	snapshot   : Description of the written or read snapshot
	error      : Error of a failed operation
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/eliasgraph/server"
	"github.com/gorilla/websocket"
)

/*
EndpointEvents is the event feed endpoint URL.
*/
const EndpointEvents = "/events"

/*
EndpointMetrics is the metrics endpoint URL.
*/
const EndpointMetrics = "/metrics"

/*
upgrader can upgrade normal requests to websocket communications
*/
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

/*
feedClient is a connected websocket client.
*/
type feedClient struct {
	conn   *websocket.Conn // Websocket connection
	graph  string          // Graph filter (empty for all graphs)
	wMutex sync.Mutex      // Websocket connections support only one concurrent writer
}

/*
write sends a message to the client.
*/
func (fc *feedClient) write(msg []byte) error {
	fc.wMutex.Lock()
	defer fc.wMutex.Unlock()

	return fc.conn.WriteMessage(websocket.TextMessage, msg)
}

/*
EventFeed forwards the events of a server to websocket clients.
*/
type EventFeed struct {
	lock    sync.Mutex           // Lock for the client list
	clients map[*feedClient]bool // Connected clients
	logger  logutil.Logger       // Logger of the feed
}

/*
NewEventFeed creates a new event feed and registers it with a given server.
*/
func NewEventFeed(s *server.Server) *EventFeed {
	ef := &EventFeed{
		clients: make(map[*feedClient]bool),
		logger:  logutil.GetLogger("eliasgraph.api"),
	}

	s.AddListener(ef.Publish)

	return ef
}

/*
Clients returns the number of connected clients.
*/
func (ef *EventFeed) Clients() int {
	ef.lock.Lock()
	defer ef.lock.Unlock()

	return len(ef.clients)
}

/*
Publish sends an event to all interested clients. Clients which cannot be
written to are disconnected.
*/
func (ef *EventFeed) Publish(event *server.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		ef.logger.Error(fmt.Sprintf("Could not encode event: %v", err))
		return
	}

	ef.lock.Lock()

	var targets []*feedClient
	for c := range ef.clients {
		if c.graph == "" || c.graph == event.Graph {
			targets = append(targets, c)
		}
	}

	ef.lock.Unlock()

	for _, c := range targets {
		if err := c.write(msg); err != nil {
			ef.logger.Debug(fmt.Sprintf("Dropping event feed client %v: %v", c.conn.RemoteAddr(), err))
			ef.remove(c)
		}
	}
}

/*
remove disconnects a client.
*/
func (ef *EventFeed) remove(c *feedClient) {
	ef.lock.Lock()
	delete(ef.clients, c)
	ef.lock.Unlock()

	c.conn.Close()
}

/*
ServeHTTP upgrades a request to a websocket connection and registers the
client. The handler returns when the client hangs up.
*/
func (ef *EventFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	// If the upgrade fails then the client gets an HTTP error response.

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &feedClient{conn: conn, graph: r.URL.Query().Get("graph")}

	if err := c.write([]byte(`{"type":"init_success","payload":{}}`)); err != nil {
		conn.Close()
		return
	}

	ef.lock.Lock()
	ef.clients[c] = true
	ef.lock.Unlock()

	ef.logger.Debug(fmt.Sprintf("Event feed client %v connected (graph filter: %q)",
		conn.RemoteAddr(), c.graph))

	// Messages from the client are ignored; a read error means the client
	// is gone

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	ef.remove(c)
}

/*
Mux is a request multiplexer such as http.ServeMux.
*/
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

/*
RegisterEndpoints registers the event feed, the about endpoint and the
metrics of a server with a given multiplexer.
*/
func RegisterEndpoints(mux Mux, s *server.Server, ef *EventFeed) {
	mux.Handle(EndpointEvents, ef)
	mux.Handle(EndpointAbout, &aboutHandler{s})
	mux.Handle(EndpointMetrics, s.Metrics.Handler())
}
