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
	"devt.de/krotik/common/timeutil"
)

/*
Event types which are published by a server
*/
const (
	EventQuery   = "query"
	EventReload  = "reload"
	EventSave    = "save"
	EventRestore = "restore"
	EventDelete  = "delete"
)

/*
Event is a notification about an operation on a graph.
*/
type Event struct {
	Type       string   `json:"type"`                 // Type of the event
	Graph      string   `json:"graph"`                // Name of the graph
	Timestamp  string   `json:"timestamp"`            // Time of the event in milliseconds
	Generation uint64   `json:"generation,omitempty"` // Generation of the graph after the operation
	Stats      []string `json:"stats,omitempty"`      // Statistics of a query
	Snapshot   string   `json:"snapshot,omitempty"`   // Description of a written or read snapshot
	Error      string   `json:"error,omitempty"`      // Error of a failed operation
}

/*
Listener is called for every event of a server. Listeners are called
synchronously and must not call back into the server for the same graph.
*/
type Listener func(event *Event)

/*
newEvent creates a new event.
*/
func newEvent(eventType string, graph string, err error) *Event {
	ev := &Event{Type: eventType, Graph: graph, Timestamp: timeutil.MakeTimestamp()}

	if err != nil {
		ev.Error = err.Error()
	}

	return ev
}

/*
AddListener adds a listener to this server.
*/
func (s *Server) AddListener(l Listener) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()

	s.listeners = append(s.listeners, l)
}

/*
publish sends an event to all listeners.
*/
func (s *Server) publish(ev *Event) {
	s.listenerLock.RLock()
	listeners := s.listeners
	s.listenerLock.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}
