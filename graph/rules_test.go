/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"errors"
	"fmt"
	"testing"

	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
	"devt.de/krotik/eliasgraph/storage/slotting"
)

type TestRule struct {
	handleError bool
	handled     bool
	events      []string
}

func (r *TestRule) Name() string {
	return "testrule"
}

func (r *TestRule) Handles() []int {
	return []int{EventNodeCreated, EventNodeUpdated, EventNodeDeleted,
		EventEdgeCreated, EventEdgeUpdated, EventEdgeDeleted, EventIndexCreated}
}

func (r *TestRule) Handle(gm *Manager, event int, ed ...interface{}) error {
	if r.handleError {
		return &util.GraphError{Type: util.ErrAccessComponent, Detail: "Test error"}
	}

	switch event {
	case EventNodeCreated, EventNodeDeleted:
		r.events = append(r.events, fmt.Sprintf("%v:node:%v", event, ed[0].(*data.Node).ID))
	case EventNodeUpdated:
		r.events = append(r.events, fmt.Sprintf("%v:node:%v:%v:%v", event,
			ed[0].(*data.Node).ID, ed[1], ed[2]))
	case EventEdgeCreated, EventEdgeDeleted:
		r.events = append(r.events, fmt.Sprintf("%v:edge:%v", event, ed[0].(*data.Edge).ID))
	case EventEdgeUpdated:
		r.events = append(r.events, fmt.Sprintf("%v:edge:%v:%v:%v", event,
			ed[0].(*data.Edge).ID, ed[1], ed[2]))
	case EventIndexCreated:
		r.events = append(r.events, fmt.Sprintf("%v:index:%v", event, ed[0]))
	}

	// Rules can query the graph while the event source holds the writer lock

	if gm.NodeCount("") > 100 {
		return fmt.Errorf("Too many nodes")
	}

	if r.handled {
		return ErrEventHandled
	}

	return nil
}

func TestRules(t *testing.T) {
	gm := NewGraphManager()
	rule := &TestRule{}

	gm.SetGraphRule(rule)

	if res := fmt.Sprint(gm.GraphRules()); res != "[system.deletenodeedges testrule]" {
		t.Error("Unexpected rules:", res)
		return
	}

	n1, _ := gm.CreateNode([]string{"A"}, nil)
	n2, _ := gm.CreateNode([]string{"A"}, nil)
	gm.SetNodeProperty(n1, "x", data.IntValue(1))
	gm.SetNodeProperty(n1, "x", data.IntValue(2))
	e1, _ := gm.CreateEdge("E", n1, n2, nil)
	gm.SetEdgeProperty(e1, "w", data.BoolValue(true))
	gm.CreateIndex("A", "x")
	gm.RemoveNode(n1)

	if res := fmt.Sprint(rule.events); res != "[1:node:0 1:node:1 2:node:0:x:<nil> "+
		"2:node:0:x:1.000000 4:edge:0 5:edge:0:w:<nil> 8:index::A(x) 6:edge:0 3:node:0]" {
		t.Error("Unexpected events:", res)
		return
	}

	// A handled event is not an error

	rule.handled = true

	if _, err := gm.CreateNode([]string{"A"}, nil); err != nil {
		t.Error(err)
		return
	}

	// Errors of rules are reported but the operation has happened

	rule.handleError = true

	id, err := gm.CreateNode([]string{"A"}, nil)
	if !errors.Is(err, util.ErrRule) || err.Error() != "GraphError: Graph rule error "+
		"(GraphError: Failed to access graph storage component (Test error))" {
		t.Error("Unexpected error:", err)
		return
	}

	if _, err := gm.FetchNode(id); err != nil {
		t.Error("Node should exist:", err)
		return
	}
}

type BlockingDeleteRule struct {
}

func (r *BlockingDeleteRule) Name() string {
	return "a.blockdelete"
}

func (r *BlockingDeleteRule) Handles() []int {
	return []int{EventNodeDelete}
}

func (r *BlockingDeleteRule) Handle(gm *Manager, event int, ed ...interface{}) error {
	return &util.GraphError{Type: util.ErrInvalidData, Detail: "Delete not allowed"}
}

func TestDeleteRuleFailure(t *testing.T) {
	gm := NewGraphManager()

	n1, _ := gm.CreateNode([]string{"A"}, nil)
	n2, _ := gm.CreateNode([]string{"A"}, nil)
	gm.CreateEdge("E", n1, n2, nil)

	gm.SetGraphRule(&BlockingDeleteRule{})

	if _, _, err := gm.RemoveNode(n1); !errors.Is(err, util.ErrRule) {
		t.Error("Unexpected error:", err)
		return
	}

	// The cascade has run but the node is still there

	if _, err := gm.FetchNode(n1); err != nil {
		t.Error("Node should exist:", err)
		return
	}

	// Without the cascade the node cannot be deleted

	gm = createGraphManager(slotting.NewSlotManager(), slotting.NewSlotManager())

	n1, _ = gm.CreateNode([]string{"A"}, nil)
	n2, _ = gm.CreateNode([]string{"A"}, nil)
	gm.CreateEdge("E", n1, n2, nil)

	if _, _, err := gm.RemoveNode(n2); err == nil || err.Error() !=
		"GraphError: Graph rule error (Node 1 still has 1 edges)" {
		t.Error("Unexpected error:", err)
		return
	}
}
