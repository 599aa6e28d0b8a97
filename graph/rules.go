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
	"sort"
	"strings"
	"sync"

	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
)

/*
ErrEventHandled is a special error which an event handler can return to
signal that the event has been fully handled.
*/
var ErrEventHandled = errors.New("Event handled upstream")

/*
GraphRulesManager data structure
*/
type graphRulesManager struct {
	gm       *Manager                // GraphManager which provides events
	rules    map[string]Rule         // Map of graph rules
	eventMap map[int]map[string]Rule // Map of events to graph rules
}

/*
Rule models a graph rule.
*/
type Rule interface {

	/*
	   Name returns the name of the rule.
	*/
	Name() string

	/*
		Handles returns a list of events which are handled by this rule.
	*/
	Handles() []int

	/*
		Handle handles an event. The given graph manager can be used for
		queries and modifications. The event source holds the writer lock
		of the original graph manager while the rule is executed.
	*/
	Handle(gm *Manager, event int, data ...interface{}) error
}

/*
graphEvent main event handler which receives all graph related events.
*/
func (gr *graphRulesManager) graphEvent(event int, data ...interface{}) error {
	var result error
	var errs []string

	rules, ok := gr.eventMap[event]

	handled := false // Flag to return a special handled error if no other error occurred

	if ok {

		// Create a GraphManager clone which does not block on the lock of
		// the event source

		gmclone := gr.cloneGraphManager()

		for _, name := range sortedRuleNames(rules) {

			// Handle the event

			err := rules[name].Handle(gmclone, event, data...)

			if err != nil {
				if err == ErrEventHandled {
					handled = true
				} else {
					errs = append(errs, err.Error())
				}
			}
		}
	}

	if errs != nil {
		return &util.GraphError{Type: util.ErrRule, Detail: strings.Join(errs, ";")}
	}

	if handled {
		result = ErrEventHandled
	}

	return result
}

/*
Clone a given graph manager and insert a new RWMutex. The clone shares all
data with the original.
*/
func (gr *graphRulesManager) cloneGraphManager() *Manager {
	clone := *gr.gm
	clone.mutex = &sync.RWMutex{}
	return &clone
}

/*
SetGraphRule sets a GraphRule.
*/
func (gr *graphRulesManager) SetGraphRule(rule Rule) {
	gr.rules[rule.Name()] = rule

	for _, handledEvent := range rule.Handles() {

		rules, ok := gr.eventMap[handledEvent]
		if !ok {
			rules = make(map[string]Rule)
			gr.eventMap[handledEvent] = rules
		}

		rules[rule.Name()] = rule
	}
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gr *graphRulesManager) GraphRules() []string {
	return sortedRuleNames(gr.rules)
}

/*
sortedRuleNames returns the names of a rule map in sorted order.
*/
func sortedRuleNames(rules map[string]Rule) []string {
	ret := make([]string, 0, len(rules))

	for rule := range rules {
		ret = append(ret, rule)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

// System rule SystemRuleDeleteNodeEdges
// =====================================

/*
SystemRuleDeleteNodeEdges is a system rule to delete all edges when a node is
deleted.
*/
type SystemRuleDeleteNodeEdges struct {
}

/*
Name returns the name of the rule.
*/
func (r *SystemRuleDeleteNodeEdges) Name() string {
	return "system.deletenodeedges"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (r *SystemRuleDeleteNodeEdges) Handles() []int {
	return []int{EventNodeDelete}
}

/*
Handle handles an event.
*/
func (r *SystemRuleDeleteNodeEdges) Handle(gm *Manager, event int, ed ...interface{}) error {
	node := ed[0].(*data.Node)
	removed := ed[1].(*[]uint64)

	// Get all connected relationships

	edges, _, err := gm.Traverse(node.ID, "", DirectionBoth)
	if err != nil {
		return err
	}

	for _, edge := range edges {
		if _, err := gm.RemoveEdge(edge.ID); err != nil {
			return err
		}

		*removed = append(*removed, edge.ID)
	}

	return nil
}
