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
Package query contains the operation vocabulary which is executed against a
graph manager.

A query is a sequence of operations. Execution starts with a single empty row
of alias bindings. Match operations expand the rows, create operations bind
new entities to aliases of every row, and a Return operation projects the
rows into a result table.
*/
package query

import (
	"devt.de/krotik/eliasgraph/graph/data"
)

/*
Operation is a single step of a query.
*/
type Operation interface {

	/*
		plan returns the plan steps of this operation.
	*/
	plan(p *planner) []string

	/*
		apply executes this operation.
	*/
	apply(ex *executor) error

	/*
		readOnly returns true if this operation never modifies the graph.
	*/
	readOnly() bool
}

/*
CreateNode creates a node for every row and binds it to an alias.
*/
type CreateNode struct {
	Alias  string                // Alias of the new node (may be empty)
	Labels []string              // Labels of the new node
	Props  map[string]data.Value // Properties of the new node
}

/*
CreateEdge creates an edge between two bound nodes for every row.
*/
type CreateEdge struct {
	Alias string                // Alias of the new edge (may be empty)
	From  string                // Alias of the source node
	To    string                // Alias of the destination node
	Kind  string                // Relationship type
	Props map[string]data.Value // Properties of the new edge
}

/*
MatchNodes matches nodes by label. An empty label matches all nodes.
*/
type MatchNodes struct {
	Alias string    // Alias of the matched nodes
	Label string    // Required label
	Where Condition // Optional condition
}

/*
MatchPattern matches a (From)-[Edge:Kind]->(To) pattern by traversing the
outgoing edges of the source nodes. Aliases which are already bound restrict
the pattern to the bound entity.
*/
type MatchPattern struct {
	From      string    // Alias of the source node
	FromLabel string    // Required label of the source node
	Edge      string    // Alias of the edge (may be empty)
	Kind      string    // Relationship type (empty for any)
	To        string    // Alias of the destination node (may be empty)
	ToLabel   string    // Required label of the destination node
	Where     Condition // Optional condition
}

/*
Delete deletes the entities bound to aliases. Deleting a node deletes all its
edges.
*/
type Delete struct {
	Aliases []string
}

/*
SetProperty sets a property of the entity bound to an alias.
*/
type SetProperty struct {
	Alias string
	Key   string
	Value data.Value
}

/*
CreateIndex creates a property index on a (label, key) pair.
*/
type CreateIndex struct {
	Label string
	Key   string
}

/*
Return projects the rows into the result table.
*/
type Return struct {
	Items   []ReturnItem // Returned columns
	OrderBy []OrderItem  // Sort order of the rows
	Limit   int          // Maximum number of rows (0 for no limit)
}

/*
ReturnItem is a returned column. An item without a key returns the whole
entity as one column per property key.
*/
type ReturnItem struct {
	Alias string // Alias of the entity
	Key   string // Property key
	Count bool   // Count the rows per group
}

/*
Prop returns an item which returns a single property.
*/
func Prop(alias string, key string) ReturnItem {
	return ReturnItem{Alias: alias, Key: key}
}

/*
Entity returns an item which returns all properties of an entity.
*/
func Entity(alias string) ReturnItem {
	return ReturnItem{Alias: alias}
}

/*
Count returns an item which counts the rows where an alias is bound.
*/
func Count(alias string) ReturnItem {
	return ReturnItem{Alias: alias, Count: true}
}

/*
OrderItem is a sort key. An item without a key sorts by entity identifier.
*/
type OrderItem struct {
	Alias string
	Key   string
	Desc  bool
}

/*
IsReadOnly returns true if a sequence of operations does not modify the graph.
*/
func IsReadOnly(ops ...Operation) bool {
	for _, op := range ops {
		if !op.readOnly() {
			return false
		}
	}
	return true
}

func (op CreateNode) readOnly() bool { return false }
func (op CreateEdge) readOnly() bool { return false }
func (op MatchNodes) readOnly() bool { return true }
func (op MatchPattern) readOnly() bool { return true }
func (op Delete) readOnly() bool { return false }
func (op SetProperty) readOnly() bool { return false }
func (op CreateIndex) readOnly() bool { return false }
func (op Return) readOnly() bool { return true }
