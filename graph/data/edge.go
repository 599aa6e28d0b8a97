/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import "fmt"

/*
Edge data structure. Edge identifiers live in their own namespace which is
independent of node identifiers.
*/
type Edge struct {
	ID    uint64     // Identifier of the edge
	Kind  string     // Relationship type
	Src   uint64     // Identifier of the source node
	Dst   uint64     // Identifier of the destination node
	Props Properties // Properties of the edge
}

/*
NewEdge creates a new Edge instance.
*/
func NewEdge(id uint64, kind string, src uint64, dst uint64) *Edge {
	return &Edge{id, kind, src, dst, make(Properties)}
}

/*
OtherEnd returns the identifier of the node at the other end of this edge.
*/
func (e *Edge) OtherEnd(node uint64) uint64 {
	if e.Src == node {
		return e.Dst
	}
	return e.Src
}

/*
Attr returns a property of this edge.
*/
func (e *Edge) Attr(key string) (Value, bool) {
	v, ok := e.Props[key]
	return v, ok
}

/*
SetAttr sets a property of this edge. Setting Null keeps the key present.
*/
func (e *Edge) SetAttr(key string, val Value) {
	e.Props[key] = val
}

/*
Clone returns a deep copy of this edge.
*/
func (e *Edge) Clone() *Edge {
	return &Edge{e.ID, e.Kind, e.Src, e.Dst, e.Props.Clone()}
}

/*
String returns a string representation of this edge.
*/
func (e *Edge) String() string {
	return dataToString("GraphEdge", fmt.Sprintf("%v (%v -> %v)", e.ID, e.Src, e.Dst),
		e.Kind, e.Props)
}
