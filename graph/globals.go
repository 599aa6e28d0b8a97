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
Package graph contains the main API to the graph datastore.

Manager API

The main API is provided by a Manager object which can be created with the
NewGraphManager() constructor function. The manager provides create, fetch,
update and remove functionality for nodes and edges. It also provides the
basic traversal functionality which allows the traversal from one node to
other nodes.

Identifiers

Nodes and edges have their own dense identifier spaces which are managed by
slot managers. A removed entity leaves a tombstone in its slot. Identifiers
are never handed out twice by the same manager.

Iterators

All available node identifiers of a given label can be iterated by using a
NodeIterator. The manager can produce these with the NodeIterator() function.
Edges of a given kind and the edges of a single node are iterated with an
EdgeIterator.

Indices

Every label has a set of node identifiers and every edge kind a set of edge
identifiers. In addition a property index can be declared for a (label, key)
pair. A property index is kept up to date with every mutation and supports
equality lookups and range queries.

Rules

(Use with caution)

Graph rules provide automatic operations which help to keep the graph consistent.
Rules trigger on global graph events. The rule SystemRuleDeleteNodeEdges is
automatically loaded when a new Manager is created. See the code for further
details.

Snapshots

A manager can be encoded into a snapshot and a new manager can be decoded from
a snapshot. Decoding starts a new generation. Property indices are not part of
a snapshot; only their declarations are stored and the indices are rebuilt
after all entities have been restored.
*/
package graph

/*
VERSION of the GraphManager
*/
const VERSION = 1

/*
SnapshotMagic is the magic number at the start of every snapshot.
*/
const SnapshotMagic = "EGSN"

/*
SnapshotFormatVersion is the newest snapshot format which can be read and the
format which is written.
*/
const SnapshotFormatVersion = 1

// Graph events
//=============

/*
EventNodeCreated is thrown when a node gets created.

Parameters: created node
*/
const EventNodeCreated = 0x01

/*
EventNodeUpdated is thrown when a node property gets updated.

Parameters: updated node, property key, old value (nil if the key was not present)
*/
const EventNodeUpdated = 0x02

/*
EventNodeDeleted is thrown when a node got deleted.

Parameters: deleted node
*/
const EventNodeDeleted = 0x03

/*
EventEdgeCreated is thrown when an edge gets created.

Parameters: created edge
*/
const EventEdgeCreated = 0x04

/*
EventEdgeUpdated is thrown when an edge property gets updated.

Parameters: updated edge, property key, old value (nil if the key was not present)
*/
const EventEdgeUpdated = 0x05

/*
EventEdgeDeleted is thrown when an edge got deleted.

Parameters: deleted edge
*/
const EventEdgeDeleted = 0x06

/*
EventNodeDelete is thrown before a node gets deleted. Handlers must remove
all edges of the node.

Parameters: node to delete, pointer to a list which collects the identifiers of removed edges
*/
const EventNodeDelete = 0x07

/*
EventIndexCreated is thrown when a property index was created.

Parameters: IndexDecl of the new index
*/
const EventIndexCreated = 0x08
