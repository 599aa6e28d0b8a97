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
Package util contains utility classes for the graph storage.

GraphError

Models a graph related error. Low-level errors should be wrapped in a GraphError
before they are returned to a client. The Type of a GraphError is one of the
error types below and can be tested with errors.Is.

NamesManager

Manages names of labels, edge kinds and property keys. Each name gets a 32 bit
code assigned. Snapshots store a name table once and refer to names by code.

ValueIndex

An ordered index over property values. Each distinct value maps to the set of
node ids which carry it. Supports equality lookups and range scans.

Snapshot primitives

SnapshotWriter and SnapshotReader read and write the primitive values of the
snapshot format. Every read past the end of the input results in a
CorruptSnapshot error.

Block compression

CompressBlocks and DecompressBlocks wrap a snapshot body with LZ4 or ZSTD.
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Unwrap returns the error type so errors.Is can match on it.
*/
func (ge *GraphError) Unwrap() error {
	return ge.Type
}

/*
Graph storage related error types
*/
var (
	ErrOpening         = errors.New("Failed to open graph storage")
	ErrFlushing        = errors.New("Failed to flush changes")
	ErrClosing         = errors.New("Failed to close graph storage")
	ErrAccessComponent = errors.New("Failed to access graph storage component")
	ErrReadOnly        = errors.New("Failed write to readonly storage")
)

/*
Graph related error types
*/
var (
	ErrInvalidData = errors.New("Invalid data")
	ErrIndexError  = errors.New("Index error")
	ErrReading     = errors.New("Could not read graph information")
	ErrWriting     = errors.New("Could not write graph information")
	ErrRule        = errors.New("Graph rule error")
)

/*
Entity and snapshot related error types
*/
var (
	ErrNotFound          = errors.New("Entity not found")
	ErrTypeMismatch      = errors.New("Type mismatch")
	ErrCorruptSnapshot   = errors.New("Corrupt snapshot")
	ErrDanglingReference = errors.New("Dangling reference")
)

/*
IsFatalToReload returns true if the given error means that a snapshot could
not be used. The graph which was reloaded keeps its previous state.
*/
func IsFatalToReload(err error) bool {
	return errors.Is(err, ErrCorruptSnapshot) || errors.Is(err, ErrDanglingReference)
}
