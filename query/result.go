/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package query

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

/*
Result is the result of an executed query.
*/
type Result struct {
	NodesCreated   int        // Number of created nodes
	NodesDeleted   int        // Number of deleted nodes
	PropertiesSet  int        // Number of set properties
	EdgesCreated   int        // Number of created edges
	EdgesDeleted   int        // Number of deleted edges (including removed edges of deleted nodes)
	IndicesCreated int        // Number of created indices
	Header         []string   // Column labels of the returned table
	Rows           [][]string // Rendered values of the returned table
	Plan           []string   // Executed plan steps
}

/*
Stats returns the statistics of this result as a list of strings.
*/
func (r *Result) Stats() []string {
	var ret []string

	for _, s := range []struct {
		label string
		count int
	}{
		{"Nodes created", r.NodesCreated},
		{"Nodes deleted", r.NodesDeleted},
		{"Properties set", r.PropertiesSet},
		{"Relationships created", r.EdgesCreated},
		{"Relationships deleted", r.EdgesDeleted},
		{"Indices created", r.IndicesCreated},
	} {
		if s.count > 0 {
			ret = append(ret, fmt.Sprintf("%v: %v", s.label, s.count))
		}
	}

	return ret
}

/*
String returns a string representation of this result.
*/
func (r *Result) String() string {
	var buf bytes.Buffer

	buf.WriteString("Labels: ")
	buf.WriteString(strings.Join(r.Header, ", "))
	buf.WriteString("\n")

	// Render the table

	for _, row := range r.Rows {
		buf.WriteString(strings.Join(row, ", "))
		buf.WriteString("\n")
	}

	for _, s := range r.Stats() {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	return buf.String()
}

/*
CSV returns the table of this result as comma-separated strings.
*/
func (r *Result) CSV() string {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	w.Write(r.Header)
	w.WriteAll(r.Rows)

	return buf.String()
}
