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

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

/*
Properties is a map of property keys to values.
*/
type Properties map[string]Value

/*
Keys returns all property keys in sorted order.
*/
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

/*
Clone returns a copy of the properties.
*/
func (p Properties) Clone() Properties {
	ret := make(Properties, len(p))
	for k, v := range p {
		ret[k] = v
	}
	return ret
}

/*
Node data structure. A node is owned by the graph manager; nodes returned to
clients are copies.
*/
type Node struct {
	ID     uint64     // Identifier of the node
	Labels []string   // Ordered set of labels
	Props  Properties // Properties of the node
}

/*
NewNode creates a new Node instance. Duplicate labels are dropped while the
order of first occurrence is kept.
*/
func NewNode(id uint64, labels []string) *Node {
	ls := make([]string, 0, len(labels))

	for _, l := range labels {
		dup := false
		for _, e := range ls {
			if e == l {
				dup = true
				break
			}
		}
		if !dup {
			ls = append(ls, l)
		}
	}

	return &Node{id, ls, make(Properties)}
}

/*
HasLabel returns true if the node carries a given label.
*/
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

/*
Attr returns a property of this node. The second return value is false if the
key is not present. A present key may hold the Null value.
*/
func (n *Node) Attr(key string) (Value, bool) {
	v, ok := n.Props[key]
	return v, ok
}

/*
SetAttr sets a property of this node. Setting Null keeps the key present.
*/
func (n *Node) SetAttr(key string, val Value) {
	n.Props[key] = val
}

/*
Clone returns a deep copy of this node.
*/
func (n *Node) Clone() *Node {
	labels := make([]string, len(n.Labels))
	copy(labels, n.Labels)
	return &Node{n.ID, labels, n.Props.Clone()}
}

/*
String returns a string representation of this node.
*/
func (n *Node) String() string {
	return dataToString("GraphNode", fmt.Sprint(n.ID), fmt.Sprint(n.Labels), n.Props)
}

/*
dataToString returns a string representation of a data item.
*/
func dataToString(dataType string, id string, kind string, props Properties) string {
	var buf bytes.Buffer

	attrlist := props.Keys()
	maxlen := 4

	for _, attr := range attrlist {
		if alen := len(attr); alen > maxlen {
			maxlen = alen
		}
	}

	buf.WriteString(dataType + ":\n")

	buf.WriteString(fmt.Sprintf("    %"+
		strconv.Itoa(maxlen)+"v : %v\n", "id", id))
	buf.WriteString(fmt.Sprintf("    %"+
		strconv.Itoa(maxlen)+"v : %v\n", "kind", kind))

	for _, attr := range attrlist {
		buf.WriteString(fmt.Sprintf("    %"+
			strconv.Itoa(maxlen)+"v : %v\n", attr, props[attr]))
	}

	return buf.String()
}
