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
	"errors"
	"fmt"
	"strings"

	"devt.de/krotik/eliasgraph/graph"
	"devt.de/krotik/eliasgraph/graph/util"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

/*
Plan step names
*/
const (
	StepAllNodeScan         = "All Node Scan"
	StepNodeByLabelScan     = "Node By Label Scan"
	StepNodeByIDSeek        = "Node By Id Seek"
	StepIndexScan           = "Index Scan"
	StepFilter              = "Filter"
	StepConditionalTraverse = "Conditional Traverse"
	StepCreate              = "Create"
	StepDelete              = "Delete"
	StepUpdate              = "Update"
	StepCreateIndex         = "Create Index"
	StepProject             = "Project"
	StepAggregate           = "Aggregate"
	StepSort                = "Sort"
	StepLimit               = "Limit"
)

/*
planner chooses how operations access the graph. It tracks the aliases which
are bound and the indices which will exist when an operation runs.
*/
type planner struct {
	gm      *graph.Manager           // Graph which is queried
	bound   map[string]bool          // Aliases bound by previous operations
	pending map[graph.IndexDecl]bool // Indices created by previous operations
}

/*
newPlanner creates a new planner.
*/
func newPlanner(gm *graph.Manager) *planner {
	return &planner{gm, make(map[string]bool), make(map[graph.IndexDecl]bool)}
}

/*
hasIndex checks if a (label, key) pair is indexed.
*/
func (p *planner) hasIndex(label string, key string) bool {
	return p.pending[graph.IndexDecl{Label: label, Key: key}] || p.gm.HasIndex(label, key)
}

/*
bind marks aliases as bound.
*/
func (p *planner) bind(aliases ...string) {
	for _, a := range aliases {
		if a != "" {
			p.bound[a] = true
		}
	}
}

/*
scan is the access path of a node match.
*/
type scan struct {
	step string // Plan step of the scan
	seek bool   // Flag if the scan evaluates the condition
	ids  func() ([]uint64, error) // Produces the candidate node identifiers
}

/*
nodeScan chooses the access path for nodes of an alias. The candidates are a
superset of the nodes which fulfill the condition; the condition must still
be applied to every candidate.
*/
func (p *planner) nodeScan(alias string, label string, where Condition) *scan {
	pattern := patternNode(alias, label)

	if ids, ok := idSeek(alias, where); ok {
		return &scan{fmt.Sprintf("%v | %v", StepNodeByIDSeek, pattern), true, func() ([]uint64, error) {
			var ret []uint64
			for _, id := range ids {
				n, err := p.gm.FetchNode(id)
				if err != nil {
					if errors.Is(err, util.ErrNotFound) {
						continue
					}
					return nil, err
				}
				if label == "" || n.HasLabel(label) {
					ret = append(ret, id)
				}
			}
			return ret, nil
		}}
	}

	if label != "" {
		if lookup, ok := p.indexSeek(alias, label, where); ok {
			return &scan{fmt.Sprintf("%v | %v", StepIndexScan, pattern), true, lookup}
		}

		return &scan{fmt.Sprintf("%v | %v", StepNodeByLabelScan, pattern), false, func() ([]uint64, error) {
			return collect(p.gm.NodeIterator(label)), nil
		}}
	}

	return &scan{fmt.Sprintf("%v | %v", StepAllNodeScan, pattern), false, func() ([]uint64, error) {
		return collect(p.gm.NodeIterator("")), nil
	}}
}

/*
scanSteps returns the plan steps of a node match.
*/
func (p *planner) scanSteps(alias string, label string, where Condition) []string {
	if p.bound[alias] {
		if where != nil || label != "" {
			return []string{StepFilter}
		}
		return nil
	}

	sc := p.nodeScan(alias, label, where)
	ret := []string{sc.step}

	if where != nil && (!sc.seek || partial(where)) {
		ret = append(ret, StepFilter)
	}

	return ret
}

/*
partial checks if a seek on a condition might only answer a part of it.
*/
func partial(where Condition) bool {
	switch c := where.(type) {
	case And:
		return len(c) > 1
	case Or:
		for _, cond := range c {
			if partial(cond) {
				return true
			}
		}
	}
	return false
}

/*
idSeek extracts the identifiers of an alias from an IDIn condition or from a
disjunction of IDIn conditions.
*/
func idSeek(alias string, where Condition) ([]uint64, bool) {
	switch c := where.(type) {

	case IDIn:
		if c.Alias == alias {
			return union(c.IDs), true
		}

	case Or:
		var ids []uint64
		for _, cond := range c {
			cids, ok := idSeek(alias, cond)
			if !ok {
				return nil, false
			}
			ids = append(ids, cids...)
		}
		return union(ids), len(c) > 0

	case And:
		for _, cond := range c {
			if ids, ok := idSeek(alias, cond); ok {
				return ids, true
			}
		}
	}

	return nil, false
}

/*
indexSeek builds index lookups for a condition. Equality and interval
conditions on indexed keys can be answered by an index. A disjunction can be
answered if all its parts can be answered.
*/
func (p *planner) indexSeek(alias string, label string, where Condition) (func() ([]uint64, error), bool) {
	switch c := where.(type) {

	case Eq:
		if c.Alias == alias && !c.Value.IsNull() && p.hasIndex(label, c.Key) {
			return func() ([]uint64, error) {
				return p.gm.Lookup(label, c.Key, c.Value)
			}, true
		}

	case Between:
		if c.Alias == alias && p.hasIndex(label, c.Key) {
			return func() ([]uint64, error) {
				return p.gm.Range(label, c.Key, c.Lo, c.Hi)
			}, true
		}

	case Or:
		var lookups []func() ([]uint64, error)

		for _, cond := range c {
			lookup, ok := p.indexSeek(alias, label, cond)
			if !ok {
				return nil, false
			}
			lookups = append(lookups, lookup)
		}

		return func() ([]uint64, error) {
			var ids []uint64
			for _, lookup := range lookups {
				res, err := lookup()
				if err != nil {
					return nil, err
				}
				ids = append(ids, res...)
			}
			return union(ids), nil
		}, len(c) > 0

	case And:
		for _, cond := range c {
			if lookup, ok := p.indexSeek(alias, label, cond); ok {
				return lookup, true
			}
		}
	}

	return nil, false
}

/*
union returns the sorted set of a list of identifiers.
*/
func union(ids []uint64) []uint64 {
	bm := roaring64.New()
	bm.AddMany(ids)
	return bm.ToArray()
}

/*
collect collects all identifiers of a node iterator.
*/
func collect(it *graph.NodeIterator) []uint64 {
	var ret []uint64
	for it.HasNext() {
		ret = append(ret, it.Next())
	}
	return ret
}

/*
patternNode renders a node pattern.
*/
func patternNode(alias string, label string) string {
	if label != "" {
		return fmt.Sprintf("(%v:%v)", alias, label)
	}
	return fmt.Sprintf("(%v)", alias)
}

// Plans of operations
// ===================

func (op CreateNode) plan(p *planner) []string {
	p.bind(op.Alias)
	return []string{fmt.Sprintf("%v | %v", StepCreate, patternNode(op.Alias, strings.Join(op.Labels, ":")))}
}

func (op CreateEdge) plan(p *planner) []string {
	p.bind(op.Alias)
	return []string{fmt.Sprintf("%v | (%v)-[%v:%v]->(%v)", StepCreate, op.From, op.Alias, op.Kind, op.To)}
}

func (op MatchNodes) plan(p *planner) []string {
	ret := p.scanSteps(op.Alias, op.Label, op.Where)
	p.bind(op.Alias)
	return ret
}

func (op MatchPattern) plan(p *planner) []string {
	var ret []string

	if !p.bound[op.From] {
		ret = append(ret, p.nodeScan(op.From, op.FromLabel, nil).step)
	}

	edge := op.Edge
	if op.Kind != "" {
		edge += ":" + op.Kind
	}

	ret = append(ret, fmt.Sprintf("%v | %v-[%v]->%v", StepConditionalTraverse,
		patternNode(op.From, op.FromLabel), edge, patternNode(op.To, op.ToLabel)))

	if op.Where != nil {
		ret = append(ret, StepFilter)
	}

	p.bind(op.From, op.Edge, op.To)

	return ret
}

func (op Delete) plan(p *planner) []string {
	return []string{fmt.Sprintf("%v | %v", StepDelete, strings.Join(op.Aliases, ", "))}
}

func (op SetProperty) plan(p *planner) []string {
	return []string{fmt.Sprintf("%v | %v.%v", StepUpdate, op.Alias, op.Key)}
}

func (op CreateIndex) plan(p *planner) []string {
	d := graph.IndexDecl{Label: op.Label, Key: op.Key}
	p.pending[d] = true
	return []string{fmt.Sprintf("%v | %v", StepCreateIndex, d)}
}

func (op Return) plan(p *planner) []string {
	ret := []string{StepProject}

	if op.aggregates() {
		ret[0] = StepAggregate
	}
	if len(op.OrderBy) > 0 {
		ret = append(ret, StepSort)
	}
	if op.Limit > 0 {
		ret = append(ret, StepLimit)
	}

	return ret
}
