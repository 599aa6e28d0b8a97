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

	"devt.de/krotik/eliasgraph/graph"
	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
)

/*
Execute executes a sequence of operations against a graph manager. The
operations are executed in order; an error stops the execution and the
returned result holds the statistics of everything executed so far.
*/
func Execute(gm *graph.Manager, ops ...Operation) (*Result, error) {
	ex := &executor{gm, newPlanner(gm), &Result{}, []row{{}}, make(map[binding]data.Properties)}

	for _, op := range ops {
		ex.res.Plan = append(ex.res.Plan, op.plan(ex.p)...)

		if err := op.apply(ex); err != nil {
			return ex.res, err
		}
	}

	return ex.res, nil
}

/*
Explain returns the plan of a sequence of operations without executing it.
*/
func Explain(gm *graph.Manager, ops ...Operation) []string {
	var ret []string

	p := newPlanner(gm)

	for _, op := range ops {
		ret = append(ret, op.plan(p)...)
	}

	return ret
}

// Rows
// ====

/*
binding is an entity which is bound to an alias.
*/
type binding struct {
	edge bool   // Flag if the entity is an edge
	id   uint64 // Identifier of the entity
}

/*
row holds the alias bindings of a single result row.
*/
type row map[string]binding

/*
get returns the binding of an alias.
*/
func (r row) get(alias string) (binding, error) {
	b, ok := r[alias]
	if !ok {
		return b, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Unknown alias %v", alias)}
	}
	return b, nil
}

/*
node returns the identifier of the node which is bound to an alias.
*/
func (r row) node(alias string) (uint64, error) {
	b, err := r.get(alias)

	if err == nil && b.edge {
		err = &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Alias %v is not bound to a node", alias)}
	}

	return b.id, err
}

/*
with returns a copy of this row with an additional binding.
*/
func (r row) with(alias string, b binding) row {
	ret := make(row, len(r)+1)
	for k, v := range r {
		ret[k] = v
	}
	ret[alias] = b
	return ret
}

/*
unbound checks that an alias is not bound yet. An alias can only be bound
once.
*/
func (r row) unbound(alias string) error {
	if _, ok := r[alias]; ok && alias != "" {
		return &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("Alias %v is already bound", alias)}
	}
	return nil
}

/*
bind binds an alias in a row unless the alias is empty.
*/
func (r row) bind(alias string, b binding) row {
	if alias == "" {
		return r
	}
	return r.with(alias, b)
}

// Executor
// ========

/*
executor holds the state of a running query.
*/
type executor struct {
	gm    *graph.Manager              // Graph which is queried
	p     *planner                    // Planner of the query
	res   *Result                     // Result of the query
	rows  []row                       // Current rows
	cache map[binding]data.Properties // Fetched properties
}

/*
invalidate discards fetched properties. Must be called after every
modification.
*/
func (ex *executor) invalidate() {
	ex.cache = make(map[binding]data.Properties)
}

/*
props returns the properties of a bound entity. Returns nil if the entity does
not exist anymore.
*/
func (ex *executor) props(b binding) (data.Properties, error) {
	if p, ok := ex.cache[b]; ok {
		return p, nil
	}

	var props data.Properties
	var err error

	if b.edge {
		var e *data.Edge
		if e, err = ex.gm.FetchEdge(b.id); err == nil {
			props = e.Props
		}
	} else {
		var n *data.Node
		if n, err = ex.gm.FetchNode(b.id); err == nil {
			props = n.Props
		}
	}

	if err != nil && !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	ex.cache[b] = props

	return props, nil
}

/*
property returns a property of the entity which is bound to an alias.
*/
func (ex *executor) property(r row, alias string, key string) (data.Value, bool, error) {
	b, err := r.get(alias)
	if err != nil {
		return data.NullValue(), false, err
	}

	props, err := ex.props(b)
	if err != nil {
		return data.NullValue(), false, err
	}

	val, ok := props[key]

	return val, ok, nil
}

/*
filter evaluates an optional condition.
*/
func (ex *executor) filter(r row, where Condition) (bool, error) {
	if where == nil {
		return true, nil
	}
	return where.eval(ex, r)
}

/*
hasLabel checks if a node exists and has a given label.
*/
func (ex *executor) hasLabel(id uint64, label string) (bool, error) {
	n, err := ex.gm.FetchNode(id)

	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			err = nil
		}
		return false, err
	}

	return label == "" || n.HasLabel(label), nil
}

// Operations
// ==========

func (op CreateNode) apply(ex *executor) error {
	for i, r := range ex.rows {
		if err := r.unbound(op.Alias); err != nil {
			return err
		}

		id, err := ex.gm.CreateNode(op.Labels, op.Props)
		if err != nil {
			return err
		}

		ex.res.NodesCreated++
		ex.res.PropertiesSet += len(op.Props)

		ex.rows[i] = r.bind(op.Alias, binding{false, id})
	}

	ex.invalidate()

	return nil
}

func (op CreateEdge) apply(ex *executor) error {
	for i, r := range ex.rows {
		src, err := r.node(op.From)
		if err != nil {
			return err
		}

		dst, err := r.node(op.To)
		if err == nil {
			err = r.unbound(op.Alias)
		}
		if err != nil {
			return err
		}

		id, err := ex.gm.CreateEdge(op.Kind, src, dst, op.Props)
		if err != nil {
			return err
		}

		ex.res.EdgesCreated++
		ex.res.PropertiesSet += len(op.Props)

		ex.rows[i] = r.bind(op.Alias, binding{true, id})
	}

	ex.invalidate()

	return nil
}

func (op MatchNodes) apply(ex *executor) error {
	var ids []uint64
	var rows []row

	loaded := false

	for _, r := range ex.rows {

		if b, ok := r[op.Alias]; ok {

			// Alias was bound by a previous operation

			if b.edge {
				return &util.GraphError{Type: util.ErrInvalidData,
					Detail: fmt.Sprintf("Alias %v is not bound to a node", op.Alias)}
			}

			res, err := ex.hasLabel(b.id, op.Label)
			if err == nil && res {
				res, err = ex.filter(r, op.Where)
			}
			if err != nil {
				return err
			}
			if res {
				rows = append(rows, r)
			}

			continue
		}

		if !loaded {
			var err error

			if ids, err = ex.p.nodeScan(op.Alias, op.Label, op.Where).ids(); err != nil {
				return err
			}

			loaded = true
		}

		for _, id := range ids {
			nr := r.with(op.Alias, binding{false, id})

			res, err := ex.filter(nr, op.Where)
			if err != nil {
				return err
			}
			if res {
				rows = append(rows, nr)
			}
		}
	}

	ex.rows = rows

	return nil
}

func (op MatchPattern) apply(ex *executor) error {
	var all []uint64
	var rows []row

	loaded := false

	for _, r := range ex.rows {
		var sources []uint64

		if _, ok := r[op.From]; ok {
			src, err := r.node(op.From)
			if err != nil {
				return err
			}

			res, err := ex.hasLabel(src, op.FromLabel)
			if err != nil {
				return err
			}
			if res {
				sources = []uint64{src}
			}

		} else {

			if !loaded {
				var err error

				if all, err = ex.p.nodeScan(op.From, op.FromLabel, nil).ids(); err != nil {
					return err
				}

				loaded = true
			}

			sources = all
		}

		for _, src := range sources {
			matched, err := op.traverse(ex, r, src)
			if err != nil {
				return err
			}
			rows = append(rows, matched...)
		}
	}

	ex.rows = rows

	return nil
}

/*
traverse follows the outgoing edges of a source node and returns all rows
which match the pattern.
*/
func (op MatchPattern) traverse(ex *executor, r row, src uint64) ([]row, error) {
	var rows []row

	it, err := ex.gm.Outgoing(src, op.Kind)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			err = nil
		}
		return nil, err
	}

	for it.HasNext() {
		edge, err := ex.gm.FetchEdge(it.Next())
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				continue
			}
			return nil, err
		}

		if res, err := ex.hasLabel(edge.Dst, op.ToLabel); err != nil {
			return nil, err
		} else if !res {
			continue
		}

		nr := r

		if _, bound := nr[op.From]; !bound {
			nr = nr.with(op.From, binding{false, src})
		}

		nr, ok := matchBinding(nr, op.Edge, binding{true, edge.ID})

		if ok {
			nr, ok = matchBinding(nr, op.To, binding{false, edge.Dst})
		}

		if !ok {
			continue
		}

		res, err := ex.filter(nr, op.Where)
		if err != nil {
			return nil, err
		}
		if res {
			rows = append(rows, nr)
		}
	}

	return rows, nil
}

/*
matchBinding binds an alias or checks an existing binding of the alias.
*/
func matchBinding(r row, alias string, b binding) (row, bool) {
	if alias == "" {
		return r, true
	}

	if existing, ok := r[alias]; ok {
		return r, existing == b
	}

	return r.with(alias, b), true
}

func (op Delete) apply(ex *executor) error {
	for _, r := range ex.rows {
		for _, alias := range op.Aliases {
			b, err := r.get(alias)
			if err != nil {
				return err
			}

			// Entities which were already deleted are skipped

			if b.edge {
				if _, err = ex.gm.RemoveEdge(b.id); err == nil {
					ex.res.EdgesDeleted++
				}
			} else {
				var edges []uint64
				if _, edges, err = ex.gm.RemoveNode(b.id); err == nil {
					ex.res.NodesDeleted++
					ex.res.EdgesDeleted += len(edges)
				}
			}

			if err != nil && !errors.Is(err, util.ErrNotFound) {
				ex.invalidate()
				return err
			}
		}
	}

	ex.invalidate()

	return nil
}

func (op SetProperty) apply(ex *executor) error {
	for _, r := range ex.rows {
		b, err := r.get(op.Alias)
		if err != nil {
			return err
		}

		if b.edge {
			err = ex.gm.SetEdgeProperty(b.id, op.Key, op.Value)
		} else {
			err = ex.gm.SetNodeProperty(b.id, op.Key, op.Value)
		}

		if err == nil {
			ex.res.PropertiesSet++
		} else if !errors.Is(err, util.ErrNotFound) {
			ex.invalidate()
			return err
		}
	}

	ex.invalidate()

	return nil
}

func (op CreateIndex) apply(ex *executor) error {
	created, err := ex.gm.CreateIndex(op.Label, op.Key)

	if created {
		ex.res.IndicesCreated++
	}

	return err
}
