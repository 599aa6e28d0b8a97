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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"devt.de/krotik/eliasgraph/graph/data"
)

/*
NullRendering is the rendering of a missing or null value.
*/
const NullRendering = "NULL"

/*
group is an output row of a Return operation. Without aggregation every row
is its own group.
*/
type group struct {
	r      row          // Representative row of the group
	counts []int        // Counts of the count items
	keys   []data.Value // Sort keys
}

/*
column is a column of the result table.
*/
type column struct {
	header string
	render func(g *group) (string, error)
}

/*
aggregates checks if this Return operation contains count items.
*/
func (op Return) aggregates() bool {
	for _, item := range op.Items {
		if item.Count {
			return true
		}
	}
	return false
}

func (op Return) apply(ex *executor) error {
	var groups []*group
	var err error

	if op.aggregates() {
		groups, err = op.group(ex)
	} else {
		for _, r := range ex.rows {
			groups = append(groups, &group{r: r})
		}
	}

	if err == nil {
		err = op.sort(ex, groups)
	}

	if err != nil {
		return err
	}

	if op.Limit > 0 && len(groups) > op.Limit {
		groups = groups[:op.Limit]
	}

	cols, err := op.columns(ex, groups)
	if err != nil {
		return err
	}

	ex.res.Header = make([]string, len(cols))
	for i, c := range cols {
		ex.res.Header[i] = c.header
	}

	ex.res.Rows = make([][]string, 0, len(groups))

	for _, g := range groups {
		line := make([]string, len(cols))

		for i, c := range cols {
			if line[i], err = c.render(g); err != nil {
				return err
			}
		}

		ex.res.Rows = append(ex.res.Rows, line)
	}

	return nil
}

/*
group groups the rows by all items which are not counted. Without any such
item all rows form a single group, even if there are no rows.
*/
func (op Return) group(ex *executor) ([]*group, error) {
	var groups []*group

	index := make(map[string]*group)
	grouped := false

	for _, item := range op.Items {
		grouped = grouped || !item.Count
	}

	if !grouped {
		groups = append(groups, &group{r: row{}, counts: make([]int, len(op.Items))})
		index[""] = groups[0]
	}

	for _, r := range ex.rows {
		var key strings.Builder

		for _, item := range op.Items {
			if item.Count {
				continue
			}

			b, err := r.get(item.Alias)
			if err != nil {
				return nil, err
			}

			if item.Key == "" {
				fmt.Fprintf(&key, "%v:%v\x00", b.edge, b.id)
				continue
			}

			val, _, err := ex.property(r, item.Alias, item.Key)
			if err != nil {
				return nil, err
			}

			fmt.Fprintf(&key, "%v:%v\x00", val.Kind(), val.String())
		}

		g, ok := index[key.String()]
		if !ok {
			g = &group{r: r, counts: make([]int, len(op.Items))}
			index[key.String()] = g
			groups = append(groups, g)
		}

		for i, item := range op.Items {
			if _, ok := r[item.Alias]; ok && item.Count {
				g.counts[i]++
			}
		}
	}

	return groups, nil
}

/*
sort sorts groups by the order items. Values of different kinds are ordered
by kind. Missing values are treated as null.
*/
func (op Return) sort(ex *executor, groups []*group) error {
	if len(op.OrderBy) == 0 {
		return nil
	}

	for _, g := range groups {
		g.keys = make([]data.Value, len(op.OrderBy))

		for i, o := range op.OrderBy {
			if o.Key == "" {
				b, err := g.r.get(o.Alias)
				if err != nil {
					return err
				}
				g.keys[i] = data.DoubleValue(float64(b.id))
				continue
			}

			val, ok, err := ex.property(g.r, o.Alias, o.Key)
			if err != nil {
				return err
			} else if !ok {
				val = data.NullValue()
			}

			g.keys[i] = val
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		for k, o := range op.OrderBy {
			c := groups[i].keys[k].Compare(groups[j].keys[k])
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	return nil
}

/*
columns determines the columns of the result table. A whole entity is
expanded into one column per property key of the returned rows.
*/
func (op Return) columns(ex *executor, groups []*group) ([]*column, error) {
	var cols []*column

	for i, item := range op.Items {
		idx, item := i, item

		switch {

		case item.Count:
			cols = append(cols, &column{fmt.Sprintf("COUNT(%v)", item.Alias),
				func(g *group) (string, error) {
					return data.DoubleValue(float64(g.counts[idx])).Render(), nil
				}})

		case item.Key != "":
			cols = append(cols, propertyColumn(ex, item.Alias, item.Key))

		default:
			keys, err := entityKeys(ex, item.Alias, groups)
			if err != nil {
				return nil, err
			}

			if len(keys) == 0 {

				// Entities without properties are rendered by their identifier

				cols = append(cols, &column{item.Alias, func(g *group) (string, error) {
					b, err := g.r.get(item.Alias)
					return strconv.FormatUint(b.id, 10), err
				}})
			}

			for _, key := range keys {
				cols = append(cols, propertyColumn(ex, item.Alias, key))
			}
		}
	}

	return cols, nil
}

/*
entityKeys collects the sorted union of all property keys of an alias.
*/
func entityKeys(ex *executor, alias string, groups []*group) ([]string, error) {
	keys := make(data.Properties)

	for _, g := range groups {
		b, err := g.r.get(alias)
		if err != nil {
			return nil, err
		}

		props, err := ex.props(b)
		if err != nil {
			return nil, err
		}

		for k := range props {
			keys[k] = data.NullValue()
		}
	}

	return keys.Keys(), nil
}

/*
propertyColumn creates a column which renders a single property.
*/
func propertyColumn(ex *executor, alias string, key string) *column {
	return &column{fmt.Sprintf("%v.%v", alias, key), func(g *group) (string, error) {
		val, ok, err := ex.property(g.r, alias, key)
		if err != nil || !ok {
			return NullRendering, err
		}
		return val.Render(), nil
	}}
}
