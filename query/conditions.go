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

	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
)

/*
Condition is a filter over a row of alias bindings.
*/
type Condition interface {

	/*
		eval evaluates this condition for a row.
	*/
	eval(ex *executor, r row) (bool, error)
}

/*
Eq is true if a property of a bound entity equals a value. A missing property
or a null value never matches.
*/
type Eq struct {
	Alias string
	Key   string
	Value data.Value
}

/*
IDIn is true if the identifier of a bound entity is one of a set of
identifiers.
*/
type IDIn struct {
	Alias string
	IDs   []uint64
}

/*
Between is true if a property of a bound entity lies in the interval
[Lo, Hi]. Both bounds must be of the same kind.
*/
type Between struct {
	Alias string
	Key   string
	Lo    data.Value
	Hi    data.Value
}

/*
Or is true if any of its conditions is true.
*/
type Or []Condition

/*
And is true if all of its conditions are true.
*/
type And []Condition

func (c Eq) eval(ex *executor, r row) (bool, error) {
	val, ok, err := ex.property(r, c.Alias, c.Key)

	if err != nil || !ok || val.IsNull() || c.Value.IsNull() {
		return false, err
	}

	return val.Equal(c.Value), nil
}

func (c IDIn) eval(ex *executor, r row) (bool, error) {
	b, err := r.get(c.Alias)
	if err != nil {
		return false, err
	}

	for _, id := range c.IDs {
		if id == b.id {
			return true, nil
		}
	}

	return false, nil
}

func (c Between) eval(ex *executor, r row) (bool, error) {
	if !data.Comparable(c.Lo, c.Hi) {
		return false, &util.GraphError{Type: util.ErrTypeMismatch,
			Detail: fmt.Sprintf("Bounds of %v.%v are not comparable: %v and %v",
				c.Alias, c.Key, c.Lo, c.Hi)}
	}

	val, ok, err := ex.property(r, c.Alias, c.Key)

	if err != nil || !ok || !data.Comparable(val, c.Lo) {
		return false, err
	}

	return val.Compare(c.Lo) >= 0 && val.Compare(c.Hi) <= 0, nil
}

func (c Or) eval(ex *executor, r row) (bool, error) {
	for _, cond := range c {
		if res, err := cond.eval(ex, r); err != nil || res {
			return res, err
		}
	}
	return false, nil
}

func (c And) eval(ex *executor, r row) (bool, error) {
	for _, cond := range c {
		if res, err := cond.eval(ex, r); err != nil || !res {
			return false, err
		}
	}
	return true, nil
}
