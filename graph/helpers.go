/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"fmt"

	"devt.de/krotik/common/stringutil"
	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
)

// Helper functions for GraphManager
// =================================

/*
CheckGraphName checks if a given graph name is valid.
*/
func CheckGraphName(name string) error {
	if name == "" || !stringutil.IsAlphaNumeric(name) {
		return &util.GraphError{
			Type:   util.ErrInvalidData,
			Detail: fmt.Sprintf("Graph name %v is not alphanumeric - can only contain [a-zA-Z0-9_]", name),
		}
	}

	return nil
}

/*
checkNames checks that a list of names does not contain an empty string.
*/
func checkNames(what string, names ...string) error {
	for _, n := range names {
		if n == "" {
			return &util.GraphError{Type: util.ErrInvalidData, Detail: what + " is empty"}
		}
	}

	return nil
}

/*
checkProps checks the property keys of a new graph item.
*/
func checkProps(props map[string]data.Value) error {
	for k, v := range props {
		if k == "" {
			return &util.GraphError{Type: util.ErrInvalidData, Detail: "Property key is empty"}
		} else if !v.Kind().IsValid() {
			return &util.GraphError{Type: util.ErrTypeMismatch,
				Detail: fmt.Sprintf("Property %v has an invalid value", k)}
		}
	}

	return nil
}

/*
ConvertProps converts a map of plain Go values into property values.
*/
func ConvertProps(props map[string]interface{}) (map[string]data.Value, error) {
	ret := make(map[string]data.Value, len(props))

	for k, obj := range props {
		v, ok := data.ValueOf(obj)
		if !ok {
			return nil, &util.GraphError{Type: util.ErrTypeMismatch,
				Detail: fmt.Sprintf("Property %v has an unsupported type: %T", k, obj)}
		}
		ret[k] = v
	}

	return ret, nil
}
