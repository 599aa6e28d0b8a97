/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import "fmt"

/*
NoCode is returned for names which have no code assigned.
*/
const NoCode uint32 = 0

/*
NamesManager data structure
*/
type NamesManager struct {
	codes map[string]uint32 // Lookup from name to code
	names []string          // Names ordered by code (code 1 is at position 0)
}

/*
NewNamesManager creates a new names manager instance.
*/
func NewNamesManager() *NamesManager {
	return &NamesManager{make(map[string]uint32), make([]string, 0)}
}

/*
NewNamesManagerFromTable creates a names manager from a name table which was
previously produced by Names(). The position of a name in the table determines
its code.
*/
func NewNamesManagerFromTable(table []string) (*NamesManager, error) {
	nm := &NamesManager{make(map[string]uint32, len(table)), make([]string, 0, len(table))}

	for _, name := range table {
		if _, ok := nm.codes[name]; ok {
			return nil, &GraphError{ErrCorruptSnapshot,
				fmt.Sprintf("Duplicate name in name table: %v", name)}
		}

		nm.Encode32(name, true)
	}

	return nm, nil
}

/*
Encode32 encodes a given value as a 32 bit code. If the create flag
is set to false then a new entry will not be created if it does not exist
and NoCode is returned.
*/
func (nm *NamesManager) Encode32(name string, create bool) uint32 {
	code, ok := nm.codes[name]

	// If the code doesn't exist yet create it

	if !ok && create {
		nm.names = append(nm.names, name)
		code = uint32(len(nm.names))
		nm.codes[name] = code
	}

	return code
}

/*
Decode32 decodes a given 32 bit code to a name. Returns false if the code is
unknown.
*/
func (nm *NamesManager) Decode32(code uint32) (string, bool) {
	if code == NoCode || int(code) > len(nm.names) {
		return "", false
	}

	return nm.names[code-1], true
}

/*
Names returns the name table ordered by code.
*/
func (nm *NamesManager) Names() []string {
	ret := make([]string, len(nm.names))
	copy(ret, nm.names)
	return ret
}

/*
Len returns the number of known names.
*/
func (nm *NamesManager) Len() int {
	return len(nm.names)
}
