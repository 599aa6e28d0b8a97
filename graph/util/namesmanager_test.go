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

import (
	"errors"
	"fmt"
	"testing"
)

func TestNamesManager(t *testing.T) {
	nm := NewNamesManager()

	if res := nm.Encode32("person", true); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}
	if res := nm.Encode32("country", true); res != 2 {
		t.Error("Unexpected result:", res)
		return
	}
	if res := nm.Encode32("person", true); res != 1 {
		t.Error("Existing names should keep their code:", res)
		return
	}

	if res := nm.Encode32("mynonexistentstring", false); res != NoCode {
		t.Error("Unexpected lookup result:", res)
		return
	}

	if name, ok := nm.Decode32(2); !ok || name != "country" {
		t.Error("Unexpected result:", name, ok)
		return
	}

	if _, ok := nm.Decode32(NoCode); ok {
		t.Error("NoCode should not decode")
		return
	}

	if _, ok := nm.Decode32(3); ok {
		t.Error("Unknown code should not decode")
		return
	}

	table := nm.Names()

	if res := fmt.Sprint(table); res != "[person country]" {
		t.Error("Unexpected name table:", res)
		return
	}

	nm2, err := NewNamesManagerFromTable(table)
	if err != nil {
		t.Error(err)
		return
	}

	if nm2.Encode32("country", false) != 2 || nm2.Len() != 2 {
		t.Error("Restored names manager should have the same codes")
		return
	}

	_, err = NewNamesManagerFromTable([]string{"a", "b", "a"})
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Error("Unexpected result:", err)
		return
	}
}
