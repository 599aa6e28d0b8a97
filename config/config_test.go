/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"fmt"
	"os"
	"testing"
)

const testconf = "testconfig"

const invalidFileName = "**" + "\x00"

func TestConfig(t *testing.T) {

	Config = nil

	os.WriteFile(testconf, []byte(`{
    "EnableReadOnly": true,
    "SnapshotStorage": "minio"
}`), 0644)

	defer func() {
		if err := os.Remove(testconf); err != nil {
			fmt.Print("Could not remove test config file:", err.Error())
		}
	}()

	if err := LoadConfigFile(testconf); err != nil {
		t.Error(err)
		return
	}

	if res := Str(EnableReadOnly); res != "true" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Bool(EnableReadOnly); !res {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Str(SnapshotStorage); res != StorageMinio {
		t.Error("Unexpected result:", res)
		return
	}

	// Missing keys are filled in from the defaults

	if res := Str(SnapshotCompression); res != "lz4" {
		t.Error("Unexpected result:", res)
		return
	}

	LoadDefaultConfig()

	if res := Str(EnableReadOnly); res != "false" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Str(SnapshotStorage); res != StorageDisk {
		t.Error("Unexpected result:", res)
		return
	}

	Config[SnapshotPrefix] = "123"

	if res := Int(SnapshotPrefix); res != 123 {
		t.Error("Unexpected result:", res)
		return
	}

	if DefaultConfig[SnapshotPrefix] != "snapshots" {
		t.Error("Default config was modified")
		return
	}
}

func TestConfigErrors(t *testing.T) {

	if err := LoadConfigFile(invalidFileName); err == nil {
		t.Error("Loading an invalid config file should fail")
		return
	}

	LoadDefaultConfig()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Parsing an invalid number should panic")
		}
	}()

	Int(SnapshotPrefix)
}
