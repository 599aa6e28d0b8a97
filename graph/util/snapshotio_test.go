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
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"devt.de/krotik/eliasgraph/graph/data"
)

func TestSnapshotPrimitives(t *testing.T) {
	var buf bytes.Buffer

	sw := NewSnapshotWriter(&buf)

	sw.WriteByte(7)
	sw.WriteUvarint(300)
	sw.WriteUint16(0xBEEF)
	sw.WriteUint32(0xCAFEBABE)
	sw.WriteString("hello")
	sw.WriteFixed([]byte{1, 2, 3})

	values := []data.Value{
		data.StringValue("Bob"),
		data.DoubleValue(1.0 / 3.0),
		data.DoubleValue(math.Inf(-1)),
		data.BoolValue(true),
		data.BoolValue(false),
		data.NullValue(),
		data.StringValue(""),
	}

	for _, v := range values {
		sw.WriteValue(v)
	}

	if sw.Len() != buf.Len() {
		t.Error("Unexpected length:", sw.Len())
		return
	}

	sr := NewSnapshotReader(buf.Bytes())

	if b, err := sr.ReadByte(); b != 7 || err != nil {
		t.Error("Unexpected result:", b, err)
		return
	}
	if res := sr.ReadUvarint(); res != 300 {
		t.Error("Unexpected result:", res)
		return
	}
	if res := sr.ReadUint16(); res != 0xBEEF {
		t.Error("Unexpected result:", res)
		return
	}
	if res := sr.ReadUint32(); res != 0xCAFEBABE {
		t.Error("Unexpected result:", res)
		return
	}
	if res := sr.ReadString(); res != "hello" {
		t.Error("Unexpected result:", res)
		return
	}
	if res := sr.ReadFixed(3); !bytes.Equal(res, []byte{1, 2, 3}) {
		t.Error("Unexpected result:", res)
		return
	}

	for _, v := range values {
		res := sr.ReadValue()

		if !res.Equal(v) || res.Kind() != v.Kind() || res.Render() != v.Render() {
			t.Error("Value did not survive encoding:", v, res)
			return
		}
	}

	if sr.Err() != nil || sr.Remaining() != 0 {
		t.Error("Unexpected reader state:", sr.Err(), sr.Remaining())
		return
	}

	// Reading past the end is reported as corruption and the error sticks

	sr.ReadUvarint()

	if !errors.Is(sr.Err(), ErrCorruptSnapshot) {
		t.Error("Unexpected result:", sr.Err())
		return
	}

	if _, err := sr.ReadByte(); err != sr.Err() {
		t.Error("Error should be sticky:", err)
		return
	}
}

func TestSnapshotReaderCorruption(t *testing.T) {

	// Unknown value tag

	sr := NewSnapshotReader([]byte{0x09})
	sr.ReadValue()

	if err := sr.Err(); !errors.Is(err, ErrCorruptSnapshot) ||
		!strings.Contains(err.Error(), "Unknown value tag 9") {
		t.Error("Unexpected result:", err)
		return
	}

	// Invalid boolean payload

	sr = NewSnapshotReader([]byte{byte(data.KindBoolean), 0x05})
	sr.ReadValue()

	if !errors.Is(sr.Err(), ErrCorruptSnapshot) {
		t.Error("Unexpected result:", sr.Err())
		return
	}

	// Truncated double

	sr = NewSnapshotReader([]byte{byte(data.KindDouble), 0x00, 0x00})
	sr.ReadValue()

	if !errors.Is(sr.Err(), ErrCorruptSnapshot) {
		t.Error("Unexpected result:", sr.Err())
		return
	}

	// String length larger than the remaining data

	sr = NewSnapshotReader([]byte{byte(data.KindString), 0x7F, 'a'})
	sr.ReadValue()

	if err := sr.Err(); !errors.Is(err, ErrCorruptSnapshot) ||
		!strings.Contains(err.Error(), "exceeds remaining data") {
		t.Error("Unexpected result:", err)
		return
	}

	// Overlong varint

	sr = NewSnapshotReader(bytes.Repeat([]byte{0xFF}, 11))
	sr.ReadUvarint()

	if err := sr.Err(); !errors.Is(err, ErrCorruptSnapshot) ||
		!strings.Contains(err.Error(), "Integer overflow") {
		t.Error("Unexpected result:", err)
		return
	}
}
