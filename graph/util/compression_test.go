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
	"math/rand"
	"testing"
)

func TestCompressBlocks(t *testing.T) {

	// Compressible data spanning several blocks

	data := bytes.Repeat([]byte("person country LIVES_IN "), BlockSize/8)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {

		compressed, err := CompressBlocks(data, c)
		if err != nil {
			t.Error(err)
			return
		}

		if c != CompressionNone && len(compressed) >= len(data) {
			t.Error("Data should have been compressed with", c, len(compressed))
			return
		}

		res, err := DecompressBlocks(compressed, c)
		if err != nil {
			t.Error(err)
			return
		}

		if !bytes.Equal(res, data) {
			t.Error("Data did not survive compression with", c)
			return
		}
	}

	// Random data is stored raw

	random := make([]byte, 1000)
	rand.New(rand.NewSource(1)).Read(random)

	compressed, _ := CompressBlocks(random, CompressionLZ4)

	if len(compressed) != len(random)+blockHeaderSize {
		t.Error("Incompressible data should be stored raw:", len(compressed))
		return
	}

	if res, err := DecompressBlocks(compressed, CompressionLZ4); err != nil || !bytes.Equal(res, random) {
		t.Error("Unexpected result:", err)
		return
	}

	// Empty data

	if res, err := CompressBlocks(nil, CompressionZSTD); err != nil || len(res) != 0 {
		t.Error("Unexpected result:", res, err)
		return
	}
}

func TestDecompressBlocksCorruption(t *testing.T) {
	data := bytes.Repeat([]byte("aaaaaaaaaaaaaaaa"), 100)

	compressed, _ := CompressBlocks(data, CompressionZSTD)

	if _, err := DecompressBlocks(compressed[:5], CompressionZSTD); !errors.Is(err, ErrCorruptSnapshot) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := DecompressBlocks(compressed[:len(compressed)-1], CompressionZSTD); !errors.Is(err, ErrCorruptSnapshot) {
		t.Error("Unexpected result:", err)
		return
	}

	broken := make([]byte, len(compressed))
	copy(broken, compressed)
	broken[0] = 0xFF
	broken[1] = 0xFF
	broken[2] = 0xFF

	if _, err := DecompressBlocks(broken, CompressionZSTD); !errors.Is(err, ErrCorruptSnapshot) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ParseCompression("gzip"); !errors.Is(err, ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if c, err := ParseCompression("ZSTD"); c != CompressionZSTD || err != nil || c.String() != "zstd" {
		t.Error("Unexpected result:", c, err)
		return
	}
}
