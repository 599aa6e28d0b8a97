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
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

/*
Compression is the block compression algorithm of a snapshot body.
*/
type Compression byte

/*
Known compression algorithms. The numeric values are part of the snapshot format.
*/
const (
	CompressionNone Compression = 0x00
	CompressionLZ4  Compression = 0x01
	CompressionZSTD Compression = 0x02
)

/*
BlockSize is the maximum uncompressed size of a single block.
*/
const BlockSize = 256 * 1024

/*
blockHeaderSize is the size of a block header: uncompressed size and
compressed size (0 for a block which is stored raw).
*/
const blockHeaderSize = 8

/*
String returns the name of a compression algorithm.
*/
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", byte(c))
}

/*
ParseCompression parses the name of a compression algorithm.
*/
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	}
	return CompressionNone, &GraphError{ErrInvalidData,
		fmt.Sprintf("Unknown compression: %v", name)}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

/*
CompressBlocks splits data into blocks of BlockSize and compresses each
block. A block which does not shrink below 90% of its size is stored raw.
*/
func CompressBlocks(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	ret := make([]byte, 0, len(data)/2+blockHeaderSize)

	for start := 0; start < len(data); start += BlockSize {
		end := start + BlockSize
		if end > len(data) {
			end = len(data)
		}

		block, err := compressBlock(data[start:end], c)
		if err != nil {
			return nil, err
		}

		ret = append(ret, block...)
	}

	return ret, nil
}

/*
compressBlock compresses a single block and prepends the block header.
*/
func compressBlock(block []byte, c Compression) ([]byte, error) {
	var compressed []byte

	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(block)))

		n, err := lz4.CompressBlock(block, buf, nil)
		if err != nil {
			return nil, &GraphError{ErrWriting, err.Error()}
		}
		compressed = buf[:n]

	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(block, nil)
		zstdEncoderPool.Put(enc)

	default:
		return nil, &GraphError{ErrInvalidData, fmt.Sprintf("Unknown compression: %v", c)}
	}

	header := make([]byte, blockHeaderSize)
	binary.LittleEndian.PutUint32(header[0:], uint32(len(block)))

	// Incompressible blocks are stored raw

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(block))*0.9 {
		return append(header, block...), nil
	}

	binary.LittleEndian.PutUint32(header[4:], uint32(len(compressed)))

	return append(header, compressed...), nil
}

/*
DecompressBlocks reverses CompressBlocks. Malformed block data is reported as
a corrupt snapshot.
*/
func DecompressBlocks(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	var ret []byte

	for offset := 0; offset < len(data); {
		if len(data)-offset < blockHeaderSize {
			return nil, &GraphError{ErrCorruptSnapshot, "Block too small for header"}
		}

		uncompressedSize := int(binary.LittleEndian.Uint32(data[offset:]))
		compressedSize := int(binary.LittleEndian.Uint32(data[offset+4:]))
		offset += blockHeaderSize

		if uncompressedSize > BlockSize {
			return nil, &GraphError{ErrCorruptSnapshot,
				fmt.Sprintf("Block size %v exceeds maximum", uncompressedSize)}
		}

		if compressedSize == 0 {
			if len(data)-offset < uncompressedSize {
				return nil, &GraphError{ErrCorruptSnapshot, "Block data too small"}
			}

			ret = append(ret, data[offset:offset+uncompressedSize]...)
			offset += uncompressedSize

			continue
		}

		if len(data)-offset < compressedSize {
			return nil, &GraphError{ErrCorruptSnapshot, "Compressed block data too small"}
		}

		block, err := decompressBlock(data[offset:offset+compressedSize], uncompressedSize, c)
		if err != nil {
			return nil, err
		}

		ret = append(ret, block...)
		offset += compressedSize
	}

	return ret, nil
}

/*
decompressBlock decompresses the payload of a single block.
*/
func decompressBlock(payload []byte, size int, c Compression) ([]byte, error) {
	result := make([]byte, size)

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, &GraphError{ErrCorruptSnapshot, err.Error()}
		} else if n != size {
			return nil, &GraphError{ErrCorruptSnapshot, "Decompressed size mismatch"}
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(payload, result[:0])
		if err != nil {
			return nil, &GraphError{ErrCorruptSnapshot, err.Error()}
		} else if len(decoded) != size {
			return nil, &GraphError{ErrCorruptSnapshot, "Decompressed size mismatch"}
		}
		return decoded, nil
	}

	return nil, &GraphError{ErrCorruptSnapshot, fmt.Sprintf("Unknown compression: %v", c)}
}
