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
	"encoding/binary"
	"fmt"
	"math"

	"devt.de/krotik/eliasgraph/graph/data"
)

/*
SnapshotWriter writes the primitive types of the snapshot format into a
buffer. Writing into a buffer cannot fail so the write functions do not
return errors (WriteByte keeps the io.ByteWriter signature).
*/
type SnapshotWriter struct {
	buf     *bytes.Buffer
	scratch [binary.MaxVarintLen64]byte
}

/*
NewSnapshotWriter creates a new snapshot writer which writes into a given buffer.
*/
func NewSnapshotWriter(buf *bytes.Buffer) *SnapshotWriter {
	return &SnapshotWriter{buf: buf}
}

/*
WriteByte writes a single byte.
*/
func (sw *SnapshotWriter) WriteByte(b byte) error {
	return sw.buf.WriteByte(b)
}

/*
WriteUvarint writes an unsigned variable length integer.
*/
func (sw *SnapshotWriter) WriteUvarint(v uint64) {
	n := binary.PutUvarint(sw.scratch[:], v)
	sw.buf.Write(sw.scratch[:n])
}

/*
WriteUint16 writes a little endian 16 bit integer.
*/
func (sw *SnapshotWriter) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(sw.scratch[:2], v)
	sw.buf.Write(sw.scratch[:2])
}

/*
WriteUint32 writes a little endian 32 bit integer.
*/
func (sw *SnapshotWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(sw.scratch[:4], v)
	sw.buf.Write(sw.scratch[:4])
}

/*
WriteFixed writes raw bytes without a length prefix.
*/
func (sw *SnapshotWriter) WriteFixed(b []byte) {
	sw.buf.Write(b)
}

/*
WriteString writes a length prefixed string.
*/
func (sw *SnapshotWriter) WriteString(s string) {
	sw.WriteUvarint(uint64(len(s)))
	sw.buf.WriteString(s)
}

/*
WriteValue writes a property value as a tag byte followed by its payload.
*/
func (sw *SnapshotWriter) WriteValue(v data.Value) {
	sw.buf.WriteByte(byte(v.Kind()))

	switch v.Kind() {
	case data.KindBoolean:
		if v.Bool() {
			sw.buf.WriteByte(1)
		} else {
			sw.buf.WriteByte(0)
		}

	case data.KindDouble:
		binary.LittleEndian.PutUint64(sw.scratch[:8], math.Float64bits(v.Double()))
		sw.buf.Write(sw.scratch[:8])

	case data.KindString:
		sw.WriteString(v.Str())
	}
}

/*
Len returns the number of bytes written so far.
*/
func (sw *SnapshotWriter) Len() int {
	return sw.buf.Len()
}

/*
SnapshotReader reads the primitive types of the snapshot format from a byte
slice. The first error is sticky: once a read failed all further reads
return zero values and Err() reports the original problem.
*/
type SnapshotReader struct {
	data []byte // Data to read
	pos  int    // Current read position
	err  error  // First encountered error
}

/*
NewSnapshotReader creates a new snapshot reader.
*/
func NewSnapshotReader(data []byte) *SnapshotReader {
	return &SnapshotReader{data, 0, nil}
}

/*
Err returns the first error which was encountered.
*/
func (sr *SnapshotReader) Err() error {
	return sr.err
}

/*
Remaining returns the number of unread bytes.
*/
func (sr *SnapshotReader) Remaining() int {
	return len(sr.data) - sr.pos
}

/*
Fail records a corruption error at the current position. Only the first
error is kept.
*/
func (sr *SnapshotReader) Fail(format string, args ...interface{}) {
	if sr.err == nil {
		sr.err = &GraphError{ErrCorruptSnapshot,
			fmt.Sprintf("%v (offset %v)", fmt.Sprintf(format, args...), sr.pos)}
	}
}

/*
ReadByte reads a single byte.
*/
func (sr *SnapshotReader) ReadByte() (byte, error) {
	if sr.err != nil {
		return 0, sr.err
	}
	if sr.pos >= len(sr.data) {
		sr.Fail("Unexpected end of snapshot")
		return 0, sr.err
	}

	b := sr.data[sr.pos]
	sr.pos++

	return b, nil
}

/*
ReadUvarint reads an unsigned variable length integer.
*/
func (sr *SnapshotReader) ReadUvarint() uint64 {
	if sr.err != nil {
		return 0
	}

	v, n := binary.Uvarint(sr.data[sr.pos:])
	if n == 0 {
		sr.Fail("Unexpected end of snapshot")
		return 0
	} else if n < 0 {
		sr.Fail("Integer overflow")
		return 0
	}

	sr.pos += n

	return v
}

/*
ReadCount reads a count of items which follow in the snapshot. Every item
occupies at least one byte so a count larger than the remaining data is
reported as corruption.
*/
func (sr *SnapshotReader) ReadCount() int {
	c := sr.ReadUvarint()

	if sr.err == nil && c > uint64(sr.Remaining()) {
		sr.Fail("Count %v exceeds remaining data", c)
		return 0
	}

	return int(c)
}

/*
ReadUint16 reads a little endian 16 bit integer.
*/
func (sr *SnapshotReader) ReadUint16() uint16 {
	if b := sr.ReadFixed(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

/*
ReadUint32 reads a little endian 32 bit integer.
*/
func (sr *SnapshotReader) ReadUint32() uint32 {
	if b := sr.ReadFixed(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

/*
ReadFixed reads a given number of raw bytes. The returned slice points into
the underlying data.
*/
func (sr *SnapshotReader) ReadFixed(n int) []byte {
	if sr.err != nil {
		return nil
	}
	if n < 0 || n > sr.Remaining() {
		sr.Fail("Unexpected end of snapshot")
		return nil
	}

	b := sr.data[sr.pos : sr.pos+n]
	sr.pos += n

	return b
}

/*
ReadString reads a length prefixed string.
*/
func (sr *SnapshotReader) ReadString() string {
	l := sr.ReadCount()

	if b := sr.ReadFixed(l); b != nil {
		return string(b)
	}

	return ""
}

/*
ReadValue reads a property value.
*/
func (sr *SnapshotReader) ReadValue() data.Value {
	tag, err := sr.ReadByte()
	if err != nil {
		return data.NullValue()
	}

	switch data.Kind(tag) {
	case data.KindNull:
		return data.NullValue()

	case data.KindBoolean:
		b, _ := sr.ReadByte()
		if b > 1 {
			sr.Fail("Invalid boolean payload %v", b)
		}
		return data.BoolValue(b == 1)

	case data.KindDouble:
		if b := sr.ReadFixed(8); b != nil {
			return data.DoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
		return data.NullValue()

	case data.KindString:
		return data.StringValue(sr.ReadString())
	}

	sr.Fail("Unknown value tag %v", tag)

	return data.NullValue()
}
