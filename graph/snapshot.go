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
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"devt.de/krotik/common/pools"
	"devt.de/krotik/eliasgraph/graph/data"
	"devt.de/krotik/eliasgraph/graph/util"
	"devt.de/krotik/eliasgraph/storage/slotting"
	"github.com/google/uuid"
)

/*
Snapshot layout

	magic "EGSN" | format version (uint16) | compression (byte) |
	body (block compressed) | CRC32 of the uncompressed body (uint32)

The body consists of the following sections (integers are uvarints):

	header          generation, snapshot id (16 bytes), node slots, live nodes,
	                edge slots, live edges, name table
	node slots      per slot: 0 (tombstone) or 1 + label count + label codes
	node properties per live node: count + (key code, value)
	edge slots      per slot: 0 (tombstone) or 1 + kind code + source + destination
	edge properties per live edge: count + (key code, value)
	index decls     count + (label code, key code)
*/

/*
envelopeSize is the size of the snapshot envelope without the body.
*/
const envelopeSize = len(SnapshotMagic) + 2 + 1 + 4

/*
bufferPool holds buffers for snapshot encoding.
*/
var bufferPool = pools.NewByteBufferPool()

/*
EncodeOptions control the encoding of a snapshot.
*/
type EncodeOptions struct {
	Compression util.Compression // Block compression of the snapshot body
}

/*
DecodeOptions control the decoding of a snapshot.
*/
type DecodeOptions struct {
	CompactIdentifiers bool // Drop tombstones and renumber all entities
}

/*
DefaultDecodeOptions returns the default decode options. Identifiers are
compacted by default.
*/
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{CompactIdentifiers: true}
}

/*
SnapshotInfo describes a snapshot.
*/
type SnapshotInfo struct {
	FormatVersion uint16           // Format version of the snapshot
	Compression   util.Compression // Block compression of the body
	Generation    uint64           // Generation of the encoded manager
	ID            uuid.UUID        // Snapshot id
	NodeSlots     uint64           // Number of node slots including tombstones
	LiveNodes     uint64           // Number of live nodes
	EdgeSlots     uint64           // Number of edge slots including tombstones
	LiveEdges     uint64           // Number of live edges
	Names         int              // Size of the name table
	Size          int              // Size of the snapshot in bytes
}

/*
String returns a string representation of this snapshot info.
*/
func (si *SnapshotInfo) String() string {
	return fmt.Sprintf("Snapshot %v (format %v, %v, %v bytes): generation %v, "+
		"%v/%v nodes, %v/%v edges, %v names", si.ID, si.FormatVersion, si.Compression,
		si.Size, si.Generation, si.LiveNodes, si.NodeSlots, si.LiveEdges, si.EdgeSlots,
		si.Names)
}

/*
EncodeSnapshot writes a snapshot of this graph manager. The manager is only
read during encoding. Every edge endpoint is validated before anything is
written.
*/
func (gm *Manager) EncodeSnapshot(w io.Writer, opts EncodeOptions) (*SnapshotInfo, error) {

	// Take reader lock

	gm.mutex.RLock()
	defer gm.mutex.RUnlock()

	if err := gm.checkEdgeEndpoints(); err != nil {
		return nil, err
	}

	nm := util.NewNamesManager()

	sections := bufferPool.Get().(*bytes.Buffer)
	sections.Reset()
	defer bufferPool.Put(sections)

	sw := util.NewSnapshotWriter(sections)

	// Node slots

	for id := uint64(0); id < gm.nodeSlots.Size(); id++ {
		e := gm.nodes.get(id)
		if e == nil {
			sw.WriteByte(0)
			continue
		}

		sw.WriteByte(1)
		sw.WriteUvarint(uint64(len(e.node.Labels)))

		for _, l := range e.node.Labels {
			sw.WriteUvarint(uint64(nm.Encode32(l, true)))
		}
	}

	// Node properties

	it := gm.allNodes.Iterator()
	for it.HasNext() {
		writeProps(sw, nm, gm.nodes.get(it.Next()).node.Props)
	}

	// Edge slots

	for id := uint64(0); id < gm.edgeSlots.Size(); id++ {
		edge := gm.edges.get(id)
		if edge == nil {
			sw.WriteByte(0)
			continue
		}

		sw.WriteByte(1)
		sw.WriteUvarint(uint64(nm.Encode32(edge.Kind, true)))
		sw.WriteUvarint(edge.Src)
		sw.WriteUvarint(edge.Dst)
	}

	// Edge properties

	it = gm.allEdges.Iterator()
	for it.HasNext() {
		writeProps(sw, nm, gm.edges.get(it.Next()).Props)
	}

	// Index declarations

	decls := gm.indexDecls()

	sw.WriteUvarint(uint64(len(decls)))

	for _, d := range decls {
		sw.WriteUvarint(uint64(nm.Encode32(d.Label, true)))
		sw.WriteUvarint(uint64(nm.Encode32(d.Key, true)))
	}

	// The snapshot id is derived from the content so encoding the same
	// graph twice produces the same snapshot

	info := &SnapshotInfo{
		FormatVersion: SnapshotFormatVersion,
		Compression:   opts.Compression,
		Generation:    gm.generation,
		ID:            uuid.NewSHA1(uuid.NameSpaceOID, sections.Bytes()),
		NodeSlots:     gm.nodeSlots.Size(),
		LiveNodes:     gm.nodeSlots.LiveCount(),
		EdgeSlots:     gm.edgeSlots.Size(),
		LiveEdges:     gm.edgeSlots.LiveCount(),
		Names:         nm.Len(),
	}

	body := bufferPool.Get().(*bytes.Buffer)
	body.Reset()
	defer bufferPool.Put(body)

	hw := util.NewSnapshotWriter(body)

	hw.WriteUvarint(info.Generation)
	hw.WriteFixed(info.ID[:])
	hw.WriteUvarint(info.NodeSlots)
	hw.WriteUvarint(info.LiveNodes)
	hw.WriteUvarint(info.EdgeSlots)
	hw.WriteUvarint(info.LiveEdges)
	hw.WriteUvarint(uint64(nm.Len()))

	for _, name := range nm.Names() {
		hw.WriteString(name)
	}

	hw.WriteFixed(sections.Bytes())

	payload, err := util.CompressBlocks(body.Bytes(), opts.Compression)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, envelopeSize+len(payload))
	out = append(out, SnapshotMagic...)
	out = binary.LittleEndian.AppendUint16(out, SnapshotFormatVersion)
	out = append(out, byte(opts.Compression))
	out = append(out, payload...)
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(body.Bytes()))

	info.Size = len(out)

	if _, err := w.Write(out); err != nil {
		return nil, &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return info, nil
}

/*
checkEdgeEndpoints checks that every live edge points to live nodes.
*/
func (gm *Manager) checkEdgeEndpoints() error {
	it := gm.allEdges.Iterator()

	for it.HasNext() {
		edge := gm.edges.get(it.Next())

		for _, end := range []uint64{edge.Src, edge.Dst} {
			if gm.nodes.get(end) == nil {
				return &util.GraphError{Type: util.ErrDanglingReference,
					Detail: fmt.Sprintf("Edge %v references missing node %v", edge.ID, end)}
			}
		}
	}

	return nil
}

/*
writeProps writes a property map with sorted keys.
*/
func writeProps(sw *util.SnapshotWriter, nm *util.NamesManager, props data.Properties) {
	keys := props.Keys()

	sw.WriteUvarint(uint64(len(keys)))

	for _, k := range keys {
		sw.WriteUvarint(uint64(nm.Encode32(k, true)))
		sw.WriteValue(props[k])
	}
}

/*
ReadSnapshotInfo reads the envelope and the header of a snapshot. The
checksum of the whole body is verified.
*/
func ReadSnapshotInfo(r io.Reader) (*SnapshotInfo, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	info, body, err := readEnvelope(raw)
	if err != nil {
		return nil, err
	}

	_, err = readHeader(util.NewSnapshotReader(body), info)

	return info, err
}

/*
DecodeSnapshot creates a new graph manager from a snapshot. The new manager
starts the next generation. With compaction all tombstones are dropped and
entities are renumbered in their original order; without compaction the
tombstones become free slots of the new manager.
*/
func DecodeSnapshot(r io.Reader, opts DecodeOptions) (*Manager, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	info, body, err := readEnvelope(raw)
	if err != nil {
		return nil, err
	}

	sr := util.NewSnapshotReader(body)

	nm, err := readHeader(sr, info)
	if err != nil {
		return nil, err
	}

	// Node slots

	nodes := make([]*data.Node, info.NodeSlots)
	var liveNodes uint64

	for slot := range nodes {
		if !readSlotMarker(sr) {
			continue
		}

		count := sr.ReadCount()
		labels := make([]string, 0, count)

		for i := 0; i < count; i++ {
			labels = append(labels, readName(sr, nm))
		}

		nodes[slot] = data.NewNode(0, labels)
		liveNodes++
	}

	if sr.Err() == nil && liveNodes != info.LiveNodes {
		sr.Fail("Found %v live nodes but header declares %v", liveNodes, info.LiveNodes)
	}

	if sr.Err() != nil {
		return nil, sr.Err()
	}

	// Build the remap table for node identifiers before any edge is read

	nodeRemap := buildRemap(nodes, opts.CompactIdentifiers)

	// Node properties

	for slot, n := range nodes {
		if n != nil {
			n.ID = nodeRemap[slot]
			n.Props = readProps(sr, nm)
		}
	}

	// Edge slots

	edges := make([]*data.Edge, info.EdgeSlots)
	var liveEdges uint64

	for slot := range edges {
		if !readSlotMarker(sr) {
			continue
		}

		kind := readName(sr, nm)
		src := sr.ReadUvarint()
		dst := sr.ReadUvarint()

		if sr.Err() != nil {
			return nil, sr.Err()
		}

		for _, end := range []uint64{src, dst} {
			if end >= uint64(len(nodes)) || nodes[end] == nil {
				return nil, &util.GraphError{Type: util.ErrDanglingReference,
					Detail: fmt.Sprintf("Edge slot %v references missing node %v", slot, end)}
			}
		}

		edges[slot] = data.NewEdge(0, kind, nodeRemap[src], nodeRemap[dst])
		liveEdges++
	}

	if sr.Err() == nil && liveEdges != info.LiveEdges {
		sr.Fail("Found %v live edges but header declares %v", liveEdges, info.LiveEdges)
	}

	edgeRemap := buildRemap(edges, opts.CompactIdentifiers)

	// Edge properties

	for slot, e := range edges {
		if e != nil {
			e.ID = edgeRemap[slot]
			e.Props = readProps(sr, nm)
		}
	}

	// Index declarations

	count := sr.ReadCount()
	decls := make([]IndexDecl, 0, count)

	for i := 0; i < count; i++ {
		decls = append(decls, IndexDecl{readName(sr, nm), readName(sr, nm)})
	}

	if sr.Err() == nil && sr.Remaining() != 0 {
		sr.Fail("Unexpected %v bytes after last section", sr.Remaining())
	}

	if sr.Err() != nil {
		return nil, sr.Err()
	}

	// Create the new manager

	nodeSlots, err := restoreSlots(nodes, info.LiveNodes, opts.CompactIdentifiers)
	if err != nil {
		return nil, err
	}

	edgeSlots, err := restoreSlots(edges, info.LiveEdges, opts.CompactIdentifiers)
	if err != nil {
		return nil, err
	}

	gm := createGraphManager(nodeSlots, edgeSlots)
	gm.SetGraphRule(&SystemRuleDeleteNodeEdges{})

	gm.generation = info.Generation + 1
	gm.origin = info.ID

	for _, n := range nodes {
		if n != nil {
			gm.insertNode(n)
		}
	}

	for _, e := range edges {
		if e != nil {
			gm.insertEdge(e)
		}
	}

	// Rebuild the property indices from the restored nodes

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	if _, err := gm.createIndices(decls); err != nil {
		return nil, err
	}

	return gm, nil
}

/*
readEnvelope checks the envelope of a snapshot and returns the uncompressed body.
*/
func readEnvelope(raw []byte) (*SnapshotInfo, []byte, error) {
	if len(raw) < envelopeSize {
		return nil, nil, &util.GraphError{Type: util.ErrCorruptSnapshot,
			Detail: fmt.Sprintf("Snapshot too small (%v bytes)", len(raw))}
	}

	if string(raw[:len(SnapshotMagic)]) != SnapshotMagic {
		return nil, nil, &util.GraphError{Type: util.ErrCorruptSnapshot, Detail: "Invalid magic number"}
	}

	pos := len(SnapshotMagic)

	info := &SnapshotInfo{
		FormatVersion: binary.LittleEndian.Uint16(raw[pos:]),
		Compression:   util.Compression(raw[pos+2]),
		Size:          len(raw),
	}

	if info.FormatVersion == 0 || info.FormatVersion > SnapshotFormatVersion {
		return nil, nil, &util.GraphError{Type: util.ErrCorruptSnapshot,
			Detail: fmt.Sprintf("Cannot read snapshot format version %v - max supported version: %v",
				info.FormatVersion, SnapshotFormatVersion)}
	}

	if info.Compression > util.CompressionZSTD {
		return nil, nil, &util.GraphError{Type: util.ErrCorruptSnapshot,
			Detail: fmt.Sprintf("Unknown compression %v", byte(info.Compression))}
	}

	body, err := util.DecompressBlocks(raw[pos+3:len(raw)-4], info.Compression)
	if err != nil {
		return nil, nil, err
	}

	if crc := binary.LittleEndian.Uint32(raw[len(raw)-4:]); crc != crc32.ChecksumIEEE(body) {
		return nil, nil, &util.GraphError{Type: util.ErrCorruptSnapshot, Detail: "Checksum mismatch"}
	}

	return info, body, nil
}

/*
readHeader reads the header section of a snapshot body.
*/
func readHeader(sr *util.SnapshotReader, info *SnapshotInfo) (*util.NamesManager, error) {
	info.Generation = sr.ReadUvarint()

	if id := sr.ReadFixed(16); id != nil {
		copy(info.ID[:], id)
	}

	info.NodeSlots = sr.ReadUvarint()
	info.LiveNodes = sr.ReadUvarint()
	info.EdgeSlots = sr.ReadUvarint()
	info.LiveEdges = sr.ReadUvarint()

	count := sr.ReadCount()
	table := make([]string, 0, count)

	for i := 0; i < count; i++ {
		table = append(table, sr.ReadString())
	}

	info.Names = len(table)

	if sr.Err() != nil {
		return nil, sr.Err()
	}

	// Every slot occupies at least one byte

	rem := uint64(sr.Remaining())

	if info.NodeSlots > rem || info.EdgeSlots > rem || info.NodeSlots+info.EdgeSlots > rem ||
		info.LiveNodes > info.NodeSlots || info.LiveEdges > info.EdgeSlots {
		sr.Fail("Invalid entity counts: nodes %v/%v edges %v/%v", info.LiveNodes,
			info.NodeSlots, info.LiveEdges, info.EdgeSlots)
		return nil, sr.Err()
	}

	return util.NewNamesManagerFromTable(table)
}

/*
readSlotMarker reads the marker of an entity slot. Returns true for a live slot.
*/
func readSlotMarker(sr *util.SnapshotReader) bool {
	m, err := sr.ReadByte()
	if err != nil {
		return false
	} else if m > 1 {
		sr.Fail("Invalid slot marker %v", m)
		return false
	}

	return m == 1
}

/*
readName reads a name code and decodes it.
*/
func readName(sr *util.SnapshotReader, nm *util.NamesManager) string {
	code := sr.ReadUvarint()
	if sr.Err() != nil {
		return ""
	}

	if code <= math.MaxUint32 {
		if name, ok := nm.Decode32(uint32(code)); ok {
			return name
		}
	}

	sr.Fail("Unknown name code %v", code)

	return ""
}

/*
readProps reads a property map.
*/
func readProps(sr *util.SnapshotReader, nm *util.NamesManager) data.Properties {
	count := sr.ReadCount()
	props := make(data.Properties, count)

	for i := 0; i < count; i++ {
		key := readName(sr, nm)
		val := sr.ReadValue()

		if _, ok := props[key]; ok && sr.Err() == nil {
			sr.Fail("Duplicate property key %v", key)
		}

		props[key] = val
	}

	return props
}

/*
buildRemap builds the table which maps slot numbers of a snapshot to the
identifiers of the new generation.
*/
func buildRemap[T any](slots []*T, compact bool) []uint64 {
	remap := make([]uint64, len(slots))

	var next uint64

	for slot, e := range slots {
		if !compact {
			remap[slot] = uint64(slot)
		} else if e != nil {
			remap[slot] = next
			next++
		}
	}

	return remap
}

/*
restoreSlots creates the slot manager of the new generation.
*/
func restoreSlots[T any](slots []*T, live uint64, compact bool) (*slotting.SlotManager, error) {
	if compact {
		return slotting.RestoreSlotManager(live, nil, false)
	}

	var tombstones []uint64

	for slot, e := range slots {
		if e == nil {
			tombstones = append(tombstones, uint64(slot))
		}
	}

	sm, err := slotting.RestoreSlotManager(uint64(len(slots)), tombstones, true)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrCorruptSnapshot, Detail: err.Error()}
	}

	return sm, nil
}
