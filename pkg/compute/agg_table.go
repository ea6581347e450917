// Copyright 2024-2025 The ColAgg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compute

import (
	"bytes"
	"fmt"

	hll "github.com/axiomhq/hyperloglog"
	"github.com/tidwall/btree"
	"github.com/xlab/treeprint"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

const (
	LOAD_FACTOR = 1.5
	HASH_WIDTH  = 8

	_hashPrefixShift = (HASH_WIDTH - 2) * 8
)

// aggEntry is one slot of the open addressing directory. The salt is the
// top sixteen bits of the hash. A zero group field means empty, stored
// group indexes are offset by one.
type aggEntry struct {
	_salt     uint16
	_groupIdx uint32
}

// GroupedAggTable accumulates grouped aggregates. Group keys live as
// encoded byte strings, accumulator rows as one AggBuf per group. The
// directory is probed linearly with a salt check in front of the full key
// compare. Callers own the single threaded contract. Sink, MergeFrom and
// the scans assert it through the guard.
type GroupedAggTable struct {
	_layout     *AggBufLayout
	_groupTypes []common.LType
	_groupCols  []int

	_entries  []aggEntry
	_capacity int
	_bitmask  uint64

	_groupKeys   [][]byte
	_groupHashes []uint64
	_groupBufs   []*AggBuf

	_sketch *hll.Sketch
	_guard  util.OwnerGuard

	_keyScratch []byte
	_hashes     *chunk.Vector
	_groupChunk *chunk.Chunk
	_rowBufs    []*AggBuf
}

func NewGroupedAggTable(
	inputTypes []common.LType,
	groupCols []int,
	aggs []*AggObject,
) (*GroupedAggTable, error) {
	groupTypes := make([]common.LType, 0, len(groupCols))
	for _, col := range groupCols {
		typ := inputTypes[col]
		if !knownPhyType(typ.GetInternalType()) {
			return nil, fmt.Errorf("%w: group by %s", ErrUnsupportedType, typ.String())
		}
		groupTypes = append(groupTypes, typ)
	}
	agt := &GroupedAggTable{
		_layout:     NewAggBufLayout(aggs),
		_groupTypes: groupTypes,
		_groupCols:  groupCols,
		_sketch:     hll.New14(),
		_hashes:     chunk.NewFlatVector(common.HashType(), util.DefaultVectorSize),
		_rowBufs:    make([]*AggBuf, util.DefaultVectorSize),
	}
	if len(groupCols) > 0 {
		agt._groupChunk = &chunk.Chunk{}
		agt._groupChunk.Init(groupTypes, util.DefaultVectorSize)
	}
	agt.resize(util.DefaultVectorSize)
	return agt, nil
}

func (agt *GroupedAggTable) Layout() *AggBufLayout {
	return agt._layout
}

func (agt *GroupedAggTable) GroupCount() int {
	return len(agt._groupBufs)
}

func (agt *GroupedAggTable) Capacity() int {
	return agt._capacity
}

func (agt *GroupedAggTable) resizeThreshold() int {
	return int(float64(agt._capacity) / LOAD_FACTOR)
}

// Sink folds one chunk into the table. data holds the group columns and
// every aggregate child column at the positions the binds name.
func (agt *GroupedAggTable) Sink(data *chunk.Chunk) {
	agt._guard.Acquire()
	defer agt._guard.Release()
	cnt := data.Card()
	if cnt == 0 {
		return
	}
	util.AssertFunc(cnt <= len(agt._rowBufs))
	agt.findOrCreateGroups(data, cnt)
	for i, agg := range agt._layout.Aggs() {
		input := data.Data[agg.Child().ColRef.column()]
		agg.UpdateBatch(agt._rowBufs[:cnt], agt._layout.AddrsOf(i), input, cnt)
	}
}

func (agt *GroupedAggTable) findOrCreateGroups(data *chunk.Chunk, cnt int) {
	need := agt.GroupCount() + cnt
	if need > agt.resizeThreshold() {
		agt.resize(int(util.NextPowerOfTwo(uint64(float64(need) * LOAD_FACTOR))))
	}
	if util.Empty(agt._groupCols) {
		gid := agt.probe(nil, 0)
		for row := 0; row < cnt; row++ {
			agt._rowBufs[row] = agt._groupBufs[gid]
		}
		return
	}
	for i, col := range agt._groupCols {
		agt._groupChunk.Data[i].Reference(data.Data[col])
	}
	agt._groupChunk.SetCard(cnt)
	agt._groupChunk.Hash(agt._hashes)
	if agt._hashes.PhyFormat().IsConst() {
		//all group columns were constant, broadcast the single hash slot
		h := chunk.GetSliceInPhyFormatConst[uint64](agt._hashes)[0]
		agt._hashes.SetPhyFormat(chunk.PF_FLAT)
		flat := chunk.GetSliceInPhyFormatFlat[uint64](agt._hashes)
		for i := 0; i < cnt; i++ {
			flat[i] = h
		}
	}
	hashes := chunk.GetSliceInPhyFormatFlat[uint64](agt._hashes)
	for row := 0; row < cnt; row++ {
		agt._keyScratch = encodeKeyRow(agt._keyScratch[:0], data, agt._groupCols, row)
		gid := agt.probe(agt._keyScratch, hashes[row])
		agt._rowBufs[row] = agt._groupBufs[gid]
	}
}

// probe walks the directory from the hash slot. Empty slot claims a new
// group. Salt hit falls through to the full key compare. Anything else
// moves one slot over.
func (agt *GroupedAggTable) probe(key []byte, hash uint64) int {
	salt := uint16(hash >> _hashPrefixShift)
	idx := hash & agt._bitmask
	for {
		ent := &agt._entries[idx]
		if ent._groupIdx == 0 {
			gid := agt.newGroup(key, hash)
			ent._salt = salt
			ent._groupIdx = uint32(gid + 1)
			return gid
		}
		if ent._salt == salt {
			gid := int(ent._groupIdx - 1)
			if bytes.Equal(agt._groupKeys[gid], key) {
				return gid
			}
		}
		idx++
		if idx >= uint64(agt._capacity) {
			idx = 0
		}
	}
}

// newGroup claims the next group index. The sketch sees each group hash
// exactly once, here.
func (agt *GroupedAggTable) newGroup(key []byte, hash uint64) int {
	gid := len(agt._groupBufs)
	agt._groupKeys = append(agt._groupKeys, util.CopyTo(key))
	agt._groupHashes = append(agt._groupHashes, hash)
	agt._groupBufs = append(agt._groupBufs, agt._layout.NewAggBuf())
	agt._sketch.InsertHash(hash)
	return gid
}

// resize rebuilds the directory from the stored group hashes. Group rows
// and keys stay where they are.
func (agt *GroupedAggTable) resize(size int) {
	util.AssertFunc(util.IsPowerOfTwo(uint64(size)))
	agt._capacity = size
	agt._bitmask = uint64(size - 1)
	agt._entries = make([]aggEntry, size)
	for gid, hash := range agt._groupHashes {
		idx := hash & agt._bitmask
		for agt._entries[idx]._groupIdx != 0 {
			idx++
			if idx >= uint64(size) {
				idx = 0
			}
		}
		agt._entries[idx] = aggEntry{
			_salt:     uint16(hash >> _hashPrefixShift),
			_groupIdx: uint32(gid + 1),
		}
	}
}

// MergeFrom folds every group of other into this table. Both tables must
// be built from the same binds. other is left untouched.
func (agt *GroupedAggTable) MergeFrom(other *GroupedAggTable) {
	agt._guard.Acquire()
	defer agt._guard.Release()
	util.AssertFunc(agt._layout.AggCount() == other._layout.AggCount())
	for gid, key := range other._groupKeys {
		for agt.GroupCount()+1 > agt.resizeThreshold() {
			agt.resize(agt._capacity * 2)
		}
		dstGid := agt.probe(key, other._groupHashes[gid])
		dst := agt._groupBufs[dstGid]
		src := other._groupBufs[gid]
		for i, agg := range agt._layout.Aggs() {
			agg.Merge(dst, src, agt._layout.AddrsOf(i))
		}
	}
	err := agt._sketch.Merge(other._sketch)
	util.AssertFunc(err == nil)
}

// AggScanState tracks a scan over the table. A fresh state starts at the
// first group. The ordered scan fills the order once and reuses it.
type AggScanState struct {
	_next  int
	_order []int
}

// Scan emits up to one vector of groups per call in insertion order. The
// group columns come first in result, then one column per aggregate.
// Returns the emitted row count, zero when the table is exhausted.
func (agt *GroupedAggTable) Scan(state *AggScanState, result *chunk.Chunk) int {
	agt._guard.Acquire()
	defer agt._guard.Release()
	return agt.scanInner(state, result)
}

// ScanOrdered is Scan with groups ordered by their encoded key bytes.
func (agt *GroupedAggTable) ScanOrdered(state *AggScanState, result *chunk.Chunk) int {
	agt._guard.Acquire()
	defer agt._guard.Release()
	if state._order == nil {
		type keyedGroup struct {
			_key []byte
			_gid int
		}
		tree := btree.NewBTreeG[keyedGroup](func(a, b keyedGroup) bool {
			return bytes.Compare(a._key, b._key) < 0
		})
		for gid, key := range agt._groupKeys {
			tree.Set(keyedGroup{_key: key, _gid: gid})
		}
		state._order = make([]int, 0, len(agt._groupKeys))
		tree.Scan(func(item keyedGroup) bool {
			state._order = append(state._order, item._gid)
			return true
		})
	}
	return agt.scanInner(state, result)
}

func (agt *GroupedAggTable) scanInner(state *AggScanState, result *chunk.Chunk) int {
	result.Reset()
	total := len(agt._groupBufs)
	base := state._next
	cnt := total - base
	if cnt <= 0 {
		result.SetCard(0)
		return 0
	}
	if cnt > util.DefaultVectorSize {
		cnt = util.DefaultVectorSize
	}
	groupColCnt := len(agt._groupTypes)
	for i := 0; i < cnt; i++ {
		gid := base + i
		if state._order != nil {
			gid = state._order[base+i]
		}
		decodeKeyRow(agt._groupKeys[gid], result.Data[:groupColCnt], i)
		for j, agg := range agt._layout.Aggs() {
			agg.Finalize(agt._groupBufs[gid], agt._layout.AddrsOf(j), result.Data[groupColCnt+j], i)
		}
	}
	state._next += cnt
	result.SetCard(cnt)
	return cnt
}

// DistinctEst estimates the distinct group count seen by this table and
// everything merged into it. Unlike GroupCount it stays meaningful across
// partitions before the merge.
func (agt *GroupedAggTable) DistinctEst() uint64 {
	return agt._sketch.Estimate()
}

func (agt *GroupedAggTable) MemSize() int {
	sz := len(agt._entries) * 8
	for _, key := range agt._groupKeys {
		sz += len(key)
	}
	sz += len(agt._groupHashes) * HASH_WIDTH
	for _, buf := range agt._groupBufs {
		sz += buf.MemSize()
	}
	return sz
}

func (agt *GroupedAggTable) Explain() string {
	tree := treeprint.NewWithRoot("GroupedAggTable")
	tree.AddNode(fmt.Sprintf("groups: %d", agt.GroupCount()))
	tree.AddNode(fmt.Sprintf("capacity: %d", agt._capacity))
	tree.AddNode(fmt.Sprintf("distinct est: %d", agt.DistinctEst()))
	tree.AddNode(fmt.Sprintf("mem: %d bytes", agt.MemSize()))
	if len(agt._groupCols) > 0 {
		sub := tree.AddBranch("group columns")
		for i, typ := range agt._groupTypes {
			sub.AddNode(fmt.Sprintf("col %d %s", agt._groupCols[i], typ.String()))
		}
	}
	agt._layout.Format(tree)
	return tree.String()
}
