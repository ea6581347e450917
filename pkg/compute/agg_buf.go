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
	"fmt"

	"github.com/vecflow/colagg/pkg/util"
)

// AggBufAddr locates one accumulator inside an AggBuf. Fixed accumulators
// pack the validity bit index into the high half and the byte offset into
// the low half. Dynamic accumulators carry the slot index with the top bit
// set.
type AggBufAddr uint64

const dynAddrFlag = uint64(1) << 63

func FixedAddr(validBit int, offset int) AggBufAddr {
	return AggBufAddr(uint64(validBit)<<32 | uint64(uint32(offset)))
}

func DynAddr(slot int) AggBufAddr {
	return AggBufAddr(dynAddrFlag | uint64(slot))
}

func (addr AggBufAddr) IsDyn() bool {
	return uint64(addr)&dynAddrFlag != 0
}

func (addr AggBufAddr) DynSlot() int {
	return int(uint64(addr) &^ dynAddrFlag)
}

func (addr AggBufAddr) ValidBit() int {
	return int((uint64(addr) >> 32) & 0x7FFFFFFF)
}

func (addr AggBufAddr) Offset() int {
	return int(uint32(addr))
}

func (addr AggBufAddr) String() string {
	if addr.IsDyn() {
		return fmt.Sprintf("dyn[slot %d]", addr.DynSlot())
	}
	return fmt.Sprintf("fixed[bit %d off %d]", addr.ValidBit(), addr.Offset())
}

// AggBuf holds the accumulator row of one group. The fixed region starts
// with a validity bitmap followed by packed accumulator payloads. The dyn
// side table holds variable length accumulators. A nil dyn slot is an
// invalid accumulator.
type AggBuf struct {
	_fixed []byte
	_dyn   [][]byte
}

func NewAggBuf(fixedWidth int, dynCount int) *AggBuf {
	buf := &AggBuf{}
	if fixedWidth > 0 {
		buf._fixed = util.GAlloc.Alloc(fixedWidth)
	}
	if dynCount > 0 {
		buf._dyn = make([][]byte, dynCount)
	}
	return buf
}

func (buf *AggBuf) Clone() *AggBuf {
	ret := &AggBuf{}
	if buf._fixed != nil {
		ret._fixed = util.GAlloc.Alloc(len(buf._fixed))
		copy(ret._fixed, buf._fixed)
	}
	if buf._dyn != nil {
		ret._dyn = make([][]byte, len(buf._dyn))
		for i, slot := range buf._dyn {
			if slot == nil {
				continue
			}
			ret._dyn[i] = make([]byte, len(slot))
			copy(ret._dyn[i], slot)
		}
	}
	return ret
}

func (buf *AggBuf) IsValid(addr AggBufAddr) bool {
	if addr.IsDyn() {
		return buf._dyn[addr.DynSlot()] != nil
	}
	eIdx, pos := util.GetEntryIndex(uint64(addr.ValidBit()))
	return util.EntryIsSet(buf._fixed[eIdx], pos)
}

func (buf *AggBuf) SetValid(addr AggBufAddr) {
	eIdx, pos := util.GetEntryIndex(uint64(addr.ValidBit()))
	buf._fixed[eIdx] |= 1 << pos
}

func FixedValue[T any](buf *AggBuf, addr AggBufAddr) T {
	return util.Load[T](util.PointerAdd(util.BytesSliceToPointer(buf._fixed), addr.Offset()))
}

// SetFixedValue writes the payload and leaves validity alone.
func SetFixedValue[T any](buf *AggBuf, addr AggBufAddr, val T) {
	util.Store[T](val, util.PointerAdd(util.BytesSliceToPointer(buf._fixed), addr.Offset()))
}

// UpdateFixedValue writes the payload and marks the accumulator valid.
func UpdateFixedValue[T any](buf *AggBuf, addr AggBufAddr, val T) {
	SetFixedValue[T](buf, addr, val)
	buf.SetValid(addr)
}

func (buf *AggBuf) DynValue(addr AggBufAddr) []byte {
	return buf._dyn[addr.DynSlot()]
}

// SetDynValue copies val into the slot. Writing an empty value still marks
// the slot valid.
func (buf *AggBuf) SetDynValue(addr AggBufAddr, val []byte) {
	slot := buf._dyn[addr.DynSlot()]
	if slot == nil || cap(slot) < len(val) {
		slot = make([]byte, len(val))
	} else {
		slot = slot[:len(val)]
	}
	copy(slot, val)
	buf._dyn[addr.DynSlot()] = slot
}

func (buf *AggBuf) MemSize() int {
	sz := len(buf._fixed)
	for _, slot := range buf._dyn {
		sz += len(slot)
	}
	return sz
}
