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

	"github.com/xlab/treeprint"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

// AccumInitial describes one accumulator slot of an aggregate. Init is the
// starting value. A nil Init starts the slot invalid.
type AccumInitial struct {
	Typ  common.LType
	Dyn  bool
	Init *chunk.Value
}

// AggBufLayout assigns every accumulator of every aggregate an address and
// builds the prototype buffer new groups clone. Addresses are computed once
// here. The hot paths only add offsets.
type AggBufLayout struct {
	_aggs        []*AggObject
	_addrs       [][]AggBufAddr
	_bitmapWidth int
	_fixedWidth  int
	_dynCount    int
	_prototype   *AggBuf
}

func NewAggBufLayout(aggs []*AggObject) *AggBufLayout {
	layout := &AggBufLayout{
		_aggs: aggs,
	}
	fixedCnt := 0
	for _, agg := range aggs {
		for _, accum := range agg.AccumsInitial() {
			if !accum.Dyn {
				fixedCnt++
			}
		}
	}
	layout._bitmapWidth = util.EntryCount(fixedCnt)
	offset := layout._bitmapWidth
	bit := 0
	for _, agg := range aggs {
		addrs := make([]AggBufAddr, 0, len(agg.AccumsInitial()))
		for _, accum := range agg.AccumsInitial() {
			if accum.Dyn {
				addrs = append(addrs, DynAddr(layout._dynCount))
				layout._dynCount++
				continue
			}
			addrs = append(addrs, FixedAddr(bit, offset))
			bit++
			offset += accum.Typ.GetInternalType().Size()
		}
		layout._addrs = append(layout._addrs, addrs)
	}
	layout._fixedWidth = offset
	layout._prototype = layout.buildPrototype()
	return layout
}

func (layout *AggBufLayout) buildPrototype() *AggBuf {
	buf := NewAggBuf(layout._fixedWidth, layout._dynCount)
	for i, agg := range layout._aggs {
		for j, accum := range agg.AccumsInitial() {
			if accum.Init == nil {
				continue
			}
			addr := layout._addrs[i][j]
			if accum.Dyn {
				buf.SetDynValue(addr, util.UnsafeStringToBytes(accum.Init.Str))
				continue
			}
			switch accum.Typ.GetInternalType() {
			case common.BOOL:
				UpdateFixedValue[bool](buf, addr, accum.Init.Bool)
			case common.INT8:
				UpdateFixedValue[int8](buf, addr, int8(accum.Init.I64))
			case common.INT16:
				UpdateFixedValue[int16](buf, addr, int16(accum.Init.I64))
			case common.INT32:
				UpdateFixedValue[int32](buf, addr, int32(accum.Init.I64))
			case common.INT64:
				UpdateFixedValue[int64](buf, addr, accum.Init.I64)
			case common.UINT8:
				UpdateFixedValue[uint8](buf, addr, uint8(accum.Init.U64))
			case common.UINT16:
				UpdateFixedValue[uint16](buf, addr, uint16(accum.Init.U64))
			case common.UINT32:
				UpdateFixedValue[uint32](buf, addr, uint32(accum.Init.U64))
			case common.UINT64:
				UpdateFixedValue[uint64](buf, addr, accum.Init.U64)
			case common.FLOAT:
				UpdateFixedValue[float32](buf, addr, float32(accum.Init.F64))
			case common.DOUBLE:
				UpdateFixedValue[float64](buf, addr, accum.Init.F64)
			case common.INT128:
				UpdateFixedValue[common.Hugeint](buf, addr, accum.Init.GetHugeint())
			default:
				panic(fmt.Sprintf("usp %v", accum.Typ.GetInternalType()))
			}
		}
	}
	return buf
}

func (layout *AggBufLayout) AggCount() int {
	return len(layout._aggs)
}

func (layout *AggBufLayout) Aggs() []*AggObject {
	return layout._aggs
}

func (layout *AggBufLayout) AddrsOf(idx int) []AggBufAddr {
	return layout._addrs[idx]
}

// RowWidth is the byte width of the fixed region including the validity
// bitmap.
func (layout *AggBufLayout) RowWidth() int {
	return layout._fixedWidth
}

func (layout *AggBufLayout) DynCount() int {
	return layout._dynCount
}

func (layout *AggBufLayout) NewAggBuf() *AggBuf {
	return layout._prototype.Clone()
}

func (layout *AggBufLayout) Format(tree treeprint.Tree) {
	sub := tree.AddBranch(fmt.Sprintf("layout: fixed %d bytes, bitmap %d bytes, dyn %d slots",
		layout._fixedWidth, layout._bitmapWidth, layout._dynCount))
	for i, agg := range layout._aggs {
		node := sub.AddBranch(fmt.Sprintf("%s(%s) -> %s",
			agg.Name(), agg.Child().DataTyp.String(), agg.RetType().String()))
		for j, addr := range layout._addrs[i] {
			node.AddNode(fmt.Sprintf("accum %s %s",
				agg.AccumsInitial()[j].Typ.String(), addr.String()))
		}
	}
}
