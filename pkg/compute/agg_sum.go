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

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

// bindSum resolves the sum kernels for one input type. The accumulator is
// promoted ahead of the input: signed integers sum into int64, unsigned
// into uint64, floats into float64 and decimals into a 128 bit value whose
// precision grows by ten digits, capped at the decimal maximum. The
// accumulator starts invalid so a group of nulls sums to null.
func bindSum(typ common.LType) (*AggFuncs, []AccumInitial, common.LType, error) {
	var funcs *AggFuncs
	var retType common.LType
	switch typ.GetInternalType() {
	case common.INT8:
		funcs, retType = sumIntFuncs[int8](), common.BigintType()
	case common.INT16:
		funcs, retType = sumIntFuncs[int16](), common.BigintType()
	case common.INT32:
		funcs, retType = sumIntFuncs[int32](), common.BigintType()
	case common.INT64:
		funcs, retType = sumIntFuncs[int64](), common.BigintType()
	case common.UINT8:
		funcs, retType = sumUintFuncs[uint8](), common.UbigintType()
	case common.UINT16:
		funcs, retType = sumUintFuncs[uint16](), common.UbigintType()
	case common.UINT32:
		funcs, retType = sumUintFuncs[uint32](), common.UbigintType()
	case common.UINT64:
		funcs, retType = sumUintFuncs[uint64](), common.UbigintType()
	case common.FLOAT:
		funcs, retType = sumFloatFuncs[float32](), common.DoubleType()
	case common.DOUBLE:
		funcs, retType = sumFloatFuncs[float64](), common.DoubleType()
	case common.INT128:
		width := typ.Width + 10
		if width > common.DecimalMaxWidthInt128 {
			width = common.DecimalMaxWidthInt128
		}
		funcs, retType = sumHugeFuncs(), common.DecimalType(width, typ.Scale)
	default:
		return nil, nil, common.LType{}, fmt.Errorf("%w: sum over %s", ErrUnsupportedType, typ.String())
	}
	accums := []AccumInitial{{Typ: retType}}
	return funcs, accums, retType, nil
}

func sumIntFuncs[T ~int8 | ~int16 | ~int32 | ~int64]() *AggFuncs {
	install := func(buf *AggBuf, addr AggBufAddr, val int64) {
		if !buf.IsValid(addr) {
			UpdateFixedValue(buf, addr, val)
			return
		}
		SetFixedValue(buf, addr, FixedValue[int64](buf, addr)+val)
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[T](input, row); ok {
				install(buf, addr, int64(val))
			}
		},
		_batch: sumBatch[T, int64](install, func(val T) int64 { return int64(val) }),
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if !src.IsValid(addr) {
				return
			}
			install(dst, addr, FixedValue[int64](src, addr))
		},
		_final: finalizeFixed[int64],
	}
}

func sumUintFuncs[T ~uint8 | ~uint16 | ~uint32 | ~uint64]() *AggFuncs {
	install := func(buf *AggBuf, addr AggBufAddr, val uint64) {
		if !buf.IsValid(addr) {
			UpdateFixedValue(buf, addr, val)
			return
		}
		SetFixedValue(buf, addr, FixedValue[uint64](buf, addr)+val)
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[T](input, row); ok {
				install(buf, addr, uint64(val))
			}
		},
		_batch: sumBatch[T, uint64](install, func(val T) uint64 { return uint64(val) }),
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if !src.IsValid(addr) {
				return
			}
			install(dst, addr, FixedValue[uint64](src, addr))
		},
		_final: finalizeFixed[uint64],
	}
}

func sumFloatFuncs[T ~float32 | ~float64]() *AggFuncs {
	install := func(buf *AggBuf, addr AggBufAddr, val float64) {
		if !buf.IsValid(addr) {
			UpdateFixedValue(buf, addr, val)
			return
		}
		SetFixedValue(buf, addr, FixedValue[float64](buf, addr)+val)
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[T](input, row); ok {
				install(buf, addr, float64(val))
			}
		},
		_batch: sumBatch[T, float64](install, func(val T) float64 { return float64(val) }),
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if !src.IsValid(addr) {
				return
			}
			install(dst, addr, FixedValue[float64](src, addr))
		},
		_final: finalizeFixed[float64],
	}
}

func sumHugeFuncs() *AggFuncs {
	install := func(buf *AggBuf, addr AggBufAddr, val common.Hugeint) {
		if !buf.IsValid(addr) {
			UpdateFixedValue(buf, addr, val)
			return
		}
		cur := FixedValue[common.Hugeint](buf, addr)
		cur.Add(&cur, &val)
		SetFixedValue(buf, addr, cur)
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[common.Hugeint](input, row); ok {
				install(buf, addr, val)
			}
		},
		_batch: sumBatch[common.Hugeint, common.Hugeint](install, func(val common.Hugeint) common.Hugeint { return val }),
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if !src.IsValid(addr) {
				return
			}
			install(dst, addr, FixedValue[common.Hugeint](src, addr))
		},
		_final: finalizeFixed[common.Hugeint],
	}
}

func sumBatch[T any, A any](
	install func(buf *AggBuf, addr AggBufAddr, val A),
	conv func(val T) A,
) aggBatchFunc {
	return func(bufs []*AggBuf, addr AggBufAddr, input *chunk.Vector, count int) {
		if input.PhyFormat().IsConst() {
			if chunk.IsNullInPhyFormatConst(input) {
				return
			}
			val := conv(chunk.GetSliceInPhyFormatConst[T](input)[0])
			for i := 0; i < count; i++ {
				install(bufs[i], addr, val)
			}
			return
		}
		data := chunk.GetSliceInPhyFormatFlat[T](input)
		mask := chunk.GetMaskInPhyFormatFlat(input)
		if mask.AllValid() {
			for i := 0; i < count; i++ {
				install(bufs[i], addr, conv(data[i]))
			}
			return
		}
		for i := 0; i < count; i++ {
			if mask.RowIsValid(uint64(i)) {
				install(bufs[i], addr, conv(data[i]))
			}
		}
	}
}
