package compute

import (
	"bytes"
	"fmt"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

// bindMinMax resolves the extremum kernels for one input type. Max and min
// share everything but the comparison direction. The result type is the
// input type.
func bindMinMax(typ common.LType, wantMax bool) (*AggFuncs, []AccumInitial, common.LType, error) {
	var funcs *AggFuncs
	switch typ.GetInternalType() {
	case common.BOOL:
		funcs = minMaxBoolFuncs(wantMax)
	case common.INT8:
		funcs = minMaxFuncs[int8](wantMax)
	case common.INT16:
		funcs = minMaxFuncs[int16](wantMax)
	case common.INT32:
		funcs = minMaxFuncs[int32](wantMax)
	case common.INT64:
		funcs = minMaxFuncs[int64](wantMax)
	case common.UINT8:
		funcs = minMaxFuncs[uint8](wantMax)
	case common.UINT16:
		funcs = minMaxFuncs[uint16](wantMax)
	case common.UINT32:
		funcs = minMaxFuncs[uint32](wantMax)
	case common.UINT64:
		funcs = minMaxFuncs[uint64](wantMax)
	case common.FLOAT:
		funcs = minMaxFuncs[float32](wantMax)
	case common.DOUBLE:
		funcs = minMaxFuncs[float64](wantMax)
	case common.INT128:
		funcs = minMaxHugeFuncs(wantMax)
	case common.VARCHAR:
		funcs = minMaxStrFuncs(wantMax)
	default:
		name := AggMin
		if wantMax {
			name = AggMax
		}
		return nil, nil, common.LType{}, fmt.Errorf("%w: %s over %s", ErrUnsupportedType, name, typ.String())
	}
	accums := []AccumInitial{{Typ: typ, Dyn: typ.GetInternalType().IsVarchar()}}
	return funcs, accums, typ, nil
}

// singleBuf reports whether every row folds into the same group buffer,
// the shape a global aggregate sinks with.
func singleBuf(bufs []*AggBuf, count int) bool {
	for i := 1; i < count; i++ {
		if bufs[i] != bufs[0] {
			return false
		}
	}
	return count > 0
}

// extremumOnVec reduces the valid cells of input to one winner before any
// buffer is touched. The single buffer batch paths run this first and pay
// one install for the whole vector.
func extremumOnVec[T any](input *chunk.Vector, count int, better func(val, cur T) bool) (T, bool) {
	var best T
	found := false
	adopt := func(v T) {
		if !found || better(v, best) {
			best = v
			found = true
		}
	}
	if input.PhyFormat().IsConst() {
		if count > 0 && !chunk.IsNullInPhyFormatConst(input) {
			adopt(chunk.GetSliceInPhyFormatConst[T](input)[0])
		}
		return best, found
	}
	data := chunk.GetSliceInPhyFormatFlat[T](input)
	mask := chunk.GetMaskInPhyFormatFlat(input)
	if mask.AllValid() {
		for i := 0; i < count; i++ {
			adopt(data[i])
		}
		return best, found
	}
	for i := 0; i < count; i++ {
		if mask.RowIsValid(uint64(i)) {
			adopt(data[i])
		}
	}
	return best, found
}

// minMaxFuncs covers every fixed width numeric input. The first valid value
// seeds the accumulator. Afterwards only a strict compare replaces it, so a
// float NaN can seed but never displace a proper value.
func minMaxFuncs[T numeric](wantMax bool) *AggFuncs {
	better := func(val, cur T) bool {
		if wantMax {
			return val > cur
		}
		return val < cur
	}
	install := func(buf *AggBuf, addr AggBufAddr, val T) {
		if !buf.IsValid(addr) {
			UpdateFixedValue(buf, addr, val)
			return
		}
		if better(val, FixedValue[T](buf, addr)) {
			SetFixedValue(buf, addr, val)
		}
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[T](input, row); ok {
				install(buf, addr, val)
			}
		},
		_batch: func(bufs []*AggBuf, addr AggBufAddr, input *chunk.Vector, count int) {
			if singleBuf(bufs, count) {
				if val, ok := extremumOnVec(input, count, better); ok {
					install(bufs[0], addr, val)
				}
				return
			}
			if input.PhyFormat().IsConst() {
				if chunk.IsNullInPhyFormatConst(input) {
					return
				}
				val := chunk.GetSliceInPhyFormatConst[T](input)[0]
				for i := 0; i < count; i++ {
					install(bufs[i], addr, val)
				}
				return
			}
			data := chunk.GetSliceInPhyFormatFlat[T](input)
			mask := chunk.GetMaskInPhyFormatFlat(input)
			if mask.AllValid() {
				for i := 0; i < count; i++ {
					install(bufs[i], addr, data[i])
				}
				return
			}
			for i := 0; i < count; i++ {
				if mask.RowIsValid(uint64(i)) {
					install(bufs[i], addr, data[i])
				}
			}
		},
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if !src.IsValid(addr) {
				return
			}
			install(dst, addr, FixedValue[T](src, addr))
		},
		_final: finalizeFixed[T],
	}
}

func minMaxBoolFuncs(wantMax bool) *AggFuncs {
	better := func(val, cur bool) bool {
		if wantMax {
			return val && !cur
		}
		return !val && cur
	}
	install := func(buf *AggBuf, addr AggBufAddr, val bool) {
		if !buf.IsValid(addr) {
			UpdateFixedValue(buf, addr, val)
			return
		}
		if better(val, FixedValue[bool](buf, addr)) {
			SetFixedValue(buf, addr, val)
		}
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[bool](input, row); ok {
				install(buf, addr, val)
			}
		},
		_batch: func(bufs []*AggBuf, addr AggBufAddr, input *chunk.Vector, count int) {
			if singleBuf(bufs, count) {
				if val, ok := extremumOnVec(input, count, better); ok {
					install(bufs[0], addr, val)
				}
				return
			}
			if input.PhyFormat().IsConst() {
				if chunk.IsNullInPhyFormatConst(input) {
					return
				}
				val := chunk.GetSliceInPhyFormatConst[bool](input)[0]
				for i := 0; i < count; i++ {
					install(bufs[i], addr, val)
				}
				return
			}
			data := chunk.GetSliceInPhyFormatFlat[bool](input)
			mask := chunk.GetMaskInPhyFormatFlat(input)
			for i := 0; i < count; i++ {
				if mask.RowIsValid(uint64(i)) {
					install(bufs[i], addr, data[i])
				}
			}
		},
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if !src.IsValid(addr) {
				return
			}
			install(dst, addr, FixedValue[bool](src, addr))
		},
		_final: finalizeFixed[bool],
	}
}

func minMaxHugeFuncs(wantMax bool) *AggFuncs {
	better := func(val, cur common.Hugeint) bool {
		if wantMax {
			return val.Greater(&cur)
		}
		return val.Less(&cur)
	}
	install := func(buf *AggBuf, addr AggBufAddr, val common.Hugeint) {
		if !buf.IsValid(addr) {
			UpdateFixedValue(buf, addr, val)
			return
		}
		cur := FixedValue[common.Hugeint](buf, addr)
		if better(val, cur) {
			SetFixedValue(buf, addr, val)
		}
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[common.Hugeint](input, row); ok {
				install(buf, addr, val)
			}
		},
		_batch: func(bufs []*AggBuf, addr AggBufAddr, input *chunk.Vector, count int) {
			if singleBuf(bufs, count) {
				if val, ok := extremumOnVec(input, count, better); ok {
					install(bufs[0], addr, val)
				}
				return
			}
			if input.PhyFormat().IsConst() {
				if chunk.IsNullInPhyFormatConst(input) {
					return
				}
				val := chunk.GetSliceInPhyFormatConst[common.Hugeint](input)[0]
				for i := 0; i < count; i++ {
					install(bufs[i], addr, val)
				}
				return
			}
			data := chunk.GetSliceInPhyFormatFlat[common.Hugeint](input)
			mask := chunk.GetMaskInPhyFormatFlat(input)
			for i := 0; i < count; i++ {
				if mask.RowIsValid(uint64(i)) {
					install(bufs[i], addr, data[i])
				}
			}
		},
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if !src.IsValid(addr) {
				return
			}
			install(dst, addr, FixedValue[common.Hugeint](src, addr))
		},
		_final: finalizeFixed[common.Hugeint],
	}
}

// minMaxStrFuncs keeps the winning string in the dyn side table. Comparison
// runs on raw bytes.
func minMaxStrFuncs(wantMax bool) *AggFuncs {
	better := func(val, cur common.String) bool {
		cmp := bytes.Compare(val.DataSlice(), cur.DataSlice())
		if wantMax {
			return cmp > 0
		}
		return cmp < 0
	}
	install := func(buf *AggBuf, addr AggBufAddr, val []byte) {
		cur := buf.DynValue(addr)
		if cur == nil {
			buf.SetDynValue(addr, val)
			return
		}
		cmp := bytes.Compare(val, cur)
		if wantMax {
			if cmp > 0 {
				buf.SetDynValue(addr, val)
			}
		} else if cmp < 0 {
			buf.SetDynValue(addr, val)
		}
	}
	return &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if val, ok := rowValue[common.String](input, row); ok {
				install(buf, addr, val.DataSlice())
			}
		},
		_batch: func(bufs []*AggBuf, addr AggBufAddr, input *chunk.Vector, count int) {
			if singleBuf(bufs, count) {
				if val, ok := extremumOnVec(input, count, better); ok {
					install(bufs[0], addr, val.DataSlice())
				}
				return
			}
			if input.PhyFormat().IsConst() {
				if chunk.IsNullInPhyFormatConst(input) {
					return
				}
				val := chunk.GetSliceInPhyFormatConst[common.String](input)[0]
				for i := 0; i < count; i++ {
					install(bufs[i], addr, val.DataSlice())
				}
				return
			}
			data := chunk.GetSliceInPhyFormatFlat[common.String](input)
			mask := chunk.GetMaskInPhyFormatFlat(input)
			for i := 0; i < count; i++ {
				if mask.RowIsValid(uint64(i)) {
					install(bufs[i], addr, data[i].DataSlice())
				}
			}
		},
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			if slot := src.DynValue(addr); slot != nil {
				install(dst, addr, slot)
			}
		},
		_final: func(buf *AggBuf, addr AggBufAddr, result *chunk.Vector, idx int) {
			slot := buf.DynValue(addr)
			if slot == nil {
				chunk.SetNullInPhyFormatFlat(result, uint64(idx), true)
				return
			}
			chunk.GetSliceInPhyFormatFlat[common.String](result)[idx] = common.NewString(string(slot))
		},
	}
}
