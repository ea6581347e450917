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

package chunk

import (
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// MaxOnVector folds the first count rows into the largest valid value.
// The fold uses the same recurrence the grouped aggregates use. The
// first valid row seeds the result and later rows replace it only on
// a strict greater comparison.
func MaxOnVector(vec *Vector, count int) *Value {
	return reduceOnVector(vec, count, true)
}

// MinOnVector is the mirror of MaxOnVector with a strict less comparison.
func MinOnVector(vec *Vector, count int) *Value {
	return reduceOnVector(vec, count, false)
}

func reduceOnVector(vec *Vector, count int, wantMax bool) *Value {
	nullVal := &Value{
		Typ:    vec.Typ(),
		IsNull: true,
	}
	if count == 0 {
		return nullVal
	}
	if vec.PhyFormat().IsConst() {
		return vec.GetValue(0)
	}
	mask := GetMaskInPhyFormatFlat(vec)
	switch vec.Typ().GetInternalType() {
	case common.BOOL:
		data := GetSliceInPhyFormatFlat[bool](vec)
		res, ok := false, false
		for i := 0; i < count; i++ {
			if !mask.RowIsValid(uint64(i)) {
				continue
			}
			if !ok {
				res, ok = data[i], true
			} else if wantMax && data[i] && !res {
				res = true
			} else if !wantMax && !data[i] && res {
				res = false
			}
		}
		if !ok {
			return nullVal
		}
		return &Value{Typ: vec.Typ(), Bool: res}
	case common.INT8:
		v, ok := reduceLoop[int8](GetSliceInPhyFormatFlat[int8](vec), mask, count, wantMax)
		return signedValue(vec, int64(v), ok)
	case common.INT16:
		v, ok := reduceLoop[int16](GetSliceInPhyFormatFlat[int16](vec), mask, count, wantMax)
		return signedValue(vec, int64(v), ok)
	case common.INT32:
		v, ok := reduceLoop[int32](GetSliceInPhyFormatFlat[int32](vec), mask, count, wantMax)
		return signedValue(vec, int64(v), ok)
	case common.INT64:
		v, ok := reduceLoop[int64](GetSliceInPhyFormatFlat[int64](vec), mask, count, wantMax)
		return signedValue(vec, v, ok)
	case common.UINT8:
		v, ok := reduceLoop[uint8](GetSliceInPhyFormatFlat[uint8](vec), mask, count, wantMax)
		return unsignedValue(vec, uint64(v), ok)
	case common.UINT16:
		v, ok := reduceLoop[uint16](GetSliceInPhyFormatFlat[uint16](vec), mask, count, wantMax)
		return unsignedValue(vec, uint64(v), ok)
	case common.UINT32:
		v, ok := reduceLoop[uint32](GetSliceInPhyFormatFlat[uint32](vec), mask, count, wantMax)
		return unsignedValue(vec, uint64(v), ok)
	case common.UINT64:
		v, ok := reduceLoop[uint64](GetSliceInPhyFormatFlat[uint64](vec), mask, count, wantMax)
		return unsignedValue(vec, v, ok)
	case common.FLOAT:
		v, ok := reduceLoop[float32](GetSliceInPhyFormatFlat[float32](vec), mask, count, wantMax)
		if !ok {
			return nullVal
		}
		return &Value{Typ: vec.Typ(), F64: float64(v)}
	case common.DOUBLE:
		v, ok := reduceLoop[float64](GetSliceInPhyFormatFlat[float64](vec), mask, count, wantMax)
		if !ok {
			return nullVal
		}
		return &Value{Typ: vec.Typ(), F64: v}
	case common.INT128:
		data := GetSliceInPhyFormatFlat[common.Hugeint](vec)
		var res common.Hugeint
		ok := false
		for i := 0; i < count; i++ {
			if !mask.RowIsValid(uint64(i)) {
				continue
			}
			if !ok {
				res, ok = data[i], true
			} else if wantMax && data[i].Greater(&res) {
				res = data[i]
			} else if !wantMax && data[i].Less(&res) {
				res = data[i]
			}
		}
		if !ok {
			return nullVal
		}
		return &Value{Typ: vec.Typ(), I64: res.Upper, I64_1: int64(res.Lower)}
	case common.VARCHAR:
		data := GetSliceInPhyFormatFlat[common.String](vec)
		res := ""
		ok := false
		for i := 0; i < count; i++ {
			if !mask.RowIsValid(uint64(i)) {
				continue
			}
			s := data[i].String()
			if !ok {
				res, ok = s, true
			} else if wantMax && s > res {
				res = s
			} else if !wantMax && s < res {
				res = s
			}
		}
		if !ok {
			return nullVal
		}
		return &Value{Typ: vec.Typ(), Str: res}
	default:
		panic("usp")
	}
}

func reduceLoop[T numeric](
	data []T,
	mask *util.Bitmap,
	count int,
	wantMax bool,
) (T, bool) {
	var res T
	ok := false
	for i := 0; i < count; i++ {
		if !mask.RowIsValid(uint64(i)) {
			continue
		}
		if !ok {
			res, ok = data[i], true
		} else if wantMax && data[i] > res {
			res = data[i]
		} else if !wantMax && data[i] < res {
			res = data[i]
		}
	}
	return res, ok
}

func signedValue(vec *Vector, v int64, ok bool) *Value {
	if !ok {
		return &Value{Typ: vec.Typ(), IsNull: true}
	}
	return &Value{Typ: vec.Typ(), I64: v}
}

func unsignedValue(vec *Vector, v uint64, ok bool) *Value {
	if !ok {
		return &Value{Typ: vec.Typ(), IsNull: true}
	}
	return &Value{Typ: vec.Typ(), U64: v}
}

// SumOnVector folds valid rows into a sum. Signed integrals widen to
// BIGINT, unsigned to UBIGINT and floats to DOUBLE. Decimal sums keep
// the input width and scale.
func SumOnVector(vec *Vector, count int) *Value {
	resTyp := sumResultType(vec.Typ())
	nullVal := &Value{
		Typ:    resTyp,
		IsNull: true,
	}
	if count == 0 {
		return nullVal
	}
	if vec.PhyFormat().IsConst() {
		if IsNullInPhyFormatConst(vec) {
			return nullVal
		}
		one := vec.GetValue(0)
		return scaleConstSum(one, resTyp, count)
	}
	mask := GetMaskInPhyFormatFlat(vec)
	switch vec.Typ().GetInternalType() {
	case common.INT8:
		return sumSignedLoop(GetSliceInPhyFormatFlat[int8](vec), mask, count, resTyp)
	case common.INT16:
		return sumSignedLoop(GetSliceInPhyFormatFlat[int16](vec), mask, count, resTyp)
	case common.INT32:
		return sumSignedLoop(GetSliceInPhyFormatFlat[int32](vec), mask, count, resTyp)
	case common.INT64:
		return sumSignedLoop(GetSliceInPhyFormatFlat[int64](vec), mask, count, resTyp)
	case common.UINT8:
		return sumUnsignedLoop(GetSliceInPhyFormatFlat[uint8](vec), mask, count, resTyp)
	case common.UINT16:
		return sumUnsignedLoop(GetSliceInPhyFormatFlat[uint16](vec), mask, count, resTyp)
	case common.UINT32:
		return sumUnsignedLoop(GetSliceInPhyFormatFlat[uint32](vec), mask, count, resTyp)
	case common.UINT64:
		return sumUnsignedLoop(GetSliceInPhyFormatFlat[uint64](vec), mask, count, resTyp)
	case common.FLOAT:
		return sumFloatLoop(GetSliceInPhyFormatFlat[float32](vec), mask, count, resTyp)
	case common.DOUBLE:
		return sumFloatLoop(GetSliceInPhyFormatFlat[float64](vec), mask, count, resTyp)
	case common.INT128:
		data := GetSliceInPhyFormatFlat[common.Hugeint](vec)
		var res common.Hugeint
		ok := false
		for i := 0; i < count; i++ {
			if !mask.RowIsValid(uint64(i)) {
				continue
			}
			ok = true
			res.Add(&res, &data[i])
		}
		if !ok {
			return nullVal
		}
		return &Value{Typ: resTyp, I64: res.Upper, I64_1: int64(res.Lower)}
	default:
		panic("usp")
	}
}

func sumResultType(typ common.LType) common.LType {
	switch typ.GetInternalType() {
	case common.INT8, common.INT16, common.INT32, common.INT64:
		return common.BigintType()
	case common.UINT8, common.UINT16, common.UINT32, common.UINT64:
		return common.UbigintType()
	case common.FLOAT, common.DOUBLE:
		return common.DoubleType()
	case common.INT128:
		return typ
	default:
		panic("usp")
	}
}

func scaleConstSum(one *Value, resTyp common.LType, count int) *Value {
	switch resTyp.GetInternalType() {
	case common.INT64:
		return &Value{Typ: resTyp, I64: one.I64 * int64(count)}
	case common.UINT64:
		return &Value{Typ: resTyp, U64: one.U64 * uint64(count)}
	case common.DOUBLE:
		return &Value{Typ: resTyp, F64: one.F64 * float64(count)}
	case common.INT128:
		h := one.GetHugeint()
		var res common.Hugeint
		for i := 0; i < count; i++ {
			res.Add(&res, &h)
		}
		return &Value{Typ: resTyp, I64: res.Upper, I64_1: int64(res.Lower)}
	default:
		panic("usp")
	}
}

func sumSignedLoop[T ~int8 | ~int16 | ~int32 | ~int64](
	data []T,
	mask *util.Bitmap,
	count int,
	resTyp common.LType,
) *Value {
	var res int64
	ok := false
	for i := 0; i < count; i++ {
		if !mask.RowIsValid(uint64(i)) {
			continue
		}
		ok = true
		res += int64(data[i])
	}
	if !ok {
		return &Value{Typ: resTyp, IsNull: true}
	}
	return &Value{Typ: resTyp, I64: res}
}

func sumUnsignedLoop[T ~uint8 | ~uint16 | ~uint32 | ~uint64](
	data []T,
	mask *util.Bitmap,
	count int,
	resTyp common.LType,
) *Value {
	var res uint64
	ok := false
	for i := 0; i < count; i++ {
		if !mask.RowIsValid(uint64(i)) {
			continue
		}
		ok = true
		res += uint64(data[i])
	}
	if !ok {
		return &Value{Typ: resTyp, IsNull: true}
	}
	return &Value{Typ: resTyp, U64: res}
}

func sumFloatLoop[T ~float32 | ~float64](
	data []T,
	mask *util.Bitmap,
	count int,
	resTyp common.LType,
) *Value {
	var res float64
	ok := false
	for i := 0; i < count; i++ {
		if !mask.RowIsValid(uint64(i)) {
			continue
		}
		ok = true
		res += float64(data[i])
	}
	if !ok {
		return &Value{Typ: resTyp, IsNull: true}
	}
	return &Value{Typ: resTyp, F64: res}
}

// CountValidOnVector counts the valid rows among the first count rows.
func CountValidOnVector(vec *Vector, count int) int {
	if count == 0 {
		return 0
	}
	if vec.PhyFormat().IsConst() {
		if IsNullInPhyFormatConst(vec) {
			return 0
		}
		return count
	}
	mask := GetMaskInPhyFormatFlat(vec)
	if mask.AllValid() {
		return count
	}
	res := 0
	for i := 0; i < count; i++ {
		if mask.RowIsValid(uint64(i)) {
			res++
		}
	}
	return res
}

// GatherChunk copies the rows sel picks out of src into dst.
func GatherChunk(dst *Chunk, src *Chunk, sel *SelectVector, count int) {
	util.AssertFunc(dst.ColumnCount() == src.ColumnCount())
	for i := 0; i < src.ColumnCount(); i++ {
		Copy(src.Data[i], dst.Data[i], sel, count, 0, 0)
	}
	dst.SetCard(count)
}
