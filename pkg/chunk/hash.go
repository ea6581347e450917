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
	"math"

	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

const (
	NULL_HASH = 0xbf58476d1ce4e5b9
)

func murmurhash64(x uint64) uint64 {
	x ^= x >> 32
	x *= 0xd6e8feb86659fd93
	x ^= x >> 32
	x *= 0xd6e8feb86659fd93
	x ^= x >> 32
	return x
}

func murmurhash32(x uint32) uint64 {
	return murmurhash64(uint64(x))
}

func CombineHashScalar(a, b uint64) uint64 {
	return (a * 0xbf58476d1ce4e5b9) ^ b
}

type HashFunc[T any] interface {
	fun(value T) uint64
}

type HashOp[T any] interface {
	operation(input T, isNull bool) uint64
}

type HashFuncBool struct {
}

func (hfun HashFuncBool) fun(value bool) uint64 {
	if value {
		return murmurhash32(1)
	}
	return murmurhash32(0)
}

type HashFuncInt8 struct {
}

func (hfun HashFuncInt8) fun(value int8) uint64 {
	return murmurhash32(uint32(value))
}

type HashFuncInt16 struct {
}

func (hfun HashFuncInt16) fun(value int16) uint64 {
	return murmurhash32(uint32(value))
}

type HashFuncInt32 struct {
}

func (hfun HashFuncInt32) fun(value int32) uint64 {
	return murmurhash32(uint32(value))
}

type HashFuncInt64 struct {
}

func (hfun HashFuncInt64) fun(value int64) uint64 {
	return murmurhash64(uint64(value))
}

type HashFuncUint8 struct {
}

func (hfun HashFuncUint8) fun(value uint8) uint64 {
	return murmurhash32(uint32(value))
}

type HashFuncUint16 struct {
}

func (hfun HashFuncUint16) fun(value uint16) uint64 {
	return murmurhash32(uint32(value))
}

type HashFuncUint32 struct {
}

func (hfun HashFuncUint32) fun(value uint32) uint64 {
	return murmurhash32(value)
}

type HashFuncUint64 struct {
}

func (hfun HashFuncUint64) fun(value uint64) uint64 {
	return murmurhash64(value)
}

type HashFuncFloat32 struct {
}

func (hfun HashFuncFloat32) fun(value float32) uint64 {
	return murmurhash32(math.Float32bits(value))
}

type HashFuncFloat64 struct {
}

func (hfun HashFuncFloat64) fun(value float64) uint64 {
	return murmurhash64(math.Float64bits(value))
}

type HashFuncString struct {
}

func (hfun HashFuncString) fun(value common.String) uint64 {
	return util.HashBytes(value.DataPtr(), uint64(value.Length()))
}

type HashFuncHugeint struct {
}

func (HashFuncHugeint) fun(value common.Hugeint) uint64 {
	return murmurhash64(uint64(value.Upper)) ^ murmurhash64(value.Lower)
}

type HashOpGeneric[T any] struct {
	hfun HashFunc[T]
}

func (op HashOpGeneric[T]) operation(input T, isNull bool) uint64 {
	if isNull {
		return NULL_HASH
	} else {
		return op.hfun.fun(input)
	}
}

func HashTypeSwitch(
	input, result *Vector,
	count int,
) {
	util.AssertFunc(result.Typ().Id == common.LTID_UBIGINT)
	switch input.Typ().GetInternalType() {
	case common.BOOL:
		TemplatedLoopHash[bool](input, result, count, HashFuncBool{})
	case common.INT8:
		TemplatedLoopHash[int8](input, result, count, HashFuncInt8{})
	case common.INT16:
		TemplatedLoopHash[int16](input, result, count, HashFuncInt16{})
	case common.INT32:
		TemplatedLoopHash[int32](input, result, count, HashFuncInt32{})
	case common.INT64:
		TemplatedLoopHash[int64](input, result, count, HashFuncInt64{})
	case common.UINT8:
		TemplatedLoopHash[uint8](input, result, count, HashFuncUint8{})
	case common.UINT16:
		TemplatedLoopHash[uint16](input, result, count, HashFuncUint16{})
	case common.UINT32:
		TemplatedLoopHash[uint32](input, result, count, HashFuncUint32{})
	case common.UINT64:
		TemplatedLoopHash[uint64](input, result, count, HashFuncUint64{})
	case common.FLOAT:
		TemplatedLoopHash[float32](input, result, count, HashFuncFloat32{})
	case common.DOUBLE:
		TemplatedLoopHash[float64](input, result, count, HashFuncFloat64{})
	case common.INT128:
		TemplatedLoopHash[common.Hugeint](input, result, count, HashFuncHugeint{})
	case common.VARCHAR:
		TemplatedLoopHash[common.String](input, result, count, HashFuncString{})
	default:
		panic("Unknown input type")
	}
}

func TemplatedLoopHash[T any](
	input, result *Vector,
	count int,
	hashFun HashFunc[T],
) {
	hashOp := HashOpGeneric[T]{hfun: hashFun}
	if input.PhyFormat().IsConst() {
		result.SetPhyFormat(PF_CONST)

		data := GetSliceInPhyFormatConst[T](input)
		resData := GetSliceInPhyFormatConst[uint64](result)
		resData[0] = hashOp.operation(data[0], IsNullInPhyFormatConst(input))
	} else {
		result.SetPhyFormat(PF_FLAT)
		TightLoopHash[T](
			GetSliceInPhyFormatFlat[T](input),
			GetSliceInPhyFormatFlat[uint64](result),
			count,
			GetMaskInPhyFormatFlat(input),
			hashOp,
			hashFun,
		)
	}
}

func TightLoopHash[T any](
	ldata []T,
	resultData []uint64,
	count int,
	mask *util.Bitmap,
	hashOp HashOp[T],
	hashFun HashFunc[T],
) {
	if !mask.AllValid() {
		for i := 0; i < count; i++ {
			resultData[i] = hashOp.operation(ldata[i], !mask.RowIsValid(uint64(i)))
		}
	} else {
		for i := 0; i < count; i++ {
			resultData[i] = hashFun.fun(ldata[i])
		}
	}
}

func CombineHashTypeSwitch(
	hashes *Vector,
	input *Vector,
	count int,
) {
	util.AssertFunc(hashes.Typ().Id == common.LTID_UBIGINT)
	switch input.Typ().GetInternalType() {
	case common.BOOL:
		TemplatedLoopCombineHash[bool](input, hashes, count, HashFuncBool{})
	case common.INT8:
		TemplatedLoopCombineHash[int8](input, hashes, count, HashFuncInt8{})
	case common.INT16:
		TemplatedLoopCombineHash[int16](input, hashes, count, HashFuncInt16{})
	case common.INT32:
		TemplatedLoopCombineHash[int32](input, hashes, count, HashFuncInt32{})
	case common.INT64:
		TemplatedLoopCombineHash[int64](input, hashes, count, HashFuncInt64{})
	case common.UINT8:
		TemplatedLoopCombineHash[uint8](input, hashes, count, HashFuncUint8{})
	case common.UINT16:
		TemplatedLoopCombineHash[uint16](input, hashes, count, HashFuncUint16{})
	case common.UINT32:
		TemplatedLoopCombineHash[uint32](input, hashes, count, HashFuncUint32{})
	case common.UINT64:
		TemplatedLoopCombineHash[uint64](input, hashes, count, HashFuncUint64{})
	case common.FLOAT:
		TemplatedLoopCombineHash[float32](input, hashes, count, HashFuncFloat32{})
	case common.DOUBLE:
		TemplatedLoopCombineHash[float64](input, hashes, count, HashFuncFloat64{})
	case common.INT128:
		TemplatedLoopCombineHash[common.Hugeint](input, hashes, count, HashFuncHugeint{})
	case common.VARCHAR:
		TemplatedLoopCombineHash[common.String](input, hashes, count, HashFuncString{})
	default:
		panic("Unknown input type")
	}
}

func TemplatedLoopCombineHash[T any](
	input *Vector,
	hashes *Vector,
	count int,
	hashFun HashFunc[T],
) {
	hashOp := HashOpGeneric[T]{hfun: hashFun}
	if input.PhyFormat().IsConst() && hashes.PhyFormat().IsConst() {
		ldata := GetSliceInPhyFormatConst[T](input)
		hashData := GetSliceInPhyFormatConst[uint64](hashes)
		otherHash := hashOp.operation(ldata[0], IsNullInPhyFormatConst(input))
		hashData[0] = CombineHashScalar(hashData[0], otherHash)
	} else if input.PhyFormat().IsConst() {
		util.AssertFunc(hashes.PhyFormat().IsFlat())
		ldata := GetSliceInPhyFormatConst[T](input)
		otherHash := hashOp.operation(ldata[0], IsNullInPhyFormatConst(input))
		hashData := GetSliceInPhyFormatFlat[uint64](hashes)
		for i := 0; i < count; i++ {
			hashData[i] = CombineHashScalar(hashData[i], otherHash)
		}
	} else {
		ldata := GetSliceInPhyFormatFlat[T](input)
		mask := GetMaskInPhyFormatFlat(input)
		if hashes.PhyFormat().IsConst() {
			hashData := GetSliceInPhyFormatConst[uint64](hashes)
			constHash := hashData[0]
			hashes.SetPhyFormat(PF_FLAT)
			TightLoopCombineHashConstant[T](
				ldata,
				constHash,
				GetSliceInPhyFormatFlat[uint64](hashes),
				count,
				mask,
				hashOp,
				hashFun,
			)
		} else {
			util.AssertFunc(hashes.PhyFormat().IsFlat())
			TightLoopCombineHash[T](
				ldata,
				GetSliceInPhyFormatFlat[uint64](hashes),
				count,
				mask,
				hashOp,
				hashFun,
			)
		}
	}
}

func TightLoopCombineHashConstant[T any](
	ldata []T,
	constHash uint64,
	hashData []uint64,
	count int,
	mask *util.Bitmap,
	hashOp HashOp[T],
	hashFun HashFunc[T],
) {
	if !mask.AllValid() {
		for i := 0; i < count; i++ {
			otherHash := hashOp.operation(ldata[i], !mask.RowIsValid(uint64(i)))
			hashData[i] = CombineHashScalar(constHash, otherHash)
		}
	} else {
		for i := 0; i < count; i++ {
			otherHash := hashFun.fun(ldata[i])
			hashData[i] = CombineHashScalar(constHash, otherHash)
		}
	}
}

func TightLoopCombineHash[T any](
	ldata []T,
	hashData []uint64,
	count int,
	mask *util.Bitmap,
	hashOp HashOp[T],
	hashFun HashFunc[T],
) {
	if !mask.AllValid() {
		for i := 0; i < count; i++ {
			otherHash := hashOp.operation(ldata[i], !mask.RowIsValid(uint64(i)))
			hashData[i] = CombineHashScalar(hashData[i], otherHash)
		}
	} else {
		for i := 0; i < count; i++ {
			otherHash := hashFun.fun(ldata[i])
			hashData[i] = CombineHashScalar(hashData[i], otherHash)
		}
	}
}
