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

const FuncUnscaledValue = "unscaled_value"

// GetUnscaledValueFunc resolves unscaled_value over a decimal input. The
// kernel strips the scale off by reinterpreting the 128 bit unscaled value
// as its low 64 bits. Values wider than 64 bits truncate, matching the
// downstream consumers that only ever feed it 64 bit decimals. Nulls pass
// through.
func GetUnscaledValueFunc(argTyp common.LType) (*ScalarFunc, error) {
	if argTyp.Id != common.LTID_DECIMAL {
		return nil, fmt.Errorf("%w: %s over %s", ErrUnsupportedType, FuncUnscaledValue, argTyp.String())
	}
	return &ScalarFunc{
		_name:    FuncUnscaledValue,
		_args:    []common.LType{argTyp},
		_retType: common.BigintType(),
		_scalar:  unscaledValueLoop,
	}, nil
}

func unscaledValueLoop(input *chunk.Vector, count int, result *chunk.Vector) {
	if input.PhyFormat().IsConst() {
		result.SetPhyFormat(chunk.PF_CONST)
		if chunk.IsNullInPhyFormatConst(input) {
			chunk.SetNullInPhyFormatConst(result, true)
			return
		}
		chunk.SetNullInPhyFormatConst(result, false)
		val := chunk.GetSliceInPhyFormatConst[common.Hugeint](input)[0]
		chunk.GetSliceInPhyFormatConst[int64](result)[0] = val.ToInt64()
		return
	}
	data := chunk.GetSliceInPhyFormatFlat[common.Hugeint](input)
	res := chunk.GetSliceInPhyFormatFlat[int64](result)
	//the result adopts the input mask, so stale validity from a reused
	//result vector never leaks through
	chunk.SetMaskInPhyFormatFlat(result, chunk.GetMaskInPhyFormatFlat(input))
	for i := 0; i < count; i++ {
		res[i] = data[i].ToInt64()
	}
}

// UnscaledValueOnValue is the scalar form over a single value.
func UnscaledValueOnValue(val *chunk.Value) (*chunk.Value, error) {
	if val.Typ.Id != common.LTID_DECIMAL {
		return nil, fmt.Errorf("%w: %s over %s", ErrUnsupportedType, FuncUnscaledValue, val.Typ.String())
	}
	ret := &chunk.Value{
		Typ:    common.BigintType(),
		IsNull: val.IsNull,
	}
	if !val.IsNull {
		h := val.GetHugeint()
		ret.I64 = h.ToInt64()
	}
	return ret, nil
}
