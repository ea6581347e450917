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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

func flatVec[T any](typ common.LType, vals []T, nulls ...int) *chunk.Vector {
	vec := chunk.NewFlatVector(typ, util.DefaultVectorSize)
	data := chunk.GetSliceInPhyFormatFlat[T](vec)
	copy(data, vals)
	for _, row := range nulls {
		chunk.SetNullInPhyFormatFlat(vec, uint64(row), true)
	}
	return vec
}

func flatStrVec(vals []string, nulls ...int) *chunk.Vector {
	vec := chunk.NewFlatVector(common.VarcharType(), util.DefaultVectorSize)
	data := chunk.GetSliceInPhyFormatFlat[common.String](vec)
	for i, s := range vals {
		data[i] = common.NewString(s)
	}
	for _, row := range nulls {
		chunk.SetNullInPhyFormatFlat(vec, uint64(row), true)
	}
	return vec
}

func constVec(val *chunk.Value) *chunk.Vector {
	vec := chunk.NewEmptyVector(val.Typ, chunk.PF_CONST, util.DefaultVectorSize)
	vec.ReferenceValue(val)
	return vec
}

func newAgg(t *testing.T, name string, typ common.LType) (*AggObject, *AggBufLayout) {
	child := NewColumnExpr(ColumnBind{0, 0}, typ, "c0")
	agg, err := CreateAgg(name, child)
	require.NoError(t, err)
	return agg, NewAggBufLayout([]*AggObject{agg})
}

// sinkBatch feeds every row of input into one group buffer.
func sinkBatch(agg *AggObject, layout *AggBufLayout, input *chunk.Vector, count int) *AggBuf {
	buf := layout.NewAggBuf()
	bufs := make([]*AggBuf, count)
	for i := range bufs {
		bufs[i] = buf
	}
	agg.UpdateBatch(bufs, layout.AddrsOf(0), input, count)
	return buf
}

func finalizeOne(agg *AggObject, layout *AggBufLayout, buf *AggBuf) *chunk.Value {
	result := chunk.NewFlatVector(agg.RetType(), util.DefaultVectorSize)
	agg.Finalize(buf, layout.AddrsOf(0), result, 0)
	return result.GetValue(0)
}

func Test_CreateAggUnknownName(t *testing.T) {
	child := NewColumnExpr(ColumnBind{0, 0}, common.IntegerType(), "c0")
	_, err := CreateAgg("median", child)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func Test_CreateAggUnsupportedInput(t *testing.T) {
	bad := common.MakeLType(common.LTID_ANY)
	for _, name := range []string{AggMax, AggMin, AggSum, AggCount} {
		child := NewColumnExpr(ColumnBind{0, 0}, bad, "c0")
		_, err := CreateAgg(name, child)
		require.ErrorIs(t, err, ErrUnsupportedType, name)
	}
}

func Test_AggOverNullTypedColumn(t *testing.T) {
	//a null typed column constructs fine; every cell is null so the
	//result is null (count: zero)
	typ := common.MakeLType(common.LTID_NULL)
	input := flatVec(typ, []int32{0, 0}, 0, 1)
	for _, name := range []string{AggMax, AggMin, AggSum} {
		agg, layout := newAgg(t, name, typ)
		val := finalizeOne(agg, layout, sinkBatch(agg, layout, input, 2))
		require.True(t, val.IsNull, name)
	}
	cnt, layout := newAgg(t, AggCount, typ)
	val := finalizeOne(cnt, layout, sinkBatch(cnt, layout, input, 2))
	require.False(t, val.IsNull)
	require.Equal(t, int64(0), val.I64)
}

func Test_CreateAggResolvesOnce(t *testing.T) {
	child := NewColumnExpr(ColumnBind{0, 0}, common.SmallintType(), "c0")
	agg, err := CreateAgg(AggSum, child)
	require.NoError(t, err)
	require.Equal(t, AggSum, agg.Name())
	require.Equal(t, common.LTID_BIGINT, agg.RetType().Id)
	require.NotNil(t, agg._funcs._row)
	require.NotNil(t, agg._funcs._batch)
	require.NotNil(t, agg._funcs._merge)
	require.NotNil(t, agg._funcs._final)
	//the aggregate owns a copy of the child
	agg.Child().Name = "renamed"
	require.Equal(t, "c0", child.Name)
}

func Test_BatchMatchesRowUpdates(t *testing.T) {
	cases := []struct {
		vec   *chunk.Vector
		names []string
	}{
		{flatVec(common.BooleanType(), []bool{true, false, true}, 1), []string{AggMax, AggMin, AggCount}},
		{flatVec(common.TinyintType(), []int8{3, -9, 7}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.SmallintType(), []int16{300, -900, 700}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.IntegerType(), []int32{30000, -90000, 70000}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.BigintType(), []int64{3_000_000_000, -9_000_000_000, 7_000_000_000}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.UtinyintType(), []uint8{3, 9, 7}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.UsmallintType(), []uint16{300, 900, 700}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.UintegerType(), []uint32{30000, 90000, 70000}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.UbigintType(), []uint64{3, 9, 7}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.FloatType(), []float32{1.5, -2.5, 3.5}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.DoubleType(), []float64{1.5, -2.5, 3.5}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.Date32Type(), []int32{19000, 18000, 20000}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.TimestampType(), []int64{170, 190, 160}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatVec(common.DecimalType(12, 2), []common.Hugeint{
			{Lower: 150, Upper: 0}, {Lower: 75, Upper: 0}, {Lower: 920, Upper: 0},
		}, 1), []string{AggMax, AggMin, AggSum, AggCount}},
		{flatStrVec([]string{"pear", "fig", "yam"}, 1), []string{AggMax, AggMin, AggCount}},
	}
	const count = 3
	for _, c := range cases {
		for _, name := range c.names {
			agg, layout := newAgg(t, name, c.vec.Typ())
			batch := sinkBatch(agg, layout, c.vec, count)
			row := layout.NewAggBuf()
			for i := 0; i < count; i++ {
				agg.UpdateRow(row, layout.AddrsOf(0), c.vec, i)
			}
			want := finalizeOne(agg, layout, batch)
			got := finalizeOne(agg, layout, row)
			require.Equal(t, want, got, "%s over %s", name, c.vec.Typ())
		}
	}
}
