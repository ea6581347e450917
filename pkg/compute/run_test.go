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
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

func Test_AggPlanResultTypes(t *testing.T) {
	inputTypes := []common.LType{common.VarcharType(), common.IntegerType()}
	plan, err := NewAggPlan(inputTypes, []int{0},
		[]AggDef{{Fun: AggSum, Col: 1}, {Fun: AggCount, Col: 1}}, 2, 7)
	require.NoError(t, err)
	require.Equal(t, []int{0}, plan.GroupCols())
	require.Equal(t, 2, plan.Partitions())

	types := plan.ResultTypes()
	require.Len(t, types, 3)
	require.Equal(t, common.LTID_VARCHAR, types[0].Id)
	require.Equal(t, common.LTID_BIGINT, types[1].Id)
	require.Equal(t, common.LTID_BIGINT, types[2].Id)

	out := plan.Explain()
	require.Contains(t, out, "AggPlan")
	require.Contains(t, out, "partitions: 2")
	require.Contains(t, out, "sum(col1 INT32)")
}

func Test_AggPlanRejectsBadAgg(t *testing.T) {
	inputTypes := []common.LType{common.MakeLType(common.LTID_ANY)}
	_, err := NewAggPlan(inputTypes, nil, []AggDef{{Fun: AggSum, Col: 0}}, 1, 0)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func Test_ParallelAggMatchesSequential(t *testing.T) {
	inputTypes := []common.LType{common.VarcharType(), common.IntegerType()}
	defs := []AggDef{
		{Fun: AggSum, Col: 1},
		{Fun: AggCount, Col: 1},
		{Fun: AggMax, Col: 1},
	}

	expSum := make(map[string]int64)
	expCnt := make(map[string]int64)
	expMax := make(map[string]int64)
	buildChunk := func(base, n int) *chunk.Chunk {
		groups := make([]string, n)
		vals := make([]int32, n)
		var nulls []int
		for i := 0; i < n; i++ {
			row := base + i
			g := fmt.Sprintf("g%02d", row%37)
			groups[i] = g
			v := int32((row*13)%211 - 40)
			vals[i] = v
			if row%7 == 3 {
				nulls = append(nulls, i)
				continue
			}
			expSum[g] += int64(v)
			expCnt[g]++
			if old, ok := expMax[g]; !ok || int64(v) > old {
				expMax[g] = int64(v)
			}
		}
		return tableChunk(n,
			flatStrVec(groups, nulls...),
			flatVec(common.IntegerType(), vals, nulls...))
	}
	chunks := []*chunk.Chunk{
		buildChunk(0, 700),
		buildChunk(700, 2048),
		buildChunk(2748, 360),
	}

	run := func(parts int) [][]*chunk.Value {
		plan, err := NewAggPlan(inputTypes, []int{0}, defs, parts, 42)
		require.NoError(t, err)
		pa, err := NewParallelAgg(plan)
		require.NoError(t, err)
		pa.Start(context.Background())
		for _, data := range chunks {
			require.NoError(t, pa.Sink(data))
		}
		table, err := pa.Finish()
		require.NoError(t, err)
		require.Equal(t, 37, table.GroupCount())
		rows, _ := drainScan(t, table, plan.ResultTypes(), true)
		return rows
	}

	merged := run(4)
	require.Len(t, merged, 37)
	for _, row := range merged {
		g := row[0].Str
		require.Equal(t, expSum[g], row[1].I64, g)
		require.Equal(t, expCnt[g], row[2].I64, g)
		require.Equal(t, expMax[g], row[3].I64, g)
	}

	single := run(1)
	require.Equal(t, len(single), len(merged))
	for i := range merged {
		for j := range merged[i] {
			require.Equal(t, single[i][j].String(), merged[i][j].String())
		}
	}
}

func Test_ParallelAggGlobalAgg(t *testing.T) {
	inputTypes := []common.LType{common.IntegerType()}
	plan, err := NewAggPlan(inputTypes, nil,
		[]AggDef{{Fun: AggSum, Col: 0}, {Fun: AggCount, Col: 0}}, 3, 9)
	require.NoError(t, err)
	pa, err := NewParallelAgg(plan)
	require.NoError(t, err)
	pa.Start(context.Background())

	vals := make([]int32, 100)
	for i := range vals {
		vals[i] = int32(i + 1)
	}
	require.NoError(t, pa.Sink(tableChunk(60, flatVec(common.IntegerType(), vals[:60]))))
	require.NoError(t, pa.Sink(tableChunk(40, flatVec(common.IntegerType(), vals[60:]))))

	table, err := pa.Finish()
	require.NoError(t, err)
	rows, _ := drainScan(t, table, plan.ResultTypes(), false)
	require.Len(t, rows, 1)
	require.Equal(t, int64(5050), rows[0][0].I64)
	require.Equal(t, int64(100), rows[0][1].I64)
}

func Test_ParallelAggWorkerPanicIsError(t *testing.T) {
	inputTypes := []common.LType{common.IntegerType()}
	plan, err := NewAggPlan(inputTypes, nil, []AggDef{{Fun: AggCount, Col: 0}}, 1, 0)
	require.NoError(t, err)
	pa, err := NewParallelAgg(plan)
	require.NoError(t, err)
	pa.Start(context.Background())

	over := util.DefaultVectorSize + 1
	vec := chunk.NewFlatVector(common.IntegerType(), over)
	slice := chunk.GetSliceInPhyFormatFlat[int32](vec)
	for i := 0; i < over; i++ {
		slice[i] = int32(i)
	}
	require.NoError(t, pa.Sink(tableChunk(over, vec)))

	_, err = pa.Finish()
	require.Error(t, err)
	require.Contains(t, err.Error(), "panic")
}

func Test_ParallelAggSinkUnblocksAfterWorkerDeath(t *testing.T) {
	decTyp := common.DecimalType(38, 0)
	plan, err := NewAggPlan([]common.LType{decTyp}, nil,
		[]AggDef{{Fun: AggSum, Col: 0}}, 1, 0)
	require.NoError(t, err)
	pa, err := NewParallelAgg(plan)
	require.NoError(t, err)
	pa.Start(context.Background())

	//two near max values overflow the 128 bit sum and kill the worker
	nearMax := common.Hugeint{Lower: math.MaxUint64, Upper: math.MaxInt64}
	require.NoError(t, pa.Sink(tableChunk(2,
		flatVec(decTyp, []common.Hugeint{nearMax, nearMax}))))

	//the dead worker no longer drains its channel, sends must error out
	//instead of blocking once the buffer fills
	benign := tableChunk(1, flatVec(decTyp, []common.Hugeint{common.HugeintFromInt64(1)}))
	var sinkErr error
	for i := 0; i < 64; i++ {
		if sinkErr = pa.Sink(benign); sinkErr != nil {
			break
		}
	}
	require.Error(t, sinkErr)

	_, err = pa.Finish()
	require.Error(t, err)
	require.Contains(t, err.Error(), "overflow")
}
