package compute

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

func Test_MaxMinInt32(t *testing.T) {
	input := flatVec(common.IntegerType(), []int32{3, -7, 0, 11, 5}, 2)

	maxAgg, maxLayout := newAgg(t, AggMax, common.IntegerType())
	buf := sinkBatch(maxAgg, maxLayout, input, 5)
	val := finalizeOne(maxAgg, maxLayout, buf)
	require.False(t, val.IsNull)
	require.Equal(t, int64(11), val.I64)

	minAgg, minLayout := newAgg(t, AggMin, common.IntegerType())
	buf = sinkBatch(minAgg, minLayout, input, 5)
	val = finalizeOne(minAgg, minLayout, buf)
	require.False(t, val.IsNull)
	require.Equal(t, int64(-7), val.I64)
}

func Test_MaxAllNullIsNull(t *testing.T) {
	input := flatVec(common.BigintType(), []int64{1, 2, 3}, 0, 1, 2)
	agg, layout := newAgg(t, AggMax, common.BigintType())
	buf := sinkBatch(agg, layout, input, 3)
	val := finalizeOne(agg, layout, buf)
	require.True(t, val.IsNull)
}

func Test_MaxMinRowUpdate(t *testing.T) {
	input := flatVec(common.TinyintType(), []int8{9, 4}, 1)
	agg, layout := newAgg(t, AggMin, common.TinyintType())
	buf := layout.NewAggBuf()
	agg.UpdateRow(buf, layout.AddrsOf(0), input, 0)
	agg.UpdateRow(buf, layout.AddrsOf(0), input, 1)
	val := finalizeOne(agg, layout, buf)
	require.Equal(t, int64(9), val.I64)
}

func Test_MaxConstInput(t *testing.T) {
	agg, layout := newAgg(t, AggMax, common.IntegerType())

	input := constVec(&chunk.Value{Typ: common.IntegerType(), I64: 6})
	buf := sinkBatch(agg, layout, input, 4)
	val := finalizeOne(agg, layout, buf)
	require.Equal(t, int64(6), val.I64)

	nullIn := constVec(&chunk.Value{Typ: common.IntegerType(), IsNull: true})
	buf = sinkBatch(agg, layout, nullIn, 4)
	val = finalizeOne(agg, layout, buf)
	require.True(t, val.IsNull)
}

func Test_MaxMergeAcrossBufs(t *testing.T) {
	agg, layout := newAgg(t, AggMax, common.UbigintType())
	left := sinkBatch(agg, layout, flatVec(common.UbigintType(), []uint64{1, math.MaxUint64}), 2)
	right := sinkBatch(agg, layout, flatVec(common.UbigintType(), []uint64{5}), 1)
	empty := layout.NewAggBuf()

	//invalid source leaves the target alone
	agg.Merge(right, empty, layout.AddrsOf(0))
	val := finalizeOne(agg, layout, right)
	require.Equal(t, uint64(5), val.U64)

	agg.Merge(right, left, layout.AddrsOf(0))
	val = finalizeOne(agg, layout, right)
	require.Equal(t, uint64(math.MaxUint64), val.U64)

	//merging into a fresh buffer seeds it
	agg.Merge(empty, left, layout.AddrsOf(0))
	val = finalizeOne(agg, layout, empty)
	require.Equal(t, uint64(math.MaxUint64), val.U64)

	//a chain of untouched bufs still finalizes to null
	fresh, other := layout.NewAggBuf(), layout.NewAggBuf()
	agg.Merge(fresh, other, layout.AddrsOf(0))
	require.True(t, finalizeOne(agg, layout, fresh).IsNull)
}

func Test_MaxFloatNaN(t *testing.T) {
	agg, layout := newAgg(t, AggMax, common.DoubleType())

	//NaN never displaces a seeded value
	buf := sinkBatch(agg, layout, flatVec(common.DoubleType(), []float64{2.5, math.NaN(), 7.25}), 3)
	val := finalizeOne(agg, layout, buf)
	require.Equal(t, 7.25, val.F64)

	//a seeded NaN sticks
	buf = sinkBatch(agg, layout, flatVec(common.DoubleType(), []float64{math.NaN(), 100}), 2)
	val = finalizeOne(agg, layout, buf)
	require.True(t, math.IsNaN(val.F64))
}

func Test_MaxMinBool(t *testing.T) {
	input := flatVec(common.BooleanType(), []bool{false, true, false})

	maxAgg, maxLayout := newAgg(t, AggMax, common.BooleanType())
	val := finalizeOne(maxAgg, maxLayout, sinkBatch(maxAgg, maxLayout, input, 3))
	require.True(t, val.Bool)

	minAgg, minLayout := newAgg(t, AggMin, common.BooleanType())
	val = finalizeOne(minAgg, minLayout, sinkBatch(minAgg, minLayout, input, 3))
	require.False(t, val.Bool)
}

func Test_MaxMinDecimal(t *testing.T) {
	typ := common.DecimalType(12, 2)
	vals := []common.Hugeint{
		common.HugeintFromInt64(-12345),
		common.HugeintFromInt64(99),
		common.HugeintFromInt64(1250),
	}
	input := flatVec(typ, vals)

	maxAgg, maxLayout := newAgg(t, AggMax, typ)
	require.Equal(t, typ, maxAgg.RetType())
	val := finalizeOne(maxAgg, maxLayout, sinkBatch(maxAgg, maxLayout, input, 3))
	huge := val.GetHugeint()
	require.Equal(t, common.HugeintFromInt64(1250), huge)

	minAgg, minLayout := newAgg(t, AggMin, typ)
	val = finalizeOne(minAgg, minLayout, sinkBatch(minAgg, minLayout, input, 3))
	huge = val.GetHugeint()
	require.Equal(t, common.HugeintFromInt64(-12345), huge)
}

func Test_MaxMinVarchar(t *testing.T) {
	input := flatStrVec([]string{"pear", "apple", "zucchini", "fig"}, 3)

	maxAgg, maxLayout := newAgg(t, AggMax, common.VarcharType())
	val := finalizeOne(maxAgg, maxLayout, sinkBatch(maxAgg, maxLayout, input, 4))
	require.Equal(t, "zucchini", val.Str)

	minAgg, minLayout := newAgg(t, AggMin, common.VarcharType())
	val = finalizeOne(minAgg, minLayout, sinkBatch(minAgg, minLayout, input, 4))
	require.Equal(t, "apple", val.Str)
}

func Test_MinVarcharEmptyStringBeatsNothing(t *testing.T) {
	agg, layout := newAgg(t, AggMin, common.VarcharType())
	val := finalizeOne(agg, layout, sinkBatch(agg, layout, flatStrVec([]string{"", "b"}), 2))
	require.False(t, val.IsNull)
	require.Equal(t, "", val.Str)

	//no input at all stays null
	val = finalizeOne(agg, layout, layout.NewAggBuf())
	require.True(t, val.IsNull)
}

func Test_MaxVarcharMerge(t *testing.T) {
	agg, layout := newAgg(t, AggMax, common.VarcharType())
	left := sinkBatch(agg, layout, flatStrVec([]string{"mango"}), 1)
	right := sinkBatch(agg, layout, flatStrVec([]string{"kiwi"}), 1)
	agg.Merge(right, left, layout.AddrsOf(0))
	val := finalizeOne(agg, layout, right)
	require.Equal(t, "mango", val.Str)
}

func Test_MaxTemporal(t *testing.T) {
	input := flatVec(common.Date32Type(), []int32{19000, 18000, 20000})
	agg, layout := newAgg(t, AggMax, common.Date32Type())
	require.Equal(t, common.LTID_DATE32, agg.RetType().Id)
	val := finalizeOne(agg, layout, sinkBatch(agg, layout, input, 3))
	require.Equal(t, int64(20000), val.I64)

	tsIn := flatVec(common.TimestampType(), []int64{1700000000000000, 1800000000000000})
	tsAgg, tsLayout := newAgg(t, AggMin, common.TimestampType())
	val = finalizeOne(tsAgg, tsLayout, sinkBatch(tsAgg, tsLayout, tsIn, 2))
	require.Equal(t, int64(1700000000000000), val.I64)
}

func Test_MaxBatchSingleBufferFold(t *testing.T) {
	agg, layout := newAgg(t, AggMax, common.IntegerType())
	buf := sinkBatch(agg, layout, flatVec(common.IntegerType(), []int32{5, 40, 12}, 1), 3)
	require.Equal(t, int64(12), finalizeOne(agg, layout, buf).I64)

	//a second single buffer batch reduces first and folds the winner
	//against the held value
	agg.UpdateBatch([]*AggBuf{buf, buf, buf}, layout.AddrsOf(0),
		flatVec(common.IntegerType(), []int32{9, 30, 2}), 3)
	require.Equal(t, int64(30), finalizeOne(agg, layout, buf).I64)

	//distinct buffers take the scatter path and stay independent
	a, b := layout.NewAggBuf(), layout.NewAggBuf()
	agg.UpdateBatch([]*AggBuf{a, b, a}, layout.AddrsOf(0),
		flatVec(common.IntegerType(), []int32{3, 8, 6}), 3)
	require.Equal(t, int64(6), finalizeOne(agg, layout, a).I64)
	require.Equal(t, int64(8), finalizeOne(agg, layout, b).I64)
}

func Test_MaxVarcharTieKeepsHeldBytes(t *testing.T) {
	agg, layout := newAgg(t, AggMax, common.VarcharType())
	buf := sinkBatch(agg, layout, flatStrVec([]string{"b"}), 1)
	addr := layout.AddrsOf(0)[0]
	held := buf.DynValue(addr)
	require.Equal(t, "b", string(held))

	//neither a smaller nor an equal candidate touches the stored bytes
	agg.UpdateBatch([]*AggBuf{buf, buf}, layout.AddrsOf(0), flatStrVec([]string{"a", "b"}), 2)
	after := buf.DynValue(addr)
	require.Equal(t, "b", string(after))
	require.Same(t, &held[0], &after[0])
}
