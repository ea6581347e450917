package compute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

func keyCodecTypes() []common.LType {
	return []common.LType{
		common.BooleanType(),
		common.TinyintType(),
		common.UtinyintType(),
		common.SmallintType(),
		common.UsmallintType(),
		common.IntegerType(),
		common.UintegerType(),
		common.BigintType(),
		common.UbigintType(),
		common.FloatType(),
		common.DoubleType(),
		common.DecimalType(20, 3),
		common.VarcharType(),
	}
}

func Test_KeyCodecRoundTrip(t *testing.T) {
	types := keyCodecTypes()
	src := &chunk.Chunk{}
	src.Init(types, util.DefaultVectorSize)

	rows := []struct {
		vals    []*chunk.Value
		nullCol int
	}{
		{
			vals: []*chunk.Value{
				{Typ: types[0], Bool: true},
				{Typ: types[1], I64: -8},
				{Typ: types[2], U64: 250},
				{Typ: types[3], I64: -30000},
				{Typ: types[4], U64: 60000},
				{Typ: types[5], I64: -2000000000},
				{Typ: types[6], U64: 4000000000},
				{Typ: types[7], I64: -9000000000000000000},
				{Typ: types[8], U64: 18000000000000000000},
				{Typ: types[9], F64: 1.5},
				{Typ: types[10], F64: -2.25},
				{Typ: types[11], I64: -1, I64_1: -4},
				{Typ: types[12], Str: "grouped by me"},
			},
			nullCol: -1,
		},
		{
			vals: []*chunk.Value{
				{Typ: types[0], Bool: false},
				{Typ: types[1], I64: 8},
				{Typ: types[2], U64: 0},
				{Typ: types[3], I64: 64},
				{Typ: types[4], U64: 7},
				{Typ: types[5], I64: 11},
				{Typ: types[6], U64: 12},
				{Typ: types[7], I64: 13},
				{Typ: types[8], U64: 14},
				{Typ: types[9], F64: 0},
				{Typ: types[10], F64: 1e300},
				{Typ: types[11], I64: 0, I64_1: 99001},
				{Typ: types[12], Str: ""},
			},
			nullCol: 5,
		},
	}
	for r, row := range rows {
		for c, val := range row.vals {
			if c == row.nullCol {
				val.IsNull = true
			}
			src.Data[c].SetValue(r, val)
		}
	}
	src.SetCard(len(rows))

	cols := make([]int, len(types))
	for i := range cols {
		cols[i] = i
	}

	dst := &chunk.Chunk{}
	dst.Init(types, util.DefaultVectorSize)
	for r, row := range rows {
		key := encodeKeyRow(nil, src, cols, r)
		decodeKeyRow(key, dst.Data, r)
		for c, want := range row.vals {
			got := dst.Data[c].GetValue(r)
			if c == row.nullCol {
				require.True(t, got.IsNull, "row %d col %d", r, c)
				continue
			}
			require.False(t, got.IsNull, "row %d col %d", r, c)
			require.Equal(t, want.String(), got.String(), "row %d col %d", r, c)
		}
	}
}

func Test_KeyCodecNullDistinctFromValue(t *testing.T) {
	types := []common.LType{common.IntegerType()}
	data := &chunk.Chunk{}
	data.Init(types, util.DefaultVectorSize)
	data.Data[0].SetValue(0, &chunk.Value{Typ: types[0], I64: 0})
	data.Data[0].SetValue(1, &chunk.Value{Typ: types[0], IsNull: true})
	data.SetCard(2)

	zeroKey := encodeKeyRow(nil, data, []int{0}, 0)
	nullKey := encodeKeyRow(nil, data, []int{0}, 1)
	require.NotEqual(t, zeroKey, nullKey)
	require.Equal(t, []byte{0}, nullKey)
}

func Test_KeyCodecConstColumn(t *testing.T) {
	types := []common.LType{common.VarcharType(), common.IntegerType()}
	data := &chunk.Chunk{}
	data.Init(types, util.DefaultVectorSize)
	data.Data[0].ReferenceValue(&chunk.Value{Typ: types[0], Str: "same"})
	data.Data[1].SetValue(0, &chunk.Value{Typ: types[1], I64: 1})
	data.Data[1].SetValue(1, &chunk.Value{Typ: types[1], I64: 2})
	data.SetCard(2)

	k0 := encodeKeyRow(nil, data, []int{0, 1}, 0)
	k1 := encodeKeyRow(nil, data, []int{0, 1}, 1)
	//the constant column contributes the same bytes to every row
	require.Equal(t, k0[:len(k0)-4], k1[:len(k1)-4])
	require.NotEqual(t, k0, k1)
}
