package compute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

func Test_ExprExecColumnAndConst(t *testing.T) {
	input := tableChunk(3,
		flatVec(common.IntegerType(), []int32{5, 6, 7}),
		flatStrVec([]string{"x", "y", "z"}),
	)
	exprs := []*Expr{
		NewColumnExpr(ColumnBind{0, 1}, common.VarcharType(), "name"),
		NewIConstExpr(7),
		NewSConstExpr("tag"),
		NewFConstExpr(2.5),
		NewBConstExpr(true),
		NewNullConstExpr(common.IntegerType()),
	}
	exec, err := NewExprExec(exprs...)
	require.NoError(t, err)

	output := &chunk.Chunk{}
	output.Init([]common.LType{
		common.VarcharType(),
		common.BigintType(),
		common.VarcharType(),
		common.DoubleType(),
		common.BooleanType(),
		common.IntegerType(),
	}, util.DefaultVectorSize)
	require.NoError(t, exec.ExecuteExprs(input, output))
	require.Equal(t, 3, output.Card())

	require.Equal(t, "x", output.Data[0].GetValue(0).Str)
	require.Equal(t, "z", output.Data[0].GetValue(2).Str)
	for row := 0; row < 3; row++ {
		require.Equal(t, int64(7), output.Data[1].GetValue(row).I64)
		require.Equal(t, "tag", output.Data[2].GetValue(row).Str)
		require.Equal(t, 2.5, output.Data[3].GetValue(row).F64)
		require.True(t, output.Data[4].GetValue(row).Bool)
		require.True(t, output.Data[5].GetValue(row).IsNull)
	}
}

func Test_ExprExecDecConst(t *testing.T) {
	typ := common.DecimalType(6, 2)
	exec, err := NewExprExec(NewDecConstExpr("12.34", typ))
	require.NoError(t, err)

	input := tableChunk(2, flatVec(common.IntegerType(), []int32{1, 2}))
	output := &chunk.Chunk{}
	output.Init([]common.LType{typ}, util.DefaultVectorSize)
	require.NoError(t, exec.ExecuteExprs(input, output))

	val := output.Data[0].GetValue(1)
	require.Equal(t, common.HugeintFromInt64(1234), val.GetHugeint())
}

func Test_ExprExecUnscaledFunc(t *testing.T) {
	typ := common.DecimalType(12, 2)
	col := NewColumnExpr(ColumnBind{0, 0}, typ, "price")
	fn, err := NewFuncExpr(FuncUnscaledValue, col)
	require.NoError(t, err)
	require.Equal(t, common.LTID_BIGINT, fn.DataTyp.Id)

	exec, err := NewExprExec(fn)
	require.NoError(t, err)

	input := tableChunk(3, flatVec(typ, []common.Hugeint{
		common.HugeintFromInt64(12345),
		common.HugeintFromInt64(-500),
		common.HugeintFromInt64(0),
	}, 2))
	output := &chunk.Chunk{}
	output.Init([]common.LType{common.BigintType()}, util.DefaultVectorSize)
	require.NoError(t, exec.ExecuteExprs(input, output))

	require.Equal(t, int64(12345), output.Data[0].GetValue(0).I64)
	require.Equal(t, int64(-500), output.Data[0].GetValue(1).I64)
	require.True(t, output.Data[0].GetValue(2).IsNull)
}

func Test_ExprExecBindsFunc(t *testing.T) {
	//an unresolved function expression binds during executor construction
	col := NewColumnExpr(ColumnBind{0, 0}, common.DecimalType(10, 3), "v")
	raw := &Expr{
		Typ:      ET_Func,
		SubTyp:   ET_SubFunc,
		Svalue:   FuncUnscaledValue,
		Children: []*Expr{col},
	}
	_, err := NewExprExec(raw)
	require.NoError(t, err)
	require.NotNil(t, raw.FunImpl)
	require.Equal(t, common.LTID_BIGINT, raw.DataTyp.Id)

	bad := &Expr{
		Typ:      ET_Func,
		SubTyp:   ET_SubFunc,
		Svalue:   FuncUnscaledValue,
		Children: []*Expr{NewIConstExpr(1)},
	}
	_, err = NewExprExec(bad)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func Test_ExprCopyIsDeep(t *testing.T) {
	typ := common.DecimalType(12, 2)
	col := NewColumnExpr(ColumnBind{0, 3}, typ, "price")
	fn, err := NewFuncExpr(FuncUnscaledValue, col)
	require.NoError(t, err)

	cp := fn.copy()
	cp.Children[0].Name = "renamed"
	cp.Children[0].ColRef = ColumnBind{0, 9}
	require.Equal(t, "price", col.Name)
	require.Equal(t, ColumnBind{0, 3}, fn.Children[0].ColRef)
	require.NotNil(t, cp.FunImpl)
}

func Test_ExprFormat(t *testing.T) {
	typ := common.DecimalType(12, 2)
	col := NewColumnExpr(ColumnBind{0, 0}, typ, "price")
	fn, err := NewFuncExpr(FuncUnscaledValue, col)
	require.NoError(t, err)

	out := fn.String()
	require.Contains(t, out, "unscaled_value -> INT64")
	require.Contains(t, out, "price")
	require.Contains(t, out, "INT128(12,2)")
}
