package compute

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	pqLocal "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

type scanRow struct {
	Region string `parquet:"name=region, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Qty    *int32 `parquet:"name=qty, type=INT32, repetitiontype=OPTIONAL"`
	Price  *int64 `parquet:"name=price, type=INT64, convertedtype=DECIMAL, scale=2, precision=12, repetitiontype=OPTIONAL"`
}

func writeScanFile(t *testing.T, rows []scanRow) string {
	path := filepath.Join(t.TempDir(), "scan.parquet")
	fw, err := pqLocal.NewLocalFileWriter(path)
	require.NoError(t, err)
	pw, err := writer.NewParquetWriter(fw, new(scanRow), 2)
	require.NoError(t, err)
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		require.NoError(t, pw.Write(row))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())
	return path
}

func i32p(v int32) *int32 { return &v }
func i64p(v int64) *int64 { return &v }

func Test_ParquetSourceRead(t *testing.T) {
	path := writeScanFile(t, []scanRow{
		{Region: "east", Qty: i32p(3), Price: i64p(1099)},
		{Region: "west", Qty: nil, Price: i64p(525)},
		{Region: "east", Qty: i32p(7), Price: nil},
		{Region: "south", Qty: i32p(2), Price: i64p(2500)},
		{Region: "west", Qty: i32p(4), Price: i64p(75)},
	})

	types := []common.LType{
		common.VarcharType(),
		common.IntegerType(),
		common.DecimalType(12, 2),
	}
	src, err := NewParquetSource(path, []int{0, 1, 2}, types)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Close())
	}()
	require.Equal(t, int64(5), src.NumRows())
	require.Equal(t, types, src.Types())

	output := &chunk.Chunk{}
	output.Init(types, util.DefaultVectorSize)

	require.NoError(t, src.Read(output, 3))
	require.Equal(t, 3, output.Card())
	require.Equal(t, "east", output.Data[0].GetValue(0).Str)
	require.Equal(t, "west", output.Data[0].GetValue(1).Str)
	require.Equal(t, int64(3), output.Data[1].GetValue(0).I64)
	require.True(t, output.Data[1].GetValue(1).IsNull)
	require.Equal(t, int64(7), output.Data[1].GetValue(2).I64)
	require.Equal(t, common.HugeintFromInt64(1099), output.Data[2].GetValue(0).GetHugeint())
	require.Equal(t, common.HugeintFromInt64(525), output.Data[2].GetValue(1).GetHugeint())
	require.True(t, output.Data[2].GetValue(2).IsNull)

	require.NoError(t, src.Read(output, 3))
	require.Equal(t, 2, output.Card())
	require.Equal(t, "south", output.Data[0].GetValue(0).Str)
	require.Equal(t, common.HugeintFromInt64(75), output.Data[2].GetValue(1).GetHugeint())

	require.NoError(t, src.Read(output, 3))
	require.Equal(t, 0, output.Card())
}

func Test_ParquetSourceIntoAggTable(t *testing.T) {
	path := writeScanFile(t, []scanRow{
		{Region: "a", Qty: i32p(1), Price: i64p(100)},
		{Region: "b", Qty: i32p(2), Price: i64p(200)},
		{Region: "a", Qty: i32p(3), Price: nil},
		{Region: "b", Qty: nil, Price: i64p(50)},
	})

	types := []common.LType{
		common.VarcharType(),
		common.IntegerType(),
		common.DecimalType(12, 2),
	}
	src, err := NewParquetSource(path, []int{0, 1, 2}, types)
	require.NoError(t, err)
	defer src.Close()

	sum := mustAgg(t, AggSum, 1, types[1])
	cnt := mustAgg(t, AggCount, 2, types[2])
	agt, err := NewGroupedAggTable(types, []int{0}, []*AggObject{sum, cnt})
	require.NoError(t, err)

	input := &chunk.Chunk{}
	input.Init(types, util.DefaultVectorSize)
	for {
		require.NoError(t, src.Read(input, util.DefaultVectorSize))
		if input.Card() == 0 {
			break
		}
		agt.Sink(input)
	}

	rows, _ := drainScan(t, agt,
		[]common.LType{types[0], sum.RetType(), cnt.RetType()}, true)
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[0][0].Str)
	require.Equal(t, int64(4), rows[0][1].I64)
	require.Equal(t, int64(1), rows[0][2].I64)
	require.Equal(t, "b", rows[1][0].Str)
	require.Equal(t, int64(2), rows[1][1].I64)
	require.Equal(t, int64(2), rows[1][2].I64)
}

func Test_ParquetSourceMissingFile(t *testing.T) {
	_, err := NewParquetSource(filepath.Join(t.TempDir(), "absent.parquet"), []int{0}, nil)
	require.Error(t, err)
}

func Test_ParquetSourceUnsupportedType(t *testing.T) {
	//type validation runs before the file is touched
	_, err := NewParquetSource(filepath.Join(t.TempDir(), "absent.parquet"),
		[]int{0}, []common.LType{common.UbigintType()})
	require.ErrorIs(t, err, ErrUnsupportedType)
}
