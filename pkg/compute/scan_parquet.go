package compute

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	pqLocal "github.com/xitongsys/parquet-go-source/local"
	pqReader "github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

// ParquetSource reads selected columns of one parquet file into chunks.
// Column indexes follow the file schema order.
type ParquetSource struct {
	_path   string
	_cols   []int
	_types  []common.LType
	_file   source.ParquetFile
	_reader *pqReader.ParquetReader
	_done   bool
}

func NewParquetSource(path string, cols []int, types []common.LType) (*ParquetSource, error) {
	for _, typ := range types {
		if !parquetReadable(typ) {
			return nil, fmt.Errorf("%w: parquet read into %s", ErrUnsupportedType, typ.String())
		}
	}
	src := &ParquetSource{
		_path:  path,
		_cols:  cols,
		_types: types,
	}
	var err error
	src._file, err = pqLocal.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	src._reader, err = pqReader.NewParquetColumnReader(src._file, 1)
	if err != nil {
		_ = src._file.Close()
		return nil, err
	}
	return src, nil
}

// parquetReadable reports whether parquetColToValue can decode cells of
// this type, so unsupported types fail at open instead of mid read.
func parquetReadable(typ common.LType) bool {
	switch typ.Id {
	case common.LTID_BOOLEAN,
		common.LTID_TINYINT, common.LTID_SMALLINT, common.LTID_INTEGER,
		common.LTID_BIGINT, common.LTID_DATE32, common.LTID_DATE64,
		common.LTID_TIMESTAMP_SEC, common.LTID_TIMESTAMP_MS,
		common.LTID_TIMESTAMP, common.LTID_TIMESTAMP_NS,
		common.LTID_FLOAT, common.LTID_DOUBLE,
		common.LTID_VARCHAR, common.LTID_DECIMAL:
		return true
	}
	return false
}

func (src *ParquetSource) NumRows() int64 {
	return src._reader.GetNumRows()
}

func (src *ParquetSource) Types() []common.LType {
	return src._types
}

// Read fills output with up to maxCnt rows. A zero card output means the
// file is exhausted.
func (src *ParquetSource) Read(output *chunk.Chunk, maxCnt int) error {
	output.Reset()
	if src._done {
		output.SetCard(0)
		return nil
	}
	rowCont := -1
	for j, idx := range src._cols {
		values, _, _, err := src._reader.ReadColumnByIndex(int64(idx), int64(maxCnt))
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if rowCont < 0 {
			rowCont = len(values)
		} else if len(values) != rowCont {
			return fmt.Errorf("column %d has %d values, previous columns had %d", idx, len(values), rowCont)
		}
		vec := output.Data[j]
		for i := 0; i < len(values); i++ {
			val, err := parquetColToValue(values[i], vec.Typ())
			if err != nil {
				return err
			}
			vec.SetValue(i, val)
		}
	}
	if rowCont <= 0 {
		src._done = true
		output.SetCard(0)
		return nil
	}
	output.SetCard(rowCont)
	return nil
}

func (src *ParquetSource) Close() error {
	src._reader.ReadStop()
	return src._file.Close()
}

// parquetColToValue turns one parquet cell into a value of the target
// type. A nil cell is a null. Decimals arrive as their unscaled integer,
// either in an int32 or int64 physical column or as a big endian two's
// complement byte array.
func parquetColToValue(field any, lTyp common.LType) (*chunk.Value, error) {
	val := &chunk.Value{
		Typ: lTyp,
	}
	if field == nil {
		val.IsNull = true
		return val, nil
	}
	switch lTyp.Id {
	case common.LTID_BOOLEAN:
		v, ok := field.(bool)
		if !ok {
			return nil, fmt.Errorf("parquet cell %T for %s", field, lTyp.String())
		}
		val.Bool = v
	case common.LTID_TINYINT, common.LTID_SMALLINT, common.LTID_INTEGER, common.LTID_DATE32:
		switch v := field.(type) {
		case int32:
			val.I64 = int64(v)
		case int64:
			val.I64 = v
		default:
			return nil, fmt.Errorf("parquet cell %T for %s", field, lTyp.String())
		}
	case common.LTID_BIGINT, common.LTID_DATE64,
		common.LTID_TIMESTAMP_SEC, common.LTID_TIMESTAMP_MS,
		common.LTID_TIMESTAMP, common.LTID_TIMESTAMP_NS:
		switch v := field.(type) {
		case int32:
			val.I64 = int64(v)
		case int64:
			val.I64 = v
		default:
			return nil, fmt.Errorf("parquet cell %T for %s", field, lTyp.String())
		}
	case common.LTID_FLOAT, common.LTID_DOUBLE:
		switch v := field.(type) {
		case float32:
			val.F64 = float64(v)
		case float64:
			val.F64 = v
		default:
			return nil, fmt.Errorf("parquet cell %T for %s", field, lTyp.String())
		}
	case common.LTID_VARCHAR:
		v, ok := field.(string)
		if !ok {
			return nil, fmt.Errorf("parquet cell %T for %s", field, lTyp.String())
		}
		val.Str = v
	case common.LTID_DECIMAL:
		var huge common.Hugeint
		switch v := field.(type) {
		case int32:
			huge = common.HugeintFromInt64(int64(v))
		case int64:
			huge = common.HugeintFromInt64(v)
		case string:
			var err error
			huge, err = decimalBytesToHugeint([]byte(v))
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("parquet cell %T for %s", field, lTyp.String())
		}
		val.I64 = huge.Upper
		val.I64_1 = int64(huge.Lower)
	default:
		return nil, fmt.Errorf("%w: parquet read into %s", ErrUnsupportedType, lTyp.String())
	}
	return val, nil
}

func decimalBytesToHugeint(raw []byte) (common.Hugeint, error) {
	b := new(big.Int).SetBytes(raw)
	if len(raw) > 0 && raw[0]&0x80 != 0 {
		shift := new(big.Int).Lsh(big.NewInt(1), uint(len(raw)*8))
		b.Sub(b, shift)
	}
	huge, ok := common.HugeintFromBig(b)
	if !ok {
		return common.Hugeint{}, fmt.Errorf("decimal bytes outside the 128 bit range")
	}
	return huge, nil
}
