package chunk

import (
	"fmt"
	"time"

	"github.com/vecflow/colagg/pkg/common"
)

type Value struct {
	Typ    common.LType
	IsNull bool
	//value
	Bool  bool
	I64   int64
	I64_1 int64
	I64_2 int64
	U64   uint64
	F64   float64
	Str   string
}

func (val Value) String() string {
	if val.IsNull {
		return "NULL"
	}
	switch val.Typ.Id {
	case common.LTID_BOOLEAN:
		return fmt.Sprintf("%v", val.Bool)
	case common.LTID_TINYINT, common.LTID_SMALLINT,
		common.LTID_INTEGER, common.LTID_BIGINT:
		return fmt.Sprintf("%d", val.I64)
	case common.LTID_UTINYINT, common.LTID_USMALLINT,
		common.LTID_UINTEGER, common.LTID_UBIGINT:
		return fmt.Sprintf("%d", val.U64)
	case common.LTID_FLOAT, common.LTID_DOUBLE:
		return fmt.Sprintf("%v", val.F64)
	case common.LTID_DECIMAL:
		return common.RenderDecimal(val.GetHugeint(), val.Typ.Scale)
	case common.LTID_DATE32:
		dat := time.Unix(val.I64*86400, 0).UTC()
		return dat.Format(time.DateOnly)
	case common.LTID_DATE64:
		dat := time.UnixMilli(val.I64).UTC()
		return dat.Format(time.DateTime)
	case common.LTID_TIMESTAMP_SEC, common.LTID_TIMESTAMP_MS,
		common.LTID_TIMESTAMP, common.LTID_TIMESTAMP_NS:
		return fmt.Sprintf("%d", val.I64)
	case common.LTID_VARCHAR:
		return val.Str
	default:
		panic("usp")
	}
}

// GetHugeint reassembles the 128 bit payload carried in I64 and I64_1.
func (val Value) GetHugeint() common.Hugeint {
	return common.Hugeint{
		Lower: uint64(val.I64_1),
		Upper: val.I64,
	}
}

func NewDecimalValue(s string, typ common.LType) (*Value, error) {
	h, err := common.ParseDecimal(s, typ.Scale)
	if err != nil {
		return nil, err
	}
	return &Value{
		Typ:   typ,
		I64:   h.Upper,
		I64_1: int64(h.Lower),
	}, nil
}
