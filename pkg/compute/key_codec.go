package compute

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

// Group keys travel as one compact byte string per row. Each column writes
// a null tag byte then, for valid values, a fixed width little endian
// payload. Varchar writes a length prefix and the raw bytes. Equality is
// plain byte equality over the whole string, so two rows agree exactly
// when every column value and null tag agrees.

func encodeKeyRow(buf []byte, data *chunk.Chunk, cols []int, row int) []byte {
	for _, col := range cols {
		buf = encodeKeyCol(buf, data.Data[col], row)
	}
	return buf
}

func encodeKeyCol(buf []byte, vec *chunk.Vector, row int) []byte {
	idx := row
	valid := true
	if vec.PhyFormat().IsConst() {
		idx = 0
		valid = !chunk.IsNullInPhyFormatConst(vec)
	} else {
		valid = chunk.GetMaskInPhyFormatFlat(vec).RowIsValid(uint64(row))
	}
	if !valid {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	switch vec.Typ().GetInternalType() {
	case common.BOOL:
		val := chunk.GetSliceInPhyFormatFlat[bool](vec)[idx]
		if val {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case common.INT8:
		buf = append(buf, byte(chunk.GetSliceInPhyFormatFlat[int8](vec)[idx]))
	case common.UINT8:
		buf = append(buf, chunk.GetSliceInPhyFormatFlat[uint8](vec)[idx])
	case common.INT16:
		buf = binary.LittleEndian.AppendUint16(buf, uint16(chunk.GetSliceInPhyFormatFlat[int16](vec)[idx]))
	case common.UINT16:
		buf = binary.LittleEndian.AppendUint16(buf, chunk.GetSliceInPhyFormatFlat[uint16](vec)[idx])
	case common.INT32:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(chunk.GetSliceInPhyFormatFlat[int32](vec)[idx]))
	case common.UINT32:
		buf = binary.LittleEndian.AppendUint32(buf, chunk.GetSliceInPhyFormatFlat[uint32](vec)[idx])
	case common.INT64:
		buf = binary.LittleEndian.AppendUint64(buf, uint64(chunk.GetSliceInPhyFormatFlat[int64](vec)[idx]))
	case common.UINT64:
		buf = binary.LittleEndian.AppendUint64(buf, chunk.GetSliceInPhyFormatFlat[uint64](vec)[idx])
	case common.FLOAT:
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(chunk.GetSliceInPhyFormatFlat[float32](vec)[idx]))
	case common.DOUBLE:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(chunk.GetSliceInPhyFormatFlat[float64](vec)[idx]))
	case common.INT128:
		val := chunk.GetSliceInPhyFormatFlat[common.Hugeint](vec)[idx]
		buf = binary.LittleEndian.AppendUint64(buf, val.Lower)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(val.Upper))
	case common.VARCHAR:
		val := chunk.GetSliceInPhyFormatFlat[common.String](vec)[idx]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(val.Length()))
		buf = append(buf, val.DataSlice()...)
	default:
		panic(fmt.Sprintf("usp %v", vec.Typ().GetInternalType()))
	}
	return buf
}

// decodeKeyRow writes the key columns back into flat output vectors at the
// given row. The inverse of encodeKeyRow.
func decodeKeyRow(key []byte, out []*chunk.Vector, row int) {
	pos := 0
	for _, vec := range out {
		tag := key[pos]
		pos++
		if tag == 0 {
			chunk.SetNullInPhyFormatFlat(vec, uint64(row), true)
			continue
		}
		switch vec.Typ().GetInternalType() {
		case common.BOOL:
			chunk.GetSliceInPhyFormatFlat[bool](vec)[row] = key[pos] != 0
			pos++
		case common.INT8:
			chunk.GetSliceInPhyFormatFlat[int8](vec)[row] = int8(key[pos])
			pos++
		case common.UINT8:
			chunk.GetSliceInPhyFormatFlat[uint8](vec)[row] = key[pos]
			pos++
		case common.INT16:
			chunk.GetSliceInPhyFormatFlat[int16](vec)[row] = int16(binary.LittleEndian.Uint16(key[pos:]))
			pos += 2
		case common.UINT16:
			chunk.GetSliceInPhyFormatFlat[uint16](vec)[row] = binary.LittleEndian.Uint16(key[pos:])
			pos += 2
		case common.INT32:
			chunk.GetSliceInPhyFormatFlat[int32](vec)[row] = int32(binary.LittleEndian.Uint32(key[pos:]))
			pos += 4
		case common.UINT32:
			chunk.GetSliceInPhyFormatFlat[uint32](vec)[row] = binary.LittleEndian.Uint32(key[pos:])
			pos += 4
		case common.INT64:
			chunk.GetSliceInPhyFormatFlat[int64](vec)[row] = int64(binary.LittleEndian.Uint64(key[pos:]))
			pos += 8
		case common.UINT64:
			chunk.GetSliceInPhyFormatFlat[uint64](vec)[row] = binary.LittleEndian.Uint64(key[pos:])
			pos += 8
		case common.FLOAT:
			chunk.GetSliceInPhyFormatFlat[float32](vec)[row] = math.Float32frombits(binary.LittleEndian.Uint32(key[pos:]))
			pos += 4
		case common.DOUBLE:
			chunk.GetSliceInPhyFormatFlat[float64](vec)[row] = math.Float64frombits(binary.LittleEndian.Uint64(key[pos:]))
			pos += 8
		case common.INT128:
			lower := binary.LittleEndian.Uint64(key[pos:])
			upper := int64(binary.LittleEndian.Uint64(key[pos+8:]))
			chunk.GetSliceInPhyFormatFlat[common.Hugeint](vec)[row] = common.Hugeint{Lower: lower, Upper: upper}
			pos += 16
		case common.VARCHAR:
			ln := int(binary.LittleEndian.Uint32(key[pos:]))
			pos += 4
			chunk.GetSliceInPhyFormatFlat[common.String](vec)[row] = common.NewString(string(key[pos : pos+ln]))
			pos += ln
		default:
			panic(fmt.Sprintf("usp %v", vec.Typ().GetInternalType()))
		}
	}
}
