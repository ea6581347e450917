package compute

import (
	"fmt"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

// bindCount resolves the count kernels. Count only reads validity, so one
// kernel set serves every input type. The accumulator starts at zero and
// valid, which makes an all null group count to zero instead of null.
func bindCount(typ common.LType) (*AggFuncs, []AccumInitial, common.LType, error) {
	if !knownPhyType(typ.GetInternalType()) {
		return nil, nil, common.LType{}, fmt.Errorf("%w: count over %s", ErrUnsupportedType, typ.String())
	}
	retType := common.BigintType()
	accums := []AccumInitial{{
		Typ:  retType,
		Init: &chunk.Value{Typ: retType, I64: 0},
	}}
	bump := func(buf *AggBuf, addr AggBufAddr, delta int64) {
		SetFixedValue(buf, addr, FixedValue[int64](buf, addr)+delta)
	}
	funcs := &AggFuncs{
		_row: func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int) {
			if rowIsValid(input, row) {
				bump(buf, addr, 1)
			}
		},
		_batch: func(bufs []*AggBuf, addr AggBufAddr, input *chunk.Vector, count int) {
			if input.PhyFormat().IsConst() {
				if chunk.IsNullInPhyFormatConst(input) {
					return
				}
				for i := 0; i < count; i++ {
					bump(bufs[i], addr, 1)
				}
				return
			}
			mask := chunk.GetMaskInPhyFormatFlat(input)
			if mask.AllValid() {
				for i := 0; i < count; i++ {
					bump(bufs[i], addr, 1)
				}
				return
			}
			for i := 0; i < count; i++ {
				if mask.RowIsValid(uint64(i)) {
					bump(bufs[i], addr, 1)
				}
			}
		},
		_merge: func(dst, src *AggBuf, addr AggBufAddr) {
			bump(dst, addr, FixedValue[int64](src, addr))
		},
		_final: finalizeFixed[int64],
	}
	return funcs, accums, retType, nil
}
