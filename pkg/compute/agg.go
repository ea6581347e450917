package compute

import (
	"errors"
	"fmt"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
)

// ErrUnsupportedType reports an aggregate or scalar function asked for over
// a physical type it has no kernel for. It only surfaces at construction.
// The update, merge and finalize paths never fail.
var ErrUnsupportedType = errors.New("unsupported physical type")

const (
	AggMax   = "max"
	AggMin   = "min"
	AggSum   = "sum"
	AggCount = "count"
)

type aggRowFunc func(buf *AggBuf, addr AggBufAddr, input *chunk.Vector, row int)
type aggBatchFunc func(bufs []*AggBuf, addr AggBufAddr, input *chunk.Vector, count int)
type aggMergeFunc func(dst, src *AggBuf, addr AggBufAddr)
type aggFinalFunc func(buf *AggBuf, addr AggBufAddr, result *chunk.Vector, idx int)

// AggFuncs is the kernel set of one aggregate over one input type. All four
// are bound once when the aggregate is created.
type AggFuncs struct {
	_row   aggRowFunc
	_batch aggBatchFunc
	_merge aggMergeFunc
	_final aggFinalFunc
}

// AggObject is a resolved aggregate. It owns a copy of its child expression
// and the accumulator descriptors the layout packs.
type AggObject struct {
	_name    string
	_child   *Expr
	_retType common.LType
	_accums  []AccumInitial
	_funcs   *AggFuncs
}

func CreateAgg(name string, child *Expr) (*AggObject, error) {
	var funcs *AggFuncs
	var accums []AccumInitial
	var retType common.LType
	var err error
	switch name {
	case AggMax:
		funcs, accums, retType, err = bindMinMax(child.DataTyp, true)
	case AggMin:
		funcs, accums, retType, err = bindMinMax(child.DataTyp, false)
	case AggSum:
		funcs, accums, retType, err = bindSum(child.DataTyp)
	case AggCount:
		funcs, accums, retType, err = bindCount(child.DataTyp)
	default:
		return nil, fmt.Errorf("%w: no aggregate %q", ErrUnsupportedType, name)
	}
	if err != nil {
		return nil, err
	}
	return &AggObject{
		_name:    name,
		_child:   child.copy(),
		_retType: retType,
		_accums:  accums,
		_funcs:   funcs,
	}, nil
}

func (agg *AggObject) Name() string {
	return agg._name
}

func (agg *AggObject) Child() *Expr {
	return agg._child
}

func (agg *AggObject) RetType() common.LType {
	return agg._retType
}

func (agg *AggObject) AccumsInitial() []AccumInitial {
	return agg._accums
}

func (agg *AggObject) UpdateRow(buf *AggBuf, addrs []AggBufAddr, input *chunk.Vector, row int) {
	agg._funcs._row(buf, addrs[0], input, row)
}

func (agg *AggObject) UpdateBatch(bufs []*AggBuf, addrs []AggBufAddr, input *chunk.Vector, count int) {
	agg._funcs._batch(bufs, addrs[0], input, count)
}

func (agg *AggObject) Merge(dst, src *AggBuf, addrs []AggBufAddr) {
	agg._funcs._merge(dst, src, addrs[0])
}

func (agg *AggObject) Finalize(buf *AggBuf, addrs []AggBufAddr, result *chunk.Vector, idx int) {
	agg._funcs._final(buf, addrs[0], result, idx)
}

type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// rowValue pulls one cell out of a flat or constant vector.
func rowValue[T any](input *chunk.Vector, row int) (T, bool) {
	var val T
	if input.PhyFormat().IsConst() {
		if chunk.IsNullInPhyFormatConst(input) {
			return val, false
		}
		return chunk.GetSliceInPhyFormatConst[T](input)[0], true
	}
	mask := chunk.GetMaskInPhyFormatFlat(input)
	if !mask.RowIsValid(uint64(row)) {
		return val, false
	}
	return chunk.GetSliceInPhyFormatFlat[T](input)[row], true
}

func rowIsValid(input *chunk.Vector, row int) bool {
	if input.PhyFormat().IsConst() {
		return !chunk.IsNullInPhyFormatConst(input)
	}
	return chunk.GetMaskInPhyFormatFlat(input).RowIsValid(uint64(row))
}

func finalizeFixed[T any](buf *AggBuf, addr AggBufAddr, result *chunk.Vector, idx int) {
	if !buf.IsValid(addr) {
		chunk.SetNullInPhyFormatFlat(result, uint64(idx), true)
		return
	}
	chunk.GetSliceInPhyFormatFlat[T](result)[idx] = FixedValue[T](buf, addr)
}

func knownPhyType(pt common.PhyType) bool {
	switch pt {
	case common.BOOL,
		common.INT8, common.INT16, common.INT32, common.INT64,
		common.UINT8, common.UINT16, common.UINT32, common.UINT64,
		common.FLOAT, common.DOUBLE,
		common.INT128, common.VARCHAR:
		return true
	}
	return false
}
