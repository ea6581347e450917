package compute

import (
	"context"
	"fmt"

	"github.com/xlab/treeprint"
	"golang.org/x/sync/errgroup"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/util"
)

// AggDef names one aggregate over one input column.
type AggDef struct {
	Fun string
	Col int
}

// AggPlan binds a grouped aggregation over a fixed input schema. Every
// type decision happens here. Tables and drivers built from one plan
// share the resolved aggregates.
type AggPlan struct {
	_inputTypes []common.LType
	_groupCols  []int
	_aggs       []*AggObject
	_parts      int
	_seed       uint64
}

func NewAggPlan(
	inputTypes []common.LType,
	groupCols []int,
	aggDefs []AggDef,
	parts int,
	seed uint64,
) (*AggPlan, error) {
	if parts <= 0 {
		parts = 1
	}
	aggs := make([]*AggObject, 0, len(aggDefs))
	for _, def := range aggDefs {
		col := def.Col
		child := NewColumnExpr(ColumnBind{0, uint64(col)}, inputTypes[col], fmt.Sprintf("col%d", col))
		agg, err := CreateAgg(def.Fun, child)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return &AggPlan{
		_inputTypes: common.CopyLTypes(inputTypes...),
		_groupCols:  groupCols,
		_aggs:       aggs,
		_parts:      parts,
		_seed:       seed,
	}, nil
}

func (plan *AggPlan) Partitions() int {
	return plan._parts
}

func (plan *AggPlan) GroupCols() []int {
	return plan._groupCols
}

// ResultTypes is the result schema: group columns first, then one column
// per aggregate.
func (plan *AggPlan) ResultTypes() []common.LType {
	types := make([]common.LType, 0, len(plan._groupCols)+len(plan._aggs))
	for _, col := range plan._groupCols {
		types = append(types, plan._inputTypes[col])
	}
	for _, agg := range plan._aggs {
		types = append(types, agg.RetType())
	}
	return types
}

func (plan *AggPlan) NewTable() (*GroupedAggTable, error) {
	return NewGroupedAggTable(plan._inputTypes, plan._groupCols, plan._aggs)
}

func (plan *AggPlan) Explain() string {
	tree := treeprint.NewWithRoot("AggPlan")
	tree.AddNode(fmt.Sprintf("partitions: %d", plan._parts))
	sub := tree.AddBranch("group columns")
	for _, col := range plan._groupCols {
		sub.AddNode(fmt.Sprintf("col %d %s", col, plan._inputTypes[col].String()))
	}
	aggBranch := tree.AddBranch("aggregates")
	for _, agg := range plan._aggs {
		aggBranch.AddNode(fmt.Sprintf("%s(%s %s) -> %s",
			agg.Name(), agg.Child().Name, agg.Child().DataTyp.String(), agg.RetType().String()))
	}
	return tree.String()
}

// ParallelAgg fans chunks out to one worker per partition. The partitioner
// keys on the group columns, so each worker sees complete groups and the
// final merge is a disjoint union. Start, Sink, Finish must run on one
// goroutine, in that order.
type ParallelAgg struct {
	_plan     *AggPlan
	_part     *ChunkPartitioner
	_tables   []*GroupedAggTable
	_chans    []chan *chunk.Chunk
	_identSel *chunk.SelectVector
	_ctx      context.Context
	_wg       *errgroup.Group
}

func NewParallelAgg(plan *AggPlan) (*ParallelAgg, error) {
	pa := &ParallelAgg{
		_plan:     plan,
		_part:     NewChunkPartitioner(plan._parts, plan._groupCols, plan._seed),
		_identSel: &chunk.SelectVector{},
	}
	pa._tables = make([]*GroupedAggTable, plan._parts)
	pa._chans = make([]chan *chunk.Chunk, plan._parts)
	for i := 0; i < plan._parts; i++ {
		table, err := plan.NewTable()
		if err != nil {
			return nil, err
		}
		pa._tables[i] = table
		pa._chans[i] = make(chan *chunk.Chunk, 4)
	}
	return pa, nil
}

// Start launches the workers. The group context is derived from ctx, so
// the first worker error cancels it and a blocked send backs out instead
// of waiting on a channel nobody drains.
func (pa *ParallelAgg) Start(ctx context.Context) {
	wg, wctx := errgroup.WithContext(ctx)
	pa._wg = wg
	pa._ctx = wctx
	for i := 0; i < pa._plan._parts; i++ {
		table := pa._tables[i]
		ch := pa._chans[i]
		wg.Go(func() (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = util.ConvertPanicError(r)
				}
			}()
			for {
				select {
				case data, ok := <-ch:
					if !ok {
						return nil
					}
					table.Sink(data)
				case <-wctx.Done():
					return wctx.Err()
				}
			}
		})
	}
}

// Sink routes the rows of data to the workers. Rows are copied out, so the
// caller can reuse the chunk right after the call returns.
func (pa *ParallelAgg) Sink(data *chunk.Chunk) error {
	util.AssertFunc(pa._ctx != nil)
	if pa._plan._parts == 1 {
		return pa.send(0, data, pa._identSel, data.Card())
	}
	sels, counts := pa._part.Partition(data)
	for p := 0; p < pa._plan._parts; p++ {
		if counts[p] == 0 {
			continue
		}
		if err := pa.send(p, data, sels[p], counts[p]); err != nil {
			return err
		}
	}
	return nil
}

func (pa *ParallelAgg) send(p int, data *chunk.Chunk, sel *chunk.SelectVector, cnt int) error {
	sub := &chunk.Chunk{}
	sub.Init(pa._plan._inputTypes, cnt)
	chunk.GatherChunk(sub, data, sel, cnt)
	select {
	case pa._chans[p] <- sub:
		return nil
	case <-pa._ctx.Done():
		return pa._ctx.Err()
	}
}

// Finish closes the feeds, waits out the workers and merges every
// partition table into the first one.
func (pa *ParallelAgg) Finish() (*GroupedAggTable, error) {
	for _, ch := range pa._chans {
		close(ch)
	}
	if err := pa._wg.Wait(); err != nil {
		return nil, err
	}
	ret := pa._tables[0]
	for _, table := range pa._tables[1:] {
		ret.MergeFrom(table)
	}
	return ret, nil
}
