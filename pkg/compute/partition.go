package compute

import (
	"github.com/dchest/siphash"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/util"
)

// ChunkPartitioner routes rows to partitions by a keyed hash of the group
// columns. Rows of one group always land in the same partition, so each
// partition can aggregate on its own and the merge step sees every group
// in exactly one table.
type ChunkPartitioner struct {
	_parts   int
	_keyCols []int
	_k0      uint64
	_k1      uint64
	_scratch []byte
	_sels    []*chunk.SelectVector
	_counts  []int
}

func NewChunkPartitioner(parts int, keyCols []int, seed uint64) *ChunkPartitioner {
	util.AssertFunc(parts > 0)
	part := &ChunkPartitioner{
		_parts:   parts,
		_keyCols: keyCols,
		_k0:      seed,
		_k1:      seed ^ 0x9e3779b97f4a7c15,
	}
	part._sels = make([]*chunk.SelectVector, parts)
	for i := range part._sels {
		part._sels[i] = chunk.NewSelectVector(util.DefaultVectorSize)
	}
	part._counts = make([]int, parts)
	return part
}

// Partition fills one selection vector per partition with the row indexes
// that belong to it. The returned slices are owned by the partitioner and
// stay valid until the next call.
func (part *ChunkPartitioner) Partition(data *chunk.Chunk) ([]*chunk.SelectVector, []int) {
	util.Fill(part._counts, part._parts, 0)
	cnt := data.Card()
	for row := 0; row < cnt; row++ {
		part._scratch = encodeKeyRow(part._scratch[:0], data, part._keyCols, row)
		h := siphash.Hash(part._k0, part._k1, part._scratch)
		p := int(h % uint64(part._parts))
		part._sels[p].SetIndex(part._counts[p], row)
		part._counts[p]++
	}
	return part._sels, part._counts
}
