package compute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_AggBufAddrPacking(t *testing.T) {
	addr := FixedAddr(3, 40)
	require.False(t, addr.IsDyn())
	require.Equal(t, 3, addr.ValidBit())
	require.Equal(t, 40, addr.Offset())

	dyn := DynAddr(2)
	require.True(t, dyn.IsDyn())
	require.Equal(t, 2, dyn.DynSlot())

	require.NotEmpty(t, addr.String())
	require.NotEmpty(t, dyn.String())
}

func Test_AggBufFixedValidity(t *testing.T) {
	//one bitmap byte then two accumulators
	buf := NewAggBuf(1+8+4, 0)
	a := FixedAddr(0, 1)
	b := FixedAddr(1, 9)

	require.False(t, buf.IsValid(a))
	require.False(t, buf.IsValid(b))

	//a raw payload write keeps the slot invalid
	SetFixedValue(buf, a, int64(77))
	require.False(t, buf.IsValid(a))

	UpdateFixedValue(buf, a, int64(42))
	require.True(t, buf.IsValid(a))
	require.False(t, buf.IsValid(b))
	require.Equal(t, int64(42), FixedValue[int64](buf, a))

	UpdateFixedValue(buf, b, int32(-5))
	require.True(t, buf.IsValid(b))
	require.Equal(t, int32(-5), FixedValue[int32](buf, b))
	require.Equal(t, int64(42), FixedValue[int64](buf, a))
}

func Test_AggBufDynSlots(t *testing.T) {
	buf := NewAggBuf(0, 2)
	a := DynAddr(0)
	b := DynAddr(1)

	require.False(t, buf.IsValid(a))
	require.Nil(t, buf.DynValue(a))

	buf.SetDynValue(a, []byte("abc"))
	require.True(t, buf.IsValid(a))
	require.Equal(t, []byte("abc"), buf.DynValue(a))
	require.False(t, buf.IsValid(b))

	//an empty write still marks the slot valid
	buf.SetDynValue(b, nil)
	require.True(t, buf.IsValid(b))
	require.Len(t, buf.DynValue(b), 0)

	//shrinking reuses the slot
	buf.SetDynValue(a, []byte("z"))
	require.Equal(t, []byte("z"), buf.DynValue(a))
	buf.SetDynValue(a, []byte("longer than before"))
	require.Equal(t, []byte("longer than before"), buf.DynValue(a))
}

func Test_AggBufClone(t *testing.T) {
	buf := NewAggBuf(1+8, 1)
	fixed := FixedAddr(0, 1)
	dyn := DynAddr(0)
	UpdateFixedValue(buf, fixed, int64(10))
	buf.SetDynValue(dyn, []byte("left"))

	cl := buf.Clone()
	require.True(t, cl.IsValid(fixed))
	require.Equal(t, int64(10), FixedValue[int64](cl, fixed))
	require.Equal(t, []byte("left"), cl.DynValue(dyn))

	//clones do not share storage
	UpdateFixedValue(buf, fixed, int64(99))
	buf.SetDynValue(dyn, []byte("gone"))
	require.Equal(t, int64(10), FixedValue[int64](cl, fixed))
	require.Equal(t, []byte("left"), cl.DynValue(dyn))

	require.Positive(t, buf.MemSize())
}
