package common

import (
	"fmt"
	"math"
	"math/big"
)

type Hugeint struct {
	Lower uint64
	Upper int64
}

func (h Hugeint) String() string {
	return fmt.Sprintf("[%d %d]", h.Upper, h.Lower)
}

func (h *Hugeint) Equal(o *Hugeint) bool {
	return h.Lower == o.Lower && h.Upper == o.Upper
}

// Cmp orders by two's complement value: upper words as signed,
// lower words as unsigned.
func (h *Hugeint) Cmp(o *Hugeint) int {
	if h.Upper != o.Upper {
		if h.Upper < o.Upper {
			return -1
		}
		return 1
	}
	if h.Lower != o.Lower {
		if h.Lower < o.Lower {
			return -1
		}
		return 1
	}
	return 0
}

func (h *Hugeint) Less(o *Hugeint) bool {
	return h.Cmp(o) < 0
}

func (h *Hugeint) Greater(o *Hugeint) bool {
	return h.Cmp(o) > 0
}

func HugeintFromInt64(v int64) Hugeint {
	return Hugeint{
		Lower: uint64(v),
		Upper: v >> 63,
	}
}

// TryToInt64 reports whether the value fits in an int64.
func (h *Hugeint) TryToInt64() (int64, bool) {
	if h.Upper == int64(h.Lower)>>63 {
		return int64(h.Lower), true
	}
	return 0, false
}

// ToInt64 truncates to the low 64 bits.
func (h *Hugeint) ToInt64() int64 {
	return int64(h.Lower)
}

func NegateHugeint(input *Hugeint, result *Hugeint) {
	if input.Upper == math.MinInt64 && input.Lower == 0 {
		panic("-hugeint overflow")
	}
	result.Lower = math.MaxUint64 - input.Lower + 1
	if input.Lower == 0 {
		result.Upper = -1 - input.Upper + 1
	} else {
		result.Upper = -1 - input.Upper
	}
}

// AddInplace
// return
//
//	false : overflow
func AddInplace(lhs, rhs *Hugeint) bool {
	ladd := lhs.Lower + rhs.Lower
	overflow := int64(0)
	if ladd < lhs.Lower {
		overflow = 1
	}
	if rhs.Upper >= 0 {
		//rhs is positive
		if lhs.Upper > (math.MaxInt64 - rhs.Upper - overflow) {
			return false
		}
		lhs.Upper = lhs.Upper + overflow + rhs.Upper
	} else {
		//rhs is negative
		if lhs.Upper < (math.MinInt64 - rhs.Upper - overflow) {
			return false
		}
		lhs.Upper = lhs.Upper + (overflow + rhs.Upper)
	}
	lhs.Lower += rhs.Lower
	if lhs.Upper == math.MinInt64 && lhs.Lower == 0 {
		return false
	}
	return true
}

func (h *Hugeint) Add(lhs, rhs *Hugeint) {
	if !AddInplace(lhs, rhs) {
		panic("hugeint add overflow")
	}
}

var (
	hugeintMin = func() *big.Int {
		v := big.NewInt(1)
		v.Lsh(v, 127)
		return v.Neg(v)
	}()
	hugeintMax = func() *big.Int {
		v := big.NewInt(1)
		v.Lsh(v, 127)
		return v.Sub(v, big.NewInt(1))
	}()
	hugeintMod = func() *big.Int {
		v := big.NewInt(1)
		return v.Lsh(v, 128)
	}()
)

func (h *Hugeint) ToBig() *big.Int {
	hi := big.NewInt(h.Upper)
	hi.Lsh(hi, 64)
	lo := new(big.Int).SetUint64(h.Lower)
	return hi.Add(hi, lo)
}

// HugeintFromBig
// return
//
//	false : value outside the 128 bit range
func HugeintFromBig(b *big.Int) (Hugeint, bool) {
	if b.Cmp(hugeintMin) < 0 || b.Cmp(hugeintMax) > 0 {
		return Hugeint{}, false
	}
	t := new(big.Int).Mod(b, hugeintMod)
	lo := new(big.Int).And(t, new(big.Int).SetUint64(math.MaxUint64))
	hi := new(big.Int).Rsh(t, 64)
	return Hugeint{
		Lower: lo.Uint64(),
		Upper: int64(hi.Uint64()),
	}, true
}
