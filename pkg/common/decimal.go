// Copyright 2024-2025 The ColAgg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"fmt"
	"math/big"
	"strings"

	decimal2 "github.com/govalues/decimal"
)

// Decimal columns are stored as 128 bit unscaled integers. The column's
// LType carries width and scale. The helpers here bridge between the
// unscaled form and the decimal string form.

const govaluesMaxScale = 19

// ParseDecimal converts a decimal literal into its unscaled 128 bit form
// at the given scale.
func ParseDecimal(s string, scale int) (Hugeint, error) {
	if scale >= 0 && scale <= govaluesMaxScale {
		d, err := decimal2.ParseExact(s, scale)
		if err == nil && d.Scale() == scale {
			ret := Hugeint{Lower: d.Coef()}
			if d.IsNeg() {
				neg := Hugeint{}
				NegateHugeint(&ret, &neg)
				ret = neg
			}
			return ret, nil
		}
	}
	return parseDecimalBig(s, scale)
}

func parseDecimalBig(s string, scale int) (Hugeint, error) {
	t := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(t, "-") {
		neg = true
		t = t[1:]
	} else if strings.HasPrefix(t, "+") {
		t = t[1:]
	}
	intPart := t
	fracPart := ""
	if dot := strings.IndexByte(t, '.'); dot >= 0 {
		intPart = t[:dot]
		fracPart = t[dot+1:]
	}
	if len(fracPart) > scale {
		return Hugeint{}, fmt.Errorf("decimal %s does not fit scale %d", s, scale)
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}
	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Hugeint{}, fmt.Errorf("invalid decimal %s", s)
	}
	if neg {
		b.Neg(b)
	}
	h, ok := HugeintFromBig(b)
	if !ok {
		return Hugeint{}, fmt.Errorf("decimal %s overflows 128 bits", s)
	}
	return h, nil
}

// RenderDecimal formats an unscaled 128 bit value at the given scale.
func RenderDecimal(h Hugeint, scale int) string {
	if v, ok := h.TryToInt64(); ok &&
		scale >= 0 && scale <= govaluesMaxScale {
		d, err := decimal2.New(v, scale)
		if err == nil {
			return d.String()
		}
	}
	return renderDecimalBig(h, scale)
}

func renderDecimalBig(h Hugeint, scale int) string {
	b := h.ToBig()
	neg := b.Sign() < 0
	if neg {
		b.Neg(b)
	}
	digits := b.String()
	if scale <= 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	for len(digits) <= scale {
		digits = "0" + digits
	}
	cut := len(digits) - scale
	out := digits[:cut] + "." + digits[cut:]
	if neg {
		return "-" + out
	}
	return out
}
