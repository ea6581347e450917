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
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseDecimal(t *testing.T) {
	cases := []struct {
		in    string
		scale int
		want  int64
	}{
		{"1.23", 2, 123},
		{"-5.00", 2, -500},
		{"99.95", 2, 9995},
		{"0", 0, 0},
		{"7", 3, 7000},
		{"0.05", 2, 5},
		{"-0.5", 1, -5},
		{"123", 0, 123},
	}
	for _, c := range cases {
		h, err := ParseDecimal(c.in, c.scale)
		require.NoError(t, err, c.in)
		assert.Equal(t, HugeintFromInt64(c.want), h, c.in)
	}
}

func Test_ParseDecimalWideLower(t *testing.T) {
	//the unscaled value exceeds int64 but still fits one uint64 word
	h, err := ParseDecimal("1.5", 19)
	require.NoError(t, err)
	assert.Equal(t, Hugeint{Lower: 15000000000000000000, Upper: 0}, h)

	h, err = ParseDecimal("-1.5", 19)
	require.NoError(t, err)
	want := new(big.Int).Neg(scaledBig(15, 18))
	assert.Equal(t, 0, h.ToBig().Cmp(want))
}

func Test_ParseDecimalBigPath(t *testing.T) {
	h, err := ParseDecimal("1.5", 20)
	require.NoError(t, err)
	assert.Equal(t, 0, h.ToBig().Cmp(scaledBig(15, 19)))

	h, err = ParseDecimal("12345678901234567890123.45", 2)
	require.NoError(t, err)
	want, ok := new(big.Int).SetString("1234567890123456789012345", 10)
	require.True(t, ok)
	assert.Equal(t, 0, h.ToBig().Cmp(want))
}

func scaledBig(v int64, zeros int) *big.Int {
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(zeros)), nil)
	return pow.Mul(pow, big.NewInt(v))
}

func Test_ParseDecimalReject(t *testing.T) {
	_, err := ParseDecimal("1.234", 2)
	assert.Error(t, err)

	_, err = ParseDecimal("abc", 2)
	assert.Error(t, err)

	//40 digits overflow the 128 bit unscaled range
	_, err = ParseDecimal("9999999999999999999999999999999999999999", 0)
	assert.Error(t, err)
}

func Test_RenderDecimal(t *testing.T) {
	cases := []struct {
		unscaled int64
		scale    int
		want     string
	}{
		{123, 2, "1.23"},
		{-500, 2, "-5.00"},
		{7000, 3, "7.000"},
		{5, 2, "0.05"},
		{42, 0, "42"},
		{0, 2, "0.00"},
	}
	for _, c := range cases {
		got := RenderDecimal(HugeintFromInt64(c.unscaled), c.scale)
		assert.Equal(t, c.want, got)
	}
}

func Test_RenderDecimalBigPath(t *testing.T) {
	h, err := ParseDecimal("1.5", 20)
	require.NoError(t, err)
	assert.Equal(t, "1.50000000000000000000", RenderDecimal(h, 20))

	h, err = ParseDecimal("-1.5", 20)
	require.NoError(t, err)
	assert.Equal(t, "-1.50000000000000000000", RenderDecimal(h, 20))

	h, err = ParseDecimal("12345678901234567890123.45", 2)
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890123.45", RenderDecimal(h, 2))
}

func Test_DecimalRoundTrip(t *testing.T) {
	for _, c := range []struct {
		in    string
		scale int
	}{
		{"0.00", 2},
		{"-12.34", 2},
		{"1000.1", 1},
		{"99999999999999999999.999", 3},
	} {
		h, err := ParseDecimal(c.in, c.scale)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.in, RenderDecimal(h, c.scale), c.in)
	}
}
