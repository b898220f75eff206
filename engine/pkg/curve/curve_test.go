package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		WeightA:         80,
		WeightB:         50,
		WeightC:         2,
		InitialPrice:    1,
		SellDiscountPct: 10,
	}
}

func TestGatehouse_Curve_InitialPriceAtZeroSupply(t *testing.T) {
	t.Parallel()

	p := testParams()

	unit, err := Price(p, 0, Buy)
	require.NoError(t, err)
	require.Equal(t, uint64(1), unit)
}

func TestGatehouse_Curve_ScenarioBuyTenAtZeroSupply(t *testing.T) {
	t.Parallel()

	// weightA=80 weightB=50 weightC=2 initial=1:
	// unit = 1*(100 + (80*0^2)/50)/100 = 1, cost = 10.
	p := testParams()

	unit, gross, err := Cost(p, 0, 10, Buy)
	require.NoError(t, err)
	require.Equal(t, uint64(1), unit)
	require.Equal(t, uint64(10), gross)
}

func TestGatehouse_Curve_TruncatingDivision(t *testing.T) {
	t.Parallel()

	p := Params{WeightA: 80, WeightB: 50, WeightC: 2, InitialPrice: 100, SellDiscountPct: 10}

	// supply=3: factor=9, weighted=80*9/50=14 (truncated from 14.4),
	// unit = 100*(100+14)/100 = 114.
	unit, err := Price(p, 3, Buy)
	require.NoError(t, err)
	require.Equal(t, uint64(114), unit)

	// sell at the same point: 114*90/100 = 102 (truncated from 102.6).
	unit, err = Price(p, 3, Sell)
	require.NoError(t, err)
	require.Equal(t, uint64(102), unit)
}

func TestGatehouse_Curve_MonotonicBuyPricing(t *testing.T) {
	t.Parallel()

	p := testParams()

	prev := uint64(0)
	for supply := uint64(0); supply <= 2000; supply++ {
		unit, err := Price(p, supply, Buy)
		require.NoError(t, err)
		require.GreaterOrEqual(t, unit, prev, "price regressed at supply %d", supply)
		prev = unit
	}
}

func TestGatehouse_Curve_SellDiscountStrictAtEverySupply(t *testing.T) {
	t.Parallel()

	p := testParams()

	for supply := uint64(0); supply <= 2000; supply++ {
		buy, err := Price(p, supply, Buy)
		require.NoError(t, err)
		sell, err := Price(p, supply, Sell)
		require.NoError(t, err)
		require.Less(t, sell, buy, "sell not discounted at supply %d", supply)
	}
}

func TestGatehouse_Curve_OverflowChecked(t *testing.T) {
	t.Parallel()

	p := testParams()

	_, err := Price(p, math.MaxUint64, Buy)
	require.ErrorIs(t, err, ErrOverflow)

	// Unit price is 1 at supply 1, so the product fits uint64 but not the
	// BIGINT range the ledger stores.
	_, _, err = Cost(p, 1, math.MaxUint64, Buy)
	require.ErrorIs(t, err, ErrOverflow)

	_, _, err = Cost(p, 1, uint64(math.MaxInt64)+1, Buy)
	require.ErrorIs(t, err, ErrOverflow)

	unit, gross, err := Cost(p, 1, math.MaxInt64, Buy)
	require.NoError(t, err)
	require.Equal(t, uint64(1), unit)
	require.Equal(t, uint64(math.MaxInt64), gross)
}

func TestGatehouse_Curve_ParamsValidate(t *testing.T) {
	t.Parallel()

	p := testParams()
	require.NoError(t, p.Validate())

	zeroB := p
	zeroB.WeightB = 0
	require.Error(t, zeroB.Validate())

	zeroPrice := p
	zeroPrice.InitialPrice = 0
	require.Error(t, zeroPrice.Validate())

	fullDiscount := p
	fullDiscount.SellDiscountPct = 100
	require.Error(t, fullDiscount.Validate())
}
