package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(yesSupply, noSupply string) *Pool {
	return &Pool{
		Yes: &OutcomeToken{MarketID: "m1", Outcome: OutcomeYes, Supply: decimal.RequireFromString(yesSupply)},
		No:  &OutcomeToken{MarketID: "m1", Outcome: OutcomeNo, Supply: decimal.RequireFromString(noSupply)},
	}
}

func TestPoolBuy_Bootstrap(t *testing.T) {
	p := newPool("0", "0")

	received, price := p.Buy(OutcomeYes, decimal.NewFromInt(100))

	assert.True(t, received.Equal(decimal.NewFromInt(100)), "received %s", received)
	assert.True(t, price.Equal(decimal.New(5, -1)), "price %s", price)
	assert.True(t, p.Yes.Supply.Equal(decimal.NewFromInt(100)))
	assert.True(t, p.No.Supply.Equal(decimal.NewFromInt(100)))
}

func TestPoolBuy_ConstantProduct(t *testing.T) {
	p := newPool("600", "400")

	received, price := p.Buy(OutcomeYes, decimal.NewFromInt(100))

	// k = 240000, new yes = 700, new no = 240000/700
	assert.True(t, p.Yes.Supply.Equal(decimal.NewFromInt(700)))
	wantNo := decimal.NewFromInt(240000).Div(decimal.NewFromInt(700))
	assert.True(t, p.No.Supply.Equal(wantNo), "no supply %s", p.No.Supply)
	wantReceived := decimal.NewFromInt(400).Sub(wantNo)
	assert.True(t, received.Equal(wantReceived), "received %s", received)

	// price from pre-trade supplies: 600/1000
	assert.True(t, price.Equal(decimal.New(6, -1)), "price %s", price)
}

func TestPoolBuy_PreservesProduct(t *testing.T) {
	p := newPool("600", "400")
	kBefore := p.Yes.Supply.Mul(p.No.Supply)

	p.Buy(OutcomeNo, decimal.NewFromInt(37))

	kAfter := p.Yes.Supply.Mul(p.No.Supply)
	diff := kAfter.Sub(kBefore).Abs()
	assert.True(t, diff.LessThan(decimal.New(1, -10)), "k drifted by %s", diff)
}

func TestPoolSell_ConstantProduct(t *testing.T) {
	p := newPool("700", "342.857142857142857142857143")

	received, price := p.Sell(OutcomeYes, decimal.NewFromInt(100))

	assert.True(t, p.Yes.Supply.Equal(decimal.NewFromInt(600)))
	assert.True(t, received.IsPositive())
	// pre-trade price: 700 / 1042.857...
	assert.True(t, price.GreaterThan(decimal.New(6, -1)))
	assert.True(t, price.LessThan(decimal.NewFromInt(1)))
}

func TestPoolSell_DrainsTarget(t *testing.T) {
	p := newPool("50", "200")

	received, _ := p.Sell(OutcomeYes, decimal.NewFromInt(80))

	// Target clamps at zero and the opposite side is zeroed rather than
	// divided by zero.
	assert.True(t, p.Yes.Supply.IsZero())
	assert.True(t, p.No.Supply.IsZero())
	assert.True(t, received.IsZero(), "received %s", received)
}

func TestPoolReprice_SumsToOne(t *testing.T) {
	cases := []struct{ yes, no string }{
		{"600", "400"},
		{"1", "999"},
		{"123.45", "678.9"},
	}
	for _, tc := range cases {
		p := newPool(tc.yes, tc.no)
		p.Reprice()

		sum := p.Yes.Price.Add(p.No.Price)
		diff := sum.Sub(decimal.NewFromInt(1)).Abs()
		require.True(t, diff.LessThan(decimal.New(1, -20)), "yes=%s no=%s sum=%s", tc.yes, tc.no, sum)
	}
}

func TestPoolReprice_EmptyDefaultsToHalf(t *testing.T) {
	p := newPool("0", "0")
	p.Reprice()

	assert.True(t, p.Yes.Price.Equal(decimal.New(5, -1)))
	assert.True(t, p.No.Price.Equal(decimal.New(5, -1)))
}

func TestPoolSpotPrice_MoreSupplyIsPricier(t *testing.T) {
	p := newPool("600", "400")

	assert.True(t, p.SpotPrice(OutcomeYes).GreaterThan(p.SpotPrice(OutcomeNo)))
}

func TestOutcomeOpposite(t *testing.T) {
	assert.Equal(t, OutcomeNo, OutcomeYes.Opposite())
	assert.Equal(t, OutcomeYes, OutcomeNo.Opposite())
	assert.False(t, Outcome("MAYBE").Valid())
}
