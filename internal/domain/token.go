package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome identifies one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Valid reports whether the outcome is one of YES or NO.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Opposite returns the other side of the market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// halfPrice is the default price of both sides when the pool is empty.
var halfPrice = decimal.New(5, -1) // 0.5

// OutcomeToken is one side of a market's AMM pool. Supply is the pool
// balance for that side; Price is derived from the supplies and always
// lies in [0, 1].
type OutcomeToken struct {
	ID        string
	MarketID  string
	Outcome   Outcome
	Supply    decimal.Decimal
	Price     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Pool pairs the YES and NO tokens of one market and carries the
// constant-product trade math. All mutations happen in memory; persistence
// is the caller's job.
type Pool struct {
	Yes *OutcomeToken
	No  *OutcomeToken
}

// Side returns the token for the given outcome and its opposite.
func (p *Pool) Side(outcome Outcome) (target, opposite *OutcomeToken) {
	if outcome == OutcomeYes {
		return p.Yes, p.No
	}
	return p.No, p.Yes
}

// TotalSupply returns the sum of both supplies.
func (p *Pool) TotalSupply() decimal.Decimal {
	return p.Yes.Supply.Add(p.No.Supply)
}

// IsEmpty reports whether both supplies are zero (the bootstrap state).
func (p *Pool) IsEmpty() bool {
	return p.Yes.Supply.IsZero() && p.No.Supply.IsZero()
}

// SpotPrice returns the current price of the given side from the live
// supplies: the side's own supply over total supply, or 0.5 when the pool
// is empty. Note the direction: the side with more outstanding supply is
// the more expensive one. That is how this venue has always quoted and
// changing it changes trade economics.
func (p *Pool) SpotPrice(outcome Outcome) decimal.Decimal {
	total := p.TotalSupply()
	if !total.IsPositive() {
		return halfPrice
	}
	target, _ := p.Side(outcome)
	return target.Supply.Div(total)
}

// Reprice recomputes both token prices from the current supplies.
// yes.price + no.price == 1 whenever total supply is positive.
func (p *Pool) Reprice() {
	total := p.TotalSupply()
	if total.IsPositive() {
		p.Yes.Price = p.Yes.Supply.Div(total)
		p.No.Price = p.No.Supply.Div(total)
		return
	}
	p.Yes.Price = halfPrice
	p.No.Price = halfPrice
}

// Buy stakes amount on the given outcome and returns the tokens received
// and the price at execution (computed from pre-trade supplies).
//
// On an empty pool the trade bootstraps both sides to amount and pays out
// amount tokens at 0.5. Otherwise the constant product
// k = target.supply * opposite.supply is held: the target supply grows by
// amount and the opposite supply shrinks to k / new_target, with the
// difference paid out to the buyer.
func (p *Pool) Buy(outcome Outcome, amount decimal.Decimal) (tokensReceived, priceAtExecution decimal.Decimal) {
	target, opposite := p.Side(outcome)

	if p.IsEmpty() {
		target.Supply = amount
		opposite.Supply = amount
		return amount, halfPrice
	}

	priceAtExecution = p.SpotPrice(outcome)

	k := target.Supply.Mul(opposite.Supply)
	newTarget := target.Supply.Add(amount)

	newOpposite := decimal.Zero
	if newTarget.IsPositive() {
		newOpposite = k.Div(newTarget)
	}

	tokensReceived = opposite.Supply.Sub(newOpposite)
	if tokensReceived.IsNegative() {
		tokensReceived = decimal.Zero
	}

	target.Supply = newTarget
	opposite.Supply = newOpposite

	return tokensReceived, priceAtExecution
}

// Sell removes tokensToSell of the given outcome from the pool and returns
// the amount paid out and the price at execution (pre-trade supplies).
// The target supply never goes negative; a transiently zero target supply
// zeroes the opposite side instead of dividing by it.
func (p *Pool) Sell(outcome Outcome, tokensToSell decimal.Decimal) (amountReceived, priceAtExecution decimal.Decimal) {
	target, opposite := p.Side(outcome)

	priceAtExecution = p.SpotPrice(outcome)

	k := target.Supply.Mul(opposite.Supply)

	newTarget := target.Supply.Sub(tokensToSell)
	if newTarget.IsNegative() {
		newTarget = decimal.Zero
	}

	newOpposite := decimal.Zero
	if newTarget.IsPositive() {
		newOpposite = k.Div(newTarget)
	}

	amountReceived = newOpposite.Sub(opposite.Supply)
	if amountReceived.IsNegative() {
		amountReceived = decimal.Zero
	}

	target.Supply = newTarget
	opposite.Supply = newOpposite

	return amountReceived, priceAtExecution
}
