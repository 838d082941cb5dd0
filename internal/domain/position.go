package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a user's accumulated holding in one market. TotalStaked is a
// single combined cost basis across both sides; per-side entry prices are
// reconstructed by proportional allocation in AverageEntryPrice. All three
// quantity fields clamp to zero after every mutation.
type Position struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	MarketID    string          `json:"market_id"`
	YesTokens   decimal.Decimal `json:"yes_tokens"`
	NoTokens    decimal.Decimal `json:"no_tokens"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Tokens returns the held quantity for one side.
func (p *Position) Tokens(outcome Outcome) decimal.Decimal {
	if outcome == OutcomeYes {
		return p.YesTokens
	}
	return p.NoTokens
}

// TotalTokens returns the combined YES+NO holding.
func (p *Position) TotalTokens() decimal.Decimal {
	return p.YesTokens.Add(p.NoTokens)
}

func (p *Position) addTokens(outcome Outcome, delta decimal.Decimal) {
	if outcome == OutcomeYes {
		p.YesTokens = p.YesTokens.Add(delta)
	} else {
		p.NoTokens = p.NoTokens.Add(delta)
	}
}

// clamp forces all quantity fields to be non-negative.
func (p *Position) clamp() {
	if p.YesTokens.IsNegative() {
		p.YesTokens = decimal.Zero
	}
	if p.NoTokens.IsNegative() {
		p.NoTokens = decimal.Zero
	}
	if p.TotalStaked.IsNegative() {
		p.TotalStaked = decimal.Zero
	}
}

// ApplyBuy credits tokensReceived on the given side and adds the staked
// amount to the combined cost basis.
func (p *Position) ApplyBuy(outcome Outcome, tokensReceived, amountStaked decimal.Decimal) {
	p.addTokens(outcome, tokensReceived)
	p.TotalStaked = p.TotalStaked.Add(amountStaked)
	p.clamp()
}

// ApplySell debits tokensSold from the given side and removes cost basis
// proportionally: the combined stake is allocated to this side by token
// ratio, an average entry price derived from it, and tokensSold times that
// entry price taken out of TotalStaked. When no cost basis exists the
// amount received is deducted instead. Returns ErrInsufficientTokens when
// the side holds fewer than tokensSold; the position is untouched in that
// case.
func (p *Position) ApplySell(outcome Outcome, tokensSold, amountReceived decimal.Decimal) error {
	current := p.Tokens(outcome)
	if current.Cmp(tokensSold) < 0 {
		return ErrInsufficientTokens
	}

	total := p.TotalTokens()
	if p.TotalStaked.IsPositive() && total.IsPositive() && current.IsPositive() {
		ratio := current.Div(total)
		allocatedStaked := p.TotalStaked.Mul(ratio)
		avgEntry := allocatedStaked.Div(current)
		costBasisSold := tokensSold.Mul(avgEntry)
		p.TotalStaked = p.TotalStaked.Sub(costBasisSold)
	} else {
		p.TotalStaked = p.TotalStaked.Sub(amountReceived)
	}

	p.addTokens(outcome, tokensSold.Neg())
	p.clamp()
	return nil
}

// AverageEntryPrice returns the reconstructed entry price for one side, or
// zero when the side holds no tokens. The combined stake is split by token
// count, which is an approximation whenever both sides were entered at
// different prices.
func (p *Position) AverageEntryPrice(outcome Outcome) decimal.Decimal {
	tokens := p.Tokens(outcome)
	if !tokens.IsPositive() {
		return decimal.Zero
	}

	total := p.TotalTokens()
	if total.IsPositive() && p.TotalStaked.IsPositive() {
		ratio := tokens.Div(total)
		allocatedStaked := p.TotalStaked.Mul(ratio)
		return allocatedStaked.Div(tokens)
	}
	return decimal.Zero
}

// SidePnL is the unrealized result for one side of a position.
type SidePnL struct {
	Tokens            decimal.Decimal `json:"tokens"`
	AverageEntryPrice decimal.Decimal `json:"average_entry_price"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
}

// PositionPnL is the unrealized result across both sides.
type PositionPnL struct {
	Yes   SidePnL         `json:"yes"`
	No    SidePnL         `json:"no"`
	Total decimal.Decimal `json:"total_profit_loss"`
}

var hundred = decimal.NewFromInt(100)

func (p *Position) sidePnL(outcome Outcome, currentPrice decimal.Decimal) SidePnL {
	tokens := p.Tokens(outcome)
	avgEntry := p.AverageEntryPrice(outcome)

	currentValue := tokens.Mul(currentPrice)
	costBasis := decimal.Zero
	if avgEntry.IsPositive() {
		costBasis = tokens.Mul(avgEntry)
	}
	pnl := currentValue.Sub(costBasis)

	pnlPercent := decimal.Zero
	if costBasis.IsPositive() {
		pnlPercent = pnl.Div(costBasis).Mul(hundred)
	}

	return SidePnL{
		Tokens:            tokens,
		AverageEntryPrice: avgEntry,
		CurrentPrice:      currentPrice,
		CurrentValue:      currentValue,
		CostBasis:         costBasis,
		ProfitLoss:        pnl,
		ProfitLossPercent: pnlPercent,
	}
}

// UnrealizedPnL computes the mark-to-market result of the position against
// the given current prices.
func (p *Position) UnrealizedPnL(yesPrice, noPrice decimal.Decimal) PositionPnL {
	yes := p.sidePnL(OutcomeYes, yesPrice)
	no := p.sidePnL(OutcomeNo, noPrice)
	return PositionPnL{
		Yes:   yes,
		No:    no,
		Total: yes.ProfitLoss.Add(no.ProfitLoss),
	}
}
