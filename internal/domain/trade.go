package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Valid reports whether the side is one of BUY or SELL.
func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Trade is an immutable record of one executed trade. AmountStaked is the
// cash leg (stake for a buy, proceeds for a sell) and TokensAmount the
// token leg (tokens received for a buy, tokens sold for a sell).
type Trade struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	MarketID         string          `json:"market_id"`
	Outcome          Outcome         `json:"outcome"`
	Side             TradeSide       `json:"side"`
	AmountStaked     decimal.Decimal `json:"amount_staked"`
	TokensAmount     decimal.Decimal `json:"tokens_amount"`
	PriceAtExecution decimal.Decimal `json:"price_at_execution"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TradeResult is what the execution engine returns to callers: the trade
// id, the post-trade position balances, and the post-trade prices.
type TradeResult struct {
	TradeID     string          `json:"trade_id"`
	YesTokens   decimal.Decimal `json:"yes_tokens"`
	NoTokens    decimal.Decimal `json:"no_tokens"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	YesPrice    decimal.Decimal `json:"yes_price"`
	NoPrice     decimal.Decimal `json:"no_price"`
}
