package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiquidityEventType distinguishes adds from removes.
type LiquidityEventType string

const (
	LiquidityAdd    LiquidityEventType = "add"
	LiquidityRemove LiquidityEventType = "remove"
)

// LiquidityEvent is an append-only record of a direct liquidity_pool
// adjustment. Liquidity events bypass the outcome token supplies and carry
// no pricing side effect.
type LiquidityEvent struct {
	ID        string             `json:"id"`
	MarketID  string             `json:"market_id"`
	UserID    string             `json:"user_id"`
	EventType LiquidityEventType `json:"event_type"`
	Amount    decimal.Decimal    `json:"amount"`
	CreatedAt time.Time          `json:"created_at"`
}
