package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Market represents one binary prediction market. LiquidityPool mirrors the
// sum of both outcome token supplies and is additionally adjusted by direct
// liquidity events.
type Market struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category,omitempty"`
	Status            MarketStatus    `json:"status"`
	ResolutionOutcome *Outcome        `json:"resolution_outcome,omitempty"`
	LiquidityPool     decimal.Decimal `json:"liquidity_pool"`
	FeePercentage     decimal.Decimal `json:"fee_percentage"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	EndsAt            time.Time       `json:"ends_at"`
}

// DeriveStatus computes the lifecycle state from resolution presence,
// liquidity, and expiry. Resolution wins over everything else; a dry pool
// or a past end date closes the market; otherwise it is active.
func DeriveStatus(m Market, hasResolution bool, now time.Time) MarketStatus {
	if hasResolution {
		return MarketStatusResolved
	}
	if m.LiquidityPool.Cmp(decimal.Zero) <= 0 || !now.Before(m.EndsAt) {
		return MarketStatusClosed
	}
	return MarketStatusActive
}

// PricePoint is one row of the append-only price series, written after
// every executed trade with post-trade prices.
type PricePoint struct {
	ID        int64           `json:"id"`
	MarketID  string          `json:"market_id"`
	YesPrice  decimal.Decimal `json:"yes_price"`
	NoPrice   decimal.Decimal `json:"no_price"`
	Timestamp time.Time       `json:"timestamp"`
}
