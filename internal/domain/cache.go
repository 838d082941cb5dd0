package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MarketPrices is the cached post-trade price pair of one market.
type MarketPrices struct {
	Yes decimal.Decimal `json:"yes"`
	No  decimal.Decimal `json:"no"`
	At  time.Time       `json:"at"`
}

// PriceCache provides fast access to the latest post-trade prices.
type PriceCache interface {
	SetPrices(ctx context.Context, marketID string, prices MarketPrices) error
	GetPrices(ctx context.Context, marketID string) (MarketPrices, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter limits request rates per key across instances.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus fans engine events out to subscribers (WebSocket hub, workers).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
