package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes.
// Each market's price pair is stored as a hash at key "price:{marketID}" with
// fields "yes", "no" and "ts" (Unix nanosecond timestamp).
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. A zero ttl
// means cached prices never expire.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(marketID string) string {
	return "price:" + marketID
}

// SetPrices stores the latest post-trade price pair for a market.
func (pc *PriceCache) SetPrices(ctx context.Context, marketID string, prices domain.MarketPrices) error {
	key := priceKey(marketID)
	fields := map[string]interface{}{
		"yes": prices.Yes.String(),
		"no":  prices.No.String(),
		"ts":  strconv.FormatInt(prices.At.UnixNano(), 10),
	}

	pipe := pc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set prices %s: %w", marketID, err)
	}
	return nil
}

// GetPrices retrieves the latest price pair for a market. It returns
// domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetPrices(ctx context.Context, marketID string) (domain.MarketPrices, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(marketID)).Result()
	if err != nil {
		return domain.MarketPrices{}, fmt.Errorf("redis: get prices %s: %w", marketID, err)
	}
	if len(vals) == 0 {
		return domain.MarketPrices{}, domain.ErrNotFound
	}

	yes, err := decimal.NewFromString(vals["yes"])
	if err != nil {
		return domain.MarketPrices{}, fmt.Errorf("redis: parse yes price %s: %w", marketID, err)
	}
	no, err := decimal.NewFromString(vals["no"])
	if err != nil {
		return domain.MarketPrices{}, fmt.Errorf("redis: parse no price %s: %w", marketID, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.MarketPrices{}, fmt.Errorf("redis: parse ts %s: %w", marketID, err)
	}

	return domain.MarketPrices{Yes: yes, No: no, At: time.Unix(0, tsNano)}, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
