package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predicthub/predicthub/internal/domain"
)

// PositionService reads positions and marks them to market.
type PositionService struct {
	stores domain.Stores
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewPositionService creates a PositionService. cache may be nil.
func NewPositionService(stores domain.Stores, cache domain.PriceCache, logger *slog.Logger) *PositionService {
	return &PositionService{stores: stores, cache: cache, logger: logger}
}

// PositionView is a position enriched with entry prices and unrealized P&L.
type PositionView struct {
	Position domain.Position    `json:"position"`
	PnL      domain.PositionPnL `json:"pnl"`
}

func (s *PositionService) currentPrices(ctx context.Context, marketID string) (domain.MarketPrices, error) {
	if s.cache != nil {
		if prices, err := s.cache.GetPrices(ctx, marketID); err == nil {
			return prices, nil
		}
	}

	pool, err := s.stores.Tokens.GetPair(ctx, marketID)
	if err != nil {
		return domain.MarketPrices{}, err
	}
	return domain.MarketPrices{
		Yes: pool.SpotPrice(domain.OutcomeYes),
		No:  pool.SpotPrice(domain.OutcomeNo),
	}, nil
}

// Get returns one position with its mark-to-market valuation.
func (s *PositionService) Get(ctx context.Context, userID, marketID string) (PositionView, error) {
	pos, err := s.stores.Positions.Get(ctx, userID, marketID)
	if err != nil {
		return PositionView{}, fmt.Errorf("position_service: get %s/%s: %w", userID, marketID, err)
	}

	prices, err := s.currentPrices(ctx, marketID)
	if err != nil {
		return PositionView{}, fmt.Errorf("position_service: get %s/%s: %w", userID, marketID, err)
	}

	return PositionView{
		Position: pos,
		PnL:      pos.UnrealizedPnL(prices.Yes, prices.No),
	}, nil
}

// ListByUser returns a user's positions across markets, each marked to
// market. A market whose pool cannot be priced is returned without P&L
// rather than dropped.
func (s *PositionService) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]PositionView, error) {
	positions, err := s.stores.Positions.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("position_service: list for %s: %w", userID, err)
	}

	views := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		view := PositionView{Position: pos}

		prices, err := s.currentPrices(ctx, pos.MarketID)
		if err != nil {
			s.logger.WarnContext(ctx, "position_service: pricing failed",
				slog.String("market_id", pos.MarketID),
				slog.String("error", err.Error()),
			)
		} else {
			view.PnL = pos.UnrealizedPnL(prices.Yes, prices.No)
		}

		views = append(views, view)
	}
	return views, nil
}

// ListTrades returns a user's trade history.
func (s *PositionService) ListTrades(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.stores.Trades.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("position_service: trades for %s: %w", userID, err)
	}
	return trades, nil
}
