package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// LiquidityService adjusts a market's liquidity pool directly. Liquidity
// moves bypass the outcome token supplies and never touch prices.
type LiquidityService struct {
	stores domain.Stores
	tx     domain.TxRunner
	logger *slog.Logger
}

// NewLiquidityService creates a LiquidityService.
func NewLiquidityService(stores domain.Stores, tx domain.TxRunner, logger *slog.Logger) *LiquidityService {
	return &LiquidityService{stores: stores, tx: tx, logger: logger}
}

// Adjust applies one add or remove to the market's liquidity pool and
// appends the event record. The pool never goes negative: removing more than
// the pool holds drains it to zero.
func (s *LiquidityService) Adjust(ctx context.Context, marketID, userID string, eventType domain.LiquidityEventType, amount decimal.Decimal) (domain.LiquidityEvent, error) {
	if !amount.IsPositive() {
		return domain.LiquidityEvent{}, domain.ErrInvalidAmount
	}
	if eventType != domain.LiquidityAdd && eventType != domain.LiquidityRemove {
		return domain.LiquidityEvent{}, domain.ErrInvalidSide
	}

	ev := domain.LiquidityEvent{
		ID:        uuid.New().String(),
		MarketID:  marketID,
		UserID:    userID,
		EventType: eventType,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		market, err := st.Markets.GetByID(ctx, marketID)
		if err != nil {
			return err
		}
		if market.Status == domain.MarketStatusResolved {
			return domain.ErrMarketNotActive
		}

		switch eventType {
		case domain.LiquidityAdd:
			market.LiquidityPool = market.LiquidityPool.Add(amount)
		case domain.LiquidityRemove:
			market.LiquidityPool = market.LiquidityPool.Sub(amount)
			if market.LiquidityPool.IsNegative() {
				market.LiquidityPool = decimal.Zero
			}
		}

		if err := st.Markets.Update(ctx, market); err != nil {
			return err
		}
		return st.Liquidity.Append(ctx, ev)
	})
	if err != nil {
		return domain.LiquidityEvent{}, fmt.Errorf("liquidity_service: %s %s: %w", eventType, marketID, err)
	}

	s.logger.InfoContext(ctx, "liquidity_service: adjusted pool",
		slog.String("market_id", marketID),
		slog.String("type", string(eventType)),
		slog.String("amount", amount.String()),
	)
	return ev, nil
}

// History returns a market's liquidity event log.
func (s *LiquidityService) History(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.LiquidityEvent, error) {
	events, err := s.stores.Liquidity.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: history %s: %w", marketID, err)
	}
	return events, nil
}
