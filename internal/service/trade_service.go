package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// tradeStripes is the size of the per-market mutex table. Markets hash onto
// a stripe; two markets sharing a stripe serialize against each other, which
// is harmless for correctness.
const tradeStripes = 64

// TradeService executes trades against market AMM pools. Trades on the same
// market are serialized by a striped mutex; the whole mutation set of one
// trade commits in a single database transaction.
type TradeService struct {
	tx     domain.TxRunner
	prices domain.PriceCache
	bus    domain.SignalBus
	logger *slog.Logger

	locks [tradeStripes]sync.Mutex
}

// NewTradeService creates a TradeService with all required dependencies.
// prices and bus may be nil; both are best-effort side channels.
func NewTradeService(
	tx domain.TxRunner,
	prices domain.PriceCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		tx:     tx,
		prices: prices,
		bus:    bus,
		logger: logger,
	}
}

func (s *TradeService) marketLock(marketID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(marketID))
	return &s.locks[h.Sum32()%tradeStripes]
}

// TradeRequest carries the parameters of one trade.
type TradeRequest struct {
	UserID   string
	MarketID string
	Outcome  domain.Outcome
	Side     domain.TradeSide
	Amount   decimal.Decimal
}

func (r TradeRequest) validate() error {
	if !r.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !r.Outcome.Valid() {
		return domain.ErrInvalidOutcome
	}
	if !r.Side.Valid() {
		return domain.ErrInvalidSide
	}
	return nil
}

// Execute runs one trade end to end: precondition checks, AMM math on the
// pre-trade supplies, position update, market liquidity sync, trade record,
// and price history append. Everything commits atomically; any precondition
// failure leaves all state untouched.
func (s *TradeService) Execute(ctx context.Context, req TradeRequest) (domain.TradeResult, error) {
	if err := req.validate(); err != nil {
		return domain.TradeResult{}, err
	}

	mu := s.marketLock(req.MarketID)
	mu.Lock()
	defer mu.Unlock()

	var result domain.TradeResult

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		market, err := st.Markets.GetByID(ctx, req.MarketID)
		if err != nil {
			return err
		}
		if market.Status != domain.MarketStatusActive {
			return domain.ErrMarketNotActive
		}

		pool, err := st.Tokens.EnsurePair(ctx, req.MarketID)
		if err != nil {
			return err
		}

		pos, err := st.Positions.GetOrCreate(ctx, req.UserID, req.MarketID)
		if err != nil {
			return err
		}

		var cashLeg, tokenLeg, priceAtExecution decimal.Decimal

		switch req.Side {
		case domain.TradeSideBuy:
			tokensReceived, price := pool.Buy(req.Outcome, req.Amount)
			pos.ApplyBuy(req.Outcome, tokensReceived, req.Amount)
			cashLeg, tokenLeg, priceAtExecution = req.Amount, tokensReceived, price

		case domain.TradeSideSell:
			if pos.Tokens(req.Outcome).Cmp(req.Amount) < 0 {
				return domain.ErrInsufficientTokens
			}
			amountReceived, price := pool.Sell(req.Outcome, req.Amount)
			if err := pos.ApplySell(req.Outcome, req.Amount, amountReceived); err != nil {
				return err
			}
			cashLeg, tokenLeg, priceAtExecution = amountReceived, req.Amount, price
		}

		pool.Reprice()

		if err := st.Tokens.UpdatePair(ctx, pool); err != nil {
			return err
		}
		if err := st.Positions.Update(ctx, pos); err != nil {
			return err
		}

		market.LiquidityPool = pool.TotalSupply()
		if err := st.Markets.Update(ctx, market); err != nil {
			return err
		}

		now := time.Now().UTC()
		trade := domain.Trade{
			ID:               uuid.New().String(),
			UserID:           req.UserID,
			MarketID:         req.MarketID,
			Outcome:          req.Outcome,
			Side:             req.Side,
			AmountStaked:     cashLeg,
			TokensAmount:     tokenLeg,
			PriceAtExecution: priceAtExecution,
			CreatedAt:        now,
		}
		if err := st.Trades.Create(ctx, trade); err != nil {
			return err
		}

		if err := st.Prices.Append(ctx, domain.PricePoint{
			MarketID:  req.MarketID,
			YesPrice:  pool.Yes.Price,
			NoPrice:   pool.No.Price,
			Timestamp: now,
		}); err != nil {
			return err
		}

		result = domain.TradeResult{
			TradeID:     trade.ID,
			YesTokens:   pos.YesTokens,
			NoTokens:    pos.NoTokens,
			TotalStaked: pos.TotalStaked,
			YesPrice:    pool.Yes.Price,
			NoPrice:     pool.No.Price,
		}
		return nil
	})
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("trade_service: execute: %w", err)
	}

	s.publishTrade(ctx, req, result)

	s.logger.InfoContext(ctx, "trade_service: executed trade",
		slog.String("trade_id", result.TradeID),
		slog.String("market_id", req.MarketID),
		slog.String("side", string(req.Side)),
		slog.String("outcome", string(req.Outcome)),
		slog.String("amount", req.Amount.String()),
	)

	return result, nil
}

// publishTrade pushes the post-trade prices to the cache and the signal bus.
// Both are best-effort; the trade has already committed.
func (s *TradeService) publishTrade(ctx context.Context, req TradeRequest, result domain.TradeResult) {
	now := time.Now().UTC()

	if s.prices != nil {
		err := s.prices.SetPrices(ctx, req.MarketID, domain.MarketPrices{
			Yes: result.YesPrice,
			No:  result.NoPrice,
			At:  now,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "trade_service: price cache update failed",
				slog.String("market_id", req.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":     "trade_executed",
			"trade_id":  result.TradeID,
			"market_id": req.MarketID,
			"outcome":   req.Outcome,
			"side":      req.Side,
			"yes_price": result.YesPrice,
			"no_price":  result.NoPrice,
			"timestamp": now.Format(time.RFC3339),
		})
		if err := s.bus.Publish(ctx, "trades", evt); err != nil {
			s.logger.WarnContext(ctx, "trade_service: publish event failed",
				slog.String("trade_id", result.TradeID),
				slog.String("error", err.Error()),
			)
		}

		tick, _ := json.Marshal(map[string]any{
			"event":     "price_update",
			"market_id": req.MarketID,
			"yes_price": result.YesPrice,
			"no_price":  result.NoPrice,
			"timestamp": now.Format(time.RFC3339),
		})
		if err := s.bus.Publish(ctx, "prices", tick); err != nil {
			s.logger.WarnContext(ctx, "trade_service: publish price tick failed",
				slog.String("market_id", req.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}
}
