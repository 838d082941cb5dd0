package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// defaultFeePercentage is applied when a create request leaves the fee unset.
var defaultFeePercentage = decimal.New(2, -2) // 0.02

// MarketService handles market creation, reads, lifecycle transitions, and
// resolution.
type MarketService struct {
	stores domain.Stores
	tx     domain.TxRunner
	cache  domain.PriceCache
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
// cache may be nil.
func NewMarketService(stores domain.Stores, tx domain.TxRunner, cache domain.PriceCache, logger *slog.Logger) *MarketService {
	return &MarketService{stores: stores, tx: tx, cache: cache, logger: logger}
}

// WithBus attaches a signal bus for lifecycle announcements and returns the
// service for chaining.
func (s *MarketService) WithBus(bus domain.SignalBus) *MarketService {
	s.bus = bus
	return s
}

// CreateMarketRequest carries the parameters for a new market.
type CreateMarketRequest struct {
	Title         string
	Description   string
	Category      string
	CreatedBy     string
	EndsAt        time.Time
	FeePercentage decimal.Decimal
}

// Create inserts a new active market and its zeroed YES/NO token pair.
func (s *MarketService) Create(ctx context.Context, req CreateMarketRequest) (domain.Market, error) {
	if req.Title == "" {
		return domain.Market{}, fmt.Errorf("market_service: create: title required: %w", domain.ErrInvalidAmount)
	}
	if !req.EndsAt.After(time.Now()) {
		return domain.Market{}, fmt.Errorf("market_service: create: ends_at must be in the future: %w", domain.ErrInvalidAmount)
	}

	fee := req.FeePercentage
	if fee.IsZero() {
		fee = defaultFeePercentage
	}

	market := domain.Market{
		ID:            uuid.New().String(),
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Status:        domain.MarketStatusActive,
		LiquidityPool: decimal.Zero,
		FeePercentage: fee,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     time.Now().UTC(),
		EndsAt:        req.EndsAt,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		if err := st.Markets.Create(ctx, market); err != nil {
			return err
		}
		_, err := st.Tokens.EnsurePair(ctx, market.ID)
		return err
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "market_service: created market",
		slog.String("market_id", market.ID),
		slog.String("title", market.Title),
	)
	return market, nil
}

// Get returns one market.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.stores.Markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %s: %w", id, err)
	}
	return m, nil
}

// List returns markets, optionally filtered by status.
func (s *MarketService) List(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.stores.Markets.List(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// CurrentPrices returns the market's latest price pair, preferring the cache
// and falling back to the live pool supplies.
func (s *MarketService) CurrentPrices(ctx context.Context, marketID string) (domain.MarketPrices, error) {
	if s.cache != nil {
		if prices, err := s.cache.GetPrices(ctx, marketID); err == nil {
			return prices, nil
		}
	}

	pool, err := s.stores.Tokens.GetPair(ctx, marketID)
	if err != nil {
		return domain.MarketPrices{}, fmt.Errorf("market_service: prices for %s: %w", marketID, err)
	}
	return domain.MarketPrices{
		Yes: pool.SpotPrice(domain.OutcomeYes),
		No:  pool.SpotPrice(domain.OutcomeNo),
		At:  time.Now().UTC(),
	}, nil
}

// PriceHistory returns the market's append-only price series.
func (s *MarketService) PriceHistory(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.PricePoint, error) {
	points, err := s.stores.Prices.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: price history for %s: %w", marketID, err)
	}
	return points, nil
}

// UpdateStatus recomputes a market's lifecycle state from resolution
// presence, liquidity, and expiry, writing only on change. It returns the
// market with its current status.
func (s *MarketService) UpdateStatus(ctx context.Context, marketID string) (domain.Market, error) {
	market, err := s.stores.Markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: update status %s: %w", marketID, err)
	}

	hasResolution := true
	res, err := s.stores.Resolutions.GetByMarket(ctx, marketID)
	if err != nil {
		if !isNotFound(err) {
			return domain.Market{}, fmt.Errorf("market_service: update status %s: %w", marketID, err)
		}
		hasResolution = false
	}

	next := domain.DeriveStatus(market, hasResolution, time.Now().UTC())
	if next == market.Status {
		return market, nil
	}

	market.Status = next
	if next == domain.MarketStatusResolved {
		market.ResolutionOutcome = &res.ResolvedOutcome
	}
	if err := s.stores.Markets.Update(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: update status %s: %w", marketID, err)
	}

	s.logger.InfoContext(ctx, "market_service: status transition",
		slog.String("market_id", marketID),
		slog.String("status", string(next)),
	)
	return market, nil
}

// ResolveRequest carries the parameters of a market resolution.
type ResolveRequest struct {
	MarketID      string
	Outcome       domain.Outcome
	ResolverID    string
	DisputeWindow time.Duration
	BondAmount    decimal.Decimal
}

// defaultDisputeWindow applies when a resolve request leaves the window unset.
const defaultDisputeWindow = 24 * time.Hour

// defaultBondAmount applies when a resolve request leaves the bond unset.
var defaultBondAmount = decimal.NewFromInt(100)

// Resolve records the final outcome of a market and flips it to resolved.
// Resolving an already-resolved market returns ErrAlreadyResolved; settlement
// runs separately and exactly once.
func (s *MarketService) Resolve(ctx context.Context, req ResolveRequest) (domain.Resolution, error) {
	if !req.Outcome.Valid() {
		return domain.Resolution{}, domain.ErrInvalidOutcome
	}

	window := req.DisputeWindow
	if window <= 0 {
		window = defaultDisputeWindow
	}
	bond := req.BondAmount
	if bond.IsZero() {
		bond = defaultBondAmount
	}

	now := time.Now().UTC()
	res := domain.Resolution{
		ID:              uuid.New().String(),
		MarketID:        req.MarketID,
		ResolvedOutcome: req.Outcome,
		ResolverID:      req.ResolverID,
		DisputeWindow:   now.Add(window),
		BondAmount:      bond,
		CreatedAt:       now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		market, err := st.Markets.GetByID(ctx, req.MarketID)
		if err != nil {
			return err
		}
		if market.Status == domain.MarketStatusResolved {
			return domain.ErrAlreadyResolved
		}

		if err := st.Resolutions.Create(ctx, res); err != nil {
			return err
		}

		outcome := req.Outcome
		market.Status = domain.MarketStatusResolved
		market.ResolutionOutcome = &outcome
		return st.Markets.Update(ctx, market)
	})
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("market_service: resolve %s: %w", req.MarketID, err)
	}

	s.logger.InfoContext(ctx, "market_service: resolved market",
		slog.String("market_id", req.MarketID),
		slog.String("outcome", string(req.Outcome)),
	)

	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":     "market_resolved",
			"market_id": req.MarketID,
			"outcome":   req.Outcome,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.bus.Publish(ctx, "markets", evt); err != nil {
			s.logger.WarnContext(ctx, "market_service: publish resolution failed",
				slog.String("market_id", req.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}
	return res, nil
}

// FileDispute records a bonded challenge against a market's resolution. The
// dispute must arrive inside the resolution's dispute window.
func (s *MarketService) FileDispute(ctx context.Context, marketID, userID, reason string, bond decimal.Decimal) (domain.Dispute, error) {
	res, err := s.stores.Resolutions.GetByMarket(ctx, marketID)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("market_service: dispute %s: %w", marketID, err)
	}

	now := time.Now().UTC()
	if now.After(res.DisputeWindow) {
		return domain.Dispute{}, fmt.Errorf("market_service: dispute %s: window closed: %w", marketID, domain.ErrMarketNotActive)
	}
	if !bond.IsPositive() {
		return domain.Dispute{}, domain.ErrInvalidAmount
	}

	d := domain.Dispute{
		ID:         uuid.New().String(),
		MarketID:   marketID,
		UserID:     userID,
		BondAmount: bond,
		Status:     domain.DisputeStatusPending,
		Reason:     reason,
		CreatedAt:  now,
	}
	if err := s.stores.Disputes.Create(ctx, d); err != nil {
		return domain.Dispute{}, fmt.Errorf("market_service: dispute %s: %w", marketID, err)
	}
	return d, nil
}
