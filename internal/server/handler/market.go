package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/service"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, req service.CreateMarketRequest) (domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
	List(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	CurrentPrices(ctx context.Context, marketID string) (domain.MarketPrices, error)
	PriceHistory(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.PricePoint, error)
	Resolve(ctx context.Context, req service.ResolveRequest) (domain.Resolution, error)
	FileDispute(ctx context.Context, marketID, userID, reason string, bond decimal.Decimal) (domain.Dispute, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// createMarketRequest is the body of POST /api/markets.
type createMarketRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	CreatedBy     string          `json:"created_by"`
	EndsAt        time.Time       `json:"ends_at"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
}

// CreateMarket opens a new market with a zeroed token pair.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	market, err := h.markets.Create(r.Context(), service.CreateMarketRequest{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		CreatedBy:     req.CreatedBy,
		EndsAt:        req.EndsAt,
		FeePercentage: req.FeePercentage,
	})
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: create market failed",
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets with pagination, optionally filtered by status.
// GET /api/markets?status=active&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	status := domain.MarketStatus(r.URL.Query().Get("status"))

	markets, err := h.markets.List(r.Context(), status, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: get market failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// GetPrices returns the current YES/NO prices of a market.
// GET /api/markets/{id}/prices
func (h *MarketHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	prices, err := h.markets.CurrentPrices(r.Context(), id)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: get prices failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prices)
}

// priceHistoryResponse wraps the price history endpoint output.
type priceHistoryResponse struct {
	MarketID string              `json:"market_id"`
	Points   []domain.PricePoint `json:"points"`
}

// GetHistory returns the per-trade price series of a market, newest first.
// GET /api/markets/{id}/history?limit=50&offset=0
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	opts := parseListOpts(r)

	points, err := h.markets.PriceHistory(r.Context(), id, opts)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: price history failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}
	if points == nil {
		points = []domain.PricePoint{}
	}

	writeJSON(w, http.StatusOK, priceHistoryResponse{MarketID: id, Points: points})
}

// resolveRequest is the body of POST /api/markets/{id}/resolve. The dispute
// window is a Go duration string such as "24h"; empty means the default.
type resolveRequest struct {
	Outcome       string          `json:"outcome"`
	ResolverID    string          `json:"resolver_id"`
	DisputeWindow string          `json:"dispute_window"`
	BondAmount    decimal.Decimal `json:"bond_amount"`
}

// ResolveMarket records the final outcome of a market. Settlement runs
// separately once the resolution is in place.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var window time.Duration
	if req.DisputeWindow != "" {
		d, err := time.ParseDuration(req.DisputeWindow)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dispute_window")
			return
		}
		window = d
	}

	res, err := h.markets.Resolve(r.Context(), service.ResolveRequest{
		MarketID:      id,
		Outcome:       domain.Outcome(req.Outcome),
		ResolverID:    req.ResolverID,
		DisputeWindow: window,
		BondAmount:    req.BondAmount,
	})
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: resolve market failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// disputeRequest is the body of POST /api/markets/{id}/dispute.
type disputeRequest struct {
	UserID     string          `json:"user_id"`
	Reason     string          `json:"reason"`
	BondAmount decimal.Decimal `json:"bond_amount"`
}

// FileDispute opens a bonded challenge against a resolution inside its
// dispute window.
// POST /api/markets/{id}/dispute
func (h *MarketHandler) FileDispute(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req disputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	dispute, err := h.markets.FileDispute(r.Context(), id, req.UserID, req.Reason, req.BondAmount)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: file dispute failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dispute)
}
