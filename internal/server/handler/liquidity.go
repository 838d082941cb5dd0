package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// LiquidityService defines the methods that the liquidity handler requires.
type LiquidityService interface {
	Adjust(ctx context.Context, marketID, userID string, eventType domain.LiquidityEventType, amount decimal.Decimal) (domain.LiquidityEvent, error)
	History(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.LiquidityEvent, error)
}

// LiquidityHandler serves the direct liquidity adjustment endpoints.
type LiquidityHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

// NewLiquidityHandler creates a LiquidityHandler with the given service and
// logger.
func NewLiquidityHandler(liquidity LiquidityService, logger *slog.Logger) *LiquidityHandler {
	return &LiquidityHandler{
		liquidity: liquidity,
		logger:    logger,
	}
}

// adjustLiquidityRequest is the body of POST /api/markets/{id}/liquidity.
// Type is "add" or "remove".
type adjustLiquidityRequest struct {
	UserID string          `json:"user_id"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// AdjustLiquidity applies a direct add or remove to a market's liquidity
// pool. Token supplies and prices are untouched.
// POST /api/markets/{id}/liquidity
func (h *LiquidityHandler) AdjustLiquidity(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req adjustLiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.liquidity.Adjust(r.Context(), marketID, req.UserID, domain.LiquidityEventType(req.Type), req.Amount)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: adjust liquidity failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// liquidityHistoryResponse wraps the liquidity event log response.
type liquidityHistoryResponse struct {
	MarketID string                  `json:"market_id"`
	Events   []domain.LiquidityEvent `json:"events"`
}

// GetLiquidityHistory returns a market's liquidity event log, newest first.
// GET /api/markets/{id}/liquidity?limit=50&offset=0
func (h *LiquidityHandler) GetLiquidityHistory(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	events, err := h.liquidity.History(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: liquidity history failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list liquidity events")
		return
	}
	if events == nil {
		events = []domain.LiquidityEvent{}
	}

	writeJSON(w, http.StatusOK, liquidityHistoryResponse{MarketID: marketID, Events: events})
}
