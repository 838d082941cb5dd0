package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/service"
)

// TradeService defines the methods that the trade handler requires.
type TradeService interface {
	Execute(ctx context.Context, req service.TradeRequest) (domain.TradeResult, error)
}

// TradeHandler serves the trade execution endpoint.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

// executeTradeRequest is the body of POST /api/trades.
type executeTradeRequest struct {
	UserID   string          `json:"user_id"`
	MarketID string          `json:"market_id"`
	Outcome  string          `json:"outcome"`
	Side     string          `json:"side"`
	Amount   decimal.Decimal `json:"amount"`
}

// ExecuteTrade runs one buy or sell against a market's pool and returns the
// post-trade position balances and prices.
// POST /api/trades
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req executeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.MarketID == "" {
		writeError(w, http.StatusBadRequest, "user_id and market_id required")
		return
	}

	result, err := h.trades.Execute(r.Context(), service.TradeRequest{
		UserID:   req.UserID,
		MarketID: req.MarketID,
		Outcome:  domain.Outcome(req.Outcome),
		Side:     domain.TradeSide(req.Side),
		Amount:   req.Amount,
	})
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: execute trade failed",
				slog.String("user_id", req.UserID),
				slog.String("market_id", req.MarketID),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
