package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/service"
)

// PositionService defines the methods that the position handler requires.
type PositionService interface {
	Get(ctx context.Context, userID, marketID string) (service.PositionView, error)
	ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]service.PositionView, error)
	ListTrades(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error)
}

// PositionHandler serves position and trade-history HTTP endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given service and logger.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions []service.PositionView `json:"positions"`
}

// ListPositions returns a user's positions across markets, marked to market.
// GET /api/positions?user=alice&limit=50&offset=0
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}

	views, err := h.positions.ListByUser(r.Context(), userID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if views == nil {
		views = []service.PositionView{}
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: views})
}

// GetPosition returns one user/market position with unrealized P&L.
// GET /api/positions/{market}?user=alice
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "market")
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}

	view, err := h.positions.Get(r.Context(), userID, marketID)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: get position failed",
				slog.String("user_id", userID),
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// listTradesResponse wraps the user trade history response.
type listTradesResponse struct {
	Trades []domain.Trade `json:"trades"`
}

// ListTrades returns a user's trade history, newest first.
// GET /api/trades?user=alice&limit=50&offset=0
func (h *PositionHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}

	trades, err := h.positions.ListTrades(r.Context(), userID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}

	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades})
}
