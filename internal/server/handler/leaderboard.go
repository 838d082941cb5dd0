package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/predicthub/predicthub/internal/domain"
)

// LeaderboardService defines the methods that the leaderboard handler requires.
type LeaderboardService interface {
	Top(ctx context.Context, limit int) ([]domain.UserStats, error)
	UserStats(ctx context.Context, userID string) (domain.UserStats, error)
}

// LeaderboardHandler serves the ranking endpoints.
type LeaderboardHandler struct {
	leaderboard LeaderboardService
	logger      *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler with the given service
// and logger.
func NewLeaderboardHandler(leaderboard LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// leaderboardResponse wraps the ranking response.
type leaderboardResponse struct {
	Users []domain.UserStats `json:"users"`
}

// GetLeaderboard returns the top users by total points.
// GET /api/leaderboard?limit=10
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	users, err := h.leaderboard.Top(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if users == nil {
		users = []domain.UserStats{}
	}

	writeJSON(w, http.StatusOK, leaderboardResponse{Users: users})
}

// GetUserStats returns one user's scoring aggregate. Unknown users get a
// zeroed row rather than a 404.
// GET /api/users/{id}/stats
func (h *LeaderboardHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	stats, err := h.leaderboard.UserStats(r.Context(), id)
	if err != nil {
		if isInternal(err) {
			h.logger.ErrorContext(r.Context(), "handler: user stats failed",
				slog.String("user_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
