package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predicthub/predicthub/internal/domain"
)

// LeaderboardService is the scoring read model.
type LeaderboardService struct {
	stores domain.Stores
	logger *slog.Logger
}

// NewLeaderboardService creates a LeaderboardService.
func NewLeaderboardService(stores domain.Stores, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{stores: stores, logger: logger}
}

// Top returns the highest-scoring users.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]domain.UserStats, error) {
	users, err := s.stores.Users.ListTop(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard_service: top: %w", err)
	}
	return users, nil
}

// UserStats returns one user's scoring aggregates.
func (s *LeaderboardService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	stats, err := s.stores.Users.GetStats(ctx, userID)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("leaderboard_service: stats for %s: %w", userID, err)
	}
	return stats, nil
}
