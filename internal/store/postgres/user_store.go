package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	db Querier
}

// NewUserStore creates a new UserStore over the given Querier.
func NewUserStore(db Querier) *UserStore {
	return &UserStore{db: db}
}

const userSelectCols = `id, username, total_points, win_rate, streak, created_at, updated_at`

func scanUserStats(row pgx.Row) (domain.UserStats, error) {
	var u domain.UserStats
	err := row.Scan(
		&u.UserID, &u.Username, &u.TotalPoints, &u.WinRate, &u.Streak,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// GetStats returns a user's scoring aggregates, zeroed when the user has
// no row yet.
func (s *UserStore) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE id = $1`, userID)

	u, err := scanUserStats(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserStats{
				UserID:      userID,
				TotalPoints: decimal.Zero,
				WinRate:     decimal.Zero,
			}, nil
		}
		return domain.UserStats{}, fmt.Errorf("postgres: get stats for %s: %w", userID, err)
	}
	return u, nil
}

// UpdateStats upserts a user's scoring aggregates.
func (s *UserStore) UpdateStats(ctx context.Context, stats domain.UserStats) error {
	const query = `
		INSERT INTO users (id, username, total_points, win_rate, streak, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			win_rate     = EXCLUDED.win_rate,
			streak       = EXCLUDED.streak,
			updated_at   = NOW()`

	_, err := s.db.Exec(ctx, query,
		stats.UserID, stats.Username, stats.TotalPoints, stats.WinRate, stats.Streak,
	)
	if err != nil {
		return fmt.Errorf("postgres: update stats for %s: %w", stats.UserID, err)
	}
	return nil
}

// ListTop returns the leaderboard ordered by total points.
func (s *UserStore) ListTop(ctx context.Context, limit int) ([]domain.UserStats, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+userSelectCols+` FROM users ORDER BY total_points DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list top users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserStats
	for rows.Next() {
		u, err := scanUserStats(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan user stats: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
