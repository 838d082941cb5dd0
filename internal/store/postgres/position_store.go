package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	db Querier
}

// NewPositionStore creates a new PositionStore over the given Querier.
func NewPositionStore(db Querier) *PositionStore {
	return &PositionStore{db: db}
}

const positionSelectCols = `id, user_id, market_id, yes_tokens, no_tokens, total_staked,
	created_at, updated_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.ID, &p.UserID, &p.MarketID, &p.YesTokens, &p.NoTokens, &p.TotalStaked,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Get retrieves the position for (userID, marketID).
func (s *PositionStore) Get(ctx context.Context, userID, marketID string) (domain.Position, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE user_id = $1 AND market_id = $2`,
		userID, marketID)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s/%s: %w", userID, marketID, err)
	}
	return p, nil
}

// GetOrCreate returns the position for (userID, marketID), creating a
// zeroed one when absent.
func (s *PositionStore) GetOrCreate(ctx context.Context, userID, marketID string) (domain.Position, error) {
	p, err := s.Get(ctx, userID, marketID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Position{}, err
	}

	now := time.Now().UTC()
	p = domain.Position{
		ID:          uuid.New().String(),
		UserID:      userID,
		MarketID:    marketID,
		YesTokens:   decimal.Zero,
		NoTokens:    decimal.Zero,
		TotalStaked: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	const query = `
		INSERT INTO positions (id, user_id, market_id, yes_tokens, no_tokens, total_staked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, market_id) DO NOTHING`

	if _, err := s.db.Exec(ctx, query,
		p.ID, p.UserID, p.MarketID, p.YesTokens, p.NoTokens, p.TotalStaked, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return domain.Position{}, fmt.Errorf("postgres: create position %s/%s: %w", userID, marketID, err)
	}

	// Re-read so a concurrent creator's row wins consistently.
	return s.Get(ctx, userID, marketID)
}

// Update replaces the balances of a position.
func (s *PositionStore) Update(ctx context.Context, p domain.Position) error {
	const query = `
		UPDATE positions SET
			yes_tokens   = $2,
			no_tokens    = $3,
			total_staked = $4,
			updated_at   = NOW()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, p.ID, p.YesTokens, p.NoTokens, p.TotalStaked)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByMarket returns every position in a market (the settlement scan).
func (s *PositionStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Position, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE market_id = $1 ORDER BY created_at`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ListByUser returns a user's positions across markets with pagination.
func (s *PositionStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE user_id = $1 ORDER BY updated_at DESC`
	args := []any{userID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
