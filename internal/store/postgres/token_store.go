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

// TokenStore implements domain.TokenStore using PostgreSQL.
type TokenStore struct {
	db Querier
}

// NewTokenStore creates a new TokenStore over the given Querier.
func NewTokenStore(db Querier) *TokenStore {
	return &TokenStore{db: db}
}

const tokenSelectCols = `id, market_id, outcome, supply, price, created_at, updated_at`

func scanToken(row pgx.Row) (domain.OutcomeToken, error) {
	var t domain.OutcomeToken
	var outcome string

	err := row.Scan(&t.ID, &t.MarketID, &outcome, &t.Supply, &t.Price, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.OutcomeToken{}, err
	}
	t.Outcome = domain.Outcome(outcome)
	return t, nil
}

func (s *TokenStore) get(ctx context.Context, marketID string, outcome domain.Outcome) (domain.OutcomeToken, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+tokenSelectCols+` FROM outcome_tokens WHERE market_id = $1 AND outcome = $2`,
		marketID, string(outcome))
	return scanToken(row)
}

func (s *TokenStore) create(ctx context.Context, marketID string, outcome domain.Outcome) (domain.OutcomeToken, error) {
	t := domain.OutcomeToken{
		ID:        uuid.New().String(),
		MarketID:  marketID,
		Outcome:   outcome,
		Supply:    decimal.Zero,
		Price:     decimal.New(5, -1),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	const query = `
		INSERT INTO outcome_tokens (id, market_id, outcome, supply, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (market_id, outcome) DO NOTHING`

	if _, err := s.db.Exec(ctx, query,
		t.ID, t.MarketID, string(t.Outcome), t.Supply, t.Price, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return domain.OutcomeToken{}, err
	}

	// Re-read so a concurrent creator's row wins consistently.
	return s.get(ctx, marketID, outcome)
}

func (s *TokenStore) ensure(ctx context.Context, marketID string, outcome domain.Outcome) (domain.OutcomeToken, error) {
	t, err := s.get(ctx, marketID, outcome)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.OutcomeToken{}, err
	}
	return s.create(ctx, marketID, outcome)
}

// EnsurePair returns the market's YES/NO token pair, creating both tokens
// with zero supply and price 0.5 when absent.
func (s *TokenStore) EnsurePair(ctx context.Context, marketID string) (*domain.Pool, error) {
	yes, err := s.ensure(ctx, marketID, domain.OutcomeYes)
	if err != nil {
		return nil, fmt.Errorf("postgres: ensure YES token for %s: %w", marketID, err)
	}
	no, err := s.ensure(ctx, marketID, domain.OutcomeNo)
	if err != nil {
		return nil, fmt.Errorf("postgres: ensure NO token for %s: %w", marketID, err)
	}
	return &domain.Pool{Yes: &yes, No: &no}, nil
}

// GetPair returns the market's existing token pair, or domain.ErrNotFound
// when either side is missing.
func (s *TokenStore) GetPair(ctx context.Context, marketID string) (*domain.Pool, error) {
	yes, err := s.get(ctx, marketID, domain.OutcomeYes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get YES token for %s: %w", marketID, err)
	}
	no, err := s.get(ctx, marketID, domain.OutcomeNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get NO token for %s: %w", marketID, err)
	}
	return &domain.Pool{Yes: &yes, No: &no}, nil
}

// UpdatePair persists the supplies and prices of both sides of a pool.
func (s *TokenStore) UpdatePair(ctx context.Context, pool *domain.Pool) error {
	const query = `
		UPDATE outcome_tokens SET supply = $2, price = $3, updated_at = NOW()
		WHERE id = $1`

	for _, t := range []*domain.OutcomeToken{pool.Yes, pool.No} {
		tag, err := s.db.Exec(ctx, query, t.ID, t.Supply, t.Price)
		if err != nil {
			return fmt.Errorf("postgres: update token %s: %w", t.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.TokenStore = (*TokenStore)(nil)
