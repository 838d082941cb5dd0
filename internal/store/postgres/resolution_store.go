package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/predicthub/predicthub/internal/domain"
)

// ResolutionStore implements domain.ResolutionStore using PostgreSQL.
type ResolutionStore struct {
	db Querier
}

// NewResolutionStore creates a new ResolutionStore over the given Querier.
func NewResolutionStore(db Querier) *ResolutionStore {
	return &ResolutionStore{db: db}
}

const resolutionSelectCols = `id, market_id, resolved_outcome, resolver_id, dispute_window,
	bond_amount, settled_at, created_at`

func scanResolution(row pgx.Row) (domain.Resolution, error) {
	var r domain.Resolution
	var outcome string

	err := row.Scan(
		&r.ID, &r.MarketID, &outcome, &r.ResolverID, &r.DisputeWindow,
		&r.BondAmount, &r.SettledAt, &r.CreatedAt,
	)
	if err != nil {
		return domain.Resolution{}, err
	}
	r.ResolvedOutcome = domain.Outcome(outcome)
	return r, nil
}

// Create inserts a resolution. The markets(id) UNIQUE constraint turns a
// second resolution for the same market into domain.ErrAlreadyResolved.
func (s *ResolutionStore) Create(ctx context.Context, r domain.Resolution) error {
	const query = `
		INSERT INTO resolutions (id, market_id, resolved_outcome, resolver_id, dispute_window, bond_amount, settled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (market_id) DO NOTHING`

	tag, err := s.db.Exec(ctx, query,
		r.ID, r.MarketID, string(r.ResolvedOutcome), r.ResolverID, r.DisputeWindow,
		r.BondAmount, r.SettledAt, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create resolution for %s: %w", r.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyResolved
	}
	return nil
}

// GetByMarket retrieves the resolution for a market.
func (s *ResolutionStore) GetByMarket(ctx context.Context, marketID string) (domain.Resolution, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+resolutionSelectCols+` FROM resolutions WHERE market_id = $1`, marketID)

	r, err := scanResolution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Resolution{}, domain.ErrNotFound
		}
		return domain.Resolution{}, fmt.Errorf("postgres: get resolution for %s: %w", marketID, err)
	}
	return r, nil
}

// MarkSettled stamps settled_at exactly once. A resolution already carrying
// the stamp yields domain.ErrAlreadySettled.
func (s *ResolutionStore) MarkSettled(ctx context.Context, id string, settledAt time.Time) error {
	const query = `
		UPDATE resolutions SET settled_at = $2
		WHERE id = $1 AND settled_at IS NULL`

	tag, err := s.db.Exec(ctx, query, id, settledAt)
	if err != nil {
		return fmt.Errorf("postgres: mark resolution %s settled: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM resolutions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check resolution %s: %w", id, err)
		}
		if exists {
			return domain.ErrAlreadySettled
		}
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.ResolutionStore = (*ResolutionStore)(nil)
