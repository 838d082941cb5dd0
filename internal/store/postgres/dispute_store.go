package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predicthub/predicthub/internal/domain"
)

// DisputeStore implements domain.DisputeStore using PostgreSQL.
type DisputeStore struct {
	db Querier
}

// NewDisputeStore creates a new DisputeStore over the given Querier.
func NewDisputeStore(db Querier) *DisputeStore {
	return &DisputeStore{db: db}
}

func scanDispute(row pgx.Row) (domain.Dispute, error) {
	var d domain.Dispute
	var status string

	err := row.Scan(
		&d.ID, &d.MarketID, &d.UserID, &d.BondAmount, &status,
		&d.Reason, &d.CreatedAt, &d.ResolvedAt,
	)
	if err != nil {
		return domain.Dispute{}, err
	}
	d.Status = domain.DisputeStatus(status)
	return d, nil
}

// Create files a dispute against a market's resolution.
func (s *DisputeStore) Create(ctx context.Context, d domain.Dispute) error {
	const query = `
		INSERT INTO disputes (id, market_id, user_id, bond_amount, status, reason, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, query,
		d.ID, d.MarketID, d.UserID, d.BondAmount, string(d.Status),
		d.Reason, d.CreatedAt, d.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create dispute %s: %w", d.ID, err)
	}
	return nil
}

// ListByMarket returns every dispute filed against a market.
func (s *DisputeStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Dispute, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, market_id, user_id, bond_amount, status, reason, created_at, resolved_at
		 FROM disputes WHERE market_id = $1 ORDER BY created_at`, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list disputes for %s: %w", marketID, err)
	}
	defer rows.Close()

	var disputes []domain.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

// Compile-time interface check.
var _ domain.DisputeStore = (*DisputeStore)(nil)
