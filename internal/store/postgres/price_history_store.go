package postgres

import (
	"context"
	"fmt"

	"github.com/predicthub/predicthub/internal/domain"
)

// PriceHistoryStore implements domain.PriceHistoryStore using PostgreSQL.
type PriceHistoryStore struct {
	db Querier
}

// NewPriceHistoryStore creates a new PriceHistoryStore over the given Querier.
func NewPriceHistoryStore(db Querier) *PriceHistoryStore {
	return &PriceHistoryStore{db: db}
}

// Append records one price point after a trade.
func (s *PriceHistoryStore) Append(ctx context.Context, point domain.PricePoint) error {
	const query = `
		INSERT INTO price_history (market_id, yes_price, no_price, ts)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.Exec(ctx, query, point.MarketID, point.YesPrice, point.NoPrice, point.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: append price point for %s: %w", point.MarketID, err)
	}
	return nil
}

// ListByMarket returns the price series for a market, newest first.
func (s *PriceHistoryStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.PricePoint, error) {
	query := `SELECT id, market_id, yes_price, no_price, ts FROM price_history WHERE market_id = $1`
	args := []any{marketID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND ts >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND ts <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY ts DESC"

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
		return nil, fmt.Errorf("postgres: list price history for %s: %w", marketID, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ID, &p.MarketID, &p.YesPrice, &p.NoPrice, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan price point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Compile-time interface check.
var _ domain.PriceHistoryStore = (*PriceHistoryStore)(nil)
