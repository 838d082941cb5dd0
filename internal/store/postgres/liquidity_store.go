package postgres

import (
	"context"
	"fmt"

	"github.com/predicthub/predicthub/internal/domain"
)

// LiquidityStore implements domain.LiquidityStore using PostgreSQL.
type LiquidityStore struct {
	db Querier
}

// NewLiquidityStore creates a new LiquidityStore over the given Querier.
func NewLiquidityStore(db Querier) *LiquidityStore {
	return &LiquidityStore{db: db}
}

// Append records one liquidity adjustment.
func (s *LiquidityStore) Append(ctx context.Context, ev domain.LiquidityEvent) error {
	const query = `
		INSERT INTO liquidity_events (id, market_id, user_id, event_type, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(ctx, query,
		ev.ID, ev.MarketID, ev.UserID, string(ev.EventType), ev.Amount, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append liquidity event %s: %w", ev.ID, err)
	}
	return nil
}

// ListByMarket returns a market's liquidity events, newest first.
func (s *LiquidityStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.LiquidityEvent, error) {
	query := `SELECT id, market_id, user_id, event_type, amount, created_at
		FROM liquidity_events WHERE market_id = $1 ORDER BY created_at DESC`
	args := []any{marketID}
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
		return nil, fmt.Errorf("postgres: list liquidity events for %s: %w", marketID, err)
	}
	defer rows.Close()

	var events []domain.LiquidityEvent
	for rows.Next() {
		var ev domain.LiquidityEvent
		var eventType string
		if err := rows.Scan(&ev.ID, &ev.MarketID, &ev.UserID, &eventType, &ev.Amount, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan liquidity event: %w", err)
		}
		ev.EventType = domain.LiquidityEventType(eventType)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Compile-time interface check.
var _ domain.LiquidityStore = (*LiquidityStore)(nil)
