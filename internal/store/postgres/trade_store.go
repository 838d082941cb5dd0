package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predicthub/predicthub/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	db Querier
}

// NewTradeStore creates a new TradeStore over the given Querier.
func NewTradeStore(db Querier) *TradeStore {
	return &TradeStore{db: db}
}

const tradeSelectCols = `id, user_id, market_id, outcome, side, amount_staked,
	tokens_amount, price_at_execution, created_at`

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var t domain.Trade
	var outcome, side string

	err := row.Scan(
		&t.ID, &t.UserID, &t.MarketID, &outcome, &side,
		&t.AmountStaked, &t.TokensAmount, &t.PriceAtExecution, &t.CreatedAt,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	t.Outcome = domain.Outcome(outcome)
	t.Side = domain.TradeSide(side)
	return t, nil
}

// Create appends an immutable trade record.
func (s *TradeStore) Create(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, user_id, market_id, outcome, side,
			amount_staked, tokens_amount, price_at_execution, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.Exec(ctx, query,
		t.ID, t.UserID, t.MarketID, string(t.Outcome), string(t.Side),
		t.AmountStaked, t.TokensAmount, t.PriceAtExecution, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *TradeStore) list(ctx context.Context, where string, whereArg string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE ` + where + ` = $1`
	args := []any{whereArg}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

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
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListByMarket returns trades for a market with pagination.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.list(ctx, "market_id", marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by market %s: %w", marketID, err)
	}
	return trades, nil
}

// ListByUser returns trades for a user with pagination.
func (s *TradeStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.list(ctx, "user_id", userID, opts)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by user %s: %w", userID, err)
	}
	return trades, nil
}

// CountByUser counts all of a user's trades regardless of market state.
func (s *TradeStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM trades WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count trades for user %s: %w", userID, err)
	}
	return count, nil
}

// CountWinsByUser counts the user's trades on the given outcome within
// resolved markets.
func (s *TradeStore) CountWinsByUser(ctx context.Context, userID string, outcome domain.Outcome) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM trades t
		JOIN markets m ON m.id = t.market_id
		WHERE t.user_id = $1 AND t.outcome = $2 AND m.status = 'resolved'`

	var count int64
	err := s.db.QueryRow(ctx, query, userID, string(outcome)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count wins for user %s: %w", userID, err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
