package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predicthub/predicthub/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	db Querier
}

// NewMarketStore creates a new MarketStore over the given Querier.
func NewMarketStore(db Querier) *MarketStore {
	return &MarketStore{db: db}
}

const marketSelectCols = `id, title, description, category, status, resolution_outcome,
	liquidity_pool, fee_percentage, created_by, created_at, ends_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status string
	var resolutionOutcome *string

	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Category, &status, &resolutionOutcome,
		&m.LiquidityPool, &m.FeePercentage, &m.CreatedBy, &m.CreatedAt, &m.EndsAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	if resolutionOutcome != nil {
		o := domain.Outcome(*resolutionOutcome)
		m.ResolutionOutcome = &o
	}
	return m, nil
}

// Create inserts a new market.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, title, description, category, status, resolution_outcome,
			liquidity_pool, fee_percentage, created_by, created_at, ends_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var resolutionOutcome *string
	if m.ResolutionOutcome != nil {
		v := string(*m.ResolutionOutcome)
		resolutionOutcome = &v
	}

	_, err := s.db.Exec(ctx, query,
		m.ID, m.Title, m.Description, m.Category, string(m.Status), resolutionOutcome,
		m.LiquidityPool, m.FeePercentage, m.CreatedBy, m.CreatedAt, m.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// GetByID retrieves a single market.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE id = $1`, id)

	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// Update replaces the mutable fields of a market (status, resolution
// outcome, liquidity pool).
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			status             = $2,
			resolution_outcome = $3,
			liquidity_pool     = $4
		WHERE id = $1`

	var resolutionOutcome *string
	if m.ResolutionOutcome != nil {
		v := string(*m.ResolutionOutcome)
		resolutionOutcome = &v
	}

	tag, err := s.db.Exec(ctx, query, m.ID, string(m.Status), resolutionOutcome, m.LiquidityPool)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns markets, optionally filtered by status, with pagination.
func (s *MarketStore) List(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets WHERE 1=1`
	args := []any{}
	argIdx := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(status))
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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
