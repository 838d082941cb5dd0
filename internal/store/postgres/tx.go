package postgres

import (
	"context"
	"fmt"

	"github.com/predicthub/predicthub/internal/domain"
)

// NewStores builds a domain.Stores bundle over the given Querier. Passing
// a pool yields auto-commit stores; passing a pgx.Tx yields stores that
// share one transaction.
func NewStores(q Querier) domain.Stores {
	return domain.Stores{
		Markets:     NewMarketStore(q),
		Tokens:      NewTokenStore(q),
		Positions:   NewPositionStore(q),
		Trades:      NewTradeStore(q),
		Prices:      NewPriceHistoryStore(q),
		Resolutions: NewResolutionStore(q),
		Disputes:    NewDisputeStore(q),
		Users:       NewUserStore(q),
		Liquidity:   NewLiquidityStore(q),
		Events:      NewEventStore(q),
		Audit:       NewAuditStore(q),
	}
}

// TxRunner implements domain.TxRunner using pgx transactions.
type TxRunner struct {
	client *Client
}

// NewTxRunner creates a TxRunner backed by the given Client.
func NewTxRunner(client *Client) *TxRunner {
	return &TxRunner{client: client}
}

// WithinTx begins a transaction, builds a tx-scoped Stores bundle, and
// runs fn. Any error from fn (or the commit) rolls the whole unit back.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	tx, err := r.client.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(ctx, NewStores(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.TxRunner = (*TxRunner)(nil)
