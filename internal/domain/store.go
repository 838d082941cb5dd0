package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists markets.
type MarketStore interface {
	Create(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	Update(ctx context.Context, market Market) error
	List(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
}

// TokenStore persists the YES/NO outcome tokens of a market.
type TokenStore interface {
	// EnsurePair returns the market's token pair, creating both tokens
	// with zero supply and price 0.5 when absent.
	EnsurePair(ctx context.Context, marketID string) (*Pool, error)
	GetPair(ctx context.Context, marketID string) (*Pool, error)
	UpdatePair(ctx context.Context, pool *Pool) error
}

// PositionStore persists per-(user, market) positions.
type PositionStore interface {
	// GetOrCreate returns the position for (userID, marketID), creating a
	// zeroed one when absent.
	GetOrCreate(ctx context.Context, userID, marketID string) (Position, error)
	Get(ctx context.Context, userID, marketID string) (Position, error)
	Update(ctx context.Context, pos Position) error
	ListByMarket(ctx context.Context, marketID string) ([]Position, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Position, error)
}

// TradeStore persists immutable trade records.
type TradeStore interface {
	Create(ctx context.Context, trade Trade) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Trade, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Trade, error)
	// CountByUser counts all of a user's trades regardless of market state.
	CountByUser(ctx context.Context, userID string) (int64, error)
	// CountWinsByUser counts the user's trades on the given outcome,
	// restricted to resolved markets.
	CountWinsByUser(ctx context.Context, userID string, outcome Outcome) (int64, error)
}

// PriceHistoryStore persists the append-only per-trade price series.
type PriceHistoryStore interface {
	Append(ctx context.Context, point PricePoint) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]PricePoint, error)
}

// ResolutionStore persists market resolutions.
type ResolutionStore interface {
	Create(ctx context.Context, res Resolution) error
	GetByMarket(ctx context.Context, marketID string) (Resolution, error)
	MarkSettled(ctx context.Context, id string, settledAt time.Time) error
}

// DisputeStore persists disputes against resolutions.
type DisputeStore interface {
	Create(ctx context.Context, d Dispute) error
	ListByMarket(ctx context.Context, marketID string) ([]Dispute, error)
}

// UserStore persists user scoring aggregates.
type UserStore interface {
	GetStats(ctx context.Context, userID string) (UserStats, error)
	UpdateStats(ctx context.Context, stats UserStats) error
	ListTop(ctx context.Context, limit int) ([]UserStats, error)
}

// LiquidityStore persists the append-only liquidity event log.
type LiquidityStore interface {
	Append(ctx context.Context, ev LiquidityEvent) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]LiquidityEvent, error)
}

// EventStore persists on-chain event logs keyed by (tx_hash, log_index).
type EventStore interface {
	// Record inserts the event if its key is new and returns the stored
	// row. created is false when the key was already present, in which
	// case the existing row is returned and the replay must not be
	// re-applied.
	Record(ctx context.Context, ev OnchainEvent) (stored OnchainEvent, created bool, err error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]OnchainEvent, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Stores bundles every store participating in a transactional unit of
// work. Inside TxRunner.WithinTx all stores operate on the same database
// transaction.
type Stores struct {
	Markets     MarketStore
	Tokens      TokenStore
	Positions   PositionStore
	Trades      TradeStore
	Prices      PriceHistoryStore
	Resolutions ResolutionStore
	Disputes    DisputeStore
	Users       UserStore
	Liquidity   LiquidityStore
	Events      EventStore
	Audit       AuditStore
}

// TxRunner executes a function atomically: every store mutation made
// through the passed Stores either commits as a whole or rolls back as a
// whole.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
