// Package indexer ingests on-chain event envelopes forwarded by the chain
// indexer webhook, deduplicates them by (tx_hash, log_index), and dispatches
// each fresh event to the core engine.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/service"
)

// dedupTTL is the window of the in-memory replay guard.
const dedupTTL = 10 * time.Minute

// TradeExecutor executes a trade against a market pool.
type TradeExecutor interface {
	Execute(ctx context.Context, req service.TradeRequest) (domain.TradeResult, error)
}

// MarketResolver records a market's final outcome.
type MarketResolver interface {
	Resolve(ctx context.Context, req service.ResolveRequest) (domain.Resolution, error)
}

// LiquidityAdjuster applies liquidity pool adjustments.
type LiquidityAdjuster interface {
	Adjust(ctx context.Context, marketID, userID string, eventType domain.LiquidityEventType, amount decimal.Decimal) (domain.LiquidityEvent, error)
}

// Envelope is the wire format of one webhook delivery.
type Envelope struct {
	TxHash      string          `json:"tx_hash"`
	LogIndex    int64           `json:"log_index"`
	EventName   string          `json:"event_name"`
	MarketID    string          `json:"market_id"`
	UserAddress string          `json:"user_address"`
	Payload     json.RawMessage `json:"payload"`
}

// tradePayload is the payload of a TradeExecuted event.
type tradePayload struct {
	UserID  string          `json:"user_id"`
	Outcome string          `json:"outcome"`
	Side    string          `json:"side"`
	Amount  decimal.Decimal `json:"amount"`
}

// liquidityPayload is the payload of a LiquidityAdded/LiquidityRemoved event.
type liquidityPayload struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// resolvePayload is the payload of a MarketResolved event.
type resolvePayload struct {
	Outcome    string `json:"outcome"`
	ResolverID string `json:"resolver_id"`
}

// Ingestor is the webhook event pipeline: normalize, record, dedup, dispatch.
type Ingestor struct {
	events    domain.EventStore
	trades    TradeExecutor
	markets   MarketResolver
	liquidity LiquidityAdjuster
	guard     *Dedup
	logger    *slog.Logger
}

// NewIngestor creates an Ingestor with all required dependencies.
func NewIngestor(
	events domain.EventStore,
	trades TradeExecutor,
	markets MarketResolver,
	liquidity LiquidityAdjuster,
	logger *slog.Logger,
) *Ingestor {
	return &Ingestor{
		events:    events,
		trades:    trades,
		markets:   markets,
		liquidity: liquidity,
		guard:     NewDedup(dedupTTL),
		logger:    logger,
	}
}

// Ingest processes one envelope. Replays of an already-processed
// (tx_hash, log_index) key are returned marked duplicate and never
// re-applied. A recorded event whose dispatch previously failed has a nil
// processed_at stamp; redelivering it dispatches again, so a transient
// failure never drops the event for good.
func (in *Ingestor) Ingest(ctx context.Context, env Envelope) (domain.OnchainEvent, error) {
	ev, err := in.normalize(env)
	if err != nil {
		return domain.OnchainEvent{}, err
	}

	key := fmt.Sprintf("%s:%d", ev.TxHash, ev.LogIndex)
	if in.guard.Seen(key) {
		ev.Duplicate = true
		in.logger.InfoContext(ctx, "indexer: replay short-circuited",
			slog.String("tx_hash", ev.TxHash),
			slog.Int64("log_index", ev.LogIndex),
		)
		return ev, nil
	}

	stored, created, err := in.events.Record(ctx, ev)
	if err != nil {
		return domain.OnchainEvent{}, fmt.Errorf("indexer: record event: %w", err)
	}
	if !created && stored.ProcessedAt != nil {
		stored.Duplicate = true
		in.guard.Mark(key)
		in.logger.InfoContext(ctx, "indexer: duplicate event",
			slog.String("tx_hash", stored.TxHash),
			slog.Int64("log_index", stored.LogIndex),
		)
		return stored, nil
	}
	if !created {
		in.logger.InfoContext(ctx, "indexer: redelivering unprocessed event",
			slog.String("tx_hash", stored.TxHash),
			slog.Int64("log_index", stored.LogIndex),
		)
	}

	if err := in.dispatch(ctx, stored, env.Payload); err != nil {
		return domain.OnchainEvent{}, fmt.Errorf("indexer: dispatch %s: %w", stored.EventName, err)
	}

	now := time.Now().UTC()
	if err := in.events.MarkProcessed(ctx, stored.ID, now); err != nil {
		in.logger.WarnContext(ctx, "indexer: mark processed failed",
			slog.String("event_id", stored.ID),
			slog.String("error", err.Error()),
		)
	}
	stored.ProcessedAt = &now
	in.guard.Mark(key)

	in.logger.InfoContext(ctx, "indexer: processed event",
		slog.String("event", string(stored.EventName)),
		slog.String("tx_hash", stored.TxHash),
		slog.Int64("log_index", stored.LogIndex),
		slog.String("market_id", stored.MarketID),
	)
	return stored, nil
}

// PruneReplayGuard drops expired entries from the in-memory replay guard.
// Call it periodically from a background worker.
func (in *Ingestor) PruneReplayGuard() {
	in.guard.Cleanup()
}

// normalize validates the envelope and canonicalizes its chain identifiers.
func (in *Ingestor) normalize(env Envelope) (domain.OnchainEvent, error) {
	if env.TxHash == "" {
		return domain.OnchainEvent{}, fmt.Errorf("indexer: missing tx_hash: %w", domain.ErrInvalidEvent)
	}
	if env.LogIndex < 0 {
		return domain.OnchainEvent{}, fmt.Errorf("indexer: negative log_index: %w", domain.ErrInvalidEvent)
	}

	name := domain.OnchainEventName(env.EventName)
	switch name {
	case domain.EventTradeExecuted, domain.EventLiquidityAdded,
		domain.EventLiquidityRemoved, domain.EventMarketResolved:
	default:
		return domain.OnchainEvent{}, fmt.Errorf("indexer: unknown event %q: %w", env.EventName, domain.ErrInvalidEvent)
	}

	address := env.UserAddress
	if address != "" {
		if !common.IsHexAddress(address) {
			return domain.OnchainEvent{}, fmt.Errorf("indexer: invalid user_address %q: %w", address, domain.ErrInvalidEvent)
		}
		address = common.HexToAddress(address).Hex()
	}

	var payload map[string]any
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return domain.OnchainEvent{}, fmt.Errorf("indexer: invalid payload: %w", err)
		}
	}

	return domain.OnchainEvent{
		ID:          uuid.New().String(),
		TxHash:      common.HexToHash(env.TxHash).Hex(),
		LogIndex:    env.LogIndex,
		EventName:   name,
		MarketID:    env.MarketID,
		UserAddress: address,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (in *Ingestor) dispatch(ctx context.Context, ev domain.OnchainEvent, raw json.RawMessage) error {
	switch ev.EventName {
	case domain.EventTradeExecuted:
		var p tradePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode trade payload: %w", err)
		}
		_, err := in.trades.Execute(ctx, service.TradeRequest{
			UserID:   p.UserID,
			MarketID: ev.MarketID,
			Outcome:  domain.Outcome(p.Outcome),
			Side:     domain.TradeSide(p.Side),
			Amount:   p.Amount,
		})
		return err

	case domain.EventLiquidityAdded, domain.EventLiquidityRemoved:
		var p liquidityPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode liquidity payload: %w", err)
		}
		eventType := domain.LiquidityAdd
		if ev.EventName == domain.EventLiquidityRemoved {
			eventType = domain.LiquidityRemove
		}
		_, err := in.liquidity.Adjust(ctx, ev.MarketID, p.UserID, eventType, p.Amount)
		return err

	case domain.EventMarketResolved:
		var p resolvePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode resolve payload: %w", err)
		}
		_, err := in.markets.Resolve(ctx, service.ResolveRequest{
			MarketID:   ev.MarketID,
			Outcome:    domain.Outcome(p.Outcome),
			ResolverID: p.ResolverID,
		})
		return err
	}
	return nil
}
