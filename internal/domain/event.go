package domain

import "time"

// OnchainEventName identifies the kind of on-chain event an indexer
// forwards to the core.
type OnchainEventName string

const (
	EventTradeExecuted    OnchainEventName = "TradeExecuted"
	EventLiquidityAdded   OnchainEventName = "LiquidityAdded"
	EventLiquidityRemoved OnchainEventName = "LiquidityRemoved"
	EventMarketResolved   OnchainEventName = "MarketResolved"
)

// OnchainEvent is one log entry delivered by the indexer webhook, uniquely
// keyed by (tx_hash, log_index). Replays of an already-recorded key are
// marked duplicate and never re-applied.
type OnchainEvent struct {
	ID          string           `json:"id"`
	TxHash      string           `json:"tx_hash"`
	LogIndex    int64            `json:"log_index"`
	EventName   OnchainEventName `json:"event_name"`
	MarketID    string           `json:"market_id,omitempty"`
	UserAddress string           `json:"user_address,omitempty"`
	Payload     map[string]any   `json:"payload,omitempty"`
	Duplicate   bool             `json:"duplicate"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
