package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resolution is the final outcome of a market. One per market; read-only
// after creation except for the SettledAt marker, which the settlement
// engine stamps exactly once to make re-invocation a no-op.
type Resolution struct {
	ID              string          `json:"id"`
	MarketID        string          `json:"market_id"`
	ResolvedOutcome Outcome         `json:"resolved_outcome"`
	ResolverID      string          `json:"resolver_id,omitempty"`
	DisputeWindow   time.Time       `json:"dispute_window"`
	BondAmount      decimal.Decimal `json:"bond_amount"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Settled reports whether settlement has already run for this resolution.
func (r *Resolution) Settled() bool {
	return r.SettledAt != nil
}

// DisputeStatus tracks the review state of a dispute.
type DisputeStatus string

const (
	DisputeStatusPending  DisputeStatus = "pending"
	DisputeStatusAccepted DisputeStatus = "accepted"
	DisputeStatusRejected DisputeStatus = "rejected"
)

// Dispute is a bonded challenge against a resolution, filed inside the
// dispute window. Review and any resulting revert are admin actions
// outside the engine.
type Dispute struct {
	ID         string          `json:"id"`
	MarketID   string          `json:"market_id"`
	UserID     string          `json:"user_id"`
	BondAmount decimal.Decimal `json:"bond_amount"`
	Status     DisputeStatus   `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}
