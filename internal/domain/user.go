package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStats is the scoring aggregate the settlement engine maintains per
// user: cumulative points, current streak, and win rate over all trades.
type UserStats struct {
	UserID      string          `json:"user_id"`
	Username    string          `json:"username,omitempty"`
	TotalPoints decimal.Decimal `json:"total_points"`
	WinRate     decimal.Decimal `json:"win_rate"`
	Streak      int             `json:"streak"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SettlementOutcome is the per-position input to a stats update: the token
// counts on the winning and losing side, plus the user's trade counts for
// the win-rate recompute.
type SettlementOutcome struct {
	Winnings    decimal.Decimal
	Loss        decimal.Decimal
	Wins        int64 // trades on the resolved outcome in resolved markets
	TotalTrades int64 // all of the user's trades, any market or status
}

// ApplySettlement returns the stats after settling one position. A net win
// adds winnings minus loss to the points and extends the streak; anything
// else resets the streak. Win rate is recomputed from the trade counts
// whenever the user has traded at all.
func (u UserStats) ApplySettlement(o SettlementOutcome) UserStats {
	next := u

	if o.Winnings.Cmp(o.Loss) > 0 {
		next.TotalPoints = u.TotalPoints.Add(o.Winnings.Sub(o.Loss))
		next.Streak = u.Streak + 1
	} else {
		next.Streak = 0
	}

	if o.TotalTrades > 0 {
		wins := decimal.NewFromInt(o.Wins)
		total := decimal.NewFromInt(o.TotalTrades)
		next.WinRate = wins.Div(total).Mul(hundred)
	}

	return next
}
