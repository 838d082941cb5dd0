package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Now()
	base := Market{
		LiquidityPool: decimal.NewFromInt(200),
		EndsAt:        now.Add(24 * time.Hour),
	}

	t.Run("active", func(t *testing.T) {
		assert.Equal(t, MarketStatusActive, DeriveStatus(base, false, now))
	})

	t.Run("expired closes", func(t *testing.T) {
		m := base
		m.EndsAt = now.Add(-time.Minute)
		assert.Equal(t, MarketStatusClosed, DeriveStatus(m, false, now))
	})

	t.Run("dry liquidity closes", func(t *testing.T) {
		m := base
		m.LiquidityPool = decimal.Zero
		assert.Equal(t, MarketStatusClosed, DeriveStatus(m, false, now))
	})

	t.Run("resolution wins over expiry", func(t *testing.T) {
		m := base
		m.EndsAt = now.Add(-time.Hour)
		m.LiquidityPool = decimal.Zero
		assert.Equal(t, MarketStatusResolved, DeriveStatus(m, true, now))
	})
}

func TestUserStatsApplySettlement_Win(t *testing.T) {
	u := UserStats{
		TotalPoints: decimal.NewFromInt(10),
		Streak:      2,
	}

	next := u.ApplySettlement(SettlementOutcome{
		Winnings:    decimal.NewFromInt(80),
		Loss:        decimal.NewFromInt(20),
		Wins:        3,
		TotalTrades: 4,
	})

	assert.True(t, next.TotalPoints.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, 3, next.Streak)
	assert.True(t, next.WinRate.Equal(decimal.NewFromInt(75)))

	// The receiver is a value; the original must be untouched.
	assert.True(t, u.TotalPoints.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 2, u.Streak)
}

func TestUserStatsApplySettlement_LossResetsStreak(t *testing.T) {
	u := UserStats{
		TotalPoints: decimal.NewFromInt(10),
		Streak:      5,
	}

	next := u.ApplySettlement(SettlementOutcome{
		Winnings:    decimal.NewFromInt(10),
		Loss:        decimal.NewFromInt(30),
		Wins:        1,
		TotalTrades: 2,
	})

	assert.True(t, next.TotalPoints.Equal(decimal.NewFromInt(10)), "no points on a loss")
	assert.Equal(t, 0, next.Streak)
	assert.True(t, next.WinRate.Equal(decimal.NewFromInt(50)))
}

func TestUserStatsApplySettlement_TieIsNotAWin(t *testing.T) {
	u := UserStats{Streak: 4}

	next := u.ApplySettlement(SettlementOutcome{
		Winnings: decimal.NewFromInt(50),
		Loss:     decimal.NewFromInt(50),
	})

	assert.Equal(t, 0, next.Streak)
	assert.True(t, next.TotalPoints.IsZero())
}
