package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

func TestLiquidityAdjust(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	seedPool(m, "mkt-1", dec("100"), dec("100"))
	svc := NewLiquidityService(m.bundle(), &memTx{m}, testLogger())
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "mkt-1", "alice", domain.LiquidityAdd, dec("50"))
	require.NoError(t, err)
	assertDecEqual(t, dec("250"), m.markets["mkt-1"].LiquidityPool)

	_, err = svc.Adjust(ctx, "mkt-1", "alice", domain.LiquidityRemove, dec("30"))
	require.NoError(t, err)
	assertDecEqual(t, dec("220"), m.markets["mkt-1"].LiquidityPool)

	// Liquidity never touches the token supplies or prices.
	pool := m.tokens["mkt-1"]
	assertDecEqual(t, dec("100"), pool.Yes.Supply)
	assertDecEqual(t, dec("100"), pool.No.Supply)
	assertDecEqual(t, dec("0.5"), pool.Yes.Price)

	events, err := svc.History(ctx, "mkt-1", domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestLiquidityRemoveClampsAtZero(t *testing.T) {
	m := newMemStores()
	market := activeMarket(m, "mkt-1")
	market.LiquidityPool = dec("10")
	m.markets["mkt-1"] = market

	svc := NewLiquidityService(m.bundle(), &memTx{m}, testLogger())
	_, err := svc.Adjust(context.Background(), "mkt-1", "alice", domain.LiquidityRemove, dec("50"))
	require.NoError(t, err)
	assertDecEqual(t, dec("0"), m.markets["mkt-1"].LiquidityPool)
}

func TestLiquidityValidation(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	svc := NewLiquidityService(m.bundle(), &memTx{m}, testLogger())
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "mkt-1", "alice", domain.LiquidityAdd, dec("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Adjust(ctx, "mkt-1", "alice", "stake", dec("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidSide)

	resolvedMarket(m, "mkt-2", domain.OutcomeYes)
	_, err = svc.Adjust(ctx, "mkt-2", "alice", domain.LiquidityAdd, dec("10"))
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestLeaderboardOrdering(t *testing.T) {
	m := newMemStores()
	m.users["alice"] = domain.UserStats{UserID: "alice", TotalPoints: dec("50")}
	m.users["bob"] = domain.UserStats{UserID: "bob", TotalPoints: dec("120")}
	m.users["carol"] = domain.UserStats{UserID: "carol", TotalPoints: dec("80")}

	svc := NewLeaderboardService(m.bundle(), testLogger())
	top, err := svc.Top(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].UserID)
	assert.Equal(t, "carol", top[1].UserID)
}

func TestPositionValuation(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	seedPool(m, "mkt-1", dec("600"), dec("400"))

	m.positions[posKey("alice", "mkt-1")] = domain.Position{
		ID: "p1", UserID: "alice", MarketID: "mkt-1",
		YesTokens: dec("100"), NoTokens: dec("0"), TotalStaked: dec("40"),
	}

	svc := NewPositionService(m.bundle(), nil, testLogger())
	view, err := svc.Get(context.Background(), "alice", "mkt-1")
	require.NoError(t, err)

	// Value 100 * 0.6 = 60 against a 40 basis: +20, +50%.
	assertDecEqual(t, dec("60"), view.PnL.Yes.CurrentValue)
	assertDecEqual(t, dec("20"), view.PnL.Yes.ProfitLoss)
	assertDecEqual(t, dec("50"), view.PnL.Yes.ProfitLossPercent)
	assertDecEqual(t, dec("20"), view.PnL.Total)
}
