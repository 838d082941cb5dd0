package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

func resolvedMarket(m *memStores, id string, winner domain.Outcome) domain.Resolution {
	market := activeMarket(m, id)
	market.Status = domain.MarketStatusResolved
	market.ResolutionOutcome = &winner
	m.markets[id] = market

	res := domain.Resolution{
		ID:              uuid.New().String(),
		MarketID:        id,
		ResolvedOutcome: winner,
		ResolverID:      "oracle",
		DisputeWindow:   time.Now().UTC().Add(24 * time.Hour),
		BondAmount:      dec("100"),
		CreatedAt:       time.Now().UTC(),
	}
	m.resolutions[id] = res
	return res
}

func TestSettleCreditsWinnersAndResetsLosers(t *testing.T) {
	m := newMemStores()
	resolvedMarket(m, "mkt-1", domain.OutcomeYes)

	m.positions[posKey("alice", "mkt-1")] = domain.Position{
		ID: "p1", UserID: "alice", MarketID: "mkt-1",
		YesTokens: dec("80"), NoTokens: dec("20"), TotalStaked: dec("50"),
	}
	m.positions[posKey("bob", "mkt-1")] = domain.Position{
		ID: "p2", UserID: "bob", MarketID: "mkt-1",
		YesTokens: dec("0"), NoTokens: dec("30"), TotalStaked: dec("30"),
	}
	m.users["bob"] = domain.UserStats{UserID: "bob", TotalPoints: dec("10"), Streak: 3}

	m.trades = []domain.Trade{
		{ID: "t1", UserID: "alice", MarketID: "mkt-1", Outcome: domain.OutcomeYes},
		{ID: "t2", UserID: "alice", MarketID: "mkt-1", Outcome: domain.OutcomeNo},
		{ID: "t3", UserID: "bob", MarketID: "mkt-1", Outcome: domain.OutcomeNo},
	}

	svc := NewSettlementService(&memTx{m}, nil, testLogger())
	report, err := svc.Settle(context.Background(), "mkt-1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Positions)
	assert.Equal(t, 2, report.Settled)
	assert.Equal(t, 0, report.Skipped)

	// Alice: 80 winnings - 20 loss = +60 points, streak starts.
	alice := m.users["alice"]
	assertDecEqual(t, dec("60"), alice.TotalPoints)
	assert.Equal(t, 1, alice.Streak)
	// 1 winning trade of 2 total.
	assertDecEqual(t, dec("50"), alice.WinRate)

	// Bob lost: points unchanged, streak reset.
	bob := m.users["bob"]
	assertDecEqual(t, dec("10"), bob.TotalPoints)
	assert.Equal(t, 0, bob.Streak)

	// The resolution carries the settled marker.
	assert.NotNil(t, m.resolutions["mkt-1"].SettledAt)

	// An audit entry records the run.
	require.Len(t, m.audit, 1)
	assert.Equal(t, "market_settled", m.audit[0].Event)
}

func TestSettleIsIdempotent(t *testing.T) {
	m := newMemStores()
	resolvedMarket(m, "mkt-1", domain.OutcomeYes)
	m.positions[posKey("alice", "mkt-1")] = domain.Position{
		ID: "p1", UserID: "alice", MarketID: "mkt-1",
		YesTokens: dec("10"), NoTokens: dec("0"), TotalStaked: dec("5"),
	}

	svc := NewSettlementService(&memTx{m}, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Settle(ctx, "mkt-1")
	require.NoError(t, err)
	pointsAfterFirst := m.users["alice"].TotalPoints

	_, err = svc.Settle(ctx, "mkt-1")
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	assertDecEqual(t, pointsAfterFirst, m.users["alice"].TotalPoints)
}

func TestSettleRequiresResolution(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")

	svc := NewSettlementService(&memTx{m}, nil, testLogger())
	_, err := svc.Settle(context.Background(), "mkt-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettleResetsStreakOnEmptyPosition(t *testing.T) {
	m := newMemStores()
	resolvedMarket(m, "mkt-1", domain.OutcomeYes)

	// Carol exited the market before resolution but still has a position
	// row. She did not win, so her streak resets like any other loser.
	m.positions[posKey("carol", "mkt-1")] = domain.Position{
		ID: "p1", UserID: "carol", MarketID: "mkt-1",
		YesTokens: dec("0"), NoTokens: dec("0"), TotalStaked: dec("0"),
	}
	m.users["carol"] = domain.UserStats{UserID: "carol", TotalPoints: dec("40"), Streak: 5}
	m.trades = []domain.Trade{
		{ID: "t1", UserID: "carol", MarketID: "mkt-1", Outcome: domain.OutcomeYes},
		{ID: "t2", UserID: "carol", MarketID: "mkt-1", Outcome: domain.OutcomeNo},
	}

	svc := NewSettlementService(&memTx{m}, nil, testLogger())
	report, err := svc.Settle(context.Background(), "mkt-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Positions)
	assert.Equal(t, 1, report.Settled)

	carol := m.users["carol"]
	assert.Equal(t, 0, carol.Streak)
	assertDecEqual(t, dec("40"), carol.TotalPoints)
	assertDecEqual(t, dec("50"), carol.WinRate)
}
