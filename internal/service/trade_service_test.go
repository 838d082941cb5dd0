package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predicthub/predicthub/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func assertDecEqual(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	tolerance := decimal.New(1, -9)
	assert.True(t, want.Sub(got).Abs().LessThanOrEqual(tolerance),
		"want %s, got %s", want.String(), got.String())
}

func activeMarket(m *memStores, id string) domain.Market {
	market := domain.Market{
		ID:            id,
		Title:         "Will it rain tomorrow?",
		Status:        domain.MarketStatusActive,
		LiquidityPool: decimal.Zero,
		FeePercentage: dec("0.02"),
		CreatedAt:     time.Now().UTC(),
		EndsAt:        time.Now().UTC().Add(24 * time.Hour),
	}
	m.markets[id] = market
	return market
}

func seedPool(m *memStores, marketID string, yes, no decimal.Decimal) {
	ctx := context.Background()
	pool, _ := (*memTokenStore)(m).EnsurePair(ctx, marketID)
	pool.Yes.Supply = yes
	pool.No.Supply = no
	pool.Reprice()

	market := m.markets[marketID]
	market.LiquidityPool = pool.TotalSupply()
	m.markets[marketID] = market
}

func TestExecuteBootstrapBuy(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	svc := NewTradeService(&memTx{m}, nil, nil, testLogger())

	result, err := svc.Execute(context.Background(), TradeRequest{
		UserID:   "alice",
		MarketID: "mkt-1",
		Outcome:  domain.OutcomeYes,
		Side:     domain.TradeSideBuy,
		Amount:   dec("100"),
	})
	require.NoError(t, err)

	assertDecEqual(t, dec("100"), result.YesTokens)
	assertDecEqual(t, dec("0"), result.NoTokens)
	assertDecEqual(t, dec("100"), result.TotalStaked)
	assertDecEqual(t, dec("0.5"), result.YesPrice)
	assertDecEqual(t, dec("0.5"), result.NoPrice)

	pool := m.tokens["mkt-1"]
	assertDecEqual(t, dec("100"), pool.Yes.Supply)
	assertDecEqual(t, dec("100"), pool.No.Supply)

	require.Len(t, m.trades, 1)
	trade := m.trades[0]
	assert.Equal(t, domain.TradeSideBuy, trade.Side)
	assertDecEqual(t, dec("100"), trade.AmountStaked)
	assertDecEqual(t, dec("100"), trade.TokensAmount)
	assertDecEqual(t, dec("0.5"), trade.PriceAtExecution)

	require.Len(t, m.prices, 1)
	assertDecEqual(t, dec("0.5"), m.prices[0].YesPrice)
}

func TestExecuteConstantProductBuy(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	seedPool(m, "mkt-1", dec("600"), dec("400"))
	svc := NewTradeService(&memTx{m}, nil, nil, testLogger())

	result, err := svc.Execute(context.Background(), TradeRequest{
		UserID:   "alice",
		MarketID: "mkt-1",
		Outcome:  domain.OutcomeYes,
		Side:     domain.TradeSideBuy,
		Amount:   dec("100"),
	})
	require.NoError(t, err)

	pool := m.tokens["mkt-1"]
	assertDecEqual(t, dec("700"), pool.Yes.Supply)
	// k = 240000, new NO supply = 240000 / 700
	assertDecEqual(t, dec("240000").Div(dec("700")), pool.No.Supply)

	// Buyer receives the NO-side shrinkage.
	expected := dec("400").Sub(dec("240000").Div(dec("700")))
	assertDecEqual(t, expected, result.YesTokens)

	// Price at execution uses pre-trade supplies: 600/1000.
	require.Len(t, m.trades, 1)
	assertDecEqual(t, dec("0.6"), m.trades[0].PriceAtExecution)

	// Market liquidity mirrors total supply after the trade.
	market := m.markets["mkt-1"]
	assertDecEqual(t, pool.TotalSupply(), market.LiquidityPool)
}

func TestExecuteSellRoundTrip(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	svc := NewTradeService(&memTx{m}, nil, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Execute(ctx, TradeRequest{
		UserID: "alice", MarketID: "mkt-1",
		Outcome: domain.OutcomeYes, Side: domain.TradeSideBuy, Amount: dec("100"),
	})
	require.NoError(t, err)

	result, err := svc.Execute(ctx, TradeRequest{
		UserID: "alice", MarketID: "mkt-1",
		Outcome: domain.OutcomeYes, Side: domain.TradeSideSell, Amount: dec("40"),
	})
	require.NoError(t, err)

	assertDecEqual(t, dec("60"), result.YesTokens)

	// Proportional basis: all stake sat on YES, so selling 40 of 100 tokens
	// releases 40 of the 100 staked.
	assertDecEqual(t, dec("60"), result.TotalStaked)

	require.Len(t, m.trades, 2)
	sell := m.trades[1]
	assert.Equal(t, domain.TradeSideSell, sell.Side)
	assertDecEqual(t, dec("40"), sell.TokensAmount)
	assert.True(t, sell.AmountStaked.IsPositive(), "sell proceeds recorded as the cash leg")
}

func TestExecutePreconditions(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	svc := NewTradeService(&memTx{m}, nil, nil, testLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     TradeRequest
		wantErr error
	}{
		{
			name: "zero amount",
			req: TradeRequest{
				UserID: "alice", MarketID: "mkt-1",
				Outcome: domain.OutcomeYes, Side: domain.TradeSideBuy, Amount: decimal.Zero,
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req: TradeRequest{
				UserID: "alice", MarketID: "mkt-1",
				Outcome: domain.OutcomeYes, Side: domain.TradeSideBuy, Amount: dec("-5"),
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "bad outcome",
			req: TradeRequest{
				UserID: "alice", MarketID: "mkt-1",
				Outcome: "MAYBE", Side: domain.TradeSideBuy, Amount: dec("10"),
			},
			wantErr: domain.ErrInvalidOutcome,
		},
		{
			name: "bad side",
			req: TradeRequest{
				UserID: "alice", MarketID: "mkt-1",
				Outcome: domain.OutcomeYes, Side: "HOLD", Amount: dec("10"),
			},
			wantErr: domain.ErrInvalidSide,
		},
		{
			name: "unknown market",
			req: TradeRequest{
				UserID: "alice", MarketID: "mkt-404",
				Outcome: domain.OutcomeYes, Side: domain.TradeSideBuy, Amount: dec("10"),
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "sell without tokens",
			req: TradeRequest{
				UserID: "bob", MarketID: "mkt-1",
				Outcome: domain.OutcomeYes, Side: domain.TradeSideSell, Amount: dec("10"),
			},
			wantErr: domain.ErrInsufficientTokens,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Execute(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, m.trades, "failed trades must not record anything")
}

func TestExecuteRejectsInactiveMarket(t *testing.T) {
	m := newMemStores()
	market := activeMarket(m, "mkt-1")
	market.Status = domain.MarketStatusClosed
	m.markets["mkt-1"] = market

	svc := NewTradeService(&memTx{m}, nil, nil, testLogger())
	_, err := svc.Execute(context.Background(), TradeRequest{
		UserID: "alice", MarketID: "mkt-1",
		Outcome: domain.OutcomeYes, Side: domain.TradeSideBuy, Amount: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
	assert.Empty(t, m.trades)
}

func TestExecuteFailedSellLeavesStateUntouched(t *testing.T) {
	m := newMemStores()
	activeMarket(m, "mkt-1")
	svc := NewTradeService(&memTx{m}, nil, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Execute(ctx, TradeRequest{
		UserID: "alice", MarketID: "mkt-1",
		Outcome: domain.OutcomeYes, Side: domain.TradeSideBuy, Amount: dec("100"),
	})
	require.NoError(t, err)

	before := m.positions[posKey("alice", "mkt-1")]

	_, err = svc.Execute(ctx, TradeRequest{
		UserID: "alice", MarketID: "mkt-1",
		Outcome: domain.OutcomeYes, Side: domain.TradeSideSell, Amount: dec("1000"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientTokens)

	after := m.positions[posKey("alice", "mkt-1")]
	assertDecEqual(t, before.YesTokens, after.YesTokens)
	assertDecEqual(t, before.TotalStaked, after.TotalStaked)
	assert.Len(t, m.trades, 1)
}
