// Package service implements the prediction-market engine: trade execution,
// market lifecycle, settlement, position valuation, liquidity adjustments,
// and the leaderboard read model.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/predicthub/predicthub/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// settleLockTTL bounds how long the distributed settlement lock is held.
const settleLockTTL = 2 * time.Minute

// SettlementService pays out resolved markets. Settlement runs at most once
// per market: a redis lock fences concurrent workers and the settled_at
// marker on the resolution makes re-invocation a no-op.
type SettlementService struct {
	tx     domain.TxRunner
	locks  domain.LockManager
	logger *slog.Logger
}

// NewSettlementService creates a SettlementService. locks may be nil in
// single-instance deployments.
func NewSettlementService(tx domain.TxRunner, locks domain.LockManager, logger *slog.Logger) *SettlementService {
	return &SettlementService{tx: tx, locks: locks, logger: logger}
}

// SettlementReport summarizes one settlement run.
type SettlementReport struct {
	MarketID  string
	Positions int
	Settled   int
	Skipped   int
}

// Settle walks every position in a resolved market, credits winners and
// resets losers' streaks, then stamps the resolution settled. A failure on
// one position is logged and skipped; it never aborts the batch. Calling
// Settle again after a successful run returns ErrAlreadySettled.
func (s *SettlementService) Settle(ctx context.Context, marketID string) (SettlementReport, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "settle:"+marketID, settleLockTTL)
		if err != nil {
			return SettlementReport{}, fmt.Errorf("settlement_service: settle %s: %w", marketID, err)
		}
		defer unlock()
	}

	report := SettlementReport{MarketID: marketID}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		res, err := st.Resolutions.GetByMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if res.Settled() {
			return domain.ErrAlreadySettled
		}

		market, err := st.Markets.GetByID(ctx, marketID)
		if err != nil {
			return err
		}
		if market.Status != domain.MarketStatusResolved {
			return domain.ErrMarketNotActive
		}

		positions, err := st.Positions.ListByMarket(ctx, marketID)
		if err != nil {
			return err
		}
		report.Positions = len(positions)

		for _, pos := range positions {
			if err := s.settlePosition(ctx, st, res.ResolvedOutcome, pos); err != nil {
				report.Skipped++
				s.logger.ErrorContext(ctx, "settlement_service: position failed",
					slog.String("market_id", marketID),
					slog.String("user_id", pos.UserID),
					slog.String("error", err.Error()),
				)
				continue
			}
			report.Settled++
		}

		if err := st.Resolutions.MarkSettled(ctx, res.ID, time.Now().UTC()); err != nil {
			return err
		}

		return st.Audit.Log(ctx, "market_settled", map[string]any{
			"market_id": marketID,
			"outcome":   string(res.ResolvedOutcome),
			"positions": report.Positions,
			"settled":   report.Settled,
			"skipped":   report.Skipped,
		})
	})
	if err != nil {
		return SettlementReport{}, fmt.Errorf("settlement_service: settle %s: %w", marketID, err)
	}

	s.logger.InfoContext(ctx, "settlement_service: settled market",
		slog.String("market_id", marketID),
		slog.Int("positions", report.Positions),
		slog.Int("settled", report.Settled),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

// settlePosition scores one position: winnings are the tokens held on the
// resolved outcome, the loss is the tokens held on the other side, and the
// user's aggregates absorb the difference. Positions that hold nothing on
// either side still settle: the streak resets and the win rate is
// recomputed, same as any non-winning position.
func (s *SettlementService) settlePosition(ctx context.Context, st domain.Stores, winner domain.Outcome, pos domain.Position) error {
	winnings := pos.Tokens(winner)
	loss := pos.Tokens(winner.Opposite())

	totalTrades, err := st.Trades.CountByUser(ctx, pos.UserID)
	if err != nil {
		return err
	}
	wins, err := st.Trades.CountWinsByUser(ctx, pos.UserID, winner)
	if err != nil {
		return err
	}

	stats, err := st.Users.GetStats(ctx, pos.UserID)
	if err != nil {
		return err
	}

	next := stats.ApplySettlement(domain.SettlementOutcome{
		Winnings:    winnings,
		Loss:        loss,
		Wins:        wins,
		TotalTrades: totalTrades,
	})
	return st.Users.UpdateStats(ctx, next)
}
