package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/server"
	"github.com/predicthub/predicthub/internal/server/handler"
	"github.com/predicthub/predicthub/internal/server/ws"
)

// statusRefreshInterval controls how often active and closed markets are
// re-examined for lifecycle transitions (expiry, resolution).
const statusRefreshInterval = time.Minute

// replayGuardPruneInterval controls how often the webhook replay guard is
// compacted.
const replayGuardPruneInterval = 10 * time.Minute

// ServerMode runs the HTTP + WebSocket API only. Background workers
// (settlement, archiving, status refresh) are expected to run elsewhere.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// WorkerMode runs the background workers only: settlement polling, the
// archive sweep, market status refresh, and replay-guard pruning.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startWorkers(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API server and all background workers in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	a.startWorkers(ctx, g, deps)
	return g.Wait()
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.Bus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	health := handler.NewHealthHandler(a.logger).
		WithCheck("postgres", func(ctx context.Context) error {
			return deps.Postgres.Pool().Ping(ctx)
		}).
		WithCheck("redis", deps.Redis.Ping)
	if deps.S3 != nil {
		health = health.WithCheck("s3", deps.S3.Health)
	}

	handlers := server.Handlers{
		Health:      health,
		Markets:     handler.NewMarketHandler(deps.Markets, a.logger),
		Trades:      handler.NewTradeHandler(deps.Trades, a.logger),
		Positions:   handler.NewPositionHandler(deps.Positions, a.logger),
		Liquidity:   handler.NewLiquidityHandler(deps.Liquidity, a.logger),
		Leaderboard: handler.NewLeaderboardHandler(deps.Leaderboard, a.logger),
		Webhook:     handler.NewWebhookHandler(deps.Ingestor, deps.WebhookSecret, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startWorkers adds the background worker goroutines to the given errgroup.
func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Settlement.Enabled {
		g.Go(func() error {
			return a.runSettlementLoop(ctx, deps)
		})
	} else {
		a.logger.InfoContext(ctx, "settlement worker disabled")
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps)
		})
	}

	g.Go(func() error {
		return a.runStatusRefreshLoop(ctx, deps)
	})

	g.Go(func() error {
		ticker := time.NewTicker(replayGuardPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				deps.Ingestor.PruneReplayGuard()
			}
		}
	})
}

// runSettlementLoop periodically settles every resolved market that has not
// been paid out yet. Settlement is idempotent, so re-seeing an already
// settled market is a silent skip.
func (a *App) runSettlementLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Settlement.PollInterval.Duration
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.settleResolvedMarkets(ctx, deps)
		}
	}
}

func (a *App) settleResolvedMarkets(ctx context.Context, deps *Dependencies) {
	markets, err := deps.Stores.Markets.List(ctx, domain.MarketStatusResolved, domain.ListOpts{})
	if err != nil {
		a.logger.WarnContext(ctx, "settlement: list resolved markets failed",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, m := range markets {
		report, err := deps.Settlement.Settle(ctx, m.ID)
		if errors.Is(err, domain.ErrAlreadySettled) {
			continue
		}
		if err != nil {
			a.logger.WarnContext(ctx, "settlement: settle failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.InfoContext(ctx, "settlement: market settled",
			slog.String("market_id", m.ID),
			slog.Int("positions", report.Positions),
			slog.Int("settled", report.Settled),
			slog.Int("skipped", report.Skipped),
		)
	}
}

// runArchiveLoop periodically sweeps resolved markets into object storage.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archive.PollInterval.Duration
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := deps.Archiver.Sweep(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "archive: sweep failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if count > 0 {
				a.logger.InfoContext(ctx, "archive: sweep complete",
					slog.Int("archived", count),
				)
			}
		}
	}
}

// runStatusRefreshLoop walks active and closed markets and recomputes their
// lifecycle state so expired markets close and resolved markets surface
// without waiting for a request to trigger the transition.
func (a *App) runStatusRefreshLoop(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(statusRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.refreshMarketStatuses(ctx, deps, domain.MarketStatusActive)
			a.refreshMarketStatuses(ctx, deps, domain.MarketStatusClosed)
		}
	}
}

func (a *App) refreshMarketStatuses(ctx context.Context, deps *Dependencies, status domain.MarketStatus) {
	markets, err := deps.Stores.Markets.List(ctx, status, domain.ListOpts{Limit: 500})
	if err != nil {
		a.logger.WarnContext(ctx, "status refresh: list markets failed",
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, m := range markets {
		if _, err := deps.Markets.UpdateStatus(ctx, m.ID); err != nil {
			a.logger.WarnContext(ctx, "status refresh: update failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
