// Package server assembles the HTTP + WebSocket API: routing, middleware,
// and graceful lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/server/handler"
	"github.com/predicthub/predicthub/internal/server/middleware"
	"github.com/predicthub/predicthub/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per RateWindow per client; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Trades      *handler.TradeHandler
	Positions   *handler.PositionHandler
	Liquidity   *handler.LiquidityHandler
	Leaderboard *handler.LeaderboardHandler
	Webhook     *handler.WebhookHandler
}

// Server is the HTTP + WebSocket API server for the prediction market.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/prices", handlers.Markets.GetPrices)
	mux.HandleFunc("GET /api/markets/{id}/history", handlers.Markets.GetHistory)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Markets.ResolveMarket)
	mux.HandleFunc("POST /api/markets/{id}/dispute", handlers.Markets.FileDispute)

	// Direct liquidity adjustments.
	mux.HandleFunc("POST /api/markets/{id}/liquidity", handlers.Liquidity.AdjustLiquidity)
	mux.HandleFunc("GET /api/markets/{id}/liquidity", handlers.Liquidity.GetLiquidityHistory)

	// Trading.
	mux.HandleFunc("POST /api/trades", handlers.Trades.ExecuteTrade)
	mux.HandleFunc("GET /api/trades", handlers.Positions.ListTrades)

	// Positions.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/positions/{market}", handlers.Positions.GetPosition)

	// Scoring.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.GetLeaderboard)
	mux.HandleFunc("GET /api/users/{id}/stats", handlers.Leaderboard.GetUserStats)

	// Indexer webhook (authenticated by HMAC signature, not the API key).
	mux.HandleFunc("POST /api/indexer/webhook", handlers.Webhook.HandleEvent)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey, "/api/health", "/api/indexer/webhook")(h)

	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
