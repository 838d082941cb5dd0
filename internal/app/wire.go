package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/predicthub/predicthub/internal/blob/s3"
	"github.com/predicthub/predicthub/internal/cache/redis"
	"github.com/predicthub/predicthub/internal/config"
	"github.com/predicthub/predicthub/internal/crypto"
	"github.com/predicthub/predicthub/internal/domain"
	"github.com/predicthub/predicthub/internal/indexer"
	"github.com/predicthub/predicthub/internal/service"
	"github.com/predicthub/predicthub/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Infrastructure clients, exposed for health checks.
	Postgres *postgres.Client
	Redis    *redis.Client
	S3       *s3blob.Client

	// Persistence
	Stores domain.Stores
	Tx     domain.TxRunner

	// Caches and coordination
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	Locks       domain.LockManager
	Bus         domain.SignalBus

	// Blob storage (nil unless archiving is enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Engine services
	Trades      *service.TradeService
	Markets     *service.MarketService
	Positions   *service.PositionService
	Liquidity   *service.LiquidityService
	Leaderboard *service.LeaderboardService
	Settlement  *service.SettlementService

	// Webhook ingestion
	Ingestor      *indexer.Ingestor
	WebhookSecret string
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Postgres = pgClient
	deps.Stores = postgres.NewStores(pgClient.Pool())
	deps.Tx = postgres.NewTxRunner(pgClient)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.Bus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (only when the archiver is enabled) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.S3 = s3Client
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.BlobReader,
			deps.Stores.Markets,
			deps.Stores.Trades,
			deps.Stores.Prices,
			deps.Stores.Resolutions,
			deps.Stores.Audit,
			cfg.Archive.Prefix,
			logger,
		)
	}

	// --- Engine services ---
	deps.Trades = service.NewTradeService(deps.Tx, deps.PriceCache, deps.Bus, logger)
	deps.Markets = service.NewMarketService(deps.Stores, deps.Tx, deps.PriceCache, logger).WithBus(deps.Bus)
	deps.Positions = service.NewPositionService(deps.Stores, deps.PriceCache, logger)
	deps.Liquidity = service.NewLiquidityService(deps.Stores, deps.Tx, logger)
	deps.Leaderboard = service.NewLeaderboardService(deps.Stores, logger)
	deps.Settlement = service.NewSettlementService(deps.Tx, deps.Locks, logger)

	// --- Webhook ingestion ---
	deps.Ingestor = indexer.NewIngestor(deps.Stores.Events, deps.Trades, deps.Markets, deps.Liquidity, logger)

	if cfg.Indexer.WebhookSecret != "" || cfg.Indexer.EncryptedSecretPath != "" {
		secret, err := crypto.LoadSecret(crypto.SecretConfig{
			RawSecret:           cfg.Indexer.WebhookSecret,
			EncryptedSecretPath: cfg.Indexer.EncryptedSecretPath,
			Password:            cfg.Indexer.SecretPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: webhook secret: %w", err)
		}
		deps.WebhookSecret = secret
	} else {
		logger.Warn("wire: no webhook secret configured, indexer webhook signature checks are disabled")
	}

	return deps, cleanup, nil
}
