package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PREDICTHUB_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PREDICTHUB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "PREDICTHUB_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "PREDICTHUB_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "PREDICTHUB_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PREDICTHUB_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PREDICTHUB_DATABASE_NAME")
	setStr(&cfg.Database.User, "PREDICTHUB_DATABASE_USER")
	setStr(&cfg.Database.Password, "PREDICTHUB_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PREDICTHUB_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "PREDICTHUB_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PREDICTHUB_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PREDICTHUB_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PREDICTHUB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTHUB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTHUB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PREDICTHUB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PREDICTHUB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTHUB_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "PREDICTHUB_REDIS_PRICE_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PREDICTHUB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDICTHUB_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDICTHUB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDICTHUB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDICTHUB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PREDICTHUB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PREDICTHUB_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PREDICTHUB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PREDICTHUB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PREDICTHUB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PREDICTHUB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "PREDICTHUB_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "PREDICTHUB_SERVER_RATE_WINDOW")

	// ── Indexer ──
	setStr(&cfg.Indexer.WebhookSecret, "PREDICTHUB_INDEXER_WEBHOOK_SECRET")
	setStr(&cfg.Indexer.EncryptedSecretPath, "PREDICTHUB_INDEXER_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Indexer.SecretPassword, "PREDICTHUB_INDEXER_SECRET_PASSWORD")

	// ── Settlement ──
	setBool(&cfg.Settlement.Enabled, "PREDICTHUB_SETTLEMENT_ENABLED")
	setDuration(&cfg.Settlement.PollInterval, "PREDICTHUB_SETTLEMENT_POLL_INTERVAL")
	setDuration(&cfg.Settlement.LockTTL, "PREDICTHUB_SETTLEMENT_LOCK_TTL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "PREDICTHUB_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.PollInterval, "PREDICTHUB_ARCHIVE_POLL_INTERVAL")
	setStr(&cfg.Archive.Prefix, "PREDICTHUB_ARCHIVE_PREFIX")

	// ── Top-level ──
	setStr(&cfg.Mode, "PREDICTHUB_MODE")
	setStr(&cfg.LogLevel, "PREDICTHUB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
