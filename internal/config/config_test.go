package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "server"
log_level = "debug"

[database]
host = "db.internal"
port = 5433

[server]
port = 9000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	// Env beats file.
	t.Setenv("PREDICTHUB_DATABASE_HOST", "db.override")
	t.Setenv("PREDICTHUB_SERVER_PORT", "9100")
	t.Setenv("PREDICTHUB_REDIS_PRICE_TTL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "90s", cfg.Redis.PriceTTL.Duration.String())

	// File leaves unset fields at their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.NoError(t, cfg.Validate())
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "chaos"
	cfg.LogLevel = "loud"
	cfg.Database.PoolMinConns = 50
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "pool_min_conns")
	assert.Contains(t, err.Error(), "port")
}

func TestValidateIndexerSecretPairing(t *testing.T) {
	cfg := Defaults()
	cfg.Indexer.EncryptedSecretPath = "/etc/predicthub/secret.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_password")

	cfg.Indexer.SecretPassword = "pw"
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.Indexer.WebhookSecret = "hook"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Indexer.WebhookSecret)

	// Original untouched.
	assert.Equal(t, "hunter2", cfg.Database.Password)
}
