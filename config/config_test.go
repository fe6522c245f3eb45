package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `RPCAddress = "0.0.0.0:9000"
GatewayAddress = "0.0.0.0:9090"
DataDir = "./data"
StorageBackend = "bolt"
Env = "staging"

[log]
Level = "debug"

[oracle]
Rate = 2
Decimals = 3
MaxAgeSeconds = 600

[ratelimit]
RequestsPerSecond = 10.0
Burst = 20

[indexer]
Enabled = true
Driver = "sqlite"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.RPCAddress)
	require.Equal(t, "bolt", cfg.StorageBackend)
	require.Equal(t, "staging", cfg.Env)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, uint64(2), cfg.Oracle.Rate)
	require.Equal(t, int64(600), cfg.Oracle.MaxAgeSeconds)
	require.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	require.True(t, cfg.Indexer.Enabled)

	// Unset fields fall back to defaults.
	require.Equal(t, "ALPHAPOINTS_JWT_SECRET", cfg.Auth.JWTSecretEnv)
	require.Equal(t, int64(3600), cfg.Auth.TokenTTLSeconds)
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8545", cfg.RPCAddress)
	require.Equal(t, "leveldb", cfg.StorageBackend)
	require.Equal(t, uint64(1), cfg.Oracle.Rate)
	require.Equal(t, uint8(3), cfg.Oracle.Decimals)

	// A second load round-trips the written defaults.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, again.RPCAddress)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.StorageBackend = "cassandra"
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Oracle.Rate = 0
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.RateLimit.Burst = 0
	require.Error(t, bad.Validate())

	bad = *cfg
	bad.Indexer.Enabled = true
	bad.Indexer.Driver = "postgres"
	bad.Indexer.DSN = ""
	require.Error(t, bad.Validate())
}
