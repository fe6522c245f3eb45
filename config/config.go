package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the top-level daemon configuration, loaded from TOML.
type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	GatewayAddress string `toml:"GatewayAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	GenesisFile    string `toml:"GenesisFile"`
	Env            string `toml:"Env"`

	Log       LogConfig       `toml:"log"`
	Oracle    OracleConfig    `toml:"oracle"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Indexer   IndexerConfig   `toml:"indexer"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}

// OracleConfig seeds the conversion rate source and its freshness window.
type OracleConfig struct {
	Rate          uint64 `toml:"Rate"`
	Decimals      uint8  `toml:"Decimals"`
	MaxAgeSeconds int64  `toml:"MaxAgeSeconds"`
	Source        string `toml:"Source"`
}

// AuthConfig controls partner JWT verification. The signing secret is read
// from the named environment variable, never from the file itself.
type AuthConfig struct {
	JWTSecretEnv    string `toml:"JWTSecretEnv"`
	TokenTTLSeconds int64  `toml:"TokenTTLSeconds"`
}

// RateLimitConfig bounds gateway request throughput per client.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// IndexerConfig controls the audit-trail sink.
type IndexerConfig struct {
	Enabled bool   `toml:"Enabled"`
	Driver  string `toml:"Driver"`
	DSN     string `toml:"DSN"`
}

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.GatewayAddress) == "" {
		c.GatewayAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./alphapoints-data"
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = "leveldb"
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "local"
	}
	if c.Oracle.Rate == 0 {
		// 1000 points per USD over micro-USD amounts.
		c.Oracle.Rate = 1
		c.Oracle.Decimals = 3
	}
	if c.Oracle.MaxAgeSeconds == 0 {
		c.Oracle.MaxAgeSeconds = 900
	}
	if strings.TrimSpace(c.Oracle.Source) == "" {
		c.Oracle.Source = "static"
	}
	if strings.TrimSpace(c.Auth.JWTSecretEnv) == "" {
		c.Auth.JWTSecretEnv = "ALPHAPOINTS_JWT_SECRET"
	}
	if c.Auth.TokenTTLSeconds == 0 {
		c.Auth.TokenTTLSeconds = 3600
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 25
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 50
	}
	if strings.TrimSpace(c.Indexer.Driver) == "" {
		c.Indexer.Driver = "sqlite"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	return nil
}
