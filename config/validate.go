package config

import (
	"fmt"
	"strings"
)

var validBackends = map[string]struct{}{
	"memory":  {},
	"leveldb": {},
	"bolt":    {},
}

var validIndexerDrivers = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
}

// Validate rejects configurations that would start an unusable daemon.
func (c *Config) Validate() error {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if _, ok := validBackends[backend]; !ok {
		return fmt.Errorf("storage: unknown backend %q", c.StorageBackend)
	}
	if c.Oracle.Rate == 0 {
		return fmt.Errorf("oracle: rate must be positive")
	}
	if c.Oracle.MaxAgeSeconds <= 0 {
		return fmt.Errorf("oracle: max_age_seconds must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("ratelimit: requests_per_second must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit: burst must be positive")
	}
	if c.Auth.TokenTTLSeconds <= 0 {
		return fmt.Errorf("auth: token_ttl_seconds must be positive")
	}
	if c.Indexer.Enabled {
		driver := strings.ToLower(strings.TrimSpace(c.Indexer.Driver))
		if _, ok := validIndexerDrivers[driver]; !ok {
			return fmt.Errorf("indexer: unknown driver %q", c.Indexer.Driver)
		}
		if driver == "postgres" && strings.TrimSpace(c.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: postgres driver requires a DSN")
		}
	}
	return nil
}
