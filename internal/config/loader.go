package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "REFLECT_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if REFLECT_CONFIG is set
//  3. env (prefix REFLECT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// REFLECT_SAVE_TIMEOUT_MS -> save_timeout_ms (flat keys).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	switch c.StoreDriver {
	case DriverREST:
		if c.DatastoreURL == "" || c.DatastoreAnonKey == "" {
			return invalid("store_driver=rest requires datastore_url and datastore_anon_key")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("store_driver=sqlite requires sqlite_path")
		}
	default:
		return invalid("unknown store_driver %q", c.StoreDriver)
	}
	if c.JWTSecret == "" && !c.UnverifiedTokens() {
		return invalid("jwt_secret is required unless store_driver=rest or insecure_skip_verify is set")
	}
	switch c.OutboxDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("outbox_driver=sqlite requires sqlite_path")
		}
	default:
		return invalid("unknown outbox_driver %q", c.OutboxDriver)
	}
	switch c.ActivityDriver {
	case DriverStore:
	case DriverRedis:
		if c.RedisAddr == "" {
			return invalid("activity_driver=redis requires redis_addr")
		}
	default:
		return invalid("unknown activity_driver %q", c.ActivityDriver)
	}
	if c.SaveTimeoutMS <= 0 {
		return invalid("save_timeout_ms must be positive")
	}
	if c.OutboxMaxAttempts < 1 {
		return invalid("outbox_max_attempts must be at least 1")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return invalid("timezone %q: %v", c.Timezone, err)
	}
	return nil
}
