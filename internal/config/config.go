// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file and REFLECT_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Store drivers.
const (
	DriverREST   = "rest"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverStore  = "store"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects where reflections live: "rest" or "sqlite".
	StoreDriver string `koanf:"store_driver"`

	// DatastoreURL is the base URL of the hosted data store (PostgREST).
	DatastoreURL string `koanf:"datastore_url"`

	// DatastoreAnonKey is the anonymous API key sent as apikey header.
	DatastoreAnonKey string `koanf:"datastore_anon_key"`

	// DatastoreServiceKey authorizes background writes that run outside a
	// user request. Falls back to the anon key when empty.
	DatastoreServiceKey string `koanf:"datastore_service_key"`

	// SaveTimeoutMS bounds the primary reflection write.
	SaveTimeoutMS int `koanf:"save_timeout_ms"`

	// ReadTimeoutMS bounds store reads.
	ReadTimeoutMS int `koanf:"read_timeout_ms"`

	// SQLitePath is the database file for the sqlite store and outbox.
	SQLitePath string `koanf:"sqlite_path"`

	// UserHashSalt keys the one-way user hash for anonymized tables.
	UserHashSalt string `koanf:"user_hash_salt"`

	// JWTSecret verifies HS256 session tokens. It may only be empty with the
	// rest store, which checks tokens itself, or with InsecureSkipVerify.
	JWTSecret string `koanf:"jwt_secret"`

	// InsecureSkipVerify accepts tokens without a signature check when no
	// secret is set. Local development only.
	InsecureSkipVerify bool `koanf:"insecure_skip_verify"`

	// OperatorToken guards operator routes such as /outbox/dead. Empty
	// disables them.
	OperatorToken string `koanf:"operator_token"`

	// Timezone used for day/week bucketing (IANA name).
	Timezone string `koanf:"timezone"`

	// WorkerCount sets the number of background side-write workers.
	WorkerCount int `koanf:"worker_count"`

	// OutboxDriver selects the side-write outbox: "memory" or "sqlite".
	OutboxDriver string `koanf:"outbox_driver"`

	// OutboxPollIntervalMS controls how often due jobs are claimed.
	OutboxPollIntervalMS int `koanf:"outbox_poll_interval_ms"`

	// OutboxBatchSize caps jobs claimed per poll.
	OutboxBatchSize int `koanf:"outbox_batch_size"`

	// OutboxMaxAttempts is the attempt budget before a job is marked dead.
	OutboxMaxAttempts int `koanf:"outbox_max_attempts"`

	// OutboxInitialBackoffMS and OutboxMaxBackoffMS shape retry delays.
	OutboxInitialBackoffMS int `koanf:"outbox_initial_backoff_ms"`
	OutboxMaxBackoffMS     int `koanf:"outbox_max_backoff_ms"`

	// DedupeSize bounds the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ActivityDriver selects the daily activity store: "store" or "redis".
	ActivityDriver string `koanf:"activity_driver"`

	// RedisAddr and RedisKeyPrefix configure the redis activity store.
	RedisAddr      string `koanf:"redis_addr"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// MaxReflectionsLimit caps GET /reflections?limit.
	MaxReflectionsLimit int `koanf:"max_reflections_limit"`

	// TopKinds is how many kinds insights report.
	TopKinds int `koanf:"top_kinds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		StoreDriver:            DriverSQLite,
		SaveTimeoutMS:          5000,
		ReadTimeoutMS:          5000,
		SQLitePath:             "interpretreflect.db",
		Timezone:               "UTC",
		WorkerCount:            runtime.NumCPU(),
		OutboxDriver:           DriverSQLite,
		OutboxPollIntervalMS:   500,
		OutboxBatchSize:        50,
		OutboxMaxAttempts:      8,
		OutboxInitialBackoffMS: 1000,
		OutboxMaxBackoffMS:     300_000,
		DedupeSize:             50_000,
		ActivityDriver:         DriverStore,
		RedisKeyPrefix:         "ir",
		MaxReflectionsLimit:    500,
		TopKinds:               5,
	}
}

// SaveTimeout returns the primary write timeout.
func (c *Config) SaveTimeout() time.Duration {
	return time.Duration(c.SaveTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the store read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// UnverifiedTokens reports whether session tokens may be accepted without a
// signature check.
func (c *Config) UnverifiedTokens() bool {
	return c.StoreDriver == DriverREST || c.InsecureSkipVerify
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
