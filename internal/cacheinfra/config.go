package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config sizes the in-process sturdyc backend. Entries and list caches of
// every scope share the same capacity.
type Config struct {
	Capacity  int
	NumShards int

	// TTL bounds how long a stale entry can survive a mutation made by
	// another process; within one process mutations refresh the cache.
	TTL time.Duration

	// EvictionPercentage is the share of entries dropped when Capacity is reached.
	EvictionPercentage int

	// EvictionInterval overrides the sturdyc sweep interval when positive.
	EvictionInterval time.Duration
}

// RedisConfig holds the configuration for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// TTL applied to every key written. Zero keeps keys until evicted by redis.
	TTL time.Duration
}

// DefaultConfig returns the backend sizing used when none is configured.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions returns the options not covered by the positional
// arguments of sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	if c.EvictionInterval <= 0 {
		return nil
	}
	return []sturdyc.Option{sturdyc.WithEvictionInterval(c.EvictionInterval)}
}

type check struct {
	ok      bool
	field   string
	message string
}

// firstFailure returns the first failing check as a ConfigError.
func firstFailure(checks ...check) error {
	for _, c := range checks {
		if !c.ok {
			return &ConfigError{Field: c.field, Message: c.message}
		}
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	return firstFailure(
		check{c.Capacity > 0, "Capacity", "must be greater than 0"},
		check{c.NumShards > 0, "NumShards", "must be greater than 0"},
		check{c.TTL > 0, "TTL", "must be greater than 0"},
		check{c.EvictionPercentage >= 1 && c.EvictionPercentage <= 100, "EvictionPercentage", "must be between 1 and 100"},
		check{c.EvictionInterval >= 0, "EvictionInterval", "must be non-negative"},
	)
}

// Validate reports the first invalid field.
func (c RedisConfig) Validate() error {
	return firstFailure(
		check{c.Addr != "", "Addr", "must not be empty"},
		check{c.DB >= 0, "DB", "must be non-negative"},
		check{c.TTL >= 0, "TTL", "must be non-negative"},
	)
}

// ConfigError names the backend setting that failed validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
