package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// SturdycBackend keeps encoded values in an in-process sturdyc client.
type SturdycBackend struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdycBackend creates a new sturdyc backed byte store.
// It validates the configuration before allocating the client.
func NewSturdycBackend(cfg Config) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]byte](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycBackend{client: client}, nil
}

// Get returns a copy of the bytes stored for key.
func (s *SturdycBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of value under key.
func (s *SturdycBackend) Set(ctx context.Context, key string, value []byte) error {
	s.client.Set(key, append([]byte(nil), value...))
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *SturdycBackend) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Size reports the number of entries currently held.
func (s *SturdycBackend) Size() int {
	return s.client.Size()
}
