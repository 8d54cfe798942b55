// Package cache provides a small key-value store with per-entry TTL, used for
// short-lived lookup state such as challenge context handles.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
// Callers cannot distinguish the two cases; that is deliberate for handles
// that must not leak whether they ever existed.
var ErrMiss = errors.New("cache miss")

// Cache is the minimal TTL key-value contract.
type Cache interface {
	// Get returns the value for key, or ErrMiss.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key for the given ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes key. Removing an absent key is not an error.
	Del(ctx context.Context, key string) error
}
