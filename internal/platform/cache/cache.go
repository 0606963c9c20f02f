// Package cache provides a small string cache used for session lookups.
// Redis backs it in multi-process deployments; the in-memory fallback keeps
// single-host installs dependency-free.
package cache

import (
	"context"
	"time"
)

// Cache stores short-lived string values.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
