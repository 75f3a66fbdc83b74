// Package advisory wraps the slow external advisory computation behind a
// time-to-live cache. The cache never propagates refresh failures: a stale
// advisory is preferable to stalling or crashing the aggregation loop.
package advisory

import (
	"context"
	"time"

	"github.com/classtwin/classtwin/internal/domain/model"
	"github.com/classtwin/classtwin/pkg/logger"
	"github.com/classtwin/classtwin/pkg/metrics"

	"sync"
)

// Default cache configuration constants.
const (
	defaultTTL = 60 * time.Second
)

// Refresher computes a fresh advisory for the given occupancy. It is
// expected to be idempotent and safe to retry; implementations talk to
// external services and a trained model, so calls may be slow or fail.
type Refresher interface {
	Refresh(ctx context.Context, occupancy int) (model.Advisory, error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, occupancy int) (model.Advisory, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, occupancy int) (model.Advisory, error) {
	return f(ctx, occupancy)
}

// Fallback is the defined advisory returned when a refresh fails before any
// value was ever cached.
func Fallback(now time.Time) model.Advisory {
	return model.Advisory{
		Action:     model.ActionUnknown,
		Suggestion: "Monitor - no immediate action.",
		FetchedAt:  now,
	}
}

// Cache is a TTL cache over a Refresher. The cached advisory is replaced
// wholesale under an exclusive lock, so concurrent readers never observe a
// torn value.
type Cache struct {
	mu        sync.RWMutex
	refresher Refresher
	ttl       time.Duration
	cached    *model.Advisory

	logger logger.Logger
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL overrides the default time-to-live of a cached advisory.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger for the cache.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates a cache over the given refresher.
func NewCache(refresher Refresher, opts ...Option) *Cache {
	c := &Cache{
		refresher: refresher,
		ttl:       defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("advisory")
	}
	return c
}

// Get returns the advisory for the given occupancy. A cached value younger
// than the TTL is returned unchanged. Otherwise the refresher is invoked;
// on failure the previous value is returned if one exists, and the defined
// fallback if not. Get never returns an error.
func (c *Cache) Get(ctx context.Context, occupancy int, now time.Time) model.Advisory {
	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()

	if cached != nil && now.Sub(cached.FetchedAt) < c.ttl {
		return *cached
	}

	start := time.Now()
	fresh, err := c.refresher.Refresh(ctx, occupancy)
	metrics.RecordAdvisoryRefreshLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordAdvisoryRefreshError()
		c.logger.Warn(ctx, "advisory refresh failed, serving last good value",
			logger.Int("occupancy", occupancy),
			logger.Error(err),
		)
		if cached != nil {
			return *cached
		}
		return Fallback(now)
	}

	fresh.FetchedAt = now

	c.mu.Lock()
	c.cached = &fresh
	c.mu.Unlock()

	metrics.RecordAdvisoryRefresh()
	metrics.UpdateAdvisoryAge(0)
	return fresh
}

// Current returns the cached advisory without triggering a refresh.
func (c *Cache) Current() (model.Advisory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil {
		return model.Advisory{}, false
	}
	return *c.cached, true
}

// Reset drops the cached advisory so the next Get refreshes unconditionally.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}
