// Package bundle holds the process-wide runtime bundle.
//
// The bundle is fetched lazily on first use, compiled once and reused for
// the lifetime of the cache. Concurrent first callers share one fetch; a
// failed fetch is not remembered, so the next caller tries again.
package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/psplay/internal/linker"
)

// Fetcher retrieves the runtime bundle source.
type Fetcher interface {
	FetchBundle(ctx context.Context) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (string, error)

// FetchBundle calls f(ctx).
func (f FetcherFunc) FetchBundle(ctx context.Context) (string, error) { return f(ctx) }

// Cache is the fetch-once guard around the runtime bundle.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	bundle  *linker.Bundle
	fetches atomic.Int64
}

// New creates a Cache backed by fetcher.
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{fetcher: fetcher, logger: logger}
}

// Preloaded returns a Cache that already holds b and never fetches.
func Preloaded(b *linker.Bundle) *Cache {
	c := New(nil, nil)
	c.bundle = b
	return c
}

// Get returns the compiled bundle, fetching it on first use.
func (c *Cache) Get(ctx context.Context) (*linker.Bundle, error) {
	if b := c.loaded(); b != nil {
		return b, nil
	}

	ch := c.group.DoChan("bundle", func() (any, error) {
		if b := c.loaded(); b != nil {
			return b, nil
		}
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*linker.Bundle), nil
	}
}

// Loaded reports whether the bundle has been fetched successfully.
func (c *Cache) Loaded() bool { return c.loaded() != nil }

// Fetches returns how many fetches have been attempted.
func (c *Cache) Fetches() int64 { return c.fetches.Load() }

func (c *Cache) loaded() *linker.Bundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bundle
}

func (c *Cache) fetch(ctx context.Context) (*linker.Bundle, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("runtime bundle: no fetcher configured")
	}
	c.fetches.Add(1)
	start := time.Now()

	source, err := c.fetcher.FetchBundle(ctx)
	if err != nil {
		c.logger.Warn("runtime bundle fetch failed", "error", err)
		return nil, fmt.Errorf("fetch runtime bundle: %w", err)
	}
	b, err := linker.CompileBundle(source)
	if err != nil {
		c.logger.Warn("runtime bundle does not compile", "error", err)
		return nil, fmt.Errorf("compile runtime bundle: %w", err)
	}

	c.mu.Lock()
	c.bundle = b
	c.mu.Unlock()

	c.logger.Info("runtime bundle loaded",
		"bytes", len(source),
		"modules", len(b.Modules()),
		"duration", time.Since(start))
	return b, nil
}
