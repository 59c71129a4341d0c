// Package lookup serves the storefront's reference data: categories,
// brands, countries, order statuses and similar slowly-changing tables
// that nearly every form and filter renders. They are cached through
// sturdyc with long TTLs and background early refresh, separate from
// the query cache because lookups need stampede protection and
// freshness windows, not per-subscriber coherence.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/internal/cacheinfra"
)

// ErrUnknownLookup indicates a lookup name with no registered fetcher.
var ErrUnknownLookup = errors.New("lookup: unknown lookup name")

// keyPrefix namespaces lookup keys inside the sturdyc store.
const keyPrefix = "lookup" + cache.KeySeparator

// Item is one entry of a lookup table as rendered in selects and
// filter drawers.
type Item struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FetchFn loads one lookup table from the remote API.
type FetchFn func(ctx context.Context) ([]Item, error)

// Config exposes lookup cache configuration to consumers of the
// package without leaking the internal adapter.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EarlyRefresh       *EarlyRefreshConfig
	EvictionInterval   time.Duration
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

// Registry holds the registered lookup fetchers and the sturdyc-backed
// cache they read through.
type Registry struct {
	svc *cacheinfra.Service
	log zerolog.Logger

	mu       sync.RWMutex
	fetchers map[string]FetchFn
}

// RegistryOption adjusts registry construction.
type RegistryOption func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// New creates an empty Registry backed by a sturdyc cache built from cfg.
func New(cfg Config, opts ...RegistryOption) (*Registry, error) {
	svc, err := cacheinfra.NewService(cfg.toInternal())
	if err != nil {
		return nil, err
	}

	r := &Registry{
		svc:      svc,
		log:      zerolog.Nop(),
		fetchers: make(map[string]FetchFn),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register adds (or replaces) the fetcher for a lookup name.
func (r *Registry) Register(name string, fetch FetchFn) {
	r.mu.Lock()
	r.fetchers[name] = fetch
	r.mu.Unlock()
}

// Get returns the lookup table for name, fetching through the cache.
// Concurrent requests for the same table share one fetch.
func (r *Registry) Get(ctx context.Context, name string) ([]Item, error) {
	r.mu.RLock()
	fetch, ok := r.fetchers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLookup, name)
	}

	v, err := r.svc.GetOrFetch(ctx, keyPrefix+name, func(ctx context.Context) (any, error) {
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	items, ok := v.([]Item)
	if !ok {
		return nil, cache.ErrInvalidResultType
	}
	return items, nil
}

// Invalidate drops the cached table for name so the next Get refetches
// it. Admin edits to reference data call this through the mutation
// fan-out.
func (r *Registry) Invalidate(name string) {
	r.svc.Delete(keyPrefix + name)
	r.log.Debug().Str("lookup", name).Msg("lookup invalidated")
}

// InvalidateAll drops every cached lookup table and returns the number
// of dropped entries.
func (r *Registry) InvalidateAll() int {
	n := r.svc.DeleteByPrefix(keyPrefix)
	r.log.Debug().Int("dropped", n).Msg("all lookups invalidated")
	return n
}

// Names returns the registered lookup names. Diagnostic use.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	return names
}
