// Package di wires the coherence stack together: one query cache, one
// mutation executor, one lookup registry and one storefront service per
// process. The container is the injectable equivalent of a singleton —
// production code builds one at startup, tests build one per test and
// throw it away.
package di

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/lookup"
	"github.com/goliatone/go-storefront-cache/mutation"
	"github.com/goliatone/go-storefront-cache/storefront"
)

// Config aggregates the configuration of every wired component.
type Config struct {
	Cache      cache.Config
	Lookup     lookup.Config
	Storefront storefront.Config
}

// DefaultConfig returns defaults for every component. The storefront
// section still needs a BaseURL (or storefront.Load from environment).
func DefaultConfig() Config {
	return Config{
		Cache:  cache.DefaultConfig(),
		Lookup: lookup.DefaultConfig(),
	}
}

// Container holds the singleton instances of the coherence stack.
type Container struct {
	cfg      Config
	store    *cache.Store
	executor *mutation.Executor
	lookups  *lookup.Registry
	client   *storefront.Client
	service  *storefront.Service
}

// Option adjusts container construction.
type Option func(*options)

type options struct {
	log        zerolog.Logger
	httpClient *http.Client
	rules      mutation.Rules
}

// WithLogger sets the logger shared by all wired components.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithHTTPClient overrides the API client's HTTP transport. Test use.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRules overrides the mutation fan-out table.
func WithRules(rules mutation.Rules) Option {
	return func(o *options) { o.rules = rules }
}

// NewContainer builds and wires the full stack from cfg.
func NewContainer(cfg Config, opts ...Option) (*Container, error) {
	o := options{
		log:   zerolog.Nop(),
		rules: mutation.DefaultRules(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := cache.New(cfg.Cache, cache.WithLogger(o.log))
	if err != nil {
		return nil, err
	}

	lookups, err := lookup.New(cfg.Lookup, lookup.WithLogger(o.log))
	if err != nil {
		return nil, err
	}

	client, err := storefront.NewClient(cfg.Storefront, o.httpClient, o.log)
	if err != nil {
		return nil, err
	}

	executor := mutation.NewExecutor(store, o.rules, mutation.WithLogger(o.log))
	service := storefront.NewService(client, store, executor, lookups, o.log)

	return &Container{
		cfg:      cfg,
		store:    store,
		executor: executor,
		lookups:  lookups,
		client:   client,
		service:  service,
	}, nil
}

// Store returns the singleton query cache.
func (c *Container) Store() *cache.Store { return c.store }

// Executor returns the singleton mutation executor.
func (c *Container) Executor() *mutation.Executor { return c.executor }

// Lookups returns the singleton lookup registry.
func (c *Container) Lookups() *lookup.Registry { return c.lookups }

// Client returns the raw API client. Feature code normally goes
// through Service instead.
func (c *Container) Client() *storefront.Client { return c.client }

// Service returns the storefront service facade.
func (c *Container) Service() *storefront.Service { return c.service }

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config { return c.cfg }

// Reset drops all cached state. Test isolation hook.
func (c *Container) Reset() {
	c.store.Reset()
	c.lookups.InvalidateAll()
}
