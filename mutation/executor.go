package mutation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-storefront-cache/cache"
)

// ErrNilExecute indicates a descriptor without an Execute function.
var ErrNilExecute = errors.New("mutation: descriptor has no execute function")

var mutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_mutations_total",
		Help: "Total number of executed mutations by kind and result",
	},
	[]string{"kind", "result"}, // result: "success", "error"
)

// Rollback restores the cache entries an optimistic patch touched.
type Rollback func()

// Patch applies an optimistic cache write before the remote call and
// returns the closure that undoes it. Patches are built on Store.Write
// and Store.Restore so the pre-patch snapshots travel inside the
// returned Rollback.
type Patch func(s *cache.Store) Rollback

// Descriptor declares one write operation: the remote call, the key
// patterns it invalidates on success, and an optional optimistic patch.
// Created per call site, consumed once.
type Descriptor struct {
	Kind Kind

	// Execute performs the write against the remote API.
	Execute func(ctx context.Context) (any, error)

	// Invalidates is merged with the static rule table for Kind.
	// Call sites use it for item-exact patterns the table cannot know.
	Invalidates []cache.Pattern

	// Optimistic, when set, is applied before Execute and rolled back
	// if Execute fails.
	Optimistic Patch
}

// Executor runs mutations and applies their invalidation fan-out
// against the query cache. Invalidation never happens before Execute
// resolves successfully: readers never observe a stale-marked cache for
// a write the server has not confirmed, except through the explicit
// optimistic patch, which is a scoped write, not an invalidation.
type Executor struct {
	store *cache.Store
	rules Rules
	log   zerolog.Logger
}

// ExecutorOption adjusts executor construction.
type ExecutorOption func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(log zerolog.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// NewExecutor creates an Executor over the given store and rule table.
func NewExecutor(store *cache.Store, rules Rules, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store: store,
		rules: rules,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mutate applies the descriptor's optimistic patch, runs Execute, and:
//
//   - on success, keeps the patch (the next real read replaces it) and
//     invalidates every declared pattern;
//   - on failure, rolls the patch back, propagates the error to the
//     caller and performs no invalidation.
//
// Concurrent mutations with overlapping patterns apply their fan-outs
// in completion order; no lock spans two Mutate calls, so callers must
// not assume atomicity across independent mutations.
func (e *Executor) Mutate(ctx context.Context, d Descriptor) (any, error) {
	if d.Execute == nil {
		return nil, ErrNilExecute
	}

	id := uuid.NewString()
	log := e.log.With().Str("mutation_id", id).Str("kind", string(d.Kind)).Logger()

	var rollback Rollback
	if d.Optimistic != nil {
		rollback = d.Optimistic(e.store)
		log.Debug().Msg("optimistic patch applied")
	}

	result, err := d.Execute(ctx)
	if err != nil {
		if rollback != nil {
			rollback()
			log.Warn().Err(err).Msg("mutation failed, optimistic patch rolled back")
		} else {
			log.Warn().Err(err).Msg("mutation failed")
		}
		mutationsTotal.WithLabelValues(string(d.Kind), "error").Inc()
		return nil, err
	}

	patterns := e.mergePatterns(ctx, d)
	n := e.store.Invalidate(patterns...)
	log.Info().Int("invalidated", n).Int("patterns", len(patterns)).Msg("mutation applied")
	mutationsTotal.WithLabelValues(string(d.Kind), "success").Inc()

	return result, nil
}

// mergePatterns combines the static rule table, the descriptor's own
// patterns and any patterns attached to the context, deduplicated.
func (e *Executor) mergePatterns(ctx context.Context, d Descriptor) []cache.Pattern {
	merged := append([]cache.Pattern(nil), e.rules.PatternsFor(d.Kind)...)
	merged = append(merged, d.Invalidates...)
	merged = append(merged, invalidationsFromContext(ctx)...)
	return dedupePatterns(merged)
}

func dedupePatterns(patterns []cache.Pattern) []cache.Pattern {
	if len(patterns) < 2 {
		return patterns
	}
	seen := make(map[string]struct{}, len(patterns))
	out := patterns[:0]
	for _, p := range patterns {
		sig := patternSignature(p)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, p)
	}
	return out
}

func patternSignature(p cache.Pattern) string {
	// Reuse the key space's canonical rendering: a pattern is a key
	// shape with a params subset.
	return cache.Key{Type: p.Type, Params: p.Params}.String()
}
