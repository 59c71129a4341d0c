package mutation

import (
	"context"

	"github.com/goliatone/go-storefront-cache/cache"
)

type invalidationsContextKey struct{}

// WithInvalidations attaches additional invalidation patterns to the
// context. The executor merges them into the fan-out of any mutation
// run under that context, which lets feature code widen a mutation's
// blast radius at the call site without touching the rule table.
func WithInvalidations(ctx context.Context, patterns ...cache.Pattern) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(patterns) == 0 {
		return ctx
	}

	combined := append(invalidationsFromContext(ctx), patterns...)
	combined = dedupePatterns(combined)
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, invalidationsContextKey{}, combined)
}

func invalidationsFromContext(ctx context.Context) []cache.Pattern {
	if ctx == nil {
		return nil
	}
	if patterns, ok := ctx.Value(invalidationsContextKey{}).([]cache.Pattern); ok {
		return append([]cache.Pattern(nil), patterns...)
	}
	return nil
}
