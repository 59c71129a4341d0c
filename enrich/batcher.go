// Package enrich resolves references embedded in one collection into
// the full referenced resources for display: a wishlist entry's product
// id becomes the product itself. Every reference resolves through the
// shared query cache, so the same id appearing in many concurrently
// rendered rows costs one fetch.
package enrich

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-storefront-cache/cache"
)

// DefaultConcurrency caps simultaneous per-id fetches in Resolve.
const DefaultConcurrency = 8

// Row pairs one base item with its resolved reference. Status mirrors
// the referenced entry's cache state: a row whose reference is still in
// flight carries StatusLoading rather than blocking its siblings, and a
// row whose fetch failed carries StatusError without affecting the
// rest. Partial rendering is expected and correct.
type Row[B, R any] struct {
	Base   B
	Ref    R
	Status cache.Status
	Err    error
}

// KeyFn derives the referenced resource's cache key from a base item.
type KeyFn[B any] func(base B) (cache.Key, error)

// FetchFn fetches the referenced resource for a base item.
type FetchFn[B, R any] func(ctx context.Context, base B) (R, error)

// Enrich issues one non-blocking cache read per base item and returns
// rows aligned 1:1 with items. References already cached come back
// resolved; the rest come back loading with their fetches dispatched in
// the background, deduplicated across repeated ids.
func Enrich[B, R any](ctx context.Context, store *cache.Store, items []B, keyFn KeyFn[B], fetch FetchFn[B, R]) []Row[B, R] {
	rows := make([]Row[B, R], len(items))
	for i, item := range items {
		rows[i] = readRow(ctx, store, item, keyFn, fetch, false)
	}
	return rows
}

// Resolve is the blocking variant: it waits for every reference to
// settle, running at most concurrency fetches at once (DefaultConcurrency
// when <= 0). A failed reference surfaces only on its own row; Resolve
// itself never fails.
func Resolve[B, R any](ctx context.Context, store *cache.Store, items []B, keyFn KeyFn[B], fetch FetchFn[B, R], concurrency int) []Row[B, R] {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	rows := make([]Row[B, R], len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, item := range items {
		g.Go(func() error {
			rows[i] = readRow(ctx, store, item, keyFn, fetch, true)
			return nil
		})
	}
	// Workers never return errors; failures live on their rows.
	_ = g.Wait()
	return rows
}

func readRow[B, R any](ctx context.Context, store *cache.Store, item B, keyFn KeyFn[B], fetch FetchFn[B, R], wait bool) Row[B, R] {
	row := Row[B, R]{Base: item}

	key, err := keyFn(item)
	if err != nil {
		row.Status = cache.StatusError
		row.Err = err
		return row
	}

	fetchAny := func(ctx context.Context) (any, error) {
		return fetch(ctx, item)
	}

	if wait {
		v, err := store.Fetch(ctx, key, fetchAny)
		if err != nil {
			row.Status = cache.StatusError
			row.Err = err
			return row
		}
		ref, ok := v.(R)
		if !ok {
			row.Status = cache.StatusError
			row.Err = cache.ErrInvalidResultType
			return row
		}
		row.Status = cache.StatusSuccess
		row.Ref = ref
		return row
	}

	snap := store.Read(ctx, key, fetchAny)
	row.Status = snap.Status
	row.Err = snap.Err
	if ref, ok := snap.Value.(R); ok {
		row.Ref = ref
	}
	return row
}
