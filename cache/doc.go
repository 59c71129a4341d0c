// Package cache implements the client-side query cache that keeps the
// storefront's read views coherent: product catalog, cart, wishlist,
// lookups and dashboard aggregates all resolve through one shared Store.
//
// # Overview
//
// The package exports three cooperating pieces:
//
//   - Key / Pattern: the canonical address space. MakeKey sorts
//     parameters and drops empty values so semantically identical
//     requests always collide on the same string, and Pattern expresses
//     the type-level and param-subset matching invalidation relies on.
//   - Store: per-key entries carrying a single {status, value, error}
//     tri-state plus staleness bookkeeping, resolved read-through with
//     in-flight deduplication.
//   - Entry: the immutable snapshot subscribers observe.
//
// # Reading
//
// Read never blocks: it returns the current snapshot immediately and
// dispatches a background fetch when the entry is missing, errored,
// invalidated, or older than the staleTime window. An invalidated entry
// keeps its value, so views render the last known data while the
// refresh is in flight (stale-while-revalidate).
//
//	snap := store.Read(ctx, key, fetchProducts)
//	if snap.Status == cache.StatusSuccess {
//		render(snap.Value)
//	}
//
// Fetch and the typed GetOrFetch helper are the blocking read-through
// variants:
//
//	products, err := cache.GetOrFetch(ctx, store, key, func(ctx context.Context) ([]Product, error) {
//		return api.Products(ctx, state)
//	})
//
// # Invalidation and the sequence guard
//
// Invalidate marks matching entries stale without clearing their
// values; entries with zero subscribers are evicted outright. Every
// invalidation bumps a per-entry sequence number, and a fetch response
// is applied only when the sequence captured at dispatch still matches.
// A response that lost the race is discarded silently and a fresh fetch
// starts immediately, so data never goes backward in time under
// out-of-order network completion.
//
// # Writes
//
// Write force-sets a value without touching the network and returns the
// previous snapshot; Restore puts it back. Together they are the
// primitives the mutation executor builds optimistic patches and
// rollback on. Nothing outside this package mutates cached state
// directly.
//
// # Lifecycle
//
// Entries are created on first subscription or read, reference-counted
// by Subscribe/unsubscribe, and dropped after a grace period once the
// last subscriber leaves. Unsubscribing does not cancel an in-flight
// fetch; it completes and populates the cache for the next consumer.
//
// # See Also
//
// The mutation package declares which patterns each write invalidates;
// the enrich package resolves per-id references through this store so
// repeated ids across concurrently rendered rows share one fetch.
package cache
