// Package mutation executes storefront write operations and keeps the
// query cache coherent afterwards.
//
// # Overview
//
// A mutation is declared as a Descriptor: the remote call, the key
// patterns it invalidates, and an optional optimistic patch. The
// Executor runs the descriptor against the shared cache.Store:
//
//  1. Apply the optimistic patch, if any, capturing its rollback
//  2. Run Execute against the remote API
//  3. On success, invalidate every declared pattern
//  4. On failure, roll the patch back and return the error unchanged
//
// Invalidation is strictly ordered after server confirmation. A hung
// Execute produces zero invalidations until it settles; a failed one
// produces none at all.
//
// # The fan-out table
//
// DefaultRules is the declarative coherence contract between write
// operations and read caches. Each mutation kind maps to the patterns
// it must invalidate; collection-membership changes always invalidate
// the whole collection's list keys because paginated results cannot be
// patched in place. Call sites append item-exact patterns (an updated
// order's detail key) via Descriptor.Invalidates or WithInvalidations.
//
// # Basic usage
//
//	exec := mutation.NewExecutor(store, mutation.DefaultRules())
//
//	_, err := exec.Mutate(ctx, mutation.Descriptor{
//		Kind: mutation.KindMoveWishlistItemToCart,
//		Execute: func(ctx context.Context) (any, error) {
//			return api.MoveWishlistItemToCart(ctx, itemID)
//		},
//	})
//
// # Optimistic patches
//
// A patch is a cache write applied before the server confirms, built on
// Store.Write which hands back the pre-patch snapshot:
//
//	Optimistic: func(s *cache.Store) mutation.Rollback {
//		prev := s.Write(wishlistKey, updatedItems)
//		return func() { s.Restore(wishlistKey, prev) }
//	}
//
// On success the patch simply stands until the fan-out triggers the
// next real read; on failure every touched entry returns to its exact
// pre-patch value.
package mutation
