package storefront

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/enrich"
	"github.com/goliatone/go-storefront-cache/lookup"
	"github.com/goliatone/go-storefront-cache/mutation"
	"github.com/goliatone/go-storefront-cache/viewstate"
)

// Dashboard aggregates change constantly; keep its freshness window
// tight so the admin console never shows numbers more than a few
// seconds behind.
const dashboardStaleTime = 10 * time.Second

// Service wires the storefront API client into the coherence layer:
// reads resolve through the query cache, writes run through the
// mutation executor and its fan-out rules, and wishlist rows enrich
// into full products through the batcher.
type Service struct {
	api     *Client
	store   *cache.Store
	exec    *mutation.Executor
	lookups *lookup.Registry

	products *viewstate.Codec
	orders   *viewstate.Codec
	log      zerolog.Logger
}

// NewService creates a Service over the given collaborators and
// registers the standard lookup tables with the registry.
func NewService(api *Client, store *cache.Store, exec *mutation.Executor, lookups *lookup.Registry, log zerolog.Logger) *Service {
	s := &Service{
		api:      api,
		store:    store,
		exec:     exec,
		lookups:  lookups,
		products: ProductListCodec(),
		orders:   OrderListCodec(),
		log:      log.With().Str("component", "storefront-service").Logger(),
	}

	for _, name := range []string{"categories", "brands", "countries", "order-statuses"} {
		s.lookups.Register(name, func(ctx context.Context) ([]lookup.Item, error) {
			return s.api.Lookup(ctx, name)
		})
	}
	return s
}

// ProductCodec exposes the catalog list codec for URL handling.
func (s *Service) ProductCodec() *viewstate.Codec { return s.products }

// OrderCodec exposes the order list codec for URL handling.
func (s *Service) OrderCodec() *viewstate.Codec { return s.orders }

// Products resolves one catalog page for the given view state through
// the cache. Identical states share one entry and one fetch.
func (s *Service) Products(ctx context.Context, state viewstate.State) (ProductPage, error) {
	key, err := s.products.Key(state)
	if err != nil {
		return ProductPage{}, err
	}
	return cache.GetOrFetch(ctx, s.store, key, func(ctx context.Context) (ProductPage, error) {
		return s.api.Products(ctx, state, s.products)
	})
}

// ProductsView is the non-blocking variant for rendering: it returns
// the last known page immediately and refreshes in the background.
func (s *Service) ProductsView(ctx context.Context, state viewstate.State) (ProductPage, cache.Entry, error) {
	key, err := s.products.Key(state)
	if err != nil {
		return ProductPage{}, cache.Entry{}, err
	}
	page, snap := cache.ReadAs(ctx, s.store, key, func(ctx context.Context) (ProductPage, error) {
		return s.api.Products(ctx, state, s.products)
	})
	return page, snap, nil
}

// Product resolves one product detail through the cache.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	return cache.GetOrFetch(ctx, s.store, productKey(id), func(ctx context.Context) (Product, error) {
		return s.api.Product(ctx, id)
	})
}

// Cart resolves the current cart through the cache.
func (s *Service) Cart(ctx context.Context) (Cart, error) {
	return cache.GetOrFetch(ctx, s.store, cartKey(), func(ctx context.Context) (Cart, error) {
		return s.api.Cart(ctx)
	})
}

// Wishlist resolves the wishlist entries through the cache.
func (s *Service) Wishlist(ctx context.Context) ([]WishlistItem, error) {
	return cache.GetOrFetch(ctx, s.store, wishlistKey(), func(ctx context.Context) ([]WishlistItem, error) {
		return s.api.Wishlist(ctx)
	})
}

// EnrichedWishlist resolves the wishlist and joins every entry with its
// product. Rows whose product fetch fails carry their own error; the
// rest of the list renders normally. The same product referenced from
// several rows costs one fetch.
func (s *Service) EnrichedWishlist(ctx context.Context) ([]enrich.Row[WishlistItem, Product], error) {
	items, err := s.Wishlist(ctx)
	if err != nil {
		return nil, err
	}
	rows := enrich.Resolve(ctx, s.store, items,
		func(item WishlistItem) (cache.Key, error) {
			return productKey(item.ProductID), nil
		},
		func(ctx context.Context, item WishlistItem) (Product, error) {
			return s.api.Product(ctx, item.ProductID)
		},
		0)
	return rows, nil
}

// Orders resolves one admin order page for the view state.
func (s *Service) Orders(ctx context.Context, state viewstate.State) (OrderPage, error) {
	key, err := s.orders.Key(state)
	if err != nil {
		return OrderPage{}, err
	}
	return cache.GetOrFetch(ctx, s.store, key, func(ctx context.Context) (OrderPage, error) {
		return s.api.Orders(ctx, state, s.orders)
	})
}

// Order resolves one order detail through the cache.
func (s *Service) Order(ctx context.Context, id string) (Order, error) {
	return cache.GetOrFetch(ctx, s.store, orderKey(id), func(ctx context.Context) (Order, error) {
		return s.api.Order(ctx, id)
	})
}

// Dashboard resolves the admin summary with a short freshness window.
func (s *Service) Dashboard(ctx context.Context) (DashboardSummary, error) {
	return cache.GetOrFetch(ctx, s.store, dashboardKey(), func(ctx context.Context) (DashboardSummary, error) {
		return s.api.Dashboard(ctx)
	}, cache.WithStaleTime(dashboardStaleTime))
}

// Lookup returns one reference-data table through the lookup cache.
func (s *Service) Lookup(ctx context.Context, name string) ([]lookup.Item, error) {
	return s.lookups.Get(ctx, name)
}

// InvalidateLookup drops a lookup table everywhere after an admin edit:
// the sturdyc registry refetches on next use, and any lookup-typed
// query cache entries are marked stale.
func (s *Service) InvalidateLookup(name string) {
	s.lookups.Invalidate(name)
	s.store.Invalidate(cache.ByType(mutation.ResLookup))
}

// AddToCart adds a product to the cart; every cart view refreshes.
func (s *Service) AddToCart(ctx context.Context, productID string, quantity int) (Cart, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindAddToCart,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.AddToCart(ctx, productID, quantity)
		},
	})
	return asCart(result), err
}

// UpdateCartItem changes a line's quantity with an optimistic patch so
// the cart view updates before the server confirms.
func (s *Service) UpdateCartItem(ctx context.Context, itemID string, quantity int) (Cart, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindUpdateCartItem,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.UpdateCartItem(ctx, itemID, quantity)
		},
		Optimistic: func(store *cache.Store) mutation.Rollback {
			snap, ok := store.Peek(cartKey())
			cart, valid := snap.Value.(Cart)
			if !ok || !valid {
				return nil
			}
			patched := cart
			patched.Items = append([]CartItem(nil), cart.Items...)
			for i := range patched.Items {
				if patched.Items[i].ID == itemID {
					patched.Items[i].Quantity = quantity
				}
			}
			prev := store.Write(cartKey(), patched)
			return func() { store.Restore(cartKey(), prev) }
		},
	})
	return asCart(result), err
}

// RemoveFromCart removes a line optimistically.
func (s *Service) RemoveFromCart(ctx context.Context, itemID string) (Cart, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindRemoveFromCart,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.RemoveFromCart(ctx, itemID)
		},
		Optimistic: removeCartItemPatch(itemID),
	})
	return asCart(result), err
}

// AddToWishlist saves a product for later. No optimistic patch: the
// server assigns the entry id, so the view waits for the fan-out.
func (s *Service) AddToWishlist(ctx context.Context, productID string) (WishlistItem, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindAddToWishlist,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.AddToWishlist(ctx, productID)
		},
	})
	if err != nil {
		return WishlistItem{}, err
	}
	item, _ := result.(WishlistItem)
	return item, nil
}

// RemoveFromWishlist removes an entry optimistically.
func (s *Service) RemoveFromWishlist(ctx context.Context, itemID string) error {
	_, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindRemoveFromWishlist,
		Execute: func(ctx context.Context) (any, error) {
			return nil, s.api.RemoveFromWishlist(ctx, itemID)
		},
		Optimistic: removeWishlistItemPatch(itemID),
	})
	return err
}

// MoveWishlistItemToCart moves an entry into the cart. The optimistic
// patch removes the row from the cached wishlist immediately; the cart
// side waits for the server since the server computes pricing. On
// success the fan-out refreshes both collections atomically from the
// reader's point of view.
func (s *Service) MoveWishlistItemToCart(ctx context.Context, itemID string) (Cart, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindMoveWishlistItemToCart,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.MoveWishlistItemToCart(ctx, itemID)
		},
		Optimistic: removeWishlistItemPatch(itemID),
	})
	return asCart(result), err
}

// PlaceOrder checks the cart out.
func (s *Service) PlaceOrder(ctx context.Context) (Order, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindPlaceOrder,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.PlaceOrder(ctx)
		},
	})
	if err != nil {
		return Order{}, err
	}
	order, _ := result.(Order)
	return order, nil
}

// UpdateOrderStatus transitions an order in the admin console. The
// exact order detail key is appended to the static fan-out, and the
// detail view is patched optimistically.
func (s *Service) UpdateOrderStatus(ctx context.Context, id, status string) (Order, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindUpdateOrderStatus,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.UpdateOrderStatus(ctx, id, status)
		},
		Invalidates: []cache.Pattern{cache.ByID(mutation.ResOrder, id)},
		Optimistic: func(store *cache.Store) mutation.Rollback {
			snap, ok := store.Peek(orderKey(id))
			order, valid := snap.Value.(Order)
			if !ok || !valid {
				return nil
			}
			patched := order
			patched.Status = status
			prev := store.Write(orderKey(id), patched)
			return func() { store.Restore(orderKey(id), prev) }
		},
	})
	if err != nil {
		return Order{}, err
	}
	order, _ := result.(Order)
	return order, nil
}

// CreateReturn opens a return request.
func (s *Service) CreateReturn(ctx context.Context, orderID, productID, reason string) (ReturnRequest, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindCreateReturn,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.CreateReturn(ctx, orderID, productID, reason)
		},
		Invalidates: []cache.Pattern{cache.ByID(mutation.ResOrder, orderID)},
	})
	if err != nil {
		return ReturnRequest{}, err
	}
	r, _ := result.(ReturnRequest)
	return r, nil
}

// CreateExchange opens an exchange request.
func (s *Service) CreateExchange(ctx context.Context, orderID, productID, reason string) (ReturnRequest, error) {
	result, err := s.exec.Mutate(ctx, mutation.Descriptor{
		Kind: mutation.KindCreateExchange,
		Execute: func(ctx context.Context) (any, error) {
			return s.api.CreateExchange(ctx, orderID, productID, reason)
		},
		Invalidates: []cache.Pattern{cache.ByID(mutation.ResOrder, orderID)},
	})
	if err != nil {
		return ReturnRequest{}, err
	}
	r, _ := result.(ReturnRequest)
	return r, nil
}

// removeWishlistItemPatch drops one wishlist row from the cached list.
func removeWishlistItemPatch(itemID string) mutation.Patch {
	return func(store *cache.Store) mutation.Rollback {
		snap, ok := store.Peek(wishlistKey())
		items, valid := snap.Value.([]WishlistItem)
		if !ok || !valid {
			return nil
		}
		patched := make([]WishlistItem, 0, len(items))
		for _, item := range items {
			if item.ID != itemID {
				patched = append(patched, item)
			}
		}
		prev := store.Write(wishlistKey(), patched)
		return func() { store.Restore(wishlistKey(), prev) }
	}
}

// removeCartItemPatch drops one cart line from the cached cart.
func removeCartItemPatch(itemID string) mutation.Patch {
	return func(store *cache.Store) mutation.Rollback {
		snap, ok := store.Peek(cartKey())
		cart, valid := snap.Value.(Cart)
		if !ok || !valid {
			return nil
		}
		patched := cart
		patched.Items = make([]CartItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if item.ID != itemID {
				patched.Items = append(patched.Items, item)
			}
		}
		prev := store.Write(cartKey(), patched)
		return func() { store.Restore(cartKey(), prev) }
	}
}

func asCart(result any) Cart {
	cart, _ := result.(Cart)
	return cart
}
