package mutation

import "github.com/goliatone/go-storefront-cache/cache"

// Resource type names shared by the storefront's cache keys and the
// fan-out rules below.
const (
	ResProduct     = "product"
	ResProductList = "product-list"
	ResCart        = "cart"
	ResWishlist    = "wishlist"
	ResOrder       = "order"
	ResOrderList   = "order-list"
	ResReturn      = "return-list"
	ResExchange    = "exchange-list"
	ResLookup      = "lookup"
	ResDashboard   = "dashboard"
)

// Kind identifies a mutation for the fan-out table and log correlation.
type Kind string

const (
	KindAddToCart              Kind = "add-to-cart"
	KindUpdateCartItem         Kind = "update-cart-item"
	KindRemoveFromCart         Kind = "remove-from-cart"
	KindClearCart              Kind = "clear-cart"
	KindAddToWishlist          Kind = "add-to-wishlist"
	KindRemoveFromWishlist     Kind = "remove-from-wishlist"
	KindMoveWishlistItemToCart Kind = "move-wishlist-item-to-cart"
	KindPlaceOrder             Kind = "place-order"
	KindUpdateOrderStatus      Kind = "update-order-status"
	KindCancelOrder            Kind = "cancel-order"
	KindCreateReturn           Kind = "create-return"
	KindCreateExchange         Kind = "create-exchange"
	KindCreateProduct          Kind = "create-product"
	KindUpdateProduct          Kind = "update-product"
	KindDeleteProduct          Kind = "delete-product"
	KindUpdateLookup           Kind = "update-lookup"
)

// Rules is the declarative coherence contract: for each mutation kind,
// the set of key patterns it must invalidate. Descriptor call sites may
// add item-exact patterns on top (an updated order's own detail key,
// for example); the table carries everything that can be declared
// statically.
type Rules map[Kind][]cache.Pattern

// DefaultRules returns the storefront fan-out table.
//
// The rule of thumb encoded here: any mutation that changes membership
// of a collection invalidates every list key of that collection, not
// just the affected item, because filtered/sorted/paginated list
// results cannot be patched locally without re-deriving order and
// counts.
func DefaultRules() Rules {
	return Rules{
		KindAddToCart:      {cache.ByType(ResCart)},
		KindUpdateCartItem: {cache.ByType(ResCart)},
		KindRemoveFromCart: {cache.ByType(ResCart)},
		KindClearCart:      {cache.ByType(ResCart)},

		KindAddToWishlist:      {cache.ByType(ResWishlist)},
		KindRemoveFromWishlist: {cache.ByType(ResWishlist)},

		// Moving an item atomically changes membership of two
		// independent collections.
		KindMoveWishlistItemToCart: {cache.ByType(ResWishlist), cache.ByType(ResCart)},

		KindPlaceOrder: {
			cache.ByType(ResCart),
			cache.ByType(ResOrderList),
			cache.ByType(ResDashboard),
		},
		// Item-level order mutations: the call site appends the exact
		// order detail pattern (cache.ByID(ResOrder, id)); list keys
		// are unbounded and declared here.
		KindUpdateOrderStatus: {cache.ByType(ResOrderList), cache.ByType(ResDashboard)},
		KindCancelOrder:       {cache.ByType(ResOrderList), cache.ByType(ResDashboard)},

		KindCreateReturn:   {cache.ByType(ResReturn), cache.ByType(ResOrderList), cache.ByType(ResDashboard)},
		KindCreateExchange: {cache.ByType(ResExchange), cache.ByType(ResOrderList), cache.ByType(ResDashboard)},

		KindCreateProduct: {cache.ByType(ResProductList), cache.ByType(ResDashboard)},
		KindUpdateProduct: {cache.ByType(ResProductList)},
		KindDeleteProduct: {
			cache.ByType(ResProductList),
			// Deleted products may still be referenced by wishlist and
			// cart rows; enriched views must re-resolve them.
			cache.ByType(ResWishlist),
			cache.ByType(ResCart),
			cache.ByType(ResDashboard),
		},

		KindUpdateLookup: {cache.ByType(ResLookup)},
	}
}

// PatternsFor returns the declared fan-out for kind. Unknown kinds have
// no static fan-out; their descriptors must declare patterns explicitly.
func (r Rules) PatternsFor(kind Kind) []cache.Pattern {
	return r[kind]
}
