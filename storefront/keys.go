package storefront

import (
	"github.com/goliatone/go-storefront-cache/cache"
	"github.com/goliatone/go-storefront-cache/mutation"
	"github.com/goliatone/go-storefront-cache/viewstate"
)

// Cache keys for the storefront's singleton resources. List keys are
// derived from view state by the codecs; item keys carry the id only.

func productKey(id string) cache.Key {
	return cache.MustKey(mutation.ResProduct, map[string]any{"id": id})
}

func cartKey() cache.Key {
	return cache.MustKey(mutation.ResCart, nil)
}

func wishlistKey() cache.Key {
	return cache.MustKey(mutation.ResWishlist, nil)
}

func orderKey(id string) cache.Key {
	return cache.MustKey(mutation.ResOrder, map[string]any{"id": id})
}

func dashboardKey() cache.Key {
	return cache.MustKey(mutation.ResDashboard, nil)
}

// ProductListCodec returns the codec for catalog list views: filterable
// by category/brand/search, sorted by newest first, 20 per page.
func ProductListCodec() *viewstate.Codec {
	return viewstate.NewCodec(mutation.ResProductList, viewstate.Defaults{
		Sort:     "newest",
		PageSize: 20,
	})
}

// OrderListCodec returns the codec for the admin order listing:
// status-filterable, newest first, 25 per page.
func OrderListCodec() *viewstate.Codec {
	return viewstate.NewCodec(mutation.ResOrderList, viewstate.Defaults{
		Sort:     "placed_desc",
		PageSize: 25,
	})
}
