package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// readsTotal tracks reads by outcome: "fresh" (served without a
	// fetch), "refresh" (served stale value, fetch dispatched) or
	// "miss" (no value yet, fetch dispatched).
	readsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_reads_total",
			Help: "Total number of cache reads by outcome",
		},
		[]string{"outcome"},
	)

	// fetchesTotal tracks fetch completions by result.
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_fetches_total",
			Help: "Total number of completed fetches by result",
		},
		[]string{"result"}, // "success", "error"
	)

	// staleDiscards tracks responses dropped because a newer
	// invalidation-triggered fetch had already started for the key.
	staleDiscards = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_stale_discards_total",
			Help: "Total number of fetch responses discarded by the sequence guard",
		},
	)

	// invalidationsTotal tracks entries marked stale or evicted by
	// invalidation fan-out.
	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_invalidations_total",
			Help: "Total number of entries invalidated",
		},
		[]string{"action"}, // "stale", "evict"
	)
)
