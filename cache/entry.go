package cache

import "time"

// Status is the lifecycle state of a cache entry. Components consume a
// single tri-state per entry instead of scattering loading flags.
type Status int

const (
	// StatusIdle marks an entry created by a subscription before any
	// fetch has been dispatched for it.
	StatusIdle Status = iota

	// StatusLoading marks an entry with a fetch in flight and no prior
	// value to fall back on.
	StatusLoading

	// StatusSuccess marks an entry holding a fetched or written value.
	StatusSuccess

	// StatusError marks an entry whose last fetch failed. The entry is
	// eligible for refetch on the next read, not permanently poisoned.
	StatusError
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is an immutable snapshot of one cached resource as observed by
// subscribers. The store owns the live state; entries handed out are
// copies and mutating them has no effect on the cache.
type Entry struct {
	Key    Key
	Status Status

	// Value is the last known value. Invalidation does not clear it,
	// which is what makes stale-while-revalidate rendering possible.
	Value any

	// Err is set when Status is StatusError.
	Err error

	// LastUpdatedAt is when Value last changed (fetch or direct write).
	LastUpdatedAt time.Time

	// StaleAt is the time of the most recent invalidation. Zero means
	// the entry has not been invalidated since its last update.
	StaleAt time.Time

	// Subscribers is the reference count at snapshot time.
	Subscribers int
}

// Stale reports whether the entry has been invalidated after its last
// update and should be refetched on the next read.
func (e Entry) Stale() bool {
	return !e.StaleAt.IsZero()
}

// Fresh reports whether the entry holds a value within staleTime of its
// last update and has not been invalidated since.
func (e Entry) Fresh(staleTime time.Duration, now time.Time) bool {
	if e.Status != StatusSuccess || e.Stale() {
		return false
	}
	if staleTime <= 0 {
		return false
	}
	return now.Sub(e.LastUpdatedAt) < staleTime
}
