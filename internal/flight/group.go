// Package flight collapses concurrent fetches for the same resource key
// into a single underlying call. It is the process-wide in-flight table
// shared by the query cache and any other code path requesting the same
// key, so both always observe the same outstanding request.
package flight

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// FetchFn is the function signature the deduplicator expects when
// fetching from the source of truth.
type FetchFn func(ctx context.Context) (any, error)

// record tracks one in-flight request for diagnostics. At most one
// record exists per key at any instant; it is dropped on settle.
type record struct {
	waiters atomic.Int64
}

// Group deduplicates concurrent calls per key. Exactly one underlying
// fetch runs per key per overlapping request burst, regardless of how
// many callers requested it while the first call was outstanding.
type Group struct {
	sf      singleflight.Group
	records *xsync.MapOf[string, *record]
}

// New creates an empty deduplication group.
func New() *Group {
	return &Group{
		records: xsync.NewMapOf[string, *record](),
	}
}

// Do returns the result of fetch for key, coalescing duplicate calls.
// All callers that joined while the call was in flight receive the same
// value or error. shared reports whether this caller joined an existing
// call rather than starting one.
//
// Cancellation is not per-caller: the fetch runs on the context of the
// caller that started it and completes even if later joiners give up.
func (g *Group) Do(ctx context.Context, key string, fetch FetchFn) (v any, shared bool, err error) {
	rec, _ := g.records.LoadOrCompute(key, func() *record { return &record{} })
	rec.waiters.Add(1)
	defer func() {
		if rec.waiters.Add(-1) == 0 {
			g.records.Delete(key)
		}
	}()

	v, err, shared = g.sf.Do(key, func() (any, error) {
		return runFetch(ctx, fetch)
	})
	return v, shared, err
}

// Forget drops the in-flight call for key so the next Do starts a fresh
// fetch instead of joining the old one. The old call still settles for
// the callers already attached to it.
func (g *Group) Forget(key string) {
	g.sf.Forget(key)
}

// Waiters returns the number of callers currently attached to the
// in-flight call for key. Diagnostic only.
func (g *Group) Waiters(key string) int64 {
	if rec, ok := g.records.Load(key); ok {
		return rec.waiters.Load()
	}
	return 0
}

// runFetch invokes fetch, converting a panic into an error so a fetcher
// that fails synchronously behaves like an immediately rejected call
// and never leaves an orphaned in-flight record.
func runFetch(ctx context.Context, fetch FetchFn) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panic: %v", r)
		}
	}()
	return fetch(ctx)
}
