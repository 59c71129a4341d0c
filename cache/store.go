package cache

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-storefront-cache/internal/flight"
)

// FetchFn is the function signature the store expects when fetching a
// resource from the source of truth.
type FetchFn func(ctx context.Context) (any, error)

// Store is the process-wide query cache. It holds the last known value,
// status and subscriber count for every resource key, resolves misses
// through a deduplicated fetch, and applies invalidation fan-out. All
// mutation of cached state goes through its API; entries handed to
// callers are snapshots.
type Store struct {
	cfg     Config
	log     zerolog.Logger
	flight  *flight.Group
	entries *xsync.MapOf[string, *liveEntry]
	now     func() time.Time
}

// liveEntry is the store-owned mutable state behind one key. seq is the
// monotonic sequence bumped by every invalidation; a fetch response is
// applied only if the sequence captured at dispatch still matches, which
// is what keeps an out-of-order response from racing stale data over
// fresh. dispatchSeq is seq as of the moment the in-flight fetch was
// dispatched; callers joining that fetch must guard with it, not the
// current seq, or a joiner arriving after an invalidation would
// legitimize the pre-invalidation response.
type liveEntry struct {
	mu           sync.Mutex
	key          Key
	status       Status
	value        any
	err          error
	lastUpdated  time.Time
	staleAt      time.Time
	seq          uint64
	dispatchSeq  uint64
	fetching     bool
	evicted      bool
	listeners    map[int]func(Entry)
	nextListener int
	gcTimer      *time.Timer
}

// Option adjusts store construction.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides the store's time source. Test use.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store with the given configuration.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:     cfg,
		log:     zerolog.Nop(),
		flight:  flight.New(),
		entries: xsync.NewMapOf[string, *liveEntry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Read returns the current entry for key synchronously and, when the
// entry is missing, errored, invalidated, or older than the staleTime
// window, dispatches a background fetch. The returned snapshot lets the
// caller render the last known value immediately; subscribers are
// notified when the fetch settles.
func (s *Store) Read(ctx context.Context, key Key, fetch FetchFn, opts ...ReadOption) Entry {
	o := s.readOptions(opts)
	e := s.entry(key)

	e.mu.Lock()
	if e.fetching || !s.needsRefreshLocked(e, o) {
		snap := s.snapshotLocked(e)
		e.mu.Unlock()
		readsTotal.WithLabelValues("fresh").Inc()
		return snap
	}

	outcome := "refresh"
	if e.status != StatusSuccess {
		outcome = "miss"
	}
	s.beginFetchLocked(e)
	seq := e.dispatchSeq
	snap := s.snapshotLocked(e)
	e.mu.Unlock()

	readsTotal.WithLabelValues(outcome).Inc()
	// An in-flight fetch outlives its subscribers; it completes and
	// populates the cache for the next consumer.
	go s.resolve(context.WithoutCancel(ctx), e, key, seq, fetch) //nolint:errcheck

	return snap
}

// Fetch is the blocking read-through variant of Read: it returns the
// cached value when fresh, otherwise waits for the (deduplicated) fetch
// to settle and returns the fresh value or error.
func (s *Store) Fetch(ctx context.Context, key Key, fetch FetchFn, opts ...ReadOption) (any, error) {
	o := s.readOptions(opts)
	e := s.entry(key)

	e.mu.Lock()
	if !s.needsRefreshLocked(e, o) && e.status == StatusSuccess {
		v := e.value
		e.mu.Unlock()
		readsTotal.WithLabelValues("fresh").Inc()
		return v, nil
	}
	if !e.fetching {
		s.beginFetchLocked(e)
	}
	// Joining an in-flight fetch guards with the sequence captured when
	// that fetch was dispatched, not the current one.
	seq := e.dispatchSeq
	e.mu.Unlock()

	readsTotal.WithLabelValues("miss").Inc()
	return s.resolve(ctx, e, key, seq, fetch)
}

// Write force-sets the entry for key to value, bypassing the network.
// It is the primitive optimistic patches are built on. The previous
// snapshot is returned so the caller can restore it on rollback.
func (s *Store) Write(key Key, value any) Entry {
	e := s.entry(key)

	e.mu.Lock()
	prev := s.snapshotLocked(e)
	e.status = StatusSuccess
	e.value = value
	e.err = nil
	e.lastUpdated = s.now()
	listeners, snap := s.listenersLocked(e)
	e.mu.Unlock()

	s.notify(listeners, snap)
	return prev
}

// Restore resets the entry for key to a previously captured snapshot.
// Used to roll back an optimistic patch after a failed mutation.
func (s *Store) Restore(key Key, prev Entry) {
	e := s.entry(key)

	e.mu.Lock()
	e.status = prev.Status
	e.value = prev.Value
	e.err = prev.Err
	e.lastUpdated = prev.LastUpdatedAt
	e.staleAt = prev.StaleAt
	listeners, snap := s.listenersLocked(e)
	e.mu.Unlock()

	s.notify(listeners, snap)
}

// Peek returns the current snapshot for key without scheduling a fetch.
func (s *Store) Peek(key Key) (Entry, bool) {
	e, ok := s.entries.Load(key.String())
	if !ok {
		return Entry{}, false
	}
	e.mu.Lock()
	snap := s.snapshotLocked(e)
	e.mu.Unlock()
	return snap, true
}

// Invalidate marks every entry matching one of the patterns as stale.
// Matching entries with a cached value keep it, enabling
// stale-while-revalidate display; entries nobody subscribes to are
// evicted outright since there is no value worth keeping warm. Returns
// the number of entries touched.
func (s *Store) Invalidate(patterns ...Pattern) int {
	n := 0
	s.entries.Range(func(keyStr string, e *liveEntry) bool {
		e.mu.Lock()
		matched := false
		for _, p := range patterns {
			if p.Matches(e.key) {
				matched = true
				break
			}
		}
		if !matched {
			e.mu.Unlock()
			return true
		}
		n++
		if len(e.listeners) == 0 && !e.fetching {
			e.evicted = true
			e.mu.Unlock()
			s.entries.Delete(keyStr)
			invalidationsTotal.WithLabelValues("evict").Inc()
			return true
		}
		s.markStaleLocked(e)
		listeners, snap := s.listenersLocked(e)
		e.mu.Unlock()
		invalidationsTotal.WithLabelValues("stale").Inc()
		s.notify(listeners, snap)
		return true
	})
	return n
}

// InvalidateKey marks the exact entries for the given keys as stale,
// with the same eviction rule as Invalidate.
func (s *Store) InvalidateKey(keys ...Key) int {
	n := 0
	for _, key := range keys {
		e, ok := s.entries.Load(key.String())
		if !ok {
			continue
		}
		n++
		e.mu.Lock()
		if len(e.listeners) == 0 && !e.fetching {
			e.evicted = true
			e.mu.Unlock()
			s.entries.Delete(key.String())
			invalidationsTotal.WithLabelValues("evict").Inc()
			continue
		}
		s.markStaleLocked(e)
		listeners, snap := s.listenersLocked(e)
		e.mu.Unlock()
		invalidationsTotal.WithLabelValues("stale").Inc()
		s.notify(listeners, snap)
	}
	return n
}

// Subscribe registers a listener for entry changes under key, creating
// the entry if it does not exist yet. The returned function removes the
// listener; when the last listener for a key is removed the entry
// becomes garbage-eligible after the configured grace period.
func (s *Store) Subscribe(key Key, listener func(Entry)) (unsubscribe func()) {
	e := s.entry(key)

	e.mu.Lock()
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	if e.listeners == nil {
		e.listeners = make(map[int]func(Entry))
	}
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = listener
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			if len(e.listeners) == 0 {
				s.scheduleGCLocked(e)
			}
			e.mu.Unlock()
		})
	}
}

// Len returns the number of live entries. Diagnostic only.
func (s *Store) Len() int {
	return s.entries.Size()
}

// Reset drops every entry and pending eviction timer. Test isolation
// hook; never called in normal operation.
func (s *Store) Reset() {
	s.entries.Range(func(keyStr string, e *liveEntry) bool {
		e.mu.Lock()
		e.evicted = true
		if e.gcTimer != nil {
			e.gcTimer.Stop()
			e.gcTimer = nil
		}
		e.mu.Unlock()
		s.entries.Delete(keyStr)
		return true
	})
}

// entry returns the live entry for key, creating an idle one if needed.
// A freshly evicted entry is replaced rather than resurrected.
func (s *Store) entry(key Key) *liveEntry {
	for {
		e, _ := s.entries.LoadOrCompute(key.String(), func() *liveEntry {
			return &liveEntry{key: key, status: StatusIdle}
		})
		e.mu.Lock()
		dead := e.evicted
		e.mu.Unlock()
		if !dead {
			return e
		}
		s.entries.Delete(key.String())
	}
}

// needsRefreshLocked reports whether the entry's value must be fetched
// again: no value yet, last fetch errored, invalidated since the last
// update, or older than the staleTime window.
func (s *Store) needsRefreshLocked(e *liveEntry, o readOptions) bool {
	switch e.status {
	case StatusIdle, StatusLoading, StatusError:
		return true
	}
	if !e.staleAt.IsZero() {
		return true
	}
	staleTime := s.cfg.StaleTime
	if o.hasStaleTime {
		staleTime = o.staleTime
	}
	if staleTime <= 0 {
		return true
	}
	return s.now().Sub(e.lastUpdated) >= staleTime
}

// beginFetchLocked transitions the entry into its fetching state. An
// entry with a value keeps serving it while the refresh is in flight.
func (s *Store) beginFetchLocked(e *liveEntry) {
	e.fetching = true
	e.dispatchSeq = e.seq
	if e.status != StatusSuccess {
		e.status = StatusLoading
		e.err = nil
	}
}

// markStaleLocked records an invalidation: the value is kept, the stale
// timestamp is set and the sequence is bumped so any in-flight response
// dispatched before this point is discarded on arrival.
func (s *Store) markStaleLocked(e *liveEntry) {
	e.staleAt = s.now()
	e.seq++
}

// resolve waits for the deduplicated fetch to settle and applies the
// outcome, honoring the sequence guard: a response that lost to a newer
// invalidation is discarded and a fresh fetch is dispatched immediately
// so the entry still converges.
func (s *Store) resolve(ctx context.Context, e *liveEntry, key Key, seq uint64, fetch FetchFn) (any, error) {
	for {
		e.mu.Lock()
		if !e.evicted && !e.fetching && e.seq == seq {
			// Settled by a concurrent resolver between dispatch and here;
			// joining the in-flight table now would start a redundant call.
			snap := s.snapshotLocked(e)
			e.mu.Unlock()
			if snap.Status == StatusError {
				return nil, snap.Err
			}
			return snap.Value, nil
		}
		e.mu.Unlock()

		v, shared, err := s.flight.Do(ctx, key.String(), flight.FetchFn(fetch))
		if shared {
			s.log.Debug().Str("key", key.String()).Msg("fetch shared with concurrent caller")
		}

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			return v, err
		}
		if e.seq != seq {
			seq = e.seq
			e.dispatchSeq = e.seq
			e.mu.Unlock()
			staleDiscards.Inc()
			s.log.Debug().Str("key", key.String()).Msg("discarding fetch response, newer invalidation pending")
			continue
		}
		if !e.fetching {
			// Another resolver already applied this settle.
			snap := s.snapshotLocked(e)
			e.mu.Unlock()
			if snap.Status == StatusError {
				return nil, snap.Err
			}
			return snap.Value, nil
		}

		e.fetching = false
		if err != nil {
			e.status = StatusError
			e.err = err
			fetchesTotal.WithLabelValues("error").Inc()
		} else {
			e.status = StatusSuccess
			e.value = v
			e.err = nil
			e.lastUpdated = s.now()
			e.staleAt = time.Time{}
			fetchesTotal.WithLabelValues("success").Inc()
		}
		if len(e.listeners) == 0 && e.gcTimer == nil {
			s.scheduleGCLocked(e)
		}
		listeners, snap := s.listenersLocked(e)
		e.mu.Unlock()

		s.notify(listeners, snap)
		return v, err
	}
}

// scheduleGCLocked starts the grace-period timer that drops an entry
// once nothing subscribes to it. Cancelled by a new subscription.
func (s *Store) scheduleGCLocked(e *liveEntry) {
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}
	keyStr := e.key.String()
	e.gcTimer = time.AfterFunc(s.cfg.GCGrace, func() {
		e.mu.Lock()
		if len(e.listeners) > 0 || e.fetching {
			e.mu.Unlock()
			return
		}
		e.evicted = true
		e.gcTimer = nil
		e.mu.Unlock()
		s.entries.Delete(keyStr)
	})
}

func (s *Store) snapshotLocked(e *liveEntry) Entry {
	return Entry{
		Key:           e.key,
		Status:        e.status,
		Value:         e.value,
		Err:           e.err,
		LastUpdatedAt: e.lastUpdated,
		StaleAt:       e.staleAt,
		Subscribers:   len(e.listeners),
	}
}

func (s *Store) listenersLocked(e *liveEntry) ([]func(Entry), Entry) {
	snap := s.snapshotLocked(e)
	if len(e.listeners) == 0 {
		return nil, snap
	}
	listeners := make([]func(Entry), 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	return listeners, snap
}

func (s *Store) notify(listeners []func(Entry), snap Entry) {
	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) readOptions(opts []ReadOption) readOptions {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GetOrFetch is the typed blocking read-through helper: it resolves key
// through the store and asserts the result to T, recovering static
// typing over the shared any-valued store.
func GetOrFetch[T any](ctx context.Context, s *Store, key Key, fetch func(ctx context.Context) (T, error), opts ...ReadOption) (T, error) {
	v, err := s.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	if v == nil {
		// The entry was reset or evicted between dispatch and settle.
		var zero T
		return zero, ErrNoValue
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, ErrInvalidResultType
	}
	return typed, nil
}

// ReadAs is the typed non-blocking variant of Read. The snapshot's
// value is asserted to T; a snapshot without a value yields the zero T.
func ReadAs[T any](ctx context.Context, s *Store, key Key, fetch func(ctx context.Context) (T, error), opts ...ReadOption) (T, Entry) {
	snap := s.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, opts...)
	if typed, ok := snap.Value.(T); ok {
		return typed, snap
	}
	var zero T
	return zero, snap
}
