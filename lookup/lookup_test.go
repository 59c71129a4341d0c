package lookup

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func staticLookup(items []Item, calls *atomic.Int32) FetchFn {
	return func(ctx context.Context) ([]Item, error) {
		calls.Add(1)
		return items, nil
	}
}

func TestRegistry_GetCachesAcrossCalls(t *testing.T) {
	r := newTestRegistry(t)

	var calls atomic.Int32
	categories := []Item{
		{Value: "boots", Label: "Boots"},
		{Value: "sandals", Label: "Sandals"},
	}
	r.Register("categories", staticLookup(categories, &calls))

	for i := 0; i < 3; i++ {
		got, err := r.Get(context.Background(), "categories")
		if err != nil {
			t.Fatalf("Get() call %d error = %v", i, err)
		}
		if len(got) != 2 || got[0].Value != "boots" {
			t.Fatalf("Get() call %d = %v", i, got)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetcher invoked %d times across 3 gets, want 1", got)
	}
}

func TestRegistry_UnknownName(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Get(context.Background(), "colors"); !errors.Is(err, ErrUnknownLookup) {
		t.Errorf("Get() error = %v, want ErrUnknownLookup", err)
	}
}

func TestRegistry_FetchErrorPropagates(t *testing.T) {
	r := newTestRegistry(t)
	fetchErr := errors.New("upstream down")
	r.Register("brands", func(ctx context.Context) ([]Item, error) {
		return nil, fetchErr
	})

	if _, err := r.Get(context.Background(), "brands"); !errors.Is(err, fetchErr) {
		t.Errorf("Get() error = %v, want %v", err, fetchErr)
	}
}

func TestRegistry_InvalidateForcesRefetch(t *testing.T) {
	r := newTestRegistry(t)

	var calls atomic.Int32
	r.Register("countries", staticLookup([]Item{{Value: "de", Label: "Germany"}}, &calls))

	if _, err := r.Get(context.Background(), "countries"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	r.Invalidate("countries")
	if _, err := r.Get(context.Background(), "countries"); err != nil {
		t.Fatalf("Get() after invalidate error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetcher invoked %d times, want 2", got)
	}
}

func TestRegistry_InvalidateAll(t *testing.T) {
	r := newTestRegistry(t)

	var a, b atomic.Int32
	r.Register("categories", staticLookup([]Item{{Value: "boots"}}, &a))
	r.Register("brands", staticLookup([]Item{{Value: "acme"}}, &b))

	for _, name := range []string{"categories", "brands"} {
		if _, err := r.Get(context.Background(), name); err != nil {
			t.Fatalf("Get(%s) error = %v", name, err)
		}
	}

	if n := r.InvalidateAll(); n != 2 {
		t.Errorf("InvalidateAll() = %d, want 2", n)
	}

	for _, name := range []string{"categories", "brands"} {
		if _, err := r.Get(context.Background(), name); err != nil {
			t.Fatalf("Get(%s) after invalidate error = %v", name, err)
		}
	}
	if a.Load() != 2 || b.Load() != 2 {
		t.Errorf("fetch counts after InvalidateAll = %d/%d, want 2/2", a.Load(), b.Load())
	}
}

func TestRegistry_RegisterReplacesFetcher(t *testing.T) {
	r := newTestRegistry(t)

	r.Register("statuses", func(ctx context.Context) ([]Item, error) {
		return []Item{{Value: "old"}}, nil
	})
	r.Register("statuses", func(ctx context.Context) ([]Item, error) {
		return []Item{{Value: "new"}}, nil
	})

	got, err := r.Get(context.Background(), "statuses")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 1 || got[0].Value != "new" {
		t.Errorf("Get() = %v, want replacement fetcher's result", got)
	}
}

func TestRegistry_Names(t *testing.T) {
	r := newTestRegistry(t)
	r.Register("categories", nil)
	r.Register("brands", nil)

	names := r.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "brands" || names[1] != "categories" {
		t.Errorf("Names() = %v", names)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(*Config) {}, false},
		{"zero capacity", func(c *Config) { c.Capacity = 0 }, true},
		{"negative ttl", func(c *Config) { c.TTL = -1 }, true},
		{"zero shards", func(c *Config) { c.NumShards = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
