package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 1000 {
		t.Errorf("expected Capacity to be 1000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 64 {
		t.Errorf("expected NumShards to be 64, got %d", cfg.NumShards)
	}

	if cfg.TTL != 15*time.Minute {
		t.Errorf("expected TTL to be 15 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.EarlyRefresh == nil {
		t.Fatal("expected EarlyRefresh to be configured")
	}

	if cfg.EarlyRefresh.MinAsyncRefreshTime != 5*time.Minute {
		t.Errorf("expected EarlyRefresh.MinAsyncRefreshTime to be 5 minutes, got %v", cfg.EarlyRefresh.MinAsyncRefreshTime)
	}

	if cfg.EarlyRefresh.MaxAsyncRefreshTime != 10*time.Minute {
		t.Errorf("expected EarlyRefresh.MaxAsyncRefreshTime to be 10 minutes, got %v", cfg.EarlyRefresh.MaxAsyncRefreshTime)
	}

	if cfg.EarlyRefresh.SyncRefreshTime != 12*time.Minute {
		t.Errorf("expected EarlyRefresh.SyncRefreshTime to be 12 minutes, got %v", cfg.EarlyRefresh.SyncRefreshTime)
	}

	if cfg.EarlyRefresh.RetryBaseDelay != time.Second {
		t.Errorf("expected EarlyRefresh.RetryBaseDelay to be 1s, got %v", cfg.EarlyRefresh.RetryBaseDelay)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError bool
	}{
		{
			name:      "valid default config",
			cfg:       DefaultConfig(),
			wantError: false,
		},
		{
			name: "invalid capacity - zero",
			cfg: Config{
				Capacity:           0,
				NumShards:          64,
				TTL:                15 * time.Minute,
				EvictionPercentage: 10,
			},
			wantError: true,
		},
		{
			name: "invalid num shards - zero",
			cfg: Config{
				Capacity:           1000,
				NumShards:          0,
				TTL:                15 * time.Minute,
				EvictionPercentage: 10,
			},
			wantError: true,
		},
		{
			name: "invalid TTL - zero",
			cfg: Config{
				Capacity:           1000,
				NumShards:          64,
				TTL:                0,
				EvictionPercentage: 10,
			},
			wantError: true,
		},
		{
			name: "invalid eviction percentage - too low",
			cfg: Config{
				Capacity:           1000,
				NumShards:          64,
				TTL:                15 * time.Minute,
				EvictionPercentage: 0,
			},
			wantError: true,
		},
		{
			name: "invalid eviction percentage - too high",
			cfg: Config{
				Capacity:           1000,
				NumShards:          64,
				TTL:                15 * time.Minute,
				EvictionPercentage: 101,
			},
			wantError: true,
		},
		{
			name: "invalid early refresh min async time",
			cfg: Config{
				Capacity:           1000,
				NumShards:          64,
				TTL:                15 * time.Minute,
				EvictionPercentage: 10,
				EarlyRefresh: &EarlyRefreshConfig{
					MinAsyncRefreshTime: -1 * time.Second,
					MaxAsyncRefreshTime: 10 * time.Minute,
					SyncRefreshTime:     12 * time.Minute,
					RetryBaseDelay:      time.Second,
				},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("expected validation error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("expected no validation error but got: %v", err)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got := len(cfg.ToSturdycOptions()); got != 1 {
		t.Errorf("expected 1 sturdyc option for default config, got %d", got)
	}

	minimal := Config{
		Capacity:           1000,
		NumShards:          64,
		TTL:                time.Minute,
		EvictionPercentage: 5,
	}
	if got := len(minimal.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no sturdyc options for minimal config, got %d", got)
	}

	withInterval := minimal
	withInterval.EvictionInterval = 30 * time.Second
	if got := len(withInterval.ToSturdycOptions()); got != 1 {
		t.Errorf("expected 1 sturdyc option with eviction interval, got %d", got)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{
		Field:   "TestField",
		Message: "test message",
	}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestNewService(t *testing.T) {
	service, err := NewService(DefaultConfig())
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if service == nil {
		t.Fatal("expected service to be non-nil")
	}

	if _, err := NewService(Config{}); err == nil {
		t.Error("expected error for zero config but got none")
	}
}

func TestService_GetOrFetch(t *testing.T) {
	service, err := NewService(Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()

	t.Run("cache miss - fetch function called", func(t *testing.T) {
		fetchCalled := false
		result, err := service.GetOrFetch(ctx, "test-key", func(ctx context.Context) (any, error) {
			fetchCalled = true
			return "test-value", nil
		})
		if err != nil {
			t.Errorf("expected no error but got: %v", err)
		}
		if !fetchCalled {
			t.Error("expected fetch function to be called on cache miss")
		}
		if result != "test-value" {
			t.Errorf("expected result test-value, got %v", result)
		}
	})

	t.Run("cache hit - fetch function skipped", func(t *testing.T) {
		result, err := service.GetOrFetch(ctx, "test-key", func(ctx context.Context) (any, error) {
			t.Error("fetch function called for cached key")
			return nil, nil
		})
		if err != nil {
			t.Errorf("expected no error but got: %v", err)
		}
		if result != "test-value" {
			t.Errorf("expected cached result test-value, got %v", result)
		}
	})

	t.Run("fetch function returns error", func(t *testing.T) {
		fetchErr := errors.New("fetch failed")
		_, err := service.GetOrFetch(ctx, "error-key", func(ctx context.Context) (any, error) {
			return nil, fetchErr
		})
		if err == nil {
			t.Error("expected error but got none")
		}
	})
}

func TestService_Delete(t *testing.T) {
	service, err := NewService(Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()
	key := "delete-test-key"

	if _, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return "cached", nil
	}); err != nil {
		t.Fatalf("failed to cache value: %v", err)
	}

	service.Delete(key)

	fetchCalled := false
	if _, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		fetchCalled = true
		return "new-value", nil
	}); err != nil {
		t.Fatalf("failed to fetch after delete: %v", err)
	}
	if !fetchCalled {
		t.Error("expected fetch function to be called after delete, indicating cache miss")
	}
}

func TestService_DeleteByPrefix(t *testing.T) {
	service, err := NewService(Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()
	seed := map[string]string{
		"lookup::categories": "categories-value",
		"lookup::brands":     "brands-value",
		"session::abc":       "session-value",
	}
	for key, value := range seed {
		fetchFn := func(val string) func(ctx context.Context) (any, error) {
			return func(ctx context.Context) (any, error) {
				return val, nil
			}
		}(value)
		if _, err := service.GetOrFetch(ctx, key, fetchFn); err != nil {
			t.Fatalf("failed to cache value for key %s: %v", key, err)
		}
	}

	if n := service.DeleteByPrefix("lookup::"); n != 2 {
		t.Errorf("DeleteByPrefix returned %d, want 2", n)
	}

	verification := map[string]bool{
		"lookup::categories": false,
		"lookup::brands":     false,
		"session::abc":       true,
	}
	for key, shouldBeCached := range verification {
		fetchCalled := false
		if _, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
			fetchCalled = true
			return "new-value", nil
		}); err != nil {
			t.Fatalf("failed to fetch after delete: %v", err)
		}
		if shouldBeCached && fetchCalled {
			t.Errorf("expected key %s to still be cached, but fetch function was called", key)
		}
		if !shouldBeCached && !fetchCalled {
			t.Errorf("expected key %s to be deleted, but fetch function was not called", key)
		}
	}

	if n := service.DeleteByPrefix("nonexistent::"); n != 0 {
		t.Errorf("DeleteByPrefix with no matches returned %d, want 0", n)
	}
}
