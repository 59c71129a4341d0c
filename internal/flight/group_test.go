package flight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroup_DoCollapsesConcurrentCalls(t *testing.T) {
	g := New()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "result", nil
	}

	const callers = 5
	results := make([]any, callers)
	var sharedCount atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, shared, err := g.Do(context.Background(), "product::id=p-1", fetch)
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			if shared {
				sharedCount.Add(1)
			}
			results[i] = v
		}(i)
	}

	// Wait until every caller is attached before releasing the fetch.
	deadline := time.Now().Add(2 * time.Second)
	for g.Waiters("product::id=p-1") != callers {
		if time.Now().After(deadline) {
			t.Fatalf("waiters = %d, want %d", g.Waiters("product::id=p-1"), callers)
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch invoked %d times, want 1", got)
	}
	for i, v := range results {
		if v != "result" {
			t.Errorf("caller %d got %v, want result", i, v)
		}
	}
	if got := sharedCount.Load(); got != callers-1 {
		t.Errorf("shared reported by %d callers, want %d", got, callers-1)
	}
	if g.Waiters("product::id=p-1") != 0 {
		t.Error("in-flight record not dropped after settle")
	}
}

func TestGroup_DistinctKeysDoNotShare(t *testing.T) {
	g := New()

	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}

	for _, key := range []string{"cart", "wishlist", "order::id=o-1"} {
		if _, shared, err := g.Do(context.Background(), key, fetch); err != nil || shared {
			t.Errorf("Do(%s) shared=%v err=%v", key, shared, err)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("fetch invoked %d times, want 3", got)
	}
}

func TestGroup_ErrorPropagatesToAllCallers(t *testing.T) {
	g := New()
	fetchErr := errors.New("upstream down")

	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		<-release
		return nil, fetchErr
	}

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = g.Do(context.Background(), "dashboard", fetch)
		}(i)
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.Waiters("dashboard") != callers {
		if time.Now().After(deadline) {
			t.Fatal("callers never attached")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, fetchErr) {
			t.Errorf("caller %d error = %v, want %v", i, err, fetchErr)
		}
	}
}

func TestGroup_SequentialCallsFetchAgain(t *testing.T) {
	g := New()

	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		return calls.Add(1), nil
	}

	v1, _, _ := g.Do(context.Background(), "cart", fetch)
	v2, _, _ := g.Do(context.Background(), "cart", fetch)
	if v1 == v2 {
		t.Errorf("sequential calls shared a settled result: %v == %v", v1, v2)
	}
}

func TestGroup_PanicBecomesError(t *testing.T) {
	g := New()

	_, _, err := g.Do(context.Background(), "product", func(ctx context.Context) (any, error) {
		panic("decode failure")
	})
	if err == nil || !strings.Contains(err.Error(), "decode failure") {
		t.Errorf("Do() error = %v, want fetcher panic error", err)
	}
	if g.Waiters("product") != 0 {
		t.Error("panicking fetch left an in-flight record")
	}
}

func TestGroup_ForgetStartsFreshCall(t *testing.T) {
	g := New()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	first := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-release
		return "old", nil
	}

	done := make(chan any, 1)
	go func() {
		v, _, _ := g.Do(context.Background(), "order-list", first)
		done <- v
	}()
	<-started

	g.Forget("order-list")
	v, _, err := g.Do(context.Background(), "order-list", func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "new", nil
	})
	if err != nil || v != "new" {
		t.Errorf("post-Forget Do() = %v, %v", v, err)
	}

	close(release)
	if got := <-done; got != "old" {
		t.Errorf("original caller got %v, want old", got)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetch invoked %d times, want 2", got)
	}
}
