package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	apperrors "trimline/pkg/errors"
)

func TestWithProviderLock_MutualExclusion(t *testing.T) {
	mgr := NewMemoryManager()

	const goroutines = 20
	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithProviderLock(context.Background(), "barber-1", 5*time.Second, func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most 1 goroutine inside the critical section, observed %d", maxInside)
	}
}

func TestWithProviderLock_DifferentProvidersDoNotBlock(t *testing.T) {
	mgr := NewMemoryManager()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = mgr.WithProviderLock(context.Background(), "barber-1", time.Second, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- mgr.WithProviderLock(context.Background(), "barber-2", 100*time.Millisecond, func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("lock for an unrelated provider failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("lock for an unrelated provider blocked behind barber-1")
	}
}

func TestWithProviderLock_Timeout(t *testing.T) {
	mgr := NewMemoryManager()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = mgr.WithProviderLock(context.Background(), "barber-1", time.Second, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	err := mgr.WithProviderLock(context.Background(), "barber-1", 20*time.Millisecond, func(ctx context.Context) error {
		t.Error("fn must not run when the lock times out")
		return nil
	})

	if !apperrors.HasCode(err, apperrors.CodeLockTimeout) {
		t.Fatalf("expected LOCK_TIMEOUT, got %v", err)
	}
}

func TestWithProviderLock_ReleasedOnError(t *testing.T) {
	mgr := NewMemoryManager()

	wantErr := errors.New("critical section failed")
	err := mgr.WithProviderLock(context.Background(), "barber-1", time.Second, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the fn error back, got %v", err)
	}

	// A failed attempt must leave the lock free.
	err = mgr.WithProviderLock(context.Background(), "barber-1", 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("lock was not released after error: %v", err)
	}
}

func TestWithProviderLock_ReleasedOnPanic(t *testing.T) {
	mgr := NewMemoryManager()

	func() {
		defer func() { _ = recover() }()
		_ = mgr.WithProviderLock(context.Background(), "barber-1", time.Second, func(ctx context.Context) error {
			panic("boom")
		})
	}()

	err := mgr.WithProviderLock(context.Background(), "barber-1", 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("lock was not released after panic: %v", err)
	}
}

func TestWithProviderLock_ContextCancelled(t *testing.T) {
	mgr := NewMemoryManager()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = mgr.WithProviderLock(context.Background(), "barber-1", time.Second, func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := mgr.WithProviderLock(ctx, "barber-1", time.Hour, func(ctx context.Context) error {
		t.Error("fn must not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryManager_EntriesAreReclaimed(t *testing.T) {
	mgr := NewMemoryManager().(*memoryManager)

	for i := 0; i < 100; i++ {
		_ = mgr.WithProviderLock(context.Background(), "barber-1", time.Second, func(ctx context.Context) error {
			return nil
		})
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if len(mgr.locks) != 0 {
		t.Errorf("expected lock map to be empty after release, has %d entries", len(mgr.locks))
	}
}
