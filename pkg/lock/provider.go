package lock

import (
	"context"
	"sync"
	"time"
	apperrors "trimline/pkg/errors"
)

// Manager serializes reservation critical sections per provider. The lock
// is scoped to one provider id so unrelated providers book in parallel;
// it is not reentrant, and the engine acquires it at most once per
// attempt.
type Manager interface {
	WithProviderLock(ctx context.Context, providerID string, timeout time.Duration, fn func(ctx context.Context) error) error
}

// memoryManager is the single-instance backend: a map of one-permit
// semaphores keyed by provider id. Entries are reference-counted and
// removed once no goroutine holds or waits for them, so the map does not
// grow with the provider population.
type memoryManager struct {
	mu    sync.Mutex
	locks map[string]*providerLock
}

type providerLock struct {
	sem  chan struct{}
	refs int
}

func NewMemoryManager() Manager {
	return &memoryManager{
		locks: make(map[string]*providerLock),
	}
}

func (m *memoryManager) WithProviderLock(ctx context.Context, providerID string, timeout time.Duration, fn func(ctx context.Context) error) error {
	entry := m.retain(providerID)
	defer m.release(providerID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
	case <-timer.C:
		return apperrors.LockTimeout(providerID)
	case <-ctx.Done():
		return ctx.Err()
	}

	// The semaphore drains on every exit path, panics included, so a
	// failed critical section can never wedge the provider.
	defer func() { <-entry.sem }()

	return fn(ctx)
}

func (m *memoryManager) retain(providerID string) *providerLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[providerID]
	if !ok {
		entry = &providerLock{sem: make(chan struct{}, 1)}
		m.locks[providerID] = entry
	}
	entry.refs++
	return entry
}

func (m *memoryManager) release(providerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[providerID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, providerID)
	}
}
