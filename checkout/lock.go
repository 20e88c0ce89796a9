package checkout

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a process-local Locker for single-instance deployments.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time), clock: time.Now}
}

func (m *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	if until, ok := m.held[key]; ok && now.Before(until) {
		return false, nil
	}
	m.held[key] = now.Add(ttl)
	return true, nil
}

func (m *MemoryLocker) Release(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.held, key)
	m.mu.Unlock()
	return nil
}
