package lock

import (
	"context"
	"sync"
)

// MemoryLock is an in-process RunLock for tests and single-node
// deployments without Redis.
type MemoryLock struct {
	mu   sync.Mutex
	held bool
}

// NewMemoryLock creates an in-process run lock
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{}
}

// Acquire attempts to take the lock
func (l *MemoryLock) Acquire(_ context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

// Release drops the lock
func (l *MemoryLock) Release(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// Close is a no-op; there is no connection to release
func (l *MemoryLock) Close() error {
	return nil
}
