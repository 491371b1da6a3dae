package lock

import "context"

// RunLock guards against overlapping monitoring runs. Acquire returns
// false when another run already holds the lock.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Close() error
}
