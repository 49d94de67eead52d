// Package locker defines the distributed per-identity sync lock.
package locker

import "context"

// Locker is an exclusive, non-blocking lock keyed by wallet. It is backed by
// a store shared across node processes so two coordinators can never sync the
// same identity concurrently.
type Locker interface {
	// TryAcquire attempts to take the lock without blocking.
	// It reports false when the lock is already held.
	TryAcquire(ctx context.Context, wallet string) (bool, error)
	// Release frees the lock. Releasing a lock that is not held is a no-op.
	Release(ctx context.Context, wallet string) error
}
