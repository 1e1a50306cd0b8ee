package locking

import (
	"context"
	"errors"
)

// ErrNotObtained is returned when a lock could not be acquired before the context ended.
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes work on a key.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases
	// the lock and is safe to call more than once.
	Lock(ctx context.Context, key string) (func(), error)
}
