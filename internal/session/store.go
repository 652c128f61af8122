package session

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a session lock could not be acquired in time.
var ErrLockTimeout = errors.New("session lock not acquired")

// Unlock releases a session lock. It is safe to call once.
type Unlock func()

// Store persists contexts between turns and serializes turns of the same session.
type Store interface {
	// Get returns the stored context or a fresh one when the session is new.
	Get(ctx context.Context, sessionID string) (*Context, error)
	// Put stores the context.
	Put(ctx context.Context, c *Context) error
	// Lock blocks until the caller owns the session or ctx is done.
	Lock(ctx context.Context, sessionID string) (Unlock, error)
}
