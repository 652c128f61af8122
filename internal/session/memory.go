package session

import (
	"context"
	"sync"
	"time"
)

type keyLock struct {
	ch   chan struct{}
	refs int
}

// MemoryStore keeps contexts in process memory. Idle contexts are evicted by the janitor.
type MemoryStore struct {
	mu       sync.Mutex
	contexts map[string]*Context
	locks    map[string]*keyLock
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		contexts: make(map[string]*Context),
		locks:    make(map[string]*keyLock),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[sessionID]
	if !ok {
		return New(sessionID), nil
	}
	return c.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, c *Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := c.Clone()
	stored.UpdatedAt = m.now().UTC()
	m.contexts[c.SessionID] = stored
	c.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryStore) Lock(ctx context.Context, sessionID string) (Unlock, error) {
	m.mu.Lock()
	kl, ok := m.locks[sessionID]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[sessionID] = kl
	}
	kl.refs++
	m.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(sessionID, kl)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			m.release(sessionID, kl)
		})
	}, nil
}

func (m *MemoryStore) release(sessionID string, kl *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, sessionID)
	}
}

// Len returns the number of stored contexts.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

// StartJanitor evicts contexts idle for longer than the store TTL until ctx is done.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireIdle()
			}
		}
	}()
}

func (m *MemoryStore) expireIdle() int {
	now := m.now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, c := range m.contexts {
		if now.Sub(c.UpdatedAt) < m.ttl {
			continue
		}
		// a session mid-turn keeps its context
		if _, busy := m.locks[id]; busy {
			continue
		}
		delete(m.contexts, id)
		n++
	}
	return n
}

var _ Store = (*MemoryStore)(nil)
