package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/bank-of-trust/bankbot-core/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Lifecycle(t *testing.T) {
	c := New("s1")
	require.NoError(t, c.Validate())
	assert.False(t, c.InFlow())

	c.Enter("transfer", nil)
	assert.True(t, c.InFlow())
	assert.Equal(t, 1, c.FlowStep)
	require.NoError(t, c.Validate())

	c.Slots["amount"] = "150000"
	c.Finish(StatusCompleted)
	assert.False(t, c.InFlow())
	assert.True(t, c.Terminal())

	c.Clear()
	assert.False(t, c.Terminal())
	assert.Empty(t, c.Slots)
	require.NoError(t, c.Validate())
}

func TestContext_ValidateRejectsOrphanStep(t *testing.T) {
	c := New("s1")
	c.FlowStep = 2
	assert.Error(t, c.Validate())

	c = New("s1")
	c.Pending = &ledger.Request{ID: "r1"}
	assert.Error(t, c.Validate())
}

func TestContext_CloneIsDeep(t *testing.T) {
	c := New("s1")
	c.Enter("transfer", []Choice{{Key: "1", Label: "UPI"}})
	c.Slots["to"] = "100002"
	c.Pending = &ledger.Request{ID: "r1"}

	cp := c.Clone()
	cp.Slots["to"] = "999999"
	cp.LastMenu[0].Label = "changed"
	cp.Pending.ID = "r2"

	assert.Equal(t, "100002", c.Slots["to"])
	assert.Equal(t, "UPI", c.LastMenu[0].Label)
	assert.Equal(t, "r1", c.Pending.ID)
}

func TestMemoryStore_GetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	c, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", c.SessionID)
	assert.Zero(t, c.TurnCount)

	c.TurnCount = 3
	c.Enter("kyc", nil)
	require.NoError(t, s.Put(ctx, c))

	// mutations after Put are not visible to the store
	c.TurnCount = 99

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TurnCount)
	assert.Equal(t, "kyc", got.ActiveFlow)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_PutRejectsInvalid(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	c := New("s1")
	c.ActiveFlow = "transfer"
	assert.Error(t, s.Put(context.Background(), c))
}

func TestMemoryStore_LockSerializesSameSession(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := s.Lock(ctx, "s1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestMemoryStore_LockHonoursContext(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	unlock, err := s.Lock(context.Background(), "s1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx, "s1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// other sessions are not blocked
	other, err := s.Lock(context.Background(), "s2")
	require.NoError(t, err)
	other()
}

func TestMemoryStore_ExpireIdle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, New("old")))
	now = now.Add(2 * time.Minute)
	require.NoError(t, s.Put(ctx, New("fresh")))

	assert.Equal(t, 1, s.expireIdle())
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Zero(t, got.TurnCount)
}

func TestRedisStore_DecodeRoundTrip(t *testing.T) {
	c := New("s1")
	c.Enter("transfer", []Choice{{Key: "1", Label: "UPI"}, {Key: "2", Label: "Bank Transfer"}})
	c.Slots["to_account"] = "100002"
	c.TurnCount = 4

	b, err := json.Marshal(c)
	require.NoError(t, err)
	got, err := decode(b)
	require.NoError(t, err)
	assert.Equal(t, c.LastMenu, got.LastMenu)
	assert.Equal(t, c.Slots, got.Slots)
	assert.Equal(t, StatusActive, got.Status)

	empty, err := decode([]byte(`{"session_id":"s2","turn_count":0}`))
	require.NoError(t, err)
	assert.NotNil(t, empty.Slots)

	assert.Equal(t, "session:s1:context", contextKey("s1"))
	assert.Equal(t, "session:s1:lock", lockKey("s1"))
}
