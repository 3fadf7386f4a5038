package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStoreGetPut(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(100, 0)}
	store := New[string](time.Hour, clk)

	_, ok := store.Get("2022-07-30")
	require.False(t, ok)

	store.Put("2022-07-30", "snapshot")
	got, ok := store.Get("2022-07-30")
	require.True(t, ok)
	require.Equal(t, "snapshot", got)
}

func TestStoreExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(100, 0)}
	store := New[int](time.Hour, clk)
	store.Put("key", 42)

	clk.Advance(59 * time.Minute)
	_, ok := store.Get("key")
	require.True(t, ok)

	clk.Advance(2 * time.Minute)
	_, ok = store.Get("key")
	require.False(t, ok)
	require.Zero(t, store.Len())
}

func TestStoreDisabledWhenTTLNonPositive(t *testing.T) {
	t.Parallel()

	store := New[string](0, nil)
	store.Put("key", "value")
	_, ok := store.Get("key")
	require.False(t, ok)
	require.Zero(t, store.Len())
}

func TestStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := New[int](time.Hour, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Put("shared", n)
				store.Get("shared")
			}
		}(i)
	}
	wg.Wait()
	_, ok := store.Get("shared")
	require.True(t, ok)
}
