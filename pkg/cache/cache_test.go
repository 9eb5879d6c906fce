package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFetchCachesValue(t *testing.T) {
	c := New(DefaultTTL, CleanupInterval)
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return "1.5", nil
	}

	v, err := c.GetOrFetch("balance:0xabc", 0, fetch)
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)

	v, err = c.GetOrFetch("balance:0xabc", 0, fetch)
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)
	assert.Equal(t, 1, calls)

	c.Invalidate("balance:0xabc")
	_, err = c.GetOrFetch("balance:0xabc", 0, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	c := New(DefaultTTL, CleanupInterval)
	calls := 0
	_, err := c.GetOrFetch("k", 0, func() (interface{}, error) {
		calls++
		return nil, errors.New("rpc down")
	})
	assert.Error(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestEntriesExpire(t *testing.T) {
	c := New(DefaultTTL, CleanupInterval)
	c.Set("short", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("short")
	assert.False(t, ok)

	c.Set("kept", 1, 0)
	c.Flush()
	_, ok = c.Get("kept")
	assert.False(t, ok)
}
