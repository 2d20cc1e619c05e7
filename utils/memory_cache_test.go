package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestMemoryCacheTouch(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }

	c.Set("a", "x", time.Minute)
	now = now.Add(50 * time.Second)
	assert.True(t, c.Touch("a", time.Minute))

	now = now.Add(50 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	assert.False(t, c.Touch("missing", time.Minute))
}

func TestMemoryCacheCleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }

	c.Set("old", 1, time.Second)
	c.Set("new", 2, time.Hour)
	now = now.Add(time.Minute)
	c.cleanup()

	assert.Equal(t, 1, c.Size())
}

func TestMemoryCacheCloseStopsSweep(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewMemoryCache(time.Millisecond)
	c.Set("a", 1, time.Hour)
	c.Close()
	c.Close()
}
