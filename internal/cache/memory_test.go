package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	err := c.Set(ctx, "key", "value", time.Minute)
	assert.NoError(t, err)

	val, ok, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", val)
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := NewMemoryCache()

	_, ok, err := c.Get(context.Background(), "absent")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	err := c.Set(ctx, "key", "value", 10*time.Millisecond)
	assert.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, ok, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be dropped on read")
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "key", "one", time.Minute))
	assert.NoError(t, c.Set(ctx, "key", "two", time.Minute))

	val, ok, _ := c.Get(ctx, "key")
	assert.True(t, ok)
	assert.Equal(t, "two", val)
}
