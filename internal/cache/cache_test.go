package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNilClientIsAlwaysEmpty(t *testing.T) {
	var c *Client
	ctx := context.Background()

	assert.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	var out map[string]int
	assert.False(t, c.GetJSON(ctx, "k", &out))
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestUnreachableRedisFailsSafe(t *testing.T) {
	c := NewFromRedis(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}))
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, val)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "user:profile:42", UserKey("42"))
}
