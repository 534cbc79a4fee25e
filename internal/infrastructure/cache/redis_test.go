package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingredientscout/backend/internal/domain"
)

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache("not-a-redis-url", "ingredientscout:")
	assert.Error(t, err)
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client, "test:")
	defer c.Close()

	ctx := context.Background()

	_, err := c.Get(ctx, "token")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	err = c.Set(ctx, "token", domain.Credential{Token: "T"}, time.Minute)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	err = c.Delete(ctx, "token")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestRedisCache_SetSkipsNonPositiveTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	c := NewRedisCacheFromClient(client, "test:")
	defer c.Close()

	// no network round trip happens for an already expired credential
	require.NoError(t, c.Set(context.Background(), "token", domain.Credential{Token: "T"}, 0))
	assert.Equal(t, "test:token", c.key("token"))
}
