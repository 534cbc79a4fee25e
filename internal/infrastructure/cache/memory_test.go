package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingredientscout/backend/internal/domain"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		key     string
		cred    domain.Credential
		ttl     time.Duration
		wantErr error
	}{
		{
			name: "store and retrieve credential",
			key:  "kroger:client-a",
			cred: domain.Credential{Token: "T1", ExpiresAt: expiry},
			ttl:  time.Minute,
		},
		{
			name:    "non-positive ttl is not stored",
			key:     "kroger:client-b",
			cred:    domain.Credential{Token: "T2", ExpiresAt: expiry},
			ttl:     0,
			wantErr: domain.ErrCacheMiss,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryCache(time.Hour)
			defer c.Close()

			require.NoError(t, c.Set(ctx, tt.key, tt.cred, tt.ttl))

			got, err := c.Get(ctx, tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cred, got)
		})
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", domain.Credential{Token: "T"}, time.Second))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	c.purge()
	assert.Equal(t, 0, c.Size())
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", domain.Credential{Token: "T"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	// deleting a missing key is fine
	assert.NoError(t, c.Delete(ctx, "missing"))
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Set(ctx, "shared", domain.Credential{Token: "T"}, time.Minute)
			_, _ = c.Get(ctx, "shared")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, c.Size())
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	c.Close()
	assert.NotPanics(t, c.Close)
}
