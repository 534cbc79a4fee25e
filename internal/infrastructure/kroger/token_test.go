package kroger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingredientscout/backend/internal/domain"
	"github.com/ingredientscout/backend/internal/infrastructure/cache"
	"github.com/ingredientscout/backend/internal/infrastructure/logger"
)

type countingMetrics struct {
	domain.Metrics
	refreshes atomic.Int32
}

func (m *countingMetrics) TokenRefreshed() { m.refreshes.Add(1) }

func newTokenServer(t *testing.T, token string, expiresIn int64, calls *atomic.Int32, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, DefaultScope, r.PostForm.Get("scope"))

		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": token, "expires_in": expiresIn})
	}))
}

func newTestTokenCache(url string, store domain.CredentialStore) *TokenCache {
	return NewTokenCache(TokenCacheConfig{
		TokenURL:     url,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, store, logger.NewNop(), nil)
}

func TestTokenCache_SingleFlightRefresh(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, "T2", 3600, &calls, 50*time.Millisecond)
	defer server.Close()

	tc := newTestTokenCache(server.URL, nil)
	m := &countingMetrics{}
	tc.metrics = m

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tc.now = func() time.Time { return now }
	tc.cred = domain.Credential{Token: "T1", ExpiresAt: now.Add(-time.Second)}

	const callers = 32
	results := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = tc.Token(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "exactly one network refresh")
	assert.Equal(t, int32(1), m.refreshes.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "T2", results[i])
	}
	assert.Equal(t, domain.Credential{Token: "T2", ExpiresAt: now.Add(3600 * time.Second)}, tc.Current())
}

func TestTokenCache_ValidTokenSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, "T-new", 3600, &calls, 0)
	defer server.Close()

	tc := newTestTokenCache(server.URL, nil)
	tc.cred = domain.Credential{Token: "T1", ExpiresAt: time.Now().Add(time.Hour)}

	token, err := tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", token)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTokenCache_AdoptsSharedCredential(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, "T-new", 3600, &calls, 0)
	defer server.Close()

	store := cache.NewMemoryCache(time.Hour)
	defer store.Close()

	tc := newTestTokenCache(server.URL, store)
	shared := domain.Credential{Token: "T-shared", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Set(context.Background(), tc.storeKey, shared, time.Hour))

	token, err := tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T-shared", token)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTokenCache_RefreshWritesSharedCredential(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, "T2", 1800, &calls, 0)
	defer server.Close()

	store := cache.NewMemoryCache(time.Hour)
	defer store.Close()

	tc := newTestTokenCache(server.URL, store)
	token, err := tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T2", token)

	shared, err := store.Get(context.Background(), tc.storeKey)
	require.NoError(t, err)
	assert.Equal(t, "T2", shared.Token)
}

func TestTokenCache_Invalidate(t *testing.T) {
	var calls atomic.Int32
	server := newTokenServer(t, "T2", 3600, &calls, 0)
	defer server.Close()

	tc := newTestTokenCache(server.URL, nil)
	tc.cred = domain.Credential{Token: "T1", ExpiresAt: time.Now().Add(time.Hour)}

	tc.Invalidate(context.Background(), "T1")
	token, err := tc.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T2", token)
	assert.Equal(t, int32(1), calls.Load())
}

// newSequentialTokenServer issues T1, T2, T3... one per request
func newSequentialTokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": fmt.Sprintf("T%d", n), "expires_in": 3600})
	}))
}

func TestTokenCache_StaleRejectionKeepsNewerToken(t *testing.T) {
	var calls atomic.Int32
	server := newSequentialTokenServer(t, &calls)
	defer server.Close()

	ctx := context.Background()
	tc := newTestTokenCache(server.URL, nil)

	first, err := tc.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "T1", first)

	tc.Invalidate(ctx, first)
	second, err := tc.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "T2", second)

	// a late 401 for a request that still carried T1
	tc.Invalidate(ctx, first)

	token, err := tc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T2", token)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenCache_InvalidateDropsMatchingSharedToken(t *testing.T) {
	var calls atomic.Int32
	server := newSequentialTokenServer(t, &calls)
	defer server.Close()

	ctx := context.Background()
	store := cache.NewMemoryCache(time.Minute)
	defer store.Close()
	tc := newTestTokenCache(server.URL, store)

	token, err := tc.Token(ctx)
	require.NoError(t, err)

	tc.Invalidate(ctx, token)
	_, err = store.Get(ctx, tc.storeKey)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	// a stale rejection leaves the shared token alone
	fresh, err := tc.Token(ctx)
	require.NoError(t, err)
	tc.Invalidate(ctx, token)
	shared, err := store.Get(ctx, tc.storeKey)
	require.NoError(t, err)
	assert.Equal(t, fresh, shared.Token)
}

func TestTokenCache_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid_client"}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
		{
			name: "missing access token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"expires_in": 1800}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			tc := newTestTokenCache(server.URL, nil)
			token, err := tc.Token(context.Background())

			assert.Empty(t, token)
			assert.ErrorIs(t, err, domain.ErrAuth)
			assert.False(t, tc.Current().Valid(time.Now()))
		})
	}
}

func TestTokenCache_UnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	tc := newTestTokenCache(url, nil)
	_, err := tc.Token(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
}
