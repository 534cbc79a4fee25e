package spoonacular

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ingredientscout/backend/internal/domain"
	"github.com/ingredientscout/backend/internal/infrastructure/metrics"
)

// DefaultRotationBackoff is the pause before retrying with the next key
const DefaultRotationBackoff = 2 * time.Second

// ErrNoAPIKeys is returned when a rotator is built from an empty pool
var ErrNoAPIKeys = errors.New("at least one API key is required")

// KeyedRequest performs one request authenticated with apiKey
type KeyedRequest func(ctx context.Context, apiKey string) (*http.Response, error)

// KeyRotator spreads calls over a pool of API keys, moving to the next key when the
// current one is out of quota. The cursor always indexes a valid key.
type KeyRotator struct {
	mu      sync.Mutex
	keys    []string
	cursor  int
	backoff time.Duration
	logger  domain.Logger
	metrics domain.Metrics
}

// NewKeyRotator creates a rotator over keys
func NewKeyRotator(keys []string, backoff time.Duration, logger domain.Logger, m domain.Metrics) (*KeyRotator, error) {
	pool := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			pool = append(pool, k)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoAPIKeys
	}
	if backoff < 0 {
		backoff = 0
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &KeyRotator{
		keys:    pool,
		backoff: backoff,
		logger:  logger.With("component", "key_rotator"),
		metrics: m,
	}, nil
}

// Size returns the number of keys in the pool
func (r *KeyRotator) Size() int {
	return len(r.keys)
}

func (r *KeyRotator) start() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// advance moves the shared cursor past the key at index used. A concurrent caller may already have moved on.
func (r *KeyRotator) advance(used int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor == used {
		r.cursor = (used + 1) % len(r.keys)
	}
}

// Call runs fn with the current key. Quota responses (402, 429) rotate to the next key after
// the backoff; every key is tried at most once per call. Transport errors propagate at once.
// Any other response is returned to the caller, who owns its body.
func (r *KeyRotator) Call(ctx context.Context, fn KeyedRequest) (*http.Response, error) {
	first := r.start()
	for attempt := 1; attempt <= len(r.keys); attempt++ {
		idx := (first + attempt - 1) % len(r.keys)
		key := r.keys[idx]

		resp, err := fn(ctx, key)
		if err != nil {
			return nil, err
		}

		if !isQuotaStatus(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()

		r.logger.Warn(ctx, "API key exceeded its quota, trying another key",
			"key", maskKey(key), "status", resp.StatusCode, "attempt", attempt)
		r.advance(idx)
		r.metrics.KeyRotated()

		if attempt == len(r.keys) {
			break
		}
		if err := sleep(ctx, r.backoff); err != nil {
			return nil, err
		}
	}

	r.logger.Error(ctx, "all API keys have exceeded their limits", "keys", len(r.keys))
	return nil, fmt.Errorf("%w: %d keys tried", domain.ErrQuotaExhausted, len(r.keys))
}

func isQuotaStatus(code int) bool {
	return code == http.StatusPaymentRequired || code == http.StatusTooManyRequests
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maskKey keeps API keys out of the logs
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
