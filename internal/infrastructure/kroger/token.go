package kroger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ingredientscout/backend/internal/domain"
	"github.com/ingredientscout/backend/internal/infrastructure/metrics"
)

// DefaultScope is the OAuth scope needed for product search
const DefaultScope = "product.compact"

// tokenResponse represents the response from the client-credentials token endpoint
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenCacheConfig holds the client-credentials settings
type TokenCacheConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

// TokenCache holds the single process-wide catalog credential.
// The gate is held across the whole refresh so concurrent callers behind an expired
// credential trigger exactly one token request and all observe its result.
type TokenCache struct {
	mu   sync.Mutex
	cred domain.Credential

	cfg        TokenCacheConfig
	httpClient *http.Client
	store      domain.CredentialStore
	storeKey   string
	logger     domain.Logger
	metrics    domain.Metrics
	now        func() time.Time
}

// NewTokenCache creates a token cache. store may be nil.
func NewTokenCache(cfg TokenCacheConfig, store domain.CredentialStore, logger domain.Logger, m domain.Metrics) *TokenCache {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &TokenCache{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		storeKey:   "kroger:token:" + cfg.ClientID,
		logger:     logger.With("component", "kroger_token"),
		metrics:    m,
		now:        time.Now,
	}
}

// Token returns a valid bearer token, refreshing it when the cached one has expired
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cred.Valid(now) {
		return c.cred.Token, nil
	}

	if cred, ok := c.fromStore(ctx, now); ok {
		c.cred = cred
		return cred.Token, nil
	}

	cred, err := c.refresh(ctx, now)
	if err != nil {
		return "", err
	}
	c.cred = cred
	c.metrics.TokenRefreshed()
	c.logger.Info(ctx, "catalog token refreshed", "expires_at", cred.ExpiresAt)

	if c.store != nil {
		if err := c.store.Set(ctx, c.storeKey, cred, cred.ExpiresAt.Sub(now)); err != nil {
			c.logger.Warn(ctx, "failed to share catalog token", "error", err)
		}
	}

	return cred.Token, nil
}

// Current returns the cached credential without refreshing it
func (c *TokenCache) Current() domain.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cred
}

// Invalidate drops the cached credential if it is still the rejected token, so the next Token
// call refreshes it. A rejection reported for a token that was already replaced is ignored.
func (c *TokenCache) Invalidate(ctx context.Context, rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rejected == "" || c.cred.Token != rejected {
		c.logger.Debug(ctx, "ignoring rejection of a replaced catalog token")
		return
	}

	c.cred = domain.Credential{}
	if c.store == nil {
		return
	}
	shared, err := c.store.Get(ctx, c.storeKey)
	if err != nil || shared.Token != rejected {
		return
	}
	if err := c.store.Delete(ctx, c.storeKey); err != nil {
		c.logger.Warn(ctx, "failed to drop shared catalog token", "error", err)
	}
}

func (c *TokenCache) fromStore(ctx context.Context, now time.Time) (domain.Credential, bool) {
	if c.store == nil {
		return domain.Credential{}, false
	}
	cred, err := c.store.Get(ctx, c.storeKey)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn(ctx, "credential store lookup failed", "error", err)
		}
		return domain.Credential{}, false
	}
	if !cred.Valid(now) {
		return domain.Credential{}, false
	}
	c.logger.Debug(ctx, "adopted shared catalog token", "expires_at", cred.ExpiresAt)
	return cred, true
}

// refresh performs the client-credentials exchange
func (c *TokenCache) refresh(ctx context.Context, now time.Time) (domain.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", c.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("%w: failed to create request: %v", domain.ErrAuth, err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "token request failed", "error", err)
		return domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("%w: failed to read response: %v", domain.ErrAuth, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error(ctx, "token endpoint rejected credentials", "status", resp.StatusCode, "body", string(body))
		return domain.Credential{}, fmt.Errorf("%w: status %d", domain.ErrAuth, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.Credential{}, fmt.Errorf("%w: invalid JSON response: %v", domain.ErrAuth, err)
	}
	if tr.AccessToken == "" {
		return domain.Credential{}, fmt.Errorf("%w: response has no access_token", domain.ErrAuth)
	}

	return domain.Credential{
		Token:     tr.AccessToken,
		ExpiresAt: now.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
