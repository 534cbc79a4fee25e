// Package kroger talks to the retail catalog API: client-credentials tokens and paginated
// product search.
package kroger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ingredientscout/backend/internal/domain"
)

const (
	// DefaultPageSize is the largest page the product search accepts
	DefaultPageSize = 50
	// DefaultMaxOffset bounds pagination when metadata is missing or inconsistent
	DefaultMaxOffset = 250
	// firstOffset is the first valid filter.start value; 0 is rejected upstream
	firstOffset = 1
)

// ClientConfig holds catalog search settings
type ClientConfig struct {
	BaseURL    string
	LocationID string
	PageSize   int
	MaxOffset  int
	Timeout    time.Duration
	// RateLimit is the number of page requests per second shared by all lookups; <= 0 disables it
	RateLimit float64
	Burst     int
}

// invalidator is implemented by token sources that can drop a rejected token
type invalidator interface {
	Invalidate(ctx context.Context, rejected string)
}

// Client handles paginated product search against the catalog API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	locationID  string
	pageSize    int
	maxOffset   int
	tokens      domain.TokenSource
	rateLimiter *rate.Limiter
	logger      domain.Logger
}

// NewClient creates a new catalog client
func NewClient(cfg ClientConfig, tokens domain.TokenSource, logger domain.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxOffset <= 0 {
		cfg.MaxOffset = DefaultMaxOffset
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		locationID:  cfg.LocationID,
		pageSize:    cfg.PageSize,
		maxOffset:   cfg.MaxOffset,
		tokens:      tokens,
		rateLimiter: limiter,
		logger:      logger.With("component", "kroger_catalog"),
	}
}

// searchCursor tracks one paginated fetch. offset and seen only ever grow.
type searchCursor struct {
	term       string
	locationID string
	offset     int
	pageSize   int
	seen       map[string]struct{}
	products   []domain.Product
}

// accept appends the products not seen before and returns how many were new
func (sc *searchCursor) accept(page []domain.Product) int {
	added := 0
	for _, p := range page {
		id := p.ProductID()
		if id == "" {
			continue
		}
		if _, dup := sc.seen[id]; dup {
			continue
		}
		sc.seen[id] = struct{}{}
		sc.products = append(sc.products, p)
		added++
	}
	return added
}

// FetchAll pages through every product matching term at the given location.
// It returns the deduplicated products or an error, never a partial list.
func (c *Client) FetchAll(ctx context.Context, term, locationID string) ([]domain.Product, error) {
	if strings.TrimSpace(term) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if locationID == "" {
		locationID = c.locationID
	}

	cursor := &searchCursor{
		term:       term,
		locationID: locationID,
		offset:     firstOffset,
		pageSize:   c.pageSize,
		seen:       make(map[string]struct{}),
	}

	for cursor.offset <= c.maxOffset {
		page, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		if len(page.Data) == 0 {
			c.logger.Debug(ctx, "no more products, stopping pagination", "term", term, "offset", cursor.offset)
			break
		}

		added := cursor.accept(page.Data)
		c.logger.Debug(ctx, "catalog page fetched",
			"term", term, "offset", cursor.offset, "received", len(page.Data), "new", added)

		cursor.offset += cursor.pageSize

		// filter.start is 1-based: with total T the last product sits at offset T
		if p := page.Meta.Pagination; p != nil && p.Total > 0 && cursor.offset > p.Total {
			break
		}
	}

	c.logger.Info(ctx, "catalog products retrieved", "term", term, "count", len(cursor.products))
	return cursor.products, nil
}

// fetchPage executes one product search request
func (c *Client) fetchPage(ctx context.Context, cursor *searchCursor) (*domain.CatalogPage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrUpstream, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("filter.term", cursor.term)
	if cursor.locationID != "" {
		params.Set("filter.locationId", cursor.locationID)
	}
	params.Set("filter.start", strconv.Itoa(cursor.offset))
	params.Set("filter.limit", strconv.Itoa(cursor.pageSize))

	reqURL := fmt.Sprintf("%s/products?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.tokens.(invalidator); ok {
				inv.Invalidate(ctx, token)
			}
		}
		c.logger.Error(ctx, "failed to fetch products",
			"term", cursor.term, "offset", cursor.offset, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var page domain.CatalogPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON response: %v", domain.ErrUpstream, err)
	}

	return &page, nil
}
