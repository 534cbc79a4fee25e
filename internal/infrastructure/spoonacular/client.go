// Package spoonacular pulls random recipes from the recipe API and turns them into
// ingredient batches.
package spoonacular

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

	"github.com/ingredientscout/backend/internal/domain"
)

// DefaultRecipeCount is how many random recipes one batch asks for
const DefaultRecipeCount = 100

// ClientConfig holds recipe API settings
type ClientConfig struct {
	BaseURL     string
	RecipeCount int
	Timeout     time.Duration
}

// Client fetches random recipes through a KeyRotator
type Client struct {
	httpClient  *http.Client
	baseURL     string
	recipeCount int
	rotator     *KeyRotator
	logger      domain.Logger
}

// NewClient creates a new recipe API client
func NewClient(cfg ClientConfig, rotator *KeyRotator, logger domain.Logger) *Client {
	if cfg.RecipeCount <= 0 {
		cfg.RecipeCount = DefaultRecipeCount
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		recipeCount: cfg.RecipeCount,
		rotator:     rotator,
		logger:      logger.With("component", "spoonacular"),
	}
}

// FetchIngredientBatch requests a batch of random recipes and returns the distinct
// normalized ingredient names they use. Zero recipes yields domain.ErrEmptyResult.
func (c *Client) FetchIngredientBatch(ctx context.Context) (domain.IngredientBatch, error) {
	recipes, err := c.fetchRandomRecipes(ctx)
	if err != nil {
		return nil, err
	}
	if len(recipes.Recipes) == 0 {
		return nil, domain.ErrEmptyResult
	}

	batch := make(domain.IngredientBatch)
	for _, recipe := range recipes.Recipes {
		for _, ingredient := range recipe.ExtendedIngredients {
			batch.Add(ingredient.Name)
		}
	}

	c.logger.Info(ctx, "extracted unique ingredients", "recipes", len(recipes.Recipes), "ingredients", batch.Len())
	return batch, nil
}

func (c *Client) fetchRandomRecipes(ctx context.Context) (*domain.RandomRecipesResponse, error) {
	endpoint := fmt.Sprintf("%s/recipes/random", c.baseURL)

	resp, err := c.rotator.Call(ctx, func(ctx context.Context, apiKey string) (*http.Response, error) {
		params := url.Values{}
		params.Set("apiKey", apiKey)
		params.Set("number", strconv.Itoa(c.recipeCount))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// the request URL carries the key, keep it out of the error
			return nil, fmt.Errorf("%w: recipe request failed: %v", domain.ErrUpstream, unwrapURLError(err))
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error(ctx, "recipe API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var recipes domain.RandomRecipesResponse
	if err := json.Unmarshal(body, &recipes); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON response: %v", domain.ErrUpstream, err)
	}
	return &recipes, nil
}

func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
