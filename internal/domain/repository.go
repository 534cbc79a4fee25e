package domain

import (
	"context"
	"time"
)

// CredentialStore defines the interface for sharing catalog credentials across process restarts
type CredentialStore interface {
	Get(ctx context.Context, key string) (Credential, error)
	Set(ctx context.Context, key string, cred Credential, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// TokenSource hands out a currently valid catalog bearer token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// CatalogClient defines the interface for paginated catalog product lookups
type CatalogClient interface {
	FetchAll(ctx context.Context, term, locationID string) ([]Product, error)
}

// RecipeSource defines the interface for pulling a batch of ingredient names from the recipe API
type RecipeSource interface {
	FetchIngredientBatch(ctx context.Context) (IngredientBatch, error)
}

// ProductRepository defines the interface for product persistence.
// SaveIngredients must insert or overwrite by productId, stamping the ingredient name,
// source id and observation time on every record, and returns the number of records written.
type ProductRepository interface {
	SaveIngredients(ctx context.Context, products []Product, ingredientName, sourceID string) (int, error)
}

// HealthChecker checks a shared dependency
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Metrics receives scrape events for observability
type Metrics interface {
	IngredientProcessed()
	IngredientFailed()
	ProductsSaved(n int)
	RunCompleted(d time.Duration)
	TokenRefreshed()
	KeyRotated()
	StoreReconnected()
}
