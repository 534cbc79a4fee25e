package domain

import (
	"fmt"
	"time"
)

// Enrichment field names stamped on every stored product
const (
	FieldProductID      = "productId"
	FieldIngredientName = "ingredient_name"
	FieldSourceID       = "source_id"
	FieldObservedAt     = "date"
)

// Product is an opaque catalog payload keyed by its productId
type Product map[string]any

// ProductID returns the catalog identifier of the product, or "" when it is missing
func (p Product) ProductID() string {
	switch v := p[FieldProductID].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		// JSON numbers decode as float64
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// Enrich returns a copy of the product stamped with the ingredient it was found for,
// the source that produced the ingredient and the observation time.
// The receiver is left untouched so concurrent readers never see a half-stamped payload.
func (p Product) Enrich(ingredientName, sourceID string, observedAt time.Time) Product {
	out := make(Product, len(p)+3)
	for k, v := range p {
		out[k] = v
	}
	out[FieldIngredientName] = ingredientName
	out[FieldSourceID] = sourceID
	out[FieldObservedAt] = observedAt
	return out
}

// CatalogPage represents one page of the catalog product search response
type CatalogPage struct {
	Data []Product   `json:"data"`
	Meta CatalogMeta `json:"meta"`
}

// CatalogMeta holds the pagination metadata of a catalog page
type CatalogMeta struct {
	Pagination *CatalogPagination `json:"pagination,omitempty"`
}

// CatalogPagination reports the total number of products matching a search
type CatalogPagination struct {
	Start int `json:"start"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// RunResult summarizes one orchestration run
type RunResult struct {
	RunID          string    `json:"runId"`
	Ingredients    int       `json:"ingredients"`
	ItemsProcessed int       `json:"itemsProcessed"`
	ItemsFailed    int       `json:"itemsFailed"`
	ProductsSaved  int       `json:"productsSaved"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Duration returns how long the run took
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
