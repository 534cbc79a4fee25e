package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProduct_ProductID(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    string
	}{
		{name: "string id", product: Product{FieldProductID: "0001111041700"}, want: "0001111041700"},
		{name: "numeric id", product: Product{FieldProductID: float64(1111041700)}, want: "1111041700"},
		{name: "integer id", product: Product{FieldProductID: 42}, want: "42"},
		{name: "missing id", product: Product{"description": "milk"}, want: ""},
		{name: "null id", product: Product{FieldProductID: nil}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.product.ProductID())
		})
	}
}

func TestProduct_Enrich(t *testing.T) {
	observed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	original := Product{FieldProductID: "1", "description": "Whole Milk"}

	enriched := original.Enrich("milk", "spoonacular", observed)

	assert.Equal(t, "1", enriched.ProductID())
	assert.Equal(t, "Whole Milk", enriched["description"])
	assert.Equal(t, "milk", enriched[FieldIngredientName])
	assert.Equal(t, "spoonacular", enriched[FieldSourceID])
	assert.Equal(t, observed, enriched[FieldObservedAt])

	assert.Len(t, original, 2, "receiver must not be modified")
	assert.NotContains(t, original, FieldIngredientName)
}

func TestRunResult_Duration(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := RunResult{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, r.Duration())
}

func TestCredential_Valid(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{name: "live token", cred: Credential{Token: "t", ExpiresAt: now.Add(time.Minute)}, want: true},
		{name: "expired token", cred: Credential{Token: "t", ExpiresAt: now.Add(-time.Second)}, want: false},
		{name: "expires exactly now", cred: Credential{Token: "t", ExpiresAt: now}, want: false},
		{name: "empty token", cred: Credential{ExpiresAt: now.Add(time.Hour)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.Valid(now))
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := WithIngredient(WithRunID(t.Context(), "run-1"), "milk")

	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "milk", IngredientFromContext(ctx))
	assert.Empty(t, RunIDFromContext(t.Context()))
}
