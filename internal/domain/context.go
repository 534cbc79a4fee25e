package domain

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	ingredientKey contextKey = "ingredient"
)

// WithRunID returns a context carrying the orchestration run identifier
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run identifier, or "" when absent
func RunIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// WithIngredient returns a context carrying the ingredient a task is working on
func WithIngredient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ingredientKey, name)
}

// IngredientFromContext extracts the ingredient name, or "" when absent
func IngredientFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ingredientKey).(string)
	return v
}
