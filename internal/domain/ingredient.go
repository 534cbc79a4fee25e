package domain

import (
	"regexp"
	"sort"
	"strings"
)

var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// NormalizeIngredientName lowercases a recipe ingredient name and collapses its whitespace.
// "  Extra Virgin   Olive Oil " becomes "extra virgin olive oil".
func NormalizeIngredientName(name string) string {
	name = strings.ToLower(name)
	name = multipleSpacesRegex.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// IngredientBatch is a set of distinct normalized ingredient names
type IngredientBatch map[string]struct{}

// NewIngredientBatch builds a batch from raw names, dropping duplicates and blanks
func NewIngredientBatch(names ...string) IngredientBatch {
	b := make(IngredientBatch, len(names))
	for _, n := range names {
		b.Add(n)
	}
	return b
}

// Add normalizes the name and inserts it. It reports whether the batch grew.
func (b IngredientBatch) Add(name string) bool {
	n := NormalizeIngredientName(name)
	if n == "" {
		return false
	}
	if _, ok := b[n]; ok {
		return false
	}
	b[n] = struct{}{}
	return true
}

// Len returns the number of distinct ingredients
func (b IngredientBatch) Len() int {
	return len(b)
}

// Names returns the ingredients in lexical order
func (b IngredientBatch) Names() []string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Recipe is the subset of a recipe API entry the scraper reads
type Recipe struct {
	Title               string             `json:"title"`
	ExtendedIngredients []RecipeIngredient `json:"extendedIngredients"`
}

// RecipeIngredient is a single ingredient line of a recipe
type RecipeIngredient struct {
	Name string `json:"name"`
}

// RandomRecipesResponse represents the response from the random recipes endpoint
type RandomRecipesResponse struct {
	Recipes []Recipe `json:"recipes"`
}
