// Package main provides the ingredientscout command: the HTTP service and one-shot scrapes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:     "ingredientscout",
	Short:   "Ingredient price scraper",
	Long:    "ingredientscout pulls ingredient names from a recipe API, looks each one up in a grocery catalog and stores the matching products.",
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
