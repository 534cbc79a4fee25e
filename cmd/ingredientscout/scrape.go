package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ingredientscout/backend/config"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape and print the result",
	Long:  "Fetch one ingredient batch, look every ingredient up in the catalog, store the products and print the run counts as JSON.",
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()

	result, err := a.scraper.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
