package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ingredientscout/backend/config"
	httpDelivery "github.com/ingredientscout/backend/internal/delivery/http"
	"github.com/ingredientscout/backend/internal/infrastructure/logstream"
)

const shutdownTimeout = 15 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Start an HTTP server exposing the scrape trigger, health, metrics and the live log stream.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := logstream.NewHub(logstream.DefaultBufferSize)
	a, err := newApp(ctx, cfg, hub)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			a.log.Error(closeCtx, "failed to release resources", "error", err)
		}
	}()

	handler := httpDelivery.NewHandler(a.scraper, a.store, hub, a.log)
	serverHandler := httpDelivery.NewServerHandler(cfg, handler,
		promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}), a.log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           serverHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info(ctx, "starting ingredientscout",
		"version", version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"cache_type", cfg.Cache.Type)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info(context.Background(), "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
