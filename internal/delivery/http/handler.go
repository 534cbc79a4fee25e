package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ingredientscout/backend/internal/domain"
)

const (
	serviceName        = "ingredientscout"
	serviceVersion     = "1.0.0"
	healthPingTimeout = 2 * time.Second
)

// Scraper runs scrapes and reports on the last one
type Scraper interface {
	Run(ctx context.Context) (*domain.RunResult, error)
	LastRun() (*domain.RunResult, bool)
}

// LogSubscriber hands out live log line subscriptions
type LogSubscriber interface {
	Subscribe() (<-chan []byte, func())
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scraper Scraper
	store   domain.HealthChecker
	logs    LogSubscriber
	logger  domain.Logger
}

// NewHandler creates a new HTTP handler. store and logs may be nil.
func NewHandler(scraper Scraper, store domain.HealthChecker, logs LogSubscriber, logger domain.Logger) *Handler {
	return &Handler{
		scraper: scraper,
		store:   store,
		logs:    logs,
		logger:  logger.With("component", "http_handler"),
	}
}

// HealthCheck returns the health status of the API and its document store
func (h *Handler) HealthCheck(c *gin.Context) {
	status, code, storeStatus := "healthy", http.StatusOK, "unconfigured"

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()

		storeStatus = "up"
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn(ctx, "health check store ping failed", "error", err)
			status, code, storeStatus = "degraded", http.StatusServiceUnavailable, "down"
		}
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": serviceName,
		"version": serviceVersion,
		"store":   storeStatus,
	})
}

// ScrapeIngredients runs one scrape synchronously and returns its counts
func (h *Handler) ScrapeIngredients(c *gin.Context) {
	if h.scraper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scraper not configured"})
		return
	}

	// A client hanging up must not abort a run that is already fanning out
	result, err := h.scraper.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		code := statusForRunError(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error(c.Request.Context(), "scrape run failed", "error", err, "status", code)
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scraping completed!",
		"result":  result,
	})
}

// LastRun returns the most recent completed run
func (h *Handler) LastRun(c *gin.Context) {
	if h.scraper == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run recorded"})
		return
	}

	result, ok := h.scraper.LastRun()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run recorded"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// statusForRunError maps run errors to HTTP status codes
func statusForRunError(err error) int {
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConnection), errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAuth), errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrQuotaExhausted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
