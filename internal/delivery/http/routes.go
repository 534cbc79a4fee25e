package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ingredientscout/backend/config"
	"github.com/ingredientscout/backend/internal/domain"
)

// SetupRouter creates and configures the Gin router. metricsHandler may be nil.
func SetupRouter(cfg *config.Config, handler *Handler, metricsHandler http.Handler, logger domain.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestLogger(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/scrap-ingredients", handler.ScrapeIngredients)
		v1.GET("/scrape/last", handler.LastRun)
	}

	return router
}

// NewServerHandler mounts the log stream on a plain mux in front of the Gin router,
// so the WebSocket upgrade gets an unwrapped ResponseWriter it can hijack.
func NewServerHandler(cfg *config.Config, handler *Handler, metricsHandler http.Handler, logger domain.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws/logs", handler.StreamLogs(originHostPatterns(cfg.Server.AllowedOrigins)))
	mux.Handle("/", SetupRouter(cfg, handler, metricsHandler, logger))
	return mux
}
