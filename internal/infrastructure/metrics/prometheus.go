// Package metrics exposes scrape counters through Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ingredientscout"

// Prometheus implements domain.Metrics
type Prometheus struct {
	ingredientsProcessed prometheus.Counter
	ingredientsFailed    prometheus.Counter
	productsSaved        prometheus.Counter
	runDuration          prometheus.Histogram
	tokenRefreshes       prometheus.Counter
	keyRotations         prometheus.Counter
	storeReconnects      prometheus.Counter
}

// NewPrometheus registers the scrape collectors on reg
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		ingredientsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingredients_processed_total",
			Help:      "Ingredients whose catalog lookup and persistence completed.",
		}),
		ingredientsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingredients_failed_total",
			Help:      "Ingredients whose lookup or persistence failed.",
		}),
		productsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_saved_total",
			Help:      "Catalog products upserted into the document store.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of scrape runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		tokenRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_token_refreshes_total",
			Help:      "Network refreshes of the catalog bearer token.",
		}),
		keyRotations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_key_rotations_total",
			Help:      "Recipe API key switches caused by quota responses.",
		}),
		storeReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_reconnects_total",
			Help:      "Document store reconnects after a failed liveness ping.",
		}),
	}
}

func (p *Prometheus) IngredientProcessed() { p.ingredientsProcessed.Inc() }

func (p *Prometheus) IngredientFailed() { p.ingredientsFailed.Inc() }

func (p *Prometheus) ProductsSaved(n int) { p.productsSaved.Add(float64(n)) }

func (p *Prometheus) RunCompleted(d time.Duration) { p.runDuration.Observe(d.Seconds()) }

func (p *Prometheus) TokenRefreshed() { p.tokenRefreshes.Inc() }

func (p *Prometheus) KeyRotated() { p.keyRotations.Inc() }

func (p *Prometheus) StoreReconnected() { p.storeReconnects.Inc() }

// Noop discards every event
type Noop struct{}

func (Noop) IngredientProcessed()       {}
func (Noop) IngredientFailed()          {}
func (Noop) ProductsSaved(int)          {}
func (Noop) RunCompleted(time.Duration) {}
func (Noop) TokenRefreshed()            {}
func (Noop) KeyRotated()                {}
func (Noop) StoreReconnected()          {}
