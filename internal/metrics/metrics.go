// Package metrics exposes the Prometheus counters of the mini app server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wishlist"

var (
	// APIRequests counts backend calls by HTTP method and outcome.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Requests sent to the wishlist backend, by method and outcome.",
	}, []string{"method", "outcome"})

	// LoaderFallbacks counts entities that were replaced by demo data.
	LoaderFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_fallbacks_total",
		Help:      "Entity loads answered with demo data instead of live data.",
	}, []string{"entity"})

	// Actions counts user-triggered mutations by action and outcome.
	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "User actions, by action and outcome.",
	}, []string{"action", "outcome"})

	// Sessions is the number of live mini app sessions.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Mini app sessions currently held in memory.",
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
