package server

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dbbridge/dbbridge/core/cache"
	"github.com/dbbridge/dbbridge/core/logging"
)

// RegisterRoutes registers all HTTP routes
func RegisterRoutes(r *chi.Mux, mgr ConnectionManager, store cache.Store, port string) {
	log := logging.New("routes")
	log.Infof("Registering HTTP routes")

	var routes []string

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", handleQuery(mgr, store))
		r.Get("/connections", handleConnections(mgr))
	})
	routes = append(routes, "POST /v1/query")
	routes = append(routes, "GET /v1/connections")

	// Heartbeat endpoint for health checks
	r.Get("/healthz", handleHealth)
	routes = append(routes, "GET /healthz")

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())
	routes = append(routes, "GET /metrics")

	// OpenAPI spec endpoint
	r.Get("/openapi.json", handleOpenAPI(fmt.Sprintf("http://localhost:%s", port)))
	routes = append(routes, "GET /openapi.json")

	log.Infof("Routes registered: %d", len(routes))
	for _, route := range routes {
		log.Debugf("  %s", route)
	}
}
