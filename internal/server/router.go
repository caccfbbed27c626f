// Package server provides HTTP server setup for the SOC service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vantor-systems/vantor-soc/internal/handlers"
	"github.com/vantor-systems/vantor-soc/internal/middleware"
)

// NewRouter constructs a ServeMux with SOC API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics endpoints
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.HandleFunc("/readyz", h.ReadyCheck)
	mux.Handle("/metrics", promhttp.Handler())

	// Alert routes
	mux.HandleFunc("/api/v1/alerts", h.AlertsHandler)
	mux.HandleFunc("/api/v1/alerts/bulk", h.BulkAlertsHandler)
	mux.HandleFunc("/api/v1/alerts/", h.AlertRouteHandler)

	// Case routes
	mux.HandleFunc("/api/v1/cases", h.CasesHandler)
	mux.HandleFunc("/api/v1/cases/", h.CaseRouteHandler)

	// Playbook routes
	mux.HandleFunc("/api/v1/playbooks", h.PlaybooksHandler)
	mux.HandleFunc("/api/v1/playbooks/", h.PlaybookRouteHandler)

	// Execution routes
	mux.HandleFunc("/api/v1/executions", h.ExecutionsHandler)
	mux.HandleFunc("/api/v1/executions/", h.ExecutionRouteHandler)

	// Reporting routes
	mux.HandleFunc("/api/v1/reports/metrics", h.MetricsReportHandler)
	mux.HandleFunc("/api/v1/reports/dashboard", h.DashboardHandler)
	mux.HandleFunc("/api/v1/handovers", h.HandoversHandler)
	mux.HandleFunc("/api/v1/handovers/", h.HandoverRouteHandler)

	return middleware.RequestID(middleware.Identity(mux))
}
