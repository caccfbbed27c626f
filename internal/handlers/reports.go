package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vantor-systems/vantor-soc/internal/httputil"
	"github.com/vantor-systems/vantor-soc/internal/middleware"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

const handoversPrefix = "/api/v1/handovers/"

// MetricsReportHandler handles GET /api/v1/reports/metrics
func (h *Handler) MetricsReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	now := time.Now().UTC()
	req := &models.MetricsWindowRequest{
		From: httputil.ParseTimeParam(q.Get("from"), now.Add(-24*time.Hour)),
		To:   httputil.ParseTimeParam(q.Get("to"), now),
	}

	m, err := h.reports.ComputeMetrics(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

// DashboardHandler handles GET /api/v1/reports/dashboard
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	stats, err := h.reports.DashboardStats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandoversHandler handles POST /api/v1/handovers
func (h *Handler) HandoversHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.CreateHandoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	handover, err := h.reports.CreateHandover(ctx, &req, middleware.GetTenant(ctx), middleware.GetActor(ctx))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, handover)
}

// HandoverRouteHandler handles /api/v1/handovers/{id} and acknowledgement
func (h *Handler) HandoverRouteHandler(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, handoversPrefix)
	if len(segs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "handover ID required")
		return
	}
	id := segs[0]

	if len(segs) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		handover, err := h.reports.GetHandover(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, handover)
		return
	}

	if segs[1] != "acknowledge" {
		httputil.WriteError(w, http.StatusNotFound, "unknown handover route")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	handover, err := h.reports.AcknowledgeHandover(r.Context(), id, middleware.GetActor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, handover)
}
