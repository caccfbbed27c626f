package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vantor-systems/vantor-soc/internal/httputil"
	"github.com/vantor-systems/vantor-soc/internal/middleware"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

const alertsPrefix = "/api/v1/alerts/"

// AlertsHandler handles /api/v1/alerts
func (h *Handler) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAlerts(w, r)
	case http.MethodPost:
		h.createAlert(w, r)
	default:
		methodNotAllowed(w)
	}
}

// AlertRouteHandler handles /api/v1/alerts/{id} and its sub-routes
func (h *Handler) AlertRouteHandler(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, alertsPrefix)
	if len(segs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "alert ID required")
		return
	}
	id := segs[0]

	if len(segs) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.getAlert(w, r, id)
		case http.MethodPatch, http.MethodPut:
			h.updateAlert(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch segs[1] {
	case "assign":
		h.assignAlert(w, r, id)
	case "acknowledge":
		h.acknowledgeAlert(w, r, id)
	case "resolve":
		h.resolveAlert(w, r, id)
	case "comments":
		h.alertComments(w, r, id)
	case "playbooks":
		h.alertPlaybookCandidates(w, r, id)
	default:
		httputil.WriteError(w, http.StatusNotFound, "unknown alert route")
	}
}

// BulkAlertsHandler handles POST /api/v1/alerts/bulk
func (h *Handler) BulkAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.BulkCreateAlertsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	created, err := h.alerts.BulkCreateAlerts(ctx, &req, middleware.GetTenant(ctx), middleware.GetActor(ctx))
	if err != nil {
		// Bulk creation is a fold of single creation; report what was
		// created before the failure.
		httputil.WriteJSON(w, http.StatusMultiStatus, map[string]interface{}{
			"created": created,
			"error":   err.Error(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"created": created})
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	a, err := h.alerts.CreateAlert(ctx, &req, middleware.GetTenant(ctx), middleware.GetActor(ctx))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.ListAlertsRequest{
		Page:     httputil.ParseIntParam(q.Get("page"), 1),
		Limit:    httputil.ParseIntParam(q.Get("limit"), 50),
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		Source:   q.Get("source"),
		Assignee: q.Get("assignee"),
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			req.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			req.To = &t
		}
	}

	resp, err := h.alerts.ListAlerts(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.alerts.GetAlert(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) updateAlert(w http.ResponseWriter, r *http.Request, id string) {
	var req models.UpdateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.alerts.UpdateAlert(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) assignAlert(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.AssignAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.alerts.AssignAlert(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) acknowledgeAlert(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	a, err := h.alerts.AcknowledgeAlert(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.ResolveAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.alerts.ResolveAlert(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) alertComments(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		comments, err := h.alerts.ListComments(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
	case http.MethodPost:
		var req models.AddCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c, err := h.alerts.AddComment(r.Context(), id, &req, middleware.GetActor(r.Context()))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w)
	}
}

// alertPlaybookCandidates lists matching playbooks that require manual
// invocation for an alert.
func (h *Handler) alertPlaybookCandidates(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	a, err := h.alerts.GetAlert(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	candidates, err := h.dispatcher.CandidatesForAlert(r.Context(), a)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"playbooks": candidates})
}
