package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vantor-systems/vantor-soc/internal/httputil"
	"github.com/vantor-systems/vantor-soc/internal/middleware"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

const executionsPrefix = "/api/v1/executions/"

// ExecutionsHandler handles GET /api/v1/executions
func (h *Handler) ExecutionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	req := &models.ListExecutionsRequest{
		Page:       httputil.ParseIntParam(q.Get("page"), 1),
		Limit:      httputil.ParseIntParam(q.Get("limit"), 50),
		PlaybookID: q.Get("playbook_id"),
		Status:     q.Get("status"),
	}

	resp, err := h.scheduler.ListExecutions(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ExecutionRouteHandler handles /api/v1/executions/{id} and its sub-routes
func (h *Handler) ExecutionRouteHandler(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, executionsPrefix)
	if len(segs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "execution ID required")
		return
	}
	id := segs[0]

	if len(segs) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		ex, err := h.scheduler.GetExecution(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, ex)
		return
	}

	switch segs[1] {
	case "approve":
		h.approveExecution(w, r, id)
	case "reject":
		h.rejectExecution(w, r, id)
	case "cancel":
		h.cancelExecution(w, r, id)
	default:
		httputil.WriteError(w, http.StatusNotFound, "unknown execution route")
	}
}

func (h *Handler) approveExecution(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	ex, err := h.scheduler.Approve(r.Context(), id, middleware.GetActor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ex)
}

func (h *Handler) rejectExecution(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.RejectExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		httputil.WriteError(w, http.StatusBadRequest, "rejection reason is required")
		return
	}

	ex, err := h.scheduler.Reject(r.Context(), id, middleware.GetActor(r.Context()), req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ex)
}

func (h *Handler) cancelExecution(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	ex, err := h.scheduler.Cancel(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ex)
}
