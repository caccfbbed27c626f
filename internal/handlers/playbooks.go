package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vantor-systems/vantor-soc/internal/httputil"
	"github.com/vantor-systems/vantor-soc/internal/middleware"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

const playbooksPrefix = "/api/v1/playbooks/"

// PlaybooksHandler handles /api/v1/playbooks
func (h *Handler) PlaybooksHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPlaybooks(w, r)
	case http.MethodPost:
		h.createPlaybook(w, r)
	default:
		methodNotAllowed(w)
	}
}

// PlaybookRouteHandler handles /api/v1/playbooks/{id} and its sub-routes
func (h *Handler) PlaybookRouteHandler(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, playbooksPrefix)
	if len(segs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "playbook ID required")
		return
	}
	id := segs[0]

	if len(segs) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.getPlaybook(w, r, id)
		case http.MethodPatch, http.MethodPut:
			h.updatePlaybook(w, r, id)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch segs[1] {
	case "enable":
		h.enablePlaybook(w, r, id)
	case "disable":
		h.disablePlaybook(w, r, id)
	case "run":
		h.runPlaybook(w, r, id)
	default:
		httputil.WriteError(w, http.StatusNotFound, "unknown playbook route")
	}
}

func (h *Handler) createPlaybook(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlaybookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	p, err := h.playbooks.CreatePlaybook(ctx, &req, middleware.GetTenant(ctx), middleware.GetActor(ctx))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) listPlaybooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.ListPlaybooksRequest{
		Page:        httputil.ParseIntParam(q.Get("page"), 1),
		Limit:       httputil.ParseIntParam(q.Get("limit"), 50),
		Status:      q.Get("status"),
		TriggerType: q.Get("trigger_type"),
	}

	resp, err := h.playbooks.ListPlaybooks(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) getPlaybook(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.playbooks.GetPlaybook(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) updatePlaybook(w http.ResponseWriter, r *http.Request, id string) {
	var req models.UpdatePlaybookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.playbooks.UpdatePlaybook(r.Context(), id, &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) enablePlaybook(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	p, err := h.playbooks.EnablePlaybook(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) disablePlaybook(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	p, err := h.playbooks.DisablePlaybook(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// runPlaybook handles POST /api/v1/playbooks/{id}/run: a manual execution
// request against a specific alert or case.
func (h *Handler) runPlaybook(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		AlertID *string `json:"alert_id,omitempty"`
		CaseID  *string `json:"case_id,omitempty"`
		Reason  string  `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual invocation"
	}

	ctx := r.Context()
	ex, err := h.scheduler.Request(ctx, &models.ExecutionRequest{
		PlaybookID:    id,
		TriggerReason: reason,
		AlertID:       req.AlertID,
		CaseID:        req.CaseID,
		RequestedBy:   middleware.GetActor(ctx),
		TenantID:      middleware.GetTenant(ctx),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, ex)
}
