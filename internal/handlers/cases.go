package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vantor-systems/vantor-soc/internal/httputil"
	"github.com/vantor-systems/vantor-soc/internal/middleware"
	"github.com/vantor-systems/vantor-soc/internal/models"
)

const casesPrefix = "/api/v1/cases/"

// CasesHandler handles /api/v1/cases
func (h *Handler) CasesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listCases(w, r)
	case http.MethodPost:
		h.createCase(w, r)
	default:
		methodNotAllowed(w)
	}
}

// CaseRouteHandler handles /api/v1/cases/{id} and its sub-routes
func (h *Handler) CaseRouteHandler(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, casesPrefix)
	if len(segs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "case ID required")
		return
	}
	id := segs[0]

	if len(segs) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.getCase(w, r, id)
		return
	}

	switch segs[1] {
	case "alerts":
		h.caseAlerts(w, r, id, segs)
	case "escalate":
		h.escalateCase(w, r, id)
	case "resolve":
		h.resolveCase(w, r, id)
	case "tasks":
		h.caseTasks(w, r, id, segs)
	case "timeline":
		h.caseTimeline(w, r, id)
	case "notes":
		h.caseNotes(w, r, id)
	default:
		httputil.WriteError(w, http.StatusNotFound, "unknown case route")
	}
}

func (h *Handler) createCase(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	c, err := h.cases.CreateCase(ctx, &req, middleware.GetTenant(ctx), middleware.GetActor(ctx))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) listCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.ListCasesRequest{
		Page:       httputil.ParseIntParam(q.Get("page"), 1),
		Limit:      httputil.ParseIntParam(q.Get("limit"), 50),
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		AssigneeID: q.Get("assignee"),
	}

	resp, err := h.cases.ListCases(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCase(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.cases.GetCase(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// caseAlerts handles POST /api/v1/cases/{id}/alerts (link) and
// GET /api/v1/cases/{id}/alerts (list links).
func (h *Handler) caseAlerts(w http.ResponseWriter, r *http.Request, id string, segs []string) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			AlertID string `json:"alert_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AlertID == "" {
			httputil.WriteError(w, http.StatusBadRequest, "alert_id is required")
			return
		}
		c, err := h.cases.LinkAlert(r.Context(), id, req.AlertID, middleware.GetActor(r.Context()))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, c)
	case http.MethodGet:
		links, err := h.repo.ListCaseAlerts(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"alerts": links})
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) escalateCase(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.EscalateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.cases.Escalate(r.Context(), id, &req, middleware.GetActor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) resolveCase(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req models.ResolveCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.cases.Resolve(r.Context(), id, &req, middleware.GetActor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// caseTasks handles /api/v1/cases/{id}/tasks and
// /api/v1/cases/{id}/tasks/{taskID}/complete.
func (h *Handler) caseTasks(w http.ResponseWriter, r *http.Request, id string, segs []string) {
	if len(segs) == 4 && segs[3] == "complete" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		t, err := h.cases.CompleteTask(r.Context(), id, segs[2])
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, t)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tasks, err := h.cases.ListTasks(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
	case http.MethodPost:
		var req models.CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := h.cases.AddTask(r.Context(), id, &req, middleware.GetActor(r.Context()))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, t)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) caseTimeline(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	entries, err := h.cases.ListTimeline(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"timeline": entries})
}

func (h *Handler) caseNotes(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.cases.AppendNote(r.Context(), id, req.Note, middleware.GetActor(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}
