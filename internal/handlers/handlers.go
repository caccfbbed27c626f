// Package handlers provides HTTP request handlers for the SOC service.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vantor-systems/vantor-soc/internal/httputil"
	"github.com/vantor-systems/vantor-soc/internal/logging"
	"github.com/vantor-systems/vantor-soc/internal/models"
	"github.com/vantor-systems/vantor-soc/internal/reporting"
	"github.com/vantor-systems/vantor-soc/internal/repository"
	"github.com/vantor-systems/vantor-soc/internal/scheduler"
	"github.com/vantor-systems/vantor-soc/internal/service"
	"github.com/vantor-systems/vantor-soc/internal/trigger"
)

// Handler provides HTTP handlers for the SOC service
type Handler struct {
	alerts     *service.AlertService
	cases      *service.CaseService
	playbooks  *service.PlaybookService
	scheduler  *scheduler.Scheduler
	dispatcher *trigger.Dispatcher
	reports    *reporting.Service
	repo       repository.Repository
	logger     *logging.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(
	alerts *service.AlertService,
	cases *service.CaseService,
	playbooks *service.PlaybookService,
	sched *scheduler.Scheduler,
	dispatcher *trigger.Dispatcher,
	reports *reporting.Service,
	repo repository.Repository,
	logger *logging.Logger,
) *Handler {
	return &Handler{
		alerts:     alerts,
		cases:      cases,
		playbooks:  playbooks,
		scheduler:  sched,
		dispatcher: dispatcher,
		reports:    reports,
		repo:       repo,
		logger:     logger,
	}
}

// pathSegments splits the path remainder after prefix into segments.
// pathSegments("/api/v1/cases/abc/tasks/42", "/api/v1/cases/") returns
// ["abc", "tasks", "42"].
func pathSegments(path, prefix string) []string {
	remaining := strings.TrimPrefix(path, prefix)
	remaining = strings.Trim(remaining, "/")
	if remaining == "" {
		return nil
	}
	return strings.Split(remaining, "/")
}

// writeServiceError maps domain errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrAlertNotFound),
		errors.Is(err, repository.ErrCaseNotFound),
		errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrPlaybookNotFound),
		errors.Is(err, repository.ErrExecutionNotFound),
		errors.Is(err, repository.ErrHandoverNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrValidation):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, scheduler.ErrNotPending),
		errors.Is(err, scheduler.ErrNotCancellable),
		errors.Is(err, scheduler.ErrPlaybookNotRunnable):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, scheduler.ErrConcurrencyLimitExceeded):
		httputil.WriteError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// HealthCheck handles GET /healthz
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "ok",
		Service: "soc",
	})
}

// ReadyCheck handles GET /readyz
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, models.HealthResponse{
			Status:  "unavailable",
			Service: "soc",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "ready",
		Service: "soc",
	})
}
