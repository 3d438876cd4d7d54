package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scoutdesk/scoutdesk/internal/platform/httpx"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

const idempotencyScope = "reports.create"

// WorkflowService is the subset of Service used by Handler.
type WorkflowService interface {
	Create(ctx context.Context, principal rbac.Principal, input CreateInput) (Report, error)
	Review(ctx context.Context, principal rbac.Principal, reportID int64, decision Decision, notes string) (Report, error)
	Get(ctx context.Context, principal rbac.Principal, id int64) (Report, error)
	List(ctx context.Context, principal rbac.Principal, filter ListFilter) ([]Report, error)
}

// Handler manages report endpoints.
type Handler struct {
	logger      *slog.Logger
	service     WorkflowService
	idempotency shared.IdempotencyKeys
	rbac        rbac.Middleware
}

// NewHandler builds Handler instance. idempotency may be nil.
func NewHandler(logger *slog.Logger, service WorkflowService, idempotency shared.IdempotencyKeys, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, idempotency: idempotency, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceReports, rbac.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceReports, rbac.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceReports, rbac.ActionApprove))
		r.Post("/{id}/approve", h.review(DecisionApprove))
		r.Post("/{id}/reject", h.review(DecisionReject))
	})
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

type listResponse struct {
	Reports []Report `json:"reports"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, shared.FieldError("body", err.Error()))
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	scope := idempotencyScope + ":" + strconv.FormatInt(principal.ID, 10)
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Claim(r.Context(), key, scope); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	report, err := h.service.Create(r.Context(), principal, input)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if relErr := h.idempotency.Release(context.WithoutCancel(r.Context()), key, scope); relErr != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", relErr))
			}
		}
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Location", "/reports/"+strconv.FormatInt(report.ID, 10))
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	query := r.URL.Query()
	page, err := shared.ParsePage(query, defaultListLimit, maxListLimit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := ListFilter{Limit: page.Limit, Offset: page.Offset}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("scout_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, shared.FieldError("scout_id", "must be a positive id"))
			return
		}
		filter.ScoutID = id
	}

	rows, err := h.service.List(r.Context(), principal, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []Report{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Reports: rows, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) review(decision Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := rbac.PrincipalFromContext(r.Context())
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var req reviewRequest
		if r.ContentLength != 0 {
			if err := httpx.DecodeJSON(r, &req); err != nil {
				httpx.RespondError(w, shared.FieldError("body", err.Error()))
				return
			}
		}
		report, err := h.service.Review(r.Context(), principal, id, decision, req.Notes)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.FieldError("id", "must be a positive id"))
		return 0, false
	}
	return id, true
}
