package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scoutdesk/scoutdesk/internal/platform/httpx"
)

// PermissionsHandler exposes the signed-in principal's capabilities.
type PermissionsHandler struct {
	matrix *Matrix
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(matrix *Matrix, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{matrix: matrix, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Get("/", h.listPermissions)
	})
}

type permissionsResponse struct {
	PrincipalID  int64        `json:"principal_id"`
	Role         Role         `json:"role"`
	Capabilities []Capability `json:"capabilities"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	caps := h.matrix.Capabilities(p.Role)
	if caps == nil {
		caps = []Capability{}
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{PrincipalID: p.ID, Role: p.Role, Capabilities: caps})
}
