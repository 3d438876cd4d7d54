package rbac

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/scoutdesk/scoutdesk/internal/platform/httpx"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Matrix *Matrix
	Logger *slog.Logger
}

// LoadPrincipal resolves the session user into a Principal stored on the request context.
// Requests without a signed-in session pass through anonymously.
func (m Middleware) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := m.principalFromSession(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// Require ensures the current principal holds the capability. It is a coarse gate
// for routing; services re-check the capability before mutating anything.
func (m Middleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if !m.Matrix.Authorize(p.Role, resource, action) {
				m.logger().Info("rbac denied",
					slog.Int64("principal_id", p.ID),
					slog.String("role", string(p.Role)),
					slog.String("capability", Capability{Resource: resource, Action: action}.String()),
				)
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated rejects anonymous requests.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) principalFromSession(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Principal{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Principal{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		m.logger().Error("rbac parse user id", slog.String("value", raw))
		return Principal{}, false
	}
	role := Role(strings.TrimSpace(sess.Role()))
	if !role.Valid() {
		m.logger().Warn("rbac unknown role in session", slog.Int64("user_id", id), slog.String("role", string(role)))
		return Principal{}, false
	}
	return Principal{ID: id, Role: role}, true
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
