package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdesk/scoutdesk/internal/shared"
)

func withSession(r *http.Request, userID int64, role string) *http.Request {
	sess := &shared.Session{}
	if userID != 0 {
		sess.SetUser(userID, role)
	}
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func testRouter(m Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(m.LoadPrincipal)
	r.With(m.Require(ResourceReports, ActionApprove)).Post("/approve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Route("/me/permissions", NewPermissionsHandler(m.Matrix, m).MountRoutes)
	return r
}

func TestRequireCapability(t *testing.T) {
	matrix, err := DefaultMatrix()
	require.NoError(t, err)
	router := testRouter(Middleware{Matrix: matrix})

	cases := []struct {
		name   string
		userID int64
		role   string
		want   int
	}{
		{"anonymous", 0, "", http.StatusUnauthorized},
		{"unknown role", 7, "owner", http.StatusUnauthorized},
		{"coordinator denied", 7, string(RoleScoutCoordinator), http.StatusForbidden},
		{"manager allowed", 7, string(RoleManager), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withSession(httptest.NewRequest(http.MethodPost, "/approve", nil), tc.userID, tc.role)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestPermissionsHandlerListsCapabilities(t *testing.T) {
	matrix := NewMatrix(map[Role][]Capability{
		RoleViewer: {{Resource: ResourceReports, Action: ActionView}},
	})
	router := testRouter(Middleware{Matrix: matrix})

	req := withSession(httptest.NewRequest(http.MethodGet, "/me/permissions/", nil), 42, string(RoleViewer))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body permissionsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, int64(42), body.PrincipalID)
	assert.Equal(t, RoleViewer, body.Role)
	assert.Equal(t, []Capability{{Resource: ResourceReports, Action: ActionView}}, body.Capabilities)
}
