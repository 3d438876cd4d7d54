package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdesk/scoutdesk/internal/audit"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, principal rbac.Principal, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, principal rbac.Principal, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newAuditRouter(t *testing.T, svc *stubTimelineService) http.Handler {
	t.Helper()
	matrix, err := rbac.DefaultMatrix()
	require.NoError(t, err)
	mw := rbac.Middleware{Matrix: matrix}
	h := NewHandler(nil, svc, mw)
	h.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Use(mw.LoadPrincipal)
	r.Route("/audit", h.MountRoutes)
	return r
}

func signedIn(r *http.Request, id int64, role rbac.Role) *http.Request {
	sess := &shared.Session{}
	sess.SetUser(id, string(role))
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	svc := &stubTimelineService{result: audit.Result{Rows: []audit.TimelineRow{}}}
	router := newAuditRouter(t, svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, signedIn(httptest.NewRequest(http.MethodGet, "/audit?action=report.approve", nil), 6, rbac.RoleManager))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), svc.lastFilters.From)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), svc.lastFilters.To)
	assert.Equal(t, "report.approve", svc.lastFilters.Action)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	router := newAuditRouter(t, &stubTimelineService{})
	for _, q := range []string{"from=yesterday", "from=2026-03-10&to=2026-03-01", "from=2025-01-01&to=2026-03-01", "page=0", "actor_id=x"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, signedIn(httptest.NewRequest(http.MethodGet, "/audit?"+q, nil), 6, rbac.RoleManager))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, q)
	}
}

func TestTimelineForbiddenForCoordinator(t *testing.T) {
	router := newAuditRouter(t, &stubTimelineService{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, signedIn(httptest.NewRequest(http.MethodGet, "/audit", nil), 5, rbac.RoleScoutCoordinator))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestExportCSV(t *testing.T) {
	svc := &stubTimelineService{exportRows: []audit.TimelineRow{{ID: 1, ActorID: 6, Action: "report.approve", ResourceType: "reports", ResourceID: "9"}}}
	router := newAuditRouter(t, svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, signedIn(httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil), 6, rbac.RoleManager))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "id,at,actor_id"))
}
