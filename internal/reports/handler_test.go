package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdesk/scoutdesk/internal/platform/httpx"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryKeys) Claim(ctx context.Context, key, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[scope+"|"+key] {
		return shared.ErrConflict
	}
	m.keys[scope+"|"+key] = true
	return nil
}

func (m *memoryKeys) Release(ctx context.Context, key, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, scope+"|"+key)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	mw := rbac.Middleware{Matrix: f.svc.matrix}
	h := NewHandler(nil, f.svc, &memoryKeys{}, mw)
	r := chi.NewRouter()
	r.Use(mw.LoadPrincipal)
	r.Route("/reports", h.MountRoutes)
	return r, f
}

func asPrincipal(r *http.Request, p rbac.Principal) *http.Request {
	sess := &shared.Session{}
	sess.SetUser(p.ID, string(p.Role))
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func postJSON(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandlerCreateAndReview(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(postJSON(t, "/reports", validInput()), coordinator))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "SR-2026-0001", created.Code)
	assert.Equal(t, "/reports/"+strconv.FormatInt(created.ID, 10), rr.Header().Get("Location"))

	path := "/reports/" + strconv.FormatInt(created.ID, 10)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(postJSON(t, path+"/approve", map[string]string{"notes": "ok"}), coordinator))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(postJSON(t, path+"/approve", map[string]string{"notes": "ok"}), manager))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodPost, path+"/reject", nil), manager))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodGet, path, nil), viewer))
	require.Equal(t, http.StatusOK, rr.Code)
	var shown Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &shown))
	assert.Equal(t, StatusApproved, shown.Status)
}

func TestHandlerCreateValidationProblem(t *testing.T) {
	router, _ := newTestRouter(t)
	input := validInput()
	input.Technical = 11

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(postJSON(t, "/reports", input), coordinator))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Contains(t, problem.Errors, "technical")
}

func TestHandlerCreateRejectsUnknownFields(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(postJSON(t, "/reports", map[string]any{"scout_id": 1, "grade": "A"}), coordinator))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandlerAnonymousAndViewer(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, postJSON(t, "/reports", validInput()))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(postJSON(t, "/reports", validInput()), viewer))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandlerIdempotencyKey(t *testing.T) {
	router, f := newTestRouter(t)

	send := func() int {
		req := asPrincipal(postJSON(t, "/reports", validInput()), coordinator)
		req.Header.Set("Idempotency-Key", "abc-123")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusConflict, send())
	assert.Len(t, f.repo.state.reports, 1)
}

func TestHandlerListFilters(t *testing.T) {
	router, f := newTestRouter(t)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(context.Background(), coordinator, validInput())
		require.NoError(t, err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodGet, "/reports?status=submitted&limit=2", nil), viewer))
	require.Equal(t, http.StatusOK, rr.Code)
	var body listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Reports, 2)
	assert.Equal(t, 2, body.Limit)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodGet, "/reports?limit=-1", nil), viewer))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asPrincipal(httptest.NewRequest(http.MethodGet, "/reports/abc", nil), viewer))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
