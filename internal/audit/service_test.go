package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

type fakeRepo struct {
	rows       []TimelineRow
	err        error
	lastOffset int
	lastLimit  int
}

func (f *fakeRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	f.lastOffset, f.lastLimit = offset, limit
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func sampleRows(n int) []TimelineRow {
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{ID: int64(n - i), At: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ActorID: 6, Action: shared.AuditReportApprove, ResourceType: "reports", ResourceID: "1"}
	}
	return rows
}

var manager = rbac.Principal{ID: 6, Role: rbac.RoleManager}

func newAuditService(t *testing.T, repo Repository) *Service {
	t.Helper()
	matrix, err := rbac.DefaultMatrix()
	require.NoError(t, err)
	return NewService(repo, matrix)
}

func TestTimelinePaging(t *testing.T) {
	repo := &fakeRepo{rows: sampleRows(45)}
	svc := newAuditService(t, repo)

	res, err := svc.Timeline(context.Background(), manager, TimelineFilters{Page: 2})
	require.NoError(t, err)
	assert.Len(t, res.Rows, defaultPageSize)
	assert.Equal(t, PagingInfo{Page: 2, PageSize: 20, HasNext: true, PrevPage: 1, NextPage: 3}, res.Paging)
	assert.Equal(t, 20, repo.lastOffset)
	assert.Equal(t, 21, repo.lastLimit)

	res, err = svc.Timeline(context.Background(), manager, TimelineFilters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, maxPageSize, res.Paging.PageSize)
	assert.False(t, res.Paging.HasNext)
}

func TestTimelineRequiresAuditView(t *testing.T) {
	svc := newAuditService(t, &fakeRepo{})
	_, err := svc.Timeline(context.Background(), rbac.Principal{ID: 5, Role: rbac.RoleScoutCoordinator}, TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	_, err = svc.Export(context.Background(), rbac.Principal{ID: 7, Role: rbac.RoleViewer}, TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestTimelineStorageFailure(t *testing.T) {
	svc := newAuditService(t, &fakeRepo{err: errors.New("dial tcp: refused")})
	_, err := svc.Timeline(context.Background(), manager, TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrStorageUnavailable)
}

func TestTimelineRejectsInvertedRange(t *testing.T) {
	svc := newAuditService(t, &fakeRepo{})
	now := time.Now()
	_, err := svc.Timeline(context.Background(), manager, TimelineFilters{From: now, To: now.Add(-time.Hour)})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestWriteCSV(t *testing.T) {
	rows := sampleRows(1)
	rows[0].Meta = map[string]any{"code": "SR-2026-0001"}
	out, err := WriteCSV(rows)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,at,actor_id,action,resource_type,resource_id,meta", lines[0])
	assert.Contains(t, lines[1], "report.approve")
	assert.Contains(t, lines[1], `SR-2026-0001`)
}

func TestAuditLogValidate(t *testing.T) {
	assert.Error(t, shared.AuditLog{Action: "x", ResourceType: "reports", ResourceID: "1"}.Validate())
	assert.Error(t, shared.AuditLog{ActorID: 1, ResourceType: "reports", ResourceID: "1"}.Validate())
	assert.NoError(t, shared.AuditLog{ActorID: 1, Action: "x", ResourceType: "reports", ResourceID: "1"}.Validate())
}
