package audit

import (
	"context"
	"fmt"

	"github.com/scoutdesk/scoutdesk/internal/platform/db"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Repository reads audit timeline windows.
type Repository interface {
	TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error)
}

// Service serves the audit timeline.
type Service struct {
	repo   Repository
	matrix *rbac.Matrix
}

// NewService builds the audit timeline service.
func NewService(repo Repository, matrix *rbac.Matrix) *Service {
	return &Service{repo: repo, matrix: matrix}
}

// Timeline returns one page of audit entries.
func (s *Service) Timeline(ctx context.Context, principal rbac.Principal, filters TimelineFilters) (Result, error) {
	if !s.matrix.Authorize(principal.Role, rbac.ResourceAuditLogs, rbac.ActionView) {
		return Result{}, fmt.Errorf("audit: timeline: %w", shared.ErrUnauthorized)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && !filters.From.Before(filters.To) {
		return Result{}, fmt.Errorf("audit: timeline: %w", shared.FieldError("to", "must be after from"))
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.TimelineWindow(ctx, filters, (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline: %w", db.Classify(err))
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

const maxExportRows = 5000

// Export returns every entry matching filters, capped at maxExportRows.
func (s *Service) Export(ctx context.Context, principal rbac.Principal, filters TimelineFilters) ([]TimelineRow, error) {
	if !s.matrix.Authorize(principal.Role, rbac.ResourceAuditLogs, rbac.ActionView) {
		return nil, fmt.Errorf("audit: export: %w", shared.ErrUnauthorized)
	}
	rows, err := s.repo.TimelineWindow(ctx, filters, 0, maxExportRows)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", db.Classify(err))
	}
	return rows, nil
}
