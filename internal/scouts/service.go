package scouts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/scoutdesk/scoutdesk/internal/platform/cache"
	"github.com/scoutdesk/scoutdesk/internal/platform/db"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/reports"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

// RepositoryPort describes the reads a summary needs.
type RepositoryPort interface {
	Scout(ctx context.Context, id int64) (Scout, error)
	ApprovedRatings(ctx context.Context, scoutID int64) ([]float64, error)
	RecommendationCounts(ctx context.Context, scoutID int64) (map[string]int, error)
}

// Service builds scout performance summaries.
type Service struct {
	repo   RepositoryPort
	matrix *rbac.Matrix
	cache  *cache.JSONCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the service. c may be nil to disable caching.
func NewService(repo RepositoryPort, matrix *rbac.Matrix, c *cache.JSONCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, matrix: matrix, cache: c, logger: logger, now: time.Now}
}

func summaryKey(scoutID int64) string {
	return "scouts:summary:" + strconv.FormatInt(scoutID, 10)
}

// Summary returns the scout's performance overview.
func (s *Service) Summary(ctx context.Context, principal rbac.Principal, scoutID int64) (Summary, error) {
	if !s.matrix.Authorize(principal.Role, rbac.ResourceScouts, rbac.ActionView) {
		return Summary{}, fmt.Errorf("scouts: summary: %w", shared.ErrUnauthorized)
	}
	if scoutID <= 0 {
		return Summary{}, fmt.Errorf("scouts: summary: %w", shared.ErrNotFound)
	}
	var summary Summary
	err := s.cache.Fetch(ctx, summaryKey(scoutID), &summary, func(ctx context.Context) (any, error) {
		return s.build(ctx, scoutID)
	})
	if err != nil {
		err = db.Classify(err)
		if !shared.IsExpected(err) {
			s.logger.Error("build scout summary", slog.Int64("scout_id", scoutID), slog.Any("error", err))
		}
		return Summary{}, fmt.Errorf("scouts: summary: %w", err)
	}
	return summary, nil
}

// Invalidate drops the cached summary for scoutID.
func (s *Service) Invalidate(ctx context.Context, scoutID int64) error {
	return s.cache.Delete(ctx, summaryKey(scoutID))
}

func (s *Service) build(ctx context.Context, scoutID int64) (Summary, error) {
	scout, err := s.repo.Scout(ctx, scoutID)
	if err != nil {
		return Summary{}, err
	}
	ratings, err := s.repo.ApprovedRatings(ctx, scoutID)
	if err != nil {
		return Summary{}, err
	}
	recs, err := s.repo.RecommendationCounts(ctx, scoutID)
	if err != nil {
		return Summary{}, err
	}
	if recs == nil {
		recs = map[string]int{}
	}
	rate := 0.0
	if scout.ReportsSubmitted > 0 {
		rate = reports.RoundHalfUp(float64(scout.ReportsApproved)*100/float64(scout.ReportsSubmitted), 1)
	}
	return Summary{
		ScoutID:          scout.ID,
		Name:             scout.Name,
		Active:           scout.Active,
		ReportsSubmitted: scout.ReportsSubmitted,
		ReportsApproved:  scout.ReportsApproved,
		ApprovalRate:     rate,
		AverageRating:    reports.MeanRating(ratings),
		Recommendations:  recs,
		GeneratedAt:      s.now().UTC(),
	}, nil
}
