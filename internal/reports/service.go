package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/scoutdesk/scoutdesk/internal/platform/db"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	// WithReadCommittedTx runs fn as one read-committed unit of work.
	WithReadCommittedTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	// WithTx runs fn as one repeatable-read unit of work.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Report, error)
	List(ctx context.Context, filter ListFilter) ([]Report, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	// ScoutActive returns shared.ErrNotFound for unknown scouts.
	ScoutActive(ctx context.Context, id int64) (bool, error)
	// PlayerActive returns shared.ErrNotFound for unknown players.
	PlayerActive(ctx context.Context, id int64) (bool, error)
	MatchExists(ctx context.Context, id int64) (bool, error)
	// NextCode advances and returns the period's sequence.
	NextCode(ctx context.Context, period string) (int64, error)
	// InsertReport returns shared.ErrConflict when the code is already taken.
	InsertReport(ctx context.Context, report Report) (int64, error)
	// LockReport loads a report and holds it until the unit ends.
	LockReport(ctx context.Context, id int64) (Report, error)
	// UpdateReview applies a review only while the report is submitted and
	// reports whether a row changed.
	UpdateReview(ctx context.Context, id int64, update ReviewUpdate) (bool, error)
	IncrementScoutCounters(ctx context.Context, scoutID int64, submitted, approved int) error
}

// SummaryInvalidator drops cached scout summaries after a transition.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, scoutID int64) error
}

// Service orchestrates the scouting report lifecycle.
type Service struct {
	repo      RepositoryPort
	matrix    *rbac.Matrix
	audit     shared.AuditRecorder
	summaries SummaryInvalidator
	metrics   *Metrics
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// ServiceConfig collects optional collaborators.
type ServiceConfig struct {
	Audit     shared.AuditRecorder
	Summaries SummaryInvalidator
	Metrics   *Metrics
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewService constructs the report workflow service.
func NewService(repo RepositoryPort, matrix *rbac.Matrix, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		matrix:    matrix,
		audit:     cfg.Audit,
		summaries: cfg.Summaries,
		metrics:   cfg.Metrics,
		logger:    logger,
		validate:  newValidator(),
		now:       now,
	}
}

// Create validates and persists a new report in the submitted state, or directly
// approved when the creator asked for it and separately holds approve.
func (s *Service) Create(ctx context.Context, principal rbac.Principal, input CreateInput) (Report, error) {
	report, err := s.create(ctx, principal, input)
	transition := "create"
	if report.SystemApproved {
		transition = "create_approved"
	}
	s.metrics.observe(transition, err)
	return report, err
}

func (s *Service) create(ctx context.Context, principal rbac.Principal, input CreateInput) (Report, error) {
	if !s.matrix.Authorize(principal.Role, rbac.ResourceReports, rbac.ActionCreate) {
		return Report{}, fmt.Errorf("reports: create: %w", shared.ErrUnauthorized)
	}
	autoApprove := false
	if input.AutoApprove {
		autoApprove = s.matrix.Authorize(principal.Role, rbac.ResourceReports, rbac.ActionApprove)
		if !autoApprove {
			s.logger.Info("auto-approve not permitted, report stays submitted",
				slog.Int64("principal_id", principal.ID),
				slog.String("role", string(principal.Role)),
			)
		}
	}

	input = input.normalize()
	if err := validateCreate(s.validate, input); err != nil {
		return Report{}, fmt.Errorf("reports: create: %w", err)
	}

	now := s.now().UTC()
	period := PeriodFor(now)
	draft := Report{
		ScoutID:          input.ScoutID,
		PlayerID:         input.PlayerID,
		MatchID:          input.MatchID,
		Technical:        input.Technical,
		Tactical:         input.Tactical,
		Physical:         input.Physical,
		Mental:           input.Mental,
		OverallRating:    Aggregate(input.Technical, input.Tactical, input.Physical, input.Mental),
		OverallPotential: input.OverallPotential,
		Strengths:        input.Strengths,
		Weaknesses:       input.Weaknesses,
		Comparison:       input.Comparison,
		RiskAssessment:   input.RiskAssessment,
		AdditionalNotes:  input.AdditionalNotes,
		Recommendation:   input.Recommendation,
		Status:           StatusSubmitted,
		CreatedBy:        principal.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	approvedDelta := 0
	if autoApprove {
		reviewer := principal.ID
		notes := AutoApproveNote
		draft.Status = StatusApproved
		draft.ReviewedBy = &reviewer
		draft.ReviewNotes = &notes
		draft.SystemApproved = true
		draft.ReviewedAt = &now
		draft.ApprovedAt = &now
		approvedDelta = 1
	}

	var created Report
	for attempt := 1; ; attempt++ {
		err := s.repo.WithReadCommittedTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := verifyReferences(ctx, tx, input); err != nil {
				return err
			}
			seq, err := tx.NextCode(ctx, period)
			if err != nil {
				return err
			}
			report := draft
			report.Code = FormatCode(period, seq)
			id, err := tx.InsertReport(ctx, report)
			if err != nil {
				return err
			}
			report.ID = id
			if err := tx.IncrementScoutCounters(ctx, report.ScoutID, 1, approvedDelta); err != nil {
				return err
			}
			created = report
			return nil
		})
		if err == nil {
			break
		}
		err = db.Classify(err)
		if errors.Is(err, shared.ErrConflict) && attempt < MaxCreateAttempts {
			s.metrics.retried()
			s.logger.Debug("report code conflict, retrying", slog.Int("attempt", attempt))
			continue
		}
		s.logFailure("create report", err, slog.Int64("scout_id", input.ScoutID), slog.Int("attempts", attempt))
		return Report{}, fmt.Errorf("reports: create: %w", err)
	}

	action := shared.AuditReportCreate
	if created.SystemApproved {
		action = shared.AuditReportAutoApprove
	}
	s.afterCommit(ctx, principal, action, created)
	return created, nil
}

func verifyReferences(ctx context.Context, tx TxRepository, input CreateInput) error {
	fields := make(map[string]string)

	active, err := tx.ScoutActive(ctx, input.ScoutID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		fields["scout_id"] = "unknown scout"
	case err != nil:
		return err
	case !active:
		fields["scout_id"] = "scout is not active"
	}

	active, err = tx.PlayerActive(ctx, input.PlayerID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		fields["player_id"] = "unknown player"
	case err != nil:
		return err
	case !active:
		fields["player_id"] = "player is not active"
	}

	if input.MatchID != nil {
		exists, err := tx.MatchExists(ctx, *input.MatchID)
		if err != nil {
			return err
		}
		if !exists {
			fields["match_id"] = "unknown match"
		}
	}

	if len(fields) > 0 {
		return shared.NewValidationError(fields)
	}
	return nil
}

// Approve moves a submitted report to approved.
func (s *Service) Approve(ctx context.Context, principal rbac.Principal, reportID int64, notes string) (Report, error) {
	return s.Review(ctx, principal, reportID, DecisionApprove, notes)
}

// Reject moves a submitted report to rejected.
func (s *Service) Reject(ctx context.Context, principal rbac.Principal, reportID int64, notes string) (Report, error) {
	return s.Review(ctx, principal, reportID, DecisionReject, notes)
}

// Review applies decision to a submitted report. Terminal reports yield
// shared.ErrInvalidTransition and are left untouched.
func (s *Service) Review(ctx context.Context, principal rbac.Principal, reportID int64, decision Decision, notes string) (Report, error) {
	report, err := s.review(ctx, principal, reportID, decision, notes)
	s.metrics.observe(string(decision), err)
	return report, err
}

func (s *Service) review(ctx context.Context, principal rbac.Principal, reportID int64, decision Decision, notes string) (Report, error) {
	if !s.matrix.Authorize(principal.Role, rbac.ResourceReports, rbac.ActionApprove) {
		return Report{}, fmt.Errorf("reports: review: %w", shared.ErrUnauthorized)
	}
	fields := make(map[string]string)
	if !decision.Valid() {
		fields["decision"] = "must be one of approve, reject"
	}
	if reportID <= 0 {
		fields["report_id"] = "must be a positive id"
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxReviewNotes {
		fields["notes"] = "must be at most " + strconv.Itoa(maxReviewNotes) + " characters"
	}
	if len(fields) > 0 {
		return Report{}, fmt.Errorf("reports: review: %w", shared.NewValidationError(fields))
	}

	now := s.now().UTC()
	update := ReviewUpdate{
		Status:     StatusRejected,
		ReviewedBy: principal.ID,
		ReviewedAt: now,
	}
	if decision == DecisionApprove {
		update.Status = StatusApproved
		update.ApprovedAt = &now
	}
	if notes != "" {
		update.Notes = &notes
	}

	var reviewed Report
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockReport(ctx, reportID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return fmt.Errorf("%w: report %s is already %s", shared.ErrInvalidTransition, current.Code, current.Status)
		}
		changed, err := tx.UpdateReview(ctx, reportID, update)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: report %s changed concurrently", shared.ErrConflict, current.Code)
		}
		if update.Status == StatusApproved {
			if err := tx.IncrementScoutCounters(ctx, current.ScoutID, 0, 1); err != nil {
				return err
			}
		}
		reviewed = applyReview(current, update)
		return nil
	})
	if err != nil {
		err = db.Classify(err)
		s.logFailure("review report", err, slog.Int64("report_id", reportID), slog.String("decision", string(decision)))
		return Report{}, fmt.Errorf("reports: review: %w", err)
	}

	action := shared.AuditReportReject
	if update.Status == StatusApproved {
		action = shared.AuditReportApprove
	}
	s.afterCommit(ctx, principal, action, reviewed)
	return reviewed, nil
}

func applyReview(r Report, update ReviewUpdate) Report {
	reviewer := update.ReviewedBy
	reviewedAt := update.ReviewedAt
	r.Status = update.Status
	r.ReviewedBy = &reviewer
	r.ReviewNotes = update.Notes
	r.ReviewedAt = &reviewedAt
	r.ApprovedAt = update.ApprovedAt
	r.UpdatedAt = reviewedAt
	return r
}

// Get returns a single report.
func (s *Service) Get(ctx context.Context, principal rbac.Principal, id int64) (Report, error) {
	if !s.matrix.Authorize(principal.Role, rbac.ResourceReports, rbac.ActionView) {
		return Report{}, fmt.Errorf("reports: get: %w", shared.ErrUnauthorized)
	}
	if id <= 0 {
		return Report{}, fmt.Errorf("reports: get: %w", shared.ErrNotFound)
	}
	report, err := s.repo.Get(ctx, id)
	if err != nil {
		return Report{}, fmt.Errorf("reports: get: %w", db.Classify(err))
	}
	return report, nil
}

// List returns reports matching filter, newest first.
func (s *Service) List(ctx context.Context, principal rbac.Principal, filter ListFilter) ([]Report, error) {
	if !s.matrix.Authorize(principal.Role, rbac.ResourceReports, rbac.ActionView) {
		return nil, fmt.Errorf("reports: list: %w", shared.ErrUnauthorized)
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("reports: list: %w", shared.FieldError("status", "must be one of submitted, approved, rejected"))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reports: list: %w", db.Classify(err))
	}
	return rows, nil
}

// afterCommit runs best-effort side effects; none of them can undo the transition.
func (s *Service) afterCommit(ctx context.Context, principal rbac.Principal, action string, report Report) {
	ctx = context.WithoutCancel(ctx)
	if s.audit != nil {
		entry := shared.AuditLog{
			ActorID:      principal.ID,
			Action:       action,
			ResourceType: string(rbac.ResourceReports),
			ResourceID:   strconv.FormatInt(report.ID, 10),
			Meta: map[string]any{
				"code":     report.Code,
				"scout_id": report.ScoutID,
				"status":   string(report.Status),
			},
			At: s.now().UTC(),
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Warn("audit record failed",
				slog.String("action", action),
				slog.Int64("report_id", report.ID),
				slog.Any("error", err),
			)
		}
	}
	if s.summaries != nil {
		if err := s.summaries.Invalidate(ctx, report.ScoutID); err != nil {
			s.logger.Warn("invalidate scout summary", slog.Int64("scout_id", report.ScoutID), slog.Any("error", err))
		}
	}
}

func (s *Service) logFailure(msg string, err error, attrs ...slog.Attr) {
	if shared.IsExpected(err) {
		return
	}
	args := make([]any, 0, len(attrs)+1)
	for _, a := range attrs {
		args = append(args, a)
	}
	args = append(args, slog.Any("error", err))
	if errors.Is(err, shared.ErrConflict) {
		s.logger.Warn(msg, args...)
		return
	}
	s.logger.Error(msg, args...)
}
