package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoutdesk/scoutdesk/internal/platform/db"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

const reportCodeConstraint = "reports_code_key"

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository provides PostgreSQL backed persistence for scouting reports.
type Repository struct {
	pool *pgxpool.Pool
	db   dbtx
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

type txRepo struct {
	db dbtx
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{db: tx})
	})
}

// WithReadCommittedTx wraps fn in a read-committed transaction.
func (r *Repository) WithReadCommittedTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithReadCommittedTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{db: tx})
	})
}

const reportColumns = `id, code, scout_id, player_id, match_id,
	technical, tactical, physical, mental, overall_rating, overall_potential,
	strengths, weaknesses, comparison, risk_assessment, additional_notes,
	recommendation, status, reviewed_by, review_notes, system_approved,
	reviewed_at, approved_at, created_by, created_at, updated_at`

// Get loads a report by id.
func (r *Repository) Get(ctx context.Context, id int64) (Report, error) {
	row := r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, shared.ErrNotFound
	}
	return report, err
}

// List returns reports ordered newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Report, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ScoutID > 0 {
		args = append(args, filter.ScoutID)
		conditions = append(conditions, fmt.Sprintf("scout_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM reports %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		reportColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (t *txRepo) ScoutActive(ctx context.Context, id int64) (bool, error) {
	return t.activeFlag(ctx, `SELECT is_active FROM scouts WHERE id = $1`, id)
}

func (t *txRepo) PlayerActive(ctx context.Context, id int64) (bool, error) {
	return t.activeFlag(ctx, `SELECT is_active FROM players WHERE id = $1`, id)
}

func (t *txRepo) activeFlag(ctx context.Context, query string, id int64) (bool, error) {
	var active bool
	err := t.db.QueryRow(ctx, query, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, shared.ErrNotFound
	}
	return active, err
}

func (t *txRepo) MatchExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// NextCode increments the period counter. The upsert holds the counter row
// lock until commit, so concurrent creators are ordered without gaps.
func (t *txRepo) NextCode(ctx context.Context, period string) (int64, error) {
	var seq int64
	err := t.db.QueryRow(ctx, `
		INSERT INTO report_code_sequences (period, seq)
		VALUES ($1, 1)
		ON CONFLICT (period)
		DO UPDATE SET seq = report_code_sequences.seq + 1
		RETURNING seq
	`, period).Scan(&seq)
	return seq, err
}

func (t *txRepo) InsertReport(ctx context.Context, r Report) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx, `
		INSERT INTO reports (
			code, scout_id, player_id, match_id,
			technical, tactical, physical, mental, overall_rating, overall_potential,
			strengths, weaknesses, comparison, risk_assessment, additional_notes,
			recommendation, status, reviewed_by, review_notes, system_approved,
			reviewed_at, approved_at, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25
		) RETURNING id
	`,
		r.Code, r.ScoutID, r.PlayerID, r.MatchID,
		r.Technical, r.Tactical, r.Physical, r.Mental, r.OverallRating, r.OverallPotential,
		r.Strengths, r.Weaknesses, r.Comparison, r.RiskAssessment, r.AdditionalNotes,
		string(r.Recommendation), string(r.Status), r.ReviewedBy, r.ReviewNotes, r.SystemApproved,
		r.ReviewedAt, r.ApprovedAt, r.CreatedBy, r.CreatedAt, r.UpdatedAt,
	).Scan(&id)
	if db.IsUniqueViolation(err, reportCodeConstraint) {
		return 0, fmt.Errorf("%w: report code %s already taken", shared.ErrConflict, r.Code)
	}
	return id, err
}

func (t *txRepo) LockReport(ctx context.Context, id int64) (Report, error) {
	row := t.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1 FOR UPDATE`, id)
	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, shared.ErrNotFound
	}
	return report, err
}

func (t *txRepo) UpdateReview(ctx context.Context, id int64, u ReviewUpdate) (bool, error) {
	tag, err := t.db.Exec(ctx, `
		UPDATE reports
		SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5,
		    approved_at = $6, updated_at = $5
		WHERE id = $1 AND status = 'submitted'
	`, id, string(u.Status), u.ReviewedBy, u.Notes, u.ReviewedAt, u.ApprovedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) IncrementScoutCounters(ctx context.Context, scoutID int64, submitted, approved int) error {
	tag, err := t.db.Exec(ctx, `
		UPDATE scouts
		SET reports_submitted = reports_submitted + $2,
		    reports_approved = reports_approved + $3,
		    updated_at = NOW()
		WHERE id = $1
	`, scoutID, submitted, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanReport(row pgx.Row) (Report, error) {
	var (
		r              Report
		recommendation string
		status         string
	)
	err := row.Scan(
		&r.ID, &r.Code, &r.ScoutID, &r.PlayerID, &r.MatchID,
		&r.Technical, &r.Tactical, &r.Physical, &r.Mental, &r.OverallRating, &r.OverallPotential,
		&r.Strengths, &r.Weaknesses, &r.Comparison, &r.RiskAssessment, &r.AdditionalNotes,
		&recommendation, &status, &r.ReviewedBy, &r.ReviewNotes, &r.SystemApproved,
		&r.ReviewedAt, &r.ApprovedAt, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return Report{}, err
	}
	r.Recommendation = Recommendation(recommendation)
	r.Status = Status(status)
	return r, nil
}
