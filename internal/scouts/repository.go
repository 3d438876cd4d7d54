package scouts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoutdesk/scoutdesk/internal/shared"
)

// Repository reads scout statistics from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Scout loads the scout with its counters.
func (r *Repository) Scout(ctx context.Context, id int64) (Scout, error) {
	var s Scout
	err := r.pool.QueryRow(ctx, `
		SELECT id, full_name, is_active, reports_submitted, reports_approved
		FROM scouts WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Active, &s.ReportsSubmitted, &s.ReportsApproved)
	if errors.Is(err, pgx.ErrNoRows) {
		return Scout{}, shared.ErrNotFound
	}
	return s, err
}

// ApprovedRatings returns the overall ratings of the scout's approved reports.
func (r *Repository) ApprovedRatings(ctx context.Context, scoutID int64) ([]float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT overall_rating FROM reports
		WHERE scout_id = $1 AND status = 'approved'
	`, scoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecommendationCounts groups the scout's reports by recommendation.
func (r *Repository) RecommendationCounts(ctx context.Context, scoutID int64) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT recommendation, COUNT(*) FROM reports
		WHERE scout_id = $1
		GROUP BY recommendation
	`, scoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var (
			rec   string
			count int
		)
		if err := rows.Scan(&rec, &count); err != nil {
			return nil, err
		}
		out[rec] = count
	}
	return out, rows.Err()
}
