//go:build integration

package reports

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
	"github.com/scoutdesk/scoutdesk/internal/testing/pgtest"
)

func newPostgresService(t *testing.T) (*Service, *pgxpool.Pool) {
	t.Helper()
	pool := pgtest.Start(t)
	pgtest.Exec(t, pool, `INSERT INTO clubs (id, name) VALUES (1, 'Home'), (2, 'Away')`)
	pgtest.Exec(t, pool, `INSERT INTO scouts (id, full_name) VALUES (1, 'Ana Ribeiro')`)
	pgtest.Exec(t, pool, `INSERT INTO players (id, full_name, club_id) VALUES (10, 'Tomas Ferreira', 1)`)
	pgtest.Exec(t, pool, `INSERT INTO matches (id, home_club_id, away_club_id, kickoff_at) VALUES (100, 1, 2, NOW())`)

	matrix, err := rbac.DefaultMatrix()
	require.NoError(t, err)
	svc := NewService(NewRepository(pool), matrix, ServiceConfig{
		Audit:     &memoryAudit{},
		Summaries: &memoryInvalidator{},
		Metrics:   NewMetrics(prometheus.NewRegistry()),
	})
	return svc, pool
}

func scoutCounters(t *testing.T, pool *pgxpool.Pool, scoutID int64) (int, int) {
	t.Helper()
	var submitted, approved int
	err := pool.QueryRow(context.Background(),
		`SELECT reports_submitted, reports_approved FROM scouts WHERE id = $1`, scoutID).Scan(&submitted, &approved)
	require.NoError(t, err)
	return submitted, approved
}

func TestPostgresCreateAndApprove(t *testing.T) {
	svc, pool := newPostgresService(t)
	ctx := context.Background()

	input := validInput()
	input.AutoApprove = true
	report, err := svc.Create(ctx, manager, input)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, report.Status)
	assert.Equal(t, 7.4, report.OverallRating)

	stored, err := svc.Get(ctx, viewer, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Code, stored.Code)
	assert.True(t, stored.SystemApproved)
	require.NotNil(t, stored.ApprovedAt)

	submitted, approved := scoutCounters(t, pool, 1)
	assert.Equal(t, 1, submitted)
	assert.Equal(t, 1, approved)

	_, err = svc.Reject(ctx, manager, report.ID, "late change")
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestPostgresConcurrentCreatesGetDistinctCodes(t *testing.T) {
	svc, pool := newPostgresService(t)

	const writers = 8
	var (
		mu    sync.Mutex
		codes = map[string]bool{}
	)
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			report, err := svc.Create(context.Background(), coordinator, validInput())
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if codes[report.Code] {
				return errors.New("duplicate code " + report.Code)
			}
			codes[report.Code] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, codes, writers)

	var rows int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM reports`).Scan(&rows))
	submitted, approved := scoutCounters(t, pool, 1)
	assert.Equal(t, writers, rows)
	assert.Equal(t, writers, submitted)
	assert.Zero(t, approved)

	var seq int64
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT seq FROM report_code_sequences`).Scan(&seq))
	assert.Equal(t, int64(writers), seq)
}

func TestPostgresTwoCreatorsSameScout(t *testing.T) {
	svc, pool := newPostgresService(t)
	before, _ := scoutCounters(t, pool, 1)

	reports := make([]Report, 2)
	var g errgroup.Group
	for i, principal := range []rbac.Principal{coordinator, manager} {
		g.Go(func() error {
			report, err := svc.Create(context.Background(), principal, validInput())
			reports[i] = report
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.NotEqual(t, reports[0].Code, reports[1].Code)
	after, _ := scoutCounters(t, pool, 1)
	assert.Equal(t, before+2, after)
}

func TestPostgresConcurrentReviewsSingleWinner(t *testing.T) {
	svc, pool := newPostgresService(t)
	report, err := svc.Create(context.Background(), coordinator, validInput())
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, decision := range []Decision{DecisionApprove, DecisionReject} {
		wg.Add(1)
		go func(d Decision) {
			defer wg.Done()
			_, err := svc.Review(context.Background(), manager, report.ID, d, "")
			results <- err
		}(decision)
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, shared.ErrInvalidTransition) || errors.Is(err, shared.ErrConflict), err)
	}
	assert.Equal(t, 1, wins)

	submitted, approved := scoutCounters(t, pool, 1)
	assert.Equal(t, 1, submitted)
	assert.LessOrEqual(t, approved, submitted)
}

func TestPostgresInactiveScoutRejected(t *testing.T) {
	svc, pool := newPostgresService(t)
	pgtest.Exec(t, pool, `UPDATE scouts SET is_active = FALSE WHERE id = 1`)

	_, err := svc.Create(context.Background(), coordinator, validInput())
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "scout_id")

	var rows int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM report_code_sequences`).Scan(&rows))
	assert.Zero(t, rows)
}

func TestPostgresReviewedByMatchesStatus(t *testing.T) {
	svc, pool := newPostgresService(t)
	report, err := svc.Create(context.Background(), coordinator, validInput())
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(), `UPDATE reports SET status = 'rejected' WHERE id = $1`, report.ID)
	require.Error(t, err)
	_, err = pool.Exec(context.Background(), `UPDATE reports SET reviewed_by = 6 WHERE id = $1`, report.ID)
	require.Error(t, err)

	_, err = svc.Reject(context.Background(), manager, report.ID, "")
	require.NoError(t, err)
}
