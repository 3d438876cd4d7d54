package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/scoutdesk/scoutdesk/internal/shared"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	serialization := &pgconn.PgError{Code: CodeSerializationFailure, Message: "could not serialize access"}
	assert.ErrorIs(t, Classify(fmt.Errorf("insert: %w", serialization)), shared.ErrConflict)
	assert.ErrorIs(t, Classify(&pgconn.PgError{Code: CodeDeadlockDetected}), shared.ErrConflict)

	assert.ErrorIs(t, Classify(context.DeadlineExceeded), shared.ErrStorageUnavailable)
	assert.ErrorIs(t, Classify(errors.New("connection refused")), shared.ErrStorageUnavailable)

	notFound := fmt.Errorf("report 9: %w", shared.ErrNotFound)
	assert.Same(t, notFound, Classify(notFound))
	assert.ErrorIs(t, Classify(shared.FieldError("scout_id", "unknown scout")), shared.ErrValidation)
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert report: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "reports_code_key"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "reports_code_key"))
	assert.False(t, IsUniqueViolation(err, "scouts_pkey"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
