package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scoutdesk/scoutdesk/internal/shared"
)

// Postgres SQLSTATE codes the services react to.
const (
	CodeUniqueViolation      = "23505"
	CodeCheckViolation       = "23514"
	CodeForeignKeyViolation  = "23503"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a unique violation, optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != CodeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Classify maps a storage error onto the shared taxonomy. Domain errors pass
// through untouched; serialization failures become shared.ErrConflict; anything
// else is reported as shared.ErrStorageUnavailable.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if shared.IsExpected(err) || errors.Is(err, shared.ErrConflict) || errors.Is(err, shared.ErrStorageUnavailable) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case CodeSerializationFailure, CodeDeadlockDetected:
			return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timeout: %v", shared.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
}
