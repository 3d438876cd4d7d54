package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/scoutdesk/scoutdesk/internal/jobs"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries audit records.
	QueueAudit = "audit"
	// TaskAuditRecord writes one audit entry to the audit store.
	TaskAuditRecord = "audit:record"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NewAuditRecordTask builds an audit record task. The task id makes duplicate
// enqueues of the same entry collapse.
func NewAuditRecordTask(log shared.AuditLog) (*asynq.Task, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data,
		asynq.Queue(QueueAudit),
		asynq.MaxRetry(10),
		asynq.TaskID(uuid.NewString()),
	), nil
}

// AuditSink persists audit entries.
type AuditSink interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// HandleAuditRecordTask writes decoded entries to sink. Undecodable payloads are dropped.
func HandleAuditRecordTask(sink AuditSink, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskAuditRecord)
		var log shared.AuditLog
		if err := json.Unmarshal(t.Payload(), &log); err != nil {
			logger.Warn("drop malformed audit task", slog.Any("error", err))
			return tracker.End(fmt.Errorf("decode audit payload: %v: %w", err, asynq.SkipRetry))
		}
		if err := log.Validate(); err != nil {
			logger.Warn("drop invalid audit task", slog.Any("error", err))
			return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
		}
		return tracker.End(sink.Record(ctx, log))
	}
}

// IdempotencyPruner removes stale idempotency keys.
type IdempotencyPruner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// NewIdempotencyCleanupTask builds the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// HandleIdempotencyCleanupTask prunes keys older than retention.
func HandleIdempotencyCleanupTask(pruner IdempotencyPruner, retention time.Duration, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskIdempotencyCleanup)
		removed, err := pruner.Cleanup(ctx, retention)
		if err != nil {
			return tracker.End(err)
		}
		logger.Info("idempotency keys pruned", slog.Int64("removed", removed))
		return tracker.End(nil)
	}
}
