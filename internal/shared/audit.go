package shared

import (
	"context"
	"errors"
	"time"
)

// Audit actions written by the report workflow.
const (
	AuditReportCreate      = "report.create"
	AuditReportAutoApprove = "report.auto_approve"
	AuditReportApprove     = "report.approve"
	AuditReportReject      = "report.reject"
)

// AuditLog represents one admin action destined for audit_logs.
type AuditLog struct {
	ActorID      int64          `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Meta         map[string]any `json:"meta,omitempty"`
	At           time.Time      `json:"at"`
}

// Validate checks the mandatory columns.
func (l AuditLog) Validate() error {
	if l.ActorID == 0 {
		return errors.New("audit log requires actor_id")
	}
	if l.Action == "" || l.ResourceType == "" || l.ResourceID == "" {
		return errors.New("audit log requires action/resource_type/resource_id")
	}
	return nil
}

// AuditRecorder accepts audit entries. Implementations are best-effort from the
// caller's point of view: a failure is logged, never propagated into a committed
// business transaction.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}
