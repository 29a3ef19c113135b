package ports

import (
	"context"

	"gorla/domain/core"
	"gorla/internal/audit"
)

// AuditArchive persists completed (or abandoned) audit records.
type AuditArchive interface {
	SaveAudit(ctx context.Context, rec audit.Record) error
	GetAudit(ctx context.Context, id core.AuditID) (audit.Record, error)
	ListAudits(ctx context.Context) ([]audit.Record, error)
}
