package auditerrors

import (
	"context"
)

// Repository defines persistence for stage failures
type Repository interface {
	Save(ctx context.Context, e *AuditError) error
	ListByAudit(ctx context.Context, auditID string, limit int) ([]*AuditError, error)
}
