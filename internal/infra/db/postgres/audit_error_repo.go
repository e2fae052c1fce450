package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/fixmystore/audit-engine/internal/domain/auditerrors"
)

type AuditErrorRepository struct {
	db *sql.DB
}

func NewAuditErrorRepository(db *sql.DB) *AuditErrorRepository {
	return &AuditErrorRepository{db: db}
}

// Save insert audit error entry
func (r *AuditErrorRepository) Save(ctx context.Context, e *domain.AuditError) error {
	const q = `
INSERT INTO audit_errors
  (audit_id, url, page_type, stage, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(e.AuditID), e.URL, e.PageType, e.Stage,
		e.Message, e.DetailsJSON, created,
	)
	return err
}

// ListByAudit failures for one session, newest first
func (r *AuditErrorRepository) ListByAudit(ctx context.Context, auditID string, limit int) ([]*domain.AuditError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, audit_id, url, page_type, stage, message, details_json, created_at
FROM audit_errors
WHERE audit_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, auditID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditError
	for rows.Next() {
		var e domain.AuditError
		if err := rows.Scan(&e.ID, &e.AuditID, &e.URL, &e.PageType, &e.Stage, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
