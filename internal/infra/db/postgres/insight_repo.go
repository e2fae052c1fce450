package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/fixmystore/audit-engine/internal/domain/insight"
)

type InsightRepository struct {
	db *sql.DB
}

func NewInsightRepository(db *sql.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Save insert insight record
func (r *InsightRepository) Save(ctx context.Context, i *domain.Insight) error {
	const q = `
INSERT INTO report_insights
  (id, slug, audit_id, summary, model, created_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	created := i.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		i.ID, stringOrDash(i.Slug), i.AuditID, i.Summary, i.Model, created,
	)
	return err
}

// Paginate insights, newest first
func (r *InsightRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Insight, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	const q = `
SELECT id, slug, audit_id, summary, model, created_at
FROM report_insights
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Insight
	for rows.Next() {
		var i domain.Insight
		if err := rows.Scan(&i.ID, &i.Slug, &i.AuditID, &i.Summary, &i.Model, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}

// LatestBySlug most recent insight for one report
func (r *InsightRepository) LatestBySlug(ctx context.Context, slug string) (*domain.Insight, error) {
	const q = `
SELECT id, slug, audit_id, summary, model, created_at
FROM report_insights
WHERE slug=$1
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	var i domain.Insight
	if err := r.db.QueryRowContext(ctx, q, slug).Scan(
		&i.ID, &i.Slug, &i.AuditID, &i.Summary, &i.Model, &i.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}
