package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	domain "github.com/fixmystore/audit-engine/internal/domain/audit"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save insert/update report record keyed by slug
func (r *ReportRepository) Save(ctx context.Context, rec *domain.ReportRecord) error {
	const q = `
INSERT INTO cro_reports
(slug, url, pages_json, score, total_problems, completed, created_at)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 pages_json=VALUES(pages_json),
 score=VALUES(score),
 total_problems=VALUES(total_problems),
 completed=VALUES(completed);
`
	pages, err := json.Marshal(rec.Pages)
	if err != nil {
		return err
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		rec.Slug, stringOrDash(rec.URL), string(pages),
		rec.Score, rec.TotalProblems, rec.Completed, created,
	)
	return err
}

// GetBySlug fetches one report
func (r *ReportRepository) GetBySlug(ctx context.Context, slug string) (*domain.ReportRecord, error) {
	const q = `
SELECT slug, url, pages_json, score, total_problems, completed, created_at
FROM cro_reports
WHERE slug=? LIMIT 1;
`
	return scanReport(r.db.QueryRowContext(ctx, q, slug))
}

// Latest reports, newest first
func (r *ReportRepository) Latest(ctx context.Context, limit int) ([]*domain.ReportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT slug, url, pages_json, score, total_problems, completed, created_at
FROM cro_reports
ORDER BY created_at DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReports(rows)
}

// Paginate reports with total metadata
func (r *ReportRepository) Paginate(ctx context.Context, page, pageSize int) (*domain.PaginatedReports, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cro_reports;`).Scan(&total); err != nil {
		return nil, err
	}

	const q = `
SELECT slug, url, pages_json, score, total_problems, completed, created_at
FROM cro_reports
ORDER BY created_at DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data, err := collectReports(rows)
	if err != nil {
		return nil, err
	}
	return &domain.PaginatedReports{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Summary rekap report N hari terakhir
func (r *ReportRepository) Summary(ctx context.Context, sinceDays int) (int, float64, int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	const q = `
SELECT COUNT(*), COALESCE(AVG(score),0), COALESCE(SUM(total_problems),0)
FROM cro_reports
WHERE created_at >= NOW() - INTERVAL ? DAY;
`
	var total, problems int
	var avg float64
	if err := r.db.QueryRowContext(ctx, q, sinceDays).Scan(&total, &avg, &problems); err != nil {
		return 0, 0, 0, err
	}
	return total, avg, problems, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.ReportRecord, error) {
	var rec domain.ReportRecord
	var pages string
	if err := row.Scan(
		&rec.Slug, &rec.URL, &pages,
		&rec.Score, &rec.TotalProblems, &rec.Completed, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if pages != "" {
		if err := json.Unmarshal([]byte(pages), &rec.Pages); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func collectReports(rows *sql.Rows) ([]*domain.ReportRecord, error) {
	var out []*domain.ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
