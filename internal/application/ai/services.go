package ai

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fixmystore/audit-engine/internal/application"
	domainai "github.com/fixmystore/audit-engine/internal/domain/ai"
	"github.com/fixmystore/audit-engine/internal/domain/audit"
	"github.com/fixmystore/audit-engine/internal/domain/insight"
)

// Service generates executive summaries of assembled reports and keeps them
// for later retrieval.
type Service struct {
	client domainai.Client
	repo   insight.Repository
	clock  application.Clock
}

func NewService(client domainai.Client, repo insight.Repository, clock application.Clock) *Service {
	return &Service{client: client, repo: repo, clock: clock}
}

// SummarizeAndStore runs the AI summary over a report and persists it under
// the report's slug.
func (s *Service) SummarizeAndStore(ctx context.Context, auditID, slug string, report audit.Report) (*insight.Insight, error) {
	if s.client == nil {
		return nil, domainai.ErrNotConfigured
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	summary, err := s.client.Summarize(ctx, string(data))
	if err != nil {
		return nil, err
	}

	ins := &insight.Insight{
		ID:        insight.InsightID(uuid.New().String()),
		Slug:      slug,
		AuditID:   auditID,
		Summary:   summary,
		CreatedAt: s.clock.Now(),
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, ins); err != nil {
			return nil, err
		}
	}
	return ins, nil
}

// ListInsights pages through stored summaries.
func (s *Service) ListInsights(ctx context.Context, page, pageSize int) ([]*insight.Insight, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Paginate(ctx, page, pageSize)
}

// LatestBySlug returns the most recent summary for a report.
func (s *Service) LatestBySlug(ctx context.Context, slug string) (*insight.Insight, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.LatestBySlug(ctx, slug)
}
