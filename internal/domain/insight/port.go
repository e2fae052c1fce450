package insight

import "context"

// Repository port for persisting and querying insights
type Repository interface {
	Save(ctx context.Context, i *Insight) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Insight, error)
	LatestBySlug(ctx context.Context, slug string) (*Insight, error)
}
