package audit

import "context"

// ChunkFunc receives one chunk of a paginated checklist evaluation before the
// aggregate resolves.
type ChunkFunc func(ChunkProgress)

// StepInvoker port: one network call per pipeline stage. Implementations
// perform no retries; retry policy belongs to callers.
type StepInvoker interface {
	ValidateShopify(ctx context.Context, url string) (ValidateResult, error)
	TakeScreenshot(ctx context.Context, url string, page PageType) (ScreenshotResult, error)
	AnalyzeWithGemini(ctx context.Context, screenshotPath string) (VisionResult, error)
	AnalyzeWithChecklist(ctx context.Context, imageAnalysis string, page PageType, category string, onChunk ChunkFunc) (ChecklistResult, error)
}

// ReportRepository port (persistence untuk report records)
type ReportRepository interface {
	Save(ctx context.Context, r *ReportRecord) error
	GetBySlug(ctx context.Context, slug string) (*ReportRecord, error)
	Latest(ctx context.Context, limit int) ([]*ReportRecord, error)
	Paginate(ctx context.Context, page, pageSize int) (*PaginatedReports, error)
	Summary(ctx context.Context, sinceDays int) (total int, avgScore float64, problems int, err error)
}

// ArtifactStore port (penyimpanan snapshot report)
type ArtifactStore interface {
	UploadBytes(ctx context.Context, data []byte, key, contentType string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}
