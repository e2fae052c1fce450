package audit

import (
	"time"
)

// AuditID tipe untuk satu sesi audit
type AuditID string

// PageType enum
type PageType string

const (
	PageHomepage   PageType = "homepage"
	PageCollection PageType = "collection"
	PageProduct    PageType = "product"
	PageCart       PageType = "cart"
)

// PageOrder is the fixed order for a full-store run.
func PageOrder() []PageType {
	return []PageType{PageHomepage, PageCollection, PageProduct, PageCart}
}

func (p PageType) Valid() bool {
	switch p {
	case PageHomepage, PageCollection, PageProduct, PageCart:
		return true
	}
	return false
}

// ItemStatus enum
type ItemStatus string

const (
	ItemPass ItemStatus = "PASS"
	ItemFail ItemStatus = "FAIL"
)

// ImageRef points at a reference screenshot illustrating a fix.
type ImageRef struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// AppRef points at a recommended app for a finding.
type AppRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ChecklistItem is one evaluated CRO rule. Immutable once received; only
// FAIL items carry problem/solution detail.
type ChecklistItem struct {
	ChecklistItem        string     `json:"checklistItem"`
	Status               ItemStatus `json:"status"`
	Reason               string     `json:"reason"`
	Problem              string     `json:"problem,omitempty"`
	Solution             string     `json:"solution,omitempty"`
	ImageReference       string     `json:"image_reference,omitempty"`
	ImageReferenceObject *ImageRef  `json:"imageReferenceObject,omitempty"`
	AppReference         string     `json:"app_reference,omitempty"`
	AppReferenceObject   *AppRef    `json:"appReferenceObject,omitempty"`
}

// StepState tracks one stage of one page run.
type StepState struct {
	Name      StageName   `json:"name"`
	Completed bool        `json:"completed"`
	Error     string      `json:"error,omitempty"`
	Data      StageResult `json:"data,omitempty"`
}

// ChunkProgress exists only while a chunked checklist evaluation is in
// flight. CurrentChunk is monotonically increasing; IsComplete is terminal.
type ChunkProgress struct {
	CurrentChunk int             `json:"currentChunk"`
	TotalChunks  int             `json:"totalChunks"`
	ChunkResults []ChecklistItem `json:"chunkResults"`
	IsComplete   bool            `json:"isComplete"`
}

// PageAudit is the completed result for one page type.
type PageAudit struct {
	ScreenshotPath    string          `json:"screenshotPath"`
	ImageAnalysis     string          `json:"imageAnalysis"`
	ChecklistAnalysis []ChecklistItem `json:"checklistAnalysis"`
	Slug              string          `json:"slug,omitempty"`
}

// Report maps page type to its completed audit. Entries are inserted
// atomically, only after every stage for that page succeeded.
type Report map[PageType]PageAudit

// ReportRecord is the persisted form of a report, keyed by slug.
type ReportRecord struct {
	Slug          string    `json:"slug"`
	URL           string    `json:"url"`
	Pages         Report    `json:"pages"`
	Score         int       `json:"score"`
	TotalProblems int       `json:"total_problems"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
}
