package audit

// StageResult is the tagged union of per-stage outputs. Each variant is keyed
// by the stage that produced it so callers can switch safely instead of
// poking at loose maps.
type StageResult interface {
	Stage() StageName
}

// ValidateResult is the output of validate_shopify. IsShopify=false is a
// business-logic failure, not a transport error; callers must check the flag.
type ValidateResult struct {
	IsShopify bool           `json:"isShopify"`
	StoreInfo map[string]any `json:"storeInfo,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (ValidateResult) Stage() StageName { return StageValidateShopify }

// ScreenshotResult is the output of take_screenshot.
type ScreenshotResult struct {
	ScreenshotPath string   `json:"screenshotPath"`
	PageType       PageType `json:"pageType"`
	URL            string   `json:"url"`
	Error          string   `json:"error,omitempty"`
}

func (ScreenshotResult) Stage() StageName { return StageTakeScreenshot }

// VisionResult is the output of analyze_gemini.
type VisionResult struct {
	ImageAnalysis  string `json:"imageAnalysis"`
	ScreenshotPath string `json:"screenshotPath"`
	Error          string `json:"error,omitempty"`
}

func (VisionResult) Stage() StageName { return StageAnalyzeGemini }

// ChecklistResult is the aggregate output of analyze_checklist. When the
// backend streams chunks, this is the concatenation of all chunk results.
type ChecklistResult struct {
	ChecklistAnalysis []ChecklistItem `json:"checklistAnalysis"`
	PageType          PageType        `json:"pageType"`
	ItemCount         int             `json:"itemCount"`
	Error             string          `json:"error,omitempty"`
}

func (ChecklistResult) Stage() StageName { return StageAnalyzeChecklist }

// StoreResult is the output of store_analysis.
type StoreResult struct {
	Slug        string `json:"slug"`
	ArtifactURL string `json:"artifact_url,omitempty"`
}

func (StoreResult) Stage() StageName { return StageStoreAnalysis }
