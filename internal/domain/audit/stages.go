package audit

import (
	"fmt"
	"strings"
)

// StageName enum
type StageName string

const (
	StageValidateShopify  StageName = "validate_shopify"
	StageTakeScreenshot   StageName = "take_screenshot"
	StageAnalyzeGemini    StageName = "analyze_gemini"
	StageAnalyzeChecklist StageName = "analyze_checklist"
	StageStoreAnalysis    StageName = "store_analysis"
)

// ChecklistChunkStage builds the synthetic sub-stage name used for one chunk
// of a paginated checklist evaluation.
func ChecklistChunkStage(n int) StageName {
	return StageName(fmt.Sprintf("analyze_checklist_chunk_%d", n))
}

// IsChecklistChunk reports whether a stage name is a chunk sub-stage.
func IsChecklistChunk(s StageName) bool {
	return strings.HasPrefix(string(s), "analyze_checklist_chunk_")
}

// StageInfo carries display metadata for one pipeline stage.
type StageInfo struct {
	Name        StageName `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Weight      int       `json:"weight"`
}

var stageInfos = map[StageName]StageInfo{
	StageValidateShopify:  {StageValidateShopify, "Validate store", "Checking that the URL points at a live Shopify store", 10},
	StageTakeScreenshot:   {StageTakeScreenshot, "Capture page", "Taking a full-page screenshot", 20},
	StageAnalyzeGemini:    {StageAnalyzeGemini, "Analyze page", "Running AI vision analysis on the screenshot", 30},
	StageAnalyzeChecklist: {StageAnalyzeChecklist, "Match checklist", "Evaluating CRO best-practice rules against the analysis", 30},
	StageStoreAnalysis:    {StageStoreAnalysis, "Save report", "Persisting the audit so it can be shared", 10},
}

// Describe returns display metadata for a stage. Chunk sub-stages report
// under the parent checklist stage.
func Describe(s StageName) StageInfo {
	if IsChecklistChunk(s) {
		s = StageAnalyzeChecklist
	}
	if info, ok := stageInfos[s]; ok {
		return info
	}
	return StageInfo{Name: s}
}

// StagesFor returns the canonical ordered stage list for one page run.
// store_analysis is included only for persisting (homepage first-run) flows.
func StagesFor(p PageType, persist bool) []StageName {
	stages := []StageName{
		StageValidateShopify,
		StageTakeScreenshot,
		StageAnalyzeGemini,
		StageAnalyzeChecklist,
	}
	if persist {
		stages = append(stages, StageStoreAnalysis)
	}
	return stages
}
