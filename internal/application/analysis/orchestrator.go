package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fixmystore/audit-engine/internal/application"
	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

// Orchestrator drives one page type's pipeline to completion, in registry
// order, one stage in flight at a time. Stage failures abort the remaining
// stages; nothing retries automatically.
type Orchestrator struct {
	Invoker   audit.StepInvoker
	Reports   audit.ReportRepository
	Artifacts audit.ArtifactStore
	Clock     application.Clock
}

// PageRunOptions tune a single page run.
type PageRunOptions struct {
	// Persist appends the trailing store_analysis stage (homepage first-run
	// flow). Ignored when no report repository is wired.
	Persist bool
	// Category narrows checklist matching; supplied by the continue flow.
	Category string
}

// RunPage executes every stage for (url, page) in strict order, emitting a
// start and an end event per stage through the session's stream.
func (o *Orchestrator) RunPage(ctx context.Context, sess *Session, rawURL string, page audit.PageType, opts PageRunOptions) (audit.PageAudit, error) {
	url := audit.NormalizeURL(rawURL)
	persist := opts.Persist && o.Reports != nil
	stages := audit.StagesFor(page, persist)
	sess.beginPage(page, stages)

	var result audit.PageAudit
	for _, stage := range stages {
		sess.stageStart(page, stage)

		switch stage {
		case audit.StageValidateShopify:
			res, err := o.Invoker.ValidateShopify(ctx, url)
			if err != nil {
				return result, o.failStage(sess, page, stage, err)
			}
			if !res.IsShopify {
				msg := res.Error
				if msg == "" {
					msg = "Invalid Shopify store"
				}
				verr := &audit.ValidationError{Message: msg}
				sess.stageFailed(page, stage, verr)
				return result, verr
			}
			sess.stageDone(page, stage, res)

		case audit.StageTakeScreenshot:
			res, err := o.Invoker.TakeScreenshot(ctx, url, page)
			if err != nil {
				return result, o.failStage(sess, page, stage, err)
			}
			result.ScreenshotPath = res.ScreenshotPath
			sess.stageDone(page, stage, res)

		case audit.StageAnalyzeGemini:
			res, err := o.Invoker.AnalyzeWithGemini(ctx, result.ScreenshotPath)
			if err != nil {
				return result, o.failStage(sess, page, stage, err)
			}
			result.ImageAnalysis = res.ImageAnalysis
			sess.stageDone(page, stage, res)

		case audit.StageAnalyzeChecklist:
			res, err := o.runChecklist(ctx, sess, page, result.ImageAnalysis, opts.Category)
			if err != nil {
				return result, o.failStage(sess, page, stage, err)
			}
			result.ChecklistAnalysis = res.ChecklistAnalysis
			sess.stageDone(page, stage, res)

		case audit.StageStoreAnalysis:
			res, err := o.storeAnalysis(ctx, url, page, result)
			if err != nil {
				return result, o.failStage(sess, page, stage, err)
			}
			result.Slug = res.Slug
			sess.setSlug(res.Slug)
			sess.stageDone(page, stage, res)
		}
	}

	sess.rememberContext(page, result.ScreenshotPath, result.ImageAnalysis)
	return result, nil
}

// ResumeChecklist re-runs only the checklist stage against an imageAnalysis
// obtained in an earlier run, preserving the prior screenshot and analysis.
// This backs the "continue with category" flow where the first AI pass ran
// before the user picked an industry.
func (o *Orchestrator) ResumeChecklist(ctx context.Context, sess *Session, page audit.PageType, category string) (audit.PageAudit, error) {
	shot, imageAnalysis, ok := sess.PriorAnalysis(page)
	if !ok {
		return audit.PageAudit{}, fmt.Errorf("no prior analysis for %s; run the full pipeline first", page)
	}

	sess.beginPage(page, []audit.StageName{audit.StageAnalyzeChecklist})
	sess.stageStart(page, audit.StageAnalyzeChecklist)

	res, err := o.runChecklist(ctx, sess, page, imageAnalysis, category)
	if err != nil {
		return audit.PageAudit{}, o.failStage(sess, page, audit.StageAnalyzeChecklist, err)
	}
	sess.stageDone(page, audit.StageAnalyzeChecklist, res)

	pa := audit.PageAudit{
		ScreenshotPath:    shot,
		ImageAnalysis:     imageAnalysis,
		ChecklistAnalysis: res.ChecklistAnalysis,
	}
	// Wholesale replacement: checklist arrays are never mutated in place.
	sess.insertReport(page, pa)
	return pa, nil
}

func (o *Orchestrator) runChecklist(ctx context.Context, sess *Session, page audit.PageType, imageAnalysis, category string) (audit.ChecklistResult, error) {
	onChunk := func(cp audit.ChunkProgress) {
		sess.recordChunk(page, cp)
	}
	res, err := o.Invoker.AnalyzeWithChecklist(ctx, imageAnalysis, page, category, onChunk)
	if err != nil {
		sess.foldChunk()
		return res, err
	}
	if len(res.ChecklistAnalysis) == 0 {
		if acc := sess.accumulatedChunks(); len(acc) > 0 {
			res.ChecklistAnalysis = acc
		}
	}
	if res.ItemCount == 0 {
		res.ItemCount = len(res.ChecklistAnalysis)
	}
	sess.foldChunk()
	return res, nil
}

func (o *Orchestrator) storeAnalysis(ctx context.Context, url string, page audit.PageType, pa audit.PageAudit) (audit.StoreResult, error) {
	slug := fmt.Sprintf("%s-%s", uuid.New().String(), page)
	pages := audit.Report{page: pa}
	sum := audit.Summarize(pages)
	rec := &audit.ReportRecord{
		Slug:          slug,
		URL:           url,
		Pages:         pages,
		Score:         sum.Score,
		TotalProblems: sum.TotalProblems,
		Completed:     sum.Completed,
		CreatedAt:     o.Clock.Now(),
	}
	if err := o.Reports.Save(ctx, rec); err != nil {
		return audit.StoreResult{}, err
	}

	var artifactURL string
	if o.Artifacts != nil {
		data, err := json.Marshal(rec)
		if err != nil {
			return audit.StoreResult{}, err
		}
		artifactURL, err = o.Artifacts.UploadBytes(ctx, data, slug+".json", "application/json")
		if err != nil {
			return audit.StoreResult{}, err
		}
	}
	return audit.StoreResult{Slug: slug, ArtifactURL: artifactURL}, nil
}

func (o *Orchestrator) failStage(sess *Session, page audit.PageType, stage audit.StageName, err error) error {
	sess.stageFailed(page, stage, err)
	return &audit.StageError{Page: page, Stage: stage, Err: err}
}
