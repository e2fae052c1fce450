package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fixmystore/audit-engine/internal/application"
	"github.com/fixmystore/audit-engine/internal/domain/audit"
	"github.com/fixmystore/audit-engine/internal/domain/auditerrors"
)

// Coordinator runs the orchestrator across the four page types for a
// full-store audit, one page at a time in fixed order. A page failure aborts
// the remaining not-yet-started pages but preserves completed report entries.
type Coordinator struct {
	Orc    *Orchestrator
	Errors auditerrors.Repository // optional stage-failure log
	Clock  application.Clock
}

// pageIndex returns the 1-based position of a page in the canonical order,
// used for the step-N status names.
func pageIndex(page audit.PageType) int {
	for i, p := range audit.PageOrder() {
		if p == page {
			return i + 1
		}
	}
	return 1
}

// RunAll drives homepage → collection → product → cart sequentially. The
// whole run persists once at the end when a report repository is wired.
func (c *Coordinator) RunAll(ctx context.Context, sess *Session) error {
	for _, page := range audit.PageOrder() {
		i := pageIndex(page)
		sess.setStatus(fmt.Sprintf("step-%d-%s-start", i, page))
		sess.setInProgress(page, true)

		pa, err := c.Orc.RunPage(ctx, sess, sess.URL, page, PageRunOptions{})
		if err != nil {
			c.logFailure(sess, page, err)
			sess.setInProgress(page, false)
			sess.fail(err)
			return err
		}

		sess.insertReport(page, pa)
		sess.setInProgress(page, false)
		sess.setStatus(fmt.Sprintf("step-%d-%s-complete", i, page))
	}

	sess.setStatus(audit.StatusCleanup)
	if c.Orc.Reports != nil {
		if err := c.persistRun(ctx, sess); err != nil {
			c.logFailure(sess, "", err)
			sess.fail(err)
			return err
		}
	}
	sess.finish(audit.StatusAllStepsComplete)
	return nil
}

// RunSingle drives one page type end to end (the free teaser path). With
// opts.Persist the run stores the report and yields a shareable slug.
func (c *Coordinator) RunSingle(ctx context.Context, sess *Session, page audit.PageType, opts PageRunOptions) error {
	i := pageIndex(page)
	sess.setStatus(fmt.Sprintf("step-%d-%s-start", i, page))
	sess.setInProgress(page, true)

	pa, err := c.Orc.RunPage(ctx, sess, sess.URL, page, opts)
	if err != nil {
		c.logFailure(sess, page, err)
		sess.setInProgress(page, false)
		sess.fail(err)
		return err
	}

	sess.insertReport(page, pa)
	sess.setInProgress(page, false)
	sess.setStatus(fmt.Sprintf("step-%d-%s-complete", i, page))
	sess.finish(audit.StatusComplete)
	return nil
}

// ContinueChecklist is the deliberate re-entry point: only the checklist
// stage re-runs, with the category the user supplied after the teaser pass.
// The session must have finished its previous run; a continue never joins a
// run that is still in flight.
func (c *Coordinator) ContinueChecklist(ctx context.Context, sess *Session, page audit.PageType, category string) error {
	if err := sess.claimReentry(); err != nil {
		return err
	}
	if _, err := c.Orc.ResumeChecklist(ctx, sess, page, category); err != nil {
		c.logFailure(sess, page, err)
		sess.fail(err)
		return err
	}
	sess.finish(audit.StatusComplete)
	return nil
}

// persistRun stores the full multi-page report under one slug.
func (c *Coordinator) persistRun(ctx context.Context, sess *Session) error {
	report := sess.Report()
	sum := audit.Summarize(report)
	slug := fmt.Sprintf("%s-full", uuid.New().String())
	rec := &audit.ReportRecord{
		Slug:          slug,
		URL:           audit.NormalizeURL(sess.URL),
		Pages:         report,
		Score:         sum.Score,
		TotalProblems: sum.TotalProblems,
		Completed:     sum.Completed,
		CreatedAt:     c.Clock.Now(),
	}
	if err := c.Orc.Reports.Save(ctx, rec); err != nil {
		return err
	}
	if c.Orc.Artifacts != nil {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := c.Orc.Artifacts.UploadBytes(ctx, data, slug+".json", "application/json"); err != nil {
			return err
		}
	}
	sess.setSlug(slug)
	return nil
}

func (c *Coordinator) logFailure(sess *Session, page audit.PageType, err error) {
	if c.Errors == nil {
		return
	}
	entry := &auditerrors.AuditError{
		AuditID:   sess.ID,
		URL:       sess.URL,
		PageType:  string(page),
		Message:   err.Error(),
		CreatedAt: c.Clock.Now(),
	}
	var se *audit.StageError
	if errors.As(err, &se) {
		entry.PageType = string(se.Page)
		entry.Stage = string(se.Stage)
		entry.Message = se.Err.Error()
	}
	// Best effort; the log must never mask the original failure.
	_ = c.Errors.Save(context.Background(), entry)
}
