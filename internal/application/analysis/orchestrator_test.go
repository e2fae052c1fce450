package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

// fakeInvoker records the order of stage calls and serves scripted results.
type fakeInvoker struct {
	calls []string

	validate     audit.ValidateResult
	validateErr  error
	screenshot   audit.ScreenshotResult
	shotErr      error
	vision       audit.VisionResult
	visionErr    error
	checklist    audit.ChecklistResult
	checklistErr error
	chunks       []audit.ChunkProgress

	failScreenshotFor audit.PageType

	// When gatePage is set, its screenshot call signals gateEnter and then
	// blocks until gate is closed, holding the run mid-page.
	gatePage  audit.PageType
	gateEnter chan struct{}
	gate      chan struct{}
}

func (f *fakeInvoker) ValidateShopify(ctx context.Context, url string) (audit.ValidateResult, error) {
	f.calls = append(f.calls, "validate:"+url)
	return f.validate, f.validateErr
}

func (f *fakeInvoker) TakeScreenshot(ctx context.Context, url string, page audit.PageType) (audit.ScreenshotResult, error) {
	f.calls = append(f.calls, "screenshot:"+string(page))
	if f.gatePage != "" && page == f.gatePage {
		f.gateEnter <- struct{}{}
		<-f.gate
	}
	if f.failScreenshotFor != "" && page == f.failScreenshotFor {
		return audit.ScreenshotResult{}, errors.New("navigation timeout")
	}
	if f.shotErr != nil {
		return audit.ScreenshotResult{}, f.shotErr
	}
	res := f.screenshot
	if res.ScreenshotPath == "" {
		res.ScreenshotPath = "/tmp/" + string(page) + ".png"
	}
	return res, nil
}

func (f *fakeInvoker) AnalyzeWithGemini(ctx context.Context, screenshotPath string) (audit.VisionResult, error) {
	f.calls = append(f.calls, "gemini:"+screenshotPath)
	if f.visionErr != nil {
		return audit.VisionResult{}, f.visionErr
	}
	res := f.vision
	if res.ImageAnalysis == "" {
		res.ImageAnalysis = "analysis of " + screenshotPath
	}
	return res, nil
}

func (f *fakeInvoker) AnalyzeWithChecklist(ctx context.Context, imageAnalysis string, page audit.PageType, category string, onChunk audit.ChunkFunc) (audit.ChecklistResult, error) {
	f.calls = append(f.calls, fmt.Sprintf("checklist:%s:%s", page, category))
	if f.checklistErr != nil {
		return audit.ChecklistResult{}, f.checklistErr
	}
	for _, cp := range f.chunks {
		if onChunk != nil {
			onChunk(cp)
		}
	}
	return f.checklist, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestSession(url string) *Session {
	return NewSession("test-audit", url, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
}

func items(n int) []audit.ChecklistItem {
	out := make([]audit.ChecklistItem, n)
	for i := range out {
		out[i] = audit.ChecklistItem{ChecklistItem: fmt.Sprintf("rule-%d", i), Status: audit.ItemFail}
	}
	return out
}

func TestRunPageStageOrder(t *testing.T) {
	inv := &fakeInvoker{
		validate:  audit.ValidateResult{IsShopify: true},
		checklist: audit.ChecklistResult{ChecklistAnalysis: items(2)},
	}
	orc := &Orchestrator{Invoker: inv, Clock: fixedClock{}}
	sess := newTestSession("shop.example.com")

	pa, err := orc.RunPage(context.Background(), sess, "shop.example.com", audit.PageHomepage, PageRunOptions{})
	if err != nil {
		t.Fatalf("RunPage: %v", err)
	}

	want := []string{
		"validate:https://shop.example.com",
		"screenshot:homepage",
		"gemini:/tmp/homepage.png",
		"checklist:homepage:",
	}
	if len(inv.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", inv.calls, want)
	}
	for i := range want {
		if inv.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, inv.calls[i], want[i])
		}
	}

	if pa.ScreenshotPath != "/tmp/homepage.png" {
		t.Errorf("ScreenshotPath = %q", pa.ScreenshotPath)
	}
	if len(pa.ChecklistAnalysis) != 2 {
		t.Errorf("got %d checklist items, want 2", len(pa.ChecklistAnalysis))
	}

	// The data produced by each stage feeds the next through the pipeline,
	// and every step is marked completed.
	for _, st := range sess.Steps() {
		if !st.Completed {
			t.Errorf("step %s not completed", st.Name)
		}
	}
}

func TestRunPageInvalidStoreShortCircuits(t *testing.T) {
	inv := &fakeInvoker{
		validate: audit.ValidateResult{IsShopify: false, Error: "Not a Shopify store"},
	}
	orc := &Orchestrator{Invoker: inv, Clock: fixedClock{}}
	sess := newTestSession("example.com")

	_, err := orc.RunPage(context.Background(), sess, "example.com", audit.PageHomepage, PageRunOptions{})
	if err == nil {
		t.Fatal("expected error for non-Shopify store")
	}
	if !errors.Is(err, audit.ErrNotShopifyStore) {
		t.Errorf("error should match ErrNotShopifyStore, got %v", err)
	}
	// The user-facing message is the server's, verbatim.
	if err.Error() != "Not a Shopify store" {
		t.Errorf("message = %q", err.Error())
	}
	// No later stage may have been called.
	if len(inv.calls) != 1 {
		t.Errorf("calls after failed validation: %v", inv.calls)
	}
}

func TestRunPageInvalidStoreDefaultMessage(t *testing.T) {
	inv := &fakeInvoker{validate: audit.ValidateResult{IsShopify: false}}
	orc := &Orchestrator{Invoker: inv, Clock: fixedClock{}}
	sess := newTestSession("example.com")

	_, err := orc.RunPage(context.Background(), sess, "example.com", audit.PageHomepage, PageRunOptions{})
	if err == nil || err.Error() != "Invalid Shopify store" {
		t.Errorf("err = %v, want default message", err)
	}
}

func TestRunPageTransportErrorWrapsStage(t *testing.T) {
	inv := &fakeInvoker{
		validate: audit.ValidateResult{IsShopify: true},
		shotErr:  errors.New("navigation timeout"),
	}
	orc := &Orchestrator{Invoker: inv, Clock: fixedClock{}}
	sess := newTestSession("shop.example.com")

	_, err := orc.RunPage(context.Background(), sess, "shop.example.com", audit.PageProduct, PageRunOptions{})
	var se *audit.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Page != audit.PageProduct || se.Stage != audit.StageTakeScreenshot {
		t.Errorf("StageError context = %s/%s", se.Page, se.Stage)
	}

	// The failing step carries the error, later steps never ran.
	steps := sess.Steps()
	if steps[1].Error == "" {
		t.Error("screenshot step should record the error")
	}
	for _, call := range inv.calls {
		if call == "gemini:/tmp/product.png" {
			t.Error("gemini ran after screenshot failed")
		}
	}
}

func TestRunChecklistFoldsChunks(t *testing.T) {
	inv := &fakeInvoker{
		validate: audit.ValidateResult{IsShopify: true},
		chunks: []audit.ChunkProgress{
			{CurrentChunk: 1, TotalChunks: 3, ChunkResults: items(2)},
			{CurrentChunk: 2, TotalChunks: 3, ChunkResults: items(2)},
			{CurrentChunk: 3, TotalChunks: 3, ChunkResults: items(1), IsComplete: true},
		},
		// Invoker leaves the aggregate empty; the orchestrator must fall back
		// to the accumulated chunk results.
		checklist: audit.ChecklistResult{},
	}
	orc := &Orchestrator{Invoker: inv, Clock: fixedClock{}}
	sess := newTestSession("shop.example.com")

	pa, err := orc.RunPage(context.Background(), sess, "shop.example.com", audit.PageHomepage, PageRunOptions{})
	if err != nil {
		t.Fatalf("RunPage: %v", err)
	}
	if len(pa.ChecklistAnalysis) != 5 {
		t.Errorf("got %d items from 3 chunks, want 5", len(pa.ChecklistAnalysis))
	}
	// Transient chunk state is discarded once the evaluation resolved.
	if sess.Snapshot().ChunkProgress != nil {
		t.Error("chunk progress should be folded after completion")
	}
}

func TestResumeChecklistReusesPriorAnalysis(t *testing.T) {
	inv := &fakeInvoker{
		validate:  audit.ValidateResult{IsShopify: true},
		checklist: audit.ChecklistResult{ChecklistAnalysis: items(3)},
	}
	orc := &Orchestrator{Invoker: inv, Clock: fixedClock{}}
	sess := newTestSession("shop.example.com")

	if _, err := orc.RunPage(context.Background(), sess, "shop.example.com", audit.PageHomepage, PageRunOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCalls := len(inv.calls)

	pa, err := orc.ResumeChecklist(context.Background(), sess, audit.PageHomepage, "fashion")
	if err != nil {
		t.Fatalf("ResumeChecklist: %v", err)
	}

	// Only the checklist stage re-ran, with the category applied.
	resumed := inv.calls[firstCalls:]
	if len(resumed) != 1 || resumed[0] != "checklist:homepage:fashion" {
		t.Errorf("resume calls = %v, want single categorized checklist call", resumed)
	}
	if pa.ScreenshotPath != "/tmp/homepage.png" {
		t.Errorf("resume lost the prior screenshot: %q", pa.ScreenshotPath)
	}
	if pa.ImageAnalysis == "" {
		t.Error("resume lost the prior image analysis")
	}
	if got := sess.Report()[audit.PageHomepage]; len(got.ChecklistAnalysis) != 3 {
		t.Errorf("report entry not replaced wholesale: %d items", len(got.ChecklistAnalysis))
	}
}

func TestResumeChecklistWithoutPriorRun(t *testing.T) {
	orc := &Orchestrator{Invoker: &fakeInvoker{}, Clock: fixedClock{}}
	sess := newTestSession("shop.example.com")
	if _, err := orc.ResumeChecklist(context.Background(), sess, audit.PageCart, ""); err == nil {
		t.Error("expected error resuming a page that never ran")
	}
}

func TestRunPageChecklistFailureDiscardsChunks(t *testing.T) {
	inv := &fakeInvoker{
		validate:     audit.ValidateResult{IsShopify: true},
		checklistErr: errors.New("model overloaded"),
	}
	orc := &Orchestrator{Invoker: inv, Clock: fixedClock{}}
	sess := newTestSession("shop.example.com")

	_, err := orc.RunPage(context.Background(), sess, "shop.example.com", audit.PageHomepage, PageRunOptions{})
	if err == nil {
		t.Fatal("expected checklist failure")
	}
	if sess.Snapshot().ChunkProgress != nil {
		t.Error("chunk progress should not survive a failed evaluation")
	}
	// Failed page never lands in the report.
	if len(sess.Report()) != 0 {
		t.Errorf("report = %v, want empty", sess.Report())
	}
}
