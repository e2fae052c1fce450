package analysis

import (
	"errors"
	"sync"
	"time"

	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

// Session holds all mutable state for one user-initiated audit. It replaces
// the ambient per-interaction state the product previously kept client-side:
// one writer (the orchestrator/coordinator goroutine), any number of HTTP
// readers. "Try Again" never mutates a session in place; it creates a new one.
type Session struct {
	ID        string
	URL       string
	CreatedAt time.Time

	mu          sync.RWMutex
	status      string
	currentStep audit.StageName
	steps       []audit.StepState
	chunk       *audit.ChunkProgress
	report      audit.Report
	inProgress  map[audit.PageType]bool
	screenshots map[audit.PageType]string
	analyses    map[audit.PageType]string
	slug        string
	errMsg      string
	done        bool

	events *Broadcaster
}

func NewSession(id, url string, now time.Time) *Session {
	return &Session{
		ID:          id,
		URL:         url,
		CreatedAt:   now,
		status:      audit.StatusQueued,
		report:      make(audit.Report),
		inProgress:  make(map[audit.PageType]bool),
		screenshots: make(map[audit.PageType]string),
		analyses:    make(map[audit.PageType]string),
		events:      NewBroadcaster(),
	}
}

// Events exposes the progress stream for SSE subscribers.
func (s *Session) Events() *Broadcaster { return s.events }

// SessionView is the read-only projection served to the frontend.
type SessionView struct {
	ID                 string                  `json:"id"`
	URL                string                  `json:"url"`
	Status             string                  `json:"status"`
	Progress           int                     `json:"progress"`
	Message            string                  `json:"message"`
	CurrentStep        audit.StageName         `json:"currentStep,omitempty"`
	Steps              []audit.StepState       `json:"steps"`
	ChunkProgress      *audit.ChunkProgress    `json:"chunkProgress,omitempty"`
	AnalysisInProgress map[audit.PageType]bool `json:"analysisInProgress"`
	Report             audit.Report            `json:"report"`
	Slug               string                  `json:"slug,omitempty"`
	Error              string                  `json:"error,omitempty"`
	Done               bool                    `json:"done"`
}

// Snapshot copies the current state under the read lock.
func (s *Session) Snapshot() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := SessionView{
		ID:                 s.ID,
		URL:                s.URL,
		Status:             s.status,
		Progress:           audit.CalculateProgress(s.status),
		Message:            audit.StatusDescription(s.status),
		CurrentStep:        s.currentStep,
		Steps:              append([]audit.StepState(nil), s.steps...),
		AnalysisInProgress: make(map[audit.PageType]bool, len(s.inProgress)),
		Report:             make(audit.Report, len(s.report)),
		Slug:               s.slug,
		Error:              s.errMsg,
		Done:               s.done,
	}
	for p, b := range s.inProgress {
		v.AnalysisInProgress[p] = b
	}
	for p, pa := range s.report {
		v.Report[p] = pa
	}
	if s.chunk != nil {
		c := *s.chunk
		c.ChunkResults = append([]audit.ChecklistItem(nil), s.chunk.ChunkResults...)
		v.ChunkProgress = &c
	}
	return v
}

// Report returns a copy of the report built so far.
func (s *Session) Report() audit.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(audit.Report, len(s.report))
	for p, pa := range s.report {
		out[p] = pa
	}
	return out
}

// Steps returns a copy of the current page run's step states.
func (s *Session) Steps() []audit.StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.StepState(nil), s.steps...)
}

// Status returns the current discrete status string.
func (s *Session) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Slug returns the persisted report slug, when the run stored one.
func (s *Session) Slug() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slug
}

// Done reports whether the run reached a terminal state.
func (s *Session) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// PriorAnalysis returns the screenshot path and image analysis retained from
// a completed vision pass, for the resume-from-checklist entry point.
func (s *Session) PriorAnalysis(page audit.PageType) (screenshotPath, imageAnalysis string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shot, okShot := s.screenshots[page]
	an, okAn := s.analyses[page]
	return shot, an, okShot && okAn
}

//
// writer side: called only from the single pipeline goroutine
//

// claimReentry takes writership of a finished session for a continue run.
// Claiming while the original run is still in flight fails; the check and the
// done reset are one atomic step so two continues cannot both win.
func (s *Session) claimReentry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		return audit.ErrAuditInProgress
	}
	s.done = false
	return nil
}

func (s *Session) beginPage(page audit.PageType, stages []audit.StageName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = make([]audit.StepState, 0, len(stages))
	for _, st := range stages {
		s.steps = append(s.steps, audit.StepState{Name: st})
	}
	s.chunk = nil
	s.currentStep = ""
	// A continue run re-enters a finished teaser session.
	s.done = false
	s.errMsg = ""
}

var stageStatusPrefix = map[audit.StageName]string{
	audit.StageValidateShopify:  "validate-",
	audit.StageTakeScreenshot:   "screenshot-",
	audit.StageAnalyzeGemini:    "analyze-",
	audit.StageAnalyzeChecklist: "checklist-",
}

func (s *Session) stageStart(page audit.PageType, stage audit.StageName) {
	s.mu.Lock()
	s.currentStep = stage
	if prefix, ok := stageStatusPrefix[stage]; ok {
		s.status = prefix + string(page)
	}
	s.mu.Unlock()
	s.events.Publish(ProgressEvent{
		AuditID: s.ID, Page: page, Stage: stage, Completed: false, Status: s.Status(),
	})
}

func (s *Session) stageDone(page audit.PageType, stage audit.StageName, data audit.StageResult) {
	s.mu.Lock()
	for i := range s.steps {
		if s.steps[i].Name == stage {
			s.steps[i].Completed = true
			s.steps[i].Data = data
			break
		}
	}
	s.currentStep = ""
	s.mu.Unlock()
	s.events.Publish(ProgressEvent{
		AuditID: s.ID, Page: page, Stage: stage, Completed: true, Status: s.Status(), Data: data,
	})
}

func (s *Session) stageFailed(page audit.PageType, stage audit.StageName, err error) {
	s.mu.Lock()
	for i := range s.steps {
		if s.steps[i].Name == stage {
			s.steps[i].Error = err.Error()
			break
		}
	}
	s.mu.Unlock()
}

// recordChunk accumulates chunk results and emits the synthetic chunk event.
// The parent analyze_checklist step stays incomplete until the invoker's
// aggregate resolves; completion is marked exactly once by stageDone.
func (s *Session) recordChunk(page audit.PageType, cp audit.ChunkProgress) {
	s.mu.Lock()
	if s.chunk == nil {
		s.chunk = &audit.ChunkProgress{TotalChunks: cp.TotalChunks}
	}
	s.chunk.CurrentChunk = cp.CurrentChunk
	if cp.TotalChunks > 0 {
		s.chunk.TotalChunks = cp.TotalChunks
	}
	s.chunk.ChunkResults = append(s.chunk.ChunkResults, cp.ChunkResults...)
	s.chunk.IsComplete = cp.IsComplete
	s.mu.Unlock()
	chunk := cp
	s.events.Publish(ProgressEvent{
		AuditID:   s.ID,
		Page:      page,
		Stage:     audit.ChecklistChunkStage(cp.CurrentChunk),
		Completed: cp.IsComplete,
		Status:    s.Status(),
		Chunk:     &chunk,
	})
}

// accumulatedChunks returns the concatenation of all chunk results received
// so far for the in-flight checklist evaluation.
func (s *Session) accumulatedChunks() []audit.ChecklistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chunk == nil {
		return nil
	}
	return append([]audit.ChecklistItem(nil), s.chunk.ChunkResults...)
}

// foldChunk discards the transient chunk state once the evaluation resolved.
func (s *Session) foldChunk() {
	s.mu.Lock()
	s.chunk = nil
	s.mu.Unlock()
}

func (s *Session) rememberContext(page audit.PageType, screenshotPath, imageAnalysis string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshots[page] = screenshotPath
	s.analyses[page] = imageAnalysis
}

// insertReport sets a page's entry atomically: all-or-nothing, only after the
// page's full pipeline succeeded. A later continue run replaces wholesale.
func (s *Session) insertReport(page audit.PageType, pa audit.PageAudit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report[page] = pa
}

func (s *Session) setInProgress(page audit.PageType, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress[page] = v
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) setSlug(slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slug = slug
}

// fail ends the run: remaining pages never start, completed report entries
// stay, loading state clears.
func (s *Session) fail(err error) {
	// Surface the stage's own message to the user; the page/stage context
	// stays in the error log.
	msg := err.Error()
	var se *audit.StageError
	if errors.As(err, &se) {
		msg = se.Err.Error()
	}
	s.mu.Lock()
	s.errMsg = msg
	s.status = audit.StatusErrorOccurred
	s.currentStep = ""
	s.chunk = nil
	s.done = true
	for p := range s.inProgress {
		s.inProgress[p] = false
	}
	s.mu.Unlock()
	// The stream stays open: the session can be re-entered via the explicit
	// continue endpoint. Subscribers key off the terminal status instead.
	s.events.Publish(ProgressEvent{AuditID: s.ID, Completed: true, Status: audit.StatusErrorOccurred})
}

// finish marks the run terminal with the given status.
func (s *Session) finish(status string) {
	s.mu.Lock()
	s.status = status
	s.currentStep = ""
	s.done = true
	s.mu.Unlock()
	s.events.Publish(ProgressEvent{AuditID: s.ID, Completed: true, Status: status})
}
