package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appai "github.com/fixmystore/audit-engine/internal/application/ai"
	"github.com/fixmystore/audit-engine/internal/application/analysis"
	domainai "github.com/fixmystore/audit-engine/internal/domain/ai"
	"github.com/fixmystore/audit-engine/internal/domain/audit"
	"github.com/fixmystore/audit-engine/internal/domain/auditerrors"
	"github.com/fixmystore/audit-engine/internal/middleware"
)

type Router struct {
	registry *analysis.Registry
	coord    *analysis.Coordinator
	reports  audit.ReportRepository
	aiSvc    *appai.Service
	errLog   auditerrors.Repository
}

// Options carries the wiring the router needs beyond its services.
type Options struct {
	AllowedOrigins []string
	APIKeys        map[string]string
	RateCapacity   int
	RateRefill     int
	Health         map[string]middleware.HealthChecker
}

func NewRouter(registry *analysis.Registry, coord *analysis.Coordinator, reports audit.ReportRepository, aiSvc *appai.Service, opts Options) http.Handler {
	r := &Router{registry: registry, coord: coord, reports: reports, aiSvc: aiSvc, errLog: coord.Errors}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		if len(opts.APIKeys) > 0 {
			rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		}
		if opts.RateCapacity > 0 && opts.RateRefill > 0 {
			rt.Use(middleware.RateLimitMiddleware(opts.RateCapacity, opts.RateRefill))
		}

		rt.Post("/audits", r.wrap(r.handleStartFull))
		rt.Post("/audits/page", r.wrap(r.handleStartPage))
		rt.Post("/audits/{id}/continue", r.wrap(r.handleContinue))
		rt.Get("/audits/{id}", r.wrap(r.handleGetAudit))
		rt.Get("/audits/{id}/events", r.wrap(r.handleEvents))
		rt.Get("/audits/{id}/report", r.wrap(r.handleGetReport))
		rt.Post("/audits/{id}/insight", r.wrap(r.handleInsight))
		rt.Get("/audits/{id}/errors", r.wrap(r.handleAuditErrors))
		rt.Delete("/audits/{id}", r.wrap(r.handleReset))

		rt.Get("/reports/latest", r.wrap(r.handleLatestReports))
		rt.Get("/reports/{slug}", r.wrap(r.handleReportBySlug))
		rt.Get("/reports/{slug}/insight", r.wrap(r.handleInsightBySlug))
		rt.Get("/reports", r.wrap(r.handleListReports))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/insights", r.wrap(r.handleListInsights))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows), errors.Is(err, audit.ErrSessionNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, audit.ErrNotShopifyStore):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, audit.ErrAuditInProgress):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, domainai.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			case errors.Is(err, domainai.ErrNotConfigured):
				http.Error(w, "ai summaries not configured", http.StatusServiceUnavailable)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// POST /v1/audits
// Body: {"url": "shop.example.com"}
// Starts a full four-page audit in the background and returns the session id.
func (r *Router) handleStartFull(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	body.URL = middleware.SanitizeString(body.URL)
	if err := middleware.ValidateStoreURL(body.URL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	sess := r.registry.Create(body.URL)
	r.runInBackground(sess, func(ctx context.Context) error {
		return r.coord.RunAll(ctx, sess)
	})

	return writeJSON(w, map[string]any{
		"id":       sess.ID,
		"status":   audit.StatusQueued,
		"url":      body.URL,
		"queuedAt": time.Now(),
	})
}

// POST /v1/audits/page
// Body: {"url": ..., "pageType": "homepage", "persist": true, "category": "fashion"}
// Single-page flow backing the free teaser path.
func (r *Router) handleStartPage(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL      string `json:"url"`
		PageType string `json:"pageType"`
		Persist  bool   `json:"persist"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	body.URL = middleware.SanitizeString(body.URL)
	if body.PageType == "" {
		body.PageType = string(audit.PageHomepage)
	}
	if err := middleware.ValidateStoreURL(body.URL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if err := middleware.ValidatePageType(body.PageType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if err := middleware.ValidateCategory(body.Category); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	page := audit.PageType(body.PageType)
	opts := analysis.PageRunOptions{Persist: body.Persist, Category: body.Category}

	sess := r.registry.Create(body.URL)
	r.runInBackground(sess, func(ctx context.Context) error {
		err := r.coord.RunSingle(ctx, sess, page, opts)
		if err == nil {
			middleware.IncrementPagesAnalyzed()
		}
		return err
	})

	return writeJSON(w, map[string]any{
		"id":       sess.ID,
		"status":   audit.StatusQueued,
		"url":      body.URL,
		"pageType": page,
		"queuedAt": time.Now(),
	})
}

// POST /v1/audits/{id}/continue
// Body: {"pageType": "homepage", "category": "fashion"}
// Deliberate re-entry: re-runs only the checklist stage with the category the
// user picked after the teaser pass.
func (r *Router) handleContinue(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.registry.Get(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}

	var body struct {
		PageType string `json:"pageType"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if body.PageType == "" {
		body.PageType = string(audit.PageHomepage)
	}
	if err := middleware.ValidatePageType(body.PageType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if err := middleware.ValidateCategory(body.Category); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	// Reject before queueing while the previous run is still writing; the
	// coordinator re-checks atomically when the goroutine claims the session.
	if !sess.Done() {
		return audit.ErrAuditInProgress
	}

	page := audit.PageType(body.PageType)
	category := middleware.SanitizeString(body.Category)
	r.runInBackground(sess, func(ctx context.Context) error {
		return r.coord.ContinueChecklist(ctx, sess, page, category)
	})

	return writeJSON(w, map[string]any{
		"id":       sess.ID,
		"status":   audit.StatusQueued,
		"pageType": page,
	})
}

// GET /v1/audits/{id}
func (r *Router) handleGetAudit(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.registry.Get(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, sess.Snapshot())
}

// GET /v1/audits/{id}/events streams progress over SSE.
func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.registry.Get(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := sess.Events().Subscribe()
	defer cancel()

	// Replay current state so late subscribers start coherent.
	if err := writeSSE(w, "state", sess.Snapshot()); err != nil {
		return nil
	}
	flusher.Flush()

	for {
		select {
		case <-req.Context().Done():
			return nil
		case ev, open := <-ch:
			if !open {
				return nil
			}
			if err := writeSSE(w, "progress", ev); err != nil {
				return nil
			}
			flusher.Flush()
			if ev.Completed && isTerminalStatus(ev.Status) {
				return nil
			}
		}
	}
}

// GET /v1/audits/{id}/report
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.registry.Get(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	report := sess.Report()
	return writeJSON(w, map[string]any{
		"report":  report,
		"summary": audit.Summarize(report),
		"slug":    sess.Slug(),
	})
}

// POST /v1/audits/{id}/insight
func (r *Router) handleInsight(w http.ResponseWriter, req *http.Request) error {
	if r.aiSvc == nil {
		return domainai.ErrNotConfigured
	}
	sess, err := r.registry.Get(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	report := sess.Report()
	if len(report) == 0 {
		http.Error(w, "no completed pages to summarize yet", http.StatusConflict)
		return nil
	}
	ins, err := r.aiSvc.SummarizeAndStore(req.Context(), sess.ID, sess.Slug(), report)
	if err != nil {
		return err
	}
	return writeJSON(w, ins)
}

// GET /v1/audits/{id}/errors lists logged stage failures for a session.
func (r *Router) handleAuditErrors(w http.ResponseWriter, req *http.Request) error {
	if r.errLog == nil {
		http.Error(w, "error log not configured", http.StatusServiceUnavailable)
		return nil
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.errLog.ListByAudit(req.Context(), chi.URLParam(req, "id"), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// DELETE /v1/audits/{id} is the explicit reset: drops session state entirely.
// An in-flight network call cannot be retracted; its result is discarded.
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	r.registry.Delete(chi.URLParam(req, "id"))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/reports/{slug}
func (r *Router) handleReportBySlug(w http.ResponseWriter, req *http.Request) error {
	if r.reports == nil {
		http.Error(w, "report persistence not configured", http.StatusServiceUnavailable)
		return nil
	}
	slug := chi.URLParam(req, "slug")
	if err := middleware.ValidateSlug(slug); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	rec, err := r.reports.GetBySlug(req.Context(), slug)
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

// GET /v1/reports/latest?limit=20
func (r *Router) handleLatestReports(w http.ResponseWriter, req *http.Request) error {
	if r.reports == nil {
		http.Error(w, "report persistence not configured", http.StatusServiceUnavailable)
		return nil
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.reports.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/reports?page=&page_size=
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	if r.reports == nil {
		http.Error(w, "report persistence not configured", http.StatusServiceUnavailable)
		return nil
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.reports.Paginate(req.Context(), page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	if r.reports == nil {
		http.Error(w, "report persistence not configured", http.StatusServiceUnavailable)
		return nil
	}
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	total, avgScore, problems, err := r.reports.Summary(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"total_reports":  total,
		"avg_score":      avgScore,
		"total_problems": problems,
	})
}

// GET /v1/reports/{slug}/insight returns the most recent AI summary for a
// stored report.
func (r *Router) handleInsightBySlug(w http.ResponseWriter, req *http.Request) error {
	if r.aiSvc == nil {
		return domainai.ErrNotConfigured
	}
	slug := chi.URLParam(req, "slug")
	if err := middleware.ValidateSlug(slug); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	ins, err := r.aiSvc.LatestBySlug(req.Context(), slug)
	if err != nil {
		return err
	}
	if ins == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}
	return writeJSON(w, ins)
}

// GET /v1/insights?page=&page_size=
func (r *Router) handleListInsights(w http.ResponseWriter, req *http.Request) error {
	if r.aiSvc == nil {
		return domainai.ErrNotConfigured
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.aiSvc.ListInsights(req.Context(), page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// runInBackground detaches the pipeline from the request context so a closed
// connection never cancels an audit mid-flight.
func (r *Router) runInBackground(sess *analysis.Session, run func(context.Context) error) {
	middleware.IncrementAudits()
	middleware.IncrementAuditsRunning()
	go func() {
		defer middleware.DecrementAuditsRunning()
		if err := run(context.Background()); err != nil {
			middleware.IncrementAuditsFailed()
			log.Printf("background audit error id=%s url=%s: %v", sess.ID, sess.URL, err)
			return
		}
		log.Printf("audit finished id=%s url=%s slug=%s", sess.ID, sess.URL, sess.Slug())
	}()
}

func isTerminalStatus(status string) bool {
	switch status {
	case audit.StatusComplete, audit.StatusAllStepsComplete, audit.StatusErrorOccurred:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
