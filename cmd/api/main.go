package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixmystore/audit-engine/internal/application"
	appai "github.com/fixmystore/audit-engine/internal/application/ai"
	"github.com/fixmystore/audit-engine/internal/application/analysis"
	"github.com/fixmystore/audit-engine/internal/config"
	"github.com/fixmystore/audit-engine/internal/domain/audit"
	"github.com/fixmystore/audit-engine/internal/domain/auditerrors"
	"github.com/fixmystore/audit-engine/internal/domain/insight"
	openaiclient "github.com/fixmystore/audit-engine/internal/infra/ai/openai"
	"github.com/fixmystore/audit-engine/internal/infra/analysisapi"
	mysqlp "github.com/fixmystore/audit-engine/internal/infra/db/mysql"
	pgp "github.com/fixmystore/audit-engine/internal/infra/db/postgres"
	"github.com/fixmystore/audit-engine/internal/infra/httpserver"
	minioStore "github.com/fixmystore/audit-engine/internal/infra/storage"
	"github.com/fixmystore/audit-engine/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// persistence is optional: without a database the service still runs
	// audits, it just cannot store reports or serve them by slug
	var (
		db         *sql.DB
		reportRepo audit.ReportRepository
		insightRep insight.Repository
		errorRepo  auditerrors.Repository
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		reportRepo = mysqlp.NewReportRepository(db)
		insightRep = mysqlp.NewInsightRepository(db)
		errorRepo = mysqlp.NewAuditErrorRepository(db)
	case "postgres":
		db, err = pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		reportRepo = pgp.NewReportRepository(db)
		insightRep = pgp.NewInsightRepository(db)
		errorRepo = pgp.NewAuditErrorRepository(db)
	case "":
		log.Println("no database driver configured, running without persistence")
	default:
		log.Fatalf("unknown database driver: %s", cfg.Database.Driver)
	}
	if db != nil {
		defer db.Close()
	}

	// init minio (optional)
	var artifacts audit.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	// init stepwise-analysis client
	if cfg.Analysis.BaseURL == "" {
		log.Fatal("analysis.baseURL is required")
	}
	invoker := analysisapi.New(
		cfg.Analysis.BaseURL,
		cfg.Analysis.APIKey,
		time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second,
	)

	clock := application.SystemClock{}

	// init pipeline
	orc := &analysis.Orchestrator{
		Invoker:   invoker,
		Reports:   reportRepo,
		Artifacts: artifacts,
		Clock:     clock,
	}
	coord := &analysis.Coordinator{
		Orc:    orc,
		Errors: errorRepo,
		Clock:  clock,
	}
	registry := analysis.NewRegistry(time.Duration(cfg.Session.TTLMinutes)*time.Minute, clock)

	// init AI summaries (optional)
	var aiSvc *appai.Service
	if cfg.OpenAI.APIKey != "" {
		client := openaiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		if cfg.OpenAI.BaseURL != "" {
			client = openaiclient.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		}
		aiSvc = appai.NewService(client, insightRep, clock)
	}

	health := map[string]middleware.HealthChecker{
		"analysis_api": &middleware.AnalysisAPIHealthChecker{BaseURL: cfg.Analysis.BaseURL},
	}
	if db != nil {
		health["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	handler := httpserver.NewRouter(registry, coord, reportRepo, aiSvc, httpserver.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		APIKeys:        cfg.Auth.APIKeys,
		RateCapacity:   cfg.RateLimit.Capacity,
		RateRefill:     cfg.RateLimit.RefillRate,
		Health:         health,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the events endpoint holds SSE streams open
		IdleTimeout: 60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
