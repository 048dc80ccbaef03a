// Package main is the entry point for the siteaudit-api server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jmylchreest/siteaudit-api/internal/config"
	"github.com/jmylchreest/siteaudit-api/internal/database"
	"github.com/jmylchreest/siteaudit-api/internal/http/handlers"
	"github.com/jmylchreest/siteaudit-api/internal/http/mw"
	"github.com/jmylchreest/siteaudit-api/internal/logging"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
	"github.com/jmylchreest/siteaudit-api/internal/service"
	"github.com/jmylchreest/siteaudit-api/internal/version"
	"github.com/jmylchreest/siteaudit-api/internal/worker"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting siteaudit-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	schemaVersion, err := database.GetLatestSchemaVersion(db)
	if err != nil {
		logger.Warn("failed to get schema version", "error", err)
	} else if schemaVersion != "" {
		migrationCount, _ := database.GetMigrationCount(db)
		logger.Info("database schema ready", "schema_version", schemaVersion, "migrations_applied", migrationCount)
	}

	repos := repository.NewRepositories(db)

	// Analyses stuck in analyzing from a previous run will never finish;
	// fail them all on startup so the dashboard reflects reality. No
	// worker has started yet, so age does not matter.
	staleCount, err := repos.Analysis.MarkStaleAnalyzingFailed(context.Background(), 0)
	if err != nil {
		logger.Warn("failed to clean up stale analyses", "error", err)
	} else if staleCount > 0 {
		logger.Info("failed stale analyses from previous run", "count", staleCount)
	}

	services := service.NewServices(cfg, repos, logger)

	// Start background worker for analysis processing
	analysisWorker := worker.New(
		repos.Analysis,
		services.Pipeline,
		worker.Config{
			PollInterval: cfg.WorkerPollInterval,
			Concurrency:  cfg.WorkerConcurrency,
		},
		logger,
	)
	ctx, cancel := context.WithCancel(context.Background())
	analysisWorker.Start(ctx)

	// Create router
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// Request timeout middleware; discovery crawls need a longer budget
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:          30 * time.Second,
		Extended:         2 * time.Minute,
		ExtendedPatterns: []string{"/find-websites"},
		SkipPatterns:     []string{"/health"},
	}))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP (the daily analysis ceiling is enforced
	// separately in the service layer)
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Global concurrency throttle - prevent system overload
	router.Use(middleware.Throttle(100))

	// Huma API config with OpenAPI docs
	humaConfig := huma.DefaultConfig("SiteAudit API", "1.0.0")
	humaConfig.Info.Description = "Website quality audits for small businesses: speed, mobile, security, SEO, discoverability and design scoring with localized findings and package recommendations."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}

	api := humachi.New(router, humaConfig)

	// Health check
	huma.Get(api, "/api/v1/health", handlers.HealthCheck)

	// Analysis routes
	analysisHandler := handlers.NewAnalysisHandler(services.Analysis, services.Discovery, services.Email)
	huma.Post(api, "/api/v1/analyses", analysisHandler.CreateAnalysis)
	huma.Get(api, "/api/v1/analyses", analysisHandler.ListAnalyses)
	huma.Get(api, "/api/v1/analyses/stats", analysisHandler.Stats)
	huma.Get(api, "/api/v1/analyses/{id}", analysisHandler.GetAnalysis)
	huma.Patch(api, "/api/v1/analyses/{id}", analysisHandler.UpdateAnalysis)
	huma.Delete(api, "/api/v1/analyses/{id}", analysisHandler.DeleteAnalysis)
	huma.Post(api, "/api/v1/analyses/find-websites", analysisHandler.FindWebsites)
	huma.Post(api, "/api/v1/analyses/{id}/send-email", analysisHandler.SendEmail)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		// Stop the worker first so in-flight analyses finish
		analysisWorker.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
