package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/siteaudit-api/internal/config"
	"github.com/jmylchreest/siteaudit-api/internal/database/migrations"
	"github.com/jmylchreest/siteaudit-api/internal/models"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestRepos creates repositories over an in-memory database.
func setupTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return repository.NewRepositories(db)
}

// newTestConfig returns a config with test-friendly timeouts.
func newTestConfig() *config.Config {
	return &config.Config{
		Port:               8080,
		BaseURL:            "http://localhost:8080",
		DailyAnalysisLimit: 20,
		CollectorTimeout:   2 * time.Second,
		AnalysisTimeout:    10 * time.Second,
		SupportedLocales:   []string{"en", "de"},
		UserAgent:          "siteaudit-bot/test",
		DiscoveryMaxSites:  10,
		DiscoveryMaxDepth:  2,
		WorkerPollInterval: 50 * time.Millisecond,
		WorkerConcurrency:  2,
	}
}

// newClaimedAnalysis builds a record in analyzing, as the worker hands it to
// the pipeline, already persisted.
func newClaimedAnalysis(t *testing.T, repos *repository.Repositories, url, domain string) *models.AnalysisRecord {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	record := &models.AnalysisRecord{
		ID:               ulid.Make().String(),
		URL:              url,
		Domain:           domain,
		BusinessCategory: models.BusinessCategoryRestaurant,
		Status:           models.AnalysisStatusAnalyzing,
		Locale:           "en",
		ContactStatus:    models.ContactStatusNotContacted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repos.Analysis.Create(context.Background(), record); err != nil {
		t.Fatalf("failed to create analysis: %v", err)
	}
	return record
}
