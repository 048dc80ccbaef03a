package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/siteaudit-api/internal/database/migrations"
	"github.com/jmylchreest/siteaudit-api/internal/models"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Create in-memory database
	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	// Run migrations
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Clean up when test completes
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// newTestAnalysis builds a pending record with sensible defaults.
func newTestAnalysis(url, domain string) *models.AnalysisRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.AnalysisRecord{
		ID:               ulid.Make().String(),
		URL:              url,
		Domain:           domain,
		BusinessCategory: models.BusinessCategoryRestaurant,
		Status:           models.AnalysisStatusPending,
		Locale:           "en",
		ContactStatus:    models.ContactStatusNotContacted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// InsertTestAnalysis is a helper to insert a test analysis directly.
func InsertTestAnalysis(t *testing.T, db *sql.DB, id, domain, status string) {
	t.Helper()
	query := `
		INSERT INTO analyses (id, url, domain, business_category, status, locale, contact_status, created_at, updated_at)
		VALUES (?, ?, ?, 'services', ?, 'en', 'not_contacted', datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, id, "https://"+domain, domain, status); err != nil {
		t.Fatalf("failed to insert test analysis: %v", err)
	}
}
