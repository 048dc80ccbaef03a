package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/siteaudit-api/internal/config"
	"github.com/jmylchreest/siteaudit-api/internal/database/migrations"
	"github.com/jmylchreest/siteaudit-api/internal/models"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
	"github.com/jmylchreest/siteaudit-api/internal/service"
	_ "github.com/tursodatabase/go-libsql"
)

func setupTestHandler(t *testing.T) *AnalysisHandler {
	t.Helper()
	return setupTestHandlerWithLimit(t, 20)
}

func setupTestHandlerWithLimit(t *testing.T, dailyLimit int) *AnalysisHandler {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		BaseURL:            "http://localhost:8080",
		DailyAnalysisLimit: dailyLimit,
		CollectorTimeout:   time.Second,
		AnalysisTimeout:    5 * time.Second,
		SupportedLocales:   []string{"en", "de"},
		UserAgent:          "siteaudit-bot/test",
		DiscoveryMaxSites:  10,
		DiscoveryMaxDepth:  2,
	}
	repos := repository.NewRepositories(db)
	services := service.NewServices(cfg, repos, slog.Default())
	return NewAnalysisHandler(services.Analysis, services.Discovery, services.Email)
}

// assertHumaStatus checks that err is a huma error with the given status.
func assertHumaStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a %d error, got nil", want)
	}
	se, ok := err.(huma.StatusError)
	if !ok {
		t.Fatalf("error %v does not carry a status", err)
	}
	if se.GetStatus() != want {
		t.Errorf("status = %d, want %d", se.GetStatus(), want)
	}
}

func createAnalysis(t *testing.T, h *AnalysisHandler, url string) models.AnalysisRecord {
	t.Helper()
	input := &CreateAnalysisInput{}
	input.Body.URL = url
	input.Body.BusinessCategory = "restaurant"
	output, err := h.CreateAnalysis(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	return output.Body
}

func TestCreateAnalysis(t *testing.T) {
	h := setupTestHandler(t)

	input := &CreateAnalysisInput{}
	input.Body.URL = "example.com"
	input.Body.BusinessCategory = "restaurant"
	input.Body.ContactName = "Maria"
	input.Body.Locale = "de"

	output, err := h.CreateAnalysis(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if output.Status != 201 {
		t.Errorf("Status = %d, want 201", output.Status)
	}
	if output.Body.Status != models.AnalysisStatusPending {
		t.Errorf("record status = %s, want pending", output.Body.Status)
	}
	if output.Body.URL != "https://example.com" {
		t.Errorf("URL = %q, not normalized", output.Body.URL)
	}
	if output.Body.Locale != "de" {
		t.Errorf("Locale = %q", output.Body.Locale)
	}
}

func TestCreateAnalysisValidationErrors(t *testing.T) {
	h := setupTestHandler(t)

	bad := &CreateAnalysisInput{}
	bad.Body.URL = "not a url"
	bad.Body.BusinessCategory = "restaurant"
	_, err := h.CreateAnalysis(context.Background(), bad)
	assertHumaStatus(t, err, 400)

	badCat := &CreateAnalysisInput{}
	badCat.Body.URL = "https://example.com"
	badCat.Body.BusinessCategory = "bakery"
	_, err = h.CreateAnalysis(context.Background(), badCat)
	assertHumaStatus(t, err, 400)
}

func TestCreateAnalysisRateLimited(t *testing.T) {
	h := setupTestHandlerWithLimit(t, 1)

	createAnalysis(t, h, "https://first.example.com")

	input := &CreateAnalysisInput{}
	input.Body.URL = "https://second.example.com"
	input.Body.BusinessCategory = "retail"
	_, err := h.CreateAnalysis(context.Background(), input)
	assertHumaStatus(t, err, 429)
}

func TestListAnalysesPagination(t *testing.T) {
	h := setupTestHandler(t)
	for _, d := range []string{"a.example.com", "b.example.com", "c.example.com"} {
		createAnalysis(t, h, "https://"+d)
	}

	output, err := h.ListAnalyses(context.Background(), &ListAnalysesInput{Limit: 2})
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(output.Body.Analyses) != 2 {
		t.Errorf("len = %d, want 2", len(output.Body.Analyses))
	}
	if output.Body.Total != 3 {
		t.Errorf("Total = %d, want 3", output.Body.Total)
	}
	if !output.Body.HasMore {
		t.Error("HasMore = false")
	}

	last, err := h.ListAnalyses(context.Background(), &ListAnalysesInput{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(last.Body.Analyses) != 1 || last.Body.HasMore {
		t.Errorf("last page: len=%d hasMore=%v", len(last.Body.Analyses), last.Body.HasMore)
	}
}

func TestListAnalysesStatusFilter(t *testing.T) {
	h := setupTestHandler(t)
	createAnalysis(t, h, "https://a.example.com")

	output, err := h.ListAnalyses(context.Background(), &ListAnalysesInput{Status: "completed"})
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if output.Body.Total != 0 {
		t.Errorf("Total = %d, want 0 completed", output.Body.Total)
	}
	if output.Body.Analyses == nil {
		t.Error("Analyses should be an empty slice, not nil")
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	h := setupTestHandler(t)
	_, err := h.GetAnalysis(context.Background(), &GetAnalysisInput{ID: "01MISSING"})
	assertHumaStatus(t, err, 404)
}

func TestUpdateAnalysisCRM(t *testing.T) {
	h := setupTestHandler(t)
	record := createAnalysis(t, h, "https://example.com")

	name := "Giovanni"
	status := "contacted"
	input := &UpdateAnalysisInput{ID: record.ID}
	input.Body.ContactName = &name
	input.Body.ContactStatus = &status

	output, err := h.UpdateAnalysis(context.Background(), input)
	if err != nil {
		t.Fatalf("UpdateAnalysis: %v", err)
	}
	if output.Body.ContactName != "Giovanni" {
		t.Errorf("ContactName = %q", output.Body.ContactName)
	}
	if output.Body.ContactStatus != models.ContactStatusContacted {
		t.Errorf("ContactStatus = %s", output.Body.ContactStatus)
	}
	// Pipeline-owned fields stay untouched.
	if output.Body.Status != record.Status {
		t.Errorf("analysis status changed to %s", output.Body.Status)
	}

	opened := &UpdateAnalysisInput{ID: record.ID}
	opened.Body.MarkEmailOpened = true
	output, err = h.UpdateAnalysis(context.Background(), opened)
	if err != nil {
		t.Fatalf("UpdateAnalysis mark opened: %v", err)
	}
	if !output.Body.EmailOpened || output.Body.EmailOpenedAt == nil {
		t.Errorf("EmailOpened = %v, EmailOpenedAt = %v", output.Body.EmailOpened, output.Body.EmailOpenedAt)
	}
	if output.Body.ContactName != "Giovanni" {
		t.Errorf("earlier CRM fields lost: ContactName = %q", output.Body.ContactName)
	}

	bad := &UpdateAnalysisInput{ID: record.ID}
	unknown := "ghosted"
	bad.Body.ContactStatus = &unknown
	_, err = h.UpdateAnalysis(context.Background(), bad)
	assertHumaStatus(t, err, 400)
}

func TestDeleteAnalysis(t *testing.T) {
	h := setupTestHandler(t)
	record := createAnalysis(t, h, "https://example.com")

	output, err := h.DeleteAnalysis(context.Background(), &DeleteAnalysisInput{ID: record.ID})
	if err != nil {
		t.Fatalf("DeleteAnalysis: %v", err)
	}
	if output.Status != 204 {
		t.Errorf("Status = %d, want 204", output.Status)
	}

	_, err = h.GetAnalysis(context.Background(), &GetAnalysisInput{ID: record.ID})
	assertHumaStatus(t, err, 404)

	_, err = h.DeleteAnalysis(context.Background(), &DeleteAnalysisInput{ID: record.ID})
	assertHumaStatus(t, err, 404)
}

func TestSendEmailNotConfigured(t *testing.T) {
	h := setupTestHandler(t)
	record := createAnalysis(t, h, "https://example.com")

	_, err := h.SendEmail(context.Background(), &SendEmailInput{ID: record.ID})
	assertHumaStatus(t, err, 503)
}

func TestStatsEmpty(t *testing.T) {
	h := setupTestHandler(t)

	output, err := h.Stats(context.Background(), nil)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if output.Body.Total != 0 {
		t.Errorf("Total = %d, want 0", output.Body.Total)
	}
}

func TestHealthCheck(t *testing.T) {
	output, err := HealthCheck(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Body.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", output.Body.Status)
	}
	if output.Body.Version == "" {
		t.Error("empty version")
	}
}
