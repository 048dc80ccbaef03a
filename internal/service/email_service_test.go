package service

import (
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/siteaudit-api/internal/models"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func newTestEmailService(t *testing.T) (*EmailService, *repository.Repositories, *sentMail) {
	t.Helper()
	repos := setupTestRepos(t)
	cfg := newTestConfig()
	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPPort = 587
	cfg.SMTPFrom = "audit@example.com"

	svc := NewEmailService(cfg, repos, slog.Default())
	sent := &sentMail{}
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent.addr = addr
		sent.from = from
		sent.to = to
		sent.msg = msg
		return nil
	}
	return svc, repos, sent
}

func completedAnalysis(t *testing.T, repos *repository.Repositories, email, locale string) *models.AnalysisRecord {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	record := &models.AnalysisRecord{
		ID:               ulid.Make().String(),
		URL:              "https://example.com",
		Domain:           "example.com",
		BusinessCategory: models.BusinessCategoryRestaurant,
		Status:           models.AnalysisStatusAnalyzing,
		Locale:           locale,
		ContactStatus:    models.ContactStatusNotContacted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := repos.Analysis.Create(context.Background(), record); err != nil {
		t.Fatalf("Create: %v", err)
	}
	d := healthyDetails()
	score := ComputeScore(d)
	rec := Recommend(score, record.BusinessCategory, d.HasBooking, locale)

	record.Status = models.AnalysisStatusCompleted
	record.Details = &d
	record.Score = &score
	record.Findings = GenerateFindings(d, score, record.BusinessCategory, locale)
	record.Recommendation = &rec
	record.AnalyzedAt = &now
	if err := repos.Analysis.Update(context.Background(), record); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if email != "" {
		if _, err := repos.Analysis.UpdateCRM(context.Background(), record.ID, repository.CRMUpdate{ContactEmail: &email}); err != nil {
			t.Fatalf("UpdateCRM: %v", err)
		}
	}
	return record
}

func TestSendReportDeliversAndMarksSent(t *testing.T) {
	svc, repos, sent := newTestEmailService(t)
	record := completedAnalysis(t, repos, "maria@example.com", "en")

	updated, err := svc.SendReport(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("SendReport: %v", err)
	}

	if sent.addr != "smtp.example.com:587" {
		t.Errorf("addr = %q", sent.addr)
	}
	if len(sent.to) != 1 || sent.to[0] != "maria@example.com" {
		t.Errorf("to = %v", sent.to)
	}
	body := string(sent.msg)
	if !strings.Contains(body, "Subject: Website audit for example.com") {
		t.Errorf("message missing subject: %q", body)
	}
	if !strings.Contains(body, "100 out of 100") {
		t.Errorf("message missing the total score: %q", body)
	}

	if !updated.EmailSent || updated.EmailSentAt == nil {
		t.Error("record not marked as sent")
	}
}

func TestSendReportLocalizedSubject(t *testing.T) {
	svc, repos, sent := newTestEmailService(t)
	record := completedAnalysis(t, repos, "maria@example.com", "de")

	if _, err := svc.SendReport(context.Background(), record.ID); err != nil {
		t.Fatalf("SendReport: %v", err)
	}
	if !strings.Contains(string(sent.msg), "Website-Analyse") {
		t.Errorf("de report should use german copy: %q", string(sent.msg))
	}
}

func TestSendReportGuards(t *testing.T) {
	svc, repos, _ := newTestEmailService(t)

	t.Run("not found", func(t *testing.T) {
		if _, err := svc.SendReport(context.Background(), "01MISSING"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("not completed", func(t *testing.T) {
		record := newClaimedAnalysis(t, repos, "https://pending.example.com", "pending.example.com")
		if _, err := svc.SendReport(context.Background(), record.ID); !errors.Is(err, ErrNotCompleted) {
			t.Errorf("err = %v, want ErrNotCompleted", err)
		}
	})

	t.Run("no contact email", func(t *testing.T) {
		record := completedAnalysis(t, repos, "", "en")
		if _, err := svc.SendReport(context.Background(), record.ID); !errors.Is(err, ErrNoContactEmail) {
			t.Errorf("err = %v, want ErrNoContactEmail", err)
		}
	})
}

func TestSendReportNotConfigured(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewEmailService(newTestConfig(), repos, slog.Default())

	if _, err := svc.SendReport(context.Background(), "any"); !errors.Is(err, ErrEmailNotConfigured) {
		t.Errorf("err = %v, want ErrEmailNotConfigured", err)
	}
}
