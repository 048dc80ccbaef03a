package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jmylchreest/siteaudit-api/internal/config"
	"github.com/jmylchreest/siteaudit-api/internal/models"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
)

// EmailService delivers audit reports to a record's contact address via SMTP.
type EmailService struct {
	cfg    *config.Config
	repos  *repository.Repositories
	logger *slog.Logger

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailService creates an email service.
func NewEmailService(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *EmailService {
	return &EmailService{
		cfg:    cfg,
		repos:  repos,
		logger: logger.With("service", "email"),
		send:   smtp.SendMail,
	}
}

// SendReport emails the audit report for a completed analysis to its contact
// address and marks the record as sent.
func (s *EmailService) SendReport(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	if !s.cfg.EmailEnabled() {
		return nil, ErrEmailNotConfigured
	}

	record, err := s.repos.Analysis.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	if record.Status != models.AnalysisStatusCompleted {
		return nil, ErrNotCompleted
	}
	if record.ContactEmail == "" {
		return nil, ErrNoContactEmail
	}

	subject, body := s.composeReport(record)
	msg := buildMessage(s.cfg.SMTPFrom, record.ContactEmail, subject, body)

	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.send(addr, auth, s.cfg.SMTPFrom, []string{record.ContactEmail}, msg); err != nil {
		return nil, fmt.Errorf("failed to send report email: %w", err)
	}

	updated, err := s.repos.Analysis.UpdateCRM(ctx, id, repository.CRMUpdate{MarkEmailSent: true})
	if err != nil {
		return nil, fmt.Errorf("failed to record email delivery: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.logger.Info("report email sent", "analysis_id", id, "domain", record.Domain)
	return updated, nil
}

func (s *EmailService) composeReport(record *models.AnalysisRecord) (subject, body string) {
	locale := normalizeLocale(record.Locale)

	total := 0
	if record.Score != nil {
		total = record.Score.Total
	}

	var b strings.Builder
	switch locale {
	case "de":
		subject = fmt.Sprintf("Website-Analyse für %s", record.Domain)
		fmt.Fprintf(&b, "Guten Tag %s,\n\n", greetingName(record))
		fmt.Fprintf(&b, "wir haben Ihre Website %s analysiert. Gesamtwertung: %d von 100 Punkten.\n\n", record.URL, total)
	default:
		subject = fmt.Sprintf("Website audit for %s", record.Domain)
		fmt.Fprintf(&b, "Hello %s,\n\n", greetingName(record))
		fmt.Fprintf(&b, "We analysed your website %s. Overall score: %d out of 100.\n\n", record.URL, total)
	}

	if record.Score != nil {
		for _, c := range models.ScoreCategories {
			fmt.Fprintf(&b, "  %s: %d/%d\n", categoryLabel(locale, c), record.Score.Get(c), models.MaxScore(c))
		}
		b.WriteString("\n")
	}

	for _, f := range record.Findings {
		if f.Severity != models.SeverityCritical {
			continue
		}
		fmt.Fprintf(&b, "! %s: %s\n", f.Title, f.Description)
	}

	if record.Recommendation != nil {
		fmt.Fprintf(&b, "\n%s\n", record.Recommendation.Text)
	}

	return subject, b.String()
}

func greetingName(record *models.AnalysisRecord) string {
	if record.ContactName != "" {
		return record.ContactName
	}
	return record.Domain
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
