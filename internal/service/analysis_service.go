package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/siteaudit-api/internal/config"
	"github.com/jmylchreest/siteaudit-api/internal/models"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
)

// AnalysisService owns the request-side of the pipeline: validation, the
// daily rate limit gate, record creation and the CRM surface. The background
// worker picks pending records up and runs them through the Pipeline.
type AnalysisService struct {
	cfg    *config.Config
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		cfg:    cfg,
		repos:  repos,
		logger: logger.With("service", "analysis"),
	}
}

// StartAnalysisInput carries a submission.
type StartAnalysisInput struct {
	URL              string
	BusinessCategory models.BusinessCategory
	ContactName      string
	ContactEmail     string
	Locale           string
}

// StartAnalysis validates the submission, consumes a daily rate-limit slot
// and creates the record in pending. Validation and rate-limit failures are
// synchronous and create no record.
func (s *AnalysisService) StartAnalysis(ctx context.Context, input StartAnalysisInput) (*models.AnalysisRecord, error) {
	normalized, domain, err := NormalizeURL(input.URL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if !models.ValidBusinessCategory(input.BusinessCategory) {
		return nil, ErrInvalidCategory
	}

	locale := strings.ToLower(strings.TrimSpace(input.Locale))
	if locale == "" || !s.cfg.SupportsLocale(locale) {
		locale = s.cfg.DefaultLocale()
	}

	// Atomic check-and-increment on the day's shared counter. The record is
	// only created once a slot is held, so denials never leave rows behind.
	day := time.Now().Format("2006-01-02")
	allowed, err := s.repos.RateLimit.CheckAndConsume(ctx, day, s.cfg.DailyAnalysisLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		s.logger.Info("analysis denied by daily limit", "day", day, "limit", s.cfg.DailyAnalysisLimit)
		return nil, ErrRateLimited
	}

	now := time.Now().UTC()
	record := &models.AnalysisRecord{
		ID:               ulid.Make().String(),
		URL:              normalized,
		Domain:           domain,
		BusinessCategory: input.BusinessCategory,
		Status:           models.AnalysisStatusPending,
		Locale:           locale,
		ContactName:      strings.TrimSpace(input.ContactName),
		ContactEmail:     strings.TrimSpace(input.ContactEmail),
		ContactStatus:    models.ContactStatusNotContacted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repos.Analysis.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	s.logger.Info("analysis queued", "analysis_id", record.ID, "domain", domain, "category", input.BusinessCategory)
	return record, nil
}

// EnqueueDiscovered creates a pending record for a crawler-discovered site.
// Discovery is an operator-driven batch tool, so it bypasses the visitor
// rate limit gate.
func (s *AnalysisService) EnqueueDiscovered(ctx context.Context, rawURL string, category models.BusinessCategory, locale string) (*models.AnalysisRecord, bool, error) {
	normalized, domain, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, false, ErrInvalidURL
	}

	exists, err := s.repos.Analysis.DomainExists(ctx, domain)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check domain: %w", err)
	}
	if exists {
		return nil, true, nil
	}

	if locale == "" || !s.cfg.SupportsLocale(locale) {
		locale = s.cfg.DefaultLocale()
	}

	now := time.Now().UTC()
	record := &models.AnalysisRecord{
		ID:               ulid.Make().String(),
		URL:              normalized,
		Domain:           domain,
		BusinessCategory: category,
		Status:           models.AnalysisStatusPending,
		Locale:           locale,
		ContactStatus:    models.ContactStatusNotContacted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repos.Analysis.Create(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to create analysis: %w", err)
	}
	return record, false, nil
}

// Get returns one record by id.
func (s *AnalysisService) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	record, err := s.repos.Analysis.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// List returns records plus the total match count.
func (s *AnalysisService) List(ctx context.Context, filter repository.AnalysisFilter) ([]*models.AnalysisRecord, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repos.Analysis.List(ctx, filter)
}

// UpdateCRM applies a contact-tracking mutation. It can never alter the
// analysis state machine or the audit payload.
func (s *AnalysisService) UpdateCRM(ctx context.Context, id string, upd repository.CRMUpdate) (*models.AnalysisRecord, error) {
	if upd.ContactStatus != nil && !models.ValidContactStatus(*upd.ContactStatus) {
		return nil, ErrInvalidContactStatus
	}
	record, err := s.repos.Analysis.UpdateCRM(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

// Delete removes a record.
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	err := s.repos.Analysis.Delete(ctx, id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

// Stats returns dashboard aggregates.
func (s *AnalysisService) Stats(ctx context.Context) (*repository.AnalysisStats, error) {
	return s.repos.Analysis.Stats(ctx)
}

// NormalizeURL validates a submitted URL and derives its normalized form and
// domain. Scheme-less input gets https assumed.
func NormalizeURL(raw string) (normalized, domain string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !strings.Contains(host, ".") {
		return "", "", fmt.Errorf("invalid host %q", host)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	domain = strings.TrimPrefix(host, "www.")
	return strings.TrimSuffix(u.String(), "/"), domain, nil
}
