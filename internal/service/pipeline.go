package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/siteaudit-api/internal/config"
	"github.com/jmylchreest/siteaudit-api/internal/models"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
)

// Pipeline drives one claimed analysis end-to-end: concurrent collectors,
// then the pure extract -> score -> findings -> recommendation stages, then
// a single terminal persist. The record is owned exclusively by the pipeline
// for the duration of the run.
type Pipeline struct {
	cfg        *config.Config
	repos      *repository.Repositories
	collectors *CollectorService
	logger     *slog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg *config.Config, repos *repository.Repositories, collectors *CollectorService, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		repos:      repos,
		collectors: collectors,
		logger:     logger.With("service", "pipeline"),
	}
}

// Run processes a record already claimed into analyzing. The whole run is
// bounded by the configured wall-clock ceiling; exceeding it fails the
// analysis. Run never returns an error for a failed target - that outcome is
// recorded on the analysis itself.
func (p *Pipeline) Run(ctx context.Context, record *models.AnalysisRecord) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AnalysisTimeout)
	defer cancel()

	start := time.Now()
	logger := p.logger.With("analysis_id", record.ID, "domain", record.Domain)

	results := p.collectors.CollectAll(ctx, record.URL)

	// No usable HTML means there is nothing to audit: pipeline-fatal.
	if !results.HTML.Measured {
		msg := "target returned no retrievable HTML"
		if results.HTML.StatusCode != 0 {
			msg = fmt.Sprintf("target returned no retrievable HTML (status %d)", results.HTML.StatusCode)
		}
		switch ctx.Err() {
		case context.DeadlineExceeded:
			msg = "analysis exceeded its time budget"
		case context.Canceled:
			msg = "analysis interrupted before completion"
		}
		p.fail(record, msg)
		logger.Warn("analysis failed", "error", msg, "duration", time.Since(start).String())
		return
	}

	// Pure stages: no I/O from here on.
	details := ExtractDetails(results.HTML.HTML, results)
	score := ComputeScore(details)
	findings := GenerateFindings(details, score, record.BusinessCategory, record.Locale)
	recommendation := Recommend(score, record.BusinessCategory, details.HasBooking, record.Locale)

	now := time.Now().UTC()
	record.Status = models.AnalysisStatusCompleted
	record.ErrorMessage = ""
	record.Details = &details
	record.Score = &score
	record.Findings = findings
	record.Recommendation = &recommendation
	record.AnalyzedAt = &now

	if err := p.persist(record); err != nil {
		logger.Error("failed to persist completed analysis", "error", err)
		return
	}

	logger.Info("analysis completed",
		"total_score", score.Total,
		"package_tier", recommendation.PackageTier,
		"findings", len(findings),
		"duration", time.Since(start).String(),
	)
}

// fail moves the record to its failed terminal state with no payload.
func (p *Pipeline) fail(record *models.AnalysisRecord, msg string) {
	now := time.Now().UTC()
	record.Status = models.AnalysisStatusFailed
	record.ErrorMessage = msg
	record.Score = nil
	record.Details = nil
	record.Findings = nil
	record.Recommendation = nil
	record.AnalyzedAt = &now
	if err := p.persist(record); err != nil {
		p.logger.Error("failed to persist failed analysis", "analysis_id", record.ID, "error", err)
	}
}

// persist writes the terminal state. A fresh context keeps the write from
// being lost when the run deadline has already expired.
func (p *Pipeline) persist(record *models.AnalysisRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.repos.Analysis.Update(ctx, record)
}
