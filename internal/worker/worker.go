package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/siteaudit-api/internal/repository"
	"github.com/jmylchreest/siteaudit-api/internal/service"
)

// Worker claims pending analyses and runs the audit pipeline on them.
type Worker struct {
	analysisRepo repository.AnalysisRepository
	pipeline     *service.Pipeline
	pollInterval time.Duration
	concurrency  int
	stop         chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

// Config holds worker configuration.
type Config struct {
	PollInterval time.Duration
	Concurrency  int
}

// New creates a new worker.
func New(
	analysisRepo repository.AnalysisRepository,
	pipeline *service.Pipeline,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		analysisRepo: analysisRepo,
		pipeline:     pipeline,
		pollInterval: cfg.PollInterval,
		concurrency:  cfg.Concurrency,
		stop:         make(chan struct{}),
		logger:       logger.With("component", "worker"),
	}
}

// Start begins processing analyses.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting", "concurrency", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i)
	}
}

// Stop gracefully stops the worker. In-flight analyses finish first.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

func (w *Worker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processNext(ctx, workerID)
		}
	}
}

func (w *Worker) processNext(ctx context.Context, workerID int) {
	record, err := w.analysisRepo.ClaimPending(ctx)
	if err != nil {
		w.logger.Error("failed to claim analysis", "worker_id", workerID, "error", err)
		return
	}
	if record == nil {
		return // No pending analyses
	}

	w.logger.Info("processing analysis", "worker_id", workerID, "analysis_id", record.ID, "domain", record.Domain)
	w.pipeline.Run(ctx, record)
}
