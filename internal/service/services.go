package service

import (
	"log/slog"

	"github.com/jmylchreest/siteaudit-api/internal/config"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
)

// Services aggregates all service implementations.
type Services struct {
	Analysis   *AnalysisService
	Collectors *CollectorService
	Pipeline   *Pipeline
	Discovery  *DiscoveryService
	Email      *EmailService
}

// NewServices creates all services with their dependencies wired.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *Services {
	collectors := NewCollectorService(cfg.CollectorTimeout, cfg.UserAgent, logger)
	return &Services{
		Analysis:   NewAnalysisService(cfg, repos, logger),
		Collectors: collectors,
		Pipeline:   NewPipeline(cfg, repos, collectors, logger),
		Discovery:  NewDiscoveryService(cfg, logger),
		Email:      NewEmailService(cfg, repos, logger),
	}
}
