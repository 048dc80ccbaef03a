// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

// AnalysisFilter narrows List queries.
type AnalysisFilter struct {
	Status           models.AnalysisStatus
	BusinessCategory models.BusinessCategory
	// Search matches URL, domain, contact name or contact email (substring).
	Search string
	Limit  int
	Offset int
}

// CRMUpdate carries the contact-tracking fields that may change after an
// analysis has reached a terminal state. Nil fields are left untouched.
type CRMUpdate struct {
	ContactName     *string
	ContactEmail    *string
	Notes           *string
	ContactStatus   *models.ContactStatus
	MarkEmailSent   bool
	MarkEmailOpened bool
}

// AnalysisStats aggregates counts for the dashboard.
type AnalysisStats struct {
	ByStatus        map[models.AnalysisStatus]int `json:"by_status"`
	ByContactStatus map[models.ContactStatus]int  `json:"by_contact_status"`
	AverageScore    float64                       `json:"average_score"`
	Total           int                           `json:"total"`
}

// AnalysisRepository defines methods for analysis record data access.
type AnalysisRepository interface {
	Create(ctx context.Context, a *models.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*models.AnalysisRecord, error)
	// List returns matching records plus the total match count (ignoring limit/offset).
	List(ctx context.Context, filter AnalysisFilter) ([]*models.AnalysisRecord, int, error)
	// Update persists pipeline-owned fields (status, payload, error, analyzed_at).
	Update(ctx context.Context, a *models.AnalysisRecord) error
	// UpdateCRM mutates only contact-tracking fields; it never touches status
	// or the audit payload.
	UpdateCRM(ctx context.Context, id string, upd CRMUpdate) (*models.AnalysisRecord, error)
	Delete(ctx context.Context, id string) error
	// DomainExists reports whether any record already covers the domain.
	DomainExists(ctx context.Context, domain string) (bool, error)
	// ClaimPending atomically claims the oldest pending analysis, moving it
	// to analyzing, and returns it. Returns nil when none are pending.
	ClaimPending(ctx context.Context) (*models.AnalysisRecord, error)
	// MarkStaleAnalyzingFailed fails analyses stuck in analyzing longer than
	// maxAge (e.g. after a crash). Returns the number of records failed.
	MarkStaleAnalyzingFailed(ctx context.Context, maxAge time.Duration) (int64, error)
	Stats(ctx context.Context) (*AnalysisStats, error)
}

// RateLimitRepository is the shared daily counter in front of the pipeline.
type RateLimitRepository interface {
	// CheckAndConsume atomically increments the counter for day if it is
	// still below ceiling. Returns true when a slot was consumed.
	CheckAndConsume(ctx context.Context, day string, ceiling int) (bool, error)
	// Count returns the counter value for day (0 when absent).
	Count(ctx context.Context, day string) (int, error)
}

// Repositories holds all repository instances.
type Repositories struct {
	Analysis  AnalysisRepository
	RateLimit RateLimitRepository
}

// NewRepositories creates all repositories with a database connection.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Analysis:  NewSQLiteAnalysisRepository(db),
		RateLimit: NewSQLiteRateLimitRepository(db),
	}
}
