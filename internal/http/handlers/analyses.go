package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/siteaudit-api/internal/models"
	"github.com/jmylchreest/siteaudit-api/internal/repository"
	"github.com/jmylchreest/siteaudit-api/internal/service"
)

// AnalysisHandler handles analysis endpoints.
type AnalysisHandler struct {
	analysisSvc  *service.AnalysisService
	discoverySvc *service.DiscoveryService
	emailSvc     *service.EmailService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisSvc *service.AnalysisService, discoverySvc *service.DiscoveryService, emailSvc *service.EmailService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisSvc:  analysisSvc,
		discoverySvc: discoverySvc,
		emailSvc:     emailSvc,
	}
}

// CreateAnalysisInput represents an analysis submission.
type CreateAnalysisInput struct {
	Body struct {
		URL              string `json:"url" minLength:"1" example:"https://example.com" doc:"Website URL to audit. Scheme-less input gets https assumed."`
		BusinessCategory string `json:"business_category" enum:"restaurant,retail,services" doc:"Business category of the site owner"`
		ContactName      string `json:"contact_name,omitempty" maxLength:"200" doc:"Optional contact person for follow-up"`
		ContactEmail     string `json:"contact_email,omitempty" format:"email" doc:"Optional contact email for the report"`
		Locale           string `json:"locale,omitempty" example:"de" doc:"Report locale. Unsupported locales fall back to the default."`
	}
}

// CreateAnalysisOutput represents the queued analysis.
type CreateAnalysisOutput struct {
	Status int
	Body   models.AnalysisRecord
}

// CreateAnalysis queues a new website audit. The record starts in pending
// and is processed by the background worker.
func (h *AnalysisHandler) CreateAnalysis(ctx context.Context, input *CreateAnalysisInput) (*CreateAnalysisOutput, error) {
	record, err := h.analysisSvc.StartAnalysis(ctx, service.StartAnalysisInput{
		URL:              input.Body.URL,
		BusinessCategory: models.BusinessCategory(input.Body.BusinessCategory),
		ContactName:      input.Body.ContactName,
		ContactEmail:     input.Body.ContactEmail,
		Locale:           input.Body.Locale,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			return nil, huma.Error400BadRequest("invalid url")
		case errors.Is(err, service.ErrInvalidCategory):
			return nil, huma.Error400BadRequest("invalid business category")
		case errors.Is(err, service.ErrRateLimited):
			return nil, huma.Error429TooManyRequests("daily analysis limit reached, try again tomorrow")
		default:
			return nil, huma.Error500InternalServerError("failed to create analysis: " + err.Error())
		}
	}

	return &CreateAnalysisOutput{
		Status: 201,
		Body:   *record,
	}, nil
}

// ListAnalysesInput represents list query parameters.
type ListAnalysesInput struct {
	Status           string `query:"status" doc:"Filter by lifecycle status (pending, analyzing, completed, failed)"`
	BusinessCategory string `query:"business_category" doc:"Filter by business category (restaurant, retail, services)"`
	Search           string `query:"search" doc:"Substring match on URL, domain, contact name or contact email"`
	Limit            int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset           int    `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListAnalysesOutput represents a page of analyses.
type ListAnalysesOutput struct {
	Body struct {
		Analyses []*models.AnalysisRecord `json:"analyses"`
		Total    int                      `json:"total" doc:"Total matches ignoring pagination"`
		Limit    int                      `json:"limit"`
		Offset   int                      `json:"offset"`
		HasMore  bool                     `json:"has_more"`
	}
}

// ListAnalyses returns analyses matching the filters, newest first.
func (h *AnalysisHandler) ListAnalyses(ctx context.Context, input *ListAnalysesInput) (*ListAnalysesOutput, error) {
	filter := repository.AnalysisFilter{
		Status:           models.AnalysisStatus(input.Status),
		BusinessCategory: models.BusinessCategory(input.BusinessCategory),
		Search:           input.Search,
		Limit:            input.Limit,
		Offset:           input.Offset,
	}

	records, total, err := h.analysisSvc.List(ctx, filter)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list analyses: " + err.Error())
	}
	if records == nil {
		records = []*models.AnalysisRecord{}
	}

	resp := &ListAnalysesOutput{}
	resp.Body.Analyses = records
	resp.Body.Total = total
	resp.Body.Limit = filter.Limit
	resp.Body.Offset = filter.Offset
	resp.Body.HasMore = filter.Offset+len(records) < total
	return resp, nil
}

// GetAnalysisInput represents a single-record lookup.
type GetAnalysisInput struct {
	ID string `path:"id" doc:"Analysis ID (ULID)"`
}

// GetAnalysisOutput represents a single analysis.
type GetAnalysisOutput struct {
	Body models.AnalysisRecord
}

// GetAnalysis returns one analysis by ID.
func (h *AnalysisHandler) GetAnalysis(ctx context.Context, input *GetAnalysisInput) (*GetAnalysisOutput, error) {
	record, err := h.analysisSvc.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return nil, huma.Error404NotFound("analysis not found")
		}
		return nil, huma.Error500InternalServerError("failed to get analysis: " + err.Error())
	}
	return &GetAnalysisOutput{Body: *record}, nil
}

// UpdateAnalysisInput represents a CRM update. Only contact-tracking fields
// are mutable; the audit payload and status never change through this
// endpoint.
type UpdateAnalysisInput struct {
	ID   string `path:"id" doc:"Analysis ID (ULID)"`
	Body struct {
		ContactName     *string `json:"contact_name,omitempty" maxLength:"200"`
		ContactEmail    *string `json:"contact_email,omitempty"`
		ContactStatus   *string `json:"contact_status,omitempty" enum:"not_contacted,contacted,agreed,no_response"`
		Notes           *string `json:"notes,omitempty" maxLength:"10000"`
		MarkEmailSent   bool    `json:"mark_email_sent,omitempty" doc:"Record a manual report delivery"`
		MarkEmailOpened bool    `json:"mark_email_opened,omitempty" doc:"Record that the contact opened the report"`
	}
}

// UpdateAnalysisOutput represents the updated analysis.
type UpdateAnalysisOutput struct {
	Body models.AnalysisRecord
}

// UpdateAnalysis applies a partial CRM update.
func (h *AnalysisHandler) UpdateAnalysis(ctx context.Context, input *UpdateAnalysisInput) (*UpdateAnalysisOutput, error) {
	upd := repository.CRMUpdate{
		ContactName:     input.Body.ContactName,
		ContactEmail:    input.Body.ContactEmail,
		Notes:           input.Body.Notes,
		MarkEmailSent:   input.Body.MarkEmailSent,
		MarkEmailOpened: input.Body.MarkEmailOpened,
	}
	if input.Body.ContactStatus != nil {
		cs := models.ContactStatus(*input.Body.ContactStatus)
		upd.ContactStatus = &cs
	}

	record, err := h.analysisSvc.UpdateCRM(ctx, input.ID, upd)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return nil, huma.Error404NotFound("analysis not found")
		case errors.Is(err, service.ErrInvalidContactStatus):
			return nil, huma.Error400BadRequest("invalid contact status")
		default:
			return nil, huma.Error500InternalServerError("failed to update analysis: " + err.Error())
		}
	}
	return &UpdateAnalysisOutput{Body: *record}, nil
}

// DeleteAnalysisInput represents a deletion request.
type DeleteAnalysisInput struct {
	ID string `path:"id" doc:"Analysis ID (ULID)"`
}

// DeleteAnalysisOutput represents a successful deletion.
type DeleteAnalysisOutput struct {
	Status int
}

// DeleteAnalysis removes an analysis and its audit payload.
func (h *AnalysisHandler) DeleteAnalysis(ctx context.Context, input *DeleteAnalysisInput) (*DeleteAnalysisOutput, error) {
	if err := h.analysisSvc.Delete(ctx, input.ID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return nil, huma.Error404NotFound("analysis not found")
		}
		return nil, huma.Error500InternalServerError("failed to delete analysis: " + err.Error())
	}
	return &DeleteAnalysisOutput{Status: 204}, nil
}

// FindWebsitesInput represents a discovery crawl request.
type FindWebsitesInput struct {
	Body struct {
		SeedURL          string `json:"seed_url" minLength:"1" example:"https://www.restaurant-directory.example" doc:"Directory or listing page to crawl for candidate websites"`
		BusinessCategory string `json:"business_category" enum:"restaurant,retail,services" doc:"Category assigned to discovered sites"`
		Locale           string `json:"locale,omitempty" doc:"Locale assigned to discovered sites"`
		MaxSites         int    `json:"max_sites,omitempty" minimum:"1" maximum:"50" doc:"Maximum new sites to queue"`
	}
}

// DiscoveredAnalysis is one discovery result.
type DiscoveredAnalysis struct {
	Domain     string `json:"domain"`
	URL        string `json:"url"`
	AnalysisID string `json:"analysis_id,omitempty" doc:"Set when a new analysis was queued"`
	Skipped    bool   `json:"skipped" doc:"True when the domain already had an analysis"`
}

// FindWebsitesOutput represents discovery results.
type FindWebsitesOutput struct {
	Body struct {
		Discovered []DiscoveredAnalysis `json:"discovered"`
		Queued     int                  `json:"queued"`
		Skipped    int                  `json:"skipped"`
	}
}

// FindWebsites crawls a seed page for external websites and queues an
// analysis for each domain not seen before. Discovery bypasses the daily
// visitor rate limit.
func (h *AnalysisHandler) FindWebsites(ctx context.Context, input *FindWebsitesInput) (*FindWebsitesOutput, error) {
	category := models.BusinessCategory(input.Body.BusinessCategory)
	if !models.ValidBusinessCategory(category) {
		return nil, huma.Error400BadRequest("invalid business category")
	}

	sites, err := h.discoverySvc.FindWebsites(ctx, input.Body.SeedURL, input.Body.MaxSites)
	if err != nil {
		if errors.Is(err, service.ErrInvalidURL) {
			return nil, huma.Error400BadRequest("invalid seed url")
		}
		return nil, huma.Error500InternalServerError("discovery failed: " + err.Error())
	}

	resp := &FindWebsitesOutput{}
	resp.Body.Discovered = []DiscoveredAnalysis{}
	for _, site := range sites {
		record, skipped, err := h.analysisSvc.EnqueueDiscovered(ctx, site.URL, category, input.Body.Locale)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to queue discovered site: " + err.Error())
		}
		entry := DiscoveredAnalysis{Domain: site.Domain, URL: site.URL, Skipped: skipped}
		if skipped {
			resp.Body.Skipped++
		} else {
			entry.AnalysisID = record.ID
			resp.Body.Queued++
		}
		resp.Body.Discovered = append(resp.Body.Discovered, entry)
	}
	return resp, nil
}

// SendEmailInput represents a report delivery request.
type SendEmailInput struct {
	ID string `path:"id" doc:"Analysis ID (ULID)"`
}

// SendEmailOutput represents the record after delivery.
type SendEmailOutput struct {
	Body models.AnalysisRecord
}

// SendEmail emails the audit report to the record's contact address.
func (h *AnalysisHandler) SendEmail(ctx context.Context, input *SendEmailInput) (*SendEmailOutput, error) {
	record, err := h.emailSvc.SendReport(ctx, input.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return nil, huma.Error404NotFound("analysis not found")
		case errors.Is(err, service.ErrNotCompleted):
			return nil, huma.Error409Conflict("analysis has not completed")
		case errors.Is(err, service.ErrNoContactEmail):
			return nil, huma.Error400BadRequest("analysis has no contact email")
		case errors.Is(err, service.ErrEmailNotConfigured):
			return nil, huma.Error503ServiceUnavailable("email delivery is not configured")
		default:
			return nil, huma.Error500InternalServerError("failed to send report: " + err.Error())
		}
	}
	return &SendEmailOutput{Body: *record}, nil
}

// StatsOutput represents dashboard aggregates.
type StatsOutput struct {
	Body repository.AnalysisStats
}

// Stats returns dashboard aggregates over all analyses.
func (h *AnalysisHandler) Stats(ctx context.Context, input *struct{}) (*StatsOutput, error) {
	stats, err := h.analysisSvc.Stats(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to compute stats: " + err.Error())
	}
	return &StatsOutput{Body: *stats}, nil
}
