// Package models defines the domain models for the application.
package models

import (
	"fmt"
	"time"
)

// AnalysisStatus represents the lifecycle state of an analysis.
// Transitions are strictly forward-only: pending -> analyzing -> completed|failed.
type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusAnalyzing AnalysisStatus = "analyzing"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// IsTerminal returns true once the pipeline can no longer touch the record.
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// ValidAnalysisStatus reports whether s is a known lifecycle state.
func ValidAnalysisStatus(s AnalysisStatus) bool {
	switch s {
	case AnalysisStatusPending, AnalysisStatusAnalyzing, AnalysisStatusCompleted, AnalysisStatusFailed:
		return true
	}
	return false
}

// BusinessCategory is the closed classification of the audited site's industry.
type BusinessCategory string

const (
	BusinessCategoryRestaurant BusinessCategory = "restaurant"
	BusinessCategoryRetail     BusinessCategory = "retail"
	BusinessCategoryServices   BusinessCategory = "services"
)

// BusinessCategories lists every valid category, in display order.
var BusinessCategories = []BusinessCategory{
	BusinessCategoryRestaurant,
	BusinessCategoryRetail,
	BusinessCategoryServices,
}

// ValidBusinessCategory reports whether c is a member of the closed set.
func ValidBusinessCategory(c BusinessCategory) bool {
	for _, v := range BusinessCategories {
		if c == v {
			return true
		}
	}
	return false
}

// ContactStatus tracks the outreach workflow on a completed analysis.
type ContactStatus string

const (
	ContactStatusNotContacted ContactStatus = "not_contacted"
	ContactStatusContacted    ContactStatus = "contacted"
	ContactStatusAgreed       ContactStatus = "agreed"
	ContactStatusNoResponse   ContactStatus = "no_response"
)

// ValidContactStatus reports whether s is a known contact workflow state.
func ValidContactStatus(s ContactStatus) bool {
	switch s {
	case ContactStatusNotContacted, ContactStatusContacted, ContactStatusAgreed, ContactStatusNoResponse:
		return true
	}
	return false
}

// ScoreCategory names one of the six weighted scoring categories.
type ScoreCategory string

const (
	ScoreCategorySpeed           ScoreCategory = "speed"
	ScoreCategoryMobile          ScoreCategory = "mobile"
	ScoreCategorySecurity        ScoreCategory = "security"
	ScoreCategorySEO             ScoreCategory = "seo"
	ScoreCategoryDiscoverability ScoreCategory = "discoverability"
	ScoreCategoryDesign          ScoreCategory = "design"
	// ScoreCategoryGeneral is only valid on findings, never on subscores.
	ScoreCategoryGeneral ScoreCategory = "general"
)

// Maximum subscore per category. The six maxima sum to 100.
const (
	MaxScoreSpeed           = 20
	MaxScoreMobile          = 15
	MaxScoreSecurity        = 10
	MaxScoreSEO             = 20
	MaxScoreDiscoverability = 15
	MaxScoreDesign          = 20
)

// ScoreCategories lists the scoring categories in canonical order.
// Findings are sorted by this order within a severity band.
var ScoreCategories = []ScoreCategory{
	ScoreCategorySpeed,
	ScoreCategoryMobile,
	ScoreCategorySecurity,
	ScoreCategorySEO,
	ScoreCategoryDiscoverability,
	ScoreCategoryDesign,
}

// MaxScore returns the maximum subscore for a category (0 for general).
func MaxScore(c ScoreCategory) int {
	switch c {
	case ScoreCategorySpeed:
		return MaxScoreSpeed
	case ScoreCategoryMobile:
		return MaxScoreMobile
	case ScoreCategorySecurity:
		return MaxScoreSecurity
	case ScoreCategorySEO:
		return MaxScoreSEO
	case ScoreCategoryDiscoverability:
		return MaxScoreDiscoverability
	case ScoreCategoryDesign:
		return MaxScoreDesign
	}
	return 0
}

// ScoreBreakdown is the six-category weighted quality score.
// Invariant: each subscore is within [0, its max] and Total is their exact sum.
type ScoreBreakdown struct {
	Speed           int `json:"speed"`
	Mobile          int `json:"mobile"`
	Security        int `json:"security"`
	SEO             int `json:"seo"`
	Discoverability int `json:"discoverability"`
	Design          int `json:"design"`
	Total           int `json:"total"`
}

// Get returns the subscore for a category (0 for general).
func (s ScoreBreakdown) Get(c ScoreCategory) int {
	switch c {
	case ScoreCategorySpeed:
		return s.Speed
	case ScoreCategoryMobile:
		return s.Mobile
	case ScoreCategorySecurity:
		return s.Security
	case ScoreCategorySEO:
		return s.SEO
	case ScoreCategoryDiscoverability:
		return s.Discoverability
	case ScoreCategoryDesign:
		return s.Design
	}
	return 0
}

// Validate checks the breakdown invariants.
func (s ScoreBreakdown) Validate() error {
	sum := 0
	for _, c := range ScoreCategories {
		v := s.Get(c)
		if v < 0 || v > MaxScore(c) {
			return fmt.Errorf("subscore %s=%d outside [0,%d]", c, v, MaxScore(c))
		}
		sum += v
	}
	if s.Total != sum {
		return fmt.Errorf("total %d does not equal subscore sum %d", s.Total, sum)
	}
	return nil
}

// AnalysisDetails is the flat structured snapshot produced by the feature
// extractor from the collector outputs. Immutable once produced.
type AnalysisDetails struct {
	// Speed signals
	LoadTimeMs    int64 `json:"load_time_ms"`
	SpeedScore    int   `json:"speed_score"` // 0-100 derived speed score
	SpeedMeasured bool  `json:"speed_measured"`

	// Security signals
	HTTPS                    bool `json:"https"`
	HSTSHeader               bool `json:"hsts_header"`
	ContentTypeOptionsHeader bool `json:"content_type_options_header"`
	CSPHeader                bool `json:"csp_header"`
	MixedContent             bool `json:"mixed_content"`
	SecurityMeasured         bool `json:"security_measured"`

	// Mobile signals
	HasViewportMeta bool `json:"has_viewport_meta"`
	ResponsiveHints bool `json:"responsive_hints"`

	// SEO / document structure signals
	HasTitle              bool `json:"has_title"`
	TitleLength           int  `json:"title_length"`
	HasMetaDescription    bool `json:"has_meta_description"`
	MetaDescriptionLength int  `json:"meta_description_length"`
	H1Count               int  `json:"h1_count"`
	HeadingCount          int  `json:"heading_count"`
	HasStructuredData     bool `json:"has_structured_data"`
	ImageCount            int  `json:"image_count"`
	ImagesWithAlt         int  `json:"images_with_alt"`
	WordCount             int  `json:"word_count"`

	// Discoverability signals
	HasSitemap              bool `json:"has_sitemap"`
	HasRobotsTxt            bool `json:"has_robots_txt"`
	RobotsValid             bool `json:"robots_valid"`
	DiscoverabilityMeasured bool `json:"discoverability_measured"`

	// Capability flags
	HasBooking bool `json:"has_booking"`
}

// FindingSeverity classifies how urgent a finding is.
type FindingSeverity string

const (
	SeverityCritical FindingSeverity = "critical"
	SeverityWarning  FindingSeverity = "warning"
	SeverityInfo     FindingSeverity = "info"
)

// SeverityRank orders severities for sorting, critical first.
func SeverityRank(s FindingSeverity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

// ValidFindingSeverity reports whether s is a known severity.
func ValidFindingSeverity(s FindingSeverity) bool {
	return SeverityRank(s) < 3
}

// Finding is one localized, severity-tagged observation about the audited
// site. Findings are regenerated with their parent analysis, never persisted
// on their own.
type Finding struct {
	Category    ScoreCategory   `json:"category"`
	Severity    FindingSeverity `json:"severity"`
	RuleID      string          `json:"rule_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
}

// PackageTier is the commercial offering recommended from the score breakdown.
type PackageTier string

const (
	PackageTierBasic      PackageTier = "basic"
	PackageTierPremium    PackageTier = "premium"
	PackageTierEnterprise PackageTier = "enterprise"
)

// ValidPackageTier reports whether t is a known tier.
func ValidPackageTier(t PackageTier) bool {
	switch t {
	case PackageTierBasic, PackageTierPremium, PackageTierEnterprise:
		return true
	}
	return false
}

// Recommendation is the package tier decision plus its localized narrative.
type Recommendation struct {
	PackageTier PackageTier `json:"package_tier"`
	Text        string      `json:"text"`
}

// AnalysisRecord is one full audit run against a single URL, plus the CRM
// fields tracked for sales follow-up. The pipeline owns the record until it
// reaches a terminal status; afterwards only the CRM fields may change.
type AnalysisRecord struct {
	ID               string           `json:"id"`
	URL              string           `json:"url"`
	Domain           string           `json:"domain"`
	BusinessCategory BusinessCategory `json:"business_category"`
	Status           AnalysisStatus   `json:"status"`
	Locale           string           `json:"locale"`
	ErrorMessage     string           `json:"error_message,omitempty"`

	// Audit payload, set only when Status is completed.
	Score          *ScoreBreakdown  `json:"score,omitempty"`
	Details        *AnalysisDetails `json:"details,omitempty"`
	Findings       []Finding        `json:"findings,omitempty"`
	Recommendation *Recommendation  `json:"recommendation,omitempty"`

	// CRM fields, mutable after the analysis is terminal.
	ContactName   string        `json:"contact_name,omitempty"`
	ContactEmail  string        `json:"contact_email,omitempty"`
	ContactStatus ContactStatus `json:"contact_status"`
	EmailSent     bool          `json:"email_sent"`
	EmailSentAt   *time.Time    `json:"email_sent_at,omitempty"`
	EmailOpened   bool          `json:"email_opened"`
	EmailOpenedAt *time.Time    `json:"email_opened_at,omitempty"`
	Notes         string        `json:"notes,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
}
