package service

import (
	"sort"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

// categoryOrder indexes the canonical category order for sorting, with
// general last.
var categoryOrder = func() map[models.ScoreCategory]int {
	order := make(map[models.ScoreCategory]int, len(models.ScoreCategories)+1)
	for i, c := range models.ScoreCategories {
		order[c] = i
	}
	order[models.ScoreCategoryGeneral] = len(models.ScoreCategories)
	return order
}()

// GenerateFindings evaluates the fixed finding rules against the details and
// breakdown, resolves copy from the locale tables and returns the full list
// sorted by severity (critical first), then canonical category order, then
// rule ID. Callers truncate for display; the generator never does.
//
// "Could not measure" and "measured as absent" deliberately emit distinct
// rules, so the report never tells an owner their site lacks something the
// audit simply failed to check.
func GenerateFindings(d models.AnalysisDetails, score models.ScoreBreakdown, category models.BusinessCategory, locale string) []models.Finding {
	type rule struct {
		category models.ScoreCategory
		severity models.FindingSeverity
		ruleID   string
		matches  bool
	}

	rules := []rule{
		// Speed
		{models.ScoreCategorySpeed, models.SeverityWarning, "speed.not_measured", !d.SpeedMeasured},
		{models.ScoreCategorySpeed, models.SeverityCritical, "speed.slow_load", d.SpeedMeasured && d.LoadTimeMs > 3000},

		// Mobile
		{models.ScoreCategoryMobile, models.SeverityCritical, "mobile.no_viewport", !d.HasViewportMeta},
		{models.ScoreCategoryMobile, models.SeverityWarning, "mobile.no_responsive_hints", d.HasViewportMeta && !d.ResponsiveHints},

		// Security
		{models.ScoreCategorySecurity, models.SeverityWarning, "security.not_measured", !d.SecurityMeasured},
		{models.ScoreCategorySecurity, models.SeverityCritical, "security.no_https", d.SecurityMeasured && !d.HTTPS},
		{models.ScoreCategorySecurity, models.SeverityWarning, "security.no_hsts", d.SecurityMeasured && d.HTTPS && !d.HSTSHeader},
		{models.ScoreCategorySecurity, models.SeverityInfo, "security.missing_headers", d.SecurityMeasured && (!d.ContentTypeOptionsHeader || !d.CSPHeader)},
		{models.ScoreCategorySecurity, models.SeverityCritical, "security.mixed_content", d.SecurityMeasured && d.MixedContent},

		// SEO
		{models.ScoreCategorySEO, models.SeverityCritical, "seo.missing_title", !d.HasTitle},
		{models.ScoreCategorySEO, models.SeverityInfo, "seo.title_length", d.HasTitle && (d.TitleLength < 30 || d.TitleLength > 60)},
		{models.ScoreCategorySEO, models.SeverityWarning, "seo.missing_meta_description", !d.HasMetaDescription},
		{models.ScoreCategorySEO, models.SeverityWarning, "seo.h1_structure", d.H1Count != 1},
		{models.ScoreCategorySEO, models.SeverityWarning, "seo.images_missing_alt", d.ImageCount > 0 && altCoverage(d) < 80},
		{models.ScoreCategorySEO, models.SeverityWarning, "seo.thin_content", d.WordCount < 300},
		{models.ScoreCategorySEO, models.SeverityInfo, "seo.no_structured_data", !d.HasStructuredData},

		// Discoverability
		{models.ScoreCategoryDiscoverability, models.SeverityWarning, "discoverability.not_measured", !d.DiscoverabilityMeasured},
		{models.ScoreCategoryDiscoverability, models.SeverityWarning, "discoverability.no_sitemap", d.DiscoverabilityMeasured && !d.HasSitemap},
		{models.ScoreCategoryDiscoverability, models.SeverityWarning, "discoverability.no_robots", d.DiscoverabilityMeasured && !d.HasRobotsTxt},

		// Design
		{models.ScoreCategoryDesign, models.SeverityInfo, "design.low_visual_structure", score.Design < models.MaxScoreDesign/2},

		// Capability, biased by business type: a missing booking flow is a
		// warning for restaurants and an aside for everyone else.
		{models.ScoreCategoryGeneral, bookingSeverity(category), "general.no_booking", !d.HasBooking},
	}

	var findings []models.Finding
	for _, r := range rules {
		if !r.matches {
			continue
		}
		text := findingText(locale, r.ruleID)
		findings = append(findings, models.Finding{
			Category:    r.category,
			Severity:    r.severity,
			RuleID:      r.ruleID,
			Title:       text.Title,
			Description: text.Description,
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		si, sj := models.SeverityRank(findings[i].Severity), models.SeverityRank(findings[j].Severity)
		if si != sj {
			return si < sj
		}
		ci, cj := categoryOrder[findings[i].Category], categoryOrder[findings[j].Category]
		if ci != cj {
			return ci < cj
		}
		return findings[i].RuleID < findings[j].RuleID
	})

	return findings
}

func bookingSeverity(category models.BusinessCategory) models.FindingSeverity {
	if category == models.BusinessCategoryRestaurant {
		return models.SeverityWarning
	}
	return models.SeverityInfo
}
