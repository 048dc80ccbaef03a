package service

import (
	"github.com/jmylchreest/siteaudit-api/internal/models"
)

// ComputeScore maps AnalysisDetails onto the six-category breakdown. Pure and
// total: every category yields a value in [0, max] even for fallback inputs,
// which score the category floor. Total is always the exact sum.
func ComputeScore(d models.AnalysisDetails) models.ScoreBreakdown {
	s := models.ScoreBreakdown{
		Speed:           scoreSpeed(d),
		Mobile:          scoreMobile(d),
		Security:        scoreSecurity(d),
		SEO:             scoreSEO(d),
		Discoverability: scoreDiscoverability(d),
		Design:          scoreDesign(d),
	}
	s.Total = s.Speed + s.Mobile + s.Security + s.SEO + s.Discoverability + s.Design
	return s
}

// scoreSpeed scales the 0-100 speed score onto the category weight.
// An unmeasured speed check scores the floor.
func scoreSpeed(d models.AnalysisDetails) int {
	if !d.SpeedMeasured {
		return 0
	}
	score := d.SpeedScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score * models.MaxScoreSpeed / 100
}

// scoreMobile: viewport meta 10, responsive layout hints 5.
func scoreMobile(d models.AnalysisDetails) int {
	score := 0
	if d.HasViewportMeta {
		score += 10
	}
	if d.ResponsiveHints {
		score += 5
	}
	return score
}

// scoreSecurity awards fixed increments: HTTPS 5, HSTS 2, nosniff 1, CSP 1,
// no mixed content 1. An unmeasured security check scores the floor.
func scoreSecurity(d models.AnalysisDetails) int {
	if !d.SecurityMeasured {
		return 0
	}
	score := 0
	if d.HTTPS {
		score += 5
	}
	if d.HSTSHeader {
		score += 2
	}
	if d.ContentTypeOptionsHeader {
		score++
	}
	if d.CSPHeader {
		score++
	}
	if !d.MixedContent {
		score++
	}
	return score
}

// scoreSEO awards fixed increments over the on-page elements.
func scoreSEO(d models.AnalysisDetails) int {
	score := 0
	if d.HasTitle {
		score += 3
		if d.TitleLength >= 30 && d.TitleLength <= 60 {
			score += 2
		}
	}
	if d.HasMetaDescription {
		score += 3
		if d.MetaDescriptionLength >= 120 && d.MetaDescriptionLength <= 160 {
			score += 2
		}
	}
	switch {
	case d.H1Count == 1:
		score += 3
	case d.H1Count > 1:
		score++
	}
	if d.HeadingCount >= 3 {
		score += 2
	}
	if d.HasStructuredData {
		score += 2
	}
	if d.ImageCount > 0 && altCoverage(d) >= 80 {
		score += 2
	}
	if d.WordCount >= 300 {
		score++
	}
	return score
}

// scoreDiscoverability: sitemap 7, robots.txt 5, parseable robots 3.
// An unmeasured check scores the floor.
func scoreDiscoverability(d models.AnalysisDetails) int {
	if !d.DiscoverabilityMeasured {
		return 0
	}
	score := 0
	if d.HasSitemap {
		score += 7
	}
	if d.HasRobotsTxt {
		score += 5
		if d.RobotsValid {
			score += 3
		}
	}
	return score
}

// scoreDesign grades visual structure: viewport 4, responsive 3, imagery 3,
// alt coverage 2, heading structure 4, sufficient content 4.
func scoreDesign(d models.AnalysisDetails) int {
	score := 0
	if d.HasViewportMeta {
		score += 4
	}
	if d.ResponsiveHints {
		score += 3
	}
	if d.ImageCount > 0 {
		score += 3
	}
	if d.ImageCount > 0 && altCoverage(d) >= 50 {
		score += 2
	}
	if d.HeadingCount >= 3 {
		score += 4
	}
	if d.WordCount >= 150 {
		score += 4
	}
	return score
}

// altCoverage returns the percentage of images carrying alt text.
// A page without images reports full coverage so it is never flagged;
// the score credits for coverage are gated on ImageCount at the callers.
func altCoverage(d models.AnalysisDetails) int {
	if d.ImageCount == 0 {
		return 100
	}
	return d.ImagesWithAlt * 100 / d.ImageCount
}
