package service

import (
	"testing"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

// healthyDetails is a fully measured page that does everything right.
func healthyDetails() models.AnalysisDetails {
	return models.AnalysisDetails{
		LoadTimeMs:    800,
		SpeedScore:    100,
		SpeedMeasured: true,

		HTTPS:                    true,
		HSTSHeader:               true,
		ContentTypeOptionsHeader: true,
		CSPHeader:                true,
		SecurityMeasured:         true,

		HasViewportMeta: true,
		ResponsiveHints: true,

		HasTitle:              true,
		TitleLength:           45,
		HasMetaDescription:    true,
		MetaDescriptionLength: 140,
		H1Count:               1,
		HeadingCount:          8,
		HasStructuredData:     true,
		ImageCount:            10,
		ImagesWithAlt:         10,
		WordCount:             600,

		HasSitemap:              true,
		HasRobotsTxt:            true,
		RobotsValid:             true,
		DiscoverabilityMeasured: true,

		HasBooking: true,
	}
}

func TestComputeScorePerfectSite(t *testing.T) {
	score := ComputeScore(healthyDetails())

	if score.Speed != models.MaxScoreSpeed {
		t.Errorf("Speed = %d, want %d", score.Speed, models.MaxScoreSpeed)
	}
	if score.Mobile != models.MaxScoreMobile {
		t.Errorf("Mobile = %d, want %d", score.Mobile, models.MaxScoreMobile)
	}
	if score.Security != models.MaxScoreSecurity {
		t.Errorf("Security = %d, want %d", score.Security, models.MaxScoreSecurity)
	}
	if score.SEO != models.MaxScoreSEO {
		t.Errorf("SEO = %d, want %d", score.SEO, models.MaxScoreSEO)
	}
	if score.Discoverability != models.MaxScoreDiscoverability {
		t.Errorf("Discoverability = %d, want %d", score.Discoverability, models.MaxScoreDiscoverability)
	}
	if score.Design != models.MaxScoreDesign {
		t.Errorf("Design = %d, want %d", score.Design, models.MaxScoreDesign)
	}
	if score.Total != 100 {
		t.Errorf("Total = %d, want 100", score.Total)
	}
}

func TestComputeScoreEmptyDetails(t *testing.T) {
	score := ComputeScore(models.AnalysisDetails{})

	for _, c := range models.ScoreCategories {
		if v := score.Get(c); v != 0 {
			t.Errorf("%s = %d, want 0", c, v)
		}
	}
	if score.Total != 0 {
		t.Errorf("Total = %d, want 0", score.Total)
	}
}

func TestComputeScoreBoundsAndSum(t *testing.T) {
	// A spread of partial inputs; every breakdown must validate and the
	// total must always be the exact sum of the subscores.
	variants := []models.AnalysisDetails{
		healthyDetails(),
		{},
		{SpeedMeasured: true, SpeedScore: 150},
		{SpeedMeasured: true, SpeedScore: -5},
		{SecurityMeasured: true, HTTPS: true, MixedContent: true},
		{HasViewportMeta: true, WordCount: 200, ImageCount: 4, ImagesWithAlt: 1},
		{DiscoverabilityMeasured: true, HasRobotsTxt: true},
		{HasTitle: true, TitleLength: 5, H1Count: 3, HeadingCount: 12},
	}

	for i, d := range variants {
		score := ComputeScore(d)
		if err := score.Validate(); err != nil {
			t.Errorf("variant %d: %v", i, err)
		}
		sum := score.Speed + score.Mobile + score.Security + score.SEO + score.Discoverability + score.Design
		if score.Total != sum {
			t.Errorf("variant %d: Total = %d, want sum %d", i, score.Total, sum)
		}
	}
}

func TestComputeScoreUnmeasuredCategoriesScoreFloor(t *testing.T) {
	d := healthyDetails()
	d.SpeedMeasured = false
	d.SecurityMeasured = false
	d.DiscoverabilityMeasured = false

	score := ComputeScore(d)
	if score.Speed != 0 {
		t.Errorf("Speed = %d, want 0 when unmeasured", score.Speed)
	}
	if score.Security != 0 {
		t.Errorf("Security = %d, want 0 when unmeasured", score.Security)
	}
	if score.Discoverability != 0 {
		t.Errorf("Discoverability = %d, want 0 when unmeasured", score.Discoverability)
	}
	// The page-derived categories are unaffected.
	if score.Mobile != models.MaxScoreMobile || score.SEO != models.MaxScoreSEO || score.Design != models.MaxScoreDesign {
		t.Errorf("page-derived categories changed: mobile=%d seo=%d design=%d", score.Mobile, score.SEO, score.Design)
	}
}

func TestComputeScoreDeterministic(t *testing.T) {
	d := healthyDetails()
	first := ComputeScore(d)
	for i := 0; i < 10; i++ {
		if got := ComputeScore(d); got != first {
			t.Fatalf("run %d: score changed: %+v != %+v", i, got, first)
		}
	}
}

func TestScoreSEOHeadingVariants(t *testing.T) {
	tests := []struct {
		name    string
		h1Count int
		want    int
	}{
		{"no h1", 0, 0},
		{"single h1", 1, 3},
		{"multiple h1", 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := models.AnalysisDetails{H1Count: tt.h1Count}
			if got := scoreSEO(d); got != tt.want {
				t.Errorf("scoreSEO = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAltCoverageNoImages(t *testing.T) {
	if got := altCoverage(models.AnalysisDetails{}); got != 100 {
		t.Errorf("altCoverage = %d, want 100 for image-free page", got)
	}
	if got := altCoverage(models.AnalysisDetails{ImageCount: 4, ImagesWithAlt: 1}); got != 25 {
		t.Errorf("altCoverage = %d, want 25", got)
	}
}

func TestAltCreditsRequireImages(t *testing.T) {
	// An image-free page earns no alt-coverage points even though the
	// coverage ratio itself reads as full.
	if got := scoreSEO(models.AnalysisDetails{WordCount: 300}); got != 1 {
		t.Errorf("scoreSEO = %d, want 1 for image-free page", got)
	}
	if got := scoreDesign(models.AnalysisDetails{WordCount: 150}); got != 4 {
		t.Errorf("scoreDesign = %d, want 4 for image-free page", got)
	}

	withAlt := models.AnalysisDetails{ImageCount: 2, ImagesWithAlt: 2}
	if got := scoreSEO(withAlt); got != 2 {
		t.Errorf("scoreSEO = %d, want 2 with full alt coverage", got)
	}
}
