package service

import (
	"sort"
	"testing"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

func TestGenerateFindingsHealthySite(t *testing.T) {
	d := healthyDetails()
	score := ComputeScore(d)

	findings := GenerateFindings(d, score, models.BusinessCategoryRestaurant, "en")

	if len(findings) != 0 {
		t.Errorf("expected no findings for a healthy site, got %d: %+v", len(findings), findings)
	}
}

func TestGenerateFindingsEmptySite(t *testing.T) {
	d := models.AnalysisDetails{}
	score := ComputeScore(d)

	findings := GenerateFindings(d, score, models.BusinessCategoryServices, "en")
	if len(findings) == 0 {
		t.Fatal("expected findings for an empty site")
	}

	byRule := make(map[string]models.Finding)
	for _, f := range findings {
		byRule[f.RuleID] = f
	}

	// Unmeasured categories emit "not measured" rules, never "absent" ones.
	for _, want := range []string{"speed.not_measured", "security.not_measured", "discoverability.not_measured"} {
		if _, ok := byRule[want]; !ok {
			t.Errorf("missing finding %s", want)
		}
	}
	for _, reject := range []string{"security.no_https", "discoverability.no_sitemap", "speed.slow_load"} {
		if _, ok := byRule[reject]; ok {
			t.Errorf("finding %s must not fire when the category was not measured", reject)
		}
	}

	if f, ok := byRule["mobile.no_viewport"]; !ok {
		t.Error("missing finding mobile.no_viewport")
	} else if f.Severity != models.SeverityCritical {
		t.Errorf("mobile.no_viewport severity = %s, want critical", f.Severity)
	}
}

func TestGenerateFindingsSortedBySeverityThenCategory(t *testing.T) {
	d := models.AnalysisDetails{
		SpeedMeasured:           true,
		LoadTimeMs:              4500,
		SpeedScore:              30,
		SecurityMeasured:        true,
		DiscoverabilityMeasured: true,
	}
	score := ComputeScore(d)

	findings := GenerateFindings(d, score, models.BusinessCategoryRetail, "en")
	if len(findings) < 3 {
		t.Fatalf("expected several findings, got %d", len(findings))
	}

	sorted := sort.SliceIsSorted(findings, func(i, j int) bool {
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
	if !sorted {
		t.Errorf("findings not sorted by severity, category, rule: %+v", findings)
	}

	if findings[0].Severity != models.SeverityCritical {
		t.Errorf("first finding severity = %s, want critical", findings[0].Severity)
	}
}

func TestGenerateFindingsBookingSeverityByCategory(t *testing.T) {
	d := healthyDetails()
	d.HasBooking = false
	score := ComputeScore(d)

	tests := []struct {
		category models.BusinessCategory
		want     models.FindingSeverity
	}{
		{models.BusinessCategoryRestaurant, models.SeverityWarning},
		{models.BusinessCategoryRetail, models.SeverityInfo},
		{models.BusinessCategoryServices, models.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			findings := GenerateFindings(d, score, tt.category, "en")
			var booking *models.Finding
			for i := range findings {
				if findings[i].RuleID == "general.no_booking" {
					booking = &findings[i]
				}
			}
			if booking == nil {
				t.Fatal("missing general.no_booking finding")
			}
			if booking.Severity != tt.want {
				t.Errorf("severity = %s, want %s", booking.Severity, tt.want)
			}
			if booking.Category != models.ScoreCategoryGeneral {
				t.Errorf("category = %s, want general", booking.Category)
			}
		})
	}
}

func TestGenerateFindingsLocalized(t *testing.T) {
	d := models.AnalysisDetails{}
	score := ComputeScore(d)

	en := GenerateFindings(d, score, models.BusinessCategoryServices, "en")
	de := GenerateFindings(d, score, models.BusinessCategoryServices, "de")

	if len(en) != len(de) {
		t.Fatalf("locale changed the rule set: en=%d de=%d", len(en), len(de))
	}
	for i := range en {
		if en[i].RuleID != de[i].RuleID {
			t.Errorf("rule order differs at %d: %s vs %s", i, en[i].RuleID, de[i].RuleID)
		}
		if en[i].Title == de[i].Title {
			t.Errorf("%s: identical copy across locales: %q", en[i].RuleID, en[i].Title)
		}
		if de[i].Title == "" || de[i].Description == "" {
			t.Errorf("%s: empty de copy", de[i].RuleID)
		}
	}
}

func TestGenerateFindingsUnknownLocaleFallsBack(t *testing.T) {
	d := models.AnalysisDetails{}
	score := ComputeScore(d)

	en := GenerateFindings(d, score, models.BusinessCategoryServices, "en")
	fr := GenerateFindings(d, score, models.BusinessCategoryServices, "fr")
	regional := GenerateFindings(d, score, models.BusinessCategoryServices, "de-AT")
	de := GenerateFindings(d, score, models.BusinessCategoryServices, "de")

	for i := range en {
		if fr[i].Title != en[i].Title {
			t.Errorf("fr should fall back to en for %s", en[i].RuleID)
		}
		if regional[i].Title != de[i].Title {
			t.Errorf("de-AT should resolve to de for %s", de[i].RuleID)
		}
	}
}

// Every rule the generator can emit must have copy in every locale table.
func TestFindingTextsCoverAllRules(t *testing.T) {
	ruleIDs := collectAllRuleIDs()
	if len(ruleIDs) == 0 {
		t.Fatal("no rules collected")
	}
	for locale, table := range findingTexts {
		for _, id := range ruleIDs {
			text, ok := table[id]
			if !ok {
				t.Errorf("locale %s missing copy for %s", locale, id)
				continue
			}
			if text.Title == "" || text.Description == "" {
				t.Errorf("locale %s has empty copy for %s", locale, id)
			}
		}
	}
}

// collectAllRuleIDs drives the generator over inputs that trigger every rule.
func collectAllRuleIDs() []string {
	seen := make(map[string]bool)
	inputs := []models.AnalysisDetails{
		{},
		{SpeedMeasured: true, LoadTimeMs: 9000, SecurityMeasured: true, DiscoverabilityMeasured: true},
		{SpeedMeasured: true, SecurityMeasured: true, HTTPS: true, MixedContent: true, DiscoverabilityMeasured: true, HasViewportMeta: true},
		{HasTitle: true, TitleLength: 5, ImageCount: 10, ImagesWithAlt: 1, H1Count: 3},
	}
	for _, d := range inputs {
		score := ComputeScore(d)
		for _, f := range GenerateFindings(d, score, models.BusinessCategoryRestaurant, "en") {
			seen[f.RuleID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
