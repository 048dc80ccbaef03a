package service

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

// Score bands for the package tier decision table.
const (
	healthyScore  = 80 // at or above: the site only needs upkeep
	criticalScore = 40 // below: the site needs a rebuild
)

// Recommend selects the commercial package tier from the score breakdown,
// the business category and the booking-capability flag, and assembles the
// localized narrative. Deterministic: a fixed input always yields the same
// tier and text.
//
// Decision table:
//   - total >= 80                                   -> basic
//   - total < 40, retail                            -> enterprise
//   - total < 40, restaurant without online booking -> enterprise
//   - everything else                               -> premium
func Recommend(score models.ScoreBreakdown, category models.BusinessCategory, hasBooking bool, locale string) models.Recommendation {
	tier := models.PackageTierPremium
	switch {
	case score.Total >= healthyScore:
		tier = models.PackageTierBasic
	case score.Total < criticalScore && category == models.BusinessCategoryRetail:
		// Retail sites carry catalogs and inventory; a rebuild at this score
		// is a large project.
		tier = models.PackageTierEnterprise
	case score.Total < criticalScore && category == models.BusinessCategoryRestaurant && !hasBooking:
		// A full rebuild plus a reservation system.
		tier = models.PackageTierEnterprise
	}

	return models.Recommendation{
		PackageTier: tier,
		Text:        fmt.Sprintf(recommendationIntro(locale, tier), weakAreasSuffix(score, locale)),
	}
}

// weakAreasSuffix names the categories scoring below half their maximum, in
// canonical order, as a localized fragment. Empty when nothing is weak.
func weakAreasSuffix(score models.ScoreBreakdown, locale string) string {
	var labels []string
	for _, c := range models.ScoreCategories {
		if score.Get(c) < models.MaxScore(c)/2 {
			labels = append(labels, categoryLabel(locale, c))
		}
	}
	if len(labels) == 0 {
		return ""
	}
	return weakAreasPrefix[normalizeLocale(locale)] + strings.Join(labels, ", ")
}
