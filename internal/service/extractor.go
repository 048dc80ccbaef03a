package service

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

// bookingHints are the structural/textual heuristics for detecting an online
// booking or reservation capability. Matched case-insensitively against link
// targets, element ids/classes and visible link text.
var bookingHints = []string{
	"book", "booking", "reserve", "reservation", "reservierung",
	"appointment", "termin", "opentable", "resmio", "quandoo",
	"calendly", "bokun", "regiondo",
}

// ExtractDetails parses raw HTML plus the collector outputs into the flat
// AnalysisDetails snapshot. Pure: no network access, deterministic for
// identical inputs.
func ExtractDetails(html string, res CollectorResults) models.AnalysisDetails {
	details := models.AnalysisDetails{
		LoadTimeMs:               res.Speed.LoadTimeMs,
		SpeedScore:               res.Speed.Score,
		SpeedMeasured:            res.Speed.Measured,
		HTTPS:                    res.Security.HTTPS,
		HSTSHeader:               res.Security.HSTSHeader,
		ContentTypeOptionsHeader: res.Security.ContentTypeOptions,
		CSPHeader:                res.Security.CSPHeader,
		SecurityMeasured:         res.Security.Measured,
		HasSitemap:               res.Discoverability.HasSitemap,
		HasRobotsTxt:             res.Discoverability.HasRobotsTxt,
		RobotsValid:              res.Discoverability.RobotsValid,
		DiscoverabilityMeasured:  res.Discoverability.Measured,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return details
	}

	// Title and meta description
	title := strings.TrimSpace(doc.Find("title").First().Text())
	details.HasTitle = title != ""
	details.TitleLength = len([]rune(title))

	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		desc = strings.TrimSpace(desc)
		details.HasMetaDescription = desc != ""
		details.MetaDescriptionLength = len([]rune(desc))
	}

	// Heading structure
	details.H1Count = doc.Find("h1").Length()
	details.HeadingCount = doc.Find("h1, h2, h3, h4, h5, h6").Length()

	// Viewport and responsive hints
	if viewport, ok := doc.Find("meta[name='viewport']").Attr("content"); ok {
		details.HasViewportMeta = strings.Contains(viewport, "width=device-width")
	}
	details.ResponsiveHints = hasResponsiveHints(doc, html)

	// Structured data
	details.HasStructuredData = doc.Find("script[type='application/ld+json']").Length() > 0 ||
		doc.Find("[itemscope]").Length() > 0

	// Images and alt coverage
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		details.ImageCount++
		if alt, ok := sel.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			details.ImagesWithAlt++
		}
	})

	// Visible word count
	bodyText := doc.Find("body").Text()
	details.WordCount = len(strings.Fields(bodyText))

	// Mixed content: an https page loading subresources over plain http
	if details.HTTPS {
		details.MixedContent = hasMixedContent(doc)
	}

	details.HasBooking = detectBooking(doc)

	return details
}

// hasResponsiveHints looks for signs of a responsive layout beyond the
// viewport meta: media queries, srcset images or common responsive frameworks.
func hasResponsiveHints(doc *goquery.Document, html string) bool {
	if strings.Contains(html, "@media") {
		return true
	}
	if doc.Find("img[srcset], source[srcset]").Length() > 0 {
		return true
	}
	if doc.Find("link[href*='bootstrap'], link[href*='tailwind']").Length() > 0 {
		return true
	}
	found := false
	doc.Find("link[media]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if media, ok := sel.Attr("media"); ok && strings.Contains(media, "max-width") {
			found = true
			return false
		}
		return true
	})
	return found
}

// hasMixedContent reports whether any subresource is referenced over plain http.
func hasMixedContent(doc *goquery.Document) bool {
	mixed := false
	doc.Find("img[src], script[src], link[href], iframe[src], source[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		ref, ok := sel.Attr("src")
		if !ok {
			ref, _ = sel.Attr("href")
		}
		if strings.HasPrefix(ref, "http://") {
			mixed = true
			return false
		}
		return true
	})
	return mixed
}

// detectBooking applies the fixed booking heuristics.
func detectBooking(doc *goquery.Document) bool {
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if matchesBookingHint(href) || matchesBookingHint(sel.Text()) {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}
	doc.Find("form, div, section, button, iframe").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		id, _ := sel.Attr("id")
		class, _ := sel.Attr("class")
		src, _ := sel.Attr("src")
		if matchesBookingHint(id) || matchesBookingHint(class) || matchesBookingHint(src) {
			found = true
			return false
		}
		return true
	})
	return found
}

func matchesBookingHint(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, hint := range bookingHints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}
