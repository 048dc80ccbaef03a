package service

import (
	"strings"

	"github.com/jmylchreest/siteaudit-api/internal/models"
)

// Localized copy for findings and recommendations. Text is always selected by
// key, never assembled from free-form concatenation, so adding a language is a
// data change only.

// localeText is one finding's copy in a single language.
type localeText struct {
	Title       string
	Description string
}

// findingTexts maps locale -> rule ID -> copy.
var findingTexts = map[string]map[string]localeText{
	"en": {
		"speed.slow_load": {
			Title:       "Slow page load",
			Description: "The page takes noticeably long to load. Visitors abandon slow sites, and search engines rank them lower.",
		},
		"speed.not_measured": {
			Title:       "Page speed could not be measured",
			Description: "The speed check did not complete, so load performance is unknown and scored conservatively.",
		},
		"mobile.no_viewport": {
			Title:       "Not optimized for mobile",
			Description: "The page has no viewport configuration, so it will not scale properly on phones and tablets.",
		},
		"mobile.no_responsive_hints": {
			Title:       "No responsive layout detected",
			Description: "The page shows no signs of a responsive layout. Mobile visitors likely see a desktop page.",
		},
		"security.no_https": {
			Title:       "No HTTPS encryption",
			Description: "The site is served without HTTPS. Browsers flag it as not secure and visitors lose trust.",
		},
		"security.no_hsts": {
			Title:       "Strict transport security missing",
			Description: "The site does not send an HSTS header, leaving visitors open to downgrade attacks.",
		},
		"security.missing_headers": {
			Title:       "Security headers missing",
			Description: "Baseline security headers such as Content-Security-Policy are not set.",
		},
		"security.mixed_content": {
			Title:       "Mixed content on a secure page",
			Description: "The page is served over HTTPS but loads some resources over plain HTTP.",
		},
		"security.not_measured": {
			Title:       "Security checks could not be completed",
			Description: "The security check did not complete, so the security posture is unknown and scored conservatively.",
		},
		"seo.missing_title": {
			Title:       "Page title missing",
			Description: "The page has no title tag. The title is the single most important on-page SEO element.",
		},
		"seo.title_length": {
			Title:       "Page title length not ideal",
			Description: "The title should be between 30 and 60 characters to display fully in search results.",
		},
		"seo.missing_meta_description": {
			Title:       "Meta description missing",
			Description: "Without a meta description, search engines pick an arbitrary snippet for the result.",
		},
		"seo.h1_structure": {
			Title:       "Heading structure needs work",
			Description: "The page should have exactly one H1 heading followed by a clear heading hierarchy.",
		},
		"seo.images_missing_alt": {
			Title:       "Images without alternative text",
			Description: "Several images have no alt text, which hurts both accessibility and image search ranking.",
		},
		"seo.thin_content": {
			Title:       "Very little text content",
			Description: "The page carries little text. Search engines need content to understand what the business offers.",
		},
		"seo.no_structured_data": {
			Title:       "No structured data",
			Description: "Structured data (schema.org) helps search engines show rich results such as opening hours and ratings.",
		},
		"discoverability.no_sitemap": {
			Title:       "No sitemap.xml",
			Description: "A sitemap helps search engines find every page of the site.",
		},
		"discoverability.no_robots": {
			Title:       "No robots.txt",
			Description: "A robots.txt file tells search engine crawlers how to index the site.",
		},
		"discoverability.not_measured": {
			Title:       "Discoverability could not be checked",
			Description: "The sitemap and robots.txt checks did not complete, so discoverability is unknown and scored conservatively.",
		},
		"design.low_visual_structure": {
			Title:       "Sparse page structure",
			Description: "The page has little visual structure (headings, imagery, content sections), which makes it look dated.",
		},
		"general.no_booking": {
			Title:       "No online booking found",
			Description: "Visitors cannot book or reserve online. An integrated booking flow converts visitors directly into customers.",
		},
	},
	"de": {
		"speed.slow_load": {
			Title:       "Langsame Ladezeit",
			Description: "Die Seite lädt spürbar langsam. Besucher springen bei langsamen Seiten ab, und Suchmaschinen stufen sie schlechter ein.",
		},
		"speed.not_measured": {
			Title:       "Ladezeit konnte nicht gemessen werden",
			Description: "Die Geschwindigkeitsmessung wurde nicht abgeschlossen. Die Ladeleistung ist unbekannt und wird vorsichtig bewertet.",
		},
		"mobile.no_viewport": {
			Title:       "Nicht für Mobilgeräte optimiert",
			Description: "Der Seite fehlt die Viewport-Konfiguration, sie skaliert auf Smartphones und Tablets nicht korrekt.",
		},
		"mobile.no_responsive_hints": {
			Title:       "Kein responsives Layout erkannt",
			Description: "Die Seite zeigt keine Anzeichen eines responsiven Layouts. Mobile Besucher sehen vermutlich die Desktop-Ansicht.",
		},
		"security.no_https": {
			Title:       "Keine HTTPS-Verschlüsselung",
			Description: "Die Seite wird ohne HTTPS ausgeliefert. Browser markieren sie als unsicher und Besucher verlieren Vertrauen.",
		},
		"security.no_hsts": {
			Title:       "Strict-Transport-Security fehlt",
			Description: "Die Seite sendet keinen HSTS-Header und ist damit anfällig für Downgrade-Angriffe.",
		},
		"security.missing_headers": {
			Title:       "Sicherheits-Header fehlen",
			Description: "Grundlegende Sicherheits-Header wie Content-Security-Policy sind nicht gesetzt.",
		},
		"security.mixed_content": {
			Title:       "Mixed Content auf sicherer Seite",
			Description: "Die Seite wird über HTTPS ausgeliefert, lädt aber einzelne Ressourcen über unverschlüsseltes HTTP.",
		},
		"security.not_measured": {
			Title:       "Sicherheitsprüfung nicht abgeschlossen",
			Description: "Die Sicherheitsprüfung wurde nicht abgeschlossen. Der Sicherheitsstatus ist unbekannt und wird vorsichtig bewertet.",
		},
		"seo.missing_title": {
			Title:       "Seitentitel fehlt",
			Description: "Die Seite hat keinen Title-Tag. Der Titel ist das wichtigste On-Page-SEO-Element.",
		},
		"seo.title_length": {
			Title:       "Seitentitel hat keine ideale Länge",
			Description: "Der Titel sollte zwischen 30 und 60 Zeichen lang sein, damit er in Suchergebnissen vollständig angezeigt wird.",
		},
		"seo.missing_meta_description": {
			Title:       "Meta-Beschreibung fehlt",
			Description: "Ohne Meta-Beschreibung wählen Suchmaschinen einen beliebigen Textausschnitt für das Suchergebnis.",
		},
		"seo.h1_structure": {
			Title:       "Überschriftenstruktur verbesserungswürdig",
			Description: "Die Seite sollte genau eine H1-Überschrift und eine klare Überschriftenhierarchie haben.",
		},
		"seo.images_missing_alt": {
			Title:       "Bilder ohne Alternativtext",
			Description: "Mehrere Bilder haben keinen Alt-Text. Das schadet der Barrierefreiheit und der Bildersuche.",
		},
		"seo.thin_content": {
			Title:       "Sehr wenig Textinhalt",
			Description: "Die Seite enthält wenig Text. Suchmaschinen brauchen Inhalte, um das Angebot zu verstehen.",
		},
		"seo.no_structured_data": {
			Title:       "Keine strukturierten Daten",
			Description: "Strukturierte Daten (schema.org) ermöglichen Suchmaschinen erweiterte Ergebnisse wie Öffnungszeiten und Bewertungen.",
		},
		"discoverability.no_sitemap": {
			Title:       "Keine sitemap.xml",
			Description: "Eine Sitemap hilft Suchmaschinen, alle Seiten der Website zu finden.",
		},
		"discoverability.no_robots": {
			Title:       "Keine robots.txt",
			Description: "Eine robots.txt steuert, wie Suchmaschinen-Crawler die Website indexieren.",
		},
		"discoverability.not_measured": {
			Title:       "Auffindbarkeit konnte nicht geprüft werden",
			Description: "Die Sitemap- und robots.txt-Prüfung wurde nicht abgeschlossen. Die Auffindbarkeit ist unbekannt und wird vorsichtig bewertet.",
		},
		"design.low_visual_structure": {
			Title:       "Wenig Seitenstruktur",
			Description: "Die Seite hat wenig visuelle Struktur (Überschriften, Bilder, Inhaltsbereiche) und wirkt dadurch veraltet.",
		},
		"general.no_booking": {
			Title:       "Keine Online-Buchung gefunden",
			Description: "Besucher können nicht online buchen oder reservieren. Eine integrierte Buchung macht aus Besuchern direkt Kunden.",
		},
	},
}

// recommendationIntros maps locale -> package tier -> narrative opener.
// The %s placeholder receives the localized weak-category list.
var recommendationIntros = map[string]map[models.PackageTier]string{
	"en": {
		models.PackageTierBasic:      "Your website is in good shape. The Basic package keeps it that way with ongoing care and fine-tuning%s.",
		models.PackageTierPremium:    "Your website has solid foundations but leaves results on the table. The Premium package rebuilds the weak areas%s.",
		models.PackageTierEnterprise: "Your website needs a ground-up overhaul to compete. The Enterprise package delivers a full rebuild%s.",
	},
	"de": {
		models.PackageTierBasic:      "Ihre Website ist gut aufgestellt. Das Basic-Paket hält sie mit laufender Pflege und Feinschliff auf diesem Stand%s.",
		models.PackageTierPremium:    "Ihre Website hat ein solides Fundament, verschenkt aber Potenzial. Das Premium-Paket baut die Schwachstellen neu auf%s.",
		models.PackageTierEnterprise: "Ihre Website braucht eine grundlegende Überarbeitung, um wettbewerbsfähig zu sein. Das Enterprise-Paket liefert den kompletten Neuaufbau%s.",
	},
}

// weakAreasPrefix introduces the weak-category list inside the narrative.
var weakAreasPrefix = map[string]string{
	"en": ", with focus on ",
	"de": ", mit Fokus auf ",
}

// categoryLabels maps locale -> score category -> display label.
var categoryLabels = map[string]map[models.ScoreCategory]string{
	"en": {
		models.ScoreCategorySpeed:           "loading speed",
		models.ScoreCategoryMobile:          "mobile experience",
		models.ScoreCategorySecurity:        "security",
		models.ScoreCategorySEO:             "search engine visibility",
		models.ScoreCategoryDiscoverability: "discoverability",
		models.ScoreCategoryDesign:          "design and structure",
	},
	"de": {
		models.ScoreCategorySpeed:           "Ladegeschwindigkeit",
		models.ScoreCategoryMobile:          "mobile Darstellung",
		models.ScoreCategorySecurity:        "Sicherheit",
		models.ScoreCategorySEO:             "Sichtbarkeit in Suchmaschinen",
		models.ScoreCategoryDiscoverability: "Auffindbarkeit",
		models.ScoreCategoryDesign:          "Design und Struktur",
	},
}

const fallbackLocale = "en"

// normalizeLocale maps a requested locale onto a table key, falling back to
// English for languages without copy.
func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	if _, ok := findingTexts[locale]; ok {
		return locale
	}
	return fallbackLocale
}

// findingText returns the copy for a rule in the given locale.
func findingText(locale, ruleID string) localeText {
	table := findingTexts[normalizeLocale(locale)]
	if text, ok := table[ruleID]; ok {
		return text
	}
	// Unknown rule in a known locale: fall back to English before giving up.
	if text, ok := findingTexts[fallbackLocale][ruleID]; ok {
		return text
	}
	return localeText{Title: ruleID, Description: ruleID}
}

// categoryLabel returns the localized display label for a score category.
func categoryLabel(locale string, c models.ScoreCategory) string {
	if label, ok := categoryLabels[normalizeLocale(locale)][c]; ok {
		return label
	}
	return string(c)
}

// recommendationIntro returns the tier narrative for the locale.
func recommendationIntro(locale string, tier models.PackageTier) string {
	if intro, ok := recommendationIntros[normalizeLocale(locale)][tier]; ok {
		return intro
	}
	return recommendationIntros[fallbackLocale][tier]
}
