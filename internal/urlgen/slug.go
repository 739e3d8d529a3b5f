package urlgen

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goliatone/go-slug"
)

const (
	maxSlugLength = 50
	fallbackSlug  = "article"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// BuildSlug turns a title into a lowercase hyphenated slug of at most 50
// characters. Titles that reduce to nothing yield "article".
func BuildSlug(title string) string {
	return normalizeSegment(stripMarkup(title), maxSlugLength, fallbackSlug)
}

func stripMarkup(value string) string {
	if !strings.Contains(value, "<") {
		return value
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return value
	}
	return doc.Text()
}

func normalizeSegment(value string, limit int, fallback string) string {
	value = strings.TrimSpace(value)
	if normalized, err := slug.Normalize(value); err == nil && normalized != "" {
		value = normalized
	}
	value = nonSlugChars.ReplaceAllString(strings.ToLower(value), "-")
	value = strings.Trim(value, "-")
	if limit > 0 && len(value) > limit {
		value = strings.TrimRight(value[:limit], "-")
	}
	if value == "" {
		return fallback
	}
	return value
}

// withKeyword prefixes base with the keyword slug unless base already
// contains it.
func withKeyword(base, keyword string) string {
	kw := normalizeSegment(keyword, maxSlugLength, "")
	if kw == "" || strings.Contains(base, kw) {
		return base
	}
	combined := kw + "-" + base
	if len(combined) > maxSlugLength {
		combined = strings.TrimRight(combined[:maxSlugLength], "-")
	}
	return combined
}
