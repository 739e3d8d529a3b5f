package templates

// Built-in template identifiers.
const (
	CleanMinimalID     = 1
	ModernBusinessID   = 2
	ElegantEditorialID = 3
	TechFocusID        = 4
	MagazineLayoutID   = 5
	NewsBulletinID     = 6
)

// Feature tags that change the formatter output for a template.
const (
	FeatureCallToAction = "call-to-action"
	FeatureHighlights   = "highlights-list"
	FeatureTimestamp    = "news-timestamp"
)

type categoryRule struct {
	category Category
	terms    []string
}

// categoryRules are evaluated in order; the first match wins.
var categoryRules = []categoryRule{
	{CategoryTechnology, []string{"tech", "software", "development", "programming", "coding", "developer", "javascript", "python", "react", "cloud", "digital", "computer", "devops"}},
	{CategoryBusiness, []string{"business", "finance", "startup", "entrepreneur", "investment", "management", "strategy", "enterprise", "sales", "company"}},
	{CategoryMarketing, []string{"marketing", "seo", "advertising", "brand", "social media", "campaign", "backlink", "growth", "conversion"}},
	{CategoryNews, []string{"news", "update", "announcement", "breaking", "trend", "report", "latest"}},
	{CategoryEditorial, []string{"how to", "how-to", "guide", "tutorial", "tips", "lifestyle", "review", "story", "opinion"}},
}

func builtinCatalog() []Template {
	return []Template{
		{
			ID:          CleanMinimalID,
			Name:        "Clean Minimal",
			ThemeKey:    "minimal",
			ClassPrefix: "minimal",
			StyleAttributes: map[string]string{
				"layout":     "single-column",
				"font":       "system-ui",
				"accent":     "#111827",
				"max_width":  "680px",
				"line_space": "1.7",
			},
			FeatureTags:  []string{"fast-loading", "distraction-free"},
			UseCaseHint:  "General purpose articles that should read cleanly on any site",
			ContentTypes: []string{"article", "general"},
			Audiences:    []string{"general"},
		},
		{
			ID:          ModernBusinessID,
			Name:        "Modern Business",
			ThemeKey:    "modern-business",
			ClassPrefix: "business",
			StyleAttributes: map[string]string{
				"layout": "two-column",
				"font":   "Inter",
				"accent": "#1d4ed8",
			},
			FeatureTags:  []string{FeatureCallToAction, "professional"},
			UseCaseHint:  "Company updates, case studies and B2B thought leadership",
			Categories:   []Category{CategoryBusiness},
			ContentTypes: []string{"case-study", "report", "whitepaper"},
			Audiences:    []string{"professionals", "executives", "investors"},
		},
		{
			ID:          ElegantEditorialID,
			Name:        "Elegant Editorial",
			ThemeKey:    "elegant-editorial",
			ClassPrefix: "editorial",
			StyleAttributes: map[string]string{
				"layout": "single-column",
				"font":   "Georgia",
				"accent": "#7c2d12",
			},
			FeatureTags:  []string{"pull-quotes", "drop-cap"},
			UseCaseHint:  "Long-form guides, tutorials and storytelling",
			Categories:   []Category{CategoryEditorial},
			ContentTypes: []string{"guide", "tutorial", "long-form"},
			Audiences:    []string{"readers", "learners"},
		},
		{
			ID:          TechFocusID,
			Name:        "Tech Focus",
			ThemeKey:    "tech-focus",
			ClassPrefix: "tech",
			StyleAttributes: map[string]string{
				"layout":    "single-column",
				"font":      "JetBrains Mono",
				"accent":    "#059669",
				"code_look": "dark",
			},
			FeatureTags:  []string{"code-highlighting", "dark-mode"},
			UseCaseHint:  "Software, engineering and product deep dives",
			Categories:   []Category{CategoryTechnology},
			ContentTypes: []string{"tutorial", "review", "documentation"},
			Audiences:    []string{"developers", "engineers"},
		},
		{
			ID:          MagazineLayoutID,
			Name:        "Magazine Layout",
			ThemeKey:    "magazine",
			ClassPrefix: "magazine",
			StyleAttributes: map[string]string{
				"layout": "grid",
				"font":   "Playfair Display",
				"accent": "#be185d",
			},
			FeatureTags:  []string{FeatureHighlights, "hero-image"},
			UseCaseHint:  "Marketing features, listicles and brand storytelling",
			Categories:   []Category{CategoryMarketing},
			ContentTypes: []string{"listicle", "feature"},
			Audiences:    []string{"marketers", "consumers"},
		},
		{
			ID:          NewsBulletinID,
			Name:        "News Bulletin",
			ThemeKey:    "news-bulletin",
			ClassPrefix: "news",
			StyleAttributes: map[string]string{
				"layout": "single-column",
				"font":   "Roboto",
				"accent": "#b91c1c",
			},
			FeatureTags:  []string{FeatureTimestamp, "breaking-banner"},
			UseCaseHint:  "Announcements, industry news and timely updates",
			Categories:   []Category{CategoryNews},
			ContentTypes: []string{"news", "announcement", "press-release"},
			Audiences:    []string{"general", "investors"},
		},
	}
}
