package urlgen

import "context"

// Options shape the generated path and query string.
type Options struct {
	IncludeDate     bool   `json:"include_date" yaml:"include_date"`
	IncludeCategory bool   `json:"include_category" yaml:"include_category"`
	UseCustomPath   bool   `json:"use_custom_path" yaml:"use_custom_path"`
	CustomPath      string `json:"custom_path,omitempty" yaml:"custom_path"`
	RandomizeSlug   bool   `json:"randomize_slug" yaml:"randomize_slug"`
	IncludeKeyword  bool   `json:"include_keyword" yaml:"include_keyword"`
	Tracking        bool   `json:"tracking" yaml:"tracking"`
}

// Request describes the article a URL is needed for.
type Request struct {
	SiteID     string
	Title      string
	Keyword    string
	CampaignID string
	TrackingID string
	Options    Options
}

// Result carries the unique slug and where it will live.
type Result struct {
	Slug string `json:"slug"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Availability reports whether a slug is free across every site.
type Availability struct {
	Slug             string   `json:"slug"`
	Available        bool     `json:"available"`
	ConflictingSites []string `json:"conflicting_sites,omitempty"`
	Alternatives     []string `json:"alternatives,omitempty"`
}

// PublishedRef is the slug projection of a stored publication.
type PublishedRef struct {
	SiteID string
	Slug   string
	URL    string
}

// SlugSource exposes existing slugs. ListSlugs is scoped to one site,
// ListPublished spans all sites.
type SlugSource interface {
	ListSlugs(ctx context.Context, siteID string) ([]string, error)
	ListPublished(ctx context.Context) ([]PublishedRef, error)
}
