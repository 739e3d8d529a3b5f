package urlgen

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

var (
	ErrSiteRequired       = errors.New("url: site id required")
	ErrSiteDomainRequired = errors.New("url: site domain required")
	ErrSlugRequired       = errors.New("slug: value required")
)

const (
	randomThemeSentinel = "__random__"
	randomThemeKey      = "random"
	defaultThemeKey     = "blog"
	alternativeCount    = 5
)

// Service generates unique slugs and canonical URLs for publications.
type Service struct {
	slugs  SlugSource
	sites  interfaces.SiteResolver
	now    func() time.Time
	suffix func() string
	logger interfaces.Logger
}

// ServiceOption customises the service.
type ServiceOption func(*Service)

// WithNow overrides the clock used for dated paths and alternatives.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRandomSuffix overrides the generator for randomized slug suffixes.
func WithRandomSuffix(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.suffix = fn
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires a URL generator over the slug projection and site metadata.
func NewService(slugs SlugSource, sites interfaces.SiteResolver, opts ...ServiceOption) *Service {
	s := &Service{
		slugs:  slugs,
		sites:  sites,
		now:    time.Now,
		suffix: randomSuffix,
		logger: logging.URLGenLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// Generate returns a slug that is unused on the site together with its path
// and absolute URL.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.SiteID) == "" {
		return nil, ErrSiteRequired
	}

	site, err := s.sites.Resolve(ctx, req.SiteID)
	if err != nil {
		return nil, fmt.Errorf("url: resolve site %s: %w", req.SiteID, err)
	}
	if site == nil || strings.TrimSpace(site.Domain) == "" {
		return nil, fmt.Errorf("%w: %s", ErrSiteDomainRequired, req.SiteID)
	}

	base := BuildSlug(req.Title)
	if req.Options.IncludeKeyword {
		base = withKeyword(base, req.Keyword)
	}
	if req.Options.RandomizeSlug {
		base = base + "-" + s.suffix()
	}

	existing, err := s.slugs.ListSlugs(ctx, req.SiteID)
	if err != nil {
		return nil, fmt.Errorf("slug lookup for %s: %w", req.SiteID, err)
	}
	candidate := uniqueSlug(base, existing)

	loc, err := s.locate(req.SiteID, site, candidate, req)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("urlgen.generated", "site_id", req.SiteID, "slug", candidate, "collisions", candidate != base)
	return &Result{Slug: candidate, Path: loc.path, URL: loc.url}, nil
}

// uniqueSlug appends -1, -2, ... until the candidate is not taken.
func uniqueSlug(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, slug := range existing {
		taken[slug] = struct{}{}
	}
	candidate := base
	for n := 1; ; n++ {
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// ThemeKey maps a site's selected theme to its path prefix.
func ThemeKey(theme string) string {
	theme = strings.TrimSpace(theme)
	switch theme {
	case "":
		return defaultThemeKey
	case randomThemeSentinel:
		return randomThemeKey
	}
	return normalizeSegment(theme, 0, defaultThemeKey)
}

func host(site *interfaces.SiteMetadata) string {
	domain := strings.Trim(strings.TrimSpace(site.Domain), "/")
	if sub := strings.Trim(strings.TrimSpace(site.Subdomain), "."); sub != "" {
		return sub + "." + domain
	}
	return domain
}

// CheckAvailability scans every site's publications for the slug and
// proposes alternatives when it is taken.
func (s *Service) CheckAvailability(ctx context.Context, value string) (*Availability, error) {
	if strings.TrimSpace(value) == "" {
		return nil, ErrSlugRequired
	}
	candidate := BuildSlug(value)

	refs, err := s.slugs.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("slug availability: %w", err)
	}

	result := &Availability{Slug: candidate, Available: true}
	for _, ref := range refs {
		if !matchesSlug(ref, candidate) || slices.Contains(result.ConflictingSites, ref.SiteID) {
			continue
		}
		result.ConflictingSites = append(result.ConflictingSites, ref.SiteID)
	}
	if len(result.ConflictingSites) == 0 {
		return result, nil
	}

	result.Available = false
	for n := 1; n <= alternativeCount; n++ {
		result.Alternatives = append(result.Alternatives, fmt.Sprintf("%s-%d", candidate, n))
	}
	result.Alternatives = append(result.Alternatives,
		fmt.Sprintf("%s-%d", candidate, s.now().Year()),
		candidate+"-guide",
	)
	return result, nil
}

func matchesSlug(ref PublishedRef, candidate string) bool {
	if ref.Slug == candidate {
		return true
	}
	if ref.URL == "" {
		return false
	}
	path := ref.URL
	if parsed, err := url.Parse(ref.URL); err == nil {
		path = parsed.Path
	}
	return strings.HasSuffix(strings.TrimRight(path, "/"), "/"+candidate)
}
