package urlgen

import (
	"fmt"
	"strings"

	urlkit "github.com/goliatone/go-urlkit"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const (
	postRoute      = "post"
	themeParam     = "theme"
	yearParam      = "year"
	monthParam     = "month"
	slugParam      = "slug"
	categorySuffix = "articles"
)

type queryParam struct {
	key   string
	value string
}

// location is a built post path together with its absolute URL.
type location struct {
	path string
	url  string
}

// postRouteTemplate returns the go-urlkit pattern for a post under opts.
// Custom path segments are already normalized and stay literal.
func postRouteTemplate(opts Options) string {
	parts := []string{":" + themeParam}
	if opts.IncludeDate {
		parts = append(parts, ":"+yearParam, ":"+monthParam)
	}
	if opts.IncludeCategory {
		parts = append(parts, categorySuffix)
	}
	if opts.UseCustomPath {
		for _, part := range strings.Split(opts.CustomPath, "/") {
			if segment := normalizeSegment(part, 0, ""); segment != "" {
				parts = append(parts, segment)
			}
		}
	}
	parts = append(parts, ":"+slugParam)
	return "/" + strings.Join(parts, "/")
}

// siteRoutes registers a single group for the site, rooted at its base URL.
func siteRoutes(siteID, baseURL string, opts Options) *urlkit.RouteManager {
	return urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    siteID,
				BaseURL: baseURL,
				Paths: map[string]string{
					postRoute: postRouteTemplate(opts),
				},
			},
		},
	})
}

func (s *Service) locate(siteID string, site *interfaces.SiteMetadata, slug string, req Request) (*location, error) {
	base := baseURL(site)
	group, err := lookupSiteGroup(siteRoutes(siteID, base, req.Options), siteID)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		themeParam: ThemeKey(site.SelectedTheme),
		slugParam:  slug,
	}
	if req.Options.IncludeDate {
		now := s.now()
		params[yearParam] = fmt.Sprintf("%04d", now.Year())
		params[monthParam] = fmt.Sprintf("%02d", int(now.Month()))
	}

	canonical, err := buildRoute(group, params, nil)
	if err != nil {
		return nil, err
	}
	out := &location{path: strings.TrimPrefix(canonical, base), url: canonical}
	if req.Options.Tracking {
		if out.url, err = buildRoute(group, params, trackingQuery(req)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildRoute(group *urlkit.Group, params map[string]any, query []queryParam) (built string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("url: route %q: %v", postRoute, rec)
		}
	}()
	builder := group.Builder(postRoute)
	for key, val := range params {
		builder.WithParam(key, val)
	}
	for _, q := range query {
		builder.WithQuery(q.key, q.value)
	}
	return builder.Build()
}

func lookupSiteGroup(manager *urlkit.RouteManager, siteID string) (group *urlkit.Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("url: route group for site %q not found", siteID)
		}
	}()
	group = manager.Group(siteID)
	return group, err
}

func baseURL(site *interfaces.SiteMetadata) string {
	scheme := "https"
	if site.SSLDisabled {
		scheme = "http"
	}
	return scheme + "://" + host(site)
}

func trackingQuery(req Request) []queryParam {
	trackingID := strings.TrimSpace(req.TrackingID)
	if trackingID == "" {
		trackingID = req.CampaignID
	}
	return []queryParam{
		{key: "utm_source", value: "automation"},
		{key: "utm_medium", value: "blog"},
		{key: "utm_campaign", value: "campaign-" + req.CampaignID},
		{key: "utm_content", value: "automated-post"},
		{key: "tracking_id", value: trackingID},
	}
}
