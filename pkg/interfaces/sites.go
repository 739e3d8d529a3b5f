package interfaces

import "context"

// SiteResolver resolves publishing metadata for a target site.
type SiteResolver interface {
	Resolve(ctx context.Context, siteID string) (*SiteMetadata, error)
}

// SiteMetadata describes where and how a site publishes articles.
// SSLDisabled is the explicit opt-out from https; the zero value means https.
type SiteMetadata struct {
	SiteID        string `json:"site_id" yaml:"site_id"`
	Domain        string `json:"domain" yaml:"domain"`
	Subdomain     string `json:"subdomain,omitempty" yaml:"subdomain"`
	SelectedTheme string `json:"selected_theme,omitempty" yaml:"selected_theme"`
	BlogEnabled   bool   `json:"blog_enabled" yaml:"blog_enabled"`
	SSLDisabled   bool   `json:"ssl_disabled,omitempty" yaml:"ssl_disabled"`
}
