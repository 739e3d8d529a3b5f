package sites

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

// Site stores the publishing metadata of a target site.
type Site struct {
	bun.BaseModel `bun:"table:sites,alias:st"`

	ID            uuid.UUID `bun:",pk,type:uuid" json:"id"`
	SiteID        string    `bun:"site_id,notnull,unique" json:"site_id"`
	Domain        string    `bun:"domain,notnull" json:"domain"`
	Subdomain     string    `bun:"subdomain" json:"subdomain,omitempty"`
	SelectedTheme string    `bun:"selected_theme" json:"selected_theme,omitempty"`
	BlogEnabled   bool      `bun:"blog_enabled,notnull" json:"blog_enabled"`
	SSLDisabled   bool      `bun:"ssl_disabled,notnull" json:"ssl_disabled"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Metadata projects the record onto the resolver contract.
func (s *Site) Metadata() *interfaces.SiteMetadata {
	return &interfaces.SiteMetadata{
		SiteID:        s.SiteID,
		Domain:        s.Domain,
		Subdomain:     s.Subdomain,
		SelectedTheme: s.SelectedTheme,
		BlogEnabled:   s.BlogEnabled,
		SSLDisabled:   s.SSLDisabled,
	}
}

// FromMetadata builds a site record from resolver metadata.
func FromMetadata(meta interfaces.SiteMetadata) *Site {
	return &Site{
		SiteID:        meta.SiteID,
		Domain:        meta.Domain,
		Subdomain:     meta.Subdomain,
		SelectedTheme: meta.SelectedTheme,
		BlogEnabled:   meta.BlogEnabled,
		SSLDisabled:   meta.SSLDisabled,
	}
}
