package autopublish

import (
	"context"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/di"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/publishing"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/templates"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

type (
	BatchRequest      = publishing.BatchRequest
	RetryRequest      = publishing.RetryRequest
	BatchResult       = publishing.BatchResult
	Result            = publishing.Result
	Failure           = publishing.Failure
	Stage             = publishing.Stage
	Entry             = publishing.Entry
	RotationConfig    = rotation.Config
	RotationStrategy  = rotation.Strategy
	Assignment        = rotation.Assignment
	FormattingOptions = formatter.Options
	URLOptions        = urlgen.Options
	SlugAvailability  = urlgen.Availability
	Template          = templates.Template
	SiteMetadata      = interfaces.SiteMetadata
)

const (
	StrategySequential  = rotation.StrategySequential
	StrategyRandom      = rotation.StrategyRandom
	StrategyDomainBased = rotation.StrategyDomainBased
	StrategyKeyword     = rotation.StrategyKeyword
	StrategyBalanced    = rotation.StrategyBalanced
	StrategyPerformance = rotation.StrategyPerformance
)

// Option customises the container built by New.
type Option = di.Option

var (
	WithBunDB          = di.WithBunDB
	WithCache          = di.WithCache
	WithLoggerProvider = di.WithLoggerProvider
	WithGenerator      = di.WithGenerator
	WithSiteResolver   = di.WithSiteResolver
	WithMeter          = di.WithMeter
	WithTracer         = di.WithTracer
	WithEnvLookup      = di.WithEnvLookup
)

// Module is the top level publishing pipeline façade.
type Module struct {
	container *di.Container
}

// New constructs the pipeline using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// PublishBatch assigns templates and publishes one article per site.
func (m *Module) PublishBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	return m.container.Publishing().PublishBatch(ctx, req)
}

// RetryFailed re-runs the failed entries of a campaign.
func (m *Module) RetryFailed(ctx context.Context, req RetryRequest) (*BatchResult, error) {
	return m.container.Publishing().RetryFailed(ctx, req)
}

// PreviewRotation reports the templates a batch would receive without storing anything.
func (m *Module) PreviewRotation(ctx context.Context, siteIDs []string, cfg RotationConfig) ([]Assignment, error) {
	return m.container.Publishing().PreviewRotation(ctx, siteIDs, cfg)
}

// CheckSlug reports whether a slug is free on any site.
func (m *Module) CheckSlug(ctx context.Context, slug string) (*SlugAvailability, error) {
	return m.container.Publishing().CheckSlug(ctx, slug)
}

// Entries lists the entries of a campaign in batch order.
func (m *Module) Entries(ctx context.Context, campaignID string) ([]*Entry, error) {
	return m.container.Publishing().ListEntries(ctx, campaignID)
}

// RegisterSite stores or replaces site metadata.
func (m *Module) RegisterSite(ctx context.Context, site SiteMetadata) (*SiteMetadata, error) {
	return m.container.Sites().Register(ctx, site)
}

// Templates returns the template catalog.
func (m *Module) Templates() []Template {
	return m.container.Templates().All()
}
