package di

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
	metricapi "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/commands"
	publishingcmd "github.com/belonio2793/backlinkoo-solar-system-sub002/internal/commands/publishing"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/generation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging/console"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging/gologger"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/publishing"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/runtimeconfig"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/sites"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/templates"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

// Container wires the pipeline. Repositories are in memory unless a bun
// database is supplied.
type Container struct {
	Config runtimeconfig.Config

	bunDB         *bun.DB
	cacheTTL      time.Duration
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	loggerProvider interfaces.LoggerProvider
	lookupEnv      func(string) string
	meter          metricapi.Meter
	tracer         trace.Tracer

	registry        *templates.Registry
	stateRepo       rotation.StateRepository
	entryRepo       publishing.EntryRepository
	publicationRepo publishing.PublicationRepository
	siteRepo        sites.SiteRepository

	siteResolver interfaces.SiteResolver
	generator    interfaces.ContentGenerator
	workflow     interfaces.WorkflowEngine

	sites          *sites.Resolver
	rotationEngine *rotation.Engine
	formatter      *formatter.Formatter
	urls           *urlgen.Service
	publishingSvc  *publishing.Service
	publishingOpts []publishing.ServiceOption
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// CommandSubscription is returned for every handler registered with the dispatcher.
type CommandSubscription interface {
	Unsubscribe()
}

func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the repository cache used for bun repositories.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithLoggerProvider overrides the provider derived from Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithEnvLookup replaces os.Getenv when resolving the generation API key.
func WithEnvLookup(lookup func(string) string) Option {
	return func(c *Container) {
		if lookup != nil {
			c.lookupEnv = lookup
		}
	}
}

func WithTemplateRegistry(registry *templates.Registry) Option {
	return func(c *Container) {
		c.registry = registry
	}
}

// WithGenerator overrides the configured content generator.
func WithGenerator(generator interfaces.ContentGenerator) Option {
	return func(c *Container) {
		c.generator = generator
	}
}

// WithSiteResolver bypasses the site repository when resolving metadata.
func WithSiteResolver(resolver interfaces.SiteResolver) Option {
	return func(c *Container) {
		c.siteResolver = resolver
	}
}

func WithWorkflowEngine(engine interfaces.WorkflowEngine) Option {
	return func(c *Container) {
		c.workflow = engine
	}
}

func WithMeter(meter metricapi.Meter) Option {
	return func(c *Container) {
		c.meter = meter
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Container) {
		c.tracer = tracer
	}
}

// WithPublishingOptions appends options applied after the configured ones.
func WithPublishingOptions(opts ...publishing.ServiceOption) Option {
	return func(c *Container) {
		c.publishingOpts = append(c.publishingOpts, opts...)
	}
}

// NewContainer validates cfg and builds every pipeline service.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheTTL := cfg.Cache.DefaultTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	memoryEntries := publishing.NewMemoryEntryRepository()
	c := &Container{
		Config:          cfg,
		cacheTTL:        cacheTTL,
		lookupEnv:       os.Getenv,
		stateRepo:       rotation.NewMemoryStateRepository(),
		entryRepo:       memoryEntries,
		publicationRepo: publishing.NewMemoryPublicationRepository(),
		siteRepo:        sites.NewMemorySiteRepository(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.configureRepositories()

	if c.registry == nil {
		c.registry = templates.NewRegistry()
	}

	c.sites = sites.NewResolver(c.siteRepo)
	if err := c.seedSites(context.Background()); err != nil {
		return nil, err
	}
	if c.siteResolver == nil {
		c.siteResolver = c.sites
	}

	if err := c.configureGenerator(); err != nil {
		return nil, err
	}

	engine, err := rotation.NewEngine(c.registry, c.stateRepo,
		rotation.WithKeywordSource(c.entryRepo),
		rotation.WithLogger(logging.RotationLogger(c.loggerProvider)),
	)
	if err != nil {
		return nil, err
	}
	c.rotationEngine = engine
	c.formatter = formatter.New(c.registry, formatter.WithLogger(logging.FormatterLogger(c.loggerProvider)))
	c.urls = urlgen.NewService(c.publicationRepo, c.siteResolver,
		urlgen.WithLogger(logging.URLGenLogger(c.loggerProvider)),
	)

	serviceOpts := []publishing.ServiceOption{
		publishing.WithInterItemDelay(cfg.Pipeline.InterItemDelay),
		publishing.WithPerformanceFeedback(cfg.Pipeline.PerformanceFeedback),
		publishing.WithDefaultFormatting(cfg.Formatting),
		publishing.WithLogger(logging.PublishingLogger(c.loggerProvider)),
	}
	if c.meter != nil {
		serviceOpts = append(serviceOpts, publishing.WithMeter(c.meter))
	}
	if c.tracer != nil {
		serviceOpts = append(serviceOpts, publishing.WithTracer(c.tracer))
	}
	serviceOpts = append(serviceOpts, c.publishingOpts...)

	svc, err := publishing.NewService(publishing.Dependencies{
		Entries:      c.entryRepo,
		Publications: c.publicationRepo,
		Rotation:     c.rotationEngine,
		Formatter:    c.formatter,
		URLs:         c.urls,
		Sites:        c.siteResolver,
		Generator:    c.generator,
		Workflow:     c.workflow,
	}, serviceOpts...)
	if err != nil {
		return nil, err
	}
	c.publishingSvc = svc
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return fmt.Errorf("di: configure gologger: %w", err)
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(logCfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.cacheTTL > 0 {
			cfg.TTL = c.cacheTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRepositories() {
	if c.bunDB == nil {
		return
	}
	c.stateRepo = rotation.NewBunStateRepository(c.bunDB)
	c.entryRepo = publishing.NewBunEntryRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.publicationRepo = publishing.NewBunPublicationRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.siteRepo = sites.NewBunSiteRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
}

func (c *Container) seedSites(ctx context.Context) error {
	for _, site := range c.Config.Sites {
		if _, err := c.sites.Register(ctx, site); err != nil {
			return fmt.Errorf("di: seed site %s: %w", site.SiteID, err)
		}
	}
	return nil
}

func (c *Container) configureGenerator() error {
	if c.generator != nil {
		return nil
	}
	genCfg := c.Config.Generation
	logger := logging.GenerationLogger(c.loggerProvider)
	if strings.ToLower(strings.TrimSpace(genCfg.Provider)) != "anthropic" {
		c.generator = generation.Disabled{}
		return nil
	}

	apiKey := strings.TrimSpace(c.lookupEnv(genCfg.APIKeyEnv))
	if apiKey == "" {
		logger.Warn("generation.disabled", "reason", "api key not set", "env", genCfg.APIKeyEnv)
		c.generator = generation.Disabled{}
		return nil
	}

	settings := generation.DefaultSettings()
	settings.Model = genCfg.Model
	settings.MaxTokens = genCfg.MaxTokens
	settings.Temperature = genCfg.Temperature
	generator, err := generation.NewAnthropicGenerator(apiKey, settings, generation.WithLogger(logger))
	if err != nil {
		return err
	}
	c.generator = generator
	return nil
}

// RegisterCommands subscribes the publish and retry handlers with the go-command
// dispatcher. onResult receives every batch summary.
func (c *Container) RegisterCommands(onResult publishingcmd.ResultFunc) []CommandSubscription {
	logger := commands.CommandLogger(c.loggerProvider, "publishing")
	retries := runner.WithMaxRetries(c.Config.Pipeline.CommandRetries)

	batch := publishingcmd.NewPublishBatchHandler(c.publishingSvc, logger, onResult,
		commands.WithTimeout[publishingcmd.PublishBatchCommand](c.Config.Pipeline.CommandTimeout))
	retry := publishingcmd.NewRetryFailedHandler(c.publishingSvc, logger, onResult,
		commands.WithTimeout[publishingcmd.RetryFailedCommand](c.Config.Pipeline.CommandTimeout))

	return []CommandSubscription{
		dispatcher.SubscribeCommand(batch, retries),
		dispatcher.SubscribeCommand(retry, retries),
	}
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

func (c *Container) Templates() *templates.Registry {
	return c.registry
}

func (c *Container) Rotation() *rotation.Engine {
	return c.rotationEngine
}

func (c *Container) Formatter() *formatter.Formatter {
	return c.formatter
}

func (c *Container) URLs() *urlgen.Service {
	return c.urls
}

func (c *Container) Publishing() *publishing.Service {
	return c.publishingSvc
}

// Sites returns the repository-backed resolver, even when WithSiteResolver overrides lookups.
func (c *Container) Sites() *sites.Resolver {
	return c.sites
}

func (c *Container) Generator() interfaces.ContentGenerator {
	return c.generator
}

func (c *Container) EntryRepository() publishing.EntryRepository {
	return c.entryRepo
}

func (c *Container) PublicationRepository() publishing.PublicationRepository {
	return c.publicationRepo
}

func (c *Container) StateRepository() rotation.StateRepository {
	return c.stateRepo
}
