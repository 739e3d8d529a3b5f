package rotation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/templates"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

var (
	ErrNoSites           = errors.New("rotation: at least one site id is required")
	ErrSiteIDRequired    = errors.New("rotation: site id required")
	ErrUnknownStrategy   = errors.New("rotation: unknown strategy")
	ErrUnknownTemplate   = errors.New("rotation: unknown template in pool")
	ErrConcurrentUpdate  = errors.New("rotation: state changed concurrently, retries exhausted")
	ErrRegistryRequired  = errors.New("rotation: template registry required")
	ErrRepositoryMissing = errors.New("rotation: state repository required")
)

const defaultMaxAttempts = 3

// AssignRequest asks for one template per site for a campaign.
type AssignRequest struct {
	CampaignID string
	SiteIDs    []string
	Config     Config
	Keyword    string
}

// PreviewRequest evaluates a rotation without persisting it.
type PreviewRequest struct {
	SiteIDs []string
	Config  Config
	Keyword string
}

// Engine assigns templates to sites and keeps per-site rotation state.
type Engine struct {
	registry    *templates.Registry
	states      StateRepository
	keywords    KeywordSource
	intn        func(int) int
	now         func() time.Time
	logger      interfaces.Logger
	maxAttempts int
}

// EngineOption mutates engine configuration.
type EngineOption func(*Engine)

// WithKeywordSource supplies per-site keywords to the keyword-based strategy.
func WithKeywordSource(source KeywordSource) EngineOption {
	return func(e *Engine) {
		e.keywords = source
	}
}

// WithRandom overrides the random index source. fn must return a value in [0, n).
func WithRandom(fn func(n int) int) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.intn = fn
		}
	}
}

// WithNow overrides the clock used to stamp state.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger interfaces.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxAttempts bounds compare-and-swap retries per site.
func WithMaxAttempts(attempts int) EngineOption {
	return func(e *Engine) {
		if attempts > 0 {
			e.maxAttempts = attempts
		}
	}
}

// NewEngine constructs a rotation engine.
func NewEngine(registry *templates.Registry, states StateRepository, opts ...EngineOption) (*Engine, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if states == nil {
		return nil, ErrRepositoryMissing
	}
	e := &Engine{
		registry:    registry,
		states:      states,
		intn:        rand.IntN,
		now:         time.Now,
		logger:      logging.RotationLogger(nil),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Assign picks a template for every site, in input order, and persists the
// updated rotation state for each one.
func (e *Engine) Assign(ctx context.Context, req AssignRequest) ([]Assignment, error) {
	return e.evaluate(ctx, req.SiteIDs, req.Config, req.Keyword, func(ctx context.Context, sel selection, choose selectFunc) (Assignment, error) {
		return e.assignAndStore(ctx, req.CampaignID, sel, choose)
	})
}

// Preview runs the same evaluation as Assign against copies of the stored
// state. Nothing is written.
func (e *Engine) Preview(ctx context.Context, req PreviewRequest) ([]Assignment, error) {
	return e.evaluate(ctx, req.SiteIDs, req.Config, req.Keyword, func(ctx context.Context, sel selection, choose selectFunc) (Assignment, error) {
		return choose(ctx, e, sel)
	})
}

type assignStep func(ctx context.Context, sel selection, choose selectFunc) (Assignment, error)

func (e *Engine) evaluate(ctx context.Context, siteIDs []string, cfg Config, keyword string, step assignStep) ([]Assignment, error) {
	if len(siteIDs) == 0 {
		return nil, ErrNoSites
	}
	for _, siteID := range siteIDs {
		if strings.TrimSpace(siteID) == "" {
			return nil, ErrSiteIDRequired
		}
	}

	pool, err := e.resolvePool(cfg)
	if err != nil {
		return nil, err
	}
	choose, err := e.selector(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	usage := make(map[int]int)
	if normalizeStrategy(cfg.Strategy) == StrategyBalanced {
		global, err := e.states.TemplateUsage(ctx)
		if err != nil {
			return nil, fmt.Errorf("rotation: load template usage: %w", err)
		}
		for id, count := range global {
			usage[id] = count
		}
	}

	assignments := make([]Assignment, 0, len(siteIDs))
	for idx, siteID := range siteIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := e.loadState(ctx, siteID)
		if err != nil {
			return nil, err
		}
		sel := selection{
			index:          idx,
			siteID:         siteID,
			state:          state,
			pool:           pool,
			usage:          usage,
			keyword:        keyword,
			maxConsecutive: cfg.MaxConsecutiveUse,
		}
		assignment, err := step(ctx, sel, choose)
		if err != nil {
			return nil, err
		}
		usage[assignment.TemplateID]++
		assignments = append(assignments, assignment)
	}

	e.logger.Debug("rotation.evaluated",
		"strategy", normalizeStrategy(cfg.Strategy),
		"sites", len(siteIDs),
		"pool", pool,
	)
	return assignments, nil
}

func (e *Engine) assignAndStore(ctx context.Context, campaignID string, sel selection, choose selectFunc) (Assignment, error) {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if replay, ok := replayedAssignment(sel.state, sel.siteID, campaignID); ok {
			e.logger.Debug("rotation.assign.replayed", "site_id", sel.siteID, "template_id", replay.TemplateID)
			return replay, nil
		}

		assignment, err := choose(ctx, e, sel)
		if err != nil {
			return Assignment{}, err
		}

		next := applyAssignment(sel.state, campaignID, assignment.TemplateID)
		next.UpdatedAt = e.now()

		_, err = e.states.Save(ctx, next, sel.state.Version)
		if err == nil {
			return assignment, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return Assignment{}, fmt.Errorf("rotation: save state for %s: %w", sel.siteID, err)
		}

		e.logger.Warn("rotation.state.conflict", "site_id", sel.siteID, "attempt", attempt)
		if sel.state, err = e.loadState(ctx, sel.siteID); err != nil {
			return Assignment{}, err
		}
	}
	return Assignment{}, fmt.Errorf("%w: %s", ErrConcurrentUpdate, sel.siteID)
}

// replayedAssignment reports the template already recorded for campaignID.
// A site is assigned at most once per campaign, so a retried Assign returns
// the stored choice without running the strategy or touching counters.
func replayedAssignment(state *State, siteID, campaignID string) (Assignment, bool) {
	if campaignID == "" || state == nil || state.LastCampaignID != campaignID {
		return Assignment{}, false
	}
	last, ok := state.LastTemplate()
	if !ok {
		return Assignment{}, false
	}
	return Assignment{
		SiteID:     siteID,
		TemplateID: last,
		Reason:     fmt.Sprintf("replay: campaign %s already assigned", campaignID),
	}, true
}

// applyAssignment returns the state after recording templateID.
func applyAssignment(current *State, campaignID string, templateID int) *State {
	next := cloneState(current)
	if last, ok := current.LastTemplate(); ok && last == templateID {
		next.ConsecutiveUseCount = current.ConsecutiveUseCount + 1
	} else {
		next.ConsecutiveUseCount = 1
	}
	tpl := templateID
	next.LastTemplateUsed = &tpl
	next.TotalPostsCreated++
	next.LastCampaignID = campaignID
	if next.TemplateCounts == nil {
		next.TemplateCounts = make(map[int]int)
	}
	next.TemplateCounts[templateID]++
	return next
}

// RecordPerformance folds score into the running mean kept for templateID.
func (e *Engine) RecordPerformance(ctx context.Context, siteID string, templateID int, score float64) error {
	if strings.TrimSpace(siteID) == "" {
		return ErrSiteIDRequired
	}
	if !e.registry.Has(templateID) {
		return fmt.Errorf("%w: %d", ErrUnknownTemplate, templateID)
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		current, err := e.loadState(ctx, siteID)
		if err != nil {
			return err
		}
		next := cloneState(current)
		if next.Performance == nil {
			next.Performance = &Performance{}
		}
		if next.Performance.TemplatePerformance == nil {
			next.Performance.TemplatePerformance = make(map[int]float64)
		}
		if next.Performance.Samples == nil {
			next.Performance.Samples = make(map[int]int)
		}
		samples := next.Performance.Samples[templateID]
		mean := next.Performance.TemplatePerformance[templateID]
		next.Performance.TemplatePerformance[templateID] = mean + (score-mean)/float64(samples+1)
		next.Performance.Samples[templateID] = samples + 1
		next.UpdatedAt = e.now()

		_, err = e.states.Save(ctx, next, current.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("rotation: save performance for %s: %w", siteID, err)
		}
	}
	return fmt.Errorf("%w: %s", ErrConcurrentUpdate, siteID)
}

// State returns the stored rotation state for siteID.
func (e *Engine) State(ctx context.Context, siteID string) (*State, error) {
	if strings.TrimSpace(siteID) == "" {
		return nil, ErrSiteIDRequired
	}
	return e.states.Get(ctx, siteID)
}

// Reset forgets the rotation state for siteID. Missing state is not an error.
func (e *Engine) Reset(ctx context.Context, siteID string) error {
	if strings.TrimSpace(siteID) == "" {
		return ErrSiteIDRequired
	}
	if err := e.states.Delete(ctx, siteID); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (e *Engine) loadState(ctx context.Context, siteID string) (*State, error) {
	state, err := e.states.Get(ctx, siteID)
	if err == nil {
		return state, nil
	}
	if isNotFound(err) {
		return &State{SiteID: siteID, TemplateCounts: map[int]int{}}, nil
	}
	return nil, fmt.Errorf("rotation: load state for %s: %w", siteID, err)
}

// resolvePool keeps the caller's order, drops duplicates and exclusions and
// falls back to the default template when nothing remains.
func (e *Engine) resolvePool(cfg Config) ([]int, error) {
	source := cfg.TemplatePool
	if len(source) == 0 {
		source = e.registry.IDs()
	}
	for _, id := range slices.Concat(source, cfg.ExcludeTemplates) {
		if !e.registry.Has(id) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTemplate, id)
		}
	}

	pool := make([]int, 0, len(source))
	for _, id := range source {
		if slices.Contains(cfg.ExcludeTemplates, id) || slices.Contains(pool, id) {
			continue
		}
		pool = append(pool, id)
	}
	if len(pool) == 0 {
		pool = []int{e.registry.DefaultID()}
	}
	return pool, nil
}
