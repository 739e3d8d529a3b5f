package publishing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	metricapi "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/workflow/simple"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

// ErrDependencyMissing is returned by NewService when a required collaborator is nil.
var ErrDependencyMissing = errors.New("publishing: dependency missing")

// DefaultInterItemDelay is the pause between two sites of the same run.
const DefaultInterItemDelay = 2 * time.Second

// publishedWriteAttempts bounds the entry writes after a publication exists.
const publishedWriteAttempts = 2

// Dependencies groups the collaborators of the orchestrator. Generator may be
// nil when every batch supplies its own content.
type Dependencies struct {
	Entries      EntryRepository
	Publications PublicationRepository
	Rotation     *rotation.Engine
	Formatter    *formatter.Formatter
	URLs         *urlgen.Service
	Sites        interfaces.SiteResolver
	Generator    interfaces.ContentGenerator
	Workflow     interfaces.WorkflowEngine
}

// Service drives publish entries through assignment, generation, formatting,
// URL generation and the publish write.
type Service struct {
	entries      EntryRepository
	publications PublicationRepository
	rotation     *rotation.Engine
	formatter    *formatter.Formatter
	urls         *urlgen.Service
	sites        interfaces.SiteResolver
	generator    interfaces.ContentGenerator
	workflow     interfaces.WorkflowEngine

	formatting formatter.Options
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	id         func() uuid.UUID
	feedback   bool
	meter      metricapi.Meter
	tracer     trace.Tracer
	telemetry  *telemetry
	logger     interfaces.Logger
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithInterItemDelay sets the pause between sites. Zero disables it.
func WithInterItemDelay(delay time.Duration) ServiceOption {
	return func(s *Service) {
		if delay >= 0 {
			s.delay = delay
		}
	}
}

// WithSleep overrides the context-aware sleep used between sites.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithNow overrides the service clock.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the entry id generator.
func WithIDGenerator(fn func() uuid.UUID) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.id = fn
		}
	}
}

// WithDefaultFormatting sets the formatting options used when a request
// carries none.
func WithDefaultFormatting(opts formatter.Options) ServiceOption {
	return func(s *Service) {
		s.formatting = opts
	}
}

// WithPerformanceFeedback toggles recording of the meta optimisation score
// against the site's template after each publication.
func WithPerformanceFeedback(enabled bool) ServiceOption {
	return func(s *Service) {
		s.feedback = enabled
	}
}

// WithMeter sets the meter used for pipeline metrics.
func WithMeter(meter metricapi.Meter) ServiceOption {
	return func(s *Service) {
		s.meter = meter
	}
}

// WithTracer sets the tracer used for per-entry spans.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		s.tracer = tracer
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

// NewService wires the orchestrator.
func NewService(deps Dependencies, opts ...ServiceOption) (*Service, error) {
	switch {
	case deps.Entries == nil:
		return nil, fmt.Errorf("%w: entry repository", ErrDependencyMissing)
	case deps.Publications == nil:
		return nil, fmt.Errorf("%w: publication repository", ErrDependencyMissing)
	case deps.Rotation == nil:
		return nil, fmt.Errorf("%w: rotation engine", ErrDependencyMissing)
	case deps.Formatter == nil:
		return nil, fmt.Errorf("%w: formatter", ErrDependencyMissing)
	case deps.URLs == nil:
		return nil, fmt.Errorf("%w: url generator", ErrDependencyMissing)
	case deps.Sites == nil:
		return nil, fmt.Errorf("%w: site resolver", ErrDependencyMissing)
	}

	s := &Service{
		entries:      deps.Entries,
		publications: deps.Publications,
		rotation:     deps.Rotation,
		formatter:    deps.Formatter,
		urls:         deps.URLs,
		sites:        deps.Sites,
		generator:    deps.Generator,
		workflow:     deps.Workflow,
		formatting:   formatter.DefaultOptions(),
		delay:        DefaultInterItemDelay,
		sleep:        sleepContext,
		now:          time.Now,
		id:           uuid.New,
		feedback:     true,
		logger:       logging.PublishingLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.workflow == nil {
		s.workflow = simple.New(simple.WithClock(s.now))
	}

	tel, err := newTelemetry(s.meter, s.tracer)
	if err != nil {
		return nil, fmt.Errorf("publishing: telemetry: %w", err)
	}
	s.telemetry = tel
	return s, nil
}

type runOptions struct {
	formatting formatter.Options
	urls       urlgen.Options
}

// PublishBatch creates one entry per site, assigns templates for the whole
// batch, then processes the sites one after another. A failing site never
// stops the batch. Entries already recorded for a (campaign, site) pair are
// reused, so running the same batch again never duplicates work: published
// entries are reported as they stand and failed ones are reset. When entries
// cannot be created or templates cannot be assigned every site is reported
// failed at the template assignment stage and the returned error carries the
// cause alongside that result.
func (s *Service) PublishBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	siteIDs := uniqueSiteIDs(req.SiteIDs)
	if err := validateBatch(req, siteIDs); err != nil {
		return nil, invalidRequest(err)
	}

	logger := logging.WithEntryContext(s.logger, req.CampaignID, "", "")
	logger.Info("publishing.batch.started", "sites", len(siteIDs), "strategy", req.Rotation.Strategy)

	anchor := strings.TrimSpace(req.AnchorText)
	if anchor == "" {
		anchor = req.Keyword
	}

	existing, err := s.entries.ListByCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, batchFailure(fmt.Errorf("list campaign entries: %w", err))
	}
	bySite := make(map[string]*Entry, len(existing))
	for _, entry := range existing {
		if _, ok := bySite[entry.SiteID]; !ok {
			bySite[entry.SiteID] = entry
		}
	}

	now := s.now()
	entries := make([]*Entry, 0, len(siteIDs))
	var createErr error
	reused := 0
	for i, siteID := range siteIDs {
		if entry, ok := bySite[siteID]; ok {
			entries = append(entries, entry)
			reused++
			if createErr != nil {
				continue
			}
			if err := s.resume(ctx, entry); err != nil {
				createErr = fmt.Errorf("reuse entry for %s: %w", siteID, err)
			}
			continue
		}
		entry := &Entry{
			ID:               s.id(),
			SiteID:           siteID,
			CampaignID:       req.CampaignID,
			Position:         i,
			Keyword:          req.Keyword,
			TargetURL:        req.TargetURL,
			AnchorText:       anchor,
			Prompt:           req.Prompt,
			Title:            strings.TrimSpace(req.Title),
			GeneratedContent: req.Content,
			Status:           StatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		entries = append(entries, entry)
		if createErr != nil {
			continue
		}
		if _, err := s.entries.Create(ctx, entry); err != nil {
			createErr = fmt.Errorf("create entry for %s: %w", siteID, err)
		}
	}
	if createErr != nil {
		return s.failAll(ctx, req.CampaignID, entries, createErr)
	}
	if reused > 0 {
		logger.Info("publishing.batch.reused_entries", "entries", reused)
	}

	var unassigned []*Entry
	for _, entry := range entries {
		if entry.AssignedTemplate == 0 && entry.Status != StatusPublished {
			unassigned = append(unassigned, entry)
		}
	}
	if err := s.assign(ctx, req.CampaignID, req.Keyword, req.Rotation, unassigned); err != nil {
		return s.failAll(ctx, req.CampaignID, entries, err)
	}

	result := s.run(ctx, req.CampaignID, entries, s.runOptions(req.Formatting, req.URLs))
	logger.Info("publishing.batch.completed",
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"seo_score", result.SEOScore,
	)
	return result, nil
}

// RetryFailed resets the failed entries of a campaign to pending and runs the
// pipeline again for that cohort only. Every retried entry takes the keyword,
// target and anchor of the first failed entry. Generated content is reused
// and templates are kept unless none was ever assigned. A campaign without
// failed entries yields an empty result and no writes.
func (s *Service) RetryFailed(ctx context.Context, req RetryRequest) (*BatchResult, error) {
	if strings.TrimSpace(req.CampaignID) == "" {
		return nil, invalidRequest(ErrCampaignRequired)
	}

	failed, err := s.entries.ListByCampaign(ctx, req.CampaignID, StatusFailed)
	if err != nil {
		return nil, batchFailure(fmt.Errorf("list failed entries: %w", err))
	}
	logger := logging.WithEntryContext(s.logger, req.CampaignID, "", "")
	if len(failed) == 0 {
		logger.Info("publishing.retry.empty")
		return summarize(req.CampaignID, nil), nil
	}

	first := failed[0]
	var unassigned []*Entry
	for _, entry := range failed {
		if err := s.transition(ctx, entry, simple.TransitionRetry); err != nil {
			return nil, batchFailure(fmt.Errorf("reset entry %s: %w", entry.ID, err))
		}
		entry.Keyword = first.Keyword
		entry.TargetURL = first.TargetURL
		entry.AnchorText = first.AnchorText
		entry.FailureStage = ""
		entry.FailureMessage = ""
		entry.Retryable = false
		if err := s.persist(ctx, entry); err != nil {
			return nil, batchFailure(fmt.Errorf("reset entry %s: %w", entry.ID, err))
		}
		if entry.AssignedTemplate == 0 {
			unassigned = append(unassigned, entry)
		}
	}
	logger.Info("publishing.retry.started", "entries", len(failed), "unassigned", len(unassigned))

	if err := s.assign(ctx, req.CampaignID, first.Keyword, req.Rotation, unassigned); err != nil {
		return s.failAll(ctx, req.CampaignID, failed, err)
	}

	result := s.run(ctx, req.CampaignID, failed, s.runOptions(req.Formatting, req.URLs))
	logger.Info("publishing.retry.completed", "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// resume prepares a stored entry for another run. Failed entries go back to
// pending; every other state is picked up where it stopped.
func (s *Service) resume(ctx context.Context, entry *Entry) error {
	if entry.Status != StatusFailed {
		return nil
	}
	if err := s.transition(ctx, entry, simple.TransitionRetry); err != nil {
		return err
	}
	entry.FailureStage = ""
	entry.FailureMessage = ""
	entry.Retryable = false
	return s.persist(ctx, entry)
}

// assign asks rotation for the templates of entries, in order.
func (s *Service) assign(ctx context.Context, campaignID, keyword string, cfg rotation.Config, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}
	siteIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		siteIDs = append(siteIDs, entry.SiteID)
	}
	assignments, err := s.rotation.Assign(ctx, rotation.AssignRequest{
		CampaignID: campaignID,
		SiteIDs:    siteIDs,
		Config:     cfg,
		Keyword:    keyword,
	})
	if err != nil {
		return err
	}
	for i, assignment := range assignments {
		entries[i].AssignedTemplate = assignment.TemplateID
	}
	return nil
}

// PreviewRotation reports the templates a batch would receive without
// touching rotation state.
func (s *Service) PreviewRotation(ctx context.Context, siteIDs []string, cfg rotation.Config) ([]rotation.Assignment, error) {
	return s.rotation.Preview(ctx, rotation.PreviewRequest{SiteIDs: siteIDs, Config: cfg})
}

// CheckSlug reports which sites already publish slug and proposes alternatives.
func (s *Service) CheckSlug(ctx context.Context, slug string) (*urlgen.Availability, error) {
	return s.urls.CheckAvailability(ctx, slug)
}

// ListEntries returns the entries of a campaign, optionally filtered by status.
func (s *Service) ListEntries(ctx context.Context, campaignID string, statuses ...Status) ([]*Entry, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, invalidRequest(ErrCampaignRequired)
	}
	return s.entries.ListByCampaign(ctx, campaignID, statuses...)
}

func (s *Service) runOptions(formatting *formatter.Options, urls urlgen.Options) runOptions {
	opts := runOptions{formatting: s.formatting, urls: urls}
	if formatting != nil {
		opts.formatting = *formatting
	}
	return opts
}

// run processes entries strictly in order, pausing between the entries that
// still have work. Once the context is done the remaining unpublished entries
// are failed with the context error.
func (s *Service) run(ctx context.Context, campaignID string, entries []*Entry, opts runOptions) *BatchResult {
	outcomes := make([]Outcome, 0, len(entries))
	started := 0
	for _, entry := range entries {
		if entry.Status == StatusPublished {
			outcomes = append(outcomes, s.process(context.WithoutCancel(ctx), entry, opts))
			continue
		}
		started++
		if started > 1 {
			if err := s.sleep(ctx, s.delay); err != nil {
				outcomes = append(outcomes, s.fail(ctx, nil, entry, s.now(), err))
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, s.fail(ctx, nil, entry, s.now(), err))
			continue
		}
		outcomes = append(outcomes, s.process(ctx, entry, opts))
	}
	return summarize(campaignID, outcomes)
}

func (s *Service) process(ctx context.Context, entry *Entry, opts runOptions) Outcome {
	started := s.now()
	ctx, span := s.telemetry.startEntry(ctx, entry)
	defer span.End()

	existing, err := s.existingPublication(ctx, entry)
	if err != nil {
		return s.fail(ctx, span, entry, started, stageError(StagePublishing, "publishing: load publication", err))
	}
	if existing != nil {
		return s.complete(ctx, span, entry, started, existing, nil)
	}

	if entry.AssignedTemplate == 0 {
		return s.fail(ctx, span, entry, started, &StageError{
			Stage:   StageTemplateAssignment,
			Message: "template assignment: no template assigned",
		})
	}

	site, err := s.resolveSite(ctx, entry.SiteID)
	if err != nil {
		return s.fail(ctx, span, entry, started, err)
	}

	if entry.Status != StatusGenerating {
		if err := s.transition(ctx, entry, simple.TransitionStart); err != nil {
			return s.fail(ctx, span, entry, started, stageError(StagePublishing, "publishing: start entry", err))
		}
	}
	entry.Attempts++
	if err := s.persist(ctx, entry); err != nil {
		return s.fail(ctx, span, entry, started, stageError(StagePublishing, "publishing: persist entry", err))
	}

	if strings.TrimSpace(entry.GeneratedContent) == "" {
		if err := s.generate(ctx, entry); err != nil {
			return s.fail(ctx, span, entry, started, err)
		}
	}
	if strings.TrimSpace(entry.Title) == "" {
		entry.Title = entry.Keyword
	}

	formatting := opts.formatting
	formatting.TemplateID = entry.AssignedTemplate
	formatted, err := s.formatter.Format(formatter.Article{
		Title:      entry.Title,
		Content:    entry.GeneratedContent,
		Keyword:    entry.Keyword,
		TargetURL:  entry.TargetURL,
		AnchorText: entry.AnchorText,
		Excerpt:    entry.Excerpt,
	}, formatting)
	if err != nil {
		return s.fail(ctx, span, entry, started, stageError(StageFormatting, "formatting failed", err))
	}
	entry.FormattedContent = formatted.HTML
	entry.Excerpt = formatted.Excerpt
	if err := s.persist(ctx, entry); err != nil {
		return s.fail(ctx, span, entry, started, stageError(StageFormatting, "formatting: persist output", err))
	}

	location, err := s.urls.Generate(ctx, urlgen.Request{
		SiteID:     entry.SiteID,
		Title:      entry.Title,
		Keyword:    entry.Keyword,
		CampaignID: entry.CampaignID,
		Options:    opts.urls,
	})
	if err != nil {
		return s.fail(ctx, span, entry, started, stageError(StageURLGeneration, "url generation failed", err))
	}
	entry.Slug = location.Slug
	entry.PublishedURL = location.URL
	if err := s.persist(ctx, entry); err != nil {
		return s.fail(ctx, span, entry, started, stageError(StageURLGeneration, "url generation: persist url", err))
	}

	publication, err := s.publications.Publish(ctx, &Publication{
		EntryID:     entry.ID,
		SiteID:      site.SiteID,
		CampaignID:  entry.CampaignID,
		Slug:        location.Slug,
		Title:       entry.Title,
		HTML:        formatted.HTML,
		Markdown:    formatted.Markdown,
		URL:         location.URL,
		TemplateID:  entry.AssignedTemplate,
		Excerpt:     formatted.Excerpt,
		WordCount:   formatted.WordCount,
		PublishedAt: s.now(),
	})
	if err != nil {
		return s.fail(ctx, span, entry, started, stageError(StagePublishing, "publish write failed", err))
	}
	return s.complete(ctx, span, entry, started, publication, &formatted.SEO)
}

// existingPublication returns the publication already written for entry, or
// nil when the entry still has to be published. A published entry whose
// publication cannot be read is reported from its own fields.
func (s *Service) existingPublication(ctx context.Context, entry *Entry) (*Publication, error) {
	publication, err := s.publications.GetByEntry(ctx, entry.ID)
	switch {
	case err == nil:
		return publication, nil
	case entry.Status == StatusPublished:
		return &Publication{
			EntryID:    entry.ID,
			SiteID:     entry.SiteID,
			CampaignID: entry.CampaignID,
			Slug:       entry.Slug,
			Title:      entry.Title,
			URL:        entry.PublishedURL,
			TemplateID: entry.AssignedTemplate,
		}, nil
	case isNotFound(err):
		return nil, nil
	default:
		return nil, err
	}
}

// complete settles an entry whose publication exists. Once published the
// entry never goes back to failed: a rejected transition or a failed entry
// write is logged and the publication is still reported. seo is nil when the
// publication came from an earlier run.
func (s *Service) complete(ctx context.Context, span trace.Span, entry *Entry, started time.Time, publication *Publication, seo *formatter.SEOMetrics) Outcome {
	logger := logging.WithEntryContext(s.logger, entry.CampaignID, entry.SiteID, entry.ID.String())
	alreadyPublished := entry.Status == StatusPublished

	entry.Slug = publication.Slug
	entry.PublishedURL = publication.URL
	if entry.AssignedTemplate == 0 {
		entry.AssignedTemplate = publication.TemplateID
	}
	if strings.TrimSpace(entry.Title) == "" {
		entry.Title = publication.Title
	}
	entry.FailureStage = ""
	entry.FailureMessage = ""
	entry.Retryable = false

	if !alreadyPublished {
		if entry.Status == StatusPending {
			_ = s.transition(ctx, entry, simple.TransitionStart)
		}
		if err := s.transition(ctx, entry, simple.TransitionPublish); err != nil {
			logger.Warn("publishing.entry.transition_failed", "error", err, "status", entry.Status)
			entry.Status = StatusPublished
		}
		s.persistPublished(ctx, entry, logger)
	}

	if s.feedback && seo != nil {
		if err := s.rotation.RecordPerformance(ctx, entry.SiteID, entry.AssignedTemplate, float64(seo.MetaOptimization)); err != nil {
			logger.Warn("publishing.performance.record_failed", "error", err)
		}
	}

	result := &Result{
		EntryID:          entry.ID,
		SiteID:           entry.SiteID,
		TemplateID:       entry.AssignedTemplate,
		PublishedURL:     entry.PublishedURL,
		Slug:             entry.Slug,
		Title:            entry.Title,
		WordCount:        publication.WordCount,
		ProcessingTimeMs: s.now().Sub(started).Milliseconds(),
	}
	if seo != nil {
		result.SEO = *seo
	}
	s.telemetry.recordSuccess(ctx, span, result)
	if seo == nil {
		logger.Info("publishing.entry.already_published", "url", result.PublishedURL, "template_id", result.TemplateID)
	} else {
		logger.Info("publishing.entry.published", "url", result.PublishedURL, "template_id", result.TemplateID)
	}
	return Outcome{SiteID: entry.SiteID, Result: result}
}

// persistPublished writes the published entry, retrying the write alone.
// The run context may already be done; the publication exists either way.
func (s *Service) persistPublished(ctx context.Context, entry *Entry, logger interfaces.Logger) {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= publishedWriteAttempts; attempt++ {
		if err = s.persist(ctx, entry); err == nil {
			return
		}
		logger.Warn("publishing.entry.persist_retry", "attempt", attempt, "error", err)
	}
	logger.Warn("publishing.entry.persist_failed", "error", err, "status", entry.Status)
}

// resolveSite enforces the site precondition. Any failure here belongs to
// the template assignment stage.
func (s *Service) resolveSite(ctx context.Context, siteID string) (*interfaces.SiteMetadata, error) {
	site, err := s.sites.Resolve(ctx, siteID)
	if err != nil {
		return nil, stageError(StageTemplateAssignment, "template assignment: resolve site "+siteID, err)
	}
	if site == nil || !site.BlogEnabled {
		return nil, &StageError{Stage: StageTemplateAssignment, Err: ErrBlogDisabled}
	}
	if site.SiteID == "" {
		site.SiteID = siteID
	}
	return site, nil
}

func (s *Service) generate(ctx context.Context, entry *Entry) error {
	if s.generator == nil {
		return &StageError{Stage: StageContentGeneration, Err: ErrGeneratorUnavailable}
	}
	generated, err := s.generator.Generate(ctx, interfaces.GenerationRequest{
		Keyword:    entry.Keyword,
		TargetURL:  entry.TargetURL,
		AnchorText: entry.AnchorText,
		Prompt:     entry.Prompt,
	})
	if err != nil {
		return stageError(StageContentGeneration, "content generation failed", err)
	}
	if generated == nil || strings.TrimSpace(generated.Content) == "" {
		return &StageError{Stage: StageContentGeneration, Err: ErrEmptyGeneration}
	}
	entry.GeneratedContent = generated.Content
	if title := strings.TrimSpace(generated.Title); title != "" {
		entry.Title = title
	}
	if err := s.persist(ctx, entry); err != nil {
		return stageError(StageContentGeneration, "content generation: persist content", err)
	}
	return nil
}

func (s *Service) transition(ctx context.Context, entry *Entry, name string) error {
	res, err := s.workflow.Transition(ctx, interfaces.TransitionInput{
		EntityID:     entry.ID,
		EntityType:   simple.EntityTypePublishEntry,
		CurrentState: interfaces.WorkflowState(entry.Status),
		Transition:   name,
	})
	if err != nil {
		return err
	}
	entry.Status = Status(res.ToState)
	return nil
}

func (s *Service) persist(ctx context.Context, entry *Entry) error {
	entry.UpdatedAt = s.now()
	_, err := s.entries.Update(ctx, entry)
	return err
}

// fail moves the entry to failed, stores the classification and reports it.
// A published entry keeps its state and nothing is written for it. span is
// nil when the entry never started processing.
func (s *Service) fail(ctx context.Context, span trace.Span, entry *Entry, started time.Time, cause error) Outcome {
	stage, retryable := Classify(cause)
	failure := &Failure{
		EntryID:      entry.ID,
		SiteID:       entry.SiteID,
		ErrorMessage: cause.Error(),
		Stage:        stage,
		Retryable:    retryable,
	}

	logger := logging.WithEntryContext(s.logger, entry.CampaignID, entry.SiteID, entry.ID.String())
	if entry.Status == StatusPublished {
		logger.Warn("publishing.entry.failure_ignored", "stage", stage, "error", cause)
		s.telemetry.recordFailure(ctx, span, failure, s.now().Sub(started).Milliseconds())
		return Outcome{SiteID: entry.SiteID, Failure: failure}
	}
	if err := s.transition(ctx, entry, simple.TransitionFail); err != nil {
		logger.Warn("publishing.entry.transition_failed", "error", err, "status", entry.Status)
		entry.Status = StatusFailed
	}
	entry.FailureStage = stage
	entry.FailureMessage = failure.ErrorMessage
	entry.Retryable = retryable
	// The run context may already be done; the failure record still has to land.
	if err := s.persist(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("publishing.entry.persist_failed", "error", err)
	}

	s.telemetry.recordFailure(ctx, span, failure, s.now().Sub(started).Milliseconds())
	logger.Error("publishing.entry.failed",
		"stage", stage,
		"retryable", retryable,
		"error", cause,
	)
	return Outcome{SiteID: entry.SiteID, Failure: failure}
}

func (s *Service) failAll(ctx context.Context, campaignID string, entries []*Entry, cause error) (*BatchResult, error) {
	err := stageError(StageTemplateAssignment, "template assignment failed", cause)
	outcomes := make([]Outcome, 0, len(entries))
	for _, entry := range entries {
		if entry.Status == StatusPublished {
			outcomes = append(outcomes, s.process(context.WithoutCancel(ctx), entry, runOptions{}))
			continue
		}
		outcomes = append(outcomes, s.fail(ctx, nil, entry, s.now(), err))
	}
	return summarize(campaignID, outcomes), batchFailure(err)
}

func summarize(campaignID string, outcomes []Outcome) *BatchResult {
	result := &BatchResult{
		CampaignID:    campaignID,
		Outcomes:      []Outcome{},
		Results:       []Result{},
		Failures:      []Failure{},
		TemplateUsage: map[int]int{},
		TotalSites:    len(outcomes),
	}
	var (
		totalMs  int64
		totalSEO int
	)
	for _, outcome := range outcomes {
		result.Outcomes = append(result.Outcomes, outcome)
		switch {
		case outcome.Result != nil:
			r := *outcome.Result
			result.Results = append(result.Results, r)
			result.TemplateUsage[r.TemplateID]++
			result.TotalWords += r.WordCount
			totalMs += r.ProcessingTimeMs
			totalSEO += r.SEO.MetaOptimization
		case outcome.Failure != nil:
			result.Failures = append(result.Failures, *outcome.Failure)
		}
	}
	result.Succeeded = len(result.Results)
	result.Failed = len(result.Failures)
	if result.Succeeded > 0 {
		result.AverageProcessingMs = float64(totalMs) / float64(result.Succeeded)
		result.SEOScore = float64(totalSEO) / float64(result.Succeeded)
	}
	return result
}

func validateBatch(req BatchRequest, siteIDs []string) error {
	switch {
	case strings.TrimSpace(req.CampaignID) == "":
		return ErrCampaignRequired
	case len(siteIDs) == 0:
		return ErrNoSites
	case strings.TrimSpace(req.Keyword) == "":
		return ErrKeywordRequired
	case strings.TrimSpace(req.TargetURL) == "":
		return ErrTargetURLRequired
	}
	return nil
}

func uniqueSiteIDs(siteIDs []string) []string {
	seen := make(map[string]struct{}, len(siteIDs))
	out := make([]string, 0, len(siteIDs))
	for _, siteID := range siteIDs {
		siteID = strings.TrimSpace(siteID)
		if siteID == "" {
			continue
		}
		if _, ok := seen[siteID]; ok {
			continue
		}
		seen[siteID] = struct{}{}
		out = append(out, siteID)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
