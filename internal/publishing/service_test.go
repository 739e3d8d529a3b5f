package publishing_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/publishing"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/templates"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const articleBody = `## Why solar lighting

Solar lights save energy. They charge during the day. They glow through the night.

## Picking fixtures

Choose bright models. Check the battery size. Read reviews before buying.
`

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

type stubGenerator struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (g *stubGenerator) Generate(_ context.Context, req interfaces.GenerationRequest) (*interfaces.GeneratedContent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &interfaces.GeneratedContent{Title: "Solar Garden Lights", Content: articleBody}, nil
}

func (g *stubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubSites map[string]*interfaces.SiteMetadata

func (s stubSites) Resolve(_ context.Context, siteID string) (*interfaces.SiteMetadata, error) {
	site, ok := s[siteID]
	if !ok {
		return nil, fmt.Errorf("site %s not registered", siteID)
	}
	out := *site
	return &out, nil
}

func enabledSites(ids ...string) stubSites {
	sites := stubSites{}
	for _, id := range ids {
		sites[id] = &interfaces.SiteMetadata{SiteID: id, Domain: id + ".example.com", BlogEnabled: true}
	}
	return sites
}

// flakyPublications fails the first failures publish writes.
type flakyPublications struct {
	*publishing.MemoryPublicationRepository
	failures int
	err      error
}

func (f *flakyPublications) Publish(ctx context.Context, p *publishing.Publication) (*publishing.Publication, error) {
	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	return f.MemoryPublicationRepository.Publish(ctx, p)
}

type countingEntries struct {
	*publishing.MemoryEntryRepository
	writes int
}

func (c *countingEntries) Create(ctx context.Context, e *publishing.Entry) (*publishing.Entry, error) {
	c.writes++
	return c.MemoryEntryRepository.Create(ctx, e)
}

func (c *countingEntries) Update(ctx context.Context, e *publishing.Entry) (*publishing.Entry, error) {
	c.writes++
	return c.MemoryEntryRepository.Update(ctx, e)
}

type harness struct {
	service   *publishing.Service
	entries   publishing.EntryRepository
	generator *stubGenerator
	rotation  *rotation.Engine
	sleeps    []time.Duration
}

func sequentialIDs() func() uuid.UUID {
	n := 0
	return func() uuid.UUID {
		n++
		return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
	}
}

func newHarness(t *testing.T, deps publishing.Dependencies, opts ...publishing.ServiceOption) *harness {
	t.Helper()
	h := &harness{generator: &stubGenerator{}}

	if deps.Entries == nil {
		deps.Entries = publishing.NewMemoryEntryRepository()
	}
	if deps.Publications == nil {
		deps.Publications = publishing.NewMemoryPublicationRepository()
	}
	if deps.Sites == nil {
		deps.Sites = enabledSites("s1", "s2", "s3")
	}
	if deps.Generator == nil {
		deps.Generator = h.generator
	}
	registry := templates.NewRegistry()
	if deps.Rotation == nil {
		engine, err := rotation.NewEngine(registry, rotation.NewMemoryStateRepository(),
			rotation.WithNow(func() time.Time { return fixedNow }))
		if err != nil {
			t.Fatalf("rotation engine: %v", err)
		}
		deps.Rotation = engine
	}
	deps.Formatter = formatter.New(registry,
		formatter.WithNow(func() time.Time { return fixedNow }),
		formatter.WithRandom(func(int) int { return 0 }))
	deps.URLs = urlgen.NewService(deps.Publications, deps.Sites,
		urlgen.WithNow(func() time.Time { return fixedNow }))

	opts = append([]publishing.ServiceOption{
		publishing.WithNow(func() time.Time { return fixedNow }),
		publishing.WithIDGenerator(sequentialIDs()),
		publishing.WithInterItemDelay(5 * time.Millisecond),
		publishing.WithSleep(func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return ctx.Err()
		}),
	}, opts...)

	service, err := publishing.NewService(deps, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.service = service
	h.entries = deps.Entries
	h.rotation = deps.Rotation
	return h
}

func sequentialBatch(campaignID string, sites ...string) publishing.BatchRequest {
	return publishing.BatchRequest{
		CampaignID: campaignID,
		SiteIDs:    sites,
		Keyword:    "solar lights",
		TargetURL:  "https://shop.example.com/solar",
		AnchorText: "solar lights",
		Rotation: rotation.Config{
			Strategy:     rotation.StrategySequential,
			TemplatePool: []int{1, 2, 3},
		},
	}
}

func TestPublishBatchProcessesSitesInOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, publishing.Dependencies{})

	result, err := h.service.PublishBatch(ctx, sequentialBatch("camp-1", "s1", "s2", "s3"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}

	if result.TotalSites != 3 || result.Succeeded != 3 || result.Failed != 0 {
		t.Fatalf("unexpected totals: %+v", result)
	}
	for i, site := range []string{"s1", "s2", "s3"} {
		outcome := result.Outcomes[i]
		if outcome.SiteID != site || outcome.Result == nil {
			t.Fatalf("outcome %d: expected success for %s, got %+v", i, site, outcome)
		}
		if outcome.Result.TemplateID != i+1 {
			t.Fatalf("outcome %d: expected template %d, got %d", i, i+1, outcome.Result.TemplateID)
		}
		want := fmt.Sprintf("https://%s.example.com/blog/solar-garden-lights", site)
		if outcome.Result.PublishedURL != want {
			t.Fatalf("outcome %d: expected url %s, got %s", i, want, outcome.Result.PublishedURL)
		}
	}
	if h.generator.Calls() != 3 {
		t.Fatalf("expected 3 generator calls, got %d", h.generator.Calls())
	}
	if !slices.Equal(h.sleeps, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}) {
		t.Fatalf("expected two pauses between sites, got %v", h.sleeps)
	}

	if len(result.TemplateUsage) != 3 || result.TemplateUsage[1] != 1 || result.TemplateUsage[3] != 1 {
		t.Fatalf("unexpected template usage %v", result.TemplateUsage)
	}
	words := 0
	seo := 0
	for _, r := range result.Results {
		words += r.WordCount
		seo += r.SEO.MetaOptimization
	}
	if result.TotalWords != words || words == 0 {
		t.Fatalf("expected total words %d, got %d", words, result.TotalWords)
	}
	if result.SEOScore != float64(seo)/3 {
		t.Fatalf("expected seo score %v, got %v", float64(seo)/3, result.SEOScore)
	}

	entries, err := h.service.ListEntries(ctx, "camp-1")
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Status != publishing.StatusPublished {
			t.Fatalf("entry %d: expected published, got %s", i, entry.Status)
		}
		if entry.Position != i || entry.Attempts != 1 {
			t.Fatalf("entry %d: unexpected position/attempts %d/%d", i, entry.Position, entry.Attempts)
		}
		if !strings.Contains(entry.FormattedContent, `href="https://shop.example.com/solar"`) {
			t.Fatalf("entry %d: expected backlink in formatted content", i)
		}
	}
}

func TestPublishBatchFailsDisabledSiteBeforeGeneration(t *testing.T) {
	ctx := context.Background()
	sites := enabledSites("s1")
	sites["s2"] = &interfaces.SiteMetadata{SiteID: "s2", Domain: "s2.example.com", BlogEnabled: false}
	h := newHarness(t, publishing.Dependencies{Sites: sites})

	result, err := h.service.PublishBatch(ctx, sequentialBatch("camp-e", "s2", "s1"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}

	failure := result.Outcomes[0].Failure
	if failure == nil || failure.SiteID != "s2" {
		t.Fatalf("expected s2 to fail, got %+v", result.Outcomes[0])
	}
	if failure.Stage != publishing.StageTemplateAssignment || failure.Retryable {
		t.Fatalf("unexpected failure classification %+v", failure)
	}
	if result.Outcomes[1].Result == nil {
		t.Fatalf("expected s1 to publish, got %+v", result.Outcomes[1])
	}
	if h.generator.Calls() != 1 {
		t.Fatalf("expected generator to run only for s1, got %d calls", h.generator.Calls())
	}

	failed, err := h.service.ListEntries(ctx, "camp-e", publishing.StatusFailed)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].SiteID != "s2" || failed[0].GeneratedContent != "" {
		t.Fatalf("expected one failed s2 entry without content, got %+v", failed)
	}
	if failed[0].FailureStage != publishing.StageTemplateAssignment {
		t.Fatalf("expected stored failure stage, got %q", failed[0].FailureStage)
	}
}

func TestPublishBatchClassifiesStageFailures(t *testing.T) {
	ctx := context.Background()
	publications := &flakyPublications{
		MemoryPublicationRepository: publishing.NewMemoryPublicationRepository(),
		failures:                    1,
		err:                         errors.New("disk full"),
	}
	h := newHarness(t, publishing.Dependencies{Publications: publications})
	h.generator.errs = []error{errors.New("upstream rate limit exceeded")}

	result, err := h.service.PublishBatch(ctx, sequentialBatch("camp-2", "s1", "s2", "s3"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}

	generation := result.Outcomes[0].Failure
	if generation == nil || generation.Stage != publishing.StageContentGeneration || !generation.Retryable {
		t.Fatalf("expected retryable content generation failure, got %+v", result.Outcomes[0])
	}
	publish := result.Outcomes[1].Failure
	if publish == nil || publish.Stage != publishing.StagePublishing || publish.Retryable {
		t.Fatalf("expected non-retryable publishing failure, got %+v", result.Outcomes[1])
	}
	if result.Outcomes[2].Result == nil {
		t.Fatalf("expected third site to publish, got %+v", result.Outcomes[2])
	}
	if result.Succeeded != 1 || result.Failed != 2 {
		t.Fatalf("unexpected totals %d/%d", result.Succeeded, result.Failed)
	}

	entries, err := h.service.ListEntries(ctx, "camp-2", publishing.StatusFailed)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 failed entries, got %d", len(entries))
	}
	if entries[1].GeneratedContent == "" || entries[1].PublishedURL == "" {
		t.Fatalf("expected generated content and url persisted before the publish write failed")
	}
}

func TestRetryFailedReusesContentAndTemplate(t *testing.T) {
	ctx := context.Background()
	publications := &flakyPublications{
		MemoryPublicationRepository: publishing.NewMemoryPublicationRepository(),
		failures:                    1,
		err:                         errors.New("publication store: service unavailable"),
	}
	h := newHarness(t, publishing.Dependencies{Publications: publications})

	first, err := h.service.PublishBatch(ctx, sequentialBatch("camp-3", "s1", "s2"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	if first.Failed != 1 || !first.Failures[0].Retryable {
		t.Fatalf("expected one retryable failure, got %+v", first.Failures)
	}
	callsBefore := h.generator.Calls()

	retried, err := h.service.RetryFailed(ctx, publishing.RetryRequest{CampaignID: "camp-3"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.TotalSites != 1 || retried.Succeeded != 1 {
		t.Fatalf("expected single successful retry, got %+v", retried)
	}
	if retried.Results[0].SiteID != "s1" || retried.Results[0].TemplateID != 1 {
		t.Fatalf("expected s1 to keep template 1, got %+v", retried.Results[0])
	}
	if h.generator.Calls() != callsBefore {
		t.Fatalf("expected retry to reuse generated content")
	}

	entries, err := h.service.ListEntries(ctx, "camp-3")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, entry := range entries {
		if entry.Status != publishing.StatusPublished {
			t.Fatalf("expected all entries published, %s is %s", entry.SiteID, entry.Status)
		}
	}
	if entries[0].Attempts != 2 || entries[0].FailureMessage != "" {
		t.Fatalf("expected retried entry with cleared failure, got %+v", entries[0])
	}
}

func TestRetryFailedWithoutFailuresIsNoOp(t *testing.T) {
	ctx := context.Background()
	entries := &countingEntries{MemoryEntryRepository: publishing.NewMemoryEntryRepository()}
	h := newHarness(t, publishing.Dependencies{Entries: entries})

	if _, err := h.service.PublishBatch(ctx, sequentialBatch("camp-4", "s1")); err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	writes := entries.writes

	result, err := h.service.RetryFailed(ctx, publishing.RetryRequest{CampaignID: "camp-4"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.TotalSites != 0 || len(result.Outcomes) != 0 || len(result.Results) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if entries.writes != writes {
		t.Fatalf("expected no writes, got %d", entries.writes-writes)
	}
}

func TestPublishBatchReportsRotationFailureForEverySite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, publishing.Dependencies{})

	req := sequentialBatch("camp-5", "s1", "s2")
	req.Rotation.TemplatePool = []int{99}

	result, err := h.service.PublishBatch(ctx, req)
	if err == nil {
		t.Fatalf("expected batch error")
	}
	if result == nil || result.Failed != 2 {
		t.Fatalf("expected both sites reported failed, got %+v", result)
	}
	for _, failure := range result.Failures {
		if failure.Stage != publishing.StageTemplateAssignment {
			t.Fatalf("expected template assignment stage, got %s", failure.Stage)
		}
	}
	if h.generator.Calls() != 0 {
		t.Fatalf("expected no generation")
	}

	failed, err := h.service.ListEntries(ctx, "camp-5", publishing.StatusFailed)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("expected failed entries to be stored for retry, got %d", len(failed))
	}
}

func TestPublishBatchRejectsInvalidRequests(t *testing.T) {
	h := newHarness(t, publishing.Dependencies{})

	cases := map[string]publishing.BatchRequest{
		"campaign": {SiteIDs: []string{"s1"}, Keyword: "k", TargetURL: "https://x.test"},
		"sites":    {CampaignID: "c", SiteIDs: []string{" "}, Keyword: "k", TargetURL: "https://x.test"},
		"keyword":  {CampaignID: "c", SiteIDs: []string{"s1"}, TargetURL: "https://x.test"},
		"target":   {CampaignID: "c", SiteIDs: []string{"s1"}, Keyword: "k"},
	}
	for name, req := range cases {
		_, err := h.service.PublishBatch(context.Background(), req)
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
			t.Fatalf("%s: expected validation category, got %v", name, err)
		}
	}
}

func TestPublishBatchUsesSuppliedContent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, publishing.Dependencies{})

	req := sequentialBatch("camp-6", "s1")
	req.Title = "Bring Your Own Article"
	req.Content = articleBody

	result, err := h.service.PublishBatch(ctx, req)
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	if h.generator.Calls() != 0 {
		t.Fatalf("expected supplied content to skip generation")
	}
	if result.Results[0].Slug != "bring-your-own-article" {
		t.Fatalf("unexpected slug %q", result.Results[0].Slug)
	}
}

func TestPublishBatchStopsWorkWhenContextEnds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, publishing.Dependencies{},
		publishing.WithSleep(func(context.Context, time.Duration) error { return context.Canceled }))

	result, err := h.service.PublishBatch(ctx, sequentialBatch("camp-7", "s1", "s2"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	if result.Outcomes[0].Result == nil {
		t.Fatalf("expected first site to publish")
	}
	failure := result.Outcomes[1].Failure
	if failure == nil || failure.Retryable || !strings.Contains(failure.ErrorMessage, "canceled") {
		t.Fatalf("expected cancelled second site, got %+v", result.Outcomes[1])
	}
	if h.generator.Calls() != 1 {
		t.Fatalf("expected no generation after cancellation")
	}
}

func TestPublishBatchRecordsPerformanceFeedback(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, publishing.Dependencies{})

	result, err := h.service.PublishBatch(ctx, sequentialBatch("camp-8", "s1"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	state, err := h.rotation.State(ctx, "s1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Performance == nil {
		t.Fatalf("expected performance to be recorded")
	}
	want := float64(result.Results[0].SEO.MetaOptimization)
	if got := state.Performance.TemplatePerformance[1]; got != want {
		t.Fatalf("expected score %v for template 1, got %v", want, got)
	}
}

func TestPreviewRotationAndCheckSlug(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, publishing.Dependencies{})

	preview, err := h.service.PreviewRotation(ctx, []string{"s1", "s2"}, rotation.Config{
		Strategy:     rotation.StrategySequential,
		TemplatePool: []int{4, 5},
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview[0].TemplateID != 4 || preview[1].TemplateID != 5 {
		t.Fatalf("unexpected preview %+v", preview)
	}
	if _, err := h.rotation.State(ctx, "s1"); err == nil {
		t.Fatalf("expected preview to leave no stored state")
	}

	if _, err := h.service.PublishBatch(ctx, sequentialBatch("camp-9", "s1")); err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	availability, err := h.service.CheckSlug(ctx, "solar-garden-lights")
	if err != nil {
		t.Fatalf("check slug: %v", err)
	}
	if availability.Available || !slices.Equal(availability.ConflictingSites, []string{"s1"}) {
		t.Fatalf("unexpected availability %+v", availability)
	}
}

func TestPublishBatchEmitsMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	sites := enabledSites("s1")
	sites["s2"] = &interfaces.SiteMetadata{SiteID: "s2", Domain: "s2.example.com"}
	h := newHarness(t, publishing.Dependencies{Sites: sites},
		publishing.WithMeter(provider.Meter("test")))

	if _, err := h.service.PublishBatch(ctx, sequentialBatch("camp-10", "s1", "s2")); err != nil {
		t.Fatalf("publish batch: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := counterTotal(rm, "autopublish.entries.published"); got != 1 {
		t.Fatalf("expected 1 published, got %d", got)
	}
	if got := counterTotal(rm, "autopublish.entries.failed"); got != 1 {
		t.Fatalf("expected 1 failed, got %d", got)
	}
	if !hasMetric(rm, "autopublish.entry.duration") {
		t.Fatalf("expected duration histogram")
	}
}

func counterTotal(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

// publishedWriteFailures rejects entry writes that carry the published status.
// A negative remaining count rejects every such write.
type publishedWriteFailures struct {
	*publishing.MemoryEntryRepository
	remaining int
	rejected  int
}

func (r *publishedWriteFailures) Update(ctx context.Context, e *publishing.Entry) (*publishing.Entry, error) {
	if e.Status == publishing.StatusPublished && r.remaining != 0 {
		if r.remaining > 0 {
			r.remaining--
		}
		r.rejected++
		return nil, errors.New("entry store: connection reset")
	}
	return r.MemoryEntryRepository.Update(ctx, e)
}

func TestPublishBatchRetriesEntryWriteAfterPublishing(t *testing.T) {
	ctx := context.Background()
	entries := &publishedWriteFailures{MemoryEntryRepository: publishing.NewMemoryEntryRepository(), remaining: 1}
	h := newHarness(t, publishing.Dependencies{Entries: entries})

	result, err := h.service.PublishBatch(ctx, sequentialBatch("camp-w1", "s1"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 0 {
		t.Fatalf("expected the publication to be reported, got %+v", result.Failures)
	}
	if entries.rejected != 1 {
		t.Fatalf("expected one rejected write, got %d", entries.rejected)
	}

	stored, err := h.service.ListEntries(ctx, "camp-w1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].Status != publishing.StatusPublished {
		t.Fatalf("expected stored entry published, got %+v", stored)
	}
	if stored[0].PublishedURL != result.Results[0].PublishedURL {
		t.Fatalf("expected stored url %q, got %q", result.Results[0].PublishedURL, stored[0].PublishedURL)
	}
}

func TestPublishedEntryNeverFallsBackToFailed(t *testing.T) {
	ctx := context.Background()
	entries := &publishedWriteFailures{MemoryEntryRepository: publishing.NewMemoryEntryRepository(), remaining: -1}
	publications := publishing.NewMemoryPublicationRepository()
	h := newHarness(t, publishing.Dependencies{Entries: entries, Publications: publications})

	first, err := h.service.PublishBatch(ctx, sequentialBatch("camp-w2", "s1", "s2"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	if first.Succeeded != 2 || first.Failed != 0 {
		t.Fatalf("expected both publications reported despite write errors, got %+v", first.Failures)
	}

	failed, err := h.service.ListEntries(ctx, "camp-w2", publishing.StatusFailed)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("expected no failed entries, got %+v", failed)
	}
	retried, err := h.service.RetryFailed(ctx, publishing.RetryRequest{CampaignID: "camp-w2"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.TotalSites != 0 {
		t.Fatalf("expected nothing to retry, got %+v", retried)
	}

	entries.remaining = 0
	callsBefore := h.generator.Calls()
	again, err := h.service.PublishBatch(ctx, sequentialBatch("camp-w2", "s1", "s2"))
	if err != nil {
		t.Fatalf("second publish batch: %v", err)
	}
	if again.Succeeded != 2 {
		t.Fatalf("expected existing publications to be reported, got %+v", again.Failures)
	}
	for i, site := range []string{"s1", "s2"} {
		if again.Results[i].PublishedURL != first.Results[i].PublishedURL {
			t.Fatalf("%s: expected url %q to be kept, got %q", site, first.Results[i].PublishedURL, again.Results[i].PublishedURL)
		}
		pubs, err := publications.ListBySite(ctx, site)
		if err != nil || len(pubs) != 1 {
			t.Fatalf("%s: expected a single publication, got %d (%v)", site, len(pubs), err)
		}
	}
	if h.generator.Calls() != callsBefore {
		t.Fatalf("expected no regeneration for published entries")
	}

	stored, err := h.service.ListEntries(ctx, "camp-w2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected one entry per site, got %d", len(stored))
	}
	for _, entry := range stored {
		if entry.Status != publishing.StatusPublished {
			t.Fatalf("%s: expected published, got %s", entry.SiteID, entry.Status)
		}
	}
}

func TestPublishBatchTwiceReusesCampaignEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, publishing.Dependencies{})

	first, err := h.service.PublishBatch(ctx, sequentialBatch("camp-w3", "s1", "s2"))
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	again, err := h.service.PublishBatch(ctx, sequentialBatch("camp-w3", "s1", "s2", "s3"))
	if err != nil {
		t.Fatalf("second publish batch: %v", err)
	}
	if again.Succeeded != 3 {
		t.Fatalf("expected three results, got %+v", again.Failures)
	}
	for i := range first.Results {
		if again.Results[i].EntryID != first.Results[i].EntryID || again.Results[i].TemplateID != first.Results[i].TemplateID {
			t.Fatalf("result %d: expected reused entry %+v, got %+v", i, first.Results[i], again.Results[i])
		}
	}
	if h.generator.Calls() != 3 {
		t.Fatalf("expected generation only for the new site, got %d calls", h.generator.Calls())
	}

	stored, err := h.service.ListEntries(ctx, "camp-w3")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected one entry per site, got %d", len(stored))
	}
	state, err := h.rotation.State(ctx, "s1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.TotalPostsCreated != 1 {
		t.Fatalf("expected s1 to be counted once, got %d", state.TotalPostsCreated)
	}
}
