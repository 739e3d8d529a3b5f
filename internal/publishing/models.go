package publishing

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/workflow/simple"
)

// Status is the lifecycle state of a publish entry.
type Status string

const (
	StatusPending    = Status(simple.StatePending)
	StatusGenerating = Status(simple.StateGenerating)
	StatusPublished  = Status(simple.StatePublished)
	StatusFailed     = Status(simple.StateFailed)
)

// Entry is one site's unit of work within a campaign.
type Entry struct {
	bun.BaseModel `bun:"table:publish_entries,alias:pe"`

	ID               uuid.UUID `bun:",pk,type:uuid" json:"id"`
	SiteID           string    `bun:"site_id,notnull" json:"site_id"`
	CampaignID       string    `bun:"campaign_id,notnull" json:"campaign_id"`
	Position         int       `bun:"position,notnull" json:"position"`
	Keyword          string    `bun:"keyword,notnull" json:"keyword"`
	TargetURL        string    `bun:"target_url,notnull" json:"target_url"`
	AnchorText       string    `bun:"anchor_text,notnull" json:"anchor_text"`
	Prompt           string    `bun:"prompt" json:"prompt,omitempty"`
	GeneratedContent string    `bun:"generated_content" json:"generated_content,omitempty"`
	FormattedContent string    `bun:"formatted_content" json:"formatted_content,omitempty"`
	AssignedTemplate int       `bun:"assigned_template,notnull" json:"assigned_template"`
	Title            string    `bun:"title" json:"title,omitempty"`
	Excerpt          string    `bun:"excerpt" json:"excerpt,omitempty"`
	Slug             string    `bun:"slug" json:"slug,omitempty"`
	Status           Status    `bun:"status,notnull" json:"status"`
	PublishedURL     string    `bun:"published_url" json:"published_url,omitempty"`
	FailureStage     Stage     `bun:"failure_stage" json:"failure_stage,omitempty"`
	FailureMessage   string    `bun:"failure_message" json:"failure_message,omitempty"`
	Retryable        bool      `bun:"retryable,notnull" json:"retryable"`
	Attempts         int       `bun:"attempts,notnull" json:"attempts"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Publication is the durable record written by the publish step.
type Publication struct {
	bun.BaseModel `bun:"table:publications,alias:pub"`

	ID          uuid.UUID `bun:",pk,type:uuid" json:"id"`
	EntryID     uuid.UUID `bun:"entry_id,type:uuid,notnull" json:"entry_id"`
	SiteID      string    `bun:"site_id,notnull,unique:publications_site_slug" json:"site_id"`
	CampaignID  string    `bun:"campaign_id,notnull" json:"campaign_id"`
	Slug        string    `bun:"slug,notnull,unique:publications_site_slug" json:"slug"`
	Title       string    `bun:"title,notnull" json:"title"`
	HTML        string    `bun:"html,notnull" json:"html"`
	Markdown    string    `bun:"markdown" json:"markdown,omitempty"`
	URL         string    `bun:"url,notnull" json:"url"`
	TemplateID  int       `bun:"template_id,notnull" json:"template_id"`
	Excerpt     string    `bun:"excerpt" json:"excerpt,omitempty"`
	WordCount   int       `bun:"word_count,notnull" json:"word_count"`
	PublishedAt time.Time `bun:"published_at,notnull" json:"published_at"`
}

// withSlug swaps the slug and the trailing path segment of the URL.
func (p *Publication) withSlug(slug string) {
	previous := p.Slug
	p.Slug = slug
	if previous == "" || p.URL == "" {
		return
	}
	parsed, err := url.Parse(p.URL)
	if err != nil || !strings.HasSuffix(parsed.Path, "/"+previous) {
		return
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, previous) + slug
	p.URL = parsed.String()
}

// BatchRequest starts a campaign across several sites.
type BatchRequest struct {
	CampaignID string
	SiteIDs    []string
	Keyword    string
	TargetURL  string
	AnchorText string
	Prompt     string
	// Title and Content skip generation when Content is set.
	Title      string
	Content    string
	Rotation   rotation.Config
	Formatting *formatter.Options
	URLs       urlgen.Options
}

// RetryRequest re-runs the failed entries of a campaign.
type RetryRequest struct {
	CampaignID string
	Rotation   rotation.Config
	Formatting *formatter.Options
	URLs       urlgen.Options
}

// Result describes a published entry.
type Result struct {
	EntryID          uuid.UUID            `json:"entry_id"`
	SiteID           string               `json:"site_id"`
	TemplateID       int                  `json:"template_id"`
	PublishedURL     string               `json:"published_url"`
	Slug             string               `json:"slug"`
	Title            string               `json:"title"`
	WordCount        int                  `json:"word_count"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
	SEO              formatter.SEOMetrics `json:"seo"`
}

// Failure describes an entry that stopped at a pipeline stage.
type Failure struct {
	EntryID      uuid.UUID `json:"entry_id"`
	SiteID       string    `json:"site_id"`
	ErrorMessage string    `json:"error_message"`
	Stage        Stage     `json:"stage"`
	Retryable    bool      `json:"retryable"`
}

// Outcome holds exactly one of Result or Failure, in input order.
type Outcome struct {
	SiteID  string   `json:"site_id"`
	Result  *Result  `json:"result,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// BatchResult summarises a batch or retry run.
type BatchResult struct {
	CampaignID          string      `json:"campaign_id"`
	Outcomes            []Outcome   `json:"outcomes"`
	Results             []Result    `json:"results"`
	Failures            []Failure   `json:"failures"`
	TemplateUsage       map[int]int `json:"template_usage"`
	AverageProcessingMs float64     `json:"average_processing_ms"`
	TotalWords          int         `json:"total_words"`
	SEOScore            float64     `json:"seo_score"`
	TotalSites          int         `json:"total_sites"`
	Succeeded           int         `json:"succeeded"`
	Failed              int         `json:"failed"`
}
