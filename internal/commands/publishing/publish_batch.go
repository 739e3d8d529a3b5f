package publishingcmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/commands"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/publishing"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const publishBatchMessageType = "autopublish.publishing.batch"

// Publisher is the slice of the publishing service the command handlers need.
type Publisher interface {
	PublishBatch(ctx context.Context, req publishing.BatchRequest) (*publishing.BatchResult, error)
	RetryFailed(ctx context.Context, req publishing.RetryRequest) (*publishing.BatchResult, error)
}

// ResultFunc receives the summary of a completed run.
type ResultFunc func(ctx context.Context, result *publishing.BatchResult)

// PublishBatchCommand requests one campaign across several sites.
type PublishBatchCommand struct {
	CampaignID string             `json:"campaign_id"`
	SiteIDs    []string           `json:"site_ids"`
	Keyword    string             `json:"keyword"`
	TargetURL  string             `json:"target_url"`
	AnchorText string             `json:"anchor_text,omitempty"`
	Prompt     string             `json:"prompt,omitempty"`
	Title      string             `json:"title,omitempty"`
	Content    string             `json:"content,omitempty"`
	Rotation   rotation.Config    `json:"rotation"`
	Formatting *formatter.Options `json:"formatting,omitempty"`
	URLs       urlgen.Options     `json:"urls"`
}

// Type implements command.Message.
func (PublishBatchCommand) Type() string { return publishBatchMessageType }

// Campaign implements commands.CampaignScoped.
func (m PublishBatchCommand) Campaign() string { return m.CampaignID }

// Validate ensures the message carries the required fields before reaching handlers.
func (m PublishBatchCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.CampaignID) == "" {
		errs["campaign_id"] = validation.NewError("autopublish.publishing.batch.campaign_id_required", "campaign_id is required")
	}
	if len(m.SiteIDs) == 0 {
		errs["site_ids"] = validation.NewError("autopublish.publishing.batch.site_ids_required", "at least one site id is required")
	}
	if strings.TrimSpace(m.Keyword) == "" {
		errs["keyword"] = validation.NewError("autopublish.publishing.batch.keyword_required", "keyword is required")
	}
	if err := validation.Validate(m.TargetURL, validation.Required, is.URL); err != nil {
		errs["target_url"] = validation.NewError("autopublish.publishing.batch.target_url_invalid", "target_url must be an absolute url")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (m PublishBatchCommand) request() publishing.BatchRequest {
	return publishing.BatchRequest{
		CampaignID: m.CampaignID,
		SiteIDs:    m.SiteIDs,
		Keyword:    m.Keyword,
		TargetURL:  m.TargetURL,
		AnchorText: m.AnchorText,
		Prompt:     m.Prompt,
		Title:      m.Title,
		Content:    m.Content,
		Rotation:   m.Rotation,
		Formatting: m.Formatting,
		URLs:       m.URLs,
	}
}

// PublishBatchHandler runs batches through the publishing service.
type PublishBatchHandler struct {
	inner *commands.Handler[PublishBatchCommand]
}

// NewPublishBatchHandler constructs a handler wired to the provided publisher.
// A batch whose entries all fail still completes; only batch level errors are returned.
func NewPublishBatchHandler(service Publisher, logger interfaces.Logger, onResult ResultFunc, opts ...commands.HandlerOption[PublishBatchCommand]) *PublishBatchHandler {
	exec := func(ctx context.Context, msg PublishBatchCommand) error {
		result, err := service.PublishBatch(ctx, msg.request())
		if result != nil && onResult != nil {
			onResult(ctx, result)
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[PublishBatchCommand]{
		commands.WithLogger[PublishBatchCommand](logger),
		commands.WithOperation[PublishBatchCommand]("publishing.batch"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &PublishBatchHandler{
		inner: commands.NewHandler[PublishBatchCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[PublishBatchCommand].Execute.
func (h *PublishBatchHandler) Execute(ctx context.Context, msg PublishBatchCommand) error {
	return h.inner.Execute(ctx, msg)
}
