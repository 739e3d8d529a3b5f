package publishingcmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/commands"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/formatter"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/publishing"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/rotation"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/urlgen"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const retryFailedMessageType = "autopublish.publishing.retry"

// RetryFailedCommand re-runs the failed entries of a campaign.
type RetryFailedCommand struct {
	CampaignID string             `json:"campaign_id"`
	Rotation   rotation.Config    `json:"rotation"`
	Formatting *formatter.Options `json:"formatting,omitempty"`
	URLs       urlgen.Options     `json:"urls"`
}

// Type implements command.Message.
func (RetryFailedCommand) Type() string { return retryFailedMessageType }

// Campaign implements commands.CampaignScoped.
func (m RetryFailedCommand) Campaign() string { return m.CampaignID }

// Validate ensures the message carries the required fields before reaching handlers.
func (m RetryFailedCommand) Validate() error {
	if strings.TrimSpace(m.CampaignID) == "" {
		return validation.Errors{
			"campaign_id": validation.NewError("autopublish.publishing.retry.campaign_id_required", "campaign_id is required"),
		}
	}
	return nil
}

// RetryFailedHandler retries failed entries through the publishing service.
type RetryFailedHandler struct {
	inner *commands.Handler[RetryFailedCommand]
}

// NewRetryFailedHandler constructs a handler wired to the provided publisher.
func NewRetryFailedHandler(service Publisher, logger interfaces.Logger, onResult ResultFunc, opts ...commands.HandlerOption[RetryFailedCommand]) *RetryFailedHandler {
	exec := func(ctx context.Context, msg RetryFailedCommand) error {
		result, err := service.RetryFailed(ctx, publishing.RetryRequest{
			CampaignID: msg.CampaignID,
			Rotation:   msg.Rotation,
			Formatting: msg.Formatting,
			URLs:       msg.URLs,
		})
		if result != nil && onResult != nil {
			onResult(ctx, result)
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[RetryFailedCommand]{
		commands.WithLogger[RetryFailedCommand](logger),
		commands.WithOperation[RetryFailedCommand]("publishing.retry"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &RetryFailedHandler{
		inner: commands.NewHandler[RetryFailedCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[RetryFailedCommand].Execute.
func (h *RetryFailedHandler) Execute(ctx context.Context, msg RetryFailedCommand) error {
	return h.inner.Execute(ctx, msg)
}
