package commands

import (
	"context"
	"time"
)

// DefaultRunTimeout bounds one pipeline command. Batches pause between sites,
// so the budget covers a full campaign rather than a single request.
const DefaultRunTimeout = 10 * time.Minute

// CampaignScoped is implemented by commands that act on one campaign.
type CampaignScoped interface {
	Campaign() string
}

// runScope derives the context a run executes under. A zero budget leaves
// the caller's deadline in charge.
func runScope(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}

// scopeFields names the run in logs and error metadata.
func scopeFields(command, operation string, msg any) map[string]any {
	fields := map[string]any{"command": command}
	if operation != "" {
		fields["operation"] = operation
	}
	if scoped, ok := msg.(CampaignScoped); ok {
		if campaign := scoped.Campaign(); campaign != "" {
			fields["campaign_id"] = campaign
		}
	}
	return fields
}
