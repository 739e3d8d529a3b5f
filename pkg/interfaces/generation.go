package interfaces

import "context"

// ContentGenerator produces raw article text for a publish entry.
// Implementations report failures through the returned error; messages that
// mention rate limits, timeouts or network trouble are treated as retryable.
type ContentGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedContent, error)
}

// GenerationRequest carries the campaign inputs handed to a generator.
type GenerationRequest struct {
	Keyword    string
	TargetURL  string
	AnchorText string
	Prompt     string
}

// GeneratedContent is the raw article returned by a generator. Content may be
// Markdown or HTML.
type GeneratedContent struct {
	Title   string
	Content string
}
