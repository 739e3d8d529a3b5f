package generation

import (
	"context"
	"errors"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

var (
	ErrAPIKeyRequired = errors.New("content generation: api key required")
	ErrDisabled       = errors.New("content generation: generator disabled")
	ErrEmptyResponse  = errors.New("content generation: empty response")
)

// Func adapts a function to interfaces.ContentGenerator.
type Func func(ctx context.Context, req interfaces.GenerationRequest) (*interfaces.GeneratedContent, error)

func (f Func) Generate(ctx context.Context, req interfaces.GenerationRequest) (*interfaces.GeneratedContent, error) {
	return f(ctx, req)
}

// Disabled rejects every request. Batches must then supply their own content.
type Disabled struct{}

func (Disabled) Generate(context.Context, interfaces.GenerationRequest) (*interfaces.GeneratedContent, error) {
	return nil, ErrDisabled
}

var (
	_ interfaces.ContentGenerator = Func(nil)
	_ interfaces.ContentGenerator = Disabled{}
	_ interfaces.ContentGenerator = (*AnthropicGenerator)(nil)
)
