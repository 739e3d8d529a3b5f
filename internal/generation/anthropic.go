package generation

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7

	defaultSystemPrompt = `You write original, well structured blog articles in Markdown.
Use ## and ### headings, short paragraphs and plain language.
Mention the anchor text naturally once; never invent statistics.`

	defaultUserPrompt = `Write an article of roughly 800 words about "{{.Keyword}}".
The article should give readers a reason to visit {{.TargetURL}} using the phrase "{{.AnchorText}}".
{{.Prompt}}`
)

// Settings controls the model call and the prompts sent with it. Prompts are
// text/template sources executed against the generation request, so they may
// reference {{.Keyword}}, {{.TargetURL}}, {{.AnchorText}} and {{.Prompt}}.
type Settings struct {
	Model        string  `json:"model" yaml:"model"`
	MaxTokens    int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	SystemPrompt string  `json:"system_prompt,omitempty" yaml:"system_prompt"`
	UserPrompt   string  `json:"user_prompt,omitempty" yaml:"user_prompt"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		Model:        DefaultModel,
		MaxTokens:    DefaultMaxTokens,
		Temperature:  DefaultTemperature,
		SystemPrompt: defaultSystemPrompt,
		UserPrompt:   defaultUserPrompt,
	}
}

func (s Settings) withDefaults() Settings {
	defaults := DefaultSettings()
	if strings.TrimSpace(s.Model) == "" {
		s.Model = defaults.Model
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaults.MaxTokens
	}
	if s.Temperature < 0 {
		s.Temperature = defaults.Temperature
	}
	if strings.TrimSpace(s.SystemPrompt) == "" {
		s.SystemPrompt = defaults.SystemPrompt
	}
	if strings.TrimSpace(s.UserPrompt) == "" {
		s.UserPrompt = defaults.UserPrompt
	}
	return s
}

// PromptFunc sends one prompt and returns the text of the first content block.
type PromptFunc func(ctx context.Context, system, user, schema string) (string, error)

// Option configures an AnthropicGenerator.
type Option func(*AnthropicGenerator)

// WithPromptFunc replaces the Anthropic call, mainly for tests.
func WithPromptFunc(fn PromptFunc) Option {
	return func(g *AnthropicGenerator) {
		if fn != nil {
			g.prompt = fn
		}
	}
}

// WithLogger sets the generator logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(g *AnthropicGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// AnthropicGenerator produces articles through the Anthropic messages API.
// It asks for structured output and falls back to front matter or plain
// Markdown when the model ignores the schema.
type AnthropicGenerator struct {
	settings Settings
	system   *template.Template
	user     *template.Template
	prompt   PromptFunc
	schema   *jsonschema.Schema
	logger   interfaces.Logger
}

// NewAnthropicGenerator builds a generator. apiKey may be empty only when a
// prompt function is supplied.
func NewAnthropicGenerator(apiKey string, settings Settings, opts ...Option) (*AnthropicGenerator, error) {
	schema, err := compileArticleSchema()
	if err != nil {
		return nil, fmt.Errorf("content generation: compile article schema: %w", err)
	}
	settings = settings.withDefaults()
	system, err := parsePrompt("system", settings.SystemPrompt)
	if err != nil {
		return nil, err
	}
	user, err := parsePrompt("user", settings.UserPrompt)
	if err != nil {
		return nil, err
	}
	g := &AnthropicGenerator{
		settings: settings,
		system:   system,
		user:     user,
		schema:   schema,
		logger:   logging.GenerationLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.prompt == nil {
		if strings.TrimSpace(apiKey) == "" {
			return nil, ErrAPIKeyRequired
		}
		g.prompt = anthropicPrompt(apiKey, g.settings)
	}
	return g, nil
}

func anthropicPrompt(apiKey string, settings Settings) PromptFunc {
	requestSettings := types.RequestSettings{
		Model:       settings.Model,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	}
	return func(ctx context.Context, system, user, schema string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		response, err := anthropic.PromptWithSettings(system, user, schema, apiKey, requestSettings)
		if err != nil {
			return "", err
		}
		if len(response.Content) == 0 {
			return "", ErrEmptyResponse
		}
		return response.Content[0].Text, nil
	}
}

// Generate renders the prompts for req, calls the model and parses its reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, req interfaces.GenerationRequest) (*interfaces.GeneratedContent, error) {
	system, err := renderPrompt(g.system, req)
	if err != nil {
		return nil, err
	}
	user, err := renderPrompt(g.user, req)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("generation.request", "keyword", req.Keyword, "model", g.settings.Model)
	text, err := g.prompt(ctx, system, user, articleSchema)
	if err != nil {
		return nil, describeFailure(err)
	}

	article, err := g.parse(text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(article.Title) == "" {
		article.Title = req.Keyword
	}
	g.logger.Info("generation.completed", "keyword", req.Keyword, "title", article.Title, "chars", len(article.Content))
	return article, nil
}

func parsePrompt(name, source string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("content generation: parse %s prompt: %w", name, err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, req interfaces.GenerationRequest) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("content generation: render %s prompt: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// describeFailure rewrites transport failures so their retryability is
// visible in the message.
func describeFailure(err error) error {
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "429"), strings.Contains(message, "rate_limit"):
		return fmt.Errorf("content generation: rate limit: %w", err)
	case strings.Contains(message, "529"), strings.Contains(message, "overloaded"), strings.Contains(message, "503"):
		return fmt.Errorf("content generation: service unavailable: %w", err)
	case strings.Contains(message, "deadline exceeded"), strings.Contains(message, "timed out"):
		return fmt.Errorf("content generation: timeout: %w", err)
	}
	return fmt.Errorf("content generation: %w", err)
}
