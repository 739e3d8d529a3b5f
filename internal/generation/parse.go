package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const articleSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "content": {"type": "string", "minLength": 1}
  },
  "required": ["title", "content"]
}`

var errNotStructured = errors.New("response is not structured")

func compileArticleSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("article.json", strings.NewReader(articleSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("article.json")
}

type articleFrontMatter struct {
	Title string `yaml:"title"`
}

// parse accepts, in order: JSON matching the article schema, Markdown with
// YAML front matter, then plain Markdown whose first H1 becomes the title.
func (g *AnthropicGenerator) parse(text string) (*interfaces.GeneratedContent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	article, err := g.parseStructured(text)
	if err == nil {
		return article, nil
	}
	if !errors.Is(err, errNotStructured) {
		return nil, err
	}

	if strings.HasPrefix(text, "---") {
		var meta articleFrontMatter
		body, err := frontmatter.Parse(strings.NewReader(text), &meta)
		if err == nil {
			return finish(meta.Title, string(body))
		}
		g.logger.Warn("generation.frontmatter.invalid", "error", err)
	}

	title, body := splitHeading(text)
	return finish(title, body)
}

func (g *AnthropicGenerator) parseStructured(text string) (*interfaces.GeneratedContent, error) {
	raw := stripCodeFence(text)
	if !strings.HasPrefix(raw, "{") {
		return nil, errNotStructured
	}
	var payload any
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, errNotStructured
	}
	if err := g.schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("content generation: structured response rejected: %w", err)
	}
	fields, _ := payload.(map[string]any)
	title, _ := fields["title"].(string)
	content, _ := fields["content"].(string)
	return finish(title, content)
}

func finish(title, content string) (*interfaces.GeneratedContent, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	return &interfaces.GeneratedContent{Title: strings.TrimSpace(title), Content: content}, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

func splitHeading(text string) (string, string) {
	first, rest, _ := strings.Cut(text, "\n")
	if heading, ok := strings.CutPrefix(strings.TrimSpace(first), "# "); ok {
		return heading, rest
	}
	return "", text
}
