package formatter

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var blockTagPattern = regexp.MustCompile(`(?i)<(p|h[1-6]|div|ul|ol|blockquote|section|article|table)[\s>]`)

func newMarkdownEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// toHTML renders Markdown content. Content that already carries block-level
// markup is returned unchanged.
func (f *Formatter) toHTML(content string) (string, error) {
	if blockTagPattern.MatchString(content) {
		return strings.TrimSpace(content), nil
	}
	var buf bytes.Buffer
	if err := f.markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("format: markdown render: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
