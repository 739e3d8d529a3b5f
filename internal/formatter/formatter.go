package formatter

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/yuin/goldmark"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/templates"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

var (
	ErrTemplateNotFound = errors.New("format: template not found")
	ErrEmptyContent     = errors.New("format: content is empty")
)

const (
	wordsPerMinute        = 200
	metaTitleLimit        = 60
	metaDescriptionLimit  = 155
	twitterTitleLimit     = 70
	twitterDescLimit      = 200
	openGraphTitleLimit   = 95
	openGraphDescLimit    = 300
	excerptSentenceCount  = 2
	maxKeywordVariants    = 8
	maxSEOVariantSentence = 3
)

// Formatter turns generated articles into template-styled HTML plus the
// metadata needed to publish them. It performs no I/O.
type Formatter struct {
	registry  *templates.Registry
	markdown  goldmark.Markdown
	converter *md.Converter
	intn      func(int) int
	now       func() time.Time
	logger    interfaces.Logger
}

// Option customises a Formatter.
type Option func(*Formatter)

// WithRandom overrides the source used by the random backlink position.
func WithRandom(fn func(n int) int) Option {
	return func(f *Formatter) {
		if fn != nil {
			f.intn = fn
		}
	}
}

// WithNow overrides the clock used for news timestamps.
func WithNow(now func() time.Time) Option {
	return func(f *Formatter) {
		if now != nil {
			f.now = now
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(f *Formatter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New builds a formatter backed by registry.
func New(registry *templates.Registry, opts ...Option) *Formatter {
	if registry == nil {
		registry = templates.NewRegistry()
	}
	f := &Formatter{
		registry:  registry,
		markdown:  newMarkdownEngine(),
		converter: md.NewConverter("", true, nil),
		intn:      rand.IntN,
		now:       time.Now,
		logger:    logging.FormatterLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Format runs the formatting steps in a fixed order: template styling,
// backlink, table of contents, SEO enrichment, then metrics.
func (f *Formatter) Format(article Article, opts Options) (*Result, error) {
	tpl, err := f.registry.Get(opts.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrTemplateNotFound, opts.TemplateID)
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, ErrEmptyContent
	}

	body, err := f.toHTML(article.Content)
	if err != nil {
		return nil, err
	}
	source := body

	body = applyTemplate(body, tpl, article, f.now())

	if opts.IncludeBacklink && strings.TrimSpace(article.TargetURL) != "" {
		body = f.insertBacklink(body, tpl, article, opts.BacklinkPosition)
	}

	var toc []Heading
	if opts.IncludeTableOfContents {
		body, toc = buildTableOfContents(body)
	}

	if opts.OptimizeForSEO {
		body = optimizeForSEO(body, tpl, article.Keyword)
	}

	result := &Result{
		TemplateID:      tpl.ID,
		Title:           article.Title,
		HTML:            body,
		TableOfContents: toc,
	}

	plain := plainText(body)
	words := strings.Fields(plain)
	result.WordCount = len(words)
	result.ReadingTime = int(math.Ceil(float64(result.WordCount) / wordsPerMinute))

	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = buildExcerpt(plainText(source))
		if opts.GenerateExcerpt {
			result.Excerpt = excerpt
		}
	} else {
		result.Excerpt = excerpt
	}

	result.MetaTitle = truncate(article.Title, metaTitleLimit)
	result.MetaDescription = truncate(excerpt, metaDescriptionLimit)
	result.Keywords = buildKeywords(article.Keyword, article.Tags)
	result.Social = SocialMeta{
		TwitterTitle:       truncate(article.Title, twitterTitleLimit),
		TwitterDescription: truncate(excerpt, twitterDescLimit),
		OpenGraphTitle:     truncate(article.Title, openGraphTitleLimit),
		OpenGraphDesc:      truncate(excerpt, openGraphDescLimit),
	}
	result.SEO = computeSEOMetrics(plain, result, article.Keyword)

	markdown, err := f.converter.ConvertString(body)
	if err != nil {
		return nil, fmt.Errorf("format: markdown rendition: %w", err)
	}
	result.Markdown = markdown

	f.logger.Debug("formatter.formatted",
		"template_id", tpl.ID,
		"word_count", result.WordCount,
		"keyword_density", result.SEO.KeywordDensity,
		"readability", result.SEO.ReadabilityScore,
	)
	return result, nil
}
