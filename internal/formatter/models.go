package formatter

// BacklinkPosition controls where the target link is placed.
type BacklinkPosition string

const (
	PositionNatural    BacklinkPosition = "natural"
	PositionConclusion BacklinkPosition = "conclusion"
	PositionRandom     BacklinkPosition = "random"
)

// Article is the raw material handed to the formatter. Content may be HTML or
// Markdown.
type Article struct {
	Title      string
	Content    string
	Keyword    string
	TargetURL  string
	AnchorText string
	Excerpt    string
	Author     string
	Category   string
	Tags       []string
}

// Options toggles formatting steps.
type Options struct {
	TemplateID             int              `json:"template_id" yaml:"template_id"`
	IncludeBacklink        bool             `json:"include_backlink" yaml:"include_backlink"`
	BacklinkPosition       BacklinkPosition `json:"backlink_position" yaml:"backlink_position"`
	OptimizeForSEO         bool             `json:"optimize_for_seo" yaml:"optimize_for_seo"`
	IncludeTableOfContents bool             `json:"include_table_of_contents" yaml:"include_table_of_contents"`
	GenerateExcerpt        bool             `json:"generate_excerpt" yaml:"generate_excerpt"`
}

// DefaultOptions matches what the publishing pipeline uses when a batch does
// not override formatting.
func DefaultOptions() Options {
	return Options{
		IncludeBacklink:        true,
		BacklinkPosition:       PositionNatural,
		OptimizeForSEO:         true,
		IncludeTableOfContents: true,
		GenerateExcerpt:        true,
	}
}

// Heading is a table of contents entry.
type Heading struct {
	Level  int    `json:"level"`
	Anchor string `json:"anchor"`
	Text   string `json:"text"`
}

// SocialMeta holds platform specific title and description variants.
type SocialMeta struct {
	TwitterTitle       string `json:"twitter_title"`
	TwitterDescription string `json:"twitter_description"`
	OpenGraphTitle     string `json:"og_title"`
	OpenGraphDesc      string `json:"og_description"`
}

// SEOMetrics summarises keyword usage and metadata quality.
type SEOMetrics struct {
	KeywordDensity   float64 `json:"keyword_density"`
	ReadabilityScore float64 `json:"readability_score"`
	MetaOptimization int     `json:"meta_optimization"`
}

// Result is the formatted article. Callers must treat it as read-only.
type Result struct {
	TemplateID      int        `json:"template_id"`
	Title           string     `json:"title"`
	HTML            string     `json:"html"`
	Markdown        string     `json:"markdown"`
	Excerpt         string     `json:"excerpt,omitempty"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	Keywords        []string   `json:"keywords"`
	Social          SocialMeta `json:"social"`
	TableOfContents []Heading  `json:"table_of_contents,omitempty"`
	WordCount       int        `json:"word_count"`
	ReadingTime     int        `json:"reading_time"`
	SEO             SEOMetrics `json:"seo"`
}
