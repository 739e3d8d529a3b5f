package formatter

import (
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

const blockSelectors = "p, h1, h2, h3, h4, h5, h6, li, div, blockquote, nav, aside, section, br, td, th"

// plainText strips markup, decodes entities and collapses whitespace. Block
// elements are separated so adjacent words do not fuse.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func splitSentences(text string) []string {
	var out []string
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		if sentence := strings.TrimSpace(raw); sentence != "" {
			out = append(out, sentence)
		}
	}
	return out
}

// buildExcerpt keeps the first two sentences and marks the cut with an
// ellipsis when more text follows.
func buildExcerpt(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) <= excerptSentenceCount {
		return strings.Join(sentences, " ")
	}
	excerpt := strings.Join(sentences[:excerptSentenceCount], " ")
	return strings.TrimRight(excerpt, ".!?") + "..."
}

// truncate caps value at limit runes, ellipsis included.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}

func keywordVariants(keyword string) []string {
	k := strings.ToLower(strings.TrimSpace(keyword))
	if k == "" {
		return nil
	}
	return []string{
		k + " guide",
		k + " tips",
		"best " + k,
		k + " strategies",
		k + " best practices",
		"how to use " + k,
		k + " examples",
		k + " benefits",
	}
}

func buildKeywords(keyword string, tags []string) []string {
	candidates := make([]string, 0, 1+maxKeywordVariants+len(tags))
	candidates = append(candidates, strings.TrimSpace(keyword))
	candidates = append(candidates, keywordVariants(keyword)...)
	candidates = append(candidates, tags...)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		key := strings.ToLower(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func computeSEOMetrics(plain string, result *Result, keyword string) SEOMetrics {
	metrics := SEOMetrics{}
	wordCount := result.WordCount

	sentences := len(splitSentences(plain))
	if sentences == 0 {
		sentences = 1
	}
	if wordCount > 0 {
		avg := float64(wordCount) / float64(sentences)
		metrics.ReadabilityScore = round2(math.Max(0, 100-2*avg))
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return metrics
	}
	if wordCount > 0 {
		occurrences := strings.Count(strings.ToLower(plain), keyword)
		metrics.KeywordDensity = round2(100 * float64(occurrences) / float64(wordCount))
	}

	score := 0
	if containsFold(result.MetaTitle, keyword) {
		score += 30
	}
	if containsFold(result.MetaDescription, keyword) {
		score += 25
	}
	for _, kw := range result.Keywords {
		if containsFold(kw, keyword) {
			score += 25
			break
		}
	}
	if containsFold(result.Title, keyword) {
		score += 20
	}
	metrics.MetaOptimization = min(score, 100)
	return metrics
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
