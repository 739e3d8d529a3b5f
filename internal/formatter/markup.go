package formatter

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/templates"
)

var (
	annotatedTagPattern = regexp.MustCompile(`(?i)<(h[1-6]|p|blockquote)(\s[^>]*)?>`)
	classAttrPattern    = regexp.MustCompile(`(?i)\bclass\s*=\s*"([^"]*)"`)
	idAttrPattern       = regexp.MustCompile(`(?i)\s+id\s*=\s*"[^"]*"`)
	paragraphPattern    = regexp.MustCompile(`(?is)<p\b[^>]*>.*?</p>`)
	firstParagraph      = regexp.MustCompile(`(?is)<p\b([^>]*)>(.*?)</p>`)
	tocHeadingPattern   = regexp.MustCompile(`(?is)<h([23])(\s[^>]*)?>(.*?)</h[23]>`)
)

// applyTemplate tags headings, paragraphs and quotes with the template's
// class prefix and adds the template's fixed decorative blocks.
func applyTemplate(body string, tpl templates.Template, article Article, now time.Time) string {
	body = annotatedTagPattern.ReplaceAllStringFunc(body, func(tag string) string {
		parts := annotatedTagPattern.FindStringSubmatch(tag)
		name := strings.ToLower(parts[1])
		role := "paragraph"
		switch {
		case strings.HasPrefix(name, "h"):
			role = "heading"
		case name == "blockquote":
			role = "quote"
		}
		return "<" + parts[1] + withClass(parts[2], tpl.ClassPrefix+"-"+role) + ">"
	})

	topic := strings.TrimSpace(article.Keyword)
	if topic == "" {
		topic = strings.TrimSpace(article.Title)
	}
	topic = html.EscapeString(topic)

	if tpl.HasFeature(templates.FeatureTimestamp) {
		body = fmt.Sprintf(`<div class="%s-timestamp"><time datetime="%s">Published %s</time></div>`,
			tpl.ClassPrefix, now.UTC().Format(time.RFC3339), now.UTC().Format("January 2, 2006 15:04 MST")) + "\n" + body
	}
	if tpl.HasFeature(templates.FeatureHighlights) {
		body += "\n" + fmt.Sprintf(`<aside class="%[1]s-highlights"><strong>Key Benefits</strong><ul>`+
			`<li>Practical insight into %[2]s</li><li>Steps you can apply right away</li><li>Examples drawn from real projects</li>`+
			`</ul></aside>`, tpl.ClassPrefix, topic)
	}
	if tpl.HasFeature(templates.FeatureCallToAction) {
		body += "\n" + fmt.Sprintf(`<section class="%[1]s-cta"><strong>Ready to take the next step?</strong>`+
			`<p class="%[1]s-paragraph">Put these ideas about %[2]s to work for your team today.</p></section>`, tpl.ClassPrefix, topic)
	}
	return body
}

func withClass(attrs, class string) string {
	if loc := classAttrPattern.FindStringSubmatchIndex(attrs); loc != nil {
		existing := attrs[loc[2]:loc[3]]
		return attrs[:loc[2]] + strings.TrimSpace(existing+" "+class) + attrs[loc[3]:]
	}
	return attrs + ` class="` + class + `"`
}

func backlinkHTML(article Article) string {
	anchor := strings.TrimSpace(article.AnchorText)
	if anchor == "" {
		anchor = article.TargetURL
	}
	return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener">%s</a>`,
		html.EscapeString(article.TargetURL), html.EscapeString(anchor))
}

// insertBacklink places the target link according to position. Positions
// that cannot apply to the content fall back to a closing paragraph. Content
// that already links to the target is left alone.
func (f *Formatter) insertBacklink(body string, tpl templates.Template, article Article, position BacklinkPosition) string {
	if strings.Contains(body, `href="`+html.EscapeString(article.TargetURL)+`"`) {
		return body
	}
	link := backlinkHTML(article)

	switch normalizePosition(position) {
	case PositionRandom:
		paragraphs := paragraphPattern.FindAllStringIndex(body, -1)
		if len(paragraphs) > 2 {
			chosen := paragraphs[1+f.intn(len(paragraphs)-2)]
			closeAt := chosen[1] - len("</p>")
			return body[:closeAt] + " Learn more at " + link + "." + body[closeAt:]
		}
	case PositionNatural:
		ends := sentenceEnds(body)
		if len(ends) > 3 {
			at := ends[len(ends)/2]
			return body[:at] + " You can find more on this at " + link + "." + body[at:]
		}
	}

	return body + "\n" + fmt.Sprintf(`<p class="%s-paragraph">For further reading, visit %s.</p>`, tpl.ClassPrefix, link)
}

func normalizePosition(position BacklinkPosition) BacklinkPosition {
	switch BacklinkPosition(strings.ToLower(strings.TrimSpace(string(position)))) {
	case PositionConclusion:
		return PositionConclusion
	case PositionRandom:
		return PositionRandom
	default:
		return PositionNatural
	}
}

// sentenceEnds returns the byte offsets just past each sentence terminator
// found in text content. Markup is skipped.
func sentenceEnds(body string) []int {
	var ends []int
	inTag := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '<':
			inTag = true
		case c == '>':
			inTag = false
		case inTag:
		case c == '.' || c == '!' || c == '?':
			if i+1 == len(body) {
				ends = append(ends, i+1)
				continue
			}
			switch body[i+1] {
			case ' ', '\n', '\t', '\r', '<':
				ends = append(ends, i+1)
			}
		}
	}
	return ends
}

// buildTableOfContents anchors every h2/h3 as section-{n} and prepends a
// nested list of links. Fewer than two headings leaves the body untouched.
func buildTableOfContents(body string) (string, []Heading) {
	matches := tocHeadingPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) < 2 {
		return body, nil
	}

	headings := make([]Heading, 0, len(matches))
	var out strings.Builder
	last := 0
	for i, m := range matches {
		level := 2
		if body[m[2]:m[3]] == "3" {
			level = 3
		}
		attrs := ""
		if m[4] >= 0 {
			attrs = idAttrPattern.ReplaceAllString(body[m[4]:m[5]], "")
		}
		inner := body[m[6]:m[7]]
		anchor := fmt.Sprintf("section-%d", i+1)
		headings = append(headings, Heading{Level: level, Anchor: anchor, Text: plainText(inner)})

		out.WriteString(body[last:m[0]])
		fmt.Fprintf(&out, `<h%d%s id="%s">%s</h%d>`, level, attrs, anchor, inner, level)
		last = m[1]
	}
	out.WriteString(body[last:])

	return renderTableOfContents(headings) + "\n" + out.String(), headings
}

func renderTableOfContents(headings []Heading) string {
	var b strings.Builder
	b.WriteString(`<nav class="table-of-contents"><div class="toc-title">Table of Contents</div><ul>`)
	open, nested := false, false
	for _, h := range headings {
		item := fmt.Sprintf(`<li><a href="#%s">%s</a>`, h.Anchor, html.EscapeString(h.Text))
		if h.Level == 3 && open {
			if !nested {
				b.WriteString("<ul>")
				nested = true
			}
			b.WriteString(item + "</li>")
			continue
		}
		if nested {
			b.WriteString("</ul>")
			nested = false
		}
		if open {
			b.WriteString("</li>")
		}
		b.WriteString(item)
		open = true
	}
	if nested {
		b.WriteString("</ul>")
	}
	if open {
		b.WriteString("</li>")
	}
	b.WriteString("</ul></nav>")
	return b.String()
}

var variantSentences = []string{
	"Many readers start with %s.",
	"It also pays to look at %s.",
	"Finally, consider %s.",
}

// optimizeForSEO makes sure the keyword leads the first paragraph, appends
// keyword variants that are missing and wraps the body in an Article
// structured-data container.
func optimizeForSEO(body string, tpl templates.Template, keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword != "" {
		lead := fmt.Sprintf("This article explores %s. ", html.EscapeString(keyword))
		if m := firstParagraph.FindStringSubmatchIndex(body); m != nil {
			if !containsFold(plainText(body[m[4]:m[5]]), keyword) {
				body = body[:m[4]] + lead + body[m[4]:]
			}
		} else {
			body = fmt.Sprintf(`<p class="%s-paragraph">%s</p>`, tpl.ClassPrefix, strings.TrimSpace(lead)) + "\n" + body
		}

		text := strings.ToLower(plainText(body))
		var sentences []string
		for _, variant := range keywordVariants(keyword) {
			if len(sentences) == maxSEOVariantSentence {
				break
			}
			if strings.Contains(text, strings.ToLower(variant)) {
				continue
			}
			sentences = append(sentences, fmt.Sprintf(variantSentences[len(sentences)], html.EscapeString(variant)))
		}
		if len(sentences) > 0 {
			body += "\n" + fmt.Sprintf(`<p class="%s-paragraph seo-variants">%s</p>`, tpl.ClassPrefix, strings.Join(sentences, " "))
		}
	}
	return `<div class="structured-content" itemscope itemtype="https://schema.org/Article">` + "\n" + body + "\n</div>"
}
