package templates

import "slices"

// Category is a keyword-affinity bucket used to recommend templates.
type Category string

const (
	CategoryTechnology Category = "technology"
	CategoryBusiness   Category = "business"
	CategoryMarketing  Category = "marketing"
	CategoryNews       Category = "news"
	CategoryEditorial  Category = "editorial"
)

// Template is an immutable catalog entry describing how an article is styled.
type Template struct {
	ID              int
	Name            string
	ThemeKey        string
	StyleAttributes map[string]string
	FeatureTags     []string
	UseCaseHint     string

	// ClassPrefix drives the CSS class names applied by the formatter.
	ClassPrefix  string
	Categories   []Category
	ContentTypes []string
	Audiences    []string
}

// HasFeature reports whether the template carries the feature tag.
func (t Template) HasFeature(tag string) bool {
	return slices.Contains(t.FeatureTags, tag)
}

// HasCategory reports whether the template is tuned for the category.
func (t Template) HasCategory(category Category) bool {
	return slices.Contains(t.Categories, category)
}

func cloneTemplate(t Template) Template {
	out := t
	if t.StyleAttributes != nil {
		out.StyleAttributes = make(map[string]string, len(t.StyleAttributes))
		for k, v := range t.StyleAttributes {
			out.StyleAttributes[k] = v
		}
	}
	out.FeatureTags = slices.Clone(t.FeatureTags)
	out.Categories = slices.Clone(t.Categories)
	out.ContentTypes = slices.Clone(t.ContentTypes)
	out.Audiences = slices.Clone(t.Audiences)
	return out
}
