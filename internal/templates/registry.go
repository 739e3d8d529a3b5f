package templates

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	ErrTemplateNotFound    = errors.New("templates: template not found")
	ErrDuplicateTemplate   = errors.New("templates: duplicate template id")
	ErrEmptyCatalog        = errors.New("templates: catalog must contain at least one template")
	ErrDefaultNotInCatalog = errors.New("templates: default template missing from catalog")
)

const recommendationLimit = 3

// Registry is a read-only template catalog with keyword-affinity helpers.
// It is safe for concurrent use.
type Registry struct {
	templates []Template
	byID      map[int]int
	defaultID int
}

// NewRegistry returns the built-in catalog with "Clean Minimal" as default.
func NewRegistry() *Registry {
	registry, err := NewCustomRegistry(CleanMinimalID, builtinCatalog())
	if err != nil {
		panic(err)
	}
	return registry
}

// NewCustomRegistry builds a registry over the supplied templates. Templates
// are ordered by id.
func NewCustomRegistry(defaultID int, catalog []Template) (*Registry, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	sorted := make([]Template, 0, len(catalog))
	for _, tpl := range catalog {
		sorted = append(sorted, cloneTemplate(tpl))
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[int]int, len(sorted))
	for idx, tpl := range sorted {
		if _, exists := byID[tpl.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTemplate, tpl.ID)
		}
		byID[tpl.ID] = idx
	}
	if _, ok := byID[defaultID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrDefaultNotInCatalog, defaultID)
	}
	return &Registry{templates: sorted, byID: byID, defaultID: defaultID}, nil
}

// Get returns the template with the given id. Unknown ids fail.
func (r *Registry) Get(id int) (Template, error) {
	idx, ok := r.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
	}
	return cloneTemplate(r.templates[idx]), nil
}

// GetOrDefault returns the template with the given id or the default template
// when the id is unknown. Callers opt into this fallback explicitly.
func (r *Registry) GetOrDefault(id int) Template {
	if tpl, err := r.Get(id); err == nil {
		return tpl
	}
	return r.Default()
}

// Has reports whether id exists in the catalog.
func (r *Registry) Has(id int) bool {
	_, ok := r.byID[id]
	return ok
}

// Default returns the designated fallback template.
func (r *Registry) Default() Template {
	return cloneTemplate(r.templates[r.byID[r.defaultID]])
}

// DefaultID returns the designated fallback template id.
func (r *Registry) DefaultID() int {
	return r.defaultID
}

// All returns the catalog in registry order.
func (r *Registry) All() []Template {
	out := make([]Template, len(r.templates))
	for i, tpl := range r.templates {
		out[i] = cloneTemplate(tpl)
	}
	return out
}

// IDs returns template ids in registry order.
func (r *Registry) IDs() []int {
	ids := make([]int, len(r.templates))
	for i, tpl := range r.templates {
		ids[i] = tpl.ID
	}
	return ids
}

// Order returns the registry position of id, or -1 when unknown.
func (r *Registry) Order(id int) int {
	idx, ok := r.byID[id]
	if !ok {
		return -1
	}
	return idx
}

// Classify returns the first category whose terms appear in keyword.
func (r *Registry) Classify(keyword string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(keyword))
	if normalized == "" {
		return "", false
	}
	for _, rule := range categoryRules {
		if matchesAny(normalized, rule.terms) {
			return rule.category, true
		}
	}
	return "", false
}

// RecommendByKeyword picks the template for the first matching category in
// priority order (technology, business, marketing, news, editorial) or the
// default template. When pool is supplied the result is restricted to it.
func (r *Registry) RecommendByKeyword(keyword string, pool ...int) Template {
	candidates := r.templates
	if len(pool) > 0 {
		candidates = r.restrict(pool)
		if len(candidates) == 0 {
			return r.Default()
		}
	}

	if category, ok := r.Classify(keyword); ok {
		for _, tpl := range candidates {
			if tpl.HasCategory(category) {
				return cloneTemplate(tpl)
			}
		}
	}

	for _, tpl := range candidates {
		if tpl.ID == r.defaultID {
			return cloneTemplate(tpl)
		}
	}
	return cloneTemplate(candidates[0])
}

// RecommendForCampaign scores every template by keyword-category hits,
// content-type hits and audience hits and returns the three best, ties broken
// by registry order.
func (r *Registry) RecommendForCampaign(keywords []string, audience, contentType string) []Template {
	type scored struct {
		tpl   Template
		score int
		order int
	}

	hits := make([]Category, 0, len(keywords))
	for _, keyword := range keywords {
		normalized := strings.ToLower(strings.TrimSpace(keyword))
		if normalized == "" {
			continue
		}
		for _, rule := range categoryRules {
			if matchesAny(normalized, rule.terms) {
				hits = append(hits, rule.category)
			}
		}
	}

	audience = strings.ToLower(strings.TrimSpace(audience))
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	results := make([]scored, 0, len(r.templates))
	for idx, tpl := range r.templates {
		score := 0
		for _, category := range hits {
			if tpl.HasCategory(category) {
				score++
			}
		}
		if contentType != "" && containsFold(tpl.ContentTypes, contentType) {
			score++
		}
		if audience != "" && containsFold(tpl.Audiences, audience) {
			score++
		}
		results = append(results, scored{tpl: tpl, score: score, order: idx})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].order < results[j].order
	})

	limit := min(recommendationLimit, len(results))
	out := make([]Template, 0, limit)
	for _, entry := range results[:limit] {
		out = append(out, cloneTemplate(entry.tpl))
	}
	return out
}

// restrict returns catalog entries whose ids appear in pool, in registry order.
func (r *Registry) restrict(pool []int) []Template {
	out := make([]Template, 0, len(pool))
	for _, tpl := range r.templates {
		if slices.Contains(pool, tpl.ID) {
			out = append(out, tpl)
		}
	}
	return out
}

func matchesAny(value string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(value, term) {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
