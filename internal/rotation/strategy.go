package rotation

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// antiRepetitionThreshold is the consecutive use count at which the
// sequential strategy skips to the next template in the pool.
const antiRepetitionThreshold = 2

// selection carries everything a strategy needs to pick one template.
type selection struct {
	index   int
	siteID  string
	state   *State
	pool    []int
	usage   map[int]int
	keyword string
	// maxConsecutive is the random strategy's repetition ceiling; zero disables it.
	maxConsecutive int
}

type selectFunc func(ctx context.Context, e *Engine, sel selection) (Assignment, error)

func (e *Engine) selector(strategy Strategy) (selectFunc, error) {
	switch normalizeStrategy(strategy) {
	case StrategySequential:
		return selectSequential, nil
	case StrategyRandom:
		return selectRandom, nil
	case StrategyDomainBased:
		return selectDomainBased, nil
	case StrategyKeyword:
		return selectKeyword, nil
	case StrategyBalanced:
		return selectBalanced, nil
	case StrategyPerformance:
		return selectPerformance, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
}

func normalizeStrategy(strategy Strategy) Strategy {
	normalized := Strategy(strings.ToLower(strings.TrimSpace(string(strategy))))
	if normalized == "" {
		return StrategySequential
	}
	return normalized
}

func selectSequential(_ context.Context, _ *Engine, sel selection) (Assignment, error) {
	n := len(sel.pool)
	candidate := sel.pool[sel.index%n]
	reason := fmt.Sprintf("sequential: position %d", sel.index%n)

	if last, ok := sel.state.LastTemplate(); ok && last == candidate && sel.state.ConsecutiveUseCount >= antiRepetitionThreshold {
		next := (sel.index + 1) % n
		candidate = sel.pool[next]
		reason = fmt.Sprintf("sequential: advanced to position %d after %d consecutive uses", next, sel.state.ConsecutiveUseCount)
	}
	return Assignment{SiteID: sel.siteID, TemplateID: candidate, Reason: reason}, nil
}

func selectRandom(_ context.Context, e *Engine, sel selection) (Assignment, error) {
	candidates := sel.pool
	reason := "random"

	if limit := sel.maxConsecutive; limit > 0 {
		if last, ok := sel.state.LastTemplate(); ok && sel.state.ConsecutiveUseCount >= limit {
			filtered := slices.DeleteFunc(slices.Clone(sel.pool), func(id int) bool { return id == last })
			if len(filtered) > 0 {
				candidates = filtered
				reason = fmt.Sprintf("random: excluded template %d after %d consecutive uses", last, sel.state.ConsecutiveUseCount)
			}
		}
	}

	return Assignment{SiteID: sel.siteID, TemplateID: candidates[e.intn(len(candidates))], Reason: reason}, nil
}

func selectDomainBased(_ context.Context, _ *Engine, sel selection) (Assignment, error) {
	hash := DomainHash(sel.siteID)
	idx := int(hash % uint32(len(sel.pool)))
	return Assignment{
		SiteID:     sel.siteID,
		TemplateID: sel.pool[idx],
		Reason:     fmt.Sprintf("domain-based: hash %d", hash),
	}, nil
}

func selectKeyword(ctx context.Context, e *Engine, sel selection) (Assignment, error) {
	keyword := sel.keyword
	source := "batch keyword"
	if e.keywords != nil {
		latest, err := e.keywords.LatestKeyword(ctx, sel.siteID)
		if err != nil && !isNotFound(err) {
			return Assignment{}, err
		}
		if strings.TrimSpace(latest) != "" {
			keyword = latest
			source = "site keyword"
		}
	}

	tpl := e.registry.RecommendByKeyword(keyword, sel.pool...)
	category, ok := e.registry.Classify(keyword)
	label := string(category)
	if !ok {
		label = "default"
	}
	return Assignment{
		SiteID:     sel.siteID,
		TemplateID: tpl.ID,
		Reason:     fmt.Sprintf("keyword-based: %s %q matched %s", source, keyword, label),
	}, nil
}

func selectBalanced(_ context.Context, e *Engine, sel selection) (Assignment, error) {
	ordered := e.registryOrdered(sel.pool)
	best := ordered[0]
	for _, id := range ordered[1:] {
		if sel.usage[id] < sel.usage[best] {
			best = id
		}
	}
	return Assignment{
		SiteID:     sel.siteID,
		TemplateID: best,
		Reason:     fmt.Sprintf("balanced: least used with %d posts", sel.usage[best]),
	}, nil
}

func selectPerformance(_ context.Context, e *Engine, sel selection) (Assignment, error) {
	if sel.state != nil && sel.state.Performance != nil && len(sel.state.Performance.TemplatePerformance) > 0 {
		scores := sel.state.Performance.TemplatePerformance
		best, found := 0, false
		for _, id := range e.registryOrdered(sel.pool) {
			score, ok := scores[id]
			if !ok {
				continue
			}
			if !found || score > scores[best] {
				best, found = id, true
			}
		}
		if found {
			return Assignment{
				SiteID:     sel.siteID,
				TemplateID: best,
				Reason:     fmt.Sprintf("performance-based: best score %.1f", scores[best]),
			}, nil
		}
	}
	return Assignment{
		SiteID:     sel.siteID,
		TemplateID: sel.pool[0],
		Reason:     "performance-based: no metrics, using first pool template",
	}, nil
}

// DomainHash is a polynomial rolling hash (multiplier 31) over the site id,
// wrapped to 32 bits and folded to a non-negative value.
func DomainHash(siteID string) uint32 {
	var h int32
	for _, r := range siteID {
		h = h*31 + int32(r)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

func (e *Engine) registryOrdered(pool []int) []int {
	ordered := slices.Clone(pool)
	slices.SortStableFunc(ordered, func(a, b int) int {
		return e.registry.Order(a) - e.registry.Order(b)
	})
	return ordered
}
