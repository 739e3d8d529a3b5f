package rotation

import (
	"maps"
	"time"

	"github.com/uptrace/bun"
)

// Strategy names a template rotation policy.
type Strategy string

const (
	StrategySequential  Strategy = "sequential"
	StrategyRandom      Strategy = "random"
	StrategyDomainBased Strategy = "domain-based"
	StrategyKeyword     Strategy = "keyword-based"
	StrategyBalanced    Strategy = "balanced"
	StrategyPerformance Strategy = "performance-based"
)

// Config selects the strategy and the templates it may pick from.
type Config struct {
	Strategy          Strategy `json:"strategy" yaml:"strategy"`
	TemplatePool      []int    `json:"template_pool,omitempty" yaml:"template_pool"`
	ExcludeTemplates  []int    `json:"exclude_templates,omitempty" yaml:"exclude_templates"`
	MaxConsecutiveUse int      `json:"max_consecutive_use,omitempty" yaml:"max_consecutive_use"`
}

// Assignment is the template chosen for one site.
type Assignment struct {
	SiteID     string `json:"site_id"`
	TemplateID int    `json:"template_id"`
	Reason     string `json:"reason"`
}

// State is the persisted rotation memory for a site.
type State struct {
	bun.BaseModel `bun:"table:rotation_states,alias:rs"`

	SiteID              string       `bun:"site_id,pk" json:"site_id"`
	LastTemplateUsed    *int         `bun:"last_template_used" json:"last_template_used,omitempty"`
	ConsecutiveUseCount int          `bun:"consecutive_use_count,notnull" json:"consecutive_use_count"`
	TotalPostsCreated   int          `bun:"total_posts_created,notnull" json:"total_posts_created"`
	LastCampaignID      string       `bun:"last_campaign_id" json:"last_campaign_id,omitempty"`
	TemplateCounts      map[int]int  `bun:"template_counts,type:jsonb" json:"template_counts,omitempty"`
	Performance         *Performance `bun:"performance,type:jsonb" json:"performance,omitempty"`
	Version             int64        `bun:"version,notnull" json:"version"`
	CreatedAt           time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// Performance tracks per-template scores recorded for a site.
type Performance struct {
	TemplatePerformance map[int]float64 `json:"template_performance"`
	Samples             map[int]int     `json:"samples,omitempty"`
}

// LastTemplate returns the last assigned template id and whether one exists.
func (s *State) LastTemplate() (int, bool) {
	if s == nil || s.LastTemplateUsed == nil {
		return 0, false
	}
	return *s.LastTemplateUsed, true
}

func cloneState(s *State) *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.LastTemplateUsed != nil {
		last := *s.LastTemplateUsed
		out.LastTemplateUsed = &last
	}
	out.TemplateCounts = maps.Clone(s.TemplateCounts)
	if s.Performance != nil {
		out.Performance = &Performance{
			TemplatePerformance: maps.Clone(s.Performance.TemplatePerformance),
			Samples:             maps.Clone(s.Performance.Samples),
		}
	}
	return &out
}
