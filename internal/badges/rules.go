package badges

import (
	"fmt"
	"time"

	"golang.org/x/exp/slices"
)

// Badge identifiers. They are persisted in ledgers and must never be renamed.
const (
	SevenDayStreak       = "seven_day_streak"
	TwentyPosts          = "twenty_posts"
	OneYearOld           = "one_year_old"
	Capacity10000        = "capacity_10000"
	TotalLikes10000      = "total_likes_10000"
	SinglePost10000Likes = "single_post_10000_likes"
)

const (
	streakWindowDays   = 7
	streakRequiredDays = 7
	postCountThreshold = 20
	groupAgeThreshold  = 365 * 24 * time.Hour
	capacityThreshold  = 10000
	totalLikeThreshold = 10000
	singlePostLikes    = 10000
)

// Predicate decides whether a snapshot qualifies for a badge.
type Predicate func(*Statistics) bool

// Rule pairs a badge identifier with its predicate.
type Rule struct {
	ID        string
	Label     string
	Qualifies Predicate
}

// Registry is an ordered, immutable set of rules.
type Registry struct {
	rules []Rule
	index map[string]int
}

// NewRegistry validates and freezes rules in the given order.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, rule := range rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("%w: rule with empty id", ErrInvalidInput)
		}
		if rule.Qualifies == nil {
			return nil, fmt.Errorf("%w: rule %q has no predicate", ErrInvalidInput, rule.ID)
		}
		if _, dup := r.index[rule.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule %q", ErrInvalidInput, rule.ID)
		}
		r.index[rule.ID] = len(r.rules)
		r.rules = append(r.rules, rule)
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on invalid rules.
func MustRegistry(rules ...Rule) *Registry {
	r, err := NewRegistry(rules...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRules returns the built-in badge table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:    SevenDayStreak,
			Label: "Posted on 7 consecutive days",
			Qualifies: func(s *Statistics) bool {
				return s.DistinctActiveDaysInWindow(streakWindowDays) >= streakRequiredDays
			},
		},
		{
			ID:    TwentyPosts,
			Label: "20 memories posted",
			Qualifies: func(s *Statistics) bool {
				return s.PostCount >= postCountThreshold
			},
		},
		{
			ID:    OneYearOld,
			Label: "Group is one year old",
			Qualifies: func(s *Statistics) bool {
				return s.GroupAgeAtLeast(groupAgeThreshold)
			},
		},
		{
			ID:    Capacity10000,
			Label: "Group received 10,000 likes",
			Qualifies: func(s *Statistics) bool {
				return s.GroupCapacityMetricAtLeast(capacityThreshold)
			},
		},
		{
			ID:    TotalLikes10000,
			Label: "Memories received 10,000 likes in total",
			Qualifies: func(s *Statistics) bool {
				return s.TotalLikeCount >= totalLikeThreshold
			},
		},
		{
			ID:    SinglePost10000Likes,
			Label: "A memory received 10,000 likes",
			Qualifies: func(s *Statistics) bool {
				return s.HasPostWithLikesAtLeast(singlePostLikes)
			},
		},
	}
}

var defaultRegistry = MustRegistry(DefaultRules()...)

// DefaultRegistry returns the process-wide registry of built-in rules.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Rules returns a copy of the rules in evaluation order.
func (r *Registry) Rules() []Rule {
	return slices.Clone(r.rules)
}

// IDs returns the rule identifiers in evaluation order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.rules))
	for i, rule := range r.rules {
		ids[i] = rule.ID
	}
	return ids
}

// Lookup finds a rule by id.
func (r *Registry) Lookup(id string) (Rule, bool) {
	i, ok := r.index[id]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// Contains reports whether id is a known badge.
func (r *Registry) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Qualifying returns, in registry order, the ids whose predicate holds for
// stats and that are not in held.
func (r *Registry) Qualifying(stats *Statistics, held []string) []string {
	var out []string
	for _, rule := range r.rules {
		if slices.Contains(held, rule.ID) {
			continue
		}
		if rule.Qualifies(stats) {
			out = append(out, rule.ID)
		}
	}
	return out
}
