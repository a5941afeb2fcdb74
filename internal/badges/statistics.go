package badges

import (
	"context"
	"time"
)

// Statistics is a read-only snapshot of a group's activity, taken at
// EvaluatedAt. Rules only ever see this value.
type Statistics struct {
	GroupID        int64
	PostCount      int
	TotalLikeCount int64
	MaxPostLikes   int64
	GroupCreatedAt time.Time
	CapacityMetric int64
	EvaluatedAt    time.Time

	// LookbackDays bounds DistinctActiveDaysInWindow.
	LookbackDays int
	activeDays   []DayActivity
}

// DayActivity describes one UTC calendar date that had at least one post.
// LatestAt is the creation time of the newest post on that date.
type DayActivity struct {
	Day      time.Time
	LatestAt time.Time
}

// HasPostWithLikesAtLeast reports whether any single post reached threshold likes.
func (s *Statistics) HasPostWithLikesAtLeast(threshold int64) bool {
	return s.PostCount > 0 && s.MaxPostLikes >= threshold
}

// DistinctActiveDaysInWindow counts distinct UTC dates on which at least one
// post was created inside the trailing windowDays*24h window ending at
// EvaluatedAt. Windows longer than LookbackDays are clamped.
func (s *Statistics) DistinctActiveDaysInWindow(windowDays int) int {
	if windowDays <= 0 {
		return 0
	}
	if s.LookbackDays > 0 && windowDays > s.LookbackDays {
		windowDays = s.LookbackDays
	}

	windowStart := s.EvaluatedAt.Add(-time.Duration(windowDays) * 24 * time.Hour)
	seen := make(map[time.Time]struct{}, len(s.activeDays))
	for _, day := range s.activeDays {
		if day.LatestAt.Before(windowStart) || day.LatestAt.After(s.EvaluatedAt) {
			continue
		}
		seen[utcDate(day.Day)] = struct{}{}
	}
	return len(seen)
}

// GroupAgeAtLeast reports whether the group existed for at least d.
func (s *Statistics) GroupAgeAtLeast(d time.Duration) bool {
	return !s.GroupCreatedAt.IsZero() && s.EvaluatedAt.Sub(s.GroupCreatedAt) >= d
}

// GroupCapacityMetricAtLeast reports whether the capacity metric reached threshold.
func (s *Statistics) GroupCapacityMetricAtLeast(threshold int64) bool {
	return s.CapacityMetric >= threshold
}

// GroupFacts is what the provider needs from the group record.
type GroupFacts struct {
	CreatedAt      time.Time
	CapacityMetric int64
}

// PostActivity is the aggregate view of a group's posts. Days only covers
// posts created at or after the requested lower bound.
type PostActivity struct {
	PostCount    int
	TotalLikes   int64
	MaxPostLikes int64
	Days         []DayActivity
}

// GroupSource looks up group facts. A missing group yields (nil, nil).
type GroupSource interface {
	GroupFacts(ctx context.Context, groupID int64) (*GroupFacts, error)
}

// ActivitySource aggregates a group's posts.
type ActivitySource interface {
	PostActivity(ctx context.Context, groupID int64, since time.Time) (*PostActivity, error)
}

// StatisticsProvider produces fresh statistics for a group.
type StatisticsProvider interface {
	Snapshot(ctx context.Context, groupID int64) (*Statistics, error)
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
