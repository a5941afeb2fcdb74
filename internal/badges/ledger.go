package badges

import (
	"context"
	"time"

	"golang.org/x/exp/slices"
)

// Entry is a group's ledger record. Badges keeps insertion order and never
// contains duplicates.
type Entry struct {
	GroupID   int64     `json:"groupId"`
	Badges    []string  `json:"badges"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Has reports whether the entry holds badgeID.
func (e *Entry) Has(badgeID string) bool {
	return slices.Contains(e.Badges, badgeID)
}

// Ledger persists earned badges. Implementations must make EnsureEntry an
// atomic insert-or-fetch and AddBadges an atomic set union.
type Ledger interface {
	EnsureEntry(ctx context.Context, groupID int64) (*Entry, error)
	HasBadge(ctx context.Context, groupID int64, badgeID string) (bool, error)
	AddBadges(ctx context.Context, groupID int64, badgeIDs []string) (*Entry, error)
	GetBadges(ctx context.Context, groupID int64) (*Entry, error)
}
