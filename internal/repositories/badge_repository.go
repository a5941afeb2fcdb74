package repositories

import (
	"context"
	"errors"
	"fmt"

	"memorybox/internal/badges"
	"memorybox/internal/database"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// badgeRepository stores one group_badges row per group. Every mutation is
// a single statement, so concurrent evaluators never lose each other's
// badges and never create a second row.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates the Postgres badge ledger
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const selectLedgerQuery = `
	SELECT group_id, badges, created_at, updated_at
	FROM group_badges
	WHERE group_id = $1`

// EnsureEntry inserts an empty row if none exists, then reads the row.
// ON CONFLICT makes the insert race-free on the primary key.
func (r *badgeRepository) EnsureEntry(ctx context.Context, groupID int64) (*badges.Entry, error) {
	_, err := r.ExecContext(ctx, `
		INSERT INTO group_badges (group_id)
		VALUES ($1)
		ON CONFLICT (group_id) DO NOTHING`,
		groupID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, badges.ErrNotFound
		}
		return nil, badges.NewStorageError("ensure entry", err)
	}

	entry, err := r.scanEntry(ctx, groupID)
	if err != nil {
		return nil, badges.NewStorageError("ensure entry", err)
	}
	if entry == nil {
		// The group was deleted between the insert and the read.
		return nil, badges.ErrNotFound
	}
	return entry, nil
}

// HasBadge reports whether the ledger for groupID holds badgeID
func (r *badgeRepository) HasBadge(ctx context.Context, groupID int64, badgeID string) (bool, error) {
	var has bool
	err := r.QueryRowContext(ctx, `
		SELECT $2 = ANY(badges)
		FROM group_badges
		WHERE group_id = $1`,
		groupID, badgeID,
	).Scan(&has)
	if err != nil {
		if IsNotFound(err) {
			return false, badges.ErrNotFound
		}
		return false, badges.NewStorageError("has badge", err)
	}
	return has, nil
}

// AddBadges appends the ids that are not yet present in one UPDATE. The
// row lock taken by UPDATE serializes concurrent unions, and the SET
// expression is re-evaluated against the latest row version.
func (r *badgeRepository) AddBadges(ctx context.Context, groupID int64, badgeIDs []string) (*badges.Entry, error) {
	if len(badgeIDs) == 0 {
		return r.GetBadges(ctx, groupID)
	}

	entry := &badges.Entry{GroupID: groupID}
	var list pq.StringArray
	err := r.QueryRowContext(ctx, `
		UPDATE group_badges
		SET badges = badges || ARRAY(
				SELECT id
				FROM unnest($2::text[]) WITH ORDINALITY AS incoming(id, pos)
				WHERE NOT (id = ANY(group_badges.badges))
				GROUP BY id
				ORDER BY MIN(pos)
			),
			updated_at = NOW()
		WHERE group_id = $1
		RETURNING badges, created_at, updated_at`,
		groupID, pq.Array(badgeIDs),
	).Scan(&list, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, badges.ErrNotFound
		}
		r.GetLogger().Error("Failed to add badges",
			zap.Int64("group_id", groupID),
			zap.Strings("badges", badgeIDs),
			zap.Error(err),
		)
		return nil, badges.NewStorageError("add badges", err)
	}

	entry.Badges = nonNil(list)
	return entry, nil
}

// GetBadges returns the ledger row for groupID
func (r *badgeRepository) GetBadges(ctx context.Context, groupID int64) (*badges.Entry, error) {
	entry, err := r.scanEntry(ctx, groupID)
	if err != nil {
		return nil, badges.NewStorageError("get badges", err)
	}
	if entry == nil {
		return nil, badges.ErrNotFound
	}
	return entry, nil
}

func (r *badgeRepository) scanEntry(ctx context.Context, groupID int64) (*badges.Entry, error) {
	var entry badges.Entry
	var list pq.StringArray
	err := r.QueryRowContext(ctx, selectLedgerQuery, groupID).
		Scan(&entry.GroupID, &list, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load badge ledger: %w", err)
	}
	entry.Badges = nonNil(list)
	return &entry, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// isForeignKeyViolation reports a Postgres 23503 error
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}
