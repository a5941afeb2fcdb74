package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"memorybox/internal/badges"
	"memorybox/internal/database"
	"memorybox/internal/models"

	"go.uber.org/zap"
)

// groupRepository implements GroupRepository
type groupRepository struct {
	*BaseRepository
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *database.Manager, logger *zap.Logger) GroupRepository {
	return &groupRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const groupColumns = `
	g.id, g.name, g.password_hash, g.image_url, g.introduction, g.is_public,
	g.like_count, g.post_count, COALESCE(cardinality(gb.badges), 0) AS badge_count,
	g.created_at, g.updated_at`

var groupOrderings = map[string]string{
	models.GroupSortLatest:     "g.created_at DESC, g.id DESC",
	models.GroupSortMostPosted: "g.post_count DESC, g.id DESC",
	models.GroupSortMostLiked:  "g.like_count DESC, g.id DESC",
	models.GroupSortMostBadge:  "badge_count DESC, g.id DESC",
}

// ===============================
// CORE CRUD OPERATIONS
// ===============================

// Create inserts the group and its empty ledger row in one transaction
func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO groups (name, password_hash, image_url, introduction, is_public)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, like_count, post_count, created_at, updated_at`,
			group.Name, group.PasswordHash, group.ImageURL, group.Introduction, group.IsPublic,
		).Scan(&group.ID, &group.LikeCount, &group.PostCount, &group.CreatedAt, &group.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_badges (group_id) VALUES ($1)
			ON CONFLICT (group_id) DO NOTHING`, group.ID); err != nil {
			return fmt.Errorf("failed to create badge ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		r.GetLogger().Error("Failed to create group", zap.String("name", group.Name), zap.Error(err))
		return err
	}

	r.GetLogger().Info("Group created", zap.Int64("group_id", group.ID))
	return nil
}

// GetByID returns nil, nil when the group does not exist
func (r *groupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	query := `SELECT ` + groupColumns + `
		FROM groups g
		LEFT JOIN group_badges gb ON gb.group_id = g.id
		WHERE g.id = $1`

	group, err := scanGroup(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return group, nil
}

// List returns one page of groups and the total match count
func (r *groupRepository) List(ctx context.Context, params models.GroupListParams) ([]*models.Group, int64, error) {
	var where whereBuilder
	if params.Keyword != "" {
		where.add(`g.name ILIKE ? ESCAPE '\'`, likePattern(params.Keyword))
	}
	if params.IsPublic != nil {
		where.add("g.is_public = ?", *params.IsPublic)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM groups g` + where.sql()
	if err := r.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	orderBy, ok := groupOrderings[params.SortBy]
	if !ok {
		orderBy = groupOrderings[models.GroupSortLatest]
	}

	limit := where.next()
	offset := placeholder(len(where.args) + 2)
	query := `SELECT ` + groupColumns + `
		FROM groups g
		LEFT JOIN group_badges gb ON gb.group_id = g.id` + where.sql() + `
		ORDER BY ` + orderBy + `
		LIMIT ` + limit + ` OFFSET ` + offset

	args := append(where.args, params.PageSize, params.Offset())
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, total, nil
}

// Update overwrites the editable fields (last write wins)
func (r *groupRepository) Update(ctx context.Context, group *models.Group) error {
	err := r.QueryRowContext(ctx, `
		UPDATE groups
		SET name = $2, password_hash = $3, image_url = $4, introduction = $5,
			is_public = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING like_count, post_count, created_at, updated_at`,
		group.ID, group.Name, group.PasswordHash, group.ImageURL, group.Introduction, group.IsPublic,
	).Scan(&group.LikeCount, &group.PostCount, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("failed to update group %d: %w", group.ID, err)
	}
	return nil
}

// Delete removes the group. Posts, comments and the ledger cascade.
func (r *groupRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	ok, err := rowsAffected(result)
	if err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	if !ok {
		return sql.ErrNoRows
	}

	r.GetLogger().Info("Group deleted", zap.Int64("group_id", id))
	return nil
}

// IncrementLikes atomically bumps the group like counter. A like also
// advances the capacity metric.
func (r *groupRepository) IncrementLikes(ctx context.Context, id int64) (int64, error) {
	var likes int64
	err := r.QueryRowContext(ctx, `
		UPDATE groups
		SET like_count = like_count + 1,
			capacity_metric = capacity_metric + 1
		WHERE id = $1
		RETURNING like_count`, id,
	).Scan(&likes)
	if err != nil {
		if IsNotFound(err) {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("failed to like group %d: %w", id, err)
	}
	return likes, nil
}

// ListIDs pages through group ids for the badge sweep
func (r *groupRepository) ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT id FROM groups
		WHERE id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list group ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ===============================
// BADGE STATISTICS
// ===============================

// GroupFacts implements badges.GroupSource
func (r *groupRepository) GroupFacts(ctx context.Context, groupID int64) (*badges.GroupFacts, error) {
	var facts badges.GroupFacts
	err := r.QueryRowContext(ctx, `
		SELECT created_at, capacity_metric FROM groups WHERE id = $1`, groupID,
	).Scan(&facts.CreatedAt, &facts.CapacityMetric)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load group facts: %w", err)
	}
	return &facts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var g models.Group
	err := row.Scan(
		&g.ID, &g.Name, &g.PasswordHash, &g.ImageURL, &g.Introduction, &g.IsPublic,
		&g.LikeCount, &g.PostCount, &g.BadgeCount,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
