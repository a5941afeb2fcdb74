package repositories

import (
	"context"

	"memorybox/internal/badges"
	"memorybox/internal/models"
)

// ===============================
// GROUP REPOSITORY
// ===============================

// GroupRepository persists groups. It is also the badge engine's source
// of group facts.
type GroupRepository interface {
	badges.GroupSource

	// Create inserts the group and its empty badge ledger row atomically.
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	List(ctx context.Context, params models.GroupListParams) ([]*models.Group, int64, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id int64) error
	IncrementLikes(ctx context.Context, id int64) (int64, error)

	// ListIDs pages through group ids in ascending order after afterID.
	ListIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// ===============================
// POST REPOSITORY
// ===============================

// PostRepository persists memories. It is also the badge engine's source
// of post activity.
type PostRepository interface {
	badges.ActivitySource

	// Create inserts the post and bumps the group's post counter atomically.
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByGroup(ctx context.Context, params models.PostListParams) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, post *models.Post) error
	IncrementLikes(ctx context.Context, id int64) (int64, error)
}

// ===============================
// COMMENT REPOSITORY
// ===============================

// CommentRepository persists comments
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	ListByPost(ctx context.Context, postID int64, params models.PaginationParams) ([]*models.Comment, int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, comment *models.Comment) error
}

// ===============================
// IMAGE REPOSITORY
// ===============================

// ImageRepository records uploaded files
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
}

// BadgeRepository is the Postgres badge ledger
type BadgeRepository interface {
	badges.Ledger
}
