// file: internal/services/interfaces.go
package services

import (
	"context"

	"memorybox/internal/badges"
	"memorybox/internal/models"
)

// ===============================
// CORE SERVICE INTERFACES
// ===============================

// GroupService manages groups and their per-group password
type GroupService interface {
	CreateGroup(ctx context.Context, req *CreateGroupRequest) (*models.Group, error)
	GetGroup(ctx context.Context, groupID int64) (*GroupDetail, error)
	ListGroups(ctx context.Context, params models.GroupListParams) (*models.Page[*models.Group], error)
	UpdateGroup(ctx context.Context, req *UpdateGroupRequest) (*models.Group, error)
	DeleteGroup(ctx context.Context, groupID int64, password string) error

	VerifyPassword(ctx context.Context, groupID int64, password string) error
	LikeGroup(ctx context.Context, groupID int64) (int64, error)
	IsPublic(ctx context.Context, groupID int64) (bool, error)
}

// PostService manages memories inside a group
type PostService interface {
	CreatePost(ctx context.Context, req *CreatePostRequest) (*models.Post, error)
	GetPost(ctx context.Context, postID int64) (*models.Post, error)
	ListPosts(ctx context.Context, params models.PostListParams) (*models.Page[*models.Post], error)
	UpdatePost(ctx context.Context, req *UpdatePostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, postID int64, password string) error

	VerifyPassword(ctx context.Context, postID int64, password string) error
	LikePost(ctx context.Context, postID int64) (int64, error)
	IsPublic(ctx context.Context, postID int64) (bool, error)
}

// CommentService manages comments on a memory
type CommentService interface {
	CreateComment(ctx context.Context, req *CreateCommentRequest) (*models.Comment, error)
	ListComments(ctx context.Context, postID int64, params models.PaginationParams) (*models.Page[*models.Comment], error)
	UpdateComment(ctx context.Context, req *UpdateCommentRequest) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID int64, password string) error
}

// ImageService stores uploaded images
type ImageService interface {
	UploadImage(ctx context.Context, req *UploadImageRequest) (*UploadImageResult, error)
}

// BadgeService is the boundary between the product flows and the badge engine
type BadgeService interface {
	// GetGroupBadges reads the ledger without evaluating
	GetGroupBadges(ctx context.Context, groupID int64) (*GroupBadges, error)
	// EvaluateGroup runs the engine now and returns its result
	EvaluateGroup(ctx context.Context, groupID int64) (*badges.Result, error)
	// ListDefinitions returns the registry in evaluation order
	ListDefinitions() []BadgeDefinition
}
