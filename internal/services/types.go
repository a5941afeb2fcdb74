// file: internal/services/types.go
package services

import (
	"time"

	"memorybox/internal/models"
)

// ===============================
// GROUP REQUESTS
// ===============================

// CreateGroupRequest is the body of POST /api/groups
type CreateGroupRequest struct {
	Name         string `json:"name" validate:"notblank,max=100"`
	Password     string `json:"password" validate:"required,min=4,max=72"`
	ImageURL     string `json:"imageUrl" validate:"omitempty,max=2048"`
	IsPublic     bool   `json:"isPublic"`
	Introduction string `json:"introduction" validate:"max=2000"`
}

// UpdateGroupRequest is the body of PUT /api/groups/{groupId}
type UpdateGroupRequest struct {
	GroupID      int64  `json:"-"`
	Password     string `json:"password" validate:"required"`
	Name         string `json:"name" validate:"notblank,max=100"`
	ImageURL     string `json:"imageUrl" validate:"omitempty,max=2048"`
	IsPublic     bool   `json:"isPublic"`
	Introduction string `json:"introduction" validate:"max=2000"`
}

// GroupDetail is a group with its badges
type GroupDetail struct {
	*models.Group
	Badges  []string `json:"badges"`
	AgeDays int      `json:"ageDays"`
}

// ===============================
// POST REQUESTS
// ===============================

// CreatePostRequest is the body of POST /api/groups/{groupId}/posts
type CreatePostRequest struct {
	GroupID       int64      `json:"-"`
	Nickname      string     `json:"nickname" validate:"notblank,max=50"`
	Title         string     `json:"title" validate:"notblank,max=200"`
	Content       string     `json:"content" validate:"max=10000"`
	PostPassword  string     `json:"postPassword" validate:"required,min=4,max=72"`
	GroupPassword string     `json:"groupPassword" validate:"required"`
	ImageURL      string     `json:"imageUrl" validate:"omitempty,max=2048"`
	Tags          []string   `json:"tags" validate:"max=20,dive,notblank,max=30"`
	Location      string     `json:"location" validate:"max=200"`
	Moment        *time.Time `json:"moment" validate:"omitempty,notfuture"`
	IsPublic      bool       `json:"isPublic"`
}

// UpdatePostRequest is the body of PUT /api/posts/{postId}
type UpdatePostRequest struct {
	PostID       int64      `json:"-"`
	PostPassword string     `json:"postPassword" validate:"required"`
	Nickname     string     `json:"nickname" validate:"notblank,max=50"`
	Title        string     `json:"title" validate:"notblank,max=200"`
	Content      string     `json:"content" validate:"max=10000"`
	ImageURL     string     `json:"imageUrl" validate:"omitempty,max=2048"`
	Tags         []string   `json:"tags" validate:"max=20,dive,notblank,max=30"`
	Location     string     `json:"location" validate:"max=200"`
	Moment       *time.Time `json:"moment" validate:"omitempty,notfuture"`
	IsPublic     bool       `json:"isPublic"`
}

// ===============================
// COMMENT REQUESTS
// ===============================

// CreateCommentRequest is the body of POST /api/posts/{postId}/comments
type CreateCommentRequest struct {
	PostID   int64  `json:"-"`
	Nickname string `json:"nickname" validate:"notblank,max=50"`
	Content  string `json:"content" validate:"notblank,max=2000"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

// UpdateCommentRequest is the body of PUT /api/comments/{commentId}
type UpdateCommentRequest struct {
	CommentID int64  `json:"-"`
	Password  string `json:"password" validate:"required"`
	Nickname  string `json:"nickname" validate:"notblank,max=50"`
	Content   string `json:"content" validate:"notblank,max=2000"`
}

// ===============================
// IMAGES AND BADGES
// ===============================

// UploadImageRequest carries one multipart file
type UploadImageRequest struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (ReadSeekCloser, error)
}

// ReadSeekCloser is what multipart.File provides
type ReadSeekCloser interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// UploadImageResult is the body returned by POST /api/image
type UploadImageResult struct {
	ImageURL string `json:"imageUrl"`
}

// BadgeDefinition describes one registry rule to clients
type BadgeDefinition struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GroupBadges is the body of GET /api/groups/{groupId}/badges
type GroupBadges struct {
	GroupID int64    `json:"groupId"`
	Badges  []string `json:"badges"`
}
