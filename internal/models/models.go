// file: internal/models/models.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// ===============================
// CORE ENTITIES
// ===============================

// Group is a tenant-like collection of memories
type Group struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	ImageURL     string    `json:"imageUrl" db:"image_url"`
	Introduction string    `json:"introduction" db:"introduction"`
	IsPublic     bool      `json:"isPublic" db:"is_public"`
	LikeCount    int64     `json:"likeCount" db:"like_count"`
	PostCount    int       `json:"postCount" db:"post_count"`
	BadgeCount   int       `json:"badgeCount" db:"badge_count"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"-" db:"updated_at"`
}

// Post is a memory inside a group
type Post struct {
	ID           int64          `json:"id" db:"id"`
	GroupID      int64          `json:"groupId" db:"group_id"`
	Nickname     string         `json:"nickname" db:"nickname"`
	Title        string         `json:"title" db:"title"`
	Content      string         `json:"content,omitempty" db:"content"`
	PasswordHash string         `json:"-" db:"password_hash"`
	ImageURL     string         `json:"imageUrl" db:"image_url"`
	Tags         pq.StringArray `json:"tags" db:"tags"`
	Location     string         `json:"location" db:"location"`
	Moment       *time.Time     `json:"moment,omitempty" db:"moment"`
	IsPublic     bool           `json:"isPublic" db:"is_public"`
	LikeCount    int64          `json:"likeCount" db:"like_count"`
	CommentCount int            `json:"commentCount" db:"comment_count"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time      `json:"-" db:"updated_at"`
}

// Comment is a reply to a memory
type Comment struct {
	ID           int64     `json:"id" db:"id"`
	PostID       int64     `json:"postId" db:"post_id"`
	Nickname     string    `json:"nickname" db:"nickname"`
	Content      string    `json:"content" db:"content"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"-" db:"updated_at"`
}

// Image records an uploaded file
type Image struct {
	ID          int64     `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	URL         string    `json:"url" db:"url"`
	Provider    string    `json:"provider" db:"provider"`
	PublicID    string    `json:"-" db:"public_id"`
	ContentType string    `json:"contentType" db:"content_type"`
	SizeBytes   int64     `json:"sizeBytes" db:"size_bytes"`
	UploadedAt  time.Time `json:"uploadedAt" db:"uploaded_at"`
}

// ===============================
// LIST QUERIES
// ===============================

// Group list orderings
const (
	GroupSortLatest     = "latest"
	GroupSortMostPosted = "mostPosted"
	GroupSortMostLiked  = "mostLiked"
	GroupSortMostBadge  = "mostBadge"
)

// Post list orderings
const (
	PostSortLatest        = "latest"
	PostSortMostCommented = "mostCommented"
	PostSortMostLiked     = "mostLiked"
)

// PaginationParams represents page-based pagination
type PaginationParams struct {
	Page     int `json:"page" validate:"min=1"`
	PageSize int `json:"pageSize" validate:"min=1,max=100"`
}

// Offset returns the row offset for the page
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// GroupListParams filters the group listing
type GroupListParams struct {
	PaginationParams
	SortBy   string `json:"sortBy" validate:"omitempty,oneof=latest mostPosted mostLiked mostBadge"`
	Keyword  string `json:"keyword" validate:"max=100"`
	IsPublic *bool  `json:"isPublic"`
}

// PostListParams filters the posts of a group
type PostListParams struct {
	PaginationParams
	GroupID  int64  `json:"groupId"`
	SortBy   string `json:"sortBy" validate:"omitempty,oneof=latest mostCommented mostLiked"`
	Keyword  string `json:"keyword" validate:"max=100"`
	IsPublic *bool  `json:"isPublic"`
}

// Page is one page of results in the shape clients expect
type Page[T any] struct {
	CurrentPage    int   `json:"currentPage"`
	TotalPages     int   `json:"totalPages"`
	TotalItemCount int64 `json:"totalItemCount"`
	Data           []T   `json:"data"`
}

// NewPage builds a Page from a slice and the total match count
func NewPage[T any](items []T, params PaginationParams, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if params.PageSize > 0 {
		totalPages = int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	}
	return &Page[T]{
		CurrentPage:    params.Page,
		TotalPages:     totalPages,
		TotalItemCount: total,
		Data:           items,
	}
}
