// file: internal/services/post_service.go
package services

import (
	"context"
	"strings"

	"memorybox/internal/events"
	"memorybox/internal/models"
	"memorybox/internal/repositories"
	"memorybox/internal/validation"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// postService implements PostService
type postService struct {
	posts   repositories.PostRepository
	groups  repositories.GroupRepository
	hasher  PasswordHasher
	publish *publisher
	logger  *zap.Logger
}

// NewPostService creates a new post service
func NewPostService(
	posts repositories.PostRepository,
	groups repositories.GroupRepository,
	hasher PasswordHasher,
	bus events.EventBus,
	evaluationMode string,
	logger *zap.Logger,
) PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postService{
		posts:   posts,
		groups:  groups,
		hasher:  hasher,
		publish: newPublisher(bus, evaluationMode, logger),
		logger:  logger,
	}
}

// ===============================
// CORE CRUD OPERATIONS
// ===============================

// CreatePost stores a memory after the group password was checked.
// Badge evaluation for the group is triggered once the post is committed.
func (s *postService) CreatePost(ctx context.Context, req *CreatePostRequest) (*models.Post, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid create post request", err)
	}
	if req.GroupID <= 0 {
		return nil, NewBadRequestError("groupId must be a positive integer")
	}

	group, err := s.groups.GetByID(ctx, req.GroupID)
	if err != nil {
		return nil, NewInternalError("failed to load group", err)
	}
	if group == nil {
		return nil, EntityNotFoundError("group", req.GroupID)
	}
	if err := checkPassword(s.hasher, group.PasswordHash, req.GroupPassword, NewForbiddenError); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.PostPassword)
	if err != nil {
		return nil, NewInternalError("failed to secure post password", err)
	}

	post := &models.Post{
		GroupID:      req.GroupID,
		Nickname:     strings.TrimSpace(req.Nickname),
		Title:        strings.TrimSpace(req.Title),
		Content:      req.Content,
		PasswordHash: hash,
		ImageURL:     req.ImageURL,
		Tags:         normalizeTags(req.Tags),
		Location:     strings.TrimSpace(req.Location),
		Moment:       req.Moment,
		IsPublic:     req.IsPublic,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fromRepositoryError(err, "group", req.GroupID, "create post in")
	}

	s.logger.Info("Post created",
		zap.Int64("post_id", post.ID),
		zap.Int64("group_id", post.GroupID),
	)
	s.publish.publish(ctx, events.NewPostCreatedEvent(post.GroupID, post.ID, post.CreatedAt))

	return post, nil
}

// GetPost returns one memory
func (s *postService) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	return s.load(ctx, postID)
}

// ListPosts returns one page of a group's memories
func (s *postService) ListPosts(ctx context.Context, params models.PostListParams) (*models.Page[*models.Post], error) {
	if params.GroupID <= 0 {
		return nil, NewBadRequestError("groupId must be a positive integer")
	}
	normalizePagination(&params.PaginationParams)
	if params.SortBy == "" {
		params.SortBy = models.PostSortLatest
	}
	params.Keyword = strings.TrimSpace(params.Keyword)
	if err := validation.ValidateStruct(&params); err != nil {
		return nil, NewValidationError("invalid post list query", err)
	}

	posts, total, err := s.posts.ListByGroup(ctx, params)
	if err != nil {
		return nil, NewInternalError("failed to list posts", err)
	}
	return models.NewPage(posts, params.PaginationParams, total), nil
}

// UpdatePost overwrites the editable fields after checking the post password
func (s *postService) UpdatePost(ctx context.Context, req *UpdatePostRequest) (*models.Post, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid update post request", err)
	}

	post, err := s.load(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(s.hasher, post.PasswordHash, req.PostPassword, NewForbiddenError); err != nil {
		return nil, err
	}

	post.Nickname = strings.TrimSpace(req.Nickname)
	post.Title = strings.TrimSpace(req.Title)
	post.Content = req.Content
	post.ImageURL = req.ImageURL
	post.Tags = normalizeTags(req.Tags)
	post.Location = strings.TrimSpace(req.Location)
	post.Moment = req.Moment
	post.IsPublic = req.IsPublic

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fromRepositoryError(err, "post", req.PostID, "update")
	}
	return post, nil
}

// DeletePost removes a memory after checking its password
func (s *postService) DeletePost(ctx context.Context, postID int64, password string) error {
	post, err := s.load(ctx, postID)
	if err != nil {
		return err
	}
	if err := checkPassword(s.hasher, post.PasswordHash, password, NewForbiddenError); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post); err != nil {
		return fromRepositoryError(err, "post", postID, "delete")
	}

	s.logger.Info("Post deleted", zap.Int64("post_id", postID), zap.Int64("group_id", post.GroupID))
	return nil
}

// ===============================
// ACCESS AND ENGAGEMENT
// ===============================

// VerifyPassword checks the post password
func (s *postService) VerifyPassword(ctx context.Context, postID int64, password string) error {
	post, err := s.load(ctx, postID)
	if err != nil {
		return err
	}
	return checkPassword(s.hasher, post.PasswordHash, password, NewUnauthorizedError)
}

// LikePost increments the memory's like counter
func (s *postService) LikePost(ctx context.Context, postID int64) (int64, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return 0, err
	}

	likes, err := s.posts.IncrementLikes(ctx, postID)
	if err != nil {
		return 0, fromRepositoryError(err, "post", postID, "like")
	}

	s.publish.publish(ctx, events.NewPostLikedEvent(post.GroupID, postID, likes))
	return likes, nil
}

// IsPublic reports the memory visibility
func (s *postService) IsPublic(ctx context.Context, postID int64) (bool, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return false, err
	}
	return post.IsPublic, nil
}

func (s *postService) load(ctx context.Context, postID int64) (*models.Post, error) {
	if postID <= 0 {
		return nil, NewBadRequestError("postId must be a positive integer")
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, NewInternalError("failed to load post", err)
	}
	if post == nil {
		return nil, EntityNotFoundError("post", postID)
	}
	return post, nil
}

// normalizeTags trims, drops empties and de-duplicates case-insensitively
func normalizeTags(tags []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
