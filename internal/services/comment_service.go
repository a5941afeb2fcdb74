// file: internal/services/comment_service.go
package services

import (
	"context"
	"strings"

	"memorybox/internal/models"
	"memorybox/internal/repositories"
	"memorybox/internal/validation"

	"go.uber.org/zap"
)

type commentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	hasher   PasswordHasher
	logger   *zap.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(
	comments repositories.CommentRepository,
	posts repositories.PostRepository,
	hasher PasswordHasher,
	logger *zap.Logger,
) CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &commentService{comments: comments, posts: posts, hasher: hasher, logger: logger}
}

// CreateComment adds a comment to a memory
func (s *commentService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*models.Comment, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid create comment request", err)
	}
	if req.PostID <= 0 {
		return nil, NewBadRequestError("postId must be a positive integer")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, NewInternalError("failed to secure comment password", err)
	}

	comment := &models.Comment{
		PostID:       req.PostID,
		Nickname:     strings.TrimSpace(req.Nickname),
		Content:      strings.TrimSpace(req.Content),
		PasswordHash: hash,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fromRepositoryError(err, "post", req.PostID, "comment on")
	}
	return comment, nil
}

// ListComments returns one page of a memory's comments
func (s *commentService) ListComments(ctx context.Context, postID int64, params models.PaginationParams) (*models.Page[*models.Comment], error) {
	if postID <= 0 {
		return nil, NewBadRequestError("postId must be a positive integer")
	}
	normalizePagination(&params)
	if err := validation.ValidateStruct(&params); err != nil {
		return nil, NewValidationError("invalid comment list query", err)
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, NewInternalError("failed to load post", err)
	}
	if post == nil {
		return nil, EntityNotFoundError("post", postID)
	}

	comments, total, err := s.comments.ListByPost(ctx, postID, params)
	if err != nil {
		return nil, NewInternalError("failed to list comments", err)
	}
	return models.NewPage(comments, params, total), nil
}

// UpdateComment overwrites nickname and content after checking the password
func (s *commentService) UpdateComment(ctx context.Context, req *UpdateCommentRequest) (*models.Comment, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid update comment request", err)
	}

	comment, err := s.load(ctx, req.CommentID)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(s.hasher, comment.PasswordHash, req.Password, NewForbiddenError); err != nil {
		return nil, err
	}

	comment.Nickname = strings.TrimSpace(req.Nickname)
	comment.Content = strings.TrimSpace(req.Content)
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, fromRepositoryError(err, "comment", req.CommentID, "update")
	}
	return comment, nil
}

// DeleteComment removes a comment after checking its password
func (s *commentService) DeleteComment(ctx context.Context, commentID int64, password string) error {
	comment, err := s.load(ctx, commentID)
	if err != nil {
		return err
	}
	if err := checkPassword(s.hasher, comment.PasswordHash, password, NewForbiddenError); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, comment); err != nil {
		return fromRepositoryError(err, "comment", commentID, "delete")
	}
	return nil
}

func (s *commentService) load(ctx context.Context, commentID int64) (*models.Comment, error) {
	if commentID <= 0 {
		return nil, NewBadRequestError("commentId must be a positive integer")
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, NewInternalError("failed to load comment", err)
	}
	if comment == nil {
		return nil, EntityNotFoundError("comment", commentID)
	}
	return comment, nil
}
