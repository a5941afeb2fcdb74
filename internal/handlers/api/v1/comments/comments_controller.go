// ===============================
// FILE: internal/handlers/api/v1/comments/comments_controller.go
// ===============================

package comments

import (
	"net/http"

	"memorybox/internal/handlers/request"
	"memorybox/internal/response"
	"memorybox/internal/services"

	"go.uber.org/zap"
)

// CommentController handles comment API endpoints
type CommentController struct {
	comments         services.CommentService
	logger           *zap.Logger
	responseBuilder  *response.Builder
	paginationParser *response.PaginationParser
}

// NewCommentController creates a new comment controller
func NewCommentController(
	comments services.CommentService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *CommentController {
	return &CommentController{
		comments:         comments,
		logger:           logger,
		responseBuilder:  responseBuilder,
		paginationParser: response.NewPaginationParser(response.DefaultPaginationConfig()),
	}
}

// CreateComment handles POST /api/posts/{postId}/comments
func (c *CommentController) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.CreateCommentRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	req.PostID = postID

	comment, err := c.comments.CreateComment(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Comment created via API",
		zap.Int64("comment_id", comment.ID),
		zap.Int64("post_id", postID),
	)
	c.responseBuilder.WriteCreated(w, r, comment)
}

// ListComments handles GET /api/posts/{postId}/comments
func (c *CommentController) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	params, err := c.paginationParser.ParsePagination(r.URL.Query())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	page, err := c.comments.ListComments(r.Context(), postID, params)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, page)
}

// UpdateComment handles PUT /api/comments/{commentId}
func (c *CommentController) UpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := request.IDParam(r, "commentId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.UpdateCommentRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	req.CommentID = commentID

	comment, err := c.comments.UpdateComment(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, comment)
}

// DeleteComment handles DELETE /api/comments/{commentId}
func (c *CommentController) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := request.IDParam(r, "commentId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var body request.PasswordBody
	if err := request.DecodeJSON(w, r, &body); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.comments.DeleteComment(r.Context(), commentID, body.Password); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Comment deleted via API", zap.Int64("comment_id", commentID))
	c.responseBuilder.WriteMessage(w, r, "comment deleted")
}
