// ===============================
// FILE: internal/handlers/api/v1/posts/posts_controller.go
// ===============================

package posts

import (
	"net/http"

	"memorybox/internal/handlers/request"
	"memorybox/internal/response"
	"memorybox/internal/services"

	"go.uber.org/zap"
)

// PostController handles memories under /api/groups/{groupId}/posts and /api/posts
type PostController struct {
	posts            services.PostService
	logger           *zap.Logger
	responseBuilder  *response.Builder
	paginationParser *response.PaginationParser
}

// NewPostController creates a new post controller
func NewPostController(
	posts services.PostService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *PostController {
	return &PostController{
		posts:            posts,
		logger:           logger,
		responseBuilder:  responseBuilder,
		paginationParser: response.NewPaginationParser(response.DefaultPaginationConfig()),
	}
}

// LikeResponse confirms a like and reports the new counter
type LikeResponse struct {
	Message   string `json:"message"`
	LikeCount int64  `json:"likeCount"`
}

// VisibilityResponse is the body of GET /api/posts/{postId}/is-public
type VisibilityResponse struct {
	ID       int64 `json:"id"`
	IsPublic bool  `json:"isPublic"`
}

// ===============================
// CORE CRUD OPERATIONS
// ===============================

// CreatePost handles POST /api/groups/{groupId}/posts
func (c *PostController) CreatePost(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.CreatePostRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	req.GroupID = groupID

	post, err := c.posts.CreatePost(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Post created via API",
		zap.Int64("post_id", post.ID),
		zap.Int64("group_id", groupID),
	)
	c.responseBuilder.WriteCreated(w, r, post)
}

// ListPosts handles GET /api/groups/{groupId}/posts
func (c *PostController) ListPosts(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	params, err := c.paginationParser.ParsePostList(r.URL.Query(), groupID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	page, err := c.posts.ListPosts(r.Context(), params)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, page)
}

// GetPost handles GET /api/posts/{postId}
func (c *PostController) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	post, err := c.posts.GetPost(r.Context(), postID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, post)
}

// UpdatePost handles PUT /api/posts/{postId}
func (c *PostController) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.UpdatePostRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	req.PostID = postID

	post, err := c.posts.UpdatePost(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, post)
}

// DeletePost handles DELETE /api/posts/{postId}
func (c *PostController) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var body request.PostPasswordBody
	if err := request.DecodeJSON(w, r, &body); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.posts.DeletePost(r.Context(), postID, body.PostPassword); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Post deleted via API", zap.Int64("post_id", postID))
	c.responseBuilder.WriteMessage(w, r, "post deleted")
}

// ===============================
// INTERACTIONS
// ===============================

// VerifyPassword handles POST /api/posts/{postId}/verify-password
func (c *PostController) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var body request.PostPasswordBody
	if err := request.DecodeJSON(w, r, &body); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.posts.VerifyPassword(r.Context(), postID, body.PostPassword); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteMessage(w, r, "password verified")
}

// LikePost handles POST /api/posts/{postId}/like
func (c *PostController) LikePost(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	likes, err := c.posts.LikePost(r.Context(), postID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, LikeResponse{Message: "post liked", LikeCount: likes})
}

// IsPublic handles GET /api/posts/{postId}/is-public
func (c *PostController) IsPublic(w http.ResponseWriter, r *http.Request) {
	postID, err := request.IDParam(r, "postId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	public, err := c.posts.IsPublic(r.Context(), postID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, VisibilityResponse{ID: postID, IsPublic: public})
}
