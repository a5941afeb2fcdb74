// ===============================
// FILE: internal/handlers/api/v1/groups/groups_controller.go
// ===============================

package groups

import (
	"net/http"

	"memorybox/internal/handlers/request"
	"memorybox/internal/response"
	"memorybox/internal/services"

	"go.uber.org/zap"
)

// GroupController handles the /api/groups endpoints
type GroupController struct {
	groups           services.GroupService
	logger           *zap.Logger
	responseBuilder  *response.Builder
	paginationParser *response.PaginationParser
}

// NewGroupController creates a new group controller
func NewGroupController(
	groups services.GroupService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *GroupController {
	return &GroupController{
		groups:           groups,
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

// VisibilityResponse is the body of the is-public endpoints
type VisibilityResponse struct {
	ID       int64 `json:"id"`
	IsPublic bool  `json:"isPublic"`
}

// ===============================
// CORE CRUD OPERATIONS
// ===============================

// CreateGroup handles POST /api/groups
func (c *GroupController) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req services.CreateGroupRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	group, err := c.groups.CreateGroup(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Group created via API", zap.Int64("group_id", group.ID))
	c.responseBuilder.WriteCreated(w, r, group)
}

// ListGroups handles GET /api/groups
func (c *GroupController) ListGroups(w http.ResponseWriter, r *http.Request) {
	params, err := c.paginationParser.ParseGroupList(r.URL.Query())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	page, err := c.groups.ListGroups(r.Context(), params)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, page)
}

// GetGroup handles GET /api/groups/{groupId}
func (c *GroupController) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	detail, err := c.groups.GetGroup(r.Context(), groupID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, detail)
}

// UpdateGroup handles PUT /api/groups/{groupId}
func (c *GroupController) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.UpdateGroupRequest
	if err := request.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	req.GroupID = groupID

	group, err := c.groups.UpdateGroup(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, group)
}

// DeleteGroup handles DELETE /api/groups/{groupId}
func (c *GroupController) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var body request.PasswordBody
	if err := request.DecodeJSON(w, r, &body); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.groups.DeleteGroup(r.Context(), groupID, body.Password); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Group deleted via API", zap.Int64("group_id", groupID))
	c.responseBuilder.WriteMessage(w, r, "group deleted")
}

// ===============================
// INTERACTIONS
// ===============================

// VerifyPassword handles POST /api/groups/{groupId}/verify-password
func (c *GroupController) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var body request.PasswordBody
	if err := request.DecodeJSON(w, r, &body); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.groups.VerifyPassword(r.Context(), groupID, body.Password); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteMessage(w, r, "password verified")
}

// LikeGroup handles POST /api/groups/{groupId}/like
func (c *GroupController) LikeGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	likes, err := c.groups.LikeGroup(r.Context(), groupID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, LikeResponse{Message: "group liked", LikeCount: likes})
}

// IsPublic handles GET /api/groups/{groupId}/is-public
func (c *GroupController) IsPublic(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	public, err := c.groups.IsPublic(r.Context(), groupID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, VisibilityResponse{ID: groupID, IsPublic: public})
}
