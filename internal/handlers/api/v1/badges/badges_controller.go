// ===============================
// FILE: internal/handlers/api/v1/badges/badges_controller.go
// ===============================

package badges

import (
	"net/http"

	"memorybox/internal/handlers/request"
	"memorybox/internal/response"
	"memorybox/internal/services"

	"go.uber.org/zap"
)

// BadgeController exposes the ledger and on-demand evaluation
type BadgeController struct {
	badges          services.BadgeService
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewBadgeController creates a new badge controller
func NewBadgeController(
	badges services.BadgeService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *BadgeController {
	return &BadgeController{
		badges:          badges,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// ListDefinitions handles GET /api/badges
func (c *BadgeController) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	c.responseBuilder.WriteSuccess(w, r, c.badges.ListDefinitions())
}

// GetGroupBadges handles GET /api/groups/{groupId}/badges
func (c *BadgeController) GetGroupBadges(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	view, err := c.badges.GetGroupBadges(r.Context(), groupID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, view)
}

// EvaluateGroup handles POST /api/groups/{groupId}/badges/evaluate
func (c *BadgeController) EvaluateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := request.IDParam(r, "groupId")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	result, err := c.badges.EvaluateGroup(r.Context(), groupID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if len(result.Awarded) > 0 {
		c.logger.Info("Badges awarded on demand",
			zap.Int64("group_id", groupID),
			zap.Strings("awarded", result.Awarded),
		)
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}
