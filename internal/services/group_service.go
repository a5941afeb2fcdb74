// file: internal/services/group_service.go
package services

import (
	"context"
	"strings"
	"time"

	"memorybox/internal/cache"
	"memorybox/internal/events"
	"memorybox/internal/models"
	"memorybox/internal/repositories"
	"memorybox/internal/validation"

	"go.uber.org/zap"
)

type groupService struct {
	groups  repositories.GroupRepository
	badges  BadgeService
	cache   cache.Cache
	hasher  PasswordHasher
	publish *publisher
	logger  *zap.Logger
	now     func() time.Time
}

// NewGroupService creates a new group service
func NewGroupService(
	groups repositories.GroupRepository,
	badgeService BadgeService,
	c cache.Cache,
	hasher PasswordHasher,
	bus events.EventBus,
	evaluationMode string,
	logger *zap.Logger,
) GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &groupService{
		groups:  groups,
		badges:  badgeService,
		cache:   c,
		hasher:  hasher,
		publish: newPublisher(bus, evaluationMode, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// ===============================
// CORE CRUD OPERATIONS
// ===============================

// CreateGroup creates a group together with its empty badge ledger
func (s *groupService) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*models.Group, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid create group request", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, NewInternalError("failed to secure group password", err)
	}

	group := &models.Group{
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		ImageURL:     req.ImageURL,
		Introduction: strings.TrimSpace(req.Introduction),
		IsPublic:     req.IsPublic,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, NewInternalError("failed to create group", err)
	}

	s.logger.Info("Group created", zap.Int64("group_id", group.ID), zap.Bool("is_public", group.IsPublic))
	s.publish.publish(ctx, events.NewGroupCreatedEvent(group.ID, group.Name, group.CreatedAt))

	return group, nil
}

// GetGroup returns a group with its badges and age
func (s *groupService) GetGroup(ctx context.Context, groupID int64) (*GroupDetail, error) {
	group, err := s.load(ctx, groupID)
	if err != nil {
		return nil, err
	}

	detail := &GroupDetail{
		Group:   group,
		Badges:  []string{},
		AgeDays: int(s.now().Sub(group.CreatedAt) / (24 * time.Hour)),
	}

	view, err := s.badges.GetGroupBadges(ctx, groupID)
	switch {
	case err == nil:
		detail.Badges = view.Badges
	case IsNotFoundError(err):
		// no ledger entry yet reads as no badges
	default:
		return nil, err
	}
	return detail, nil
}

// ListGroups returns one page of groups
func (s *groupService) ListGroups(ctx context.Context, params models.GroupListParams) (*models.Page[*models.Group], error) {
	normalizePagination(&params.PaginationParams)
	if params.SortBy == "" {
		params.SortBy = models.GroupSortLatest
	}
	params.Keyword = strings.TrimSpace(params.Keyword)
	if err := validation.ValidateStruct(&params); err != nil {
		return nil, NewValidationError("invalid group list query", err)
	}

	groups, total, err := s.groups.List(ctx, params)
	if err != nil {
		return nil, NewInternalError("failed to list groups", err)
	}
	return models.NewPage(groups, params.PaginationParams, total), nil
}

// UpdateGroup overwrites the editable fields after checking the password
func (s *groupService) UpdateGroup(ctx context.Context, req *UpdateGroupRequest) (*models.Group, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid update group request", err)
	}

	group, err := s.load(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(s.hasher, group.PasswordHash, req.Password, NewForbiddenError); err != nil {
		return nil, err
	}

	group.Name = strings.TrimSpace(req.Name)
	group.ImageURL = req.ImageURL
	group.Introduction = strings.TrimSpace(req.Introduction)
	group.IsPublic = req.IsPublic

	if err := s.groups.Update(ctx, group); err != nil {
		return nil, fromRepositoryError(err, "group", req.GroupID, "update")
	}
	return group, nil
}

// DeleteGroup removes the group and everything it owns
func (s *groupService) DeleteGroup(ctx context.Context, groupID int64, password string) error {
	group, err := s.load(ctx, groupID)
	if err != nil {
		return err
	}
	if err := checkPassword(s.hasher, group.PasswordHash, password, NewForbiddenError); err != nil {
		return err
	}

	if err := s.groups.Delete(ctx, groupID); err != nil {
		return fromRepositoryError(err, "group", groupID, "delete")
	}

	invalidateBadgeViews(ctx, s.cache, s.logger, groupID)
	return nil
}

// ===============================
// ACCESS AND ENGAGEMENT
// ===============================

// VerifyPassword checks the group password
func (s *groupService) VerifyPassword(ctx context.Context, groupID int64, password string) error {
	group, err := s.load(ctx, groupID)
	if err != nil {
		return err
	}
	return checkPassword(s.hasher, group.PasswordHash, password, NewUnauthorizedError)
}

// LikeGroup increments the group like counter, which is the capacity metric
func (s *groupService) LikeGroup(ctx context.Context, groupID int64) (int64, error) {
	if groupID <= 0 {
		return 0, NewBadRequestError("groupId must be a positive integer")
	}

	likes, err := s.groups.IncrementLikes(ctx, groupID)
	if err != nil {
		return 0, fromRepositoryError(err, "group", groupID, "like")
	}

	s.publish.publish(ctx, events.NewGroupLikedEvent(groupID, likes))
	return likes, nil
}

// IsPublic reports the group visibility
func (s *groupService) IsPublic(ctx context.Context, groupID int64) (bool, error) {
	group, err := s.load(ctx, groupID)
	if err != nil {
		return false, err
	}
	return group.IsPublic, nil
}

func (s *groupService) load(ctx context.Context, groupID int64) (*models.Group, error) {
	if groupID <= 0 {
		return nil, NewBadRequestError("groupId must be a positive integer")
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, NewInternalError("failed to load group", err)
	}
	if group == nil {
		return nil, EntityNotFoundError("group", groupID)
	}
	return group, nil
}

// normalizePagination applies the list defaults
func normalizePagination(p *models.PaginationParams) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
}
