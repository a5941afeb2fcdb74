// file: internal/repositories/collection.go
package repositories

import (
	"fmt"

	"memorybox/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Group   GroupRepository
	Post    PostRepository
	Comment CommentRepository
	Image   ImageRepository
	Badge   BadgeRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates every repository over one database manager
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collection := &Collection{
		Group:   NewGroupRepository(db, logger),
		Post:    NewPostRepository(db, logger),
		Comment: NewCommentRepository(db, logger),
		Image:   NewImageRepository(db, logger),
		Badge:   NewBadgeRepository(db, logger),
		db:      db,
		logger:  logger,
	}

	logger.Info("Repository collection initialized successfully")
	return collection, nil
}

// DB returns the shared database manager
func (c *Collection) DB() *database.Manager {
	return c.db
}
