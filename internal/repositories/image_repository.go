package repositories

import (
	"context"
	"fmt"

	"memorybox/internal/database"
	"memorybox/internal/models"

	"go.uber.org/zap"
)

type imageRepository struct {
	*BaseRepository
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *database.Manager, logger *zap.Logger) ImageRepository {
	return &imageRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create records an uploaded image
func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	err := r.QueryRowContext(ctx, `
		INSERT INTO images (filename, url, provider, public_id, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at`,
		image.Filename, image.URL, image.Provider, image.PublicID, image.ContentType, image.SizeBytes,
	).Scan(&image.ID, &image.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to record image: %w", err)
	}
	return nil
}
