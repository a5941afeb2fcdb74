// file: internal/services/image_service.go
package services

import (
	"context"
	"errors"

	"memorybox/internal/models"
	"memorybox/internal/repositories"
	"memorybox/internal/storage"

	"go.uber.org/zap"
)

type imageService struct {
	images   repositories.ImageRepository
	storage  storage.FileStorage
	maxBytes int64
	logger   *zap.Logger
}

// NewImageService creates a new image service
func NewImageService(images repositories.ImageRepository, fs storage.FileStorage, maxBytes int64, logger *zap.Logger) ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &imageService{images: images, storage: fs, maxBytes: maxBytes, logger: logger}
}

// UploadImage validates, stores and records one image
func (s *imageService) UploadImage(ctx context.Context, req *UploadImageRequest) (*UploadImageResult, error) {
	if req == nil || req.Open == nil {
		return nil, NewBadRequestError("image file is required")
	}

	file, err := req.Open()
	if err != nil {
		return nil, NewBadRequestError("unable to read uploaded file")
	}
	defer file.Close()

	upload, err := storage.Inspect(file, req.Filename, req.Size, s.maxBytes)
	if err != nil {
		return nil, uploadError(err)
	}

	obj, err := s.storage.Save(ctx, upload)
	if err != nil {
		if errors.Is(err, storage.ErrUploadFailed) {
			se := NewServiceUnavailableError("image storage is unavailable")
			se.Cause = err
			return nil, se
		}
		return nil, NewInternalError("failed to store image", err)
	}

	image := &models.Image{
		Filename:    upload.OriginalName,
		URL:         obj.URL,
		Provider:    obj.Provider,
		PublicID:    obj.Key,
		ContentType: obj.ContentType,
		SizeBytes:   obj.Size,
	}
	if err := s.images.Create(ctx, image); err != nil {
		if delErr := s.storage.Delete(ctx, obj.Key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned upload", zap.String("key", obj.Key), zap.Error(delErr))
		}
		return nil, NewInternalError("failed to record image", err)
	}

	s.logger.Info("Image uploaded",
		zap.Int64("image_id", image.ID),
		zap.String("provider", image.Provider),
		zap.Int64("size", image.SizeBytes),
	)
	return &UploadImageResult{ImageURL: image.URL}, nil
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		se := NewValidationError("image is too large", err)
		se.Code = "FILE_TOO_LARGE"
		return se
	case errors.Is(err, storage.ErrEmptyFile),
		errors.Is(err, storage.ErrInvalidContentType),
		errors.Is(err, storage.ErrInvalidExtension):
		se := NewValidationError("unsupported image file", err)
		se.Code = "INVALID_IMAGE"
		return se
	default:
		return NewBadRequestError("unable to read uploaded file")
	}
}
