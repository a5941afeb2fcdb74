package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"memorybox/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

const (
	uploadTimeout = 30 * time.Second
	deleteTimeout = 10 * time.Second
)

// CloudinaryStorage uploads images to a cloudinary folder
type CloudinaryStorage struct {
	client     *cloudinary.Cloudinary
	folder     string
	maxRetries int
	logger     *zap.Logger
}

// NewCloudinaryStorage creates a cloudinary-backed storage
func NewCloudinaryStorage(cfg config.CloudinaryConfig, maxRetries int, logger *zap.Logger) (*CloudinaryStorage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are missing")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	logger.Info("Cloudinary storage initialized", zap.String("folder", cfg.Folder))
	return &CloudinaryStorage{client: cld, folder: cfg.Folder, maxRetries: maxRetries, logger: logger}, nil
}

// Provider implements FileStorage
func (s *CloudinaryStorage) Provider() string { return ProviderCloudinary }

// Save uploads with exponential backoff, rewinding the reader between attempts
func (s *CloudinaryStorage) Save(ctx context.Context, upload *Upload) (*Object, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	unique := false
	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       uniqueName(""),
		UniqueFilename: &unique,
		ResourceType:   "image",
	}

	var result *uploader.UploadResult
	operation := func() error {
		if _, err := upload.Reader.Seek(0, io.SeekStart); err != nil {
			return backoff.Permanent(err)
		}
		res, err := s.client.Upload.Upload(ctx, upload.Reader, params)
		if err != nil {
			return err
		}
		if res.Error.Message != "" {
			return fmt.Errorf("cloudinary: %s", res.Error.Message)
		}
		result = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = uploadTimeout / 2
	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx),
		func(err error, d time.Duration) {
			s.logger.Warn("Upload attempt failed",
				zap.String("filename", upload.OriginalName),
				zap.Duration("backoff", d),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		s.logger.Error("All upload attempts failed",
			zap.String("filename", upload.OriginalName),
			zap.Int("retries", s.maxRetries),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	s.logger.Info("File uploaded to cloudinary",
		zap.String("public_id", result.PublicID),
		zap.Int("bytes", result.Bytes),
		zap.Duration("duration", time.Since(start)),
	)

	return &Object{
		Key:         result.PublicID,
		URL:         result.SecureURL,
		Provider:    ProviderCloudinary,
		ContentType: upload.ContentType,
		Size:        int64(result.Bytes),
	}, nil
}

// Delete removes an image by public id
func (s *CloudinaryStorage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	if _, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key}); err != nil {
		s.logger.Error("Failed to delete file", zap.String("public_id", key), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}
