package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStorage writes uploads into a directory served under publicPath
type LocalStorage struct {
	dir        string
	baseURL    string
	publicPath string
	logger     *zap.Logger
}

// NewLocalStorage creates the upload directory if needed
func NewLocalStorage(dir, baseURL, publicPath string, logger *zap.Logger) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &LocalStorage{
		dir:        dir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		publicPath: "/" + strings.Trim(publicPath, "/"),
		logger:     logger,
	}, nil
}

// Dir is the directory the router serves statically
func (s *LocalStorage) Dir() string { return s.dir }

// Provider implements FileStorage
func (s *LocalStorage) Provider() string { return ProviderLocal }

// Save implements FileStorage
func (s *LocalStorage) Save(ctx context.Context, upload *Upload) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := uniqueName(upload.Ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	written, err := io.Copy(f, upload.Reader)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	s.logger.Info("File stored locally",
		zap.String("key", name),
		zap.Int64("size", written),
	)

	return &Object{
		Key:         name,
		URL:         s.baseURL + s.publicPath + "/" + name,
		Provider:    ProviderLocal,
		ContentType: upload.ContentType,
		Size:        written,
	}, nil
}

// Delete implements FileStorage. Missing files are not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if key == "" || key != filepath.Base(key) {
		return fmt.Errorf("%w: invalid key %q", ErrDeleteFailed, key)
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}
