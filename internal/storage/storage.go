// Package storage keeps uploaded images on local disk or in cloudinary.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"memorybox/internal/config"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Provider names
const (
	ProviderLocal      = "local"
	ProviderCloudinary = "cloudinary"
)

// Custom errors for specific failure cases.
var (
	ErrFileTooLarge       = errors.New("file size exceeds limit")
	ErrEmptyFile          = errors.New("file is empty")
	ErrInvalidContentType = errors.New("invalid content type")
	ErrInvalidExtension   = errors.New("invalid file extension")
	ErrUploadFailed       = errors.New("failed to upload file")
	ErrDeleteFailed       = errors.New("failed to delete file")
)

// allowedTypes maps each accepted image type to its valid extensions
var allowedTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// Upload is one validated image ready to be stored
type Upload struct {
	Reader       io.ReadSeeker
	OriginalName string
	ContentType  string
	Ext          string
	Size         int64
}

// Object describes a stored file
type Object struct {
	Key         string
	URL         string
	Provider    string
	ContentType string
	Size        int64
}

// FileStorage defines the interface for file storage operations.
type FileStorage interface {
	Save(ctx context.Context, upload *Upload) (*Object, error)
	Delete(ctx context.Context, key string) error
	Provider() string
}

// Inspect sniffs the content type and checks size and extension. The reader
// is rewound before returning.
func Inspect(r io.ReadSeeker, filename string, size, maxBytes int64) (*Upload, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if maxBytes > 0 && size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d bytes", ErrFileTooLarge, size, maxBytes)
	}

	buffer := make([]byte, 512)
	n, err := r.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to read file: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("unable to reset file position: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])
	extensions, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = extensions[0]
	} else if !slices.Contains(extensions, ext) {
		return nil, fmt.Errorf("%w: file has extension %s but content is %s", ErrInvalidExtension, ext, contentType)
	}

	return &Upload{
		Reader:       r,
		OriginalName: filepath.Base(filename),
		ContentType:  contentType,
		Ext:          ext,
		Size:         size,
	}, nil
}

// uniqueName returns a collision-free object name that keeps the extension
func uniqueName(ext string) string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	}
	return id.String() + ext
}

// New builds the storage selected by UPLOAD_PROVIDER
func New(cfg config.UploadConfig, logger *zap.Logger) (FileStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Dir, cfg.BaseURL, cfg.PublicPath, logger)
	case ProviderCloudinary:
		return NewCloudinaryStorage(cfg.Cloudinary, cfg.UploadRetry, logger)
	default:
		return nil, fmt.Errorf("unsupported upload provider %q", cfg.Provider)
	}
}
