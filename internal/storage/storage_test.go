package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memorybox/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestInspect_AcceptsImageAndRewinds(t *testing.T) {
	r := bytes.NewReader(pngHeader)

	upload, err := Inspect(r, "Photo.PNG", int64(len(pngHeader)), 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.Equal(t, ".png", upload.Ext)

	pos, _ := r.Seek(0, 1)
	assert.Zero(t, pos)
}

func TestInspect_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		file    string
		size    int64
		wantErr error
	}{
		{"too large", pngHeader, "a.png", 2048, ErrFileTooLarge},
		{"empty", nil, "a.png", 0, ErrEmptyFile},
		{"not an image", []byte("hello world, plain text"), "a.png", 23, ErrInvalidContentType},
		{"extension mismatch", pngHeader, "a.jpg", int64(len(pngHeader)), ErrInvalidExtension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(bytes.NewReader(tt.data), tt.file, tt.size, 1024)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:3000/", "uploads", zap.NewNop())
	require.NoError(t, err)

	upload, err := Inspect(bytes.NewReader(pngHeader), "trip.png", int64(len(pngHeader)), 0)
	require.NoError(t, err)

	obj, err := s.Save(context.Background(), upload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.URL, "http://localhost:3000/uploads/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.EqualValues(t, len(pngHeader), obj.Size)

	stored, err := os.ReadFile(filepath.Join(dir, obj.Key))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)

	require.NoError(t, s.Delete(context.Background(), obj.Key))
	_, err = os.Stat(filepath.Join(dir, obj.Key))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Delete(context.Background(), "../etc/passwd"))
}

func TestNew_SelectsProvider(t *testing.T) {
	s, err := New(config.UploadConfig{Provider: "local", Dir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, s.Provider())

	_, err = New(config.UploadConfig{Provider: "cloudinary"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(config.UploadConfig{Provider: "s3"}, zap.NewNop())
	assert.Error(t, err)
}
