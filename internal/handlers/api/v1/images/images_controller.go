// ===============================
// FILE: internal/handlers/api/v1/images/images_controller.go
// ===============================

package images

import (
	"errors"
	"mime/multipart"
	"net/http"

	"memorybox/internal/response"
	"memorybox/internal/services"

	"go.uber.org/zap"
)

// FormField is the multipart field carrying the file
const FormField = "image"

// multipartOverhead leaves room for boundaries and headers around the file
const multipartOverhead = 64 << 10

// ImageController handles POST /api/image
type ImageController struct {
	images          services.ImageService
	maxBytes        int64
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewImageController creates a new image controller. maxBytes is the
// largest accepted file.
func NewImageController(
	images services.ImageService,
	maxBytes int64,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *ImageController {
	return &ImageController{
		images:          images,
		maxBytes:        maxBytes,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// UploadImage handles POST /api/image
func (c *ImageController) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(c.maxBytes); err != nil {
		c.responseBuilder.WriteError(w, r, c.formError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(FormField)
	if err != nil {
		c.responseBuilder.WriteError(w, r, c.formError(err))
		return
	}
	// the service reopens through header.Open
	file.Close()

	result, err := c.images.UploadImage(r.Context(), &services.UploadImageRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Open: func() (services.ReadSeekCloser, error) {
			return header.Open()
		},
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

func (c *ImageController) formError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		se := services.NewValidationError("image is too large", nil)
		se.Code = "FILE_TOO_LARGE"
		se.Details = map[string]interface{}{"max_bytes": c.maxBytes}
		return se
	case errors.Is(err, http.ErrMissingFile):
		se := services.NewBadRequestError("multipart field \"" + FormField + "\" is required")
		se.Code = "MISSING_FILE"
		return se
	case errors.Is(err, multipart.ErrMessageTooLarge):
		return services.NewBadRequestError("multipart form fields are too large")
	case errors.Is(err, http.ErrNotMultipart):
		return services.NewBadRequestError("request must be multipart/form-data")
	default:
		return services.NewBadRequestError("unable to read upload")
	}
}
