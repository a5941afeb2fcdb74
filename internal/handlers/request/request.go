// file: internal/handlers/request/request.go
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"memorybox/internal/services"

	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes caps JSON request bodies
const MaxBodyBytes = 1 << 20

// PasswordBody is the payload of delete and verify-password calls
type PasswordBody struct {
	Password string `json:"password"`
}

// PostPasswordBody is PasswordBody for posts, which name the field postPassword
type PostPasswordBody struct {
	PostPassword string `json:"postPassword"`
}

// DecodeJSON reads a single JSON object from the body into dst.
// Unknown fields are ignored so older clients keep working.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	decoder := json.NewDecoder(body)

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return invalidBody("request body is required")
		case errors.As(err, &maxErr):
			return invalidBody(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			return invalidBody("request body is not valid JSON")
		}
	}
	if decoder.More() {
		return invalidBody("request body must contain a single JSON object")
	}
	return nil
}

// OptionalJSON is DecodeJSON for bodies that may be empty
func OptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return DecodeJSON(w, r, dst)
}

// IDParam parses a positive integer URL parameter
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		se := services.NewBadRequestError(name + " must be a positive integer")
		se.Code = "INVALID_ID"
		se.Details = map[string]interface{}{name: raw}
		return 0, se
	}
	return id, nil
}

func invalidBody(message string) error {
	se := services.NewBadRequestError(message)
	se.Code = "INVALID_BODY"
	return se
}
