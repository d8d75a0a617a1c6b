package tags

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("tag not found")
	ErrDuplicate    = errors.New("tag name already exists")
	ErrNameRequired = errors.New("tag name is required")
)

// MapHTTPStatus translates domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrNameRequired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
