package services

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound         = errors.New("classification service not found")
	ErrDuplicate        = errors.New("classification service name already exists")
	ErrNameRequired     = errors.New("service name is required")
	ErrInvalidProvider  = errors.New("unrecognized provider kind")
	ErrInvalidThreshold = errors.New("confidence threshold must be between 0 and 1")
	ErrNoActiveService  = errors.New("no active classification service configured")
)

// MapHTTPStatus translates domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidProvider),
		errors.Is(err, ErrInvalidThreshold):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoActiveService):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
