package policies

import (
	"errors"
	"net/http"
)

// Domain errors for retention policy operations.
var (
	ErrNotFound        = errors.New("retention policy not found")
	ErrDuplicate       = errors.New("retention policy already exists")
	ErrNameRequired    = errors.New("policy name is required")
	ErrInvalidDuration = errors.New("retention duration must be positive")
	ErrInvalidTrigger  = errors.New("unrecognized retention trigger")
	ErrInvalidAction   = errors.New("unrecognized post-retention action")
	ErrInvalidScope    = errors.New("unrecognized document-type scope")
)

// MapHTTPStatus maps policy domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ErrInvalidTrigger),
		errors.Is(err, ErrInvalidAction),
		errors.Is(err, ErrInvalidScope):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
