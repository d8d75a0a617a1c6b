package queue

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/custodian/internal/services"
)

var (
	ErrNotFound          = errors.New("queue entry not found")
	ErrDuplicate         = errors.New("queue entry already active for document and service")
	ErrInvalidPriority   = errors.New("unrecognized priority")
	ErrInvalidTransition = errors.New("state transition not permitted")
	ErrNoDocuments       = errors.New("no documents requested")
)

// MapHTTPStatus translates domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrNoDocuments):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNoActiveService):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
