package documents

import (
	"errors"
	"net/http"
)

// Domain errors for document operations.
var (
	ErrNotFound           = errors.New("document not found")
	ErrDuplicate          = errors.New("document already exists")
	ErrInvalidFile        = errors.New("invalid file")
	ErrInvalidSensitivity = errors.New("unrecognized sensitivity level")
	ErrNoExtractionData   = errors.New("document has no extracted vendor and amount")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFile), errors.Is(err, ErrNoExtractionData):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidSensitivity):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
