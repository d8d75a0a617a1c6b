package audit

import (
	"errors"
	"net/http"
)

var ErrNotFound = errors.New("classification log entry not found")

// MapHTTPStatus translates domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
