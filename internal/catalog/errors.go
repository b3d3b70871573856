package catalog

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("catalog entry not found")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// MapHTTPStatus maps catalog errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
