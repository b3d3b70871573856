package collection

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
	ErrInvalidQuery       = errors.New("invalid search query")
	ErrStorageRead        = errors.New("collection could not be read")
	ErrStorageWrite       = errors.New("collection could not be written")
)

// MapHTTPStatus maps collection errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidFingerprint) ||
		errors.Is(err, ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrStorageRead) || errors.Is(err, ErrStorageWrite) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
