package identification

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/specimen/pkg/classifier"
	"github.com/JaimeStill/specimen/pkg/preprocess"
)

var ErrInvalidRequest = errors.New("invalid identification request")

// MapHTTPStatus maps identification and pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, preprocess.ErrImageRead),
		errors.Is(err, preprocess.ErrImageDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, classifier.ErrModelNotReady),
		errors.Is(err, classifier.ErrModelLoad):
		return http.StatusServiceUnavailable
	case errors.Is(err, classifier.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
