package identification

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/specimen/pkg/handlers"
	"github.com/JaimeStill/specimen/pkg/preprocess"
	"github.com/JaimeStill/specimen/pkg/routes"
)

// Handler provides HTTP endpoints for identification and model status.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "identification"),
	}
}

// Routes returns the identify and model groups.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/identify",
			Tags:   []string{"Identification"},
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: h.Identify, OpenAPI: identifyOp},
			},
		},
		{
			Prefix: "/model",
			Tags:   []string{"Identification"},
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.Model, OpenAPI: modelOp},
				{Method: "POST", Pattern: "/load", Handler: h.LoadModel, OpenAPI: loadModelOp},
			},
		},
	}
}

// Identify classifies the image referenced by the request body.
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, handlers.BodyStatus(err), fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}
	if strings.TrimSpace(req.ImageURI) == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	result, err := h.sys.Identify(r.Context(), req.ImageURI)
	if err != nil {
		// Read failures carry paths and dial errors; keep those server-side.
		if errors.Is(err, preprocess.ErrImageRead) {
			h.logger.Warn("image read failed", "error", err)
			err = preprocess.ErrImageRead
		}
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Model returns the classifier status.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Model())
}

// LoadModel retries the model load. It is a no-op when the model is ready.
func (h *Handler) LoadModel(w http.ResponseWriter, r *http.Request) {
	info, err := h.sys.LoadModel(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, info)
}
