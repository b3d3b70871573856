package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/specimen/pkg/handlers"
	"github.com/JaimeStill/specimen/pkg/pagination"
	"github.com/JaimeStill/specimen/pkg/routes"
)

const defaultMaxDistance = 10

// Handler provides HTTP endpoints for the collection.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, logger *slog.Logger, page pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "collection"),
		pagination: page,
	}
}

// Routes returns the route group definition for collection endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/collection",
		Tags:   []string{"Collection"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: listOp},
			{Method: "POST", Pattern: "", Handler: h.Save, OpenAPI: saveOp},
			{Method: "DELETE", Pattern: "", Handler: h.Clear, OpenAPI: clearOp},
			{Method: "GET", Pattern: "/statistics", Handler: h.Statistics, OpenAPI: statisticsOp},
			{Method: "GET", Pattern: "/similar", Handler: h.Similar, OpenAPI: similarOp},
			{Method: "GET", Pattern: "/page", Handler: h.Page, OpenAPI: pageOp},
			{Method: "POST", Pattern: "/search", Handler: h.Search, OpenAPI: searchOp},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: findOp},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete, OpenAPI: deleteOp},
		},
	}
}

// List returns the collection newest first. Unreadable storage renders as
// an empty collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.sys.List(r.Context())
	if err != nil && !errors.Is(err, ErrStorageRead) {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, records)
}

// Page returns one page of the collection using the page, page_size,
// search and sort query parameters.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	h.search(w, r, page, Filters{})
}

// Search accepts a JSON body with pagination and filter criteria and returns
// the matching page.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, handlers.BodyStatus(err), fmt.Errorf("%w: %w", ErrInvalidQuery, err))
		return
	}

	h.search(w, r, req.PageRequest, req.Filters)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, page pagination.PageRequest, filters Filters) {
	result, err := h.sys.Search(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Save stores an identification and returns the new record.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, handlers.BodyStatus(err), fmt.Errorf("%w: %w", ErrInvalidRecord, err))
		return
	}

	rec, err := h.sys.Save(r.Context(), req.Identification, req.ImageURI)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rec)
}

// Find returns a single record by id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Delete removes a record by id.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Delete(r.Context(), r.PathValue("id")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear removes every record.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Clear(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Statistics returns totals, per-category counts and the average confidence.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sys.Statistics(r.Context())
	if err != nil && !errors.Is(err, ErrStorageRead) {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

// Similar returns records visually close to the fingerprint query parameter.
// max_distance defaults to 10 bits.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxDistance := defaultMaxDistance
	if v := q.Get("max_distance"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFingerprint)
			return
		}
		maxDistance = n
	}

	matches, err := h.sys.Similar(r.Context(), q.Get("fingerprint"), maxDistance)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, matches)
}
