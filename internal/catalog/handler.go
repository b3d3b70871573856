package catalog

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/specimen/pkg/handlers"
	"github.com/JaimeStill/specimen/pkg/routes"
)

// Item pairs a label with its entry in API responses.
type Item struct {
	Label string `json:"label"`
	Entry
}

// Handler serves the reference catalog.
type Handler struct {
	catalog *Catalog
	logger  *slog.Logger
}

func NewHandler(c *Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		catalog: c,
		logger:  logger.With("handler", "catalog"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/catalog",
		Tags:   []string{"Catalog"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: listOp},
			{Method: "GET", Pattern: "/{label}", Handler: h.Find, OpenAPI: findOp},
		},
	}
}

// List returns every entry in label order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	labels := h.catalog.Labels()
	items := make([]Item, 0, len(labels))
	for _, label := range labels {
		e, _ := h.catalog.Lookup(label)
		items = append(items, Item{Label: label, Entry: e})
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// Find returns the entry for the label path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")

	e, ok := h.catalog.Lookup(label)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrNotFound, label)
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, Item{Label: label, Entry: e})
}
