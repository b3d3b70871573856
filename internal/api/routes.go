package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/specimen/internal/catalog"
	"github.com/JaimeStill/specimen/internal/collection"
	"github.com/JaimeStill/specimen/internal/config"
	"github.com/JaimeStill/specimen/internal/identification"
	"github.com/JaimeStill/specimen/pkg/classifier"
	"github.com/JaimeStill/specimen/pkg/handlers"
	"github.com/JaimeStill/specimen/pkg/openapi"
	"github.com/JaimeStill/specimen/pkg/routes"
)

// ServiceInfo describes the running service at the API root.
type ServiceInfo struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Model   classifier.Info `json:"model"`
}

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	rt *Runtime,
) error {
	groups := append(
		domain.Identification.Handler().Routes(),
		domain.Collection.Handler().Routes(),
		catalog.NewHandler(rt.Catalog, rt.Logger).Routes(),
		routes.Group{
			Tags: []string{"Service"},
			Routes: []routes.Route{
				{
					Method:  "GET",
					Pattern: "/{$}",
					Handler: func(w http.ResponseWriter, r *http.Request) {
						handlers.RespondJSON(w, http.StatusOK, ServiceInfo{
							Name:    "specimen",
							Version: cfg.Version,
							Model:   domain.Identification.Model(),
						})
					},
				},
			},
		},
	)

	spec, err := buildSpec(cfg, groups)
	if err != nil {
		return err
	}
	groups = append(groups, routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/openapi.json", Handler: openapi.ServeSpec(spec)},
		},
	})

	routes.Register(mux, groups...)
	return nil
}

func buildSpec(cfg *config.Config, groups []routes.Group) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(catalog.Schemas())
	spec.Components.AddSchemas(identification.Schemas())
	spec.Components.AddSchemas(collection.Schemas())

	routes.Describe(spec, groups...)

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	return data, nil
}
