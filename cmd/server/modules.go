package main

import (
	"net/http"

	"github.com/JaimeStill/specimen/internal/api"
	"github.com/JaimeStill/specimen/internal/config"
	"github.com/JaimeStill/specimen/internal/infrastructure"
	"github.com/JaimeStill/specimen/pkg/handlers"
	"github.com/JaimeStill/specimen/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) error {
	return router.Mount(m.API)
}

type readiness struct {
	Status  string   `json:"status"`
	Pending []string `json:"pending,omitempty"`
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, readiness{Status: "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, readiness{
				Status:  "not ready",
				Pending: infra.Lifecycle.Pending(),
			})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, readiness{Status: "ready"})
	})

	return router
}
