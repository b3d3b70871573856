// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/specimen/internal/config"
	"github.com/JaimeStill/specimen/internal/infrastructure"
	"github.com/JaimeStill/specimen/pkg/middleware"
	"github.com/JaimeStill/specimen/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(infra)
	domain := NewDomain(runtime, cfg)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, err
	}

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, fmt.Errorf("api module: %w", err)
	}
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.MaxBytes(cfg.Server.MaxBodyBytes()))

	return m, nil
}
