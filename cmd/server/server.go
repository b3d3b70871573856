package main

import (
	"log/slog"
	"time"

	"github.com/JaimeStill/specimen/internal/config"
	"github.com/JaimeStill/specimen/internal/infrastructure"
)

// Server owns the infrastructure, mounted modules, and HTTP listener.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
	logger  *slog.Logger
}

// NewServer builds every subsystem without starting any of them.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	if err := modules.Mount(router); err != nil {
		return nil, err
	}

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"modules", router.Prefixes(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(cfg, router, infra.Logger),
		logger:  infra.Logger,
	}, nil
}

// Start registers subsystems with the lifecycle, begins listening, and runs
// startup hooks in the background. The listener accepts traffic while the
// model is still loading; /readyz reports what is pending.
func (s *Server) Start() error {
	s.logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		if pending := s.infra.Lifecycle.Pending(); len(pending) > 0 {
			s.logger.Warn("startup finished with subsystems not ready", "pending", pending)
			return
		}
		s.logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown cancels the lifecycle context and waits for shutdown hooks.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
