package api

import (
	"github.com/JaimeStill/specimen/internal/infrastructure"
)

// Runtime is the Infrastructure seen through a module-scoped logger.
type Runtime struct {
	*infrastructure.Infrastructure
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")
	return &Runtime{Infrastructure: &scoped}
}
