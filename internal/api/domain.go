package api

import (
	"github.com/JaimeStill/specimen/internal/collection"
	"github.com/JaimeStill/specimen/internal/config"
	"github.com/JaimeStill/specimen/internal/identification"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Identification identification.System
	Collection     collection.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *config.Config) *Domain {
	return &Domain{
		Identification: identification.New(
			runtime.Classifier,
			runtime.Preprocessor,
			runtime.Catalog,
			runtime.Logger,
		),
		Collection: collection.New(
			runtime.Store,
			cfg.API.Pagination,
			nil,
			runtime.Logger,
		),
	}
}
