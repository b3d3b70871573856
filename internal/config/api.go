package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/specimen/pkg/middleware"
	"github.com/JaimeStill/specimen/pkg/openapi"
	"github.com/JaimeStill/specimen/pkg/pagination"
)

const EnvAPIBasePath = "SPECIMEN_API_BASE_PATH"

var corsEnv = &middleware.CORSEnv{
	Enabled:          "SPECIMEN_CORS_ENABLED",
	Origins:          "SPECIMEN_CORS_ORIGINS",
	AllowedMethods:   "SPECIMEN_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "SPECIMEN_CORS_ALLOWED_HEADERS",
	AllowCredentials: "SPECIMEN_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "SPECIMEN_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SPECIMEN_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SPECIMEN_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "SPECIMEN_OPENAPI_TITLE",
	Description: "SPECIMEN_OPENAPI_DESCRIPTION",
}

// APIConfig holds API routing, CORS, pagination and API description settings.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
	OpenAPI    openapi.Config        `toml:"openapi"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path must start with /: %q", c.BasePath)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
}
