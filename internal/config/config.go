// Package config loads the service configuration from TOML files and
// SPECIMEN_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/specimen/pkg/classifier"
	"github.com/JaimeStill/specimen/pkg/database"
	"github.com/JaimeStill/specimen/pkg/kv"
	"github.com/JaimeStill/specimen/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvSpecimenEnv             = "SPECIMEN_ENV"
	EnvSpecimenShutdownTimeout = "SPECIMEN_SHUTDOWN_TIMEOUT"
	EnvSpecimenVersion         = "SPECIMEN_VERSION"
	EnvSpecimenLogLevel        = "SPECIMEN_LOG_LEVEL"
	EnvSpecimenCatalogPath     = "SPECIMEN_CATALOG_PATH"
)

var modelEnv = &classifier.Env{
	Backend:          "SPECIMEN_MODEL_BACKEND",
	ModelPath:        "SPECIMEN_MODEL_PATH",
	LabelsPath:       "SPECIMEN_MODEL_LABELS_PATH",
	URL:              "SPECIMEN_MODEL_URL",
	Name:             "SPECIMEN_MODEL_NAME",
	LoadTimeout:      "SPECIMEN_MODEL_LOAD_TIMEOUT",
	InferenceTimeout: "SPECIMEN_MODEL_INFERENCE_TIMEOUT",
}

var kvEnv = &kv.Env{
	Backend:       "SPECIMEN_KV_BACKEND",
	Dir:           "SPECIMEN_KV_DIR",
	Prefix:        "SPECIMEN_KV_PREFIX",
	RedisAddr:     "SPECIMEN_REDIS_ADDR",
	RedisPassword: "SPECIMEN_REDIS_PASSWORD",
	RedisDB:       "SPECIMEN_REDIS_DB",
	DialTimeout:   "SPECIMEN_REDIS_DIAL_TIMEOUT",
}

var databaseEnv = &database.Env{
	URL:          "SPECIMEN_DB_URL",
	Host:         "SPECIMEN_DB_HOST",
	Port:         "SPECIMEN_DB_PORT",
	Name:         "SPECIMEN_DB_NAME",
	User:         "SPECIMEN_DB_USER",
	Password:     "SPECIMEN_DB_PASSWORD",
	SSLMode:      "SPECIMEN_DB_SSL_MODE",
	MaxOpenConns: "SPECIMEN_DB_MAX_OPEN_CONNS",
	ConnTimeout:  "SPECIMEN_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "SPECIMEN_STORAGE_CONTAINER_NAME",
	ConnectionString: "SPECIMEN_STORAGE_CONNECTION_STRING",
	AccountURL:       "SPECIMEN_STORAGE_ACCOUNT_URL",
}

// Config is the root configuration for the specimen service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	API             APIConfig         `toml:"api"`
	Model           classifier.Config `toml:"model"`
	Image           ImageConfig       `toml:"image"`
	Catalog         CatalogConfig     `toml:"catalog"`
	KV              kv.Config         `toml:"kv"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	LogLevel        string            `toml:"log_level"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// CatalogConfig points at an optional replacement reference catalog.
// An empty Path uses the catalog embedded in the binary.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// Env returns the SPECIMEN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvSpecimenEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	level.UnmarshalText([]byte(c.LogLevel))
	return level
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.Catalog.Path != "" {
		c.Catalog.Path = overlay.Catalog.Path
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Model.Merge(&overlay.Model)
	c.Image.Merge(&overlay.Image)
	c.KV.Merge(&overlay.KV)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
}

// Finalize applies defaults, environment overrides and validation to every
// section. Database and storage settings are only validated when the
// key-value backend uses them.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Model.Finalize(modelEnv); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Image.Finalize(); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if err := c.KV.Finalize(kvEnv); err != nil {
		return fmt.Errorf("kv: %w", err)
	}

	switch c.KV.Backend {
	case kv.BackendPostgres:
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	case kv.BackendBlob:
		if err := c.Storage.Finalize(storageEnv); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvSpecimenLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSpecimenShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvSpecimenVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvSpecimenCatalogPath); v != "" {
		c.Catalog.Path = v
	}
}

func (c *Config) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvSpecimenEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
