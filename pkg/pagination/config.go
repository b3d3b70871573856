package pagination

import (
	"fmt"
	"os"
	"strconv"
)

// Config bounds list pages. A request without a page size gets
// DefaultPageSize; larger requests are cut to MaxPageSize.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	DefaultPageSize string
	MaxPageSize     string
}

// PageSize resolves a requested page size against the configured bounds.
func (c Config) PageSize(requested int) int {
	if requested < 1 {
		requested = c.DefaultPageSize
	}
	return min(requested, c.MaxPageSize)
}

// Finalize fills defaults, applies env overrides when env is non-nil, and
// validates the result.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}

	if env != nil {
		envInt(env.DefaultPageSize, &c.DefaultPageSize)
		envInt(env.MaxPageSize, &c.MaxPageSize)
	}

	switch {
	case c.DefaultPageSize < 1:
		return fmt.Errorf("default_page_size must be positive")
	case c.MaxPageSize < 1:
		return fmt.Errorf("max_page_size must be positive")
	case c.DefaultPageSize > c.MaxPageSize:
		return fmt.Errorf("default_page_size %d cannot exceed max_page_size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// Merge takes the overlay's non-zero sizes.
func (c *Config) Merge(overlay *Config) {
	if overlay.DefaultPageSize != 0 {
		c.DefaultPageSize = overlay.DefaultPageSize
	}
	if overlay.MaxPageSize != 0 {
		c.MaxPageSize = overlay.MaxPageSize
	}
}

// envInt overwrites dst with the integer in the named variable. Unset
// names and unparsable values leave dst alone.
func envInt(name string, dst *int) {
	if name == "" {
		return
	}
	if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
		*dst = n
	}
}
