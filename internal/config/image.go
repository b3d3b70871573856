package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/specimen/pkg/formatting"
)

const (
	EnvImageRoot         = "SPECIMEN_IMAGE_ROOT"
	EnvImageAllowRemote  = "SPECIMEN_IMAGE_ALLOW_REMOTE"
	EnvImageMaxSize      = "SPECIMEN_IMAGE_MAX_SIZE"
	EnvImageMaxPixels    = "SPECIMEN_IMAGE_MAX_PIXELS"
	EnvImageFetchTimeout = "SPECIMEN_IMAGE_FETCH_TIMEOUT"
)

// ImageConfig bounds where images may be read from and how large they may be.
// File paths are confined to Root. Remote URLs are refused unless AllowRemote
// is set.
type ImageConfig struct {
	Root         string `toml:"root"`
	AllowRemote  bool   `toml:"allow_remote"`
	MaxSize      string `toml:"max_size"`
	MaxPixels    int64  `toml:"max_pixels"`
	FetchTimeout string `toml:"fetch_timeout"`
}

// MaxSizeBytes returns MaxSize as a byte count.
func (c *ImageConfig) MaxSizeBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxSize)
	if err != nil {
		return 20 << 20
	}
	return n
}

// FetchTimeoutDuration returns FetchTimeout as a time.Duration.
func (c *ImageConfig) FetchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FetchTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ImageConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. An overlay can enable
// remote fetches but not disable them.
func (c *ImageConfig) Merge(overlay *ImageConfig) {
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
	if overlay.AllowRemote {
		c.AllowRemote = true
	}
	if overlay.MaxSize != "" {
		c.MaxSize = overlay.MaxSize
	}
	if overlay.MaxPixels != 0 {
		c.MaxPixels = overlay.MaxPixels
	}
	if overlay.FetchTimeout != "" {
		c.FetchTimeout = overlay.FetchTimeout
	}
}

func (c *ImageConfig) loadDefaults() {
	if c.Root == "" {
		c.Root = "images"
	}
	if c.MaxSize == "" {
		c.MaxSize = "20MB"
	}
	if c.MaxPixels == 0 {
		c.MaxPixels = 50_000_000
	}
	if c.FetchTimeout == "" {
		c.FetchTimeout = "15s"
	}
}

func (c *ImageConfig) loadEnv() {
	if v := os.Getenv(EnvImageRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvImageAllowRemote); v != "" {
		if allow, err := strconv.ParseBool(v); err == nil {
			c.AllowRemote = allow
		}
	}
	if v := os.Getenv(EnvImageMaxSize); v != "" {
		c.MaxSize = v
	}
	if v := os.Getenv(EnvImageMaxPixels); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxPixels = n
		}
	}
	if v := os.Getenv(EnvImageFetchTimeout); v != "" {
		c.FetchTimeout = v
	}
}

func (c *ImageConfig) validate() error {
	n, err := formatting.ParseBytes(c.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid max_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("max_pixels must be positive")
	}
	if _, err := time.ParseDuration(c.FetchTimeout); err != nil {
		return fmt.Errorf("invalid fetch_timeout: %w", err)
	}
	return nil
}
