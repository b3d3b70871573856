package classifier

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/JaimeStill/specimen/pkg/tensor"
)

// Supported model backends.
const (
	BackendDense  = "dense"
	BackendRemote = "remote"
)

// Config selects the model backend and bounds model operations.
type Config struct {
	Backend          string `toml:"backend"`
	ModelPath        string `toml:"model_path"`
	LabelsPath       string `toml:"labels_path"`
	URL              string `toml:"url"`
	Name             string `toml:"name"`
	InputHeight      int    `toml:"input_height"`
	InputWidth       int    `toml:"input_width"`
	InputChannels    int    `toml:"input_channels"`
	LoadTimeout      string `toml:"load_timeout"`
	InferenceTimeout string `toml:"inference_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend          string
	ModelPath        string
	LabelsPath       string
	URL              string
	Name             string
	LoadTimeout      string
	InferenceTimeout string
}

// InputShape returns the configured input shape. The dense backend reads its
// shape from the model file; the remote backend relies on this value.
func (c *Config) InputShape() tensor.Shape {
	return tensor.Shape{
		Height:   c.InputHeight,
		Width:    c.InputWidth,
		Channels: c.InputChannels,
	}
}

// LoadTimeoutDuration returns LoadTimeout as a time.Duration.
func (c *Config) LoadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.LoadTimeout)
	return d
}

// InferenceTimeoutDuration returns InferenceTimeout as a time.Duration.
func (c *Config) InferenceTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.InferenceTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.ModelPath != "" {
		c.ModelPath = overlay.ModelPath
	}
	if overlay.LabelsPath != "" {
		c.LabelsPath = overlay.LabelsPath
	}
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.InputHeight != 0 {
		c.InputHeight = overlay.InputHeight
	}
	if overlay.InputWidth != 0 {
		c.InputWidth = overlay.InputWidth
	}
	if overlay.InputChannels != 0 {
		c.InputChannels = overlay.InputChannels
	}
	if overlay.LoadTimeout != "" {
		c.LoadTimeout = overlay.LoadTimeout
	}
	if overlay.InferenceTimeout != "" {
		c.InferenceTimeout = overlay.InferenceTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendDense
	}
	if c.ModelPath == "" {
		c.ModelPath = "models/model.json"
	}
	if c.LabelsPath == "" {
		c.LabelsPath = "models/labels.txt"
	}
	if c.Name == "" {
		c.Name = "specimen"
	}
	if c.InputHeight == 0 {
		c.InputHeight = 224
	}
	if c.InputWidth == 0 {
		c.InputWidth = 224
	}
	if c.InputChannels == 0 {
		c.InputChannels = 3
	}
	if c.LoadTimeout == "" {
		c.LoadTimeout = "2m"
	}
	if c.InferenceTimeout == "" {
		c.InferenceTimeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	lookup := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	lookup(env.Backend, &c.Backend)
	lookup(env.ModelPath, &c.ModelPath)
	lookup(env.LabelsPath, &c.LabelsPath)
	lookup(env.URL, &c.URL)
	lookup(env.Name, &c.Name)
	lookup(env.LoadTimeout, &c.LoadTimeout)
	lookup(env.InferenceTimeout, &c.InferenceTimeout)
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendDense:
	case BackendRemote:
		if c.URL == "" {
			return fmt.Errorf("url required for remote backend")
		}
	default:
		return fmt.Errorf("unknown model backend: %s", c.Backend)
	}
	if !c.InputShape().Valid() {
		return fmt.Errorf("invalid input shape: %s", c.InputShape())
	}
	if _, err := time.ParseDuration(c.LoadTimeout); err != nil {
		return fmt.Errorf("invalid load_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.InferenceTimeout); err != nil {
		return fmt.Errorf("invalid inference_timeout: %w", err)
	}
	return nil
}

// NewLoader builds the Loader for the configured backend. client is used by
// the remote backend; nil selects http.DefaultClient.
func NewLoader(cfg *Config, client *http.Client) (Loader, error) {
	switch cfg.Backend {
	case BackendDense:
		return &DenseLoader{
			ModelPath:  cfg.ModelPath,
			LabelsPath: cfg.LabelsPath,
		}, nil
	case BackendRemote:
		return &RemoteLoader{
			URL:        cfg.URL,
			Name:       cfg.Name,
			LabelsPath: cfg.LabelsPath,
			Input:      cfg.InputShape(),
			Client:     client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown model backend: %s", cfg.Backend)
	}
}
