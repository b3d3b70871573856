package kv

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendBlob     = "blob"
	BackendRedis    = "redis"
)

// Config selects and parameterizes the key-value backend.
type Config struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	Prefix        string `toml:"prefix"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	DialTimeout   string `toml:"dial_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend       string
	Dir           string
	Prefix        string
	RedisAddr     string
	RedisPassword string
	RedisDB       string
	DialTimeout   string
}

// DialTimeoutDuration returns DialTimeout as a time.Duration.
func (c *Config) DialTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DialTimeout)
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
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.RedisAddr != "" {
		c.RedisAddr = overlay.RedisAddr
	}
	if overlay.RedisPassword != "" {
		c.RedisPassword = overlay.RedisPassword
	}
	if overlay.RedisDB != 0 {
		c.RedisDB = overlay.RedisDB
	}
	if overlay.DialTimeout != "" {
		c.DialTimeout = overlay.DialTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Dir == "" {
		c.Dir = "data"
	}
	if c.Prefix == "" {
		c.Prefix = "specimen"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.Dir != "" {
		if v := os.Getenv(env.Dir); v != "" {
			c.Dir = v
		}
	}
	if env.Prefix != "" {
		if v := os.Getenv(env.Prefix); v != "" {
			c.Prefix = v
		}
	}
	if env.RedisAddr != "" {
		if v := os.Getenv(env.RedisAddr); v != "" {
			c.RedisAddr = v
		}
	}
	if env.RedisPassword != "" {
		if v := os.Getenv(env.RedisPassword); v != "" {
			c.RedisPassword = v
		}
	}
	if env.RedisDB != "" {
		if v := os.Getenv(env.RedisDB); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RedisDB = n
			}
		}
	}
	if env.DialTimeout != "" {
		if v := os.Getenv(env.DialTimeout); v != "" {
			c.DialTimeout = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendFile, BackendPostgres, BackendBlob, BackendRedis:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("invalid redis_db: %d", c.RedisDB)
	}
	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf("invalid dial_timeout: %w", err)
	}
	return nil
}
