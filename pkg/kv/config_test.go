package kv_test

import (
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/specimen/pkg/kv"
)

func TestConfigDefaults(t *testing.T) {
	var cfg kv.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if cfg.Backend != kv.BackendFile {
		t.Errorf("Backend = %s, want file", cfg.Backend)
	}
	if cfg.Dir != "data" || cfg.Prefix != "specimen" || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.DialTimeoutDuration() != 5*time.Second {
		t.Errorf("DialTimeout = %v", cfg.DialTimeoutDuration())
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEST_KV_BACKEND", "redis")
	t.Setenv("TEST_KV_REDIS_DB", "3")

	cfg := kv.Config{Backend: "memory"}
	env := &kv.Env{Backend: "TEST_KV_BACKEND", RedisDB: "TEST_KV_REDIS_DB"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if cfg.Backend != kv.BackendRedis || cfg.RedisDB != 3 {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestConfigMerge(t *testing.T) {
	base := kv.Config{Backend: "file", Dir: "data"}
	base.Merge(&kv.Config{Backend: "postgres"})

	if base.Backend != "postgres" || base.Dir != "data" {
		t.Errorf("merge result %+v", base)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  kv.Config
		want error
	}{
		{"unknown backend", kv.Config{Backend: "sqlite"}, kv.ErrUnknownBackend},
		{"bad timeout", kv.Config{DialTimeout: "soon"}, nil},
		{"negative db", kv.Config{RedisDB: -1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
