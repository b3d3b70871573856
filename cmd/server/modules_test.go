package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/specimen/internal/config"
	"github.com/JaimeStill/specimen/internal/infrastructure"
	"github.com/JaimeStill/specimen/pkg/kv"
)

func testInfra(t *testing.T) (*config.Config, *infrastructure.Infrastructure) {
	t.Helper()
	cfg := &config.Config{KV: kv.Config{Backend: kv.BackendMemory}}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("infrastructure: %v", err)
	}
	return cfg, infra
}

func TestHealthAndReadiness(t *testing.T) {
	_, infra := testInfra(t)
	if err := infra.Start(); err != nil {
		t.Fatal(err)
	}
	infra.Lifecycle.WaitForStartup()

	router := buildRouter(infra)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	// no model files exist under the default paths, so the load fails
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rec.Code)
	}

	var body readiness
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Pending) != 1 || body.Pending[0] != "model" {
		t.Errorf("pending = %v, want [model]", body.Pending)
	}
}

func TestModulesMount(t *testing.T) {
	cfg, infra := testInfra(t)

	modules, err := NewModules(infra, cfg)
	if err != nil {
		t.Fatal(err)
	}
	router := buildRouter(infra)
	if err := modules.Mount(router); err != nil {
		t.Fatal(err)
	}
	if got := router.Prefixes(); len(got) != 1 || got[0] != "/api" {
		t.Errorf("prefixes = %v, want [/api]", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/catalog", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("catalog status = %d", rec.Code)
	}
}
