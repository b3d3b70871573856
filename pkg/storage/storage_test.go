package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/specimen/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=specimenstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/specimenstore;"

func TestFinalizeDefaults(t *testing.T) {
	cfg := storage.Config{ConnectionString: azuriteConnString}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.ContainerName != "specimens" {
		t.Errorf("container: got %s, want specimens", cfg.ContainerName)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_STORAGE_CONTAINER", "field")
	t.Setenv("TEST_STORAGE_ACCOUNT_URL", "https://specimen.blob.core.windows.net")

	cfg := storage.Config{}
	err := cfg.Finalize(&storage.Env{
		ContainerName: "TEST_STORAGE_CONTAINER",
		AccountURL:    "TEST_STORAGE_ACCOUNT_URL",
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.ContainerName != "field" || cfg.AccountURL != "https://specimen.blob.core.windows.net" {
		t.Errorf("config: got %+v", cfg)
	}
}

func TestFinalizeRequiresCredentials(t *testing.T) {
	cfg := storage.Config{}
	err := cfg.Finalize(nil)
	if err == nil || !strings.Contains(err.Error(), "connection_string or account_url") {
		t.Errorf("err = %v", err)
	}
}

func TestMerge(t *testing.T) {
	cfg := storage.Config{ContainerName: "base", ConnectionString: "base"}
	cfg.Merge(&storage.Config{ContainerName: "overlay"})

	if cfg.ContainerName != "overlay" || cfg.ConnectionString != "base" {
		t.Errorf("merge: got %+v", cfg)
	}
}

func TestKeyValidation(t *testing.T) {
	cfg := storage.Config{ConnectionString: azuriteConnString}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys, err := storage.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", storage.ErrEmptyKey},
		{"traversal", "../escape", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sys.Upload(ctx, tt.key, strings.NewReader("{}"), "application/json"); !errors.Is(err, tt.want) {
				t.Errorf("Upload: err = %v, want %v", err, tt.want)
			}
			if _, err := sys.Download(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Download: err = %v, want %v", err, tt.want)
			}
			if err := sys.Delete(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Delete: err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewRejectsBadConnectionString(t *testing.T) {
	cfg := storage.Config{ContainerName: "specimens", ConnectionString: "not-a-connection-string"}
	if _, err := storage.New(&cfg, slog.Default()); err == nil {
		t.Error("expected error for malformed connection string")
	}
}
