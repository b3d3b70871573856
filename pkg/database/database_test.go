package database_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/specimen/pkg/database"
	"github.com/JaimeStill/specimen/pkg/lifecycle"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"name", cfg.Name, "specimen"},
		{"user", cfg.User, "specimen"},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 4},
		{"max_idle_conns", cfg.MaxIdleConns, 2},
		{"conn_max_lifetime", cfg.ConnMaxLifetime, "15m"},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "remotehost")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_NAME", "envdb")
	t.Setenv("TEST_DB_USER", "envuser")
	t.Setenv("TEST_DB_PASSWORD", "envpass")
	t.Setenv("TEST_DB_SSL_MODE", "require")
	t.Setenv("TEST_DB_MAX_OPEN", "8")
	t.Setenv("TEST_DB_TIMEOUT", "10s")

	env := &database.Env{
		Host:         "TEST_DB_HOST",
		Port:         "TEST_DB_PORT",
		Name:         "TEST_DB_NAME",
		User:         "TEST_DB_USER",
		Password:     "TEST_DB_PASSWORD",
		SSLMode:      "TEST_DB_SSL_MODE",
		MaxOpenConns: "TEST_DB_MAX_OPEN",
		ConnTimeout:  "TEST_DB_TIMEOUT",
	}

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	want := "host=remotehost port=5433 dbname=envdb user=envuser password=envpass sslmode=require"
	if got := cfg.Dsn(); got != want {
		t.Errorf("dsn:\n got %s\nwant %s", got, want)
	}
	if cfg.MaxOpenConns != 8 {
		t.Errorf("max_open_conns: got %d", cfg.MaxOpenConns)
	}
	if cfg.ConnTimeoutDuration().String() != "10s" {
		t.Errorf("conn_timeout: got %v", cfg.ConnTimeoutDuration())
	}
}

func TestDsnPrefersURL(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://u:p@db:5432/specimen?sslmode=disable")

	cfg := database.Config{Host: "ignored"}
	if err := cfg.Finalize(&database.Env{URL: "TEST_DB_URL"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Dsn() != "postgres://u:p@db:5432/specimen?sslmode=disable" {
		t.Errorf("dsn: got %s", cfg.Dsn())
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"bad port", database.Config{Port: 70000}, "invalid port"},
		{"idle exceeds open", database.Config{MaxOpenConns: 2, MaxIdleConns: 3}, "exceeds max_open_conns"},
		{"bad lifetime", database.Config{ConnMaxLifetime: "bad"}, "invalid conn_max_lifetime"},
		{"bad timeout", database.Config{ConnTimeout: "bad"}, "invalid conn_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "base", Port: 5432, Name: "specimen"}
	base.Merge(&database.Config{Host: "overlay", MaxOpenConns: 10})

	if base.Host != "overlay" || base.Port != 5432 || base.Name != "specimen" || base.MaxOpenConns != 10 {
		t.Errorf("merge: got %+v", base)
	}
}

func TestDsnOmitsEmptyPassword(t *testing.T) {
	cfg := database.Config{Host: "db", User: "specimen"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	want := "host=db port=5432 dbname=specimen user=specimen sslmode=disable"
	if got := cfg.Dsn(); got != want {
		t.Errorf("dsn:\n got %s\nwant %s", got, want)
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	cfg := database.Config{URL: "postgres://specimen@db:notaport/specimen"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	if _, err := database.New(&cfg, discard()); err == nil {
		t.Error("expected error for malformed url")
	}
}

func TestNewDoesNotConnect(t *testing.T) {
	cfg := database.Config{Host: "db.invalid"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys, err := database.New(&cfg, discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Connection().Close()

	if sys.Ready() {
		t.Error("system ready before startup ping")
	}
	if got := sys.Connection().Stats().MaxOpenConnections; got != cfg.MaxOpenConns {
		t.Errorf("max open conns: got %d, want %d", got, cfg.MaxOpenConns)
	}
}

func TestStartTracksReadiness(t *testing.T) {
	cfg := database.Config{Host: "127.0.0.1", Port: 1, ConnTimeout: "200ms"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys, err := database.New(&cfg, discard())
	if err != nil {
		t.Fatal(err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatal(err)
	}
	lc.WaitForStartup()

	if sys.Ready() {
		t.Error("ready after failed ping")
	}
	pending := lc.Pending()
	if len(pending) != 1 || pending[0] != "database" {
		t.Errorf("pending = %v, want [database]", pending)
	}
}
