// Package infrastructure provides core service initialization for application startup.
// It assembles the shared systems (logging, key-value storage, reference catalog,
// classifier and preprocessing) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/JaimeStill/specimen/internal/catalog"
	"github.com/JaimeStill/specimen/internal/config"
	"github.com/JaimeStill/specimen/pkg/classifier"
	"github.com/JaimeStill/specimen/pkg/database"
	"github.com/JaimeStill/specimen/pkg/kv"
	"github.com/JaimeStill/specimen/pkg/lifecycle"
	"github.com/JaimeStill/specimen/pkg/preprocess"
	"github.com/JaimeStill/specimen/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Database and Storage are nil unless the key-value backend needs them.
type Infrastructure struct {
	Lifecycle    *lifecycle.Coordinator
	Logger       *slog.Logger
	Store        kv.Store
	Database     database.System
	Storage      storage.System
	Catalog      *catalog.Catalog
	Classifier   *classifier.Classifier
	Preprocessor *preprocess.Preprocessor

	redis *kv.RedisStore
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	return NewWithLogger(cfg, logger)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
	}

	if err := infra.initStore(cfg); err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog init failed: %w", err)
	}
	infra.Catalog = cat

	loader, err := classifier.NewLoader(&cfg.Model, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("classifier init failed: %w", err)
	}
	infra.Classifier = classifier.New(
		loader,
		cfg.Model.LoadTimeoutDuration(),
		cfg.Model.InferenceTimeoutDuration(),
		logger,
	)

	infra.Preprocessor = preprocess.New(&preprocess.Source{
		Client:      &http.Client{},
		Root:        cfg.Image.Root,
		AllowRemote: cfg.Image.AllowRemote,
		MaxBytes:    cfg.Image.MaxSizeBytes(),
		MaxPixels:   cfg.Image.MaxPixels,
		Timeout:     cfg.Image.FetchTimeoutDuration(),
	}, logger)

	return infra, nil
}

func (i *Infrastructure) initStore(cfg *config.Config) error {
	switch cfg.KV.Backend {
	case kv.BackendMemory:
		i.Store = kv.NewMemory()
	case kv.BackendFile:
		store, err := kv.NewFile(cfg.KV.Dir)
		if err != nil {
			return fmt.Errorf("kv init failed: %w", err)
		}
		i.Store = store
	case kv.BackendPostgres:
		db, err := database.New(&cfg.Database, i.Logger)
		if err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
		i.Database = db
		i.Store = kv.NewPostgres(db.Connection())
	case kv.BackendBlob:
		blobs, err := storage.New(&cfg.Storage, i.Logger)
		if err != nil {
			return fmt.Errorf("storage init failed: %w", err)
		}
		i.Storage = blobs
		i.Store = kv.NewBlob(blobs, cfg.KV.Prefix)
	case kv.BackendRedis:
		i.redis = kv.NewRedis(&cfg.KV, i.Logger)
		i.Store = i.redis
	default:
		return fmt.Errorf("kv init failed: %w: %s", kv.ErrUnknownBackend, cfg.KV.Backend)
	}
	return nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// The model load runs as a startup hook so the HTTP server can accept
// traffic and report readiness while it is in flight.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("redis start failed: %w", err)
		}
	}

	i.Lifecycle.Track("model", i.Classifier)
	i.Lifecycle.OnStartup(func() {
		// failures are recorded in the classifier state and logged there
		_ = i.Classifier.Initialize(i.Lifecycle.Context())
	})

	return nil
}
