// Package database owns the PostgreSQL pool behind the postgres key-value
// backend. The pool is opened eagerly and verified by a startup ping that
// gates lifecycle readiness.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/specimen/pkg/lifecycle"
)

const pingInterval = 250 * time.Millisecond

// System is a PostgreSQL pool with startup readiness.
type System interface {
	Connection() *sql.DB
	Start(lc *lifecycle.Coordinator) error
	Ready() bool
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	ready       atomic.Bool
}

// New parses the connection settings and sizes the pool. A malformed DSN
// fails here; an unreachable server only surfaces once Start pings it.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	connCfg, err := pgx.ParseConfig(cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database", "host", connCfg.Host, "db", connCfg.Database),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB { return d.conn }

func (d *database) Ready() bool { return d.ready.Load() }

// Start tracks the pool as "database", pings it until conn_timeout
// elapses during startup, and closes it on shutdown.
func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.Track("database", d)

	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.ping(ctx); err != nil {
			d.logger.Error("database unreachable", "error", err, "timeout", d.connTimeout)
			return
		}
		d.ready.Store(true)
		d.logger.Info("database ready")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.ready.Store(false)

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database closed")
	})

	return nil
}

// ping retries until the server answers or ctx ends, returning the last
// ping error.
func (d *database) ping(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		err := d.conn.PingContext(ctx)
		if err == nil {
			return nil
		}
		d.logger.Debug("database ping failed", "error", err)

		select {
		case <-ctx.Done():
			return err
		case <-ticker.C:
		}
	}
}
