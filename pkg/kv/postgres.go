package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type postgres struct {
	db *sql.DB
}

// NewPostgres creates a Store over the kv_entries table created by cmd/migrate.
func NewPostgres(db *sql.DB) Store {
	return &postgres{db: db}
}

func (p *postgres) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	var value string
	err := p.db.
		QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = $1", key).
		Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select key %s: %w", key, err)
	}

	return value, true, nil
}

func (p *postgres) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	q := `
		INSERT INTO kv_entries(key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()`

	if _, err := p.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("upsert key %s: %w", key, err)
	}
	return nil
}

func (p *postgres) Remove(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = $1", key); err != nil {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}
