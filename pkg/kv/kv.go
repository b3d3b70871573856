// Package kv provides the string key-value storage primitive the collection
// store persists through, with memory, file, PostgreSQL, Azure Blob Storage,
// and Redis backends.
package kv

import (
	"context"
	"strings"
)

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value stored under key. The boolean is false when the
	// key holds no value; that is not an error.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set replaces the value stored under key. Readers observe either the
	// previous value or the new one, never a partial write.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}
