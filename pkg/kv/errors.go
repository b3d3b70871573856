package kv

import "errors"

var (
	// ErrEmptyKey indicates an empty key was provided.
	ErrEmptyKey = errors.New("kv key must not be empty")
	// ErrInvalidKey indicates the key contains a path separator or traversal segment.
	ErrInvalidKey = errors.New("kv key contains invalid path segment")
	// ErrUnknownBackend indicates the configured backend name is not supported.
	ErrUnknownBackend = errors.New("unknown kv backend")
)
