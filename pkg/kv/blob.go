package kv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JaimeStill/specimen/pkg/storage"
)

const blobContentType = "application/json"

type blob struct {
	storage storage.System
	prefix  string
}

// NewBlob creates a Store that writes each key as a single blob under prefix.
// Blob uploads replace the whole object, so readers never see a partial value.
func NewBlob(store storage.System, prefix string) Store {
	return &blob{
		storage: store,
		prefix:  strings.Trim(prefix, "/"),
	}
}

func (b *blob) blobKey(key string) string {
	if b.prefix == "" {
		return key + ".json"
	}
	return b.prefix + "/" + key + ".json"
}

func (b *blob) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	body, err := b.storage.Download(ctx, b.blobKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", false, fmt.Errorf("read blob %s: %w", key, err)
	}

	return string(data), true, nil
}

func (b *blob) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return b.storage.Upload(ctx, b.blobKey(key), strings.NewReader(value), blobContentType)
}

func (b *blob) Remove(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := b.storage.Delete(ctx, b.blobKey(key)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
