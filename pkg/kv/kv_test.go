package kv_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/specimen/pkg/kv"
)

func stores(t *testing.T) map[string]kv.Store {
	t.Helper()

	file, err := kv.NewFile(filepath.Join(t.TempDir(), "kv"))
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	return map[string]kv.Store{
		"memory": kv.NewMemory(),
		"file":   file,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "specimen_collection"); err != nil || ok {
				t.Fatalf("Get on empty store = %v, %v", ok, err)
			}

			if err := s.Set(ctx, "specimen_collection", `[{"id":"1"}]`); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := s.Set(ctx, "specimen_collection", `[]`); err != nil {
				t.Fatalf("Set overwrite failed: %v", err)
			}

			v, ok, err := s.Get(ctx, "specimen_collection")
			if err != nil || !ok {
				t.Fatalf("Get = %v, %v", ok, err)
			}
			if v != "[]" {
				t.Errorf("value = %q, want []", v)
			}

			if err := s.Remove(ctx, "specimen_collection"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if err := s.Remove(ctx, "specimen_collection"); err != nil {
				t.Errorf("Remove absent key: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "specimen_collection"); ok {
				t.Error("key still present after Remove")
			}
		})
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		key  string
		want error
	}{
		{"", kv.ErrEmptyKey},
		{"../escape", kv.ErrInvalidKey},
		{"a/b", kv.ErrInvalidKey},
		{`a\b`, kv.ErrInvalidKey},
	}

	for name, s := range stores(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.key, func(t *testing.T) {
				if err := s.Set(ctx, tt.key, "v"); !errors.Is(err, tt.want) {
					t.Errorf("Set err = %v, want %v", err, tt.want)
				}
				if _, _, err := s.Get(ctx, tt.key); !errors.Is(err, tt.want) {
					t.Errorf("Get err = %v, want %v", err, tt.want)
				}
			})
		}
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := kv.NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	for range 3 {
		if err := s.Set(context.Background(), "collection", "data"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "collection.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v", names)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, _ := kv.NewFile(dir)
	if err := first.Set(ctx, "collection", "kept"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	second, _ := kv.NewFile(dir)
	v, ok, err := second.Get(ctx, "collection")
	if err != nil || !ok || v != "kept" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
}
