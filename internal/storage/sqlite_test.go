package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestBlobStores(t *testing.T) {
	sqliteStore, err := NewSQLiteBlobStore(filepath.Join(t.TempDir(), "nested", "client.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })

	stores := map[string]BlobStore{
		"memory": NewMemoryBlobStore(),
		"sqlite": sqliteStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, KeyExpenses); !errors.Is(err, ErrBlobNotFound) {
				t.Fatalf("expected ErrBlobNotFound, got %v", err)
			}

			if err := s.Set(ctx, KeyExpenses, []byte(`[1]`)); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := s.Set(ctx, KeyExpenses, []byte(`[1,2]`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := s.Get(ctx, KeyExpenses)
			if err != nil || string(got) != `[1,2]` {
				t.Fatalf("get = %q, %v", got, err)
			}

			if err := s.Delete(ctx, KeyExpenses); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := s.Get(ctx, KeyExpenses); !errors.Is(err, ErrBlobNotFound) {
				t.Fatalf("expected ErrBlobNotFound after delete, got %v", err)
			}
			// Deleting a missing key is not an error.
			if err := s.Delete(ctx, KeyUserInfo); err != nil {
				t.Fatalf("delete missing: %v", err)
			}
		})
	}
}

func TestSQLiteBlobStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")
	ctx := context.Background()

	s, err := NewSQLiteBlobStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, KeyAuthToken, []byte(`"tok"`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewSQLiteBlobStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, KeyAuthToken)
	if err != nil || string(got) != `"tok"` {
		t.Fatalf("after reopen got %q, %v", got, err)
	}
}
