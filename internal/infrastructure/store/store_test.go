package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// openTestStore creates a SQLite store in a temp directory.
func openTestStore(t *testing.T) *SQLite {
	t.Helper()

	s, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "settings.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		s.Close() //nolint:errcheck // Test cleanup
	})
	return s
}

func TestOpen(t *testing.T) {
	t.Run("creates store file", func(t *testing.T) {
		s := openTestStore(t)
		if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
			t.Error("store file was not created")
		}
	})

	t.Run("creates directory if not exists", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "settings.db")
		s, err := Open(Config{Path: dbPath, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer s.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("nested directory was not created")
		}
	})
}

func TestSQLite_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyHubURL, "ws://hub.local:8123/api/websocket"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := s.Get(ctx, KeyHubURL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "ws://hub.local:8123/api/websocket" {
		t.Errorf("Get() = %q, want stored URL", got)
	}
}

func TestSQLite_SetOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyOverlayEnabled, "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, KeyOverlayEnabled, "true"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := s.Get(ctx, KeyOverlayEnabled)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "true" {
		t.Errorf("Get() = %q, want true", got)
	}
}

func TestSQLite_MissingKey(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "never.set")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestSQLite_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyHubToken, "secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Delete(ctx, KeyHubToken); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, KeyHubToken); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}

	// Deleting an unset key is not an error.
	if err := s.Delete(ctx, KeyHubToken); err != nil {
		t.Errorf("Delete() on unset key error = %v", err)
	}
}

func TestMemory_Store(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := m.Get(ctx, "a")
	if err != nil || got != "1" {
		t.Fatalf("Get() = %q, %v, want 1, nil", got, err)
	}

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(ctx, "a"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestGetBool(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	got, err := GetBool(ctx, m, KeyOverlayEnabled, true)
	if err != nil {
		t.Fatalf("GetBool() error = %v", err)
	}
	if !got {
		t.Error("GetBool() on unset key = false, want fallback true")
	}

	if err := m.Set(ctx, KeyOverlayEnabled, "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err = GetBool(ctx, m, KeyOverlayEnabled, true)
	if err != nil {
		t.Fatalf("GetBool() error = %v", err)
	}
	if got {
		t.Error("GetBool() = true, want stored false")
	}
}
