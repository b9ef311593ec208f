package core

import (
	"context"
	"path/filepath"
	"testing"

	"makerdesk/internal/infra/persistence/memory"
	"makerdesk/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("MAKERDESK_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenPersistentStoreDefaultSQLite(t *testing.T) {
	t.Setenv("MAKERDESK_STORAGE_DRIVER", "")
	t.Setenv("MAKERDESK_SQLITE_PATH", filepath.Join(t.TempDir(), "makerdesk.db"))
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	defer func() { _ = sq.Close() }()
	if _, err := sq.RunInTransaction(context.Background(), func(tx Transaction) error { return nil }); err != nil {
		t.Fatalf("empty transaction: %v", err)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("MAKERDESK_STORAGE_DRIVER", "tape")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestNewSQLiteStoreWrapper(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "wrapped.db"), NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() == "" {
		t.Fatalf("expected configured path")
	}
}
