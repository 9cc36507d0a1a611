//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "htmnet.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "htmnet.db")

	first, err := NewStore(KindSQLite, dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, first)
	if err := CloseIfSupported(first); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})
	summaries, err := second.ListAssemblySummaries(ctx)
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "first" {
		t.Fatalf("unexpected summaries after reopen: %+v", summaries)
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected missing path error")
	}
}
