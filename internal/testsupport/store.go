package testsupport

import (
	"context"
	"testing"

	"satchel/internal/config"
	"satchel/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEntry persists a pending entry with the given fields for tests.
func NewEntry(t testing.TB, store *queue.Store, fields map[string]string, blobRefs ...string) *queue.Entry {
	t.Helper()

	entry := queue.NewEntry(fields, blobRefs)
	if err := store.SaveEntry(context.Background(), entry); err != nil {
		t.Fatalf("store.SaveEntry: %v", err)
	}
	return entry
}

// NewBlob persists an attachment blob for tests and returns its id.
func NewBlob(t testing.TB, store *queue.Store, data []byte, meta queue.BlobMeta) string {
	t.Helper()

	id, err := store.SaveBlob(context.Background(), data, meta)
	if err != nil {
		t.Fatalf("store.SaveBlob: %v", err)
	}
	return id
}
