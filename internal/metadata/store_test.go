package metadata

import (
	"os"
	"testing"
	"time"
)

// testStore creates a temporary store for testing
func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	store := testStore(t)

	if _, err := os.Stat(store.dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", store.dbPath)
	}
}

func TestSetGet(t *testing.T) {
	store := testStore(t)

	if err := store.Set("/tmp/a.txt", KeyPosition, "42"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("/tmp/a.txt", KeyEncoding, "ISO-8859-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get("/tmp/a.txt", KeyPosition)
	if err != nil || got != "42" {
		t.Errorf("Get(position) = %q, %v; want 42", got, err)
	}

	got, err = store.Get("/tmp/other.txt", KeyPosition)
	if err != nil || got != "" {
		t.Errorf("Get on unknown document = %q, %v; want empty", got, err)
	}

	all, err := store.All("/tmp/a.txt")
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 || all[KeyEncoding] != "ISO-8859-1" {
		t.Errorf("All = %v", all)
	}
}

func TestSetEmptyDeletes(t *testing.T) {
	store := testStore(t)

	store.Set("/tmp/a.txt", KeyPosition, "10")
	store.Set("/tmp/a.txt", KeyPosition, "")

	got, _ := store.Get("/tmp/a.txt", KeyPosition)
	if got != "" {
		t.Errorf("expected key to be deleted, got %q", got)
	}
}

func TestPrune(t *testing.T) {
	store := testStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	store.Set("/old.txt", KeyPosition, "1")

	store.now = func() time.Time { return base.Add(100 * 24 * time.Hour) }
	store.Set("/new.txt", KeyPosition, "2")

	n, err := store.Prune(30)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d documents, want 1", n)
	}
	if got, _ := store.Get("/old.txt", KeyPosition); got != "" {
		t.Errorf("old metadata should be pruned, got %q", got)
	}
	if got, _ := store.Get("/new.txt", KeyPosition); got != "2" {
		t.Errorf("new metadata lost, got %q", got)
	}
}
