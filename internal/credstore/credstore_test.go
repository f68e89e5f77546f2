package credstore

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "credentials.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadEmptyStore(t *testing.T) {
	store := openTestStore(t)
	token, profile, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "" || profile != nil {
		t.Fatalf("expected empty store, got token=%q profile=%q", token, profile)
	}
}

func TestPutLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	if err := store.Put("tok-1", []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	token, profile, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("unexpected token %q", token)
	}
	if string(profile) != `{"id":"u1"}` {
		t.Fatalf("unexpected profile %q", profile)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := openTestStore(t)
	if err := store.Put("tok-1", []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put("tok-2", []byte(`{"id":"u2"}`)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	token, profile, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "tok-2" || string(profile) != `{"id":"u2"}` {
		t.Fatalf("expected latest values, got token=%q profile=%q", token, profile)
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	if err := store.Put("tok-1", []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	token, profile, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "" || profile != nil {
		t.Fatalf("expected cleared store, got token=%q profile=%q", token, profile)
	}
	// Clearing twice is fine.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Put("tok-1", []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	token, profile, err := reopened.Load()
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if token != "tok-1" || string(profile) != `{"id":"u1"}` {
		t.Fatalf("credentials did not survive reopen: token=%q profile=%q", token, profile)
	}
}

func TestMemoryStore(t *testing.T) {
	var store Store = NewMemory()
	if err := store.Put("tok", []byte("p")); err != nil {
		t.Fatalf("put: %v", err)
	}
	token, profile, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "tok" || string(profile) != "p" {
		t.Fatalf("unexpected values token=%q profile=%q", token, profile)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	token, profile, _ = store.Load()
	if token != "" || profile != nil {
		t.Fatalf("expected cleared store")
	}
}
