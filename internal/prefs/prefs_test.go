package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	if _, ok := m.Get(KeyPreferredRole); ok {
		t.Error("expected absent key")
	}
	if err := m.Put(KeyPreferredRole, "Organizer"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, ok := m.Get(KeyPreferredRole); !ok || v != "Organizer" {
		t.Errorf("expected Organizer, got %q (ok=%v)", v, ok)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := f.Get(KeyPreferredRole); ok {
		t.Error("expected empty store for missing file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("open must not create the file before the first put")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.Put(KeyPreferredRole, "Client"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := f.Put("theme", "dark"); err != nil {
		t.Fatalf("put: %v", err)
	}

	reloaded, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := reloaded.Get(KeyPreferredRole); !ok || v != "Client" {
		t.Errorf("expected persisted role, got %q (ok=%v)", v, ok)
	}
	if v, _ := reloaded.Get("theme"); v != "dark" {
		t.Errorf("expected persisted theme, got %q", v)
	}
}

func TestFileStoreRejectsCorruptContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Error("expected error for corrupt prefs file")
	}
}
