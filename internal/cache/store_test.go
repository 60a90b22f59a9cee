package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTemp creates a file in the store's temp dir with the given content.
func writeTemp(t *testing.T, s *Store, name, content string) string {
	t.Helper()
	path := filepath.Join(s.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

// TestStorePathForDeterministic tests that PathFor is stable and usable
// before the entry exists.
func TestStorePathForDeterministic(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	a := s.PathFor("abc123")
	b := s.PathFor("abc123")
	if a != b {
		t.Errorf("PathFor not deterministic: %q != %q", a, b)
	}
	if s.Exists("abc123") {
		t.Error("Exists should be false before any store")
	}
	if a == s.PathFor("def456") {
		t.Error("distinct keys must map to distinct paths")
	}
}

// TestStorePut tests the atomic store operation.
func TestStorePut(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	src := writeTemp(t, s, "dl-1", "voice bytes")
	if !s.Put("key1", src) {
		t.Fatal("Put should succeed")
	}

	if !s.Exists("key1") {
		t.Error("Exists should be true after Put")
	}
	data, err := os.ReadFile(s.PathFor("key1"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "voice bytes" {
		t.Errorf("stored content = %q, want %q", data, "voice bytes")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source temp file should be gone after Put")
	}
}

// TestStorePutIdempotent tests that a second Put for the same key is a
// successful no-op that keeps the first file's bytes.
func TestStorePutIdempotent(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	first := writeTemp(t, s, "dl-1", "first")
	if !s.Put("key1", first) {
		t.Fatal("first Put should succeed")
	}

	second := writeTemp(t, s, "dl-2", "second, longer content")
	if !s.Put("key1", second) {
		t.Error("second Put should report success")
	}

	data, err := os.ReadFile(s.PathFor("key1"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("second Put must not overwrite: got %q", data)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Error("losing source file should be cleaned up")
	}
	if !s.Exists("key1") {
		t.Error("Exists should remain true")
	}
}

// TestStorePutMissingSource tests failure reporting when the source file
// is absent. No file may appear at the destination.
func TestStorePutMissingSource(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if s.Put("key1", filepath.Join(s.TempDir(), "nope")) {
		t.Error("Put with missing source should fail")
	}
	if s.Exists("key1") {
		t.Error("failed Put must not create an entry")
	}
	if _, err := os.Stat(s.PathFor("key1")); !os.IsNotExist(err) {
		t.Error("failed Put must leave nothing at the destination path")
	}
}

// TestStoreExternalDelete tests that Exists tracks the disk, not a stale
// index.
func TestStoreExternalDelete(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	src := writeTemp(t, s, "dl-1", "bytes")
	if !s.Put("key1", src) {
		t.Fatal("Put should succeed")
	}
	if err := os.Remove(s.PathFor("key1")); err != nil {
		t.Fatalf("removing cache file: %v", err)
	}
	if s.Exists("key1") {
		t.Error("Exists should be false after external delete")
	}
}

// TestStoreReloadsIndex tests that a new store over an existing directory
// picks up prior entries and sweeps temp leftovers.
func TestStoreReloadsIndex(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	src := writeTemp(t, s1, "dl-1", "persisted")
	if !s1.Put("key1", src) {
		t.Fatal("Put should succeed")
	}
	// Simulate an interrupted download.
	writeTemp(t, s1, "dl-half-done", "partial")

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	if !s2.Exists("key1") {
		t.Error("entry should survive across store instances")
	}
	if st := s2.Stats(); st.Items != 1 {
		t.Errorf("Stats.Items = %d, want 1", st.Items)
	}
	leftovers, err := os.ReadDir(s2.TempDir())
	if err != nil {
		t.Fatalf("reading temp dir: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp leftovers not swept: %d files remain", len(leftovers))
	}
}

// TestStoreRemove tests explicit removal.
func TestStoreRemove(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	src := writeTemp(t, s, "dl-1", "bytes")
	if !s.Put("key1", src) {
		t.Fatal("Put should succeed")
	}
	if err := s.Remove("key1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Exists("key1") {
		t.Error("Exists should be false after Remove")
	}
	// Removing a missing key is not an error.
	if err := s.Remove("key1"); err != nil {
		t.Errorf("Remove of absent key: %v", err)
	}
}

// TestStoreConcurrentPut tests racing Put calls on the same key: the
// second racer must observe success without corrupting the entry.
func TestStoreConcurrentPut(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	const racers = 8
	results := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		src := writeTemp(t, s, "dl-"+string(rune('a'+i)), "same clip bytes")
		go func(p string) {
			results <- s.Put("racedkey", p)
		}(src)
	}

	for i := 0; i < racers; i++ {
		select {
		case ok := <-results:
			if !ok {
				t.Error("racing Put should be treated as success")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for racers")
		}
	}

	data, err := os.ReadFile(s.PathFor("racedkey"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "same clip bytes" {
		t.Errorf("stored content corrupted: %q", data)
	}
}
