package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// mediaExt is the extension for completed cache files.
	mediaExt = ".audio"

	// tempDirName holds in-flight downloads. It lives under the cache
	// root so a rename into the cache never crosses filesystems.
	tempDirName = "tmp"
)

// Store is a disk-backed cache for fetched voice clips. A key maps to a
// deterministic path, and a file only ever appears at that path through an
// atomic rename, so a present file is always byte-for-byte complete.
type Store struct {
	basePath string
	tempPath string

	mu    sync.Mutex
	index map[string]entry

	logger *log.Logger
}

type entry struct {
	Size     int64
	StoredAt time.Time
}

// Stats describes the store's current contents.
type Stats struct {
	Items     int
	TotalSize int64
}

// NewStore opens (or creates) a cache store rooted at basePath.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}
	tempPath := filepath.Join(basePath, tempDirName)
	if err := os.MkdirAll(tempPath, 0o700); err != nil {
		return nil, fmt.Errorf("unable to create cache temp directory: %w", err)
	}

	s := &Store{
		basePath: basePath,
		tempPath: tempPath,
		index:    make(map[string]entry),
		logger:   log.Default().With("component", "cache"),
	}
	s.loadIndex()
	return s, nil
}

// PathFor returns the deterministic path for a key, whether or not the
// entry currently exists. Callers may pre-compute the target path before a
// download completes.
func (s *Store) PathFor(key string) string {
	return filepath.Join(s.basePath, key+mediaExt)
}

// TempDir returns the directory downloads should be written to. Files in
// it share a filesystem with the cache, keeping Put a pure rename.
func (s *Store) TempDir() string {
	return s.tempPath
}

// Exists reports whether a complete file is present for key. Partial
// downloads never appear at the final path, so a stat is sufficient.
func (s *Store) Exists(key string) bool {
	fi, err := os.Stat(s.PathFor(key))
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}

	s.mu.Lock()
	s.index[key] = entry{Size: fi.Size(), StoredAt: fi.ModTime()}
	s.mu.Unlock()
	return true
}

// Put atomically makes sourceFile's bytes the cached content for key and
// reports success. On failure no partial or corrupt file is left at the
// destination and the source temp file is removed. A Put after a prior
// success for the same key is a successful no-op: the source file is
// discarded and the existing entry kept.
func (s *Store) Put(key, sourceFile string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	dest := s.PathFor(key)

	if fi, err := os.Stat(dest); err == nil && fi.Mode().IsRegular() {
		// Lost the race (or a retry after success): keep the winner.
		if sourceFile != dest {
			_ = os.Remove(sourceFile)
		}
		s.index[key] = entry{Size: fi.Size(), StoredAt: fi.ModTime()}
		return true
	}

	fi, err := os.Stat(sourceFile)
	if err != nil {
		s.logger.Error("store failed, source missing", "key", key, "err", err)
		return false
	}

	if err := os.Rename(sourceFile, dest); err != nil {
		s.logger.Error("store failed", "key", key, "err", err)
		_ = os.Remove(sourceFile)
		return false
	}

	s.index[key] = entry{Size: fi.Size(), StoredAt: time.Now()}
	s.logger.Debug("stored clip", "key", key, "size", fi.Size())
	return true
}

// Remove deletes the cached file for key, if any.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.index, key)
	if err := os.Remove(s.PathFor(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove cache entry: %w", err)
	}
	return nil
}

// Stats returns item count and total size for the indexed entries.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Items: len(s.index)}
	for _, e := range s.index {
		st.TotalSize += e.Size
	}
	return st
}

// evict drops a key from the index. Used by the watcher when a file
// disappears underneath us.
func (s *Store) evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index, key)
}

// loadIndex scans the cache directory for entries from previous sessions.
// Leftover temp artifacts from interrupted downloads are swept away.
func (s *Store) loadIndex() {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		s.logger.Warn("unable to scan cache directory", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), mediaExt) {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(de.Name(), mediaExt)
		s.index[key] = entry{Size: fi.Size(), StoredAt: fi.ModTime()}
	}

	stale, err := os.ReadDir(s.tempPath)
	if err != nil {
		return
	}
	for _, de := range stale {
		_ = os.Remove(filepath.Join(s.tempPath, de.Name()))
	}
}
