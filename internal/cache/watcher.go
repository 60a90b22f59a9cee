package cache

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the store's index in step with external eviction: a cache
// cleaner (or the user) deleting files out from under a running session.
// Presence checks stat the disk either way; the watcher exists so stats
// and logs don't report entries that are already gone.
type Watcher struct {
	fw    *fsnotify.Watcher
	store *Store
	done  chan struct{}
}

// Watch starts watching the store's directory for removals.
func (s *Store) Watch() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create cache watcher: %w", err)
	}
	if err := fw.Add(s.basePath); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("unable to watch cache directory: %w", err)
	}

	w := &Watcher{fw: fw, store: s, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, mediaExt) {
				continue
			}
			key := strings.TrimSuffix(name, mediaExt)
			w.store.evict(key)
			log.Debug("cache entry evicted externally", "key", key)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn("cache watcher error", "err", err)
		}
	}
}
