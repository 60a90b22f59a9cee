// Package cache provides persistent disk storage for downloaded voice
// clips. Entries are keyed by media identifier, written into place with an
// atomic rename so partial downloads are never visible, and tracked by an
// fsnotify watcher that notices external eviction.
package cache
