// Package voice implements the playback/caching pipeline for voice
// messages: fetch a clip at most once, move it into the local cache
// atomically, and drive the single shared audio player, exposing a derived
// view state the presentation layer can render directly.
package voice

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voicebox/internal/audio"
)

// Fetcher downloads the raw bytes for a media reference into a temporary
// local file and returns its path. Implementations must never return a
// partial file: either the temp file is complete or an error comes back
// and the temp file is gone.
type Fetcher interface {
	Fetch(ctx context.Context, ref MediaRef) (string, error)
}

// Cache is the slice of the clip cache the coordinator needs.
type Cache interface {
	Exists(key string) bool
	PathFor(key string) string
	Put(key, sourceFile string) bool
}

// Controls is the slice of the shared playback controller the coordinator
// needs.
type Controls interface {
	AcquireAndPlay(key, path string) error
	Play(key string) error
	Pause(key string) error
	Seek(key string, target time.Duration) error
	Snapshot() audio.Snapshot
	Subscribe() (<-chan audio.Snapshot, func())
}

// Coordinator drives one displayed voice message. It composes the cache,
// the fetcher and the shared playback controller into a single state
// machine: Idle → Loading → Ready on the download path, Failed held until
// an explicit retry, with cache hits skipping the download entirely.
type Coordinator struct {
	ref      MediaRef
	cache    Cache
	fetcher  Fetcher
	controls Controls
	logger   *log.Logger

	mu       sync.Mutex
	duration time.Duration
	fetch    FetchState
	fetchErr error
	snap     audio.Snapshot
	closed   bool

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	updates     chan ViewState
}

// NewCoordinator creates the coordinator for one message. duration may be
// zero when the manifest doesn't know it; it is filled in from the clip
// itself once the clip is available.
func NewCoordinator(ref MediaRef, duration time.Duration, cache Cache, fetcher Fetcher, controls Controls) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		ref:      ref,
		duration: duration,
		cache:    cache,
		fetcher:  fetcher,
		controls: controls,
		logger:   log.Default().With("component", "coordinator", "clip", ref.DisplayName),
		ctx:      ctx,
		cancel:   cancel,
		updates:  make(chan ViewState, 1),
	}

	snaps, unsubscribe := controls.Subscribe()
	c.unsubscribe = unsubscribe
	go c.observe(snaps)

	return c
}

// PlayPause handles the item's play button. Owner: toggle play/pause.
// Cached: acquire the player directly, no Loading state. Otherwise start
// a download; while one is in flight further presses are absorbed, and a
// failed download arms the button for retry.
func (c *Coordinator) PlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoordinatorClosed
	}
	if !c.ref.HasIdentity() {
		return ErrNoIdentity
	}

	key := c.ref.Key()
	snap := c.controls.Snapshot()
	switch {
	case snap.OwnedBy(key):
		if snap.IsPlaying {
			return c.controls.Pause(key)
		}
		return c.controls.Play(key)

	case c.cache.Exists(key):
		if err := c.controls.AcquireAndPlay(key, c.cache.PathFor(key)); err != nil {
			c.logger.Error("unable to play cached clip", "err", err)
			return pipelineErr(err, "playback", "acquire")
		}
		// A press that succeeds settles any earlier failure; the clip is
		// cached and playable from here on.
		if c.fetch == FetchFailed {
			c.fetch = FetchReady
			c.fetchErr = nil
			c.publishLocked()
		}
		return nil

	case c.fetch == FetchLoading:
		// A download is already in flight for this item.
		return nil

	default:
		// Loading is set before the fetch task is dispatched so a fast
		// failure can never be observed ahead of the Loading state.
		c.fetch = FetchLoading
		c.fetchErr = nil
		c.publishLocked()
		go c.runFetch(c.ctx, key)
		return nil
	}
}

// Seek repositions playback to the given fraction of the clip. It is
// inert unless this item currently owns the player: in particular it
// never triggers a download.
func (c *Coordinator) Seek(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoordinatorClosed
	}
	if !c.ref.HasIdentity() {
		return ErrNoIdentity
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	key := c.ref.Key()
	if !c.controls.Snapshot().OwnedBy(key) {
		return nil
	}
	return c.controls.Seek(key, time.Duration(fraction*float64(c.duration)))
}

// View returns the current derived presentation state.
func (c *Coordinator) View() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return deriveView(c.ref, c.fetch, c.controls.Snapshot(), c.duration)
}

// Updates returns a conflated stream of view states: the channel always
// holds the newest state, older unread ones are discarded.
func (c *Coordinator) Updates() <-chan ViewState {
	return c.updates
}

// State returns the current fetch state.
func (c *Coordinator) State() FetchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetch
}

// Err returns the failure behind a Failed state, nil otherwise.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchErr
}

// Ref returns the coordinator's media reference.
func (c *Coordinator) Ref() MediaRef {
	return c.ref
}

// Duration returns the clip duration as currently known.
func (c *Coordinator) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Close tears the item down: the in-flight fetch (if any) is cancelled,
// the snapshot subscription is released and the updates channel is closed
// so watchers unblock. Ownership of the shared player is left untouched;
// another item takes it over naturally.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	// Publishers hold the mutex and check closed first, so closing the
	// channel here cannot race a send.
	c.closed = true
	close(c.updates)
	c.mu.Unlock()

	c.cancel()
	c.unsubscribe()
	return nil
}

// observe consumes playback snapshots until the subscription is released.
func (c *Coordinator) observe(snaps <-chan audio.Snapshot) {
	key := c.ref.Key()
	for snap := range snaps {
		c.mu.Lock()
		c.snap = snap
		if c.duration <= 0 && snap.OwnedBy(key) && snap.Duration > 0 {
			c.duration = snap.Duration
		}
		c.publishLocked()
		c.mu.Unlock()
	}
}

// runFetch is the download-store-acquire pipeline, one per press that
// found a cache miss. It owns the Loading state set by its dispatcher.
func (c *Coordinator) runFetch(ctx context.Context, key string) {
	tmp, err := c.fetcher.Fetch(ctx, c.ref)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		// Torn down mid-flight. Discard whatever arrived and settle the
		// state so nothing stays stuck in Loading.
		if tmp != "" {
			_ = os.Remove(tmp)
		}
		if c.fetch == FetchLoading {
			c.fetch = FetchIdle
		}
		return
	}

	if err != nil {
		c.failLocked(pipelineErr(fmt.Errorf("%w: %w", ErrFetchFailed, err), "fetcher", "download"))
		return
	}

	if !c.cache.Put(key, tmp) {
		c.failLocked(pipelineErr(ErrStoreFailed, "cache", "store"))
		return
	}

	if err := c.controls.AcquireAndPlay(key, c.cache.PathFor(key)); err != nil {
		// The clip is cached; a retry goes straight to the cache-hit
		// path without another download.
		c.failLocked(pipelineErr(err, "playback", "acquire"))
		return
	}

	c.fetch = FetchReady
	c.publishLocked()
}

func (c *Coordinator) failLocked(err *PipelineError) {
	c.fetch = FetchFailed
	c.fetchErr = err
	c.logger.Warn("fetch pipeline failed", "stage", err.Component, "action", err.Action, "err", err.Err)
	c.publishLocked()
}

// publishLocked pushes the freshly derived view into the conflated
// updates channel. No-op once closed; the channel is gone.
func (c *Coordinator) publishLocked() {
	if c.closed {
		return
	}
	view := deriveView(c.ref, c.fetch, c.snap, c.duration)
	select {
	case c.updates <- view:
	default:
		select {
		case <-c.updates:
		default:
		}
		select {
		case c.updates <- view:
		default:
		}
	}
}
