package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Controller errors.
var (
	// ErrNotOwner is returned when a playback command arrives from an
	// item that does not currently own the shared resource. Callers are
	// expected to check observed ownership first, so hitting this is a
	// contract violation worth surfacing, not a recoverable condition.
	ErrNotOwner = errors.New("caller does not own playback")
	// ErrControllerClosed is returned after Close.
	ErrControllerClosed = errors.New("playback controller is closed")
)

// DefaultSnapshotInterval is how often position snapshots are pushed while
// a clip is playing.
const DefaultSnapshotInterval = 200 * time.Millisecond

// Snapshot is one observation of the shared playback resource. Snapshots
// form an ordered stream: one per interval while playing, plus one
// immediately on every play/pause/seek/ownership transition.
type Snapshot struct {
	Owner     string // owning item's key, empty when unowned
	IsPlaying bool
	Position  time.Duration
	Duration  time.Duration
}

// OwnedBy reports whether the snapshot belongs to the given item.
func (s Snapshot) OwnedBy(key string) bool {
	return s.Owner != "" && s.Owner == key
}

// session is the clip currently loaded into the device.
type session struct {
	key      string
	format   Format
	reader   *trackingReader
	player   ClipPlayer
	duration time.Duration
}

func (s *session) position() time.Duration {
	pos := s.format.DurationOf(s.reader.Position())
	if pos > s.duration {
		pos = s.duration
	}
	return pos
}

// Controller serializes all access to the single process-wide audio
// resource. At most one item owns it at a time; granting ownership to a
// new item stops and resets the previous owner's session.
type Controller struct {
	device   Device
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	sess    *session
	playing bool
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool

	done chan struct{}
}

// NewController creates the playback controller and starts its snapshot
// loop. interval <= 0 selects DefaultSnapshotInterval.
func NewController(device Device, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	c := &Controller{
		device:   device,
		interval: interval,
		logger:   log.Default().With("component", "playback"),
		subs:     make(map[int]chan Snapshot),
		done:     make(chan struct{}),
	}
	go c.pollLoop()
	return c
}

// AcquireAndPlay makes key the owner of the playback resource and starts
// playing the clip at path. If key already owns the resource, playback
// resumes from the current position instead of reloading. A previous
// owner's session is stopped and its position discarded; its observers see
// the ownership change in the next snapshot and nothing after that.
func (c *Controller) AcquireAndPlay(key, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}

	if c.sess != nil && c.sess.key == key {
		return c.resumeLocked()
	}

	if c.sess != nil {
		c.logger.Debug("ownership transfer", "from", c.sess.key, "to", key)
		c.stopSessionLocked()
	}

	pcm, format, err := DecodeWAVFile(path)
	if err != nil {
		return fmt.Errorf("unable to load clip: %w", err)
	}

	sess := &session{
		key:      key,
		format:   format,
		reader:   newTrackingReader(pcm),
		duration: format.DurationOf(int64(len(pcm))),
	}
	player, err := c.device.Start(format, sess.reader)
	if err != nil {
		return fmt.Errorf("unable to start playback: %w", err)
	}
	sess.player = player
	player.Play()

	c.sess = sess
	c.playing = true
	c.publishLocked(true)
	return nil
}

// Play resumes the owner's paused clip. Non-owners get ErrNotOwner.
func (c *Controller) Play(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.sess == nil || c.sess.key != key {
		return ErrNotOwner
	}
	return c.resumeLocked()
}

// Pause pauses the owner's playing clip. Non-owners get ErrNotOwner.
func (c *Controller) Pause(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.sess == nil || c.sess.key != key {
		return ErrNotOwner
	}
	if !c.playing {
		return nil
	}

	if c.sess.player != nil {
		c.sess.player.Pause()
	}
	c.playing = false
	c.publishLocked(true)
	return nil
}

// Seek repositions the owner's clip, clamped to [0, duration]. While
// paused it only moves the position, so the next Play resumes there.
func (c *Controller) Seek(key string, target time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.sess == nil || c.sess.key != key {
		return ErrNotOwner
	}

	if target < 0 {
		target = 0
	}
	if target > c.sess.duration {
		target = c.sess.duration
	}
	offset := c.sess.format.OffsetAt(target)

	// The device player buffers ahead, so a live seek swaps the player
	// out rather than yanking the reader underneath it.
	if c.playing && c.sess.player != nil {
		c.sess.player.Pause()
		_ = c.sess.player.Close()
		c.sess.player = nil
	}
	if _, err := c.sess.reader.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("unable to seek clip: %w", err)
	}
	if c.playing {
		player, err := c.device.Start(c.sess.format, c.sess.reader)
		if err != nil {
			c.playing = false
			c.publishLocked(true)
			return fmt.Errorf("unable to restart playback after seek: %w", err)
		}
		c.sess.player = player
		player.Play()
	}

	c.publishLocked(true)
	return nil
}

// Snapshot returns the current state of the playback resource.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer. The current state is delivered first,
// then snapshots from now forward; there is no historical replay. The
// returned cancel func releases the subscription.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 16)
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops playback and releases all subscribers.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	c.stopSessionLocked()
	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
	return nil
}

func (c *Controller) resumeLocked() error {
	if c.playing {
		return nil
	}
	if c.sess.player == nil {
		player, err := c.device.Start(c.sess.format, c.sess.reader)
		if err != nil {
			return fmt.Errorf("unable to resume playback: %w", err)
		}
		c.sess.player = player
	}
	c.sess.player.Play()
	c.playing = true
	c.publishLocked(true)
	return nil
}

func (c *Controller) stopSessionLocked() {
	if c.sess == nil {
		return
	}
	if c.sess.player != nil {
		c.sess.player.Pause()
		_ = c.sess.player.Close()
	}
	c.sess = nil
	c.playing = false
}

func (c *Controller) snapshotLocked() Snapshot {
	if c.sess == nil {
		return Snapshot{}
	}
	return Snapshot{
		Owner:     c.sess.key,
		IsPlaying: c.playing,
		Position:  c.sess.position(),
		Duration:  c.sess.duration,
	}
}

// publishLocked fans the current snapshot out to subscribers. Transition
// snapshots displace the oldest buffered entry when an observer lags;
// interval ticks are simply dropped for that observer.
func (c *Controller) publishLocked(transition bool) {
	snap := c.snapshotLocked()
	for _, sub := range c.subs {
		select {
		case sub <- snap:
		default:
			if !transition {
				continue
			}
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- snap:
			default:
			}
		}
	}
}

// pollLoop pushes periodic snapshots while playing and notices clip
// completion, resetting the finished clip back to its start.
func (c *Controller) pollLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.sess == nil || !c.playing {
				c.mu.Unlock()
				continue
			}
			finished := c.sess.reader.Position() >= c.sess.reader.Size() &&
				(c.sess.player == nil || !c.sess.player.IsPlaying())
			if finished {
				if c.sess.player != nil {
					_ = c.sess.player.Close()
					c.sess.player = nil
				}
				c.playing = false
				_, _ = c.sess.reader.Seek(0, io.SeekStart)
				c.publishLocked(true)
			} else {
				c.publishLocked(false)
			}
			c.mu.Unlock()
		}
	}
}
