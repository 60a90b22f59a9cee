package audio

import (
	"errors"
	"testing"
	"time"
)

const testInterval = 10 * time.Millisecond

// newTestController returns a controller over a fast mock device plus the
// device itself for inspection.
func newTestController(t *testing.T, speed float64) (*Controller, *MockDevice) {
	t.Helper()
	device := NewMockDevice()
	device.Speed = speed
	c := NewController(device, testInterval)
	t.Cleanup(func() { _ = c.Close() })
	return c, device
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestAcquireAndPlayStartsPlayback tests the basic acquire path.
func TestAcquireAndPlayStartsPlayback(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), 2*time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("AcquireAndPlay: %v", err)
	}

	snap := c.Snapshot()
	if !snap.OwnedBy("itemA") {
		t.Errorf("owner = %q, want itemA", snap.Owner)
	}
	if !snap.IsPlaying {
		t.Error("should be playing after acquire")
	}
	if snap.Duration != 2*time.Second {
		t.Errorf("duration = %v, want 2s", snap.Duration)
	}

	waitFor(t, time.Second, func() bool {
		return c.Snapshot().Position > 0
	}, "position never advanced")
}

// TestOwnershipTransfer tests that acquiring for B disowns A: A observes
// a snapshot it no longer owns and receives no A-owned snapshots after it.
func TestOwnershipTransfer(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	dir := t.TempDir()
	clip := writeClip(t, dir, 2*time.Second, testFormat)

	snaps, cancel := c.Subscribe()
	defer cancel()

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire A: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.Snapshot().Position > 0
	}, "A never started advancing")

	if err := c.AcquireAndPlay("itemB", clip); err != nil {
		t.Fatalf("acquire B: %v", err)
	}

	snap := c.Snapshot()
	if !snap.OwnedBy("itemB") {
		t.Fatalf("owner = %q, want itemB", snap.Owner)
	}
	if snap.OwnedBy("itemA") {
		t.Error("A still observed as owner after transfer")
	}

	// Drain the stream: once a B-owned snapshot appears, nothing after
	// it may belong to A.
	seenB := false
	deadline := time.After(500 * time.Millisecond)
drain:
	for {
		select {
		case s, ok := <-snaps:
			if !ok {
				break drain
			}
			if s.OwnedBy("itemB") {
				seenB = true
			} else if seenB && s.OwnedBy("itemA") {
				t.Fatal("received an A-owned snapshot after B took ownership")
			}
		case <-deadline:
			break drain
		}
	}
	if !seenB {
		t.Error("never observed the ownership transition snapshot")
	}
}

// TestReacquireResumes tests that the owner calling AcquireAndPlay again
// resumes rather than reloading from zero.
func TestReacquireResumes(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), 5*time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.Snapshot().Position >= 20*time.Millisecond
	}, "position never advanced")

	if err := c.Pause("itemA"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	paused := c.Snapshot().Position

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	snap := c.Snapshot()
	if !snap.IsPlaying {
		t.Error("reacquire should resume playback")
	}
	if snap.Position < paused {
		t.Errorf("position went backwards: %v < %v", snap.Position, paused)
	}
}

// TestNonOwnerCommandsRejected tests the ownership guard on play, pause
// and seek.
func TestNonOwnerCommandsRejected(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := c.Pause("intruder"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Pause by non-owner = %v, want ErrNotOwner", err)
	}
	if err := c.Play("intruder"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Play by non-owner = %v, want ErrNotOwner", err)
	}
	if err := c.Seek("intruder", 0); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Seek by non-owner = %v, want ErrNotOwner", err)
	}
	if !c.Snapshot().IsPlaying {
		t.Error("rejected commands must not disturb the owner")
	}
}

// TestPauseHoldsPosition tests that pausing freezes the position and play
// continues from it.
func TestPauseHoldsPosition(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), 5*time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.Snapshot().Position >= 20*time.Millisecond
	}, "position never advanced")

	if err := c.Pause("itemA"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	p1 := c.Snapshot().Position
	time.Sleep(50 * time.Millisecond)
	p2 := c.Snapshot().Position
	if p1 != p2 {
		t.Errorf("position moved while paused: %v -> %v", p1, p2)
	}

	if err := c.Play("itemA"); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.Snapshot().Position > p2
	}, "position did not advance after resume")
}

// TestSeekWhilePlaying tests the seek-to-half scenario: an 8s clip seeked
// to 4s reports 4s and keeps advancing from there.
func TestSeekWhilePlaying(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), 8*time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := c.Seek("itemA", 4*time.Second); err != nil {
		t.Fatalf("seek: %v", err)
	}

	snap := c.Snapshot()
	if snap.Position != 4*time.Second {
		t.Errorf("position = %v, want 4s", snap.Position)
	}
	if !snap.IsPlaying {
		t.Error("seek must not stop playback")
	}

	waitFor(t, time.Second, func() bool {
		return c.Snapshot().Position > 4*time.Second
	}, "position did not advance past the seek target")
}

// TestSeekWhilePausedSticks tests that a paused seek only moves the resume
// point.
func TestSeekWhilePausedSticks(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), 8*time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := c.Pause("itemA"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := c.Seek("itemA", 6*time.Second); err != nil {
		t.Fatalf("seek: %v", err)
	}

	snap := c.Snapshot()
	if snap.IsPlaying {
		t.Error("seek while paused must not start playback")
	}
	if snap.Position != 6*time.Second {
		t.Errorf("position = %v, want 6s", snap.Position)
	}

	if err := c.Play("itemA"); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return c.Snapshot().Position > 6*time.Second
	}, "resume did not continue from the seek point")
}

// TestSeekClamps tests clamping to [0, duration].
func TestSeekClamps(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := c.Pause("itemA"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if err := c.Seek("itemA", -time.Second); err != nil {
		t.Fatalf("seek below zero: %v", err)
	}
	if pos := c.Snapshot().Position; pos != 0 {
		t.Errorf("position = %v, want 0", pos)
	}

	if err := c.Seek("itemA", time.Minute); err != nil {
		t.Fatalf("seek past end: %v", err)
	}
	if pos := c.Snapshot().Position; pos != time.Second {
		t.Errorf("position = %v, want 1s", pos)
	}
}

// TestCompletionResets tests that a clip running to its end stops playing
// and rewinds to zero.
func TestCompletionResets(t *testing.T) {
	c, _ := newTestController(t, 50.0)
	clip := writeClip(t, t.TempDir(), time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		snap := c.Snapshot()
		return !snap.IsPlaying && snap.Position == 0
	}, "clip never completed and reset")

	if !c.Snapshot().OwnedBy("itemA") {
		t.Error("completion must not change ownership")
	}
}

// TestSubscribeDeliversCurrentStateFirst tests that a fresh observer sees
// the present state, not a replay, and that cancel stops delivery.
func TestSubscribeDeliversCurrentStateFirst(t *testing.T) {
	c, _ := newTestController(t, 1.0)
	clip := writeClip(t, t.TempDir(), 2*time.Second, testFormat)

	if err := c.AcquireAndPlay("itemA", clip); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	snaps, cancel := c.Subscribe()
	select {
	case s := <-snaps:
		if !s.OwnedBy("itemA") {
			t.Errorf("first snapshot owner = %q, want itemA", s.Owner)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot delivered")
	}

	cancel()
	// A closed subscription drains then closes; nothing should block.
	for range snaps { //nolint:revive
	}
}

// TestControllerClosed tests the closed-state error.
func TestControllerClosed(t *testing.T) {
	device := NewMockDevice()
	c := NewController(device, testInterval)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	clip := writeClip(t, t.TempDir(), time.Second, testFormat)
	if err := c.AcquireAndPlay("itemA", clip); !errors.Is(err, ErrControllerClosed) {
		t.Errorf("AcquireAndPlay after close = %v, want ErrControllerClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// TestAcquireDeviceFailure tests that a device failure surfaces as an
// error and leaves the resource unowned.
func TestAcquireDeviceFailure(t *testing.T) {
	device := NewMockDevice()
	device.StartErr = errors.New("no audio hardware")
	c := NewController(device, testInterval)
	t.Cleanup(func() { _ = c.Close() })

	clip := writeClip(t, t.TempDir(), time.Second, testFormat)
	if err := c.AcquireAndPlay("itemA", clip); err == nil {
		t.Fatal("expected device failure")
	}
	if c.Snapshot().Owner != "" {
		t.Error("failed acquire must leave the resource unowned")
	}
}
