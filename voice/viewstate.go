package voice

import (
	"time"

	"github.com/dgnsrekt/voicebox/internal/audio"
)

// ButtonState is what the play button should render for an item.
type ButtonState int

const (
	// ButtonDisabled means the item has no stable identity yet.
	ButtonDisabled ButtonState = iota
	// ButtonPlay invites playback (or re-acquiring ownership).
	ButtonPlay
	// ButtonPause means this item owns the player and is playing.
	ButtonPause
	// ButtonDownloading means a fetch is in flight.
	ButtonDownloading
	// ButtonRetry means the last fetch failed.
	ButtonRetry
)

// String returns the string representation of the button state.
func (b ButtonState) String() string {
	switch b {
	case ButtonDisabled:
		return "disabled"
	case ButtonPlay:
		return "play"
	case ButtonPause:
		return "pause"
	case ButtonDownloading:
		return "downloading"
	case ButtonRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// ViewState is the derived presentation snapshot for one item. It is
// recomputed from its inputs on every change and never stored as
// authoritative state.
type ViewState struct {
	Button   ButtonState
	Progress float64 // playback fraction in [0, 1]; 0 for non-owners
	Elapsed  string  // position while owner, total duration otherwise
}

// deriveView is the pure projection from (identity, fetch state, playback
// snapshot, duration) to what the UI shows.
func deriveView(ref MediaRef, fetch FetchState, snap audio.Snapshot, duration time.Duration) ViewState {
	mine := ref.HasIdentity() && snap.OwnedBy(ref.Key())

	var button ButtonState
	switch {
	case !ref.HasIdentity():
		button = ButtonDisabled
	case mine && snap.IsPlaying:
		button = ButtonPause
	case fetch == FetchLoading:
		button = ButtonDownloading
	case fetch == FetchFailed:
		button = ButtonRetry
	default:
		button = ButtonPlay
	}

	var progress float64
	elapsed := duration
	if mine {
		elapsed = snap.Position
		if duration > 0 {
			progress = float64(snap.Position) / float64(duration)
			if progress > 1 {
				progress = 1
			}
		}
	}

	return ViewState{
		Button:   button,
		Progress: progress,
		Elapsed:  FormatElapsed(elapsed),
	}
}
