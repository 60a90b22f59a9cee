package voice

import (
	"errors"

	"github.com/dgnsrekt/voicebox/internal/audio"
)

// Common errors for the voice playback pipeline.
var (
	// ErrFetchFailed wraps network or storage failures while
	// downloading a clip.
	ErrFetchFailed = errors.New("voice clip download failed")
	// ErrStoreFailed indicates the downloaded clip could not be moved
	// into the cache.
	ErrStoreFailed = errors.New("unable to store voice clip in cache")
	// ErrNoIdentity indicates the media reference has no stable
	// identity yet and cannot be played or fetched.
	ErrNoIdentity = errors.New("media reference has no identity")
	// ErrCoordinatorClosed is returned by operations on a torn-down
	// coordinator.
	ErrCoordinatorClosed = errors.New("coordinator has been closed")
	// ErrNotOwner mirrors the controller's ownership guard: a playback
	// command from an item that does not own the shared player.
	ErrNotOwner = audio.ErrNotOwner
)

// PipelineError carries the component and action that produced a failure,
// for diagnostics. The user-visible contract stays "Retry is offered";
// this exists for the logs.
type PipelineError struct {
	Err       error
	Component string
	Action    string
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err == nil {
		return "voice pipeline error"
	}
	return e.Component + " " + e.Action + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

func pipelineErr(err error, component, action string) *PipelineError {
	return &PipelineError{Err: err, Component: component, Action: action}
}
