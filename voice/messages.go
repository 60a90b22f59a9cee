package voice

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the voice pipeline and
// the UI.

// ViewUpdatedMsg carries a freshly derived view state for one message.
type ViewUpdatedMsg struct {
	Index int // Position of the message in the list
	View  ViewState
}

// PipelineErrorMsg surfaces a pipeline failure to the UI. The button is
// already armed for retry by the time this arrives.
type PipelineErrorMsg struct {
	Index     int
	Error     error
	Component string // Which component failed (fetcher, cache, playback)
	Action    string // What it was doing at the time
}

// ManifestLoadedMsg indicates a playlist manifest was read.
type ManifestLoadedMsg struct {
	Manifest *Manifest
	Path     string
}

// PressCmd creates a command that handles the play button of one message.
// Successful presses surface through the coordinator's update stream, not
// here.
func PressCmd(c *Coordinator, index int) tea.Cmd {
	return func() tea.Msg {
		if err := c.PlayPause(); err != nil {
			return errorMsg(c, index, err)
		}
		return nil
	}
}

// SeekCmd creates a command that seeks within one message.
func SeekCmd(c *Coordinator, index int, fraction float64) tea.Cmd {
	return func() tea.Msg {
		if err := c.Seek(fraction); err != nil {
			return errorMsg(c, index, err)
		}
		return nil
	}
}

// WatchViewCmd creates a command that waits for the coordinator's next
// view update. Reissue it from the update loop to keep the stream alive.
func WatchViewCmd(c *Coordinator, index int) tea.Cmd {
	return func() tea.Msg {
		view, ok := <-c.Updates()
		if !ok {
			return nil
		}
		return ViewUpdatedMsg{Index: index, View: view}
	}
}

// LoadManifestCmd creates a command that loads a playlist manifest.
func LoadManifestCmd(path string) tea.Cmd {
	return func() tea.Msg {
		m, err := LoadManifest(path)
		if err != nil {
			return PipelineErrorMsg{
				Index:     -1,
				Error:     err,
				Component: "manifest",
				Action:    "load",
			}
		}
		return ManifestLoadedMsg{Manifest: m, Path: path}
	}
}

func errorMsg(c *Coordinator, index int, err error) PipelineErrorMsg {
	msg := PipelineErrorMsg{Index: index, Error: err}
	var perr *PipelineError
	if errors.As(err, &perr) {
		msg.Component = perr.Component
		msg.Action = perr.Action
	}
	return msg
}
