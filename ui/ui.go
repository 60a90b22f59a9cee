// Package ui provides the main UI for the voicebox application.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voicebox/voice"
)

const statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"

// seekStep is the fraction of the clip one arrow press moves.
const seekStep = 0.05

// Deps bundles the pipeline pieces the UI drives. They outlive the
// program; Close on quit tears the coordinators down but not the
// controller itself.
type Deps struct {
	Cache    voice.Cache
	Fetcher  voice.Fetcher
	Controls voice.Controls
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug("starting voicebox", "manifest", cfg.ManifestPath, "mock_audio", cfg.MockAudio)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, deps), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type statusMessageTimeoutMsg struct{}

// state is the top-level application state.
type state int

const (
	stateLoadingManifest state = iota
	stateShowPlaylist
)

func (s state) String() string {
	return map[state]string{
		stateLoadingManifest: "loading manifest",
		stateShowPlaylist:    "showing playlist",
	}[s]
}

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	width  int
	height int
}

type model struct {
	common   *commonModel
	state    state
	fatalErr error
	deps     Deps

	playlist playlistModel

	spinner       spinner.Model
	statusMessage string
	statusIsError bool
}

func newModel(cfg Config, deps Deps) tea.Model {
	common := commonModel{cfg: cfg}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = subtleStyle

	return model{
		common:   &common,
		state:    stateLoadingManifest,
		deps:     deps,
		playlist: newPlaylistModel(&common),
		spinner:  sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		voice.LoadManifestCmd(m.common.cfg.ManifestPath),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// pass through all keys if we're editing the filter
		if m.playlist.filterState == filtering {
			newPlaylist, cmd := m.playlist.update(msg)
			m.playlist = newPlaylist
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.playlist.closeAll()
			return m, tea.Quit

		case "ctrl+z":
			return m, tea.Suspend

		case "c":
			if item, ok := m.playlist.selected(); ok {
				if err := clipboard.WriteAll(item.msg.URL); err != nil {
					return m, m.showStatus("clipboard unavailable", true)
				}
				return m, m.showStatus("copied!", false)
			}

		case "r":
			m.playlist.closeAll()
			m.playlist = newPlaylistModel(m.common)
			m.state = stateLoadingManifest
			return m, tea.Batch(m.spinner.Tick, voice.LoadManifestCmd(m.common.cfg.ManifestPath))
		}

	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.playlist.setSize(msg.Width, msg.Height)

	case voice.ManifestLoadedMsg:
		m.state = stateShowPlaylist
		cmds = append(cmds, m.playlist.load(msg.Manifest, m.deps)...)

	case voice.ViewUpdatedMsg:
		if msg.View.Button == voice.ButtonDownloading {
			cmds = append(cmds, m.spinner.Tick)
		}

	case voice.PipelineErrorMsg:
		if msg.Index < 0 {
			// The manifest itself failed to load; nothing to show.
			m.fatalErr = msg.Error
			return m, nil
		}
		log.Warn("pipeline error", "stage", msg.Component, "action", msg.Action, "err", msg.Error)
		cmds = append(cmds, m.showStatus(fmt.Sprintf("error: %v", msg.Error), true))

	case statusMessageTimeoutMsg:
		m.statusMessage = ""

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == stateLoadingManifest || m.playlist.anyDownloading() {
			cmds = append(cmds, cmd)
		}
	}

	if m.state == stateShowPlaylist {
		newPlaylist, cmd := m.playlist.update(msg)
		m.playlist = newPlaylist
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	switch m.state {
	case stateLoadingManifest:
		return fmt.Sprintf("\n  %s loading playlist %s",
			m.spinner.View(),
			subtleStyle.Render(m.common.cfg.ManifestPath))
	default:
		return m.playlist.view(m.spinner, m.statusLine())
	}
}

func (m model) statusLine() string {
	if m.statusMessage == "" {
		return ""
	}
	if m.statusIsError {
		return retryStyle.Render(m.statusMessage)
	}
	return statusStyle.Render(m.statusMessage)
}

func (m *model) showStatus(text string, isError bool) tea.Cmd {
	m.statusMessage = text
	m.statusIsError = isError
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
