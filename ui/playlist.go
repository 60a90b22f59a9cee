package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/voicebox/voice"
)

// filterState is the current filtering mode of the playlist.
type filterState int

const (
	unfiltered filterState = iota
	filtering
	filterApplied
)

type playlistItem struct {
	msg   voice.Message
	coord *voice.Coordinator
	view  voice.ViewState
}

type playlistModel struct {
	common *commonModel

	items   []playlistItem
	visible []int // indexes into items, in display order
	cursor  int   // position within visible

	filterState filterState
	filterInput textinput.Model

	progress progress.Model
}

func newPlaylistModel(common *commonModel) playlistModel {
	ti := textinput.New()
	ti.Prompt = "Filter: "
	ti.PromptStyle = filterPromptStyle
	ti.CharLimit = 64

	pb := progress.New(progress.WithDefaultGradient())
	pb.Width = 20

	return playlistModel{
		common:      common,
		filterInput: ti,
		progress:    pb,
	}
}

// load builds a coordinator per manifest message and starts watching
// their view streams.
func (p *playlistModel) load(m *voice.Manifest, deps Deps) []tea.Cmd {
	m.FillDurations(deps.Cache)

	var cmds []tea.Cmd
	p.items = make([]playlistItem, len(m.Messages))
	p.visible = make([]int, len(m.Messages))
	for i, msg := range m.Messages {
		coord := voice.NewCoordinator(msg.Ref(), msg.Duration, deps.Cache, deps.Fetcher, deps.Controls)
		p.items[i] = playlistItem{
			msg:   msg,
			coord: coord,
			view:  coord.View(),
		}
		p.visible[i] = i
		cmds = append(cmds, voice.WatchViewCmd(coord, i))
	}
	return cmds
}

func (p *playlistModel) closeAll() {
	for i := range p.items {
		if p.items[i].coord != nil {
			p.items[i].coord.Close()
		}
	}
}

func (p *playlistModel) selected() (playlistItem, bool) {
	if len(p.visible) == 0 || p.cursor >= len(p.visible) {
		return playlistItem{}, false
	}
	return p.items[p.visible[p.cursor]], true
}

func (p *playlistModel) anyDownloading() bool {
	for i := range p.items {
		if p.items[i].view.Button == voice.ButtonDownloading {
			return true
		}
	}
	return false
}

func (p *playlistModel) setSize(width, height int) {
	w := width - 30
	if w < 10 {
		w = 10
	}
	if w > 40 {
		w = 40
	}
	p.progress.Width = w
}

func (p playlistModel) update(msg tea.Msg) (playlistModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.filterState == filtering {
			return p.updateFiltering(msg)
		}
		return p.updateBrowsing(msg)

	case voice.ViewUpdatedMsg:
		if msg.Index < 0 || msg.Index >= len(p.items) {
			return p, nil
		}
		p.items[msg.Index].view = msg.View
		// Keep the stream alive.
		return p, voice.WatchViewCmd(p.items[msg.Index].coord, msg.Index)
	}
	return p, nil
}

func (p playlistModel) updateBrowsing(msg tea.KeyMsg) (playlistModel, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}

	case "down", "j":
		if p.cursor < len(p.visible)-1 {
			p.cursor++
		}

	case "home", "g":
		p.cursor = 0

	case "end", "G":
		p.cursor = len(p.visible) - 1

	case "enter", " ":
		if item, ok := p.selected(); ok {
			return p, voice.PressCmd(item.coord, p.visible[p.cursor])
		}

	case "left":
		if item, ok := p.selected(); ok {
			return p, voice.SeekCmd(item.coord, p.visible[p.cursor], item.view.Progress-seekStep)
		}

	case "right":
		if item, ok := p.selected(); ok {
			return p, voice.SeekCmd(item.coord, p.visible[p.cursor], item.view.Progress+seekStep)
		}

	case "/":
		p.filterState = filtering
		p.filterInput.Focus()
		return p, textinput.Blink

	case "esc":
		if p.filterState == filterApplied {
			p.resetFilter()
		}
	}
	return p, nil
}

func (p playlistModel) updateFiltering(msg tea.KeyMsg) (playlistModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		p.resetFilter()
		return p, nil

	case "enter":
		p.filterState = filterApplied
		p.filterInput.Blur()
		if p.filterInput.Value() == "" {
			p.resetFilter()
		}
		return p, nil
	}

	var cmd tea.Cmd
	p.filterInput, cmd = p.filterInput.Update(msg)
	p.applyFilter(p.filterInput.Value())
	return p, cmd
}

func (p *playlistModel) resetFilter() {
	p.filterState = unfiltered
	p.filterInput.Reset()
	p.filterInput.Blur()
	p.visible = p.visible[:0]
	for i := range p.items {
		p.visible = append(p.visible, i)
	}
	p.clampCursor()
}

// applyFilter ranks items by fuzzy match against the query. An empty
// query shows everything.
func (p *playlistModel) applyFilter(query string) {
	if query == "" {
		p.resetFilter()
		p.filterState = filtering
		p.filterInput.Focus()
		return
	}

	targets := make([]string, len(p.items))
	for i := range p.items {
		targets[i] = p.items[i].msg.Ref().DisplayName
	}

	matches := fuzzy.Find(query, targets)
	p.visible = p.visible[:0]
	for _, match := range matches {
		p.visible = append(p.visible, match.Index)
	}
	p.clampCursor()
}

func (p *playlistModel) clampCursor() {
	if p.cursor >= len(p.visible) {
		p.cursor = len(p.visible) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p playlistModel) view(sp spinner.Model, status string) string {
	var b strings.Builder

	b.WriteString("\n" + titleStyle.Render("Voicebox") + "\n\n")

	if p.filterState != unfiltered {
		b.WriteString("  " + p.filterInput.View() + "\n\n")
	}

	if len(p.visible) == 0 {
		b.WriteString(subtleStyle.Render("  nothing to play") + "\n")
	}

	for pos, idx := range p.visible {
		b.WriteString(p.renderRow(p.items[idx], pos == p.cursor, sp))
		b.WriteString("\n")
	}

	b.WriteString("\n" + p.helpView())
	if status != "" {
		b.WriteString("\n  " + status)
	}
	return b.String()
}

func (p playlistModel) renderRow(item playlistItem, selected bool, sp spinner.Model) string {
	glyph := buttonGlyph(item.view.Button, sp)

	nameWidth := p.common.width - p.progress.Width - 24
	if nameWidth < 12 {
		nameWidth = 12
	}
	name := truncateTo(item.msg.Ref().DisplayName, nameWidth)
	pad := nameWidth - runewidth.StringWidth(name)
	if pad > 0 {
		name += strings.Repeat(" ", pad)
	}

	bar := p.progress.ViewAs(item.view.Progress)

	line := fmt.Sprintf("%s %s %s %s", glyph, name, bar, item.view.Elapsed)
	if p.common.cfg.ShowSizes && item.msg.Size > 0 {
		line += subtleStyle.Render("  " + voice.FormatSize(item.msg.Size))
	}

	cursor := "  "
	if selected {
		cursor = selectedStyle.Render("> ")
		return cursor + selectedStyle.Render(line)
	}
	return cursor + normalStyle.Render(line)
}

func buttonGlyph(b voice.ButtonState, sp spinner.Model) string {
	switch b {
	case voice.ButtonDisabled:
		return subtleStyle.Render("·")
	case voice.ButtonPause:
		return statusStyle.Render("⏸")
	case voice.ButtonDownloading:
		return sp.View()
	case voice.ButtonRetry:
		return retryStyle.Render("↻")
	default:
		return "▶"
	}
}

func (p playlistModel) helpView() string {
	return subtleStyle.Render("  enter/space: play/pause • ←/→: seek • /: filter • c: copy url • r: reload • q: quit")
}
