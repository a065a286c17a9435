// Package ui is the bubbletea front end. It renders the engine's snapshot
// and turns key presses into engine commands; it never touches audio itself.
package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/config"
	"github.com/jscyril/tplay/internal/playlist"
	"github.com/jscyril/tplay/internal/ui/components"
	"github.com/jscyril/tplay/internal/ui/views"
)

// Catalog finds tracks for the search prompt.
type Catalog interface {
	Search(query string) []*api.Track
}

// Options tune the key map and step sizes.
type Options struct {
	Keys       config.KeyMap
	VolumeStep float64
	SeekStep   time.Duration
	// Autoplay starts the current queue entry on launch.
	Autoplay bool
	// Catalog enables the search prompt when set.
	Catalog Catalog
}

type action int

const (
	actNone action = iota
	actPlayPause
	actStop
	actNext
	actPrevious
	actVolumeUp
	actVolumeDown
	actSeekForward
	actSeekBack
	actMute
	actLoop
	actRepeat
	actShuffle
	actJump
	actSearch
	actQuit
)

func bindings(k config.KeyMap) map[string]action {
	m := map[string]action{
		"ctrl+c": actQuit,
		"=":      actVolumeUp,
		"r":      actRepeat,
		"S":      actShuffle,
		"enter":  actJump,
		"/":      actSearch,
	}
	for key, act := range map[string]action{
		k.PlayPause:   actPlayPause,
		k.Stop:        actStop,
		k.Next:        actNext,
		k.Previous:    actPrevious,
		k.VolumeUp:    actVolumeUp,
		k.VolumeDown:  actVolumeDown,
		k.SeekForward: actSeekForward,
		k.SeekBack:    actSeekBack,
		k.Mute:        actMute,
		k.Loop:        actLoop,
		k.Quit:        actQuit,
	} {
		if key != "" {
			m[key] = act
		}
	}
	return m
}

// Model is the main bubbletea model
type Model struct {
	width  int
	height int

	player api.Player
	events <-chan api.Event
	queue  *playlist.Queue
	opts   Options
	keys   map[string]action

	playerView views.PlayerView
	queueView  views.QueueView

	// while searching every key goes to the prompt
	searching bool
	search    components.SearchInput
	results   components.TrackList

	err error

	headerStyle lipgloss.Style
	errorStyle  lipgloss.Style
}

// TickMsg is sent periodically to refresh the position
type TickMsg time.Time

// EventMsg carries one engine event
type EventMsg struct {
	Event api.Event
}

type eventsClosedMsg struct{}

// playErrMsg reports a Play call the engine refused.
type playErrMsg struct{ err error }

// NewModel creates a new application model. events should be a
// subscription of its own; the model drains it.
func NewModel(player api.Player, events <-chan api.Event, queue *playlist.Queue, opts Options) Model {
	if opts.VolumeStep <= 0 {
		opts.VolumeStep = 0.05
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = 5 * time.Second
	}

	m := Model{
		width:      80,
		height:     24,
		player:     player,
		events:     events,
		queue:      queue,
		opts:       opts,
		keys:       bindings(opts.Keys),
		playerView: views.NewPlayerView(80, 12),
		queueView:  views.NewQueueView(80, 12),
		search:     components.NewSearchInput(76),
		results:    components.NewTrackList(8, 74),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}
	m.results.Title = "Search"
	m.refresh()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.listenForEvents()}
	if m.opts.Autoplay {
		if track, ok := m.queue.Current(); ok {
			cmds = append(cmds, m.playCmd(track))
		}
	}
	return tea.Batch(cmds...)
}

// tickCmd refreshes the position a few times a second
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// listenForEvents waits for the next engine event
func (m Model) listenForEvents() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

func (m Model) playCmd(track api.Track) tea.Cmd {
	return func() tea.Msg {
		if err := m.player.Play(&track); err != nil {
			return playErrMsg{err: err}
		}
		return nil
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewSizes()

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case EventMsg:
		cmd := m.handleEvent(msg.Event)
		m.refresh()
		return m, tea.Batch(cmd, m.listenForEvents())

	case playErrMsg:
		m.err = msg.err

	case eventsClosedMsg:
		// the engine shut down underneath us
		return m, tea.Quit

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		act, ok := m.keys[msg.String()]
		if !ok {
			var cmd tea.Cmd
			m.queueView, cmd = m.queueView.Update(msg)
			return m, cmd
		}
		if act == actQuit {
			return m, tea.Quit
		}
		cmd := m.handleAction(act)
		m.refresh()
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleEvent(ev api.Event) tea.Cmd {
	switch ev.Type {
	case api.EventTrackStarted:
		m.err = nil
	case api.EventTrackEnded:
		if ev.State.Looping {
			return nil
		}
		if next, ok := m.queue.Advance(); ok {
			return m.playCmd(next)
		}
	case api.EventError:
		m.err = ev.Err
	}
	return nil
}

func (m *Model) handleAction(act action) tea.Cmd {
	switch act {
	case actPlayPause:
		if m.player.Snapshot().Track.IsZero() {
			if track, ok := m.queue.Current(); ok {
				return m.playCmd(track)
			}
			return nil
		}
		m.player.Enqueue(api.TogglePlayback{})
	case actStop:
		m.player.Enqueue(api.Stop{})
	case actNext:
		if next, ok := m.queue.Next(); ok {
			return m.playCmd(next)
		}
	case actPrevious:
		if prev, ok := m.queue.Previous(); ok {
			return m.playCmd(prev)
		}
	case actJump:
		if track, err := m.queue.JumpTo(m.queueView.Selected()); err == nil {
			return m.playCmd(track)
		}
	case actVolumeUp:
		m.player.Enqueue(api.AdjustVolume{Delta: m.opts.VolumeStep})
	case actVolumeDown:
		m.player.Enqueue(api.AdjustVolume{Delta: -m.opts.VolumeStep})
	case actSeekForward:
		m.player.Enqueue(api.SeekRelative{Offset: m.opts.SeekStep})
	case actSeekBack:
		m.player.Enqueue(api.SeekRelative{Offset: -m.opts.SeekStep})
	case actMute:
		m.player.Enqueue(api.ToggleMute{})
	case actLoop:
		m.player.Enqueue(api.ToggleLoop{})
	case actRepeat:
		m.queue.CycleRepeat()
	case actShuffle:
		if m.queue.IsShuffled() {
			m.queue.Unshuffle()
		} else {
			m.queue.Shuffle()
		}
	case actSearch:
		if m.opts.Catalog == nil {
			return nil
		}
		m.searching = true
		m.search.Clear()
		m.search.Focus()
		m.runSearch()
	}
	return nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closeSearch()
		return m, nil
	case "enter":
		if len(m.results.Items) == 0 {
			return m, nil
		}
		track := m.results.Items[m.results.Selected]
		m.closeSearch()
		cmd := m.playFromSearch(track)
		m.refresh()
		return m, cmd
	case "up", "down", "pgup", "pgdown":
		m.results, _ = m.results.Update(msg)
		return m, nil
	}
	m.search, _ = m.search.Update(msg)
	m.runSearch()
	return m, nil
}

func (m *Model) runSearch() {
	found := m.opts.Catalog.Search(m.search.Value())
	m.results.Selected, m.results.Offset = 0, 0
	m.results.SetItems(lo.Map(found, func(t *api.Track, _ int) api.Track { return *t }))
}

func (m *Model) closeSearch() {
	m.searching = false
	m.search.Blur()
	m.search.Clear()
}

// playFromSearch jumps to track in the queue, appending it first when the
// queue does not hold it.
func (m *Model) playFromSearch(track api.Track) tea.Cmd {
	_, i, ok := lo.FindIndexOf(m.queue.Tracks(), func(t api.Track) bool { return t.ID == track.ID })
	if !ok {
		m.queue.Add(track)
		i = m.queue.Len() - 1
	}
	if _, err := m.queue.JumpTo(i); err != nil {
		m.err = err
		return nil
	}
	return m.playCmd(track)
}

// refresh copies the engine snapshot and queue into the views.
func (m *Model) refresh() {
	m.playerView.SetState(m.player.Snapshot())
	m.playerView.Repeat = m.queue.RepeatMode()
	m.playerView.Shuffle = m.queue.IsShuffled()
	m.queueView.SetQueue(m.queue.Tracks(), m.queue.Index())
}

// updateViewSizes updates view dimensions
func (m *Model) updateViewSizes() {
	m.playerView.SetWidth(m.width)
	m.queueView.SetSize(m.width, m.height-16)
	m.search.Width = max(m.width-4, 20)
	m.results.Width = max(m.width-6, 20)
	m.results.Height = max(m.height-19, 3)
}

// View renders the UI
func (m Model) View() string {
	sb := m.headerStyle.Render("tplay") + "\n"
	sb += m.playerView.View()
	if m.searching {
		sb += "\n" + m.search.View() + "\n" + m.results.View()
	} else if q := m.queueView.View(); q != "" {
		sb += "\n" + q
	}
	if m.err != nil {
		sb += "\n" + m.errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return sb
}

// Run starts the bubbletea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, player api.Player, events <-chan api.Event, queue *playlist.Queue, opts Options) error {
	model := NewModel(player, events, queue, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
