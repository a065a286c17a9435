package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/config"
	"github.com/jscyril/tplay/internal/playlist"
	"github.com/jscyril/tplay/internal/ui/components"
)

// fakePlayer records what the model asks of the engine.
type fakePlayer struct {
	mu       sync.Mutex
	commands []api.Command
	played   []string
	state    api.Snapshot
	playErr  error
}

func (p *fakePlayer) Enqueue(cmd api.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, cmd)
}

func (p *fakePlayer) Play(track *api.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.played = append(p.played, track.ID)
	p.state.Track = *track
	return nil
}

func (p *fakePlayer) Pause() error             { return nil }
func (p *fakePlayer) Resume() error            { return nil }
func (p *fakePlayer) Stop() error              { return nil }
func (p *fakePlayer) Seek(time.Duration) error { return nil }
func (p *fakePlayer) SetVolume(float64) error  { return nil }
func (p *fakePlayer) Events() <-chan api.Event { return nil }
func (p *fakePlayer) last() api.Command        { return p.commands[len(p.commands)-1] }
func (p *fakePlayer) lastPlayed() string       { return p.played[len(p.played)-1] }

func (p *fakePlayer) Snapshot() api.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePlayer) setState(s api.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

var tracks = []api.Track{
	{ID: "a", Title: "Alpha", FilePath: "/m/a.wav"},
	{ID: "b", Title: "Beta", FilePath: "/m/b.wav"},
	{ID: "c", Title: "Gamma", FilePath: "/m/c.wav"},
}

func newTestModel(t *testing.T) (Model, *fakePlayer, *playlist.Queue) {
	t.Helper()
	p := &fakePlayer{}
	q := playlist.NewQueue(tracks...)
	m := NewModel(p, make(chan api.Event), q, Options{
		Keys:       config.GetDefaultConfig().KeyBindings,
		VolumeStep: 0.1,
		SeekStep:   10 * time.Second,
	})
	return m, p, q
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, if any.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(Model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			next, _ = m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func TestModel_KeysEnqueueCommands(t *testing.T) {
	m, p, _ := newTestModel(t)
	p.setState(api.Snapshot{Track: tracks[0], Playing: true})

	tests := []struct {
		key  string
		want api.Command
	}{
		{" ", api.TogglePlayback{}},
		{"s", api.Stop{}},
		{"+", api.AdjustVolume{Delta: 0.1}},
		{"=", api.AdjustVolume{Delta: 0.1}},
		{"-", api.AdjustVolume{Delta: -0.1}},
		{"right", api.SeekRelative{Offset: 10 * time.Second}},
		{"left", api.SeekRelative{Offset: -10 * time.Second}},
		{"m", api.ToggleMute{}},
		{"l", api.ToggleLoop{}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m = press(t, m, tt.key)
			assert.Equal(t, tt.want, p.last())
		})
	}
}

func TestModel_SpaceStartsQueueWhenIdle(t *testing.T) {
	m, p, _ := newTestModel(t)

	press(t, m, " ")
	assert.Empty(t, p.commands)
	assert.Equal(t, []string{"a"}, p.played)
}

func TestModel_NextPrevious(t *testing.T) {
	m, p, q := newTestModel(t)

	m = press(t, m, "n")
	m = press(t, m, "n")
	assert.Equal(t, "c", p.lastPlayed())
	assert.Equal(t, 2, q.Index())

	m = press(t, m, "n")
	assert.Len(t, p.played, 2, "end of the queue")

	press(t, m, "p")
	assert.Equal(t, "b", p.lastPlayed())
}

func TestModel_EnterPlaysSelectedRow(t *testing.T) {
	m, p, q := newTestModel(t)

	m = press(t, m, "down")
	m = press(t, m, "down")
	press(t, m, "enter")

	assert.Equal(t, "c", p.lastPlayed())
	assert.Equal(t, 2, q.Index())
}

func TestModel_TrackEndedAdvances(t *testing.T) {
	m, p, q := newTestModel(t)

	_, cmd := m.Update(EventMsg{Event: api.Event{Type: api.EventTrackEnded, Track: tracks[0]}})
	require.NotNil(t, cmd)
	runBatch(cmd)
	assert.Equal(t, []string{"b"}, p.played)
	assert.Equal(t, 1, q.Index())

	// a looping track restarts itself
	p.played = nil
	_, cmd = m.Update(EventMsg{Event: api.Event{
		Type:  api.EventTrackEnded,
		State: api.Snapshot{Looping: true},
	}})
	runBatch(cmd)
	assert.Empty(t, p.played)
}

func TestModel_ErrorsAreShown(t *testing.T) {
	m, p, _ := newTestModel(t)

	next, _ := m.Update(EventMsg{Event: api.Event{Type: api.EventError, Err: errors.New("cannot open container")}})
	m = next.(Model)
	assert.Contains(t, m.View(), "cannot open container")

	next, _ = m.Update(EventMsg{Event: api.Event{Type: api.EventTrackStarted}})
	m = next.(Model)
	assert.NotContains(t, m.View(), "Error:")

	p.playErr = errors.New("engine is shut down")
	m = press(t, m, "n")
	assert.Contains(t, m.View(), "engine is shut down")
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	_, cmd = m.Update(eventsClosedMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_RepeatAndShuffleKeys(t *testing.T) {
	m, _, q := newTestModel(t)

	m = press(t, m, "r")
	assert.Equal(t, api.RepeatAll, q.RepeatMode())
	m = press(t, m, "S")
	assert.True(t, q.IsShuffled())
	press(t, m, "S")
	assert.False(t, q.IsShuffled())
}

func TestModel_ViewShowsSnapshot(t *testing.T) {
	m, p, _ := newTestModel(t)
	assert.Contains(t, m.View(), "No track playing")

	p.setState(api.Snapshot{
		Track:     api.Track{ID: "a", Title: "Alpha", Artist: "Band"},
		Playing:   true,
		Muted:     true,
		Looping:   true,
		Volume:    0.5,
		Timestamp: 65 * time.Second,
		Duration:  3 * time.Minute,
	})
	next, _ := m.Update(TickMsg(time.Now()))
	view := next.(Model).View()

	assert.Contains(t, view, "Alpha")
	assert.Contains(t, view, "Band")
	assert.Contains(t, view, "01:05/03:00")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "(muted)")
	assert.Contains(t, view, "Loop")
}

// titleCatalog matches tracks whose title contains the query.
type titleCatalog []api.Track

func (c titleCatalog) Search(query string) []*api.Track {
	var out []*api.Track
	for i := range c {
		if strings.Contains(strings.ToLower(c[i].Title), strings.ToLower(query)) {
			out = append(out, &c[i])
		}
	}
	return out
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = press(t, m, string(r))
	}
	return m
}

func newSearchModel(t *testing.T) (Model, *fakePlayer, *playlist.Queue) {
	t.Helper()
	p := &fakePlayer{}
	q := playlist.NewQueue(tracks...)
	all := append(titleCatalog{}, tracks...)
	all = append(all, api.Track{ID: "d", Title: "Delta", FilePath: "/m/d.wav"})
	m := NewModel(p, make(chan api.Event), q, Options{
		Keys:    config.GetDefaultConfig().KeyBindings,
		Catalog: all,
	})
	return m, p, q
}

func TestModel_SearchPlaysTrackFromQueue(t *testing.T) {
	m, p, q := newSearchModel(t)

	m = press(t, m, "/")
	assert.Contains(t, m.View(), "Search")
	assert.Len(t, m.results.Items, 4, "an empty query lists everything")

	m = typeText(t, m, "gam")
	require.Len(t, m.results.Items, 1)
	assert.Contains(t, m.View(), "Gamma")

	m = press(t, m, "enter")
	assert.False(t, m.searching)
	assert.Equal(t, []string{"c"}, p.played)
	assert.Equal(t, 2, q.Index())
	assert.Equal(t, 3, q.Len())
}

func TestModel_SearchAppendsMissingTrack(t *testing.T) {
	m, p, q := newSearchModel(t)

	m = press(t, m, "/")
	m = typeText(t, m, "a")
	require.Len(t, m.results.Items, 4)
	m = press(t, m, "down")
	m = press(t, m, "down")
	m = press(t, m, "down")
	press(t, m, "enter")

	assert.Equal(t, []string{"d"}, p.played)
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 3, q.Index())
}

func TestModel_SearchCapturesKeys(t *testing.T) {
	m, p, _ := newSearchModel(t)

	m = press(t, m, "/")
	m = typeText(t, m, "sq")
	assert.Empty(t, p.commands, "s does not stop playback while typing")
	assert.Equal(t, "sq", m.search.Value())
	assert.Empty(t, m.results.Items)

	m = press(t, m, "backspace")
	m = press(t, m, "backspace")
	assert.Len(t, m.results.Items, 4)

	m = press(t, m, "esc")
	assert.False(t, m.searching)
	assert.Empty(t, p.played)
	assert.Contains(t, m.View(), "Queue")

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_SearchNeedsCatalog(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, "/")
	assert.False(t, m.searching)
}

func TestSearchInput_Editing(t *testing.T) {
	s := components.NewSearchInput(30)
	s, _ = s.Update(key("x"))
	assert.Empty(t, s.Value(), "ignores keys until focused")

	s.Focus()
	for _, k := range []string{"n", "ï", "t", "left", "left", " "} {
		s, _ = s.Update(key(k))
	}
	assert.Equal(t, "n ït", s.Value())

	s, _ = s.Update(key("backspace"))
	assert.Equal(t, "nït", s.Value())
	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyEnd})
	s, _ = s.Update(key("h"))
	assert.Equal(t, "nïth", s.Value())
	assert.Contains(t, s.View(), "nïth")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", components.FormatDuration(-time.Second))
	assert.Equal(t, "02:05", components.FormatDuration(125*time.Second))
	assert.Equal(t, "1:00:01", components.FormatDuration(time.Hour+time.Second))
}

// runBatch executes cmd and every command of a tea.BatchMsg it returns,
// except listeners that would block on the event channel.
func runBatch(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				runBatch(c)
			}
		}
	case <-time.After(50 * time.Millisecond):
	}
}
