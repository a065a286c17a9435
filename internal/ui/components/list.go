package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/tplay/api"
)

// TrackList represents a scrollable list of tracks. Playing marks the row
// of the track the engine has loaded.
type TrackList struct {
	Items    []api.Track
	Selected int
	Playing  int
	Height   int
	Width    int
	Offset   int
	Title    string

	SelectedStyle lipgloss.Style
	PlayingStyle  lipgloss.Style
	NormalStyle   lipgloss.Style
	TitleStyle    lipgloss.Style
}

// NewTrackList creates a new track list
func NewTrackList(height, width int) TrackList {
	return TrackList{
		Playing: -1,
		Height:  height,
		Width:   width,
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		PlayingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Padding(0, 1),
		NormalStyle: lipgloss.NewStyle().
			Padding(0, 1),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
	}
}

// SetItems sets the list items
func (l *TrackList) SetItems(items []api.Track) {
	l.Items = items
	l.Selected = min(l.Selected, max(len(items)-1, 0))
	l.ensureVisible()
}

// Update handles navigation keys
func (l TrackList) Update(msg tea.Msg) (TrackList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.Move(-1)
		case "down", "j":
			l.Move(1)
		case "pgup":
			l.Move(-l.visible())
		case "pgdown":
			l.Move(l.visible())
		case "home":
			l.Move(-len(l.Items))
		case "end":
			l.Move(len(l.Items))
		}
	}
	return l, nil
}

// Move shifts the selection by delta rows, stopping at either end.
func (l *TrackList) Move(delta int) {
	if len(l.Items) == 0 {
		return
	}
	l.Selected = min(max(l.Selected+delta, 0), len(l.Items)-1)
	l.ensureVisible()
}

func (l TrackList) visible() int {
	return max(l.Height-2, 1) // title and counter
}

// ensureVisible ensures the selected item is visible
func (l *TrackList) ensureVisible() {
	h := l.visible()
	if l.Selected < l.Offset {
		l.Offset = l.Selected
	} else if l.Selected >= l.Offset+h {
		l.Offset = l.Selected - h + 1
	}
}

// View renders the track list
func (l TrackList) View() string {
	var sb strings.Builder

	if l.Title != "" {
		sb.WriteString(l.TitleStyle.Render(l.Title))
		sb.WriteString("\n")
	}

	if len(l.Items) == 0 {
		sb.WriteString(l.NormalStyle.Render("No tracks"))
		return sb.String()
	}

	end := min(l.Offset+l.visible(), len(l.Items))
	for i := l.Offset; i < end; i++ {
		marker := " "
		if i == l.Playing {
			marker = "♪"
		}
		line := fmt.Sprintf("%s%3d. %s", marker, i+1, trackLabel(l.Items[i]))
		line = truncate(line, l.Width-2)

		switch i {
		case l.Selected:
			sb.WriteString(l.SelectedStyle.Render(line))
		case l.Playing:
			sb.WriteString(l.PlayingStyle.Render(line))
		default:
			sb.WriteString(l.NormalStyle.Render(line))
		}
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(l.Items) > l.visible() {
		sb.WriteString("\n")
		sb.WriteString(l.NormalStyle.Render(fmt.Sprintf("  [%d/%d]", l.Selected+1, len(l.Items))))
	}

	return sb.String()
}

func trackLabel(t api.Track) string {
	if t.Artist == "" {
		return t.Title
	}
	return truncate(t.Artist, 20) + " - " + t.Title
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen < 4 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
