// Package views renders the terminal front end's panes.
package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/ui/components"
)

// PlayerView displays the transport snapshot
type PlayerView struct {
	Width       int
	Height      int
	State       api.Snapshot
	Repeat      api.RepeatMode
	Shuffle     bool
	ProgressBar components.ProgressBar

	// Styles
	TitleStyle    lipgloss.Style
	ArtistStyle   lipgloss.Style
	AlbumStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	FlagStyle     lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width, height int) PlayerView {
	return PlayerView{
		Width:       width,
		Height:      height,
		ProgressBar: components.NewProgressBar(width - 8),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		AlbumStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		FlagStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}
}

// SetState updates the snapshot shown
func (v *PlayerView) SetState(state api.Snapshot) {
	v.State = state
	v.ProgressBar.SetProgress(state.Timestamp, state.Duration)
}

// SetWidth resizes the view and its progress bar.
func (v *PlayerView) SetWidth(width int) {
	v.Width = width
	v.ProgressBar.Width = width - 8
}

// StatusIcon is the glyph for the transport state.
func StatusIcon(s api.Snapshot) string {
	switch {
	case s.Track.IsZero():
		return "⏹"
	case s.Ended:
		return "⏹"
	case s.Playing:
		return "▶"
	default:
		return "⏸"
	}
}

// View renders the player view
func (v PlayerView) View() string {
	var sb strings.Builder

	if v.State.Track.IsZero() {
		sb.WriteString(v.TitleStyle.Render("♪ No track playing"))
		sb.WriteString("\n\n")
		sb.WriteString(v.ControlsStyle.Render("Press Space to start the queue"))
	} else {
		track := v.State.Track

		sb.WriteString(v.StatusStyle.Render(StatusIcon(v.State) + " "))
		sb.WriteString(v.TitleStyle.Render(track.Title))
		sb.WriteString("\n")
		if track.Artist != "" {
			sb.WriteString(v.ArtistStyle.Render(track.Artist))
			sb.WriteString("\n")
		}
		if track.Album != "" {
			sb.WriteString(v.AlbumStyle.Render(track.Album))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")

		sb.WriteString(v.ProgressBar.View())
		sb.WriteString("\n\n")
	}

	volume := fmt.Sprintf("Volume: %s %3d%%", renderVolumeBar(v.State.Volume), int(v.State.Volume*100+0.5))
	if v.State.Muted {
		volume += " (muted)"
	}
	sb.WriteString(volume)
	sb.WriteString("\n")

	if flags := v.flags(); len(flags) > 0 {
		sb.WriteString(v.FlagStyle.Render(strings.Join(flags, " | ")))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(v.ControlsStyle.Render(
		"[Space] Play/Pause  [s] Stop  [n/p] Next/Prev  [←/→] Seek  [+/-] Volume  [m] Mute  [l] Loop  [q] Quit",
	))

	return v.BorderStyle.Width(max(v.Width-4, 20)).Render(sb.String())
}

func (v PlayerView) flags() []string {
	var modes []string
	if v.State.Looping {
		modes = append(modes, "🔂 Loop")
	}
	switch v.Repeat {
	case api.RepeatOne:
		modes = append(modes, "Repeat One")
	case api.RepeatAll:
		modes = append(modes, "🔁 Repeat All")
	}
	if v.Shuffle {
		modes = append(modes, "🔀 Shuffle")
	}
	return modes
}

// renderVolumeBar renders a volume bar
func renderVolumeBar(volume float64) string {
	filled := min(max(int(volume*10+0.5), 0), 10)

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return filledStyle.Render(strings.Repeat("●", filled)) + emptyStyle.Render(strings.Repeat("○", 10-filled))
}
