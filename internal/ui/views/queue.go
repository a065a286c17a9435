package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/tplay/api"
	"github.com/jscyril/tplay/internal/ui/components"
)

// QueueView lists the play queue with the loaded track marked.
type QueueView struct {
	Width       int
	Height      int
	TrackList   components.TrackList
	BorderStyle lipgloss.Style
}

// NewQueueView creates a new queue view
func NewQueueView(width, height int) QueueView {
	list := components.NewTrackList(height-4, width-6)
	list.Title = "📋 Queue"
	return QueueView{
		Width:     width,
		Height:    height,
		TrackList: list,
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
	}
}

// SetQueue shows tracks with the entry at playing marked.
func (v *QueueView) SetQueue(tracks []api.Track, playing int) {
	v.TrackList.SetItems(tracks)
	v.TrackList.Playing = playing
}

// SetSize resizes the view
func (v *QueueView) SetSize(width, height int) {
	v.Width, v.Height = width, height
	v.TrackList.Width = width - 6
	v.TrackList.Height = height - 4
}

// Selected is the index of the highlighted row.
func (v QueueView) Selected() int { return v.TrackList.Selected }

// Update handles navigation keys
func (v QueueView) Update(msg tea.Msg) (QueueView, tea.Cmd) {
	var cmd tea.Cmd
	v.TrackList, cmd = v.TrackList.Update(msg)
	return v, cmd
}

// View renders the queue
func (v QueueView) View() string {
	if v.Height < 5 {
		return ""
	}
	return v.BorderStyle.Width(max(v.Width-4, 20)).Render(v.TrackList.View())
}
