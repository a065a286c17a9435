package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

// ProgressBar represents a progress bar component
type ProgressBar struct {
	Width       int
	Current     time.Duration
	Total       time.Duration
	BarChar     string
	EmptyChar   string
	ShowTime    bool
	Style       lipgloss.Style
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		ShowTime:    true,
		Style:       lipgloss.NewStyle(),
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetProgress sets the current position
func (p *ProgressBar) SetProgress(current, total time.Duration) {
	p.Current = current
	p.Total = total
}

// Percent is the filled share of the bar. An unknown total reads as empty.
func (p ProgressBar) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return lo.Clamp(float64(p.Current)/float64(p.Total), 0, 1)
}

// View renders the progress bar
func (p ProgressBar) View() string {
	var sb strings.Builder

	// Leave room for the time display
	barWidth := max(p.Width-14, 10)
	filled := int(float64(barWidth) * p.Percent())

	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, barWidth-filled)))

	if p.ShowTime {
		total := "--:--"
		if p.Total > 0 {
			total = FormatDuration(p.Total)
		}
		fmt.Fprintf(&sb, " %s/%s", FormatDuration(p.Current), total)
	}

	return p.Style.Render(sb.String())
}

// FormatDuration formats a duration as MM:SS, or H:MM:SS past an hour.
func FormatDuration(d time.Duration) string {
	d = max(d, 0).Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
