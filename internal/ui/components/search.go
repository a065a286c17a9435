package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SearchInput is a single-line text field. The cursor counts runes.
type SearchInput struct {
	Placeholder string
	Prompt      string
	Focused     bool
	Width       int

	value  []rune
	cursor int

	Style      lipgloss.Style
	FocusStyle lipgloss.Style
}

// NewSearchInput creates a new search input
func NewSearchInput(width int) SearchInput {
	return SearchInput{
		Placeholder: "title, artist or album",
		Prompt:      "/ ",
		Width:       width,
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

// Focus sets focus on the input
func (s *SearchInput) Focus() { s.Focused = true }

// Blur removes focus from the input
func (s *SearchInput) Blur() { s.Focused = false }

// Value returns the current text.
func (s SearchInput) Value() string { return string(s.value) }

// SetValue replaces the text and puts the cursor at the end.
func (s *SearchInput) SetValue(value string) {
	s.value = []rune(value)
	s.cursor = len(s.value)
}

// Clear empties the input
func (s *SearchInput) Clear() {
	s.value = nil
	s.cursor = 0
}

// Update edits the text while focused.
func (s SearchInput) Update(msg tea.Msg) (SearchInput, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !s.Focused {
		return s, nil
	}

	switch key.Type {
	case tea.KeyBackspace:
		if s.cursor > 0 {
			s.value = append(s.value[:s.cursor-1:s.cursor-1], s.value[s.cursor:]...)
			s.cursor--
		}
	case tea.KeyDelete:
		if s.cursor < len(s.value) {
			s.value = append(s.value[:s.cursor:s.cursor], s.value[s.cursor+1:]...)
		}
	case tea.KeyLeft:
		s.cursor = max(s.cursor-1, 0)
	case tea.KeyRight:
		s.cursor = min(s.cursor+1, len(s.value))
	case tea.KeyHome, tea.KeyCtrlA:
		s.cursor = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		s.cursor = len(s.value)
	case tea.KeyCtrlU:
		s.Clear()
	case tea.KeyRunes, tea.KeySpace:
		runes := key.Runes
		if key.Type == tea.KeySpace {
			runes = []rune{' '}
		}
		next := make([]rune, 0, len(s.value)+len(runes))
		next = append(next, s.value[:s.cursor]...)
		next = append(next, runes...)
		next = append(next, s.value[s.cursor:]...)
		s.value = next
		s.cursor += len(runes)
	}
	return s, nil
}

// View renders the search input
func (s SearchInput) View() string {
	var content string
	switch {
	case len(s.value) == 0 && !s.Focused:
		content = s.Prompt + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(s.Placeholder)
	case s.Focused:
		cursor := lipgloss.NewStyle().Background(lipgloss.Color("212")).Render(" ")
		content = s.Prompt + string(s.value[:s.cursor]) + cursor + string(s.value[s.cursor:])
	default:
		content = s.Prompt + string(s.value)
	}

	if s.Focused {
		return s.FocusStyle.Width(s.Width).Render(content)
	}
	return s.Style.Width(s.Width).Render(content)
}
