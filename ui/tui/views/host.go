package views

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"hostwatch/ui/tui/state"
	"hostwatch/ui/tui/styles"
)

// HostView is the detail page of the selected host.
type HostView struct{}

func (v HostView) Render(s state.AppState, props ViewProps) string {
	sec, ok := s.Selected()
	if !ok {
		return lipgloss.Place(props.Width, props.Height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("No hosts reporting\n\nPress 'b' to go back"))
	}

	header := MenuHeaderStyle.Width(props.Width).
		Render(fmt.Sprintf("Host %d/%d", s.SelectedHost+1, len(s.View.Sections)))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		RenderCard(sec, props),
		lipgloss.NewStyle().PaddingLeft(2).Foreground(styles.Subtle).
			Render("[←/→] Previous/next host • Press 'b' to go back"),
	)
}
