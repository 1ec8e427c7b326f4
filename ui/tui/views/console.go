package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hostwatch/ui/tui/state"
)

// TerminalView is the task log, oldest at the top, coloured by category.
type TerminalView struct{}

func (v TerminalView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Task Terminal")

	availableHeight := TerminalRows(props.Height)

	lines := make([]string, 0, len(s.View.Feed))
	for _, l := range s.View.Feed {
		lines = append(lines, ColorForCategory(l.Category).Render(l.Time+" "+l.Text))
	}
	totalLines := len(lines)

	scrollY := ClampScroll(props.ScrollY, totalLines, availableHeight)
	end := scrollY + availableHeight
	if end > totalLines {
		end = totalLines
	}

	viewContent := strings.Join(lines[scrollY:end], "\n")
	if totalLines == 0 {
		viewContent = lipgloss.NewStyle().Foreground(lipgloss.Color("#555")).Render("No task activity yet")
	}

	box := lipgloss.NewStyle().
		Width(max(props.Width-4, 10)).
		Height(availableHeight).
		Padding(0, 1).
		Render(viewContent)

	footerText := fmt.Sprintf("Lines: %d • Press 'b' to go back", totalLines)
	if totalLines > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render(footerText),
	)
}

// TerminalRows is how many feed lines fit on a terminal page of the given height.
func TerminalRows(height int) int {
	rows := height - lipgloss.Height(MenuHeaderStyle.Render("")) - 4
	if rows < 1 {
		return 1
	}
	return rows
}

// ClampScroll keeps the first visible line inside [0, total-visible].
func ClampScroll(scrollY, total, visible int) int {
	if scrollY > total-visible {
		scrollY = total - visible
	}
	if scrollY < 0 {
		scrollY = 0
	}
	return scrollY
}
