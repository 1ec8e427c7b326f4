package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"hostwatch/internal/output"
	"hostwatch/ui/tui/state"
	"hostwatch/ui/tui/styles"
)

type DashboardView struct{}

const cardWidth = 34

func (v DashboardView) Render(s state.AppState, props ViewProps) string {
	dash := s.View

	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("hostwatch"),
		fmt.Sprintf(" %d active • %d idle • Last Update: %s",
			dash.ActiveHosts, dash.IdleHosts, s.LastUpdate.Format("15:04:05")),
	)

	if len(dash.Sections) == 0 {
		empty := lipgloss.NewStyle().Foreground(styles.Subtle).Padding(1, 2).
			Render("Waiting for hosts to report...")
		return lipgloss.JoinVertical(lipgloss.Left, header, empty)
	}

	perRow := 1
	if props.Width > 0 {
		perRow = props.Width / (cardWidth + 8)
	}
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	var row []string
	for i := range dash.Sections {
		card := zone.Mark(fmt.Sprintf("host_%d", i), RenderCard(dash.Sections[i], props))
		row = append(row, card)
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	footer := lipgloss.NewStyle().Foreground(styles.Subtle).
		Render("\nClick a host for details • Press 'b' to go back • 'q' to quit")

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		footer,
	))
}

// RenderCard draws one host. The border follows the CPU grade; idle hosts get
// a countdown bar.
func RenderCard(sec output.Section, props ViewProps) string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Render(sec.Title)
	badge := ColorForStatus("OK").Render(" ● " + sec.State)
	if sec.State != "active" {
		badge = ColorForStatus("WARN").Render(" ○ " + sec.State)
	}
	b.WriteString(title + badge + "\n\n")

	border := BorderForStatus("")
	for _, item := range sec.Items {
		if item.Key == "cpu_usage" {
			border = BorderForStatus(item.Status)
		}
		b.WriteString(renderItem(item) + "\n")
	}

	if sec.State == "idle" {
		bar := props.Progress
		bar.Width = cardWidth - 4
		b.WriteString("\n" + bar.ViewAs(sec.Progress) + "\n")
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).
			Render(fmt.Sprintf("expires in %ds", sec.RemainingSeconds)))
	}

	return styles.CardStyle.
		BorderForeground(border).
		Width(cardWidth).
		Render(strings.TrimRight(b.String(), "\n"))
}

func renderItem(item output.Item) string {
	valStr := item.Note
	if item.Unit != "" {
		valStr = fmt.Sprintf("%.1f%s", item.Value, item.Unit)
	}
	if item.Status != "" {
		valStr = ColorForStatus(item.Status).Render(fmt.Sprintf("%s [%s]", valStr, item.Status))
	}
	return fmt.Sprintf("%-14s : %s", item.Label, valStr)
}
