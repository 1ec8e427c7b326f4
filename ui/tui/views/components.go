package views

import (
	"github.com/charmbracelet/lipgloss"

	"hostwatch/internal/telemetry"
	"hostwatch/ui/tui/styles"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	if status == "WARN" {
		return sStyle.Foreground(styles.Warning)
	} else if status == "CRIT" {
		return sStyle.Foreground(styles.Critical)
	}
	return sStyle.Foreground(lipgloss.Color("46")) // Green
}

// BorderForStatus colours a host card by its CPU grade.
func BorderForStatus(status string) lipgloss.TerminalColor {
	switch status {
	case "CRIT":
		return styles.Critical
	case "WARN":
		return styles.Warning
	default:
		return styles.Highlight
	}
}

func ColorForCategory(c telemetry.Category) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch c {
	case telemetry.CategoryAssigned:
		return s.Foreground(styles.Assigned)
	case telemetry.CategoryFinished:
		return s.Foreground(styles.Finished)
	case telemetry.CategoryError:
		return s.Foreground(styles.ErrorLine).Bold(true)
	default:
		return s.Foreground(styles.Info)
	}
}
