package console

import (
	"fmt"
	"io"
	"strings"

	"hostwatch/internal/output"
	"hostwatch/internal/telemetry"
)

const (
	colorReset      = "\033[0m"
	colorRed        = "\033[31m"
	colorGreen      = "\033[32m"
	colorYellow     = "\033[33m"
	colorCyan       = "\033[36m"
	colorGray       = "\033[90m"
	colorLightGreen = "\033[92m"
)

// Print renders the dashboard view to the writer in a highly compact format.
func Print(w io.Writer, view output.DashboardView) {
	fmt.Fprintf(w, "%s%s %s%s\n", colorCyan, "■", "HOSTWATCH REPORT", colorReset)

	if len(view.Sections) == 0 {
		fmt.Fprintf(w, "  %sno hosts reporting%s\n", colorGray, colorReset)
	}

	for _, sec := range view.Sections {
		// Section Header
		header := "─ " + sec.Title
		if sec.State == "idle" {
			header += fmt.Sprintf(" [idle, expires in %ds]", sec.RemainingSeconds)
		}
		fmt.Fprintf(w, "%s%s%s\n", colorCyan, header, colorReset)

		for _, it := range sec.Items {
			color := colorFor(it.Status)

			// Compact Label (max 20 chars)
			label := it.Label
			if len(label) > 20 {
				label = label[:17] + "..."
			}

			valStr := ""
			if it.Unit != "" {
				valStr = fmt.Sprintf("%.1f%s", it.Value, it.Unit)
			} else if it.Note != "" {
				valStr = it.Note
			}

			statusMarker := ""
			switch it.Status {
			case "OK":
				statusMarker = fmt.Sprintf(" %s✓%s", color, colorReset)
			case "WARN":
				statusMarker = fmt.Sprintf(" %s!%s", color, colorReset)
			case "CRIT":
				statusMarker = fmt.Sprintf(" %sX%s", color, colorReset)
			}

			dots := strings.Repeat("·", 22-len(label))

			// Format: "  Label............... ValueStatus"
			fmt.Fprintf(w, "  %s%s %12s%s\n", label, colorCyan+dots+colorReset, valStr, statusMarker)
		}
	}

	fmt.Fprintf(w, "%s─ Task Log%s\n", colorCyan, colorReset)
	for _, l := range view.Feed {
		fmt.Fprintf(w, "  %s%s %s%s\n", colorForCategory(l.Category), l.Time, l.Text, colorReset)
	}

	// Single-line Summary
	fmt.Fprintf(w, "%s─ Summary%s: Hosts: %d (%d active, %d idle)\n\n",
		colorCyan, colorReset, view.ActiveHosts+view.IdleHosts, view.ActiveHosts, view.IdleHosts)
}

func colorFor(status string) string {
	switch status {
	case "WARN":
		return colorYellow
	case "CRIT":
		return colorRed
	default:
		return colorGreen
	}
}

func colorForCategory(c telemetry.Category) string {
	switch c {
	case telemetry.CategoryAssigned:
		return colorGray
	case telemetry.CategoryFinished:
		return colorGreen
	case telemetry.CategoryError:
		return colorRed
	default:
		return colorLightGreen
	}
}
