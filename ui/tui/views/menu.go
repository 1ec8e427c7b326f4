package views

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"hostwatch/internal/output"
	"hostwatch/ui/tui/state"
	"hostwatch/ui/tui/styles"
)

// MenuOptions are the pages reachable from the menu, in order.
var MenuOptions = []string{
	"Cluster Dashboard",
	"Task Terminal",
	"Host Inspector",
}

const (
	menuListTop    = 8
	menuItemHeight = 4
	menuItemWidth  = 48
)

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("HOSTWATCH // CLUSTER TELEMETRY")

	items := make([]string, 0, len(MenuOptions))
	for i := range MenuOptions {
		items = append(items, zone.Mark(fmt.Sprintf("menu_%d", i), menuItem(s, i, props)))
	}

	menuBox := MenuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(BrandColor).Render("VIEWS"),
		CopyStyle.Render(ClusterSummary(s.View)),
		lipgloss.JoinVertical(lipgloss.Left, items...),
	))

	controls := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("#333")).
		Render("\n[↑/↓] Navigate • [Enter] Select • [Q] Quit")

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, header, menuBox, controls))
}

// menuItem draws one option box. The box pops out as the animated cursor
// approaches it and lightens when the mouse hovers nearby.
func menuItem(s state.AppState, i int, props ViewProps) string {
	strength := 0.0
	if dist := math.Abs(float64(i) - props.AnimCursor); dist < 1.0 {
		strength = 1.0 - dist
	}

	border := lipgloss.TerminalColor(BaseColor)
	center := menuListTop + i*menuItemHeight + 1
	if math.Abs(float64(props.MouseY-center)) < 5 {
		border = lipgloss.Color("#aaa")
	}
	selected := i == props.MenuCursor
	if selected || strength > 0.1 {
		border = BrandColor
	}

	title := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAA"))
	if selected {
		title = title.Bold(true).Foreground(lipgloss.Color("#FFF"))
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		title.Render(fmt.Sprintf("%02d. %s", i+1, MenuOptions[i])),
		OptionDetail(s, i),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		MarginLeft(2 + int(strength*2)).
		Width(menuItemWidth).
		Render(body)
}

// ClusterSummary is the one-line cluster state shown above the options.
func ClusterSummary(v output.DashboardView) string {
	if len(v.Sections) == 0 {
		return "Waiting for hosts to report"
	}
	return fmt.Sprintf("%d hosts reporting • %d log entries", len(v.Sections), len(v.Feed))
}

// OptionDetail is the second line of a menu option: a live preview of the
// page it opens.
func OptionDetail(s state.AppState, i int) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#666"))

	switch i {
	case 0:
		if len(s.View.Sections) == 0 {
			return dim.Render("no hosts")
		}
		return lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Foreground(styles.Finished).Render(fmt.Sprintf("%d active", s.View.ActiveHosts)),
			dim.Render(" • "),
			lipgloss.NewStyle().Foreground(styles.Warning).Render(fmt.Sprintf("%d idle", s.View.IdleHosts)),
		)
	case 1:
		if len(s.View.Feed) == 0 {
			return dim.Render("no task activity")
		}
		last := s.View.Feed[len(s.View.Feed)-1]
		return ColorForCategory(last.Category).Render(truncate(last.Text, menuItemWidth-4))
	case 2:
		sec, ok := s.Selected()
		if !ok {
			return dim.Render("no host selected")
		}
		return dim.Render(fmt.Sprintf("%s (%s)", sec.Title, sec.State))
	}
	return ""
}

func truncate(text string, width int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= width {
		return string(r)
	}
	return string(r[:width-1]) + "…"
}

var (
	BrandColor = lipgloss.Color("#f27b24")
	BaseColor  = lipgloss.Color("#444")

	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(BrandColor).
			Align(lipgloss.Left).
			Padding(1, 2)

	MenuBoxStyle = lipgloss.NewStyle().
			Padding(1, 0).
			MarginTop(1)

	CopyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)
)
