package views

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/progress"

	"hostwatch/internal/output"
	"hostwatch/internal/telemetry"
	"hostwatch/ui/tui/state"
)

func TestClampScroll(t *testing.T) {
	tests := []struct {
		name                   string
		scroll, total, visible int
		want                   int
	}{
		{"fits on screen", 5, 3, 10, 0},
		{"past the end", 50, 30, 10, 20},
		{"negative", -1, 30, 10, 0},
		{"inside", 7, 30, 10, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampScroll(tt.scroll, tt.total, tt.visible); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestTerminalRowsAtLeastOne(t *testing.T) {
	if got := TerminalRows(0); got != 1 {
		t.Errorf("Expected 1 row for a zero height, got %d", got)
	}
	if TerminalRows(40) <= TerminalRows(20) {
		t.Error("Expected more rows on a taller terminal")
	}
}

func TestRenderCardIdle(t *testing.T) {
	sec := output.Section{
		ID:               "beta",
		Title:            "beta",
		State:            "idle",
		RemainingSeconds: 15,
		Progress:         0.25,
		Items: []output.Item{
			{Key: "cpu_usage", Label: "CPU Usage", Value: 85, Unit: "%", Status: "CRIT"},
		},
	}
	out := RenderCard(sec, ViewProps{Progress: progress.New()})

	for _, want := range []string{"beta", "idle", "expires in 15s", "CRIT"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected card to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderCardActiveHasNoCountdown(t *testing.T) {
	sec := output.Section{ID: "alpha", Title: "alpha", State: "active"}
	out := RenderCard(sec, ViewProps{Progress: progress.New()})
	if strings.Contains(out, "expires in") {
		t.Errorf("Expected no countdown on an active host, got:\n%s", out)
	}
}

func TestTerminalEmpty(t *testing.T) {
	out := TerminalView{}.Render(state.AppState{}, ViewProps{Width: 60, Height: 20})
	if !strings.Contains(out, "No task activity yet") {
		t.Errorf("Expected empty feed placeholder, got:\n%s", out)
	}
}

func TestHostViewWithoutHosts(t *testing.T) {
	out := HostView{}.Render(state.AppState{}, ViewProps{Width: 60, Height: 20})
	if !strings.Contains(out, "No hosts reporting") {
		t.Errorf("Expected placeholder, got:\n%s", out)
	}
}

func TestOptionDetail(t *testing.T) {
	live := state.AppState{
		View: output.DashboardView{
			Sections: []output.Section{
				{ID: "alpha", Title: "alpha", State: "active"},
				{ID: "beta", Title: "beta", State: "idle"},
				{ID: "gamma", Title: "gamma", State: "active"},
			},
			Feed: []output.FeedLine{
				{Time: "10:00:00", Text: "> Fetched 3 hosts", Category: telemetry.CategoryInfo},
				{Time: "10:00:01", Text: "Task 7 finished on beta", Category: telemetry.CategoryFinished},
			},
			ActiveHosts: 2,
			IdleHosts:   1,
		},
		SelectedHost: 1,
	}

	tests := []struct {
		name   string
		state  state.AppState
		option int
		want   []string
	}{
		{"dashboard counts", live, 0, []string{"2 active", "1 idle"}},
		{"terminal latest line", live, 1, []string{"Task 7 finished on beta"}},
		{"inspector selected host", live, 2, []string{"beta (idle)"}},
		{"dashboard empty", state.AppState{}, 0, []string{"no hosts"}},
		{"terminal empty", state.AppState{}, 1, []string{"no task activity"}},
		{"inspector empty", state.AppState{}, 2, []string{"no host selected"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := OptionDetail(tt.state, tt.option)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Expected %q in %q", want, out)
				}
			}
		})
	}
}

func TestClusterSummary(t *testing.T) {
	if got := ClusterSummary(output.DashboardView{}); got != "Waiting for hosts to report" {
		t.Errorf("Expected waiting message, got %q", got)
	}
	v := output.DashboardView{
		Sections: make([]output.Section, 2),
		Feed:     make([]output.FeedLine, 5),
	}
	if got := ClusterSummary(v); got != "2 hosts reporting • 5 log entries" {
		t.Errorf("Expected host and log counts, got %q", got)
	}
}

func TestTruncateLongFeedLine(t *testing.T) {
	got := truncate(strings.Repeat("x", 60), 10)
	if got != strings.Repeat("x", 9)+"…" {
		t.Errorf("Expected 9 runes and an ellipsis, got %q", got)
	}
	if got := truncate(" short ", 10); got != "short" {
		t.Errorf("Expected short, got %q", got)
	}
}
