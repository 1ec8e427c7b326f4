package engine

import (
	"testing"

	"hostwatch/internal/telemetry"
)

func TestEvaluate(t *testing.T) {
	temp := 48.5

	tests := []struct {
		name     string
		view     HostView
		expected map[string]string // Metric Name -> Expected Status
		absent   []string
	}{
		{
			name: "All Healthy",
			view: HostView{
				HostSnapshot: telemetry.HostSnapshot{Hostname: "a", CPUPercent: 10, RAMPercent: 20},
				Liveness:     Liveness{State: Active},
			},
			expected: map[string]string{
				"CPU Usage":          StatusHealthy,
				"RAM Usage":          StatusHealthy,
				"Last Seen (active)": StatusHealthy,
			},
			absent: []string{"Temperature"},
		},
		{
			name: "CPU Critical",
			view: HostView{
				HostSnapshot: telemetry.HostSnapshot{Hostname: "a", CPUPercent: 95, RAMPercent: 20},
			},
			expected: map[string]string{
				"CPU Usage": StatusCritical,
			},
		},
		{
			name: "RAM Warning at boundary",
			view: HostView{
				HostSnapshot: telemetry.HostSnapshot{Hostname: "a", CPUPercent: 60, RAMPercent: 60.5},
			},
			expected: map[string]string{
				"CPU Usage": StatusHealthy,
				"RAM Usage": StatusWarning,
			},
		},
		{
			name: "Idle host with temperature",
			view: HostView{
				HostSnapshot: telemetry.HostSnapshot{Hostname: "a", Temperature: &temp},
				Liveness:     Liveness{State: Idle, AgeMs: 15000},
			},
			expected: map[string]string{
				"Temperature":      StatusHealthy,
				"Last Seen (idle)": StatusWarning,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Evaluate(tt.view)

			seen := make(map[string]bool)
			for _, res := range results {
				seen[res.Name] = true
				if want, ok := tt.expected[res.Name]; ok {
					if res.Status != want {
						t.Errorf("%s: for %s expected %s, got %s (Value: %.2f)", tt.name, res.Name, want, res.Status, res.Value)
					}
				}
			}
			for name := range tt.expected {
				if !seen[name] {
					t.Errorf("%s: missing result %s", tt.name, name)
				}
			}
			for _, name := range tt.absent {
				if seen[name] {
					t.Errorf("%s: %s should have been skipped", tt.name, name)
				}
			}
		})
	}
}

func TestLoadStatus(t *testing.T) {
	if LoadStatus(81) != StatusCritical || LoadStatus(61) != StatusWarning || LoadStatus(60) != StatusHealthy {
		t.Error("Unexpected load grading around the 60/80 thresholds")
	}
}
