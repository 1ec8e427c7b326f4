package mcpserver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hostwatch/internal/engine"
	"hostwatch/internal/telemetry"
)

// MockSource implements Source for testing
type MockSource struct {
	Frame    engine.Frame
	Stored   map[string]telemetry.HostSnapshot
	QueryErr error
}

func (m *MockSource) Current() engine.Frame {
	return m.Frame
}

func (m *MockSource) Snapshot(ctx context.Context, hostname string) (telemetry.HostSnapshot, bool, error) {
	if m.QueryErr != nil {
		return telemetry.HostSnapshot{}, false, m.QueryErr
	}
	s, ok := m.Stored[hostname]
	return s, ok, nil
}

func newMockSource() *MockSource {
	temp := 55.0
	return &MockSource{
		Frame: engine.Frame{
			Now: time.UnixMilli(100000),
			Hosts: []engine.HostView{
				{
					HostSnapshot: telemetry.HostSnapshot{Hostname: "a", CPUPercent: 45.5, RAMPercent: 60, Temperature: &temp, TimestampMs: 95000},
					Liveness:     engine.Liveness{State: engine.Active, AgeMs: 5000},
				},
				{
					HostSnapshot: telemetry.HostSnapshot{Hostname: "b", CPUPercent: 85, TimestampMs: 85000},
					Liveness:     engine.Liveness{State: engine.Idle, AgeMs: 15000, RemainingSeconds: 15, ProgressFraction: 0.25},
				},
			},
			Logs: []telemetry.LogEvent{
				{Seq: 1, Text: "> Initializing…", Category: telemetry.CategoryInfo, Source: telemetry.SourceLocal, TimestampMs: 1000},
				{Seq: 2, Text: "> Fetched 2 hosts", Category: telemetry.CategoryInfo, Source: telemetry.SourceLocal, TimestampMs: 2000},
				{Seq: 3, Text: "> Task t1 assigned to w1", Category: telemetry.CategoryAssigned, Source: telemetry.SourcePush, TimestampMs: 3000},
			},
		},
		Stored: map[string]telemetry.HostSnapshot{
			"y": {Hostname: "y", CPUPercent: 3, TimestampMs: 69000},
		},
	}
}

func TestHandleListHosts(t *testing.T) {
	s := &Server{source: newMockSource()}

	tests := []struct {
		name  string
		state string
		want  []string
	}{
		{"all", "", []string{"a", "b"}},
		{"active only", "active", []string{"a"}},
		{"idle only", "idle", []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, result, err := s.handleListHosts(context.Background(), nil, ListHostsArgs{State: tt.state})
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if len(result.Hosts) != len(tt.want) {
				t.Fatalf("Expected %d hosts, got %d", len(tt.want), len(result.Hosts))
			}
			for i, name := range tt.want {
				if result.Hosts[i].Hostname != name {
					t.Errorf("Expected host %s at %d, got %s", name, i, result.Hosts[i].Hostname)
				}
			}
		})
	}
}

func TestHandleListHosts_InvalidState(t *testing.T) {
	s := &Server{source: newMockSource()}

	_, _, err := s.handleListHosts(context.Background(), nil, ListHostsArgs{State: "expired"})
	if err == nil {
		t.Fatal("Expected error for invalid state")
	}
	if !strings.Contains(err.Error(), "invalid state") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestHandleListHosts_IdleFields(t *testing.T) {
	s := &Server{source: newMockSource()}

	_, result, _ := s.handleListHosts(context.Background(), nil, ListHostsArgs{State: "idle"})
	b := result.Hosts[0]
	if b.State != "idle" || b.RemainingSeconds != 15 {
		t.Errorf("Expected idle with 15s remaining, got %+v", b)
	}
	if b.LastSeen != "1970-01-01T00:01:25Z" {
		t.Errorf("Unexpected last seen %s", b.LastSeen)
	}
}

func TestHandleGetHost(t *testing.T) {
	s := &Server{source: newMockSource()}

	_, host, err := s.handleGetHost(context.Background(), nil, GetHostArgs{Hostname: "a"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if host.CPUPercent != 45.5 {
		t.Errorf("Expected CPU 45.5, got %f", host.CPUPercent)
	}
	if len(host.Checks) != 4 {
		t.Errorf("Expected 4 checks with temperature, got %d", len(host.Checks))
	}
}

func TestHandleGetHost_Expired(t *testing.T) {
	s := &Server{source: newMockSource()}

	_, host, err := s.handleGetHost(context.Background(), nil, GetHostArgs{Hostname: "y"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if host.State != "expired" {
		t.Errorf("Expected expired state, got %s", host.State)
	}
}

func TestHandleGetHost_Errors(t *testing.T) {
	stopped := newMockSource()
	stopped.QueryErr = engine.ErrStopped

	tests := []struct {
		name   string
		source *MockSource
		host   string
	}{
		{"missing hostname", newMockSource(), ""},
		{"unknown host", newMockSource(), "nope"},
		{"engine stopped", stopped, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{source: tt.source}
			if _, _, err := s.handleGetHost(context.Background(), nil, GetHostArgs{Hostname: tt.host}); err == nil {
				t.Error("Expected error")
			}
		})
	}

	s := &Server{source: stopped}
	_, _, err := s.handleGetHost(context.Background(), nil, GetHostArgs{Hostname: "nope"})
	if !errors.Is(err, engine.ErrStopped) {
		t.Errorf("Expected wrapped ErrStopped, got %v", err)
	}
}

func TestHandleRecentLogs_LimitLogic(t *testing.T) {
	s := &Server{source: newMockSource()}

	tests := []struct {
		limit int
		want  int
		first string
	}{
		{0, 3, "> Initializing…"},
		{2, 2, "> Fetched 2 hosts"},
		{50, 3, "> Initializing…"},
	}

	for _, tt := range tests {
		_, result, err := s.handleRecentLogs(context.Background(), nil, RecentLogsArgs{Limit: tt.limit})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(result.Logs) != tt.want {
			t.Errorf("limit %d: expected %d logs, got %d", tt.limit, tt.want, len(result.Logs))
			continue
		}
		if result.Logs[0].Text != tt.first {
			t.Errorf("limit %d: expected first %q, got %q", tt.limit, tt.first, result.Logs[0].Text)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ServerName != "hostwatch" {
		t.Errorf("Expected server name hostwatch, got %s", cfg.ServerName)
	}
	if NewServer(cfg, newMockSource()).mcpServer == nil {
		t.Error("Expected MCP server to be constructed")
	}
}
