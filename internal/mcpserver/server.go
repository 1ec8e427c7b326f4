// Package mcpserver exposes the engine's latest frame to MCP clients over
// stdio: the live host list, a single host and the recent task log.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"hostwatch/internal/engine"
	"hostwatch/internal/logging"
	"hostwatch/internal/telemetry"
)

// Source is satisfied by *engine.Engine.
type Source interface {
	Current() engine.Frame
	Snapshot(ctx context.Context, hostname string) (telemetry.HostSnapshot, bool, error)
}

// Server wraps the MCP server with hostwatch tools.
type Server struct {
	mcpServer *mcp.Server
	source    Source
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
}

func DefaultConfig() Config {
	return Config{ServerName: "hostwatch", ServerVersion: "1.0.0"}
}

func NewServer(cfg Config, source Source) *Server {
	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}
	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		source:    source,
	}
	s.registerTools()
	return s
}

// ListHostsArgs defines the input for list_hosts.
type ListHostsArgs struct {
	State string `json:"state,omitempty" jsonschema:"only hosts in this state: active or idle"`
}

type ListHostsResult struct {
	Now   string        `json:"now" jsonschema:"time the frame was computed (RFC 3339)"`
	Hosts []HostSummary `json:"hosts" jsonschema:"live hosts sorted by hostname"`
}

// GetHostArgs defines the input for get_host.
type GetHostArgs struct {
	Hostname string `json:"hostname" jsonschema:"hostname to look up"`
}

// HostSummary is one host as reported to MCP clients.
type HostSummary struct {
	Hostname         string         `json:"hostname"`
	State            string         `json:"state" jsonschema:"active, idle or expired"`
	CPUPercent       float64        `json:"cpu_percent"`
	RAMPercent       float64        `json:"ram_percent"`
	RAMUsedMB        float64        `json:"ram_used_mb"`
	RAMTotalMB       float64        `json:"ram_total_mb"`
	Temperature      *float64       `json:"temperature,omitempty"`
	LastSeen         string         `json:"last_seen" jsonschema:"snapshot timestamp (RFC 3339)"`
	RemainingSeconds int            `json:"remaining_seconds,omitempty" jsonschema:"seconds until an idle host expires"`
	Checks           []CheckSummary `json:"checks,omitempty"`
}

type CheckSummary struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Status string  `json:"status"`
}

// RecentLogsArgs defines the input for recent_logs.
type RecentLogsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of entries, newest kept"`
}

type RecentLogsResult struct {
	Logs []LogLine `json:"logs" jsonschema:"task log entries, oldest first"`
}

type LogLine struct {
	Time     string `json:"time"`
	Category string `json:"category"`
	Source   string `json:"source"`
	Text     string `json:"text"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_hosts",
		Description: "List hosts that reported recently with CPU, RAM and liveness. Expired hosts are omitted.",
	}, s.handleListHosts)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_host",
		Description: "Get one host with its health checks. Hosts that expired but are still remembered are returned with state expired.",
	}, s.handleGetHost)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recent_logs",
		Description: "Get the recent task log: assignments, completions and dashboard notices, oldest first.",
	}, s.handleRecentLogs)
}

func (s *Server) handleListHosts(ctx context.Context, _ *mcp.CallToolRequest, args ListHostsArgs) (*mcp.CallToolResult, ListHostsResult, error) {
	switch args.State {
	case "", engine.Active.String(), engine.Idle.String():
	default:
		return nil, ListHostsResult{}, fmt.Errorf("invalid state: %s (must be 'active' or 'idle')", args.State)
	}

	f := s.source.Current()
	hosts := make([]HostSummary, 0, len(f.Hosts))
	for _, v := range f.Hosts {
		if args.State != "" && v.State.String() != args.State {
			continue
		}
		hosts = append(hosts, summarize(v, false))
	}
	return nil, ListHostsResult{Now: f.Now.UTC().Format(time.RFC3339), Hosts: hosts}, nil
}

func (s *Server) handleGetHost(ctx context.Context, _ *mcp.CallToolRequest, args GetHostArgs) (*mcp.CallToolResult, HostSummary, error) {
	if args.Hostname == "" {
		return nil, HostSummary{}, fmt.Errorf("hostname is required")
	}
	for _, v := range s.source.Current().Hosts {
		if v.Hostname == args.Hostname {
			return nil, summarize(v, true), nil
		}
	}

	snap, ok, err := s.source.Snapshot(ctx, args.Hostname)
	if err != nil {
		return nil, HostSummary{}, fmt.Errorf("failed to look up host: %w", err)
	}
	if !ok {
		return nil, HostSummary{}, fmt.Errorf("unknown host: %s", args.Hostname)
	}
	return nil, summarize(engine.HostView{
		HostSnapshot: snap,
		Liveness:     engine.Liveness{State: engine.Expired},
	}, false), nil
}

func (s *Server) handleRecentLogs(ctx context.Context, _ *mcp.CallToolRequest, args RecentLogsArgs) (*mcp.CallToolResult, RecentLogsResult, error) {
	logs := s.source.Current().Logs
	if args.Limit > 0 && args.Limit < len(logs) {
		logs = logs[len(logs)-args.Limit:]
	}

	lines := make([]LogLine, 0, len(logs))
	for _, l := range logs {
		lines = append(lines, LogLine{
			Time:     time.UnixMilli(l.TimestampMs).UTC().Format(time.RFC3339),
			Category: string(l.Category),
			Source:   string(l.Source),
			Text:     l.Text,
		})
	}
	return nil, RecentLogsResult{Logs: lines}, nil
}

func summarize(v engine.HostView, withChecks bool) HostSummary {
	h := HostSummary{
		Hostname:         v.Hostname,
		State:            v.State.String(),
		CPUPercent:       v.CPUPercent,
		RAMPercent:       v.RAMPercent,
		RAMUsedMB:        v.RAMUsedMB,
		RAMTotalMB:       v.RAMTotalMB,
		Temperature:      v.Temperature,
		LastSeen:         time.UnixMilli(v.TimestampMs).UTC().Format(time.RFC3339),
		RemainingSeconds: v.RemainingSeconds,
	}
	if withChecks {
		for _, c := range engine.Evaluate(v) {
			h.Checks = append(h.Checks, CheckSummary{Name: c.Name, Value: c.Value, Status: c.Status})
		}
	}
	return h
}

// Start serves MCP over stdio until ctx is cancelled or the client leaves.
func (s *Server) Start(ctx context.Context) error {
	logging.Info().Msg("starting hostwatch MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
