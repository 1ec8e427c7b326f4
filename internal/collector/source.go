// Package collector talks to the metrics backend and the local machine and
// yields decoded telemetry. Nothing here touches engine state.
package collector

import (
	"context"

	"hostwatch/internal/telemetry"
)

// MetricsBatch is one decoded /metrics response. Rejected holds the records
// that were skipped.
type MetricsBatch struct {
	Snapshots []telemetry.HostSnapshot
	Rejected  []error
}

type LogBatch struct {
	Events   []telemetry.LogEvent
	Rejected []error
}

type MetricsSource interface {
	FetchMetrics(ctx context.Context) (MetricsBatch, error)
}

type LogSource interface {
	FetchLogs(ctx context.Context, limit int) (LogBatch, error)
}

// EventStream delivers push events to handler until the connection drops or
// ctx is cancelled. It returns nil only when ctx ended the stream.
type EventStream interface {
	Name() string
	Stream(ctx context.Context, handler func(telemetry.PushEvent)) error
}
