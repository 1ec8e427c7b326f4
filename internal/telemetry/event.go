package telemetry

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Category classifies a log event for display.
type Category string

const (
	CategoryAssigned Category = "assigned"
	CategoryFinished Category = "finished"
	CategoryInfo     Category = "info"
	CategoryError    Category = "error"
)

// Source identifies which producer an event came from.
type Source string

const (
	SourcePush  Source = "push"
	SourcePoll  Source = "poll"
	SourceLocal Source = "local"
)

var (
	ErrMissingTask    = errors.New("missing task name")
	ErrUnknownEvent   = errors.New("unknown event name")
	ErrMissingWorker  = errors.New("missing worker")
	errEmptyEventText = errors.New("empty event text")
)

// LogEvent is a normalized entry of the task log feed.
type LogEvent struct {
	Seq         uint64   `json:"seq"`
	Text        string   `json:"text"`
	Category    Category `json:"category"`
	TimestampMs int64    `json:"timestamp_ms"`
	Source      Source   `json:"source"`
	Hostname    string   `json:"hostname,omitempty"`
	Task        string   `json:"task,omitempty"`
}

// EventKey is the deduplication identity of a polled log record.
type EventKey struct {
	Hostname string
	Task     string
	Category Category
}

// Key returns the dedup identity of e. Only polled events have one.
func (e LogEvent) Key() (EventKey, bool) {
	if e.Source != SourcePoll {
		return EventKey{}, false
	}
	return EventKey{Hostname: e.Hostname, Task: e.Task, Category: e.Category}, true
}

// LogRecord is the wire form returned by GET /logs.
type LogRecord struct {
	TaskName  string          `json:"task_name"`
	Hostname  string          `json:"hostname"`
	Delivered bool            `json:"delivered"`
	CreatedAt json.RawMessage `json:"created_at"`
}

// Event converts a polled record into a LogEvent.
func (r LogRecord) Event() (LogEvent, error) {
	if r.TaskName == "" {
		return LogEvent{}, ErrMissingTask
	}
	ts, err := ParseTimestamp(r.CreatedAt)
	if err != nil {
		return LogEvent{}, fmt.Errorf("task %s: %w", r.TaskName, err)
	}
	cat := CategoryAssigned
	if r.Delivered {
		cat = CategoryFinished
	}
	return LogEvent{
		Text:        taskText(cat, r.TaskName, r.Hostname),
		Category:    cat,
		TimestampMs: ts,
		Source:      SourcePoll,
		Hostname:    r.Hostname,
		Task:        r.TaskName,
	}, nil
}

// DecodeLogs decodes a JSON array of log records, skipping malformed entries.
func DecodeLogs(data []byte) (events []LogEvent, rejected []error, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode log batch: %w", err)
	}

	events = make([]LogEvent, 0, len(raw))
	for i, item := range raw {
		var rec LogRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			rejected = append(rejected, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		ev, err := rec.Event()
		if err != nil {
			rejected = append(rejected, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}
	return events, rejected, nil
}

// PushEvent is one message of the assigned/finished subscription.
// Name is carried by the SSE event line or by the "event" field of a
// websocket frame.
type PushEvent struct {
	Name   string `json:"event,omitempty"`
	Worker string `json:"worker"`
	Task   string `json:"task"`
}

// Event converts a push message into a LogEvent stamped with the time it was
// observed, since the stream carries no timestamp of its own.
func (p PushEvent) Event(observedMs int64) (LogEvent, error) {
	var cat Category
	switch p.Name {
	case string(CategoryAssigned):
		cat = CategoryAssigned
	case string(CategoryFinished):
		cat = CategoryFinished
	default:
		return LogEvent{}, fmt.Errorf("%w: %q", ErrUnknownEvent, p.Name)
	}
	if p.Task == "" {
		return LogEvent{}, ErrMissingTask
	}
	if p.Worker == "" {
		return LogEvent{}, ErrMissingWorker
	}
	return LogEvent{
		Text:        taskText(cat, p.Task, p.Worker),
		Category:    cat,
		TimestampMs: observedMs,
		Source:      SourcePush,
		Hostname:    p.Worker,
		Task:        p.Task,
	}, nil
}

// InfoEvent builds a locally generated informational entry.
func InfoEvent(text string, atMs int64) LogEvent {
	return LogEvent{Text: text, Category: CategoryInfo, TimestampMs: atMs, Source: SourceLocal}
}

// ErrorEvent builds a locally generated error entry.
func ErrorEvent(text string, atMs int64) LogEvent {
	return LogEvent{Text: text, Category: CategoryError, TimestampMs: atMs, Source: SourceLocal}
}

// Validate rejects events that cannot be displayed.
func (e LogEvent) Validate() error {
	if e.Text == "" {
		return errEmptyEventText
	}
	return nil
}

func taskText(cat Category, task, host string) string {
	if host == "" {
		host = "unknown"
	}
	switch cat {
	case CategoryFinished:
		return fmt.Sprintf("> Task %s finished on %s", task, host)
	default:
		return fmt.Sprintf("> Task %s assigned to %s", task, host)
	}
}
