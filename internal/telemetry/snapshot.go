// Package telemetry defines the records exchanged with the metrics backend and
// the normalized forms the reconciliation engine stores.
//
// Every timestamp entering the engine passes through ParseTimestamp exactly once,
// at decode time. Everything downstream works in epoch milliseconds.
package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// SecondsThreshold is the magnitude below which a numeric epoch value is read
// as seconds rather than milliseconds. 10^12 ms is September 2001, 10^12 s is
// tens of thousands of years away, so the two ranges cannot collide in practice.
const SecondsThreshold = 1e12

var (
	ErrMissingHostname  = errors.New("missing hostname")
	ErrMissingTimestamp = errors.New("missing timestamp")
	ErrBadTimestamp     = errors.New("unparsable timestamp")
)

// Epoch milliseconds of years 0001 and 9999. Values outside cannot be a
// measurement and would overflow the age arithmetic.
var (
	minEpochMs = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	maxEpochMs = time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()
)

// naive layouts are what Python's datetime.isoformat() produces without
// tzinfo. The backend writes local wall time there.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// HostSnapshot is a single point-in-time measurement for one host.
type HostSnapshot struct {
	Hostname    string   `json:"hostname"`
	CPUPercent  float64  `json:"cpu_percent"`
	RAMTotalMB  float64  `json:"ram_total_mb"`
	RAMUsedMB   float64  `json:"ram_used_mb"`
	RAMPercent  float64  `json:"ram_percent"`
	Temperature *float64 `json:"temperature"`
	TimestampMs int64    `json:"timestamp_ms"`
}

// Time returns the normalized measurement instant.
func (s HostSnapshot) Time() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// HasTemperature reports whether the host reported a temperature reading.
func (s HostSnapshot) HasTemperature() bool {
	return s.Temperature != nil
}

// HostRecord is the wire form returned by GET /metrics.
type HostRecord struct {
	Hostname    string          `json:"hostname"`
	CPUPercent  float64         `json:"cpu_percent"`
	RAMTotalMB  float64         `json:"ram_total_mb"`
	RAMUsedMB   float64         `json:"ram_used_mb"`
	RAMPercent  float64         `json:"ram_percent"`
	Temperature *float64        `json:"temperature"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// Snapshot validates the record and normalizes its timestamp.
func (r HostRecord) Snapshot() (HostSnapshot, error) {
	if r.Hostname == "" {
		return HostSnapshot{}, ErrMissingHostname
	}
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return HostSnapshot{}, fmt.Errorf("host %s: %w", r.Hostname, err)
	}
	return HostSnapshot{
		Hostname:    r.Hostname,
		CPUPercent:  r.CPUPercent,
		RAMTotalMB:  r.RAMTotalMB,
		RAMUsedMB:   r.RAMUsedMB,
		RAMPercent:  r.RAMPercent,
		Temperature: r.Temperature,
		TimestampMs: ts,
	}, nil
}

// DecodeHosts decodes a JSON array of host records. Records that fail to decode
// or validate are skipped and reported in rejected; err is only set when the
// payload is not a JSON array at all.
func DecodeHosts(data []byte) (snapshots []HostSnapshot, rejected []error, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode host batch: %w", err)
	}

	snapshots = make([]HostSnapshot, 0, len(raw))
	for i, item := range raw {
		var rec HostRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			rejected = append(rejected, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		snap, err := rec.Snapshot()
		if err != nil {
			rejected = append(rejected, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rejected, nil
}

// NormalizeEpoch converts an epoch value in seconds or milliseconds to
// milliseconds, using SecondsThreshold to tell the units apart.
func NormalizeEpoch(v float64) int64 {
	if math.Abs(v) < SecondsThreshold {
		return int64(math.Round(v * 1000))
	}
	return int64(math.Round(v))
}

// epochMillis is NormalizeEpoch restricted to representable instants.
func epochMillis(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrBadTimestamp, v)
	}
	ms := v
	if math.Abs(v) < SecondsThreshold {
		ms = v * 1000
	}
	if ms < float64(minEpochMs) || ms > float64(maxEpochMs) {
		return 0, fmt.Errorf("%w: %v out of range", ErrBadTimestamp, v)
	}
	return NormalizeEpoch(v), nil
}

// ParseTimestamp accepts a JSON number (epoch seconds or milliseconds) or a JSON
// string (RFC 3339, naive ISO-8601 read as local time, or a numeric string) and
// returns epoch milliseconds.
func ParseTimestamp(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrMissingTimestamp
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBadTimestamp, err)
		}
		return ParseTimestampString(s)
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadTimestamp, err)
	}
	return epochMillis(v)
}

// ParseTimestampString is the string half of ParseTimestamp. Naive values are
// read in time.Local.
func ParseTimestampString(s string) (int64, error) {
	return ParseTimestampStringIn(s, time.Local)
}

// ParseTimestampStringIn is ParseTimestampString with naive values read in loc.
func ParseTimestampStringIn(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingTimestamp
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return epochMillis(v)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}
