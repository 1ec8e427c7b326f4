package engine

import (
	"sort"
	"time"

	"hostwatch/internal/metrics"
	"hostwatch/internal/telemetry"
)

// HostView is a snapshot decorated with its liveness at emission time.
type HostView struct {
	telemetry.HostSnapshot
	Liveness
}

// UpsertResult counts what happened to each record of a batch.
type UpsertResult struct {
	Applied int
	Stale   int
	Dropped int
}

// HostTable keeps the latest snapshot per hostname. It is not safe for
// concurrent use; the engine loop owns it.
type HostTable struct {
	entries    map[string]telemetry.HostSnapshot
	thresholds Thresholds
	dropped    int
}

func NewHostTable(t Thresholds) *HostTable {
	return &HostTable{
		entries:    make(map[string]telemetry.HostSnapshot),
		thresholds: t,
	}
}

// Upsert stores every snapshot unless the table already holds a strictly
// newer one for the same host. Equal timestamps replace, so re-applying a
// batch is harmless.
func (h *HostTable) Upsert(batch []telemetry.HostSnapshot) UpsertResult {
	var res UpsertResult
	for _, snap := range batch {
		if snap.Hostname == "" {
			res.Dropped++
			h.dropped++
			metrics.SnapshotsDropped.WithLabelValues(metrics.ReasonMissingHostname).Inc()
			continue
		}
		if cur, ok := h.entries[snap.Hostname]; ok && cur.TimestampMs > snap.TimestampMs {
			res.Stale++
			metrics.SnapshotsStale.Inc()
			continue
		}
		h.entries[snap.Hostname] = snap
		res.Applied++
	}
	return res
}

// Views classifies every stored host at nowMs and returns the non-expired
// ones sorted by hostname.
func (h *HostTable) Views(nowMs int64) []HostView {
	views := make([]HostView, 0, len(h.entries))
	for _, snap := range h.entries {
		l := Classify(snap.TimestampMs, nowMs, h.thresholds)
		if l.State == Expired {
			continue
		}
		views = append(views, HostView{HostSnapshot: snap, Liveness: l})
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Hostname < views[j].Hostname
	})
	return views
}

// Prune forgets hosts that have been expired for longer than retain.
// A zero retain keeps everything.
func (h *HostTable) Prune(nowMs int64, retain time.Duration) int {
	if retain <= 0 {
		return 0
	}
	limit := h.thresholds.Expiry.Milliseconds() + retain.Milliseconds()
	removed := 0
	for name, snap := range h.entries {
		if nowMs-snap.TimestampMs > limit {
			delete(h.entries, name)
			removed++
		}
	}
	return removed
}

func (h *HostTable) Get(hostname string) (telemetry.HostSnapshot, bool) {
	snap, ok := h.entries[hostname]
	return snap, ok
}

// Dropped is the total number of snapshots rejected for a missing hostname.
func (h *HostTable) Dropped() int { return h.dropped }

func (h *HostTable) Len() int { return len(h.entries) }
