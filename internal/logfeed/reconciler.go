// Package logfeed merges task events from the push stream, the log poller and
// the engine itself into one bounded, time-ordered feed.
package logfeed

import (
	"fmt"
	"sort"

	"hostwatch/internal/telemetry"
)

const DefaultCapacity = 10

// Kind selects the merge policy applied to a Batch.
type Kind int

const (
	// PushSource events are appended and always treated as new.
	PushSource Kind = iota
	// PollSource batches replace the previously polled window.
	PollSource
	// LocalSource events are engine-generated Info and Error entries.
	LocalSource
)

func (k Kind) String() string {
	switch k {
	case PushSource:
		return "push"
	case PollSource:
		return "poll"
	case LocalSource:
		return "local"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) source() telemetry.Source {
	switch k {
	case PollSource:
		return telemetry.SourcePoll
	case LocalSource:
		return telemetry.SourceLocal
	default:
		return telemetry.SourcePush
	}
}

// Batch is one delivery from a single source. IssueSeq is only read for
// PollSource; zero means the poll is unsequenced and always applied.
type Batch struct {
	Kind     Kind
	Events   []telemetry.LogEvent
	IssueSeq uint64
}

type Result struct {
	Accepted int
	Rejected int
	Stale    bool
	Changed  bool
}

// Reconciler owns the feed. It is not safe for concurrent use.
type Reconciler struct {
	capacity int
	appended []telemetry.LogEvent
	polled   []telemetry.LogEvent
	seq      uint64
	lastPoll uint64
	revision uint64
}

func New(capacity int) *Reconciler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Reconciler{capacity: capacity}
}

func (r *Reconciler) Capacity() int { return r.capacity }

// Revision increases every time the visible feed may have changed.
func (r *Reconciler) Revision() uint64 { return r.revision }

func (r *Reconciler) Apply(b Batch) Result {
	switch b.Kind {
	case PollSource:
		return r.applyPoll(b)
	default:
		return r.applyAppend(b)
	}
}

func (r *Reconciler) applyAppend(b Batch) Result {
	var res Result
	for _, ev := range b.Events {
		if err := ev.Validate(); err != nil {
			res.Rejected++
			continue
		}
		if ev.Source == "" {
			ev.Source = b.Kind.source()
		}
		r.seq++
		ev.Seq = r.seq
		r.appended = append(r.appended, ev)
		res.Accepted++
	}
	for len(r.appended) > r.capacity {
		r.appended = r.appended[1:]
	}
	if res.Accepted > 0 {
		res.Changed = true
		r.revision++
	}
	return res
}

func (r *Reconciler) applyPoll(b Batch) Result {
	var res Result
	if b.IssueSeq != 0 && b.IssueSeq < r.lastPoll {
		res.Stale = true
		return res
	}
	if b.IssueSeq > r.lastPoll {
		r.lastPoll = b.IssueSeq
	}

	newest := make(map[telemetry.EventKey]int, len(b.Events))
	window := make([]telemetry.LogEvent, 0, len(b.Events))
	for _, ev := range b.Events {
		if err := ev.Validate(); err != nil {
			res.Rejected++
			continue
		}
		ev.Source = telemetry.SourcePoll
		key, _ := ev.Key()
		if i, ok := newest[key]; ok {
			if window[i].TimestampMs <= ev.TimestampMs {
				window[i] = ev
			}
			continue
		}
		newest[key] = len(window)
		window = append(window, ev)
	}
	res.Accepted = len(window)

	sortDescending(window)
	if len(window) > r.capacity {
		window = window[:r.capacity]
	}

	if samePoll(r.polled, window) {
		return res
	}
	for i := len(window) - 1; i >= 0; i-- {
		r.seq++
		window[i].Seq = r.seq
	}
	r.polled = window
	r.revision++
	res.Changed = true
	return res
}

// Feed returns at most Capacity entries, oldest first.
func (r *Reconciler) Feed() []telemetry.LogEvent {
	merged := r.merged()
	out := make([]telemetry.LogEvent, len(merged))
	for i, ev := range merged {
		out[len(merged)-1-i] = ev
	}
	return out
}

// Latest returns the newest entry of the feed.
func (r *Reconciler) Latest() (telemetry.LogEvent, bool) {
	merged := r.merged()
	if len(merged) == 0 {
		return telemetry.LogEvent{}, false
	}
	return merged[0], true
}

func (r *Reconciler) Len() int { return len(r.merged()) }

// merged is the storage order: newest first, truncated to capacity.
func (r *Reconciler) merged() []telemetry.LogEvent {
	all := make([]telemetry.LogEvent, 0, len(r.appended)+len(r.polled))
	all = append(all, r.appended...)
	all = append(all, r.polled...)
	sortDescending(all)
	if len(all) > r.capacity {
		all = all[:r.capacity]
	}
	return all
}

func sortDescending(evs []telemetry.LogEvent) {
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].TimestampMs != evs[j].TimestampMs {
			return evs[i].TimestampMs > evs[j].TimestampMs
		}
		return evs[i].Seq > evs[j].Seq
	})
}

// samePoll ignores Seq so an unchanged poll does not bump the revision.
func samePoll(a, b []telemetry.LogEvent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ka, _ := a[i].Key()
		kb, _ := b[i].Key()
		if ka != kb || a[i].TimestampMs != b[i].TimestampMs || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}
