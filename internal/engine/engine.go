// Package engine reconciles host snapshots and task events into immutable
// frames. One goroutine (Run) owns all mutable state; producers only enqueue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"hostwatch/internal/clock"
	"hostwatch/internal/logfeed"
	"hostwatch/internal/logging"
	"hostwatch/internal/metrics"
	"hostwatch/internal/telemetry"
)

// ErrStopped is returned by Sync and Snapshot once the engine has been torn down.
var ErrStopped = errors.New("engine stopped")

// Failure sources reported by the ingest workers.
const (
	SourceMetrics = "metrics"
	SourceLogs    = "logs"
	SourceStream  = "stream"
)

const (
	initializingText = "> Initializing…"
	queueSize        = 64
)

type Config struct {
	Thresholds  Thresholds
	LogCapacity int
	// TickInterval of zero disables the internal clock driver; derived
	// fields then only move when Tick is called.
	TickInterval time.Duration
	// RetainExpired > 0 forgets hosts expired for longer than this.
	RetainExpired time.Duration
}

func DefaultConfig() Config {
	return Config{
		Thresholds:   DefaultThresholds(),
		LogCapacity:  logfeed.DefaultCapacity,
		TickInterval: clock.DefaultInterval,
	}
}

// Frame is one emission of the engine. Its slices are never shared with
// another frame.
type Frame struct {
	Hosts       []HostView           `json:"hosts"`
	Logs        []telemetry.LogEvent `json:"logs"`
	Now         time.Time            `json:"now"`
	Revision    uint64               `json:"revision"`
	LogRevision uint64               `json:"log_revision"`
}

type eventKind int

const (
	evTick eventKind = iota
	evSnapshots
	evLogPoll
	evPush
	evLocal
	evFailure
	evRecovery
	evSync
	evQuery
)

type event struct {
	kind      eventKind
	source    string
	snapshots []telemetry.HostSnapshot
	logs      []telemetry.LogEvent
	issueSeq  uint64
	err       error
	query     func()
	done      chan struct{}
}

type Engine struct {
	cfg    Config
	clock  clock.Clock
	log    zerolog.Logger
	events chan event
	done   chan struct{}

	started atomic.Bool
	current atomic.Pointer[Frame]

	subsMu sync.Mutex
	subs   map[chan Frame]struct{}
	closed bool

	// owned by the Run goroutine
	hosts    *HostTable
	feed     *logfeed.Reconciler
	failing  map[string]bool
	fetched  bool
	revision uint64
}

func New(cfg Config, c clock.Clock) (*Engine, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("engine thresholds: %w", err)
	}
	if c == nil {
		c = clock.Real{}
	}
	e := &Engine{
		cfg:     cfg,
		clock:   c,
		log:     logging.Component("engine"),
		events:  make(chan event, queueSize),
		done:    make(chan struct{}),
		subs:    make(map[chan Frame]struct{}),
		hosts:   NewHostTable(cfg.Thresholds),
		feed:    logfeed.New(cfg.LogCapacity),
		failing: make(map[string]bool),
	}
	e.current.Store(&Frame{Now: c.Now(), Hosts: []HostView{}, Logs: []telemetry.LogEvent{}})
	return e, nil
}

// Run processes events until ctx is cancelled. After it returns every Submit
// method is a no-op and subscriber channels are closed.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.teardown()

	var ticks <-chan time.Time
	if e.cfg.TickInterval > 0 {
		driver := clock.New(e.cfg.TickInterval)
		if err := driver.Start(ctx); err != nil {
			return err
		}
		defer driver.Stop()
		ticks = driver.C()
	}

	e.feed.Apply(logfeed.Batch{Kind: logfeed.LocalSource, Events: []telemetry.LogEvent{
		telemetry.InfoEvent(initializingText, e.clock.Now().UnixMilli()),
	}})
	e.emit()
	e.log.Debug().Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			e.log.Debug().Msg("engine stopped")
			return nil
		case <-ticks:
			e.handle(event{kind: evTick})
		case ev := <-e.events:
			e.handle(ev)
		}
	}
}

func (e *Engine) teardown() {
	close(e.done)

	e.subsMu.Lock()
	e.closed = true
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
	e.subsMu.Unlock()
}

// Done is closed once the engine has been torn down.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) submit(ev event) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.events <- ev:
		return true
	case <-e.done:
		return false
	}
}

// SubmitSnapshots hands a decoded metrics batch to the engine. It also marks
// the metrics source healthy.
func (e *Engine) SubmitSnapshots(batch []telemetry.HostSnapshot) bool {
	return e.submit(event{kind: evSnapshots, source: SourceMetrics, snapshots: batch})
}

// SubmitLogPoll hands a polled log window to the engine. Responses issued
// before the last applied poll are discarded.
func (e *Engine) SubmitLogPoll(events []telemetry.LogEvent, issueSeq uint64) bool {
	return e.submit(event{kind: evLogPoll, source: SourceLogs, logs: events, issueSeq: issueSeq})
}

func (e *Engine) SubmitPush(ev telemetry.LogEvent) bool {
	return e.submit(event{kind: evPush, logs: []telemetry.LogEvent{ev}})
}

// SubmitLocal appends engine-side Info or Error entries.
func (e *Engine) SubmitLocal(evs ...telemetry.LogEvent) bool {
	return e.submit(event{kind: evLocal, logs: evs})
}

// ReportFailure records a transport failure. Only the first failure of a
// streak produces an Error entry in the feed.
func (e *Engine) ReportFailure(source string, err error) bool {
	return e.submit(event{kind: evFailure, source: source, err: err})
}

// ReportRecovery ends a failure streak for source.
func (e *Engine) ReportRecovery(source string) bool {
	return e.submit(event{kind: evRecovery, source: source})
}

// Tick forces a recomputation at the current clock time.
func (e *Engine) Tick() bool {
	return e.submit(event{kind: evTick})
}

// Sync blocks until every event submitted before it has been applied.
func (e *Engine) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !e.submit(event{kind: evSync, done: done}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the latest frame.
func (e *Engine) Current() Frame {
	return *e.current.Load()
}

// Subscribe returns a channel holding at most the latest frame. Older frames
// are replaced, never queued. The channel is closed on teardown or cancel.
func (e *Engine) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 1)

	e.subsMu.Lock()
	if e.closed {
		e.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subs[ch] = struct{}{}
	ch <- e.Current()
	e.subsMu.Unlock()

	cancel := func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (e *Engine) handle(ev event) {
	log := e.log
	now := e.clock.Now().UnixMilli()

	switch ev.kind {
	case evSync:
		close(ev.done)
		return

	case evQuery:
		ev.query()
		close(ev.done)
		return

	case evTick:
		if n := e.hosts.Prune(now, e.cfg.RetainExpired); n > 0 {
			log.Debug().Int("removed", n).Msg("pruned expired hosts")
		}

	case evSnapshots:
		res := e.hosts.Upsert(ev.snapshots)
		log.Debug().
			Int("applied", res.Applied).
			Int("stale", res.Stale).
			Int("dropped", res.Dropped).
			Msg("snapshot batch")
		e.markHealthy(ev.source, now)
		if !e.fetched {
			e.fetched = true
			e.local(telemetry.InfoEvent(fmt.Sprintf("> Fetched %d hosts", len(ev.snapshots)), now))
		}

	case evLogPoll:
		res := e.feed.Apply(logfeed.Batch{Kind: logfeed.PollSource, Events: ev.logs, IssueSeq: ev.issueSeq})
		if res.Stale {
			metrics.LogPollsStale.Inc()
			log.Debug().Uint64("issue_seq", ev.issueSeq).Msg("discarded stale log poll")
		}
		e.markHealthy(ev.source, now)

	case evPush:
		e.feed.Apply(logfeed.Batch{Kind: logfeed.PushSource, Events: ev.logs})
		for _, l := range ev.logs {
			metrics.PushEvents.WithLabelValues(string(l.Category)).Inc()
		}

	case evLocal:
		e.feed.Apply(logfeed.Batch{Kind: logfeed.LocalSource, Events: ev.logs})

	case evFailure:
		metrics.TransportFailures.WithLabelValues(ev.source).Inc()
		if e.failing[ev.source] {
			break
		}
		e.failing[ev.source] = true
		log.Warn().Str("source", ev.source).Err(ev.err).Msg("transport failure")
		e.local(telemetry.ErrorEvent(errorText(ev.source, ev.err), now))

	case evRecovery:
		e.markHealthy(ev.source, now)
	}

	e.emit()
}

func (e *Engine) markHealthy(source string, now int64) {
	if !e.failing[source] {
		return
	}
	delete(e.failing, source)
	e.log.Info().Str("source", source).Msg("source recovered")
	e.local(telemetry.InfoEvent("> Recovered: "+source, now))
}

func (e *Engine) local(ev telemetry.LogEvent) {
	e.feed.Apply(logfeed.Batch{Kind: logfeed.LocalSource, Events: []telemetry.LogEvent{ev}})
}

func (e *Engine) emit() {
	now := e.clock.Now()
	e.revision++
	frame := &Frame{
		Hosts:       e.hosts.Views(now.UnixMilli()),
		Logs:        e.feed.Feed(),
		Now:         now,
		Revision:    e.revision,
		LogRevision: e.feed.Revision(),
	}
	e.current.Store(frame)
	e.record(frame)
	e.publish(*frame)
}

func (e *Engine) record(f *Frame) {
	var active, idle float64
	for _, h := range f.Hosts {
		if h.State == Active {
			active++
		} else {
			idle++
		}
	}
	metrics.HostsByState.WithLabelValues(Active.String()).Set(active)
	metrics.HostsByState.WithLabelValues(Idle.String()).Set(idle)
	metrics.HostsByState.WithLabelValues(Expired.String()).Set(float64(e.hosts.Len() - len(f.Hosts)))
	metrics.LogFeedSize.Set(float64(len(f.Logs)))
}

func (e *Engine) publish(f Frame) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- f:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
}

// Snapshot returns the stored snapshot for hostname, including hosts that
// have expired from the frame but are still in the table.
func (e *Engine) Snapshot(ctx context.Context, hostname string) (telemetry.HostSnapshot, bool, error) {
	var (
		snap telemetry.HostSnapshot
		ok   bool
	)
	done := make(chan struct{})
	query := func() { snap, ok = e.hosts.Get(hostname) }
	if !e.submit(event{kind: evQuery, query: query, done: done}) {
		return telemetry.HostSnapshot{}, false, ErrStopped
	}
	select {
	case <-done:
		return snap, ok, nil
	case <-e.done:
		return telemetry.HostSnapshot{}, false, ErrStopped
	case <-ctx.Done():
		return telemetry.HostSnapshot{}, false, ctx.Err()
	}
}

func errorText(source string, err error) string {
	if err == nil {
		return "> Error: " + source + " unavailable"
	}
	return fmt.Sprintf("> Error: %s: %v", source, err)
}
