// Package ingest runs the workers that move data from the collector sources
// into the engine: two fixed-interval pollers and a push stream subscriber.
// Every worker is a suture.Service.
package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"hostwatch/internal/collector"
	"hostwatch/internal/engine"
	"hostwatch/internal/logging"
	"hostwatch/internal/metrics"
	"hostwatch/internal/telemetry"
)

// Sink is the part of the engine the workers feed. *engine.Engine satisfies it.
type Sink interface {
	SubmitSnapshots(batch []telemetry.HostSnapshot) bool
	SubmitLogPoll(events []telemetry.LogEvent, issueSeq uint64) bool
	SubmitPush(ev telemetry.LogEvent) bool
	ReportFailure(source string, err error) bool
	ReportRecovery(source string) bool
}

type Config struct {
	MetricsInterval time.Duration
	LogInterval     time.Duration
	FetchTimeout    time.Duration
	// MaxInFlight bounds overlapping fetches per poller. Ticks that find
	// every slot busy are skipped.
	MaxInFlight int
	LogLimit    int

	ReconnectInterval time.Duration
	ReconnectBurst    int
}

func DefaultConfig() Config {
	return Config{
		MetricsInterval:   5 * time.Second,
		LogInterval:       2 * time.Second,
		FetchTimeout:      4 * time.Second,
		MaxInFlight:       2,
		LogLimit:          10,
		ReconnectInterval: 2 * time.Second,
		ReconnectBurst:    1,
	}
}

// schedule fires run immediately and then every interval, each run on its own
// goroutine with its own timeout.
type schedule struct {
	name     string
	source   string
	interval time.Duration
	timeout  time.Duration
	slots    chan struct{}
	seq      atomic.Uint64
	sink     Sink
	log      zerolog.Logger
	run      func(ctx context.Context, seq uint64) error

	wg sync.WaitGroup
}

func newSchedule(name, source string, interval time.Duration, cfg Config, sink Sink) *schedule {
	inFlight := cfg.MaxInFlight
	if inFlight < 1 {
		inFlight = 1
	}
	return &schedule{
		name:     name,
		source:   source,
		interval: interval,
		timeout:  cfg.FetchTimeout,
		slots:    make(chan struct{}, inFlight),
		sink:     sink,
		log:      logging.Component(name),
	}
}

func (s *schedule) serve(ctx context.Context) error {
	defer s.wg.Wait()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.fire(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

func (s *schedule) fire(ctx context.Context) {
	select {
	case s.slots <- struct{}{}:
	default:
		metrics.FetchesSkipped.WithLabelValues(s.source).Inc()
		s.log.Debug().Msg("fetch skipped, all slots busy")
		return
	}

	seq := s.seq.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.slots }()
		s.once(ctx, seq)
	}()
}

// once runs a single fetch and reports its failure unless ctx ended first.
func (s *schedule) once(ctx context.Context, seq uint64) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.run(fetchCtx, seq)
	if err == nil || ctx.Err() != nil {
		return err
	}
	s.log.Warn().Err(err).Uint64("issue_seq", seq).Msg("fetch failed")
	s.sink.ReportFailure(s.source, err)
	return err
}

// MetricsPoller fetches host snapshots on a fixed interval.
type MetricsPoller struct {
	source collector.MetricsSource
	sink   Sink
	sched  *schedule
}

func NewMetricsPoller(source collector.MetricsSource, sink Sink, cfg Config) *MetricsPoller {
	p := &MetricsPoller{source: source, sink: sink}
	p.sched = newSchedule("metrics-poller", engine.SourceMetrics, cfg.MetricsInterval, cfg, sink)
	p.sched.run = p.poll
	return p
}

// Serve implements suture.Service.
func (p *MetricsPoller) Serve(ctx context.Context) error { return p.sched.serve(ctx) }

func (p *MetricsPoller) String() string { return p.sched.name }

// PullOnce executes a single fetch immediately.
func (p *MetricsPoller) PullOnce(ctx context.Context) error {
	return p.sched.once(ctx, p.sched.seq.Add(1))
}

func (p *MetricsPoller) poll(ctx context.Context, _ uint64) error {
	batch, err := p.source.FetchMetrics(ctx)
	if err != nil {
		return err
	}
	if n := len(batch.Rejected); n > 0 {
		metrics.SnapshotsDropped.WithLabelValues(metrics.ReasonMalformed).Add(float64(n))
		p.sched.log.Debug().Int("rejected", n).Err(batch.Rejected[0]).Msg("dropped malformed host records")
	}
	p.sink.SubmitSnapshots(batch.Snapshots)
	return nil
}

// LogPoller fetches the most recent task log window on a fixed interval.
// Each request carries an issue sequence so the engine can discard responses
// that arrive out of order.
type LogPoller struct {
	source collector.LogSource
	sink   Sink
	limit  int
	sched  *schedule
}

func NewLogPoller(source collector.LogSource, sink Sink, cfg Config) *LogPoller {
	p := &LogPoller{source: source, sink: sink, limit: cfg.LogLimit}
	p.sched = newSchedule("log-poller", engine.SourceLogs, cfg.LogInterval, cfg, sink)
	p.sched.run = p.poll
	return p
}

// Serve implements suture.Service.
func (p *LogPoller) Serve(ctx context.Context) error { return p.sched.serve(ctx) }

func (p *LogPoller) String() string { return p.sched.name }

// PullOnce executes a single fetch immediately.
func (p *LogPoller) PullOnce(ctx context.Context) error {
	return p.sched.once(ctx, p.sched.seq.Add(1))
}

func (p *LogPoller) poll(ctx context.Context, seq uint64) error {
	batch, err := p.source.FetchLogs(ctx, p.limit)
	if err != nil {
		return err
	}
	if n := len(batch.Rejected); n > 0 {
		metrics.LogRecordsDropped.Add(float64(n))
		p.sched.log.Debug().Int("rejected", n).Err(batch.Rejected[0]).Msg("dropped malformed log records")
	}
	p.sink.SubmitLogPoll(batch.Events, seq)
	return nil
}
