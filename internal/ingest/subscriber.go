package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hostwatch/internal/collector"
	"hostwatch/internal/engine"
	"hostwatch/internal/logging"
	"hostwatch/internal/metrics"
	"hostwatch/internal/telemetry"
)

var errStreamEnded = errors.New("stream ended")

// StreamSubscriber keeps a push stream open, forwarding each event to the
// sink stamped with the time it was observed. Reconnects are paced by a token
// bucket so a dead backend is not hammered.
type StreamSubscriber struct {
	stream  collector.EventStream
	sink    Sink
	limiter *rate.Limiter
	now     func() time.Time
	log     zerolog.Logger
}

func NewStreamSubscriber(stream collector.EventStream, sink Sink, cfg Config) *StreamSubscriber {
	burst := cfg.ReconnectBurst
	if burst < 1 {
		burst = 1
	}
	// rate.Every(0) is unlimited
	interval := cfg.ReconnectInterval
	if interval <= 0 {
		interval = DefaultConfig().ReconnectInterval
	}
	return &StreamSubscriber{
		stream:  stream,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		now:     time.Now,
		log:     logging.Component("stream-subscriber"),
	}
}

// Serve implements suture.Service. Disconnects are reported to the sink and
// retried; only context cancellation ends the loop.
func (s *StreamSubscriber) Serve(ctx context.Context) error {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		s.log.Debug().Str("stream", s.stream.Name()).Msg("connecting")
		err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = errStreamEnded
		}
		s.log.Warn().Err(err).Str("stream", s.stream.Name()).Msg("stream disconnected")
		s.sink.ReportFailure(engine.SourceStream, err)
	}
}

func (s *StreamSubscriber) String() string { return "stream-subscriber" }

func (s *StreamSubscriber) session(ctx context.Context) error {
	healthy := false
	return s.stream.Stream(ctx, func(p telemetry.PushEvent) {
		if !healthy {
			healthy = true
			s.sink.ReportRecovery(engine.SourceStream)
		}
		ev, err := p.Event(s.now().UnixMilli())
		if err != nil {
			metrics.LogRecordsDropped.Inc()
			s.log.Debug().Err(err).Str("event", p.Name).Msg("dropped push event")
			return
		}
		s.sink.SubmitPush(ev)
	})
}
