package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"hostwatch/internal/logging"
	"hostwatch/internal/metrics"
	"hostwatch/internal/telemetry"
)

const (
	endpointMetrics = "metrics"
	endpointLogs    = "logs"

	maxBodyBytes = 8 << 20
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Endpoint, e.Code, http.StatusText(e.Code))
}

// HTTPSource polls GET {base}/metrics and GET {base}/logs. Each endpoint has
// its own circuit breaker so a failing log route does not block metrics.
type HTTPSource struct {
	base   *url.URL
	client *http.Client

	metricsCB *gobreaker.CircuitBreaker[[]byte]
	logsCB    *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPSource(cfg CollectorConfig, client *http.Client) (*HTTPSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSource{
		base:      base,
		client:    client,
		metricsCB: newBreaker(endpointMetrics, cfg),
		logsCB:    newBreaker(endpointLogs, cfg),
	}, nil
}

func newBreaker(name string, cfg CollectorConfig) *gobreaker.CircuitBreaker[[]byte] {
	threshold := cfg.BreakerFailures
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("endpoint", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// BreakerStates reports the breaker state per endpoint, for the status API.
func (s *HTTPSource) BreakerStates() map[string]string {
	return map[string]string{
		endpointMetrics: s.metricsCB.State().String(),
		endpointLogs:    s.logsCB.State().String(),
	}
}

func (s *HTTPSource) FetchMetrics(ctx context.Context) (MetricsBatch, error) {
	body, err := s.get(ctx, s.metricsCB, endpointMetrics, s.endpoint("metrics", nil))
	if err != nil {
		return MetricsBatch{}, err
	}
	snaps, rejected, err := telemetry.DecodeHosts(body)
	if err != nil {
		return MetricsBatch{}, err
	}
	return MetricsBatch{Snapshots: snaps, Rejected: rejected}, nil
}

func (s *HTTPSource) FetchLogs(ctx context.Context, limit int) (LogBatch, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	body, err := s.get(ctx, s.logsCB, endpointLogs, s.endpoint("logs", q))
	if err != nil {
		return LogBatch{}, err
	}
	events, rejected, err := telemetry.DecodeLogs(body)
	if err != nil {
		return LogBatch{}, err
	}
	return LogBatch{Events: events, Rejected: rejected}, nil
}

func (s *HTTPSource) endpoint(path string, q url.Values) string {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *HTTPSource) get(ctx context.Context, cb *gobreaker.CircuitBreaker[[]byte], name, rawURL string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	body, err := cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", name, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &StatusError{Endpoint: name, Code: resp.StatusCode}
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read %s body: %w", name, err)
		}
		return data, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, err
	}
	return body, nil
}
