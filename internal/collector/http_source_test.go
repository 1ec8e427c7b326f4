package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

const metricsPayload = `[
	{"hostname":"alpha","cpu_percent":12.5,"ram_total_mb":8000,"ram_used_mb":4000,"ram_percent":50,"temperature":null,"timestamp":"2025-03-14T09:26:53.589000"},
	{"hostname":"","cpu_percent":1,"timestamp":1700000000},
	{"hostname":"beta","cpu_percent":80,"ram_total_mb":16000,"ram_used_mb":8000,"ram_percent":50,"temperature":55,"timestamp":1700000000}
]`

const logsPayload = `[
	{"task_name":"blur-1","hostname":"w1","delivered":true,"created_at":"2025-03-14T09:26:53"},
	{"task_name":"blur-2","hostname":"w2","delivered":false,"created_at":1700000000}
]`

func newTestSource(t *testing.T, handler http.Handler, cfg CollectorConfig) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := NewHTTPSource(cfg.WithAPIURL(srv.URL+"/"), srv.Client())
	if err != nil {
		t.Fatalf("NewHTTPSource failed: %v", err)
	}
	return src
}

func TestFetchMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(metricsPayload))
	})
	src := newTestSource(t, mux, DefaultCollectorConfig())

	batch, err := src.FetchMetrics(context.Background())
	if err != nil {
		t.Fatalf("FetchMetrics failed: %v", err)
	}
	if len(batch.Snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(batch.Snapshots))
	}
	if len(batch.Rejected) != 1 {
		t.Errorf("Expected 1 rejected record, got %d", len(batch.Rejected))
	}
	if batch.Snapshots[1].TimestampMs != 1700000000000 {
		t.Errorf("Expected seconds to be normalized, got %d", batch.Snapshots[1].TimestampMs)
	}
}

func TestFetchLogsSendsLimit(t *testing.T) {
	var gotLimit string
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(logsPayload))
	})
	src := newTestSource(t, mux, DefaultCollectorConfig())

	batch, err := src.FetchLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchLogs failed: %v", err)
	}
	if gotLimit != "10" {
		t.Errorf("Expected limit=10, got %q", gotLimit)
	}
	if len(batch.Events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(batch.Events))
	}
	if batch.Events[0].Text != "> Task blur-1 finished on w1" {
		t.Errorf("Unexpected text %q", batch.Events[0].Text)
	}
}

func TestFetchStatusError(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}), DefaultCollectorConfig())

	_, err := src.FetchMetrics(context.Background())
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if serr.Code != http.StatusBadGateway || serr.Endpoint != "metrics" {
		t.Errorf("Unexpected status error %+v", serr)
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}), DefaultCollectorConfig())

	if _, err := src.FetchMetrics(context.Background()); err == nil {
		t.Error("Expected an error for a non-array payload")
	}
}

func TestBreakerOpensPerEndpoint(t *testing.T) {
	var metricsHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metricsHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	cfg := DefaultCollectorConfig().WithBreaker(2, time.Hour)
	src := newTestSource(t, mux, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		src.FetchMetrics(ctx)
	}
	_, err := src.FetchMetrics(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Expected open breaker, got %v", err)
	}
	if metricsHits.Load() != 2 {
		t.Errorf("Expected the open breaker to stop requests, got %d hits", metricsHits.Load())
	}
	if _, err := src.FetchLogs(ctx, 10); err != nil {
		t.Errorf("Expected logs endpoint unaffected, got %v", err)
	}
	if states := src.BreakerStates(); states["metrics"] != "open" || states["logs"] != "closed" {
		t.Errorf("Unexpected breaker states %v", states)
	}
}

func TestFetchHonoursContext(t *testing.T) {
	release := make(chan struct{})
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), DefaultCollectorConfig())
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := src.FetchMetrics(ctx); err == nil {
		t.Error("Expected a timeout error")
	}
}
