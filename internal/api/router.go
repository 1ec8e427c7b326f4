// Package api serves a read-only JSON view of the engine's latest frame plus
// the Prometheus registry.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostwatch/internal/engine"
	"hostwatch/internal/logging"
	"hostwatch/internal/telemetry"
)

// FrameSource is satisfied by *engine.Engine.
type FrameSource interface {
	Current() engine.Frame
	Snapshot(ctx context.Context, hostname string) (telemetry.HostSnapshot, bool, error)
}

type Handler struct {
	source FrameSource
}

func NewHandler(source FrameSource) *Handler {
	return &Handler{source: source}
}

// NewRouter wires the status routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/hosts", h.Hosts)
		r.Get("/hosts/{hostname}", h.Host)
		r.Get("/logs", h.Logs)
	})
	return r
}

// NewServer returns an http.Server for addr with conservative timeouts.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func requestLogger(next http.Handler) http.Handler {
	log := logging.Component("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
