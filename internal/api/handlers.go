package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"hostwatch/internal/engine"
	"hostwatch/internal/logging"
	"hostwatch/internal/telemetry"
)

type HealthResponse struct {
	Status   string    `json:"status"`
	Revision uint64    `json:"revision"`
	Now      time.Time `json:"now"`
}

type HostsResponse struct {
	Now   time.Time         `json:"now"`
	Hosts []engine.HostView `json:"hosts"`
}

type HostResponse struct {
	Host   engine.HostView      `json:"host"`
	Checks []engine.CheckResult `json:"checks"`
}

// ExpiredHostResponse is returned for a host that is still stored but no
// longer part of the frame.
type ExpiredHostResponse struct {
	Snapshot telemetry.HostSnapshot `json:"snapshot"`
	State    string                 `json:"state"`
}

type LogsResponse struct {
	Revision uint64               `json:"revision"`
	Logs     []telemetry.LogEvent `json:"logs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	f := h.source.Current()
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Revision: f.Revision, Now: f.Now})
}

func (h *Handler) Hosts(w http.ResponseWriter, r *http.Request) {
	f := h.source.Current()
	respondJSON(w, http.StatusOK, HostsResponse{Now: f.Now, Hosts: f.Hosts})
}

func (h *Handler) Host(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "hostname")
	for _, v := range h.source.Current().Hosts {
		if v.Hostname == name {
			respondJSON(w, http.StatusOK, HostResponse{Host: v, Checks: engine.Evaluate(v)})
			return
		}
	}

	snap, ok, err := h.source.Snapshot(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "unknown host "+name)
		return
	}
	respondJSON(w, http.StatusOK, ExpiredHostResponse{Snapshot: snap, State: engine.Expired.String()})
}

func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	f := h.source.Current()
	respondJSON(w, http.StatusOK, LogsResponse{Revision: f.LogRevision, Logs: f.Logs})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
