// Package app assembles the engine, its ingest workers and the optional
// status server from a loaded config. Both binaries share it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"hostwatch/internal/api"
	"hostwatch/internal/collector"
	"hostwatch/internal/config"
	"hostwatch/internal/engine"
	"hostwatch/internal/ingest"
	"hostwatch/internal/logging"
	"hostwatch/internal/supervisor"
)

type App struct {
	Engine *engine.Engine

	tree       *supervisor.Tree
	metrics    *ingest.MetricsPoller
	logs       *ingest.LogPoller
	subscriber *ingest.StreamSubscriber
	status     *http.Server
}

// New wires every component but starts nothing. In local mode the metrics
// come from this machine and the task log is not polled.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	e, err := engine.New(cfg.Engine(), nil)
	if err != nil {
		return nil, err
	}

	ccfg := cfg.Collector()
	icfg := cfg.Ingest()
	a := &App{Engine: e, tree: supervisor.NewTree(logger, cfg.Supervisor())}

	client := &http.Client{}
	if cfg.Local.Enabled {
		a.metrics = ingest.NewMetricsPoller(collector.NewLocalSource(ccfg), e, icfg)
	} else {
		src, err := collector.NewHTTPSource(ccfg, client)
		if err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		a.metrics = ingest.NewMetricsPoller(src, e, icfg)
		a.logs = ingest.NewLogPoller(src, e, icfg)
	}

	switch ccfg.StreamKind {
	case collector.StreamSSE:
		a.subscriber = ingest.NewStreamSubscriber(collector.NewSSEStream(ccfg.StreamURL, client), e, icfg)
	case collector.StreamWebSocket:
		a.subscriber = ingest.NewStreamSubscriber(collector.NewWebSocketStream(ccfg.StreamURL, ccfg), e, icfg)
	}

	if cfg.Status.Addr != "" {
		a.status = api.NewServer(cfg.Status.Addr, api.NewHandler(e))
	}

	a.tree.AddCoreService(supervisor.NewEngineService(e))
	a.tree.AddIngestService(a.metrics)
	if a.logs != nil {
		a.tree.AddIngestService(a.logs)
	}
	if a.subscriber != nil {
		a.tree.AddIngestService(a.subscriber)
	}
	if a.status != nil {
		a.tree.AddAPIService(supervisor.NewHTTPServerService(a.status, cfg.Supervisor().ShutdownTimeout))
	}

	logging.Info().
		Bool("local", cfg.Local.Enabled).
		Str("backend", ccfg.APIURL).
		Str("stream", ccfg.StreamKind).
		Str("status_addr", cfg.Status.Addr).
		Msg("hostwatch configured")
	return a, nil
}

// Start runs the supervisor tree in the background. The returned channel
// yields the tree's exit error.
func (a *App) Start(ctx context.Context) <-chan error {
	return a.tree.ServeBackground(ctx)
}

// Report logs services that ignored the shutdown deadline.
func (a *App) Report() {
	unstopped, err := a.tree.UnstoppedServiceReport()
	if err != nil {
		logging.Warn().Err(err).Msg("could not collect shutdown report")
		return
	}
	for _, u := range unstopped {
		logging.Warn().Str("service", u.Name).Msg("service did not stop in time")
	}
}

// Once runs the engine just long enough to apply one fetch of every polled
// source and returns the resulting frame. Fetch failures end up in the task
// log, as they would on the dashboard.
func (a *App) Once(ctx context.Context) (engine.Frame, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- a.Engine.Run(ctx) }()

	a.metrics.PullOnce(ctx)
	if a.logs != nil {
		a.logs.PullOnce(ctx)
	}
	if err := a.Engine.Sync(ctx); err != nil {
		return engine.Frame{}, err
	}
	frame := a.Engine.Current()

	cancel()
	<-runErr
	return frame, nil
}
