// Command hostwatch-mcp exposes the hostwatch engine to MCP clients over
// stdio. It polls the backend exactly like the dashboard does.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hostwatch/internal/app"
	"hostwatch/internal/config"
	"hostwatch/internal/logging"
	"hostwatch/internal/mcpserver"
)

// workers is the part of *app.App this command drives.
type workers interface {
	Start(ctx context.Context) <-chan error
	Report()
}

type protocolServer interface {
	Start(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	local := flag.Bool("local", false, "report this machine instead of polling a backend")
	flag.Parse()

	if err := run(*configPath, *local); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, local bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadWithKoanf()
	}
	if err != nil {
		return err
	}
	c := *cfg
	if local {
		c = c.WithLocal(true)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	// stdout carries the protocol
	logging.Init(c.LoggingFor(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(c, logging.NewSlogLogger())
	if err != nil {
		return err
	}
	return serve(ctx, a, mcpserver.NewServer(mcpserver.DefaultConfig(), a.Engine))
}

// serve runs the workers for as long as the protocol server runs. A server
// error is returned unless it was caused by ctx ending.
func serve(ctx context.Context, w workers, srv protocolServer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	treeErr := w.Start(ctx)

	serveErr := srv.Start(ctx)
	interrupted := ctx.Err() != nil

	cancel()
	<-treeErr
	w.Report()

	if serveErr == nil || interrupted || errors.Is(serveErr, context.Canceled) {
		return nil
	}
	return fmt.Errorf("mcp server: %w", serveErr)
}
