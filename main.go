package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"hostwatch/internal/app"
	"hostwatch/internal/config"
	"hostwatch/internal/logging"
	"hostwatch/internal/output"
	"hostwatch/ui/console"
	"hostwatch/ui/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $HOSTWATCH_CONFIG or ./hostwatch.yaml)")
	once := flag.Bool("once", false, "fetch once, print a console report and exit")
	local := flag.Bool("local", false, "report this machine instead of polling a backend")
	apiURL := flag.String("api", "", "backend base URL serving /metrics and /logs")
	statusAddr := flag.String("status", "", "serve the status API on this address, e.g. 127.0.0.1:9100")
	flag.Parse()

	if err := run(*configPath, *once, *local, *apiURL, *statusAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, once, local bool, apiURL, statusAddr string) error {
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
	if apiURL != "" {
		c = c.WithAPIURL(apiURL)
	}
	if statusAddr != "" {
		c = c.WithStatusAddr(statusAddr)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file unless we only print.
	var out io.Writer = os.Stderr
	if !once {
		f, err := logging.OpenFile(c.Logging.File)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logging.Init(c.LoggingFor(out))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(c, logging.NewSlogLogger())
	if err != nil {
		return err
	}

	if once {
		frame, err := a.Once(ctx)
		if err != nil {
			return err
		}
		console.Print(os.Stdout, output.BuildDashboard(frame))
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	treeErr := a.Start(ctx)

	uiErr := tui.Start(a.Engine)
	cancel()
	if err := <-treeErr; err != nil && err != context.Canceled {
		logging.Warn().Err(err).Msg("supervisor exited")
	}
	a.Report()
	return uiErr
}
