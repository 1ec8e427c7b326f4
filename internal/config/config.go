// Package config loads hostwatch settings from struct defaults, an optional
// YAML file and HOSTWATCH_* environment variables, in that order of
// precedence, and maps them onto the per-package configs.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"hostwatch/internal/collector"
	"hostwatch/internal/engine"
	"hostwatch/internal/ingest"
	"hostwatch/internal/logfeed"
	"hostwatch/internal/logging"
	"hostwatch/internal/supervisor"
)

// ConfigError is shared with the collector so every startup failure reads
// the same way.
type ConfigError = collector.ConfigError

type Config struct {
	Backend  BackendConfig  `koanf:"backend"`
	Stream   StreamConfig   `koanf:"stream"`
	Poll     PollConfig     `koanf:"poll"`
	Liveness LivenessConfig `koanf:"liveness"`
	Feed     FeedConfig     `koanf:"feed"`
	Local    LocalConfig    `koanf:"local"`
	Status   StatusConfig   `koanf:"status"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type BackendConfig struct {
	URL             string        `koanf:"url" validate:"omitempty,url"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout" validate:"gt=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" validate:"gt=0"`
}

type StreamConfig struct {
	Kind              string        `koanf:"kind" validate:"omitempty,oneof=sse websocket"`
	URL               string        `koanf:"url" validate:"omitempty,url"`
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gte=0"`
	ReconnectInterval time.Duration `koanf:"reconnect_interval" validate:"gt=0"`
}

type PollConfig struct {
	MetricsInterval time.Duration `koanf:"metrics_interval" validate:"gt=0"`
	LogInterval     time.Duration `koanf:"log_interval" validate:"gt=0"`
	MaxInFlight     int           `koanf:"max_in_flight" validate:"min=1"`
	LogLimit        int           `koanf:"log_limit" validate:"min=1,max=100"`
}

type LivenessConfig struct {
	Active        time.Duration `koanf:"active" validate:"gt=0"`
	Expiry        time.Duration `koanf:"expiry" validate:"gtfield=Active"`
	RetainExpired time.Duration `koanf:"retain_expired" validate:"gte=0"`
}

type FeedConfig struct {
	Capacity     int           `koanf:"capacity" validate:"min=1"`
	TickInterval time.Duration `koanf:"tick_interval" validate:"gt=0"`
}

// LocalConfig replaces the backend metrics with the machine hostwatch runs on.
type LocalConfig struct {
	Enabled      bool `koanf:"enabled"`
	Temperatures bool `koanf:"temperatures"`
}

// StatusConfig enables the read-only HTTP status API when Addr is set.
type StatusConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
	// File receives log output while the TUI owns the terminal.
	File string `koanf:"file"`
}

func defaultConfig() *Config {
	cc := collector.DefaultCollectorConfig()
	ic := ingest.DefaultConfig()
	return &Config{
		Backend: BackendConfig{
			URL:             cc.APIURL,
			FetchTimeout:    cc.FetchTimeout,
			BreakerFailures: cc.BreakerFailures,
			BreakerCooldown: cc.BreakerCooldown,
		},
		Stream: StreamConfig{
			Kind:              cc.StreamKind,
			HandshakeTimeout:  cc.HandshakeTimeout,
			ReadTimeout:       cc.ReadTimeout,
			ReconnectInterval: ic.ReconnectInterval,
		},
		Poll: PollConfig{
			MetricsInterval: ic.MetricsInterval,
			LogInterval:     ic.LogInterval,
			MaxInFlight:     ic.MaxInFlight,
			LogLimit:        ic.LogLimit,
		},
		Liveness: LivenessConfig{
			Active: engine.DefaultActiveWindow,
			Expiry: engine.DefaultExpiryWindow,
		},
		Feed: FeedConfig{
			Capacity:     logfeed.DefaultCapacity,
			TickInterval: time.Second,
		},
		Local: LocalConfig{
			Temperatures: cc.EnableTemperatures,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "hostwatch.log",
		},
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return *defaultConfig()
}

var validate = validator.New()

// Validate runs the tag rules and the cross-field checks.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{
				Field:   trimNamespace(fe.Namespace()),
				Message: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return fmt.Errorf("validate config: %w", err)
	}

	if c.Backend.URL == "" && !c.Local.Enabled {
		return &ConfigError{Field: "Backend.URL", Message: "is required unless local mode is enabled"}
	}
	if c.Stream.URL != "" && c.Stream.Kind == "" {
		return &ConfigError{Field: "Stream.Kind", Message: "is required when a stream url is set"}
	}
	return nil
}

func trimNamespace(ns string) string {
	const prefix = "Config."
	if len(ns) > len(prefix) && ns[:len(prefix)] == prefix {
		return ns[len(prefix):]
	}
	return ns
}

// WithAPIURL returns a copy of the config polling a different backend.
func (c Config) WithAPIURL(u string) Config {
	c.Backend.URL = u
	return c
}

// WithLocal returns a copy of the config with local mode toggled.
func (c Config) WithLocal(enabled bool) Config {
	c.Local.Enabled = enabled
	return c
}

// WithStatusAddr returns a copy of the config serving the status API on addr.
func (c Config) WithStatusAddr(addr string) Config {
	c.Status.Addr = addr
	return c
}

func (c Config) WithLogLevel(level string) Config {
	c.Logging.Level = level
	return c
}

// Collector maps the settings onto a collector config.
func (c Config) Collector() collector.CollectorConfig {
	kind := c.Stream.Kind
	if c.Stream.URL == "" {
		kind = collector.StreamNone
	}
	return collector.DefaultCollectorConfig().
		WithAPIURL(c.Backend.URL).
		WithStream(kind, c.Stream.URL).
		WithFetchTimeout(c.Backend.FetchTimeout).
		WithLogLimit(c.Poll.LogLimit).
		WithBreaker(c.Backend.BreakerFailures, c.Backend.BreakerCooldown).
		WithTemperatures(c.Local.Temperatures).
		WithStreamTimeouts(c.Stream.HandshakeTimeout, c.Stream.ReadTimeout)
}

func (c Config) Engine() engine.Config {
	return engine.Config{
		Thresholds: engine.Thresholds{
			Active: c.Liveness.Active,
			Expiry: c.Liveness.Expiry,
		},
		LogCapacity:   c.Feed.Capacity,
		TickInterval:  c.Feed.TickInterval,
		RetainExpired: c.Liveness.RetainExpired,
	}
}

func (c Config) Ingest() ingest.Config {
	return ingest.Config{
		MetricsInterval:   c.Poll.MetricsInterval,
		LogInterval:       c.Poll.LogInterval,
		FetchTimeout:      c.Backend.FetchTimeout,
		MaxInFlight:       c.Poll.MaxInFlight,
		LogLimit:          c.Poll.LogLimit,
		ReconnectInterval: c.Stream.ReconnectInterval,
		ReconnectBurst:    1,
	}
}

func (c Config) Supervisor() supervisor.TreeConfig {
	return supervisor.DefaultTreeConfig()
}

// LoggingFor builds the logger config writing to out.
func (c Config) LoggingFor(out io.Writer) logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Caller: c.Logging.Caller,
		Output: out,
	}
}
