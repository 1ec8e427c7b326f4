package collector

import (
	"net/url"
	"time"
)

// Stream kinds accepted by StreamKind.
const (
	StreamNone      = ""
	StreamSSE       = "sse"
	StreamWebSocket = "websocket"
)

// CollectorConfig contains configurable parameters for the backend sources.
// Use DefaultCollectorConfig() to get sensible defaults, then override as needed.
type CollectorConfig struct {
	// Endpoints
	APIURL     string // Base URL serving /metrics and /logs (default: "http://localhost:8000")
	StreamURL  string // Push stream URL, empty disables the subscriber
	StreamKind string // "sse" or "websocket" (default: "sse")

	// Timeout settings
	FetchTimeout     time.Duration // Per-request timeout for /metrics and /logs (default: 4s)
	HandshakeTimeout time.Duration // Websocket handshake timeout (default: 10s)
	ReadTimeout      time.Duration // Idle read deadline on the push stream (default: 60s)

	// Collection limits
	LogLimit int // Value of the limit query parameter on /logs (default: 10)

	// Circuit breaker
	BreakerFailures uint32        // Consecutive failures that open an endpoint (default: 5)
	BreakerCooldown time.Duration // Time an open endpoint waits before probing (default: 15s)

	// Feature flags
	EnableTemperatures bool // Whether LocalSource reads temperature sensors (default: true)
}

// DefaultCollectorConfig returns a CollectorConfig with sensible defaults.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		APIURL:     "http://localhost:8000",
		StreamKind: StreamSSE,

		FetchTimeout:     4 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,

		LogLimit: 10,

		BreakerFailures: 5,
		BreakerCooldown: 15 * time.Second,

		EnableTemperatures: true,
	}
}

// WithAPIURL returns a copy of the config with modified backend URL.
func (c CollectorConfig) WithAPIURL(u string) CollectorConfig {
	c.APIURL = u
	return c
}

// WithStream returns a copy of the config subscribed to the given push stream.
func (c CollectorConfig) WithStream(kind, u string) CollectorConfig {
	c.StreamKind = kind
	c.StreamURL = u
	return c
}

// WithFetchTimeout returns a copy of the config with modified fetch timeout.
func (c CollectorConfig) WithFetchTimeout(d time.Duration) CollectorConfig {
	c.FetchTimeout = d
	return c
}

// WithLogLimit returns a copy of the config with modified /logs limit.
func (c CollectorConfig) WithLogLimit(n int) CollectorConfig {
	c.LogLimit = n
	return c
}

// WithBreaker returns a copy of the config with modified circuit breaker settings.
func (c CollectorConfig) WithBreaker(failures uint32, cooldown time.Duration) CollectorConfig {
	c.BreakerFailures = failures
	c.BreakerCooldown = cooldown
	return c
}

// WithStreamTimeouts returns a copy of the config with modified push stream timeouts.
func (c CollectorConfig) WithStreamTimeouts(handshake, read time.Duration) CollectorConfig {
	c.HandshakeTimeout = handshake
	c.ReadTimeout = read
	return c
}

// WithTemperatures returns a copy of the config with temperature sensing enabled/disabled.
func (c CollectorConfig) WithTemperatures(enabled bool) CollectorConfig {
	c.EnableTemperatures = enabled
	return c
}

// Validate checks if the configuration is valid and returns an error if not.
func (c CollectorConfig) Validate() error {
	if c.APIURL == "" {
		return &ConfigError{Field: "APIURL", Message: "must not be empty"}
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "APIURL", Message: "must be an absolute URL"}
	}
	if c.FetchTimeout <= 0 {
		return &ConfigError{Field: "FetchTimeout", Message: "must be positive"}
	}
	if c.LogLimit <= 0 {
		return &ConfigError{Field: "LogLimit", Message: "must be positive"}
	}
	if c.BreakerFailures == 0 {
		return &ConfigError{Field: "BreakerFailures", Message: "must be positive"}
	}
	switch c.StreamKind {
	case StreamNone, StreamSSE, StreamWebSocket:
	default:
		return &ConfigError{Field: "StreamKind", Message: "must be sse or websocket"}
	}
	if c.StreamURL != "" && c.StreamKind == StreamNone {
		return &ConfigError{Field: "StreamKind", Message: "required when StreamURL is set"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
