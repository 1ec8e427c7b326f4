package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"hostwatch/internal/logging"
	"hostwatch/internal/telemetry"
)

// ErrStreamClosed is returned when the server ends a push stream.
var ErrStreamClosed = errors.New("stream closed by server")

// SSEStream subscribes to a Server-Sent Events endpoint whose events are
// named assigned or finished and carry {"worker","task"} as data.
type SSEStream struct {
	url    string
	client *http.Client
}

func NewSSEStream(rawURL string, client *http.Client) *SSEStream {
	if client == nil {
		client = &http.Client{}
	}
	return &SSEStream{url: rawURL, client: client}
}

func (s *SSEStream) Name() string { return "sse " + s.url }

func (s *SSEStream) Stream(ctx context.Context, handler func(telemetry.PushEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Endpoint: "stream", Code: resp.StatusCode}
	}

	err = readEvents(resp.Body, func(name, data string) {
		ev, ok := decodePush(name, []byte(data))
		if ok {
			handler(ev)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ErrStreamClosed
}

// readEvents splits an event-stream body into (event, data) pairs. Multi-line
// data fields are joined with newlines; id and retry fields are ignored.
func readEvents(r io.Reader, dispatch func(name, data string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var (
		name string
		data []string
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) > 0 {
				dispatch(name, strings.Join(data, "\n"))
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	return sc.Err()
}

// decodePush parses one push payload. name, when set by the transport,
// takes precedence over an "event" field inside the payload.
func decodePush(name string, data []byte) (telemetry.PushEvent, bool) {
	var ev telemetry.PushEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		logging.Debug().Err(err).Msg("skipping undecodable push payload")
		return telemetry.PushEvent{}, false
	}
	if name != "" && name != "message" {
		ev.Name = name
	}
	return ev, true
}
