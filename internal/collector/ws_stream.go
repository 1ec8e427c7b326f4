package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"hostwatch/internal/logging"
	"hostwatch/internal/telemetry"
)

// WebSocketStream receives push events as JSON text frames of the form
// {"event":"assigned","worker":"w1","task":"t1"}.
type WebSocketStream struct {
	url              string
	handshakeTimeout time.Duration
	readTimeout      time.Duration
}

func NewWebSocketStream(rawURL string, cfg CollectorConfig) *WebSocketStream {
	return &WebSocketStream{
		url:              rawURL,
		handshakeTimeout: cfg.HandshakeTimeout,
		readTimeout:      cfg.ReadTimeout,
	}
}

func (s *WebSocketStream) Name() string { return "websocket " + s.url }

func (s *WebSocketStream) Stream(ctx context.Context, handler func(telemetry.PushEvent)) error {
	dialer := websocket.Dialer{
		HandshakeTimeout:  s.handshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	logging.Debug().Str("url", s.url).Msg("websocket connected")

	// Unblock ReadMessage when the caller goes away.
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	})
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	for {
		if s.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
				return fmt.Errorf("set read deadline: %w", err)
			}
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrStreamClosed
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if ev, ok := decodePush("", data); ok {
			handler(ev)
		}
	}
}
