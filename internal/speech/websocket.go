package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 512 * 1024
)

// WebSocketConfig configures a streaming websocket recognizer session.
type WebSocketConfig struct {
	Endpoint    string
	Header      http.Header
	DialTimeout time.Duration
	Options     StartOptions
}

// controlMessage is the JSON control frame sent to the recognizer.
type controlMessage struct {
	Type       string `json:"type"`
	Locale     string `json:"locale,omitempty"`
	OnDevice   bool   `json:"on_device,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// WebSocketStream sends PCM as binary frames and reads JSON event frames.
type WebSocketStream struct {
	ws     *websocket.Conn
	logger *slog.Logger
	events chan Event

	writeMu sync.Mutex
	mu      sync.Mutex
	sendEnd bool
	closed  bool
	done    chan struct{}
}

// DialWebSocket opens the recognizer socket and sends the start frame.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig, logger *slog.Logger) (*WebSocketStream, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dialer := *websocket.DefaultDialer
	if cfg.DialTimeout > 0 {
		dialer.HandshakeTimeout = cfg.DialTimeout
	}

	ws, resp, err := dialer.DialContext(ctx, cfg.Endpoint, cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial recognizer %s: %w (status=%d)", cfg.Endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial recognizer %s: %w", cfg.Endpoint, err)
	}

	s := &WebSocketStream{
		ws:     ws,
		logger: logger.With("component", "speech.websocket"),
		events: make(chan Event, 128),
		done:   make(chan struct{}),
	}

	start := controlMessage{
		Type:       "start",
		Locale:     cfg.Options.Locale,
		OnDevice:   cfg.Options.OnDevice,
		SampleRate: cfg.Options.SampleRate,
		Channels:   cfg.Options.Channels,
	}
	if err := s.writeJSON(start); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("send start frame: %w", err)
	}

	go s.readPump()
	return s, nil
}

// SendAudio writes one binary PCM frame.
func (s *WebSocketStream) SendAudio(pcm []byte) error {
	s.mu.Lock()
	if s.closed || s.sendEnd {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.BinaryMessage, pcm)
}

// CloseSend tells the recognizer no more audio follows; events keep flowing.
func (s *WebSocketStream) CloseSend() error {
	s.mu.Lock()
	if s.closed || s.sendEnd {
		s.mu.Unlock()
		return nil
	}
	s.sendEnd = true
	s.mu.Unlock()

	return s.writeJSON(controlMessage{Type: "end"})
}

// Events returns recognizer events in arrival order.
func (s *WebSocketStream) Events() <-chan Event {
	return s.events
}

// Close tears down the socket; the read pump closes Events.
func (s *WebSocketStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.writeMu.Lock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.ws.Close()
}

func (s *WebSocketStream) writeJSON(msg controlMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

func (s *WebSocketStream) readPump() {
	defer close(s.events)

	s.ws.SetReadLimit(maxMessageSize)
	for {
		msgType, data, err := s.ws.ReadMessage()
		if err != nil {
			if !s.isClosed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("recognizer read failed", "error", err)
				s.deliver(Interrupted())
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("dropping malformed recognizer frame", "error", err)
			continue
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		if !s.deliver(ev) {
			return
		}
	}
}

func (s *WebSocketStream) deliver(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *WebSocketStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
