package speech

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestWebSocketStreamRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan controlMessage, 4)
	audioBytes := make(chan int, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.BinaryMessage {
				audioBytes <- len(data)
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"partial","text":"hello wor"}`))
				continue
			}

			var msg controlMessage
			_ = json.Unmarshal(data, &msg)
			received <- msg
			if msg.Type == "end" {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"final","text":"hello world"}`))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
	defer srv.Close()

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream, err := DialWebSocket(context.Background(), WebSocketConfig{
		Endpoint:    endpoint,
		DialTimeout: time.Second,
		Options:     StartOptions{Locale: "en-US", SampleRate: 16000, Channels: 1},
	}, nil)
	require.NoError(t, err)
	defer stream.Close()

	start := <-received
	require.Equal(t, "start", start.Type)
	require.Equal(t, "en-US", start.Locale)
	require.Equal(t, 16000, start.SampleRate)

	require.NoError(t, stream.SendAudio(make([]byte, 640)))
	require.Equal(t, 640, <-audioBytes)

	partial := <-stream.Events()
	require.Equal(t, KindPartial, partial.Kind)
	require.False(t, partial.Timestamp.IsZero())

	require.NoError(t, stream.CloseSend())
	require.ErrorIs(t, stream.SendAudio([]byte{1, 2}), ErrStreamClosed)
	require.Equal(t, "end", (<-received).Type)

	final := <-stream.Events()
	require.Equal(t, KindFinal, final.Kind)
	require.Equal(t, "hello world", final.Text)

	_, open := <-stream.Events()
	require.False(t, open)
}

func TestWebSocketDialFailure(t *testing.T) {
	_, err := DialWebSocket(context.Background(), WebSocketConfig{
		Endpoint:    "ws://127.0.0.1:1/none",
		DialTimeout: 200 * time.Millisecond,
	}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dial recognizer")
}

func TestCommandStreamDecodesStdout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	script := `cat >/dev/null; printf '%s\n' '{"type":"partial","text":"one"}' "{\"type\":\"final\",\"text\":\"$SCRIBE_LOCALE\"}"`
	stream, err := StartCommand(context.Background(), []string{"sh", "-c", script}, StartOptions{Locale: "en-GB"}, nil)
	require.NoError(t, err)

	require.NoError(t, stream.SendAudio([]byte{0, 1, 2, 3}))
	require.NoError(t, stream.CloseSend())

	var events []Event
	for ev := range stream.Events() {
		events = append(events, ev)
	}
	require.NoError(t, stream.Close())

	require.Len(t, events, 2)
	require.Equal(t, KindPartial, events[0].Kind)
	require.Equal(t, KindFinal, events[1].Kind)
	require.Equal(t, "en-GB", events[1].Text)
}

func TestCommandStreamRejectsEmptyArgv(t *testing.T) {
	_, err := StartCommand(context.Background(), nil, StartOptions{}, nil)
	require.Error(t, err)
}

func TestCheckHealthServingAndNotServing(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	go func() { _ = server.Serve(listener) }()
	defer server.Stop()

	target := listener.Addr().String()
	require.NoError(t, CheckHealth(context.Background(), target, "", 2*time.Second))

	healthServer.SetServingStatus("asr", healthpb.HealthCheckResponse_NOT_SERVING)
	err = CheckHealth(context.Background(), target, "asr", 2*time.Second)
	require.ErrorIs(t, err, ErrNotServing)
}

func TestCheckHealthUnreachable(t *testing.T) {
	err := CheckHealth(context.Background(), "127.0.0.1:1", "", 300*time.Millisecond)
	require.Error(t, err)
}
