package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// requestReadTimeout bounds how long a client may take to send its request
// or read the reply.
const requestReadTimeout = 5 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until ctx ends or the listener closes,
// then waits for in-flight requests to finish.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler)
		}()
	}
}

// serveConn answers exactly one request line on conn.
func serveConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()

	resp := func() Response {
		_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
		req, err := readRequest(conn)
		if err != nil {
			return Response{Error: err.Error()}
		}
		_ = conn.SetReadDeadline(time.Time{})
		return handle(ctx, handler, req)
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(requestReadTimeout))
	_ = json.NewEncoder(conn).Encode(resp)
}

func readRequest(r io.Reader) (Request, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil {
		return Request{}, fmt.Errorf("read request: %w", err)
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if strings.TrimSpace(req.Command) == "" {
		return Request{}, errors.New("missing command")
	}
	return req, nil
}

// handle runs handler and reports a panic as an error response.
func handle(ctx context.Context, handler Handler, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Response{Error: fmt.Sprintf("handle %s: %v", req.Command, r)}
		}
	}()
	return handler.Handle(ctx, req)
}
