// Package ws consumes the per-canvas WebSocket event stream.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pipeboard/pipeboard/pkg/events"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
)

// Status mirrors the transport state for display; the core has no
// reconnection semantics of its own beyond what Run does.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
)

const (
	reconnectInterval    = time.Second
	maxReconnectAttempts = 10
)

var ErrTooManyReconnects = errors.New("websocket: too many reconnect attempts")

// Handler receives server events in arrival order, on a single goroutine.
type Handler func(events.ServerEvent)

// Subscriber maintains one connection to /ws/{canvasId} with bounded
// constant-backoff reconnection. The server replays nothing on reconnect;
// gaps are a known limitation accepted by the design.
type Subscriber struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	mu     sync.RWMutex
	status Status
}

// NewSubscriber builds a subscriber for the canvas stream. baseURL uses the
// ws or wss scheme, e.g. "ws://localhost:8080".
func NewSubscriber(baseURL, canvasID string) *Subscriber {
	return &Subscriber{
		url:    fmt.Sprintf("%s/ws/%s", baseURL, canvasID),
		dialer: websocket.DefaultDialer,
		logger: pblog.WithModule("ws"),
		status: StatusClosed,
	}
}

func (s *Subscriber) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

func (s *Subscriber) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
}

// Run connects and delivers frames to handle until ctx is cancelled or the
// reconnect budget is exhausted. It blocks; callers run it on its own
// goroutine.
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	defer s.setStatus(StatusClosed)

	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		s.setStatus(StatusConnecting)

		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			attempts++
			if attempts >= maxReconnectAttempts {
				return fmt.Errorf("%w: %s", ErrTooManyReconnects, s.url)
			}

			s.logger.Warn("websocket dial failed", "url", s.url, "attempt", attempts, "error", err)
			s.setStatus(StatusClosed)

			if !s.waitReconnect(ctx) {
				return nil
			}

			continue
		}

		attempts = 0

		s.setStatus(StatusOpen)
		s.logger.Debug("websocket connected", "url", s.url)

		s.consume(ctx, conn, handle)
		s.setStatus(StatusClosed)

		// A dropped connection is paced like a failed dial, so a flapping
		// server never turns the loop into a hot redial spin.
		if !s.waitReconnect(ctx) {
			return nil
		}
	}
}

func (s *Subscriber) waitReconnect(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(reconnectInterval):
		return true
	}
}

func (s *Subscriber) consume(ctx context.Context, conn *websocket.Conn, handle Handler) {
	defer conn.Close()

	// Close the connection when the context ends so ReadJSON unblocks.
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event events.ServerEvent

		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				s.logger.Warn("websocket read failed", "error", err)
			}

			return
		}

		handle(event)
	}
}
