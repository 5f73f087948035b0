// Package ws adapts gorilla/websocket connections to chat.Socket.
package ws

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gigmarket/contract-hub/internal/core/domain"
)

// Options bounds a single websocket connection.
type Options struct {
	MaxFrameBytes int64
	WriteWait     time.Duration
	PongWait      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = 64 * 1024
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	return o
}

// NewUpgrader returns the upgrader used by the room endpoint. A nil
// checkOrigin accepts every origin.
func NewUpgrader(checkOrigin func(r *http.Request) bool) *websocket.Upgrader {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
}

// Socket is a websocket connection carrying one JSON object per text frame.
type Socket struct {
	conn *websocket.Conn
	opts Options
}

// Wrap takes ownership of conn. The read deadline is pushed forward by every
// pong, so a peer that stops answering pings is eventually dropped.
func Wrap(conn *websocket.Conn, opts Options) *Socket {
	opts = opts.withDefaults()
	conn.SetReadLimit(opts.MaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})
	return &Socket{conn: conn, opts: opts}
}

// ReadFrame returns the next data frame.
func (s *Socket) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, transportErr("read", err)
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (s *Socket) WriteFrame(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait)); err != nil {
		return transportErr("write", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return transportErr("write", err)
	}
	return nil
}

func (s *Socket) Ping() error {
	if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteWait)); err != nil {
		return transportErr("ping", err)
	}
	return nil
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
}

// Close sends a best-effort close frame and releases the connection.
func (s *Socket) Close() error {
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(s.opts.WriteWait),
	)
	return s.conn.Close()
}
