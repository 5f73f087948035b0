package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Conn is one participant's live connection to a room.
//
// The send queue is never closed; shutdown is signalled through done so a
// late enqueue can never panic.
type Conn struct {
	id         string
	contractID int64
	userID     int64
	socket     Socket
	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	sockClosed chan struct{}
	closeOnce  sync.Once
	limiter    *rate.Limiter
	room       *room
	log        zerolog.Logger
}

func newConn(contractID, userID int64, socket Socket, opts Options, log zerolog.Logger) *Conn {
	id := uuid.NewString()
	c := &Conn{
		id:         id,
		contractID: contractID,
		userID:     userID,
		socket:     socket,
		send:       make(chan []byte, opts.SendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		sockClosed: make(chan struct{}),
		log: log.With().
			Str("conn_id", id).
			Int64("contract_id", contractID).
			Int64("user_id", userID).
			Logger(),
	}
	if opts.MessagesPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSec), max(opts.MessageBurst, 1))
	}
	return c
}

func (c *Conn) ID() string        { return c.id }
func (c *Conn) UserID() int64     { return c.userID }
func (c *Conn) ContractID() int64 { return c.contractID }

// Done is closed once the connection has been closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close shuts the connection down. It is safe to call more than once and
// from any goroutine, including under room and shard locks: closing the
// socket may wait on a stalled peer, so it runs on its own goroutine and
// sockClosed reports when it is finished.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		go func() {
			defer close(c.sockClosed)
			if err := c.socket.Close(); err != nil {
				c.log.Debug().Err(err).Msg("socket close")
			}
		}()
	})
}

// enqueue hands a frame to the writer without blocking. It reports false
// when the connection is closed or its queue is full.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) enqueueEvent(ev Event) bool {
	frame, err := json.Marshal(ev)
	if err != nil {
		c.log.Error().Err(err).Str("type", string(ev.Type)).Msg("failed to encode event")
		return false
	}
	return c.enqueue(frame)
}

// allow applies the inbound rate limit, if any.
func (c *Conn) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// writeLoop drains the send queue into the socket and keeps the peer alive
// with pings. It exits when the connection closes or a write fails.
func (c *Conn) writeLoop(pingPeriod time.Duration) {
	defer close(c.writerDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.socket.WriteFrame(frame); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.socket.Ping(); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				c.Close()
				return
			}
		}
	}
}
