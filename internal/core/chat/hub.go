package chat

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/core/registry"
	"github.com/gigmarket/contract-hub/internal/pkg/metrics"
)

// ErrHubClosed is returned by Connect after Close.
var ErrHubClosed = errors.New("chat: hub closed")

// Directory resolves a contract to its parties.
type Directory interface {
	Lookup(ctx context.Context, contractID int64) (registry.Entry, error)
}

// Options tunes connection handling. Zero values fall back to defaults.
type Options struct {
	SendBuffer     int
	PingPeriod     time.Duration
	RoomShards     int
	MessagesPerSec float64
	MessageBurst   int
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.RoomShards <= 0 {
		o.RoomShards = 32
	}
	return o
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

type roomShard struct {
	mu    sync.Mutex
	rooms map[int64]*room
}

// Hub owns every live room. Rooms are created on first attach and removed
// when their last connection detaches. Lock order is shard, then room.
type Hub struct {
	directory Directory
	ledger    Ledger
	opts      Options
	validate  *validator.Validate
	shards    []*roomShard
	closed    atomic.Bool
	log       zerolog.Logger
}

// NewHub creates a Hub. A nil ledger falls back to an in-memory one.
func NewHub(directory Directory, ledger Ledger, opts Options, log zerolog.Logger) *Hub {
	opts = opts.withDefaults()
	if ledger == nil {
		ledger = NewMemoryLedger(0)
	}
	h := &Hub{
		directory: directory,
		ledger:    ledger,
		opts:      opts,
		validate:  validator.New(),
		shards:    make([]*roomShard, opts.RoomShards),
		log:       log,
	}
	for i := range h.shards {
		h.shards[i] = &roomShard{rooms: make(map[int64]*room)}
	}
	return h
}

// Authorize checks that userID may join the room of contractID. It is meant
// to run before the transport is upgraded so a refusal is a plain failure.
func (h *Hub) Authorize(ctx context.Context, contractID, userID int64) (registry.Entry, error) {
	if userID <= 0 {
		metrics.ConnectRejectedTotal.WithLabelValues("unauthenticated").Inc()
		return registry.Entry{}, domain.ErrUnauthenticated
	}
	entry, err := h.directory.Lookup(ctx, contractID)
	if err != nil {
		reason := "error"
		if errors.Is(err, domain.ErrNotFound) {
			reason = "not_found"
		}
		metrics.ConnectRejectedTotal.WithLabelValues(reason).Inc()
		return registry.Entry{}, err
	}
	if !entry.IsParty(userID) {
		metrics.ConnectRejectedTotal.WithLabelValues("forbidden").Inc()
		h.log.Warn().
			Int64("contract_id", contractID).
			Int64("user_id", userID).
			Msg("non-party tried to join contract room")
		return registry.Entry{}, domain.ErrNotContractParty
	}
	return entry, nil
}

// Connect authorizes userID and attaches socket to the contract's room.
// On error the socket is left untouched and remains the caller's to close.
// On success the caller must run Serve for the returned connection.
func (h *Hub) Connect(ctx context.Context, contractID, userID int64, socket Socket) (*Conn, error) {
	entry, err := h.Authorize(ctx, contractID, userID)
	if err != nil {
		return nil, err
	}
	if h.closed.Load() {
		return nil, ErrHubClosed
	}

	var pending []Event
	claimed, err := h.ledger.Claim(ctx, contractID, userID)
	if err != nil {
		h.log.Warn().Err(err).
			Int64("contract_id", contractID).
			Int64("user_id", userID).
			Msg("failed to claim pending contract event")
	} else if claimed {
		pending = append(pending, contractCreatedEvent(entry))
	}

	c := newConn(contractID, userID, socket, h.opts, h.log)

	s := h.shardFor(contractID)
	s.mu.Lock()
	if h.closed.Load() {
		s.mu.Unlock()
		if claimed {
			h.restorePending(ctx, contractID, userID)
		}
		return nil, ErrHubClosed
	}
	r, ok := s.rooms[contractID]
	if !ok {
		r = newRoom(entry, h.validate, h.log)
		s.rooms[contractID] = r
		metrics.RoomsActive.Inc()
	}
	r.attach(c, pending...)
	s.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	go c.writeLoop(h.opts.PingPeriod)

	c.log.Info().Msg("participant connected")
	return c, nil
}

// Serve runs the receive loop of c until its transport fails or c is
// closed, then detaches it. A transport error is treated as a normal leave.
func (h *Hub) Serve(c *Conn) {
	defer h.detach(c)

	for {
		frame, err := c.socket.ReadFrame()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Debug().Err(err).Msg("read ended")
			}
			return
		}
		if !c.allow() {
			metrics.MessagesDroppedTotal.WithLabelValues("rate_limited").Inc()
			c.room.reject(c, ErrRateLimited)
			continue
		}
		c.room.deliver(c, frame)
	}
}

func (h *Hub) detach(c *Conn) {
	c.Close()
	<-c.writerDone
	<-c.sockClosed

	s := h.shardFor(c.contractID)
	s.mu.Lock()
	if c.room.detach(c) && s.rooms[c.contractID] == c.room {
		delete(s.rooms, c.contractID)
		metrics.RoomsActive.Dec()
	}
	s.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	c.log.Info().Msg("participant disconnected")
}

// ContractCreated records that the party who did not receive the accept
// response still has to see the contract_created event.
func (h *Hub) ContractCreated(ctx context.Context, c *domain.Contract, deliveredTo int64) {
	recipient := c.Counterpart(deliveredTo)
	if recipient == 0 {
		return
	}
	if err := h.ledger.MarkPending(ctx, c.ID, recipient); err != nil {
		h.log.Error().Err(err).
			Int64("contract_id", c.ID).
			Int64("user_id", recipient).
			Msg("failed to record pending contract event")
	}
}

// restorePending puts back a claimed contract_created event that could not
// be delivered.
func (h *Hub) restorePending(ctx context.Context, contractID, userID int64) {
	if err := h.ledger.MarkPending(context.WithoutCancel(ctx), contractID, userID); err != nil {
		h.log.Error().Err(err).
			Int64("contract_id", contractID).
			Int64("user_id", userID).
			Msg("failed to restore pending contract event")
	}
}

// Stats counts live rooms and connections.
func (h *Hub) Stats() Stats {
	var st Stats
	for _, s := range h.shards {
		s.mu.Lock()
		st.Rooms += len(s.rooms)
		for _, r := range s.rooms {
			st.Connections += len(r.conns())
		}
		s.mu.Unlock()
	}
	return st
}

// Close rejects new connections and closes every live one. Their Serve
// loops detach them as usual.
func (h *Hub) Close() {
	if h.closed.Swap(true) {
		return
	}
	var all []*Conn
	for _, s := range h.shards {
		s.mu.Lock()
		for _, r := range s.rooms {
			all = append(all, r.conns()...)
		}
		s.mu.Unlock()
	}
	for _, c := range all {
		c.Close()
	}
	h.log.Info().Int("connections", len(all)).Msg("hub closed")
}

func (h *Hub) shardFor(contractID int64) *roomShard {
	f := fnv.New32a()
	_, _ = f.Write([]byte(strconv.FormatInt(contractID, 10)))
	return h.shards[f.Sum32()%uint32(len(h.shards))]
}
