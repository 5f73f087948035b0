package chat

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gigmarket/contract-hub/internal/core/registry"
	"github.com/gigmarket/contract-hub/internal/pkg/metrics"
)

// room holds the live connections of one contract: at most one per party.
// Every state transition happens under mu, in the order callers acquire it.
type room struct {
	entry    registry.Entry
	validate *validator.Validate
	log      zerolog.Logger

	mu    sync.Mutex
	slots map[int64]*Conn
	seq   uint64
}

func newRoom(entry registry.Entry, validate *validator.Validate, log zerolog.Logger) *room {
	return &room{
		entry:    entry,
		validate: validate,
		log:      log.With().Int64("contract_id", entry.ContractID).Logger(),
		slots:    make(map[int64]*Conn, 2),
	}
}

// attach puts c into its party's slot. Frames in pending are queued to c
// before anything else it can observe. A previous connection for the same
// party is closed and replaced without presence events.
func (r *room) attach(c *Conn, pending ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.room = r
	for _, ev := range pending {
		r.sendTo(c, ev)
	}

	if prev, ok := r.slots[c.userID]; ok {
		r.slots[c.userID] = c
		prev.Close()
		r.log.Info().
			Int64("user_id", c.userID).
			Str("evicted_conn_id", prev.id).
			Str("conn_id", c.id).
			Msg("participant reconnected")
		return
	}

	r.slots[c.userID] = c
	if other := r.peerOf(c.userID); other != nil {
		r.sendTo(other, joinedEvent(c.userID))
	}
}

// deliver relays one inbound frame from c to the other party.
func (r *room) deliver(c *Conn, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slots[c.userID] != c {
		return
	}

	msg, err := parseFrame(r.validate, frame)
	if err != nil {
		metrics.MessagesDroppedTotal.WithLabelValues("malformed").Inc()
		r.sendTo(c, errorEvent(err.Error()))
		return
	}

	r.seq++
	other := r.peerOf(c.userID)
	if other == nil {
		metrics.MessagesDroppedTotal.WithLabelValues("peer_absent").Inc()
		r.log.Debug().Uint64("seq", r.seq).Int64("from", c.userID).Msg("peer absent, message dropped")
		return
	}
	if r.sendTo(other, chatEvent(c.userID, msg)) {
		metrics.MessagesRelayedTotal.Inc()
	}
}

// reject answers c with an error event without touching room state.
func (r *room) reject(c *Conn, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[c.userID] == c {
		r.sendTo(c, errorEvent(err.Error()))
	}
}

// detach frees c's slot if c still holds it and reports whether the room
// is now empty.
func (r *room) detach(c *Conn) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slots[c.userID] == c {
		delete(r.slots, c.userID)
		if other := r.peerOf(c.userID); other != nil {
			r.sendTo(other, leftEvent(c.userID))
		}
	}
	return len(r.slots) == 0
}

// conns returns a snapshot of the live connections.
func (r *room) conns() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Conn, 0, len(r.slots))
	for _, c := range r.slots {
		out = append(out, c)
	}
	return out
}

func (r *room) peerOf(userID int64) *Conn {
	for id, c := range r.slots {
		if id != userID {
			return c
		}
	}
	return nil
}

// sendTo queues ev for c. A recipient whose queue is full is closed rather
// than allowed to fall further behind.
func (r *room) sendTo(c *Conn, ev Event) bool {
	if c.enqueueEvent(ev) {
		return true
	}
	select {
	case <-c.done:
		return false
	default:
	}
	metrics.MessagesDroppedTotal.WithLabelValues("backpressure").Inc()
	r.log.Warn().
		Str("conn_id", c.id).
		Int64("user_id", c.userID).
		Str("type", string(ev.Type)).
		Msg("send queue full, closing connection")
	c.Close()
	return false
}
