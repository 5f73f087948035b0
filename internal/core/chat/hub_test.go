package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/core/registry"
)

const (
	contractID   = int64(1)
	clientID     = int64(7)
	freelancerID = int64(9)
)

var testContract = &domain.Contract{
	ID:           contractID,
	JobID:        3,
	ProposalID:   4,
	ClientID:     clientID,
	FreelancerID: freelancerID,
	Amount:       500,
	Status:       domain.ContractOngoing,
}

type harness struct {
	t      *testing.T
	hub    *Hub
	reg    *registry.Registry
	ledger *MemoryLedger
	wg     sync.WaitGroup
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	reg := registry.New(nil, 4, zerolog.Nop())
	reg.Register(testContract)

	h := &harness{t: t, reg: reg, ledger: NewMemoryLedger(time.Hour)}
	h.hub = NewHub(reg, h.ledger, opts, zerolog.Nop())
	t.Cleanup(func() {
		h.hub.Close()
		h.wg.Wait()
	})
	return h
}

type participant struct {
	socket *fakeSocket
	conn   *Conn
	served chan struct{}
}

func (h *harness) join(userID int64) *participant {
	return h.joinWith(userID, newFakeSocket(256))
}

func (h *harness) joinWith(userID int64, socket testSocket) *participant {
	h.t.Helper()
	return h.joinRoom(contractID, userID, socket)
}

func (h *harness) joinRoom(roomID, userID int64, socket testSocket) *participant {
	h.t.Helper()
	c, err := h.hub.Connect(context.Background(), roomID, userID, socket)
	require.NoError(h.t, err)

	p := &participant{socket: socket.fake(), conn: c, served: make(chan struct{})}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer close(p.served)
		h.hub.Serve(c)
	}()
	return p
}

// leave drops the transport and waits until the hub has detached p.
func (p *participant) leave(t *testing.T) {
	t.Helper()
	p.socket.hangUp()
	select {
	case <-p.served:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection of user %d never detached", p.conn.UserID())
	}
}

func TestHub_AcceptThenChatScenario(t *testing.T) {
	h := newHarness(t, Options{})
	h.hub.ContractCreated(context.Background(), testContract, clientID)

	// The freelancer connects alone: no presence events, but the one pending
	// contract_created is delivered first because the accept response only
	// reached the client.
	freelancer := h.join(freelancerID)
	assert.Equal(t, Event{
		Type:         EventContractCreated,
		ContractID:   contractID,
		JobID:        3,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Status:       domain.ContractOngoing,
	}, freelancer.socket.expect(t))
	freelancer.socket.expectQuiet(t)

	client := h.join(clientID)
	assert.Equal(t, Event{Type: EventUserJoined, UserID: clientID}, freelancer.socket.expect(t))
	client.socket.expectQuiet(t)

	freelancer.socket.say(t, `{"message":"hi"}`)
	assert.Equal(t, Event{Type: EventChat, From: freelancerID, Message: "hi"}, client.socket.expect(t))

	client.leave(t)
	assert.Equal(t, Event{Type: EventUserLeft, UserID: clientID}, freelancer.socket.expect(t))

	freelancer.leave(t)
	assert.Equal(t, Stats{}, h.hub.Stats())
}

func TestHub_ContractCreatedDeliveredOnce(t *testing.T) {
	h := newHarness(t, Options{})
	h.hub.ContractCreated(context.Background(), testContract, clientID)

	client := h.join(clientID)
	client.socket.expectQuiet(t)
	client.leave(t)

	first := h.join(freelancerID)
	assert.Equal(t, EventContractCreated, first.socket.expect(t).Type)
	first.leave(t)

	second := h.join(freelancerID)
	second.socket.expectQuiet(t)
}

func TestHub_Authorize(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	entry, err := h.hub.Authorize(ctx, contractID, freelancerID)
	require.NoError(t, err)
	assert.Equal(t, clientID, entry.ClientID)

	_, err = h.hub.Authorize(ctx, contractID, 8)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.hub.Authorize(ctx, 42, clientID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.hub.Authorize(ctx, contractID, 0)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestHub_ThirdUserCannotAttach(t *testing.T) {
	h := newHarness(t, Options{})
	client := h.join(clientID)
	freelancer := h.join(freelancerID)
	client.socket.expect(t) // user_joined for the freelancer

	outsider := newFakeSocket(8)
	_, err := h.hub.Connect(context.Background(), contractID, 8, outsider)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.False(t, outsider.isClosed(), "rejected socket stays with the caller")

	client.socket.expectQuiet(t)
	freelancer.socket.expectQuiet(t)
	assert.Equal(t, Stats{Rooms: 1, Connections: 2}, h.hub.Stats())
}

func TestHub_PreservesSenderOrder(t *testing.T) {
	h := newHarness(t, Options{SendBuffer: 256})
	client := h.join(clientID)
	freelancer := h.join(freelancerID)
	client.socket.expect(t) // user_joined

	const n = 100
	go func() {
		for i := 0; i < n; i++ {
			client.socket.in <- []byte(fmt.Sprintf(`{"message":"m%d"}`, i))
		}
	}()
	for i := 0; i < n; i++ {
		ev := freelancer.socket.expect(t)
		require.Equal(t, EventChat, ev.Type)
		require.Equal(t, fmt.Sprintf("m%d", i), ev.Message)
		require.Equal(t, clientID, ev.From)
	}
	client.socket.expectQuiet(t)
}

func TestHub_UserLeftOnlyWhenPeerConnected(t *testing.T) {
	h := newHarness(t, Options{})

	client := h.join(clientID)
	client.leave(t)
	assert.Equal(t, Stats{}, h.hub.Stats(), "empty room is removed")

	freelancer := h.join(freelancerID)
	freelancer.socket.expectQuiet(t)

	client = h.join(clientID)
	assert.Equal(t, Event{Type: EventUserJoined, UserID: clientID}, freelancer.socket.expect(t))

	freelancer.leave(t)
	assert.Equal(t, Event{Type: EventUserLeft, UserID: freelancerID}, client.socket.expect(t))

	client.leave(t)
	assert.Equal(t, Stats{}, h.hub.Stats())
}

func TestHub_MessagesToAbsentPeerAreDropped(t *testing.T) {
	h := newHarness(t, Options{})

	client := h.join(clientID)
	client.socket.say(t, `{"message":"anyone?"}`)
	client.socket.expectQuiet(t)

	freelancer := h.join(freelancerID)
	assert.Equal(t, Event{Type: EventUserJoined, UserID: freelancerID}, client.socket.expect(t))
	freelancer.socket.expectQuiet(t)
}

func TestHub_ReconnectEvictsStaleConnection(t *testing.T) {
	h := newHarness(t, Options{})

	freelancer := h.join(freelancerID)
	stale := h.join(clientID)
	assert.Equal(t, Event{Type: EventUserJoined, UserID: clientID}, freelancer.socket.expect(t))

	fresh := h.join(clientID)
	select {
	case <-stale.served:
	case <-time.After(2 * time.Second):
		t.Fatalf("stale connection was not closed")
	}
	assert.True(t, stale.socket.isClosed())
	freelancer.socket.expectQuiet(t)

	freelancer.socket.say(t, `{"message":"still there?"}`)
	assert.Equal(t, Event{Type: EventChat, From: freelancerID, Message: "still there?"}, fresh.socket.expect(t))
	stale.socket.expectQuiet(t)
	assert.Equal(t, Stats{Rooms: 1, Connections: 2}, h.hub.Stats())
}

func TestHub_StalledCloseDoesNotBlockOtherRooms(t *testing.T) {
	h := newHarness(t, Options{RoomShards: 1})
	other := &domain.Contract{ID: 2, JobID: 5, ProposalID: 6, ClientID: 11, FreelancerID: 12, Status: domain.ContractOngoing}
	h.reg.Register(other)

	ghost := newStallingSocket()
	unstick := time.AfterFunc(2*time.Second, ghost.release)
	t.Cleanup(func() {
		unstick.Stop()
		ghost.release()
	})
	h.joinWith(clientID, ghost)

	// Reconnecting evicts the ghost, whose Close hangs until released.
	start := time.Now()
	h.join(clientID)
	h.joinRoom(other.ID, other.ClientID, newFakeSocket(16))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "connects waited on a stalled close")

	h.joinRoom(other.ID, other.FreelancerID, newFakeSocket(16))
	assert.Equal(t, Stats{Rooms: 2, Connections: 3}, h.hub.Stats())
}

func TestHub_MalformedFrameOnlyAnswersSender(t *testing.T) {
	h := newHarness(t, Options{})
	client := h.join(clientID)
	freelancer := h.join(freelancerID)
	client.socket.expect(t) // user_joined

	client.socket.say(t, `not json`)
	assert.Equal(t, Event{Type: EventError, Error: "invalid message format"}, client.socket.expect(t))

	client.socket.say(t, `{"message":""}`)
	assert.Equal(t, Event{Type: EventError, Error: "message is required"}, client.socket.expect(t))

	client.socket.say(t, `{"text":"hi"}`)
	assert.Equal(t, Event{Type: EventError, Error: "message is required"}, client.socket.expect(t))

	freelancer.socket.expectQuiet(t)

	client.socket.say(t, `{"message":"ok now"}`)
	assert.Equal(t, Event{Type: EventChat, From: clientID, Message: "ok now"}, freelancer.socket.expect(t))
}

func TestHub_SlowRecipientIsDisconnected(t *testing.T) {
	h := newHarness(t, Options{SendBuffer: 1})

	// Nobody reads the freelancer's socket, so its writer stalls.
	slow := h.joinWith(freelancerID, newFakeSocket(0))
	client := h.join(clientID)

	for i := 0; i < 4; i++ {
		client.socket.say(t, fmt.Sprintf(`{"message":"m%d"}`, i))
	}

	select {
	case <-slow.served:
	case <-time.After(2 * time.Second):
		t.Fatalf("slow connection was not dropped")
	}
	assert.Equal(t, Event{Type: EventUserLeft, UserID: freelancerID}, client.socket.expect(t))
	assert.Equal(t, Stats{Rooms: 1, Connections: 1}, h.hub.Stats())
}

func TestHub_RateLimitedFramesAreRejected(t *testing.T) {
	h := newHarness(t, Options{MessagesPerSec: 0.01, MessageBurst: 1})
	client := h.join(clientID)
	freelancer := h.join(freelancerID)
	client.socket.expect(t) // user_joined

	client.socket.say(t, `{"message":"one"}`)
	client.socket.say(t, `{"message":"two"}`)

	assert.Equal(t, Event{Type: EventChat, From: clientID, Message: "one"}, freelancer.socket.expect(t))
	assert.Equal(t, Event{Type: EventError, Error: "rate limit exceeded"}, client.socket.expect(t))
	freelancer.socket.expectQuiet(t)
}

func TestHub_CloseDisconnectsEveryone(t *testing.T) {
	h := newHarness(t, Options{})
	client := h.join(clientID)
	freelancer := h.join(freelancerID)

	h.hub.Close()
	for _, p := range []*participant{client, freelancer} {
		select {
		case <-p.served:
		case <-time.After(2 * time.Second):
			t.Fatalf("connection survived hub close")
		}
	}
	assert.Equal(t, Stats{}, h.hub.Stats())

	_, err := h.hub.Connect(context.Background(), contractID, clientID, newFakeSocket(1))
	assert.ErrorIs(t, err, ErrHubClosed)
}

// closingLedger shuts the hub down right after a claim succeeds.
type closingLedger struct {
	*MemoryLedger
	hub *Hub
}

func (l *closingLedger) Claim(ctx context.Context, contractID, userID int64) (bool, error) {
	ok, err := l.MemoryLedger.Claim(ctx, contractID, userID)
	l.hub.Close()
	return ok, err
}

func TestHub_ClosedDuringConnectKeepsPendingEvent(t *testing.T) {
	reg := registry.New(nil, 4, zerolog.Nop())
	reg.Register(testContract)
	ledger := &closingLedger{MemoryLedger: NewMemoryLedger(time.Hour)}
	hub := NewHub(reg, ledger, Options{}, zerolog.Nop())
	ledger.hub = hub

	hub.ContractCreated(context.Background(), testContract, clientID)

	_, err := hub.Connect(context.Background(), contractID, freelancerID, newFakeSocket(1))
	require.ErrorIs(t, err, ErrHubClosed)

	claimed, err := ledger.MemoryLedger.Claim(context.Background(), contractID, freelancerID)
	require.NoError(t, err)
	assert.True(t, claimed, "pending contract_created was lost")
}

func TestHub_IndependentRoomsUnderLoad(t *testing.T) {
	reg := registry.New(nil, 8, zerolog.Nop())
	const rooms = 20
	for i := int64(1); i <= rooms; i++ {
		reg.Register(&domain.Contract{ID: i, ClientID: 1000 + i, FreelancerID: 2000 + i, Status: domain.ContractOngoing})
	}
	hub := NewHub(reg, nil, Options{RoomShards: 4}, zerolog.Nop())
	defer hub.Close()

	var wg sync.WaitGroup
	for i := int64(1); i <= rooms; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			a, b := newFakeSocket(64), newFakeSocket(64)
			ca, err := hub.Connect(context.Background(), id, 1000+id, a)
			if !assert.NoError(t, err) {
				return
			}
			cb, err := hub.Connect(context.Background(), id, 2000+id, b)
			if !assert.NoError(t, err) {
				a.hangUp()
				hub.Serve(ca)
				return
			}
			var serving sync.WaitGroup
			serving.Add(2)
			go func() { defer serving.Done(); hub.Serve(ca) }()
			go func() { defer serving.Done(); hub.Serve(cb) }()

			<-a.out // user_joined
			a.in <- []byte(fmt.Sprintf(`{"message":"room %d"}`, id))
			f := <-b.out
			assert.Contains(t, string(f), fmt.Sprintf("room %d", id))

			a.hangUp()
			b.hangUp()
			serving.Wait()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, Stats{}, hub.Stats())
}
