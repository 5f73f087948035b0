package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errSocketClosed = errors.New("socket closed")

// fakeSocket is an in-memory Socket. Tests push inbound frames with say and
// read what the hub wrote from out.
type fakeSocket struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeSocket(outBuffer int) *fakeSocket {
	return &fakeSocket{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, outBuffer),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) ReadFrame() ([]byte, error) {
	select {
	case f := <-s.in:
		return f, nil
	case <-s.closed:
		return nil, errSocketClosed
	}
}

func (s *fakeSocket) WriteFrame(frame []byte) error {
	select {
	case <-s.closed:
		return errSocketClosed
	case s.out <- frame:
		return nil
	}
}

func (s *fakeSocket) Ping() error { return nil }

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// testSocket is a Socket backed by a fakeSocket the test can inspect.
type testSocket interface {
	Socket
	fake() *fakeSocket
}

func (s *fakeSocket) fake() *fakeSocket { return s }

// stallingSocket models a transport whose Close waits on a stalled writer,
// as a websocket close frame does. Close blocks until release is called.
type stallingSocket struct {
	*fakeSocket
	unblock chan struct{}
	once    sync.Once
}

func newStallingSocket() *stallingSocket {
	return &stallingSocket{fakeSocket: newFakeSocket(256), unblock: make(chan struct{})}
}

func (s *stallingSocket) Close() error {
	<-s.unblock
	return s.fakeSocket.Close()
}

func (s *stallingSocket) release() { s.once.Do(func() { close(s.unblock) }) }

func (s *fakeSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeSocket) say(t *testing.T, raw string) {
	t.Helper()
	select {
	case s.in <- []byte(raw):
	case <-time.After(time.Second):
		t.Fatalf("inbound frame %q not consumed", raw)
	}
}

// hangUp simulates the peer dropping the transport.
func (s *fakeSocket) hangUp() { _ = s.Close() }

func (s *fakeSocket) expect(t *testing.T) Event {
	t.Helper()
	select {
	case f := <-s.out:
		var ev Event
		require.NoError(t, json.Unmarshal(f, &ev), "frame %s", f)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an event, got none")
		return Event{}
	}
}

func (s *fakeSocket) expectQuiet(t *testing.T) {
	t.Helper()
	select {
	case f := <-s.out:
		t.Fatalf("expected no event, got %s", f)
	case <-time.After(50 * time.Millisecond):
	}
}
