// Package chat relays messages between the two parties of a contract.
//
// The Hub owns one Room per contract with live connections. Each connection
// is driven by a blocking receive loop (Hub.Serve) and a writer goroutine
// that drains a bounded queue; the Room serializes attach, deliver and detach
// under its own lock so presence events are never interleaved with a chat
// delivery.
package chat

// Socket is the framed, bidirectional transport behind a connection.
//
// ReadFrame is only called from the connection's receive loop and
// WriteFrame/Ping only from its writer. Close may be called from any
// goroutine and must unblock a pending ReadFrame or WriteFrame. Failures
// should wrap domain.ErrTransport; the hub treats them as a normal leave.
type Socket interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Ping() error
	Close() error
}
