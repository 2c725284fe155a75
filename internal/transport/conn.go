// internal/transport/conn.go
package transport

// Conn is the core's view of one remote peer. The concrete implementation
// (websocket, in-memory test double) owns framing, heartbeats and the actual
// socket; the core only pushes named messages through it.
type Conn interface {
	// Send queues an outbound message for this peer. It must never block the
	// caller; implementations drop and log if the peer cannot keep up.
	Send(name string, data interface{})

	// Close tears down the underlying connection. The transport is expected
	// to surface a disconnect event for this connection afterwards.
	Close(reason string)
}
