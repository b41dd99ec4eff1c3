package quic

import "github.com/goburrow/quic/transport"

// Connection-level event types. These share transport.EventType's numbering
// space but start well clear of the stream events transport/events.go
// defines, per that package's reserved-range comment.
const (
	// EventConnAccept fires once per connection, on the client and on the
	// server alike, when the connection completes its handshake and is
	// handed to the Handler for the first time.
	EventConnAccept transport.EventType = iota + 100
	// EventConnClose fires once a connection has fully drained and its
	// resources are about to be released.
	EventConnClose
)
