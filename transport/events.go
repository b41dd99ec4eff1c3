package transport

// EventType identifies an application-facing Conn event. The numbering
// leaves room (see the top-level quic package) for connection-level event
// types defined outside this package to coexist in the same switch without
// colliding with the stream events defined here.
type EventType int

const (
	_ EventType = iota
	// EventStream fires when new contiguous data is available to read on
	// a stream.
	EventStream
	// EventStreamReset fires when the peer sent RESET_STREAM.
	EventStreamReset
	// EventStreamStop fires when the peer sent STOP_SENDING.
	EventStreamStop
	// EventStreamComplete fires once a stream's send side is fully acked.
	EventStreamComplete
)

// Event is one notification surfaced from Conn.Events.
type Event struct {
	Type      EventType
	StreamID  uint64
	ErrorCode uint64
}

func newStreamRecvEvent(streamID uint64) Event {
	return Event{Type: EventStream, StreamID: streamID}
}

func newStreamResetEvent(streamID, errorCode uint64) Event {
	return Event{Type: EventStreamReset, StreamID: streamID, ErrorCode: errorCode}
}

func newStreamStopEvent(streamID, errorCode uint64) Event {
	return Event{Type: EventStreamStop, StreamID: streamID, ErrorCode: errorCode}
}

func newStreamCompleteEvent(streamID uint64) Event {
	return Event{Type: EventStreamComplete, StreamID: streamID}
}
