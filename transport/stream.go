package transport

import (
	"context"
	"fmt"
)

var backgroundCtx = context.Background()

// Stream is one QUIC stream: an outbound half (C6) and an inbound half
// (C7) sharing a stream-level flow-control budget. The connection owns
// every Stream exclusively; applications hold a weak capability resolved
// through the stream registry (spec.md §3 "Ownership").
type Stream struct {
	send sendStream
	recv receiveStream
	flow flowControl

	// connFlow lets the receive side report consumed bytes against the
	// connection-wide budget without the stream needing a back-pointer to
	// the whole Conn (spec.md §9 "cyclic references").
	connFlow *flowControl

	updateMaxData bool // a MAX_STREAM_DATA needs to be (re)sent

	stopSendingOwed bool // a STOP_SENDING needs to be (re)sent
	stopSendingSent bool
	stopSendingCode uint64
}

func (st *Stream) init(pool *bufferPool, maxRecv, maxSend uint64) {
	st.send.init(pool, maxSend)
	st.recv.init(maxRecv)
}

// Write enqueues application bytes on the send side (producer role). It
// suspends the caller only when MaximumHeldChunks chunks are already
// outstanding (spec.md §5).
func (st *Stream) Write(b []byte) (int, error) {
	return st.send.enqueue(backgroundCtx, b)
}

// WriteContext is Write with a cancellation handle; ctx.Err() is returned
// if the context is cancelled while suspended (spec.md §5 "Cancellation").
func (st *Stream) WriteContext(ctx context.Context, b []byte) (int, error) {
	return st.send.enqueue(ctx, b)
}

// ReadContext is Read with a cancellation handle, suspending until data,
// EOF, or reset is observed.
func (st *Stream) ReadContext(ctx context.Context, b []byte) (int, error) {
	n, eof, err := st.recv.readAsync(ctx, b)
	if err != nil {
		return n, err
	}
	if eof {
		return 0, errStreamFin
	}
	return n, nil
}

// Read consumes contiguous bytes from the receive side.
func (st *Stream) Read(b []byte) (int, error) {
	n, eof, err := st.recv.read(b)
	if err != nil {
		return n, err
	}
	if eof {
		return 0, errStreamFin
	}
	return n, nil
}

// Close signals end-of-data on the send side (mark_end_of_data).
func (st *Stream) Close() error {
	st.send.markEndOfData()
	return nil
}

// CloseRead requests the peer stop sending (application-level abort of
// the receive side); it only sets the stopSendingOwed flag, which the
// connection worker polls, since only the worker emits frames.
func (st *Stream) CloseRead(code uint64) {
	c := code
	st.recv.errorCode = &c
	st.stopSendingOwed = true
	st.stopSendingSent = false
	st.stopSendingCode = code
}

// CloseWrite aborts the send side with an application error code.
func (st *Stream) CloseWrite(code uint64) {
	st.send.requestAbort(code)
}

func (st *Stream) pushRecv(data []byte, offset uint64, fin bool) error {
	before := st.recv.contiguousEnd()
	err := st.recv.push(data, offset, fin)
	if err != nil {
		return err
	}
	after := st.recv.contiguousEnd()
	if after > before {
		st.grow(after - before)
	}
	return nil
}

func (st *Stream) popSend(max int) ([]byte, uint64, bool) {
	buf := make([]byte, max)
	off, n, fin := st.send.checkOut(buf)
	return buf[:n], off, fin
}

func (st *Stream) ackMaxData() {
	st.flow.commitMaxRecv()
	st.updateMaxData = false
}

// grow raises the stream- and connection-level receive windows as the
// application makes progress, and marks a MAX_STREAM_DATA update due.
func (st *Stream) grow(delta uint64) {
	st.flow.grow(delta)
	if st.connFlow != nil {
		st.connFlow.grow(delta)
	}
	if st.flow.shouldUpdateMaxRecv() {
		st.updateMaxData = true
	}
}

func (st *Stream) flushable() bool {
	off, count := st.send.getNextSendableRange()
	_ = off
	if count > 0 {
		return true
	}
	return st.send.sizeKnown && st.send.unsentOffset == st.send.written && !st.send.finAcked
}

func (st *Stream) String() string {
	return fmt.Sprintf("send=%+v recv_offset=%d", st.send.state, st.recv.readOffset)
}

var errStreamFin = fmt.Errorf("stream: end of data")
