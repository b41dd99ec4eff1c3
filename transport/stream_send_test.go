package transport

import (
	"context"
	"testing"
)

func newTestSendStream(maxData uint64) *sendStream {
	s := &sendStream{}
	s.init(newBufferPool(4), maxData)
	return s
}

func TestSendStreamEnqueueAndCheckOut(t *testing.T) {
	s := newTestSendStream(1 << 20)
	data := []byte("hello world")
	n, err := s.enqueue(context.Background(), data)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if n != len(data) {
		t.Fatalf("enqueue: wrote %d, want %d", n, len(data))
	}
	s.markEndOfData()

	buf := make([]byte, 64)
	off, count, fin := s.checkOut(buf)
	if off != 0 {
		t.Fatalf("checkOut offset = %d, want 0", off)
	}
	if count != len(data) {
		t.Fatalf("checkOut count = %d, want %d", count, len(data))
	}
	if !fin {
		t.Fatalf("checkOut fin = false, want true after markEndOfData")
	}
	if string(buf[:count]) != string(data) {
		t.Fatalf("checkOut data = %q, want %q", buf[:count], data)
	}
}

func TestSendStreamAckCompletesStream(t *testing.T) {
	s := newTestSendStream(1 << 20)
	data := []byte("abc")
	s.enqueue(context.Background(), data)
	s.markEndOfData()
	buf := make([]byte, 16)
	off, count, fin := s.checkOut(buf)
	s.onAck(off, uint64(count), fin)
	if !s.complete() {
		t.Fatalf("stream should be complete after the fin-bearing data is acked")
	}
}

func TestSendStreamLossRetransmits(t *testing.T) {
	s := newTestSendStream(1 << 20)
	s.enqueue(context.Background(), []byte("abcdef"))
	s.markEndOfData()
	buf := make([]byte, 16)
	off, count, _ := s.checkOut(buf)
	s.onLost(off, uint64(count))

	// Lost data must become sendable again.
	off2, count2 := s.getNextSendableRange()
	if off2 != off || count2 != uint64(count) {
		t.Fatalf("after loss, sendable range = (%d,%d), want (%d,%d)", off2, count2, off, count)
	}
}

func TestSendStreamFlowControlLimit(t *testing.T) {
	s := newTestSendStream(4) // only 4 bytes allowed out
	s.enqueue(context.Background(), []byte("abcdefgh"))
	s.markEndOfData()
	buf := make([]byte, 64)
	off, count, fin := s.checkOut(buf)
	if off != 0 || count != 4 {
		t.Fatalf("checkOut under flow control = (%d,%d), want (0,4)", off, count)
	}
	if fin {
		t.Fatalf("fin should not be reported while data remains blocked by flow control")
	}
}

func TestSendStreamRequestAbort(t *testing.T) {
	s := newTestSendStream(1 << 20)
	if s.aborted() {
		t.Fatalf("fresh stream should not be aborted")
	}
	s.requestAbort(42)
	if !s.aborted() || !s.resetOwed() {
		t.Fatalf("after requestAbort, stream should be aborted and owe a reset")
	}
	_, err := s.enqueue(context.Background(), []byte("x"))
	if err != errStreamAborted {
		t.Fatalf("enqueue after abort: got err %v, want errStreamAborted", err)
	}
}
