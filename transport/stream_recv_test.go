package transport

import "testing"

func newTestRecvStream(maxStreamData uint64) *receiveStream {
	s := &receiveStream{}
	s.init(maxStreamData)
	return s
}

func TestReceiveStreamInOrder(t *testing.T) {
	s := newTestRecvStream(1 << 20)
	if err := s.push([]byte("hello"), 0, false); err != nil {
		t.Fatalf("push: %v", err)
	}
	buf := make([]byte, 16)
	n, eof, err := s.read(buf)
	if err != nil || eof {
		t.Fatalf("read: n=%d eof=%v err=%v", n, eof, err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("read = %q, want hello", buf[:n])
	}
}

func TestReceiveStreamOutOfOrder(t *testing.T) {
	s := newTestRecvStream(1 << 20)
	// Second half arrives first.
	if err := s.push([]byte("world"), 5, false); err != nil {
		t.Fatalf("push tail: %v", err)
	}
	buf := make([]byte, 16)
	if n, _, _ := s.read(buf); n != 0 {
		t.Fatalf("read before gap filled should yield 0 bytes, got %d", n)
	}
	if err := s.push([]byte("hello"), 0, false); err != nil {
		t.Fatalf("push head: %v", err)
	}
	n, _, err := s.read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "helloworld" {
		t.Fatalf("read = %q, want helloworld", buf[:n])
	}
}

func TestReceiveStreamFin(t *testing.T) {
	s := newTestRecvStream(1 << 20)
	if err := s.push([]byte("hi"), 0, true); err != nil {
		t.Fatalf("push: %v", err)
	}
	buf := make([]byte, 16)
	n, eof, err := s.read(buf)
	if err != nil || eof || n != 2 {
		t.Fatalf("first read: n=%d eof=%v err=%v", n, eof, err)
	}
	n, eof, err = s.read(buf)
	if err != nil || !eof || n != 0 {
		t.Fatalf("second read should report eof: n=%d eof=%v err=%v", n, eof, err)
	}
	if !s.finished() {
		t.Fatalf("stream should be finished once fin has been read")
	}
}

func TestReceiveStreamFlowControlViolation(t *testing.T) {
	s := newTestRecvStream(4)
	if err := s.push([]byte("toolong"), 0, false); err != errFlowControl {
		t.Fatalf("push beyond maxStreamData: got %v, want errFlowControl", err)
	}
}

func TestReceiveStreamFinalSizeConflict(t *testing.T) {
	s := newTestRecvStream(1 << 20)
	if err := s.push([]byte("hi"), 0, true); err != nil {
		t.Fatalf("push: %v", err)
	}
	// A later frame claiming a different final size is a final-size error.
	if err := s.push([]byte("x"), 5, true); err == nil {
		t.Fatalf("conflicting final size should be rejected")
	}
}

func TestReceiveStreamReset(t *testing.T) {
	s := newTestRecvStream(1 << 20)
	if err := s.push([]byte("abc"), 0, false); err != nil {
		t.Fatalf("push: %v", err)
	}
	credit, err := s.reset(10)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if credit != 7 {
		t.Fatalf("reset credit = %d, want 7 (10 final - 3 already seen)", credit)
	}
	buf := make([]byte, 16)
	if _, _, err := s.read(buf); err == nil {
		t.Fatalf("read after reset should return a StreamError")
	}
}
