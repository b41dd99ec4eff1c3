package transport

import "testing"

func newTestStream(maxRecv, maxSend uint64) *Stream {
	st := &Stream{}
	st.init(newBufferPool(4), maxRecv, maxSend)
	return st
}

func TestStreamWriteCloseRead(t *testing.T) {
	st := newTestStream(1<<20, 1<<20)
	if _, err := st.Write([]byte("ping")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, off, fin := st.popSend(64)
	if off != 0 || string(data) != "ping" || !fin {
		t.Fatalf("popSend = (%q,%d,%v), want (ping,0,true)", data, off, fin)
	}

	if err := st.pushRecv([]byte("pong"), 0, true); err != nil {
		t.Fatalf("pushRecv: %v", err)
	}
	buf := make([]byte, 64)
	n, err := st.Read(buf)
	if err != nil || string(buf[:n]) != "pong" {
		t.Fatalf("Read = (%q, %v), want (pong, nil)", buf[:n], err)
	}
	if _, err := st.Read(buf); err != errStreamFin {
		t.Fatalf("Read past fin: got %v, want errStreamFin", err)
	}
}

func TestStreamCloseReadRequestsStopSending(t *testing.T) {
	st := newTestStream(1<<20, 1<<20)
	st.CloseRead(7)
	if !st.stopSendingOwed || st.stopSendingSent {
		t.Fatalf("CloseRead should owe a fresh STOP_SENDING: owed=%v sent=%v", st.stopSendingOwed, st.stopSendingSent)
	}
	if st.stopSendingCode != 7 {
		t.Fatalf("stopSendingCode = %d, want 7", st.stopSendingCode)
	}
}

func TestStreamCloseWriteAborts(t *testing.T) {
	st := newTestStream(1<<20, 1<<20)
	st.CloseWrite(3)
	if !st.send.aborted() {
		t.Fatalf("CloseWrite should abort the send side")
	}
}

func TestStreamGrowUpdatesConnFlow(t *testing.T) {
	st := newTestStream(8, 0)
	var connFlow flowControl
	connFlow.init(100, 0)
	st.connFlow = &connFlow
	if err := st.pushRecv([]byte("abcd"), 0, false); err != nil {
		t.Fatalf("pushRecv: %v", err)
	}
	if connFlow.maxRecvNext != 100+4 {
		t.Fatalf("connection-level window did not grow: maxRecvNext = %d, want 104", connFlow.maxRecvNext)
	}
}
