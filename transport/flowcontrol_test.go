package transport

import "testing"

func TestFlowControlRecv(t *testing.T) {
	var f flowControl
	f.init(100, 0)
	if got := f.canRecv(); got != 100 {
		t.Fatalf("canRecv = %d, want 100", got)
	}
	f.addRecv(40)
	if got := f.canRecv(); got != 60 {
		t.Fatalf("canRecv = %d, want 60", got)
	}
	f.addRecv(60)
	if got := f.canRecv(); got != 0 {
		t.Fatalf("canRecv = %d, want 0 at limit", got)
	}
}

func TestFlowControlSendMonotone(t *testing.T) {
	var f flowControl
	f.init(0, 100)
	f.setMaxSend(50) // lower than current max, should be ignored
	if f.maxSend != 100 {
		t.Fatalf("maxSend = %d, want 100 (monotone non-decreasing)", f.maxSend)
	}
	f.setMaxSend(150)
	if f.maxSend != 150 {
		t.Fatalf("maxSend = %d, want 150", f.maxSend)
	}
	f.addSend(150)
	if got := f.canSend(); got != 0 {
		t.Fatalf("canSend = %d, want 0 at limit", got)
	}
}

func TestFlowControlShouldUpdateMaxRecv(t *testing.T) {
	var f flowControl
	f.init(100, 0)
	if f.shouldUpdateMaxRecv() {
		t.Fatalf("no growth yet: shouldUpdateMaxRecv should be false")
	}
	f.addRecv(60)
	f.grow(60) // 60 of 100 bytes consumed and the window re-opened by 60
	if !f.shouldUpdateMaxRecv() {
		t.Fatalf("half window consumed: shouldUpdateMaxRecv should be true")
	}
	f.commitMaxRecv()
	if f.maxRecv != 160 {
		t.Fatalf("maxRecv = %d, want 160 after commit", f.maxRecv)
	}
	if f.shouldUpdateMaxRecv() {
		t.Fatalf("after commit, nothing pending: shouldUpdateMaxRecv should be false")
	}
}
