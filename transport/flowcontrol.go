package transport

// flowControl tracks one direction-pair of connection- or stream-level
// flow-control limits (spec.md §3 "Connection flow-control limits").
//
// Receive side: maxRecv is the limit we have committed to the peer via the
// last MAX_DATA/MAX_STREAM_DATA we sent; maxRecvNext is the limit we intend
// to advertise next (grows as the application consumes data) until it is
// actually sent, at which point commitMaxRecv() folds it into maxRecv.
//
// Send side: maxSend is the limit the peer has advertised to us, updated
// monotonically by max(max, new).
type flowControl struct {
	recvBytes   uint64 // total bytes counted against maxRecv so far
	maxRecv     uint64
	maxRecvNext uint64

	sendBytes uint64 // total bytes counted against maxSend so far
	maxSend   uint64
}

func (f *flowControl) init(maxRecv, maxSend uint64) {
	f.maxRecv = maxRecv
	f.maxRecvNext = maxRecv
	f.maxSend = maxSend
}

// canRecv returns how many more bytes may be received before maxRecv.
func (f *flowControl) canRecv() uint64 {
	if f.recvBytes >= f.maxRecv {
		return 0
	}
	return f.maxRecv - f.recvBytes
}

func (f *flowControl) addRecv(n int) {
	f.recvBytes += uint64(n)
}

// canSend returns how many more bytes may be sent before maxSend.
func (f *flowControl) canSend() uint64 {
	if f.sendBytes >= f.maxSend {
		return 0
	}
	return f.maxSend - f.sendBytes
}

func (f *flowControl) addSend(n int) {
	f.sendBytes += uint64(n)
}

// setMaxSend applies a peer-advertised MAX_DATA/MAX_STREAM_DATA value,
// which is monotone non-decreasing (spec.md §3).
func (f *flowControl) setMaxSend(v uint64) {
	if v > f.maxSend {
		f.maxSend = v
	}
}

// shouldUpdateMaxRecv reports whether enough of the current window has
// been consumed to justify sending a new limit (classic half-window rule).
func (f *flowControl) shouldUpdateMaxRecv() bool {
	if f.maxRecvNext <= f.maxRecv {
		return false
	}
	window := f.maxRecv - f.recvBytes
	consumed := f.maxRecvNext - f.maxRecv
	return consumed*2 >= window || window == 0
}

// grow raises the window we intend to advertise by delta bytes consumed by
// the application.
func (f *flowControl) grow(delta uint64) {
	f.maxRecvNext += delta
}

func (f *flowControl) commitMaxRecv() {
	f.maxRecv = f.maxRecvNext
}
