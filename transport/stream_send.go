package transport

import (
	"context"
	"sync"
)

// sendStreamState is the state machine from spec.md §4.2.
type sendStreamState uint8

const (
	streamReady sendStreamState = iota
	streamSend
	streamDataSent
	streamDataReceived
	streamWantReset
	streamResetSent
	streamResetReceived
)

// MaximumHeldChunks bounds how many full chunks a producer may publish
// ahead of the connection worker draining them (spec.md §4.2, §5).
const MaximumHeldChunks = 19

// chunk is one slab-backed piece of outbound stream data.
type chunk struct {
	offset uint64
	data   []byte // the valid slice of buf for this chunk
	buf    *[]byte
}

// sendStream is the outbound half of a stream (C6). The producer-facing
// methods (enqueue, markEndOfData, requestAbort) are called from an
// application goroutine; every other method runs exclusively on the
// connection's single worker goroutine and therefore needs no locking.
type sendStream struct {
	pool *bufferPool

	// mu guards only the fields touched from both sides: state (for the
	// WantReset transition), errorCode, and the producer's tail chunk.
	mu sync.Mutex

	state       sendStreamState
	errorCode   *uint64
	resetSignal chan struct{} // closed when requestAbort fires, wakes blocked enqueue

	tailBuf *[]byte
	tailOff int
	tailBase uint64

	written    uint64 // accepted from the user; producer-owned
	sizeKnown  bool

	chunkCh chan *chunk // SPSC: producer -> connection worker

	// Connection-worker-owned fields below; never touched by the producer.
	maxData      uint64
	dequeued     uint64
	unsentOffset uint64
	acked        rangeSet
	inFlight     rangeSet
	pending      rangeSet
	chunks       []*chunk
	finAcked     bool
}

func (s *sendStream) init(pool *bufferPool, maxData uint64) {
	s.pool = pool
	s.maxData = maxData
	s.chunkCh = make(chan *chunk, MaximumHeldChunks)
	s.resetSignal = make(chan struct{})
}

// enqueue is the synchronous producer API: it never blocks past filling
// the in-memory tail, but publishing a full chunk over chunkCh can suspend
// the caller when MaximumHeldChunks chunks are already outstanding.
func (s *sendStream) enqueue(ctx context.Context, b []byte) (int, error) {
	s.mu.Lock()
	if s.state >= streamWantReset {
		s.mu.Unlock()
		return 0, errStreamAborted
	}
	if s.sizeKnown {
		s.mu.Unlock()
		return 0, newError(InternalError, "enqueue after mark_end_of_data")
	}
	s.mu.Unlock()

	written := 0
	for written < len(b) {
		if s.tailBuf == nil {
			s.tailBuf = s.pool.get()
			s.tailOff = 0
			s.tailBase = s.written
		}
		n := copy((*s.tailBuf)[s.tailOff:bufferSize], b[written:])
		s.tailOff += n
		written += n
		s.written += uint64(n)
		if s.tailOff == bufferSize {
			c := &chunk{offset: s.tailBase, data: (*s.tailBuf)[:s.tailOff], buf: s.tailBuf}
			s.tailBuf = nil
			s.tailOff = 0
			select {
			case s.chunkCh <- c:
			case <-s.resetSignal:
				return written, errStreamAborted
			case <-ctx.Done():
				return written, ctx.Err()
			}
		}
	}
	return written, nil
}

// markEndOfData records the final size once. Any further enqueue fails.
func (s *sendStream) markEndOfData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sizeKnown {
		return
	}
	s.sizeKnown = true
	if s.tailBuf != nil {
		c := &chunk{offset: s.tailBase, data: (*s.tailBuf)[:s.tailOff], buf: s.tailBuf}
		s.tailBuf = nil
		s.tailOff = 0
		// The connection picks this up on its next drain. This is a
		// plain channel send with no context: it blocks the producer
		// while MaximumHeldChunks chunks are already waiting in chunkCh.
		s.chunkCh <- c
	}
}

// requestAbort transitions the stream to WantReset. Idempotent past
// WantReset. This is the one producer transition that needs the lock.
func (s *sendStream) requestAbort(code uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= streamWantReset {
		return
	}
	s.state = streamWantReset
	c := code
	s.errorCode = &c
	s.tailBuf = nil
	s.tailOff = 0
	close(s.resetSignal)
}

// drainChunks moves any chunks the producer has published into the
// worker-owned chunk list and pending range, without blocking.
func (s *sendStream) drainChunks() {
	for {
		select {
		case c := <-s.chunkCh:
			s.chunks = append(s.chunks, c)
			end := c.offset + uint64(len(c.data))
			s.pending.add(c.offset, end-1)
			s.dequeued = end
		default:
			return
		}
	}
}

// getNextSendableRange returns the first sendable range below maxData, or
// (written, 0) when nothing is sendable. Must not suspend.
func (s *sendStream) getNextSendableRange() (uint64, uint64) {
	s.drainChunks()
	if len(s.pending) == 0 {
		return s.written, 0
	}
	r := s.pending[0]
	end := r.end
	if end >= s.maxData {
		if s.maxData <= r.start {
			return s.written, 0
		}
		end = s.maxData - 1
	}
	return r.start, end - r.start + 1
}

// checkOut copies the next contiguous sendable bytes into buf and moves
// that range from pending to in-flight.
func (s *sendStream) checkOut(buf []byte) (offset uint64, n int, fin bool) {
	off, count := s.getNextSendableRange()
	if count == 0 {
		finNow := s.sizeKnown && s.unsentOffset == s.written && !s.fullyFlushed()
		return s.written, 0, finNow
	}
	if uint64(len(buf)) < count {
		count = uint64(len(buf))
	}
	remaining := count
	for _, c := range s.chunks {
		cEnd := c.offset + uint64(len(c.data))
		if cEnd <= off || c.offset >= off+count {
			continue
		}
		lo := maxU64(c.offset, off)
		hi := minU64(cEnd, off+count)
		copy(buf[lo-off:hi-off], c.data[lo-c.offset:hi-c.offset])
		_ = remaining
	}
	s.pending.remove(off, off+count-1)
	s.inFlight.add(off, off+count-1)
	if off+count > s.unsentOffset {
		s.unsentOffset = off + count
	}
	if s.state == streamReady {
		s.state = streamSend
	}
	fin = s.sizeKnown && s.unsentOffset == s.written
	if fin && s.state == streamSend {
		s.state = streamDataSent
	}
	return off, int(count), fin
}

func (s *sendStream) fullyFlushed() bool {
	return s.acked.span() == s.written
}

// onAck moves [offset, offset+count) from in-flight to acked and releases
// any chunks it fully covers from the front of the buffer.
func (s *sendStream) onAck(offset, count uint64, fin bool) {
	if count == 0 && !fin {
		return
	}
	if count > 0 {
		s.inFlight.remove(offset, offset+count-1)
		s.acked.add(offset, offset+count-1)
	}
	if fin {
		s.finAcked = true
	}
	if len(s.acked) > 0 && s.acked[0].start == 0 {
		releaseBefore := s.acked[0].end + 1
		i := 0
		for i < len(s.chunks) {
			c := s.chunks[i]
			if c.offset+uint64(len(c.data)) > releaseBefore {
				break
			}
			s.pool.put(c.buf)
			i++
		}
		s.chunks = s.chunks[i:]
	}
	if s.state == streamDataSent && s.acked.span() == s.written && (s.written == 0 || s.finAcked) {
		s.state = streamDataReceived
	}
}

// onLost moves [offset, offset+count) back from in-flight to pending so it
// is retransmitted.
func (s *sendStream) onLost(offset, count uint64) {
	if count == 0 {
		return
	}
	s.inFlight.remove(offset, offset+count-1)
	s.pending.add(offset, offset+count-1)
}

func (s *sendStream) onResetSent() {
	if s.state == streamWantReset {
		s.state = streamResetSent
	}
}

func (s *sendStream) onResetAcked() {
	if s.state == streamResetSent {
		s.state = streamResetReceived
	}
}

func (s *sendStream) onResetLost() {
	if s.state == streamResetSent {
		s.state = streamWantReset
	}
}

func (s *sendStream) aborted() bool {
	return s.state >= streamWantReset
}

func (s *sendStream) resetOwed() bool {
	return s.state == streamWantReset
}

func (s *sendStream) finalSize() uint64 {
	return s.written
}

func (s *sendStream) complete() bool {
	return s.state == streamDataReceived || s.state == streamResetReceived
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
