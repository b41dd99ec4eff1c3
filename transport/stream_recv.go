package transport

import (
	"context"
	"sync"
)

// recvStreamState is the state machine from spec.md §4.3.
type recvStreamState uint8

const (
	streamRecv recvStreamState = iota
	streamSizeKnown
	streamDataRcvd
	streamDataRead
	streamResetRcvd
	streamResetRead
)

// recvChunk is one contiguous run of bytes received out of order, retained
// until it becomes part of the contiguous readable prefix.
type recvChunk struct {
	offset uint64
	data   []byte
}

// receiveStream is the inbound half of a stream (C7). All methods run on
// the connection worker except Read, which an application goroutine calls
// and which may suspend waiting for data (spec.md §5).
type receiveStream struct {
	mu sync.Mutex

	state       recvStreamState
	readOffset  uint64
	finalSize   uint64
	haveFinal   bool
	errorCode   *uint64
	maxStreamData uint64
	window        uint64 // window size granted, used to compute half-window updates
	lastWindowUpdateAt uint64

	received []recvChunk // non-overlapping, sorted by offset
	notify   chan struct{}
}

func (s *receiveStream) init(maxStreamData uint64) {
	s.maxStreamData = maxStreamData
	s.window = maxStreamData
	s.notify = make(chan struct{}, 1)
}

func (s *receiveStream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// push ingests (offset, data, fin) per spec.md §4.3. Returns a transport
// error for a final-size conflict or flow-control violation.
func (s *receiveStream) push(data []byte, offset uint64, fin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := offset + uint64(len(data))
	if s.haveFinal {
		if (fin && end != s.finalSize) || end > s.finalSize {
			return newError(FinalSizeError, "stream final size mismatch")
		}
	}
	if fin {
		if end < s.readOffset {
			return newError(FinalSizeError, "final size below bytes already read")
		}
		s.haveFinal = true
		s.finalSize = end
		if s.state == streamRecv {
			s.state = streamSizeKnown
		}
	}
	if end > s.maxStreamData {
		return errFlowControl
	}
	if len(data) > 0 {
		s.insert(offset, data)
	}
	if s.haveFinal && s.contiguousEnd() >= s.finalSize {
		s.state = streamDataRcvd
	}
	s.wake()
	return nil
}

// insert merges a newly received range into the sorted, non-overlapping
// received list. Overlap bytes are assumed identical (spec.md §4.3); on
// mismatch the first copy observed is kept.
func (s *receiveStream) insert(offset uint64, data []byte) {
	end := offset + uint64(len(data))
	i := 0
	for i < len(s.received) && s.received[i].offset+uint64(len(s.received[i].data)) < offset {
		i++
	}
	j := i
	for j < len(s.received) && s.received[j].offset <= end {
		j++
	}
	if i == j {
		c := recvChunk{offset: offset, data: append([]byte(nil), data...)}
		s.received = append(s.received, recvChunk{})
		copy(s.received[i+1:], s.received[i:])
		s.received[i] = c
		return
	}
	lo := minU64(offset, s.received[i].offset)
	hi := end
	if last := s.received[j-1]; last.offset+uint64(len(last.data)) > hi {
		hi = last.offset + uint64(len(last.data))
	}
	merged := make([]byte, hi-lo)
	for _, c := range s.received[i:j] {
		copy(merged[c.offset-lo:], c.data)
	}
	copy(merged[offset-lo:], data)
	newChunk := recvChunk{offset: lo, data: merged}
	tail := append([]recvChunk(nil), s.received[j:]...)
	s.received = append(s.received[:i], newChunk)
	s.received = append(s.received, tail...)
}

// contiguousEnd returns the offset one past the contiguous prefix starting
// at 0 received so far (whether already delivered to the reader or still
// buffered).
func (s *receiveStream) contiguousEnd() uint64 {
	if len(s.received) == 0 || s.received[0].offset > s.readOffset {
		return s.readOffset
	}
	return s.received[0].offset + uint64(len(s.received[0].data))
}

// read returns the maximum contiguous prefix past readOffset. It never
// blocks; suspension (spec.md §5) is implemented by the public API layer
// polling this with the notify channel.
func (s *receiveStream) read(buf []byte) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == streamResetRcvd || s.state == streamResetRead {
		code := uint64(0)
		if s.errorCode != nil {
			code = *s.errorCode
		}
		s.state = streamResetRead
		return 0, false, &StreamError{Code: code}
	}
	if len(s.received) > 0 && s.received[0].offset == s.readOffset {
		c := s.received[0]
		n := copy(buf, c.data)
		s.readOffset += uint64(n)
		if n == len(c.data) {
			s.received = s.received[1:]
		} else {
			s.received[0] = recvChunk{offset: c.offset + uint64(n), data: c.data[n:]}
		}
		s.maybeUpdateWindow()
		return n, false, nil
	}
	if s.haveFinal && s.readOffset == s.finalSize {
		if s.state == streamDataRcvd {
			s.state = streamDataRead
		}
		return 0, true, nil
	}
	return 0, false, nil
}

// readAsync suspends via ctx/notify until bytes, EOF, or reset are
// observed (spec.md §5 "read_async" suspension point).
func (s *receiveStream) readAsync(ctx context.Context, buf []byte) (int, bool, error) {
	for {
		n, eof, err := s.read(buf)
		if n > 0 || eof || err != nil {
			return n, eof, err
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			return 0, false, ctx.Err()
		}
	}
}

// maybeUpdateWindow raises maxStreamData, the limit push enforces, to
// readOffset+window once the bytes consumed since the last raise reach half
// the window. It returns nothing and does not itself queue a
// MAX_STREAM_DATA frame.
func (s *receiveStream) maybeUpdateWindow() {
	consumed := s.readOffset - s.lastWindowUpdateAt
	if consumed*2 >= s.window {
		s.maxStreamData = s.readOffset + s.window
		s.lastWindowUpdateAt = s.readOffset
	}
}

// reset applies an incoming RESET_STREAM. Returns the number of bytes the
// caller should additionally credit to connection-level flow control
// (bytes the stream had not yet accounted for, i.e. finalSize minus what
// was already seen as received).
func (s *receiveStream) reset(finalSize uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.haveFinal && finalSize != s.finalSize {
		return 0, newError(FinalSizeError, "reset final size mismatch")
	}
	prevKnown := s.contiguousEnd()
	if finalSize < prevKnown {
		return 0, newError(FinalSizeError, "reset final size below received data")
	}
	credit := int(finalSize - prevKnown)
	s.haveFinal = true
	s.finalSize = finalSize
	if s.state != streamDataRead && s.state != streamResetRead {
		s.state = streamResetRcvd
	}
	s.received = nil
	s.wake()
	return credit, nil
}

func (s *receiveStream) finished() bool {
	return s.state == streamDataRead || s.state == streamResetRead
}
