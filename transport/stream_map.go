package transport

// streamMap is the stream registry (C9): it indexes every live stream by
// id, enforces peer-initiated stream creation limits, and tracks which
// streams currently need servicing by the send path.
type streamMap struct {
	isClient bool

	streams map[uint64]*Stream

	// Accept queue: remote-initiated streams not yet popped by accept.
	acceptQueue []uint64

	localBidi  uint64 // next local bidi index to allocate
	localUni   uint64
	remoteBidi uint64 // highest remote index implicitly created + 1
	remoteUni  uint64

	maxStreamsBidiLocal  uint64 // limit we impose on streams the peer opens
	maxStreamsUniLocal   uint64
	maxStreamsBidiPeer   uint64 // limit peer has granted us
	maxStreamsUniPeer    uint64
}

func (m *streamMap) init(isClient bool, maxStreamsBidi, maxStreamsUni uint64) {
	m.isClient = isClient
	m.streams = make(map[uint64]*Stream)
	m.maxStreamsBidiLocal = maxStreamsBidi
	m.maxStreamsUniLocal = maxStreamsUni
}

func (m *streamMap) get(id uint64) *Stream {
	return m.streams[id]
}

// create registers a new stream and, per spec.md §3 lifecycle, implicitly
// creates every lower-indexed remote stream of the same type up to the
// local limit.
func (m *streamMap) create(pool *bufferPool, id uint64, local, bidi bool, maxRecv, maxSend uint64) (*Stream, error) {
	if st := m.streams[id]; st != nil {
		return st, nil
	}
	index := streamIndex(id)
	if !local {
		limit := m.maxStreamsUniLocal
		countLimit := &m.remoteUni
		if bidi {
			limit = m.maxStreamsBidiLocal
			countLimit = &m.remoteBidi
		}
		if index >= limit {
			return nil, newError(StreamLimitError, sprint("stream limit exceeded: ", id))
		}
		for i := *countLimit; i <= index; i++ {
			sid := streamID(i, m.isClient == false, bidi)
			if sid == id {
				continue
			}
			if m.streams[sid] == nil {
				implied := &Stream{}
				implied.init(pool, maxRecv, maxSend)
				m.streams[sid] = implied
				m.acceptQueue = append(m.acceptQueue, sid)
			}
		}
		*countLimit = index + 1
		m.acceptQueue = append(m.acceptQueue, id)
	} else {
		limit := m.maxStreamsUniPeer
		if bidi {
			limit = m.maxStreamsBidiPeer
		}
		if index >= limit {
			return nil, newError(StreamLimitError, sprint("peer stream limit reached: ", id))
		}
		if bidi {
			if index >= m.localBidi {
				m.localBidi = index + 1
			}
		} else {
			if index >= m.localUni {
				m.localUni = index + 1
			}
		}
	}
	st := &Stream{}
	st.init(pool, maxRecv, maxSend)
	m.streams[id] = st
	return st, nil
}

func (m *streamMap) setPeerMaxStreamsBidi(v uint64) {
	if v > m.maxStreamsBidiPeer {
		m.maxStreamsBidiPeer = v
	}
}

func (m *streamMap) setPeerMaxStreamsUni(v uint64) {
	if v > m.maxStreamsUniPeer {
		m.maxStreamsUniPeer = v
	}
}

func (m *streamMap) hasFlushable() bool {
	for _, st := range m.streams {
		if st.flushable() {
			return true
		}
	}
	return false
}

// accept pops the next remote-initiated stream awaiting acceptance.
func (m *streamMap) accept() (uint64, bool) {
	if len(m.acceptQueue) == 0 {
		return 0, false
	}
	id := m.acceptQueue[0]
	m.acceptQueue = m.acceptQueue[1:]
	return id, true
}

// destroyed reports whether both halves of the stream have reached a
// terminal state (spec.md §3 lifecycle) so the registry entry may be
// dropped once the application has released its handle.
func (m *streamMap) destroyed(id uint64) bool {
	st := m.streams[id]
	if st == nil {
		return true
	}
	return st.recv.finished() && st.send.complete()
}

func (m *streamMap) remove(id uint64) {
	delete(m.streams, id)
}
