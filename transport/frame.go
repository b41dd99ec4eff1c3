package transport

// Frame type codes (spec.md §4.7, RFC 9000 §19 as of draft-27).
const (
	frameTypePadding             = 0x00
	frameTypePing                = 0x01
	frameTypeAck                 = 0x02
	frameTypeAckECN              = 0x03
	frameTypeResetStream         = 0x04
	frameTypeStopSending         = 0x05
	frameTypeCrypto              = 0x06
	frameTypeNewToken            = 0x07
	frameTypeStream              = 0x08
	frameTypeStreamEnd           = 0x0f
	frameTypeMaxData             = 0x10
	frameTypeMaxStreamData       = 0x11
	frameTypeMaxStreamsBidi      = 0x12
	frameTypeMaxStreamsUni       = 0x13
	frameTypeDataBlocked         = 0x14
	frameTypeStreamDataBlocked   = 0x15
	frameTypeStreamsBlockedBidi  = 0x16
	frameTypeStreamsBlockedUni   = 0x17
	frameTypeNewConnectionID     = 0x18
	frameTypeRetireConnectionID  = 0x19
	frameTypePathChallenge       = 0x1a
	frameTypePathResponse        = 0x1b
	frameTypeConnectionClose     = 0x1c
	frameTypeApplicationClose    = 0x1d
	frameTypeHanshakeDone        = 0x1e
)

// Stream frame flag bits (RFC 9000 §19.8).
const (
	streamFrameFlagOff = 0x04
	streamFrameFlagLen = 0x02
	streamFrameFlagFin = 0x01
)

// frame is implemented by every QUIC frame type; the codec is bit-exact
// with the transport spec (spec.md §4.7, §8 invariant 5).
type frame interface {
	frameType() uint64
	encodedLen() int
	encode(b []byte) (int, error)
	decode(b []byte) (int, error)
}

func isFrameAckEliciting(typ uint64) bool {
	switch typ {
	case frameTypePadding, frameTypeAck, frameTypeAckECN, frameTypeConnectionClose, frameTypeApplicationClose:
		return false
	default:
		return true
	}
}

// encodeFrames writes every frame in order into b and returns the total
// length.
func encodeFrames(b []byte, frames []frame) (int, error) {
	off := 0
	for _, f := range frames {
		n, err := f.encode(b[off:])
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off, nil
}

// --- PADDING ---

type paddingFrame struct {
	length int
}

func newPaddingFrame(n int) *paddingFrame { return &paddingFrame{length: n} }

func (f *paddingFrame) frameType() uint64 { return frameTypePadding }
func (f *paddingFrame) encodedLen() int   { return f.length }
func (f *paddingFrame) encode(b []byte) (int, error) {
	for i := 0; i < f.length; i++ {
		b[i] = 0
	}
	return f.length, nil
}
func (f *paddingFrame) decode(b []byte) (int, error) {
	n := 0
	for n < len(b) && b[n] == frameTypePadding {
		n++
	}
	f.length = n
	if n == 0 {
		n = 1
	}
	return n, nil
}

// --- PING ---

type pingFrame struct{}

func (f *pingFrame) frameType() uint64             { return frameTypePing }
func (f *pingFrame) encodedLen() int                { return 1 }
func (f *pingFrame) encode(b []byte) (int, error)   { b[0] = frameTypePing; return 1, nil }
func (f *pingFrame) decode(b []byte) (int, error)   { return 1, nil }

// --- ACK ---

type ackRangeWire struct {
	gap      uint64
	ackRange uint64
}

type ackFrame struct {
	largestAck    uint64
	ackDelay      uint64
	firstAckRange uint64
	ranges        []ackRangeWire // additional ranges below the first, most-recent first
}

// newAckFrame builds an ackFrame from a received-PN range set, most recent
// range last in rs (rangeSet is ascending order).
func newAckFrame(ackDelay uint64, rs rangeSet) *ackFrame {
	if len(rs) == 0 {
		return nil
	}
	f := &ackFrame{ackDelay: ackDelay}
	last := rs[len(rs)-1]
	f.largestAck = last.end
	f.firstAckRange = last.len() - 1
	prevStart := last.start
	for i := len(rs) - 2; i >= 0; i-- {
		r := rs[i]
		gap := prevStart - r.end - 2
		f.ranges = append(f.ranges, ackRangeWire{gap: gap, ackRange: r.len() - 1})
		prevStart = r.start
	}
	return f
}

// toRangeSet reconstructs the set of acked packet numbers described by the
// frame, or nil if the ranges are malformed (underflow below zero).
func (f *ackFrame) toRangeSet() rangeSet {
	var rs rangeSet
	hi := f.largestAck
	lo := hi - f.firstAckRange
	if lo > hi {
		return nil
	}
	rs = append(rs, numberRange{lo, hi})
	smallest := lo
	for _, r := range f.ranges {
		if smallest < r.gap+2 {
			return nil
		}
		hi = smallest - r.gap - 2
		if r.ackRange > hi {
			return nil
		}
		lo = hi - r.ackRange
		rs = append(rs, numberRange{lo, hi})
		smallest = lo
	}
	// Reverse into ascending order to match rangeSet's invariant.
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return rs
}

func (f *ackFrame) frameType() uint64 { return frameTypeAck }

func (f *ackFrame) String() string {
	return sprint("largest=", f.largestAck, " delay=", f.ackDelay)
}

func (f *ackFrame) encodedLen() int {
	n := 1 + varintLen(f.largestAck) + varintLen(f.ackDelay) + varintLen(uint64(len(f.ranges))) + varintLen(f.firstAckRange)
	for _, r := range f.ranges {
		n += varintLen(r.gap) + varintLen(r.ackRange)
	}
	return n
}

func (f *ackFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = frameTypeAck
	off++
	off += putVarint(b[off:], f.largestAck)
	off += putVarint(b[off:], f.ackDelay)
	off += putVarint(b[off:], uint64(len(f.ranges)))
	off += putVarint(b[off:], f.firstAckRange)
	for _, r := range f.ranges {
		off += putVarint(b[off:], r.gap)
		off += putVarint(b[off:], r.ackRange)
	}
	return off, nil
}

func (f *ackFrame) decode(b []byte) (int, error) {
	off := 1 // frame type already identified by caller
	n := getVarint(b[off:], &f.largestAck)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack: largest")
	}
	off += n
	n = getVarint(b[off:], &f.ackDelay)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack: delay")
	}
	off += n
	var count uint64
	n = getVarint(b[off:], &count)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack: count")
	}
	off += n
	n = getVarint(b[off:], &f.firstAckRange)
	if n == 0 {
		return 0, newError(FrameEncodingError, "ack: first range")
	}
	off += n
	f.ranges = f.ranges[:0]
	for i := uint64(0); i < count; i++ {
		var gap, rng uint64
		n = getVarint(b[off:], &gap)
		if n == 0 {
			return 0, newError(FrameEncodingError, "ack: gap")
		}
		off += n
		n = getVarint(b[off:], &rng)
		if n == 0 {
			return 0, newError(FrameEncodingError, "ack: range")
		}
		off += n
		f.ranges = append(f.ranges, ackRangeWire{gap: gap, ackRange: rng})
	}
	return off, nil
}

// --- RESET_STREAM ---

type resetStreamFrame struct {
	streamID  uint64
	errorCode uint64
	finalSize uint64
}

func newResetStreamFrame(streamID, errorCode, finalSize uint64) *resetStreamFrame {
	return &resetStreamFrame{streamID: streamID, errorCode: errorCode, finalSize: finalSize}
}

func (f *resetStreamFrame) frameType() uint64 { return frameTypeResetStream }
func (f *resetStreamFrame) String() string {
	return sprint("stream=", f.streamID, " code=", f.errorCode, " final=", f.finalSize)
}
func (f *resetStreamFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.errorCode) + varintLen(f.finalSize)
}
func (f *resetStreamFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = frameTypeResetStream
	off++
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.errorCode)
	off += putVarint(b[off:], f.finalSize)
	return off, nil
}
func (f *resetStreamFrame) decode(b []byte) (int, error) {
	off := 1
	for _, v := range []*uint64{&f.streamID, &f.errorCode, &f.finalSize} {
		n := getVarint(b[off:], v)
		if n == 0 {
			return 0, newError(FrameEncodingError, "reset_stream")
		}
		off += n
	}
	return off, nil
}

// --- STOP_SENDING ---

type stopSendingFrame struct {
	streamID  uint64
	errorCode uint64
}

func newStopSendingFrame(streamID, errorCode uint64) *stopSendingFrame {
	return &stopSendingFrame{streamID: streamID, errorCode: errorCode}
}

func (f *stopSendingFrame) frameType() uint64 { return frameTypeStopSending }
func (f *stopSendingFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.errorCode)
}
func (f *stopSendingFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = frameTypeStopSending
	off++
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.errorCode)
	return off, nil
}
func (f *stopSendingFrame) decode(b []byte) (int, error) {
	off := 1
	n := getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending")
	}
	off += n
	n = getVarint(b[off:], &f.errorCode)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stop_sending")
	}
	off += n
	return off, nil
}

// --- CRYPTO ---

type cryptoFrame struct {
	offset uint64
	data   []byte
}

func newCryptoFrame(data []byte, offset uint64) *cryptoFrame {
	return &cryptoFrame{offset: offset, data: data}
}

func (f *cryptoFrame) frameType() uint64 { return frameTypeCrypto }
func (f *cryptoFrame) String() string    { return sprint("offset=", f.offset, " len=", len(f.data)) }
func (f *cryptoFrame) encodedLen() int {
	return 1 + varintLen(f.offset) + varintLen(uint64(len(f.data))) + len(f.data)
}
func (f *cryptoFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = frameTypeCrypto
	off++
	off += putVarint(b[off:], f.offset)
	off += putVarintLenPrefixed(b[off:], f.data)
	return off, nil
}
func (f *cryptoFrame) decode(b []byte) (int, error) {
	off := 1
	n := getVarint(b[off:], &f.offset)
	if n == 0 {
		return 0, newError(FrameEncodingError, "crypto: offset")
	}
	off += n
	data, n := getVarintLenPrefixed(b[off:])
	if n == 0 {
		return 0, newError(FrameEncodingError, "crypto: data")
	}
	f.data = data
	off += n
	return off, nil
}

// --- NEW_TOKEN ---

type newTokenFrame struct {
	token []byte
}

func newNewTokenFrame(token []byte) *newTokenFrame { return &newTokenFrame{token: token} }

func (f *newTokenFrame) frameType() uint64 { return frameTypeNewToken }
func (f *newTokenFrame) encodedLen() int   { return 1 + varintLen(uint64(len(f.token))) + len(f.token) }
func (f *newTokenFrame) encode(b []byte) (int, error) {
	b[0] = frameTypeNewToken
	return 1 + putVarintLenPrefixed(b[1:], f.token), nil
}
func (f *newTokenFrame) decode(b []byte) (int, error) {
	tok, n := getVarintLenPrefixed(b[1:])
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_token")
	}
	f.token = tok
	return 1 + n, nil
}

// --- STREAM ---

type streamFrame struct {
	streamID uint64
	offset   uint64
	data     []byte
	fin      bool
}

func newStreamFrame(streamID uint64, data []byte, offset uint64, fin bool) *streamFrame {
	return &streamFrame{streamID: streamID, data: data, offset: offset, fin: fin}
}

func (f *streamFrame) frameType() uint64 {
	typ := uint64(frameTypeStream) | streamFrameFlagLen
	if f.offset > 0 {
		typ |= streamFrameFlagOff
	}
	if f.fin {
		typ |= streamFrameFlagFin
	}
	return typ
}
func (f *streamFrame) String() string {
	return sprint("stream=", f.streamID, " offset=", f.offset, " len=", len(f.data), " fin=", f.fin)
}
func (f *streamFrame) encodedLen() int {
	n := 1 + varintLen(f.streamID)
	if f.offset > 0 {
		n += varintLen(f.offset)
	}
	n += varintLen(uint64(len(f.data))) + len(f.data)
	return n
}
func (f *streamFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = byte(f.frameType())
	off++
	off += putVarint(b[off:], f.streamID)
	if f.offset > 0 {
		off += putVarint(b[off:], f.offset)
	}
	off += putVarintLenPrefixed(b[off:], f.data)
	return off, nil
}
func (f *streamFrame) decode(b []byte) (int, error) {
	typ := b[0]
	off := 1
	n := getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream: id")
	}
	off += n
	f.offset = 0
	if typ&streamFrameFlagOff != 0 {
		n = getVarint(b[off:], &f.offset)
		if n == 0 {
			return 0, newError(FrameEncodingError, "stream: offset")
		}
		off += n
	}
	if typ&streamFrameFlagLen != 0 {
		data, n := getVarintLenPrefixed(b[off:])
		if n == 0 {
			return 0, newError(FrameEncodingError, "stream: data")
		}
		f.data = data
		off += n
	} else {
		f.data = b[off:]
		off = len(b)
	}
	f.fin = typ&streamFrameFlagFin != 0
	return off, nil
}

// --- MAX_DATA ---

type maxDataFrame struct {
	maximumData uint64
}

func newMaxDataFrame(v uint64) *maxDataFrame { return &maxDataFrame{maximumData: v} }

func (f *maxDataFrame) frameType() uint64 { return frameTypeMaxData }
func (f *maxDataFrame) encodedLen() int   { return 1 + varintLen(f.maximumData) }
func (f *maxDataFrame) encode(b []byte) (int, error) {
	b[0] = frameTypeMaxData
	return 1 + putVarint(b[1:], f.maximumData), nil
}
func (f *maxDataFrame) decode(b []byte) (int, error) {
	n := getVarint(b[1:], &f.maximumData)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_data")
	}
	return 1 + n, nil
}

// --- MAX_STREAM_DATA ---

type maxStreamDataFrame struct {
	streamID    uint64
	maximumData uint64
}

func newMaxStreamDataFrame(streamID, v uint64) *maxStreamDataFrame {
	return &maxStreamDataFrame{streamID: streamID, maximumData: v}
}

func (f *maxStreamDataFrame) frameType() uint64 { return frameTypeMaxStreamData }
func (f *maxStreamDataFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.maximumData)
}
func (f *maxStreamDataFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = frameTypeMaxStreamData
	off++
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.maximumData)
	return off, nil
}
func (f *maxStreamDataFrame) decode(b []byte) (int, error) {
	off := 1
	n := getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data")
	}
	off += n
	n = getVarint(b[off:], &f.maximumData)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_stream_data")
	}
	off += n
	return off, nil
}

// --- MAX_STREAMS ---

type maxStreamsFrame struct {
	maximumStreams uint64
	bidi           bool
}

func newMaxStreamsFrame(v uint64, bidi bool) *maxStreamsFrame {
	return &maxStreamsFrame{maximumStreams: v, bidi: bidi}
}

func (f *maxStreamsFrame) frameType() uint64 {
	if f.bidi {
		return frameTypeMaxStreamsBidi
	}
	return frameTypeMaxStreamsUni
}
func (f *maxStreamsFrame) encodedLen() int { return 1 + varintLen(f.maximumStreams) }
func (f *maxStreamsFrame) encode(b []byte) (int, error) {
	b[0] = byte(f.frameType())
	return 1 + putVarint(b[1:], f.maximumStreams), nil
}
func (f *maxStreamsFrame) decode(b []byte) (int, error) {
	f.bidi = b[0] == frameTypeMaxStreamsBidi
	n := getVarint(b[1:], &f.maximumStreams)
	if n == 0 {
		return 0, newError(FrameEncodingError, "max_streams")
	}
	return 1 + n, nil
}

// --- DATA_BLOCKED ---

type dataBlockedFrame struct {
	dataLimit uint64
}

func newDataBlockedFrame(v uint64) *dataBlockedFrame { return &dataBlockedFrame{dataLimit: v} }

func (f *dataBlockedFrame) frameType() uint64 { return frameTypeDataBlocked }
func (f *dataBlockedFrame) encodedLen() int   { return 1 + varintLen(f.dataLimit) }
func (f *dataBlockedFrame) encode(b []byte) (int, error) {
	b[0] = frameTypeDataBlocked
	return 1 + putVarint(b[1:], f.dataLimit), nil
}
func (f *dataBlockedFrame) decode(b []byte) (int, error) {
	n := getVarint(b[1:], &f.dataLimit)
	if n == 0 {
		return 0, newError(FrameEncodingError, "data_blocked")
	}
	return 1 + n, nil
}

// --- STREAM_DATA_BLOCKED ---

type streamDataBlockedFrame struct {
	streamID  uint64
	dataLimit uint64
}

func newStreamDataBlockedFrame(streamID, v uint64) *streamDataBlockedFrame {
	return &streamDataBlockedFrame{streamID: streamID, dataLimit: v}
}

func (f *streamDataBlockedFrame) frameType() uint64 { return frameTypeStreamDataBlocked }
func (f *streamDataBlockedFrame) encodedLen() int {
	return 1 + varintLen(f.streamID) + varintLen(f.dataLimit)
}
func (f *streamDataBlockedFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = frameTypeStreamDataBlocked
	off++
	off += putVarint(b[off:], f.streamID)
	off += putVarint(b[off:], f.dataLimit)
	return off, nil
}
func (f *streamDataBlockedFrame) decode(b []byte) (int, error) {
	off := 1
	n := getVarint(b[off:], &f.streamID)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked")
	}
	off += n
	n = getVarint(b[off:], &f.dataLimit)
	if n == 0 {
		return 0, newError(FrameEncodingError, "stream_data_blocked")
	}
	off += n
	return off, nil
}

// --- STREAMS_BLOCKED ---

type streamsBlockedFrame struct {
	streamLimit uint64
	bidi        bool
}

func newStreamsBlockedFrame(v uint64, bidi bool) *streamsBlockedFrame {
	return &streamsBlockedFrame{streamLimit: v, bidi: bidi}
}

func (f *streamsBlockedFrame) frameType() uint64 {
	if f.bidi {
		return frameTypeStreamsBlockedBidi
	}
	return frameTypeStreamsBlockedUni
}
func (f *streamsBlockedFrame) encodedLen() int { return 1 + varintLen(f.streamLimit) }
func (f *streamsBlockedFrame) encode(b []byte) (int, error) {
	b[0] = byte(f.frameType())
	return 1 + putVarint(b[1:], f.streamLimit), nil
}
func (f *streamsBlockedFrame) decode(b []byte) (int, error) {
	f.bidi = b[0] == frameTypeStreamsBlockedBidi
	n := getVarint(b[1:], &f.streamLimit)
	if n == 0 {
		return 0, newError(FrameEncodingError, "streams_blocked")
	}
	return 1 + n, nil
}

// --- NEW_CONNECTION_ID --- (codec only: connection migration is a non-goal, spec.md §1)

type newConnectionIDFrame struct {
	sequenceNumber uint64
	retirePriorTo  uint64
	connectionID   []byte
	statelessResetToken [16]byte
}

func (f *newConnectionIDFrame) frameType() uint64 { return frameTypeNewConnectionID }
func (f *newConnectionIDFrame) encodedLen() int {
	return 1 + varintLen(f.sequenceNumber) + varintLen(f.retirePriorTo) + 1 + len(f.connectionID) + 16
}
func (f *newConnectionIDFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = frameTypeNewConnectionID
	off++
	off += putVarint(b[off:], f.sequenceNumber)
	off += putVarint(b[off:], f.retirePriorTo)
	b[off] = byte(len(f.connectionID))
	off++
	off += copy(b[off:], f.connectionID)
	off += copy(b[off:], f.statelessResetToken[:])
	return off, nil
}
func (f *newConnectionIDFrame) decode(b []byte) (int, error) {
	off := 1
	n := getVarint(b[off:], &f.sequenceNumber)
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id")
	}
	off += n
	n = getVarint(b[off:], &f.retirePriorTo)
	if n == 0 {
		return 0, newError(FrameEncodingError, "new_connection_id")
	}
	off += n
	if off >= len(b) {
		return 0, newError(FrameEncodingError, "new_connection_id")
	}
	length := int(b[off])
	off++
	if off+length+16 > len(b) {
		return 0, newError(FrameEncodingError, "new_connection_id")
	}
	f.connectionID = b[off : off+length]
	off += length
	copy(f.statelessResetToken[:], b[off:off+16])
	off += 16
	return off, nil
}

// --- RETIRE_CONNECTION_ID ---

type retireConnectionIDFrame struct {
	sequenceNumber uint64
}

func (f *retireConnectionIDFrame) frameType() uint64 { return frameTypeRetireConnectionID }
func (f *retireConnectionIDFrame) encodedLen() int    { return 1 + varintLen(f.sequenceNumber) }
func (f *retireConnectionIDFrame) encode(b []byte) (int, error) {
	b[0] = frameTypeRetireConnectionID
	return 1 + putVarint(b[1:], f.sequenceNumber), nil
}
func (f *retireConnectionIDFrame) decode(b []byte) (int, error) {
	n := getVarint(b[1:], &f.sequenceNumber)
	if n == 0 {
		return 0, newError(FrameEncodingError, "retire_connection_id")
	}
	return 1 + n, nil
}

// --- PATH_CHALLENGE / PATH_RESPONSE --- (codec only: path validation is a non-goal, spec.md §1)

type pathChallengeFrame struct {
	data [8]byte
}

func (f *pathChallengeFrame) frameType() uint64 { return frameTypePathChallenge }
func (f *pathChallengeFrame) encodedLen() int   { return 9 }
func (f *pathChallengeFrame) encode(b []byte) (int, error) {
	b[0] = frameTypePathChallenge
	copy(b[1:9], f.data[:])
	return 9, nil
}
func (f *pathChallengeFrame) decode(b []byte) (int, error) {
	if len(b) < 9 {
		return 0, newError(FrameEncodingError, "path_challenge")
	}
	copy(f.data[:], b[1:9])
	return 9, nil
}

type pathResponseFrame struct {
	data [8]byte
}

func (f *pathResponseFrame) frameType() uint64 { return frameTypePathResponse }
func (f *pathResponseFrame) encodedLen() int   { return 9 }
func (f *pathResponseFrame) encode(b []byte) (int, error) {
	b[0] = frameTypePathResponse
	copy(b[1:9], f.data[:])
	return 9, nil
}
func (f *pathResponseFrame) decode(b []byte) (int, error) {
	if len(b) < 9 {
		return 0, newError(FrameEncodingError, "path_response")
	}
	copy(f.data[:], b[1:9])
	return 9, nil
}

// --- CONNECTION_CLOSE ---

type connectionCloseFrame struct {
	application       bool
	errorCode         ErrorCode
	triggerFrameType  uint64 // the transport frame type that triggered the error (transport-space only)
	reasonPhrase      []byte
}

func newConnectionCloseFrame(errorCode, triggerFrameType uint64, reason []byte, application bool) *connectionCloseFrame {
	return &connectionCloseFrame{application: application, errorCode: ErrorCode(errorCode), triggerFrameType: triggerFrameType, reasonPhrase: reason}
}

func (f *connectionCloseFrame) frameType() uint64 {
	if f.application {
		return frameTypeApplicationClose
	}
	return frameTypeConnectionClose
}
func (f *connectionCloseFrame) String() string {
	return sprint(errorCodeString(f.errorCode), ": ", string(f.reasonPhrase))
}
func (f *connectionCloseFrame) encodedLen() int {
	n := 1 + varintLen(uint64(f.errorCode))
	if !f.application {
		n += varintLen(f.triggerFrameType)
	}
	n += varintLen(uint64(len(f.reasonPhrase))) + len(f.reasonPhrase)
	return n
}
func (f *connectionCloseFrame) encode(b []byte) (int, error) {
	off := 0
	b[off] = byte(f.frameType())
	off++
	off += putVarint(b[off:], uint64(f.errorCode))
	if !f.application {
		off += putVarint(b[off:], f.triggerFrameType)
	}
	off += putVarintLenPrefixed(b[off:], f.reasonPhrase)
	return off, nil
}
func (f *connectionCloseFrame) decode(b []byte) (int, error) {
	f.application = b[0] == frameTypeApplicationClose
	off := 1
	var code uint64
	n := getVarint(b[off:], &code)
	if n == 0 {
		return 0, newError(FrameEncodingError, "connection_close")
	}
	f.errorCode = ErrorCode(code)
	off += n
	if !f.application {
		n = getVarint(b[off:], &f.triggerFrameType)
		if n == 0 {
			return 0, newError(FrameEncodingError, "connection_close")
		}
		off += n
	}
	reason, n := getVarintLenPrefixed(b[off:])
	if n == 0 {
		return 0, newError(FrameEncodingError, "connection_close")
	}
	f.reasonPhrase = reason
	off += n
	return off, nil
}

// --- HANDSHAKE_DONE ---

type handshakeDoneFrame struct{}

func (f *handshakeDoneFrame) frameType() uint64           { return frameTypeHanshakeDone }
func (f *handshakeDoneFrame) encodedLen() int             { return 1 }
func (f *handshakeDoneFrame) encode(b []byte) (int, error) { b[0] = frameTypeHanshakeDone; return 1, nil }
func (f *handshakeDoneFrame) decode(b []byte) (int, error) { return 1, nil }
