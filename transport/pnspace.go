package transport

import "time"

// packetSpace identifies one of the three packet-number spaces tracked by
// a connection (spec.md §3; EarlyData shares Application and is not
// modelled as a distinct space since 0-RTT is a non-goal per spec.md §1).
type packetSpace int

const (
	packetSpaceInitial packetSpace = iota
	packetSpaceHandshake
	packetSpaceApplication
	packetSpaceCount
)

func (s packetSpace) String() string {
	switch s {
	case packetSpaceInitial:
		return "initial"
	case packetSpaceHandshake:
		return "handshake"
	case packetSpaceApplication:
		return "application"
	default:
		return "unknown"
	}
}

// cryptoMaxData is the "effectively infinite" flow-control limit applied
// to crypto streams (spec.md §3).
const cryptoMaxData = 1 << 32

// packetNumberSpace is C8: per-epoch send/receive bookkeeping.
type packetNumberSpace struct {
	largestReceived       int64 // -1 if none received yet
	largestRecvPacketTime time.Time
	nextPacketNumber      uint64

	recvPacketNeedAck rangeSet // PNs received but not yet acked (C1)
	receivedWindow    pnWindow // duplicate detection (C4)
	ackElicited       bool
	firstPacketAcked  bool

	sealer *seal // used to protect outgoing packets
	opener *seal // used to remove protection from incoming packets

	// Key update (application space only): the next generation is
	// pre-derived as soon as a phase toggle is observed or requested, and
	// installed either immediately (remote-initiated, derived on the fly
	// to decrypt the triggering packet) or on the next outgoing packet
	// (locally initiated, via updatePending). See spec.md §4.5 "Key
	// update".
	keyPhase      bool
	updatePending bool // a local UpdateKeys call is waiting for the next outgoing packet to carry the flipped phase
	nextSealer    *seal
	nextOpener    *seal
	prevOpener    *seal // retained briefly after an update, to decrypt packets reordered from the prior generation
	prevOpenerExpiry time.Time

	cryptoStream Stream

	lastAckSentAt  time.Time
	nextAckTimerAt time.Time
}

func (p *packetNumberSpace) init(pool *bufferPool) {
	p.largestReceived = -1
	p.receivedWindow.init()
	p.cryptoStream.init(pool, cryptoMaxData, cryptoMaxData)
}

func (p *packetNumberSpace) drop() {
	p.sealer = nil
	p.opener = nil
}

func (p *packetNumberSpace) canEncrypt() bool {
	return p.sealer != nil
}

func (p *packetNumberSpace) canDecrypt() bool {
	return p.opener != nil
}

// ready reports whether this space has anything worth an immediate send
// opportunity: an owed ACK or pending crypto bytes.
func (p *packetNumberSpace) ready() bool {
	if p.ackElicited {
		return true
	}
	off, n, _ := p.cryptoStream.send.checkOutPeek()
	_ = off
	return n > 0
}

func (p *packetNumberSpace) isPacketReceived(pn uint64) bool {
	return p.receivedWindow.contains(pn)
}

func (p *packetNumberSpace) onPacketReceived(pn uint64, now time.Time) {
	p.receivedWindow.add(pn)
	p.recvPacketNeedAck.add(pn, pn)
	if int64(pn) > p.largestReceived {
		p.largestReceived = int64(pn)
		p.largestRecvPacketTime = now
	}
}

// deriveNextKeys computes the next generation's sealer and opener from the
// current ones, for either a locally requested update or one discovered on
// receive (spec.md §4.5 "Key update"). It is a no-op if a derivation is
// already pending.
func (p *packetNumberSpace) deriveNextKeys() error {
	if p.nextSealer != nil {
		return nil
	}
	nextSealer, err := p.sealer.update()
	if err != nil {
		return err
	}
	nextOpener, err := p.opener.update()
	if err != nil {
		return err
	}
	p.nextSealer = nextSealer
	p.nextOpener = nextOpener
	return nil
}

// installNextKeys promotes the pre-derived next generation to current. The
// retired opener is kept around for retention to decrypt packets the peer
// sent under the prior generation before it observed the phase flip.
func (p *packetNumberSpace) installNextKeys(now time.Time, retention time.Duration) {
	p.prevOpener = p.opener
	p.prevOpenerExpiry = now.Add(retention)
	p.opener = p.nextOpener
	p.sealer = p.nextSealer
	p.nextOpener = nil
	p.nextSealer = nil
	p.keyPhase = !p.keyPhase
	p.updatePending = false
}

// requestKeyUpdate starts a locally initiated key update: the next
// generation is derived immediately so the very next outgoing packet can
// flip the phase bit and use it (spec.md §4.5 "Key update").
func (p *packetNumberSpace) requestKeyUpdate() error {
	if p.updatePending {
		return nil
	}
	if err := p.deriveNextKeys(); err != nil {
		return err
	}
	p.updatePending = true
	return nil
}

// decryptPacket removes header protection, decodes the truncated packet
// number against largestReceived, and authenticates the payload
// (spec.md §4.5 receive path steps 3-6).
func (p *packetNumberSpace) decryptPacket(b []byte, pkt *packet, now time.Time, keyUpdateRetention time.Duration) ([]byte, int, error) {
	opener := p.opener
	pnOffset := pkt.headerLen
	pnLen := opener.unprotectHeader(b, pnOffset, !pkt.isShortHeader())
	if b[0]&0x0c != 0 && !pkt.isShortHeader() {
		// Long header reserved bits must be zero (spec.md §4.5 step 3).
		return nil, 0, newError(ProtocolViolation, "reserved bits set")
	}
	truncated := decodeTruncatedPN(b[pnOffset:pnOffset+pnLen], pnLen)
	fullPN := decodePacketNumber(p.largestReceived, truncated, pnLen)
	pkt.packetNumber = fullPN
	pkt.pnLength = pnLen

	used := opener
	usingNext := false
	if pkt.isShortHeader() {
		phase := b[0]&0x04 != 0
		if phase != p.keyPhase {
			// Either our own pending update is being echoed back, or the
			// peer initiated one of its own: derive the next generation
			// if it isn't already waiting, and try it.
			if err := p.deriveNextKeys(); err != nil {
				return nil, 0, err
			}
			used = p.nextOpener
			usingNext = true
		}
	}
	payloadLen := pkt.protectedLen - pnLen
	if payloadLen < 0 {
		return nil, 0, newError(ProtocolViolation, "packet too short for declared length")
	}
	pkt.payloadLen = payloadLen
	payloadStart := pnOffset + pnLen
	total := pkt.headerLen + pnLen + payloadLen
	if total > len(b) {
		return nil, 0, newError(ProtocolViolation, "packet length overflow")
	}
	plain, err := used.decryptPacket(b[:total], payloadStart, fullPN)
	if err != nil && usingNext && p.prevOpener != nil && now.Before(p.prevOpenerExpiry) {
		// The phase mismatch may instead be a packet reordered from the
		// generation just retired, rather than a new update.
		plain, err = p.prevOpener.decryptPacket(b[:total], payloadStart, fullPN)
		usingNext = false
	}
	if err != nil {
		return nil, 0, err
	}
	if usingNext {
		p.installNextKeys(now, keyUpdateRetention)
	}
	return plain, total, nil
}

// encryptPacket protects the header and seals the payload in place.
func (p *packetNumberSpace) encryptPacket(b []byte, pkt *packet) {
	pnOffset := pkt.headerLen
	payloadStart := pnOffset + pkt.pnLength
	payloadEnd := payloadStart + pkt.payloadLen - p.sealer.aead.Overhead()
	p.sealer.encryptPacket(b, pnOffset, pkt.pnLength, payloadStart, payloadEnd, pkt.packetNumber)
	p.sealer.protectHeader(b, pnOffset, pkt.pnLength, !pkt.isShortHeader())
}

// checkOutPeek exposes whether the crypto stream's sendStream has
// sendable bytes without copying, for ready().
func (s *sendStream) checkOutPeek() (uint64, uint64, bool) {
	off, n := s.getNextSendableRange()
	return off, n, n > 0
}
