package transport

// Wire-format constants (spec.md §6).
const (
	MaxCIDLength        = 20
	MinInitialPacketSize = 1200
	MaxPacketSize        = 1<<14 - 1
	minPayloadLength     = 4 // bytes of payload beyond the PN needed to safely sample the HP mask
	aeadOverhead         = 16
)

// PeekDestinationCID extracts the destination connection ID from a raw
// datagram without fully decoding or decrypting it, for an endpoint that
// demultiplexes incoming packets across many Conns by CID before it knows
// which Conn.Write to call. shortHeaderDCIDLen must equal the length of
// the connection IDs this endpoint itself issues, since short headers
// carry no explicit CID length (spec.md §6.1).
func PeekDestinationCID(b []byte, shortHeaderDCIDLen int) ([]byte, error) {
	p := packet{header: packetHeader{dcil: uint8(shortHeaderDCIDLen)}}
	if _, err := p.decodeHeader(b); err != nil {
		return nil, err
	}
	return p.header.dcid, nil
}

// packetType is the QUIC draft-27 long-header packet type, plus two
// pseudo-types for the short header and Version Negotiation.
type packetType uint8

const (
	packetTypeInitial packetType = iota
	packetTypeZeroRTT
	packetTypeHandshake
	packetTypeRetry
	packetTypeShort
	packetTypeVersionNegotiation
)

func (t packetType) String() string {
	switch t {
	case packetTypeInitial:
		return "initial"
	case packetTypeZeroRTT:
		return "0-rtt"
	case packetTypeHandshake:
		return "handshake"
	case packetTypeRetry:
		return "retry"
	case packetTypeShort:
		return "1-rtt"
	case packetTypeVersionNegotiation:
		return "version_negotiation"
	default:
		return "unknown"
	}
}

func packetTypeFromSpace(space packetSpace) packetType {
	switch space {
	case packetSpaceInitial:
		return packetTypeInitial
	case packetSpaceHandshake:
		return packetTypeHandshake
	default:
		return packetTypeShort
	}
}

func packetSpaceFromType(t packetType) packetSpace {
	switch t {
	case packetTypeInitial:
		return packetSpaceInitial
	case packetTypeHandshake:
		return packetSpaceHandshake
	default:
		return packetSpaceApplication
	}
}

// packetHeader holds the connection-id fields common to every packet type.
type packetHeader struct {
	version uint32
	dcid    []byte
	scid    []byte
	dcil    uint8 // expected DCID length when parsing a short header
}

// packet describes one QUIC packet being encoded or that was just parsed.
// headerLen is the offset at which the (to-be-protected) packet number
// begins; protectedLen is the combined length, in bytes, of the truncated
// PN plus the encrypted payload (including the AEAD tag).
type packet struct {
	typ    packetType
	header packetHeader

	token             []byte
	supportedVersions []uint32

	packetNumber uint64
	pnLength     int

	headerLen    int
	protectedLen int
	payloadLen   int // plaintext+tag length; set by the sender before encode, or derived after decrypt

	// keyPhase is only meaningful for short headers: it is the bit the
	// sender sets to signal which packet-protection key generation the
	// payload is sealed under (spec.md §4.5 "Key update").
	keyPhase bool
}

func (p *packet) isShortHeader() bool {
	return p.typ == packetTypeShort
}

func (p *packet) String() string {
	return sprint(p.typ, " pn=", p.packetNumber, " dcid=", p.header.dcid)
}

// decodeHeader parses everything up to (but not including) the packet
// number, leaving p.headerLen pointing at the start of the PN and
// p.protectedLen set to the number of bytes remaining that belong to this
// packet (PN + encrypted payload), for long headers. For short and VN/
// Retry packets the remainder of b is assumed to belong to this packet.
func (p *packet) decodeHeader(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, newError(ProtocolViolation, "short packet")
	}
	first := b[0]
	if first&0x80 == 0 {
		return p.decodeShortHeader(b)
	}
	return p.decodeLongHeader(b)
}

func (p *packet) decodeShortHeader(b []byte) (int, error) {
	if len(b) < 1+int(p.header.dcil) {
		return 0, newError(ProtocolViolation, "short header too small")
	}
	p.typ = packetTypeShort
	p.header.dcid = b[1 : 1+int(p.header.dcil)]
	p.headerLen = 1 + int(p.header.dcil)
	p.protectedLen = len(b) - p.headerLen
	return p.headerLen, nil
}

func (p *packet) decodeLongHeader(b []byte) (int, error) {
	if len(b) < 6 {
		return 0, newError(ProtocolViolation, "long header too small")
	}
	off := 0
	first := b[0]
	off++
	version := beUint32(b[off:])
	off += 4
	p.header.version = version
	dcil := int(b[off])
	off++
	if off+dcil > len(b) {
		return 0, newError(ProtocolViolation, "dcid overflow")
	}
	p.header.dcid = b[off : off+dcil]
	off += dcil
	if off >= len(b) {
		return 0, newError(ProtocolViolation, "missing scid length")
	}
	scil := int(b[off])
	off++
	if off+scil > len(b) {
		return 0, newError(ProtocolViolation, "scid overflow")
	}
	p.header.scid = b[off : off+scil]
	off += scil

	if version == 0 {
		p.typ = packetTypeVersionNegotiation
		var versions []uint32
		for off+4 <= len(b) {
			versions = append(versions, beUint32(b[off:]))
			off += 4
		}
		p.supportedVersions = versions
		p.headerLen = off
		return off, nil
	}

	switch (first >> 4) & 0x03 {
	case 0:
		p.typ = packetTypeInitial
		tok, n := getVarintLenPrefixed(b[off:])
		if n == 0 {
			return 0, newError(ProtocolViolation, "bad token length")
		}
		p.token = tok
		off += n
	case 1:
		p.typ = packetTypeZeroRTT
	case 2:
		p.typ = packetTypeHandshake
	case 3:
		p.typ = packetTypeRetry
		p.token = b[off:]
		p.headerLen = len(b)
		return len(b), nil
	}

	var length uint64
	n := getVarint(b[off:], &length)
	if n == 0 {
		return 0, newError(ProtocolViolation, "bad packet length")
	}
	off += n
	p.headerLen = off
	p.protectedLen = int(length)
	if off+p.protectedLen > len(b) {
		return 0, newError(ProtocolViolation, "packet length overflow")
	}
	return off, nil
}

// decodeBody is used only for Version Negotiation packets, whose bodies
// (the supported-version list) are already fully parsed by decodeHeader;
// it exists so callers can treat VN uniformly with other unprotected
// packet types.
func (p *packet) decodeBody(b []byte) (int, error) {
	return 0, nil
}

// encodedLen returns the number of header bytes encode will write, not
// including the packet number or payload.
func (p *packet) encodedLen() int {
	if p.isShortHeader() {
		return 1 + len(p.header.dcid)
	}
	n := 1 + 4 + 1 + len(p.header.dcid) + 1 + len(p.header.scid)
	if p.typ == packetTypeInitial {
		n += varintLen(uint64(len(p.token))) + len(p.token)
	}
	n += varintLen(uint64(p.pnLength + p.payloadLen))
	return n
}

// encode writes the (still unprotected) header and packet number into b,
// returning the offset at which the frame payload begins.
func (p *packet) encode(b []byte) (int, error) {
	if p.pnLength == 0 {
		p.pnLength = encodePNLength(p.packetNumber)
	}
	off := 0
	if p.isShortHeader() {
		b[0] = 0x40 | byte(p.pnLength-1)
		if p.keyPhase {
			b[0] |= 0x04
		}
		off = 1
		off += copy(b[off:], p.header.dcid)
	} else {
		var typeBits byte
		switch p.typ {
		case packetTypeInitial:
			typeBits = 0
		case packetTypeZeroRTT:
			typeBits = 1
		case packetTypeHandshake:
			typeBits = 2
		}
		b[0] = 0xc0 | typeBits<<4 | byte(p.pnLength-1)
		off = 1
		bePutUint32(b[off:], p.header.version)
		off += 4
		b[off] = byte(len(p.header.dcid))
		off++
		off += copy(b[off:], p.header.dcid)
		b[off] = byte(len(p.header.scid))
		off++
		off += copy(b[off:], p.header.scid)
		if p.typ == packetTypeInitial {
			off += putVarintLenPrefixed(b[off:], p.token)
		}
		off += putVarint(b[off:], uint64(p.pnLength+p.payloadLen))
	}
	p.headerLen = off
	off += putTruncatedPN(b[off:], p.packetNumber, p.pnLength)
	return off, nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func bePutUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// encodePNLength picks the truncated PN encoding length from pn alone, as
// if nothing had been acknowledged: 1 byte below 2^7, 2 below 2^15, 3 below
// 2^23, otherwise 4. The largest acknowledged PN is not taken into account,
// so the result is not the minimum length for next_pn - largest_acked.
func encodePNLength(pn uint64) int {
	switch {
	case pn < 1<<7:
		return 1
	case pn < 1<<15:
		return 2
	case pn < 1<<23:
		return 3
	default:
		return 4
	}
}

func putTruncatedPN(b []byte, pn uint64, length int) int {
	for i := length - 1; i >= 0; i-- {
		b[i] = byte(pn)
		pn >>= 8
	}
	return length
}

func decodeTruncatedPN(b []byte, length int) uint64 {
	var v uint64
	for i := 0; i < length; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// decodePacketNumber reconstructs the full packet number from its
// truncated wire form, per RFC 9001 Appendix A.
func decodePacketNumber(largestReceived int64, truncated uint64, pnLength int) uint64 {
	pnBits := uint(pnLength * 8)
	expected := uint64(0)
	if largestReceived >= 0 {
		expected = uint64(largestReceived) + 1
	}
	win := uint64(1) << pnBits
	hwin := win / 2
	pnMask := win - 1
	candidate := (expected &^ pnMask) | truncated
	if candidate+hwin <= expected && candidate < (uint64(1)<<62)-win {
		return candidate + win
	}
	if candidate > expected+hwin && candidate >= win {
		return candidate - win
	}
	return candidate
}
