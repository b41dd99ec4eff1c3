package transport

import (
	"crypto/tls"
	"time"
)

// Transport parameter identifiers (spec.md §4.5 "transport parameter
// validation table"; RFC 9000 §18.2, draft-27 numbering).
const (
	paramOriginalDestinationCID    = 0x00
	paramMaxIdleTimeout            = 0x01
	paramStatelessResetToken       = 0x02
	paramMaxUDPPayloadSize         = 0x03
	paramInitialMaxData            = 0x04
	paramInitialMaxStreamDataBidiLocal  = 0x05
	paramInitialMaxStreamDataBidiRemote = 0x06
	paramInitialMaxStreamDataUni   = 0x07
	paramInitialMaxStreamsBidi     = 0x08
	paramInitialMaxStreamsUni      = 0x09
	paramAckDelayExponent          = 0x0a
	paramMaxAckDelay               = 0x0b
	paramDisableActiveMigration    = 0x0c
	paramActiveConnectionIDLimit   = 0x0e
	paramInitialSourceCID          = 0x0f
	paramRetrySourceCID            = 0x10
)

// Parameters holds the QUIC transport parameters exchanged during the
// handshake (spec.md §4.5, §GLOSSARY "Transport parameters"). Millisecond
// and microsecond fields use time.Duration in memory and are converted to
// the wire's plain integer units at encode/decode time.
type Parameters struct {
	OriginalDestinationCID []byte
	InitialSourceCID       []byte
	RetrySourceCID         []byte
	StatelessResetToken    []byte

	MaxIdleTimeout    time.Duration
	MaxUDPPayloadSize uint64

	InitialMaxData                 uint64
	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64
	InitialMaxStreamsBidi          uint64
	InitialMaxStreamsUni           uint64

	AckDelayExponent uint64
	MaxAckDelay      time.Duration

	ActiveConnectionIDLimit uint64
}

// DefaultParameters returns the parameter set a new Config starts from;
// callers typically only need to override the stream/data limits.
func DefaultParameters() Parameters {
	return Parameters{
		MaxIdleTimeout:                 30 * time.Second,
		MaxUDPPayloadSize:              1452,
		InitialMaxData:                 1 << 20,
		InitialMaxStreamDataBidiLocal:  1 << 18,
		InitialMaxStreamDataBidiRemote: 1 << 18,
		InitialMaxStreamDataUni:        1 << 18,
		InitialMaxStreamsBidi:          100,
		InitialMaxStreamsUni:           100,
		AckDelayExponent:               3,
		MaxAckDelay:                    25 * time.Millisecond,
		ActiveConnectionIDLimit:        2,
	}
}

// marshal encodes the parameters into the TLV wire format QUIC carries in
// the "quic_transport_parameters" TLS extension (RFC 9000 §18.1).
func (p *Parameters) marshal() []byte {
	b := make([]byte, 0, 256)
	b = appendParamBytes(b, paramOriginalDestinationCID, p.OriginalDestinationCID)
	b = appendParamBytes(b, paramInitialSourceCID, p.InitialSourceCID)
	b = appendParamBytes(b, paramRetrySourceCID, p.RetrySourceCID)
	b = appendParamBytes(b, paramStatelessResetToken, p.StatelessResetToken)
	b = appendParamVarint(b, paramMaxIdleTimeout, uint64(p.MaxIdleTimeout/time.Millisecond))
	b = appendParamVarint(b, paramMaxUDPPayloadSize, p.MaxUDPPayloadSize)
	b = appendParamVarint(b, paramInitialMaxData, p.InitialMaxData)
	b = appendParamVarint(b, paramInitialMaxStreamDataBidiLocal, p.InitialMaxStreamDataBidiLocal)
	b = appendParamVarint(b, paramInitialMaxStreamDataBidiRemote, p.InitialMaxStreamDataBidiRemote)
	b = appendParamVarint(b, paramInitialMaxStreamDataUni, p.InitialMaxStreamDataUni)
	b = appendParamVarint(b, paramInitialMaxStreamsBidi, p.InitialMaxStreamsBidi)
	b = appendParamVarint(b, paramInitialMaxStreamsUni, p.InitialMaxStreamsUni)
	b = appendParamVarint(b, paramAckDelayExponent, p.AckDelayExponent)
	b = appendParamVarint(b, paramMaxAckDelay, uint64(p.MaxAckDelay/time.Millisecond))
	b = appendParamVarint(b, paramActiveConnectionIDLimit, p.ActiveConnectionIDLimit)
	return b
}

func appendParamVarint(b []byte, id uint64, v uint64) []byte {
	head := make([]byte, varintLen(id))
	putVarint(head, id)
	b = append(b, head...)
	val := make([]byte, varintLen(v))
	putVarint(val, v)
	lenHead := make([]byte, varintLen(uint64(len(val))))
	putVarint(lenHead, uint64(len(val)))
	b = append(b, lenHead...)
	b = append(b, val...)
	return b
}

func appendParamBytes(b []byte, id uint64, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	head := make([]byte, varintLen(id))
	putVarint(head, id)
	b = append(b, head...)
	lenHead := make([]byte, varintLen(uint64(len(v))))
	putVarint(lenHead, uint64(len(v)))
	b = append(b, lenHead...)
	b = append(b, v...)
	return b
}

// unmarshal decodes the wire TLV form written by marshal, per RFC 9000
// §18.1. Unknown parameter ids are ignored (forward compatibility).
func (p *Parameters) unmarshal(b []byte) error {
	for len(b) > 0 {
		var id uint64
		n := getVarint(b, &id)
		if n == 0 {
			return newError(TransportParameterError, "param id")
		}
		b = b[n:]
		val, n := getVarintLenPrefixed(b)
		if n == 0 {
			return newError(TransportParameterError, "param length")
		}
		b = b[n:]
		switch id {
		case paramOriginalDestinationCID:
			p.OriginalDestinationCID = append([]byte(nil), val...)
		case paramInitialSourceCID:
			p.InitialSourceCID = append([]byte(nil), val...)
		case paramRetrySourceCID:
			p.RetrySourceCID = append([]byte(nil), val...)
		case paramStatelessResetToken:
			p.StatelessResetToken = append([]byte(nil), val...)
		case paramMaxIdleTimeout:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "max_idle_timeout")
			}
			p.MaxIdleTimeout = time.Duration(v) * time.Millisecond
		case paramMaxUDPPayloadSize:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "max_udp_payload_size")
			}
			p.MaxUDPPayloadSize = v
		case paramInitialMaxData:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "initial_max_data")
			}
			p.InitialMaxData = v
		case paramInitialMaxStreamDataBidiLocal:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "initial_max_stream_data_bidi_local")
			}
			p.InitialMaxStreamDataBidiLocal = v
		case paramInitialMaxStreamDataBidiRemote:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "initial_max_stream_data_bidi_remote")
			}
			p.InitialMaxStreamDataBidiRemote = v
		case paramInitialMaxStreamDataUni:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "initial_max_stream_data_uni")
			}
			p.InitialMaxStreamDataUni = v
		case paramInitialMaxStreamsBidi:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "initial_max_streams_bidi")
			}
			p.InitialMaxStreamsBidi = v
		case paramInitialMaxStreamsUni:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "initial_max_streams_uni")
			}
			p.InitialMaxStreamsUni = v
		case paramAckDelayExponent:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "ack_delay_exponent")
			}
			p.AckDelayExponent = v
		case paramMaxAckDelay:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "max_ack_delay")
			}
			p.MaxAckDelay = time.Duration(v) * time.Millisecond
		case paramActiveConnectionIDLimit:
			v, ok := decodeParamVarint(val)
			if !ok {
				return newError(TransportParameterError, "active_connection_id_limit")
			}
			p.ActiveConnectionIDLimit = v
		case paramDisableActiveMigration:
			// Connection migration is a non-goal; the flag is accepted
			// and ignored rather than rejected.
		}
	}
	return nil
}

func decodeParamVarint(b []byte) (uint64, bool) {
	var v uint64
	n := getVarint(b, &v)
	if n != len(b) {
		return 0, false
	}
	return v, true
}

// Config bundles everything needed to start a client or server connection
// (spec.md §4.1 "Connection establishment").
type Config struct {
	Version uint32
	Params  Parameters
	TLS     *tls.Config
}

// NewConfig returns a Config with default transport parameters and the
// only QUIC version this implementation speaks (draft-27).
func NewConfig() *Config {
	return &Config{
		Version: VersionDraft27,
		Params:  DefaultParameters(),
		TLS:     &tls.Config{MinVersion: tls.VersionTLS13},
	}
}

// VersionDraft27 is the QUIC version this module implements (spec.md §6).
const VersionDraft27 = 0xff00001b

func versionSupported(v uint32) bool {
	return v == VersionDraft27
}
