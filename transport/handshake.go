package transport

import (
	"crypto/tls"
)

// tlsHandshake drives the TLS 1.3 handshake via the standard library's
// QUIC-aware tls.QUICConn (crypto/tls, go1.21+), translating between its
// event stream and the connection's three crypto streams/packet-number
// spaces (spec.md §4.1 "Handshake", §C5 "Key schedule").
type tlsHandshake struct {
	conn   *tls.QUICConn
	config *tls.Config

	isClient bool
	complete bool

	localParams  Parameters
	peerParams   *Parameters
	peerParamsOK bool
}

func (h *tlsHandshake) init(config *Config, isClient bool) {
	h.isClient = isClient
	h.config = config.TLS
	qc := &tls.QUICConfig{TLSConfig: config.TLS}
	if isClient {
		h.conn = tls.QUICClient(qc)
	} else {
		h.conn = tls.QUICServer(qc)
	}
	h.localParams = config.Params
}

// setTransportParams updates the parameters this endpoint advertises. The
// client must call this (with its final parameter set, including
// initial_source_connection_id) before start(); the server may call it
// again once original_destination_connection_id becomes known, any time
// before the QUICTransportParametersRequired event is processed.
func (h *tlsHandshake) setTransportParams(p *Parameters) {
	h.localParams = *p
	h.conn.SetTransportParameters(h.localParams.marshal())
}

// start kicks off the handshake state machine; the resulting CRYPTO data
// (ClientHello, or the server's first flight) is delivered through the
// QUICWriteData events drained by doHandshake.
func (h *tlsHandshake) start() error {
	return wrapTLSError(h.conn.Start(backgroundCtx))
}

// HandshakeComplete reports whether tls.QUICConn has emitted the
// QUICHandshakeDone event.
func (h *tlsHandshake) HandshakeComplete() bool {
	return h.complete
}

func (h *tlsHandshake) peerTransportParams() (*Parameters, bool) {
	return h.peerParams, h.peerParamsOK
}

// doHandshake feeds pn a single level's worth of newly received CRYPTO
// bytes into tls.QUICConn (when data is non-empty) and then drains every
// pending event, writing derived secrets into spaces' seals and any
// outgoing CRYPTO bytes into the matching packetNumberSpace's crypto
// stream (spec.md §4.1 steps: install keys as soon as TLS offers them,
// queue handshake bytes for the next outgoing packet in that space).
func (h *tlsHandshake) doHandshake(level packetSpace, data []byte, spaces *[packetSpaceCount]packetNumberSpace) error {
	if len(data) > 0 {
		if err := h.conn.HandleData(spaceToTLSLevel(level), data); err != nil {
			return wrapTLSError(err)
		}
	}
	for {
		event := h.conn.NextEvent()
		switch event.Kind {
		case tls.QUICNoEvent:
			return nil
		case tls.QUICSetReadSecret:
			sp := tlsLevelToSpace(event.Level)
			suite, err := suiteFromTLSSuite(event.Suite)
			if err != nil {
				return err
			}
			opener := &seal{}
			if err := opener.init(suite, event.Data); err != nil {
				return err
			}
			spaces[sp].opener = opener
		case tls.QUICSetWriteSecret:
			sp := tlsLevelToSpace(event.Level)
			suite, err := suiteFromTLSSuite(event.Suite)
			if err != nil {
				return err
			}
			sealer := &seal{}
			if err := sealer.init(suite, event.Data); err != nil {
				return err
			}
			spaces[sp].sealer = sealer
		case tls.QUICWriteData:
			sp := tlsLevelToSpace(event.Level)
			if _, err := spaces[sp].cryptoStream.Write(event.Data); err != nil {
				return newError(InternalError, "crypto stream write: "+err.Error())
			}
		case tls.QUICTransportParameters:
			var params Parameters
			if err := params.unmarshal(event.Data); err != nil {
				return err
			}
			h.peerParams = &params
			h.peerParamsOK = true
		case tls.QUICTransportParametersRequired:
			h.conn.SetTransportParameters(h.localParams.marshal())
		case tls.QUICHandshakeDone:
			h.complete = true
		}
	}
}

func spaceToTLSLevel(sp packetSpace) tls.QUICEncryptionLevel {
	switch sp {
	case packetSpaceInitial:
		return tls.QUICEncryptionLevelInitial
	case packetSpaceHandshake:
		return tls.QUICEncryptionLevelHandshake
	default:
		return tls.QUICEncryptionLevelApplication
	}
}

func tlsLevelToSpace(level tls.QUICEncryptionLevel) packetSpace {
	switch level {
	case tls.QUICEncryptionLevelInitial:
		return packetSpaceInitial
	case tls.QUICEncryptionLevelHandshake:
		return packetSpaceHandshake
	default:
		return packetSpaceApplication
	}
}

// suiteFromTLSSuite maps the negotiated cipher suite id to the aeadSuite
// this package implements (spec.md §4.6; AES-CCM is accepted by TLS but
// unsupported by this build's AEAD layer, see DESIGN.md).
func suiteFromTLSSuite(id uint16) (aeadSuite, error) {
	switch id {
	case tls.TLS_AES_128_GCM_SHA256:
		return suiteAES128GCM, nil
	case tls.TLS_AES_256_GCM_SHA384:
		return suiteAES256GCM, nil
	case tls.TLS_CHACHA20_POLY1305_SHA256:
		return suiteChaCha20Poly1305, nil
	default:
		return 0, newError(InternalError, "unsupported cipher suite")
	}
}

// wrapTLSError maps a tls.AlertError into the matching QUIC crypto_error
// transport error (RFC 9001 §4.8); any other error is reported as an
// internal_error since it indicates a local QUICConn misuse.
func wrapTLSError(err error) error {
	if err == nil {
		return nil
	}
	if alert, ok := err.(tls.AlertError); ok {
		return newError(cryptoErrorCode(uint8(alert)), err.Error())
	}
	return newError(InternalError, err.Error())
}
