package quic

import (
	"net"

	"github.com/goburrow/quic/transport"
)

// Conn is the application-facing handle for one QUIC connection, handed to
// a Handler's Serve method as connection and stream events arrive.
type Conn interface {
	// RemoteAddr is the UDP address this connection exchanges datagrams
	// with.
	RemoteAddr() net.Addr
	// Stream returns the stream with the given id, creating it locally if
	// it does not exist yet. It returns nil if the stream cannot be
	// opened (e.g. the peer's advertised stream limit has been reached).
	Stream(id uint64) *transport.Stream
	// Close starts closing the connection, sending CONNECTION_CLOSE with
	// the given application error code and reason to the peer.
	Close(code uint64, reason string)
}

// remoteConn binds a transport.Conn's wire-level state machine to the UDP
// socket and address it is reachable through. Every call into conn and
// every field below is only ever touched from the single goroutine
// endpoint.runConn runs for this connection; the channels are its only
// points of contact with the rest of the endpoint.
type remoteConn struct {
	scid []byte
	addr net.Addr
	conn *transport.Conn

	socket net.PacketConn

	recvCh chan []byte   // datagrams handed off by endpoint.dispatch
	stop   chan struct{} // closed by endpoint.Close to request shutdown

	accepted        bool // EventConnAccept has fired
	closedEventSent bool // EventConnClose has fired
}

func newRemoteConn(scid []byte, addr net.Addr, tconn *transport.Conn, socket net.PacketConn) *remoteConn {
	return &remoteConn{
		scid:   scid,
		addr:   addr,
		conn:   tconn,
		socket: socket,
		recvCh: make(chan []byte, 16),
		stop:   make(chan struct{}),
	}
}

func (c *remoteConn) RemoteAddr() net.Addr {
	return c.addr
}

func (c *remoteConn) Stream(id uint64) *transport.Stream {
	st, err := c.conn.Stream(id)
	if err != nil {
		return nil
	}
	return st
}

func (c *remoteConn) Close(code uint64, reason string) {
	c.conn.Close(true, code, reason)
}
