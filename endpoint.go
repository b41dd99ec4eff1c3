package quic

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"

	"github.com/goburrow/quic/transport"
)

// connectionIDLength is the size of the connection IDs this endpoint
// itself issues, both for its own scid and for the short-header packets
// it must demultiplex without the explicit length a long header carries
// (spec.md §6.1). It is xid.ID's fixed width: CIDs come from xid.New()
// rather than ad hoc crypto/rand slicing.
const connectionIDLength = 12

// newConnectionID allocates a fresh source connection ID. xid.New encodes
// a timestamp, machine, and process component plus a counter, so distinct
// endpoints in the same process never collide even under concurrent use.
func newConnectionID() []byte {
	id := xid.New()
	return id.Bytes()
}

// Handler reacts to the connection and stream events a Client or Server
// surfaces for one connection at a time.
type Handler interface {
	Serve(c Conn, events []transport.Event)
}

// endpoint is the machinery shared by Client and Server: one UDP socket, a
// registry of live connections keyed by every local connection ID that
// should route to them, and one goroutine per connection driving its
// handshake, retransmissions and idle timeout (spec.md §4 "Connection
// establishment", §7 "Loss detection and timers", read from the socket up).
type endpoint struct {
	config   *Config
	isServer bool

	handler Handler
	logger  logger
	metrics *connStats

	socket net.PacketConn

	mu    sync.Mutex
	conns map[string]*remoteConn

	wg        sync.WaitGroup
	closing   chan struct{}
	closeOnce sync.Once
}

func newEndpoint(config *Config, isServer bool) *endpoint {
	if config == nil {
		config = NewConfig()
	}
	return &endpoint{
		config:   config,
		isServer: isServer,
		conns:    make(map[string]*remoteConn),
		closing:  make(chan struct{}),
		metrics:  newMetrics(),
	}
}

func (e *endpoint) SetHandler(h Handler) {
	e.handler = h
}

// Collector exposes this endpoint's Prometheus collector for registration
// on a caller-chosen *prometheus.Registry.
func (e *endpoint) Collector() prometheus.Collector {
	return e.metrics
}

func (e *endpoint) SetLogger(level int, w io.Writer) {
	e.logger.level = logLevel(level)
	e.logger.setWriter(w)
}

func (e *endpoint) listen(addr string) error {
	socket, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	e.socket = socket
	e.wg.Add(1)
	go e.readLoop()
	return nil
}

func (e *endpoint) readLoop() {
	defer e.wg.Done()
	buf := make([]byte, transport.MaxPacketSize)
	for {
		n, addr, err := e.socket.ReadFrom(buf)
		if err != nil {
			select {
			case <-e.closing:
			default:
				e.logger.log(levelError, "read %s: %v", e.socket.LocalAddr(), err)
			}
			return
		}
		e.metrics.packetsReceived.Inc()
		data := append([]byte(nil), buf[:n]...)
		e.dispatch(data, addr)
	}
}

func (e *endpoint) dispatch(data []byte, addr net.Addr) {
	dcid, err := transport.PeekDestinationCID(data, connectionIDLength)
	if err != nil {
		e.metrics.packetsDropped.Inc()
		e.logger.log(levelDebug, "dropped packet from %s: %v", addr, err)
		return
	}
	e.mu.Lock()
	c := e.conns[string(dcid)]
	e.mu.Unlock()
	if c == nil {
		if !e.isServer {
			e.metrics.packetsDropped.Inc()
			e.logger.log(levelDebug, "dropped packet for unknown connection from %s", addr)
			return
		}
		c = e.accept(dcid, addr)
		if c == nil {
			return
		}
	}
	select {
	case c.recvCh <- data:
	default:
		e.metrics.packetsDropped.Inc()
		e.logger.log(levelDebug, "dropped packet for %x: connection busy", c.scid)
	}
}

func (e *endpoint) connCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[*remoteConn]bool, len(e.conns))
	for _, c := range e.conns {
		seen[c] = true
	}
	return len(seen)
}

func (e *endpoint) addConn(c *remoteConn, extraKeys ...[]byte) {
	e.mu.Lock()
	e.conns[string(c.scid)] = c
	for _, k := range extraKeys {
		e.conns[string(k)] = c
	}
	e.mu.Unlock()
}

func (e *endpoint) removeConn(c *remoteConn) {
	e.mu.Lock()
	for k, v := range e.conns {
		if v == c {
			delete(e.conns, k)
		}
	}
	e.mu.Unlock()
}

// accept creates a server-side connection for a datagram addressed to an
// unrecognised CID, assuming it carries an Initial packet (anything else
// fails transport.Accept's own validation and is dropped).
func (e *endpoint) accept(odcid []byte, addr net.Addr) *remoteConn {
	if e.config.MaxConnections > 0 && e.connCount() >= e.config.MaxConnections {
		e.metrics.packetsDropped.Inc()
		e.logger.log(levelDebug, "dropped connection attempt from %s: at capacity", addr)
		return nil
	}
	scid := newConnectionID()
	tconn, err := transport.Accept(scid, odcid, e.config.Config)
	if err != nil {
		e.metrics.packetsDropped.Inc()
		e.logger.log(levelDebug, "accept from %s: %v", addr, err)
		return nil
	}
	c := newRemoteConn(scid, addr, tconn, e.socket)
	e.addConn(c, odcid)
	e.logger.attachLogger(c)
	e.metrics.add(c)
	e.wg.Add(1)
	go e.runConn(c)
	return c
}

// connect starts a new client connection to addr and registers it.
func (e *endpoint) connect(addr net.Addr) error {
	scid := newConnectionID()
	tconn, err := transport.Connect(scid, e.config.Config)
	if err != nil {
		return err
	}
	c := newRemoteConn(scid, addr, tconn, e.socket)
	e.addConn(c)
	e.logger.attachLogger(c)
	e.metrics.add(c)
	e.wg.Add(1)
	go e.runConn(c)
	return nil
}

// runConn drives one connection until it closes or the endpoint is shut
// down: flush whatever the connection wants to send, surface any events
// to the Handler, then wait for the next datagram, timer, or stop signal.
func (e *endpoint) runConn(c *remoteConn) {
	defer e.wg.Done()
	defer e.removeConn(c)
	defer e.metrics.remove(c)
	defer e.logger.detachLogger(c)

	out := make([]byte, transport.MaxPacketSize)
	stopping := false
	for {
		if err := e.flush(c, out); err != nil {
			e.logger.log(levelError, "flush %s: %v", c.addr, err)
			return
		}
		e.dispatchEvents(c)
		if c.conn.IsClosed() {
			return
		}

		var timer *time.Timer
		var timerCh <-chan time.Time
		if timeout := c.conn.Timeout(); timeout >= 0 {
			timer = time.NewTimer(timeout)
			timerCh = timer.C
		}
		var stopCh <-chan struct{}
		if !stopping {
			stopCh = c.stop
		}

		select {
		case data, ok := <-c.recvCh:
			stopTimer(timer)
			if !ok {
				return
			}
			if _, err := c.conn.Write(data); err != nil {
				e.logger.log(levelDebug, "recv %s: %v", c.addr, err)
			}
		case <-timerCh:
			c.conn.OnTimeout()
		case <-stopCh:
			stopTimer(timer)
			c.conn.Close(false, uint64(transport.NoError), "")
			stopping = true
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (e *endpoint) flush(c *remoteConn, out []byte) error {
	for {
		n, err := c.conn.Read(out)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := c.socket.WriteTo(out[:n], c.addr); err != nil {
			return err
		}
		e.metrics.packetsSent.Inc()
	}
}

func (e *endpoint) dispatchEvents(c *remoteConn) {
	var events []transport.Event
	if c.conn.IsEstablished() && !c.accepted {
		c.accepted = true
		events = append(events, transport.Event{Type: EventConnAccept})
	}
	events = c.conn.Events(events)
	if c.conn.IsClosed() && !c.closedEventSent {
		c.closedEventSent = true
		events = append(events, transport.Event{Type: EventConnClose})
	}
	if len(events) > 0 && e.handler != nil {
		e.handler.Serve(c, events)
	}
}

func (e *endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closing)
		if e.socket != nil {
			err = e.socket.Close()
		}
		e.mu.Lock()
		seen := make(map[*remoteConn]bool, len(e.conns))
		for _, c := range e.conns {
			seen[c] = true
		}
		e.mu.Unlock()
		for c := range seen {
			close(c.stop)
		}
	})
	e.wg.Wait()
	return err
}
