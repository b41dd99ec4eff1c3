package quic

import (
	"io"
	"net"

	"github.com/prometheus/client_golang/prometheus"
)

// Client drives one or more client-initiated QUIC connections over a
// single UDP socket.
type Client struct {
	endpoint *endpoint
}

// NewClient creates a Client using the given configuration. config may be
// nil to accept every default.
func NewClient(config *Config) *Client {
	return &Client{endpoint: newEndpoint(config, false)}
}

// SetHandler installs the callback invoked whenever a connection has new
// events to report.
func (c *Client) SetHandler(h Handler) {
	c.endpoint.SetHandler(h)
}

// SetLogger turns on qlog-style transaction logging at the given verbosity
// (0=off 1=error 2=info 3=debug 4=trace), writing to w.
func (c *Client) SetLogger(level int, w io.Writer) {
	c.endpoint.SetLogger(level, w)
}

// ListenAndServe opens the local UDP socket connections will send and
// receive datagrams through. addr may be "host:0" to let the kernel pick
// an ephemeral port.
func (c *Client) ListenAndServe(addr string) error {
	return c.endpoint.listen(addr)
}

// Connect starts a new connection to addr. The handshake runs
// asynchronously; its progress and completion are reported to the
// Handler as events.
func (c *Client) Connect(addr string) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	return c.endpoint.connect(raddr)
}

// Close shuts down the socket and every connection driven through it.
func (c *Client) Close() error {
	return c.endpoint.Close()
}

// Collector exposes this client's Prometheus collector for registration on
// a caller-chosen *prometheus.Registry.
func (c *Client) Collector() prometheus.Collector {
	return c.endpoint.Collector()
}
