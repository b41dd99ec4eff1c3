package quic

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Server accepts inbound QUIC connections over a single UDP socket.
type Server struct {
	endpoint *endpoint
}

// NewServer creates a Server using the given configuration. config may be
// nil to accept every default; config.TLS must carry at least one
// certificate for the handshake to succeed.
func NewServer(config *Config) *Server {
	return &Server{endpoint: newEndpoint(config, true)}
}

// SetHandler installs the callback invoked whenever a connection has new
// events to report.
func (s *Server) SetHandler(h Handler) {
	s.endpoint.SetHandler(h)
}

// SetLogger turns on qlog-style transaction logging at the given verbosity
// (0=off 1=error 2=info 3=debug 4=trace), writing to w.
func (s *Server) SetLogger(level int, w io.Writer) {
	s.endpoint.SetLogger(level, w)
}

// ListenAndServe opens addr and accepts connections until Close is called.
func (s *Server) ListenAndServe(addr string) error {
	return s.endpoint.listen(addr)
}

// Close shuts down the socket and every connection it is driving.
func (s *Server) Close() error {
	return s.endpoint.Close()
}

// Collector exposes this server's Prometheus collector for registration on
// a caller-chosen *prometheus.Registry.
func (s *Server) Collector() prometheus.Collector {
	return s.endpoint.Collector()
}
