package quic

import (
	"github.com/goburrow/quic/transport"
)

// Config bundles a transport.Config with the endpoint-level setting that
// lives above the wire: how many connections a server will track.
type Config struct {
	*transport.Config

	// MaxConnections bounds how many simultaneous connections a Server
	// tracks; beyond it, new Initial packets are dropped rather than
	// accepted. Zero means unbounded.
	MaxConnections int
}

// NewConfig returns a Config with default transport parameters, the one
// QUIC version this module speaks, and no connection limit.
func NewConfig() *Config {
	return &Config{Config: transport.NewConfig()}
}
