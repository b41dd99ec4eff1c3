package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goburrow/quic"
)

// fileConfig is the on-disk shape of a quince config file: grouped by
// concern, mirroring the transport.Config/endpoint split underneath.
type fileConfig struct {
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Transport TransportConfig `yaml:"transport"`
	TLS       TLSConfig       `yaml:"tls"`
}

// EndpointConfig controls the socket context above the wire state machine.
type EndpointConfig struct {
	MaxConnections int `yaml:"max_connections"` // 0 = unbounded
}

// TransportConfig carries the negotiated transport parameters (spec.md §4.2).
type TransportConfig struct {
	MaxIdleTimeout    time.Duration `yaml:"max_idle_timeout"`    // default: 30s
	MaxUDPPayloadSize int           `yaml:"max_udp_payload_size"` // default: 1452

	InitialMaxData                 uint64 `yaml:"initial_max_data"`
	InitialMaxStreamDataBidiLocal  uint64 `yaml:"initial_max_stream_data_bidi_local"`
	InitialMaxStreamDataBidiRemote uint64 `yaml:"initial_max_stream_data_bidi_remote"`
	InitialMaxStreamDataUni        uint64 `yaml:"initial_max_stream_data_uni"`
	InitialMaxStreamsBidi          uint64 `yaml:"initial_max_streams_bidi"`
	InitialMaxStreamsUni           uint64 `yaml:"initial_max_streams_uni"`

	AckDelayExponent        uint64 `yaml:"ack_delay_exponent"`
	ActiveConnectionIDLimit uint64 `yaml:"active_connection_id_limit"`
}

// TLSConfig carries the server's certificate pair. Client-side verification
// knobs (ServerName, InsecureSkipVerify) stay as clientCommand flags since
// they are per-connection, not per-process.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// newConfig returns a Config with every default, used when no config file
// is given.
func newConfig() *quic.Config {
	return quic.NewConfig()
}

// loadConfigFile reads a YAML config file at path and applies its settings
// on top of config's existing defaults, leaving any field the file omits
// (zero value after yaml.Unmarshal) untouched.
func loadConfigFile(config *quic.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return fc.apply(config)
}

// loadKeyPair reads a PEM certificate and private key from disk, for the
// -cert/-key flags that override whatever the config file set.
func loadKeyPair(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("loading tls key pair: %w", err)
	}
	return cert, nil
}

func (fc *fileConfig) apply(config *quic.Config) error {
	if fc.Endpoint.MaxConnections > 0 {
		config.MaxConnections = fc.Endpoint.MaxConnections
	}

	t := &fc.Transport
	p := &config.Params
	if t.MaxIdleTimeout > 0 {
		p.MaxIdleTimeout = t.MaxIdleTimeout
	}
	if t.MaxUDPPayloadSize > 0 {
		p.MaxUDPPayloadSize = uint64(t.MaxUDPPayloadSize)
	}
	if t.InitialMaxData > 0 {
		p.InitialMaxData = t.InitialMaxData
	}
	if t.InitialMaxStreamDataBidiLocal > 0 {
		p.InitialMaxStreamDataBidiLocal = t.InitialMaxStreamDataBidiLocal
	}
	if t.InitialMaxStreamDataBidiRemote > 0 {
		p.InitialMaxStreamDataBidiRemote = t.InitialMaxStreamDataBidiRemote
	}
	if t.InitialMaxStreamDataUni > 0 {
		p.InitialMaxStreamDataUni = t.InitialMaxStreamDataUni
	}
	if t.InitialMaxStreamsBidi > 0 {
		p.InitialMaxStreamsBidi = t.InitialMaxStreamsBidi
	}
	if t.InitialMaxStreamsUni > 0 {
		p.InitialMaxStreamsUni = t.InitialMaxStreamsUni
	}
	if t.AckDelayExponent > 0 {
		p.AckDelayExponent = t.AckDelayExponent
	}
	if t.ActiveConnectionIDLimit > 0 {
		p.ActiveConnectionIDLimit = t.ActiveConnectionIDLimit
	}

	if fc.TLS.CertFile != "" || fc.TLS.KeyFile != "" {
		if fc.TLS.CertFile == "" || fc.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file must both be set")
		}
		cert, err := tls.LoadX509KeyPair(fc.TLS.CertFile, fc.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("loading tls key pair: %w", err)
		}
		config.TLS.Certificates = []tls.Certificate{cert}
	}
	return nil
}
