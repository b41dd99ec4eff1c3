package quic

import "testing"

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	if c.MaxConnections != 0 {
		t.Fatalf("MaxConnections = %d, want 0 (unbounded) by default", c.MaxConnections)
	}
	if c.TLS == nil {
		t.Fatalf("TLS should be non-nil via the embedded transport.Config")
	}
	if c.Params.MaxIdleTimeout == 0 {
		t.Fatalf("Params should carry transport.DefaultParameters, got zero MaxIdleTimeout")
	}
}
